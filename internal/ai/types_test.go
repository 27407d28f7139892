package ai

import "testing"

func TestBoundingBox_Area(t *testing.T) {
	tests := []struct {
		name string
		box  BoundingBox
		want int
	}{
		{"normal", BoundingBox{X1: 10, Y1: 10, X2: 30, Y2: 20}, 200},
		{"zero width", BoundingBox{X1: 10, Y1: 10, X2: 10, Y2: 20}, 0},
		{"inverted", BoundingBox{X1: 30, Y1: 20, X2: 10, Y2: 10}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.box.Area(); got != tt.want {
				t.Errorf("Area() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRepresentativeFace(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if _, ok := RepresentativeFace(nil); ok {
			t.Error("Expected no representative face from empty slice")
		}
	})

	t.Run("largest area wins", func(t *testing.T) {
		small := Face{Box: BoundingBox{X1: 0, Y1: 0, X2: 10, Y2: 10}}
		large := Face{Box: BoundingBox{X1: 0, Y1: 0, X2: 50, Y2: 50}}

		face, ok := RepresentativeFace([]Face{small, large})
		if !ok {
			t.Fatal("Expected a representative face")
		}
		if face.Box != large.Box {
			t.Errorf("Expected the larger face, got %+v", face.Box)
		}
	})

	t.Run("tie goes to first found", func(t *testing.T) {
		first := Face{Box: BoundingBox{X1: 0, Y1: 0, X2: 10, Y2: 10}, Embedding: []float32{1}}
		second := Face{Box: BoundingBox{X1: 5, Y1: 5, X2: 15, Y2: 15}, Embedding: []float32{2}}

		face, ok := RepresentativeFace([]Face{first, second})
		if !ok {
			t.Fatal("Expected a representative face")
		}
		if face.Embedding[0] != 1 {
			t.Errorf("Tie must pick the first face, got %+v", face)
		}
	})
}

func TestSampleStride(t *testing.T) {
	tests := []struct {
		fps  float64
		want int
	}{
		{30, 30},
		{29.97, 30},
		{25, 25},
		{0.4, 1},
		{0, 1},
		{-5, 1},
	}

	for _, tt := range tests {
		if got := SampleStride(tt.fps); got != tt.want {
			t.Errorf("SampleStride(%f) = %d, want %d", tt.fps, got, tt.want)
		}
	}
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"30/1", 30},
		{"30000/1001", 29.97002997002997},
		{"25", 25},
		{"0/0", 0},
		{"", 0},
		{"garbage", 0},
	}

	for _, tt := range tests {
		if got := parseFrameRate(tt.raw); got != tt.want {
			t.Errorf("parseFrameRate(%q) = %f, want %f", tt.raw, got, tt.want)
		}
	}
}
