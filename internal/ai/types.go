package ai

// BoundingBox is a pixel-coordinate region inside a frame or crop.
type BoundingBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func (b BoundingBox) Width() int {
	return b.X2 - b.X1
}

func (b BoundingBox) Height() int {
	return b.Y2 - b.Y1
}

func (b BoundingBox) Area() int {
	w, h := b.Width(), b.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// BehaviorDetection is one region the behavior model labeled in a frame.
type BehaviorDetection struct {
	Box   BoundingBox `json:"box"`
	Label string      `json:"label"`
}

// Face is one detected face. Embedding may be empty when the detector found
// a face but could not produce a usable embedding for it.
type Face struct {
	Box       BoundingBox `json:"box"`
	Embedding []float32   `json:"embedding,omitempty"`
}

// RepresentativeFace picks the single subject face from a multi-face crop:
// largest bounding-box area wins, first found on ties.
func RepresentativeFace(faces []Face) (Face, bool) {
	if len(faces) == 0 {
		return Face{}, false
	}
	best := faces[0]
	for _, f := range faces[1:] {
		if f.Box.Area() > best.Box.Area() {
			best = f
		}
	}
	return best, true
}

type Config struct {
	BehaviorModelURL string
	FaceModelURL     string
	EmotionModelURL  string
}
