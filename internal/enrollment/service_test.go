package enrollment

import (
	"context"
	"errors"
	"testing"

	"github.com/vdtri/classlens/internal/ai"
	"github.com/vdtri/classlens/internal/models"
)

type fakeStudentStore struct {
	students map[string]*models.Student
	nextID   int64
	creates  int
}

func newFakeStudentStore() *fakeStudentStore {
	return &fakeStudentStore{students: make(map[string]*models.Student), nextID: 1}
}

func (s *fakeStudentStore) FindByName(_ context.Context, name string) (*models.Student, error) {
	return s.students[name], nil
}

func (s *fakeStudentStore) Create(_ context.Context, name string) (*models.Student, error) {
	student := &models.Student{ID: s.nextID, Name: name}
	s.nextID++
	s.creates++
	s.students[name] = student
	return student, nil
}

type fakeIndex struct {
	added map[int64]int
	err   error
}

func (f *fakeIndex) Add(studentID int64, vec []float32) error {
	if f.err != nil {
		return f.err
	}
	if f.added == nil {
		f.added = make(map[int64]int)
	}
	f.added[studentID]++
	return nil
}

type fakeFaceAnalyzer struct {
	faces []ai.Face
	err   error
}

func (f *fakeFaceAnalyzer) DetectFaces(_ context.Context, _ []byte) ([]ai.Face, error) {
	return f.faces, f.err
}

func oneFace(embedding []float32) []ai.Face {
	return []ai.Face{{Box: ai.BoundingBox{X2: 100, Y2: 100}, Embedding: embedding}}
}

func TestService_Enroll(t *testing.T) {
	store := newFakeStudentStore()
	index := &fakeIndex{}
	engine := ai.NewEngineWith(nil, &fakeFaceAnalyzer{faces: oneFace([]float32{1, 2, 3})}, nil)

	svc := NewService(store, index, engine)

	student, msg, err := svc.Enroll(context.Background(), "An Nguyen", []byte("jpeg"))
	if err != nil {
		t.Fatalf("Enroll failed: %v", err)
	}
	if student == nil || student.Name != "An Nguyen" {
		t.Fatalf("Unexpected student: %+v", student)
	}
	if msg != "Enrollment successful." {
		t.Errorf("Unexpected message: %q", msg)
	}
	if index.added[student.ID] != 1 {
		t.Errorf("Expected 1 embedding for student %d, got %d", student.ID, index.added[student.ID])
	}
}

func TestService_Enroll_IdempotentOnName(t *testing.T) {
	store := newFakeStudentStore()
	index := &fakeIndex{}
	engine := ai.NewEngineWith(nil, &fakeFaceAnalyzer{faces: oneFace([]float32{1})}, nil)

	svc := NewService(store, index, engine)
	ctx := context.Background()

	first, _, err := svc.Enroll(ctx, "An Nguyen", []byte("a"))
	if err != nil {
		t.Fatalf("First enroll failed: %v", err)
	}
	second, _, err := svc.Enroll(ctx, "An Nguyen", []byte("b"))
	if err != nil {
		t.Fatalf("Second enroll failed: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("Same name must reuse the student record: %d vs %d", first.ID, second.ID)
	}
	if store.creates != 1 {
		t.Errorf("Expected exactly one Create call, got %d", store.creates)
	}
	if index.added[first.ID] != 2 {
		t.Errorf("Expected both embeddings on student %d, got %d", first.ID, index.added[first.ID])
	}
}

func TestService_Enroll_TypedErrors(t *testing.T) {
	tests := []struct {
		name    string
		faces   []ai.Face
		wantErr error
	}{
		{"no face", nil, ErrNoFaceFound},
		{"multiple faces", append(oneFace([]float32{1}), oneFace([]float32{2})...), ErrMultipleFacesFound},
		{"no embedding", oneFace(nil), ErrEmbeddingUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := ai.NewEngineWith(nil, &fakeFaceAnalyzer{faces: tt.faces}, nil)
			svc := NewService(newFakeStudentStore(), &fakeIndex{}, engine)

			_, _, err := svc.Enroll(context.Background(), "x", []byte("jpeg"))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestService_Enroll_ModelUnavailable(t *testing.T) {
	engine := ai.NewEngineWith(nil, nil, nil)
	store := newFakeStudentStore()
	svc := NewService(store, &fakeIndex{}, engine)

	_, _, err := svc.Enroll(context.Background(), "x", []byte("jpeg"))
	if !errors.Is(err, ai.ErrModelUnavailable) {
		t.Fatalf("Expected ErrModelUnavailable, got %v", err)
	}
	// The capability check runs before any record is touched.
	if store.creates != 0 {
		t.Errorf("No student should be created when the model is unavailable, got %d", store.creates)
	}
}
