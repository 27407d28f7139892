// Package enrollment registers student portraits into the identity index.
package enrollment

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/vdtri/classlens/internal/ai"
	"github.com/vdtri/classlens/internal/models"
)

var (
	ErrNoFaceFound          = errors.New("no face found in the image")
	ErrMultipleFacesFound   = errors.New("multiple faces found, a single-subject portrait is required")
	ErrEmbeddingUnavailable = errors.New("could not extract a face embedding")
)

// StudentStore is the slice of the student repository enrollment needs.
type StudentStore interface {
	FindByName(ctx context.Context, name string) (*models.Student, error)
	Create(ctx context.Context, name string) (*models.Student, error)
}

// IdentityIndex is the write path into the embedding index.
type IdentityIndex interface {
	Add(studentID int64, vec []float32) error
}

type Service struct {
	students StudentStore
	index    IdentityIndex
	engine   *ai.Engine
}

func NewService(students StudentStore, index IdentityIndex, engine *ai.Engine) *Service {
	return &Service{
		students: students,
		index:    index,
		engine:   engine,
	}
}

// Enroll registers a portrait for the named student, creating the student
// record when the name is new. Enrolling the same name again attaches
// another embedding to the existing record.
func (s *Service) Enroll(ctx context.Context, name string, image []byte) (*models.Student, string, error) {
	// Capability check comes first so a missing model surfaces as a typed
	// error instead of failing mid-flow.
	analyzer, err := s.engine.FaceAnalyzer()
	if err != nil {
		return nil, "", err
	}

	student, err := s.students.FindByName(ctx, name)
	if err != nil {
		return nil, "", fmt.Errorf("failed to look up student: %w", err)
	}
	if student == nil {
		student, err = s.students.Create(ctx, name)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create student: %w", err)
		}
		log.Printf("[ENROLL] Created student %d (%s)", student.ID, student.Name)
	}

	faces, err := analyzer.DetectFaces(ctx, image)
	if err != nil {
		return nil, "", fmt.Errorf("face detection failed: %w", err)
	}
	if len(faces) == 0 {
		return nil, "", ErrNoFaceFound
	}
	if len(faces) > 1 {
		return nil, "", ErrMultipleFacesFound
	}

	embedding := faces[0].Embedding
	if len(embedding) == 0 {
		return nil, "", ErrEmbeddingUnavailable
	}

	if err := s.index.Add(student.ID, embedding); err != nil {
		return nil, "", fmt.Errorf("failed to store embedding: %w", err)
	}

	log.Printf("[ENROLL] Stored embedding for student %d (%s)", student.ID, student.Name)
	return student, "Enrollment successful.", nil
}
