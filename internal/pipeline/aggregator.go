package pipeline

import (
	"context"
	"fmt"

	"github.com/vdtri/classlens/internal/models"
)

// ResultStore is the persistence collaborator aggregates are flushed into.
type ResultStore interface {
	SaveResult(ctx context.Context, videoID string, studentID int64, behavior, emotion string, count float64) error
}

// Aggregator accumulates per-student occurrence counts over one pipeline
// run. Behavior and emotion are independent counters, not a joint tuple.
// It holds no durable state and is rebuilt for every video.
type Aggregator struct {
	behaviors map[int64]map[string]float64
	emotions  map[int64]map[string]float64
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		behaviors: make(map[int64]map[string]float64),
		emotions:  make(map[int64]map[string]float64),
	}
}

func (a *Aggregator) RecordBehavior(studentID int64, behavior string) {
	if a.behaviors[studentID] == nil {
		a.behaviors[studentID] = make(map[string]float64)
	}
	a.behaviors[studentID][behavior]++
}

func (a *Aggregator) RecordEmotion(studentID int64, emotion string) {
	if a.emotions[studentID] == nil {
		a.emotions[studentID] = make(map[string]float64)
	}
	a.emotions[studentID][emotion]++
}

// Flush emits one row per (student, behavior) with the emotion column
// padded, and one row per (student, emotion) with the behavior column
// padded. Counts are commutative sums, so row order carries no meaning.
func (a *Aggregator) Flush(ctx context.Context, results ResultStore, videoID string) error {
	for studentID, behaviors := range a.behaviors {
		for behavior, count := range behaviors {
			if err := results.SaveResult(ctx, videoID, studentID, behavior, models.NotApplicable, count); err != nil {
				return fmt.Errorf("failed to persist behavior row: %w", err)
			}
		}
	}
	for studentID, emotions := range a.emotions {
		for emotion, count := range emotions {
			if err := results.SaveResult(ctx, videoID, studentID, models.NotApplicable, emotion, count); err != nil {
				return fmt.Errorf("failed to persist emotion row: %w", err)
			}
		}
	}
	return nil
}

// Empty reports whether nothing was recorded for any student.
func (a *Aggregator) Empty() bool {
	return len(a.behaviors) == 0 && len(a.emotions) == 0
}
