package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/vdtri/classlens/internal/models"
)

type savedRow struct {
	VideoID   string
	StudentID int64
	Behavior  string
	Emotion   string
	Count     float64
}

type fakeResultStore struct {
	rows []savedRow
	err  error
}

func (f *fakeResultStore) SaveResult(_ context.Context, videoID string, studentID int64, behavior, emotion string, count float64) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, savedRow{videoID, studentID, behavior, emotion, count})
	return nil
}

func (f *fakeResultStore) find(studentID int64, behavior, emotion string) (savedRow, bool) {
	for _, row := range f.rows {
		if row.StudentID == studentID && row.Behavior == behavior && row.Emotion == emotion {
			return row, true
		}
	}
	return savedRow{}, false
}

func TestAggregator_Flush(t *testing.T) {
	agg := NewAggregator()
	agg.RecordBehavior(7, "listening")
	agg.RecordBehavior(7, "listening")
	agg.RecordBehavior(7, "writing")
	agg.RecordBehavior(8, "listening")
	agg.RecordEmotion(7, "happy")

	store := &fakeResultStore{}
	if err := agg.Flush(context.Background(), store, "video-1"); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	if len(store.rows) != 4 {
		t.Fatalf("Expected 4 rows, got %d: %+v", len(store.rows), store.rows)
	}

	row, ok := store.find(7, "listening", models.NotApplicable)
	if !ok || row.Count != 2 {
		t.Errorf("Expected (7, listening, N/A, 2), got %+v ok=%v", row, ok)
	}
	row, ok = store.find(7, models.NotApplicable, "happy")
	if !ok || row.Count != 1 {
		t.Errorf("Expected (7, N/A, happy, 1), got %+v ok=%v", row, ok)
	}
	row, ok = store.find(8, "listening", models.NotApplicable)
	if !ok || row.Count != 1 {
		t.Errorf("Expected (8, listening, N/A, 1), got %+v ok=%v", row, ok)
	}
}

func TestAggregator_FlushEmpty(t *testing.T) {
	agg := NewAggregator()
	if !agg.Empty() {
		t.Error("New aggregator must be empty")
	}

	store := &fakeResultStore{}
	if err := agg.Flush(context.Background(), store, "video-1"); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if len(store.rows) != 0 {
		t.Errorf("Expected no rows, got %d", len(store.rows))
	}
}

func TestAggregator_FlushPropagatesStoreError(t *testing.T) {
	agg := NewAggregator()
	agg.RecordBehavior(1, "listening")

	store := &fakeResultStore{err: errors.New("db down")}
	if err := agg.Flush(context.Background(), store, "video-1"); err == nil {
		t.Error("Expected error from failing store, got nil")
	}
}
