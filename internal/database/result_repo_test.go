package database

import (
	"context"
	"testing"

	"github.com/vdtri/classlens/internal/models"
)

func TestResultRepository_SaveAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewResultRepository(db)
	ctx := context.Background()

	if err := repo.SaveResult(ctx, "video-1", 7, "listening", models.NotApplicable, 10); err != nil {
		t.Fatalf("Failed to save result: %v", err)
	}
	if err := repo.SaveResult(ctx, "video-1", 7, models.NotApplicable, "happy", 4); err != nil {
		t.Fatalf("Failed to save result: %v", err)
	}
	if err := repo.SaveResult(ctx, "video-2", 7, "writing", models.NotApplicable, 2); err != nil {
		t.Fatalf("Failed to save result: %v", err)
	}

	results, err := repo.GetByVideoID(ctx, "video-1")
	if err != nil {
		t.Fatalf("Failed to get results: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results for video-1, got %d", len(results))
	}

	for _, res := range results {
		if res.StudentID != 7 {
			t.Errorf("Expected student 7, got %d", res.StudentID)
		}
		if res.Behavior != models.NotApplicable && res.Emotion != models.NotApplicable {
			t.Errorf("Row must pad one label with %q: %+v", models.NotApplicable, res)
		}
	}
}

func TestResultRepository_GetByVideoID_Empty(t *testing.T) {
	db := setupTestDB(t)
	repo := NewResultRepository(db)

	results, err := repo.GetByVideoID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetByVideoID failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected no results, got %d", len(results))
	}
}
