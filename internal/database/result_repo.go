package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vdtri/classlens/internal/models"
)

type ResultRepository struct {
	db *DB
}

func NewResultRepository(db *DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// SaveResult persists one aggregate row for a video. Behavior and emotion
// are never both populated; the unused one carries models.NotApplicable.
func (r *ResultRepository) SaveResult(ctx context.Context, videoID string, studentID int64, behavior, emotion string, count float64) error {
	query := r.db.rebind(`
		INSERT INTO analysis_results (id, video_id, student_id, behavior, emotion, duration, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.conn.ExecContext(ctx, query,
		uuid.New().String(), videoID, studentID, behavior, emotion, count, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save analysis result: %w", err)
	}
	return nil
}

func (r *ResultRepository) GetByVideoID(ctx context.Context, videoID string) ([]models.AnalysisResult, error) {
	query := r.db.rebind(`
		SELECT id, video_id, student_id, behavior, emotion, duration, created_at
		FROM analysis_results
		WHERE video_id = ?
		ORDER BY student_id, behavior, emotion`)

	rows, err := r.db.conn.QueryContext(ctx, query, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis results: %w", err)
	}
	defer rows.Close()

	var results []models.AnalysisResult
	for rows.Next() {
		var res models.AnalysisResult
		if err := rows.Scan(&res.ID, &res.VideoID, &res.StudentID, &res.Behavior, &res.Emotion, &res.Duration, &res.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis result: %w", err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
