package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vdtri/classlens/internal/models"
)

type VideoRepository struct {
	db *DB
}

func NewVideoRepository(db *DB) *VideoRepository {
	return &VideoRepository{db: db}
}

func (r *VideoRepository) InsertVideo(ctx context.Context, video *models.Video) error {
	query := r.db.rebind(`
		INSERT INTO videos (id, filename, content_type, size, upload_time)
		VALUES (?, ?, ?, ?, ?)`)

	_, err := r.db.conn.ExecContext(ctx, query,
		video.ID, video.Filename, video.ContentType, video.Size, video.UploadTime)
	if err != nil {
		return fmt.Errorf("failed to insert video: %w", err)
	}
	return nil
}

func (r *VideoRepository) GetVideoByID(ctx context.Context, id string) (*models.Video, error) {
	query := r.db.rebind(`
		SELECT id, filename, content_type, size, upload_time
		FROM videos WHERE id = ?`)

	var video models.Video
	err := r.db.conn.QueryRowContext(ctx, query, id).Scan(
		&video.ID, &video.Filename, &video.ContentType, &video.Size, &video.UploadTime)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("video not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	return &video, nil
}

func (r *VideoRepository) ListVideos(ctx context.Context) ([]models.Video, error) {
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT id, filename, content_type, size, upload_time
		FROM videos ORDER BY upload_time DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	var videos []models.Video
	for rows.Next() {
		var video models.Video
		if err := rows.Scan(&video.ID, &video.Filename, &video.ContentType, &video.Size, &video.UploadTime); err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, video)
	}
	return videos, rows.Err()
}
