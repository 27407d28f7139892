package models

import (
	"time"

	"github.com/google/uuid"
)

type Video struct {
	ID          string
	Filename    string
	ContentType string
	Size        int64
	UploadTime  time.Time
}

func NewVideo(filename, contentType string, size int64) *Video {
	return &Video{
		ID:          uuid.New().String(),
		Filename:    filename,
		ContentType: contentType,
		Size:        size,
		UploadTime:  time.Now(),
	}
}
