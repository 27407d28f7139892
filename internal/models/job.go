package models

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether a status is final. Completed and Failed jobs are
// never retried or resumed.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// PipelineJob tracks one video analysis run from submission to completion.
type PipelineJob struct {
	ID         string
	VideoID    string
	SourcePath string
	Status     JobStatus
	Error      string
	CreatedAt  time.Time
	StartedAt  time.Time
	FinishedAt time.Time
}

func NewPipelineJob(videoID, sourcePath string) *PipelineJob {
	return &PipelineJob{
		ID:         uuid.New().String(),
		VideoID:    videoID,
		SourcePath: sourcePath,
		Status:     JobPending,
		CreatedAt:  time.Now(),
	}
}
