package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/vdtri/classlens/internal/models"
)

// JobStore tracks pipeline jobs for the life of the process. Jobs are not
// durable; persisted analysis rows are the output that survives restarts.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.PipelineJob
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*models.PipelineJob)}
}

func (s *JobStore) Put(job *models.PipelineJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

// Get returns a copy so callers never observe concurrent status updates
// mid-read.
func (s *JobStore) Get(id string) (models.PipelineJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return models.PipelineJob{}, false
	}
	return *job, true
}

// GetByVideoID returns the most recently created job for a video.
func (s *JobStore) GetByVideoID(videoID string) (models.PipelineJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.PipelineJob
	for _, job := range s.jobs {
		if job.VideoID != videoID {
			continue
		}
		if latest == nil || job.CreatedAt.After(latest.CreatedAt) {
			latest = job
		}
	}
	if latest == nil {
		return models.PipelineJob{}, false
	}
	return *latest, true
}

func (s *JobStore) setRunning(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		job.Status = models.JobRunning
		job.StartedAt = time.Now()
	}
}

func (s *JobStore) setCompleted(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok && !job.Status.Terminal() {
		job.Status = models.JobCompleted
		job.FinishedAt = time.Now()
	}
}

func (s *JobStore) setFailed(id string, reason error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok && !job.Status.Terminal() {
		job.Status = models.JobFailed
		job.Error = fmt.Sprintf("%v", reason)
		job.FinishedAt = time.Now()
	}
}
