// Package pipeline runs the video analysis workers: sampled frames go
// through behavior detection, identity matching and emotion classification,
// and the per-student aggregates are persisted when a video completes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vdtri/classlens/internal/ai"
	"github.com/vdtri/classlens/internal/models"
)

// IdentityMatcher is the read path into the embedding index.
type IdentityMatcher interface {
	Match(vec []float32) (studentID int64, similarity float64, ok bool, err error)
}

type Config struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

type Service struct {
	frames  ai.FrameSource
	engine  *ai.Engine
	index   IdentityMatcher
	results ResultStore
	jobs    *JobStore

	queue   chan *models.PipelineJob
	timeout time.Duration
	workers int

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func NewService(frames ai.FrameSource, engine *ai.Engine, index IdentityMatcher, results ResultStore, config Config) *Service {
	if config.Workers <= 0 {
		config.Workers = 2
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 64
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Minute
	}

	return &Service{
		frames:  frames,
		engine:  engine,
		index:   index,
		results: results,
		jobs:    NewJobStore(),
		queue:   make(chan *models.PipelineJob, config.QueueSize),
		timeout: config.Timeout,
		workers: config.Workers,
		cancels: make(map[string]context.CancelFunc),
	}
}

func (s *Service) Jobs() *JobStore {
	return s.jobs
}

// Submit enqueues a job for the saved video and returns immediately. Final
// results are retrieved later through the result repository.
func (s *Service) Submit(videoID, sourcePath string) (*models.PipelineJob, error) {
	job := models.NewPipelineJob(videoID, sourcePath)
	s.jobs.Put(job)

	select {
	case s.queue <- job:
	default:
		s.jobs.setFailed(job.ID, errors.New("pipeline queue is full"))
		return nil, fmt.Errorf("pipeline queue is full")
	}

	log.Printf("[PIPELINE] [%s] Job %s queued for %s", videoID, job.ID, sourcePath)
	snapshot, _ := s.jobs.Get(job.ID)
	return &snapshot, nil
}

// Cancel aborts a running job. The job transitions to Failed; the identity
// index is read-only during pipeline runs, so cancellation cannot corrupt it.
func (s *Service) Cancel(jobID string) error {
	s.mu.Lock()
	cancel, ok := s.cancels[jobID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %s is not running", jobID)
	}
	cancel()
	return nil
}

// Run starts the worker pool and blocks until ctx is cancelled. Each video
// is processed by exactly one worker; videos run concurrently across
// workers.
func (s *Service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < s.workers; i++ {
		worker := i
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case job := <-s.queue:
					s.runJob(ctx, worker, job)
				}
			}
		})
	}
	return g.Wait()
}

func (s *Service) runJob(ctx context.Context, worker int, job *models.PipelineJob) {
	jobCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.mu.Lock()
	s.cancels[job.ID] = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.cancels, job.ID)
		s.mu.Unlock()
	}()

	s.jobs.setRunning(job.ID)
	log.Printf("[PIPELINE] [%s] Worker %d started job %s", job.VideoID, worker, job.ID)

	if err := s.processVideo(jobCtx, job); err != nil {
		s.jobs.setFailed(job.ID, err)
		log.Printf("[PIPELINE] [%s] Job %s FAILED: %v", job.VideoID, job.ID, err)
		return
	}

	s.jobs.setCompleted(job.ID)
	log.Printf("[PIPELINE] [%s] Job %s completed", job.VideoID, job.ID)
}

// processVideo analyzes one video end to end. Per-frame and per-region
// faults are logged and skipped; only pipeline-level faults (unreadable
// video, behavior model missing, persistence failure, cancellation) return
// an error, which discards all in-progress aggregates.
func (s *Service) processVideo(ctx context.Context, job *models.PipelineJob) error {
	detector, err := s.engine.BehaviorDetector()
	if err != nil {
		return err
	}

	analyzer, faceErr := s.engine.FaceAnalyzer()
	if faceErr != nil {
		log.Printf("[PIPELINE] [%s] Identity matching disabled: %v", job.VideoID, faceErr)
	}
	classifier, emotionErr := s.engine.EmotionClassifier()
	if emotionErr != nil {
		log.Printf("[PIPELINE] [%s] Emotion classification disabled: %v", job.VideoID, emotionErr)
	}

	agg := NewAggregator()

	err = s.frames.SampleFrames(ctx, job.SourcePath, func(frame ai.Frame) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.processFrame(ctx, job.VideoID, frame, detector, analyzer, classifier, agg)
		return nil
	})
	if err != nil {
		return fmt.Errorf("video processing aborted: %w", err)
	}

	if err := agg.Flush(ctx, s.results, job.VideoID); err != nil {
		return err
	}
	return nil
}

func (s *Service) processFrame(ctx context.Context, videoID string, frame ai.Frame, detector ai.BehaviorDetector, analyzer ai.FaceAnalyzer, classifier ai.EmotionClassifier, agg *Aggregator) {
	detections, err := detector.DetectBehaviors(ctx, frame.Data)
	if err != nil {
		log.Printf("[PIPELINE] [%s] Behavior detection failed on frame %d: %v", videoID, frame.Index, err)
		return
	}

	for _, detection := range detections {
		s.processRegion(ctx, videoID, frame, detection, analyzer, classifier, agg)
	}
}

// processRegion resolves one detected region to a student and records its
// behavior and emotion. Events whose identity cannot be resolved are
// discarded, never attributed to a placeholder student.
func (s *Service) processRegion(ctx context.Context, videoID string, frame ai.Frame, detection ai.BehaviorDetection, analyzer ai.FaceAnalyzer, classifier ai.EmotionClassifier, agg *Aggregator) {
	if analyzer == nil {
		return
	}

	crop, ok, err := ai.CropRegion(frame.Data, detection.Box)
	if err != nil {
		log.Printf("[PIPELINE] [%s] Failed to crop region on frame %d: %v", videoID, frame.Index, err)
		return
	}
	if !ok {
		return
	}

	faces, err := analyzer.DetectFaces(ctx, crop)
	if err != nil {
		log.Printf("[PIPELINE] [%s] Face detection failed on frame %d: %v", videoID, frame.Index, err)
		return
	}

	face, found := ai.RepresentativeFace(faces)
	if !found {
		return
	}

	var studentID int64
	resolved := false
	if len(face.Embedding) > 0 {
		id, sim, ok, err := s.index.Match(face.Embedding)
		if err != nil {
			log.Printf("[PIPELINE] [%s] Identity search failed on frame %d: %v", videoID, frame.Index, err)
		} else if ok {
			studentID = id
			resolved = true
		} else {
			log.Printf("[PIPELINE] [%s] Unidentified face on frame %d (similarity %.2f)", videoID, frame.Index, sim)
		}
	}

	// Emotion is classified whenever a face crop exists, independent of
	// identity resolution; it only reaches the aggregate for resolved
	// students.
	emotion := ""
	if classifier != nil {
		faceCrop, ok, err := ai.CropRegion(crop, face.Box)
		if err != nil {
			log.Printf("[PIPELINE] [%s] Failed to crop face on frame %d: %v", videoID, frame.Index, err)
		} else if ok {
			label, err := classifier.ClassifyEmotion(ctx, faceCrop)
			if err != nil {
				log.Printf("[PIPELINE] [%s] Emotion classification failed on frame %d: %v", videoID, frame.Index, err)
			} else {
				emotion = label
			}
		}
	}

	if !resolved {
		return
	}

	agg.RecordBehavior(studentID, detection.Label)
	if emotion != "" {
		agg.RecordEmotion(studentID, emotion)
	}
}

// ProcessVideoSync runs one video through the pipeline on the calling
// goroutine, bypassing the queue. Used by the analyze-video tool.
func (s *Service) ProcessVideoSync(ctx context.Context, videoID, sourcePath string) (*models.PipelineJob, error) {
	job := models.NewPipelineJob(videoID, sourcePath)
	s.jobs.Put(job)
	s.runJob(ctx, 0, job)
	snapshot, _ := s.jobs.Get(job.ID)
	if snapshot.Status == models.JobFailed {
		return &snapshot, fmt.Errorf("pipeline failed: %s", snapshot.Error)
	}
	return &snapshot, nil
}
