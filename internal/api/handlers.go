package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vdtri/classlens/internal/ai"
	"github.com/vdtri/classlens/internal/database"
	"github.com/vdtri/classlens/internal/enrollment"
	"github.com/vdtri/classlens/internal/models"
	"github.com/vdtri/classlens/internal/pipeline"
	"github.com/vdtri/classlens/internal/storage"
)

type App struct {
	Storage       storage.Storage
	VideoRepo     *database.VideoRepository
	StudentRepo   *database.StudentRepository
	ResultRepo    *database.ResultRepository
	Enrollment    *enrollment.Service
	Pipeline      *pipeline.Service
	MaxUploadSize int64
}

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

// UploadVideoHandler accepts a classroom video, stores it and enqueues an
// analysis job. It returns immediately; results are fetched later through
// the results endpoint.
func (app *App) UploadVideoHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, app.MaxUploadSize)

	if err := r.ParseMultipartForm(app.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "File too large")
		return
	}

	file, header, err := r.FormFile("video")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to get video file")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "video/") && contentType != "application/octet-stream" {
		ext := strings.ToLower(filepath.Ext(header.Filename))
		if ext != ".mp4" {
			respondError(w, http.StatusBadRequest, "Only MP4 video files are allowed")
			return
		}
		contentType = "video/mp4"
	}

	filename, err := app.Storage.SaveFile(file, storage.FileInfo{
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
	})
	if err != nil {
		log.Printf("[API] Failed to save upload: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to save file")
		return
	}

	video := models.NewVideo(filename, contentType, header.Size)
	if err := app.VideoRepo.InsertVideo(r.Context(), video); err != nil {
		app.Storage.DeleteFile(filename)
		log.Printf("[API] Failed to insert video: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to save video information")
		return
	}

	sourcePath, err := app.Storage.FilePath(filename)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to resolve video path")
		return
	}

	job, err := app.Pipeline.Submit(video.ID, sourcePath)
	if err != nil {
		log.Printf("[API] Failed to enqueue job for video %s: %v", video.ID, err)
		respondError(w, http.StatusServiceUnavailable, "Analysis queue is full, try again later")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"video_id": video.ID,
		"job_id":   job.ID,
		"status":   job.Status,
	})
}

func (app *App) ListVideosHandler(w http.ResponseWriter, r *http.Request) {
	videos, err := app.VideoRepo.ListVideos(r.Context())
	if err != nil {
		log.Printf("[API] Failed to list videos: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to list videos")
		return
	}
	respondJSON(w, http.StatusOK, videos)
}

// DownloadVideoHandler streams a stored video back to the client.
// ServeContent handles Range requests, so browsers can seek.
func (app *App) DownloadVideoHandler(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "id")

	video, err := app.VideoRepo.GetVideoByID(r.Context(), videoID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Video not found")
		return
	}

	file, err := app.Storage.OpenFile(video.Filename)
	if err != nil {
		log.Printf("[API] Failed to open video %s: %v", videoID, err)
		respondError(w, http.StatusInternalServerError, "Failed to open video file")
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", video.ContentType)
	http.ServeContent(w, r, video.Filename, video.UploadTime, file)
}

func (app *App) VideoStatusHandler(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "id")

	job, ok := app.Pipeline.Jobs().GetByVideoID(videoID)
	if !ok {
		respondError(w, http.StatusNotFound, "No analysis job for this video")
		return
	}

	resp := map[string]interface{}{
		"job_id":   job.ID,
		"video_id": job.VideoID,
		"status":   job.Status,
	}
	if job.Error != "" {
		resp["error"] = job.Error
	}
	respondJSON(w, http.StatusOK, resp)
}

func (app *App) VideoResultsHandler(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "id")

	results, err := app.ResultRepo.GetByVideoID(r.Context(), videoID)
	if err != nil {
		log.Printf("[API] Failed to get results for video %s: %v", videoID, err)
		respondError(w, http.StatusInternalServerError, "Failed to load results")
		return
	}
	if results == nil {
		results = []models.AnalysisResult{}
	}
	respondJSON(w, http.StatusOK, results)
}

func (app *App) CancelJobHandler(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	if err := app.Pipeline.Cancel(jobID); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
}

// EnrollStudentHandler registers a student portrait. Enrollment failures
// are typed so clients can tell "no face" from "model unavailable" from
// "ambiguous image".
func (app *App) EnrollStudentHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(app.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid form")
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		respondError(w, http.StatusBadRequest, "Name is required")
		return
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to get photo")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read photo")
		return
	}

	student, message, err := app.Enrollment.Enroll(r.Context(), name, image)
	if err != nil {
		status := enrollmentErrorStatus(err)
		log.Printf("[API] Enrollment failed for %q: %v", name, err)
		respondError(w, status, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"student": student,
		"message": message,
	})
}

func (app *App) ListStudentsHandler(w http.ResponseWriter, r *http.Request) {
	students, err := app.StudentRepo.List(r.Context())
	if err != nil {
		log.Printf("[API] Failed to list students: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to list students")
		return
	}
	if students == nil {
		students = []models.Student{}
	}
	respondJSON(w, http.StatusOK, students)
}

func enrollmentErrorStatus(err error) int {
	switch {
	case errors.Is(err, ai.ErrModelUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, enrollment.ErrNoFaceFound),
		errors.Is(err, enrollment.ErrMultipleFacesFound),
		errors.Is(err, enrollment.ErrEmbeddingUnavailable):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[API] Failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
