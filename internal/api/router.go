package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ping", PingHandler)

	r.Route("/api", func(r chi.Router) {
		r.Post("/videos", app.UploadVideoHandler)
		r.Get("/videos", app.ListVideosHandler)
		r.Get("/videos/{id}/download", app.DownloadVideoHandler)
		r.Get("/videos/{id}/status", app.VideoStatusHandler)
		r.Get("/videos/{id}/results", app.VideoResultsHandler)

		r.Post("/jobs/{id}/cancel", app.CancelJobHandler)

		r.Post("/students", app.EnrollStudentHandler)
		r.Get("/students", app.ListStudentsHandler)
	})

	return r
}
