package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"mapposter/internal/http/handlers"
	"mapposter/internal/middleware"
)

// NewRouter wires the API surface.
func NewRouter(app *handlers.App, logger zerolog.Logger, corsOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
		middleware.CORS(corsOrigins),
	)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", app.Health)

		r.Post("/posters", app.CreatePoster)

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", app.ListJobs)
			r.Get("/{job_id}", app.JobStatus)
			r.Get("/{job_id}/download", app.DownloadPoster)
		})

		r.Route("/themes", func(r chi.Router) {
			r.Get("/", app.ListThemes)
			r.Get("/{name}", app.ThemeDetails)
		})

		r.Post("/geocode", app.Geocode)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
