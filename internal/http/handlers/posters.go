package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"mapposter/internal/domain"
)

type createPosterRequest struct {
	City         string   `json:"city"`
	Country      string   `json:"country"`
	Lat          *float64 `json:"lat"`
	Lon          *float64 `json:"lon"`
	Theme        string   `json:"theme"`
	Distance     *int     `json:"distance"`
	Format       string   `json:"format"`
	CountryLabel string   `json:"country_label"`
}

type createPosterResponse struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
	StatusURL string `json:"status_url"`
}

// CreatePoster accepts a poster request, creates a pending job and schedules
// the render. The response never waits on rendering; outcomes are
// discoverable only by polling the job status.
func (a *App) CreatePoster(w http.ResponseWriter, r *http.Request) {
	var wire createPosterRequest
	if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
		a.error(w, http.StatusBadRequest, "ValidationError", "invalid JSON payload")
		return
	}

	req := domain.PosterRequest{
		City:         strings.TrimSpace(wire.City),
		Country:      strings.TrimSpace(wire.Country),
		Lat:          wire.Lat,
		Lon:          wire.Lon,
		Theme:        wire.Theme,
		Format:       wire.Format,
		CountryLabel: wire.CountryLabel,
	}
	if wire.Distance != nil {
		req.Distance = *wire.Distance
	}
	req.ApplyDefaults()

	if err := req.Validate(); err != nil {
		a.error(w, http.StatusBadRequest, "ValidationError", err.Error())
		return
	}
	if !a.Catalog.Has(req.Theme) {
		a.error(w, http.StatusBadRequest, "ValidationError",
			"theme '"+req.Theme+"' not found; available: "+strings.Join(a.Catalog.List(), ", "))
		return
	}

	job, err := a.Dispatcher.Dispatch(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrQueueFull) {
			a.error(w, http.StatusServiceUnavailable, "QueueFull", "too many jobs in flight, retry later")
			return
		}
		a.Logger.Error().Err(err).Msg("failed to dispatch job")
		a.error(w, http.StatusInternalServerError, "InternalServerError", "failed to create job")
		return
	}

	a.json(w, http.StatusAccepted, createPosterResponse{
		JobID:     job.ID,
		Status:    string(job.Status),
		Message:   "Poster generation started",
		StatusURL: "/api/jobs/" + job.ID,
	})
}
