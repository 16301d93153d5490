package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"mapposter/internal/domain"
)

type jobStatusResponse struct {
	JobID       string     `json:"job_id"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	DownloadURL string     `json:"download_url,omitempty"`
	PosterPath  string     `json:"poster_path,omitempty"`
}

func jobToStatus(job *domain.Job) jobStatusResponse {
	resp := jobStatusResponse{
		JobID:       job.ID,
		Status:      string(job.Status),
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
		Error:       job.Error,
		PosterPath:  job.PosterPath,
	}
	if job.Status == domain.JobStatusCompleted && job.PosterPath != "" {
		resp.DownloadURL = "/api/jobs/" + job.ID + "/download"
	}
	return resp
}

// JobStatus reports the current state of one job. Polling is read-only and
// safe to repeat indefinitely.
func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := a.Resolver.Status(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "NotFound", "job "+jobID+" not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("status lookup failed")
		a.error(w, http.StatusInternalServerError, "InternalServerError", "failed to load job")
		return
	}
	a.json(w, http.StatusOK, jobToStatus(job))
}

// ListJobs returns recent jobs, newest first, for operational inspection.
func (a *App) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)

	jobs, err := a.Store.List(r.Context(), limit, offset)
	if err != nil {
		a.Logger.Error().Err(err).Msg("list jobs failed")
		a.error(w, http.StatusInternalServerError, "InternalServerError", "failed to list jobs")
		return
	}

	out := make([]jobStatusResponse, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, jobToStatus(job))
	}
	a.json(w, http.StatusOK, map[string]any{"jobs": out, "count": len(out)})
}

// DownloadPoster serves the artifact of a completed job as an attachment.
func (a *App) DownloadPoster(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	dl, err := a.Resolver.ResolveDownload(r.Context(), jobID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			a.error(w, http.StatusNotFound, "NotFound", "job "+jobID+" not found")
		case errors.Is(err, domain.ErrNotReady):
			a.error(w, http.StatusConflict, "NotReady", err.Error())
		case errors.Is(err, domain.ErrArtifactMissing):
			a.Logger.Error().Str("job_id", jobID).Msg("completed job lost its artifact")
			a.error(w, http.StatusInternalServerError, "ArtifactMissing", "poster file no longer exists")
		default:
			a.Logger.Error().Err(err).Str("job_id", jobID).Msg("download resolution failed")
			a.error(w, http.StatusInternalServerError, "InternalServerError", "failed to resolve download")
		}
		return
	}

	w.Header().Set("Content-Type", dl.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+dl.Filename+`"`)
	http.ServeFile(w, r, dl.Path)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
