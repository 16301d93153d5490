package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"mapposter/internal/artifact"
	"mapposter/internal/domain"
	"mapposter/internal/geocode"
	"mapposter/internal/themes"
)

// Version reported by the health endpoint.
const Version = "1.0.0"

// JobDispatcher admits a creation request into the rendering pipeline.
type JobDispatcher interface {
	Dispatch(ctx context.Context, req domain.PosterRequest) (*domain.Job, error)
}

// App bundles the collaborators the HTTP handlers need. Handlers never
// touch the store directly for writes; creation goes through the
// dispatcher, reads through the resolver.
type App struct {
	Dispatcher JobDispatcher
	Resolver   *artifact.Resolver
	Store      domain.JobStore
	Catalog    *themes.Catalog
	Geocoder   geocode.Geocoder
	FontsDir   string
	Logger     zerolog.Logger
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errType, message string) {
	a.json(w, code, errorResponse{Error: errType, Message: message})
}
