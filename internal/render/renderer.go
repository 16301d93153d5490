package render

import (
	"context"

	"mapposter/internal/domain"
)

// Renderer is the contract to the external rendering engine: given a
// validated request it produces an artifact file on disk and returns its
// path. Failures map onto the domain error taxonomy (ErrGeocodeFailed,
// ErrThemeNotFound, ErrRenderFailed, ValidationError). Renderers perform no
// retries; every failure is terminal for the job.
type Renderer interface {
	Render(ctx context.Context, jobID string, req domain.PosterRequest) (string, error)
}
