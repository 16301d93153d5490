package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"mapposter/internal/domain"
	"mapposter/internal/geocode"
	"mapposter/internal/storage"
	"mapposter/internal/themes"
)

// ExecRenderer drives the map rendering engine through its CLI. It resolves
// coordinates when the request carries none, checks the theme against the
// catalog and hands the engine a job-addressed output path.
type ExecRenderer struct {
	bin      string
	store    *storage.PosterStore
	geocoder geocode.Geocoder
	catalog  *themes.Catalog
	logger   zerolog.Logger
}

func NewExecRenderer(bin string, store *storage.PosterStore, geocoder geocode.Geocoder, catalog *themes.Catalog, logger zerolog.Logger) *ExecRenderer {
	return &ExecRenderer{
		bin:      bin,
		store:    store,
		geocoder: geocoder,
		catalog:  catalog,
		logger:   logger,
	}
}

// Render produces the poster artifact for one job. The caller bounds ctx
// with the render timeout; an exceeded deadline surfaces as ErrRenderFailed.
func (r *ExecRenderer) Render(ctx context.Context, jobID string, req domain.PosterRequest) (string, error) {
	// Requests are validated before a job is created, but the adapter is the
	// last line of defense against a malformed record replayed from the store.
	if err := req.Validate(); err != nil {
		return "", err
	}
	if !r.catalog.Has(req.Theme) {
		return "", fmt.Errorf("%q: %w", req.Theme, domain.ErrThemeNotFound)
	}

	lat, lon := req.Lat, req.Lon
	if lat == nil || lon == nil {
		coords, err := r.geocoder.Lookup(ctx, req.City, req.Country)
		if err != nil {
			return "", err
		}
		lat, lon = &coords.Lat, &coords.Lon
	}

	out := r.store.PathFor(jobID, req.Format)
	args := []string{
		"--city", req.City,
		"--country", req.Country,
		"--lat", strconv.FormatFloat(*lat, 'f', -1, 64),
		"--lon", strconv.FormatFloat(*lon, 'f', -1, 64),
		"--theme", req.Theme,
		"--distance", strconv.Itoa(req.Distance),
		"--format", req.Format,
		"--output", out,
	}
	if req.CountryLabel != "" {
		args = append(args, "--country-label", req.CountryLabel)
	}

	cmd := exec.CommandContext(ctx, r.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	r.logger.Debug().Str("job_id", jobID).Str("output", out).Msg("invoking renderer")
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: render timed out", domain.ErrRenderFailed)
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return "", fmt.Errorf("%w: %s", domain.ErrRenderFailed, detail)
	}

	if !r.store.Exists(out) {
		return "", fmt.Errorf("%w: engine reported success but wrote no file", domain.ErrRenderFailed)
	}
	return out, nil
}
