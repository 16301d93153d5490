package artifact

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"mapposter/internal/domain"
	"mapposter/internal/storage"
)

// Download describes a resolved artifact ready to be served.
type Download struct {
	Path        string
	ContentType string
	Filename    string
}

// Resolver translates completed jobs into downloadable artifacts and job
// records into their external status shape. It only reads the store.
type Resolver struct {
	store   domain.JobStore
	posters *storage.PosterStore
}

func NewResolver(store domain.JobStore, posters *storage.PosterStore) *Resolver {
	return &Resolver{store: store, posters: posters}
}

// Status returns the current job record or domain.ErrNotFound.
func (r *Resolver) Status(ctx context.Context, jobID string) (*domain.Job, error) {
	return r.store.Get(ctx, jobID)
}

// ResolveDownload maps a completed job onto its artifact. It verifies the
// file is still on disk: a completed record with a vanished file is
// operational data loss (ErrArtifactMissing), not a not-ready condition.
func (r *Resolver) ResolveDownload(ctx context.Context, jobID string) (Download, error) {
	job, err := r.store.Get(ctx, jobID)
	if err != nil {
		return Download{}, err
	}
	if job.Status != domain.JobStatusCompleted {
		return Download{}, fmt.Errorf("status is %s: %w", job.Status, domain.ErrNotReady)
	}
	if job.PosterPath == "" || !r.posters.Exists(job.PosterPath) {
		return Download{}, fmt.Errorf("job %s: %w", jobID, domain.ErrArtifactMissing)
	}

	completedAt := job.CreatedAt
	if job.CompletedAt != nil {
		completedAt = *job.CompletedAt
	}
	return Download{
		Path:        job.PosterPath,
		ContentType: ContentTypeFor(job.Request.Format),
		Filename:    SuggestFilename(job.Request.City, job.Request.Theme, job.Request.Format, completedAt),
	}, nil
}

// ContentTypeFor maps a poster format onto its MIME type.
func ContentTypeFor(format string) string {
	switch format {
	case domain.FormatPNG:
		return "image/png"
	case domain.FormatSVG:
		return "image/svg+xml"
	case domain.FormatPDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

// SuggestFilename derives an attachment name from city, theme and the
// generation timestamp, e.g. "paris_noir_20260901-142502.png".
func SuggestFilename(city, theme, format string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%s.%s", slugify(city), slugify(theme), at.UTC().Format("20060102-150405"), format)
}

var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// slugify lowercases, strips diacritics ("München" -> "munchen") and keeps
// only alphanumerics, collapsing the rest into single underscores.
func slugify(s string) string {
	if flat, _, err := transform.String(deaccent, s); err == nil {
		s = flat
	}
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "poster"
	}
	return out
}
