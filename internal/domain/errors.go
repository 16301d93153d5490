package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateID       = errors.New("duplicate job id")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotReady          = errors.New("job not completed")
	ErrArtifactMissing   = errors.New("artifact file missing")
	ErrThemeNotFound     = errors.New("theme not found")
	ErrGeocodeFailed     = errors.New("geocoding failed")
	ErrRenderFailed      = errors.New("render failed")
	ErrQueueFull         = errors.New("dispatch queue full")
)

// ValidationError reports a request parameter outside its accepted range.
// It is surfaced synchronously as a 400; no job is ever created for one.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}
