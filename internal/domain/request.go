package domain

import (
	"fmt"
	"strings"
)

// Poster formats accepted by the rendering engine.
const (
	FormatPNG = "png"
	FormatSVG = "svg"
	FormatPDF = "pdf"
)

// Distance bounds in meters for the rendered map radius.
const (
	MinDistance = 1000
	MaxDistance = 50000

	DefaultTheme    = "feature_based"
	DefaultDistance = 29000
	DefaultFormat   = FormatPNG
)

// PosterRequest holds the validated creation parameters for one poster.
// It is persisted with the job and never mutated after creation.
type PosterRequest struct {
	City         string   `json:"city"`
	Country      string   `json:"country"`
	Lat          *float64 `json:"lat,omitempty"`
	Lon          *float64 `json:"lon,omitempty"`
	Theme        string   `json:"theme"`
	Distance     int      `json:"distance"`
	Format       string   `json:"format"`
	CountryLabel string   `json:"country_label,omitempty"`
}

// ApplyDefaults fills unset optional fields with their documented defaults.
func (r *PosterRequest) ApplyDefaults() {
	if r.Theme == "" {
		r.Theme = DefaultTheme
	}
	if r.Distance == 0 {
		r.Distance = DefaultDistance
	}
	if r.Format == "" {
		r.Format = DefaultFormat
	}
}

// Validate checks required fields and numeric ranges. Coordinates must be
// supplied together or not at all.
func (r *PosterRequest) Validate() error {
	if strings.TrimSpace(r.City) == "" {
		return &ValidationError{Field: "city", Reason: "required"}
	}
	if strings.TrimSpace(r.Country) == "" {
		return &ValidationError{Field: "country", Reason: "required"}
	}
	if (r.Lat == nil) != (r.Lon == nil) {
		return &ValidationError{Field: "lat/lon", Reason: "latitude and longitude must be provided together"}
	}
	if r.Lat != nil && (*r.Lat < -90 || *r.Lat > 90) {
		return &ValidationError{Field: "lat", Reason: "must be within [-90, 90]"}
	}
	if r.Lon != nil && (*r.Lon < -180 || *r.Lon > 180) {
		return &ValidationError{Field: "lon", Reason: "must be within [-180, 180]"}
	}
	if r.Distance < MinDistance || r.Distance > MaxDistance {
		return &ValidationError{
			Field:  "distance",
			Reason: fmt.Sprintf("must be within [%d, %d] meters", MinDistance, MaxDistance),
		}
	}
	switch r.Format {
	case FormatPNG, FormatSVG, FormatPDF:
	default:
		return &ValidationError{Field: "format", Reason: "must be one of png, svg, pdf"}
	}
	return nil
}
