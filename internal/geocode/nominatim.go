package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"mapposter/internal/domain"
)

// Coordinates is one geocoding result.
type Coordinates struct {
	Lat     float64
	Lon     float64
	Address string
}

// Geocoder resolves a city/country pair into coordinates.
type Geocoder interface {
	Lookup(ctx context.Context, city, country string) (Coordinates, error)
}

// Nominatim queries a Nominatim-compatible search endpoint. The public
// instance requires a descriptive User-Agent.
type Nominatim struct {
	baseURL   string
	client    *http.Client
	userAgent string
}

func NewNominatim(baseURL string) *Nominatim {
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org"
	}
	return &Nominatim{
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 15 * time.Second},
		userAgent: "mapposter/1.0",
	}
}

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Lookup returns the best match for "<city>, <country>" or wraps
// domain.ErrGeocodeFailed.
func (n *Nominatim) Lookup(ctx context.Context, city, country string) (Coordinates, error) {
	q := url.Values{}
	q.Set("q", city+", "+country)
	q.Set("format", "json")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return Coordinates{}, fmt.Errorf("geocode: build request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.client.Do(req)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: %v", domain.ErrGeocodeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Coordinates{}, fmt.Errorf("%w: upstream returned %d", domain.ErrGeocodeFailed, resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return Coordinates{}, fmt.Errorf("%w: decode response: %v", domain.ErrGeocodeFailed, err)
	}
	if len(results) == 0 {
		return Coordinates{}, fmt.Errorf("%w: no match for %q, %q", domain.ErrGeocodeFailed, city, country)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: bad latitude %q", domain.ErrGeocodeFailed, results[0].Lat)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: bad longitude %q", domain.ErrGeocodeFailed, results[0].Lon)
	}

	return Coordinates{Lat: lat, Lon: lon, Address: results[0].DisplayName}, nil
}
