package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

type geocodeRequest struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

type geocodeResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Address   string  `json:"address,omitempty"`
}

// Geocode resolves a city/country pair to coordinates, useful before
// creating a poster with explicit coordinates.
func (a *App) Geocode(w http.ResponseWriter, r *http.Request) {
	var req geocodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "ValidationError", "invalid JSON payload")
		return
	}
	req.City = strings.TrimSpace(req.City)
	req.Country = strings.TrimSpace(req.Country)
	if req.City == "" || req.Country == "" {
		a.error(w, http.StatusBadRequest, "ValidationError", "city and country are required")
		return
	}

	coords, err := a.Geocoder.Lookup(r.Context(), req.City, req.Country)
	if err != nil {
		a.Logger.Warn().Err(err).Str("city", req.City).Msg("geocode lookup failed")
		a.error(w, http.StatusBadGateway, "GeocodeError", err.Error())
		return
	}

	a.json(w, http.StatusOK, geocodeResponse{
		Latitude:  coords.Lat,
		Longitude: coords.Lon,
		City:      req.City,
		Country:   req.Country,
		Address:   coords.Address,
	})
}
