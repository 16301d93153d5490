package handlers

import (
	"net/http"
	"os"
)

type healthResponse struct {
	Status          string `json:"status"`
	Version         string `json:"version"`
	ThemesAvailable int    `json:"themes_available"`
	FontsLoaded     bool   `json:"fonts_loaded"`
}

// Health reports liveness plus a couple of readiness facts about the
// rendering assets.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, healthResponse{
		Status:          "healthy",
		Version:         Version,
		ThemesAvailable: a.Catalog.Count(),
		FontsLoaded:     a.fontsLoaded(),
	})
}

func (a *App) fontsLoaded() bool {
	if a.FontsDir == "" {
		return false
	}
	entries, err := os.ReadDir(a.FontsDir)
	return err == nil && len(entries) > 0
}
