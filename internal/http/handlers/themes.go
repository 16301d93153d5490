package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ListThemes returns the available theme names.
func (a *App) ListThemes(w http.ResponseWriter, r *http.Request) {
	names := a.Catalog.List()
	a.json(w, http.StatusOK, map[string]any{"themes": names, "count": len(names)})
}

// ThemeDetails returns one theme descriptor.
func (a *App) ThemeDetails(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	theme, err := a.Catalog.Get(name)
	if err != nil {
		a.error(w, http.StatusNotFound, "NotFound", "theme '"+name+"' not found")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"theme": theme})
}
