package themes

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"mapposter/internal/domain"
)

// Theme describes one poster color scheme loaded from the themes directory.
type Theme struct {
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name"`
	Description string            `json:"description,omitempty"`
	Colors      map[string]string `json:"colors"`
}

// Catalog serves theme descriptors from a directory of JSON files, one file
// per theme, keyed by file name without extension. The directory is read
// once; themes are static configuration.
type Catalog struct {
	mu     sync.RWMutex
	themes map[string]Theme
}

// Load reads every *.json file under dir. A missing directory yields an
// empty catalog rather than an error so the service can start without
// themes installed (health reports the count).
func Load(dir string) (*Catalog, error) {
	c := &Catalog{themes: make(map[string]Theme)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("themes: read dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("themes: read %s: %w", entry.Name(), err)
		}
		var theme Theme
		if err := json.Unmarshal(raw, &theme); err != nil {
			return nil, fmt.Errorf("themes: parse %s: %w", entry.Name(), err)
		}
		name := strings.TrimSuffix(entry.Name(), ".json")
		theme.Name = name
		if theme.DisplayName == "" {
			theme.DisplayName = name
		}
		c.themes[name] = theme
	}
	return c, nil
}

// List returns available theme names, sorted.
func (c *Catalog) List() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.themes))
	for name := range c.themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the named theme or domain.ErrThemeNotFound.
func (c *Catalog) Get(name string) (Theme, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	theme, ok := c.themes[name]
	if !ok {
		return Theme{}, fmt.Errorf("%q: %w", name, domain.ErrThemeNotFound)
	}
	return theme, nil
}

// Has reports whether the named theme exists.
func (c *Catalog) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.themes[name]
	return ok
}

// Count returns the number of available themes.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.themes)
}
