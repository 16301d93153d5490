package infra

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment
// variables. It is consumed once at process start and never re-read.
type Config struct {
	AppEnv      string
	Host        string
	Port        string
	DBDir       string
	PostersDir  string
	ThemesDir   string
	FontsDir    string
	CORSOrigins []string

	RendererBin  string
	NominatimURL string

	WorkerCount   int
	QueueSize     int
	RenderTimeout time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	RetentionDays int
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Host:             getEnv("HOST", "0.0.0.0"),
		Port:             getEnv("PORT", "8000"),
		DBDir:            getEnv("DB_DIR", "data"),
		PostersDir:       getEnv("POSTERS_DIR", "posters"),
		ThemesDir:        getEnv("THEMES_DIR", "themes"),
		FontsDir:         getEnv("FONTS_DIR", "fonts"),
		CORSOrigins:      getEnvCSV("CORS_ORIGINS", []string{"*"}),
		RendererBin:      getEnv("RENDERER_BIN", "create_map_poster"),
		NominatimURL:     getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		WorkerCount:      getEnvInt("WORKER_COUNT", 2),
		QueueSize:        getEnvInt("QUEUE_SIZE", 64),
		RenderTimeout:    time.Second * time.Duration(getEnvInt("RENDER_TIMEOUT_SECONDS", 300)),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RetentionDays:    getEnvInt("RETENTION_DAYS", 7),
	}
	return cfg, nil
}

// Addr returns the bind address for the HTTP server.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvCSV(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
