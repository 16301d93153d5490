package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"mapposter/internal/artifact"
	"mapposter/internal/dispatch"
	"mapposter/internal/geocode"
	"mapposter/internal/http/handlers"
	"mapposter/internal/http/httpapi"
	"mapposter/internal/infra"
	"mapposter/internal/lifecycle"
	"mapposter/internal/render"
	"mapposter/internal/storage"
	"mapposter/internal/store"
	"mapposter/internal/themes"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	jobs, err := store.Open(cfg.DBDir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.DBDir).Msg("failed to open job store")
	}
	defer jobs.Close()

	posters, err := storage.NewPosterStore(cfg.PostersDir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.PostersDir).Msg("failed to configure poster storage")
	}

	catalog, err := themes.Load(cfg.ThemesDir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.ThemesDir).Msg("failed to load themes")
	}
	logger.Info().Int("themes", catalog.Count()).Msg("themes loaded")

	geocoder := geocode.NewNominatim(cfg.NominatimURL)
	renderer := render.NewExecRenderer(cfg.RendererBin, posters, geocoder, catalog, logger)

	manager := lifecycle.NewManager(jobs, logger)
	dispatcher := dispatch.New(manager, renderer, cfg.WorkerCount, cfg.QueueSize, cfg.RenderTimeout, logger)

	app := &handlers.App{
		Dispatcher: dispatcher,
		Resolver:   artifact.NewResolver(jobs, posters),
		Store:      jobs,
		Catalog:    catalog,
		Geocoder:   geocoder,
		FontsDir:   cfg.FontsDir,
		Logger:     logger,
	}

	router := httpapi.NewRouter(app, logger, cfg.CORSOrigins)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("addr", cfg.Addr()).Msg("API listening")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}

	// Let queued renders finish so no job is left stuck in processing.
	dispatcher.Stop()
	logger.Info().Msg("server stopped")
}
