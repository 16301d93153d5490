package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"

	"mapposter/internal/infra"
	"mapposter/internal/storage"
	"mapposter/internal/store"
)

// janitor removes terminal jobs older than the retention window along with
// their poster files. Run it from cron; it exits after one sweep.
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

	cutoff := time.Now().UTC().AddDate(0, 0, -cfg.RetentionDays)
	logger.Info().Time("cutoff", cutoff).Int("retention_days", cfg.RetentionDays).Msg("sweeping expired jobs")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := jobs.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		logger.Fatal().Err(err).Msg("sweep failed")
	}

	artifacts := 0
	for _, job := range removed {
		if job.PosterPath == "" {
			continue
		}
		if err := posters.Remove(job.PosterPath); err != nil {
			logger.Warn().Err(err).Str("job_id", job.ID).Str("path", job.PosterPath).Msg("failed to remove poster file")
			continue
		}
		artifacts++
	}

	logger.Info().Int("jobs_removed", len(removed)).Int("artifacts_removed", artifacts).Msg("sweep complete")
}
