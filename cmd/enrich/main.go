package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"dropimator/internal/app"
	"dropimator/internal/config"
	"dropimator/internal/ingest"
	"dropimator/internal/model"
	"dropimator/internal/observability"
)

// Generates marketing content for every stored product that still lacks it.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	app.SetupLogger(cfg.Env)

	if err := cfg.RequireDatabase(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if err := cfg.RequireOpenAI(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	observability.Start(cfg.MetricsPort)

	a, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start")
	}
	defer a.Close()

	err = a.Run(ctx, model.RunKindEnrich, "products", cfg.LockTTL, func(ctx context.Context) (ingest.Stats, error) {
		return a.Driver.EnrichAll(ctx)
	})
	if err != nil {
		log.Error().Err(err).Msg("enrichment failed")
		stop()
		a.Close()
		os.Exit(1)
	}

	counts, err := a.Products.CountByCategory(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("could not summarize categories")
		return
	}
	for category, n := range counts {
		if category == "" {
			category = "unclassified"
		}
		log.Info().Str("category", category).Int("products", n).Msg("catalog summary")
	}
}
