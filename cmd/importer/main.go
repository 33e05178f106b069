package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"dropimator/internal/app"
	"dropimator/internal/config"
	"dropimator/internal/feed"
	"dropimator/internal/ingest"
	"dropimator/internal/model"
	"dropimator/internal/observability"
)

// go run ./cmd/importer
// go run ./cmd/importer -csv=./products.csv -skip-marketing
func main() {
	csvPath := flag.String("csv", "", "feed file to import (defaults to PRODUCT_CSV_PATH, then the newest *.csv in FEED_DIR)")
	skipMarketing := flag.Bool("skip-marketing", false, "only upsert and classify, do not generate marketing content")
	flag.Parse()

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

	explicit := *csvPath
	if explicit == "" {
		explicit = cfg.Feed.Path
	}
	// Resolve the feed before any record is touched.
	path, err := feed.FindCSV(explicit, cfg.Feed.Dir)
	if err != nil {
		log.Fatal().Err(err).Msg("no feed to import")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	observability.Start(cfg.MetricsPort)

	a, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start")
	}
	defer a.Close()

	err = a.Run(ctx, model.RunKindImport, path, cfg.LockTTL, func(ctx context.Context) (ingest.Stats, error) {
		stats, err := a.Driver.ImportFile(ctx, path)
		if err != nil || *skipMarketing {
			return stats, err
		}
		sweep, err := a.Driver.EnrichAll(ctx)
		stats.Enriched = sweep.Enriched
		stats.EnrichFailed = sweep.EnrichFailed
		return stats, err
	})
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("import failed")
		stop()
		a.Close()
		os.Exit(1)
	}

	log.Info().Str("path", path).Msg("products imported")
}
