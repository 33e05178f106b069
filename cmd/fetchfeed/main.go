package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"dropimator/internal/app"
	"dropimator/internal/config"
	"dropimator/internal/feed"
)

// go run ./cmd/fetchfeed -dir=./feeds
// Prints the path of the downloaded file.
func main() {
	dir := flag.String("dir", "", "directory to store the feed in (defaults to FEED_DIR)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	app.SetupLogger(cfg.Env)

	if err := cfg.RequireFeedSource(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	target := *dir
	if target == "" {
		target = cfg.Feed.Dir
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", target).Msg("cannot create feed directory")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	f := feed.NewFetcher(cfg.Feed.URL, cfg.Feed.Email, cfg.Feed.Password)
	path, err := f.Download(ctx, target)
	if err != nil {
		log.Error().Err(err).Str("url", cfg.Feed.URL).Msg("feed download failed")
		stop()
		os.Exit(1)
	}
	fmt.Println(path)
}
