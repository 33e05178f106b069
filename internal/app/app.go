package app

import (
	"context"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"dropimator/internal/config"
	"dropimator/internal/db"
	"dropimator/internal/enrichment"
	"dropimator/internal/ingest"
	"dropimator/internal/model"
	"dropimator/internal/repository"
	"dropimator/internal/runlock"
)

// SetupLogger configures the global zerolog logger for env.
func SetupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// App bundles the connections one run of the pipeline needs.
type App struct {
	SQL      *sqlx.DB
	Pool     *pgxpool.Pool
	Products *repository.ProductRepository
	Runs     *repository.RunRepository
	Locker   *runlock.Locker
	Driver   *ingest.Driver
}

// Open connects to Postgres, applies migrations and wires the driver.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	url := cfg.DB.URL()
	log.Info().Str("database", cfg.DB.Redacted()).Msg("connecting to database")

	sqlDB, err := db.New(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(sqlDB.DB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	pool, err := db.NewPool(ctx, url)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	locker, err := runlock.New(cfg.RedisURL)
	if err != nil {
		pool.Close()
		_ = sqlDB.Close()
		return nil, err
	}

	products := &repository.ProductRepository{DB: pool}
	engine := enrichment.NewEngine(
		enrichment.NewOpenAIClient(cfg.OpenAI),
		enrichment.WithLanguage(cfg.OpenAI.MarketingLanguage),
	)

	return &App{
		SQL:      sqlDB,
		Pool:     pool,
		Products: products,
		Runs:     &repository.RunRepository{DB: sqlDB},
		Locker:   locker,
		Driver:   ingest.NewDriver(products, engine),
	}, nil
}

func (a *App) Close() {
	if err := a.Locker.Close(); err != nil {
		log.Warn().Err(err).Msg("closing redis client")
	}
	a.Pool.Close()
	if err := a.SQL.Close(); err != nil {
		log.Warn().Err(err).Msg("closing database")
	}
}

// Run holds the store-wide run lock while fn executes and records the run in
// import_runs. Failing to write the audit row is logged only.
func (a *App) Run(ctx context.Context, kind, source string, ttl time.Duration, fn func(ctx context.Context) (ingest.Stats, error)) error {
	lock, err := a.Locker.Acquire(ctx, runlock.RunKey, ttl)
	if err != nil {
		return err
	}
	stopRefresh := lock.KeepAlive(ctx, ttl)
	defer func() {
		stopRefresh()
		// The run context may already be cancelled here.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil {
			log.Warn().Err(err).Msg("releasing run lock")
		}
	}()

	run := &model.ImportRun{Kind: kind, Source: source}
	if err := a.Runs.Start(ctx, run); err != nil {
		log.Error().Err(err).Msg("could not record run start")
	}
	logger := log.With().Str("run_id", run.ID).Str("kind", kind).Logger()

	stats, runErr := fn(ctx)
	stats.Apply(run)

	status := model.RunStatusCompleted
	if runErr != nil {
		status = model.RunStatusFailed
	}

	finishCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Runs.Finish(finishCtx, run, status); err != nil {
		logger.Error().Err(err).Msg("could not record run result")
	}
	logger.Info().Str("status", status).Msg("run finished")
	return runErr
}
