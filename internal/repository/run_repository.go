package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"dropimator/internal/model"
)

// RunRepository keeps the import_runs audit trail.
type RunRepository struct {
	DB *sqlx.DB
}

// Start records a running import and fills in its id and start time.
func (r *RunRepository) Start(ctx context.Context, run *model.ImportRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	run.Status = model.RunStatusRunning

	_, err := r.DB.NamedExecContext(ctx, `
		INSERT INTO import_runs (id, kind, source, status, started_at)
		VALUES (:id, :kind, :source, :status, :started_at)
	`, run)
	if err != nil {
		return fmt.Errorf("insert import run: %w", err)
	}
	return nil
}

// Finish stores the final counters and status of run.
func (r *RunRepository) Finish(ctx context.Context, run *model.ImportRun, status string) error {
	now := time.Now().UTC()
	run.Status = status
	run.FinishedAt = &now

	_, err := r.DB.NamedExecContext(ctx, `
		UPDATE import_runs SET
			status = :status,
			rows_read = :rows_read,
			rows_skipped = :rows_skipped,
			products_created = :products_created,
			products_updated = :products_updated,
			rows_failed = :rows_failed,
			classified = :classified,
			enriched = :enriched,
			finished_at = :finished_at
		WHERE id = :id
	`, run)
	if err != nil {
		return fmt.Errorf("update import run %s: %w", run.ID, err)
	}
	return nil
}
