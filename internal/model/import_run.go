package model

import "time"

const (
	RunKindImport = "import"
	RunKindEnrich = "enrich"

	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// ImportRun is the audit record of one importer or enricher execution.
type ImportRun struct {
	ID              string     `db:"id"`
	Kind            string     `db:"kind"`
	Source          string     `db:"source"`
	Status          string     `db:"status"`
	RowsRead        int        `db:"rows_read"`
	RowsSkipped     int        `db:"rows_skipped"`
	ProductsCreated int        `db:"products_created"`
	ProductsUpdated int        `db:"products_updated"`
	RowsFailed      int        `db:"rows_failed"`
	Classified      int        `db:"classified"`
	Enriched        int        `db:"enriched"`
	StartedAt       time.Time  `db:"started_at"`
	FinishedAt      *time.Time `db:"finished_at"`
}
