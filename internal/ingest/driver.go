package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"dropimator/internal/feed"
	"dropimator/internal/model"
	"dropimator/internal/observability"
)

// Store persists products keyed by SKU. Get returns (nil, nil) for an
// unknown SKU.
type Store interface {
	Get(ctx context.Context, sku string) (*model.Product, error)
	Save(ctx context.Context, p *model.Product) error
	List(ctx context.Context) ([]*model.Product, error)
}

// Enricher fills the derived fields of a product in memory.
type Enricher interface {
	Classify(ctx context.Context, p *model.Product) (model.Category, bool)
	EnrichMarketing(ctx context.Context, p *model.Product) bool
}

type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Stats counts what one import or sweep did.
type Stats struct {
	RowsRead     int
	Skipped      int
	Created      int
	Updated      int
	Failed       int
	Classified   int
	Enriched     int
	EnrichFailed int
}

// Apply copies the counters into the audit record.
func (s Stats) Apply(run *model.ImportRun) {
	run.RowsRead = s.RowsRead
	run.RowsSkipped = s.Skipped
	run.ProductsCreated = s.Created
	run.ProductsUpdated = s.Updated
	run.RowsFailed = s.Failed + s.EnrichFailed
	run.Classified = s.Classified
	run.Enriched = s.Enriched
}

// text columns copied onto the product when the cell is non-blank.
var textColumns = []struct {
	column string
	target func(p *model.Product) **string
}{
	{"manufacturer_name", func(p *model.Product) **string { return &p.ManufacturerName }},
	{"name", func(p *model.Product) **string { return &p.Name }},
	{"qty", func(p *model.Product) **string { return &p.Qty }},
	{"flavour", func(p *model.Product) **string { return &p.Flavour }},
	{"weight", func(p *model.Product) **string { return &p.Weight }},
	{"img_url", func(p *model.Product) **string { return &p.ImgURL }},
}

type Driver struct {
	store    Store
	enricher Enricher
	now      func() time.Time
}

func NewDriver(store Store, enricher Enricher) *Driver {
	return &Driver{
		store:    store,
		enricher: enricher,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// UpsertRow creates or updates the product named by the row's sku, classifies
// it when needed and saves it. Cells that normalize to nothing never clear a
// stored value.
func (d *Driver) UpsertRow(ctx context.Context, row feed.Row) (Outcome, error) {
	outcome, _, err := d.upsert(ctx, row)
	return outcome, err
}

func (d *Driver) upsert(ctx context.Context, row feed.Row) (Outcome, bool, error) {
	sku := feed.NormalizeString(row.Get("sku"))
	if sku == nil {
		log.Warn().Msg("skipping row without sku")
		return OutcomeSkipped, false, nil
	}

	p, err := d.store.Get(ctx, *sku)
	if err != nil {
		return OutcomeFailed, false, fmt.Errorf("load product %s: %w", *sku, err)
	}

	outcome := OutcomeUpdated
	now := d.now()
	if p == nil {
		p = &model.Product{SKU: *sku, CreatedAt: now}
		outcome = OutcomeCreated
	}

	for _, c := range textColumns {
		if v := feed.NormalizeString(row.Get(c.column)); v != nil {
			*c.target(p) = v
		}
	}

	price, err := feed.ParsePrice(row.Get("retail_price"))
	switch {
	case err != nil:
		log.Warn().Err(err).Str("sku", p.SKU).Str("retail_price", row.Get("retail_price")).Msg("keeping previous price")
	case price != nil:
		p.RetailPrice = price
	}

	p.UpdatedAt = now

	classified := false
	if !p.HasCategory() {
		if category, ok := d.enricher.Classify(ctx, p); ok {
			p.SetCategory(category)
			classified = true
			log.Info().Str("sku", p.SKU).Str("category", string(category)).Msg("product classified")
		}
	}

	if err := d.store.Save(ctx, p); err != nil {
		return OutcomeFailed, false, fmt.Errorf("save product %s: %w", p.SKU, err)
	}
	return outcome, classified, nil
}

// ImportFile upserts every row of the feed at path. A row that fails is
// logged and counted; only an unreadable feed or a cancelled ctx ends the
// import early.
func (d *Driver) ImportFile(ctx context.Context, path string) (Stats, error) {
	var stats Stats
	err := feed.WalkFile(path, func(line int, row feed.Row) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.RowsRead++

		outcome, classified, err := d.upsert(ctx, row)
		observability.RowsProcessed.WithLabelValues(string(outcome)).Inc()
		switch outcome {
		case OutcomeSkipped:
			stats.Skipped++
			log.Debug().Int("line", line).Msg("row skipped")
		case OutcomeFailed:
			stats.Failed++
			log.Error().Err(err).Int("line", line).Msg("failed to import row")
		case OutcomeCreated:
			stats.Created++
		case OutcomeUpdated:
			stats.Updated++
		}
		if classified {
			stats.Classified++
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			log.Warn().Err(err).Int("rows", stats.RowsRead).Msg("import interrupted")
		}
		return stats, err
	}

	log.Info().
		Str("path", path).
		Int("rows", stats.RowsRead).
		Int("created", stats.Created).
		Int("updated", stats.Updated).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Int("classified", stats.Classified).
		Msg("import finished")
	return stats, nil
}

// EnrichAll runs the marketing step over every stored product and saves the
// ones that changed.
func (d *Driver) EnrichAll(ctx context.Context) (Stats, error) {
	var stats Stats
	products, err := d.store.List(ctx)
	if err != nil {
		return stats, fmt.Errorf("list products: %w", err)
	}

	log.Info().Int("products", len(products)).Msg("starting marketing enrichment")
	for _, p := range products {
		if err := ctx.Err(); err != nil {
			log.Warn().Err(err).Int("enriched", stats.Enriched).Msg("enrichment interrupted")
			return stats, err
		}
		stats.RowsRead++
		if !d.enricher.EnrichMarketing(ctx, p) {
			continue
		}
		if err := d.store.Save(ctx, p); err != nil {
			stats.EnrichFailed++
			log.Error().Err(err).Str("sku", p.SKU).Msg("failed to save marketing content")
			continue
		}
		stats.Enriched++
		observability.ProductsEnriched.Inc()
	}

	log.Info().
		Int("products", stats.RowsRead).
		Int("enriched", stats.Enriched).
		Int("failed", stats.EnrichFailed).
		Msg("marketing enrichment finished")
	return stats, nil
}
