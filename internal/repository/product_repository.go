package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dropimator/internal/model"
)

const productColumns = `sku, manufacturer_name, name, qty, flavour, weight, img_url, retail_price,
	description, meta_title, meta_description, category, openai_response, total_tokens,
	created_at, updated_at`

type ProductRepository struct {
	DB *pgxpool.Pool
}

// Get returns the product stored under sku, or (nil, nil) when there is none.
func (r *ProductRepository) Get(ctx context.Context, sku string) (*model.Product, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE sku = $1`, sku)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select product %s: %w", sku, err)
	}
	return p, nil
}

// Save inserts or updates p in one statement. created_at is only ever
// written by the insert.
func (r *ProductRepository) Save(ctx context.Context, p *model.Product) error {
	var category *string
	if p.Category != nil {
		c := string(*p.Category)
		category = &c
	}
	var response []byte
	if len(p.OpenAIResponse) > 0 {
		response = p.OpenAIResponse
	}

	_, err := r.DB.Exec(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (sku) DO UPDATE SET
			manufacturer_name = EXCLUDED.manufacturer_name,
			name              = EXCLUDED.name,
			qty               = EXCLUDED.qty,
			flavour           = EXCLUDED.flavour,
			weight            = EXCLUDED.weight,
			img_url           = EXCLUDED.img_url,
			retail_price      = EXCLUDED.retail_price,
			description       = EXCLUDED.description,
			meta_title        = EXCLUDED.meta_title,
			meta_description  = EXCLUDED.meta_description,
			category          = EXCLUDED.category,
			openai_response   = EXCLUDED.openai_response,
			total_tokens      = EXCLUDED.total_tokens,
			updated_at        = EXCLUDED.updated_at
	`,
		p.SKU, p.ManufacturerName, p.Name, p.Qty, p.Flavour, p.Weight, p.ImgURL, p.RetailPrice,
		p.Description, p.MetaTitle, p.MetaDescription, category, response, p.TotalTokens,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert product %s: %w", p.SKU, err)
	}
	return nil
}

// List returns every product ordered by SKU.
func (r *ProductRepository) List(ctx context.Context) ([]*model.Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY sku`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var list []*model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return list, nil
}

// CountByCategory reports how many products each category holds. Products
// without a category are counted under "".
func (r *ProductRepository) CountByCategory(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.Query(ctx, `SELECT COALESCE(category, ''), COUNT(*) FROM products GROUP BY 1`)
	if err != nil {
		return nil, fmt.Errorf("count products by category: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		counts[strings.TrimSpace(category)] += n
	}
	return counts, rows.Err()
}

func scanProduct(row pgx.Row) (*model.Product, error) {
	var (
		p        model.Product
		category *string
		response []byte
	)
	err := row.Scan(
		&p.SKU, &p.ManufacturerName, &p.Name, &p.Qty, &p.Flavour, &p.Weight, &p.ImgURL, &p.RetailPrice,
		&p.Description, &p.MetaTitle, &p.MetaDescription, &category, &response, &p.TotalTokens,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if category != nil && *category != "" {
		p.SetCategory(model.Category(*category))
	}
	p.OpenAIResponse = response
	return &p, nil
}
