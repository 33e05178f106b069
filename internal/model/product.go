package model

import (
	"encoding/json"
	"time"
)

// Product mirrors one row of the products table. Optional columns are
// pointers so that NULL and "not provided" stay distinct from "".
type Product struct {
	SKU              string
	ManufacturerName *string
	Name             *string
	Qty              *string
	Flavour          *string
	Weight           *string
	ImgURL           *string
	RetailPrice      *float64
	Description      *string
	MetaTitle        *string
	MetaDescription  *string
	Category         *Category
	CreatedAt        time.Time
	UpdatedAt        time.Time
	OpenAIResponse   json.RawMessage
	TotalTokens      *int
}

// HasCategory reports whether classification already ran for the product.
func (p *Product) HasCategory() bool {
	return p.Category != nil && *p.Category != ""
}

// HasMarketing reports whether description, meta title and meta description are all set.
func (p *Product) HasMarketing() bool {
	return present(p.Description) && present(p.MetaTitle) && present(p.MetaDescription)
}

func (p *Product) SetCategory(c Category) {
	p.Category = &c
}

// RecordCompletion stores the envelope that produced the latest field change.
func (p *Product) RecordCompletion(raw json.RawMessage, totalTokens *int) {
	p.OpenAIResponse = raw
	p.TotalTokens = totalTokens
}

func present(s *string) bool {
	return s != nil && *s != ""
}
