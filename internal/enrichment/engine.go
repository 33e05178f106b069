package enrichment

import (
	"context"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"

	"dropimator/internal/model"
)

// marketingField maps one product column to the JSON keys the model may use
// for it. The first key holding a non-blank string wins.
type marketingField struct {
	name   string
	keys   []string
	target func(p *model.Product) **string
	html   bool
}

var marketingFields = []marketingField{
	{
		name:   "description",
		keys:   []string{"html_description", "descriere"},
		target: func(p *model.Product) **string { return &p.Description },
		html:   true,
	},
	{
		name:   "meta_title",
		keys:   []string{"meta_title", "meta_titlu"},
		target: func(p *model.Product) **string { return &p.MetaTitle },
	},
	{
		name:   "meta_description",
		keys:   []string{"meta_description", "meta_descriere"},
		target: func(p *model.Product) **string { return &p.MetaDescription },
	},
	{
		name:   "weight",
		keys:   []string{"weight"},
		target: func(p *model.Product) **string { return &p.Weight },
	},
}

// Engine decides whether a product needs a model call and applies the
// validated answer to it. It never persists anything itself.
type Engine struct {
	client   Completer
	language string
	policy   *bluemonday.Policy
	now      func() time.Time
}

type Option func(*Engine)

// WithLanguage sets the language marketing copy is written in.
func WithLanguage(language string) Option {
	return func(e *Engine) {
		if strings.TrimSpace(language) != "" {
			e.language = language
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(client Completer, opts ...Option) *Engine {
	e := &Engine{
		client:   client,
		language: "Romanian",
		policy:   bluemonday.UGCPolicy(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Classify returns the product's category, asking the model only when none
// is stored yet. On a valid answer the envelope is recorded on p; assigning
// the category is left to the caller.
func (e *Engine) Classify(ctx context.Context, p *model.Product) (model.Category, bool) {
	if p.HasCategory() {
		log.Debug().Str("sku", p.SKU).Str("category", string(*p.Category)).Msg("product already classified")
		return *p.Category, true
	}

	env := e.client.Complete(ctx, BuildCategoryPrompt(p), ClassificationParams)
	if env == nil {
		return "", false
	}
	text, ok := ExtractText(env)
	if !ok {
		return "", false
	}
	payload, ok := DecodeJSON(text)
	if !ok {
		return "", false
	}

	raw, _ := payload["category"].(string)
	category, ok := model.ParseCategory(raw)
	if !ok {
		log.Warn().Str("sku", p.SKU).Str("category", raw).Msg("model answered with an unknown category")
		return "", false
	}

	p.RecordCompletion(env.Raw(), TotalTokens(env))
	return category, true
}

// EnrichMarketing fills description, meta title, meta description and
// weight from one model call. It returns true when any field changed.
func (e *Engine) EnrichMarketing(ctx context.Context, p *model.Product) bool {
	if p.HasMarketing() {
		return false
	}

	env := e.client.Complete(ctx, BuildMarketingPrompt(p, e.language), MarketingParams)
	if env == nil {
		return false
	}
	text, ok := ExtractText(env)
	if !ok {
		return false
	}
	payload, ok := DecodeJSON(text)
	if !ok {
		return false
	}

	var changed []string
	for _, f := range marketingFields {
		v := firstPresent(payload, f.keys...)
		if f.html && v != "" {
			v = strings.TrimSpace(e.policy.Sanitize(v))
		}
		if v == "" {
			continue
		}
		*f.target(p) = &v
		changed = append(changed, f.name)
	}

	if len(changed) == 0 {
		log.Warn().Str("sku", p.SKU).Msg("marketing response carried no usable fields")
		return false
	}

	p.UpdatedAt = e.now()
	p.RecordCompletion(env.Raw(), TotalTokens(env))
	log.Info().Str("sku", p.SKU).Strs("fields", changed).Msg("marketing content applied")
	return true
}
