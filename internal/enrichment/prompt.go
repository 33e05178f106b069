package enrichment

import (
	"fmt"
	"strings"

	"dropimator/internal/model"
)

// SystemPrompt is sent as the system role on every completion.
func SystemPrompt() string {
	return "You are a fitness nutrition marketing specialist."
}

// BuildCategoryPrompt asks the model to file the product under exactly one
// of model.Categories.
func BuildCategoryPrompt(p *model.Product) string {
	choices := make([]string, len(model.Categories))
	for i, c := range model.Categories {
		choices[i] = string(c)
	}

	return fmt.Sprintf(
		"Strictly generate product category as JSON respecting the given JSON structure "+
			"{\"category\": <one of the value of [%s]>}\n"+
			"Product input:\n"+
			"Manufacturer: %s\n"+
			"Name: %s",
		strings.Join(choices, ", "),
		manufacturerOf(p),
		nameOf(p),
	)
}

// BuildMarketingPrompt asks for storefront copy in language.
func BuildMarketingPrompt(p *model.Product, language string) string {
	if strings.TrimSpace(language) == "" {
		language = "Romanian"
	}
	flavour := ""
	if p.Flavour != nil {
		flavour = *p.Flavour
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Generate product details using %s language and respecting the given JSON structure ", language))
	sb.WriteString(`{"html_description": <formatted string min 600 tokens max 900 tokens>, `)
	sb.WriteString(`"meta_title": <string no more than 25 tokens length>, `)
	sb.WriteString(`"meta_description": <string no more than 55 tokens length>, `)
	sb.WriteString(`"weight": "<string>"}.` + "\n")
	sb.WriteString("Product details input:\n")
	sb.WriteString(fmt.Sprintf("\"manufacturer\": %q,\n", manufacturerOf(p)))
	sb.WriteString(fmt.Sprintf("\"name\": %q,\n", nameOf(p)))
	sb.WriteString(fmt.Sprintf("\"flavour\": %q\n", flavour))
	sb.WriteString("Output:")
	return sb.String()
}

func manufacturerOf(p *model.Product) string {
	if p.ManufacturerName != nil && *p.ManufacturerName != "" {
		return *p.ManufacturerName
	}
	return "Unknown"
}

func nameOf(p *model.Product) string {
	if p.Name != nil && *p.Name != "" {
		return *p.Name
	}
	return p.SKU
}
