package model

import "strings"

// Category is one of the fixed storefront categories a product can be filed under.
type Category string

const (
	CategoryProteine         Category = "Proteine"
	CategoryAminoacizi       Category = "Aminoacizi"
	CategoryVitamineMinerale Category = "Vitamine si Minerale"
	CategoryBatoaneGustari   Category = "Batoane si Gustari Fitness"
	CategorySlabit           Category = "Suplimente pentru slabit"
	CategoryPerformanta      Category = "Performanta/Stimulatoare"
	CategoryPreWorkout       Category = "Pre-Workout"
	CategoryCreatina         Category = "Creatina"
	CategoryImbracaminte     Category = "Imbracaminte si acesorii pentru sala"
	CategoryMasaMusculara    Category = "Masa musculara"
	CategorySuplimente       Category = "Suplimente"
	CategoryProbiotice       Category = "Probiotice"
)

// Categories lists every accepted category in prompt order.
var Categories = []Category{
	CategoryProteine,
	CategoryAminoacizi,
	CategoryVitamineMinerale,
	CategoryBatoaneGustari,
	CategorySlabit,
	CategoryPerformanta,
	CategoryPreWorkout,
	CategoryCreatina,
	CategoryImbracaminte,
	CategoryMasaMusculara,
	CategorySuplimente,
	CategoryProbiotice,
}

// ParseCategory maps free text onto the enumeration. Exact matches win,
// then a case-insensitive comparison; anything else is rejected.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}
