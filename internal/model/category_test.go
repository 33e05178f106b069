package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCategory(t *testing.T) {
	cases := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"Proteine", CategoryProteine, true},
		{"  Creatina ", CategoryCreatina, true},
		{"vitamine si minerale", CategoryVitamineMinerale, true},
		{"PERFORMANTA/STIMULATOARE", CategoryPerformanta, true},
		{"Bauturi", "", false},
		{"Proteine, Creatina", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseCategory(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestCategoriesAreUnique(t *testing.T) {
	seen := make(map[Category]bool)
	for _, c := range Categories {
		assert.False(t, seen[c], "duplicate %q", c)
		seen[c] = true
	}
	assert.Len(t, Categories, 12)
}

func TestProductFlags(t *testing.T) {
	s := func(v string) *string { return &v }

	p := &Product{SKU: "A"}
	assert.False(t, p.HasCategory())
	assert.False(t, p.HasMarketing())

	empty := Category("")
	p.Category = &empty
	assert.False(t, p.HasCategory())
	p.SetCategory(CategorySuplimente)
	assert.True(t, p.HasCategory())

	p.Description, p.MetaTitle, p.MetaDescription = s("d"), s("t"), s("")
	assert.False(t, p.HasMarketing())
	p.MetaDescription = s("m")
	assert.True(t, p.HasMarketing())
}
