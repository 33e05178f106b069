package feed

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = "\ufeffsku;manufacturer_name;name;qty;flavour;weight;img_url;retail_price\n" +
	"W-1;Optimum;Gold Standard Whey;10;Vanilla;2kg;http://img/1.png;249,90\n" +
	";;;;;;;\n" +
	"C-2;Scitec;Creatine;5\n" +
	";Nameless;No SKU;;;;;\n"

func collect(t *testing.T, feed string) ([]int, []Row) {
	t.Helper()
	var lines []int
	var rows []Row
	err := Walk(strings.NewReader(feed), func(line int, row Row) error {
		lines = append(lines, line)
		rows = append(rows, row)
		return nil
	})
	require.NoError(t, err)
	return lines, rows
}

func TestWalkReadsRowsByHeader(t *testing.T) {
	lines, rows := collect(t, sampleFeed)

	require.Len(t, rows, 3)
	assert.Equal(t, []int{1, 3, 4}, lines)

	assert.Equal(t, "W-1", rows[0].Get("sku"))
	assert.Equal(t, "Gold Standard Whey", rows[0].Get("name"))
	assert.Equal(t, "249,90", rows[0].Get("retail_price"))

	// short row: trailing columns are absent, not empty strings
	_, ok := rows[1]["retail_price"]
	assert.False(t, ok)
	assert.Equal(t, "5", rows[1].Get("qty"))

	assert.Equal(t, "", rows[2].Get("sku"))
	assert.Equal(t, "No SKU", rows[2].Get("name"))
}

func TestWalkStopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := Walk(strings.NewReader(sampleFeed), func(int, Row) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestWalkEmptyInput(t *testing.T) {
	err := Walk(strings.NewReader(""), func(int, Row) error { return nil })
	assert.Error(t, err)
}

func TestWalkFileMissing(t *testing.T) {
	err := WalkFile(filepath.Join(t.TempDir(), "missing.csv"), func(int, Row) error { return nil })
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWalkFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleFeed), 0o644))

	n := 0
	require.NoError(t, WalkFile(path, func(int, Row) error { n++; return nil }))
	assert.Equal(t, 3, n)
}
