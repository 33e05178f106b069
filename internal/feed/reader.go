package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// Delimiter used by the supplier export.
const Delimiter = ';'

const utf8BOM = "\ufeff"

// Row is one feed line keyed by header column. Columns missing from a short
// line are simply absent.
type Row map[string]string

// Get returns the raw cell for column, or "" when the row does not carry it.
func (r Row) Get(column string) string {
	return r[column]
}

func (r Row) empty() bool {
	for _, v := range r {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// WalkFile opens path and calls fn for every data row. See Walk.
func WalkFile(path string, fn func(line int, row Row) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open feed %s: %w", path, err)
	}
	defer f.Close()

	log.Info().Str("path", path).Msg("reading products from feed")
	return Walk(f, fn)
}

// Walk reads a semicolon-delimited feed with a header row. line is the
// 1-based data row number. Rows whose cells are all blank are skipped.
// An error returned by fn stops the walk and is returned as is.
func Walk(r io.Reader, fn func(line int, row Row) error) error {
	cr := csv.NewReader(r)
	cr.Comma = Delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("feed has no header row")
	}
	if err != nil {
		return fmt.Errorf("read feed header: %w", err)
	}
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		header[i] = strings.TrimSpace(h)
	}

	for line := 1; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read feed row %d: %w", line, err)
		}

		row := make(Row, len(header))
		for i, col := range header {
			if i < len(record) && col != "" {
				row[col] = record[i]
			}
		}
		if row.empty() {
			log.Debug().Int("line", line).Msg("skipping empty feed row")
			continue
		}
		if err := fn(line, row); err != nil {
			return err
		}
	}
}
