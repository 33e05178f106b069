package feed

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"
)

var ErrNoCSV = errors.New("no csv feed found")

// FindCSV resolves the feed to import. An explicit path must point at an
// existing file; otherwise the most recently modified *.csv in dir is used.
func FindCSV(explicit, dir string) (string, error) {
	if explicit != "" {
		info, err := os.Stat(explicit)
		if err != nil {
			return "", fmt.Errorf("configured feed %s: %w", explicit, err)
		}
		if !info.Mode().IsRegular() {
			return "", fmt.Errorf("configured feed %s is not a regular file", explicit)
		}
		return explicit, nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return "", fmt.Errorf("scan %s for csv files: %w", dir, err)
	}

	type candidate struct {
		path string
		info os.FileInfo
	}
	var files []candidate
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, candidate{path: m, info: info})
	}
	if len(files) == 0 {
		return "", fmt.Errorf("%w in %s: set PRODUCT_CSV_PATH or place a csv there", ErrNoCSV, dir)
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].info.ModTime().After(files[j].info.ModTime())
	})
	if len(files) > 1 {
		log.Info().Str("path", files[0].path).Int("candidates", len(files)).Msg("multiple csv files found, using the most recent one")
	}
	return files[0].path, nil
}
