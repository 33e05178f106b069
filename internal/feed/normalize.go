package feed

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrInvalidPrice = errors.New("invalid retail price")

// NormalizeString trims value and returns nil when nothing is left.
func NormalizeString(value string) *string {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	return &v
}

// ParsePrice accepts both "12.50" and "12,50". Empty input yields (nil, nil);
// anything that is not a finite number yields ErrInvalidPrice and the caller
// is expected to keep whatever price it already has.
func ParsePrice(value string) (*float64, error) {
	candidate := strings.TrimSpace(strings.ReplaceAll(value, ",", "."))
	if candidate == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(candidate, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPrice, value)
	}
	return &f, nil
}
