package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrInvalidPrice = errors.New("invalid price")

// Price is a monetary amount in dollars. It unmarshals from either a JSON
// number or a formatted currency string ("$14.99", "$4.50/oz"), so upstream
// product records are normalized to a plain number at the decoding boundary.
// Internal code must never re-parse a stored price as a string.
type Price float64

func (p *Price) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		if n < 0 {
			return fmt.Errorf("%w: negative amount %v", ErrInvalidPrice, n)
		}
		*p = Price(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidPrice, string(data))
	}

	n, err := ParsePrice(s)
	if err != nil {
		return err
	}
	*p = Price(n)
	return nil
}

func (p Price) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(p))
}

// ParsePrice normalizes a formatted currency string to a float64 amount.
// Accepts an optional leading "$" and a trailing per-unit suffix ("/oz"),
// both of which appear in upstream catalog data. Negative and unparseable
// amounts are rejected.
func ParsePrice(s string) (float64, error) {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimPrefix(trimmed, "$")
	if i := strings.Index(trimmed, "/"); i >= 0 {
		trimmed = trimmed[:i]
	}
	trimmed = strings.TrimSpace(trimmed)

	n, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	if n < 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	return n, nil
}

// Round2 rounds to 2 decimal places, half away from zero. Used only when a
// figure is about to be displayed; intermediate arithmetic keeps full
// precision so rounding error does not compound across additions.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
