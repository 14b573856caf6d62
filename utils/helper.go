package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

func NewFalse() *bool {
	b := false
	return &b
}

func BoolValue(b *bool) bool {
	return b != nil && *b
}

// ParseDecimal converts a string to a decimal.Decimal value.
func ParseDecimal(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, errors.New("empty decimal string")
	}

	dec, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, err
	}

	return dec, nil
}

// ParsePositiveDecimal parses value and rejects zero or negative results.
func ParsePositiveDecimal(field string, value string) (decimal.Decimal, error) {
	dec, err := ParseDecimal(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", field, err)
	}
	if !dec.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s must be greater than zero", field)
	}
	return dec, nil
}

// NormalizeName is the comparison form of a display name (trimmed, lower case, single spaced).
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func SplitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
