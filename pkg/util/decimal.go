package util

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

// plainDecimal matches a signed decimal literal without exponent.
var plainDecimal = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// IsDecimalLiteral reports whether s is a plain decimal literal.
// NaN, Infinity, exponent forms and bare dots are not.
func IsDecimalLiteral(s string) bool {
	return plainDecimal.MatchString(s)
}

// ParseDecimal parses a plain decimal literal exactly.
func ParseDecimal(s string) (decimal.Decimal, error) {
	if !IsDecimalLiteral(s) {
		return decimal.Zero, fmt.Errorf("not a decimal literal: %q", s)
	}
	return decimal.NewFromString(s)
}

// NormalizeDecimal returns the canonical text of a decimal literal:
// no trailing fractional zeros, no redundant leading zeros, no "-0".
func NormalizeDecimal(s string) (string, error) {
	d, err := ParseDecimal(s)
	if err != nil {
		return "", err
	}
	return d.String(), nil
}
