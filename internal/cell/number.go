package cell

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var leadingNumberRegex = regexp.MustCompile(`^\s*(-?\d+(?:[.,]\d+)?)`)

// FormatNumber renders v with at most one decimal digit. Integers have no
// decimal point; the separator is a comma when decimalComma is set.
func FormatNumber(v float64, decimalComma bool) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return LabelNA
	}
	r := math.Round(v*10) / 10
	var s string
	if r == math.Trunc(r) {
		s = strconv.FormatFloat(r, 'f', 0, 64)
	} else {
		s = strconv.FormatFloat(r, 'f', 1, 64)
	}
	if s == "-0" {
		s = "0"
	}
	if decimalComma {
		s = strings.Replace(s, ".", ",", 1)
	}
	return s
}

// ParseNumber parses a number written with either decimal separator.
func ParseNumber(s string) (float64, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return 0, fmt.Errorf("parse number: empty string")
	}
	v, err := strconv.ParseFloat(strings.Replace(t, ",", ".", 1), 64)
	if err != nil {
		return 0, fmt.Errorf("parse number %q: %w", s, err)
	}
	return v, nil
}

// leadingNumber extracts the number a display string starts with,
// e.g. 12.5 from "12.5 / 20 [9.4 / 15]".
func leadingNumber(display string) (float64, bool) {
	m := leadingNumberRegex.FindStringSubmatch(display)
	if m == nil {
		return 0, false
	}
	v, err := ParseNumber(m[1])
	if err != nil {
		return 0, false
	}
	return v, true
}
