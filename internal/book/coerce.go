package book

import (
	"math"
	"strconv"
	"strings"
)

// ParseFloat coerces a loosely typed upstream value to a float.
// Anything that is not a finite number becomes 0.
func ParseFloat(v any) float64 {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		s := strings.TrimSpace(n)
		s = strings.TrimPrefix(s, "$")
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// ParseInt coerces a loosely typed upstream value to an int, truncating floats.
func ParseInt(v any) int {
	return int(ParseFloat(v))
}

// Year returns the publication year when date is purely numeric ("1965"),
// and 0 for anything else ("1965-08-01", "", "c. 1900").
func Year(date string) int {
	date = strings.TrimSpace(date)
	if date == "" {
		return 0
	}
	for _, r := range date {
		if r < '0' || r > '9' {
			return 0
		}
	}
	year, err := strconv.Atoi(date)
	if err != nil {
		return 0
	}
	return year
}
