package audit

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ToCents converts a currency-like value to integer cents, rounding half away
// from zero. Anything nil, empty or unparseable yields 0.
func ToCents(v any) int64 {
	var d decimal.Decimal

	switch x := v.(type) {
	case nil:
		return 0
	case decimal.Decimal:
		d = x
	case int:
		return int64(x) * 100
	case int32:
		return int64(x) * 100
	case int64:
		return x * 100
	case float32:
		return ToCents(float64(x))
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0
		}
		d = decimal.NewFromFloat(x)
	case json.Number:
		return ToCents(string(x))
	case string:
		parsed, ok := parseMoney(x)
		if !ok {
			return 0
		}
		d = parsed
	default:
		return 0
	}

	return d.Mul(hundred).Round(0).IntPart()
}

// parseMoney accepts strings like "1,234.50", "$ 99", "USD -12.5" or "(4.00)".
func parseMoney(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}

	// Keep digits and '.', note a minus sign appearing before the first digit.
	var b strings.Builder
	b.Grow(len(s))
	seenDigit := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			seenDigit = true
			b.WriteRune(r)
		case r == '.':
			b.WriteRune(r)
		case r == '-' && !seenDigit:
			neg = true
		}
	}

	clean := b.String()
	if !seenDigit {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, false
	}
	if neg {
		d = d.Neg()
	}
	return d, true
}

// FromCents formats cents with exactly two decimal places.
func FromCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
