package audit

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToCents(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int64
	}{
		{"nil", nil, 0},
		{"empty string", "", 0},
		{"garbage", "abc", 0},
		{"plain", "12.34", 1234},
		{"thousands separator", "1,234.50", 123450},
		{"currency symbol", "$ 99", 9900},
		{"accounting negative", "(4.00)", -400},
		{"prefixed negative", "USD -12.5", -1250},
		{"int", 7, 700},
		{"int64", int64(-3), -300},
		{"float half rounds away from zero", 12.345, 1235},
		{"negative float half", -0.005, -1},
		{"nan", math.NaN(), 0},
		{"inf", math.Inf(1), 0},
		{"json number", json.Number("19.99"), 1999},
		{"decimal", decimal.RequireFromString("0.015"), 2},
		{"unsupported", struct{}{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToCents(tt.in))
		})
	}
}

func TestFromCents(t *testing.T) {
	assert.Equal(t, "100.00", FromCents(10000))
	assert.Equal(t, "90.00", FromCents(9000))
	assert.Equal(t, "0.00", FromCents(0))
	assert.Equal(t, "-0.05", FromCents(-5))
	assert.Equal(t, "1234.56", FromCents(123456))
}
