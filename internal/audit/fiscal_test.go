package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveFiscalPeriod(t *testing.T) {
	tests := []struct {
		date string
		want string
	}{
		{"2025-01-05", "FY25-P04"},
		{"2024-10-01", "FY25-P01"},
		{"2025-09-30", "FY25-P12"},
		{"2025-12-31", "FY26-P03"},
		{"2099-10-15", "FY00-P01"},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveFiscalPeriod(day(tt.date)))
		})
	}
}

func TestDeriveFiscalPeriod_ZeroDate(t *testing.T) {
	assert.Equal(t, "", DeriveFiscalPeriod(time.Time{}))
}

func TestDayOf_IgnoresClockAndZone(t *testing.T) {
	zone := time.FixedZone("UTC+7", 7*3600)
	got := dayOf(time.Date(2025, 3, 1, 23, 30, 0, 0, zone))
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), got)
}
