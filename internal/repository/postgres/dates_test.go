package postgres

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/invhealth/internal/config"
	"github.com/andresuchdata/invhealth/internal/domain"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		raw  sql.NullString
		want time.Time
	}{
		{"iso date", sql.NullString{String: "2025-01-05", Valid: true}, want},
		{"rfc3339 keeps the calendar day", sql.NullString{String: "2025-01-05T23:10:00+07:00", Valid: true}, want},
		{"timestamp", sql.NullString{String: "2025-01-05 08:00:00", Valid: true}, want},
		{"us format", sql.NullString{String: "01/05/2025", Valid: true}, want},
		{"padded", sql.NullString{String: "  2025-01-05 ", Valid: true}, want},
		{"garbage", sql.NullString{String: "soon", Valid: true}, time.Time{}},
		{"null", sql.NullString{}, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseDate(tt.raw))
		})
	}
}

func TestSortInvoices_MixedDateFormats(t *testing.T) {
	raw := []struct {
		id   int64
		date string
	}{
		{1, "01/15/2025"},
		{2, "2024-12-01"},
		{3, "not a date"},
		{4, "2025-01-15"},
		{5, "2024-12-01T09:00:00Z"},
	}
	invoices := make([]domain.Invoice, 0, len(raw))
	for _, r := range raw {
		invoices = append(invoices, domain.Invoice{ID: r.id, Date: parseDate(sql.NullString{String: r.date, Valid: true})})
	}

	sortInvoices(invoices)

	ids := make([]int64, len(invoices))
	for i, inv := range invoices {
		ids[i] = inv.ID
	}
	assert.Equal(t, []int64{3, 2, 5, 1, 4}, ids)
}

func TestMoneyCents(t *testing.T) {
	assert.Equal(t, int64(12345), moneyCents(sql.NullString{String: "123.45", Valid: true}))
	assert.Equal(t, int64(0), moneyCents(sql.NullString{}))

	assert.Nil(t, nullableCents(sql.NullString{}))
	assert.Nil(t, nullableCents(sql.NullString{String: " ", Valid: true}))
	got := nullableCents(sql.NullString{String: "-0.05", Valid: true})
	require.NotNil(t, got)
	assert.Equal(t, int64(-5), *got)
}

func TestConnString(t *testing.T) {
	assert.Equal(t, "postgres://u@h/db", connString(&config.DatabaseConfig{URL: "postgres://u@h/db"}))
	assert.Equal(t,
		"host=h port=5432 user=u password=p dbname=d sslmode=disable",
		connString(&config.DatabaseConfig{Host: "h", Port: "5432", User: "u", Password: "p", DBName: "d", SSLMode: "disable"}),
	)
}
