package postgres

import (
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/invhealth/internal/audit"
	"github.com/andresuchdata/invhealth/internal/domain"
)

// invoiceDateLayouts are the formats seen in the invoice_date text column.
var invoiceDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006",
}

// parseDate returns the calendar day, or the zero time when the value is
// missing or unreadable.
func parseDate(raw sql.NullString) time.Time {
	if !raw.Valid {
		return time.Time{}
	}
	s := strings.TrimSpace(raw.String)
	for _, layout := range invoiceDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		}
	}
	return time.Time{}
}

// sortInvoices orders invoices by parsed date, undated first, then by id.
func sortInvoices(invoices []domain.Invoice) {
	sort.SliceStable(invoices, func(i, j int) bool {
		a, b := invoices[i], invoices[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.ID < b.ID
	})
}

// moneyCents converts a numeric column rendered as text into cents.
func moneyCents(raw sql.NullString) int64 {
	if !raw.Valid {
		return 0
	}
	return audit.ToCents(raw.String)
}

// nullableCents keeps NULL distinct from zero.
func nullableCents(raw sql.NullString) *int64 {
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return nil
	}
	c := audit.ToCents(raw.String)
	return &c
}
