package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/invhealth/internal/domain"
)

func TestValidateCostLayers_BadCostRepairedFromLatestInvoice(t *testing.T) {
	invoices := []domain.Invoice{
		invoice(1, "ACME", "1", "2025-01-01", line("X", 4, 1000)),
		invoice(2, "ACME", "2", "2025-01-10", line("X", 2, 400)),
	}
	layers := []domain.CostLayer{
		{ID: 7, SKU: "X", Lot: "L1", Quantity: 3, UnitCostCents: cents(-5)},
	}

	res := ValidateCostLayers(layers, invoices)

	assert.Equal(t, domain.IssueList{
		domain.FifoBadCost{SKU: "X", Lot: "L1", Cost: cents(-5), Repaired: true, RepairedCost: cents(200)},
	}, res.Issues)
	assert.Equal(t, 1, res.FixedCount)
	assert.Equal(t, []domain.CostBackfill{{LayerID: 7, SKU: "X", Lot: "L1", UnitCostCents: 200}}, res.Backfills)

	// layers are reported, never rewritten in place
	assert.Equal(t, int64(-5), *layers[0].UnitCostCents)
}

func TestValidateCostLayers_RepairUsesNewestDateNotSliceOrder(t *testing.T) {
	invoices := []domain.Invoice{
		invoice(2, "ACME", "2", "2025-01-15", line("X", 1, 300)),
		invoice(1, "ACME", "1", "2024-12-01", line("X", 1, 100)),
		invoice(3, "ACME", "3", "2025-01-15", line("Y", 1, 50), line("X", 2, 500)),
	}
	undated := invoice(4, "ACME", "4", "2025-01-01", line("X", 1, 900))
	undated.Date = time.Time{}
	invoices = append(invoices, undated)

	layers := []domain.CostLayer{{ID: 7, SKU: "X", Lot: "L1", Quantity: 1}}

	res := ValidateCostLayers(layers, invoices)

	// newest day is 2025-01-15; the later of its two invoices wins
	require.Len(t, res.Backfills, 1)
	assert.Equal(t, int64(250), res.Backfills[0].UnitCostCents)
}

func TestValidateCostLayers_MissingCostWithoutSource(t *testing.T) {
	invoices := []domain.Invoice{
		invoice(1, "ACME", "1", "2025-01-01", line("Other", 1, 100), line("X", 0, 0)),
	}
	layers := []domain.CostLayer{{ID: 1, SKU: "X", Lot: "L1", Quantity: 1}}

	res := ValidateCostLayers(layers, invoices)

	require.Len(t, res.Issues, 1)
	issue := res.Issues[0].(domain.FifoBadCost)
	assert.Nil(t, issue.Cost)
	assert.False(t, issue.Repaired)
	assert.Nil(t, issue.RepairedCost)
	assert.Zero(t, res.FixedCount)
	assert.Empty(t, res.Backfills)
}

func TestValidateCostLayers_NegativeQuantity(t *testing.T) {
	layers := []domain.CostLayer{
		{ID: 1, SKU: "X", Lot: "L1", Quantity: -2, UnitCostCents: cents(150)},
		{ID: 2, SKU: "X", Lot: "L2", Quantity: 5, UnitCostCents: cents(0)},
	}

	res := ValidateCostLayers(layers, nil)

	assert.Equal(t, domain.IssueList{domain.FifoNegQty{SKU: "X", Lot: "L1", Qty: -2}}, res.Issues)
	assert.Zero(t, res.FixedCount)
}

func TestDetectPriceSpikes(t *testing.T) {
	auditDay := day("2025-03-01")

	tests := []struct {
		name   string
		latest int64
		want   domain.IssueList
	}{
		{
			name:   "beyond threshold",
			latest: 700,
			want:   domain.IssueList{domain.PriceSpike{SKU: "Y", Latest: 700, Median: 500, Deviation: 0.4}},
		},
		{
			name:   "within threshold",
			latest: 600,
			want:   domain.IssueList{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			invoices := []domain.Invoice{
				invoice(1, "ACME", "1", "2025-02-10", line("Y", 2, 1000)),
				invoice(2, "ACME", "2", "2025-02-20", line("Y", 1, 500)),
				invoice(3, "ACME", "3", "2025-02-28", line("Y", 1, tt.latest)),
			}

			got := DetectPriceSpikes(invoices, auditDay, 60, 0.35)

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectPriceSpikes_WindowAndGuards(t *testing.T) {
	auditDay := day("2025-03-01")
	invoices := []domain.Invoice{
		// outside the 60-day window
		invoice(1, "ACME", "1", "2024-11-01", line("Y", 1, 100)),
		invoice(2, "ACME", "2", "2025-02-01", line("Y", 1, 500), line("Z", 1, 0)),
		invoice(3, "ACME", "3", "2025-02-15", line("Y", 0, 9999), line("Z", 1, 0)),
		invoice(4, "ACME", "4", "2025-02-20", line("Y", 1, 520), line("Z", 1, 300)),
		// after the audit day
		invoice(5, "ACME", "5", "2025-03-05", line("Y", 1, 5000)),
	}

	got := DetectPriceSpikes(invoices, auditDay, 60, 0.35)

	// Y: {500, 520} median 510, latest 520. Z: {0, 0, 300} median 0 is skipped.
	assert.Empty(t, got)
}

func TestDetectOrphanSKUs(t *testing.T) {
	items := []domain.Item{{SKU: "A"}}
	invoices := []domain.Invoice{
		invoice(1, "ACME", "9001", "2025-01-01", line("B", 1, 100), line("B", 2, 200), line("A", 1, 100)),
	}
	layers := []domain.CostLayer{
		{ID: 1, SKU: "A", Lot: "L1", Quantity: 1},
		{ID: 2, SKU: "C", Lot: "L9", Quantity: 1},
	}

	got := DetectOrphanSKUs(items, invoices, layers)

	assert.Equal(t, domain.IssueList{
		domain.OrphanSKUInvoice{SKU: "B", InvoiceNumber: "9001"},
		domain.OrphanSKUInvoice{SKU: "B", InvoiceNumber: "9001"},
		domain.OrphanSKUFifo{SKU: "C", Lot: "L9"},
	}, got, "one issue per orphan line")
}
