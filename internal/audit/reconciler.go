package audit

import (
	"github.com/andresuchdata/invhealth/internal/domain"
)

// balanceToleranceCents is the largest header/line drift repaired automatically.
const balanceToleranceCents = 2

// ReconcileResult is the deduplicated, balance-corrected invoice set.
type ReconcileResult struct {
	Reconciled    []domain.Invoice
	Issues        domain.IssueList
	FixedCount    int
	Lines         []domain.LineCorrection
	FiscalPeriods []domain.FiscalPeriodCorrection
}

// Reconcile deduplicates invoices, repairs cent drift and normalizes fiscal
// periods in a single pass over invoices in stored order. The input slice is
// never modified.
func Reconcile(invoices []domain.Invoice) ReconcileResult {
	res := ReconcileResult{
		Reconciled: make([]domain.Invoice, 0, len(invoices)),
		Issues:     domain.IssueList{},
	}
	seen := make(map[domain.InvoiceKey]struct{}, len(invoices))

	for _, src := range invoices {
		// 1. Duplicates are reported and excluded, first occurrence wins
		key := src.Key()
		if _, dup := seen[key]; dup {
			res.Issues = append(res.Issues, domain.DupInvoice{
				InvoiceNumber: src.InvoiceNumber,
				Vendor:        src.Vendor,
				Date:          key.Date,
			})
			continue
		}
		seen[key] = struct{}{}

		inv := src.Clone()

		// 2. Header total vs line sum
		lineSum := inv.LineSumCents()
		diff := inv.TotalCents - lineSum
		switch {
		case diff == 0:
		case abs64(diff) <= balanceToleranceCents:
			if idx := firstNonZeroLine(inv.Lines); idx >= 0 {
				inv.Lines[idx].ExtPriceCents += diff
				res.FixedCount++
				res.Lines = append(res.Lines, domain.LineCorrection{
					InvoiceID:     inv.ID,
					LineID:        inv.Lines[idx].ID,
					ExtPriceCents: inv.Lines[idx].ExtPriceCents,
				})
			}
		default:
			res.Issues = append(res.Issues, domain.InvoiceImbalance{
				InvoiceNumber: inv.InvoiceNumber,
				CentsOff:      diff,
				Reported:      FromCents(inv.TotalCents),
				Calculated:    FromCents(lineSum),
			})
		}

		// 3. Fiscal period follows the date; an unreadable date clears it
		if expected := DeriveFiscalPeriod(inv.Date); expected != inv.FiscalPeriod {
			inv.FiscalPeriod = expected
			res.FixedCount++
			res.FiscalPeriods = append(res.FiscalPeriods, domain.FiscalPeriodCorrection{
				InvoiceID:    inv.ID,
				FiscalPeriod: expected,
			})
		}

		res.Reconciled = append(res.Reconciled, inv)
	}

	return res
}

// firstNonZeroLine returns the index of the first line in stored order with a
// non-zero extended price, or -1.
func firstNonZeroLine(lines []domain.InvoiceLine) int {
	for i, l := range lines {
		if l.ExtPriceCents != 0 {
			return i
		}
	}
	return -1
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
