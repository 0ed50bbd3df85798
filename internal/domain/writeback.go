package domain

// LineCorrection sets the extended price of one invoice line after cent-drift repair.
type LineCorrection struct {
	InvoiceID     int64 `json:"invoice_id"`
	LineID        int64 `json:"line_id"`
	ExtPriceCents int64 `json:"ext_price_cents"`
}

// FiscalPeriodCorrection replaces a stored fiscal period with the derived one.
type FiscalPeriodCorrection struct {
	InvoiceID    int64  `json:"invoice_id"`
	FiscalPeriod string `json:"fiscal_period"`
}

// CostBackfill assigns an invoice-derived unit cost to a cost layer.
type CostBackfill struct {
	LayerID       int64  `json:"layer_id"`
	SKU           string `json:"sku"`
	Lot           string `json:"lot"`
	UnitCostCents int64  `json:"unit_cost_cents"`
}

// WriteBack is everything a run may persist. It is applied as one atomic unit.
type WriteBack struct {
	Lines         []LineCorrection         `json:"lines"`
	FiscalPeriods []FiscalPeriodCorrection `json:"fiscal_periods"`
	CostBackfills []CostBackfill           `json:"cost_backfills"`
	Parameters    AuditParameters          `json:"parameters"`
}

// CorrectionCount is the number of stored values the write-back changes.
func (w WriteBack) CorrectionCount() int {
	return len(w.Lines) + len(w.FiscalPeriods) + len(w.CostBackfills)
}
