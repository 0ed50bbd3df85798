package audit

import (
	"math"
	"sort"
	"time"

	"github.com/andresuchdata/invhealth/internal/domain"
)

// LayerResult carries cost-layer findings and the costs that could be backfilled.
type LayerResult struct {
	Issues     domain.IssueList
	FixedCount int
	Backfills  []domain.CostBackfill
}

// ValidateCostLayers flags missing/negative unit costs and negative quantities.
// Bad costs are backfilled from the most recent reconciled invoice line for the
// SKU; negative quantities are only reported.
func ValidateCostLayers(layers []domain.CostLayer, reconciled []domain.Invoice) LayerResult {
	res := LayerResult{Issues: domain.IssueList{}}

	for _, layer := range layers {
		if layer.UnitCostCents == nil || *layer.UnitCostCents < 0 {
			issue := domain.FifoBadCost{
				SKU:  layer.SKU,
				Lot:  layer.Lot,
				Cost: copyCents(layer.UnitCostCents),
			}
			if cost, ok := latestUnitCost(layer.SKU, reconciled); ok {
				issue.Repaired = true
				issue.RepairedCost = &cost
				res.FixedCount++
				res.Backfills = append(res.Backfills, domain.CostBackfill{
					LayerID:       layer.ID,
					SKU:           layer.SKU,
					Lot:           layer.Lot,
					UnitCostCents: cost,
				})
			}
			res.Issues = append(res.Issues, issue)
		}

		if layer.Quantity < 0 {
			res.Issues = append(res.Issues, domain.FifoNegQty{
				SKU: layer.SKU,
				Lot: layer.Lot,
				Qty: layer.Quantity,
			})
		}
	}

	return res
}

// latestUnitCost returns round(ext / qty) of the first positive-quantity line
// of sku on the most recently dated invoice. Equal dates go to the later
// invoice in slice order; negative results are skipped.
func latestUnitCost(sku string, reconciled []domain.Invoice) (int64, bool) {
	var (
		cost  int64
		at    time.Time
		found bool
	)
	for _, inv := range reconciled {
		if found && inv.Date.Before(at) {
			continue
		}
		for _, line := range inv.Lines {
			if line.SKU != sku || line.Quantity <= 0 {
				continue
			}
			c := unitCents(line)
			if c < 0 {
				continue
			}
			cost, at, found = c, inv.Date, true
			break
		}
	}
	return cost, found
}

func unitCents(line domain.InvoiceLine) int64 {
	return int64(math.Round(float64(line.ExtPriceCents) / line.Quantity))
}

func copyCents(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// DetectPriceSpikes compares each SKU's most recent unit price against the
// median of its trailing window. SKUs with a non-positive median are skipped.
func DetectPriceSpikes(reconciled []domain.Invoice, auditDay time.Time, lookbackDays int, maxDeviation float64) domain.IssueList {
	since := daysBefore(auditDay, lookbackDays)

	type window struct {
		prices []float64
		latest int64
		at     time.Time
	}
	windows := make(map[string]*window)
	order := make([]string, 0)

	for _, inv := range reconciled {
		if inv.Date.IsZero() {
			continue
		}
		day := dayOf(inv.Date)
		if day.Before(since) || day.After(auditDay) {
			continue
		}
		for _, line := range inv.Lines {
			if line.Quantity <= 0 {
				continue
			}
			w, ok := windows[line.SKU]
			if !ok {
				w = &window{}
				windows[line.SKU] = w
				order = append(order, line.SKU)
			}
			price := unitCents(line)
			w.prices = append(w.prices, float64(price))
			// invoices arrive oldest first, so the last line seen on the newest day wins
			if !day.Before(w.at) {
				w.latest = price
				w.at = day
			}
		}
	}

	sort.Strings(order)

	issues := domain.IssueList{}
	for _, sku := range order {
		w := windows[sku]
		median := Median(w.prices)
		if median <= 0 || math.IsNaN(median) {
			continue
		}
		deviation := math.Abs(float64(w.latest)-median) / median
		if deviation > maxDeviation {
			issues = append(issues, domain.PriceSpike{
				SKU:       sku,
				Latest:    w.latest,
				Median:    int64(math.Round(median)),
				Deviation: roundFloat(deviation, 4),
			})
		}
	}
	return issues
}

// DetectOrphanSKUs reports every invoice line and cost layer whose SKU is
// absent from the item master.
func DetectOrphanSKUs(items []domain.Item, reconciled []domain.Invoice, layers []domain.CostLayer) domain.IssueList {
	known := make(map[string]struct{}, len(items))
	for _, it := range items {
		known[it.SKU] = struct{}{}
	}

	issues := domain.IssueList{}
	for _, inv := range reconciled {
		for _, line := range inv.Lines {
			if _, ok := known[line.SKU]; ok {
				continue
			}
			issues = append(issues, domain.OrphanSKUInvoice{
				SKU:           line.SKU,
				InvoiceNumber: inv.InvoiceNumber,
			})
		}
	}

	for _, layer := range layers {
		if _, ok := known[layer.SKU]; ok {
			continue
		}
		issues = append(issues, domain.OrphanSKUFifo{SKU: layer.SKU, Lot: layer.Lot})
	}

	return issues
}
