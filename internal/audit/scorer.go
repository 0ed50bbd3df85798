package audit

import (
	"github.com/andresuchdata/invhealth/internal/domain"
)

// deduction is a per-unit penalty with a ceiling.
type deduction struct {
	perUnit int
	cap     int
}

func (d deduction) apply(n int) int {
	return min(n*d.perUnit, d.cap)
}

var (
	dupDeduction       = deduction{perUnit: 3, cap: 30}
	imbalanceDeduction = deduction{perUnit: 5, cap: 30}
	negQtyDeduction    = deduction{perUnit: 4, cap: 20}
	spikeDeduction     = deduction{perUnit: 2, cap: 10}
	orphanDeduction    = deduction{perUnit: 2, cap: 10}
	stockoutDeduction  = deduction{perUnit: 1, cap: 15}
)

// stockoutsPerPoint is how many stockout risks cost one point (rounded up).
const stockoutsPerPoint = 25

// ScoreHealth turns issue and risk counts into a 0-100 score and its status.
func ScoreHealth(counts map[domain.IssueType]int, stockoutRisks int) (int, domain.HealthStatus) {
	score := 100
	score -= dupDeduction.apply(counts[domain.IssueDupInvoice])
	score -= imbalanceDeduction.apply(counts[domain.IssueInvoiceImbalance])
	score -= negQtyDeduction.apply(counts[domain.IssueFifoNegQty])
	score -= spikeDeduction.apply(counts[domain.IssuePriceSpike])
	score -= orphanDeduction.apply(counts[domain.IssueOrphanSKUInvoice] + counts[domain.IssueOrphanSKUFifo])
	score -= stockoutDeduction.apply((stockoutRisks + stockoutsPerPoint - 1) / stockoutsPerPoint)

	score = max(0, min(100, score))
	return score, StatusFor(score)
}

// StatusFor maps a score to its status bucket.
func StatusFor(score int) domain.HealthStatus {
	switch {
	case score >= 90:
		return domain.StatusHealthy
	case score >= 75:
		return domain.StatusMonitor
	default:
		return domain.StatusNeedsAttention
	}
}
