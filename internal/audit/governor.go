package audit

import (
	"time"

	"github.com/andresuchdata/invhealth/internal/domain"
)

// RetrainDecision is the governor's verdict plus the bookkeeping to persist.
type RetrainDecision struct {
	ShouldRetrain   bool
	NewInvoiceCount int
	Parameters      domain.AuditParameters
}

// GovernRetrain counts reconciled invoices dated after the last training date
// and allows a retrain once the count reaches minNew. The returned parameters
// always carry the fresh count and audit date; the training date is untouched.
func GovernRetrain(reconciled []domain.Invoice, params domain.AuditParameters, auditDay time.Time, minNew int) RetrainDecision {
	count := 0
	for _, inv := range reconciled {
		if params.LastTrainingDate == nil {
			count++
			continue
		}
		if !inv.Date.IsZero() && dayOf(inv.Date).After(dayOf(*params.LastTrainingDate)) {
			count++
		}
	}

	next := params
	next.NewInvoicesSinceTrain = count
	day := auditDay
	next.LastAuditDate = &day

	return RetrainDecision{
		ShouldRetrain:   count >= minNew,
		NewInvoiceCount: count,
		Parameters:      next,
	}
}
