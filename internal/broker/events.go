package broker

import (
	"time"

	"github.com/andresuchdata/invhealth/internal/domain"
)

const EventTypeRetrainRequested = "RetrainRequested"

// RetrainRequested tells the forecasting side that enough new invoices have
// arrived since the last training.
type RetrainRequested struct {
	EventID          string    `json:"event_id"`
	EventType        string    `json:"event_type"`
	RunID            string    `json:"run_id"`
	AuditDate        string    `json:"audit_date"`
	NewInvoiceCount  int       `json:"new_invoice_count"`
	LastTrainingDate string    `json:"last_training_date,omitempty"`
	HealthScore      int       `json:"health_score"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// NewRetrainRequested builds the event for a completed run.
func NewRetrainRequested(eventID, runID string, report *domain.AuditReport, params domain.AuditParameters, at time.Time) RetrainRequested {
	ev := RetrainRequested{
		EventID:         eventID,
		EventType:       EventTypeRetrainRequested,
		RunID:           runID,
		AuditDate:       report.Summary.AuditDate,
		NewInvoiceCount: report.Summary.NewInvoicesSinceTrain,
		HealthScore:     report.Summary.HealthScore,
		OccurredAt:      at.UTC(),
	}
	if params.LastTrainingDate != nil {
		ev.LastTrainingDate = domain.FormatDate(*params.LastTrainingDate)
	}
	return ev
}

// Key partitions events by audit date.
func (e RetrainRequested) Key() string {
	return "audit-" + e.AuditDate
}
