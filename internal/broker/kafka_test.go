package broker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/invhealth/internal/domain"
)

func TestNewRetrainRequested(t *testing.T) {
	trained := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	report := &domain.AuditReport{Summary: domain.AuditSummary{
		AuditDate:             "2025-03-01",
		NewInvoicesSinceTrain: 42,
		HealthScore:           88,
		ShouldRetrain:         true,
	}}
	at := time.Date(2025, 3, 1, 7, 30, 0, 0, time.FixedZone("WIB", 7*3600))

	ev := NewRetrainRequested("evt-1", "run-1", report, domain.AuditParameters{LastTrainingDate: &trained}, at)

	assert.Equal(t, EventTypeRetrainRequested, ev.EventType)
	assert.Equal(t, "run-1", ev.RunID)
	assert.Equal(t, 42, ev.NewInvoiceCount)
	assert.Equal(t, "2025-01-15", ev.LastTrainingDate)
	assert.Equal(t, time.UTC, ev.OccurredAt.Location())
	assert.Equal(t, "audit-2025-03-01", ev.Key())
}

func TestEncode(t *testing.T) {
	ev := RetrainRequested{EventID: "evt-1", EventType: EventTypeRetrainRequested, AuditDate: "2025-03-01"}

	msg, err := encode(ev.Key(), ev)
	require.NoError(t, err)
	assert.Equal(t, "audit-2025-03-01", string(msg.Key))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "RetrainRequested", decoded["event_type"])
	assert.NotContains(t, decoded, "last_training_date")
}

func TestNoopPublisher(t *testing.T) {
	p := NewNoopPublisher()
	assert.NoError(t, p.PublishRetrainRequested(context.Background(), RetrainRequested{}))
	assert.NoError(t, p.Close())
}
