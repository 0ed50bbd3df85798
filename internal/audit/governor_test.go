package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/invhealth/internal/domain"
)

func TestGovernRetrain_NeverTrainedCountsEverything(t *testing.T) {
	invoices := []domain.Invoice{
		invoice(1, "ACME", "1", "2024-06-01"),
		invoice(2, "ACME", "2", "2025-01-01"),
	}
	auditDay := day("2025-03-01")

	got := GovernRetrain(invoices, domain.AuditParameters{}, auditDay, 2)

	assert.True(t, got.ShouldRetrain)
	assert.Equal(t, 2, got.NewInvoiceCount)
	assert.Equal(t, 2, got.Parameters.NewInvoicesSinceTrain)
	require.NotNil(t, got.Parameters.LastAuditDate)
	assert.Equal(t, auditDay, *got.Parameters.LastAuditDate)
	assert.Nil(t, got.Parameters.LastTrainingDate)
}

func TestGovernRetrain_OnlyInvoicesAfterTraining(t *testing.T) {
	trained := day("2025-02-01")
	invoices := []domain.Invoice{
		invoice(1, "ACME", "1", "2025-01-15"),
		invoice(2, "ACME", "2", "2025-02-01"),
		invoice(3, "ACME", "3", "2025-02-10"),
	}
	params := domain.AuditParameters{LastTrainingDate: &trained, NewInvoicesSinceTrain: 99}

	got := GovernRetrain(invoices, params, day("2025-03-01"), 20)

	assert.False(t, got.ShouldRetrain)
	assert.Equal(t, 1, got.NewInvoiceCount)
	assert.Equal(t, &trained, got.Parameters.LastTrainingDate)
	assert.Equal(t, 99, params.NewInvoicesSinceTrain, "input parameters are not modified")
}

func TestGovernRetrain_ThresholdIsInclusive(t *testing.T) {
	invoices := []domain.Invoice{invoice(1, "ACME", "1", "2025-02-10")}

	assert.True(t, GovernRetrain(invoices, domain.AuditParameters{}, day("2025-03-01"), 1).ShouldRetrain)
	assert.True(t, GovernRetrain(nil, domain.AuditParameters{}, day("2025-03-01"), 0).ShouldRetrain)
}
