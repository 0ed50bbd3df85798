package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/invhealth/internal/domain"
	"github.com/andresuchdata/invhealth/internal/repository/memory"
)

func fixtureStore() *memory.Store {
	dup1 := invoice(1, "ACME", "1001", "2025-01-05", line("A", 1, 500))
	dup2 := invoice(2, "ACME", "1001", "2025-01-05", line("A", 1, 500))

	drift := invoice(3, "ACME", "1002", "2025-02-01", line("A", 2, 1000), line("X", 2, 400))
	drift.TotalCents = 1401
	drift.FiscalPeriod = ""

	imbalance := invoice(4, "Globex", "77", "2025-02-15", line("A", 1, 500))
	imbalance.TotalCents = 900

	return memory.NewStore().
		SeedInvoices(dup1, dup2, drift, imbalance).
		SeedItems(
			domain.Item{SKU: "A", Name: "Bolt"},
			domain.Item{SKU: "B", Name: "Nut"},
			domain.Item{SKU: "X", Name: "Washer"},
		).
		SeedCostLayers(
			domain.CostLayer{ID: 1, SKU: "X", Lot: "L1", Quantity: 3, UnitCostCents: cents(-5)},
			domain.CostLayer{ID: 2, SKU: "A", Lot: "L2", Quantity: -2, UnitCostCents: cents(100)},
			domain.CostLayer{ID: 3, SKU: "C", Lot: "L9", Quantity: 1, UnitCostCents: cents(100)},
		).
		SeedForecast(domain.ForecastRecord{SKU: "B", Date: day("2025-03-02"), ForecastedQuantity: 5})
}

func fixtureConfig() Config {
	cfg := DefaultConfig()
	cfg.AuditDate = day("2025-03-01")
	return cfg
}

func TestRunHealthAudit_Report(t *testing.T) {
	store := fixtureStore()
	cfg := fixtureConfig()
	cfg.Persist = false

	report, err := RunHealthAudit(context.Background(), store, cfg)
	require.NoError(t, err)

	types := make([]domain.IssueType, 0, len(report.Issues))
	for _, issue := range report.Issues {
		types = append(types, issue.Type())
	}
	assert.Equal(t, []domain.IssueType{
		domain.IssueDupInvoice,
		domain.IssueInvoiceImbalance,
		domain.IssueFifoBadCost,
		domain.IssueFifoNegQty,
		domain.IssueOrphanSKUFifo,
	}, types)

	require.Len(t, report.StockoutRisks, 1)
	assert.Equal(t, "B", report.StockoutRisks[0].SKU)

	s := report.Summary
	assert.Equal(t, 85, s.HealthScore)
	assert.Equal(t, domain.StatusMonitor, s.Status)
	assert.Equal(t, 3, s.FixedMutations)
	assert.False(t, s.ShouldRetrain)
	assert.Equal(t, 3, s.NewInvoicesSinceTrain)
	assert.Equal(t, 1, s.StockoutRiskCount)
	assert.Equal(t, 3, s.TotalItems)
	assert.Equal(t, 3, s.TotalInvoices)
	assert.Equal(t, "2025-03-01", s.AuditDate)
	assert.Equal(t, 1, s.IssueCounts[domain.IssueFifoBadCost])
	assert.Equal(t, 0, s.IssueCounts[domain.IssuePriceSpike])

	assert.Zero(t, store.WriteBackCount(), "dry run writes nothing")
}

func TestEngine_ComputeIsIdempotent(t *testing.T) {
	store := fixtureStore()
	cfg := fixtureConfig()

	snapshot, err := LoadSnapshot(context.Background(), store, cfg, cfg.AuditDate)
	require.NoError(t, err)

	engine := NewEngine(cfg)
	first := engine.Compute(snapshot)
	second := engine.Compute(snapshot)

	assert.Equal(t, first.Report.Issues, second.Report.Issues)
	assert.Equal(t, first.Report.StockoutRisks, second.Report.StockoutRisks)
	assert.Equal(t, first.Report.Summary, second.Report.Summary)
	assert.Equal(t, first.WriteBack, second.WriteBack)
}

func TestRunHealthAudit_PersistAppliesCorrections(t *testing.T) {
	store := fixtureStore()
	ctx := context.Background()

	first, err := RunHealthAudit(ctx, store, fixtureConfig())
	require.NoError(t, err)
	assert.Equal(t, 3, first.Summary.FixedMutations)
	assert.Equal(t, 1, store.WriteBackCount())

	params, err := store.LoadAuditParameters(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, params.NewInvoicesSinceTrain)
	require.NotNil(t, params.LastAuditDate)
	assert.Equal(t, day("2025-03-01"), *params.LastAuditDate)

	second, err := RunHealthAudit(ctx, store, fixtureConfig())
	require.NoError(t, err)
	assert.Zero(t, second.Summary.FixedMutations, "corrections are not repeated")
	assert.Zero(t, second.Summary.IssueCounts[domain.IssueFifoBadCost])
	assert.Equal(t, 1, second.Summary.IssueCounts[domain.IssueDupInvoice])
}

func TestRunHealthAudit_InvalidConfig(t *testing.T) {
	cfg := fixtureConfig()
	cfg.TargetServiceLevel = 1.5

	_, err := RunHealthAudit(context.Background(), fixtureStore(), cfg)

	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunHealthAudit_WriteBackFailure(t *testing.T) {
	store := fixtureStore()
	boom := errors.New("connection reset")
	store.FailWriteBack = boom

	report, err := RunHealthAudit(context.Background(), store, fixtureConfig())

	assert.Nil(t, report)
	assert.ErrorIs(t, err, boom)
}

func TestRunHealthAudit_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunHealthAudit(ctx, fixtureStore(), fixtureConfig())

	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_AuditDayDefaultsToClock(t *testing.T) {
	cfg := DefaultConfig()
	engine := NewEngine(cfg).WithClock(func() time.Time {
		return time.Date(2025, 4, 2, 18, 45, 0, 0, time.UTC)
	})

	assert.Equal(t, day("2025-04-02"), engine.AuditDay())
}

func TestEngine_RunResolvesAuditDayOnce(t *testing.T) {
	ticks := []time.Time{
		time.Date(2025, 3, 1, 23, 59, 59, 0, time.UTC),
		time.Date(2025, 3, 2, 0, 0, 1, 0, time.UTC),
	}
	calls := 0
	clock := func() time.Time {
		tick := ticks[min(calls, len(ticks)-1)]
		calls++
		return tick
	}

	cfg := DefaultConfig()
	cfg.Persist = false
	res, err := NewEngine(cfg).WithClock(clock).Run(context.Background(), fixtureStore())
	require.NoError(t, err)

	assert.Equal(t, "2025-03-01", res.Report.Summary.AuditDate)
	assert.Equal(t, 1, calls)
}

func TestAuditReport_JSONRoundTrip(t *testing.T) {
	cfg := fixtureConfig()
	cfg.Persist = false
	report, err := RunHealthAudit(context.Background(), fixtureStore(), cfg)
	require.NoError(t, err)

	data, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"FIFO_BAD_COST"`)
	assert.Contains(t, string(data), `"repaired_cost":200`)

	var decoded domain.AuditReport
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, *report, decoded)
}
