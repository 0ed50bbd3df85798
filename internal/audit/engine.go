package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/invhealth/internal/domain"
	"github.com/andresuchdata/invhealth/internal/repository"
)

// Engine computes audit reports from snapshots. It holds no state between runs.
type Engine struct {
	cfg Config
	now func() time.Time
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg, now: time.Now}
}

// WithClock replaces the clock used when the config carries no audit date.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// AuditDay is the UTC calendar day every window is anchored to.
func (e *Engine) AuditDay() time.Time {
	return e.cfg.auditDay(e.now)
}

// Compute runs every check over the snapshot. The snapshot is not modified.
func (e *Engine) Compute(s Snapshot) Result {
	return e.compute(s, e.AuditDay())
}

func (e *Engine) compute(s Snapshot, day time.Time) Result {
	// 1. Deduplicate, repair drift, normalize fiscal periods
	rec := Reconcile(s.Invoices)

	// 2. Cost layers against the reconciled invoices
	layers := ValidateCostLayers(s.CostLayers, rec.Reconciled)

	// 3. Price anomalies and master-data gaps
	spikes := DetectPriceSpikes(rec.Reconciled, day, e.cfg.PriceLookbackDays, e.cfg.MaxPriceDeviation)
	orphans := DetectOrphanSKUs(s.Items, rec.Reconciled, s.CostLayers)

	// 4. Stockout risk
	calc := NewStockoutCalculator(e.cfg, day, s.CostLayers, s.Demand, s.Forecast)
	risks := AssessStockoutRisk(s.Items, calc)

	// 5. Retrain governance
	decision := GovernRetrain(rec.Reconciled, s.Parameters, day, e.cfg.MinNewInvoicesForRetrain)

	issues := make(domain.IssueList, 0, len(rec.Issues)+len(layers.Issues)+len(spikes)+len(orphans))
	issues = append(issues, rec.Issues...)
	issues = append(issues, layers.Issues...)
	issues = append(issues, spikes...)
	issues = append(issues, orphans...)

	// 6. Score and assemble
	counts := issues.CountByType()
	score, status := ScoreHealth(counts, len(risks))

	report := &domain.AuditReport{
		Summary: domain.AuditSummary{
			HealthScore:           score,
			Status:                status,
			FixedMutations:        rec.FixedCount + layers.FixedCount,
			ShouldRetrain:         decision.ShouldRetrain,
			StockoutRiskCount:     len(risks),
			TotalItems:            len(s.Items),
			TotalInvoices:         len(rec.Reconciled),
			NewInvoicesSinceTrain: decision.NewInvoiceCount,
			IssueCounts:           counts,
			AuditDate:             domain.FormatDate(day),
		},
		Issues:        issues,
		StockoutRisks: risks,
	}

	return Result{
		Report: report,
		WriteBack: domain.WriteBack{
			Lines:         rec.Lines,
			FiscalPeriods: rec.FiscalPeriods,
			CostBackfills: layers.Backfills,
			Parameters:    decision.Parameters,
		},
	}
}

// LoadSnapshot reads every input of a run concurrently.
func LoadSnapshot(ctx context.Context, store repository.Store, cfg Config, day time.Time) (Snapshot, error) {
	var s Snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		invoices, err := store.LoadInvoices(gctx)
		if err != nil {
			return fmt.Errorf("failed to load invoices: %w", err)
		}
		s.Invoices = invoices
		return nil
	})
	g.Go(func() error {
		items, err := store.LoadItems(gctx)
		if err != nil {
			return fmt.Errorf("failed to load items: %w", err)
		}
		s.Items = items
		return nil
	})
	g.Go(func() error {
		layers, err := store.LoadCostLayers(gctx)
		if err != nil {
			return fmt.Errorf("failed to load cost layers: %w", err)
		}
		s.CostLayers = layers
		return nil
	})
	g.Go(func() error {
		demand, err := store.LoadDemandHistory(gctx, daysBefore(day, cfg.DemandLookbackDays))
		if err != nil {
			return fmt.Errorf("failed to load demand history: %w", err)
		}
		s.Demand = demand
		return nil
	})
	g.Go(func() error {
		forecast, err := store.LoadForecast(gctx, day)
		if err != nil {
			return fmt.Errorf("failed to load forecast: %w", err)
		}
		s.Forecast = forecast
		return nil
	})
	g.Go(func() error {
		params, err := store.LoadAuditParameters(gctx)
		if err != nil {
			return fmt.Errorf("failed to load audit parameters: %w", err)
		}
		s.Parameters = params
		return nil
	})

	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// RunHealthAudit loads a snapshot, computes the report and, unless this is a
// dry run, writes corrections and parameters back in one transaction.
func RunHealthAudit(ctx context.Context, store repository.Store, cfg Config) (*domain.AuditReport, error) {
	res, err := NewEngine(cfg).Run(ctx, store)
	if err != nil {
		return nil, err
	}
	return res.Report, nil
}

// Run is RunHealthAudit with the write-back kept on the result.
func (e *Engine) Run(ctx context.Context, store repository.Store) (Result, error) {
	if err := e.cfg.Validate(); err != nil {
		return Result{}, err
	}

	day := e.AuditDay()
	logger := log.With().Str("component", "audit").Str("audit_date", domain.FormatDate(day)).Logger()

	snapshot, err := LoadSnapshot(ctx, store, e.cfg, day)
	if err != nil {
		return Result{}, err
	}
	logger.Debug().
		Int("invoices", len(snapshot.Invoices)).
		Int("items", len(snapshot.Items)).
		Int("cost_layers", len(snapshot.CostLayers)).
		Msg("Snapshot loaded")

	// the day that picked the snapshot windows also anchors the report
	res := e.compute(snapshot, day)

	if !e.cfg.Persist {
		logger.Info().Int("corrections", res.WriteBack.CorrectionCount()).Msg("Dry run, skipping write-back")
		return res, nil
	}

	if err := store.ApplyWriteBack(ctx, res.WriteBack); err != nil {
		return Result{}, fmt.Errorf("failed to apply write-back: %w", err)
	}

	logger.Info().
		Int("health_score", res.Report.Summary.HealthScore).
		Int("issues", len(res.Report.Issues)).
		Int("fixed_mutations", res.Report.Summary.FixedMutations).
		Msg("Audit completed")

	return res, nil
}
