// Package memory holds in-process repositories used by tests and local runs.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/andresuchdata/invhealth/internal/domain"
	"github.com/andresuchdata/invhealth/internal/repository"
)

// Store keeps an audit snapshot in memory and applies write-backs to it.
type Store struct {
	mu sync.RWMutex

	invoices   []domain.Invoice
	items      []domain.Item
	layers     []domain.CostLayer
	demand     []domain.DemandRecord
	forecast   []domain.ForecastRecord
	parameters domain.AuditParameters

	writeBacks int

	// FailWriteBack makes ApplyWriteBack return this error without touching state.
	FailWriteBack error
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{}
}

// Verify interface compliance
var _ repository.Store = (*Store)(nil)

// SeedInvoices replaces the stored invoices. Order is kept as given.
func (s *Store) SeedInvoices(invoices ...domain.Invoice) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices = make([]domain.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		s.invoices = append(s.invoices, inv.Clone())
	}
	return s
}

func (s *Store) SeedItems(items ...domain.Item) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]domain.Item(nil), items...)
	return s
}

func (s *Store) SeedCostLayers(layers ...domain.CostLayer) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layers = append([]domain.CostLayer(nil), layers...)
	return s
}

func (s *Store) SeedDemand(demand ...domain.DemandRecord) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.demand = append([]domain.DemandRecord(nil), demand...)
	return s
}

func (s *Store) SeedForecast(forecast ...domain.ForecastRecord) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forecast = append([]domain.ForecastRecord(nil), forecast...)
	return s
}

func (s *Store) SeedParameters(params domain.AuditParameters) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parameters = params
	return s
}

func (s *Store) LoadInvoices(ctx context.Context) ([]domain.Invoice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Invoice, 0, len(s.invoices))
	for _, inv := range s.invoices {
		out = append(out, inv.Clone())
	}
	return out, nil
}

func (s *Store) LoadItems(ctx context.Context) ([]domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Item{}, s.items...), nil
}

func (s *Store) LoadCostLayers(ctx context.Context) ([]domain.CostLayer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CostLayer, 0, len(s.layers))
	for _, l := range s.layers {
		if l.Quantity == 0 {
			continue
		}
		if l.UnitCostCents != nil {
			c := *l.UnitCostCents
			l.UnitCostCents = &c
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *Store) LoadDemandHistory(ctx context.Context, since time.Time) ([]domain.DemandRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.DemandRecord, 0, len(s.demand))
	for _, d := range s.demand {
		if !domain.TruncateDay(d.Date).Before(since) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Store) LoadForecast(ctx context.Context, from time.Time) ([]domain.ForecastRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ForecastRecord, 0, len(s.forecast))
	for _, f := range s.forecast {
		if !domain.TruncateDay(f.Date).Before(from) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *Store) LoadAuditParameters(ctx context.Context) (domain.AuditParameters, error) {
	if err := ctx.Err(); err != nil {
		return domain.AuditParameters{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.parameters, nil
}

func (s *Store) SaveAuditParameters(ctx context.Context, params domain.AuditParameters) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parameters = params
	return nil
}

// ApplyWriteBack validates every target first so a bad correction leaves the store untouched.
func (s *Store) ApplyWriteBack(ctx context.Context, wb domain.WriteBack) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.FailWriteBack != nil {
		return s.FailWriteBack
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	invoiceIdx := make(map[int64]int, len(s.invoices))
	for i, inv := range s.invoices {
		invoiceIdx[inv.ID] = i
	}
	layerIdx := make(map[int64]int, len(s.layers))
	for i, l := range s.layers {
		layerIdx[l.ID] = i
	}

	type lineRef struct{ inv, line int }
	lineRefs := make([]lineRef, 0, len(wb.Lines))
	for _, c := range wb.Lines {
		i, ok := invoiceIdx[c.InvoiceID]
		if !ok {
			return fmt.Errorf("invoice %d: %w", c.InvoiceID, repository.ErrNotFound)
		}
		j := lineIndex(s.invoices[i].Lines, c.LineID)
		if j < 0 {
			return fmt.Errorf("invoice line %d: %w", c.LineID, repository.ErrNotFound)
		}
		lineRefs = append(lineRefs, lineRef{i, j})
	}
	for _, c := range wb.FiscalPeriods {
		if _, ok := invoiceIdx[c.InvoiceID]; !ok {
			return fmt.Errorf("invoice %d: %w", c.InvoiceID, repository.ErrNotFound)
		}
	}
	for _, b := range wb.CostBackfills {
		if _, ok := layerIdx[b.LayerID]; !ok {
			return fmt.Errorf("cost layer %d: %w", b.LayerID, repository.ErrNotFound)
		}
	}

	for k, c := range wb.Lines {
		ref := lineRefs[k]
		s.invoices[ref.inv].Lines[ref.line].ExtPriceCents = c.ExtPriceCents
	}
	for _, c := range wb.FiscalPeriods {
		s.invoices[invoiceIdx[c.InvoiceID]].FiscalPeriod = c.FiscalPeriod
	}
	for _, b := range wb.CostBackfills {
		cost := b.UnitCostCents
		s.layers[layerIdx[b.LayerID]].UnitCostCents = &cost
	}
	s.parameters = wb.Parameters
	s.writeBacks++

	return nil
}

// WriteBackCount reports how many write-backs have been applied.
func (s *Store) WriteBackCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writeBacks
}

func lineIndex(lines []domain.InvoiceLine, id int64) int {
	for i, l := range lines {
		if l.ID == id {
			return i
		}
	}
	return -1
}

// RunStore is an in-memory audit run history.
type RunStore struct {
	mu      sync.RWMutex
	runs    []domain.AuditRun
	reports map[string]*domain.AuditReport
}

func NewRunStore() *RunStore {
	return &RunStore{reports: make(map[string]*domain.AuditReport)}
}

var _ repository.RunRepository = (*RunStore)(nil)

func (r *RunStore) CreateRun(ctx context.Context, run *domain.AuditRun) error {
	if run == nil || run.ID == "" {
		return errors.New("run id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = domain.RunStatusRunning
	}
	r.runs = append(r.runs, *run)
	return nil
}

func (r *RunStore) CompleteRun(ctx context.Context, id string, report *domain.AuditReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run := r.find(id)
	if run == nil {
		return fmt.Errorf("audit run %s: %w", id, repository.ErrNotFound)
	}
	now := time.Now().UTC()
	score := report.Summary.HealthScore
	run.Status = domain.RunStatusCompleted
	run.CompletedAt = &now
	run.HealthScore = &score
	r.reports[id] = report
	return nil
}

func (r *RunStore) FailRun(ctx context.Context, id string, cause error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run := r.find(id)
	if run == nil {
		return fmt.Errorf("audit run %s: %w", id, repository.ErrNotFound)
	}
	now := time.Now().UTC()
	msg := cause.Error()
	run.Status = domain.RunStatusFailed
	run.CompletedAt = &now
	run.ErrorMessage = &msg
	return nil
}

// LatestReport returns the report of the most recently started completed run.
func (r *RunStore) LatestReport(ctx context.Context) (*domain.AuditReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.runs) - 1; i >= 0; i-- {
		if r.runs[i].Status != domain.RunStatusCompleted {
			continue
		}
		if report, ok := r.reports[r.runs[i].ID]; ok {
			return report, nil
		}
	}
	return nil, repository.ErrNotFound
}

// ReportByDate returns the newest completed report for the given audit day.
func (r *RunStore) ReportByDate(ctx context.Context, auditDate time.Time) (*domain.AuditReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	want := domain.FormatDate(auditDate)
	for i := len(r.runs) - 1; i >= 0; i-- {
		run := r.runs[i]
		if run.Status != domain.RunStatusCompleted || domain.FormatDate(run.AuditDate) != want {
			continue
		}
		if report, ok := r.reports[run.ID]; ok {
			return report, nil
		}
	}
	return nil, repository.ErrNotFound
}

// ListRuns returns runs newest first.
func (r *RunStore) ListRuns(ctx context.Context, limit int) ([]domain.AuditRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.AuditRun, 0, len(r.runs))
	for i := len(r.runs) - 1; i >= 0; i-- {
		out = append(out, r.runs[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *RunStore) find(id string) *domain.AuditRun {
	for i := range r.runs {
		if r.runs[i].ID == id {
			return &r.runs[i]
		}
	}
	return nil
}
