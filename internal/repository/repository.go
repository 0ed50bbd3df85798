package repository

import (
	"context"
	"errors"
	"time"

	"github.com/andresuchdata/invhealth/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

type InvoiceRepository interface {
	// LoadInvoices returns every invoice with its lines, oldest first.
	LoadInvoices(ctx context.Context) ([]domain.Invoice, error)
}

type ItemRepository interface {
	LoadItems(ctx context.Context) ([]domain.Item, error)
}

type CostLayerRepository interface {
	// LoadCostLayers returns the open FIFO layers, including negative ones.
	LoadCostLayers(ctx context.Context) ([]domain.CostLayer, error)
}

type DemandRepository interface {
	LoadDemandHistory(ctx context.Context, since time.Time) ([]domain.DemandRecord, error)
}

type ForecastRepository interface {
	LoadForecast(ctx context.Context, from time.Time) ([]domain.ForecastRecord, error)
}

type ParametersRepository interface {
	LoadAuditParameters(ctx context.Context) (domain.AuditParameters, error)
	SaveAuditParameters(ctx context.Context, params domain.AuditParameters) error
}

type WriteBackRepository interface {
	// ApplyWriteBack persists corrections and parameters atomically.
	ApplyWriteBack(ctx context.Context, wb domain.WriteBack) error
}

// Store is everything an audit run reads from and writes to.
type Store interface {
	InvoiceRepository
	ItemRepository
	CostLayerRepository
	DemandRepository
	ForecastRepository
	ParametersRepository
	WriteBackRepository
}

// RunRepository keeps the history of audit runs and their reports.
type RunRepository interface {
	CreateRun(ctx context.Context, run *domain.AuditRun) error
	CompleteRun(ctx context.Context, id string, report *domain.AuditReport) error
	FailRun(ctx context.Context, id string, cause error) error
	LatestReport(ctx context.Context) (*domain.AuditReport, error)
	ReportByDate(ctx context.Context, auditDate time.Time) (*domain.AuditReport, error)
	ListRuns(ctx context.Context, limit int) ([]domain.AuditRun, error)
}
