package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/invhealth/internal/domain"
	"github.com/andresuchdata/invhealth/internal/repository"
)

// Store reads the audit snapshot from the operational tables and owns the
// audit_parameters row.
type Store struct {
	db *DB
}

func NewStore(db *DB) *Store {
	return &Store{db: db}
}

var _ repository.Store = (*Store)(nil)

type invoiceRow struct {
	ID            int64          `db:"id"`
	Vendor        string         `db:"vendor"`
	InvoiceNumber string         `db:"invoice_number"`
	InvoiceDate   sql.NullString `db:"invoice_date"`
	Total         sql.NullString `db:"total"`
	FiscalPeriod  sql.NullString `db:"fiscal_period"`
}

type lineRow struct {
	ID        int64          `db:"id"`
	InvoiceID int64          `db:"invoice_id"`
	LineNo    int            `db:"line_no"`
	SKU       string         `db:"sku"`
	Quantity  float64        `db:"quantity"`
	UnitPrice sql.NullString `db:"unit_price"`
	ExtPrice  sql.NullString `db:"ext_price"`
}

// LoadInvoices returns invoices oldest first with lines in stored order.
// invoice_date is free text, so ordering happens after parsing.
func (s *Store) LoadInvoices(ctx context.Context) ([]domain.Invoice, error) {
	var rows []invoiceRow
	query := `
		SELECT id, vendor, invoice_number, invoice_date::text AS invoice_date,
		       total::text AS total, fiscal_period
		FROM invoices
		ORDER BY id
	`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("error loading invoices: %w", err)
	}

	var lines []lineRow
	lineQuery := `
		SELECT id, invoice_id, line_no, sku, COALESCE(quantity, 0) AS quantity,
		       unit_price::text AS unit_price, ext_price::text AS ext_price
		FROM invoice_lines
		ORDER BY invoice_id, line_no, id
	`
	if err := s.db.SelectContext(ctx, &lines, lineQuery); err != nil {
		return nil, fmt.Errorf("error loading invoice lines: %w", err)
	}

	byInvoice := make(map[int64][]domain.InvoiceLine, len(rows))
	for _, l := range lines {
		byInvoice[l.InvoiceID] = append(byInvoice[l.InvoiceID], domain.InvoiceLine{
			ID:             l.ID,
			InvoiceID:      l.InvoiceID,
			LineNo:         l.LineNo,
			SKU:            l.SKU,
			Quantity:       l.Quantity,
			UnitPriceCents: moneyCents(l.UnitPrice),
			ExtPriceCents:  moneyCents(l.ExtPrice),
		})
	}

	invoices := make([]domain.Invoice, 0, len(rows))
	for _, r := range rows {
		invoices = append(invoices, domain.Invoice{
			ID:            r.ID,
			Vendor:        r.Vendor,
			InvoiceNumber: r.InvoiceNumber,
			Date:          parseDate(r.InvoiceDate),
			TotalCents:    moneyCents(r.Total),
			FiscalPeriod:  r.FiscalPeriod.String,
			Lines:         byInvoice[r.ID],
		})
	}
	sortInvoices(invoices)

	return invoices, nil
}

func (s *Store) LoadItems(ctx context.Context) ([]domain.Item, error) {
	var items []domain.Item
	query := `
		SELECT sku, name, COALESCE(unit_of_measure, '') AS unit_of_measure,
		       COALESCE(category, '') AS category, COALESCE(lead_time_days, 0) AS lead_time_days
		FROM items
		WHERE active
		ORDER BY sku
	`
	if err := s.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("error loading items: %w", err)
	}
	return items, nil
}

type layerRow struct {
	ID           int64          `db:"id"`
	SKU          string         `db:"sku"`
	Lot          string         `db:"lot"`
	Quantity     float64        `db:"quantity"`
	UnitCost     sql.NullString `db:"unit_cost"`
	ReceivedDate sql.NullTime   `db:"received_date"`
}

// LoadCostLayers returns every non-empty layer. Negative layers are included
// so they can be reported.
func (s *Store) LoadCostLayers(ctx context.Context) ([]domain.CostLayer, error) {
	var rows []layerRow
	query := `
		SELECT id, sku, COALESCE(lot, '') AS lot, quantity,
		       unit_cost::text AS unit_cost, received_date
		FROM fifo_layers
		WHERE quantity <> 0
		ORDER BY received_date NULLS FIRST, id
	`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("error loading cost layers: %w", err)
	}

	layers := make([]domain.CostLayer, 0, len(rows))
	for _, r := range rows {
		layer := domain.CostLayer{
			ID:            r.ID,
			SKU:           r.SKU,
			Lot:           r.Lot,
			Quantity:      r.Quantity,
			UnitCostCents: nullableCents(r.UnitCost),
		}
		if r.ReceivedDate.Valid {
			layer.ReceivedDate = r.ReceivedDate.Time
		}
		layers = append(layers, layer)
	}
	return layers, nil
}

func (s *Store) LoadDemandHistory(ctx context.Context, since time.Time) ([]domain.DemandRecord, error) {
	var demand []domain.DemandRecord
	query := `
		SELECT sku, demand_date, quantity_out
		FROM demand_history
		WHERE demand_date >= $1
		ORDER BY sku, demand_date
	`
	if err := s.db.SelectContext(ctx, &demand, query, since); err != nil {
		return nil, fmt.Errorf("error loading demand history: %w", err)
	}
	return demand, nil
}

func (s *Store) LoadForecast(ctx context.Context, from time.Time) ([]domain.ForecastRecord, error) {
	var forecast []domain.ForecastRecord
	query := `
		SELECT sku, forecast_date, forecasted_quantity
		FROM forecast_cache
		WHERE forecast_date >= $1
		ORDER BY sku, forecast_date
	`
	if err := s.db.SelectContext(ctx, &forecast, query, from); err != nil {
		return nil, fmt.Errorf("error loading forecast: %w", err)
	}
	return forecast, nil
}

// LoadAuditParameters returns the zero value until the first run saves the row.
func (s *Store) LoadAuditParameters(ctx context.Context) (domain.AuditParameters, error) {
	var params domain.AuditParameters
	query := `
		SELECT last_training_date, last_audit_date, new_invoices_since_train
		FROM audit_parameters
		WHERE id = 1
	`
	err := s.db.GetContext(ctx, &params, query)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AuditParameters{}, nil
	}
	if err != nil {
		return domain.AuditParameters{}, fmt.Errorf("error loading audit parameters: %w", err)
	}
	return params, nil
}

func (s *Store) SaveAuditParameters(ctx context.Context, params domain.AuditParameters) error {
	if _, err := s.db.ExecContext(ctx, upsertParametersQuery,
		params.LastTrainingDate, params.LastAuditDate, params.NewInvoicesSinceTrain,
	); err != nil {
		return fmt.Errorf("error saving audit parameters: %w", err)
	}
	return nil
}

const upsertParametersQuery = `
	INSERT INTO audit_parameters (id, last_training_date, last_audit_date, new_invoices_since_train, updated_at)
	VALUES (1, $1, $2, $3, NOW())
	ON CONFLICT (id) DO UPDATE SET
		last_training_date = EXCLUDED.last_training_date,
		last_audit_date = EXCLUDED.last_audit_date,
		new_invoices_since_train = EXCLUDED.new_invoices_since_train,
		updated_at = NOW()
`
