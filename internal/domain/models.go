package domain

import "time"

// DateLayout is the calendar-date layout used for keys, reports and filenames.
const DateLayout = "2006-01-02"

// Invoice is a purchasing record with its line items.
// Date is the zero time when the stored value could not be parsed.
type Invoice struct {
	ID            int64         `json:"id" db:"id"`
	Vendor        string        `json:"vendor" db:"vendor"`
	InvoiceNumber string        `json:"invoice_number" db:"invoice_number"`
	Date          time.Time     `json:"date" db:"invoice_date"`
	TotalCents    int64         `json:"total_cents" db:"total_cents"`
	FiscalPeriod  string        `json:"fiscal_period" db:"fiscal_period"`
	Lines         []InvoiceLine `json:"lines" db:"-"`
}

// Key returns the identity key of the invoice.
func (inv Invoice) Key() InvoiceKey {
	return InvoiceKey{
		Vendor:        inv.Vendor,
		InvoiceNumber: inv.InvoiceNumber,
		Date:          FormatDate(inv.Date),
	}
}

// Clone returns a deep copy so corrections never touch the loaded snapshot.
func (inv Invoice) Clone() Invoice {
	out := inv
	out.Lines = append([]InvoiceLine(nil), inv.Lines...)
	return out
}

// LineSumCents is the sum of the extended prices of all lines.
func (inv Invoice) LineSumCents() int64 {
	var sum int64
	for _, l := range inv.Lines {
		sum += l.ExtPriceCents
	}
	return sum
}

// InvoiceKey identifies an invoice across vendors.
type InvoiceKey struct {
	Vendor        string
	InvoiceNumber string
	Date          string
}

// InvoiceLine is a single purchased SKU on an invoice.
type InvoiceLine struct {
	ID             int64   `json:"id" db:"id"`
	InvoiceID      int64   `json:"invoice_id" db:"invoice_id"`
	LineNo         int     `json:"line_no" db:"line_no"`
	SKU            string  `json:"sku" db:"sku"`
	Quantity       float64 `json:"quantity" db:"quantity"`
	UnitPriceCents int64   `json:"unit_price_cents" db:"unit_price_cents"`
	ExtPriceCents  int64   `json:"ext_price_cents" db:"ext_price_cents"`
}

// Item is an active entry of the item master.
type Item struct {
	SKU           string `json:"sku" db:"sku"`
	Name          string `json:"name" db:"name"`
	UnitOfMeasure string `json:"unit_of_measure" db:"unit_of_measure"`
	Category      string `json:"category" db:"category"`
	LeadTimeDays  int    `json:"lead_time_days" db:"lead_time_days"` // 0 when unspecified
}

// CostLayer is an on-hand parcel of a SKU received at one unit cost.
type CostLayer struct {
	ID            int64     `json:"id" db:"id"`
	SKU           string    `json:"sku" db:"sku"`
	Lot           string    `json:"lot" db:"lot"`
	Quantity      float64   `json:"quantity" db:"quantity"`
	UnitCostCents *int64    `json:"unit_cost_cents" db:"unit_cost_cents"`
	ReceivedDate  time.Time `json:"received_date" db:"received_date"`
}

// DemandRecord is historical consumption of a SKU on one day.
type DemandRecord struct {
	SKU         string    `json:"sku" db:"sku"`
	Date        time.Time `json:"date" db:"demand_date"`
	QuantityOut float64   `json:"quantity_out" db:"quantity_out"`
}

// ForecastRecord is expected consumption of a SKU on one day.
type ForecastRecord struct {
	SKU                string    `json:"sku" db:"sku"`
	Date               time.Time `json:"date" db:"forecast_date"`
	ForecastedQuantity float64   `json:"forecasted_quantity" db:"forecasted_quantity"`
}

// AuditParameters is the bookkeeping record carried across audit runs.
type AuditParameters struct {
	LastTrainingDate      *time.Time `json:"last_training_date" db:"last_training_date"`
	LastAuditDate         *time.Time `json:"last_audit_date" db:"last_audit_date"`
	NewInvoicesSinceTrain int        `json:"new_invoices_since_train" db:"new_invoices_since_train"`
}

// FormatDate renders t as YYYY-MM-DD, or "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// TruncateDay drops the clock part of t in its own location.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
