package audit

import (
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/invhealth/internal/domain"
)

// ErrInvalidConfig is returned when a Config fails validation.
var ErrInvalidConfig = errors.New("invalid audit config")

// Config holds every threshold of an audit run.
type Config struct {
	TargetServiceLevel       float64
	DefaultLeadTimeDays      int
	MinNewInvoicesForRetrain int
	MaxPriceDeviation        float64
	DemandLookbackDays       int
	PriceLookbackDays        int
	ForecastHorizonDays      int

	// AuditDate anchors every window; zero means today.
	AuditDate time.Time

	// Persist enables write-back of corrections and parameters. False is a dry run.
	Persist bool
}

// DefaultConfig returns the standard thresholds with persistence enabled.
func DefaultConfig() Config {
	return Config{
		TargetServiceLevel:       0.95,
		DefaultLeadTimeDays:      10,
		MinNewInvoicesForRetrain: 20,
		MaxPriceDeviation:        0.35,
		DemandLookbackDays:       56,
		PriceLookbackDays:        60,
		ForecastHorizonDays:      14,
		Persist:                  true,
	}
}

// Validate checks that the windows and thresholds make sense.
func (c Config) Validate() error {
	switch {
	case c.TargetServiceLevel <= 0 || c.TargetServiceLevel >= 1:
		return fmt.Errorf("%w: target service level %v must be in (0, 1)", ErrInvalidConfig, c.TargetServiceLevel)
	case c.DefaultLeadTimeDays <= 0:
		return fmt.Errorf("%w: default lead time days must be positive", ErrInvalidConfig)
	case c.MinNewInvoicesForRetrain < 0:
		return fmt.Errorf("%w: min new invoices for retrain must not be negative", ErrInvalidConfig)
	case c.MaxPriceDeviation < 0:
		return fmt.Errorf("%w: max price deviation must not be negative", ErrInvalidConfig)
	case c.DemandLookbackDays <= 0, c.PriceLookbackDays <= 0, c.ForecastHorizonDays <= 0:
		return fmt.Errorf("%w: lookback and horizon windows must be positive", ErrInvalidConfig)
	}
	return nil
}

// auditDay resolves the audit date to a UTC calendar day.
func (c Config) auditDay(now func() time.Time) time.Time {
	d := c.AuditDate
	if d.IsZero() {
		d = now()
	}
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// Snapshot is the immutable input of one run.
type Snapshot struct {
	Invoices   []domain.Invoice
	Items      []domain.Item
	CostLayers []domain.CostLayer
	Demand     []domain.DemandRecord
	Forecast   []domain.ForecastRecord
	Parameters domain.AuditParameters
}

// Result is the computed report plus what a persisting run would write back.
type Result struct {
	Report    *domain.AuditReport
	WriteBack domain.WriteBack
}
