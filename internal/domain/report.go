package domain

import "time"

// HealthStatus buckets the health score.
type HealthStatus string

const (
	StatusHealthy        HealthStatus = "Healthy"
	StatusMonitor        HealthStatus = "Monitor"
	StatusNeedsAttention HealthStatus = "Needs Attention"
)

// StockoutRisk is an item whose projected stock falls below its safety stock.
type StockoutRisk struct {
	SKU            string  `json:"sku"`
	Name           string  `json:"name"`
	OnHand         float64 `json:"on_hand"`
	SafetyStock    int64   `json:"safety_stock"`
	ReorderPoint   int64   `json:"reorder_point"`
	ForecastQty    float64 `json:"forecast_qty"`
	ProjectedStock float64 `json:"projected_stock"`
}

// AuditSummary is the headline block of a report.
type AuditSummary struct {
	HealthScore           int               `json:"health_score"`
	Status                HealthStatus      `json:"status"`
	FixedMutations        int               `json:"fixed_mutations"`
	ShouldRetrain         bool              `json:"should_retrain"`
	StockoutRiskCount     int               `json:"stockout_risk_count"`
	TotalItems            int               `json:"total_items"`
	TotalInvoices         int               `json:"total_invoices"`
	NewInvoicesSinceTrain int               `json:"new_invoices_since_train"`
	IssueCounts           map[IssueType]int `json:"issue_counts"`
	AuditDate             string            `json:"audit_date"`
}

// AuditReport is the full outcome of one audit run.
type AuditReport struct {
	Summary       AuditSummary   `json:"summary"`
	Issues        IssueList      `json:"issues"`
	StockoutRisks []StockoutRisk `json:"stockout_risks"`
}

// AuditRunStatus tracks the lifecycle of a recorded run.
type AuditRunStatus string

const (
	RunStatusRunning   AuditRunStatus = "running"
	RunStatusCompleted AuditRunStatus = "completed"
	RunStatusFailed    AuditRunStatus = "failed"
)

// AuditRun is the history row kept for every invocation.
type AuditRun struct {
	ID           string         `json:"id" db:"id"`
	AuditDate    time.Time      `json:"audit_date" db:"audit_date"`
	Status       AuditRunStatus `json:"status" db:"status"`
	DryRun       bool           `json:"dry_run" db:"dry_run"`
	HealthScore  *int           `json:"health_score,omitempty" db:"health_score"`
	StartedAt    time.Time      `json:"started_at" db:"started_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
	ErrorMessage *string        `json:"error_message,omitempty" db:"error_message"`
}
