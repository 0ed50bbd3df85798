package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/invhealth/internal/domain"
	"github.com/andresuchdata/invhealth/internal/repository"
)

// RunRepository records audit runs in audit_runs.
type RunRepository struct {
	db *DB
}

func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

var _ repository.RunRepository = (*RunRepository)(nil)

// CreateRun inserts a running audit
func (r *RunRepository) CreateRun(ctx context.Context, run *domain.AuditRun) error {
	if run.Status == "" {
		run.Status = domain.RunStatusRunning
	}
	query := `
		INSERT INTO audit_runs (id, audit_date, status, dry_run, started_at)
		VALUES ($1, $2::date, $3, $4, COALESCE($5, NOW()))
		RETURNING started_at
	`
	var started sql.NullTime
	if !run.StartedAt.IsZero() {
		started = sql.NullTime{Time: run.StartedAt, Valid: true}
	}

	err := r.db.QueryRowxContext(ctx, query,
		run.ID, domain.FormatDate(run.AuditDate), run.Status, run.DryRun, started,
	).Scan(&run.StartedAt)
	if err != nil {
		return fmt.Errorf("error creating audit run: %w", err)
	}
	return nil
}

// CompleteRun stores the report and its score
func (r *RunRepository) CompleteRun(ctx context.Context, id string, report *domain.AuditReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("error encoding audit report: %w", err)
	}

	query := `
		UPDATE audit_runs
		SET status = $1, health_score = $2, report = $3, completed_at = NOW()
		WHERE id = $4
	`
	res, err := r.db.ExecContext(ctx, query,
		domain.RunStatusCompleted, report.Summary.HealthScore, payload, id,
	)
	if err != nil {
		return fmt.Errorf("error completing audit run: %w", err)
	}
	return expectOne(res, id)
}

// FailRun marks the run failed with the error text
func (r *RunRepository) FailRun(ctx context.Context, id string, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}

	query := `
		UPDATE audit_runs
		SET status = $1, error_message = $2, completed_at = NOW()
		WHERE id = $3
	`
	res, err := r.db.ExecContext(ctx, query, domain.RunStatusFailed, msg, id)
	if err != nil {
		return fmt.Errorf("error failing audit run: %w", err)
	}
	return expectOne(res, id)
}

// LatestReport returns the report of the newest completed run
func (r *RunRepository) LatestReport(ctx context.Context) (*domain.AuditReport, error) {
	query := `
		SELECT report
		FROM audit_runs
		WHERE status = $1 AND report IS NOT NULL
		ORDER BY started_at DESC
		LIMIT 1
	`
	return r.getReport(ctx, query, domain.RunStatusCompleted)
}

// ReportByDate returns the newest completed report for one audit date
func (r *RunRepository) ReportByDate(ctx context.Context, auditDate time.Time) (*domain.AuditReport, error) {
	query := `
		SELECT report
		FROM audit_runs
		WHERE status = $1 AND report IS NOT NULL AND audit_date = $2::date
		ORDER BY started_at DESC
		LIMIT 1
	`
	return r.getReport(ctx, query, domain.RunStatusCompleted, domain.FormatDate(auditDate))
}

func (r *RunRepository) getReport(ctx context.Context, query string, args ...any) (*domain.AuditReport, error) {
	var payload []byte
	err := r.db.GetContext(ctx, &payload, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error loading audit report: %w", err)
	}

	var report domain.AuditReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("error decoding audit report: %w", err)
	}
	return &report, nil
}

// ListRuns returns the newest runs first
func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]domain.AuditRun, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, audit_date, status, dry_run, health_score,
		       started_at, completed_at, error_message
		FROM audit_runs
		ORDER BY started_at DESC
		LIMIT $1
	`
	runs := make([]domain.AuditRun, 0)
	if err := r.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("error listing audit runs: %w", err)
	}
	return runs, nil
}

func expectOne(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading update count: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("audit run %s: %w", id, repository.ErrNotFound)
	}
	return nil
}
