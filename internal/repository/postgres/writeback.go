package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/andresuchdata/invhealth/internal/domain"
)

// ErrConcurrentWriteBack is returned when another transaction holds the audit write-back lock.
var ErrConcurrentWriteBack = errors.New("another audit write-back is in progress")

// writeBackLockKey namespaces the transaction-scoped advisory lock.
const writeBackLockKey int64 = 0x1a0d17

// ApplyWriteBack writes every correction and the parameters row in one
// transaction guarded by an advisory lock.
func (s *Store) ApplyWriteBack(ctx context.Context, wb domain.WriteBack) error {
	return s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var locked bool
		if err := tx.GetContext(ctx, &locked, `SELECT pg_try_advisory_xact_lock($1)`, writeBackLockKey); err != nil {
			return fmt.Errorf("error acquiring write-back lock: %w", err)
		}
		if !locked {
			return ErrConcurrentWriteBack
		}

		if err := updateLineTotals(ctx, tx, wb.Lines); err != nil {
			return err
		}
		if err := updateFiscalPeriods(ctx, tx, wb.FiscalPeriods); err != nil {
			return err
		}
		if err := backfillLayerCosts(ctx, tx, wb.CostBackfills); err != nil {
			return err
		}

		p := wb.Parameters
		if _, err := tx.ExecContext(ctx, upsertParametersQuery,
			p.LastTrainingDate, p.LastAuditDate, p.NewInvoicesSinceTrain,
		); err != nil {
			return fmt.Errorf("error saving audit parameters: %w", err)
		}
		return nil
	})
}

func updateLineTotals(ctx context.Context, tx *sqlx.Tx, lines []domain.LineCorrection) error {
	if len(lines) == 0 {
		return nil
	}
	ids := make([]int64, len(lines))
	amounts := make([]int64, len(lines))
	for i, l := range lines {
		ids[i] = l.LineID
		amounts[i] = l.ExtPriceCents
	}

	query := `
		UPDATE invoice_lines AS l
		SET ext_price = c.cents / 100.0
		FROM unnest($1::bigint[], $2::bigint[]) AS c(id, cents)
		WHERE l.id = c.id
	`
	return execExpect(ctx, tx, "invoice line", len(lines), query, pq.Array(ids), pq.Array(amounts))
}

func updateFiscalPeriods(ctx context.Context, tx *sqlx.Tx, periods []domain.FiscalPeriodCorrection) error {
	if len(periods) == 0 {
		return nil
	}
	ids := make([]int64, len(periods))
	values := make([]string, len(periods))
	for i, p := range periods {
		ids[i] = p.InvoiceID
		values[i] = p.FiscalPeriod
	}

	query := `
		UPDATE invoices AS i
		SET fiscal_period = NULLIF(c.period, '')
		FROM unnest($1::bigint[], $2::text[]) AS c(id, period)
		WHERE i.id = c.id
	`
	return execExpect(ctx, tx, "invoice", len(periods), query, pq.Array(ids), pq.Array(values))
}

func backfillLayerCosts(ctx context.Context, tx *sqlx.Tx, backfills []domain.CostBackfill) error {
	if len(backfills) == 0 {
		return nil
	}
	ids := make([]int64, len(backfills))
	costs := make([]int64, len(backfills))
	for i, b := range backfills {
		ids[i] = b.LayerID
		costs[i] = b.UnitCostCents
	}

	// only layers still missing a valid cost are touched
	query := `
		UPDATE fifo_layers AS f
		SET unit_cost = c.cents / 100.0
		FROM unnest($1::bigint[], $2::bigint[]) AS c(id, cents)
		WHERE f.id = c.id AND (f.unit_cost IS NULL OR f.unit_cost < 0)
	`
	return execExpect(ctx, tx, "cost layer", len(backfills), query, pq.Array(ids), pq.Array(costs))
}

// execExpect fails the transaction when fewer rows changed than corrections
// were computed, which means the snapshot went stale under the run.
func execExpect(ctx context.Context, tx *sqlx.Tx, what string, want int, query string, args ...any) error {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error updating %s rows: %w", what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading %s update count: %w", what, err)
	}
	if int(n) != want {
		return fmt.Errorf("%s write-back touched %d of %d rows: %w", what, n, want, ErrStaleSnapshot)
	}
	return nil
}

// ErrStaleSnapshot means corrected rows changed or disappeared after loading.
var ErrStaleSnapshot = errors.New("snapshot changed during audit")
