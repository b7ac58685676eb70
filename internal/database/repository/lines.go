package repository

import (
	"context"
	"database/sql"
	"time"

	"conciliacao-service/internal/domain"
)

// LineRepo handles statement and ledger lines. Both books share the same
// row shape and differ only by the side column.
type LineRepo struct {
	db DBTX
}

func NewLineRepo(db DBTX) *LineRepo { return &LineRepo{db: db} }

// DayTotals is the per-day aggregate used by the closure scan and the
// summaries. Totals are zero for days without rows on one of the sides.
type DayTotals struct {
	DateISO         string
	StatementTotal  int64
	StatementCredit int64
	StatementDebit  int64
	LedgerTotal     int64
	LedgerCredit    int64
	LedgerDebit     int64
	Closed          bool
}

func (r *LineRepo) Insert(ctx context.Context, l domain.Line) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO lines(id, account_id, side, date_iso, description, amount_cents, reconciled, match_id, updated_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.AccountID, string(l.Side), l.Date.Format(domain.DateLayout),
		l.Description, l.AmountCents, boolToInt(l.Reconciled), l.MatchID, l.UpdatedAt)
	return err
}

// ListByDay returns one side of a day, filtered by reconciliation state.
func (r *LineRepo) ListByDay(ctx context.Context, accountID string, day time.Time, side domain.Side, filter domain.LineFilter) ([]domain.Line, error) {
	q := `SELECT id, account_id, side, date_iso, description, amount_cents, reconciled, match_id, updated_at
	FROM lines WHERE account_id = ? AND date_iso = ? AND side = ?`
	args := []interface{}{accountID, day.Format(domain.DateLayout), string(side)}
	switch filter {
	case domain.FilterUnreconciled:
		q += ` AND reconciled = 0`
	case domain.FilterReconciled:
		q += ` AND reconciled = 1`
	}
	q += ` ORDER BY amount_cents, id`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLines(rows)
}

// GetByIDs returns the lines for the given ids, in no particular order.
// Missing ids are simply absent from the result.
func (r *LineRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.Line, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := `SELECT id, account_id, side, date_iso, description, amount_cents, reconciled, match_id, updated_at
	FROM lines WHERE id IN (` + placeholders(len(ids)) + `)`
	rows, err := r.db.QueryContext(ctx, q, toArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLines(rows)
}

// MarkReconciled flips the given lines to reconciled and points them at the
// match, touching only lines still unreconciled. The returned count lets the
// caller detect, inside its transaction, that a concurrent commit got there
// first.
func (r *LineRepo) MarkReconciled(ctx context.Context, ids []string, matchID string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q := `UPDATE lines SET reconciled = 1, match_id = ?, updated_at = CURRENT_TIMESTAMP
	WHERE reconciled = 0 AND id IN (` + placeholders(len(ids)) + `)`
	args := append([]interface{}{matchID}, toArgs(ids)...)
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ReleaseMatch returns every line of a match to the unreconciled state.
func (r *LineRepo) ReleaseMatch(ctx context.Context, matchID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE lines SET reconciled = 0, match_id = NULL, updated_at = CURRENT_TIMESTAMP WHERE match_id = ?`,
		matchID)
	return err
}

// DayTotals aggregates both sides per day over [fromISO, toISO]. Empty
// bounds mean unbounded. Days with no rows on either side do not appear.
func (r *LineRepo) DayTotals(ctx context.Context, accountID, fromISO, toISO string) ([]DayTotals, error) {
	q := `
	SELECT l.date_iso,
	       COALESCE(SUM(CASE WHEN l.side = 'statement' THEN l.amount_cents ELSE 0 END), 0),
	       COALESCE(SUM(CASE WHEN l.side = 'statement' AND l.amount_cents > 0 THEN l.amount_cents ELSE 0 END), 0),
	       COALESCE(SUM(CASE WHEN l.side = 'statement' AND l.amount_cents < 0 THEN l.amount_cents ELSE 0 END), 0),
	       COALESCE(SUM(CASE WHEN l.side = 'ledger' THEN l.amount_cents ELSE 0 END), 0),
	       COALESCE(SUM(CASE WHEN l.side = 'ledger' AND l.amount_cents > 0 THEN l.amount_cents ELSE 0 END), 0),
	       COALESCE(SUM(CASE WHEN l.side = 'ledger' AND l.amount_cents < 0 THEN l.amount_cents ELSE 0 END), 0),
	       COALESCE(MAX(c.closed), 0)
	FROM lines l
	LEFT JOIN day_closures c ON c.account_id = l.account_id AND c.date_iso = l.date_iso
	WHERE l.account_id = ?`
	args := []interface{}{accountID}
	if fromISO != "" {
		q += ` AND l.date_iso >= ?`
		args = append(args, fromISO)
	}
	if toISO != "" {
		q += ` AND l.date_iso <= ?`
		args = append(args, toISO)
	}
	q += ` GROUP BY l.date_iso ORDER BY l.date_iso`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DayTotals
	for rows.Next() {
		var t DayTotals
		var closed int
		if err := rows.Scan(&t.DateISO, &t.StatementTotal, &t.StatementCredit, &t.StatementDebit,
			&t.LedgerTotal, &t.LedgerCredit, &t.LedgerDebit, &closed); err != nil {
			return nil, err
		}
		t.Closed = closed != 0
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanLines(rows *sql.Rows) ([]domain.Line, error) {
	var out []domain.Line
	for rows.Next() {
		var l domain.Line
		var side, dateISO string
		var reconciled int
		if err := rows.Scan(&l.ID, &l.AccountID, &side, &dateISO, &l.Description,
			&l.AmountCents, &reconciled, &l.MatchID, &l.UpdatedAt); err != nil {
			return nil, err
		}
		day, err := time.Parse(domain.DateLayout, dateISO)
		if err != nil {
			return nil, err
		}
		l.Side = domain.Side(side)
		l.Date = day
		l.Reconciled = reconciled != 0
		out = append(out, l)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
