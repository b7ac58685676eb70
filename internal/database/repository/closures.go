package repository

import (
	"context"
	"database/sql"
	"time"

	"conciliacao-service/internal/domain"
)

// ClosureRepo handles day closures. Rows are created on the first toggle
// and kept forever as the audit trail of open/close decisions.
type ClosureRepo struct {
	db DBTX
}

func NewClosureRepo(db DBTX) *ClosureRepo { return &ClosureRepo{db: db} }

// Get reports the closed flag; absent rows read as open.
func (r *ClosureRepo) Get(ctx context.Context, accountID string, day time.Time) (bool, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT closed FROM day_closures WHERE account_id = ? AND date_iso = ?`,
		accountID, day.Format(domain.DateLayout))
	var closed int
	if err := row.Scan(&closed); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return closed != 0, nil
}

// Set upserts the closed flag for one account day.
func (r *ClosureRepo) Set(ctx context.Context, accountID string, day time.Time, closed bool, actor string) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO day_closures(account_id, date_iso, closed, updated_at, updated_by)
	VALUES(?, ?, ?, CURRENT_TIMESTAMP, ?)
	ON CONFLICT(account_id, date_iso)
	DO UPDATE SET closed = excluded.closed, updated_at = CURRENT_TIMESTAMP, updated_by = excluded.updated_by`,
		accountID, day.Format(domain.DateLayout), boolToInt(closed), actor)
	return err
}
