package repository

import (
	"context"
	"database/sql"
	"time"

	"conciliacao-service/internal/domain"
)

// MatchRepo handles reconciliation matches. Match rows and their line
// associations are append-only: a reversal flips the status and stamps who
// did it, nothing is ever deleted.
type MatchRepo struct {
	db DBTX
}

func NewMatchRepo(db DBTX) *MatchRepo { return &MatchRepo{db: db} }

func (r *MatchRepo) Insert(ctx context.Context, m domain.Match) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO matches(id, account_id, date_iso, status, amount_cents, created_at, created_by)
	VALUES(?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.AccountID, m.Date.Format(domain.DateLayout), string(m.Status),
		m.AmountCents, m.CreatedAt, m.CreatedBy)
	if err != nil {
		return err
	}
	for _, id := range m.StatementLineIDs {
		if err := r.insertLine(ctx, m.ID, id, domain.SideStatement); err != nil {
			return err
		}
	}
	for _, id := range m.LedgerLineIDs {
		if err := r.insertLine(ctx, m.ID, id, domain.SideLedger); err != nil {
			return err
		}
	}
	return nil
}

func (r *MatchRepo) insertLine(ctx context.Context, matchID, lineID string, side domain.Side) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO match_lines(match_id, line_id, side) VALUES(?, ?, ?)`,
		matchID, lineID, string(side))
	return err
}

// Get returns nil without error when the match does not exist.
func (r *MatchRepo) Get(ctx context.Context, id string) (*domain.Match, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT id, account_id, date_iso, status, amount_cents, created_at, created_by, reversed_at, reversed_by
	FROM matches WHERE id = ?`, id)

	var m domain.Match
	var dateISO, status string
	var reversedAt sql.NullTime
	var reversedBy sql.NullString
	if err := row.Scan(&m.ID, &m.AccountID, &dateISO, &status, &m.AmountCents,
		&m.CreatedAt, &m.CreatedBy, &reversedAt, &reversedBy); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	day, err := time.Parse(domain.DateLayout, dateISO)
	if err != nil {
		return nil, err
	}
	m.Date = day
	m.Status = domain.MatchStatus(status)
	if reversedAt.Valid {
		m.ReversedAt = &reversedAt.Time
	}
	if reversedBy.Valid {
		m.ReversedBy = &reversedBy.String
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT line_id, side FROM match_lines WHERE match_id = ? ORDER BY line_id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var lineID, side string
		if err := rows.Scan(&lineID, &side); err != nil {
			return nil, err
		}
		if domain.Side(side) == domain.SideStatement {
			m.StatementLineIDs = append(m.StatementLineIDs, lineID)
		} else {
			m.LedgerLineIDs = append(m.LedgerLineIDs, lineID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &m, nil
}

// MarkReversed records the soft reversal of an active match.
func (r *MatchRepo) MarkReversed(ctx context.Context, id, actor string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE matches SET status = 'reversed', reversed_at = ?, reversed_by = ? WHERE id = ? AND status = 'active'`,
		at, actor, id)
	return err
}
