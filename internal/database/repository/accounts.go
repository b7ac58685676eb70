package repository

import (
	"context"
	"database/sql"

	"conciliacao-service/internal/domain"
)

// AccountRepo handles the account registry.
type AccountRepo struct {
	db DBTX
}

func NewAccountRepo(db DBTX) *AccountRepo { return &AccountRepo{db: db} }

func (r *AccountRepo) Insert(ctx context.Context, a domain.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts(id, name, kind, created_at) VALUES(?, ?, ?, ?)`,
		a.ID, a.Name, string(a.Kind), a.CreatedAt)
	return err
}

// Get returns nil without error when the account does not exist.
func (r *AccountRepo) Get(ctx context.Context, id string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, kind, created_at FROM accounts WHERE id = ?`, id)
	var a domain.Account
	var kind string
	if err := row.Scan(&a.ID, &a.Name, &kind, &a.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	a.Kind = domain.AccountKind(kind)
	return &a, nil
}

func (r *AccountRepo) List(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, kind, created_at FROM accounts ORDER BY name COLLATE NOCASE, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Account
	for rows.Next() {
		var a domain.Account
		var kind string
		if err := rows.Scan(&a.ID, &a.Name, &kind, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Kind = domain.AccountKind(kind)
		out = append(out, a)
	}
	return out, rows.Err()
}
