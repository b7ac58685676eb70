package accounts

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"conciliacao-service/internal/database"
	"conciliacao-service/internal/database/repository"
	"conciliacao-service/internal/domain"

	"github.com/google/uuid"
	"github.com/schollz/closestmatch"
)

// Errors returned by the account registry.
var (
	ErrNotFound    = errors.New("conta não encontrada")
	ErrInvalidKind = errors.New("tipo de conta inválido")
	ErrEmptyName   = errors.New("nome da conta é obrigatório")
)

// Service is the account registry behind the reconciliation screens.
type Service interface {
	Create(ctx context.Context, name string, kind domain.AccountKind) (domain.Account, error)
	Get(ctx context.Context, id string) (domain.Account, error)
	// List returns all accounts; a non-empty query ranks them by fuzzy
	// name similarity instead of alphabetically.
	List(ctx context.Context, query string) ([]domain.Account, error)
}

type service struct {
	db *sql.DB
}

// NewService cria uma nova instância do registro de contas.
func NewService(db *sql.DB) Service {
	return &service{db: db}
}

func (s *service) Create(ctx context.Context, name string, kind domain.AccountKind) (domain.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Account{}, ErrEmptyName
	}
	if !domain.ValidKind(kind) {
		return domain.Account{}, ErrInvalidKind
	}
	acc := domain.Account{
		ID:        uuid.NewString(),
		Name:      name,
		Kind:      kind,
		CreatedAt: database.Now(),
	}
	if err := repository.NewAccountRepo(s.db).Insert(ctx, acc); err != nil {
		return domain.Account{}, err
	}
	return acc, nil
}

func (s *service) Get(ctx context.Context, id string) (domain.Account, error) {
	acc, err := repository.NewAccountRepo(s.db).Get(ctx, id)
	if err != nil {
		return domain.Account{}, err
	}
	if acc == nil {
		return domain.Account{}, ErrNotFound
	}
	return *acc, nil
}

func (s *service) List(ctx context.Context, query string) ([]domain.Account, error) {
	all, err := repository.NewAccountRepo(s.db).List(ctx)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" || len(all) == 0 {
		return all, nil
	}

	byName := make(map[string][]domain.Account, len(all))
	names := make([]string, 0, len(all))
	for _, a := range all {
		key := strings.ToLower(a.Name)
		if _, seen := byName[key]; !seen {
			names = append(names, key)
		}
		byName[key] = append(byName[key], a)
	}

	cm := closestmatch.New(names, []int{2, 3})
	ranked := cm.ClosestN(strings.ToLower(query), len(names))

	// ClosestN omits names without any n-gram in common with the query;
	// those still belong in the result, after the ranked ones and in
	// their alphabetical order.
	out := make([]domain.Account, 0, len(all))
	seen := make(map[string]bool, len(ranked))
	for _, name := range ranked {
		out = append(out, byName[name]...)
		seen[name] = true
	}
	for _, name := range names {
		if !seen[name] {
			out = append(out, byName[name]...)
		}
	}
	return out, nil
}
