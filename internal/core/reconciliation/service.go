package reconciliation

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"conciliacao-service/internal/database"
	"conciliacao-service/internal/database/repository"
	"conciliacao-service/internal/domain"

	"github.com/google/uuid"
)

// ErrDayClosed means the target day was already closed and is immutable
// until reopened.
var ErrDayClosed = errors.New("dia já está fechado para conciliação")

// Service is the reconciliation engine: line loading at the collaborator
// boundary, manual and automatic matching, day closure and the derived
// summaries.
type Service interface {
	LoadLines(ctx context.Context, accountID string, day time.Time, side domain.Side, inputs []domain.LineInput) ([]domain.Line, error)
	ListLines(ctx context.Context, accountID string, day time.Time, filter domain.LineFilter) (domain.DayLines, error)
	SelectionTotals(ctx context.Context, statementIDs, ledgerIDs []string) (domain.SelectionTotals, error)
	ReconcileSelected(ctx context.Context, accountID string, day time.Time, statementIDs, ledgerIDs []string, actor string) (domain.Match, error)
	Reverse(ctx context.Context, matchID, actor string) (domain.Match, error)
	AutoMatch(ctx context.Context, accountID string, day time.Time, actor string) (domain.AutoMatchResult, error)
	Suggestions(ctx context.Context, accountID string, day time.Time, limit int) ([]domain.Suggestion, error)
	TryClose(ctx context.Context, accountID string, day time.Time, actor string) (domain.DaySummary, error)
	Reopen(ctx context.Context, accountID string, day time.Time, actor string) (domain.DaySummary, error)
	SummarizeDay(ctx context.Context, accountID string, day time.Time) (domain.DaySummary, error)
	SummarizeAccount(ctx context.Context, accountID string, month time.Time) (domain.AccountSummary, error)
}

type service struct {
	db *sql.DB
}

// NewService cria uma nova instância do motor de conciliação.
func NewService(db *sql.DB) Service {
	return &service{db: db}
}

func (s *service) requireAccount(ctx context.Context, q repository.DBTX, accountID string) error {
	acc, err := repository.NewAccountRepo(q).Get(ctx, accountID)
	if err != nil {
		return err
	}
	if acc == nil {
		return ErrNotFound
	}
	return nil
}

func (s *service) requireOpenDay(ctx context.Context, q repository.DBTX, accountID string, day time.Time) error {
	closed, err := repository.NewClosureRepo(q).Get(ctx, accountID, day)
	if err != nil {
		return err
	}
	if closed {
		return ErrDayClosed
	}
	return nil
}

// LoadLines is the write boundary for the statement-import and
// ledger-posting collaborators. Lines land unreconciled.
func (s *service) LoadLines(ctx context.Context, accountID string, day time.Time, side domain.Side, inputs []domain.LineInput) ([]domain.Line, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptySelection
	}
	var out []domain.Line
	err := database.WithTx(s.db, func(tx *sql.Tx) error {
		if err := s.requireAccount(ctx, tx, accountID); err != nil {
			return err
		}
		if err := s.requireOpenDay(ctx, tx, accountID, day); err != nil {
			return err
		}
		lines := repository.NewLineRepo(tx)
		now := database.Now()
		for _, in := range inputs {
			l := domain.Line{
				ID:          uuid.NewString(),
				AccountID:   accountID,
				Side:        side,
				Date:        day,
				Description: in.Description,
				AmountCents: in.AmountCents,
				UpdatedAt:   now,
			}
			if err := lines.Insert(ctx, l); err != nil {
				return err
			}
			out = append(out, l)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) ListLines(ctx context.Context, accountID string, day time.Time, filter domain.LineFilter) (domain.DayLines, error) {
	if err := s.requireAccount(ctx, s.db, accountID); err != nil {
		return domain.DayLines{}, err
	}
	lines := repository.NewLineRepo(s.db)
	stmt, err := lines.ListByDay(ctx, accountID, day, domain.SideStatement, filter)
	if err != nil {
		return domain.DayLines{}, err
	}
	ledger, err := lines.ListByDay(ctx, accountID, day, domain.SideLedger, filter)
	if err != nil {
		return domain.DayLines{}, err
	}
	return domain.DayLines{StatementLines: stmt, LedgerLines: ledger}, nil
}

// SelectionTotals projects the running sums of a candidate selection. It is
// read-only and never changes state.
func (s *service) SelectionTotals(ctx context.Context, statementIDs, ledgerIDs []string) (domain.SelectionTotals, error) {
	stmt, err := s.fetchSelection(ctx, s.db, statementIDs, domain.SideStatement)
	if err != nil {
		return domain.SelectionTotals{}, err
	}
	ledger, err := s.fetchSelection(ctx, s.db, ledgerIDs, domain.SideLedger)
	if err != nil {
		return domain.SelectionTotals{}, err
	}
	totals := domain.SelectionTotals{
		StatementTotal: sumCents(stmt),
		LedgerTotal:    sumCents(ledger),
	}
	totals.Delta = totals.StatementTotal - totals.LedgerTotal
	totals.Balanced = totals.Delta == 0
	return totals, nil
}

// fetchSelection loads a set of line ids and verifies every id exists and
// belongs to the expected side.
func (s *service) fetchSelection(ctx context.Context, q repository.DBTX, ids []string, side domain.Side) ([]domain.Line, error) {
	found, err := repository.NewLineRepo(q).GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(found) != len(ids) {
		return nil, ErrNotFound
	}
	for _, l := range found {
		if l.Side != side {
			return nil, &SelectionScopeError{LineID: l.ID}
		}
	}
	return found, nil
}

// ReconcileSelected commits a manual selection as one match. The whole
// check-and-flip runs in a single transaction; the UPDATE only touches
// lines still unreconciled, so a concurrent commit surfaces as a stale
// selection instead of a double reconciliation.
func (s *service) ReconcileSelected(ctx context.Context, accountID string, day time.Time, statementIDs, ledgerIDs []string, actor string) (domain.Match, error) {
	if len(statementIDs) == 0 || len(ledgerIDs) == 0 {
		return domain.Match{}, ErrEmptySelection
	}
	if !domain.IsBusinessDay(day) {
		return domain.Match{}, ErrNonBusinessDay
	}

	var match domain.Match
	err := database.WithTx(s.db, func(tx *sql.Tx) error {
		if err := s.requireAccount(ctx, tx, accountID); err != nil {
			return err
		}
		if err := s.requireOpenDay(ctx, tx, accountID, day); err != nil {
			return err
		}

		stmt, err := s.fetchSelection(ctx, tx, statementIDs, domain.SideStatement)
		if err != nil {
			return err
		}
		ledger, err := s.fetchSelection(ctx, tx, ledgerIDs, domain.SideLedger)
		if err != nil {
			return err
		}

		dayISO := day.Format(domain.DateLayout)
		for _, l := range append(append([]domain.Line{}, stmt...), ledger...) {
			if l.AccountID != accountID || l.Date.Format(domain.DateLayout) != dayISO {
				return &SelectionScopeError{LineID: l.ID}
			}
			if l.Reconciled {
				return ErrStaleSelection
			}
		}

		stmtSum, ledgerSum := sumCents(stmt), sumCents(ledger)
		if stmtSum != ledgerSum {
			return &AmountMismatchError{Delta: stmtSum - ledgerSum}
		}

		match = domain.Match{
			ID:               uuid.NewString(),
			AccountID:        accountID,
			Date:             day,
			Status:           domain.MatchActive,
			StatementLineIDs: statementIDs,
			LedgerLineIDs:    ledgerIDs,
			AmountCents:      stmtSum,
			CreatedAt:        database.Now(),
			CreatedBy:        actor,
		}
		if err := repository.NewMatchRepo(tx).Insert(ctx, match); err != nil {
			return err
		}

		all := append(append([]string{}, statementIDs...), ledgerIDs...)
		n, err := repository.NewLineRepo(tx).MarkReconciled(ctx, all, match.ID)
		if err != nil {
			return err
		}
		if n != int64(len(all)) {
			return ErrStaleSelection
		}
		return nil
	})
	if err != nil {
		return domain.Match{}, err
	}
	return match, nil
}

// Reverse soft-reverses a match: the row is kept with a reversed status and
// its lines return to the unreconciled state. Reversing an already reversed
// match is an idempotent no-op.
func (s *service) Reverse(ctx context.Context, matchID, actor string) (domain.Match, error) {
	var out domain.Match
	err := database.WithTx(s.db, func(tx *sql.Tx) error {
		matches := repository.NewMatchRepo(tx)
		m, err := matches.Get(ctx, matchID)
		if err != nil {
			return err
		}
		if m == nil {
			return ErrNotFound
		}
		if m.Status == domain.MatchReversed {
			out = *m
			return nil
		}
		if err := s.requireOpenDay(ctx, tx, m.AccountID, m.Date); err != nil {
			return err
		}

		now := database.Now()
		if err := matches.MarkReversed(ctx, matchID, actor, now); err != nil {
			return err
		}
		if err := repository.NewLineRepo(tx).ReleaseMatch(ctx, matchID); err != nil {
			return err
		}
		m.Status = domain.MatchReversed
		m.ReversedAt = &now
		m.ReversedBy = &actor
		out = *m
		return nil
	})
	if err != nil {
		return domain.Match{}, err
	}
	return out, nil
}

// TryClose marks a day as closed after verifying every earlier business day
// of the account is balanced or itself closed. Scan and flag set share one
// transaction so a concurrent reconcile on an earlier day cannot slip in
// mid-scan.
func (s *service) TryClose(ctx context.Context, accountID string, day time.Time, actor string) (domain.DaySummary, error) {
	if !domain.IsBusinessDay(day) {
		return domain.DaySummary{}, ErrNonBusinessDay
	}

	var summary domain.DaySummary
	err := database.WithTx(s.db, func(tx *sql.Tx) error {
		if err := s.requireAccount(ctx, tx, accountID); err != nil {
			return err
		}

		dayISO := day.Format(domain.DateLayout)
		totals, err := repository.NewLineRepo(tx).DayTotals(ctx, accountID, "", dayISO)
		if err != nil {
			return err
		}
		for _, t := range totals {
			if t.DateISO >= dayISO {
				break
			}
			d, err := time.Parse(domain.DateLayout, t.DateISO)
			if err != nil {
				return err
			}
			if !domain.IsBusinessDay(d) {
				continue
			}
			if t.LedgerTotal-t.StatementTotal != 0 && !t.Closed {
				return &BlockedError{BlockingDate: d}
			}
		}

		if err := repository.NewClosureRepo(tx).Set(ctx, accountID, day, true, actor); err != nil {
			return err
		}
		summary, err = s.summarizeDay(ctx, tx, accountID, day)
		return err
	})
	if err != nil {
		return domain.DaySummary{}, err
	}
	return summary, nil
}

// Reopen is always permitted. Later closures are left untouched.
func (s *service) Reopen(ctx context.Context, accountID string, day time.Time, actor string) (domain.DaySummary, error) {
	var summary domain.DaySummary
	err := database.WithTx(s.db, func(tx *sql.Tx) error {
		if err := s.requireAccount(ctx, tx, accountID); err != nil {
			return err
		}
		if err := repository.NewClosureRepo(tx).Set(ctx, accountID, day, false, actor); err != nil {
			return err
		}
		var err error
		summary, err = s.summarizeDay(ctx, tx, accountID, day)
		return err
	})
	if err != nil {
		return domain.DaySummary{}, err
	}
	return summary, nil
}

func (s *service) SummarizeDay(ctx context.Context, accountID string, day time.Time) (domain.DaySummary, error) {
	if err := s.requireAccount(ctx, s.db, accountID); err != nil {
		return domain.DaySummary{}, err
	}
	return s.summarizeDay(ctx, s.db, accountID, day)
}

func (s *service) summarizeDay(ctx context.Context, q repository.DBTX, accountID string, day time.Time) (domain.DaySummary, error) {
	dayISO := day.Format(domain.DateLayout)
	totals, err := repository.NewLineRepo(q).DayTotals(ctx, accountID, dayISO, dayISO)
	if err != nil {
		return domain.DaySummary{}, err
	}
	summary := domain.DaySummary{AccountID: accountID, Date: day}
	if len(totals) > 0 {
		summary.StatementTotal = totals[0].StatementTotal
		summary.StatementCredit = totals[0].StatementCredit
		summary.StatementDebit = totals[0].StatementDebit
		summary.LedgerTotal = totals[0].LedgerTotal
		summary.LedgerCredit = totals[0].LedgerCredit
		summary.LedgerDebit = totals[0].LedgerDebit
	}
	summary.Diff = summary.LedgerTotal - summary.StatementTotal
	closed, err := repository.NewClosureRepo(q).Get(ctx, accountID, day)
	if err != nil {
		return domain.DaySummary{}, err
	}
	summary.Closed = closed
	return summary, nil
}

// SummarizeAccount aggregates a calendar month. The month is balanced when
// every day with records has zero difference.
func (s *service) SummarizeAccount(ctx context.Context, accountID string, month time.Time) (domain.AccountSummary, error) {
	if err := s.requireAccount(ctx, s.db, accountID); err != nil {
		return domain.AccountSummary{}, err
	}

	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	totals, err := repository.NewLineRepo(s.db).DayTotals(ctx, accountID,
		first.Format(domain.DateLayout), last.Format(domain.DateLayout))
	if err != nil {
		return domain.AccountSummary{}, err
	}

	out := domain.AccountSummary{
		AccountID: accountID,
		Month:     first.Format("2006-01"),
		Status:    domain.StatusBalanced,
	}
	for _, t := range totals {
		d, err := time.Parse(domain.DateLayout, t.DateISO)
		if err != nil {
			return domain.AccountSummary{}, err
		}
		ds := domain.DaySummary{
			AccountID:       accountID,
			Date:            d,
			StatementTotal:  t.StatementTotal,
			StatementCredit: t.StatementCredit,
			StatementDebit:  t.StatementDebit,
			LedgerTotal:     t.LedgerTotal,
			LedgerCredit:    t.LedgerCredit,
			LedgerDebit:     t.LedgerDebit,
			Diff:            t.LedgerTotal - t.StatementTotal,
			Closed:          t.Closed,
		}
		out.Days = append(out.Days, ds)
		out.StatementTotal += t.StatementTotal
		out.LedgerTotal += t.LedgerTotal
		if ds.Diff != 0 {
			out.Status = domain.StatusPending
		}
	}
	out.Diff = out.LedgerTotal - out.StatementTotal
	return out, nil
}

func sumCents(lines []domain.Line) int64 {
	var total int64
	for _, l := range lines {
		total += l.AmountCents
	}
	return total
}
