package reconciliation

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"conciliacao-service/internal/database"
	"conciliacao-service/internal/database/repository"
	"conciliacao-service/internal/domain"

	"github.com/google/uuid"
)

// AutoMatch pairs each unmatched ledger line with the statement line of
// identical signed amount on the same day. Only unique hits are committed;
// when more than one statement line carries the amount the tie is reported
// and left for manual resolution. Ambiguity is never guessed.
func (s *service) AutoMatch(ctx context.Context, accountID string, day time.Time, actor string) (domain.AutoMatchResult, error) {
	if !domain.IsBusinessDay(day) {
		return domain.AutoMatchResult{}, ErrNonBusinessDay
	}

	var result domain.AutoMatchResult
	err := database.WithTx(s.db, func(tx *sql.Tx) error {
		if err := s.requireAccount(ctx, tx, accountID); err != nil {
			return err
		}
		if err := s.requireOpenDay(ctx, tx, accountID, day); err != nil {
			return err
		}

		lines := repository.NewLineRepo(tx)
		stmt, err := lines.ListByDay(ctx, accountID, day, domain.SideStatement, domain.FilterUnreconciled)
		if err != nil {
			return err
		}
		ledger, err := lines.ListByDay(ctx, accountID, day, domain.SideLedger, domain.FilterUnreconciled)
		if err != nil {
			return err
		}

		// Candidate pool keyed by signed amount. Consumed entries leave
		// the pool so one statement line never backs two matches.
		pool := make(map[int64][]domain.Line, len(stmt))
		for _, l := range stmt {
			pool[l.AmountCents] = append(pool[l.AmountCents], l)
		}

		// Deterministic pass order.
		sort.SliceStable(ledger, func(i, j int) bool { return ledger[i].ID < ledger[j].ID })

		matches := repository.NewMatchRepo(tx)
		now := database.Now()
		for _, ll := range ledger {
			candidates := pool[ll.AmountCents]
			if len(candidates) == 0 {
				continue
			}
			if len(candidates) > 1 {
				result.Ambiguous = append(result.Ambiguous, domain.AmbiguousTie{
					LedgerLineID: ll.ID,
					AmountCents:  ll.AmountCents,
					Candidates:   len(candidates),
				})
				continue
			}

			sl := candidates[0]
			delete(pool, ll.AmountCents)

			m := domain.Match{
				ID:               uuid.NewString(),
				AccountID:        accountID,
				Date:             day,
				Status:           domain.MatchActive,
				StatementLineIDs: []string{sl.ID},
				LedgerLineIDs:    []string{ll.ID},
				AmountCents:      sl.AmountCents,
				CreatedAt:        now,
				CreatedBy:        actor,
			}
			if err := matches.Insert(ctx, m); err != nil {
				return err
			}
			n, err := lines.MarkReconciled(ctx, []string{sl.ID, ll.ID}, m.ID)
			if err != nil {
				return err
			}
			if n != 2 {
				return ErrStaleSelection
			}
			result.Matched++
			result.MatchIDs = append(result.MatchIDs, m.ID)
		}
		return nil
	})
	if err != nil {
		return domain.AutoMatchResult{}, err
	}
	return result, nil
}
