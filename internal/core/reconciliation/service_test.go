package reconciliation

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"conciliacao-service/internal/database"
	"conciliacao-service/internal/database/repository"
	"conciliacao-service/internal/domain"
)

func newTestService(t *testing.T) (Service, *sql.DB) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	migrations, err := filepath.Abs("../../database/migrations")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(dbPath, migrations))

	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewService(db), db
}

func seedAccount(t *testing.T, db *sql.DB) string {
	t.Helper()
	acc := domain.Account{
		ID:        uuid.NewString(),
		Name:      "Conta Corrente Matriz",
		Kind:      domain.KindCorrente,
		CreatedAt: database.Now(),
	}
	require.NoError(t, repository.NewAccountRepo(db).Insert(context.Background(), acc))
	return acc.ID
}

func mustDay(t *testing.T, iso string) time.Time {
	t.Helper()
	d, err := time.Parse(domain.DateLayout, iso)
	require.NoError(t, err)
	return d
}

func loadLines(t *testing.T, svc Service, accountID string, day time.Time, side domain.Side, amounts ...int64) []domain.Line {
	t.Helper()
	inputs := make([]domain.LineInput, len(amounts))
	for i, a := range amounts {
		inputs[i] = domain.LineInput{Description: "lançamento teste", AmountCents: a}
	}
	lines, err := svc.LoadLines(context.Background(), accountID, day, side, inputs)
	require.NoError(t, err)
	require.Len(t, lines, len(amounts))
	return lines
}

func lineIDs(lines []domain.Line) []string {
	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.ID
	}
	return ids
}

func TestSummarizeDayDiffInCents(t *testing.T) {
	t.Parallel()
	svc, db := newTestService(t)
	acc := seedAccount(t, db)
	day := mustDay(t, "2026-03-02") // segunda-feira

	loadLines(t, svc, acc, day, domain.SideStatement, 100050, -2500)
	loadLines(t, svc, acc, day, domain.SideLedger, 100050)

	summary, err := svc.SummarizeDay(context.Background(), acc, day)
	require.NoError(t, err)
	require.Equal(t, int64(97550), summary.StatementTotal)
	require.Equal(t, int64(100050), summary.StatementCredit)
	require.Equal(t, int64(-2500), summary.StatementDebit)
	require.Equal(t, int64(100050), summary.LedgerTotal)
	require.Equal(t, int64(2500), summary.Diff)
	require.False(t, summary.Closed)
}

func TestSummarizeDayEmptyIsZero(t *testing.T) {
	t.Parallel()
	svc, db := newTestService(t)
	acc := seedAccount(t, db)

	summary, err := svc.SummarizeDay(context.Background(), acc, mustDay(t, "2026-03-02"))
	require.NoError(t, err)
	require.Zero(t, summary.StatementTotal)
	require.Zero(t, summary.LedgerTotal)
	require.Zero(t, summary.Diff)
}

func TestTryCloseBlockedByFirstUnbalancedDay(t *testing.T) {
	t.Parallel()
	svc, db := newTestService(t)
	acc := seedAccount(t, db)
	ctx := context.Background()

	d1 := mustDay(t, "2026-03-02")
	d2 := mustDay(t, "2026-03-03")
	d3 := mustDay(t, "2026-03-04")

	// d1 balanceado, d2 com diferença de 500 centavos, d3 balanceado.
	loadLines(t, svc, acc, d1, domain.SideStatement, 1000)
	loadLines(t, svc, acc, d1, domain.SideLedger, 1000)
	loadLines(t, svc, acc, d2, domain.SideStatement, 2000)
	loadLines(t, svc, acc, d2, domain.SideLedger, 2500)
	loadLines(t, svc, acc, d3, domain.SideStatement, 3000)
	loadLines(t, svc, acc, d3, domain.SideLedger, 3000)

	_, err := svc.TryClose(ctx, acc, d3, "operador")
	var blocked *BlockedError
	require.ErrorAs(t, err, &blocked)
	require.Equal(t, "2026-03-03", blocked.BlockingDate.Format(domain.DateLayout))

	// d1 não tem dia anterior pendente e pode fechar normalmente.
	_, err = svc.TryClose(ctx, acc, d1, "operador")
	require.NoError(t, err)
}

func TestTryCloseSucceedsWhenPriorDaysBalanced(t *testing.T) {
	t.Parallel()
	svc, db := newTestService(t)
	acc := seedAccount(t, db)
	ctx := context.Background()

	d1 := mustDay(t, "2026-03-02")
	d2 := mustDay(t, "2026-03-03")
	loadLines(t, svc, acc, d1, domain.SideStatement, 1000)
	loadLines(t, svc, acc, d1, domain.SideLedger, 1000)
	loadLines(t, svc, acc, d2, domain.SideStatement, 500)
	loadLines(t, svc, acc, d2, domain.SideLedger, 500)

	summary, err := svc.TryClose(ctx, acc, d2, "operador")
	require.NoError(t, err)
	require.True(t, summary.Closed)
}

func TestTryCloseAcceptsClosedUnbalancedEarlierDay(t *testing.T) {
	t.Parallel()
	svc, db := newTestService(t)
	acc := seedAccount(t, db)
	ctx := context.Background()

	d1 := mustDay(t, "2026-03-02")
	d2 := mustDay(t, "2026-03-03")
	d3 := mustDay(t, "2026-03-04")

	// d1 desbalanceado, porém fechado: deixa de travar os dias seguintes.
	loadLines(t, svc, acc, d1, domain.SideStatement, 1000)
	loadLines(t, svc, acc, d1, domain.SideLedger, 1300)
	loadLines(t, svc, acc, d2, domain.SideStatement, 500)
	loadLines(t, svc, acc, d2, domain.SideLedger, 500)

	_, err := svc.TryClose(ctx, acc, d1, "operador")
	require.NoError(t, err)

	summary, err := svc.TryClose(ctx, acc, d2, "operador")
	require.NoError(t, err)
	require.True(t, summary.Closed)

	// Reaberto, d1 volta a bloquear o fechamento dos dias posteriores.
	_, err = svc.Reopen(ctx, acc, d1, "operador")
	require.NoError(t, err)

	_, err = svc.TryClose(ctx, acc, d3, "operador")
	var blocked *BlockedError
	require.ErrorAs(t, err, &blocked)
	require.Equal(t, "2026-03-02", blocked.BlockingDate.Format(domain.DateLayout))
}

func TestTryCloseSkipsWeekendImbalance(t *testing.T) {
	t.Parallel()
	svc, db := newTestService(t)
	acc := seedAccount(t, db)
	ctx := context.Background()

	saturday := mustDay(t, "2026-03-07")
	monday := mustDay(t, "2026-03-09")

	// Lançamento avulso num sábado não entra no conjunto conciliável e
	// não pode travar o fechamento da segunda-feira.
	loadLines(t, svc, acc, saturday, domain.SideStatement, 999)
	loadLines(t, svc, acc, monday, domain.SideStatement, 100)
	loadLines(t, svc, acc, monday, domain.SideLedger, 100)

	_, err := svc.TryClose(ctx, acc, monday, "operador")
	require.NoError(t, err)
}

func TestTryCloseRejectsWeekend(t *testing.T) {
	t.Parallel()
	svc, db := newTestService(t)
	acc := seedAccount(t, db)

	_, err := svc.TryClose(context.Background(), acc, mustDay(t, "2026-03-07"), "operador")
	require.ErrorIs(t, err, ErrNonBusinessDay)
}

func TestReopenAlwaysPermitted(t *testing.T) {
	t.Parallel()
	svc, db := newTestService(t)
	acc := seedAccount(t, db)
	ctx := context.Background()
	day := mustDay(t, "2026-03-02")

	_, err := svc.TryClose(ctx, acc, day, "operador")
	require.NoError(t, err)

	summary, err := svc.Reopen(ctx, acc, day, "operador")
	require.NoError(t, err)
	require.False(t, summary.Closed)
}

func TestReconcileSelectedBalanced(t *testing.T) {
	t.Parallel()
	svc, db := newTestService(t)
	acc := seedAccount(t, db)
	ctx := context.Background()
	day := mustDay(t, "2026-03-02")

	stmt := loadLines(t, svc, acc, day, domain.SideStatement, 1000, 500)
	ledger := loadLines(t, svc, acc, day, domain.SideLedger, 1500)

	match, err := svc.ReconcileSelected(ctx, acc, day, lineIDs(stmt), lineIDs(ledger), "operador")
	require.NoError(t, err)
	require.Equal(t, domain.MatchActive, match.Status)
	require.Equal(t, int64(1500), match.AmountCents)
	require.Equal(t, "operador", match.CreatedBy)

	listed, err := svc.ListLines(ctx, acc, day, domain.FilterReconciled)
	require.NoError(t, err)
	require.Len(t, listed.StatementLines, 2)
	require.Len(t, listed.LedgerLines, 1)
	for _, l := range append(listed.StatementLines, listed.LedgerLines...) {
		require.True(t, l.Reconciled)
		require.NotNil(t, l.MatchID)
		require.Equal(t, match.ID, *l.MatchID)
	}
}

func TestReconcileSelectedAmountMismatch(t *testing.T) {
	t.Parallel()
	svc, db := newTestService(t)
	acc := seedAccount(t, db)
	ctx := context.Background()
	day := mustDay(t, "2026-03-02")

	stmt := loadLines(t, svc, acc, day, domain.SideStatement, 1500)
	ledger := loadLines(t, svc, acc, day, domain.SideLedger, 1400)

	_, err := svc.ReconcileSelected(ctx, acc, day, lineIDs(stmt), lineIDs(ledger), "operador")
	var mismatch *AmountMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, int64(100), mismatch.Delta)

	// Nenhuma linha pode ter sido tocada.
	listed, err := svc.ListLines(ctx, acc, day, domain.FilterUnreconciled)
	require.NoError(t, err)
	require.Len(t, listed.StatementLines, 1)
	require.Len(t, listed.LedgerLines, 1)
}

func TestReconcileSelectedEmptySelection(t *testing.T) {
	t.Parallel()
	svc, db := newTestService(t)
	acc := seedAccount(t, db)
	day := mustDay(t, "2026-03-02")

	stmt := loadLines(t, svc, acc, day, domain.SideStatement, 1500)

	_, err := svc.ReconcileSelected(context.Background(), acc, day, lineIDs(stmt), nil, "operador")
	require.ErrorIs(t, err, ErrEmptySelection)
}

func TestReconcileSelectedStaleSelection(t *testing.T) {
	t.Parallel()
	svc, db := newTestService(t)
	acc := seedAccount(t, db)
	ctx := context.Background()
	day := mustDay(t, "2026-03-02")

	stmt := loadLines(t, svc, acc, day, domain.SideStatement, 700)
	ledgerA := loadLines(t, svc, acc, day, domain.SideLedger, 700)
	ledgerB := loadLines(t, svc, acc, day, domain.SideLedger, 700)

	_, err := svc.ReconcileSelected(ctx, acc, day, lineIDs(stmt), lineIDs(ledgerA), "operador-1")
	require.NoError(t, err)

	// A segunda tentativa referencia uma linha de extrato já conciliada.
	_, err = svc.ReconcileSelected(ctx, acc, day, lineIDs(stmt), lineIDs(ledgerB), "operador-2")
	require.ErrorIs(t, err, ErrStaleSelection)
}

func TestReconcileSelectedUnknownLine(t *testing.T) {
	t.Parallel()
	svc, db := newTestService(t)
	acc := seedAccount(t, db)
	day := mustDay(t, "2026-03-02")

	ledger := loadLines(t, svc, acc, day, domain.SideLedger, 700)

	_, err := svc.ReconcileSelected(context.Background(), acc, day,
		[]string{uuid.NewString()}, lineIDs(ledger), "operador")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReconcileSelectedCrossDayRejected(t *testing.T) {
	t.Parallel()
	svc, db := newTestService(t)
	acc := seedAccount(t, db)
	ctx := context.Background()
	d1 := mustDay(t, "2026-03-02")
	d2 := mustDay(t, "2026-03-03")

	stmt := loadLines(t, svc, acc, d1, domain.SideStatement, 700)
	ledger := loadLines(t, svc, acc, d2, domain.SideLedger, 700)

	_, err := svc.ReconcileSelected(ctx, acc, d2, lineIDs(stmt), lineIDs(ledger), "operador")
	var scope *SelectionScopeError
	require.ErrorAs(t, err, &scope)
	require.Equal(t, stmt[0].ID, scope.LineID)
}

func TestReconcileRejectedOnClosedDay(t *testing.T) {
	t.Parallel()
	svc, db := newTestService(t)
	acc := seedAccount(t, db)
	ctx := context.Background()
	day := mustDay(t, "2026-03-02")

	stmt := loadLines(t, svc, acc, day, domain.SideStatement, 700)
	ledger := loadLines(t, svc, acc, day, domain.SideLedger, 700)

	_, err := svc.TryClose(ctx, acc, day, "operador")
	require.NoError(t, err)

	_, err = svc.ReconcileSelected(ctx, acc, day, lineIDs(stmt), lineIDs(ledger), "operador")
	require.ErrorIs(t, err, ErrDayClosed)
}

func TestReverseRoundTrip(t *testing.T) {
	t.Parallel()
	svc, db := newTestService(t)
	acc := seedAccount(t, db)
	ctx := context.Background()
	day := mustDay(t, "2026-03-02")

	stmt := loadLines(t, svc, acc, day, domain.SideStatement, 1200)
	ledger := loadLines(t, svc, acc, day, domain.SideLedger, 1200)

	match, err := svc.ReconcileSelected(ctx, acc, day, lineIDs(stmt), lineIDs(ledger), "operador")
	require.NoError(t, err)

	reversed, err := svc.Reverse(ctx, match.ID, "operador")
	require.NoError(t, err)
	require.Equal(t, domain.MatchReversed, reversed.Status)
	require.NotNil(t, reversed.ReversedAt)

	// As linhas voltam exatamente ao estado anterior à conciliação.
	listed, err := svc.ListLines(ctx, acc, day, domain.FilterUnreconciled)
	require.NoError(t, err)
	require.Len(t, listed.StatementLines, 1)
	require.Len(t, listed.LedgerLines, 1)
	require.Equal(t, int64(1200), listed.StatementLines[0].AmountCents)
	require.Equal(t, int64(1200), listed.LedgerLines[0].AmountCents)
	require.Nil(t, listed.StatementLines[0].MatchID)
}

func TestReverseIsIdempotent(t *testing.T) {
	t.Parallel()
	svc, db := newTestService(t)
	acc := seedAccount(t, db)
	ctx := context.Background()
	day := mustDay(t, "2026-03-02")

	stmt := loadLines(t, svc, acc, day, domain.SideStatement, 1200)
	ledger := loadLines(t, svc, acc, day, domain.SideLedger, 1200)

	match, err := svc.ReconcileSelected(ctx, acc, day, lineIDs(stmt), lineIDs(ledger), "operador")
	require.NoError(t, err)

	first, err := svc.Reverse(ctx, match.ID, "operador")
	require.NoError(t, err)
	second, err := svc.Reverse(ctx, match.ID, "operador")
	require.NoError(t, err)
	require.Equal(t, first.Status, second.Status)
	require.Equal(t, first.ReversedBy, second.ReversedBy)

	listed, err := svc.ListLines(ctx, acc, day, domain.FilterUnreconciled)
	require.NoError(t, err)
	require.Len(t, listed.StatementLines, 1)
	require.Len(t, listed.LedgerLines, 1)
}

func TestReverseUnknownMatch(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	_, err := svc.Reverse(context.Background(), uuid.NewString(), "operador")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSelectionTotalsProjection(t *testing.T) {
	t.Parallel()
	svc, db := newTestService(t)
	acc := seedAccount(t, db)
	ctx := context.Background()
	day := mustDay(t, "2026-03-02")

	stmt := loadLines(t, svc, acc, day, domain.SideStatement, 1000, 500)
	ledger := loadLines(t, svc, acc, day, domain.SideLedger, 1400)

	totals, err := svc.SelectionTotals(ctx, lineIDs(stmt), lineIDs(ledger))
	require.NoError(t, err)
	require.Equal(t, int64(1500), totals.StatementTotal)
	require.Equal(t, int64(1400), totals.LedgerTotal)
	require.Equal(t, int64(100), totals.Delta)
	require.False(t, totals.Balanced)

	// Projeção é somente leitura: nada muda de estado.
	listed, err := svc.ListLines(ctx, acc, day, domain.FilterUnreconciled)
	require.NoError(t, err)
	require.Len(t, listed.StatementLines, 2)
	require.Len(t, listed.LedgerLines, 1)
}

func TestSummarizeAccountMonth(t *testing.T) {
	t.Parallel()
	svc, db := newTestService(t)
	acc := seedAccount(t, db)
	ctx := context.Background()

	d1 := mustDay(t, "2026-03-02")
	d2 := mustDay(t, "2026-03-03")
	loadLines(t, svc, acc, d1, domain.SideStatement, 1000)
	loadLines(t, svc, acc, d1, domain.SideLedger, 1000)
	loadLines(t, svc, acc, d2, domain.SideStatement, 2000)
	loadLines(t, svc, acc, d2, domain.SideLedger, 2600)

	summary, err := svc.SummarizeAccount(ctx, acc, mustDay(t, "2026-03-01"))
	require.NoError(t, err)
	require.Equal(t, "2026-03", summary.Month)
	require.Equal(t, int64(3000), summary.StatementTotal)
	require.Equal(t, int64(3600), summary.LedgerTotal)
	require.Equal(t, int64(600), summary.Diff)
	require.Equal(t, domain.StatusPending, summary.Status)
	require.Len(t, summary.Days, 2)
}

func TestUnknownAccount(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	_, err := svc.SummarizeDay(context.Background(), uuid.NewString(), mustDay(t, "2026-03-02"))
	require.ErrorIs(t, err, ErrNotFound)
}
