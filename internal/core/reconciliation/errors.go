package reconciliation

import (
	"errors"
	"fmt"
	"time"

	"conciliacao-service/internal/domain"
)

// Sentinel errors surfaced by the engine. None are retried here; the caller
// decides whether refetching or reselecting makes sense.
var (
	// ErrEmptySelection means no line was selected on one of the sides.
	ErrEmptySelection = errors.New("nenhuma linha selecionada em um dos lados")
	// ErrStaleSelection means a referenced line was reconciled by a
	// concurrent commit between listing and committing.
	ErrStaleSelection = errors.New("seleção desatualizada: uma ou mais linhas já foram conciliadas")
	// ErrNotFound covers unknown account, line or match identifiers.
	ErrNotFound = errors.New("registro não encontrado")
	// ErrNonBusinessDay means the target date falls on a weekend, which is
	// outside the matchable and closable set.
	ErrNonBusinessDay = errors.New("data fora de dia útil")
)

// BlockedError reports the first earlier unbalanced day preventing a close.
type BlockedError struct {
	BlockingDate time.Time
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("fechamento bloqueado: dia %s ainda não está balanceado",
		e.BlockingDate.Format(domain.DateLayout))
}

// AmountMismatchError reports the delta between the selected sides.
type AmountMismatchError struct {
	Delta int64
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("valores selecionados não conferem: diferença de %d centavos", e.Delta)
}

// SelectionScopeError reports a selected line outside the target account day.
type SelectionScopeError struct {
	LineID string
}

func (e *SelectionScopeError) Error() string {
	return fmt.Sprintf("linha %s não pertence à conta e data informadas", e.LineID)
}
