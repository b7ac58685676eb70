// internal/api/handlers/reconciliation_handler.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"conciliacao-service/internal/api/responses"
	"conciliacao-service/internal/core/reconciliation"
	"conciliacao-service/internal/domain"

	"github.com/gin-gonic/gin"
)

// operatorHeader carries the operator identity resolved by the gateway.
const operatorHeader = "X-Operator"

// ReconciliationHandler handles reconciliation API requests.
type ReconciliationHandler struct {
	service reconciliation.Service
}

// NewReconciliationHandler creates a new reconciliation handler.
func NewReconciliationHandler(service reconciliation.Service) *ReconciliationHandler {
	return &ReconciliationHandler{service: service}
}

type loadLinesRequest struct {
	Lines []domain.LineInput `json:"lines" binding:"required"`
}

type selectionRequest struct {
	StatementLineIDs []string `json:"statement_line_ids"`
	LedgerLineIDs    []string `json:"ledger_line_ids"`
}

func (h *ReconciliationHandler) day(c *gin.Context) (time.Time, bool) {
	day, err := time.Parse(domain.DateLayout, c.Param("date"))
	if err != nil {
		responses.Error(c, http.StatusBadRequest, "Data inválida, use o formato AAAA-MM-DD")
		return time.Time{}, false
	}
	return day, true
}

func actor(c *gin.Context) string {
	if op := c.GetHeader(operatorHeader); op != "" {
		return op
	}
	return "sistema"
}

// respondError maps engine errors to HTTP statuses. Conflicts carry their
// machine-readable context in the data field.
func respondError(c *gin.Context, err error) {
	var blocked *reconciliation.BlockedError
	var mismatch *reconciliation.AmountMismatchError
	var scope *reconciliation.SelectionScopeError

	switch {
	case errors.Is(err, reconciliation.ErrNotFound):
		responses.Error(c, http.StatusNotFound, "Registro não encontrado")
	case errors.Is(err, reconciliation.ErrEmptySelection):
		responses.Error(c, http.StatusUnprocessableEntity, "Selecione ao menos uma linha de cada lado")
	case errors.Is(err, reconciliation.ErrNonBusinessDay):
		responses.Error(c, http.StatusUnprocessableEntity, "Operação não permitida em fim de semana")
	case errors.Is(err, reconciliation.ErrStaleSelection):
		responses.Error(c, http.StatusConflict, "Seleção desatualizada, recarregue as linhas e tente novamente")
	case errors.Is(err, reconciliation.ErrDayClosed):
		responses.Error(c, http.StatusConflict, "Dia já está fechado para conciliação")
	case errors.As(err, &blocked):
		responses.ErrorWithData(c, http.StatusConflict, "Existe dia anterior não balanceado",
			gin.H{"blocking_date": blocked.BlockingDate.Format(domain.DateLayout)})
	case errors.As(err, &mismatch):
		responses.ErrorWithData(c, http.StatusUnprocessableEntity, "Valores selecionados não conferem",
			gin.H{"delta": mismatch.Delta})
	case errors.As(err, &scope):
		responses.ErrorWithData(c, http.StatusUnprocessableEntity, "Linha fora da conta ou data informadas",
			gin.H{"line_id": scope.LineID})
	default:
		responses.Error(c, http.StatusInternalServerError, "Erro interno na conciliação", err.Error())
	}
}

// LoadStatementLines handles POST .../statement-lines, the statement-import
// collaborator boundary.
func (h *ReconciliationHandler) LoadStatementLines(c *gin.Context) {
	h.loadLines(c, domain.SideStatement)
}

// LoadLedgerLines handles POST .../ledger-lines, the ledger-posting
// collaborator boundary.
func (h *ReconciliationHandler) LoadLedgerLines(c *gin.Context) {
	h.loadLines(c, domain.SideLedger)
}

func (h *ReconciliationHandler) loadLines(c *gin.Context, side domain.Side) {
	day, ok := h.day(c)
	if !ok {
		return
	}
	var req loadLinesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Error(c, http.StatusBadRequest, "Corpo da requisição inválido", err.Error())
		return
	}

	lines, err := h.service.LoadLines(c.Request.Context(), c.Param("account"), day, side, req.Lines)
	if err != nil {
		respondError(c, err)
		return
	}
	responses.Created(c, lines, "Linhas carregadas com sucesso")
}

// DaySummary handles GET .../days/:date.
func (h *ReconciliationHandler) DaySummary(c *gin.Context) {
	day, ok := h.day(c)
	if !ok {
		return
	}
	summary, err := h.service.SummarizeDay(c.Request.Context(), c.Param("account"), day)
	if err != nil {
		respondError(c, err)
		return
	}
	responses.Success(c, summary, "Resumo do dia consultado com sucesso")
}

// MonthSummary handles GET .../summary?month=AAAA-MM.
func (h *ReconciliationHandler) MonthSummary(c *gin.Context) {
	month, err := time.Parse("2006-01", c.Query("month"))
	if err != nil {
		responses.Error(c, http.StatusBadRequest, "Mês inválido, use o formato AAAA-MM")
		return
	}
	summary, err := h.service.SummarizeAccount(c.Request.Context(), c.Param("account"), month)
	if err != nil {
		respondError(c, err)
		return
	}
	responses.Success(c, summary, "Resumo do mês consultado com sucesso")
}

// ListLines handles GET .../lines?filter=unreconciled|reconciled|all.
func (h *ReconciliationHandler) ListLines(c *gin.Context) {
	day, ok := h.day(c)
	if !ok {
		return
	}
	filter := domain.LineFilter(c.DefaultQuery("filter", string(domain.FilterUnreconciled)))
	if !domain.ValidFilter(filter) {
		responses.Error(c, http.StatusBadRequest, "Filtro inválido, use unreconciled, reconciled ou all")
		return
	}
	lines, err := h.service.ListLines(c.Request.Context(), c.Param("account"), day, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	responses.Success(c, lines, "Linhas listadas com sucesso")
}

// Reconcile handles POST .../reconcile.
func (h *ReconciliationHandler) Reconcile(c *gin.Context) {
	day, ok := h.day(c)
	if !ok {
		return
	}
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Error(c, http.StatusBadRequest, "Corpo da requisição inválido", err.Error())
		return
	}

	match, err := h.service.ReconcileSelected(c.Request.Context(), c.Param("account"), day,
		req.StatementLineIDs, req.LedgerLineIDs, actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	responses.Created(c, match, "Conciliação registrada com sucesso")
}

// SelectionTotals handles POST .../selection-totals, the live projection of
// a not-yet-committed selection.
func (h *ReconciliationHandler) SelectionTotals(c *gin.Context) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Error(c, http.StatusBadRequest, "Corpo da requisição inválido", err.Error())
		return
	}
	totals, err := h.service.SelectionTotals(c.Request.Context(), req.StatementLineIDs, req.LedgerLineIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	responses.Success(c, totals, "Totais da seleção calculados com sucesso")
}

// AutoMatch handles POST .../auto-match.
func (h *ReconciliationHandler) AutoMatch(c *gin.Context) {
	day, ok := h.day(c)
	if !ok {
		return
	}
	result, err := h.service.AutoMatch(c.Request.Context(), c.Param("account"), day, actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	responses.Success(c, result, "Conciliação automática concluída com sucesso")
}

// Suggestions handles GET .../suggestions?limit=N.
func (h *ReconciliationHandler) Suggestions(c *gin.Context) {
	day, ok := h.day(c)
	if !ok {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil {
		responses.Error(c, http.StatusBadRequest, "Limite inválido, informe um número inteiro")
		return
	}
	suggestions, err := h.service.Suggestions(c.Request.Context(), c.Param("account"), day, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	responses.Success(c, suggestions, "Sugestões de conciliação geradas com sucesso")
}

// Close handles POST .../close.
func (h *ReconciliationHandler) Close(c *gin.Context) {
	day, ok := h.day(c)
	if !ok {
		return
	}
	summary, err := h.service.TryClose(c.Request.Context(), c.Param("account"), day, actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	responses.Success(c, summary, "Dia fechado com sucesso")
}

// Reopen handles POST .../reopen.
func (h *ReconciliationHandler) Reopen(c *gin.Context) {
	day, ok := h.day(c)
	if !ok {
		return
	}
	summary, err := h.service.Reopen(c.Request.Context(), c.Param("account"), day, actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	responses.Success(c, summary, "Dia reaberto com sucesso")
}

// Reverse handles POST /matches/:id/reverse.
func (h *ReconciliationHandler) Reverse(c *gin.Context) {
	match, err := h.service.Reverse(c.Request.Context(), c.Param("id"), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	responses.Success(c, match, "Conciliação revertida com sucesso")
}
