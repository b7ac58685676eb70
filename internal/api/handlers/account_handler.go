// internal/api/handlers/account_handler.go
package handlers

import (
	"errors"
	"net/http"

	"conciliacao-service/internal/api/responses"
	"conciliacao-service/internal/core/accounts"
	"conciliacao-service/internal/domain"

	"github.com/gin-gonic/gin"
)

// AccountHandler handles account registry API requests.
type AccountHandler struct {
	service accounts.Service
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(service accounts.Service) *AccountHandler {
	return &AccountHandler{service: service}
}

type createAccountRequest struct {
	Name string `json:"name" binding:"required"`
	Kind string `json:"kind" binding:"required"`
}

// Create handles POST /accounts.
func (h *AccountHandler) Create(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Error(c, http.StatusBadRequest, "Corpo da requisição inválido", err.Error())
		return
	}

	acc, err := h.service.Create(c.Request.Context(), req.Name, domain.AccountKind(req.Kind))
	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrInvalidKind), errors.Is(err, accounts.ErrEmptyName):
			responses.Error(c, http.StatusUnprocessableEntity, err.Error())
		default:
			responses.Error(c, http.StatusInternalServerError, "Erro ao cadastrar a conta", err.Error())
		}
		return
	}
	responses.Created(c, acc, "Conta cadastrada com sucesso")
}

// Get handles GET /accounts/:account.
func (h *AccountHandler) Get(c *gin.Context) {
	acc, err := h.service.Get(c.Request.Context(), c.Param("account"))
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			responses.Error(c, http.StatusNotFound, "Conta não encontrada")
			return
		}
		responses.Error(c, http.StatusInternalServerError, "Erro ao consultar a conta", err.Error())
		return
	}
	responses.Success(c, acc, "Conta consultada com sucesso")
}

// List handles GET /accounts with optional fuzzy name search via ?q=.
func (h *AccountHandler) List(c *gin.Context) {
	list, err := h.service.List(c.Request.Context(), c.Query("q"))
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, "Erro ao listar as contas", err.Error())
		return
	}
	responses.Success(c, list, "Contas listadas com sucesso")
}
