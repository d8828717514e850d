package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"gestor-energia/internal/audit"
	"gestor-energia/internal/billing/application"
	billing "gestor-energia/internal/billing/domain"
)

// ExpenseHandler serves expense CRUD under /api/v1/despesas.
type ExpenseHandler struct {
	service     *application.ExpenseService
	identities  IdentityProvider
	auditLogger audit.Logger
}

// NewExpenseHandler constructs the handler.
func NewExpenseHandler(service *application.ExpenseService, identities IdentityProvider, auditLogger audit.Logger) (*ExpenseHandler, error) {
	if service == nil {
		return nil, errors.New("expense handler: nil service")
	}
	if identities == nil {
		return nil, errors.New("expense handler: nil identity provider")
	}
	return &ExpenseHandler{service: service, identities: identities, auditLogger: auditLogger}, nil
}

func (h *ExpenseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/despesas")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		case http.MethodPost:
			h.handleCreate(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r, path)
	case http.MethodPut:
		h.handleUpdate(w, r, path)
	case http.MethodDelete:
		h.handleDelete(w, r, path)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ExpenseHandler) handleList(w http.ResponseWriter, r *http.Request) {
	identity, ok := resolveIdentity(w, r, h.identities)
	if !ok {
		return
	}
	query := r.URL.Query()
	input := application.ListExpensesInput{
		UnitID:       query.Get("unidadeId"),
		ContractID:   query.Get("contratoId"),
		MarketType:   query.Get("marketType"),
		CompetenceID: query.Get("competenciaId"),
		Type:         query.Get("tipoDespesa"),
	}

	expenses, err := h.service.List(r.Context(), identity, input)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if expenses == nil {
		expenses = []billing.Expense{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (h *ExpenseHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	identity, ok := resolveIdentity(w, r, h.identities)
	if !ok {
		return
	}
	expense, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !identity.CanAccessUnit(expense.UnitID) {
		respondServiceError(w, application.ErrUnitAccessDenied)
		return
	}
	writeJSON(w, http.StatusOK, expense)
}

func (h *ExpenseHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var input billing.Expense
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	expense, err := h.service.Create(r.Context(), input)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	logAudit(h.auditLogger, r, "despesa.create", "despesa", expense.ID, map[string]any{
		"unidadeId":   expense.UnitID,
		"tipoDespesa": string(expense.Type),
		"valor":       expense.Value,
	})
	writeJSON(w, http.StatusCreated, expense)
}

func (h *ExpenseHandler) handleUpdate(w http.ResponseWriter, r *http.Request, id string) {
	var input billing.Expense
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	expense, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	logAudit(h.auditLogger, r, "despesa.update", "despesa", expense.ID, map[string]any{
		"unidadeId":   expense.UnitID,
		"tipoDespesa": string(expense.Type),
		"valor":       expense.Value,
	})
	writeJSON(w, http.StatusOK, expense)
}

func (h *ExpenseHandler) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.service.Delete(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	logAudit(h.auditLogger, r, "despesa.delete", "despesa", id, nil)
	w.WriteHeader(http.StatusNoContent)
}
