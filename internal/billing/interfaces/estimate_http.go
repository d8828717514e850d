package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"

	"gestor-energia/internal/audit"
	"gestor-energia/internal/billing/application"
	billing "gestor-energia/internal/billing/domain"
)

// EstimateHandler serves estimate reads and batch upserts under
// /api/v1/estimativas.
type EstimateHandler struct {
	service     *application.EstimateService
	auditLogger audit.Logger
}

// NewEstimateHandler constructs the handler.
func NewEstimateHandler(service *application.EstimateService, auditLogger audit.Logger) (*EstimateHandler, error) {
	if service == nil {
		return nil, errors.New("estimate handler: nil service")
	}
	return &EstimateHandler{service: service, auditLogger: auditLogger}, nil
}

func (h *EstimateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r)
	case http.MethodPost, http.MethodPut:
		h.handleSave(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *EstimateHandler) handleList(w http.ResponseWriter, r *http.Request) {
	competenceID := r.URL.Query().Get("competenciaId")
	if competenceID == "" {
		http.Error(w, "competenciaId is required", http.StatusBadRequest)
		return
	}
	estimates, err := h.service.List(r.Context(), competenceID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if estimates == nil {
		estimates = []billing.Estimate{}
	}
	writeJSON(w, http.StatusOK, estimates)
}

func (h *EstimateHandler) handleSave(w http.ResponseWriter, r *http.Request) {
	var inputs []application.EstimateInput
	if err := json.NewDecoder(r.Body).Decode(&inputs); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	saved, err := h.service.Save(r.Context(), inputs)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	logAudit(h.auditLogger, r, "estimativa.save", "estimativa", "", map[string]any{
		"count": len(saved),
	})
	writeJSON(w, http.StatusOK, saved)
}
