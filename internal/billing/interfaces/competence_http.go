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

// CompetenceHandler serves competence administration under
// /api/v1/competencias.
type CompetenceHandler struct {
	service     *application.CompetenceService
	auditLogger audit.Logger
}

// NewCompetenceHandler constructs the handler.
func NewCompetenceHandler(service *application.CompetenceService, auditLogger audit.Logger) (*CompetenceHandler, error) {
	if service == nil {
		return nil, errors.New("competence handler: nil service")
	}
	return &CompetenceHandler{service: service, auditLogger: auditLogger}, nil
}

func (h *CompetenceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/competencias")
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

	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.handleDelete(w, r, path)
}

func (h *CompetenceHandler) handleList(w http.ResponseWriter, r *http.Request) {
	competences, err := h.service.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if competences == nil {
		competences = []billing.Competence{}
	}
	writeJSON(w, http.StatusOK, competences)
}

type createCompetenceRequest struct {
	Year  int `json:"ano"`
	Month int `json:"mes"`
}

func (h *CompetenceHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createCompetenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	competence, err := h.service.Create(r.Context(), req.Year, req.Month)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	logAudit(h.auditLogger, r, "competencia.create", "competencia", competence.ID, map[string]any{
		"ano": competence.Year,
		"mes": competence.Month,
	})
	writeJSON(w, http.StatusCreated, competence)
}

func (h *CompetenceHandler) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.service.Delete(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	logAudit(h.auditLogger, r, "competencia.delete", "competencia", id, nil)
	w.WriteHeader(http.StatusNoContent)
}
