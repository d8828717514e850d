package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"gestor-energia/internal/audit"
	"gestor-energia/internal/auth"
	"gestor-energia/internal/masterdata/application"
	masterdata "gestor-energia/internal/masterdata/domain"
)

// Handler provides unit and contract HTTP endpoints under /api/v1/unidades
// and /api/v1/contratos.
type Handler struct {
	service     *application.Service
	auditLogger audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *application.Service, auditLogger audit.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("masterdata handler: nil service")
	}
	return &Handler{service: service, auditLogger: auditLogger}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/v1/unidades":
		h.handleUnits(w, r)
	case strings.HasPrefix(path, "/api/v1/unidades/"):
		h.handleUnit(w, r, strings.TrimPrefix(path, "/api/v1/unidades/"))
	case path == "/api/v1/contratos":
		h.handleContracts(w, r)
	case strings.HasPrefix(path, "/api/v1/contratos/"):
		h.handleContract(w, r, strings.TrimPrefix(path, "/api/v1/contratos/"))
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *Handler) handleUnits(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		query := r.URL.Query()
		filter := masterdata.UnitFilter{
			ContractID: query.Get("contratoId"),
			MarketType: masterdata.MarketType(query.Get("marketType")),
		}
		units, err := h.service.ListUnits(r.Context(), filter)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if units == nil {
			units = []masterdata.Unit{}
		}
		writeJSON(w, http.StatusOK, units)
	case http.MethodPost:
		var input masterdata.Unit
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		unit, err := h.service.CreateUnit(r.Context(), input)
		if err != nil {
			respondError(w, err)
			return
		}
		h.logAudit(r, "unidade.create", "unidade", unit.ID, map[string]any{"nome": unit.Name})
		writeJSON(w, http.StatusCreated, unit)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleUnit(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		unit, err := h.service.GetUnit(r.Context(), id)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, unit)
	case http.MethodPut:
		var input masterdata.Unit
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		unit, err := h.service.UpdateUnit(r.Context(), id, input)
		if err != nil {
			respondError(w, err)
			return
		}
		h.logAudit(r, "unidade.update", "unidade", unit.ID, map[string]any{"nome": unit.Name})
		writeJSON(w, http.StatusOK, unit)
	case http.MethodDelete:
		if err := h.service.DeleteUnit(r.Context(), id); err != nil {
			respondError(w, err)
			return
		}
		h.logAudit(r, "unidade.delete", "unidade", id, nil)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleContracts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		contracts, err := h.service.ListContracts(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if contracts == nil {
			contracts = []masterdata.Contract{}
		}
		writeJSON(w, http.StatusOK, contracts)
	case http.MethodPost:
		var input masterdata.Contract
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		contract, err := h.service.CreateContract(r.Context(), input)
		if err != nil {
			respondError(w, err)
			return
		}
		h.logAudit(r, "contrato.create", "contrato", contract.ID, map[string]any{"nome": contract.Name})
		writeJSON(w, http.StatusCreated, contract)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleContract(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		contract, err := h.service.GetContract(r.Context(), id)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, contract)
	case http.MethodPut:
		var input masterdata.Contract
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		contract, err := h.service.UpdateContract(r.Context(), id, input)
		if err != nil {
			respondError(w, err)
			return
		}
		h.logAudit(r, "contrato.update", "contrato", contract.ID, map[string]any{"nome": contract.Name})
		writeJSON(w, http.StatusOK, contract)
	case http.MethodDelete:
		if err := h.service.DeleteContract(r.Context(), id); err != nil {
			respondError(w, err)
			return
		}
		h.logAudit(r, "contrato.delete", "contrato", id, nil)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) logAudit(r *http.Request, action, entityType, entityID string, meta map[string]any) {
	if h.auditLogger == nil {
		return
	}
	var payload []byte
	if meta != nil {
		payload, _ = json.Marshal(meta)
	}
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		Actor:      auth.SubjectFromContext(r.Context()),
		ActorName:  auth.NameFromContext(r.Context()),
		Role:       string(auth.RoleFromContext(r.Context())),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   payload,
		IP:         audit.ClientIP(r),
		UserAgent:  r.UserAgent(),
	})
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, masterdata.ErrUnitNotFound),
		errors.Is(err, masterdata.ErrContractNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, masterdata.ErrUnitNameTaken):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}
