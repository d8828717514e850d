package interfaces

import (
	"errors"
	"net/http"
	"strings"

	"gestor-energia/internal/billing/application"
)

// DashboardHandler serves the dashboard projection under /api/v1/dashboard
// and the per-unit drill-down under /api/v1/dashboard/unidades/{id}.
type DashboardHandler struct {
	service    *application.DashboardService
	identities IdentityProvider
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service *application.DashboardService, identities IdentityProvider) (*DashboardHandler, error) {
	if service == nil {
		return nil, errors.New("dashboard handler: nil service")
	}
	if identities == nil {
		return nil, errors.New("dashboard handler: nil identity provider")
	}
	return &DashboardHandler{service: service, identities: identities}, nil
}

func (h *DashboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	identity, ok := resolveIdentity(w, r, h.identities)
	if !ok {
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/v1/dashboard")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		projection, err := h.service.Compute(r.Context(), identity, r.URL.Query().Get("competenciaId"))
		if err != nil {
			respondServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, projection)
		return
	}

	if unitID, ok := strings.CutPrefix(path, "unidades/"); ok && unitID != "" {
		detail, err := h.service.UnitDetail(r.Context(), identity, unitID)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
		return
	}

	http.Error(w, "not found", http.StatusNotFound)
}
