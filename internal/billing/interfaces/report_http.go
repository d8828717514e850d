package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"gestor-energia/internal/audit"
	"gestor-energia/internal/billing/application"
	"gestor-energia/internal/observability/metrics"
)

// ReportHandler serves cost report composition, export and delivery under
// /api/v1/relatorios/{competenciaId}.
type ReportHandler struct {
	service     *application.ReportService
	identities  IdentityProvider
	auditLogger audit.Logger
}

// NewReportHandler constructs the handler.
func NewReportHandler(service *application.ReportService, identities IdentityProvider, auditLogger audit.Logger) (*ReportHandler, error) {
	if service == nil {
		return nil, errors.New("report handler: nil service")
	}
	if identities == nil {
		return nil, errors.New("report handler: nil identity provider")
	}
	return &ReportHandler{service: service, identities: identities, auditLogger: auditLogger}, nil
}

func (h *ReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/relatorios")
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	identity, ok := resolveIdentity(w, r, h.identities)
	if !ok {
		return
	}

	competenceID := path
	action := ""
	if idx := strings.IndexByte(path, '/'); idx >= 0 {
		competenceID = path[:idx]
		action = path[idx+1:]
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.handleGenerate(w, r, identity, competenceID)
	case "send":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.handleSend(w, r, identity, competenceID)
	case "export.pdf":
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.handleExportPDF(w, r, identity, competenceID)
	case "export.xlsx":
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.handleExportXLSX(w, r, identity, competenceID)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *ReportHandler) handleGenerate(w http.ResponseWriter, r *http.Request, identity application.Identity, competenceID string) {
	model, err := h.service.Generate(r.Context(), identity, competenceID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model)
}

type sendReportRequest struct {
	Recipients []string `json:"destinatarios"`
}

func (h *ReportHandler) handleSend(w http.ResponseWriter, r *http.Request, identity application.Identity, competenceID string) {
	var req sendReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if len(req.Recipients) == 0 {
		http.Error(w, "recipients required", http.StatusBadRequest)
		return
	}

	model, err := h.service.Send(r.Context(), identity, competenceID, req.Recipients)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	logAudit(h.auditLogger, r, "relatorio.send", "relatorio", competenceID, map[string]any{
		"destinatarios": len(req.Recipients),
	})
	writeJSON(w, http.StatusOK, model)
}

func (h *ReportHandler) handleExportPDF(w http.ResponseWriter, r *http.Request, identity application.Identity, competenceID string) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveReportExport("pdf", result, time.Since(start))
	}()

	model, err := h.service.Generate(r.Context(), identity, competenceID)
	if err != nil {
		result = metrics.ResultError
		respondServiceError(w, err)
		return
	}
	data, err := BuildReportPDF(model)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "export pdf error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	logAudit(h.auditLogger, r, "relatorio.export", "relatorio", competenceID, map[string]any{"format": "pdf"})
}

func (h *ReportHandler) handleExportXLSX(w http.ResponseWriter, r *http.Request, identity application.Identity, competenceID string) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveReportExport("xlsx", result, time.Since(start))
	}()

	model, err := h.service.Generate(r.Context(), identity, competenceID)
	if err != nil {
		result = metrics.ResultError
		respondServiceError(w, err)
		return
	}
	data, err := BuildReportXLSX(model)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "export xlsx error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	logAudit(h.auditLogger, r, "relatorio.export", "relatorio", competenceID, map[string]any{"format": "xlsx"})
}
