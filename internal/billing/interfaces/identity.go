package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"gestor-energia/internal/audit"
	"gestor-energia/internal/auth"
	"gestor-energia/internal/billing/application"
	billing "gestor-energia/internal/billing/domain"
)

// IdentityProvider resolves the authenticated subject into the caller
// identity use cases run under.
type IdentityProvider interface {
	Identity(ctx context.Context, userID string) (application.Identity, error)
}

// resolveIdentity loads the caller identity from the request context,
// writing the error response itself when that fails.
func resolveIdentity(w http.ResponseWriter, r *http.Request, provider IdentityProvider) (application.Identity, bool) {
	subject := auth.SubjectFromContext(r.Context())
	if subject == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return application.Identity{}, false
	}
	identity, err := provider.Identity(r.Context(), subject)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return application.Identity{}, false
	}
	return identity, true
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, billing.ErrExpenseNotFound),
		errors.Is(err, billing.ErrCompetenceNotFound),
		errors.Is(err, application.ErrUnitNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, application.ErrUnitAccessDenied),
		errors.Is(err, application.ErrInactiveAccount):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, billing.ErrCompetenceExists),
		errors.Is(err, billing.ErrCompetenceInUse):
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

func logAudit(logger audit.Logger, r *http.Request, action, entityType, entityID string, meta map[string]any) {
	if logger == nil {
		return
	}
	var payload []byte
	if meta != nil {
		payload, _ = json.Marshal(meta)
	}
	_ = logger.Log(r.Context(), audit.Entry{
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
