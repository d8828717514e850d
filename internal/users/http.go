package users

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"gestor-energia/internal/audit"
	"gestor-energia/internal/auth"
)

// Handler provides account HTTP endpoints: registration and login under
// /api/v1/auth/, the caller's profile under /api/v1/profile and admin user
// management under /api/v1/users.
type Handler struct {
	service     *Service
	auditLogger audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *Service, auditLogger audit.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("users handler: nil service")
	}
	return &Handler{service: service, auditLogger: auditLogger}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/v1/auth/register" && r.Method == http.MethodPost:
		h.handleRegister(w, r)
	case path == "/api/v1/auth/login" && r.Method == http.MethodPost:
		h.handleLogin(w, r)
	case path == "/api/v1/auth/forgot-password" && r.Method == http.MethodPost:
		h.handleForgotPassword(w, r)
	case path == "/api/v1/profile":
		h.handleProfile(w, r)
	case path == "/api/v1/users" && r.Method == http.MethodGet:
		h.handleList(w, r)
	case strings.HasPrefix(path, "/api/v1/users/"):
		h.handleUser(w, r, strings.TrimPrefix(path, "/api/v1/users/"))
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

type registerRequest struct {
	Name     string `json:"nome"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	user, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	user, token, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrAccountNotActive) {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	user, err := h.service.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, ErrMailerNotConfigured) {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		http.Error(w, "could not send the email", http.StatusInternalServerError)
		return
	}
	if user != nil && h.auditLogger != nil {
		// The caller is anonymous here, so the reset is attributed to the
		// account itself.
		_ = h.auditLogger.Log(r.Context(), audit.Entry{
			Actor:      user.ID,
			ActorName:  user.Name,
			Role:       string(user.Role),
			Action:     "user.forgot_password",
			EntityType: "user",
			EntityID:   user.ID,
			IP:         audit.ClientIP(r),
			UserAgent:  r.UserAgent(),
		})
	}
	// Same response whether or not the email is registered.
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Se um usuário com este e-mail existir, uma nova senha foi enviada.",
	})
}

type profileRequest struct {
	Name     string `json:"nome"`
	Password string `json:"password"`
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	userID := auth.SubjectFromContext(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		user, err := h.service.Get(r.Context(), userID)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodPut:
		var req profileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		user, err := h.service.UpdateProfile(r.Context(), userID, req.Name, req.Password)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []User{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleUser(w http.ResponseWriter, r *http.Request, rest string) {
	parts := strings.Split(rest, "/")
	id := parts[0]
	if id == "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			user, err := h.service.Get(r.Context(), id)
			if err != nil {
				respondError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, user)
		case http.MethodDelete:
			if err := h.service.Delete(r.Context(), id); err != nil {
				respondError(w, err)
				return
			}
			h.logAudit(r, "user.delete", id, nil)
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if len(parts) != 2 || r.Method != http.MethodPatch {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	switch parts[1] {
	case "status":
		var req struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		user, err := h.service.SetStatus(r.Context(), id, Status(req.Status))
		if err != nil {
			respondError(w, err)
			return
		}
		h.logAudit(r, "user.status", id, map[string]any{"status": req.Status})
		writeJSON(w, http.StatusOK, user)
	case "role":
		var req struct {
			Role string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		user, err := h.service.SetRole(r.Context(), id, auth.Role(req.Role))
		if err != nil {
			respondError(w, err)
			return
		}
		h.logAudit(r, "user.role", id, map[string]any{"role": req.Role})
		writeJSON(w, http.StatusOK, user)
	case "units":
		var req struct {
			UnitIDs []string `json:"unidadeIds"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		user, err := h.service.SetAccessibleUnits(r.Context(), id, req.UnitIDs)
		if err != nil {
			respondError(w, err)
			return
		}
		h.logAudit(r, "user.units", id, map[string]any{"unidadeIds": req.UnitIDs})
		writeJSON(w, http.StatusOK, user)
	case "password":
		var req struct {
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := h.service.ResetPassword(r.Context(), id, req.Password); err != nil {
			respondError(w, err)
			return
		}
		h.logAudit(r, "user.password", id, nil)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *Handler) logAudit(r *http.Request, action, entityID string, meta map[string]any) {
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
		EntityType: "user",
		EntityID:   entityID,
		Metadata:   payload,
		IP:         audit.ClientIP(r),
		UserAgent:  r.UserAgent(),
	})
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrPrimaryAdmin):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}
