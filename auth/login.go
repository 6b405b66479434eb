package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sudolite/sudolite/types"
)

// LoginStore is the interface for credential lookups during login.
type LoginStore interface {
	GetUserByUsername(ctx context.Context, username string) (*types.User, error)
}

// AuditLogger is the interface for audit logging of session events.
type AuditLogger interface {
	CreateAuditLog(ctx context.Context, entry *types.AuditLog) error
}

// LogoutHook is invoked for the logging-out user before the session is
// destroyed. The elevation subsystem registers its clear operation here.
type LogoutHook func(ctx context.Context, user *types.User, ip, userAgent string) error

// LoginHandlers provides HTTP handlers for password login and logout.
type LoginHandlers struct {
	sessions *SessionMiddleware
	store    LoginStore
	verifier PasswordVerifier
	audit    AuditLogger
	onLogout LogoutHook
}

// NewLoginHandlers creates new login handlers. audit and onLogout may be nil.
func NewLoginHandlers(sessions *SessionMiddleware, store LoginStore, verifier PasswordVerifier, audit AuditLogger, onLogout LogoutHook) *LoginHandlers {
	return &LoginHandlers{
		sessions: sessions,
		store:    store,
		verifier: verifier,
		audit:    audit,
		onLogout: onLogout,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// LoginHandler handles POST /api/login.
func (h *LoginHandlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		types.WriteHTTPError(w, types.NewHTTPError(http.StatusBadRequest, "Invalid request body", err))
		return
	}

	username := strings.TrimSpace(req.Username)
	ip := GetClientIP(r)

	user, err := h.store.GetUserByUsername(r.Context(), username)
	if err != nil || user == nil {
		log.Warn().Str("username", username).Str("ip", ip).Msg("Login failed, unknown user")
		writeJSON(w, loginResponse{Success: false, Message: "Invalid username or password."})
		return
	}

	if !h.verifier.Verify(req.Password, user.CredentialHash) {
		log.Warn().Int64("user_id", user.ID).Str("ip", ip).Msg("Login failed, password mismatch")
		writeJSON(w, loginResponse{Success: false, Message: "Invalid username or password."})
		return
	}

	if err := h.sessions.Establish(w, r, user); err != nil {
		types.WriteHTTPError(w, types.NewHTTPError(http.StatusInternalServerError, "Failed to save session", err))
		return
	}

	log.Info().Int64("user_id", user.ID).Str("ip", ip).Msg("User logged in")

	if h.audit != nil {
		entry := types.NewAuditLog(user.ID, types.ActionUserLoggedIn).
			WithIPAddress(ip).
			WithUserAgent(r.UserAgent())
		if err := h.audit.CreateAuditLog(r.Context(), entry); err != nil {
			log.Error().Err(err).Msg("Failed to create audit log for login")
		}
	}

	writeJSON(w, loginResponse{Success: true, Message: "Logged in."})
}

// LogoutHandler handles POST /api/logout. The logout hook runs before the
// session is destroyed so elevation never survives past session end.
func (h *LoginHandlers) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		user = h.sessions.Identify(r)
	}

	ip := GetClientIP(r)

	if user != nil && h.onLogout != nil {
		if err := h.onLogout(r.Context(), user, ip, r.UserAgent()); err != nil {
			log.Error().Err(err).Int64("user_id", user.ID).Msg("Logout hook failed")
		}
	}

	if err := h.sessions.Destroy(w, r); err != nil {
		types.WriteHTTPError(w, types.NewHTTPError(http.StatusInternalServerError, "Failed to destroy session", err))
		return
	}

	if user != nil {
		log.Info().Int64("user_id", user.ID).Str("ip", ip).Msg("User logged out")

		if h.audit != nil {
			entry := types.NewAuditLog(user.ID, types.ActionUserLoggedOut).
				WithIPAddress(ip).
				WithUserAgent(r.UserAgent())
			if err := h.audit.CreateAuditLog(r.Context(), entry); err != nil {
				log.Error().Err(err).Msg("Failed to create audit log for logout")
			}
		}
	}

	writeJSON(w, loginResponse{Success: true, Message: "Logged out."})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
