package auth

import (
	"context"
	"encoding/gob"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/rs/zerolog/log"
	"github.com/sudolite/sudolite/types"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

// ContextKeyUser is the context key for the authenticated user.
const ContextKeyUser ContextKey = "user"

// Session value keys.
const (
	sessionKeyLogged = "logged"
	sessionKeyUserID = "user_id"
	sessionKeyUser   = "user"
)

func init() {
	// Required for storing the user snapshot in cookie sessions.
	gob.Register(types.User{})
}

// UserStore is the interface for user lookups during authentication.
type UserStore interface {
	GetUserByID(ctx context.Context, userID int64) (*types.User, error)
}

// SessionMiddleware provides session-based authentication middleware and
// owns the session-local user cache. The persisted user record is the
// system of record; the session snapshot only covers store outages.
type SessionMiddleware struct {
	sessionStore sessions.Store
	cookieName   string
	userStore    UserStore
}

// NewSessionMiddleware creates a new session middleware.
func NewSessionMiddleware(sessionStore sessions.Store, cookieName string, userStore UserStore) *SessionMiddleware {
	return &SessionMiddleware{
		sessionStore: sessionStore,
		cookieName:   cookieName,
		userStore:    userStore,
	}
}

// Identify resolves the current user from the session, or nil for an
// anonymous request. An anonymous request is not an error.
func (m *SessionMiddleware) Identify(r *http.Request) *types.User {
	session, err := m.sessionStore.Get(r, m.cookieName)
	if err != nil {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("Failed to get session")
		return nil
	}

	logged, ok := session.Values[sessionKeyLogged].(bool)
	if !ok || !logged {
		return nil
	}

	userID, ok := session.Values[sessionKeyUserID].(int64)
	if !ok {
		return nil
	}

	user, err := m.userStore.GetUserByID(r.Context(), userID)
	if err != nil {
		// Fall back to the session snapshot so the request can proceed
		// with the last known privilege state.
		if cached, ok := session.Values[sessionKeyUser].(types.User); ok && cached.ID == userID {
			log.Error().Err(err).Int64("user_id", userID).Msg("User store unavailable, using session snapshot")
			return &cached
		}
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to load session user")
		return nil
	}

	return user
}

// WithUser installs the identified user, if any, into the request context
// and forwards. It never rejects a request.
func (m *SessionMiddleware) WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := m.Identify(r); user != nil {
			r = r.WithContext(context.WithValue(r.Context(), ContextKeyUser, user))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth returns middleware that rejects unauthenticated requests.
func (m *SessionMiddleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := GetUserFromContext(r.Context())
		if user == nil {
			user = m.Identify(r)
		}
		if user == nil {
			log.Warn().Str("path", r.URL.Path).Msg("Authentication required")
			types.WriteHTTPError(w, types.NewHTTPError(http.StatusUnauthorized, "Authentication required", nil))
			return
		}

		ctx := context.WithValue(r.Context(), ContextKeyUser, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// Establish creates an authenticated session for the user.
func (m *SessionMiddleware) Establish(w http.ResponseWriter, r *http.Request, user *types.User) error {
	session, err := m.sessionStore.Get(r, m.cookieName)
	if err != nil {
		return err
	}

	session.Values[sessionKeyLogged] = true
	session.Values[sessionKeyUserID] = user.ID
	session.Values[sessionKeyUser] = *user

	return session.Save(r, w)
}

// StoreUser mirrors a mutated user record into the session cache so later
// requests retain the post-mutation state even across store outages.
func (m *SessionMiddleware) StoreUser(w http.ResponseWriter, r *http.Request, user *types.User) error {
	session, err := m.sessionStore.Get(r, m.cookieName)
	if err != nil {
		return err
	}

	session.Values[sessionKeyUser] = *user

	return session.Save(r, w)
}

// Destroy terminates the session.
func (m *SessionMiddleware) Destroy(w http.ResponseWriter, r *http.Request) error {
	session, err := m.sessionStore.Get(r, m.cookieName)
	if err != nil {
		return err
	}

	for key := range session.Values {
		delete(session.Values, key)
	}
	session.Options.MaxAge = -1

	return session.Save(r, w)
}

// GetUserFromContext retrieves the user from the request context.
func GetUserFromContext(ctx context.Context) *types.User {
	user, ok := ctx.Value(ContextKeyUser).(*types.User)
	if !ok {
		return nil
	}
	return user
}

// SetUserContext returns a context carrying the given user.
func SetUserContext(ctx context.Context, user *types.User) context.Context {
	return context.WithValue(ctx, ContextKeyUser, user)
}

// GetClientIP extracts the client IP address from the request.
func GetClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first (for proxied requests)
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}

	// Check X-Real-IP header
	realIP := r.Header.Get("X-Real-IP")
	if realIP != "" {
		return realIP
	}

	// Fall back to RemoteAddr
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		return host
	}
	return ip
}
