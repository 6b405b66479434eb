package elevation

import (
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/sudolite/sudolite/auth"
	"github.com/sudolite/sudolite/types"
)

// SkipFunc is an observer consulted before guard processing. Returning true
// suppresses elevation enforcement for this request.
type SkipFunc func(user *types.User, r *http.Request) bool

// SessionCache mirrors a mutated user record into the caller's session
// store. Implemented by auth.SessionMiddleware.
type SessionCache interface {
	StoreUser(w http.ResponseWriter, r *http.Request, user *types.User) error
}

// Guard enforces the elevation policy on every authenticated request. It
// never short-circuits: whatever branch is taken, the request is forwarded
// to the next handler.
type Guard struct {
	svc       *Service
	cache     SessionCache
	skipFuncs []SkipFunc
}

// NewGuard creates a guard around the elevation service. cache may be nil.
func NewGuard(svc *Service, cache SessionCache, skipFuncs ...SkipFunc) *Guard {
	return &Guard{
		svc:       svc,
		cache:     cache,
		skipFuncs: skipFuncs,
	}
}

// Middleware returns the guard as HTTP middleware. It must run after the
// authentication middleware that installs the user into the context.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUserFromContext(r.Context())
		if user == nil {
			next.ServeHTTP(w, r)
			return
		}

		for _, skip := range g.skipFuncs {
			if skip(user, r) {
				next.ServeHTTP(w, r)
				return
			}
		}

		meta := RequestMeta{
			IPAddress: auth.GetClientIP(r),
			UserAgent: r.UserAgent(),
		}

		updated := g.svc.ProcessRequest(r.Context(), user, meta)
		if updated != user {
			if g.cache != nil {
				if err := g.cache.StoreUser(w, r, updated); err != nil {
					log.Error().Err(err).Int64("user_id", updated.ID).Msg("Failed to mirror user into session cache")
				}
			}
			r = r.WithContext(auth.SetUserContext(r.Context(), updated))
		}

		next.ServeHTTP(w, r)
	})
}
