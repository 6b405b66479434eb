package elevation

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sudolite/sudolite/auth"
	"github.com/sudolite/sudolite/types"
)

// Handlers provides the HTTP surface for the elevation actions.
type Handlers struct {
	svc   *Service
	cache SessionCache
}

// NewHandlers creates new elevation handlers. cache may be nil.
func NewHandlers(svc *Service, cache SessionCache) *Handlers {
	return &Handlers{svc: svc, cache: cache}
}

// ActionHandler handles POST /api/elevation. The response is always 200
// with a body-level success flag; unauthenticated callers get a generic
// denial rather than a status-code distinction.
func (h *Handlers) ActionHandler(w http.ResponseWriter, r *http.Request) {
	var req types.ElevationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, types.ElevationResponse{Success: false, Message: "Invalid request."})
		return
	}

	user := auth.GetUserFromContext(r.Context())
	meta := RequestMeta{
		IPAddress: auth.GetClientIP(r),
		UserAgent: r.UserAgent(),
	}

	var result *Result
	switch req.Action {
	case types.ElevationActionElevate, "":
		result = h.svc.Elevate(r.Context(), user, req.Password, meta)
	case types.ElevationActionLeave:
		result = h.svc.Leave(r.Context(), user, meta)
	default:
		log.Warn().Str("action", req.Action).Msg("Invalid elevation action")
		writeJSON(w, types.ElevationResponse{Success: false, Message: "Invalid request."})
		return
	}

	if result.User != nil && h.cache != nil {
		if err := h.cache.StoreUser(w, r, result.User); err != nil {
			log.Error().Err(err).Int64("user_id", result.User.ID).Msg("Failed to mirror user into session cache")
		}
	}

	writeJSON(w, types.ElevationResponse{
		Success: result.Success,
		Message: result.Message,
		Reload:  result.Reload,
	})
}

// StatusHandler handles GET /api/elevation/status. Requires an
// authenticated user in the request context.
func (h *Handlers) StatusHandler(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r.Context())
	if user == nil {
		types.WriteHTTPError(w, types.NewHTTPError(http.StatusUnauthorized, "Authentication required", nil))
		return
	}

	response := types.ElevationStatusResponse{
		IsAdmin:  user.IsAdmin,
		Eligible: user.ElevationEligible,
	}

	if user.IsElevated() {
		since := time.Unix(user.ElevatedSince, 0)
		response.Elevation = &types.ElevationState{
			Active:    true,
			Since:     since,
			ExpiresAt: since.Add(h.svc.Timeout()),
		}
	}

	writeJSON(w, response)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
