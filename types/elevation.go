package types

import "time"

// Elevation actions accepted by the action endpoint.
const (
	ElevationActionElevate = "elevate"
	ElevationActionLeave   = "leave"
)

// ElevationState describes a tracked elevation for the status endpoint.
type ElevationState struct {
	Active    bool      `json:"active"`
	Since     time.Time `json:"since"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ElevationRequest is the request body for the elevation action endpoint.
type ElevationRequest struct {
	Action   string `json:"action"`
	Password string `json:"password"`
}

// ElevationResponse is the body-level result of an elevate or leave action.
// Reload signals the caller to refresh its view of the current user.
type ElevationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Reload  bool   `json:"reload,omitempty"`
}

// ElevationStatusResponse is the response for the elevation status endpoint.
type ElevationStatusResponse struct {
	IsAdmin   bool            `json:"is_admin"`
	Eligible  bool            `json:"eligible"`
	Elevation *ElevationState `json:"elevation,omitempty"`
}
