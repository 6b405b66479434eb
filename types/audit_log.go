package types

import (
	"database/sql"
	"time"
)

// AuditLog represents a log entry for tracking privilege changes.
type AuditLog struct {
	ID          int64          `db:"id" json:"id"`
	Timestamp   time.Time      `db:"timestamp" json:"timestamp"`
	ActorUserID sql.NullInt64  `db:"actor_user_id" json:"actor_user_id"`
	Action      string         `db:"action" json:"action"`
	Changes     JSONMap        `db:"changes" json:"changes"`
	IPAddress   sql.NullString `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent   sql.NullString `db:"user_agent" json:"user_agent,omitempty"`
}

// Audit log action constants.
const (
	ActionUserLoggedIn          = "user.logged_in"
	ActionUserLoggedOut         = "user.logged_out"
	ActionElevationGranted      = "user.elevation_granted"
	ActionElevationLeft         = "user.elevation_left"
	ActionElevationExpired      = "user.elevation_expired"
	ActionElevationCleared      = "user.elevation_cleared"
	ActionPermanentAdminDemoted = "user.permanent_admin_demoted"
)

// NewAuditLog creates a new audit log entry with common fields.
func NewAuditLog(actorUserID int64, action string) *AuditLog {
	entry := &AuditLog{
		Timestamp: time.Now(),
		Action:    action,
		Changes:   make(JSONMap),
	}

	if actorUserID != 0 {
		entry.ActorUserID = sql.NullInt64{Int64: actorUserID, Valid: true}
	}

	return entry
}

// WithChanges adds change details to the audit log.
func (a *AuditLog) WithChanges(changes map[string]interface{}) *AuditLog {
	if a.Changes == nil {
		a.Changes = make(JSONMap)
	}
	for k, v := range changes {
		a.Changes[k] = v
	}
	return a
}

// WithIPAddress adds IP address to the audit log.
func (a *AuditLog) WithIPAddress(ip string) *AuditLog {
	if ip != "" {
		a.IPAddress = sql.NullString{String: ip, Valid: true}
	}
	return a
}

// WithUserAgent adds user agent to the audit log.
func (a *AuditLog) WithUserAgent(ua string) *AuditLog {
	if ua != "" {
		a.UserAgent = sql.NullString{String: ua, Valid: true}
	}
	return a
}
