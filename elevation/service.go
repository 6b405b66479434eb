package elevation

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sudolite/sudolite/auth"
	"github.com/sudolite/sudolite/types"
)

// MaxPasswordLength is the upper bound on accepted password input.
const MaxPasswordLength = 255

// User-facing messages. Every denial uses the same generic message so that
// response content does not reveal which check failed.
const (
	MsgAuthRequired = "Authentication required."
	MsgAccessDenied = "Access denied."
	MsgUnavailable  = "Something went wrong. Please try again."
	MsgElevated     = "Administrator privileges enabled."
	MsgLeft         = "Administrator privileges disabled."
)

// UserStore is the interface for persisted user elevation state. Each
// mutation must be a single atomic update against the user's primary key.
type UserStore interface {
	GetUserByID(ctx context.Context, userID int64) (*types.User, error)
	GrantElevation(ctx context.Context, userID int64, since int64) error
	RefreshElevation(ctx context.Context, userID int64, since int64) error
	RevokeElevation(ctx context.Context, userID int64) error
	DemotePermanentAdmin(ctx context.Context, userID int64) error
}

// AuditLogger is the interface for audit logging.
type AuditLogger interface {
	CreateAuditLog(ctx context.Context, entry *types.AuditLog) error
}

// RequestMeta carries request attributes recorded in the audit trail.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// Result is the structured outcome of an elevate or leave action.
// User, when set, is the post-mutation record for the caller to install
// into its request context.
type Result struct {
	Success bool
	Message string
	Reload  bool
	User    *types.User
}

func denied() *Result {
	return &Result{Success: false, Message: MsgAccessDenied}
}

// Service owns the elevation state machine. The guard middleware and the
// HTTP handlers both operate through the same service instance.
type Service struct {
	store    UserStore
	verifier auth.PasswordVerifier
	audit    AuditLogger
	timeout  time.Duration
	now      func() time.Time
}

// NewService creates an elevation service. audit may be nil to disable the
// audit trail. A non-positive timeout falls back to DefaultTimeout.
func NewService(store UserStore, verifier auth.PasswordVerifier, audit AuditLogger, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		store:    store,
		verifier: verifier,
		audit:    audit,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Timeout returns the configured elevation window.
func (s *Service) Timeout() time.Duration {
	return s.timeout
}

// Elevate performs the password re-check and grants a tracked elevation.
func (s *Service) Elevate(ctx context.Context, user *types.User, password string, meta RequestMeta) *Result {
	if user == nil {
		log.Warn().Str("ip", meta.IPAddress).Msg("Elevation attempt without authenticated user")
		deniedTotal.WithLabelValues("no_user").Inc()
		return &Result{Success: false, Message: MsgAuthRequired}
	}

	if !user.ElevationEligible {
		log.Warn().Int64("user_id", user.ID).Msg("User attempted elevation without eligibility")
		deniedTotal.WithLabelValues("not_eligible").Inc()
		return denied()
	}

	if user.IsAdmin {
		log.Info().Int64("user_id", user.ID).Msg("User attempted elevation while already admin")
		deniedTotal.WithLabelValues("already_admin").Inc()
		return denied()
	}

	password = strings.TrimSpace(password)
	if password == "" || len(password) > MaxPasswordLength {
		log.Warn().Int64("user_id", user.ID).Msg("Invalid password input for elevation")
		deniedTotal.WithLabelValues("validation").Inc()
		return denied()
	}

	if !s.verifier.Verify(password, user.CredentialHash) {
		log.Warn().Int64("user_id", user.ID).Msg("Password mismatch for elevation")
		deniedTotal.WithLabelValues("password_mismatch").Inc()
		return denied()
	}

	now := s.now().Unix()
	if err := s.store.GrantElevation(ctx, user.ID, now); err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to persist elevation grant")
		return &Result{Success: false, Message: MsgUnavailable}
	}

	updated := *user
	updated.IsAdmin = true
	updated.ElevatedSince = now
	updated.ElevationEligible = true

	s.recordAudit(ctx, user.ID, types.ActionElevationGranted, map[string]interface{}{
		"elevated_since": now,
		"timeout":        s.timeout.String(),
	}, meta)
	grantsTotal.Inc()

	log.Info().Int64("user_id", user.ID).Msg("User elevated to admin")

	return &Result{Success: true, Message: MsgElevated, Reload: true, User: &updated}
}

// Leave voluntarily revokes a tracked elevation. Permanent admins cannot
// leave through this path.
func (s *Service) Leave(ctx context.Context, user *types.User, meta RequestMeta) *Result {
	if user == nil {
		log.Warn().Str("ip", meta.IPAddress).Msg("Leave attempt without authenticated user")
		deniedTotal.WithLabelValues("no_user").Inc()
		return &Result{Success: false, Message: MsgAuthRequired}
	}

	if !user.IsAdmin {
		log.Warn().Int64("user_id", user.ID).Msg("Non-admin user attempted to leave admin mode")
		deniedTotal.WithLabelValues("not_admin").Inc()
		return denied()
	}

	if !user.IsElevated() {
		log.Warn().Int64("user_id", user.ID).Msg("Permanent admin attempted to leave admin mode")
		deniedTotal.WithLabelValues("permanent_admin").Inc()
		return denied()
	}

	if err := s.store.RevokeElevation(ctx, user.ID); err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to persist leave")
		return &Result{Success: false, Message: MsgUnavailable}
	}

	updated := *user
	updated.IsAdmin = false
	updated.ElevatedSince = 0

	s.recordAudit(ctx, user.ID, types.ActionElevationLeft, map[string]interface{}{
		"elevated_since": user.ElevatedSince,
	}, meta)

	log.Info().Int64("user_id", user.ID).Msg("User left admin mode")

	return &Result{Success: true, Message: MsgLeft, Reload: true, User: &updated}
}

// ProcessRequest evaluates the elevation policy for a guarded request and
// applies the resulting mutation. It always returns a usable user record:
// on write failure the original record is returned and the next request
// retries the mutation.
func (s *Service) ProcessRequest(ctx context.Context, user *types.User, meta RequestMeta) *types.User {
	now := s.now().Unix()

	switch Decide(user.IsAdmin, user.ElevatedSince, now, s.timeout) {
	case DecisionNoOp:
		return user

	case DecisionDemotePermanentAdmin:
		if err := s.store.DemotePermanentAdmin(ctx, user.ID); err != nil {
			log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to demote permanent admin")
			return user
		}
		updated := *user
		updated.IsAdmin = false
		updated.ElevatedSince = 0
		updated.ElevationEligible = true
		s.recordAudit(ctx, user.ID, types.ActionPermanentAdminDemoted, nil, meta)
		demotionsTotal.Inc()
		log.Info().Int64("user_id", user.ID).Msg("Permanent admin reverted to non-admin status")
		return &updated

	case DecisionExpire:
		if err := s.store.RevokeElevation(ctx, user.ID); err != nil {
			log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to persist elevation expiry")
			return user
		}
		updated := *user
		updated.IsAdmin = false
		updated.ElevatedSince = 0
		s.recordAudit(ctx, user.ID, types.ActionElevationExpired, map[string]interface{}{
			"elevated_since": user.ElevatedSince,
		}, meta)
		expiriesTotal.Inc()
		log.Info().Int64("user_id", user.ID).Msg("Admin elevation expired")
		return &updated

	case DecisionRefresh:
		if err := s.store.RefreshElevation(ctx, user.ID, now); err != nil {
			// A missed refresh is not fatal, the next request retries.
			log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to refresh elevation timestamp")
			refreshFailures.Inc()
			return user
		}
		updated := *user
		updated.ElevatedSince = now
		updated.ElevationEligible = true
		return &updated
	}

	return user
}

// ClearOnLogout revokes a tracked elevation as part of logout. A permanent
// admin's flag is left untouched.
func (s *Service) ClearOnLogout(ctx context.Context, user *types.User, meta RequestMeta) error {
	if user == nil || user.ElevatedSince == 0 {
		return nil
	}

	if err := s.store.RevokeElevation(ctx, user.ID); err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to clear elevation on logout")
		return err
	}

	s.recordAudit(ctx, user.ID, types.ActionElevationCleared, map[string]interface{}{
		"elevated_since": user.ElevatedSince,
	}, meta)

	log.Info().Int64("user_id", user.ID).Msg("Elevation cleared on logout")
	return nil
}

func (s *Service) recordAudit(ctx context.Context, userID int64, action string, changes map[string]interface{}, meta RequestMeta) {
	if s.audit == nil {
		return
	}

	entry := types.NewAuditLog(userID, action).
		WithIPAddress(meta.IPAddress).
		WithUserAgent(meta.UserAgent)
	if changes != nil {
		entry = entry.WithChanges(changes)
	}

	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		log.Error().Err(err).Str("action", action).Int64("user_id", userID).Msg("Failed to create audit log")
	}
}
