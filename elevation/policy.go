// Package elevation implements just-in-time admin privilege elevation:
// a password re-check grants the admin flag for a limited window, every
// guarded request extends the window, and inactivity revokes it.
package elevation

import "time"

// DefaultTimeout is the elevation window applied when no timeout is configured.
const DefaultTimeout = 10 * time.Minute

// Decision is the outcome of evaluating a user's elevation state.
type Decision int

const (
	// DecisionNoOp means the user is not an admin; nothing to enforce.
	DecisionNoOp Decision = iota
	// DecisionDemotePermanentAdmin means the admin flag is set without a
	// tracked elevation. The account is converted to a non-admin,
	// elevation-eligible one so that every admin session observed by the
	// guard went through this mechanism.
	DecisionDemotePermanentAdmin
	// DecisionExpire means the tracked elevation window has lapsed.
	DecisionExpire
	// DecisionRefresh means the elevation is still valid and its window
	// is extended from now.
	DecisionRefresh
)

// String returns a human-readable decision name for logging.
func (d Decision) String() string {
	switch d {
	case DecisionNoOp:
		return "noop"
	case DecisionDemotePermanentAdmin:
		return "demote_permanent_admin"
	case DecisionExpire:
		return "expire"
	case DecisionRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// Decide classifies a user's elevation state at a single point in time.
//
// elevatedSince and now are epoch seconds. The function is total: every
// input combination maps to exactly one decision. Expiry is strict,
// now-elevatedSince equal to the timeout is still valid. Callers must
// capture now once per request and reuse it for the matching mutation.
func Decide(isAdmin bool, elevatedSince, now int64, timeout time.Duration) Decision {
	if !isAdmin {
		return DecisionNoOp
	}

	if elevatedSince == 0 {
		return DecisionDemotePermanentAdmin
	}

	if now-elevatedSince > int64(timeout.Seconds()) {
		return DecisionExpire
	}

	return DecisionRefresh
}
