package elevation

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
	"github.com/sudolite/sudolite/types"
)

// TaskTypeSweep is the asynq task type for the expiry sweep.
const TaskTypeSweep = "elevation:sweep"

// SweepStore extends UserStore with the scan used by the background sweep.
type SweepStore interface {
	UserStore
	ListExpiredElevations(ctx context.Context, cutoff int64) ([]int64, error)
}

// Sweeper revokes elevations whose window expired without further request
// traffic. The guard expires elevations lazily on the next request; the
// sweep covers sessions that never send one.
type Sweeper struct {
	store   SweepStore
	audit   AuditLogger
	timeout time.Duration
	now     func() time.Time
}

// NewSweeper creates a sweeper. audit may be nil.
func NewSweeper(store SweepStore, audit AuditLogger, timeout time.Duration) *Sweeper {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Sweeper{
		store:   store,
		audit:   audit,
		timeout: timeout,
		now:     time.Now,
	}
}

// ProcessTask implements asynq.Handler.
func (s *Sweeper) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	return s.Sweep(ctx)
}

// Sweep revokes every elevation that expired before the current cutoff.
// Races with a concurrent guard refresh are last-write-wins and benign:
// the worst outcome is one extra short window.
func (s *Sweeper) Sweep(ctx context.Context) error {
	cutoff := s.now().Unix() - int64(s.timeout.Seconds())

	userIDs, err := s.store.ListExpiredElevations(ctx, cutoff)
	if err != nil {
		return err
	}

	for _, userID := range userIDs {
		if err := s.store.RevokeElevation(ctx, userID); err != nil {
			log.Error().Err(err).Int64("user_id", userID).Msg("Sweep failed to revoke elevation")
			continue
		}

		expiriesTotal.Inc()
		log.Info().Int64("user_id", userID).Msg("Sweep revoked expired elevation")

		if s.audit != nil {
			entry := types.NewAuditLog(userID, types.ActionElevationExpired).
				WithChanges(map[string]interface{}{"source": "sweep"})
			if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
				log.Error().Err(err).Int64("user_id", userID).Msg("Failed to create audit log for sweep expiry")
			}
		}
	}

	return nil
}
