package database

import (
	"context"
	"fmt"

	"github.com/sudolite/sudolite/types"
)

// AuditStore persists audit log entries.
type AuditStore struct {
	db *Database
}

// NewAuditStore creates an audit store backed by the given database.
func NewAuditStore(db *Database) *AuditStore {
	return &AuditStore{db: db}
}

// CreateAuditLog inserts an audit log entry.
func (s *AuditStore) CreateAuditLog(ctx context.Context, entry *types.AuditLog) error {
	_, err := s.db.DB().ExecContext(ctx, `
		INSERT INTO audit_logs (timestamp, actor_user_id, action, changes, ip_address, user_agent)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Timestamp, entry.ActorUserID, entry.Action, entry.Changes, entry.IPAddress, entry.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("inserting audit log: %w", err)
	}
	return nil
}

// ListAuditLogsForUser returns the most recent audit entries for a user.
func (s *AuditStore) ListAuditLogsForUser(ctx context.Context, userID int64, limit int) ([]types.AuditLog, error) {
	var entries []types.AuditLog
	err := s.db.DB().SelectContext(ctx, &entries, `
		SELECT * FROM audit_logs
		WHERE actor_user_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing audit logs: %w", err)
	}
	return entries, nil
}
