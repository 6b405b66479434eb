package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sudolite/sudolite/types"
)

// UserStore provides persisted user records and the elevation mutations.
// Every mutation is a single UPDATE against the primary key so concurrent
// requests degrade to last-write-wins rather than lost partial updates.
type UserStore struct {
	db *Database
}

// NewUserStore creates a user store backed by the given database.
func NewUserStore(db *Database) *UserStore {
	return &UserStore{db: db}
}

// CreateUser inserts a new user record and returns it with its id.
func (s *UserStore) CreateUser(ctx context.Context, user *types.User) (*types.User, error) {
	res, err := s.db.DB().ExecContext(ctx, `
		INSERT INTO users (username, email, credential_hash, is_admin, elevation_eligible, elevated_since)
		VALUES (?, ?, ?, ?, ?, ?)`,
		user.Username, user.Email, user.CredentialHash, user.IsAdmin, user.ElevationEligible, user.ElevatedSince,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading inserted user id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID fetches a user by primary key.
func (s *UserStore) GetUserByID(ctx context.Context, userID int64) (*types.User, error) {
	var user types.User
	err := s.db.DB().GetContext(ctx, &user, `SELECT * FROM users WHERE id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", userID, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching user %d: %w", userID, err)
	}
	return &user, nil
}

// GetUserByUsername fetches a user by username.
func (s *UserStore) GetUserByUsername(ctx context.Context, username string) (*types.User, error) {
	var user types.User
	err := s.db.DB().GetContext(ctx, &user, `SELECT * FROM users WHERE username = ?`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", username, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching user %q: %w", username, err)
	}
	return &user, nil
}

// GrantElevation marks the user as a tracked elevated admin.
func (s *UserStore) GrantElevation(ctx context.Context, userID int64, since int64) error {
	return s.update(ctx, userID, `
		UPDATE users
		SET is_admin = 1, elevated_since = ?, elevation_eligible = 1, modified_at = CURRENT_TIMESTAMP
		WHERE id = ?`, since, userID)
}

// RefreshElevation extends a valid elevation window.
func (s *UserStore) RefreshElevation(ctx context.Context, userID int64, since int64) error {
	return s.update(ctx, userID, `
		UPDATE users
		SET elevated_since = ?, elevation_eligible = 1, modified_at = CURRENT_TIMESTAMP
		WHERE id = ?`, since, userID)
}

// RevokeElevation clears the admin flag and the elevation timestamp.
func (s *UserStore) RevokeElevation(ctx context.Context, userID int64) error {
	return s.update(ctx, userID, `
		UPDATE users
		SET is_admin = 0, elevated_since = 0, modified_at = CURRENT_TIMESTAMP
		WHERE id = ?`, userID)
}

// DemotePermanentAdmin converts an untracked admin into a non-admin,
// elevation-eligible account.
func (s *UserStore) DemotePermanentAdmin(ctx context.Context, userID int64) error {
	return s.update(ctx, userID, `
		UPDATE users
		SET is_admin = 0, elevated_since = 0, elevation_eligible = 1, modified_at = CURRENT_TIMESTAMP
		WHERE id = ?`, userID)
}

// SetElevationEligible toggles whether the user may request elevation.
func (s *UserStore) SetElevationEligible(ctx context.Context, userID int64, eligible bool) error {
	return s.update(ctx, userID, `
		UPDATE users
		SET elevation_eligible = ?, modified_at = CURRENT_TIMESTAMP
		WHERE id = ?`, eligible, userID)
}

// ListExpiredElevations returns the ids of tracked elevated admins whose
// timestamp is strictly before the cutoff.
func (s *UserStore) ListExpiredElevations(ctx context.Context, cutoff int64) ([]int64, error) {
	var ids []int64
	err := s.db.DB().SelectContext(ctx, &ids, `
		SELECT id FROM users
		WHERE is_admin = 1 AND elevated_since > 0 AND elevated_since < ?`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("listing expired elevations: %w", err)
	}
	return ids, nil
}

func (s *UserStore) update(ctx context.Context, userID int64, query string, args ...interface{}) error {
	res, err := s.db.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating user %d: %w", userID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating user %d: %w", userID, err)
	}
	if rows == 0 {
		return fmt.Errorf("user %d: %w", userID, types.ErrNotFound)
	}

	return nil
}
