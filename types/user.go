// Package types provides the data model shared across sudolite packages.
package types

import (
	"time"
)

// User is the authorization-relevant subset of a user profile.
//
// ElevatedSince is an epoch-seconds timestamp; zero means the account is not
// elevation-tracked. An admin with ElevatedSince=0 is a permanent admin, a
// state the guard actively corrects (see the elevation package).
type User struct {
	ID                int64  `db:"id" json:"id"`
	Username          string `db:"username" json:"username"`
	Email             string `db:"email" json:"email"`
	CredentialHash    string `db:"credential_hash" json:"-"`
	IsAdmin           bool   `db:"is_admin" json:"is_admin"`
	ElevationEligible bool   `db:"elevation_eligible" json:"elevation_eligible"`
	ElevatedSince     int64  `db:"elevated_since" json:"-"`

	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	ModifiedAt time.Time `db:"modified_at" json:"modified_at"`
}

// IsElevated returns true if the user is an admin through a tracked elevation.
func (u *User) IsElevated() bool {
	return u.IsAdmin && u.ElevatedSince > 0
}

// IsPermanentAdmin returns true if the admin flag is set without a tracked
// elevation timestamp.
func (u *User) IsPermanentAdmin() bool {
	return u.IsAdmin && u.ElevatedSince == 0
}
