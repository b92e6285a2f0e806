// File: repository.go

package authkit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// Store-level sentinel errors. Domain components translate these into
// catalog errors; callers outside the package should not see them.
var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("duplicate email")
)

// UserStore is the persistence boundary for identity records.
//
// Email lookups and uniqueness are case-insensitive. Implementations may
// fail with backend-specific errors; only ErrNotFound and ErrDuplicateEmail
// carry meaning for callers.
type UserStore interface {
	// FindByEmail returns the user owning the address, or ErrNotFound.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindByID returns the user with the given id, or ErrNotFound.
	FindByID(ctx context.Context, id string) (*User, error)

	// ExistsByEmail reports whether an account with the address exists.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// Save inserts or updates the user. Inserting a second account with
	// an already-used email fails with ErrDuplicateEmail.
	Save(ctx context.Context, user *User) error

	// Delete removes the user record. It exists solely as the
	// compensation step of the registration atomicity boundary and is
	// not part of the public subsystem contract.
	Delete(ctx context.Context, id string) error
}

// RefreshTokenStore is the persistence boundary for the refresh token
// ledger. All methods address entries by the opaque token string; the hash
// indirection is an implementation concern.
type RefreshTokenStore interface {
	// Save persists a new live ledger entry.
	Save(ctx context.Context, record *RefreshTokenRecord) error

	// FindByToken returns the ledger entry for the token, or ErrNotFound.
	FindByToken(ctx context.Context, token string) (*RefreshTokenRecord, error)

	// Revoke marks the entry revoked. Revoking an already-revoked entry
	// is a no-op; revoking an unknown token is ErrNotFound.
	Revoke(ctx context.Context, token string, now time.Time) error

	// RevokeAllForUser revokes every live entry owned by the user.
	RevokeAllForUser(ctx context.Context, userID string, now time.Time) error

	// IsLive reports whether the entry exists, is not revoked and has
	// not expired at the given instant. Unknown tokens are simply not
	// live, not an error.
	IsLive(ctx context.Context, token string, now time.Time) (bool, error)
}

// hashToken computes the SHA-256 hex digest under which a token is stored.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
