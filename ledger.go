// File: ledger.go

package authkit

import (
	"time"

	"github.com/google/uuid"
)

// RefreshTokenRecord is one ledger entry for an issued refresh token.
//
// Only the SHA-256 hash of the token string is persisted, never the signed
// token itself. An entry is either live (not revoked, not expired) or dead;
// once revoked it can never become live again. Expiry is evaluated against
// the clock, never written back.
type RefreshTokenRecord struct {
	ID        string     `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	TokenHash string     `gorm:"column:token_hash;uniqueIndex:idx_refresh_token_hash;type:varchar(64);not null" bson:"token_hash" json:"-"`
	UserID    string     `gorm:"column:user_id;index:idx_refresh_token_user;type:varchar(36);not null" bson:"user_id" json:"userId"`
	IssuedAt  time.Time  `gorm:"column:created_at;not null" bson:"created_at" json:"issuedAt"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null;index:idx_refresh_token_expires" bson:"expires_at" json:"expiresAt"`
	Revoked   bool       `gorm:"column:revoked;not null" bson:"revoked" json:"revoked"`
	RevokedAt *time.Time `gorm:"column:revoked_at" bson:"revoked_at,omitempty" json:"revokedAt,omitempty"`
}

// TableName sets the relational table name for RefreshTokenRecord.
func (RefreshTokenRecord) TableName() string {
	return "refresh_tokens"
}

// NewRefreshTokenRecord builds a live ledger entry for a freshly issued
// refresh token.
func NewRefreshTokenRecord(userID, token string, issuedAt, expiresAt time.Time) *RefreshTokenRecord {
	return &RefreshTokenRecord{
		ID:        uuid.NewString(),
		TokenHash: hashToken(token),
		UserID:    userID,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}
}

// Revoke marks the entry revoked. Revoking an already-revoked entry is a
// no-op so the operation stays idempotent; the original revocation timestamp
// is preserved.
func (r *RefreshTokenRecord) Revoke(now time.Time) {
	if r.Revoked {
		return
	}
	r.Revoked = true
	r.RevokedAt = &now
}

// IsLive reports whether the entry is usable at the given instant.
func (r *RefreshTokenRecord) IsLive(now time.Time) bool {
	return !r.Revoked && now.Before(r.ExpiresAt)
}
