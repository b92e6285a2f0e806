// File: authkit.repository.gorm.imp.go

package authkit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// GormUserStore is a GORM-based implementation of UserStore
// Tested against PostgreSQL via gorm.io/driver/postgres
type GormUserStore struct {
	db *gorm.DB
}

// NewGormUserStore creates a new GORM-based user store
func NewGormUserStore(db *gorm.DB) (*GormUserStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database cannot be nil")
	}

	// Test the connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Auto-migrate tables
	if err := db.AutoMigrate(&User{}); err != nil {
		return nil, fmt.Errorf("failed to migrate users table: %w", err)
	}

	return &GormUserStore{db: db}, nil
}

// FindByEmail looks up a user by case-insensitive email
func (r *GormUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	if email == "" {
		return nil, fmt.Errorf("email cannot be empty")
	}

	var user User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(email)).
		First(&user).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &user, nil
}

// FindByID looks up a user by id
func (r *GormUserStore) FindByID(ctx context.Context, id string) (*User, error) {
	if id == "" {
		return nil, fmt.Errorf("id cannot be empty")
	}

	var user User
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&user).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &user, nil
}

// ExistsByEmail reports whether an account with the address exists
func (r *GormUserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if email == "" {
		return false, fmt.Errorf("email cannot be empty")
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&User{}).
		Where("LOWER(email) = ?", strings.ToLower(email)).
		Count(&count).Error

	if err != nil {
		return false, fmt.Errorf("database error: %w", err)
	}

	return count > 0, nil
}

// Save inserts or updates a user, enforcing email uniqueness
func (r *GormUserStore) Save(ctx context.Context, user *User) error {
	if user == nil {
		return fmt.Errorf("user cannot be nil")
	}
	if user.ID == "" {
		return fmt.Errorf("user id cannot be empty")
	}

	return r.withTransaction(ctx, func(tx *gorm.DB) error {
		result := tx.Save(user)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
				return ErrDuplicateEmail
			}
			return fmt.Errorf("failed to save user: %w", result.Error)
		}
		return nil
	})
}

// Delete removes a user record
func (r *GormUserStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("id cannot be empty")
	}

	return r.withTransaction(ctx, func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&User{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete user: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// withTransaction executes a function within a database transaction
func (r *GormUserStore) withTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Close closes the underlying database connection
func (r *GormUserStore) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// GormRefreshTokenStore is a GORM-based implementation of RefreshTokenStore
type GormRefreshTokenStore struct {
	db *gorm.DB
}

// NewGormRefreshTokenStore creates a new GORM-based refresh token ledger
func NewGormRefreshTokenStore(db *gorm.DB) (*GormRefreshTokenStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database cannot be nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if err := db.AutoMigrate(&RefreshTokenRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate refresh_tokens table: %w", err)
	}

	return &GormRefreshTokenStore{db: db}, nil
}

// Save persists a new ledger entry
func (r *GormRefreshTokenStore) Save(ctx context.Context, record *RefreshTokenRecord) error {
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if record.TokenHash == "" {
		return fmt.Errorf("token hash cannot be empty")
	}

	return r.withTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("failed to create refresh token record: %w", err)
		}
		return nil
	})
}

// FindByToken returns the ledger entry for the token
func (r *GormRefreshTokenStore) FindByToken(ctx context.Context, token string) (*RefreshTokenRecord, error) {
	if token == "" {
		return nil, fmt.Errorf("token cannot be empty")
	}

	var record RefreshTokenRecord
	err := r.db.WithContext(ctx).
		Where("token_hash = ?", hashToken(token)).
		First(&record).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &record, nil
}

// Revoke marks the entry revoked; revoking twice is a no-op
func (r *GormRefreshTokenStore) Revoke(ctx context.Context, token string, now time.Time) error {
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}

	return r.withTransaction(ctx, func(tx *gorm.DB) error {
		var record RefreshTokenRecord
		err := tx.Where("token_hash = ?", hashToken(token)).First(&record).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		if record.Revoked {
			return nil
		}

		result := tx.Model(&RefreshTokenRecord{}).
			Where("token_hash = ? AND revoked = ?", record.TokenHash, false).
			Updates(map[string]interface{}{
				"revoked":    true,
				"revoked_at": now,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to revoke refresh token: %w", result.Error)
		}
		return nil
	})
}

// RevokeAllForUser revokes every live entry owned by the user
func (r *GormRefreshTokenStore) RevokeAllForUser(ctx context.Context, userID string, now time.Time) error {
	if userID == "" {
		return fmt.Errorf("user id cannot be empty")
	}

	return r.withTransaction(ctx, func(tx *gorm.DB) error {
		result := tx.Model(&RefreshTokenRecord{}).
			Where("user_id = ? AND revoked = ?", userID, false).
			Updates(map[string]interface{}{
				"revoked":    true,
				"revoked_at": now,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to revoke user refresh tokens: %w", result.Error)
		}
		return nil
	})
}

// IsLive reports whether the entry exists, is not revoked and has not expired
func (r *GormRefreshTokenStore) IsLive(ctx context.Context, token string, now time.Time) (bool, error) {
	if token == "" {
		return false, fmt.Errorf("token cannot be empty")
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&RefreshTokenRecord{}).
		Where("token_hash = ? AND revoked = ? AND expires_at > ?", hashToken(token), false, now).
		Count(&count).Error

	if err != nil {
		return false, fmt.Errorf("database error: %w", err)
	}

	return count > 0, nil
}

// CleanupExpired removes entries whose expiry has passed
func (r *GormRefreshTokenStore) CleanupExpired(ctx context.Context) error {
	return r.withTransaction(ctx, func(tx *gorm.DB) error {
		result := tx.Where("expires_at <= ?", time.Now()).
			Delete(&RefreshTokenRecord{})
		if result.Error != nil {
			return fmt.Errorf("failed to cleanup expired refresh tokens: %w", result.Error)
		}
		return nil
	})
}

// withTransaction executes a function within a database transaction
func (r *GormRefreshTokenStore) withTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Close closes the underlying database connection
func (r *GormRefreshTokenStore) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}
