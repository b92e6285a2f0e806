// File: authkit.repository.redis.imp.go

package authkit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	refreshTokenPrefix = "refresh:token:"
	refreshUserPrefix  = "refresh:user:"
)

// RedisRefreshTokenStore is a Redis-based implementation of RefreshTokenStore
//
// Each ledger entry is stored as JSON under refresh:token:<hash> with a TTL
// matching the token expiry, so Redis handles cleanup. A per-user set under
// refresh:user:<id> tracks the hashes owned by each user for bulk revocation.
type RedisRefreshTokenStore struct {
	client *redis.Client
}

// NewRedisRefreshTokenStore creates a new Redis-based refresh token ledger
func NewRedisRefreshTokenStore(client *redis.Client) (*RedisRefreshTokenStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisRefreshTokenStore{
		client: client,
	}, nil
}

// Save persists a new ledger entry with a TTL matching its expiry
func (r *RedisRefreshTokenStore) Save(ctx context.Context, record *RefreshTokenRecord) error {
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if record.TokenHash == "" {
		return fmt.Errorf("token hash cannot be empty")
	}

	ttl := time.Until(record.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("record is already expired")
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, refreshTokenPrefix+record.TokenHash, payload, ttl)
	pipe.SAdd(ctx, refreshUserPrefix+record.UserID, record.TokenHash)
	// Keep the user set alive at least as long as its longest-lived entry.
	pipe.Expire(ctx, refreshUserPrefix+record.UserID, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}

	return nil
}

// FindByToken returns the ledger entry for the token
func (r *RedisRefreshTokenStore) FindByToken(ctx context.Context, token string) (*RefreshTokenRecord, error) {
	if token == "" {
		return nil, fmt.Errorf("token cannot be empty")
	}

	return r.findByHash(ctx, hashToken(token))
}

func (r *RedisRefreshTokenStore) findByHash(ctx context.Context, hash string) (*RefreshTokenRecord, error) {
	payload, err := r.client.Get(ctx, refreshTokenPrefix+hash).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis error: %w", err)
	}

	var record RefreshTokenRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return &record, nil
}

// Revoke marks the entry revoked; revoking twice is a no-op
func (r *RedisRefreshTokenStore) Revoke(ctx context.Context, token string, now time.Time) error {
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}

	hash := hashToken(token)
	record, err := r.findByHash(ctx, hash)
	if err != nil {
		return err
	}

	if record.Revoked {
		return nil
	}
	record.Revoke(now)

	return r.writeBack(ctx, record)
}

// RevokeAllForUser revokes every live entry owned by the user
func (r *RedisRefreshTokenStore) RevokeAllForUser(ctx context.Context, userID string, now time.Time) error {
	if userID == "" {
		return fmt.Errorf("user id cannot be empty")
	}

	hashes, err := r.client.SMembers(ctx, refreshUserPrefix+userID).Result()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}

	for _, hash := range hashes {
		record, err := r.findByHash(ctx, hash)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// Entry expired out from under the set; drop the member.
				_ = r.client.SRem(ctx, refreshUserPrefix+userID, hash).Err()
				continue
			}
			return err
		}
		if record.Revoked {
			continue
		}
		record.Revoke(now)
		if err := r.writeBack(ctx, record); err != nil {
			return err
		}
	}

	return nil
}

// IsLive reports whether the entry exists, is not revoked and has not expired
func (r *RedisRefreshTokenStore) IsLive(ctx context.Context, token string, now time.Time) (bool, error) {
	if token == "" {
		return false, fmt.Errorf("token cannot be empty")
	}

	record, err := r.findByHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	return record.IsLive(now), nil
}

// writeBack replaces the stored record while preserving its remaining TTL
func (r *RedisRefreshTokenStore) writeBack(ctx context.Context, record *RefreshTokenRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	err = r.client.Set(ctx, refreshTokenPrefix+record.TokenHash, payload, redis.KeepTTL).Err()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client
func (r *RedisRefreshTokenStore) Close() error {
	return r.client.Close()
}
