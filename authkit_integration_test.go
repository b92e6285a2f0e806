// File: authkit_integration_test.go

package authkit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisRefreshTokenStore_Integration(t *testing.T) {
	client := testRedisClient(t)
	defer client.Close()

	store, err := NewRedisRefreshTokenStore(client)
	require.NoError(t, err)

	ctx := context.Background()
	now := time.Now()

	// Unique tokens per run so repeated runs do not collide.
	tokenA := "token-a-" + uuid.NewString()
	tokenB := "token-b-" + uuid.NewString()
	userID := "user-" + uuid.NewString()

	t.Run("save and find", func(t *testing.T) {
		record := NewRefreshTokenRecord(userID, tokenA, now, now.Add(time.Hour))
		require.NoError(t, store.Save(ctx, record))

		found, err := store.FindByToken(ctx, tokenA)
		require.NoError(t, err)
		assert.Equal(t, record.ID, found.ID)
		assert.Equal(t, userID, found.UserID)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := store.FindByToken(ctx, "never-saved-"+uuid.NewString())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("live then revoked", func(t *testing.T) {
		live, err := store.IsLive(ctx, tokenA, now)
		require.NoError(t, err)
		assert.True(t, live)

		require.NoError(t, store.Revoke(ctx, tokenA, now))

		live, err = store.IsLive(ctx, tokenA, now)
		require.NoError(t, err)
		assert.False(t, live)

		// Entry survives revocation so reuse detection keeps working.
		found, err := store.FindByToken(ctx, tokenA)
		require.NoError(t, err)
		assert.True(t, found.Revoked)
	})

	t.Run("revoke all for user", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, NewRefreshTokenRecord(userID, tokenB, now, now.Add(time.Hour))))

		require.NoError(t, store.RevokeAllForUser(ctx, userID, now))

		live, err := store.IsLive(ctx, tokenB, now)
		require.NoError(t, err)
		assert.False(t, live)
	})

	t.Run("expired record rejected at save", func(t *testing.T) {
		expired := NewRefreshTokenRecord(userID, "token-x-"+uuid.NewString(), now.Add(-2*time.Hour), now.Add(-time.Hour))
		assert.Error(t, store.Save(ctx, expired))
	})
}

func TestAuthService_WithRedisLedger_Integration(t *testing.T) {
	client := testRedisClient(t)
	defer client.Close()

	ledger, err := NewRedisRefreshTokenStore(client)
	require.NoError(t, err)

	auth, err := NewAuthService(testConfig(t), NewMemoryUserStore(), ledger, nil, testLogger())
	require.NoError(t, err)

	ctx := context.Background()
	email := uuid.NewString() + "@example.com"

	registered, err := auth.Register(ctx, "Redis User", email, "SecurePass123")
	require.NoError(t, err)

	refreshed, err := auth.Refresh(ctx, registered.Token.RefreshToken)
	require.NoError(t, err)

	// Replaying the rotated token trips reuse detection through Redis too.
	_, err = auth.Refresh(ctx, registered.Token.RefreshToken)
	require.Error(t, err)
	assert.ErrorIs(t, err, E(CodeTokenInvalid))

	live, err := ledger.IsLive(ctx, refreshed.Token.RefreshToken, time.Now())
	require.NoError(t, err)
	assert.False(t, live)
}
