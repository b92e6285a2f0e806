// File: authkit_token_test.go

package authkit

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_IssueAndValidate(t *testing.T) {
	service := createTestTokenService(t)

	t.Run("access token round trip", func(t *testing.T) {
		token, err := service.IssueAccessToken("user-1", "user@example.com")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		claims, err := service.ExtractClaims(token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, "user@example.com", claims.Email)
		assert.Equal(t, AccessToken, claims.TokenType)
		assert.Equal(t, "authkit-test", claims.Issuer)
		assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt, 5*time.Second)
	})

	t.Run("refresh token round trip", func(t *testing.T) {
		token, err := service.IssueRefreshToken("user-1", "user@example.com")
		require.NoError(t, err)

		tokenType, err := service.ExtractTokenType(token)
		require.NoError(t, err)
		assert.Equal(t, RefreshToken, tokenType)
	})

	t.Run("reset token round trip", func(t *testing.T) {
		token, err := service.IssueResetToken("user-1", "user@example.com", 15*time.Minute)
		require.NoError(t, err)

		claims, err := service.ExtractClaims(token)
		require.NoError(t, err)
		assert.Equal(t, ResetToken, claims.TokenType)
		assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt, 5*time.Second)
	})

	t.Run("issue without user id fails", func(t *testing.T) {
		_, err := service.IssueAccessToken("", "user@example.com")
		require.Error(t, err)
		assert.ErrorIs(t, err, E(CodeTokenInvalid))
	})

	t.Run("validate and isvalid agree", func(t *testing.T) {
		token, err := service.IssueAccessToken("user-1", "user@example.com")
		require.NoError(t, err)

		assert.NoError(t, service.Validate(token))
		assert.True(t, service.IsValid(token))

		assert.Error(t, service.Validate("garbage.token.here"))
		assert.False(t, service.IsValid("garbage.token.here"))
	})
}

func TestTokenService_BearerPrefix(t *testing.T) {
	service := createTestTokenService(t)

	token, err := service.IssueAccessToken("user-1", "user@example.com")
	require.NoError(t, err)

	t.Run("bare token accepted", func(t *testing.T) {
		require.NoError(t, service.Validate(token))
	})

	t.Run("prefixed token accepted", func(t *testing.T) {
		require.NoError(t, service.Validate("Bearer "+token))
	})

	t.Run("prefix without token is missing", func(t *testing.T) {
		err := service.Validate("Bearer ")
		require.Error(t, err)
		assert.ErrorIs(t, err, E(CodeTokenMissing))
	})

	t.Run("empty string is missing", func(t *testing.T) {
		err := service.Validate("")
		require.Error(t, err)
		assert.ErrorIs(t, err, E(CodeTokenMissing))
	})
}

func TestTokenService_StructuralRejection(t *testing.T) {
	service := createTestTokenService(t)

	t.Run("token without separator", func(t *testing.T) {
		err := service.Validate("nodotshere")
		require.Error(t, err)
		assert.ErrorIs(t, err, E(CodeTokenInvalid))
	})

	t.Run("malformed token", func(t *testing.T) {
		err := service.Validate("a.b.c")
		require.Error(t, err)
		assert.ErrorIs(t, err, E(CodeTokenInvalid))
	})

	t.Run("tampered payload", func(t *testing.T) {
		token, err := service.IssueAccessToken("user-1", "user@example.com")
		require.NoError(t, err)

		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)
		parts[1] = "eyJ1aWQiOiJhdHRhY2tlciJ9"
		tampered := strings.Join(parts, ".")

		err = service.Validate(tampered)
		require.Error(t, err)
		assert.ErrorIs(t, err, E(CodeTokenInvalid))
	})

	t.Run("token signed by a different key", func(t *testing.T) {
		other := createTestTokenService(t)
		token, err := other.IssueAccessToken("user-1", "user@example.com")
		require.NoError(t, err)

		err = service.Validate(token)
		require.Error(t, err)
		assert.ErrorIs(t, err, E(CodeTokenInvalid))
	})
}

func TestTokenService_IssuerBinding(t *testing.T) {
	service := createTestTokenService(t)

	now := time.Now()
	foreign := signTestToken(t, service, jwt.MapClaims{
		claimUserID:    "user-1",
		claimTokenType: string(AccessToken),
		"iss":          "someone-else",
		"sub":          "user@example.com",
		"iat":          now.Unix(),
		"exp":          now.Add(time.Hour).Unix(),
	})

	err := service.Validate(foreign)
	require.Error(t, err)
	assert.ErrorIs(t, err, E(CodeTokenInvalid))
}

func TestTokenService_ExpiryLeeway(t *testing.T) {
	service := createTestTokenService(t)

	sign := func(expOffset time.Duration) string {
		now := time.Now()
		return signTestToken(t, service, jwt.MapClaims{
			claimUserID:    "user-1",
			claimTokenType: string(AccessToken),
			"iss":          "authkit-test",
			"sub":          "user@example.com",
			"iat":          now.Add(-time.Hour).Unix(),
			"exp":          now.Add(expOffset).Unix(),
		})
	}

	t.Run("expired within the grace window still validates", func(t *testing.T) {
		token := sign(-30 * time.Second)
		require.NoError(t, service.Validate(token))
	})

	t.Run("expired beyond the grace window is rejected", func(t *testing.T) {
		token := sign(-61 * time.Second)
		err := service.Validate(token)
		require.Error(t, err)
		assert.ErrorIs(t, err, E(CodeTokenExpired))
	})

	t.Run("missing exp claim is rejected", func(t *testing.T) {
		now := time.Now()
		token := signTestToken(t, service, jwt.MapClaims{
			claimUserID:    "user-1",
			claimTokenType: string(AccessToken),
			"iss":          "authkit-test",
			"sub":          "user@example.com",
			"iat":          now.Unix(),
		})

		err := service.Validate(token)
		require.Error(t, err)
		assert.ErrorIs(t, err, E(CodeTokenInvalid))
	})
}

func TestTokenService_ClaimAccessors(t *testing.T) {
	service := createTestTokenService(t)

	token, err := service.IssueAccessToken("user-1", "user@example.com")
	require.NoError(t, err)

	t.Run("extract user id", func(t *testing.T) {
		userID, err := service.ExtractUserID(token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", userID)
	})

	t.Run("extract email", func(t *testing.T) {
		email, err := service.ExtractEmail(token)
		require.NoError(t, err)
		assert.Equal(t, "user@example.com", email)
	})

	t.Run("extract token type", func(t *testing.T) {
		tokenType, err := service.ExtractTokenType(token)
		require.NoError(t, err)
		assert.Equal(t, AccessToken, tokenType)
	})

	t.Run("blank uid claim is invalid", func(t *testing.T) {
		now := time.Now()
		anonymous := signTestToken(t, service, jwt.MapClaims{
			claimTokenType: string(AccessToken),
			"iss":          "authkit-test",
			"sub":          "user@example.com",
			"iat":          now.Unix(),
			"exp":          now.Add(time.Hour).Unix(),
		})

		_, err := service.ExtractUserID(anonymous)
		require.Error(t, err)
		assert.ErrorIs(t, err, E(CodeTokenInvalid))
	})
}
