// File: authkit_credentials_test.go

package authkit

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestVerifier(t *testing.T) (*CredentialVerifier, *MemoryUserStore) {
	t.Helper()

	users := NewMemoryUserStore()
	hasher := &BcryptHasher{Cost: bcrypt.MinCost}
	return NewCredentialVerifier(users, hasher, DefaultPasswordPolicy()), users
}

func TestBcryptHasher(t *testing.T) {
	hasher := &BcryptHasher{Cost: bcrypt.MinCost}

	hash, err := hasher.Hash("SecurePass123")
	require.NoError(t, err)
	assert.NotEqual(t, "SecurePass123", hash)

	assert.True(t, hasher.Matches("SecurePass123", hash))
	assert.False(t, hasher.Matches("WrongPass123", hash))
	assert.False(t, hasher.Matches("SecurePass123", "not-a-bcrypt-hash"))
}

func TestVerifyCredentials(t *testing.T) {
	verifier, users := newTestVerifier(t)
	ctx := context.Background()

	hash, err := verifier.hasher.Hash("SecurePass123")
	require.NoError(t, err)
	user := NewUser("Jane Doe", "jane@example.com", hash)
	require.NoError(t, users.Save(ctx, user))

	t.Run("correct credentials", func(t *testing.T) {
		found, err := verifier.VerifyCredentials(ctx, "jane@example.com", "SecurePass123")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)
	})

	t.Run("case-insensitive email lookup", func(t *testing.T) {
		found, err := verifier.VerifyCredentials(ctx, "JANE@Example.COM", "SecurePass123")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		_, unknownErr := verifier.VerifyCredentials(ctx, "nobody@example.com", "SecurePass123")
		_, wrongErr := verifier.VerifyCredentials(ctx, "jane@example.com", "WrongPass123")

		require.Error(t, unknownErr)
		require.Error(t, wrongErr)
		assert.ErrorIs(t, unknownErr, E(CodeInvalidCredentials))
		assert.ErrorIs(t, wrongErr, E(CodeInvalidCredentials))
		assert.Equal(t, unknownErr.Error(), wrongErr.Error())
	})
}

func TestEnsureValidAndUniqueEmail(t *testing.T) {
	verifier, users := newTestVerifier(t)
	ctx := context.Background()

	require.NoError(t, users.Save(ctx, NewUser("Jane Doe", "jane@example.com", "hash")))

	t.Run("valid unused address", func(t *testing.T) {
		require.NoError(t, verifier.EnsureValidAndUniqueEmail(ctx, "fresh@example.com"))
	})

	t.Run("malformed addresses", func(t *testing.T) {
		for _, email := range []string{"", "no-at-sign", "missing@tld", "@example.com", "user@", "user @example.com"} {
			err := verifier.EnsureValidAndUniqueEmail(ctx, email)
			require.Error(t, err, email)
			assert.ErrorIs(t, err, E(CodeInvalidEmailFormat), email)
		}
	})

	t.Run("taken address", func(t *testing.T) {
		err := verifier.EnsureValidAndUniqueEmail(ctx, "jane@example.com")
		require.Error(t, err)
		assert.ErrorIs(t, err, E(CodeUserAlreadyExists))
	})

	t.Run("taken address with different casing", func(t *testing.T) {
		err := verifier.EnsureValidAndUniqueEmail(ctx, "JANE@EXAMPLE.COM")
		require.Error(t, err)
		assert.ErrorIs(t, err, E(CodeUserAlreadyExists))
	})
}

func TestValidatePassword(t *testing.T) {
	verifier, _ := newTestVerifier(t)

	fieldRules := func(err error) []string {
		var typed *Error
		require.ErrorAs(t, err, &typed)
		rules := make([]string, 0, len(typed.FieldErrors))
		for _, fe := range typed.FieldErrors {
			rules = append(rules, fe.Rule)
		}
		return rules
	}

	t.Run("policy example passes", func(t *testing.T) {
		require.NoError(t, verifier.ValidatePassword(DefaultPasswordPolicy().Example))
	})

	t.Run("length boundaries", func(t *testing.T) {
		// 8 and 20 characters are inside the policy, 7 and 21 outside.
		require.NoError(t, verifier.ValidatePassword("Abcdef1x"))
		require.NoError(t, verifier.ValidatePassword("Abcdef1"+strings.Repeat("x", 13)))

		err := verifier.ValidatePassword("Abcde1x")
		require.Error(t, err)
		assert.Contains(t, fieldRules(err), "password.min_length")

		err = verifier.ValidatePassword("Abcdef1" + strings.Repeat("x", 14))
		require.Error(t, err)
		assert.Contains(t, fieldRules(err), "password.max_length")
	})

	t.Run("missing character classes", func(t *testing.T) {
		err := verifier.ValidatePassword("alllowercase1")
		require.Error(t, err)
		assert.Contains(t, fieldRules(err), "password.uppercase")

		err = verifier.ValidatePassword("ALLUPPERCASE1")
		require.Error(t, err)
		assert.Contains(t, fieldRules(err), "password.lowercase")

		err = verifier.ValidatePassword("NoDigitsHere")
		require.Error(t, err)
		assert.Contains(t, fieldRules(err), "password.number")
	})

	t.Run("all failures reported together", func(t *testing.T) {
		err := verifier.ValidatePassword("abc")
		require.Error(t, err)
		assert.ErrorIs(t, err, E(CodeInvalidPassword))

		rules := fieldRules(err)
		assert.Contains(t, rules, "password.min_length")
		assert.Contains(t, rules, "password.uppercase")
		assert.Contains(t, rules, "password.number")
	})

	t.Run("special characters are optional by default", func(t *testing.T) {
		require.NoError(t, verifier.ValidatePassword("SecurePass123"))
	})
}

func TestDefaultPasswordPolicy(t *testing.T) {
	policy := DefaultPasswordPolicy()

	assert.Equal(t, 8, policy.MinLength)
	assert.Equal(t, 20, policy.MaxLength)
	assert.True(t, policy.RequireUppercase)
	assert.True(t, policy.RequireLowercase)
	assert.True(t, policy.RequireNumber)
	assert.False(t, policy.RequireSpecialCharacter)
	assert.NotEmpty(t, policy.Description)
	assert.NotEmpty(t, policy.Example)
}
