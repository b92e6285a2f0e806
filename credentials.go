// File: credentials.go

package authkit

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher is the one-way password hash capability consumed by the
// credential verifier.
type PasswordHasher interface {
	Hash(raw string) (string, error)
	Matches(raw, hash string) bool
}

// BcryptHasher implements PasswordHasher with bcrypt at the default cost.
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher returns a hasher at bcrypt's default cost.
func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{Cost: bcrypt.DefaultCost}
}

func (h *BcryptHasher) Hash(raw string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(raw), h.Cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash failed: %w", err)
	}
	return string(hashed), nil
}

func (h *BcryptHasher) Matches(raw, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) == nil
}

// PasswordPolicy is the active registration password policy.
type PasswordPolicy struct {
	MinLength                int
	MaxLength                int
	RequireUppercase         bool
	RequireLowercase         bool
	RequireNumber            bool
	RequireSpecialCharacter  bool
	AllowedSpecialCharacters string
	Description              string
	Example                  string
}

// DefaultPasswordPolicy returns the fixed platform policy: 8-20 characters
// with at least one uppercase letter, one lowercase letter and one digit.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:                8,
		MaxLength:                20,
		RequireUppercase:         true,
		RequireLowercase:         true,
		RequireNumber:            true,
		RequireSpecialCharacter:  false,
		AllowedSpecialCharacters: "!@#$%^&*()-_=+",
		Description: "Password must be at least 8-20 characters " +
			"contain at least one uppercase letter, one lowercase letter, " +
			"one digit",
		Example: "SecurePass123",
	}
}

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)

// CredentialVerifier validates login credentials and registration input
// against the user store and the active password policy.
type CredentialVerifier struct {
	users  UserStore
	hasher PasswordHasher
	policy PasswordPolicy
}

// NewCredentialVerifier wires a verifier over the given store and hasher.
func NewCredentialVerifier(users UserStore, hasher PasswordHasher, policy PasswordPolicy) *CredentialVerifier {
	return &CredentialVerifier{
		users:  users,
		hasher: hasher,
		policy: policy,
	}
}

// Policy returns the active password policy.
func (v *CredentialVerifier) Policy() PasswordPolicy {
	return v.policy
}

// VerifyCredentials looks the user up by email and compares the supplied
// password against the stored hash.
//
// A missing user and a wrong password both fail with the identical
// AUTH.INVALID_CREDENTIALS error so the response cannot be used for account
// enumeration. Backend failures other than not-found surface as internal
// errors.
func (v *CredentialVerifier) VerifyCredentials(ctx context.Context, email, rawPassword string) (*User, error) {
	user, err := v.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, E(CodeInvalidCredentials)
		}
		return nil, E(CodeInternalError).WithCause(err)
	}

	if !v.hasher.Matches(rawPassword, user.PasswordHash) {
		return nil, E(CodeInvalidCredentials)
	}

	return user, nil
}

// EnsureValidAndUniqueEmail checks the address format and that no account
// already owns it.
func (v *CredentialVerifier) EnsureValidAndUniqueEmail(ctx context.Context, email string) error {
	if !emailPattern.MatchString(email) {
		return E(CodeInvalidEmailFormat).WithFields(FieldError{
			Field:         "email",
			Message:       "email address format is invalid",
			RejectedValue: email,
			Rule:          "email.format",
		})
	}

	exists, err := v.users.ExistsByEmail(ctx, email)
	if err != nil {
		return E(CodeInternalError).WithCause(err)
	}
	if exists {
		return E(CodeUserAlreadyExists).WithFields(FieldError{
			Field:   "email",
			Message: "an account with this email already exists",
			Rule:    "email.unique",
		})
	}

	return nil
}

// ValidatePassword enforces the policy and reports every unmet rule as a
// field-level error on VALIDATION.INVALID_PASSWORD.
func (v *CredentialVerifier) ValidatePassword(password string) error {
	var fields []FieldError

	appendRule := func(rule, message string) {
		fields = append(fields, FieldError{
			Field:   "password",
			Message: message,
			Rule:    rule,
		})
	}

	if len(password) < v.policy.MinLength {
		appendRule("password.min_length",
			fmt.Sprintf("password must be at least %d characters", v.policy.MinLength))
	}
	if len(password) > v.policy.MaxLength {
		appendRule("password.max_length",
			fmt.Sprintf("password must be at most %d characters", v.policy.MaxLength))
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasNumber = true
		case strings.ContainsRune(v.policy.AllowedSpecialCharacters, r):
			hasSpecial = true
		}
	}

	if v.policy.RequireUppercase && !hasUpper {
		appendRule("password.uppercase", "password must contain an uppercase letter")
	}
	if v.policy.RequireLowercase && !hasLower {
		appendRule("password.lowercase", "password must contain a lowercase letter")
	}
	if v.policy.RequireNumber && !hasNumber {
		appendRule("password.number", "password must contain a digit")
	}
	if v.policy.RequireSpecialCharacter && !hasSpecial {
		appendRule("password.special",
			fmt.Sprintf("password must contain one of %q", v.policy.AllowedSpecialCharacters))
	}

	if len(fields) > 0 {
		return E(CodeInvalidPassword).WithFields(fields...)
	}
	return nil
}
