// File: auth.go

package authkit

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ResetTokenTTL bounds the lifetime of password reset tokens.
const ResetTokenTTL = 15 * time.Minute

// TokenResult carries the issued token pair.
type TokenResult struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"` // access token lifetime in seconds
}

// UserResult is the caller-visible user summary. It never carries the
// password hash.
type UserResult struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	Token TokenResult `json:"token"`
	User  UserResult  `json:"user"`
}

// RegisterAccountResult is the outcome of a successful registration.
type RegisterAccountResult struct {
	Token TokenResult `json:"token"`
	User  UserResult  `json:"user"`
}

// PasswordRequirementResult describes the active password policy for client
// display.
type PasswordRequirementResult struct {
	MinLength                int    `json:"minLength"`
	MaxLength                int    `json:"maxLength"`
	RequireUppercase         bool   `json:"requireUppercase"`
	RequireLowercase         bool   `json:"requireLowercase"`
	RequireNumber            bool   `json:"requireNumber"`
	RequireSpecialCharacter  bool   `json:"requireSpecialCharacter"`
	AllowedSpecialCharacters string `json:"allowedSpecialCharacters"`
	Description              string `json:"description"`
	Example                  string `json:"example"`
}

// RefreshResult is the outcome of a successful token rotation.
type RefreshResult struct {
	Token TokenResult `json:"token"`
}

// ResetPasswordResult carries the single-purpose reset token. Delivery of
// the token to the user (email or otherwise) is outside this subsystem.
type ResetPasswordResult struct {
	ResetToken string `json:"resetToken"`
	ExpiresIn  int64  `json:"expiresIn"`
}

// AuthService composes the credential verifier, token service and refresh
// token ledger into the login/register/refresh/reset use cases. It is the
// only component with business-rule awareness.
type AuthService struct {
	config   Config
	users    UserStore
	ledger   RefreshTokenStore
	tokens   *TokenService
	verifier *CredentialVerifier
	hasher   PasswordHasher
	logger   *slog.Logger
}

// NewAuthService wires the authentication subsystem. It loads the signing
// key pair through the token service constructor and therefore fails fast on
// any key problem. A nil hasher selects bcrypt; a nil logger selects
// slog.Default.
func NewAuthService(
	config Config,
	users UserStore,
	ledger RefreshTokenStore,
	hasher PasswordHasher,
	logger *slog.Logger,
) (*AuthService, error) {
	if users == nil {
		return nil, Ef(CodeInvalidRequest, "user store is required")
	}
	if ledger == nil {
		return nil, Ef(CodeInvalidRequest, "refresh token store is required")
	}
	if hasher == nil {
		hasher = NewBcryptHasher()
	}
	if logger == nil {
		logger = slog.Default()
	}

	tokens, err := NewTokenService(config, logger)
	if err != nil {
		return nil, err
	}

	return &AuthService{
		config:   tokens.config,
		users:    users,
		ledger:   ledger,
		tokens:   tokens,
		verifier: NewCredentialVerifier(users, hasher, DefaultPasswordPolicy()),
		hasher:   hasher,
		logger:   logger,
	}, nil
}

// Tokens exposes the underlying token service for verification-only callers
// such as request middleware.
func (s *AuthService) Tokens() *TokenService {
	return s.tokens
}

// PasswordRequirements returns the fixed password policy.
func (s *AuthService) PasswordRequirements() PasswordRequirementResult {
	policy := s.verifier.Policy()
	return PasswordRequirementResult{
		MinLength:                policy.MinLength,
		MaxLength:                policy.MaxLength,
		RequireUppercase:         policy.RequireUppercase,
		RequireLowercase:         policy.RequireLowercase,
		RequireNumber:            policy.RequireNumber,
		RequireSpecialCharacter:  policy.RequireSpecialCharacter,
		AllowedSpecialCharacters: policy.AllowedSpecialCharacters,
		Description:              policy.Description,
		Example:                  policy.Example,
	}
}

// Login verifies the credentials and issues a fresh token pair. It raises
// whatever the credential verifier or token service raised and adds no
// failure modes of its own.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.verifier.VerifyCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}

	tokenResult, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	return &LoginResult{
		Token: *tokenResult,
		User:  toUserResult(user),
	}, nil
}

// Register validates email and password, persists the new user and issues
// the initial token pair.
//
// The operation is atomic from the caller's point of view: if recording the
// initial refresh token fails, the just-created user record is removed again
// so neither is observably committed.
func (s *AuthService) Register(ctx context.Context, fullName, email, password string) (*RegisterAccountResult, error) {
	if fullName == "" {
		return nil, E(CodeFieldRequired).WithFields(FieldError{
			Field:   "fullName",
			Message: "full name is required",
			Rule:    "fullName.required",
		})
	}

	if err := s.verifier.EnsureValidAndUniqueEmail(ctx, email); err != nil {
		return nil, err
	}
	if err := s.verifier.ValidatePassword(password); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, E(CodeInternalError).WithCause(err)
	}

	user := NewUser(fullName, email, passwordHash)
	if err := s.users.Save(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			// Lost the race against a concurrent registration.
			return nil, E(CodeUserAlreadyExists)
		}
		return nil, E(CodeInternalError).WithCause(err)
	}

	tokenResult, err := s.issueTokenPair(ctx, user)
	if err != nil {
		if deleteErr := s.users.Delete(ctx, user.ID); deleteErr != nil {
			s.logger.Error("failed to roll back user after token issuance failure",
				slog.String("user_id", user.ID),
				slog.Any("error", deleteErr),
			)
		}
		return nil, err
	}

	s.logger.Info("user registered", slog.String("user_id", user.ID))
	return &RegisterAccountResult{
		Token: *tokenResult,
		User:  toUserResult(user),
	}, nil
}

// Refresh rotates a refresh token: the presented token is verified, checked
// against the ledger, revoked, and a fresh pair is issued and recorded.
//
// Presenting a token whose ledger entry is already revoked is treated as
// reuse of a rotated token. Reuse means the token has leaked or a client
// replayed it, so every live token for that user is revoked before the call
// fails with AUTH.TOKEN_INVALID.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	claims, err := s.tokens.ExtractClaims(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != RefreshToken {
		return nil, Ef(CodeTokenInvalid, "token is not a refresh token")
	}
	if claims.UserID == "" {
		return nil, Ef(CodeTokenInvalid, "token missing required user id claim")
	}

	now := time.Now()
	record, err := s.ledger.FindByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, Ef(CodeTokenInvalid, "refresh token is not on record")
		}
		return nil, E(CodeInternalError).WithCause(err)
	}

	if record.Revoked {
		s.logger.Warn("refresh token reuse detected, revoking all sessions",
			slog.String("user_id", record.UserID),
		)
		if err := s.ledger.RevokeAllForUser(ctx, record.UserID, now); err != nil {
			return nil, E(CodeInternalError).WithCause(err)
		}
		return nil, Ef(CodeTokenInvalid, "refresh token has been revoked")
	}
	if !record.IsLive(now) {
		return nil, E(CodeTokenExpired)
	}

	user, err := s.users.FindByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, E(CodeUserNotFound)
		}
		return nil, E(CodeInternalError).WithCause(err)
	}

	if err := s.ledger.Revoke(ctx, refreshToken, now); err != nil {
		return nil, E(CodeInternalError).WithCause(err)
	}

	tokenResult, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("refresh token rotated", slog.String("user_id", user.ID))
	return &RefreshResult{Token: *tokenResult}, nil
}

// Logout revokes the presented refresh token. Revoking an already-revoked
// or unknown token is not an error; logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	err := s.ledger.Revoke(ctx, refreshToken, time.Now())
	if err != nil && !errors.Is(err, ErrNotFound) {
		return E(CodeInternalError).WithCause(err)
	}
	return nil
}

// ResetPassword issues a short-lived single-purpose reset token for the
// account. Delivering the token to the user is the caller's concern; this
// subsystem never sends email.
func (s *AuthService) ResetPassword(ctx context.Context, email string) (*ResetPasswordResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, E(CodeUserNotFound)
		}
		return nil, E(CodeInternalError).WithCause(err)
	}

	resetToken, err := s.tokens.IssueResetToken(user.ID, user.Email, ResetTokenTTL)
	if err != nil {
		return nil, err
	}

	s.logger.Info("password reset token issued", slog.String("user_id", user.ID))
	return &ResetPasswordResult{
		ResetToken: resetToken,
		ExpiresIn:  int64(ResetTokenTTL.Seconds()),
	}, nil
}

// ConfirmResetPassword validates the reset token, enforces the password
// policy on the replacement, rehashes, and revokes every live refresh token
// for the user so stolen sessions die with the old password.
func (s *AuthService) ConfirmResetPassword(ctx context.Context, resetToken, newPassword string) error {
	claims, err := s.tokens.ExtractClaims(resetToken)
	if err != nil {
		return err
	}
	if claims.TokenType != ResetToken {
		return Ef(CodeTokenInvalid, "token is not a password reset token")
	}
	if claims.UserID == "" {
		return Ef(CodeTokenInvalid, "token missing required user id claim")
	}

	if err := s.verifier.ValidatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return E(CodeUserNotFound)
		}
		return E(CodeInternalError).WithCause(err)
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return E(CodeInternalError).WithCause(err)
	}

	user.UpdatePassword(passwordHash)
	if err := s.users.Save(ctx, user); err != nil {
		return E(CodeInternalError).WithCause(err)
	}

	if err := s.ledger.RevokeAllForUser(ctx, user.ID, time.Now()); err != nil {
		return E(CodeInternalError).WithCause(err)
	}

	s.logger.Info("password reset confirmed", slog.String("user_id", user.ID))
	return nil
}

// issueTokenPair mints an access/refresh pair and records the refresh token
// in the ledger.
func (s *AuthService) issueTokenPair(ctx context.Context, user *User) (*TokenResult, error) {
	accessToken, err := s.tokens.IssueAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.tokens.IssueRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	record := NewRefreshTokenRecord(user.ID, refreshToken, now, now.Add(s.config.RefreshTokenTTL))
	if err := s.ledger.Save(ctx, record); err != nil {
		return nil, E(CodeInternalError).WithCause(err)
	}

	return &TokenResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    s.config.Prefix,
		ExpiresIn:    int64(s.config.AccessTokenTTL.Seconds()),
	}, nil
}

func toUserResult(user *User) UserResult {
	return UserResult{
		ID:       user.ID,
		FullName: user.FullName,
		Email:    user.Email,
	}
}
