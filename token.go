// File: token.go

package authkit

import (
	"crypto/rsa"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenService issues and verifies signed access, refresh and reset tokens.
//
// Issuance and verification are pure functions of the inputs, the key pair
// and the system clock: a TokenService is safe for unlimited concurrent use
// once constructed.
type TokenService struct {
	config     Config
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	parser     *jwt.Parser
	logger     *slog.Logger
}

// NewTokenService validates the configuration and loads the RSA key pair.
//
// A failure here means the process is misconfigured and must not accept
// traffic; callers are expected to abort startup on error.
func NewTokenService(config Config, logger *slog.Logger) (*TokenService, error) {
	if err := validateConfig(&config); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	privateKey, publicKey, err := LoadKeyPair(config.PrivateKeyPath, config.PublicKeyPath)
	if err != nil {
		return nil, err
	}

	return &TokenService{
		config:     config,
		privateKey: privateKey,
		publicKey:  publicKey,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{SigningAlgorithm}),
			jwt.WithIssuer(config.Issuer),
			jwt.WithLeeway(ClockSkewTolerance),
			jwt.WithExpirationRequired(),
		),
		logger: logger,
	}, nil
}

// IssueAccessToken signs a new short-lived access token for the user.
func (s *TokenService) IssueAccessToken(userID, email string) (string, error) {
	return s.issue(userID, email, AccessToken, s.config.AccessTokenTTL)
}

// IssueRefreshToken signs a new long-lived refresh token for the user.
func (s *TokenService) IssueRefreshToken(userID, email string) (string, error) {
	return s.issue(userID, email, RefreshToken, s.config.RefreshTokenTTL)
}

// IssueResetToken signs a short-lived single-purpose password reset token.
func (s *TokenService) IssueResetToken(userID, email string, ttl time.Duration) (string, error) {
	return s.issue(userID, email, ResetToken, ttl)
}

func (s *TokenService) issue(userID, email string, tokenType TokenType, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", Ef(CodeTokenInvalid, "cannot issue token without a user id")
	}

	now := time.Now()
	claims := Claims{
		TokenID:   uuid.NewString(),
		UserID:    userID,
		Email:     email,
		TokenType: tokenType,
		Issuer:    s.config.Issuer,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS512, toMapClaims(claims))
	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		return "", Ef(CodeInternalError, "failed to sign %s token", tokenType).WithCause(err)
	}

	return signed, nil
}

// Validate verifies signature, issuer and expiry (with the clock-skew grace
// window) and returns a typed error on any failure.
func (s *TokenService) Validate(token string) error {
	_, err := s.ExtractClaims(token)
	return err
}

// IsValid reports whether the token verifies, collapsing every failure cause
// into false. It is a thin adapter over ExtractClaims and the documented
// exception to the always-surface propagation policy: call sites that need a
// diagnosable failure use Validate or ExtractClaims instead.
func (s *TokenService) IsValid(token string) bool {
	if err := s.Validate(token); err != nil {
		s.logger.Debug("token probe failed", slog.String("reason", err.Error()))
		return false
	}
	return true
}

// ExtractClaims strips an optional bearer prefix, verifies the token and
// returns the decoded claim set.
//
// Error mapping: AUTH.TOKEN_EXPIRED when the expiry check fails,
// AUTH.TOKEN_INVALID for any structural or signature failure, and
// GENERAL.INTERNAL_ERROR for unexpected parser failures.
func (s *TokenService) ExtractClaims(token string) (*Claims, error) {
	raw := s.stripBearerPrefix(token)
	if raw == "" {
		return nil, E(CodeTokenMissing)
	}

	// A token without a structural separator can never verify; reject it
	// before touching any cryptography.
	if !strings.Contains(raw, ".") {
		return nil, Ef(CodeTokenInvalid, "token has no structural separator")
	}

	parsed, err := s.parser.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return s.publicKey, nil
	})
	if err != nil {
		return nil, mapJWTError(err)
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, Ef(CodeTokenInvalid, "token claims are not decodable")
	}

	return fromMapClaims(mapClaims), nil
}

// ExtractUserID returns the uid claim. A token lacking this claim must never
// be treated as authenticated, so a blank uid is TOKEN_INVALID rather than an
// empty result.
func (s *TokenService) ExtractUserID(token string) (string, error) {
	claims, err := s.ExtractClaims(token)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return "", Ef(CodeTokenInvalid, "token missing required user id claim")
	}
	return claims.UserID, nil
}

// ExtractEmail returns the subject claim.
func (s *TokenService) ExtractEmail(token string) (string, error) {
	claims, err := s.ExtractClaims(token)
	if err != nil {
		return "", err
	}
	return claims.Email, nil
}

// ExtractTokenType returns the token_type claim.
func (s *TokenService) ExtractTokenType(token string) (TokenType, error) {
	claims, err := s.ExtractClaims(token)
	if err != nil {
		return "", err
	}
	return claims.TokenType, nil
}

// stripBearerPrefix removes the configured prefix ("Bearer " by convention)
// if present, so tokens may be passed straight from an authorization header.
func (s *TokenService) stripBearerPrefix(token string) string {
	prefix := s.config.Prefix + " "
	if strings.HasPrefix(token, prefix) {
		return strings.TrimSpace(strings.TrimPrefix(token, prefix))
	}
	return token
}

// mapJWTError converts golang-jwt parse failures into catalog errors. The
// expiry check runs first because jwt joins it with the generic invalid-claims
// error.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return E(CodeTokenExpired).WithCause(err)
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued),
		errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenInvalidClaims):
		return E(CodeTokenInvalid).WithCause(err)
	default:
		return E(CodeInternalError).WithCause(err)
	}
}
