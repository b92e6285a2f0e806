// File: config.go

package authkit

import (
	"time"
)

// TokenType represents the kind of token carried in the token_type claim.
type TokenType string

const (
	AccessToken  TokenType = "access"  // short-lived API credential
	RefreshToken TokenType = "refresh" // long-lived renewal credential
	ResetToken   TokenType = "reset"   // single-purpose password reset credential
)

const (
	// SigningAlgorithm is fixed for the whole subsystem. The key pair is
	// RSA only; there is no algorithm negotiation surface.
	SigningAlgorithm = "RS512"

	// ClockSkewTolerance is the grace window applied to expiry checks to
	// absorb clock drift between issuer and verifier.
	ClockSkewTolerance = 60 * time.Second

	// DefaultBearerPrefix is the conventional authorization header prefix.
	DefaultBearerPrefix = "Bearer"
)

// Config holds the token subsystem configuration.
//
// All fields except Prefix are required. The key paths must point to
// PEM-encoded RSA keys; they are loaded once at startup and never reloaded
// (key rotation is deliberately unsupported).
type Config struct {
	Issuer          string        // issuer claim, required on every token
	Prefix          string        // token type prefix, defaults to "Bearer"
	AccessTokenTTL  time.Duration // access token validity duration
	RefreshTokenTTL time.Duration // refresh token validity duration
	PrivateKeyPath  string        // path to the PEM-encoded RSA private key
	PublicKeyPath   string        // path to the PEM-encoded RSA public key
}

// NewConfig returns a Config with every setting explicit.
func NewConfig(issuer, prefix string, accessTTL, refreshTTL time.Duration, privateKeyPath, publicKeyPath string) Config {
	return Config{
		Issuer:          issuer,
		Prefix:          prefix,
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: refreshTTL,
		PrivateKeyPath:  privateKeyPath,
		PublicKeyPath:   publicKeyPath,
	}
}

// DefaultConfig returns a Config with conventional token lifetimes: a
// 15-minute access token and a 7-day refresh token.
func DefaultConfig(issuer, privateKeyPath, publicKeyPath string) Config {
	return Config{
		Issuer:          issuer,
		Prefix:          DefaultBearerPrefix,
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		PrivateKeyPath:  privateKeyPath,
		PublicKeyPath:   publicKeyPath,
	}
}

// validateConfig checks the configuration for completeness. Key material
// itself is validated later by LoadKeyPair.
func validateConfig(config *Config) error {
	if config.Issuer == "" {
		return Ef(CodeInvalidRequest, "issuer is required")
	}
	if config.AccessTokenTTL <= 0 {
		return Ef(CodeInvalidRequest, "access token TTL must be positive")
	}
	if config.RefreshTokenTTL <= 0 {
		return Ef(CodeInvalidRequest, "refresh token TTL must be positive")
	}
	if config.AccessTokenTTL >= config.RefreshTokenTTL {
		return Ef(CodeInvalidRequest, "access token TTL must be shorter than refresh token TTL")
	}
	if config.Prefix == "" {
		config.Prefix = DefaultBearerPrefix
	}
	return nil
}
