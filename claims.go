// File: claims.go

package authkit

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Custom claim names carried next to the registered JWT claims.
const (
	claimUserID    = "uid"
	claimTokenType = "token_type"
)

// Claims is the decoded claim set of a signed token. It is ephemeral: built
// on issuance, reconstructed on verification, never persisted on its own.
//
// TokenID keys each token individually: RSA signing is deterministic and the
// timestamps have second granularity, so without it two tokens issued for
// the same user in the same second would be byte-identical.
type Claims struct {
	TokenID   string    // jti claim
	UserID    string    // uid claim, required
	Email     string    // sub claim
	TokenType TokenType // token_type claim
	Issuer    string    // iss claim
	IssuedAt  time.Time // iat claim
	ExpiresAt time.Time // exp claim
}

// toMapClaims converts Claims to the wire representation.
func toMapClaims(claims Claims) jwt.MapClaims {
	return jwt.MapClaims{
		"jti":          claims.TokenID,
		claimUserID:    claims.UserID,
		claimTokenType: string(claims.TokenType),
		"iss":          claims.Issuer,
		"sub":          claims.Email,
		"iat":          claims.IssuedAt.Unix(),
		"exp":          claims.ExpiresAt.Unix(),
	}
}

// fromMapClaims reconstructs Claims from a verified token payload. Claim
// presence beyond the registered set is not enforced here; typed accessors
// on TokenService decide which custom claims are mandatory.
func fromMapClaims(mapClaims jwt.MapClaims) *Claims {
	claims := &Claims{}

	if jti, ok := mapClaims["jti"].(string); ok {
		claims.TokenID = jti
	}
	if uid, ok := mapClaims[claimUserID].(string); ok {
		claims.UserID = uid
	}
	if tokenType, ok := mapClaims[claimTokenType].(string); ok {
		claims.TokenType = TokenType(tokenType)
	}
	if iss, ok := mapClaims["iss"].(string); ok {
		claims.Issuer = iss
	}
	if sub, ok := mapClaims["sub"].(string); ok {
		claims.Email = sub
	}
	if iat, ok := mapClaims["iat"].(float64); ok {
		claims.IssuedAt = time.Unix(int64(iat), 0)
	}
	if exp, ok := mapClaims["exp"].(float64); ok {
		claims.ExpiresAt = time.Unix(int64(exp), 0)
	}

	return claims
}
