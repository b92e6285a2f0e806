// Package authkit provides the authentication and token lifecycle subsystem
// for the WalletIQ identity service.
//
// Features:
// - RSA (RS512) signed access and refresh tokens with issuer and clock-skew validation
// - Fail-fast loading of the signing key pair from PEM files at startup
// - Credential verification with bcrypt hashing and a configurable password policy
// - A persisted refresh token ledger with rotate-on-use and reuse detection
// - Pluggable persistence backends (in-memory, GORM/Postgres, Redis, MongoDB)
// - A stable, machine-readable error catalog and translator for API surfaces
package authkit
