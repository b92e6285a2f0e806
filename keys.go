// File: keys.go

package authkit

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"io/fs"
	"os"
)

// LoadKeyPair loads the RSA signing key pair from the given PEM files.
//
// It is invoked once during startup; any failure is a configuration error,
// not a transient fault, and must abort the process before it accepts
// traffic. Each failure cause carries its own catalog code so operators can
// tell a missing file from an unreadable one from malformed key material.
func LoadKeyPair(privateKeyPath, publicKeyPath string) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	privateBytes, err := readKeyFile(privateKeyPath, CodePrivateKeyLoadFailed)
	if err != nil {
		return nil, nil, err
	}

	publicBytes, err := readKeyFile(publicKeyPath, CodePublicKeyLoadFailed)
	if err != nil {
		return nil, nil, err
	}

	privateKey, err := parseRSAPrivateKey(privateBytes)
	if err != nil {
		return nil, nil, Ef(CodePrivateKeyLoadFailed, "failed to parse private key %q", privateKeyPath).WithCause(err)
	}

	publicKey, err := parseRSAPublicKey(publicBytes)
	if err != nil {
		return nil, nil, Ef(CodePublicKeyLoadFailed, "failed to parse public key %q", publicKeyPath).WithCause(err)
	}

	return privateKey, publicKey, nil
}

// readKeyFile reads one key file, mapping each failure to its catalog code.
// loadCode is used for failures that do not fit a more specific cause.
func readKeyFile(path string, loadCode Code) ([]byte, error) {
	if path == "" {
		return nil, Ef(loadCode, "key path not configured")
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, Ef(CodeKeyFileNotFound, "key file %q not found", path).WithCause(err)
		case errors.Is(err, fs.ErrPermission):
			return nil, Ef(CodeKeyFileNotReadable, "key file %q is not readable", path).WithCause(err)
		default:
			return nil, Ef(loadCode, "failed to read key file %q", path).WithCause(err)
		}
	}

	return contents, nil
}

// parseRSAPrivateKey parses a PEM-encoded RSA private key in either PKCS1 or
// PKCS8 form.
func parseRSAPrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, Ef(CodeInvalidKeyFormat, "no PEM block found in private key material")
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		pkcs8Key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, Ef(CodeInvalidKeyFormat, "private key is neither PKCS1 nor PKCS8").WithCause(err)
		}
		rsaKey, ok := pkcs8Key.(*rsa.PrivateKey)
		if !ok {
			return nil, Ef(CodeInvalidKeyFormat, "PKCS8 key is not an RSA private key")
		}
		return rsaKey, nil
	}
	return key, nil
}

// parseRSAPublicKey parses a PEM-encoded RSA public key in PKIX form, or
// extracts one from an X509 certificate.
func parseRSAPublicKey(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, Ef(CodeInvalidKeyFormat, "no PEM block found in public key material")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, Ef(CodeInvalidKeyFormat, "public key is neither PKIX nor a certificate").WithCause(err)
		}
		rsaPub, ok := cert.PublicKey.(*rsa.PublicKey)
		if !ok {
			return nil, Ef(CodeInvalidKeyFormat, "certificate does not carry an RSA public key")
		}
		return rsaPub, nil
	}

	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, Ef(CodeInvalidKeyFormat, "PKIX key is not an RSA public key")
	}
	return rsaPub, nil
}
