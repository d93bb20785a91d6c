package jwtx

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Supported JWT signing algorithms.
const (
	AlgorithmRS256 = "RS256"
	AlgorithmES256 = "ES256"
	AlgorithmEdDSA = "EdDSA"
	AlgorithmHS256 = "HS256"
)

// MinHMACSecretSize is the shortest HS256 secret accepted.
const MinHMACSecretSize = 32

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	KID() string
	Sign(Claims) (string, error)

	// VerificationKey is what a Verifier needs for this signer's tokens:
	// the public key, or the shared secret for HMAC.
	VerificationKey() any

	// PublicJWK returns the key for a JWKS. ok is false for symmetric
	// signers, whose key must never be published.
	PublicJWK() (jwk JWK, ok bool)

	Validate() error
}

// NewSignerRS256 creates an RS256 signer from PEM bytes (PKCS1 or PKCS8).
func NewSignerRS256(kid string, pemKey []byte) (Signer, error) {
	key, err := parsePrivateKey(pemKey)
	if err != nil {
		return nil, err
	}
	rk, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("jwtx: not RSA private key")
	}
	return &asymSigner{
		kid:    kid,
		method: jwt.SigningMethodRS256,
		key:    rk,
		jwk:    NewRSAJWK(kid, "sig", AlgorithmRS256, &rk.PublicKey),
	}, nil
}

// NewSignerES256 creates an ES256 signer from PKCS8 PEM bytes.
func NewSignerES256(kid string, pemKey []byte) (Signer, error) {
	key, err := parsePrivateKey(pemKey)
	if err != nil {
		return nil, err
	}
	ek, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, errors.New("jwtx: not ECDSA private key")
	}
	if ek.Curve.Params().Name != "P-256" {
		return nil, fmt.Errorf("jwtx: expected P-256 curve, got %s", ek.Curve.Params().Name)
	}
	return &asymSigner{
		kid:    kid,
		method: jwt.SigningMethodES256,
		key:    ek,
		jwk:    NewES256JWK(kid, "sig", AlgorithmES256, &ek.PublicKey),
	}, nil
}

// NewSignerEdDSA creates an EdDSA signer from PKCS8 PEM bytes.
func NewSignerEdDSA(kid string, pemKey []byte) (Signer, error) {
	key, err := parsePrivateKey(pemKey)
	if err != nil {
		return nil, err
	}
	ek, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("jwtx: not Ed25519 private key")
	}
	return &asymSigner{
		kid:    kid,
		method: jwt.SigningMethodEdDSA,
		key:    ek,
		jwk:    NewEd25519JWK(kid, "sig", AlgorithmEdDSA, ek.Public().(ed25519.PublicKey)),
	}, nil
}

// NewSignerHS256 creates an HMAC-SHA256 signer. The secret must be at least
// MinHMACSecretSize bytes.
func NewSignerHS256(kid string, secret []byte) (Signer, error) {
	if len(secret) < MinHMACSecretSize {
		return nil, fmt.Errorf("%w: got %d bytes, need %d", ErrWeakSecret, len(secret), MinHMACSecretSize)
	}
	return &hmacSigner{kid: kid, secret: append([]byte(nil), secret...)}, nil
}

// asymSigner signs with a private key and publishes the public half.
type asymSigner struct {
	kid    string
	method jwt.SigningMethod
	key    crypto.Signer
	jwk    JWK
}

func (s *asymSigner) Alg() string { return s.method.Alg() }
func (s *asymSigner) KID() string { return s.kid }

func (s *asymSigner) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(s.method, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}

func (s *asymSigner) VerificationKey() any   { return s.key.Public() }
func (s *asymSigner) PublicJWK() (JWK, bool) { return s.jwk, true }

func (s *asymSigner) Validate() error {
	if s.key == nil || s.key.Public() == nil {
		return errors.New("jwtx: nil signing key")
	}
	return nil
}

// hmacSigner signs with a shared secret.
type hmacSigner struct {
	kid    string
	secret []byte
}

func (s *hmacSigner) Alg() string { return AlgorithmHS256 }
func (s *hmacSigner) KID() string { return s.kid }

func (s *hmacSigner) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.secret)
}

func (s *hmacSigner) VerificationKey() any   { return s.secret }
func (s *hmacSigner) PublicJWK() (JWK, bool) { return JWK{}, false }

func (s *hmacSigner) Validate() error {
	if len(s.secret) < MinHMACSecretSize {
		return ErrWeakSecret
	}
	return nil
}

// parsePrivateKey loads a private key from PEM bytes. Handles both PKCS1 and
// PKCS8 because otherwise we will be chasing a bug for longer than we would
// be willing to admit.
func parsePrivateKey(pemKey []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("jwtx: invalid PEM for private key")
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("jwtx: parse RSA key: %w", err)
		}
		return key, nil
	case "PRIVATE KEY":
		priv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("jwtx: parse PKCS8: %w", err)
		}
		signer, ok := priv.(crypto.Signer)
		if !ok {
			return nil, errors.New("jwtx: unsupported private key type")
		}
		return signer, nil
	default:
		return nil, fmt.Errorf("jwtx: unsupported PEM type %q", block.Type)
	}
}
