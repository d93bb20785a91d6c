package jwtx

import (
	"crypto"
	"crypto/subtle"
	"fmt"
	"slices"
	"time"

	"github.com/aussiebroadwan/guard/pkg/cryptox"
)

// KeyManager ties one signing key to its KeySet and Verifier. guard runs two
// of these, one for access tokens and one for refresh tokens, so the two
// token kinds never share key material.
type KeyManager struct {
	Signer   Signer
	Verifier *Verifier
	KeySet   *KeySet
}

// KeyManagerOptions configures the KeyManager for a specific use case.
type KeyManagerOptions struct {
	// Algorithm is one of RS256, ES256, EdDSA or HS256.
	Algorithm string

	// Issuer and Audience are stamped on tokens and enforced on verify.
	// Both are required; an empty Audience would switch the check off.
	Issuer   string
	Audience []string

	// Leeway for exp/nbf clock skew.
	Leeway time.Duration

	// KID identifies the key. Generated when empty.
	KID string

	// PrivateKeyPEM loads an existing asymmetric key. When empty a new
	// key is generated and lives only as long as the process.
	PrivateKeyPEM []byte

	// Secret is the HS256 key. Required for HS256, ignored otherwise.
	Secret []byte

	// RSABits for generated RS256 keys. Defaults to 2048.
	RSABits int

	// Now overrides the verification clock, for tests.
	Now func() time.Time
}

// NewKeyManager builds a KeyManager from opts.
func NewKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, fmt.Errorf("jwtx: Issuer is required")
	}
	if len(opts.Audience) == 0 || slices.Contains(opts.Audience, "") {
		return nil, fmt.Errorf("jwtx: Audience is required")
	}

	kid := opts.KID
	if kid == "" {
		var err error
		if kid, err = generateRandomKeyID(); err != nil {
			return nil, err
		}
	}

	signer, err := buildSigner(opts, kid)
	if err != nil {
		return nil, err
	}

	keyset := NewKeySet()
	if err := keyset.AddSigner(signer); err != nil {
		return nil, fmt.Errorf("jwtx: failed to add signer to keyset: %w", err)
	}

	return &KeyManager{
		Signer: signer,
		Verifier: NewVerifier(keyset, signer.Alg(), VerifyOptions{
			Issuer:   opts.Issuer,
			Audience: opts.Audience,
			Leeway:   opts.Leeway,
			Now:      opts.Now,
		}),
		KeySet: keyset,
	}, nil
}

// GenerateSigningKey returns a fresh PKCS8 PEM private key for an
// asymmetric algorithm, suitable for KeyManagerOptions.PrivateKeyPEM.
func GenerateSigningKey(algorithm string, rsaBits int) ([]byte, error) {
	switch algorithm {
	case AlgorithmRS256:
		if rsaBits == 0 {
			rsaBits = 2048
		}
		return cryptox.GenerateRSASigningKey(rsaBits)
	case AlgorithmES256:
		return cryptox.GenerateES256Key()
	case AlgorithmEdDSA:
		return cryptox.GenerateEd25519Key()
	default:
		return nil, fmt.Errorf("jwtx: unsupported algorithm %q (supported: RS256, ES256, EdDSA, HS256)", algorithm)
	}
}

func buildSigner(opts KeyManagerOptions, kid string) (Signer, error) {
	if opts.Algorithm == AlgorithmHS256 {
		return NewSignerHS256(kid, opts.Secret)
	}

	pemKey := opts.PrivateKeyPEM
	if len(pemKey) == 0 {
		var err error
		if pemKey, err = GenerateSigningKey(opts.Algorithm, opts.RSABits); err != nil {
			return nil, err
		}
	}

	switch opts.Algorithm {
	case AlgorithmRS256:
		return NewSignerRS256(kid, pemKey)
	case AlgorithmES256:
		return NewSignerES256(kid, pemKey)
	case AlgorithmEdDSA:
		return NewSignerEdDSA(kid, pemKey)
	default:
		return nil, fmt.Errorf("jwtx: unsupported algorithm %q (supported: RS256, ES256, EdDSA, HS256)", opts.Algorithm)
	}
}

// Algorithm returns the signing algorithm being used.
func (km *KeyManager) Algorithm() string {
	return km.Signer.Alg()
}

// IsReady returns true if the KeyManager has valid keys loaded.
func (km *KeyManager) IsReady() bool {
	return km.KeySet.IsReady()
}

// Sign signs claims with the managed key.
func (km *KeyManager) Sign(claims Claims) (string, error) {
	return km.Signer.Sign(claims)
}

// SharesKeyWith reports whether km and other would accept each other's
// tokens: same kid, same shared secret, or same public key.
func (km *KeyManager) SharesKeyWith(other *KeyManager) bool {
	if km.Signer.KID() == other.Signer.KID() {
		return true
	}

	a, b := km.Signer.VerificationKey(), other.Signer.VerificationKey()
	if sa, ok := a.([]byte); ok {
		sb, ok := b.([]byte)
		return ok && subtle.ConstantTimeCompare(sa, sb) == 1
	}

	pa, ok := a.(interface{ Equal(crypto.PublicKey) bool })
	return ok && pa.Equal(b)
}

// generateRandomKeyID creates a random key identifier.
func generateRandomKeyID() (string, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return "", fmt.Errorf("jwtx: failed to generate key ID: %w", err)
	}
	return "guard-" + token, nil
}
