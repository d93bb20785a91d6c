package cryptox

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
)

const (
	// DefaultRSABits is used by GenerateKeyPair when bits is zero.
	DefaultRSABits = 2048

	minRSABits = 2048
)

// KeyPair holds a PEM encoded RSA key pair: PKIX "PUBLIC KEY" and PKCS8
// "PRIVATE KEY".
type KeyPair struct {
	PublicKey  string
	PrivateKey string
}

// GenerateKeyPair creates an RSA key pair of the given size.
func GenerateKeyPair(bits int) (KeyPair, error) {
	if bits == 0 {
		bits = DefaultRSABits
	}
	if bits < minRSABits {
		return KeyPair{}, fmt.Errorf("cryptox: RSA key size must be at least %d bits", minRSABits)
	}

	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return KeyPair{}, fmt.Errorf("cryptox: failed to generate RSA key: %w", err)
	}

	priv, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return KeyPair{}, fmt.Errorf("cryptox: failed to marshal PKCS8 key: %w", err)
	}
	pub, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return KeyPair{}, fmt.Errorf("cryptox: failed to marshal public key: %w", err)
	}

	return KeyPair{
		PublicKey:  string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pub})),
		PrivateKey: string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: priv})),
	}, nil
}

// EncryptWithPublicKey encrypts plaintext with RSA-OAEP (SHA-256) and returns
// base64. Textbook RSA is intentionally not offered.
func EncryptWithPublicKey(plaintext []byte, publicPEM string) (string, error) {
	pub, err := ParseRSAPublicKey([]byte(publicPEM))
	if err != nil {
		return "", err
	}
	ct, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, plaintext, nil)
	if err != nil {
		return "", fmt.Errorf("cryptox: rsa encrypt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ct), nil
}

// DecryptWithPrivateKey reverses EncryptWithPublicKey. A ciphertext made for
// a different key returns ErrDecrypt.
func DecryptWithPrivateKey(ciphertext string, privatePEM string) ([]byte, error) {
	priv, err := ParseRSAPrivateKey([]byte(privatePEM))
	if err != nil {
		return nil, err
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, ErrDecrypt
	}
	pt, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, raw, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return pt, nil
}

// SignData signs the SHA-256 digest of data (RSASSA-PKCS1-v1_5) and returns
// the signature as base64.
func SignData(data []byte, privatePEM string) (string, error) {
	priv, err := ParseRSAPrivateKey([]byte(privatePEM))
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256(data)
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("cryptox: rsa sign: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// VerifySignature reports whether signature is valid for data under the
// public key. Malformed keys and signatures are simply false, so the result
// can be used directly in access-control branches.
func VerifySignature(data []byte, signature, publicPEM string) bool {
	ok, err := VerifySignatureStrict(data, signature, publicPEM)
	return err == nil && ok
}

// VerifySignatureStrict is VerifySignature for callers that need to tell bad
// key material (ErrInvalidKey) apart from a forged signature (false, nil).
func VerifySignatureStrict(data []byte, signature, publicPEM string) (bool, error) {
	pub, err := ParseRSAPublicKey([]byte(publicPEM))
	if err != nil {
		return false, err
	}
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false, nil
	}
	digest := sha256.Sum256(data)
	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig) == nil, nil
}

// ParseRSAPrivateKey loads an RSA private key from PEM, accepting both PKCS1
// and PKCS8 encodings.
func ParseRSAPrivateKey(pemKey []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block", ErrInvalidKey)
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		return key, nil
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		rk, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: not an RSA private key", ErrInvalidKey)
		}
		return rk, nil
	default:
		return nil, fmt.Errorf("%w: unsupported PEM type %q", ErrInvalidKey, block.Type)
	}
}

// ParseRSAPublicKey loads an RSA public key from PEM (PKIX or PKCS1).
func ParseRSAPublicKey(pemKey []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block", ErrInvalidKey)
	}

	switch block.Type {
	case "PUBLIC KEY":
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		rk, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: not an RSA public key", ErrInvalidKey)
		}
		return rk, nil
	case "RSA PUBLIC KEY":
		key, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: unsupported PEM type %q", ErrInvalidKey, block.Type)
	}
}

// IsInvalidKey reports whether err came from unusable key material.
func IsInvalidKey(err error) bool {
	return errors.Is(err, ErrInvalidKey)
}
