package cryptox

import (
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Named curves for key agreement.
const (
	CurveP256   = "P-256"
	CurveX25519 = "X25519"
)

// ECDHKeyPair is an ephemeral key agreement pair. PublicKey is the encoding
// sent to the peer (uncompressed point for P-256, 32 bytes for X25519).
type ECDHKeyPair struct {
	Curve      string
	PublicKey  []byte
	PrivateKey []byte
}

func ecdhCurve(name string) (ecdh.Curve, error) {
	switch name {
	case "", CurveP256:
		return ecdh.P256(), nil
	case CurveX25519:
		return ecdh.X25519(), nil
	default:
		return nil, fmt.Errorf("%w: curve %q", ErrUnsupported, name)
	}
}

// GenerateECDHKeyPair creates a key pair on the named curve (P-256 when
// empty).
func GenerateECDHKeyPair(curve string) (ECDHKeyPair, error) {
	c, err := ecdhCurve(curve)
	if err != nil {
		return ECDHKeyPair{}, err
	}
	priv, err := c.GenerateKey(rand.Reader)
	if err != nil {
		return ECDHKeyPair{}, fmt.Errorf("cryptox: ecdh keygen: %w", err)
	}
	if curve == "" {
		curve = CurveP256
	}
	return ECDHKeyPair{
		Curve:      curve,
		PublicKey:  priv.PublicKey().Bytes(),
		PrivateKey: priv.Bytes(),
	}, nil
}

// ComputeSharedSecret combines our private key with the peer's public key.
// Both sides arrive at the same bytes. Invalid points return ErrInvalidKey.
func ComputeSharedSecret(curve string, privateKey, peerPublicKey []byte) ([]byte, error) {
	c, err := ecdhCurve(curve)
	if err != nil {
		return nil, err
	}
	priv, err := c.NewPrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	pub, err := c.NewPublicKey(peerPublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	shared, err := priv.ECDH(pub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return shared, nil
}

// DeriveSessionKey turns a raw shared secret into a 32-byte AEAD key with
// HKDF-SHA256. Never use the shared secret as a key directly.
func DeriveSessionKey(shared, salt, info []byte) ([]byte, error) {
	reader := hkdf.New(sha256.New, shared, salt, info)
	key := make([]byte, SymmetricKeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("cryptox: hkdf: %w", err)
	}
	return key, nil
}
