package jwtx

import (
	"errors"
	"sync"
)

var ErrNoKey = errors.New("jwtx: key not found")

// KeySet holds verification keys by kid. Only asymmetric keys appear in the
// published JWKS; HMAC secrets are kept for local verification only.
type KeySet struct {
	mu  sync.RWMutex
	jks JWKS
	key map[string]any // kid: *rsa.PublicKey | ed25519.PublicKey | *ecdsa.PublicKey | []byte
}

// NewKeySet returns an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{
		key: make(map[string]any),
	}
}

// AddSigner registers a Signer's verification key, publishing it when the
// signer is asymmetric.
func (k *KeySet) AddSigner(s Signer) error {
	if err := s.Validate(); err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if _, exists := k.key[s.KID()]; exists {
		return errors.New("jwtx: duplicate kid " + s.KID())
	}
	k.key[s.KID()] = s.VerificationKey()
	if jwk, ok := s.PublicJWK(); ok {
		k.jks.Keys = append(k.jks.Keys, jwk)
	}
	return nil
}

// AddJWK adds a published JWK, e.g. one fetched from another guard instance.
func (k *KeySet) AddJWK(j JWK) error {
	key, err := parseJWKToKey(j)
	if err != nil {
		return err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.key[j.Kid] = key
	k.jks.Keys = append(k.jks.Keys, j)
	return nil
}

// Get returns the verification key for the given kid.
func (k *KeySet) Get(kid string) (any, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if pk, ok := k.key[kid]; ok {
		return pk, nil
	}
	return nil, ErrNoKey
}

// PublicJWKS returns a snapshot of the published keys for HTTP serving.
func (k *KeySet) PublicJWKS() JWKS {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return JWKS{Keys: append([]JWK{}, k.jks.Keys...)}
}

// IsReady returns true if the KeySet has at least one key loaded.
func (k *KeySet) IsReady() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.key) > 0
}
