package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// Supported AEAD ciphers. Both take a 256-bit key, a 96-bit nonce and
// produce a 128-bit authentication tag.
const (
	CipherAES256GCM        = "aes-256-gcm"
	CipherChaCha20Poly1305 = "chacha20-poly1305"
)

const (
	SymmetricKeySize = 32
	NonceSize        = 12
	TagSize          = 16
)

// DefaultAAD binds ciphertexts to this application. Decrypting with a
// different AAD fails authentication.
const DefaultAAD = "guard.security-core.v1"

// EncryptedBlob is the output of AEAD.Encrypt. None of the parts is usable
// without the others.
type EncryptedBlob struct {
	Ciphertext []byte
	IV         []byte
	Tag        []byte
}

// AEAD performs authenticated encryption with a fixed cipher and AAD. The
// key is passed per call so one AEAD can serve many keys.
type AEAD struct {
	cipher string
	aad    []byte
}

// NewAEAD returns an AEAD for the named cipher. An empty name selects
// AES-256-GCM and an empty aad selects DefaultAAD.
func NewAEAD(cipherName, aad string) (*AEAD, error) {
	if cipherName == "" {
		cipherName = CipherAES256GCM
	}
	if cipherName != CipherAES256GCM && cipherName != CipherChaCha20Poly1305 {
		return nil, fmt.Errorf("%w: cipher %q", ErrUnsupported, cipherName)
	}
	if aad == "" {
		aad = DefaultAAD
	}
	return &AEAD{cipher: cipherName, aad: []byte(aad)}, nil
}

// Cipher returns the configured cipher name.
func (a *AEAD) Cipher() string { return a.cipher }

// GenerateKey returns a fresh random 32-byte key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, SymmetricKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("cryptox: failed to generate key: %w", err)
	}
	return key, nil
}

// Encrypt seals plaintext under key with a freshly generated IV. There is no
// way to supply an IV, so a (key, IV) pair is never reused by this package.
func (a *AEAD) Encrypt(plaintext, key []byte) (EncryptedBlob, error) {
	aead, err := a.newCipher(key)
	if err != nil {
		return EncryptedBlob{}, err
	}

	iv := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return EncryptedBlob{}, fmt.Errorf("cryptox: failed to generate iv: %w", err)
	}

	sealed := aead.Seal(nil, iv, plaintext, a.aad)
	split := len(sealed) - TagSize

	return EncryptedBlob{
		Ciphertext: sealed[:split:split],
		IV:         iv,
		Tag:        sealed[split:],
	}, nil
}

// Decrypt opens blob under key. It returns ErrDecrypt for any tag, IV or AAD
// mismatch and never returns partial plaintext.
func (a *AEAD) Decrypt(blob EncryptedBlob, key []byte) ([]byte, error) {
	aead, err := a.newCipher(key)
	if err != nil {
		return nil, err
	}
	if len(blob.IV) != NonceSize || len(blob.Tag) != TagSize {
		return nil, ErrDecrypt
	}

	sealed := make([]byte, 0, len(blob.Ciphertext)+TagSize)
	sealed = append(sealed, blob.Ciphertext...)
	sealed = append(sealed, blob.Tag...)

	plaintext, err := aead.Open(nil, blob.IV, sealed, a.aad)
	if err != nil {
		return nil, ErrDecrypt
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}

// envelope is the JSON shape behind EncryptJSON. Pointer fields let
// DecryptJSON tell a missing field from an empty one (empty plaintext has an
// empty ciphertext).
type envelope struct {
	Ciphertext *string `json:"ciphertext"`
	IV         *string `json:"iv"`
	Tag        *string `json:"tag"`
}

// EncryptJSON marshals v, encrypts it and returns a single base64 envelope.
func (a *AEAD) EncryptJSON(v any, key []byte) (string, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("cryptox: marshal payload: %w", err)
	}

	blob, err := a.Encrypt(plaintext, key)
	if err != nil {
		return "", err
	}

	ct := base64.StdEncoding.EncodeToString(blob.Ciphertext)
	iv := base64.StdEncoding.EncodeToString(blob.IV)
	tag := base64.StdEncoding.EncodeToString(blob.Tag)

	raw, err := json.Marshal(envelope{Ciphertext: &ct, IV: &iv, Tag: &tag})
	if err != nil {
		return "", fmt.Errorf("cryptox: marshal envelope: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecryptJSON reverses EncryptJSON into out. All three envelope fields must
// be present before any decryption is attempted.
func (a *AEAD) DecryptJSON(encoded string, key []byte, out any) error {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return ErrMalformedEnvelope
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ErrMalformedEnvelope
	}
	if env.Ciphertext == nil || env.IV == nil || env.Tag == nil {
		return ErrMalformedEnvelope
	}

	var blob EncryptedBlob
	if blob.Ciphertext, err = base64.StdEncoding.DecodeString(*env.Ciphertext); err != nil {
		return ErrMalformedEnvelope
	}
	if blob.IV, err = base64.StdEncoding.DecodeString(*env.IV); err != nil {
		return ErrMalformedEnvelope
	}
	if blob.Tag, err = base64.StdEncoding.DecodeString(*env.Tag); err != nil {
		return ErrMalformedEnvelope
	}

	plaintext, err := a.Decrypt(blob, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(plaintext, out); err != nil {
		return fmt.Errorf("cryptox: unmarshal payload: %w", err)
	}
	return nil
}

// newCipher checks the key length before any cipher state is built. Keys are
// never padded or truncated to fit.
func (a *AEAD) newCipher(key []byte) (cipher.AEAD, error) {
	if len(key) != SymmetricKeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKeyLength, len(key), SymmetricKeySize)
	}

	switch a.cipher {
	case CipherChaCha20Poly1305:
		aead, err := chacha20poly1305.New(key)
		if err != nil {
			return nil, fmt.Errorf("cryptox: create chacha20-poly1305: %w", err)
		}
		return aead, nil
	default:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("cryptox: create cipher: %w", err)
		}
		aead, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("cryptox: create GCM: %w", err)
		}
		return aead, nil
	}
}
