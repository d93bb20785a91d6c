package cryptox

import "errors"

var (
	// ErrHashFailed is the only error hashing callers ever see; the
	// underlying library error is deliberately dropped.
	ErrHashFailed = errors.New("cryptox: hash operation failed")

	ErrInvalidKeyLength  = errors.New("cryptox: invalid key length")
	ErrInvalidKey        = errors.New("cryptox: invalid key material")
	ErrDecrypt           = errors.New("cryptox: decryption failed")
	ErrMalformedEnvelope = errors.New("cryptox: malformed envelope")
	ErrWeakParameters    = errors.New("cryptox: parameters below minimum")
	ErrUnsupported       = errors.New("cryptox: unsupported algorithm")
)
