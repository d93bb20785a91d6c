package cryptox

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DerivedKeySize is the output size of DeriveKey, sized for AES-256.
	DerivedKeySize = 32

	// MinPBKDF2Iterations is the floor below which DeriveKey refuses to run.
	MinPBKDF2Iterations = 10_000

	// DefaultPBKDF2Iterations is what callers should use absent a reason not to.
	DefaultPBKDF2Iterations = 210_000

	apiKeyEntropy = 32
)

// SHA256 returns the lowercase hex SHA-256 digest of data.
func SHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SHA512 returns the lowercase hex SHA-512 digest of data.
func SHA512(data []byte) string {
	sum := sha512.Sum512(data)
	return hex.EncodeToString(sum[:])
}

// HMACSHA256 returns the hex HMAC-SHA256 of data keyed by secret. Used to sign
// audit log entries and anything else that needs integrity without secrecy.
func HMACSHA256(data, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMACSHA256 recomputes the MAC and compares it in constant time.
func VerifyHMACSHA256(data, secret []byte, expected string) bool {
	return SecureCompare(HMACSHA256(data, secret), expected)
}

// GenerateSalt returns n random bytes hex encoded (2n characters).
func GenerateSalt(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("cryptox: salt length must be positive, got %d", n)
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: failed to generate salt: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// DeriveKey stretches a password into a 32-byte symmetric key with
// PBKDF2-HMAC-SHA256. This is for raw key material, not password storage;
// use PasswordHasher for that.
func DeriveKey(password string, salt []byte, iterations int) ([]byte, error) {
	if len(salt) == 0 {
		return nil, fmt.Errorf("%w: empty salt", ErrWeakParameters)
	}
	if iterations < MinPBKDF2Iterations {
		return nil, fmt.Errorf("%w: %d iterations, need at least %d",
			ErrWeakParameters, iterations, MinPBKDF2Iterations)
	}
	return pbkdf2.Key([]byte(password), salt, iterations, DerivedKeySize, sha256.New), nil
}

// GenerateAPIKey mixes the current timestamp with 32 bytes of entropy and
// returns the SHA-256 of the result as 64 hex characters. The output is not
// reversible to either input.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, 8+apiKeyEntropy)
	binary.BigEndian.PutUint64(buf[:8], uint64(time.Now().UnixNano())) // #nosec G115
	if _, err := rand.Read(buf[8:]); err != nil {
		return "", fmt.Errorf("cryptox: failed to generate api key: %w", err)
	}
	return SHA256(buf), nil
}

// VerifyChecksum reports whether the SHA-256 of data equals expected (hex).
// The comparison never short-circuits on the first differing byte.
func VerifyChecksum(data []byte, expected string) bool {
	return SecureCompare(SHA256(data), strings.ToLower(expected))
}

// SecureCompare is a constant-time string equality check. Length differences
// are still observable, which is fine for fixed-length digests.
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
