package cryptox

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Supported password hashing algorithms.
const (
	PasswordBcrypt   = "bcrypt"
	PasswordArgon2id = "argon2id"
)

// DefaultBcryptCost is the work factor used when none is configured. It is a
// deliberate CPU/time cost for brute-force resistance.
const DefaultBcryptCost = 12

// Configuration for Argon2id hashing.
const (
	argonMemory      = 19 * 1024 // KiB
	argonIterations  = 2
	argonParallelism = 1
	argonKeyLength   = 32
	argonSaltLength  = 16
)

// PasswordOptions configures a PasswordHasher.
type PasswordOptions struct {
	// Algorithm used for new hashes: "bcrypt" (default) or "argon2id".
	Algorithm string

	// BcryptCost is the bcrypt work factor. Zero means DefaultBcryptCost.
	BcryptCost int

	// Pepper is an optional server-side secret mixed into every password.
	// Changing it invalidates every stored hash.
	Pepper []byte
}

// PasswordHasher hashes and verifies user passwords. It is safe for
// concurrent use. Hashing is CPU-bound and blocks the calling goroutine.
type PasswordHasher struct {
	algorithm string
	cost      int
	pepper    []byte
}

// NewPasswordHasher validates opts and returns a hasher.
func NewPasswordHasher(opts PasswordOptions) (*PasswordHasher, error) {
	alg := opts.Algorithm
	if alg == "" {
		alg = PasswordBcrypt
	}
	if alg != PasswordBcrypt && alg != PasswordArgon2id {
		return nil, fmt.Errorf("%w: password algorithm %q", ErrUnsupported, alg)
	}

	cost := opts.BcryptCost
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: bcrypt cost %d", ErrWeakParameters, cost)
	}

	return &PasswordHasher{
		algorithm: alg,
		cost:      cost,
		pepper:    append([]byte(nil), opts.Pepper...),
	}, nil
}

// Hash returns an encoded hash of password, either a bcrypt "$2a$" string or
// a PHC-style "$argon2id$" string depending on the configured algorithm.
func (h *PasswordHasher) Hash(password string) (string, error) {
	if h.algorithm == PasswordArgon2id {
		return h.hashArgon2id(password)
	}

	hashed, err := bcrypt.GenerateFromPassword(h.prehash(password), h.cost)
	if err != nil {
		return "", ErrHashFailed
	}
	return string(hashed), nil
}

// Verify reports whether password matches encoded. Any failure, including a
// malformed hash, is a plain false so callers cannot tell the cases apart.
func (h *PasswordHasher) Verify(password, encoded string) bool {
	switch {
	case strings.HasPrefix(encoded, "$argon2id$"):
		return h.verifyArgon2id(password, encoded)
	case strings.HasPrefix(encoded, "$2"):
		return bcrypt.CompareHashAndPassword([]byte(encoded), h.prehash(password)) == nil
	default:
		return false
	}
}

// NeedsRehash reports whether encoded was produced with weaker settings than
// the hasher's current configuration and should be replaced on next login.
func (h *PasswordHasher) NeedsRehash(encoded string) bool {
	if h.algorithm == PasswordArgon2id {
		return !strings.HasPrefix(encoded, "$argon2id$")
	}
	cost, err := bcrypt.Cost([]byte(encoded))
	if err != nil {
		return true
	}
	return cost < h.cost
}

// prehash folds the pepper into the password and keeps the bcrypt input at a
// fixed 44 bytes, under bcrypt's 72-byte limit.
func (h *PasswordHasher) prehash(password string) []byte {
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(password))
	sum := mac.Sum(nil)
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum)
	return out
}

func (h *PasswordHasher) hashArgon2id(password string) (string, error) {
	salt := make([]byte, argonSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", ErrHashFailed
	}
	hash := argon2.IDKey(
		append([]byte(password), h.pepper...),
		salt,
		argonIterations,
		argonMemory,
		argonParallelism,
		argonKeyLength,
	)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemory,
		argonIterations,
		argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

func (h *PasswordHasher) verifyArgon2id(password, encoded string) bool {
	// ["", "argon2id", "v=19", "m=X,t=Y,p=Z", "salt", "hash"]
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return false
	}

	var mem, iters uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iters, &par); err != nil {
		return false
	}
	if mem == 0 || iters == 0 || par == 0 {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 {
		return false
	}

	computed := argon2.IDKey(
		append([]byte(password), h.pepper...),
		salt,
		iters,
		mem,
		par,
		uint32(len(expected)), // #nosec G115
	)
	return subtle.ConstantTimeCompare(computed, expected) == 1
}
