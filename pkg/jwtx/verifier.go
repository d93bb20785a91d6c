package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// VerifyOptions captures common expectations used by verifiers.
type VerifyOptions struct {
	// Issuer the token must have (claims.iss). Empty means "don't care".
	Issuer string

	// Audience values the token must contain one of. Empty means "don't care".
	Audience []string

	// Leeway allows small clock skew when validating exp/nbf.
	Leeway time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time
}

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrUnknownKID  = errors.New("jwtx: unknown kid")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")

	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrAudience     = errors.New("jwtx: audience mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
	ErrWrongType    = errors.New("jwtx: wrong token type")

	ErrWeakSecret = errors.New("jwtx: secret too short")
)

// Verifier validates JWTs signed with one pinned algorithm against a KeySet.
// Checks run in a fixed order: signature, issuer, audience, expiry.
type Verifier struct {
	keys   *KeySet
	alg    string
	issuer string
	aud    []string
	leeway time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewVerifier creates a verifier that accepts only alg.
func NewVerifier(keys *KeySet, alg string, opts VerifyOptions) *Verifier {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Verifier{
		keys:   keys,
		alg:    alg,
		issuer: opts.Issuer,
		aud:    opts.Audience,
		leeway: opts.Leeway,
		now:    now,
		// Claims are checked by hand below so the error order is ours.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{alg}),
			jwt.WithoutClaimsValidation(),
		),
	}
}

// Issuer is the issuer this verifier requires.
func (v *Verifier) Issuer() string { return v.issuer }

// Audience is the audience this verifier requires one of.
func (v *Verifier) Audience() []string { return v.aud }

// Verify validates the JWT string and returns its parsed Claims.
func (v *Verifier) Verify(tokenStr string) (Claims, error) {
	claims, err := v.VerifySignature(tokenStr)
	if err != nil {
		return Claims{}, err
	}

	if err := claims.ValidateIssuer(v.issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateAudience(v.aud); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateExpiry(v.now(), v.leeway); err != nil {
		return Claims{}, err
	}
	return claims, nil
}

// VerifySignature checks only the algorithm, kid and signature. Used where an
// expired token must still be attributed, such as revocation on logout.
func (v *Verifier) VerifySignature(tokenStr string) (Claims, error) {
	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(tokenStr, claims, v.keyFunc)
	if err != nil {
		return Claims{}, mapParseError(err)
	}
	if !token.Valid {
		return Claims{}, ErrInvalidSig
	}
	return *claims, nil
}

func (v *Verifier) keyFunc(t *jwt.Token) (any, error) {
	if t.Method.Alg() != v.alg {
		return nil, ErrAlgMismatch
	}

	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, fmt.Errorf("%w: missing kid", ErrUnknownKID)
	}

	key, err := v.keys.Get(kid)
	if err != nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownKID, kid)
	}
	return key, nil
}

// mapParseError turns golang-jwt errors into this package's sentinels.
func mapParseError(err error) error {
	switch {
	case errors.Is(err, ErrAlgMismatch):
		return ErrAlgMismatch
	case errors.Is(err, ErrUnknownKID):
		return ErrUnknownKID
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidSig
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
