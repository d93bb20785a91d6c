// Package otpx implements TOTP enrolment and verification with replay
// protection, single use backup codes and out-of-band numeric codes for SMS
// and email delivery. Nothing here keeps state: callers persist the secret,
// the last accepted time step and the hashed backup codes.
package otpx

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"image/png"
	"math/big"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
	"github.com/pquerna/otp/totp"

	"github.com/aussiebroadwan/guard/pkg/cryptox"
)

const (
	totpPeriod = 30 // seconds per time step
	totpSkew   = 1  // steps accepted either side of now

	backupCodeCount = 10
	backupCodeHalf  = 5 // characters either side of the dash
	backupSaltBytes = 16

	oneTimeCodeDigits = 6
	smsCodeTTL        = 5 * time.Minute
	emailCodeTTL      = 10 * time.Minute

	defaultQRSize = 256
)

// Unambiguous upper-case alphabet: no 0/O, 1/I/L.
const backupCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

var (
	ErrInvalid  = errors.New("invalid_otp")
	ErrReplayed = errors.New("otp_replayed")
)

// Enrollment is produced once per user when TOTP is set up. Only Secret and
// HashedBackupCodes are stored; BackupCodes are shown to the user once.
type Enrollment struct {
	Secret            string   `json:"secret"`
	ProvisioningURI   string   `json:"provisioning_uri"`
	BackupCodes       []string `json:"backup_codes"`
	HashedBackupCodes []string `json:"-"`
}

// Delivery channels for a OneTimeCode.
const (
	ChannelSMS   = "sms"
	ChannelEmail = "email"
)

// OneTimeCode is a numeric code delivered out of band. The caller stores and
// delivers it; Service only mints and checks it.
type OneTimeCode struct {
	Code      string    `json:"code"`
	Channel   string    `json:"channel"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service mints and checks one-time passwords for a single issuer.
type Service struct {
	Issuer string

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// NewService returns a Service labelling secrets with issuer.
func NewService(issuer string) *Service {
	return &Service{Issuer: issuer, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// GenerateSecret creates a TOTP secret for label along with ten backup
// codes. Store HashedBackupCodes, never BackupCodes.
func (s *Service) GenerateSecret(label string) (Enrollment, error) {
	if strings.TrimSpace(label) == "" {
		return Enrollment{}, fmt.Errorf("otpx: otp label is required")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: label,
		Period:      totpPeriod,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return Enrollment{}, fmt.Errorf("otpx: generate totp key: %w", err)
	}

	codes := make([]string, backupCodeCount)
	hashed := make([]string, backupCodeCount)
	for i := range backupCodeCount {
		if codes[i], err = generateBackupCode(); err != nil {
			return Enrollment{}, err
		}
		if hashed[i], err = HashBackupCode(codes[i]); err != nil {
			return Enrollment{}, err
		}
	}

	return Enrollment{
		Secret:            key.Secret(),
		ProvisioningURI:   key.URL(),
		BackupCodes:       codes,
		HashedBackupCodes: hashed,
	}, nil
}

// VerifyToken checks a TOTP code against secret, allowing one step of clock
// drift either way.
func (s *Service) VerifyToken(code, secret string) bool {
	ok, err := totp.ValidateCustom(code, secret, s.now(), totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// VerifyWithReplayProtection accepts code only if it belongs to a time step
// after lastUsedCounter. On success it returns that step, which the caller
// must persist as the new lastUsedCounter.
func (s *Service) VerifyWithReplayProtection(code, secret string, lastUsedCounter uint64) (uint64, error) {
	if !isDigits(code, otp.DigitsSix.Length()) {
		return 0, ErrInvalid
	}

	current := uint64(s.now().Unix()) / totpPeriod // #nosec G115
	opts := hotp.ValidateOpts{Digits: otp.DigitsSix, Algorithm: otp.AlgorithmSHA1}

	var (
		matched uint64
		found   bool
	)
	// Every candidate step is computed so timing does not reveal which one
	// matched.
	for step := current - totpSkew; step <= current+totpSkew; step++ {
		want, err := hotp.GenerateCodeCustom(secret, step, opts)
		if err != nil {
			return 0, ErrInvalid
		}
		if cryptox.SecureCompare(want, code) && !found {
			matched, found = step, true
		}
	}

	if !found {
		return 0, ErrInvalid
	}
	if matched <= lastUsedCounter {
		return 0, ErrReplayed
	}
	return matched, nil
}

// GenerateSMSOTP returns a six digit code valid for five minutes.
func (s *Service) GenerateSMSOTP() (OneTimeCode, error) {
	return s.generateOneTimeCode(ChannelSMS, smsCodeTTL)
}

// GenerateEmailOTP returns a six digit code valid for ten minutes.
func (s *Service) GenerateEmailOTP() (OneTimeCode, error) {
	return s.generateOneTimeCode(ChannelEmail, emailCodeTTL)
}

func (s *Service) generateOneTimeCode(channel string, ttl time.Duration) (OneTimeCode, error) {
	code, err := randomDigits(oneTimeCodeDigits)
	if err != nil {
		return OneTimeCode{}, err
	}
	return OneTimeCode{
		Code:      code,
		Channel:   channel,
		ExpiresAt: s.now().Add(ttl),
	}, nil
}

// VerifyOneTimeCode checks code against an issued code that has not expired.
func (s *Service) VerifyOneTimeCode(code string, issued OneTimeCode) bool {
	if issued.Code == "" || !s.now().Before(issued.ExpiresAt) {
		return false
	}
	return cryptox.SecureCompare(strings.TrimSpace(code), issued.Code)
}

// VerifyBackupCode looks code up in hashed. On a match it returns the index
// the caller must remove, since each code is single use.
func (s *Service) VerifyBackupCode(code string, hashed []string) (int, bool) {
	match := -1
	for i, h := range hashed {
		if checkBackupCode(code, h) && match < 0 {
			match = i
		}
	}
	return match, match >= 0
}

// QRCode renders a provisioning URI as a PNG of size x size pixels.
func (s *Service) QRCode(uri string, size int) ([]byte, error) {
	if size <= 0 {
		size = defaultQRSize
	}
	key, err := otp.NewKeyFromURL(uri)
	if err != nil {
		return nil, fmt.Errorf("otpx: parse provisioning uri: %w", err)
	}
	img, err := key.Image(size, size)
	if err != nil {
		return nil, fmt.Errorf("otpx: render qr code: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("otpx: encode qr code: %w", err)
	}
	return buf.Bytes(), nil
}

// HashBackupCode returns "hexsalt:hexsha256" for a backup code.
func HashBackupCode(code string) (string, error) {
	salt, err := cryptox.GenerateSalt(backupSaltBytes)
	if err != nil {
		return "", err
	}
	return salt + ":" + cryptox.SHA256([]byte(salt+normalizeBackupCode(code))), nil
}

func checkBackupCode(code, hashed string) bool {
	salt, sum, ok := strings.Cut(hashed, ":")
	if !ok || salt == "" || sum == "" {
		return false
	}
	return cryptox.SecureCompare(cryptox.SHA256([]byte(salt+normalizeBackupCode(code))), sum)
}

// normalizeBackupCode makes "abcde-fghij", "ABCDEFGHIJ" and " ABCDE-FGHIJ "
// equivalent.
func normalizeBackupCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	return strings.ReplaceAll(code, "-", "")
}

func generateBackupCode() (string, error) {
	var b strings.Builder
	limit := big.NewInt(int64(len(backupCodeAlphabet)))
	for i := range 2 * backupCodeHalf {
		if i == backupCodeHalf {
			b.WriteByte('-')
		}
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("otpx: generate backup code: %w", err)
		}
		b.WriteByte(backupCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

func randomDigits(n int) (string, error) {
	var b strings.Builder
	ten := big.NewInt(10)
	for range n {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("otpx: generate code: %w", err)
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
