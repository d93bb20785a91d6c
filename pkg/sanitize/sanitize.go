// Package sanitize holds pure input scrubbing and format validation helpers.
// Nothing here replaces output encoding or parameterized queries; these are
// an extra layer in front of them.
package sanitize

import (
	"errors"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var ErrInvalidInput = errors.New("sanitize: invalid input")

const (
	MaxEmailLength    = 254
	MaxFileNameLength = 255

	// Passes of decode-and-strip before HTML gives up on converging and
	// returns nothing.
	maxHTMLPasses = 64
)

var (
	// No elements, no attributes. script and style content is dropped.
	strictPolicy = bluemonday.StrictPolicy()

	scriptScheme = regexp.MustCompile(`(?i)(javascript|vbscript|livescript)\s*:`)
	eventHandler = regexp.MustCompile(`(?i)(on[a-z]+)\s*=`)

	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	fileNameChars = regexp.MustCompile(`[^a-zA-Z0-9.\-]`)
	dotRun        = regexp.MustCompile(`\.{2,}`)
	apiKeyRegex   = regexp.MustCompile(`^[a-fA-F0-9]{32,128}$`)
	phoneRegex    = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)
	phoneNoise    = regexp.MustCompile(`[\s().\-]`)
	amountRegex   = regexp.MustCompile(`^[0-9]{1,15}(\.[0-9]{1,8})?$`)
	identRegex    = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.:@\-]{0,127}$`)
)

// Text drops NUL and control characters other than tab and newlines, and
// trims surrounding space.
func Text(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToValidUTF8(s, "") {
		if r == 0 || (r < 32 && r != '\t' && r != '\n' && r != '\r') || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// HTML reduces untrusted input to plain text that is safe to place in markup.
// Tags and attributes are removed, entity-encoded payloads are decoded and
// stripped again, script URL schemes and inline event handlers are defused,
// and the result is HTML escaped. HTML(HTML(x)) == HTML(x). Input still
// changing after maxHTMLPasses is dropped entirely.
func HTML(input string) string {
	s := Text(input)
	for range maxHTMLPasses {
		next := defuse(Text(html.UnescapeString(strictPolicy.Sanitize(s))))
		if next == s {
			return html.EscapeString(s)
		}
		s = next
	}
	return ""
}

func defuse(s string) string {
	for {
		next := scriptScheme.ReplaceAllString(s, "${1}")
		next = eventHandler.ReplaceAllString(next, "${1}")
		if next == s {
			return s
		}
		s = next
	}
}

// SQL strips quote, terminator, escape and comment sequences. It is defense
// in depth only: queries must still be parameterized.
func SQL(input string) string {
	s := Text(input)
	for {
		next := strings.NewReplacer(
			"'", "",
			`"`, "",
			";", "",
			`\`, "",
			"--", "",
			"/*", "",
			"*/", "",
		).Replace(s)
		if next == s {
			return s
		}
		s = next
	}
}

// ValidateEmail is a light RFC 5322 shape check bounded to 254 characters.
func ValidateEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" || len(email) > MaxEmailLength {
		return false
	}
	return emailRegex.MatchString(email)
}

// NormalizeEmail trims and lower-cases a valid email.
func NormalizeEmail(email string) (string, error) {
	if !ValidateEmail(email) {
		return "", ErrInvalidInput
	}
	return strings.ToLower(strings.TrimSpace(email)), nil
}

// FileName keeps [a-zA-Z0-9.-] and replaces everything else with "_". Runs
// of dots collapse to "_" so the result can never name a parent directory.
func FileName(name string) string {
	s := fileNameChars.ReplaceAllString(name, "_")
	s = dotRun.ReplaceAllString(s, "_")
	if s == "." {
		s = "_"
	}
	if len(s) > MaxFileNameLength {
		s = s[:MaxFileNameLength]
	}
	return s
}

// ValidateAPIKey checks that key is 32 to 128 hex characters. Run it before
// using a key in any lookup.
func ValidateAPIKey(key string) bool {
	return apiKeyRegex.MatchString(key)
}

// ValidatePhone accepts E.164 numbers; spaces, dots, dashes and parentheses
// are ignored.
func ValidatePhone(phone string) bool {
	return phoneRegex.MatchString(phoneNoise.ReplaceAllString(phone, ""))
}

// ValidateAmount accepts a positive decimal with at most 15 integer digits
// and 8 fractional digits.
func ValidateAmount(amount string) bool {
	if !amountRegex.MatchString(amount) {
		return false
	}
	return strings.Trim(amount, "0.") != ""
}

// ValidateIdentifier accepts opaque identifiers such as user IDs, role and
// permission names: 1 to 128 characters of letters, digits and "_.:@-",
// starting with a letter or digit.
func ValidateIdentifier(id string) bool {
	return identRegex.MatchString(id)
}
