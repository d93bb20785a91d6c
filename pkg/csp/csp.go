// Package csp builds Content-Security-Policy values with a per-response
// script nonce.
//
// A Policy is meant for one response. Keep a template Policy and call
// Regenerate for every response so that no nonce is ever served twice.
package csp

import (
	"errors"
	"fmt"
	"html"
	"slices"
	"strings"

	"github.com/aussiebroadwan/guard/pkg/cryptox"
)

const (
	HeaderName           = "Content-Security-Policy"
	ReportOnlyHeaderName = "Content-Security-Policy-Report-Only"

	// NonceSize is the number of random bytes behind each nonce.
	NonceSize = 16

	nonceDirective = "script-src"
)

var ErrInvalidSource = errors.New("csp: invalid directive or source")

// Directives maps a directive name to its ordered source list.
type Directives map[string][]string

// Serialisation order for well known directives. Anything else follows,
// sorted by name.
var directiveOrder = []string{
	"default-src",
	"script-src",
	"style-src",
	"img-src",
	"font-src",
	"connect-src",
	"media-src",
	"object-src",
	"frame-src",
	"worker-src",
	"manifest-src",
	"child-src",
	"frame-ancestors",
	"base-uri",
	"form-action",
	"report-uri",
	"report-to",
}

// Ignored by browsers when delivered in a <meta> element.
var headerOnly = map[string]bool{
	"frame-ancestors": true,
	"report-uri":      true,
	"report-to":       true,
	"sandbox":         true,
}

// DefaultDirectives is a strict starting point: same-origin everything,
// no plugins, no framing, nonce-gated scripts.
func DefaultDirectives() Directives {
	return Directives{
		"default-src":     {"'self'"},
		"script-src":      {"'self'", "'strict-dynamic'"},
		"style-src":       {"'self'", "'unsafe-inline'"},
		"img-src":         {"'self'", "data:", "https:"},
		"font-src":        {"'self'", "data:"},
		"connect-src":     {"'self'"},
		"object-src":      {"'none'"},
		"frame-ancestors": {"'none'"},
		"base-uri":        {"'self'"},
		"form-action":     {"'self'"},
	}
}

// Policy is a directive set plus the nonce for one response. It is not safe
// for concurrent mutation.
type Policy struct {
	directives Directives
	flags      map[string]bool
	nonce      string
}

// New copies d and generates a fresh nonce, which String places in
// script-src.
func New(d Directives) (*Policy, error) {
	p := &Policy{
		directives: make(Directives, len(d)),
		flags:      make(map[string]bool),
	}
	for name, sources := range d {
		if err := p.SetDirective(name, sources); err != nil {
			return nil, err
		}
	}

	nonce, err := cryptox.GenerateNonce(NonceSize)
	if err != nil {
		return nil, fmt.Errorf("csp: %w", err)
	}
	p.nonce = nonce
	return p, nil
}

// Nonce is the value for nonce="..." attributes on inline scripts. It is
// the same nonce that String advertises.
func (p *Policy) Nonce() string { return p.nonce }

// AddDirectiveSource appends source to directive unless already present.
func (p *Policy) AddDirectiveSource(directive, source string) error {
	name, err := directiveName(directive)
	if err != nil {
		return err
	}
	if !validToken(source) {
		return fmt.Errorf("%w: source %q", ErrInvalidSource, source)
	}
	if slices.Contains(p.directives[name], source) {
		return nil
	}
	p.directives[name] = append(p.directives[name], source)
	return nil
}

// SetDirective replaces the sources of directive. An empty list leaves the
// directive out of the policy.
func (p *Policy) SetDirective(directive string, sources []string) error {
	name, err := directiveName(directive)
	if err != nil {
		return err
	}

	out := make([]string, 0, len(sources))
	for _, s := range sources {
		if !validToken(s) {
			return fmt.Errorf("%w: source %q", ErrInvalidSource, s)
		}
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	p.directives[name] = out
	return nil
}

// SetFlag turns a valueless directive such as upgrade-insecure-requests on
// or off.
func (p *Policy) SetFlag(directive string, on bool) error {
	name, err := directiveName(directive)
	if err != nil {
		return err
	}
	if on {
		p.flags[name] = true
	} else {
		delete(p.flags, name)
	}
	return nil
}

// Directives returns a copy of the configured directives, without the
// nonce.
func (p *Policy) Directives() Directives {
	out := make(Directives, len(p.directives))
	for k, v := range p.directives {
		out[k] = slices.Clone(v)
	}
	return out
}

// String renders the header value in a stable order, omitting directives
// with no sources.
func (p *Policy) String() string {
	return p.render(nil)
}

// MetaTag renders the policy as a <meta http-equiv> element for pages that
// cannot set headers. Directives browsers ignore in meta are left out.
func (p *Policy) MetaTag() string {
	return fmt.Sprintf(`<meta http-equiv="%s" content="%s">`,
		HeaderName, html.EscapeString(p.render(headerOnly)))
}

// Regenerate returns a copy of the policy with a fresh nonce.
func (p *Policy) Regenerate() (*Policy, error) {
	next, err := New(p.directives)
	if err != nil {
		return nil, err
	}
	for name := range p.flags {
		next.flags[name] = true
	}
	return next, nil
}

func (p *Policy) render(skip map[string]bool) string {
	sources := p.Directives()
	if p.nonce != "" {
		sources[nonceDirective] = append(sources[nonceDirective], "'nonce-"+p.nonce+"'")
	}

	names := make([]string, 0, len(sources))
	for name := range sources {
		if !slices.Contains(directiveOrder, name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	names = append(slices.Clone(directiveOrder), names...)

	parts := make([]string, 0, len(names)+len(p.flags))
	for _, name := range names {
		if skip[name] || len(sources[name]) == 0 {
			continue
		}
		parts = append(parts, name+" "+strings.Join(sources[name], " "))
	}

	flags := make([]string, 0, len(p.flags))
	for name := range p.flags {
		if !skip[name] {
			flags = append(flags, name)
		}
	}
	slices.Sort(flags)
	parts = append(parts, flags...)

	return strings.Join(parts, "; ")
}

func directiveName(directive string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(directive))
	if !validToken(name) {
		return "", fmt.Errorf("%w: directive %q", ErrInvalidSource, directive)
	}
	return name, nil
}

// validToken rejects anything that could end a directive or the header.
func validToken(s string) bool {
	return s != "" && !strings.ContainsAny(s, ";,\r\n\t ")
}
