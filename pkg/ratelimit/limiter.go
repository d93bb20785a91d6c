package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Default ceilings.
var (
	DefaultRule = Rule{Window: 15 * time.Minute, Max: 100}
	TradingRule = Rule{Window: time.Minute, Max: 10}
)

const (
	keyPrefixGeneral = "req:"
	keyPrefixTrading = "trading:"
	keyPrefixIP      = "ip:"

	maxUserAgentLen = 50
)

// ErrInvalidRule reports a non-positive window or ceiling.
var ErrInvalidRule = errors.New("ratelimit: window and max must be positive")

// Rule is a fixed window ceiling: at most Max requests per Window.
type Rule struct {
	Window time.Duration
	Max    int
}

func (r Rule) validate() error {
	if r.Window <= 0 || r.Max <= 0 {
		return fmt.Errorf("%w: window=%s max=%d", ErrInvalidRule, r.Window, r.Max)
	}
	return nil
}

// Result is the outcome of a check. Being limited is an expected outcome,
// not an error.
type Result struct {
	Limited   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is how long the caller should wait, rounded up to a second.
func (r Result) RetryAfter(now time.Time) time.Duration {
	d := r.ResetAt.Sub(now)
	if d < time.Second {
		return time.Second
	}
	return d.Round(time.Second)
}

// Config configures a Limiter. Zero rules take the defaults.
type Config struct {
	General Rule
	Trading Rule

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Limiter applies block-on-exceed fixed windows over a Store: once a key
// exceeds its ceiling every further request in that window is denied.
type Limiter struct {
	store   Store
	general Rule
	trading Rule
	now     func() time.Time
}

// New returns a Limiter over store.
func New(store Store, cfg Config) (*Limiter, error) {
	if cfg.General == (Rule{}) {
		cfg.General = DefaultRule
	}
	if cfg.Trading == (Rule{}) {
		cfg.Trading = TradingRule
	}
	if err := cfg.General.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Trading.validate(); err != nil {
		return nil, err
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Limiter{
		store:   store,
		general: cfg.General,
		trading: cfg.Trading,
		now:     cfg.Now,
	}, nil
}

// IsRateLimited counts a request from identifier against the general rule.
func (l *Limiter) IsRateLimited(ctx context.Context, identifier string) (Result, error) {
	return l.check(ctx, keyPrefixGeneral+identifier, l.general)
}

// IsTradingRateLimited counts a trading operation by userID. Its keyspace
// and ceiling are independent of the general limiter.
func (l *Limiter) IsTradingRateLimited(ctx context.Context, userID string) (Result, error) {
	return l.check(ctx, keyPrefixTrading+userID, l.trading)
}

func (l *Limiter) check(ctx context.Context, key string, rule Rule) (Result, error) {
	e, err := l.store.Hit(ctx, key, rule.Window, rule.Max, l.now())
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit: hit %q: %w", key, err)
	}

	remaining := max(rule.Max-e.Count, 0)
	if e.Blocked {
		remaining = 0
	}
	return Result{Limited: e.Blocked, Remaining: remaining, ResetAt: e.ResetAt}, nil
}

// BlockIP denies ip for d, independent of request counting.
func (l *Limiter) BlockIP(ctx context.Context, ip string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("ratelimit: block duration must be positive, got %s", d)
	}
	return l.store.Block(ctx, keyPrefixIP+ip, l.now().Add(d))
}

// IsIPBlocked reports an active explicit block on ip.
func (l *Limiter) IsIPBlocked(ctx context.Context, ip string) (bool, error) {
	_, blocked, err := l.store.BlockedUntil(ctx, keyPrefixIP+ip, l.now())
	return blocked, err
}

// UnblockIP lifts an explicit block early.
func (l *Limiter) UnblockIP(ctx context.Context, ip string) error {
	return l.store.Reset(ctx, keyPrefixIP+ip)
}

// Cleanup removes elapsed windows and expired blocks. Run it on a timer, not
// per request.
func (l *Limiter) Cleanup(ctx context.Context) (int, error) {
	return l.store.Sweep(ctx, l.now())
}

// GetStats reports tracked keys, active IP blocks and limited keys.
func (l *Limiter) GetStats(ctx context.Context) (Stats, error) {
	return l.store.Stats(ctx, l.now())
}

// ClientIdentifier builds the general limiter key from the client IP and the
// first 50 characters of its user agent.
func ClientIdentifier(ip, userAgent string) string {
	ua := []rune(userAgent)
	if len(ua) > maxUserAgentLen {
		ua = ua[:maxUserAgentLen]
	}
	return ip + ":" + string(ua)
}
