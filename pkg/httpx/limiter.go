package httpx

import (
	"net/http"
	"strconv"
	"time"

	"github.com/aussiebroadwan/guard/pkg/ratelimit"
	"github.com/aussiebroadwan/guard/pkg/slogx"
)

// LimitRequests applies the general fixed window limit of l to every request,
// keyed by client IP and user agent. Explicitly blocked IPs get 403 before
// anything is counted.
//
// A store failure lets the request through: the limiter protects capacity,
// and refusing all traffic when the store is down is the worse outage.
func LimitRequests(l *ratelimit.Limiter, ip KeyExtractor) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)
			addr := ip(r)

			blocked, err := l.IsIPBlocked(ctx, addr)
			if err != nil {
				log.Error("rate limit: block lookup failed, allowing request", "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if blocked {
				log.Warn("request from blocked ip", "ip", addr)
				WriteError(w, http.StatusForbidden, "forbidden", "")
				return
			}

			res, err := l.IsRateLimited(ctx, ratelimit.ClientIdentifier(addr, r.UserAgent()))
			if err != nil {
				log.Error("rate limit: check failed, allowing request", "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if writeLimited(w, r, res) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LimitTrading applies the trading limit of l per authenticated user. It must
// run after AuthnMiddleware; anonymous requests pass through unchanged.
func LimitTrading(l *ratelimit.Limiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			res, err := l.IsTradingRateLimited(r.Context(), id.Subject)
			if err != nil {
				slogx.FromContext(r.Context()).Error("trading rate limit: check failed, allowing request", "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if writeLimited(w, r, res) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeLimited sets the rate limit headers and, when res is limited, writes
// the 429 reply. It reports whether it did.
func writeLimited(w http.ResponseWriter, r *http.Request, res ratelimit.Result) bool {
	h := w.Header()
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
	if !res.Limited {
		return false
	}

	retry := res.RetryAfter(time.Now())
	h.Set("Retry-After", strconv.Itoa(int(retry.Seconds())))
	slogx.FromContext(r.Context()).Warn("rate limit exceeded",
		"endpoint", r.URL.Path,
		"retry_after", retry.String(),
	)
	WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests. Please try again later.")
	return true
}
