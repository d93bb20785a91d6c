package slogx

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/guard/pkg/cryptox"
)

// AuditEntry is one security relevant event: a token issued, a session
// revoked, an IP blocked.
type AuditEntry struct {
	Time    time.Time         `json:"ts"`
	Action  string            `json:"action"`
	Subject string            `json:"subject,omitempty"`
	Outcome string            `json:"outcome"`
	Details map[string]string `json:"details,omitempty"`
}

// Auditor writes audit entries to the request logger, each carrying an
// HMAC-SHA256 signature so that edited log lines can be detected. Recording
// never fails the caller.
type Auditor struct {
	key []byte
	now func() time.Time
}

// NewAuditor returns an Auditor signing with key. With an empty key entries
// are logged unsigned.
func NewAuditor(key []byte) *Auditor {
	return &Auditor{key: append([]byte(nil), key...), now: time.Now}
}

// Record logs e. A zero Time is filled with the current time.
func (a *Auditor) Record(ctx context.Context, e AuditEntry) {
	if a == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = a.now().UTC()
	}

	attrs := []slog.Attr{
		slog.Bool("audit", true),
		slog.String("action", e.Action),
		slog.String("subject", e.Subject),
		slog.String("outcome", e.Outcome),
		slog.Time("ts", e.Time),
	}
	if len(e.Details) > 0 {
		attrs = append(attrs, slog.Any("details", e.Details))
	}

	logger := FromContext(ctx)
	if len(a.key) > 0 {
		sig, err := SignAuditEntry(e, a.key)
		if err != nil {
			logger.Warn("audit entry could not be signed", "action", e.Action, "err", err)
		} else {
			attrs = append(attrs, slog.String("sig", sig))
		}
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
}

// SignAuditEntry returns the hex HMAC of the entry's JSON encoding.
func SignAuditEntry(e AuditEntry, key []byte) (string, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return cryptox.HMACSHA256(raw, key), nil
}

// VerifyAuditEntry checks sig against e in constant time.
func VerifyAuditEntry(e AuditEntry, key []byte, sig string) bool {
	raw, err := json.Marshal(e)
	if err != nil {
		return false
	}
	return cryptox.VerifyHMACSHA256(raw, key, sig)
}
