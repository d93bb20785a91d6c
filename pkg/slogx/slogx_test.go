package slogx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/guard/pkg/idx"
	"github.com/aussiebroadwan/guard/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, slogx.ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, slogx.ParseLevel("warning"))
	require.Equal(t, slog.LevelError, slogx.ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, slogx.ParseLevel("nonsense"))
}

func TestFromContext_DefaultsToGlobal(t *testing.T) {
	require.Equal(t, slog.Default(), slogx.FromContext(context.Background()))
}

func TestHTTPMiddleware_RequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{Service: "guard", Output: &buf})

	var seen *slog.Logger
	h := slogx.HTTPMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = slogx.FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	t.Run("valid id is kept", func(t *testing.T) {
		id := idx.New().String()
		req := httptest.NewRequest(http.MethodGet, "/livez", nil)
		req.Header.Set(slogx.RequestIDHeader, id)
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)
		require.Equal(t, id, rec.Header().Get(slogx.RequestIDHeader))
		require.NotNil(t, seen)
		require.Contains(t, buf.String(), id)
		require.Contains(t, buf.String(), `"status":418`)
	})

	t.Run("junk id is replaced", func(t *testing.T) {
		buf.Reset()
		req := httptest.NewRequest(http.MethodGet, "/livez", nil)
		req.Header.Set(slogx.RequestIDHeader, "evil\nline")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)
		_, err := idx.Parse(rec.Header().Get(slogx.RequestIDHeader))
		require.NoError(t, err)
		require.NotContains(t, buf.String(), "evil")
	})
}

func TestAuditor_SignsEntries(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := slogx.WithContext(context.Background(), logger)

	key := []byte("audit-key")
	entry := slogx.AuditEntry{
		Time:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Action:  "token.issue",
		Subject: "user-1",
		Outcome: "success",
		Details: map[string]string{"sid": "s-1"},
	}
	slogx.NewAuditor(key).Record(ctx, entry)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "audit", line["msg"])
	require.Equal(t, "token.issue", line["action"])

	sig, ok := line["sig"].(string)
	require.True(t, ok)
	require.True(t, slogx.VerifyAuditEntry(entry, key, sig))

	entry.Outcome = "failure"
	require.False(t, slogx.VerifyAuditEntry(entry, key, sig))
}

func TestAuditor_UnsignedWithoutKey(t *testing.T) {
	var buf bytes.Buffer
	ctx := slogx.WithContext(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))

	slogx.NewAuditor(nil).Record(ctx, slogx.AuditEntry{Action: "session.revoke", Outcome: "success"})
	require.NotContains(t, buf.String(), `"sig"`)

	var nilAuditor *slogx.Auditor
	require.NotPanics(t, func() { nilAuditor.Record(ctx, slogx.AuditEntry{}) })
}
