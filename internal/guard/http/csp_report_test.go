package http_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCSPReportAlwaysNoContent(t *testing.T) {
	h := newHarness(t, harnessOptions{reportBurst: 10})

	bodies := []struct {
		contentType string
		body        string
	}{
		{"application/csp-report", `{"csp-report":{"document-uri":"https://app.example/","violated-directive":"script-src","blocked-uri":"inline"}}`},
		{"application/json", `{"document-uri":"https://app.example/","blocked-uri":"eval"}`},
		{"application/reports+json", `[{"type":"csp-violation","body":{"documentURL":"https://app.example/","effectiveDirective":"script-src-elem"}}]`},
		{"text/plain", `this is not json`},
		{"application/json", ``},
	}

	for _, b := range bodies {
		resp, err := http.Post(h.srv.URL+"/v1/csp-report", b.contentType, strings.NewReader(b.body))
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusNoContent, resp.StatusCode, b.body)
	}
}

func TestCSPReportFloodIsDropped(t *testing.T) {
	h := newHarness(t, harnessOptions{})

	codes := make([]int, 0, 4)
	for range 4 {
		resp, err := http.Post(h.srv.URL+"/v1/csp-report", "application/json", strings.NewReader(`{}`))
		require.NoError(t, err)
		resp.Body.Close()
		require.Empty(t, resp.Header.Get("Retry-After"))
		codes = append(codes, resp.StatusCode)
	}
	require.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusNoContent, http.StatusNoContent}, codes)
}
