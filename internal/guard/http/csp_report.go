package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/guard/pkg/guardsdk"
	"github.com/aussiebroadwan/guard/pkg/sanitize"
	"github.com/aussiebroadwan/guard/pkg/slogx"
)

// Longest value copied from a report into the logs.
const maxReportField = 512

// CSPReportHandler godoc
//
//	@Summary		CSP violation report sink
//	@Description	Accepts Content-Security-Policy violation reports, either wrapped in a "csp-report" key or
//	@Description	as the top-level object, and logs them. Always answers 204; malformed reports are logged and dropped,
//	@Description	and reports over the per-client limit are dropped without logging.
//	@Tags			Reports
//	@Accept			json
//	@Param			report	body	guardsdk.CSPReport	false	"Violation report"
//	@Success		204		"Report accepted"
//	@Router			/v1/csp-report [post].
func CSPReportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := slogx.FromContext(r.Context())

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxReportBytes))
		if err != nil {
			log.Warn("csp report unreadable", "err", err)
			w.WriteHeader(http.StatusNoContent)
			return
		}

		reports, ok := parseCSPReports(body)
		if !ok {
			log.Warn("csp report malformed", "bytes", len(body))
			w.WriteHeader(http.StatusNoContent)
			return
		}

		for _, rep := range reports {
			log.Warn("csp violation",
				slog.String("document_uri", clip(rep.DocumentURI)),
				slog.String("violated_directive", clip(rep.ViolatedDirective)),
				slog.String("effective_directive", clip(rep.EffectiveDirective)),
				slog.String("blocked_uri", clip(rep.BlockedURI)),
				slog.String("source_file", clip(rep.SourceFile)),
				slog.Int("line", rep.LineNumber),
				slog.Int("column", rep.ColumnNumber),
				slog.String("disposition", clip(rep.Disposition)),
			)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// parseCSPReports accepts {"csp-report": {...}}, a bare report object, or
// the Reporting API form [{"type": "csp-violation", "body": {...}}].
func parseCSPReports(body []byte) ([]guardsdk.CSPReport, bool) {
	var wrapped struct {
		Report *guardsdk.CSPReport `json:"csp-report"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Report != nil {
		return []guardsdk.CSPReport{*wrapped.Report}, true
	}

	var bare guardsdk.CSPReport
	if err := json.Unmarshal(body, &bare); err == nil {
		return []guardsdk.CSPReport{bare}, true
	}

	var batch []struct {
		Type string `json:"type"`
		Body struct {
			DocumentURL        string `json:"documentURL"`
			BlockedURL         string `json:"blockedURL"`
			EffectiveDirective string `json:"effectiveDirective"`
			Disposition        string `json:"disposition"`
			SourceFile         string `json:"sourceFile"`
			LineNumber         int    `json:"lineNumber"`
			ColumnNumber       int    `json:"columnNumber"`
		} `json:"body"`
	}
	if err := json.Unmarshal(body, &batch); err != nil {
		return nil, false
	}

	out := make([]guardsdk.CSPReport, 0, len(batch))
	for _, b := range batch {
		if b.Type != "csp-violation" {
			continue
		}
		out = append(out, guardsdk.CSPReport{
			DocumentURI:        b.Body.DocumentURL,
			BlockedURI:         b.Body.BlockedURL,
			EffectiveDirective: b.Body.EffectiveDirective,
			ViolatedDirective:  b.Body.EffectiveDirective,
			Disposition:        b.Body.Disposition,
			SourceFile:         b.Body.SourceFile,
			LineNumber:         b.Body.LineNumber,
			ColumnNumber:       b.Body.ColumnNumber,
		})
	}
	return out, true
}

// clip makes a client supplied string safe to log.
func clip(s string) string {
	s = sanitize.Text(s)
	if r := []rune(s); len(r) > maxReportField {
		return string(r[:maxReportField])
	}
	return s
}
