package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/aussiebroadwan/guard/internal/guard/domain"
	"github.com/aussiebroadwan/guard/pkg/guardsdk"
	"github.com/aussiebroadwan/guard/pkg/sanitize"
)

const (
	maxBodyBytes   = 16 << 10
	maxReportBytes = 64 << 10
	maxClaimValues = 64
)

// decodeBody reads a JSON object into v, writing the error reply itself when
// it returns false. Unknown fields and trailing data are rejected.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || mt != "application/json" {
			guardsdk.ErrInvalidContentType.WriteError(w)
			return false
		}
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		guardsdk.ErrInvalidBody.WriteError(w)
		return false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		guardsdk.ErrInvalidBody.WriteError(w)
		return false
	}
	return true
}

// principalFrom validates the caller supplied identity. Everything ends up
// inside signed tokens, so anything outside the identifier and email formats
// is refused rather than cleaned.
func principalFrom(userID, email string, roles, permissions, amr []string) (domain.Principal, error) {
	if !sanitize.ValidateIdentifier(userID) {
		return domain.Principal{}, sanitize.ErrInvalidInput
	}

	p := domain.Principal{UserID: userID}
	if email != "" {
		normalized, err := sanitize.NormalizeEmail(email)
		if err != nil {
			return domain.Principal{}, err
		}
		p.Email = normalized
	}

	for _, list := range [][]string{roles, permissions, amr} {
		if len(list) > maxClaimValues {
			return domain.Principal{}, sanitize.ErrInvalidInput
		}
		for _, v := range list {
			if !sanitize.ValidateIdentifier(v) {
				return domain.Principal{}, sanitize.ErrInvalidInput
			}
		}
	}
	p.Roles, p.Permissions, p.AMR = roles, permissions, amr
	return p, nil
}
