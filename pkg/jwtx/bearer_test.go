package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/guard/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc.def.ghi", "", false},
		{"Basic dXNlcjpwYXNz", "", false},
		{"Bearer ", "", false},
		{"Bearer a b", "", false},
		{"", "", false},
		{"abc.def.ghi", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, ok := jwtx.ExtractBearer(tt.header)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestExpiryHelpers(t *testing.T) {
	km := newManager(t, jwtx.AlgorithmEdDSA)
	now := time.Now()

	live, err := km.Sign(accessClaims(now, time.Hour))
	require.NoError(t, err)
	dead, err := km.Sign(accessClaims(now.Add(-2*time.Hour), time.Hour))
	require.NoError(t, err)

	exp, ok := jwtx.ExpiryOf(live)
	require.True(t, ok)
	require.WithinDuration(t, now.Add(time.Hour), exp, 2*time.Second)

	require.False(t, jwtx.IsExpired(live))
	require.True(t, jwtx.IsExpired(dead))
	require.True(t, jwtx.IsExpired("garbage"))

	_, ok = jwtx.ExpiryOf("garbage")
	require.False(t, ok)
}
