package cryptox_test

import (
	"testing"

	"github.com/aussiebroadwan/guard/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func newAEAD(t *testing.T, name string) *cryptox.AEAD {
	t.Helper()
	a, err := cryptox.NewAEAD(name, "")
	require.NoError(t, err)
	return a
}

func TestAEAD_RoundTrip(t *testing.T) {
	for _, name := range []string{cryptox.CipherAES256GCM, cryptox.CipherChaCha20Poly1305} {
		t.Run(name, func(t *testing.T) {
			a := newAEAD(t, name)
			key, err := cryptox.GenerateKey()
			require.NoError(t, err)

			blob, err := a.Encrypt([]byte("attack at dawn"), key)
			require.NoError(t, err)
			require.Len(t, blob.IV, cryptox.NonceSize)
			require.Len(t, blob.Tag, cryptox.TagSize)
			require.Len(t, blob.Ciphertext, len("attack at dawn"))

			pt, err := a.Decrypt(blob, key)
			require.NoError(t, err)
			require.Equal(t, "attack at dawn", string(pt))
		})
	}
}

func TestAEAD_FreshIVPerCall(t *testing.T) {
	a := newAEAD(t, "")
	key, err := cryptox.GenerateKey()
	require.NoError(t, err)

	b1, err := a.Encrypt([]byte("same"), key)
	require.NoError(t, err)
	b2, err := a.Encrypt([]byte("same"), key)
	require.NoError(t, err)

	require.NotEqual(t, b1.IV, b2.IV)
	require.NotEqual(t, b1.Ciphertext, b2.Ciphertext)
}

func TestAEAD_EmptyPlaintext(t *testing.T) {
	a := newAEAD(t, "")
	key, err := cryptox.GenerateKey()
	require.NoError(t, err)

	blob, err := a.Encrypt(nil, key)
	require.NoError(t, err)
	require.Empty(t, blob.Ciphertext)
	require.Len(t, blob.Tag, cryptox.TagSize)

	pt, err := a.Decrypt(blob, key)
	require.NoError(t, err)
	require.NotNil(t, pt)
	require.Empty(t, pt)
}

func TestAEAD_Tampering(t *testing.T) {
	a := newAEAD(t, "")
	key, err := cryptox.GenerateKey()
	require.NoError(t, err)

	blob, err := a.Encrypt([]byte("ledger entry 42"), key)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(b *cryptox.EncryptedBlob)
	}{
		{"ciphertext", func(b *cryptox.EncryptedBlob) { b.Ciphertext[0] ^= 0x01 }},
		{"iv", func(b *cryptox.EncryptedBlob) { b.IV[0] ^= 0x01 }},
		{"tag", func(b *cryptox.EncryptedBlob) { b.Tag[len(b.Tag)-1] ^= 0x01 }},
		{"short tag", func(b *cryptox.EncryptedBlob) { b.Tag = b.Tag[:8] }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := cryptox.EncryptedBlob{
				Ciphertext: append([]byte(nil), blob.Ciphertext...),
				IV:         append([]byte(nil), blob.IV...),
				Tag:        append([]byte(nil), blob.Tag...),
			}
			tt.mutate(&b)

			pt, err := a.Decrypt(b, key)
			require.ErrorIs(t, err, cryptox.ErrDecrypt)
			require.Nil(t, pt)
		})
	}
}

func TestAEAD_WrongKeyOrAAD(t *testing.T) {
	a := newAEAD(t, "")
	key, _ := cryptox.GenerateKey()
	other, _ := cryptox.GenerateKey()

	blob, err := a.Encrypt([]byte("secret"), key)
	require.NoError(t, err)

	_, err = a.Decrypt(blob, other)
	require.ErrorIs(t, err, cryptox.ErrDecrypt)

	b, err := cryptox.NewAEAD("", "another-context")
	require.NoError(t, err)
	_, err = b.Decrypt(blob, key)
	require.ErrorIs(t, err, cryptox.ErrDecrypt)
}

func TestAEAD_RejectsBadKeyLength(t *testing.T) {
	a := newAEAD(t, "")

	for _, n := range []int{0, 16, 31, 33, 64} {
		_, err := a.Encrypt([]byte("x"), make([]byte, n))
		require.ErrorIs(t, err, cryptox.ErrInvalidKeyLength, "len=%d", n)
	}

	// Key length is checked before the blob is looked at.
	_, err := a.Decrypt(cryptox.EncryptedBlob{}, []byte("short"))
	require.ErrorIs(t, err, cryptox.ErrInvalidKeyLength)
}

func TestNewAEAD_UnknownCipher(t *testing.T) {
	_, err := cryptox.NewAEAD("des-ede3", "")
	require.ErrorIs(t, err, cryptox.ErrUnsupported)
}

func TestAEAD_JSONEnvelope(t *testing.T) {
	type payload struct {
		UserID string   `json:"user_id"`
		Roles  []string `json:"roles"`
	}

	a := newAEAD(t, "")
	key, _ := cryptox.GenerateKey()

	in := payload{UserID: "u-123", Roles: []string{"admin", "trader"}}
	encoded, err := a.EncryptJSON(in, key)
	require.NoError(t, err)

	var out payload
	require.NoError(t, a.DecryptJSON(encoded, key, &out))
	require.Equal(t, in, out)
}

func TestAEAD_MalformedEnvelope(t *testing.T) {
	a := newAEAD(t, "")
	key, _ := cryptox.GenerateKey()

	tests := []struct {
		name    string
		encoded string
	}{
		{"not base64", "%%%"},
		{"not json", "bm90IGpzb24="},
		// {"ciphertext":"","iv":"AAAA"}
		{"missing tag", "eyJjaXBoZXJ0ZXh0IjoiIiwiaXYiOiJBQUFBIn0="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out map[string]any
			err := a.DecryptJSON(tt.encoded, key, &out)
			require.ErrorIs(t, err, cryptox.ErrMalformedEnvelope)
		})
	}
}
