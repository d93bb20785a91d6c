package app

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aussiebroadwan/guard/pkg/cryptox"
	"github.com/aussiebroadwan/guard/pkg/jwtx"
)

const keyFileAAD = "guard.signing-key.v1"

// keyFile is what a persisted signing key looks like on disk. With a master
// key the whole document is sealed in a cryptox envelope.
type keyFile struct {
	KID       string `json:"kid"`
	Algorithm string `json:"alg"`
	PEM       string `json:"pem"`
}

// TokenKeys holds the two key managers the token service signs with.
type TokenKeys struct {
	Access  *jwtx.KeyManager
	Refresh *jwtx.KeyManager
}

// InitTokenKeys creates the access and refresh key managers.
//
// Key sources:
//   - HS256: GUARD_ACCESS_SECRET and GUARD_REFRESH_SECRET, generated when
//     unset. Generated secrets die with the process.
//   - Asymmetric without GUARD_KEY_DIR: keys are generated on startup and
//     every issued token becomes invalid on restart.
//   - Asymmetric with GUARD_KEY_DIR: keys are loaded from access.key and
//     refresh.key, created on first start. With GUARD_MASTER_KEY the files
//     are AEAD encrypted.
func InitTokenKeys(cfg Config, logger *slog.Logger) (TokenKeys, error) {
	if cfg.Algorithm == jwtx.AlgorithmHS256 {
		return initHMACKeys(cfg, logger)
	}

	var keys TokenKeys
	for _, k := range []struct {
		name string
		dst  **jwtx.KeyManager
	}{
		{"access", &keys.Access},
		{"refresh", &keys.Refresh},
	} {
		opts := jwtx.KeyManagerOptions{
			Algorithm: cfg.Algorithm,
			Issuer:    cfg.Issuer,
			Audience:  cfg.Audience,
		}

		if cfg.KeyDir != "" {
			stored, err := loadOrCreateKey(cfg, filepath.Join(cfg.KeyDir, k.name+".key"), logger)
			if err != nil {
				return TokenKeys{}, fmt.Errorf("failed to load %s signing key: %w", k.name, err)
			}
			opts.KID = stored.KID
			opts.PrivateKeyPEM = []byte(stored.PEM)
		}

		km, err := jwtx.NewKeyManager(opts)
		if err != nil {
			return TokenKeys{}, fmt.Errorf("failed to initialize %s key manager: %w", k.name, err)
		}
		*k.dst = km
	}

	if cfg.KeyDir == "" {
		logger.Warn("generated ephemeral signing keys; issued tokens will not survive a restart",
			"algorithm", cfg.Algorithm,
		)
	} else {
		logger.Info("signing keys loaded",
			"algorithm", cfg.Algorithm,
			"dir", cfg.KeyDir,
			"encrypted", cfg.MasterKey != "",
		)
	}

	return keys, nil
}

func initHMACKeys(cfg Config, logger *slog.Logger) (TokenKeys, error) {
	access, err := hmacSecret(cfg.AccessSecret, "GUARD_ACCESS_SECRET", logger)
	if err != nil {
		return TokenKeys{}, err
	}
	refresh, err := hmacSecret(cfg.RefreshSecret, "GUARD_REFRESH_SECRET", logger)
	if err != nil {
		return TokenKeys{}, err
	}

	var keys TokenKeys
	for _, k := range []struct {
		secret []byte
		dst    **jwtx.KeyManager
	}{
		{access, &keys.Access},
		{refresh, &keys.Refresh},
	} {
		km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{
			Algorithm: jwtx.AlgorithmHS256,
			Issuer:    cfg.Issuer,
			Audience:  cfg.Audience,
			// A kid derived from the secret stays stable across restarts.
			KID:    "hs-" + cryptox.SHA256(k.secret)[:16],
			Secret: k.secret,
		})
		if err != nil {
			return TokenKeys{}, fmt.Errorf("failed to initialize HS256 key manager: %w", err)
		}
		*k.dst = km
	}
	return keys, nil
}

func hmacSecret(configured, envName string, logger *slog.Logger) ([]byte, error) {
	if configured != "" {
		return []byte(configured), nil
	}
	secret, err := cryptox.GenerateKey()
	if err != nil {
		return nil, err
	}
	logger.Warn("secret not configured; generated one for this process, a restart invalidates issued tokens",
		"env", envName,
	)
	return secret, nil
}

func loadOrCreateKey(cfg Config, path string, logger *slog.Logger) (keyFile, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- path is operator configuration
	switch {
	case err == nil:
		kf, err := decodeKeyFile(cfg, raw)
		if err != nil {
			return keyFile{}, err
		}
		if kf.Algorithm != cfg.Algorithm {
			return keyFile{}, fmt.Errorf("%s holds a %s key, configured algorithm is %s", path, kf.Algorithm, cfg.Algorithm)
		}
		return kf, nil
	case !errors.Is(err, fs.ErrNotExist):
		return keyFile{}, err
	}

	pemKey, err := jwtx.GenerateSigningKey(cfg.Algorithm, 0)
	if err != nil {
		return keyFile{}, err
	}
	kid, err := cryptox.GenerateToken(8)
	if err != nil {
		return keyFile{}, err
	}
	kf := keyFile{KID: kid, Algorithm: cfg.Algorithm, PEM: string(pemKey)}

	encoded, err := encodeKeyFile(cfg, kf)
	if err != nil {
		return keyFile{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return keyFile{}, err
	}
	if err := os.WriteFile(path, encoded, 0o600); err != nil {
		return keyFile{}, err
	}

	if cfg.MasterKey == "" {
		logger.Warn("signing key written unencrypted; set GUARD_MASTER_KEY to seal it", "path", path)
	}
	logger.Info("generated persistent signing key", "path", path, "kid", kid)
	return kf, nil
}

func encodeKeyFile(cfg Config, kf keyFile) ([]byte, error) {
	if cfg.MasterKey == "" {
		return json.Marshal(kf)
	}
	aead, key, err := masterCipher(cfg)
	if err != nil {
		return nil, err
	}
	sealed, err := aead.EncryptJSON(kf, key)
	if err != nil {
		return nil, err
	}
	return []byte(sealed), nil
}

func decodeKeyFile(cfg Config, raw []byte) (keyFile, error) {
	var kf keyFile
	if cfg.MasterKey == "" {
		if err := json.Unmarshal(raw, &kf); err != nil {
			return keyFile{}, fmt.Errorf("parse key file (is it encrypted? set GUARD_MASTER_KEY): %w", err)
		}
		return kf, nil
	}

	aead, key, err := masterCipher(cfg)
	if err != nil {
		return keyFile{}, err
	}
	if err := aead.DecryptJSON(string(raw), key, &kf); err != nil {
		return keyFile{}, fmt.Errorf("unseal key file: %w", err)
	}
	return kf, nil
}

func masterCipher(cfg Config) (*cryptox.AEAD, []byte, error) {
	key, err := hex.DecodeString(cfg.MasterKey)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: GUARD_MASTER_KEY", cryptox.ErrInvalidKey)
	}
	aead, err := cryptox.NewAEAD(cryptox.CipherAES256GCM, keyFileAAD)
	if err != nil {
		return nil, nil, err
	}
	return aead, key, nil
}
