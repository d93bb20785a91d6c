package app

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/guard/pkg/cryptox"
	"github.com/aussiebroadwan/guard/pkg/httpx"
	"github.com/aussiebroadwan/guard/pkg/jwtx"
	"github.com/aussiebroadwan/guard/pkg/ratelimit"
)

// Store backends selectable with GUARD_STORE.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

var ErrInvalidConfig = errors.New("app: invalid configuration")

type Config struct {
	Issuer    string   // Issuer claim for tokens (default: guard)
	Audience  []string // Comma separated audience list (default: guard-api)
	Algorithm string   // RS256, ES256, EdDSA or HS256 (default: EdDSA)

	AccessSecret  string // HS256 only; generated when empty
	RefreshSecret string // HS256 only; generated when empty
	KeyDir        string // Optional: directory asymmetric signing keys persist in
	MasterKey     string // Optional: hex AES-256 key sealing persisted signing keys

	AccessTTL      time.Duration // Default: 15m
	RefreshTTL     time.Duration // Default: 7d
	RotateRefresh  bool          // Revoke a refresh token once used (default: false)
	ServiceKeyHash string        // Hex SHA-256 of the backend service key; empty disables issuance
	AuditKey       string        // Optional: HMAC key for audit entries

	Store        string // memory, redis or sqlite (default: memory)
	RedisURL     string // Redis connection URL (default: redis://localhost:6379/0)
	RedisPrefix  string // Key prefix in redis (default: guard)
	DatabaseFile string // SQLite database file (default: guard.db)

	General     ratelimit.Rule        // RATELIMIT_WINDOW / RATELIMIT_MAX_REQUESTS
	Trading     ratelimit.Rule        // RATELIMIT_TRADING_WINDOW / RATELIMIT_TRADING_MAX
	ReportLimit httpx.RateLimitConfig // RATELIMIT_REPORT_*
	TrustProxy  bool                  // Take client IPs from X-Forwarded-For (default: false)

	CSPReportURI string // Optional: report-uri added to the CSP

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 5m)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:    getEnvOrDefault("GUARD_ISSUER", "guard"),
		Audience:  splitList(getEnvOrDefault("GUARD_AUDIENCE", "guard-api")),
		Algorithm: getEnvOrDefault("GUARD_ALGORITHM", jwtx.AlgorithmEdDSA),

		AccessSecret:  os.Getenv("GUARD_ACCESS_SECRET"),
		RefreshSecret: os.Getenv("GUARD_REFRESH_SECRET"),
		KeyDir:        os.Getenv("GUARD_KEY_DIR"),
		MasterKey:     os.Getenv("GUARD_MASTER_KEY"),

		AccessTTL:      getEnvDurationOrDefault("GUARD_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL:     getEnvDurationOrDefault("GUARD_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),
		RotateRefresh:  getEnvBoolOrDefault("GUARD_ROTATE_REFRESH", false),
		ServiceKeyHash: strings.ToLower(os.Getenv("GUARD_SERVICE_KEY_SHA256")),
		AuditKey:       os.Getenv("GUARD_AUDIT_KEY"),

		Store:        strings.ToLower(getEnvOrDefault("GUARD_STORE", StoreMemory)),
		RedisURL:     getEnvOrDefault("GUARD_REDIS_URL", "redis://localhost:6379/0"),
		RedisPrefix:  getEnvOrDefault("GUARD_REDIS_PREFIX", "guard"),
		DatabaseFile: getEnvOrDefault("GUARD_DATABASE_FILE", "guard.db"),

		General: ratelimit.Rule{
			Window: getEnvDurationOrDefault("RATELIMIT_WINDOW", ratelimit.DefaultRule.Window),
			Max:    getEnvIntOrDefault("RATELIMIT_MAX_REQUESTS", ratelimit.DefaultRule.Max),
		},
		Trading: ratelimit.Rule{
			Window: getEnvDurationOrDefault("RATELIMIT_TRADING_WINDOW", ratelimit.TradingRule.Window),
			Max:    getEnvIntOrDefault("RATELIMIT_TRADING_MAX", ratelimit.TradingRule.Max),
		},
		ReportLimit: httpx.ParseRateLimitFromEnv("REPORT", httpx.ReportLimit),
		TrustProxy:  getEnvBoolOrDefault("GUARD_TRUST_PROXY", false),

		CSPReportURI: os.Getenv("CSP_REPORT_URI"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 5*time.Minute),
	}

	return cfg
}

// Validate rejects configurations that would start an insecure or broken
// service. Empty HS256 secrets pass; New generates them.
func (c Config) Validate() error {
	var errs []error

	if c.Issuer == "" {
		errs = append(errs, errors.New("GUARD_ISSUER must not be empty"))
	}
	if len(c.Audience) == 0 {
		errs = append(errs, errors.New("GUARD_AUDIENCE must name at least one audience"))
	}

	switch c.Algorithm {
	case jwtx.AlgorithmRS256, jwtx.AlgorithmES256, jwtx.AlgorithmEdDSA:
		if c.AccessSecret != "" || c.RefreshSecret != "" {
			errs = append(errs, fmt.Errorf("GUARD_*_SECRET is only used with HS256, not %s", c.Algorithm))
		}
	case jwtx.AlgorithmHS256:
		if c.AccessSecret != "" && len(c.AccessSecret) < jwtx.MinHMACSecretSize {
			errs = append(errs, fmt.Errorf("GUARD_ACCESS_SECRET must be at least %d bytes", jwtx.MinHMACSecretSize))
		}
		if c.RefreshSecret != "" && len(c.RefreshSecret) < jwtx.MinHMACSecretSize {
			errs = append(errs, fmt.Errorf("GUARD_REFRESH_SECRET must be at least %d bytes", jwtx.MinHMACSecretSize))
		}
		if c.AccessSecret != "" && cryptox.SecureCompare(c.AccessSecret, c.RefreshSecret) {
			errs = append(errs, errors.New("GUARD_ACCESS_SECRET and GUARD_REFRESH_SECRET must differ"))
		}
		if c.KeyDir != "" {
			errs = append(errs, errors.New("GUARD_KEY_DIR is not used with HS256"))
		}
	default:
		errs = append(errs, fmt.Errorf("GUARD_ALGORITHM %q is not one of RS256, ES256, EdDSA, HS256", c.Algorithm))
	}

	if c.MasterKey != "" {
		if key, err := hex.DecodeString(c.MasterKey); err != nil || len(key) != cryptox.SymmetricKeySize {
			errs = append(errs, fmt.Errorf("GUARD_MASTER_KEY must be %d hex encoded bytes", cryptox.SymmetricKeySize))
		}
		if c.KeyDir == "" {
			errs = append(errs, errors.New("GUARD_MASTER_KEY requires GUARD_KEY_DIR"))
		}
	}

	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 || c.AccessTTL >= c.RefreshTTL {
		errs = append(errs, fmt.Errorf("GUARD_ACCESS_TTL (%s) must be positive and shorter than GUARD_REFRESH_TTL (%s)", c.AccessTTL, c.RefreshTTL))
	}

	if c.ServiceKeyHash != "" {
		if raw, err := hex.DecodeString(c.ServiceKeyHash); err != nil || len(raw) != 32 {
			errs = append(errs, errors.New("GUARD_SERVICE_KEY_SHA256 must be a hex SHA-256 digest"))
		}
	}
	if c.AuditKey != "" && len(c.AuditKey) < jwtx.MinHMACSecretSize {
		errs = append(errs, fmt.Errorf("GUARD_AUDIT_KEY must be at least %d bytes", jwtx.MinHMACSecretSize))
	}

	switch c.Store {
	case StoreMemory, StoreSQLite:
	case StoreRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("GUARD_REDIS_URL is required for the redis store"))
		}
	default:
		errs = append(errs, fmt.Errorf("GUARD_STORE %q is not one of memory, redis, sqlite", c.Store))
	}

	for name, rule := range map[string]ratelimit.Rule{"RATELIMIT": c.General, "RATELIMIT_TRADING": c.Trading} {
		if rule.Window <= 0 || rule.Max <= 0 {
			errs = append(errs, fmt.Errorf("%s window and max must be positive", name))
		}
	}

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
