package http

import (
	"log/slog"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/aussiebroadwan/guard/api/guard" // Swagger docs
	"github.com/aussiebroadwan/guard/internal/guard/service"
	"github.com/aussiebroadwan/guard/internal/guard/store"
	"github.com/aussiebroadwan/guard/pkg/csp"
	"github.com/aussiebroadwan/guard/pkg/httpx"
	"github.com/aussiebroadwan/guard/pkg/ratelimit"
	"github.com/aussiebroadwan/guard/pkg/slogx"
)

// RouterConfig holds the dependencies of the HTTP handlers.
type RouterConfig struct {
	TokenService *service.TokenService
	Limiter      *ratelimit.Limiter
	Store        store.Store

	// CSP is the template every response's policy is regenerated from.
	CSP *csp.Policy

	// ServiceKeySHA256 is the hex SHA-256 of the key trusted backends send
	// in X-API-Key. Empty disables issuance and refresh.
	ServiceKeySHA256 string

	// TrustProxy takes the client address from X-Forwarded-For.
	TrustProxy bool

	// ReportLimit throttles the CSP report sink per client.
	ReportLimit httpx.RateLimitConfig

	BuildVersion string
	Logger       *slog.Logger
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	cfg       RouterConfig
	clientIP  httpx.KeyExtractor
	startTime time.Time
}

func NewRouter(cfg RouterConfig) *Router {
	if cfg.Logger == nil {
		cfg.Logger = slogx.Discard()
	}
	if cfg.ReportLimit == (httpx.RateLimitConfig{}) {
		cfg.ReportLimit = httpx.ReportLimit
	}

	r := &Router{
		Mux:       http.NewServeMux(),
		cfg:       cfg,
		clientIP:  httpx.IPKeyExtractor,
		startTime: time.Now(),
	}
	if cfg.TrustProxy {
		r.clientIP = httpx.ForwardedIPKeyExtractor
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(cfg.Logger),
		httpx.SecurityHeaders(cfg.CSP),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerTokens()
	r.registerSession()
	r.registerReports()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title						Guard Security Service API
//	@version					0.1.0
//	@description				Issues, refreshes and revokes JWT token pairs, publishes verification keys and collects CSP violation reports.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/guard
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
//
//	@securityDefinitions.apikey	ServiceKey
//	@in							header
//	@name						X-API-Key
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) limited() httpx.Middleware {
	return httpx.LimitRequests(r.cfg.Limiter, r.clientIP)
}

func (r *Router) registerTokens() {
	h := &TokenHandler{TokenService: r.cfg.TokenService}
	serviceAuth := requireServiceKey(r.cfg.ServiceKeySHA256)

	r.Mux.Handle("POST /v1/token",
		httpx.Chain(http.HandlerFunc(h.HandleIssue), r.limited(), serviceAuth),
	)
	r.Mux.Handle("POST /v1/token/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh), r.limited(), serviceAuth),
	)

	// Public: logout must work for any holder of a token.
	r.Mux.Handle("POST /v1/token/revoke",
		httpx.Chain(http.HandlerFunc(h.HandleRevoke), r.limited()),
	)
}

func (r *Router) registerSession() {
	h := &SessionHandler{TokenService: r.cfg.TokenService}
	authn := httpx.AuthnMiddleware(accessAuthenticator(r.cfg.TokenService))

	r.Mux.Handle("GET /v1/session",
		httpx.Chain(http.HandlerFunc(h.HandleGet), r.limited(), authn),
	)
	r.Mux.Handle("DELETE /v1/session",
		httpx.Chain(http.HandlerFunc(h.HandleDelete), r.limited(), authn),
	)
}

func (r *Router) registerReports() {
	// Browsers post reports without credentials; the bucket keeps a noisy
	// page from flooding the logs. The sink always answers 204, so excess
	// reports are dropped rather than refused.
	limit := r.cfg.ReportLimit
	limit.DropStatus = http.StatusNoContent
	r.Mux.Handle("POST /v1/csp-report",
		httpx.Chain(CSPReportHandler(),
			httpx.RateLimitMiddleware(limit, r.clientIP),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.cfg.TokenService.AccessKeys()), r.limited()),
	)

	// Probes are not rate limited; orchestrators poll them constantly.
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.cfg.BuildVersion))
	r.Mux.Handle("GET /readyz",
		ReadyzHandler(r.startTime, r.cfg.BuildVersion, r.cfg.Store, r.cfg.TokenService.AccessKeys()),
	)
}
