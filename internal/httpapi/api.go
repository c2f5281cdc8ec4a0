// Package httpapi is the HTTP surface of the dashboard: the public auth
// endpoints, the access gate, and the protected project and work-log routes.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"net/netip"

	"opsboard.io/api/spec"
	"opsboard.io/internal/auth"
	"opsboard.io/internal/dashboard"
	"opsboard.io/internal/obs"
)

// ReadinessChecker reports whether dependencies can serve traffic.
type ReadinessChecker interface {
	Check(ctx context.Context) error
}

// ReadyProbe pings the database; a nil DB is always ready.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// AuthService is the registration and login core.
type AuthService interface {
	Authenticator
	Register(ctx context.Context, in auth.RegisterInput) (auth.Result, error)
	Login(ctx context.Context, email, password string) (auth.Result, error)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	auth       AuthService
	board      dashboard.Service
	readiness  ReadinessChecker
	rateBurst  int
	ratePerSec float64
	proxies    []netip.Prefix
	maxBody    int64
}

// Option configures API.
type Option func(*API)

// WithReadiness sets the probe behind /readyz.
func WithReadiness(rc ReadinessChecker) Option {
	return func(a *API) {
		if rc != nil {
			a.readiness = rc
		}
	}
}

// WithRateLimit sets the per-client token bucket for /auth endpoints.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(a *API) {
		if perSecond > 0 && burst > 0 {
			a.ratePerSec = perSecond
			a.rateBurst = burst
		}
	}
}

// WithTrustedProxies lists the reverse proxy networks whose X-Forwarded-For
// entries identify the client for rate limiting.
func WithTrustedProxies(prefixes []netip.Prefix) Option {
	return func(a *API) {
		a.proxies = prefixes
	}
}

// WithMaxBody caps request body size.
func WithMaxBody(n int64) Option {
	return func(a *API) {
		if n > 0 {
			a.maxBody = n
		}
	}
}

// New wires routes for the auth core and the dashboard resources.
func New(authSvc AuthService, board dashboard.Service, opts ...Option) *API {
	a := &API{
		mux:        http.NewServeMux(),
		auth:       authSvc,
		board:      board,
		readiness:  ReadyProbe{},
		rateBurst:  10,
		ratePerSec: 5,
		maxBody:    defaultMaxBody,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.mux.HandleFunc("/health", a.Health)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/openapi.yaml", a.OpenAPISpec)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.Handle("/auth/register", RateLimit(http.HandlerFunc(a.handleRegister), a.rateBurst, a.ratePerSec, a.proxies))
	a.mux.Handle("/auth/login", RateLimit(http.HandlerFunc(a.handleLogin), a.rateBurst, a.ratePerSec, a.proxies))

	a.mux.Handle("/auth/me", a.protect(a.handleMe))
	a.mux.Handle("/projects", a.protect(a.handleProjects))
	a.mux.Handle("/work-logs", a.protect(a.handleWorkLogs))
	a.mux.Handle("/manager/overview", a.protect(a.handleOverview))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "Not found.")
	})
	return a
}

func (a *API) protect(h http.HandlerFunc) http.Handler {
	return RequireAuth(a.auth, h)
}

// Handler returns the full middleware chain around the router.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = MaxBodyBytes(h, a.maxBody)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = obs.Instrument(h)
	h = LoggingJSON(h)
	return RequestID(h)
}

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readiness.Check(r.Context()); err != nil {
		obs.SetReady(false)
		obs.Warn("readiness check failed", map[string]any{
			"request_id": RequestIDFromContext(r.Context()),
			"error":      err.Error(),
		})
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (a *API) OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(spec.OpenAPI)
}
