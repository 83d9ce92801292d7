package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	wsadapter "chronoguess/adapters/websocket"
	"chronoguess/engine"
	"chronoguess/leaderboard"
	"chronoguess/realtime"
)

// Options configures the HTTP API surface.
type Options struct {
	// PathPrefix, if set, is prepended to all routes (e.g., "/api").
	PathPrefix string
	// AllowCORSOrigin, if non-empty, enables basic CORS with the given origin (use "*" for any).
	AllowCORSOrigin string
	// APIKeys, if non-empty, enables static API key auth via Authorization: Bearer or X-API-Key.
	APIKeys []string
	// RateLimitEnabled toggles rate limiting.
	RateLimitEnabled bool
	// RateLimitRPM is the allowed requests per minute per client key.
	RateLimitRPM int
	// RateLimitBurst defines burst capacity.
	RateLimitBurst int
	// RateLimitCleanup drops idle client limiters after this long.
	RateLimitCleanup time.Duration
	// Leaderboard backs GET /leaderboard when set.
	Leaderboard leaderboard.Board
	// HealthChecks are run by GET /healthz, keyed by component name.
	HealthChecks map[string]func(context.Context) error
	Logger       *slog.Logger
}

type api struct {
	svc    *engine.GameService
	board  leaderboard.Board
	checks map[string]func(context.Context) error
	logger *slog.Logger
}

// NewMux builds an http.Handler exposing the game REST API and WebSocket stream.
// Round numbers in paths are 1-based.
// Routes:
//   - POST   {prefix}/games
//   - GET    {prefix}/games/{sessionID}
//   - DELETE {prefix}/games/{sessionID}
//   - POST   {prefix}/games/{sessionID}/rounds/{roundNumber}/guess
//   - POST   {prefix}/games/{sessionID}/rounds/{roundNumber}/hints/{hintType}
//   - GET    {prefix}/games/{sessionID}/rounds/{roundNumber}/result
//   - POST   {prefix}/games/{sessionID}/advance
//   - POST   {prefix}/games/{sessionID}/complete
//   - GET    {prefix}/users/{userID}/metrics?guest=true
//   - GET    {prefix}/users/{userID}/badges?guest=true
//   - GET    {prefix}/leaderboard?n=10
//   - GET    {prefix}/healthz
//   - WS     {prefix}/ws?user=&session=
func NewMux(svc *engine.GameService, hub *realtime.Hub, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &api{svc: svc, board: opts.Leaderboard, checks: opts.HealthChecks, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(newStructuredLogger(logger))
	r.Use(middleware.Recoverer)
	if opts.AllowCORSOrigin != "" {
		r.Use(withCORS(opts.AllowCORSOrigin))
	}
	if opts.RateLimitEnabled && opts.RateLimitRPM > 0 && opts.RateLimitBurst > 0 {
		r.Use(withRateLimit(newRateLimiter(opts.RateLimitRPM, opts.RateLimitBurst, opts.RateLimitCleanup)))
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", nil)
	})

	routes := func(r chi.Router) {
		r.Get("/healthz", a.healthCheck)

		r.Group(func(r chi.Router) {
			if len(opts.APIKeys) > 0 {
				r.Use(withAPIKeyAuth(opts.APIKeys))
			}
			if hub != nil {
				r.Handle("/ws", wsadapter.Handler(hub, logger))
			}
			r.Post("/games", a.startGame)
			r.Route("/games/{sessionID}", func(r chi.Router) {
				r.Get("/", a.getGame)
				r.Delete("/", a.resetGame)
				r.Post("/advance", a.advance)
				r.Post("/complete", a.complete)
				r.Route("/rounds/{roundNumber}", func(r chi.Router) {
					r.Post("/guess", a.submitGuess)
					r.Post("/hints/{hintType}", a.useHint)
					r.Get("/result", a.roundResult)
				})
			})
			r.Get("/users/{userID}/metrics", a.userMetrics)
			r.Get("/users/{userID}/badges", a.userBadges)
			r.Get("/leaderboard", a.leaderboard)
		})
	}

	prefix := strings.TrimSuffix(opts.PathPrefix, "/")
	if prefix == "" {
		routes(r)
	} else {
		r.Route(prefix, routes)
	}
	return r
}

// healthCheck runs the configured component checks.
func (a *api) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true
	for name, check := range a.checks {
		if err := check(ctx); err != nil {
			checks[name] = "failed"
			healthy = false
			a.logger.Warn("health check failed", "component", name, "error", err)
			continue
		}
		checks[name] = "ok"
	}
	status := map[string]any{"status": "healthy", "checks": checks}
	code := http.StatusOK
	if !healthy {
		status["status"] = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	writeJSONStatus(w, code, status)
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string, details any) {
	writeJSONStatus(w, status, apiError{Code: code, Message: msg, Details: details})
}

func newStructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logger.Info("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration_ms", time.Since(start).Milliseconds(),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// withCORS applies a minimal CORS policy and answers preflight requests.
func withCORS(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-API-Key")
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// withAPIKeyAuth enforces a shared API key list.
func withAPIKeyAuth(apiKeys []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		k = strings.TrimSpace(k)
		if k != "" {
			allowed[k] = struct{}{}
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := extractAPIKey(r)
			if key == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing API key", nil)
				return
			}
			if _, ok := allowed[key]; !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid API key", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// withRateLimit rejects clients that exceed their token bucket.
func withRateLimit(limiter *rateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.allow(clientKey(r)) {
				writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractAPIKey reads the bearer token, the X-API-Key header, or the api_key
// query parameter (browsers cannot set headers on WebSocket upgrades).
func extractAPIKey(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	return r.URL.Query().Get("api_key")
}

// clientKey uses API key if present, otherwise remote IP.
func clientKey(r *http.Request) string {
	if key := extractAPIKey(r); key != "" {
		return key
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
