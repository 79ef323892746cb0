package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"audix/internal/config"
	"audix/internal/db"
	"audix/internal/identity"
	"audix/internal/presence"
	"audix/internal/registry"
	"audix/internal/session"
	"audix/internal/signaling"
)

type Server struct {
	router    *chi.Mux
	config    *config.Config
	presence  *presence.Hub
	signaling *signaling.Hub
}

func NewServer(
	cfg *config.Config,
	database *db.DB,
	identityService *identity.Service,
	sessionService *session.Service,
) (*Server, error) {
	presenceHub := presence.NewHub()
	signalingHub := signaling.NewHub(presenceHub.Registry)

	ipResolver, err := NewClientIPResolver(cfg.Server.TrustedProxyCIDRs)
	if err != nil {
		return nil, err
	}

	accessHandler := NewAccessHandler(identityService)
	loginHandler := NewLoginHandler(identityService, sessionService)
	liveHandler := NewLiveHandler(presenceHub.Registry)
	wsHandler := NewWebSocketHandler(presenceHub, signalingHub, ipResolver)
	staticHandler := NewStaticHandler(sessionService)
	healthHandler := NewHealthHandler(database)

	accessLimiter := NewRateLimiter(10, time.Minute)
	setupLimiter := NewRateLimiter(10, time.Minute)
	loginLimiter := NewRateLimiter(20, time.Minute)
	wsUpgradeLimiter := NewRateLimiter(30, time.Minute)

	requireSession := RequireSession(sessionService)
	requireLiveToken := RequireLiveToken(cfg.Auth.LiveToken)

	r := chi.NewRouter()
	r.Use(slogRequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(securityHeadersMiddleware)

	r.Get("/", staticHandler.Index)
	r.Get("/login", staticHandler.Login)
	r.Get("/setup", staticHandler.Setup)
	r.Get("/app", staticHandler.App)
	r.Get("/health", healthHandler.Check)

	r.Route("/api", func(r chi.Router) {
		r.With(RateLimitMiddleware(accessLimiter, ipResolver)).Post("/request-access", accessHandler.RequestAccess)
		r.With(RateLimitMiddleware(setupLimiter, ipResolver)).Post("/setup-pin", accessHandler.SetupPin)
		r.Get("/setup-status", accessHandler.SetupStatus)
		r.With(RateLimitMiddleware(loginLimiter, ipResolver)).Post("/login", loginHandler.Login)
		r.Post("/logout", loginHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(requireSession)
			r.Get("/live", liveHandler.Live)
			r.Post("/report", liveHandler.Report)
		})

		r.Route("/internal", func(r chi.Router) {
			r.Use(requireLiveToken)
			r.Get("/live-snapshot", liveHandler.InternalSnapshot)
		})
	})

	r.Route("/ws", func(r chi.Router) {
		r.Use(requireSession)
		r.With(RateLimitMiddleware(wsUpgradeLimiter, ipResolver)).Get("/presence", wsHandler.Presence)
		r.With(RateLimitMiddleware(wsUpgradeLimiter, ipResolver)).Get("/signal", wsHandler.Signal)
	})

	return &Server{
		router:    r,
		config:    cfg,
		presence:  presenceHub,
		signaling: signalingHub,
	}, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Shutdown is a no-op: the presence/signaling hubs hold no resources beyond
// the connections themselves. Those are hijacked from the HTTP server, so
// http.Server.Shutdown neither closes nor waits for them; they end when
// the process exits.
func (s *Server) Shutdown() {}

const contentSecurityPolicy = "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self'; connect-src 'self'; img-src 'self' data:;"

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", contentSecurityPolicy)
		next.ServeHTTP(w, r)
	})
}

func slogRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"remote", r.RemoteAddr,
		)
	})
}
