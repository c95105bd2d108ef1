// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api wires the HTTP router, the middleware chain and the console
handlers into a runnable [http.Server].

Architecture:

  - This package is the composition root for the HTTP transport (chi router).
  - /api/v1 and page requests run behind the tab session middleware; the mock
    authentication API under /mock-api does not, exactly like the platform it
    stands in for.
  - Only this package and cmd/console import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/ucenter/internal/devauth"
	"github.com/taibuivan/ucenter/internal/gate"
	"github.com/taibuivan/ucenter/internal/platform/config"
	"github.com/taibuivan/ucenter/internal/platform/constants"
	"github.com/taibuivan/ucenter/internal/platform/middleware"
	"github.com/taibuivan/ucenter/internal/session"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups the console's HTTP handler sets and the per-tab state they
// run against.
type Handlers struct {
	// Liveness is the /health handler; always 200 while the process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler; 200 when every dependency answers.
	Readiness http.HandlerFunc

	// Sessions resolves the tab cookie to its store.
	Sessions *session.Manager

	// Routers holds each tab's guarded router.
	Routers *gate.Registry

	Session    *session.Handler
	Navigation *gate.Handler

	// DevAuth is mounted under /mock-api when set.
	DevAuth *devauth.Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(ctx context.Context, cfg *config.Config, log *slog.Logger, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.NewRateLimiter(ctx, constants.DefaultRateLimitRPS, constants.DefaultRateLimitBurst).Handler)
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.CORS(cfg, cfg.ExtraOrigins))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	// Unauthenticated health probes for container orchestration.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)

	// # Mock Platform
	if h.DevAuth != nil {
		r.Mount("/mock-api", h.DevAuth.Routes())
		log.Warn("devauth_mounted", slog.String("prefix", "/mock-api"))
	}

	cookie := session.CookieConfig{Name: cfg.SessionCookieName, Secure: cfg.IsProduction()}

	// # Application API
	r.Route("/api/v1", func(api chi.Router) {
		api.Use(session.Middleware(h.Sessions, cookie))
		api.Use(h.Routers.Middleware)

		api.Mount("/session", h.Session.Routes())
		api.Mount("/navigation", h.Navigation.Routes())
	})

	// # Pages
	// Everything else is the SPA, guarded like the client-side router.
	r.Group(func(pages chi.Router) {
		pages.Use(session.Middleware(h.Sessions, cookie))
		pages.Use(gate.PageGuard(h.Routers))

		pages.Handle("/*", spaHandler(cfg.StaticDir))
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// Handler exposes the root router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
