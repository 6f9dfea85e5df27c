// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer — it connects handlers, middleware, and
// routes. Think of it as the control centre that decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// WHY SEPARATE FROM main.go?
// Keeping server setup in its own package makes it:
// - Testable (we can create a test server without running main)
// - Reusable (multiple entry points could use the same server config)
// - Clean (main.go stays minimal — just "start the server")
//
// DEPENDENCY INJECTION FLOW:
// main.go reads config and creates the logger; New() then wires:
//
//	sqlite.DB → Users()/Admins() repositories
//	          → TokenService + PasswordService + CookieManager
//	          → AuthService → AuthHandler
//	          → Gate (page protection) mounted ahead of routing
//
// This is the "composition root" pattern — all dependencies are wired in one
// place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ridwan/agency-site/internal/auth"
	"github.com/ridwan/agency-site/internal/handler"
	"github.com/ridwan/agency-site/internal/middleware"
	sqliteRepo "github.com/ridwan/agency-site/internal/repository/sqlite"
	"github.com/ridwan/agency-site/internal/service"
)

// Config holds server configuration.
// Using a struct for config (instead of individual parameters) makes it easy
// to add new options without changing function signatures, and to load
// everything from the environment in one place (main.go).
type Config struct {
	Port      int
	StaticDir string // built site assets; served under / (may be empty)
	DBPath    string // path to the SQLite database file

	// Auth carries the JWT secret, token lifetimes, and the production flag.
	Auth auth.Config

	// GitHub OAuth credentials. Leave empty to disable "Sign in with GitHub".
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection (db). When the server shuts down,
// we must close it to flush pending writes and release the file lock. This is
// handled in Start() during graceful shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a new Server with the given config.
//
// IMPORT ALIAS:
// We import repository/sqlite as `sqliteRepo` to avoid confusion with the
// sqlite driver package. Import aliases are common in Go when package names
// would otherwise collide or be unclear.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close() // Clean up DB if route setup fails
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	POST   /api/auth/signup       → create visitor account (sets auth-token)
//	POST   /api/auth/login        → visitor login (sets auth-token)
//	POST   /api/auth/admin/login  → operator login (sets admin-token)
//	POST   /api/auth/logout       → clears both cookies
//	GET    /api/auth/me           → {authenticated, isAdmin, user}
//	GET    /api/auth/setup        → {needsSetup}
//	POST   /api/auth/setup        → create the first admin (first run only)
//	POST   /api/auth/password     → change own password        [auth required]
//	DELETE /api/auth/account      → delete own account         [auth required]
//	GET    /api/admin/session     → admin identity check       [admin required]
//	GET    /auth/github/login     → OAuth redirect
//	GET    /auth/github/callback  → OAuth completion
//	GET    /*                     → static site assets (if StaticDir set)
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added:
//  1. RequestID/RealIP — request tracing basics
//  2. Recoverer — catches panics, returns 500 instead of crashing
//  3. Logger — logs each request with timing info
//  4. Gate — page-navigation protection for /admin and /account prefixes;
//     runs BEFORE any route dispatch, so protected pages redirect to login
//     even for paths no handler claims
//
// The Identify middleware (cookie → session resolution, with DB re-fetch) is
// mounted per route group, not globally — static asset requests shouldn't pay
// for an identity lookup.
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.Auth)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()
	cookies := auth.NewCookieManager(tokens, s.config.Auth.Production)

	var github *auth.GitHubProvider
	if s.config.GitHubClientID != "" && s.config.GitHubClientSecret != "" {
		github = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
	}

	authService := service.NewAuthService(
		s.db.Users(),
		s.db.Admins(),
		tokens,
		passwords,
		s.logger,
	)
	authHandler := handler.NewAuthHandler(authService, cookies, github, s.logger)

	gate := auth.NewGate(tokens, auth.GateConfig{
		AdminPrefixes: []string{"/admin"},
		UserPrefixes:  []string{"/account"},
		AdminLoginURL: "/admin/login",
		UserLoginURL:  "/login",
	})

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID) // Adds X-Request-ID header
	s.router.Use(chimiddleware.RealIP)    // Extracts real IP from X-Forwarded-For
	s.router.Use(chimiddleware.Recoverer) // Recovers from panics, returns 500
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(gate.Middleware)

	// === Auth API ===
	s.router.Route("/api/auth", func(r chi.Router) {
		r.Use(auth.Identify(authService))

		r.Post("/signup", authHandler.HandleSignup)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/admin/login", authHandler.HandleAdminLogin)
		r.Post("/logout", authHandler.HandleLogout)
		r.Get("/me", authHandler.HandleMe)
		r.Get("/setup", authHandler.HandleSetupStatus)
		r.Post("/setup", authHandler.HandleSetup)

		r.Group(func(r chi.Router) {
			r.Use(auth.Require)
			r.Post("/password", authHandler.HandleChangePassword)
			r.Delete("/account", authHandler.HandleDeleteAccount)
		})
	})

	// === Back-office API ===
	// Content management routes (blog, jobs, ventures, services, team,
	// messages, media) mount under this group — everything here is behind
	// RequireAdmin, on top of the page-level gate.
	s.router.Route("/api/admin", func(r chi.Router) {
		r.Use(auth.Identify(authService))
		r.Use(auth.RequireAdmin)

		r.Get("/session", authHandler.HandleMe)
	})

	// === OAuth ===
	s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
	s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)

	// === Static Site ===
	// The built marketing site (and the back-office SPA under /admin) is
	// served as static files. The gate above has already vetted /admin and
	// /account navigation by the time a request reaches the file server.
	if s.config.StaticDir != "" {
		fileServer := http.FileServer(http.Dir(s.config.StaticDir))
		s.router.Handle("/*", fileServer)
	}

	return nil
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases the file lock)
//
// If we skip step 3, the database file might be left in an inconsistent
// state. The `defer s.db.Close()` ensures this happens even on panic.
func (s *Server) Start() error {
	defer s.db.Close()

	// Create the HTTP server with sensible timeouts
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to receive OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	serverErrors := make(chan error, 1)

	// Start the server in a goroutine (so it doesn't block)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.Bool("production", s.config.Auth.Production),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	// Block until we receive a signal or server error
	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give in-flight requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
