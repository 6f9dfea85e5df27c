// Package main is the entry point for the agency site server.
//
// MAIN PACKAGE IN GO:
// Every Go program starts execution in the main() function of the "main"
// package. The main package should be kept minimal — its job is to:
// 1. Read configuration (from env vars / .env)
// 2. Create dependencies (logger, database connections, etc.)
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server,
// internal/handler, etc.). This separation makes the app testable and its
// components reusable.
//
// WHY cmd/server/?
// The cmd/ directory is a Go convention for executable entry points.
// A project might have multiple executables (e.g., cmd/server, cmd/migrate).
// Each gets its own directory with its own main.go.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/ridwan/agency-site/internal/auth"
	"github.com/ridwan/agency-site/internal/server"
)

func main() {
	// === 1. LOAD .env (OPTIONAL) ===
	// godotenv pulls KEY=VALUE pairs from a .env file into the process
	// environment. Deployments set real environment variables instead, so a
	// missing file is fine — only local dev uses one.
	if err := godotenv.Load(); err != nil {
		// Not an error worth stopping for; logged below once the logger exists.
		_ = err
	}

	// === 2. SET UP LOGGING ===
	// slog.New creates a structured logger. slog.NewTextHandler outputs
	// human-readable logs to the terminal.
	//
	// Log levels (from least to most severe): Debug → Info → Warn → Error
	// Production uses LevelInfo to reduce noise; everything else gets Debug.
	production := os.Getenv("APP_ENV") == "production"

	level := slog.LevelDebug
	if production {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	// === 3. READ CONFIGURATION ===
	// os.Getenv returns "" if the variable isn't set, so we check and provide
	// defaults where one makes sense. The JWT secret has no default on
	// purpose — a guessable secret means forgeable sessions.
	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("JWT_SECRET is required — generate one with: openssl rand -hex 32")
		os.Exit(1)
	}

	// === 4. DATABASE PATH ===
	// Default to "data/site.db" in the project root. DB_PATH overrides for
	// production deployments, e.g. DB_PATH=/var/lib/agency-site/prod.db
	dbPath := "data/site.db"
	if envDB := os.Getenv("DB_PATH"); envDB != "" {
		dbPath = envDB
	}

	// Ensure the data directory exists.
	// os.MkdirAll creates all parent directories if needed (like `mkdir -p`).
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", dbDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// === 5. STATIC SITE ASSETS ===
	// The built marketing site; optional — API-only deployments leave it off.
	staticDir := os.Getenv("STATIC_DIR")
	if staticDir != "" {
		staticDir, _ = filepath.Abs(staticDir)
	}

	// === 6. GITHUB OAUTH (OPTIONAL) ===
	// If the client id/secret are unset, "Sign in with GitHub" is disabled
	// and the server runs with credential auth only.
	githubClientID := os.Getenv("GITHUB_CLIENT_ID")
	githubClientSecret := os.Getenv("GITHUB_CLIENT_SECRET")
	githubCallbackURL := os.Getenv("GITHUB_CALLBACK_URL")
	if githubCallbackURL == "" {
		githubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", port)
	}
	if githubClientID == "" {
		logger.Warn("GITHUB_CLIENT_ID not set — GitHub sign-in is disabled")
	}

	// === 7. CREATE AND START THE SERVER ===
	cfg := server.Config{
		Port:      port,
		StaticDir: staticDir,
		DBPath:    dbPath,
		Auth: auth.Config{
			Secret:     jwtSecret,
			Production: production,
		},
		GitHubClientID:     githubClientID,
		GitHubClientSecret: githubClientSecret,
		GitHubCallbackURL:  githubCallbackURL,
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
