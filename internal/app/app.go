// Package app is the application bootstrap and dependency injection root.
// It creates and holds all shared infrastructure (DB pool, session store,
// metrics, Echo instance) and wires together the plugins.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/studentrecords/internal/apperror"
	"github.com/keyxmakerx/studentrecords/internal/config"
	"github.com/keyxmakerx/studentrecords/internal/database"
	"github.com/keyxmakerx/studentrecords/internal/metrics"
	"github.com/keyxmakerx/studentrecords/internal/middleware"
	"github.com/keyxmakerx/studentrecords/internal/plugins/auth"
)

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go and used to register all routes.
type App struct {
	// Config holds the loaded application configuration.
	Config *config.Config

	// DB is the MariaDB connection pool shared by all plugins.
	DB *sql.DB

	// Redis is set only when sessions live in Redis.
	Redis *redis.Client

	// Sessions is the session store handed to the auth service.
	Sessions auth.SessionStore

	// Metrics is the Prometheus registry served at /metrics.
	Metrics *metrics.Metrics

	// Echo is the HTTP server instance.
	Echo *echo.Echo

	// checks are pinged by /healthz, in order.
	checks []healthCheck
}

// healthCheck is one dependency probed by /healthz.
type healthCheck struct {
	name string
	ping func(ctx context.Context) error
}

// New creates a new App instance with the given dependencies and configures
// the Echo server with global middleware and error handling. rdb may be nil.
func New(cfg *config.Config, db *sql.DB, rdb *redis.Client, sessions auth.SessionStore, m *metrics.Metrics) (*App, error) {
	e := echo.New()

	// Disable Echo's default banner and startup message -- we log our own.
	e.HideBanner = true
	e.HidePort = true

	// Trust X-Forwarded-For only from private ranges so c.RealIP() in the
	// request log reports the client, not the reverse proxy.
	if err := middleware.TrustedProxies(e, middleware.DefaultTrustedProxies); err != nil {
		return nil, fmt.Errorf("configuring trusted proxies: %w", err)
	}

	app := &App{
		Config:   cfg,
		DB:       db,
		Redis:    rdb,
		Sessions: sessions,
		Metrics:  m,
		Echo:     e,
	}

	if db != nil {
		app.checks = append(app.checks, healthCheck{"mariadb", func(ctx context.Context) error {
			return database.Ping(ctx, db)
		}})
	}
	if rdb != nil {
		app.checks = append(app.checks, healthCheck{"redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	// Register global middleware in order of execution.
	app.setupMiddleware()

	// Register the custom error handler that maps AppErrors to HTTP responses.
	e.HTTPErrorHandler = app.errorHandler

	// Serve static files (CSS).
	e.Static("/static", "static")

	return app, nil
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: outermost (recovery) runs first.
func (a *App) setupMiddleware() {
	// Panic recovery -- must be outermost to catch panics from all other middleware.
	a.Echo.Use(middleware.Recovery())

	// Request logging -- log every request with method, path, status, latency.
	a.Echo.Use(middleware.RequestLogger())

	// Security headers -- CSP, X-Frame-Options, X-Content-Type-Options, etc.
	// HSTS only when cookies are marked Secure, i.e. served over TLS.
	a.Echo.Use(middleware.SecurityHeaders(a.Config.Auth.CookieSecure))
}

// errorHandler is the custom Echo error handler. It maps domain errors
// (AppError) to a plain-text response carrying the safe message. Anything
// unrecognised becomes a 500 "Server error" and is logged.
func (a *App) errorHandler(err error, c echo.Context) {
	// Don't double-write if response is already committed.
	if c.Response().Committed {
		return
	}

	code := apperror.SafeCode(err)
	message := apperror.SafeMessage(err)

	// Check if it's our domain error type.
	if appErr, ok := apperror.As(err); ok {
		// Log internal errors with the underlying cause.
		if appErr.Internal != nil {
			slog.Error("internal error",
				slog.String("type", appErr.Type),
				slog.Any("internal", appErr.Internal),
				slog.String("path", c.Request().URL.Path),
				slog.String("request_id", middleware.GetRequestID(c)),
			)
		}
	} else {
		// Check for Echo's built-in HTTP errors (e.g., 404 from router).
		var echoErr *echo.HTTPError
		if errors.As(err, &echoErr) {
			code = echoErr.Code
			if msg, ok := echoErr.Message.(string); ok {
				message = msg
			} else {
				message = http.StatusText(code)
			}
		} else {
			// Truly unexpected error -- log it.
			slog.Error("unhandled error",
				slog.Any("error", err),
				slog.String("path", c.Request().URL.Path),
				slog.String("request_id", middleware.GetRequestID(c)),
			)
		}
	}

	if code >= http.StatusInternalServerError {
		message = apperror.InternalMessage
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.String(code, message)
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting student records server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
		slog.String("session_store", a.Config.Auth.SessionStore),
	)
	return a.Echo.Start(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}
