package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/studentrecords/internal/middleware"
	"github.com/keyxmakerx/studentrecords/internal/plugins/auth"
	"github.com/keyxmakerx/studentrecords/internal/plugins/students"
	"github.com/keyxmakerx/studentrecords/internal/templates/layouts"
)

// RegisterRoutes sets up all application routes. It registers public routes
// directly and delegates to each plugin's route registration function.
//
// This is the single place where all routes are aggregated. When a new
// plugin is added, its routes are registered here.
func (a *App) RegisterRoutes() {
	e := a.Echo

	// Layout data (signed-in user, active path) comes from the auth guard.
	middleware.LayoutInjector = injectLayout

	// --- Public Routes (no auth required) ---

	// Health check endpoint for container health monitoring.
	e.GET("/healthz", a.healthz)

	// Prometheus scrape endpoint.
	e.GET("/metrics", echo.WrapHandler(a.Metrics.Handler()))

	// --- Plugin Routes ---

	// auth plugin (public: login, register, logout)
	authRepo := auth.NewUserRepository(a.DB)
	authService := auth.NewAuthService(authRepo, a.Sessions, auth.NewBcryptHasher(), auth.Options{
		GenericErrors: a.Config.Auth.GenericAuthErrors,
		Metrics:       a.Metrics,
	})
	authHandler := auth.NewHandler(authService, auth.CookieOptions{
		Secure: a.Config.Auth.CookieSecure,
		TTL:    a.Config.Auth.SessionTTL,
	})
	auth.RegisterRoutes(e, authHandler)

	// students plugin (guarded roster at /)
	studentRepo := students.NewStudentRepository(a.DB)
	studentService := students.NewStudentService(studentRepo)
	students.RegisterRoutes(e, students.NewHandler(studentService), authService)
}

// healthz pings every backing service and reports 503 on the first failure.
func (a *App) healthz(c echo.Context) error {
	ctx := c.Request().Context()
	for _, check := range a.checks {
		if err := check.ping(ctx); err != nil {
			slog.Warn("health check failed",
				slog.String("dependency", check.name),
				slog.Any("error", err),
			)
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// injectLayout copies the auth session into the render context.
func injectLayout(c echo.Context, ctx context.Context) context.Context {
	if sess := auth.GetSession(c); sess != nil {
		ctx = layouts.SetIsAuthenticated(ctx, true)
		ctx = layouts.SetUsername(ctx, sess.Username)
	}
	return layouts.SetActivePath(ctx, c.Request().URL.Path)
}
