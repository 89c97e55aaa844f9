package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/studentrecords/internal/apperror"
	"github.com/keyxmakerx/studentrecords/internal/middleware"
	"github.com/keyxmakerx/studentrecords/internal/templates/pages"
)

// sessionCookieName is the HTTP cookie used to store the session token.
const sessionCookieName = "session_id"

// CookieOptions controls the session cookie attributes.
type CookieOptions struct {
	// Secure sets the Secure attribute. Enable when served over TLS.
	Secure bool

	// TTL becomes the cookie Max-Age. Zero issues a browser-session cookie.
	TTL time.Duration
}

// Handler handles HTTP requests for authentication (login, register, logout).
// Handlers are thin: they bind the request, call the service, and render the
// response. No business logic lives here.
type Handler struct {
	service AuthService
	cookie  CookieOptions
}

// NewHandler creates a new auth handler with the given service.
func NewHandler(service AuthService, cookie CookieOptions) *Handler {
	return &Handler{service: service, cookie: cookie}
}

// LoginForm renders the login page (GET /login).
func (h *Handler) LoginForm(c echo.Context) error {
	return middleware.Render(c, http.StatusOK, pages.LoginPage())
}

// Login processes the login form submission (POST /login). Failures answer
// with the plain-text reason; success sets the cookie and redirects home.
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	ctx := c.Request().Context()

	token, _, err := h.service.Login(ctx, LoginInput(req))
	if err != nil {
		return respondOutcome(c, err)
	}

	// The new token replaces whatever session the browser presented. A
	// failed attempt above leaves that session untouched.
	if old := getSessionToken(c); old != "" && old != token {
		if err := h.service.DestroySession(ctx, old); err != nil {
			slog.Warn("failed to destroy previous session on login", slog.Any("error", err))
		}
	}

	h.setSessionCookie(c, token)
	return c.Redirect(http.StatusSeeOther, "/")
}

// RegisterForm renders the registration page (GET /register).
func (h *Handler) RegisterForm(c echo.Context) error {
	return middleware.Render(c, http.StatusOK, pages.RegisterPage(pages.DefaultRegisterData()))
}

// Register processes the registration form submission (POST /register). No
// session is created; the user logs in afterwards.
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	if _, err := h.service.Register(c.Request().Context(), req.toInput()); err != nil {
		return respondOutcome(c, err)
	}

	return c.String(http.StatusOK, MsgRegistered)
}

// Logout destroys the session and clears the cookie (GET /logout). The
// redirect is only sent once the store has answered.
func (h *Handler) Logout(c echo.Context) error {
	if err := h.service.Logout(c.Request().Context(), getSessionToken(c)); err != nil {
		slog.Warn("failed to destroy session on logout", slog.Any("error", err))
	}

	clearSessionCookie(c)
	return c.Redirect(http.StatusSeeOther, "/login")
}

// respondOutcome writes user-facing failures (validation, bad credentials,
// conflicts) as a plain-text 200 so the form page shows the message.
// Server errors go to the global error handler.
func respondOutcome(c echo.Context, err error) error {
	appErr, ok := apperror.As(err)
	if !ok || appErr.Code >= http.StatusInternalServerError {
		return err
	}
	return c.String(http.StatusOK, appErr.Message)
}

// --- Cookie helpers ---

// getSessionToken reads the session token from the cookie.
func getSessionToken(c echo.Context) string {
	cookie, err := c.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	return cookie.Value
}

// setSessionCookie sets the session cookie on the response. The cookie is
// HttpOnly (JS can't read it) and SameSite=Lax.
func (h *Handler) setSessionCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.cookie.TTL / time.Second),
	})
}

// clearSessionCookie removes the session cookie by setting MaxAge to -1.
func clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
