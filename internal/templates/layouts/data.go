// data.go provides typed context helpers for passing layout data from
// middleware to view components. Only simple types are stored so this
// package never imports plugin types.
//
// Data flow: Auth guard → Echo Context → LayoutInjector → Go Context → view
package layouts

import "context"

// ctxKey is a private type for context keys to prevent collisions.
type ctxKey string

const (
	keyIsAuthenticated ctxKey = "layout_is_authenticated"
	keyUsername        ctxKey = "layout_username"
	keyActivePath      ctxKey = "layout_active_path"
)

// Data is the snapshot of layout values a page template receives.
type Data struct {
	IsAuthenticated bool
	Username        string
	ActivePath      string
}

// FromContext collects all layout values from ctx.
func FromContext(ctx context.Context) Data {
	return Data{
		IsAuthenticated: IsAuthenticated(ctx),
		Username:        GetUsername(ctx),
		ActivePath:      GetActivePath(ctx),
	}
}

// --- Setters (called by the layout injector in app/routes.go) ---

// SetIsAuthenticated marks whether the current request has a valid session.
func SetIsAuthenticated(ctx context.Context, authed bool) context.Context {
	return context.WithValue(ctx, keyIsAuthenticated, authed)
}

// SetUsername stores the signed-in username.
func SetUsername(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, keyUsername, name)
}

// SetActivePath stores the current request path for nav highlighting.
func SetActivePath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, keyActivePath, path)
}

// --- Getters ---

// IsAuthenticated returns true if the current request has a valid session.
func IsAuthenticated(ctx context.Context) bool {
	authed, _ := ctx.Value(keyIsAuthenticated).(bool)
	return authed
}

// GetUsername returns the signed-in username, or "".
func GetUsername(ctx context.Context) string {
	name, _ := ctx.Value(keyUsername).(string)
	return name
}

// GetActivePath returns the current request path.
func GetActivePath(ctx context.Context) string {
	path, _ := ctx.Value(keyActivePath).(string)
	return path
}
