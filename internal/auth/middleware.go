package auth

import (
	"context"
	"net/http"
	"net/url"
)

// Context keys for auth data
type contextKey string

const userKey contextKey = "user"

// LoginPath is the login entry point unauthenticated browsers are sent to.
const LoginPath = "/auth/login"

// Middleware provides authentication middleware for HTTP handlers.
type Middleware struct {
	sessionService *SessionService
	userService    *UserService
}

// NewMiddleware creates a new auth middleware.
func NewMiddleware(sessionService *SessionService, userService *UserService) *Middleware {
	return &Middleware{
		sessionService: sessionService,
		userService:    userService,
	}
}

// resolveUser returns the authenticated user for the request, or nil.
func (m *Middleware) resolveUser(r *http.Request) *User {
	sessionID, err := GetFromRequest(r)
	if err != nil {
		return nil
	}
	userID, err := m.sessionService.Validate(r.Context(), sessionID)
	if err != nil {
		return nil
	}
	user, err := m.userService.GetByID(r.Context(), userID)
	if err != nil {
		return nil
	}
	return user
}

// RequireAuthWithRedirect is middleware that requires a valid session.
// Unauthenticated browsers are redirected to the login page with a next
// parameter carrying the originally requested path and query, so login can
// return the user to where they were headed.
func (m *Middleware) RequireAuthWithRedirect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := m.resolveUser(r)
		if user == nil {
			http.Redirect(w, r, LoginRedirectURL(r), http.StatusFound)
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth is middleware that requires a valid session.
// Returns 401 Unauthorized if no valid session is present; intended for
// non-page endpoints where a redirect makes no sense.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := m.resolveUser(r)
		if user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuth is middleware that adds user info to context if present.
// Does not require authentication - continues with or without a session.
func (m *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := m.resolveUser(r)
		if user == nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoginRedirectURL builds the login URL with next set to the request's
// original path and query string.
func LoginRedirectURL(r *http.Request) string {
	target := r.URL.Path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	return LoginPath + "?next=" + url.QueryEscape(target)
}

// GetUser retrieves the authenticated user from the request context.
// Returns nil if no user is authenticated.
func GetUser(ctx context.Context) *User {
	user, _ := ctx.Value(userKey).(*User)
	return user
}

// IsAuthenticated checks if the context has an authenticated user.
func IsAuthenticated(ctx context.Context) bool {
	return GetUser(ctx) != nil
}

// WithUser returns a context carrying the given user. Intended for tests.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userKey, user)
}
