package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/nikhil/rosters/internal/logger"
	models "github.com/nikhil/rosters/internal/models/users"
)

type ContextKey string

const UserContextKey ContextKey = "currentUser"

// SessionCookie holds the signed token of a logged in browser.
const SessionCookie = "session"

// LoginURL is where anonymous users are sent by LoginRequired.
const LoginURL = "/auth/login"

// TokenParser turns a session token into a user id.
type TokenParser interface {
	ParseToken(token string) (uint, error)
}

// UserLoader fetches the current state of an account.
type UserLoader interface {
	GetUser(ctx context.Context, userID uint) (*models.User, error)
}

// AuthMiddleware loads the user behind the session cookie or a Bearer token
// and stores it in the request context. Requests without a valid session
// continue anonymously.
func AuthMiddleware(tokens TokenParser, users UserLoader, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := sessionToken(r)
			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := tokens.ParseToken(tokenStr)
			if err != nil {
				log.WithContext(r.Context()).Debug("Ignoring invalid session", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			// The flags must be current, so the user is read on every request
			user, err := users.GetUser(r.Context(), userID)
			if err != nil {
				log.WithContext(r.Context()).Warn("Session user unavailable", "user_id", userID, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// WithUser stores user in ctx.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// CurrentUser returns the logged in user, or nil for anonymous requests.
func CurrentUser(ctx context.Context) *models.User {
	user, _ := ctx.Value(UserContextKey).(*models.User)
	return user
}

// LoginRequired sends anonymous users to the login page, remembering where
// they wanted to go.
func LoginRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if CurrentUser(r.Context()) == nil {
			target := LoginURL + "?next=" + url.QueryEscape(r.URL.RequestURI())
			http.Redirect(w, r, target, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}
