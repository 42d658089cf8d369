package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"warbler/internal/httputil"
	"warbler/internal/session"
)

type contextKey string

// UserIDKey is the context key holding the authenticated user's id.
const UserIDKey contextKey = "user_id"

// SessionResolver resolves a session cookie value to a user id. Satisfied by
// session.Store; an interface so tests can stub it without Redis.
type SessionResolver interface {
	Get(ctx context.Context, sessionID string) (int64, error)
}

// Auth resolves the acting user from the session cookie or, failing that, a
// Bearer access token. RequireAuth refuses anonymous requests; OptionalAuth
// lets them through with no user in context.
type Auth struct {
	sessions  SessionResolver
	jwtSecret string
}

func NewAuth(sessions SessionResolver, jwtSecret string) *Auth {
	return &Auth{sessions: sessions, jwtSecret: jwtSecret}
}

// RequireAuth rejects requests with no resolvable user. The refusal is a 200
// with the uniform "Access unauthorized." body, never an error page.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := a.resolve(r)
		if !ok {
			httputil.WriteAccessUnauthorized(w)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuth attaches the user id when a valid session or token is present
// and passes the request through either way.
func (a *Auth) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID, ok := a.resolve(r); ok {
			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

// resolve tries the session cookie first, then the Authorization header.
func (a *Auth) resolve(r *http.Request) (int64, bool) {
	if cookie, err := r.Cookie(session.CookieName); err == nil && cookie.Value != "" {
		if userID, err := a.sessions.Get(r.Context(), cookie.Value); err == nil {
			return userID, true
		}
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if userID, err := a.parseAccessToken(tokenStr); err == nil {
			return userID, true
		}
	}

	return 0, false
}

func (a *Auth) parseAccessToken(tokenStr string) (int64, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(a.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, jwt.ErrTokenInvalidClaims
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, jwt.ErrTokenInvalidClaims
	}

	// JSON numbers decode as float64
	userIDFloat, ok := claims["user_id"].(float64)
	if !ok {
		return 0, jwt.ErrTokenInvalidClaims
	}
	return int64(userIDFloat), nil
}

// GetUserIDFromContext returns the authenticated user's id, if any.
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	return userID, ok
}
