package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/Raghu1611/freshmart-sub000/internal/domain"
)

type contextKey string

const (
	userContextKey  contextKey = "user"
	tokenContextKey contextKey = "token"
	requestIDKey    contextKey = "request_id"
)

// sessionResolver resolves a bearer token to the logged-in user.
type sessionResolver interface {
	Get(ctx context.Context, token string) (*domain.User, error)
	Touch(ctx context.Context, token string) error
}

// activityTracker receives the activity signal that resets the
// inactivity timers.
type activityTracker interface {
	OnActivity(token string)
}

type AuthMiddleware struct {
	sessions sessionResolver
	tracker  activityTracker
}

func NewAuthMiddleware(sessions sessionResolver, tracker activityTracker) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions, tracker: tracker}
}

// Authenticate resolves the bearer token and counts the request as
// user activity: the inactivity timers restart and the persisted
// session TTL slides forward.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}

		user, err := m.sessions.Get(r.Context(), token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired session")
			return
		}

		m.tracker.OnActivity(token)
		if err := m.sessions.Touch(r.Context(), token); err != nil {
			log.Printf("failed to touch session: %v", err)
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		ctx = context.WithValue(ctx, tokenContextKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminOnly gates the back-office routes. Must run after Authenticate.
func (m *AuthMiddleware) AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := userFromContext(r.Context())
		if user == nil || !user.IsAdmin() {
			respondError(w, http.StatusForbidden, "forbidden", "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestIDMiddleware adds a unique request ID to each request.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = fmt.Sprintf("req-%d", time.Now().UnixNano())
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

func userFromContext(ctx context.Context) *domain.User {
	if user, ok := ctx.Value(userContextKey).(*domain.User); ok {
		return user
	}
	return nil
}

func tokenFromContext(ctx context.Context) string {
	if token, ok := ctx.Value(tokenContextKey).(string); ok {
		return token
	}
	return ""
}
