package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/eventdesk/eventdesk/internal/auth"
	"github.com/eventdesk/eventdesk/internal/models"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const userKey contextKey = "user"

// UserResolver looks up a user by id. Returns (nil, nil) when no such user exists.
type UserResolver interface {
	GetByID(ctx context.Context, id int) (*models.User, error)
}

// UserFrom returns the authenticated user attached by RequireAuth, or nil.
func UserFrom(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}

// WithUser returns a context carrying user as the authenticated identity.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// RequireAuth guards protected routes. It extracts the bearer token from the
// Authorization header, verifies it, resolves the subject user, and attaches
// the user to the request context. Every failure short-circuits with the same
// generic 401 body; the specific reason (missing header, malformed token, bad
// signature, expired, deleted user) goes to the log only.
func RequireAuth(tokens *auth.TokenService, users UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				rejectUnauthorized(w, r, "missing credentials", nil)
				return
			}
			tokenStr := strings.TrimPrefix(header, "Bearer ")

			userID, err := tokens.Verify(tokenStr)
			if err != nil {
				rejectUnauthorized(w, r, "token rejected", err)
				return
			}

			user, err := users.GetByID(r.Context(), userID)
			if err != nil {
				slog.Error("auth: resolve user",
					"request_id", chimw.GetReqID(r.Context()),
					"user_id", userID,
					"error", err)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
				return
			}
			if user == nil || !user.IsActive {
				// Valid token for a user that no longer exists (or was deactivated).
				rejectUnauthorized(w, r, "stale identity", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func rejectUnauthorized(w http.ResponseWriter, r *http.Request, reason string, err error) {
	slog.Warn("auth: request rejected",
		"request_id", chimw.GetReqID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"reason", reason,
		"error", err)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "invalid authentication credentials"})
}
