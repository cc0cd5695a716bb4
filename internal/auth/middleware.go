package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/sakif/gameratings/internal/apperror"
	"github.com/sakif/gameratings/internal/model"
)

// Messages returned by RequireAuth. Clients match on them, keep them stable.
const (
	MsgNoToken      = "Unauthorized: No valid token provided"
	MsgInvalidToken = "Unauthorized: Invalid token"
	MsgUserNotFound = "Unauthorized: User not found"
)

// contextKey is an unexported type used for context keys in this package,
// so no other package can read or shadow the identity.
type contextKey string

const userKey contextKey = "user"

// UserLookup loads the account named by a verified token.
// repository.UserRepository satisfies it.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// RequireAuth is the authorization gate for protected routes.
//
// It reads the JWT from the "jwt" cookie, verifies it, loads the user and
// stores it in the request context. Each way of failing gets its own 401
// message:
//
//	no cookie / empty cookie  → MsgNoToken
//	Verify fails              → MsgInvalidToken
//	user no longer exists     → MsgUserNotFound
//
// A store failure during the lookup is a 500, not a 401.
func RequireAuth(tokens *TokenService, users UserLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", MsgNoToken)
				return
			}

			userID, err := tokens.Verify(cookie.Value)
			if err != nil {
				logger.Debug("rejected token", slog.String("error", err.Error()))
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", MsgInvalidToken)
				return
			}

			user, err := users.GetByID(r.Context(), userID)
			if err != nil {
				if errors.Is(err, apperror.ErrNotFound) {
					writeAuthError(w, http.StatusUnauthorized, "unauthorized", MsgUserNotFound)
					return
				}
				logger.Error("loading user for token",
					slog.Int64("user_id", userID),
					slog.String("error", err.Error()),
				)
				writeAuthError(w, http.StatusInternalServerError, "internal_error", "An internal error occurred")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// OptionalAuth resolves the identity when it can and never rejects.
// Handlers check UserFromContext to tell anonymous requests apart.
func OptionalAuth(tokens *TokenService, users UserLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
				if userID, err := tokens.Verify(cookie.Value); err == nil {
					user, err := users.GetByID(r.Context(), userID)
					switch {
					case err == nil:
						r = r.WithContext(WithUser(r.Context(), user))
					case !errors.Is(err, apperror.ErrNotFound):
						logger.Warn("optional auth lookup failed",
							slog.Int64("user_id", userID),
							slog.String("error", err.Error()),
						)
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithUser returns a copy of ctx carrying user as the authenticated identity.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user, or (nil, false) for an
// anonymous request.
//
// Usage in handlers:
//
//	user, ok := auth.UserFromContext(r.Context())
//	if !ok {
//	    // anonymous
//	}
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

func writeAuthError(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": errType, "message": message})
}
