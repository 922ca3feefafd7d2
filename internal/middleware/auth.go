package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"estate/internal/apperr"
	"estate/internal/logging"
	"estate/internal/models"
	"estate/internal/policy"
)

type contextKey string

const actorKey contextKey = "actor"

// Authenticator turns a bearer token into the current user record.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.User, error)
}

func ActorFromContext(ctx context.Context) (policy.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(policy.Actor)
	return actor, ok
}

func WithActor(ctx context.Context, actor policy.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// BearerToken reads the Authorization header. When allowQuery is set a
// token query parameter is accepted too, since browsers cannot set headers
// on websocket handshakes.
func BearerToken(r *http.Request, allowQuery bool) (string, bool) {
	header := r.Header.Get("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if allowQuery {
		if token := r.URL.Query().Get("token"); token != "" {
			return token, true
		}
	}
	return "", false
}

// Auth loads the user behind the bearer token on every request, so the role
// used for authorization is the one stored now and not the one at login.
func Auth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r, false)
			if !ok {
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			user, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				status := StatusFor(err)
				if status == http.StatusInternalServerError {
					logging.FromContext(r.Context(), zap.NewNop()).Error("authentication lookup failed", zap.Error(err))
				}
				if status == http.StatusUnauthorized {
					w.Header().Set("WWW-Authenticate", "Bearer")
				}
				writeError(w, status, apperr.Message(err, "internal server error"))
				return
			}
			ctx := WithActor(r.Context(), policy.Actor{UserID: user.ID, Role: user.Role})
			logging.FromContext(ctx, zap.NewNop()).Debug("authenticated", zap.String("user_id", user.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAction gates a route on the per-action role table.
func RequireAction(action policy.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			if !policy.Can(actor, action) {
				writeError(w, http.StatusForbidden, policy.ErrForbidden.Message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
