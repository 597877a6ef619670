package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nyayasetu/platform/internal/auth"
	"github.com/nyayasetu/platform/internal/shared/config"
	"github.com/nyayasetu/platform/internal/shared/types"
)

type contextKey string

const (
	actorContextKey contextKey = "actor"
)

// Claims extends JWT claims with platform-specific data
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Middleware creates JWT authentication middleware resolving the current
// actor. Requests without a resolvable actor are rejected before any
// workflow code runs.
func Middleware(cfg config.AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				writeError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			token, err := jwt.ParseWithClaims(parts[1], &Claims{}, func(token *jwt.Token) (interface{}, error) {
				return []byte(cfg.JWTSecret), nil
			})
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			claims, ok := token.Claims.(*Claims)
			if !ok || !token.Valid {
				writeError(w, http.StatusUnauthorized, "invalid token claims")
				return
			}

			role, ok := auth.ParseRole(claims.Role)
			if !ok {
				writeError(w, http.StatusUnauthorized, "unknown role")
				return
			}

			actorID, err := types.ParseID(claims.Subject)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid subject")
				return
			}

			actor := &auth.Actor{
				ID:   actorID,
				Role: role,
			}

			ctx := context.WithValue(r.Context(), actorContextKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetActor extracts the authenticated actor from request context.
// Returns nil when no actor was resolved.
func GetActor(ctx context.Context) *auth.Actor {
	actor, ok := ctx.Value(actorContextKey).(*auth.Actor)
	if !ok {
		return nil
	}
	return actor
}

// WithActor returns a context carrying the given actor. Used by tests and
// by internal callers that already resolved an identity.
func WithActor(ctx context.Context, actor *auth.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
