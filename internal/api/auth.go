package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/camhien7804/Nha-Khoa-OU/internal/appointment"
)

const actorKey contextKey = "actor"

// Claims is the token payload issued at login. Subject carries the user id.
type Claims struct {
	jwt.RegisteredClaims
	Role  string `json:"role"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Authenticator validates the Bearer token and stores the resulting actor
// in the request context. Tokens must be HS256-signed with the shared
// secret; anything else is rejected.
func Authenticator(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeError(w, http.StatusUnauthorized, "missing_token", "Authorization header with Bearer token required")
				return
			}

			claims := &Claims{}
			parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !parsed.Valid {
				writeError(w, http.StatusUnauthorized, "invalid_token", "token is invalid or expired")
				return
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid_token", "token subject is not a user id")
				return
			}

			actor := appointment.Actor{
				UserID: userID,
				Role:   claims.Role,
				Name:   claims.Name,
				Email:  claims.Email,
			}
			ctx := context.WithValue(r.Context(), actorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorFrom retrieves the authenticated actor from context.
func ActorFrom(ctx context.Context) (appointment.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(appointment.Actor)
	return actor, ok
}

// RequireRoles rejects requests whose actor role is not in the allow list.
func RequireRoles(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "missing_token", "authentication required")
				return
			}
			if _, ok := allowed[actor.Role]; !ok {
				writeError(w, http.StatusForbidden, "forbidden", "insufficient role for this endpoint")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IssueToken mints an HS256 token for a user. Used by the seed tooling and
// tests; the production login flow lives in the identity provider.
func IssueToken(secret string, userID uuid.UUID, role, name, email string, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = userID.String()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: claims,
		Role:             role,
		Name:             name,
		Email:            email,
	})
	return token.SignedString([]byte(secret))
}
