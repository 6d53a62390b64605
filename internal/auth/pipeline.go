package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/etuitionbd/etuition-be/internal/models"
	"github.com/rs/zerolog/log"
)

// Stage transforms a request context. It returns the enriched context for
// the next stage, or an error that ends the request.
type Stage func(r *http.Request) (context.Context, error)

// ErrorWriter renders a terminal stage error.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Pipeline runs stages in order before next. Each stage sees the request
// as enriched by the stages before it.
func Pipeline(onError ErrorWriter, stages ...Stage) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, stage := range stages {
				ctx, err := stage(r)
				if err != nil {
					onError(w, r, err)
					return
				}
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Verify authenticates the bearer token and stores the verified email.
func Verify(verifier TokenVerifier) Stage {
	return func(r *http.Request) (context.Context, error) {
		token, ok := BearerToken(r.Header.Get("Authorization"))
		if !ok {
			return nil, unauthorized("")
		}
		claims, err := verifier.VerifyIDToken(r.Context(), token)
		if err != nil {
			log.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected bearer token")
			return nil, unauthorized(err.Error())
		}
		return WithEmail(r.Context(), claims.Email), nil
	}
}

// RoleSource looks up a user's stored role. Unknown users have RoleUnset.
type RoleSource interface {
	UserRole(ctx context.Context, email string) (models.Role, error)
}

var roleMessages = map[models.Role]string{
	models.RoleStudent: "Student only actions!",
	models.RoleTutor:   "Tutor only actions!",
	models.RoleAdmin:   "Admin only actions!",
}

// RequireRole admits callers whose stored role is role. It must run after
// Verify.
func RequireRole(roles RoleSource, role models.Role) Stage {
	msg, ok := roleMessages[role]
	if !ok {
		msg = fmt.Sprintf("%s only actions!", role)
	}
	return func(r *http.Request) (context.Context, error) {
		email, ok := EmailFromContext(r.Context())
		if !ok {
			return nil, &Error{Status: http.StatusInternalServerError, Message: "role check ran before token verification"}
		}
		stored, err := roles.UserRole(r.Context(), email)
		if err != nil {
			return nil, fmt.Errorf("load role for %s: %w", email, err)
		}
		if stored != role {
			return nil, forbidden(msg)
		}
		return r.Context(), nil
	}
}

// Gate bundles the pipelines used by the router.
type Gate struct {
	verifier TokenVerifier
	roles    RoleSource
	onError  ErrorWriter
}

// NewGate creates a Gate.
func NewGate(verifier TokenVerifier, roles RoleSource, onError ErrorWriter) *Gate {
	return &Gate{verifier: verifier, roles: roles, onError: onError}
}

// Verified requires a valid token.
func (g *Gate) Verified() func(http.Handler) http.Handler {
	return Pipeline(g.onError, Verify(g.verifier))
}

// Role requires a valid token and the given stored role.
func (g *Gate) Role(role models.Role) func(http.Handler) http.Handler {
	return Pipeline(g.onError, Verify(g.verifier), RequireRole(g.roles, role))
}
