package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/gestionusuarios/gestion-usuarios/internal/api"
	"github.com/gestionusuarios/gestion-usuarios/internal/types"
)

type contextKey string

const principalKey contextKey = "principal"

// PrincipalFromContext returns the authenticated identity, if any.
func PrincipalFromContext(ctx context.Context) (*types.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*types.Principal)
	return p, ok
}

// Authenticate extracts and verifies the bearer token, loads the
// identity and attaches it to the request context. A missing header or
// a failed verification leaves the request unauthenticated and passes
// it on; RequireAuth produces the uniform 401 for protected routes.
func Authenticate(logger *slog.Logger, tokens *TokenService, service AuthService) func(next http.Handler) http.Handler {
	// Short-lived cache of subject -> principal to save a store round
	// trip on every request. Entries outlive role changes for at most
	// the TTL.
	identities := cache.New(30*time.Second, time.Minute)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Authenticate"))

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			headerParts := strings.Split(authHeader, " ")
			if len(headerParts) != 2 || !strings.EqualFold(headerParts[0], "bearer") {
				l.WarnContext(ctx, "Invalid Authorization header format")
				next.ServeHTTP(w, r)
				return
			}

			subject, err := tokens.SubjectOf(headerParts[1])
			if err != nil {
				l.WarnContext(ctx, "Token verification failed", slog.Any("error", err))
				next.ServeHTTP(w, r)
				return
			}

			var principal *types.Principal
			if cached, found := identities.Get(subject); found {
				principal = cached.(*types.Principal)
			} else {
				principal, err = service.IdentityOf(ctx, subject)
				if err != nil {
					l.WarnContext(ctx, "Failed to load identity for token subject",
						slog.String("subject", subject), slog.Any("error", err))
					next.ServeHTTP(w, r)
					return
				}
				identities.Set(subject, principal, cache.DefaultExpiration)
			}

			ctx = context.WithValue(ctx, principalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests that reach it without an authenticated
// principal. One terminal handler produces the 401 envelope regardless
// of why token verification failed.
func RequireAuth(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := PrincipalFromContext(r.Context()); !ok {
				logger.WarnContext(r.Context(), "Unauthenticated request to protected route",
					slog.String("path", r.URL.Path))
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
