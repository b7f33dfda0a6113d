package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/harlowe-labs/scenthq-backend/api/responses"
	pkgAuth "github.com/harlowe-labs/scenthq-backend/pkg/auth"
	"github.com/harlowe-labs/scenthq-backend/pkg/config"
	pkgerrors "github.com/harlowe-labs/scenthq-backend/pkg/errors"
	"github.com/harlowe-labs/scenthq-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the claims.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID.String())
			ctx = context.WithValue(ctx, ctxRole, string(claims.Role))
			if claims.OrgID != nil {
				ctx = context.WithValue(ctx, ctxOrgID, claims.OrgID.String())
			}

			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID.String())
				ctx = logg.WithActorRole(ctx, string(claims.Role))
				if claims.OrgID != nil {
					ctx = logg.WithOrgID(ctx, claims.OrgID.String())
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
