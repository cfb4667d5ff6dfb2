package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/foodhall-backend/api/responses"
	pkgAuth "github.com/angelmondragon/foodhall-backend/pkg/auth"
	"github.com/angelmondragon/foodhall-backend/pkg/config"
	"github.com/angelmondragon/foodhall-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodhall-backend/pkg/errors"
	"github.com/angelmondragon/foodhall-backend/pkg/logger"
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
			if claims.Role == enums.RoleSeller && claims.SellerID == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller token missing seller id"))
				return
			}

			ctx := WithIdentity(r.Context(), Identity{
				UserID:   claims.UserID,
				Role:     claims.Role,
				SellerID: claims.SellerID,
			})

			if logg != nil {
				ctx = logg.WithActor(ctx, claims.UserID, string(claims.Role))
				if claims.SellerID != nil {
					ctx = logg.WithSellerID(ctx, *claims.SellerID)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
