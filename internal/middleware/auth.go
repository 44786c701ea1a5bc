package middleware

import (
	"net/http"

	"storefront-be/internal/apperror"
	"storefront-be/internal/auth"
	"storefront-be/internal/logger"
	"storefront-be/internal/transport"
	"storefront-be/internal/utils"

	"go.uber.org/zap"
)

// Authenticate resolves the caller from the access token. Requests without
// a token pass through anonymously; a token that fails validation is
// rejected with 401.
func Authenticate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := auth.ExtractAccessToken(r)
			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseJWT(secret, tokenStr)
			if err != nil {
				logger.FromCtx(r.Context()).Warn("rejected access token", zap.Error(err))
				transport.Error(r.Context(), w, apperror.Unauthorized("invalid or expired token"))
				return
			}

			ctx := utils.SetUserContext(r.Context(), claims.UserID, claims.Email, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := utils.ActorFromContext(r.Context()); !ok {
			transport.Error(r.Context(), w, apperror.Unauthorized("authentication required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := utils.ActorFromContext(r.Context())
		if !ok {
			transport.Error(r.Context(), w, apperror.Unauthorized("authentication required"))
			return
		}
		if !actor.IsAdmin() {
			logger.FromCtx(r.Context()).Warn("admin route denied",
				zap.Uint("user_id", actor.UserID),
				zap.String("path", r.URL.Path),
			)
			transport.Error(r.Context(), w, apperror.Forbidden("admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
