package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/manuscript/internal/server/handlers"
	"github.com/iudanet/manuscript/internal/validation"
	"github.com/iudanet/manuscript/pkg/api"
)

// AuthMiddleware создает middleware для проверки JWT токена
// user_id из токена становится каталогом пользователя на диске, поэтому
// он дополнительно проверяется по шаблону
func AuthMiddleware(logger *slog.Logger, jwtConfig handlers.JWTConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Извлекаем токен из заголовка Authorization
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("Missing Authorization header")
				writeError(w, api.ErrCodeUnauthorized, "missing token", http.StatusUnauthorized)
				return
			}

			// Ожидаем формат: "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("Invalid Authorization header format")
				writeError(w, api.ErrCodeUnauthorized, "invalid token format", http.StatusUnauthorized)
				return
			}

			claims, err := handlers.ValidateAccessToken(jwtConfig, parts[1])
			if err != nil {
				logger.Warn("Invalid access token", "error", err)
				writeError(w, api.ErrCodeUnauthorized, "invalid token", http.StatusUnauthorized)
				return
			}

			if err := validation.ValidateUserID(claims.UserID); err != nil {
				logger.Warn("Invalid user id in token", "error", err)
				writeError(w, api.ErrCodeUnauthorized, "invalid token subject", http.StatusUnauthorized)
				return
			}

			// Добавляем данные из токена в контекст
			ctx := context.WithValue(r.Context(), handlers.UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, handlers.UsernameKey, claims.Username)

			logger.Debug("User authenticated", "user_id", claims.UserID, "username", claims.Username)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
