package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/opsledger/finance-ledger-api/internal/usecases/authenticating"
)

type contextKey string

const (
	ContextKeyAccount contextKey = "service_account"
)

// AuthMiddleware valida o token Bearer de contas de serviço. Rotas de
// webhook ficam de fora porque são autenticadas por assinatura HMAC.
func AuthMiddleware(authService authenticating.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/v1/token" || r.URL.Path == "/healthcheck" || r.URL.Path == "/metrics" ||
				strings.Contains(r.URL.Path, "/webhooks/") {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header is required", http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				http.Error(w, "Bearer token is required", http.StatusUnauthorized)
				return
			}

			claims, err := authService.ValidateToken(tokenString)
			if err != nil {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyAccount, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
