package middleware

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/opsledger/finance-ledger-api/internal/domain"
	"github.com/opsledger/finance-ledger-api/pkg/apiErrors"
)

// Escopos concedidos a contas de serviço
const (
	ScopeRead    = "read"    // leitura de snapshots, timeline, exceções
	ScopeApprove = "approve" // criação, aprovação e execução de propostas
	ScopeAdmin   = "admin"   // controles operacionais (sync manual, status dos jobs)
)

// ScopeMiddleware cria um middleware que restringe o acesso com base nos
// escopos do token. allowedScopes é a lista de escopos aceitos para a rota.
func ScopeMiddleware(allowedScopes []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := r.Context().Value(ContextKeyAccount).(*domain.Claims)

			if !ok {
				logrus.Warning("Tentativa de acesso sem autenticação")
				apiErrors.WriteError(w, apiErrors.ErrInvalidToken, "Conta de serviço não autenticada", nil)
				return
			}

			isAllowed := false
			for _, allowed := range allowedScopes {
				if claims.HasScope(allowed) {
					isAllowed = true
					break
				}
			}

			if !isAllowed {
				logrus.Warningf("Acesso negado para conta %s, escopos=%v", claims.ClientID, claims.Scopes)
				apiErrors.WriteError(w, apiErrors.ErrInsufficientPrivilege, "Você não tem permissão para acessar este recurso", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ReadAccess permite qualquer conta com escopo de leitura ou superior
func ReadAccess() func(http.Handler) http.Handler {
	return ScopeMiddleware([]string{ScopeRead, ScopeApprove, ScopeAdmin})
}

// ApproverOnly permite contas autorizadas a mover o fluxo de autoridade
func ApproverOnly() func(http.Handler) http.Handler {
	return ScopeMiddleware([]string{ScopeApprove, ScopeAdmin})
}

// AdminOnly permite apenas contas administrativas
func AdminOnly() func(http.Handler) http.Handler {
	return ScopeMiddleware([]string{ScopeAdmin})
}
