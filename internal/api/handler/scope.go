package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/opsledger/finance-ledger-api/internal/domain"
	"github.com/opsledger/finance-ledger-api/pkg/apiErrors"
	"github.com/opsledger/finance-ledger-api/pkg/middleware"
)

// scopeFromRequest extrai tenant/office do caminho e confere que o token
// autenticado cobre esse escopo. Escreve o erro na resposta e devolve ok
// falso quando o chamador deve retornar imediatamente.
func scopeFromRequest(w http.ResponseWriter, r *http.Request) (domain.OfficeScope, bool) {
	params := httprouter.ParamsFromContext(r.Context())

	scope := domain.OfficeScope{
		TenantID: params.ByName("tenant_id"),
		OfficeID: params.ByName("office_id"),
	}

	if scope.TenantID == "" || scope.OfficeID == "" {
		apiErrors.WriteError(w, apiErrors.ErrMissingRequiredData, "tenant_id e office_id são obrigatórios no caminho", nil)
		return scope, false
	}

	claims, ok := r.Context().Value(middleware.ContextKeyAccount).(*domain.Claims)
	if !ok {
		apiErrors.WriteError(w, apiErrors.ErrInvalidToken, "Conta de serviço não autenticada", nil)
		return scope, false
	}

	if !claims.AllowsTenant(scope.TenantID) || !claims.AllowsOffice(scope.OfficeID) {
		apiErrors.WriteError(w, apiErrors.ErrInsufficientPrivilege, "O token não cobre o tenant/office solicitado", nil)
		return scope, false
	}

	return scope, true
}

// callerID identifica a conta autenticada para fins de auditoria
func callerID(r *http.Request) string {
	claims, ok := r.Context().Value(middleware.ContextKeyAccount).(*domain.Claims)
	if !ok {
		return ""
	}
	return claims.ClientID
}
