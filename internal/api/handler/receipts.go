package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/opsledger/finance-ledger-api/internal/usecases/receipting"
	"github.com/opsledger/finance-ledger-api/pkg/apiErrors"
	"github.com/opsledger/finance-ledger-api/pkg/log"
)

const defaultReceiptLimit = 50

// ListReceipts devolve os recibos da cadeia do escritório, mais recentes
// primeiro
func ListReceipts(service receipting.Receipter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		scope, ok := scopeFromRequest(w, r)
		if !ok {
			return
		}

		limit := defaultReceiptLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, "limit deve ser um inteiro", nil)
				return
			}
			limit = parsed
		}

		offset := 0
		if raw := r.URL.Query().Get("offset"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, "offset deve ser um inteiro", nil)
				return
			}
			offset = parsed
		}

		receipts, err := service.ListReceipts(r.Context(), scope, limit, offset)
		if err != nil {
			logger.WithFields(log.Fields{
				"tenant_id": scope.TenantID,
				"office_id": scope.OfficeID,
				"error":     err.Error(),
			}).Error("receipts: failed to list receipts")

			apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro ao listar os recibos", nil)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]any{
			"receipts": receipts,
			"total":    len(receipts),
		}); err != nil {
			logger.WithField("error", err.Error()).Error("receipts: failed to encode response")
		}
	})
}

// VerifyReceiptChain percorre a cadeia completa do escritório conferindo
// cada elo; qualquer adulteração aparece no primeiro elo quebrado
func VerifyReceiptChain(service receipting.Receipter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		scope, ok := scopeFromRequest(w, r)
		if !ok {
			return
		}

		verification, err := service.VerifyChain(r.Context(), scope)
		if err != nil {
			logger.WithFields(log.Fields{
				"tenant_id": scope.TenantID,
				"office_id": scope.OfficeID,
				"error":     err.Error(),
			}).Error("receipts: chain verification failed")

			apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro ao verificar a cadeia de recibos", nil)
			return
		}

		logger.WithFields(log.Fields{
			"tenant_id": scope.TenantID,
			"office_id": scope.OfficeID,
			"valid":     verification.Valid,
			"checked":   verification.CheckedCount,
		}).Info("receipts: chain verified")

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(verification); err != nil {
			logger.WithField("error", err.Error()).Error("receipts: failed to encode response")
		}
	})
}
