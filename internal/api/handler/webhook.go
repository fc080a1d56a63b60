package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"

	"github.com/opsledger/finance-ledger-api/internal/domain"
	"github.com/opsledger/finance-ledger-api/internal/usecases/ingesting"
	"github.com/opsledger/finance-ledger-api/pkg/apiErrors"
	"github.com/opsledger/finance-ledger-api/pkg/log"
)

// Header de assinatura HMAC exigido em todos os webhooks
const signatureHeader = "X-Signature"

// Limite do corpo de webhook aceito, em bytes
const maxWebhookBody = 1 << 20

// ReceiveWebhook recebe notificações push dos provedores. A rota não passa
// pelo JWT: a autenticação é a assinatura HMAC sobre o corpo cru, conferida
// antes de qualquer efeito colateral.
func ReceiveWebhook(service ingesting.Ingester) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		params := httprouter.ParamsFromContext(r.Context())
		scope := domain.OfficeScope{
			TenantID: params.ByName("tenant_id"),
			OfficeID: params.ByName("office_id"),
		}
		provider := params.ByName("provider")

		if scope.TenantID == "" || scope.OfficeID == "" || provider == "" {
			apiErrors.WriteError(w, apiErrors.ErrMissingRequiredData, "tenant_id, office_id e provider são obrigatórios no caminho", nil)
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, "Erro ao ler o corpo da requisição", nil)
			return
		}

		signature := r.Header.Get(signatureHeader)

		result, err := service.HandleWebhook(r.Context(), scope, provider, signature, payload)
		if err != nil {
			switch {
			case errors.Is(err, ingesting.ErrUnknownProvider):
				apiErrors.WriteError(w, apiErrors.ErrResourceNotFound, "Provedor desconhecido: "+provider, nil)
			case errors.Is(err, ingesting.ErrInvalidSignature):
				logger.WithFields(log.Fields{
					"tenant_id": scope.TenantID,
					"office_id": scope.OfficeID,
					"provider":  provider,
				}).Warn("webhook: invalid signature rejected")

				apiErrors.WriteError(w, apiErrors.ErrInvalidSignature, "Assinatura do webhook inválida", nil)
			case errors.Is(err, ingesting.ErrMalformedPayload):
				apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, "Payload do webhook malformado", nil)
			default:
				logger.WithFields(log.Fields{
					"tenant_id": scope.TenantID,
					"office_id": scope.OfficeID,
					"provider":  provider,
					"error":     err.Error(),
				}).Error("webhook: processing failed")

				apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro ao processar o webhook", nil)
			}
			return
		}

		logger.WithFields(log.Fields{
			"tenant_id": scope.TenantID,
			"office_id": scope.OfficeID,
			"provider":  provider,
			"processed": result.Processed,
			"skipped":   result.Skipped,
		}).Info("webhook: processed")

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			logger.WithField("error", err.Error()).Error("webhook: failed to encode response")
		}
	})
}

// TriggerOfficeSync dispara um ciclo de poll síncrono para o escritório.
// Falhas de provedor ficam no relatório, nunca derrubam a resposta.
func TriggerOfficeSync(service ingesting.Ingester) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		scope, ok := scopeFromRequest(w, r)
		if !ok {
			return
		}

		logger.WithFields(log.Fields{
			"tenant_id": scope.TenantID,
			"office_id": scope.OfficeID,
		}).Info("sync: manual office sync requested")

		report, err := service.SyncOffice(r.Context(), scope)
		if err != nil {
			logger.WithFields(log.Fields{
				"tenant_id": scope.TenantID,
				"office_id": scope.OfficeID,
				"error":     err.Error(),
			}).Error("sync: office sync failed")

			apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro ao sincronizar o escritório", nil)
			return
		}

		logger.WithFields(log.Fields{
			"tenant_id": scope.TenantID,
			"office_id": scope.OfficeID,
			"processed": report.Processed,
			"failures":  report.Failures,
		}).Info("sync: office sync finished")

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(report); err != nil {
			logger.WithField("error", err.Error()).Error("sync: failed to encode response")
		}
	})
}
