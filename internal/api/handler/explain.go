package handler

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"github.com/opsledger/finance-ledger-api/internal/domain"
	"github.com/opsledger/finance-ledger-api/internal/usecases/explaining"
	"github.com/opsledger/finance-ledger-api/pkg/apiErrors"
	"github.com/opsledger/finance-ledger-api/pkg/log"
)

// ExplainMetric abre a caixa-preta de uma métrica do snapshot: valor
// corrente, fórmula e os eventos que entraram no cálculo
func ExplainMetric(service explaining.Explainer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		scope, ok := scopeFromRequest(w, r)
		if !ok {
			return
		}

		metricID := r.URL.Query().Get("metric_id")
		if metricID == "" {
			apiErrors.WriteError(w, apiErrors.ErrMissingRequiredData, "O parâmetro metric_id é obrigatório", nil)
			return
		}

		explanation, err := service.ExplainMetric(r.Context(), scope, metricID)
		if err != nil {
			if errors.Is(err, explaining.ErrUnknownMetric) {
				apiErrors.WriteError(w, apiErrors.ErrUnknownMetric, "Métrica desconhecida: "+metricID, map[string]any{
					"valid_metrics": domain.ExplainableMetrics,
				})
				return
			}

			logger.WithFields(log.Fields{
				"tenant_id": scope.TenantID,
				"office_id": scope.OfficeID,
				"metric":    metricID,
				"error":     err.Error(),
			}).Error("explain: failed to explain metric")

			apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro ao explicar a métrica", nil)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(explanation); err != nil {
			logger.WithField("error", err.Error()).Error("explain: failed to encode response")
		}
	})
}

// GetLifecycle monta a escada de estágios de uma entidade (venda, fatura,
// lote de pagamento) a partir dos eventos que a referenciam
func GetLifecycle(service explaining.Explainer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		scope, ok := scopeFromRequest(w, r)
		if !ok {
			return
		}

		entityID := r.URL.Query().Get("entity_id")
		if entityID == "" {
			apiErrors.WriteError(w, apiErrors.ErrMissingRequiredData, "O parâmetro entity_id é obrigatório", nil)
			return
		}

		lifecycle, err := service.GetLifecycle(r.Context(), scope, entityID)
		if err != nil {
			if errors.Is(err, explaining.ErrEntityNotFound) {
				apiErrors.WriteError(w, apiErrors.ErrResourceNotFound, "Nenhum evento encontrado para a entidade", nil)
				return
			}

			logger.WithFields(log.Fields{
				"tenant_id": scope.TenantID,
				"office_id": scope.OfficeID,
				"entity_id": entityID,
				"error":     err.Error(),
			}).Error("lifecycle: failed to build entity lifecycle")

			apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro ao montar o ciclo de vida da entidade", nil)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(lifecycle); err != nil {
			logger.WithField("error", err.Error()).Error("lifecycle: failed to encode response")
		}
	})
}

// GetConnectionsStatus resume a saúde de cada provedor conectado:
// frescor, confiança e o próximo passo sugerido quando algo precisa de ação
func GetConnectionsStatus(service explaining.Explainer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		scope, ok := scopeFromRequest(w, r)
		if !ok {
			return
		}

		status, err := service.GetConnectionsStatus(r.Context(), scope)
		if err != nil {
			logger.WithFields(log.Fields{
				"tenant_id": scope.TenantID,
				"office_id": scope.OfficeID,
				"error":     err.Error(),
			}).Error("connections: failed to get connections status")

			apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro ao consultar o status das conexões", nil)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status); err != nil {
			logger.WithField("error", err.Error()).Error("connections: failed to encode response")
		}
	})
}
