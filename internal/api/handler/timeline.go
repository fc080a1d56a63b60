package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/opsledger/finance-ledger-api/internal/domain"
	"github.com/opsledger/finance-ledger-api/internal/usecases/explaining"
	"github.com/opsledger/finance-ledger-api/pkg/apiErrors"
	"github.com/opsledger/finance-ledger-api/pkg/log"
	"github.com/opsledger/finance-ledger-api/pkg/utils"
)

// GetTimeline lista os eventos imutáveis do ledger em ordem reversa de
// ocorrência, com filtros opcionais por provedor e tipo de evento
func GetTimeline(service explaining.Explainer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		scope, ok := scopeFromRequest(w, r)
		if !ok {
			return
		}

		query := r.URL.Query()
		filter := domain.TimelineFilter{
			TenantID:  scope.TenantID,
			OfficeID:  scope.OfficeID,
			Provider:  query.Get("provider"),
			EventType: query.Get("event_type"),
		}

		if raw := query.Get("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil {
				apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, "limit deve ser um inteiro", nil)
				return
			}
			filter.Limit = limit
		}

		if raw := query.Get("offset"); raw != "" {
			offset, err := strconv.Atoi(raw)
			if err != nil {
				apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, "offset deve ser um inteiro", nil)
				return
			}
			filter.Offset = offset
		}

		if raw := query.Get("from"); raw != "" {
			from, err := utils.ParseDate(raw)
			if err != nil {
				apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, "from deve estar no formato YYYY-MM-DD", nil)
				return
			}
			filter.From = from
		}

		if raw := query.Get("to"); raw != "" {
			to, err := utils.ParseDate(raw)
			if err != nil {
				apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, "to deve estar no formato YYYY-MM-DD", nil)
				return
			}
			// O dia informado entra inteiro na janela
			end := to.AddDate(0, 0, 1)
			filter.To = &end
		}

		page, err := service.GetTimeline(r.Context(), filter)
		if err != nil {
			logger.WithFields(log.Fields{
				"tenant_id": scope.TenantID,
				"office_id": scope.OfficeID,
				"error":     err.Error(),
			}).Error("timeline: failed to list events")

			apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro ao listar a linha do tempo", nil)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(page); err != nil {
			logger.WithField("error", err.Error()).Error("timeline: failed to encode response")
		}
	})
}
