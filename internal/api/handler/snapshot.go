package handler

import (
	"encoding/json"
	"net/http"

	"github.com/opsledger/finance-ledger-api/internal/usecases/snapshotting"
	"github.com/opsledger/finance-ledger-api/pkg/apiErrors"
	"github.com/opsledger/finance-ledger-api/pkg/log"
)

// GetSnapshot devolve o snapshot de cinco capítulos do escritório,
// recomputando quando o cache estourou o orçamento de staleness
func GetSnapshot(service snapshotting.Snapshotter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		scope, ok := scopeFromRequest(w, r)
		if !ok {
			return
		}

		logger.WithFields(log.Fields{
			"tenant_id": scope.TenantID,
			"office_id": scope.OfficeID,
		}).Info("snapshot: fetching current snapshot")

		response, err := service.GetSnapshot(r.Context(), scope)
		if err != nil {
			logger.WithFields(log.Fields{
				"tenant_id": scope.TenantID,
				"office_id": scope.OfficeID,
				"error":     err.Error(),
			}).Error("snapshot: failed to get snapshot")

			apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro ao montar o snapshot", nil)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			logger.WithField("error", err.Error()).Error("snapshot: failed to encode response")
		}
	})
}

// ComputeSnapshot força a recomputação síncrona do snapshot
func ComputeSnapshot(service snapshotting.Snapshotter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		scope, ok := scopeFromRequest(w, r)
		if !ok {
			return
		}

		logger.WithFields(log.Fields{
			"tenant_id": scope.TenantID,
			"office_id": scope.OfficeID,
		}).Info("snapshot: manual recompute requested")

		snapshot, err := service.ComputeSnapshot(r.Context(), scope, snapshotting.TriggerManual)
		if err != nil {
			logger.WithFields(log.Fields{
				"tenant_id": scope.TenantID,
				"office_id": scope.OfficeID,
				"error":     err.Error(),
			}).Error("snapshot: manual recompute failed")

			apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro ao recomputar o snapshot", nil)
			return
		}

		logger.WithFields(log.Fields{
			"tenant_id":   scope.TenantID,
			"office_id":   scope.OfficeID,
			"snapshot_id": snapshot.ID,
		}).Info("snapshot: manual recompute finished")

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snapshot); err != nil {
			logger.WithField("error", err.Error()).Error("snapshot: failed to encode response")
		}
	})
}

// GetExceptions devolve os achados de reconciliação que merecem atenção,
// ordenados por severidade
func GetExceptions(service snapshotting.Snapshotter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		scope, ok := scopeFromRequest(w, r)
		if !ok {
			return
		}

		report, err := service.GetExceptions(r.Context(), scope)
		if err != nil {
			logger.WithFields(log.Fields{
				"tenant_id": scope.TenantID,
				"office_id": scope.OfficeID,
				"error":     err.Error(),
			}).Error("exceptions: failed to surface exceptions")

			apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro ao apurar exceções", nil)
			return
		}

		logger.WithFields(log.Fields{
			"tenant_id":  scope.TenantID,
			"office_id":  scope.OfficeID,
			"exceptions": len(report.Exceptions),
		}).Info("exceptions: surfaced")

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(report); err != nil {
			logger.WithField("error", err.Error()).Error("exceptions: failed to encode response")
		}
	})
}
