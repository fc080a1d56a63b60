package handler

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"

	"github.com/opsledger/finance-ledger-api/internal/scheduler"
	"github.com/opsledger/finance-ledger-api/pkg/apiErrors"
)

// SyncJobType define o agendador que será disparado manualmente
const (
	SyncJobTypeProviders = "provider-sync"
	SyncJobTypeSnapshots = "snapshot-refresh"
	SyncJobTypeAll       = "all"
)

// SyncJobServices contém os agendadores expostos pelos controles manuais
type SyncJobServices struct {
	ProviderSyncService    *scheduler.ProviderSyncService
	SnapshotRefreshService *scheduler.SnapshotRefreshService
}

// RunSyncJob dispara manualmente um agendador específico. Um disparo já em
// andamento não é duplicado.
func RunSyncJob(services SyncJobServices) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logrus.Info("INIT - RunSyncJob")

		syncType := httprouter.ParamsFromContext(r.Context()).ByName("type")
		if syncType == "" {
			apiErrors.WriteError(w, apiErrors.ErrMissingRequiredData, "Tipo de job não especificado", nil)
			return
		}

		triggered := map[string]bool{}

		switch syncType {
		case SyncJobTypeProviders:
			if services.ProviderSyncService == nil {
				apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Serviço de sincronização de provedores não disponível", nil)
				return
			}
			triggered[SyncJobTypeProviders] = services.ProviderSyncService.TriggerManualSync()

		case SyncJobTypeSnapshots:
			if services.SnapshotRefreshService == nil {
				apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Serviço de pré-aquecimento de snapshots não disponível", nil)
				return
			}
			triggered[SyncJobTypeSnapshots] = services.SnapshotRefreshService.TriggerManualRefresh()

		case SyncJobTypeAll:
			if services.ProviderSyncService != nil {
				triggered[SyncJobTypeProviders] = services.ProviderSyncService.TriggerManualSync()
			}
			if services.SnapshotRefreshService != nil {
				triggered[SyncJobTypeSnapshots] = services.SnapshotRefreshService.TriggerManualRefresh()
			}

		default:
			apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, "Tipo de job inválido. Valores aceitos: provider-sync, snapshot-refresh, all", nil)
			return
		}

		response := map[string]any{
			"message":   "Job disparado",
			"type":      syncType,
			"triggered": triggered,
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}

// GetSyncStatus retorna o estado corrente dos agendadores
func GetSyncStatus(services SyncJobServices) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logrus.Info("INIT - GetSyncStatus")

		status := map[string]any{
			SyncJobTypeProviders: services.ProviderSyncService.GetSyncStatus(),
			SyncJobTypeSnapshots: services.SnapshotRefreshService.GetRefreshStatus(),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(status)
	}
}
