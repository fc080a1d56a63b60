package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"github.com/opsledger/finance-ledger-api/infrastructure/repository"
	"github.com/opsledger/finance-ledger-api/internal/config"
	"github.com/opsledger/finance-ledger-api/internal/domain"
	"github.com/opsledger/finance-ledger-api/internal/usecases/ingesting"
)

// ProviderSyncConfig representa a configuração do agendador de sincronização de provedores
type ProviderSyncConfig struct {
	CronSchedule      string
	MaxConcurrentJobs int
	SyncEnabled       bool
}

// ProviderSyncService gerencia o agendamento e execução do poll de provedores
type ProviderSyncService struct {
	scheduler           *gocron.Scheduler
	config              ProviderSyncConfig
	appConfig           *config.Config
	connectionRepo      repository.ConnectionRepository
	ingester            ingesting.Ingester
	syncRunning         bool
	syncMutex           sync.Mutex
	lastSyncStartedAt   time.Time
	lastSyncCompletedAt time.Time
}

// NewProviderSyncService cria uma nova instância do serviço de sincronização de provedores
func NewProviderSyncService(
	connectionRepo repository.ConnectionRepository,
	ingester ingesting.Ingester,
	appConfig *config.Config,
) *ProviderSyncService {
	syncConfig := ProviderSyncConfig{
		CronSchedule:      appConfig.ProviderSync.CronSchedule,
		MaxConcurrentJobs: appConfig.ProviderSync.MaxConcurrentJobs,
		SyncEnabled:       appConfig.ProviderSync.Enabled,
	}

	scheduler := gocron.NewScheduler(time.Local)

	logrus.WithFields(logrus.Fields{
		"cron_schedule":       syncConfig.CronSchedule,
		"max_concurrent_jobs": syncConfig.MaxConcurrentJobs,
		"sync_enabled":        syncConfig.SyncEnabled,
	}).Info("Configuração do agendador de sincronização de provedores carregada")

	return &ProviderSyncService{
		scheduler:      scheduler,
		config:         syncConfig,
		appConfig:      appConfig,
		connectionRepo: connectionRepo,
		ingester:       ingester,
		syncRunning:    false,
	}
}

// Start inicia o agendador
func (s *ProviderSyncService) Start(ctx context.Context) error {
	if !s.config.SyncEnabled {
		logrus.Info("Sincronização de provedores desabilitada por configuração")
		return nil
	}

	logrus.WithField("cron", s.config.CronSchedule).Info("Iniciando agendador de sincronização de provedores")

	_, err := s.scheduler.Cron(s.config.CronSchedule).Do(func() {
		s.syncAllOffices()
	})
	if err != nil {
		return fmt.Errorf("erro ao agendar sincronização de provedores: %w", err)
	}

	s.scheduler.StartAsync()

	go func() {
		<-ctx.Done()
		logrus.Info("Parando agendador de sincronização de provedores")
		s.scheduler.Stop()
	}()

	return nil
}

// TriggerManualSync dispara uma sincronização fora do horário agendado.
// Devolve false se já houver uma em andamento.
func (s *ProviderSyncService) TriggerManualSync() bool {
	s.syncMutex.Lock()
	running := s.syncRunning
	s.syncMutex.Unlock()

	if running {
		return false
	}

	go s.syncAllOffices()
	return true
}

// GetSyncStatus expõe o estado corrente do agendador
func (s *ProviderSyncService) GetSyncStatus() map[string]any {
	s.syncMutex.Lock()
	defer s.syncMutex.Unlock()

	status := map[string]any{
		"enabled": s.config.SyncEnabled,
		"running": s.syncRunning,
		"cron":    s.config.CronSchedule,
	}
	if !s.lastSyncStartedAt.IsZero() {
		status["last_started_at"] = s.lastSyncStartedAt.Format(time.RFC3339)
	}
	if !s.lastSyncCompletedAt.IsZero() {
		status["last_completed_at"] = s.lastSyncCompletedAt.Format(time.RFC3339)
	}
	return status
}

// syncAllOffices percorre todos os escritórios com conexões registradas
func (s *ProviderSyncService) syncAllOffices() {
	s.syncMutex.Lock()
	if s.syncRunning {
		s.syncMutex.Unlock()
		logrus.Info("Sincronização de provedores já em andamento, ignorando")
		return
	}
	s.syncRunning = true
	s.lastSyncStartedAt = time.Now()
	s.syncMutex.Unlock()

	startTime := time.Now()

	defer func() {
		s.syncMutex.Lock()
		s.syncRunning = false
		s.lastSyncCompletedAt = time.Now()
		s.syncMutex.Unlock()
	}()

	logrus.Info("Iniciando sincronização de provedores para todos os escritórios")

	scopes, err := s.connectionRepo.ListScopes(context.Background())
	if err != nil {
		logrus.WithError(err).Error("Erro ao listar escritórios para sincronização")
		return
	}

	if len(scopes) == 0 {
		logrus.Info("Nenhum escritório com conexões registradas para sincronizar")
		return
	}

	s.processOffices(scopes)

	logrus.WithFields(logrus.Fields{
		"duration": time.Since(startTime).String(),
		"offices":  len(scopes),
	}).Info("Sincronização de provedores concluída")
}

// processOffices sincroniza os escritórios com concorrência limitada
func (s *ProviderSyncService) processOffices(scopes []domain.OfficeScope) {
	semaphore := make(chan struct{}, s.config.MaxConcurrentJobs)
	var wg sync.WaitGroup

	for _, scope := range scopes {
		wg.Add(1)
		semaphore <- struct{}{} // Adquirir semáforo

		go func(officeScope domain.OfficeScope) {
			defer func() {
				<-semaphore // Liberar semáforo
				wg.Done()
			}()

			report, err := s.ingester.SyncOffice(context.Background(), officeScope)
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"tenant_id": officeScope.TenantID,
					"office_id": officeScope.OfficeID,
					"error":     err.Error(),
				}).Error("Erro ao sincronizar escritório")
				return
			}

			logrus.WithFields(logrus.Fields{
				"tenant_id": officeScope.TenantID,
				"office_id": officeScope.OfficeID,
				"processed": report.Processed,
				"skipped":   report.Skipped,
				"failures":  report.Failures,
			}).Info("Escritório sincronizado")
		}(scope)
	}

	wg.Wait()
}
