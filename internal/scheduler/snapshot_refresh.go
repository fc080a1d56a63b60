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
	"github.com/opsledger/finance-ledger-api/internal/usecases/snapshotting"
)

// SnapshotRefreshConfig representa a configuração do agendador de pré-aquecimento de snapshots
type SnapshotRefreshConfig struct {
	CronSchedule      string
	MaxConcurrentJobs int
	RefreshEnabled    bool
}

// SnapshotRefreshService recomputa snapshots periodicamente para que as
// leituras encontrem material fresco dentro do orçamento de staleness
type SnapshotRefreshService struct {
	scheduler              *gocron.Scheduler
	config                 SnapshotRefreshConfig
	appConfig              *config.Config
	connectionRepo         repository.ConnectionRepository
	snapshotter            snapshotting.Snapshotter
	refreshRunning         bool
	refreshMutex           sync.Mutex
	lastRefreshStartedAt   time.Time
	lastRefreshCompletedAt time.Time
}

// NewSnapshotRefreshService cria uma nova instância do serviço de pré-aquecimento
func NewSnapshotRefreshService(
	connectionRepo repository.ConnectionRepository,
	snapshotter snapshotting.Snapshotter,
	appConfig *config.Config,
) *SnapshotRefreshService {
	refreshConfig := SnapshotRefreshConfig{
		CronSchedule:      appConfig.SnapshotRefresh.CronSchedule,
		MaxConcurrentJobs: appConfig.SnapshotRefresh.MaxConcurrentJobs,
		RefreshEnabled:    appConfig.SnapshotRefresh.Enabled,
	}

	scheduler := gocron.NewScheduler(time.Local)

	logrus.WithFields(logrus.Fields{
		"cron_schedule":       refreshConfig.CronSchedule,
		"max_concurrent_jobs": refreshConfig.MaxConcurrentJobs,
		"refresh_enabled":     refreshConfig.RefreshEnabled,
	}).Info("Configuração do agendador de snapshots carregada")

	return &SnapshotRefreshService{
		scheduler:      scheduler,
		config:         refreshConfig,
		appConfig:      appConfig,
		connectionRepo: connectionRepo,
		snapshotter:    snapshotter,
		refreshRunning: false,
	}
}

// Start inicia o agendador
func (s *SnapshotRefreshService) Start(ctx context.Context) error {
	if !s.config.RefreshEnabled {
		logrus.Info("Pré-aquecimento de snapshots desabilitado por configuração")
		return nil
	}

	logrus.WithField("cron", s.config.CronSchedule).Info("Iniciando agendador de snapshots")

	_, err := s.scheduler.Cron(s.config.CronSchedule).Do(func() {
		s.refreshAllOffices()
	})
	if err != nil {
		return fmt.Errorf("erro ao agendar o pré-aquecimento de snapshots: %w", err)
	}

	s.scheduler.StartAsync()

	go func() {
		<-ctx.Done()
		logrus.Info("Parando agendador de snapshots")
		s.scheduler.Stop()
	}()

	return nil
}

// TriggerManualRefresh dispara um pré-aquecimento fora do horário agendado.
// Devolve false se já houver um em andamento.
func (s *SnapshotRefreshService) TriggerManualRefresh() bool {
	s.refreshMutex.Lock()
	running := s.refreshRunning
	s.refreshMutex.Unlock()

	if running {
		return false
	}

	go s.refreshAllOffices()
	return true
}

// GetRefreshStatus expõe o estado corrente do agendador
func (s *SnapshotRefreshService) GetRefreshStatus() map[string]any {
	s.refreshMutex.Lock()
	defer s.refreshMutex.Unlock()

	status := map[string]any{
		"enabled": s.config.RefreshEnabled,
		"running": s.refreshRunning,
		"cron":    s.config.CronSchedule,
	}
	if !s.lastRefreshStartedAt.IsZero() {
		status["last_started_at"] = s.lastRefreshStartedAt.Format(time.RFC3339)
	}
	if !s.lastRefreshCompletedAt.IsZero() {
		status["last_completed_at"] = s.lastRefreshCompletedAt.Format(time.RFC3339)
	}
	return status
}

// refreshAllOffices recomputa o snapshot de cada escritório com conexões
func (s *SnapshotRefreshService) refreshAllOffices() {
	s.refreshMutex.Lock()
	if s.refreshRunning {
		s.refreshMutex.Unlock()
		logrus.Info("Pré-aquecimento de snapshots já em andamento, ignorando")
		return
	}
	s.refreshRunning = true
	s.lastRefreshStartedAt = time.Now()
	s.refreshMutex.Unlock()

	startTime := time.Now()

	defer func() {
		s.refreshMutex.Lock()
		s.refreshRunning = false
		s.lastRefreshCompletedAt = time.Now()
		s.refreshMutex.Unlock()
	}()

	scopes, err := s.connectionRepo.ListScopes(context.Background())
	if err != nil {
		logrus.WithError(err).Error("Erro ao listar escritórios para pré-aquecimento de snapshots")
		return
	}

	if len(scopes) == 0 {
		logrus.Info("Nenhum escritório com conexões para pré-aquecer snapshots")
		return
	}

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

			snapshot, err := s.snapshotter.ComputeSnapshot(context.Background(), officeScope, snapshotting.TriggerScheduled)
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"tenant_id": officeScope.TenantID,
					"office_id": officeScope.OfficeID,
					"error":     err.Error(),
				}).Error("Erro ao recomputar snapshot agendado")
				return
			}

			logrus.WithFields(logrus.Fields{
				"tenant_id":   officeScope.TenantID,
				"office_id":   officeScope.OfficeID,
				"snapshot_id": snapshot.ID,
				"exceptions":  snapshot.Reconcile.OpenCount,
			}).Info("Snapshot pré-aquecido")
		}(scope)
	}

	wg.Wait()

	logrus.WithFields(logrus.Fields{
		"duration": time.Since(startTime).String(),
		"offices":  len(scopes),
	}).Info("Pré-aquecimento de snapshots concluído")
}
