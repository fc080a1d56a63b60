package snapshotting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/opsledger/finance-ledger-api/infrastructure/repository"
	"github.com/opsledger/finance-ledger-api/internal/config"
	"github.com/opsledger/finance-ledger-api/internal/domain"
	"github.com/opsledger/finance-ledger-api/internal/usecases/receipting"
	"github.com/opsledger/finance-ledger-api/internal/usecases/reconciling"
	"github.com/opsledger/finance-ledger-api/pkg/log"
	"github.com/opsledger/finance-ledger-api/pkg/metrics"
	"github.com/opsledger/finance-ledger-api/pkg/utils"
)

// Gatilhos de recomputação registrados nos recibos e nas métricas
const (
	TriggerOnDemand  = "on_demand"
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

// eventScanDays cobre a janela de 30 dias dos detectores mais a folga
// necessária para avaliar pagamentos cujo prazo de lançamento já venceu
const eventScanDays = 60

type Service struct {
	cfg                  *config.Config
	eventRepository      repository.FinanceEventRepository
	snapshotRepository   repository.SnapshotRepository
	connectionRepository repository.ConnectionRepository
	reconciler           reconciling.Reconciler
	receipter            receipting.Receipter
}

func NewService(
	cfg *config.Config,
	eventRepository repository.FinanceEventRepository,
	snapshotRepository repository.SnapshotRepository,
	connectionRepository repository.ConnectionRepository,
	reconciler reconciling.Reconciler,
	receipter receipting.Receipter,
) Snapshotter {
	return &Service{
		cfg:                  cfg,
		eventRepository:      eventRepository,
		snapshotRepository:   snapshotRepository,
		connectionRepository: connectionRepository,
		reconciler:           reconciler,
		receipter:            receipter,
	}
}

func (s *Service) GetSnapshot(ctx context.Context, scope domain.OfficeScope) (*SnapshotResponse, error) {
	logger := log.ForContext(ctx)

	connections, err := s.connectionRepository.ListByOffice(ctx, scope.TenantID, scope.OfficeID)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar conexões do escritório: %w", err)
	}
	connected := hasConnectedProvider(connections)

	latest, err := s.snapshotRepository.GetLatest(ctx, scope.TenantID, scope.OfficeID)
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar o snapshot mais recente: %w", err)
	}

	maxAge := time.Duration(s.cfg.Snapshot.MaxAgeMinutes) * time.Minute
	if latest != nil && time.Since(latest.GeneratedAt) < maxAge {
		return &SnapshotResponse{Snapshot: latest, Connected: connected, Cached: true}, nil
	}

	fresh, err := s.ComputeSnapshot(ctx, scope, TriggerOnDemand)
	if err != nil {
		if latest == nil {
			return nil, err
		}
		logger.WithFields(log.Fields{
			"tenant_id":    scope.TenantID,
			"office_id":    scope.OfficeID,
			"generated_at": latest.GeneratedAt,
			"error":        err.Error(),
		}).Error("Falha ao recomputar o snapshot, servindo a versão em cache")
		return &SnapshotResponse{Snapshot: latest, Connected: connected, Cached: true}, nil
	}

	return &SnapshotResponse{Snapshot: fresh, Connected: connected, Cached: false}, nil
}

func (s *Service) ComputeSnapshot(ctx context.Context, scope domain.OfficeScope, trigger string) (*domain.Snapshot, error) {
	startedAt := time.Now()
	asOf := time.Now().UTC()
	logger := log.ForContext(ctx)

	connections, err := s.connectionRepository.ListByOffice(ctx, scope.TenantID, scope.OfficeID)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar conexões do escritório: %w", err)
	}

	since := asOf.AddDate(0, 0, -eventScanDays)
	events, err := s.eventRepository.ListSince(ctx, scope.TenantID, scope.OfficeID, since)
	if err != nil {
		return nil, fmt.Errorf("erro ao carregar eventos do ledger: %w", err)
	}

	now := buildNowChapter(events, asOf)
	next := s.buildNextChapter(events, now, asOf)
	month := buildMonthChapter(events, asOf)

	mismatches := s.reconciler.DeriveMismatches(events, asOf)
	reconcile := domain.ReconcileChapter{Exceptions: mismatches, OpenCount: len(mismatches)}

	actions, err := s.buildActionsChapter(ctx, scope, events, now, next, month, reconcile, asOf)
	if err != nil {
		return nil, err
	}

	id, err := utils.GenerateLedgerID("snp")
	if err != nil {
		return nil, fmt.Errorf("erro ao gerar o identificador do snapshot: %w", err)
	}

	snapshot := &domain.Snapshot{
		ID:          id,
		TenantID:    scope.TenantID,
		OfficeID:    scope.OfficeID,
		GeneratedAt: asOf,
		Now:         now,
		Next:        next,
		Month:       month,
		Reconcile:   reconcile,
		Actions:     actions,
		Provenance:  s.buildProvenance(events, connections, asOf),
		Staleness:   buildStaleness(connections, asOf),
	}

	receipt, err := s.receipter.Record(ctx, scope, receipting.ReceiptInput{
		ActionType: domain.ReceiptSnapshotCompute,
		Inputs: map[string]any{
			"tenant_id":      scope.TenantID,
			"office_id":      scope.OfficeID,
			"trigger":        trigger,
			"connections":    len(connections),
			"events_scanned": len(events),
		},
		Outputs: map[string]any{
			"generated_at":      asOf.Format(time.RFC3339),
			"exception_count":   reconcile.OpenCount,
			"pending_proposals": len(actions.PendingProposals),
		},
	})
	if err != nil {
		logger.WithFields(log.Fields{
			"tenant_id": scope.TenantID,
			"office_id": scope.OfficeID,
			"error":     err.Error(),
		}).Error("Falha ao gravar recibo do snapshot, seguindo sem recibo")
	} else {
		snapshot.ReceiptID = receipt.ReceiptID
		metrics.ReceiptsWritten.WithLabelValues(domain.ReceiptSnapshotCompute).Inc()
	}

	if err := s.snapshotRepository.Insert(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("erro ao persistir o snapshot: %w", err)
	}

	metrics.SnapshotsComputed.WithLabelValues(trigger).Inc()
	metrics.SnapshotDuration.Observe(time.Since(startedAt).Seconds())

	logger.WithFields(log.Fields{
		"tenant_id":  scope.TenantID,
		"office_id":  scope.OfficeID,
		"trigger":    trigger,
		"exceptions": reconcile.OpenCount,
		"duration":   time.Since(startedAt).String(),
	}).Info("Snapshot recomputado")

	return snapshot, nil
}

func (s *Service) GetExceptions(ctx context.Context, scope domain.OfficeScope) (*ExceptionsReport, error) {
	logger := log.ForContext(ctx)

	response, err := s.GetSnapshot(ctx, scope)
	if err != nil {
		return nil, err
	}
	snapshot := response.Snapshot

	asOf := time.Now().UTC()
	exceptions := s.reconciler.Surface(
		snapshot.Reconcile.Exceptions,
		snapshot.Now.CashPosition,
		snapshot.Next.NetChange,
		snapshot.Next.ProjectedBalance,
		asOf,
	)

	report := &ExceptionsReport{
		Exceptions:    exceptions,
		AsOf:          asOf,
		CorrelationID: log.GetCorrelationID(ctx),
	}

	receipt, err := s.receipter.Record(ctx, scope, receipting.ReceiptInput{
		ActionType: domain.ReceiptExceptionsRead,
		Inputs: map[string]any{
			"tenant_id":   scope.TenantID,
			"office_id":   scope.OfficeID,
			"snapshot_id": snapshot.ID,
		},
		Outputs: map[string]any{
			"exception_count": len(exceptions),
			"as_of":           asOf.Format(time.RFC3339),
		},
	})
	if err != nil {
		logger.WithFields(log.Fields{
			"tenant_id": scope.TenantID,
			"office_id": scope.OfficeID,
			"error":     err.Error(),
		}).Error("Falha ao gravar recibo da leitura de exceções")
		return report, nil
	}

	report.ReceiptID = receipt.ReceiptID
	metrics.ReceiptsWritten.WithLabelValues(domain.ReceiptExceptionsRead).Inc()
	return report, nil
}

// buildProvenance responde, por métrica explicável, quais provedores
// alimentaram seus insumos na janela recente e qual a idade do dado mais
// fresco entre as conexões desses provedores
func (s *Service) buildProvenance(events []*domain.FinanceEvent, connections []*domain.Connection, asOf time.Time) []domain.ProvenanceEntry {
	windowDays := s.cfg.Snapshot.ProvenanceWindowDays
	windowStart := asOf.AddDate(0, 0, -windowDays)

	activityByProvider := make(map[string]*time.Time, len(connections))
	for _, connection := range connections {
		activityByProvider[connection.Provider] = connection.LastActivity()
	}

	entries := make([]domain.ProvenanceEntry, 0, len(domain.ExplainableMetrics))
	for _, metricID := range domain.ExplainableMetrics {
		eventTypes := domain.MetricEventTypes(metricID)

		providerSet := make(map[string]bool)
		for _, event := range events {
			if event.OccurredAt.Before(windowStart) || !eventTypes[event.EventType] {
				continue
			}
			if domain.IsExternalProvider(event.Provider) {
				providerSet[event.Provider] = true
			}
		}

		providers := make([]string, 0, len(providerSet))
		for provider := range providerSet {
			providers = append(providers, provider)
		}
		sort.Strings(providers)

		var freshest *time.Time
		for _, provider := range providers {
			activity := activityByProvider[provider]
			if activity == nil {
				continue
			}
			if freshest == nil || activity.After(*freshest) {
				freshest = activity
			}
		}

		confidence := domain.ConfidenceNone
		if freshest != nil {
			confidence = domain.ConfidenceForAge(asOf.Sub(*freshest))
		}

		entries = append(entries, domain.ProvenanceEntry{
			MetricID:       metricID,
			Providers:      providers,
			FreshestSyncAt: freshest,
			Confidence:     confidence,
		})
	}

	return entries
}

func buildStaleness(connections []*domain.Connection, asOf time.Time) []domain.StalenessEntry {
	entries := make([]domain.StalenessEntry, 0, len(connections))
	for _, connection := range connections {
		if !domain.IsExternalProvider(connection.Provider) {
			continue
		}

		lastDataAt := connection.LastActivity()
		bucket := domain.StalenessOffline
		if connection.IsConnected() && lastDataAt != nil {
			bucket = domain.StalenessForAge(asOf.Sub(*lastDataAt))
		}

		entries = append(entries, domain.StalenessEntry{
			Provider:   connection.Provider,
			Bucket:     bucket,
			LastDataAt: lastDataAt,
			Connected:  connection.IsConnected(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Provider < entries[j].Provider
	})
	return entries
}

func hasConnectedProvider(connections []*domain.Connection) bool {
	for _, connection := range connections {
		if domain.IsExternalProvider(connection.Provider) && connection.IsConnected() {
			return true
		}
	}
	return false
}
