package explaining

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opsledger/finance-ledger-api/infrastructure/repository"
	"github.com/opsledger/finance-ledger-api/internal/config"
	"github.com/opsledger/finance-ledger-api/internal/domain"
	"github.com/opsledger/finance-ledger-api/internal/usecases/snapshotting"
)

const (
	defaultTimelineLimit = 50
	maxTimelineLimit     = 200

	maxExplanationSources = 5
)

type Service struct {
	cfg                  *config.Config
	eventRepository      repository.FinanceEventRepository
	connectionRepository repository.ConnectionRepository
	snapshotter          snapshotting.Snapshotter
}

func NewService(
	cfg *config.Config,
	eventRepository repository.FinanceEventRepository,
	connectionRepository repository.ConnectionRepository,
	snapshotter snapshotting.Snapshotter,
) Explainer {
	return &Service{
		cfg:                  cfg,
		eventRepository:      eventRepository,
		connectionRepository: connectionRepository,
		snapshotter:          snapshotter,
	}
}

func (s *Service) GetTimeline(ctx context.Context, filter domain.TimelineFilter) (*domain.TimelinePage, error) {
	if filter.Limit <= 0 || filter.Limit > maxTimelineLimit {
		filter.Limit = defaultTimelineLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	events, total, err := s.eventRepository.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("erro ao consultar a linha do tempo: %w", err)
	}

	return &domain.TimelinePage{
		Events: events,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

func (s *Service) ExplainMetric(ctx context.Context, scope domain.OfficeScope, metricID string) (*domain.MetricExplanation, error) {
	if !domain.IsExplainableMetric(metricID) {
		return nil, ErrUnknownMetric
	}

	response, err := s.snapshotter.GetSnapshot(ctx, scope)
	if err != nil {
		return nil, err
	}
	snapshot := response.Snapshot

	value, formula := metricValue(snapshot, metricID)

	windowStart := snapshot.GeneratedAt.AddDate(0, 0, -s.cfg.Snapshot.ProvenanceWindowDays)
	events, err := s.eventRepository.ListSince(ctx, scope.TenantID, scope.OfficeID, windowStart)
	if err != nil {
		return nil, fmt.Errorf("erro ao carregar eventos-fonte: %w", err)
	}

	eventTypes := domain.MetricEventTypes(metricID)
	sources := make([]domain.ExplanationSource, 0, maxExplanationSources)
	for i := len(events) - 1; i >= 0 && len(sources) < maxExplanationSources; i-- {
		event := events[i]
		if !eventTypes[event.EventType] {
			continue
		}
		sources = append(sources, domain.ExplanationSource{
			EventID:      event.ID,
			Provider:     event.Provider,
			EventType:    event.EventType,
			Amount:       event.Amount,
			OccurredAt:   event.OccurredAt,
			Contribution: contributionFor(metricID, event),
		})
	}

	explanation := &domain.MetricExplanation{
		MetricID:   metricID,
		Value:      value,
		Currency:   snapshot.Now.Currency,
		Formula:    formula,
		Sources:    sources,
		ComputedAt: snapshot.GeneratedAt,
	}

	// A proveniência do snapshot responde quem sustentou a métrica e com
	// que confiança
	for _, entry := range snapshot.Provenance {
		if entry.MetricID == metricID {
			explanation.Providers = entry.Providers
			explanation.Confidence = entry.Confidence
			break
		}
	}

	return explanation, nil
}

func metricValue(snapshot *domain.Snapshot, metricID string) (decimal.Decimal, string) {
	switch metricID {
	case domain.MetricCashPosition:
		return snapshot.Now.CashPosition,
			"soma do saldo mais recente reportado por cada conta conectada"
	case domain.MetricPendingInflow:
		return snapshot.Now.PendingInflow,
			"soma das transações pendentes de entrada ainda não lançadas"
	case domain.MetricPendingOutflow:
		return snapshot.Now.PendingOutflow,
			"soma das transações pendentes de saída ainda não lançadas"
	case domain.MetricProjectedBalance7d:
		return snapshot.Next.ProjectedBalance,
			"caixa atual mais faturas em aberto e repasses a caminho, menos folhas agendadas"
	case domain.MetricMonthRevenue:
		return snapshot.Month.Revenue,
			monthFormula(snapshot.Month.Source, "receitas")
	case domain.MetricMonthExpenses:
		return snapshot.Month.Expenses,
			monthFormula(snapshot.Month.Source, "despesas")
	case domain.MetricMonthNet:
		return snapshot.Month.Net,
			monthFormula(snapshot.Month.Source, "resultado")
	}
	return decimal.Zero, ""
}

func monthFormula(source, measure string) string {
	if source == domain.MonthSourceReport {
		return measure + " do relatório mensal do ERP para o mês corrente"
	}
	return measure + " somadas dos eventos brutos do mês corrente"
}

// contributionFor qualifica como um evento entra na métrica: somando,
// subtraindo ou servindo de fonte consolidada
func contributionFor(metricID string, event *domain.FinanceEvent) string {
	switch metricID {
	case domain.MetricCashPosition:
		if event.EventType == domain.EventBalanceReported {
			return "source"
		}
		if event.Amount.IsNegative() {
			return "subtract"
		}
		return "add"
	case domain.MetricPendingInflow, domain.MetricPendingOutflow:
		return "add"
	case domain.MetricProjectedBalance7d:
		switch event.EventType {
		case domain.EventInvoiceIssued, domain.EventPayoutConfirmed:
			return "add"
		case domain.EventPayrollRunScheduled:
			return "subtract"
		}
		return "source"
	case domain.MetricMonthNet:
		switch event.EventType {
		case domain.EventPeriodReport:
			return "source"
		case domain.EventExpenseRecorded, domain.EventPayrollRunPaid:
			return "subtract"
		}
		return "add"
	default:
		if event.EventType == domain.EventPeriodReport {
			return "source"
		}
		return "add"
	}
}

func (s *Service) GetLifecycle(ctx context.Context, scope domain.OfficeScope, entityID string) (*domain.EntityLifecycle, error) {
	events, err := s.eventRepository.ListByEntityRef(ctx, scope.TenantID, scope.OfficeID, entityID)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar eventos da entidade: %w", err)
	}
	if len(events) == 0 {
		return nil, ErrEntityNotFound
	}

	// Primeiro evento que comprova cada estágio
	earliest := make(map[string]*domain.FinanceEvent, len(domain.LifecycleStages))
	for _, event := range events {
		stage := domain.StageForEventType(event.EventType)
		if stage == "" {
			continue
		}
		current := earliest[stage]
		if current == nil || event.OccurredAt.Before(current.OccurredAt) {
			earliest[stage] = event
		}
	}

	stages := make([]domain.LifecycleStage, 0, len(domain.LifecycleStages))
	lastReached := -1
	for i, stage := range domain.LifecycleStages {
		entry := domain.LifecycleStage{Stage: stage}
		if event, ok := earliest[stage]; ok {
			occurred := event.OccurredAt
			entry.Reached = true
			entry.EventID = event.ID
			entry.Provider = event.Provider
			entry.OccurredAt = &occurred
			lastReached = i
		}
		stages = append(stages, entry)
	}

	lifecycle := &domain.EntityLifecycle{
		EntityID: entityID,
		Stages:   stages,
		Complete: lastReached == len(domain.LifecycleStages)-1 && len(earliest) == len(domain.LifecycleStages),
	}
	if !lifecycle.Complete {
		if lastReached+1 < len(domain.LifecycleStages) {
			lifecycle.NextExpected = domain.LifecycleStages[lastReached+1]
		}
	}

	return lifecycle, nil
}

func (s *Service) GetConnectionsStatus(ctx context.Context, scope domain.OfficeScope) (*ConnectionsStatus, error) {
	connections, err := s.connectionRepository.ListByOffice(ctx, scope.TenantID, scope.OfficeID)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar conexões do escritório: %w", err)
	}

	byProvider := make(map[string]*domain.Connection, len(connections))
	for _, connection := range connections {
		byProvider[connection.Provider] = connection
	}

	asOf := time.Now().UTC()
	anyConnected := false
	health := make([]ConnectionHealth, 0, len(domain.ExternalProviders))
	for _, provider := range domain.ExternalProviders {
		connection, registered := byProvider[provider]
		if !registered {
			health = append(health, ConnectionHealth{
				Provider:      provider,
				Status:        domain.ConnectionDisconnected,
				Staleness:     domain.StalenessOffline,
				SuggestedStep: "connect",
			})
			continue
		}

		entry := ConnectionHealth{
			Provider:      provider,
			Status:        connection.Status,
			Staleness:     domain.StalenessOffline,
			LastSyncAt:    connection.LastSyncAt,
			LastWebhookAt: connection.LastWebhookAt,
			SuggestedStep: suggestedStep(connection.Status),
		}
		if connection.LastError != nil {
			entry.LastError = *connection.LastError
		}
		if connection.IsConnected() {
			anyConnected = true
			if last := connection.LastActivity(); last != nil {
				entry.Staleness = domain.StalenessForAge(asOf.Sub(*last))
			}
		}
		health = append(health, entry)
	}

	return &ConnectionsStatus{
		Connections: health,
		Connected:   anyConnected,
		AsOf:        asOf,
	}, nil
}

func suggestedStep(status string) string {
	switch status {
	case domain.ConnectionDisconnected:
		return "reconnect"
	case domain.ConnectionNeedsReauth:
		return "reauthorize"
	case domain.ConnectionPending:
		return "complete_setup"
	}
	return ""
}
