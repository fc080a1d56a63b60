package ingesting

import (
	"context"
	"fmt"
	"time"

	"github.com/opsledger/finance-ledger-api/infrastructure/repository"
	"github.com/opsledger/finance-ledger-api/internal/config"
	"github.com/opsledger/finance-ledger-api/internal/domain"
	"github.com/opsledger/finance-ledger-api/internal/usecases/receipting"
	"github.com/opsledger/finance-ledger-api/pkg/apiErrors"
	"github.com/opsledger/finance-ledger-api/pkg/log"
	"github.com/opsledger/finance-ledger-api/pkg/metrics"
	"github.com/opsledger/finance-ledger-api/pkg/utils"
)

const defaultProviderTimeout = 8 * time.Second

type Service struct {
	cfg                  *config.Config
	eventRepository      repository.FinanceEventRepository
	connectionRepository repository.ConnectionRepository
	cursorRepository     repository.SyncCursorRepository
	receipter            receipting.Receipter
	sources              map[string]ProviderSource
}

func NewService(
	cfg *config.Config,
	eventRepository repository.FinanceEventRepository,
	connectionRepository repository.ConnectionRepository,
	cursorRepository repository.SyncCursorRepository,
	receipter receipting.Receipter,
	sources ...ProviderSource,
) Ingester {
	registry := make(map[string]ProviderSource, len(sources))
	for _, source := range sources {
		registry[source.Name()] = source
	}

	return &Service{
		cfg:                  cfg,
		eventRepository:      eventRepository,
		connectionRepository: connectionRepository,
		cursorRepository:     cursorRepository,
		receipter:            receipter,
		sources:              registry,
	}
}

// SyncOffice percorre as conexões registradas do tenant/office e executa o
// poll de cada provedor. A falha de um provedor marca a conexão e entra no
// relatório; os demais provedores seguem normalmente.
func (s *Service) SyncOffice(ctx context.Context, scope domain.OfficeScope) (*domain.SyncReport, error) {
	ctx, _ = log.WithCorrelationID(ctx)

	report := &domain.SyncReport{
		TenantID:    scope.TenantID,
		OfficeID:    scope.OfficeID,
		StartedAt:   time.Now().UTC(),
		PerProvider: make([]domain.ProviderSyncResult, 0),
	}

	connections, err := s.connectionRepository.ListByOffice(ctx, scope.TenantID, scope.OfficeID)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar conexões do escritório: %w", err)
	}

	insertedIDs := make([]string, 0)
	for _, connection := range connections {
		if !domain.IsExternalProvider(connection.Provider) {
			continue
		}

		source, ok := s.sources[connection.Provider]
		if !ok {
			continue
		}

		result, ids := s.syncProvider(ctx, scope, connection, source)
		report.PerProvider = append(report.PerProvider, result)
		report.Processed += result.Processed
		report.Skipped += result.Skipped
		if result.Error != "" {
			report.Failures++
		}
		insertedIDs = append(insertedIDs, ids...)
	}

	report.FinishedAt = time.Now().UTC()

	receipt, err := s.receipter.Record(ctx, scope, receipting.ReceiptInput{
		ActionType: domain.ReceiptProviderSync,
		Inputs: map[string]any{
			"tenant_id":   scope.TenantID,
			"office_id":   scope.OfficeID,
			"connections": len(connections),
		},
		Outputs: map[string]any{
			"processed": report.Processed,
			"skipped":   report.Skipped,
			"failures":  report.Failures,
		},
	})
	if err != nil {
		log.ForContext(ctx).WithError(err).WithFields(log.Fields{
			"tenant_id": scope.TenantID,
			"office_id": scope.OfficeID,
		}).Error("Falha ao gravar recibo do ciclo de sincronização")
	} else {
		metrics.ReceiptsWritten.WithLabelValues(domain.ReceiptProviderSync).Inc()
		if err := s.eventRepository.AttachReceipt(ctx, scope.TenantID, scope.OfficeID, insertedIDs, receipt.ReceiptID); err != nil {
			log.ForContext(ctx).WithError(err).Error("Falha ao vincular eventos ao recibo do sync")
		}
	}

	return report, nil
}

// HandleWebhook verifica a assinatura HMAC sobre o corpo bruto antes de
// qualquer efeito colateral e então processa o payload pelo mesmo caminho
// idempotente do poll.
func (s *Service) HandleWebhook(ctx context.Context, scope domain.OfficeScope, provider, signature string, payload []byte) (*WebhookResult, error) {
	source, ok := s.sources[provider]
	if !ok || !domain.IsExternalProvider(provider) {
		return nil, ErrUnknownProvider
	}

	secret := s.cfg.WebhookSecret(provider)
	if secret == "" || signature == "" || !utils.VerifyHMAC(payload, secret, signature) {
		metrics.WebhookRejects.WithLabelValues(provider, "signature").Inc()
		return nil, ErrInvalidSignature
	}

	events, err := source.ParseWebhook(payload)
	if err != nil {
		metrics.WebhookRejects.WithLabelValues(provider, "malformed").Inc()
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	processed, skipped, insertedIDs := s.ingestEvents(ctx, scope, provider, "webhook", events)
	s.touchWebhookConnection(ctx, scope, provider)

	result := &WebhookResult{
		Provider:  provider,
		Processed: processed,
		Skipped:   skipped,
	}

	receipt, err := s.receipter.Record(ctx, scope, receipting.ReceiptInput{
		ActionType: domain.ReceiptWebhookIngest,
		Inputs: map[string]any{
			"provider":     provider,
			"payload_hash": utils.HashBytes(payload),
		},
		Outputs: map[string]any{
			"processed": processed,
			"skipped":   skipped,
		},
	})
	if err != nil {
		log.ForContext(ctx).WithError(err).WithFields(log.Fields{
			"tenant_id": scope.TenantID,
			"office_id": scope.OfficeID,
			"provider":  provider,
		}).Error("Falha ao gravar recibo do webhook")
	} else {
		result.ReceiptID = receipt.ReceiptID
		metrics.ReceiptsWritten.WithLabelValues(domain.ReceiptWebhookIngest).Inc()
		if err := s.eventRepository.AttachReceipt(ctx, scope.TenantID, scope.OfficeID, insertedIDs, receipt.ReceiptID); err != nil {
			log.ForContext(ctx).WithError(err).Error("Falha ao vincular eventos ao recibo do webhook")
		}
	}

	return result, nil
}

func (s *Service) syncProvider(ctx context.Context, scope domain.OfficeScope, connection *domain.Connection, source ProviderSource) (domain.ProviderSyncResult, []string) {
	result := domain.ProviderSyncResult{Provider: source.Name()}

	timeout := time.Duration(s.cfg.ProviderSync.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	providerCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cursorValue := ""
	cursor, err := s.cursorRepository.Get(ctx, scope.TenantID, scope.OfficeID, source.Name())
	if err != nil {
		result.Error = err.Error()
		result.ErrorCode = apiErrors.ErrDatabaseOperation
		metrics.ProviderSyncFailures.WithLabelValues(source.Name()).Inc()
		return result, nil
	}
	if cursor != nil {
		cursorValue = cursor.Cursor
	}

	events, nextCursor, err := source.FetchEvents(providerCtx, connection.ExternalAccountID, cursorValue)
	if err != nil {
		metrics.ProviderSyncFailures.WithLabelValues(source.Name()).Inc()
		log.ForContext(ctx).WithError(err).WithFields(log.Fields{
			"tenant_id": scope.TenantID,
			"office_id": scope.OfficeID,
			"provider":  source.Name(),
		}).Error("Falha ao sincronizar provedor")

		result.Error = err.Error()
		result.ErrorCode = apiErrors.ErrUpstreamProvider
		s.markSyncConnection(ctx, scope, connection, domain.ConnectionDisconnected, err, false)
		return result, nil
	}

	processed, skipped, insertedIDs := s.ingestEvents(ctx, scope, source.Name(), "poll", events)
	result.Processed = processed
	result.Skipped = skipped

	if nextCursor != "" && nextCursor != cursorValue {
		if err := s.cursorRepository.Upsert(ctx, &domain.SyncCursor{
			TenantID:  scope.TenantID,
			OfficeID:  scope.OfficeID,
			Provider:  source.Name(),
			Cursor:    nextCursor,
			UpdatedAt: time.Now().UTC(),
		}); err != nil {
			log.ForContext(ctx).WithError(err).WithField("provider", source.Name()).
				Warn("Falha ao avançar o cursor do provedor")
		}
	}

	s.markSyncConnection(ctx, scope, connection, domain.ConnectionConnected, nil, true)
	return result, insertedIDs
}

// ingestEvents materializa eventos canônicos no ledger. A colisão na chave
// (tenant, office, provider, provider_event_id) é tratada como "já
// registrado", nunca como erro.
func (s *Service) ingestEvents(ctx context.Context, scope domain.OfficeScope, provider, sourceKind string, events []domain.ProviderEvent) (int, int, []string) {
	processed, skipped := 0, 0
	insertedIDs := make([]string, 0, len(events))

	for i := range events {
		providerEvent := events[i]

		if providerEvent.ProviderEventID == "" || providerEvent.EventType == "" {
			skipped++
			metrics.EventsSkipped.WithLabelValues(provider, "invalid").Inc()
			continue
		}

		id, err := utils.GenerateLedgerID("evt")
		if err != nil {
			skipped++
			log.ForContext(ctx).WithError(err).Error("Falha ao gerar id de evento")
			continue
		}

		event := &domain.FinanceEvent{
			ID:              id,
			TenantID:        scope.TenantID,
			OfficeID:        scope.OfficeID,
			Provider:        provider,
			ProviderEventID: providerEvent.ProviderEventID,
			EventType:       providerEvent.EventType,
			OccurredAt:      providerEvent.OccurredAt.UTC(),
			Amount:          providerEvent.Amount,
			Currency:        providerEvent.Currency,
			Status:          domain.EventStatusRecorded,
			EntityRefs:      providerEvent.EntityRefs,
			Metadata:        providerEvent.Metadata,
			RawHash:         utils.HashBytes(providerEvent.Raw),
		}

		inserted, err := s.eventRepository.Insert(ctx, event)
		if err != nil {
			skipped++
			metrics.EventsSkipped.WithLabelValues(provider, "persistence_error").Inc()
			log.ForContext(ctx).WithError(err).WithFields(log.Fields{
				"provider":          provider,
				"provider_event_id": providerEvent.ProviderEventID,
			}).Error("Falha ao gravar evento no ledger")
			continue
		}

		if inserted {
			processed++
			insertedIDs = append(insertedIDs, id)
			metrics.EventsIngested.WithLabelValues(provider, sourceKind).Inc()
		} else {
			skipped++
			metrics.EventsSkipped.WithLabelValues(provider, "duplicate").Inc()
		}
	}

	return processed, skipped, insertedIDs
}

func (s *Service) markSyncConnection(ctx context.Context, scope domain.OfficeScope, connection *domain.Connection, status string, syncErr error, advanceSync bool) {
	update := &domain.Connection{
		TenantID:          scope.TenantID,
		OfficeID:          scope.OfficeID,
		Provider:          connection.Provider,
		Status:            status,
		ExternalAccountID: connection.ExternalAccountID,
	}

	if advanceSync {
		now := time.Now().UTC()
		update.LastSyncAt = &now
	}
	if syncErr != nil {
		message := syncErr.Error()
		update.LastError = &message
	}

	if err := s.connectionRepository.Upsert(ctx, update); err != nil {
		log.ForContext(ctx).WithError(err).WithField("provider", connection.Provider).
			Error("Falha ao atualizar a conexão do provedor")
	}
}

func (s *Service) touchWebhookConnection(ctx context.Context, scope domain.OfficeScope, provider string) {
	now := time.Now().UTC()
	update := &domain.Connection{
		TenantID:      scope.TenantID,
		OfficeID:      scope.OfficeID,
		Provider:      provider,
		Status:        domain.ConnectionConnected,
		LastWebhookAt: &now,
	}

	existing, err := s.connectionRepository.Get(ctx, scope.TenantID, scope.OfficeID, provider)
	if err == nil && existing != nil {
		update.ExternalAccountID = existing.ExternalAccountID
	}

	if err := s.connectionRepository.Upsert(ctx, update); err != nil {
		log.ForContext(ctx).WithError(err).WithField("provider", provider).
			Error("Falha ao registrar atividade de webhook na conexão")
	}
}
