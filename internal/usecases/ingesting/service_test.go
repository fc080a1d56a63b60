package ingesting_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/opsledger/finance-ledger-api/infrastructure/repository/mocks"
	"github.com/opsledger/finance-ledger-api/internal/config"
	"github.com/opsledger/finance-ledger-api/internal/domain"
	"github.com/opsledger/finance-ledger-api/internal/usecases/ingesting"
	ingestmocks "github.com/opsledger/finance-ledger-api/internal/usecases/ingesting/mocks"
	"github.com/opsledger/finance-ledger-api/internal/usecases/receipting"
	receiptmocks "github.com/opsledger/finance-ledger-api/internal/usecases/receipting/mocks"
	"github.com/opsledger/finance-ledger-api/pkg/apiErrors"
	"github.com/opsledger/finance-ledger-api/pkg/utils"
)

func TestSyncOffice(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEventRepo := mocks.NewMockFinanceEventRepository(ctrl)
	mockConnectionRepo := mocks.NewMockConnectionRepository(ctrl)
	mockCursorRepo := mocks.NewMockSyncCursorRepository(ctrl)
	mockReceipter := receiptmocks.NewMockReceipter(ctrl)

	// As fontes são registradas pelo Name() na construção do serviço
	pluggySource := ingestmocks.NewMockProviderSource(ctrl)
	pluggySource.EXPECT().Name().Return(domain.ProviderPluggy).AnyTimes()
	pagarmeSource := ingestmocks.NewMockProviderSource(ctrl)
	pagarmeSource.EXPECT().Name().Return(domain.ProviderPagarme).AnyTimes()

	cfg := &config.Config{
		ProviderSync: config.ProviderSync{RequestTimeoutSeconds: 2},
	}

	service := ingesting.NewService(cfg, mockEventRepo, mockConnectionRepo, mockCursorRepo, mockReceipter,
		pluggySource, pagarmeSource)

	scope := domain.OfficeScope{TenantID: "tnt_01", OfficeID: "off_01"}

	var connectionUpdates []*domain.Connection
	var cursorUpdates []*domain.SyncCursor
	var attachedIDs []string

	tests := []struct {
		name     string
		setup    func()
		validate func(t *testing.T, report *domain.SyncReport, err error)
	}{
		{
			name: "Deve ingerir eventos novos e pular replays do mesmo provider_event_id",
			setup: func() {
				mockConnectionRepo.EXPECT().
					ListByOffice(gomock.Any(), "tnt_01", "off_01").
					Return([]*domain.Connection{
						{TenantID: "tnt_01", OfficeID: "off_01", Provider: domain.ProviderPluggy,
							Status: domain.ConnectionConnected, ExternalAccountID: "item_123"},
					}, nil)

				// Sem cursor anterior: primeira sincronização
				mockCursorRepo.EXPECT().
					Get(gomock.Any(), "tnt_01", "off_01", domain.ProviderPluggy).
					Return(nil, nil)

				pluggySource.EXPECT().
					FetchEvents(gomock.Any(), "item_123", "").
					Return([]domain.ProviderEvent{
						providerEvent("pluggy_tx_001", domain.EventTransactionPosted, "150.00"),
						providerEvent("pluggy_tx_002", domain.EventDepositDetected, "900.00"),
						providerEvent("pluggy_tx_001", domain.EventTransactionPosted, "150.00"),
					}, "cursor_002", nil)

				// A terceira entrega colide na chave natural e vira no-op
				mockEventRepo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					Return(true, nil).
					Times(2)
				mockEventRepo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					Return(false, nil)

				mockCursorRepo.EXPECT().
					Upsert(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, cursor *domain.SyncCursor) error {
						cursorUpdates = append(cursorUpdates, cursor)
						return nil
					})

				mockConnectionRepo.EXPECT().
					Upsert(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, connection *domain.Connection) error {
						connectionUpdates = append(connectionUpdates, connection)
						return nil
					})

				mockReceipter.EXPECT().
					Record(gomock.Any(), scope, gomock.Any()).
					Return(&domain.Receipt{ReceiptID: "rcp_sync"}, nil)

				mockEventRepo.EXPECT().
					AttachReceipt(gomock.Any(), "tnt_01", "off_01", gomock.Any(), "rcp_sync").
					DoAndReturn(func(_ context.Context, _, _ string, eventIDs []string, _ string) error {
						attachedIDs = eventIDs
						return nil
					})
			},
			validate: func(t *testing.T, report *domain.SyncReport, err error) {
				require.NoError(t, err)
				assert.Equal(t, 2, report.Processed)
				assert.Equal(t, 1, report.Skipped)
				assert.Equal(t, 0, report.Failures)
				require.Len(t, report.PerProvider, 1)
				assert.Equal(t, domain.ProviderPluggy, report.PerProvider[0].Provider)

				// O cursor avança para a próxima janela
				require.Len(t, cursorUpdates, 1)
				assert.Equal(t, "cursor_002", cursorUpdates[0].Cursor)
				assert.Equal(t, domain.ProviderPluggy, cursorUpdates[0].Provider)

				// A conexão registra o sucesso do poll
				require.Len(t, connectionUpdates, 1)
				assert.Equal(t, domain.ConnectionConnected, connectionUpdates[0].Status)
				assert.NotNil(t, connectionUpdates[0].LastSyncAt)

				// Só os eventos de fato inseridos são vinculados ao recibo
				assert.Len(t, attachedIDs, 2)
			},
		},
		{
			name: "Deve isolar a falha de um provedor e seguir com os demais",
			setup: func() {
				mockConnectionRepo.EXPECT().
					ListByOffice(gomock.Any(), "tnt_01", "off_01").
					Return([]*domain.Connection{
						{TenantID: "tnt_01", OfficeID: "off_01", Provider: domain.ProviderPluggy,
							Status: domain.ConnectionConnected, ExternalAccountID: "item_123"},
						{TenantID: "tnt_01", OfficeID: "off_01", Provider: domain.ProviderPagarme,
							Status: domain.ConnectionConnected, ExternalAccountID: "acct_456"},
					}, nil)

				mockCursorRepo.EXPECT().
					Get(gomock.Any(), "tnt_01", "off_01", domain.ProviderPluggy).
					Return(&domain.SyncCursor{Cursor: "cursor_010"}, nil)
				mockCursorRepo.EXPECT().
					Get(gomock.Any(), "tnt_01", "off_01", domain.ProviderPagarme).
					Return(nil, nil)

				pluggySource.EXPECT().
					FetchEvents(gomock.Any(), "item_123", "cursor_010").
					Return([]domain.ProviderEvent{
						providerEvent("pluggy_tx_010", domain.EventTransactionPosted, "75.00"),
					}, "", nil)

				// O processador de pagamentos está fora do ar
				pagarmeSource.EXPECT().
					FetchEvents(gomock.Any(), "acct_456", "").
					Return(nil, "", assert.AnError)

				mockEventRepo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					Return(true, nil)

				mockConnectionRepo.EXPECT().
					Upsert(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, connection *domain.Connection) error {
						connectionUpdates = append(connectionUpdates, connection)
						return nil
					}).
					Times(2)

				mockReceipter.EXPECT().
					Record(gomock.Any(), scope, gomock.Any()).
					Return(&domain.Receipt{ReceiptID: "rcp_sync"}, nil)

				mockEventRepo.EXPECT().
					AttachReceipt(gomock.Any(), "tnt_01", "off_01", gomock.Any(), "rcp_sync").
					Return(nil)
			},
			validate: func(t *testing.T, report *domain.SyncReport, err error) {
				require.NoError(t, err)
				assert.Equal(t, 1, report.Processed)
				assert.Equal(t, 1, report.Failures)
				require.Len(t, report.PerProvider, 2)

				assert.Equal(t, domain.ProviderPluggy, report.PerProvider[0].Provider)
				assert.Equal(t, 1, report.PerProvider[0].Processed)
				assert.Empty(t, report.PerProvider[0].Error)

				assert.Equal(t, domain.ProviderPagarme, report.PerProvider[1].Provider)
				assert.NotEmpty(t, report.PerProvider[1].Error)
				assert.Equal(t, apiErrors.ErrUpstreamProvider, report.PerProvider[1].ErrorCode)

				// A conexão do provedor que falhou fica marcada como desconectada
				require.Len(t, connectionUpdates, 2)
				assert.Equal(t, domain.ConnectionConnected, connectionUpdates[0].Status)
				assert.Equal(t, domain.ConnectionDisconnected, connectionUpdates[1].Status)
				require.NotNil(t, connectionUpdates[1].LastError)
			},
		},
		{
			name: "Deve pular eventos sem identificador nativo do provedor",
			setup: func() {
				mockConnectionRepo.EXPECT().
					ListByOffice(gomock.Any(), "tnt_01", "off_01").
					Return([]*domain.Connection{
						{TenantID: "tnt_01", OfficeID: "off_01", Provider: domain.ProviderPluggy,
							Status: domain.ConnectionConnected, ExternalAccountID: "item_123"},
					}, nil)

				mockCursorRepo.EXPECT().
					Get(gomock.Any(), "tnt_01", "off_01", domain.ProviderPluggy).
					Return(nil, nil)

				pluggySource.EXPECT().
					FetchEvents(gomock.Any(), "item_123", "").
					Return([]domain.ProviderEvent{
						providerEvent("", domain.EventTransactionPosted, "10.00"),
					}, "", nil)

				mockConnectionRepo.EXPECT().
					Upsert(gomock.Any(), gomock.Any()).
					Return(nil)

				mockReceipter.EXPECT().
					Record(gomock.Any(), scope, gomock.Any()).
					Return(&domain.Receipt{ReceiptID: "rcp_sync"}, nil)

				mockEventRepo.EXPECT().
					AttachReceipt(gomock.Any(), "tnt_01", "off_01", gomock.Any(), "rcp_sync").
					Return(nil)
			},
			validate: func(t *testing.T, report *domain.SyncReport, err error) {
				require.NoError(t, err)
				assert.Equal(t, 0, report.Processed)
				assert.Equal(t, 1, report.Skipped)
			},
		},
		{
			name: "Deve ignorar conexões de provedores sem fonte registrada",
			setup: func() {
				mockConnectionRepo.EXPECT().
					ListByOffice(gomock.Any(), "tnt_01", "off_01").
					Return([]*domain.Connection{
						{TenantID: "tnt_01", OfficeID: "off_01", Provider: domain.ProviderAuthority},
						{TenantID: "tnt_01", OfficeID: "off_01", Provider: domain.ProviderContaAzul},
					}, nil)

				mockReceipter.EXPECT().
					Record(gomock.Any(), scope, gomock.Any()).
					Return(&domain.Receipt{ReceiptID: "rcp_sync"}, nil)

				mockEventRepo.EXPECT().
					AttachReceipt(gomock.Any(), "tnt_01", "off_01", gomock.Any(), "rcp_sync").
					Return(nil)
			},
			validate: func(t *testing.T, report *domain.SyncReport, err error) {
				require.NoError(t, err)
				assert.Empty(t, report.PerProvider)
				assert.Equal(t, 0, report.Processed)
			},
		},
		{
			name: "Deve propagar falha ao listar as conexões do escritório",
			setup: func() {
				mockConnectionRepo.EXPECT().
					ListByOffice(gomock.Any(), "tnt_01", "off_01").
					Return(nil, assert.AnError)
			},
			validate: func(t *testing.T, report *domain.SyncReport, err error) {
				assert.Error(t, err)
				assert.Nil(t, report)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			connectionUpdates = nil
			cursorUpdates = nil
			attachedIDs = nil

			tt.setup()

			report, err := service.SyncOffice(context.Background(), scope)

			tt.validate(t, report, err)
		})
	}
}

func TestHandleWebhook(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEventRepo := mocks.NewMockFinanceEventRepository(ctrl)
	mockConnectionRepo := mocks.NewMockConnectionRepository(ctrl)
	mockCursorRepo := mocks.NewMockSyncCursorRepository(ctrl)
	mockReceipter := receiptmocks.NewMockReceipter(ctrl)

	pluggySource := ingestmocks.NewMockProviderSource(ctrl)
	pluggySource.EXPECT().Name().Return(domain.ProviderPluggy).AnyTimes()
	pagarmeSource := ingestmocks.NewMockProviderSource(ctrl)
	pagarmeSource.EXPECT().Name().Return(domain.ProviderPagarme).AnyTimes()

	cfg := &config.Config{
		Pluggy: config.Pluggy{WebhookSecret: "whsec_pluggy"},
		// Pagarme fica sem segredo configurado de propósito
	}

	service := ingesting.NewService(cfg, mockEventRepo, mockConnectionRepo, mockCursorRepo, mockReceipter,
		pluggySource, pagarmeSource)

	scope := domain.OfficeScope{TenantID: "tnt_01", OfficeID: "off_01"}

	payload := []byte(`{"event":"transactions/created","item_id":"item_123"}`)

	var connectionUpdates []*domain.Connection
	var recordedInputs []receipting.ReceiptInput

	tests := []struct {
		name      string
		provider  string
		signature string
		setup     func()
		validate  func(t *testing.T, result *ingesting.WebhookResult, err error)
	}{
		{
			name:      "Deve processar payload assinado pelo mesmo caminho idempotente do poll",
			provider:  domain.ProviderPluggy,
			signature: utils.SignHMAC(payload, "whsec_pluggy"),
			setup: func() {
				pluggySource.EXPECT().
					ParseWebhook(payload).
					Return([]domain.ProviderEvent{
						providerEvent("pluggy_tx_100", domain.EventTransactionPosted, "42.00"),
						providerEvent("pluggy_tx_099", domain.EventTransactionPosted, "13.00"),
					}, nil)

				// A segunda entrega já estava no ledger
				mockEventRepo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					Return(true, nil)
				mockEventRepo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					Return(false, nil)

				mockConnectionRepo.EXPECT().
					Get(gomock.Any(), "tnt_01", "off_01", domain.ProviderPluggy).
					Return(&domain.Connection{ExternalAccountID: "item_123"}, nil)
				mockConnectionRepo.EXPECT().
					Upsert(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, connection *domain.Connection) error {
						connectionUpdates = append(connectionUpdates, connection)
						return nil
					})

				mockReceipter.EXPECT().
					Record(gomock.Any(), scope, gomock.Any()).
					DoAndReturn(func(_ context.Context, _ domain.OfficeScope, input receipting.ReceiptInput) (*domain.Receipt, error) {
						recordedInputs = append(recordedInputs, input)
						return &domain.Receipt{ReceiptID: "rcp_webhook"}, nil
					})

				mockEventRepo.EXPECT().
					AttachReceipt(gomock.Any(), "tnt_01", "off_01", gomock.Any(), "rcp_webhook").
					Return(nil)
			},
			validate: func(t *testing.T, result *ingesting.WebhookResult, err error) {
				require.NoError(t, err)
				assert.Equal(t, domain.ProviderPluggy, result.Provider)
				assert.Equal(t, 1, result.Processed)
				assert.Equal(t, 1, result.Skipped)
				assert.Equal(t, "rcp_webhook", result.ReceiptID)

				// A conexão registra a atividade de webhook
				require.Len(t, connectionUpdates, 1)
				assert.NotNil(t, connectionUpdates[0].LastWebhookAt)
				assert.Equal(t, "item_123", connectionUpdates[0].ExternalAccountID)

				// O recibo guarda o hash do payload bruto
				require.Len(t, recordedInputs, 1)
				assert.Equal(t, domain.ReceiptWebhookIngest, recordedInputs[0].ActionType)
				inputs, ok := recordedInputs[0].Inputs.(map[string]any)
				require.True(t, ok)
				assert.Equal(t, utils.HashBytes(payload), inputs["payload_hash"])
			},
		},
		{
			name:      "Deve rejeitar assinatura inválida sem nenhum efeito colateral",
			provider:  domain.ProviderPluggy,
			signature: utils.SignHMAC(payload, "whsec_errado"),
			setup: func() {
				// Nenhuma expectativa nos repositórios: rejeição precisa
				// acontecer antes de qualquer gravação
			},
			validate: func(t *testing.T, result *ingesting.WebhookResult, err error) {
				assert.ErrorIs(t, err, ingesting.ErrInvalidSignature)
				assert.Nil(t, result)
			},
		},
		{
			name:      "Deve rejeitar assinatura ausente",
			provider:  domain.ProviderPluggy,
			signature: "",
			setup:     func() {},
			validate: func(t *testing.T, result *ingesting.WebhookResult, err error) {
				assert.ErrorIs(t, err, ingesting.ErrInvalidSignature)
				assert.Nil(t, result)
			},
		},
		{
			name:      "Deve rejeitar provedor sem segredo de webhook configurado",
			provider:  domain.ProviderPagarme,
			signature: utils.SignHMAC(payload, ""),
			setup:     func() {},
			validate: func(t *testing.T, result *ingesting.WebhookResult, err error) {
				assert.ErrorIs(t, err, ingesting.ErrInvalidSignature)
				assert.Nil(t, result)
			},
		},
		{
			name:      "Deve rejeitar provedor sem fonte registrada",
			provider:  "stripe",
			signature: utils.SignHMAC(payload, "whsec_pluggy"),
			setup:     func() {},
			validate: func(t *testing.T, result *ingesting.WebhookResult, err error) {
				assert.ErrorIs(t, err, ingesting.ErrUnknownProvider)
				assert.Nil(t, result)
			},
		},
		{
			name:      "Deve mapear payload que o integrador não entende",
			provider:  domain.ProviderPluggy,
			signature: utils.SignHMAC(payload, "whsec_pluggy"),
			setup: func() {
				pluggySource.EXPECT().
					ParseWebhook(payload).
					Return(nil, assert.AnError)
			},
			validate: func(t *testing.T, result *ingesting.WebhookResult, err error) {
				assert.ErrorIs(t, err, ingesting.ErrMalformedPayload)
				assert.Nil(t, result)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			connectionUpdates = nil
			recordedInputs = nil

			tt.setup()

			result, err := service.HandleWebhook(context.Background(), scope, tt.provider, tt.signature, payload)

			tt.validate(t, result, err)
		})
	}
}

func providerEvent(providerEventID, eventType, amount string) domain.ProviderEvent {
	return domain.ProviderEvent{
		ProviderEventID: providerEventID,
		EventType:       eventType,
		OccurredAt:      time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		Amount:          decimal.RequireFromString(amount),
		Currency:        "BRL",
		EntityRefs:      []string{"account:acc_01"},
		Raw:             []byte(`{"id":"` + providerEventID + `"}`),
	}
}
