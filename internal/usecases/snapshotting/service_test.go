package snapshotting

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/opsledger/finance-ledger-api/infrastructure/repository/mocks"
	"github.com/opsledger/finance-ledger-api/internal/config"
	"github.com/opsledger/finance-ledger-api/internal/domain"
	"github.com/opsledger/finance-ledger-api/internal/usecases/receipting"
	receiptmocks "github.com/opsledger/finance-ledger-api/internal/usecases/receipting/mocks"
	"github.com/opsledger/finance-ledger-api/internal/usecases/reconciling"
	"github.com/opsledger/finance-ledger-api/pkg/log"
)

func TestMain(m *testing.M) {
	log.SetupTestLogger()
	os.Exit(m.Run())
}

func newTestConfig() *config.Config {
	return &config.Config{
		Snapshot: config.Snapshot{
			MaxAgeMinutes:        5,
			ForecastLookbackDays: 14,
			ForecastHorizonDays:  7,
			ProvenanceWindowDays: 30,
		},
		Exceptions: config.Exceptions{
			CashFloor:         "10000",
			CashCriticalFloor: "2500",
			ForecastCritical:  "5000",
		},
	}
}

func TestGetSnapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEventRepo := mocks.NewMockFinanceEventRepository(ctrl)
	mockSnapshotRepo := mocks.NewMockSnapshotRepository(ctrl)
	mockConnectionRepo := mocks.NewMockConnectionRepository(ctrl)
	mockReceipter := receiptmocks.NewMockReceipter(ctrl)

	cfg := newTestConfig()
	reconciler, err := reconciling.NewService(cfg)
	require.NoError(t, err)

	service := &Service{
		cfg:                  cfg,
		eventRepository:      mockEventRepo,
		snapshotRepository:   mockSnapshotRepo,
		connectionRepository: mockConnectionRepo,
		reconciler:           reconciler,
		receipter:            mockReceipter,
	}

	ctx := context.Background()
	scope := domain.OfficeScope{TenantID: "tnt_01", OfficeID: "off_01"}

	connectedOffice := []*domain.Connection{
		providerConnection(domain.ProviderPluggy, domain.ConnectionConnected, timePtr(time.Now().UTC().Add(-3*time.Minute)), nil),
	}

	tests := []struct {
		name     string
		setup    func()
		validate func(t *testing.T, response *SnapshotResponse, err error)
	}{
		{
			name: "Deve servir o snapshot em cache dentro do orçamento de staleness",
			setup: func() {
				mockConnectionRepo.EXPECT().
					ListByOffice(gomock.Any(), "tnt_01", "off_01").
					Return(connectedOffice, nil)

				mockSnapshotRepo.EXPECT().
					GetLatest(gomock.Any(), "tnt_01", "off_01").
					Return(cachedSnapshot("snp_cached", time.Now().UTC().Add(-2*time.Minute)), nil)
			},
			validate: func(t *testing.T, response *SnapshotResponse, err error) {
				assert.NoError(t, err)
				require.NotNil(t, response)
				assert.True(t, response.Cached)
				assert.True(t, response.Connected)
				assert.Equal(t, "snp_cached", response.Snapshot.ID)
			},
		},
		{
			name: "Deve sinalizar connected falso quando nenhum provedor externo está ativo",
			setup: func() {
				mockConnectionRepo.EXPECT().
					ListByOffice(gomock.Any(), "tnt_01", "off_01").
					Return([]*domain.Connection{
						providerConnection(domain.ProviderPluggy, domain.ConnectionNeedsReauth, nil, nil),
						providerConnection(domain.ProviderAuthority, domain.ConnectionConnected, nil, nil),
					}, nil)

				mockSnapshotRepo.EXPECT().
					GetLatest(gomock.Any(), "tnt_01", "off_01").
					Return(cachedSnapshot("snp_cached", time.Now().UTC().Add(-1*time.Minute)), nil)
			},
			validate: func(t *testing.T, response *SnapshotResponse, err error) {
				assert.NoError(t, err)
				require.NotNil(t, response)
				assert.False(t, response.Connected)
				assert.True(t, response.Cached)
			},
		},
		{
			name: "Deve recomputar de forma síncrona quando o cache estourou o orçamento",
			setup: func() {
				// ComputeSnapshot relê as conexões para montar staleness
				mockConnectionRepo.EXPECT().
					ListByOffice(gomock.Any(), "tnt_01", "off_01").
					Return(connectedOffice, nil).
					Times(2)

				mockSnapshotRepo.EXPECT().
					GetLatest(gomock.Any(), "tnt_01", "off_01").
					Return(cachedSnapshot("snp_stale", time.Now().UTC().Add(-10*time.Minute)), nil)

				mockEventRepo.EXPECT().
					ListSince(gomock.Any(), "tnt_01", "off_01", gomock.Any()).
					Return(nil, nil)

				mockEventRepo.EXPECT().
					ListProposals(gomock.Any(), "tnt_01", "off_01", domain.ProposalStatusPending).
					Return(nil, nil)

				mockReceipter.EXPECT().
					Record(gomock.Any(), scope, gomock.Any()).
					Return(&domain.Receipt{ReceiptID: "rcp_snap_10"}, nil)

				mockSnapshotRepo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					Return(nil)
			},
			validate: func(t *testing.T, response *SnapshotResponse, err error) {
				assert.NoError(t, err)
				require.NotNil(t, response)
				assert.False(t, response.Cached)
				assert.True(t, strings.HasPrefix(response.Snapshot.ID, "snp_"))
				assert.NotEqual(t, "snp_stale", response.Snapshot.ID)
				assert.Equal(t, "rcp_snap_10", response.Snapshot.ReceiptID)
			},
		},
		{
			name: "Deve servir a versão antiga quando a recomputação falha",
			setup: func() {
				mockConnectionRepo.EXPECT().
					ListByOffice(gomock.Any(), "tnt_01", "off_01").
					Return(connectedOffice, nil).
					Times(2)

				mockSnapshotRepo.EXPECT().
					GetLatest(gomock.Any(), "tnt_01", "off_01").
					Return(cachedSnapshot("snp_stale", time.Now().UTC().Add(-20*time.Minute)), nil)

				mockEventRepo.EXPECT().
					ListSince(gomock.Any(), "tnt_01", "off_01", gomock.Any()).
					Return(nil, assert.AnError)
			},
			validate: func(t *testing.T, response *SnapshotResponse, err error) {
				assert.NoError(t, err)
				require.NotNil(t, response)
				assert.True(t, response.Cached)
				assert.Equal(t, "snp_stale", response.Snapshot.ID)
			},
		},
		{
			name: "Deve propagar o erro da recomputação quando não há versão antiga",
			setup: func() {
				mockConnectionRepo.EXPECT().
					ListByOffice(gomock.Any(), "tnt_01", "off_01").
					Return(connectedOffice, nil).
					Times(2)

				mockSnapshotRepo.EXPECT().
					GetLatest(gomock.Any(), "tnt_01", "off_01").
					Return(nil, nil)

				mockEventRepo.EXPECT().
					ListSince(gomock.Any(), "tnt_01", "off_01", gomock.Any()).
					Return(nil, assert.AnError)
			},
			validate: func(t *testing.T, response *SnapshotResponse, err error) {
				assert.ErrorIs(t, err, assert.AnError)
				assert.Nil(t, response)
			},
		},
		{
			name: "Deve propagar o erro da listagem de conexões",
			setup: func() {
				mockConnectionRepo.EXPECT().
					ListByOffice(gomock.Any(), "tnt_01", "off_01").
					Return(nil, assert.AnError)
			},
			validate: func(t *testing.T, response *SnapshotResponse, err error) {
				assert.ErrorIs(t, err, assert.AnError)
				assert.Nil(t, response)
			},
		},
		{
			name: "Deve propagar o erro da consulta do snapshot mais recente",
			setup: func() {
				mockConnectionRepo.EXPECT().
					ListByOffice(gomock.Any(), "tnt_01", "off_01").
					Return(connectedOffice, nil)

				mockSnapshotRepo.EXPECT().
					GetLatest(gomock.Any(), "tnt_01", "off_01").
					Return(nil, assert.AnError)
			},
			validate: func(t *testing.T, response *SnapshotResponse, err error) {
				assert.ErrorIs(t, err, assert.AnError)
				assert.Nil(t, response)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()

			response, err := service.GetSnapshot(ctx, scope)

			tt.validate(t, response, err)
		})
	}
}

func TestComputeSnapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEventRepo := mocks.NewMockFinanceEventRepository(ctrl)
	mockSnapshotRepo := mocks.NewMockSnapshotRepository(ctrl)
	mockConnectionRepo := mocks.NewMockConnectionRepository(ctrl)
	mockReceipter := receiptmocks.NewMockReceipter(ctrl)

	cfg := newTestConfig()
	reconciler, err := reconciling.NewService(cfg)
	require.NoError(t, err)

	service := &Service{
		cfg:                  cfg,
		eventRepository:      mockEventRepo,
		snapshotRepository:   mockSnapshotRepo,
		connectionRepository: mockConnectionRepo,
		reconciler:           reconciler,
		receipter:            mockReceipter,
	}

	ctx := context.Background()
	scope := domain.OfficeScope{TenantID: "tnt_01", OfficeID: "off_01"}

	now := time.Now().UTC()
	reference := now.Format("2006-01")

	balanceAt := now.Add(-10 * time.Minute)
	pluggySyncAt := now.Add(-10 * time.Minute)
	pagarmeWebhookAt := now.Add(-2 * time.Minute)
	contaazulSyncAt := now.Add(-2 * time.Hour)

	officeConnections := []*domain.Connection{
		providerConnection(domain.ProviderPluggy, domain.ConnectionConnected, timePtr(pluggySyncAt), nil),
		providerConnection(domain.ProviderPagarme, domain.ConnectionConnected, nil, timePtr(pagarmeWebhookAt)),
		providerConnection(domain.ProviderContaAzul, domain.ConnectionConnected, timePtr(contaazulSyncAt), nil),
		providerConnection(domain.ProviderConvenia, domain.ConnectionDisconnected, nil, nil),
		providerConnection(domain.ProviderAuthority, domain.ConnectionConnected, nil, nil),
	}

	var inserted *domain.Snapshot
	var recordedReceipts []receipting.ReceiptInput

	tests := []struct {
		name     string
		setup    func()
		validate func(t *testing.T, snapshot *domain.Snapshot, err error)
	}{
		{
			name: "Deve montar os cinco capítulos a partir dos eventos do ledger",
			setup: func() {
				events := []*domain.FinanceEvent{
					// Saldo mais recente de cada conta vence o anterior
					ledgerEvent("fev_bal01", domain.ProviderPluggy, domain.EventBalanceReported, balanceAt, "12000", []string{"account:acc_checking"}, nil),
					ledgerEvent("fev_bal02", domain.ProviderPluggy, domain.EventBalanceReported, now.Add(-3*time.Hour), "9000", []string{"account:acc_checking"}, nil),
					ledgerEvent("fev_bal03", domain.ProviderPluggy, domain.EventBalanceReported, now.Add(-30*time.Minute), "3000", []string{"account:acc_savings"}, nil),

					// Pendentes: um inflow, um outflow e um já liquidado pela versão lançada
					ledgerEvent("fev_pen01", domain.ProviderPluggy, domain.EventTransactionPending, now.Add(-20*time.Minute), "800", []string{"tx:tx_101"}, nil),
					ledgerEvent("fev_pen02", domain.ProviderPluggy, domain.EventTransactionPending, now.Add(-20*time.Minute), "-500", []string{"tx:tx_102"}, nil),
					ledgerEvent("fev_pen03", domain.ProviderPluggy, domain.EventTransactionPending, now.Add(-40*time.Minute), "650", []string{"tx:tx_103"}, nil),
					ledgerEvent("fev_pos01", domain.ProviderPluggy, domain.EventTransactionPosted, now.Add(-15*time.Minute), "650", []string{"tx:tx_103"}, nil),

					// Rastro do mês corrente: receita do processador e débito bancário
					ledgerEvent("fev_pos02", domain.ProviderPluggy, domain.EventTransactionPosted, now.Add(-6*time.Minute), "-350", []string{"tx:tx_104"}, nil),
					ledgerEvent("fev_pay01", domain.ProviderPagarme, domain.EventPaymentReceived, now.Add(-4*time.Minute), "2500", []string{"payment:pay_601"}, nil),

					// Forecast: fatura aberta, fatura paga, repasse em trânsito e folha agendada
					ledgerEvent("fev_inv01", domain.ProviderContaAzul, domain.EventInvoiceIssued, now.AddDate(0, 0, -2), "2000", []string{"invoice:inv_501"},
						map[string]any{"due_date": now.AddDate(0, 0, 3).Format(time.DateOnly)}),
					ledgerEvent("fev_inv02", domain.ProviderContaAzul, domain.EventInvoiceIssued, now.AddDate(0, 0, -3), "1200", []string{"invoice:inv_502"}, nil),
					ledgerEvent("fev_inv03", domain.ProviderContaAzul, domain.EventInvoicePaid, now.AddDate(0, 0, -1), "1200", []string{"invoice:inv_502"}, nil),
					ledgerEvent("fev_out01", domain.ProviderPagarme, domain.EventPayoutConfirmed, now.AddDate(0, 0, -1), "3000", []string{"transfer:pt_801"}, nil),
					ledgerEvent("fev_prl01", domain.ProviderConvenia, domain.EventPayrollRunScheduled, now.AddDate(0, 0, 2), "-4500", []string{"payroll:pr_901"}, nil),
				}

				mockConnectionRepo.EXPECT().
					ListByOffice(gomock.Any(), "tnt_01", "off_01").
					Return(officeConnections, nil)

				mockEventRepo.EXPECT().
					ListSince(gomock.Any(), "tnt_01", "off_01", gomock.Any()).
					Return(events, nil)

				proposal := ledgerEvent("fev_prop01", domain.ProviderAuthority, domain.EventProposalCreated, now.Add(-1*time.Hour), "1800", nil,
					map[string]any{
						"title":             "Liberar pagamento do fornecedor",
						"action_type":       domain.ProposalActionPaymentRelease,
						"risk_tier":         domain.RiskTierLow,
						"required_approval": true,
						"inputs_hash":       "1f4a9c",
						"correlation_id":    "corr_abc",
					})
				proposal.Status = domain.ProposalStatusPending
				proposal.CreatedAt = now.Add(-1 * time.Hour)

				// Metadata ilegível não derruba o capítulo, só sai da lista
				broken := ledgerEvent("fev_prop02", domain.ProviderAuthority, domain.EventProposalCreated, now.Add(-2*time.Hour), "0", nil,
					map[string]any{"title": 42})
				broken.Status = domain.ProposalStatusPending

				mockEventRepo.EXPECT().
					ListProposals(gomock.Any(), "tnt_01", "off_01", domain.ProposalStatusPending).
					Return([]*domain.FinanceEvent{proposal, broken}, nil)

				mockReceipter.EXPECT().
					Record(gomock.Any(), scope, gomock.Any()).
					DoAndReturn(func(_ context.Context, _ domain.OfficeScope, input receipting.ReceiptInput) (*domain.Receipt, error) {
						recordedReceipts = append(recordedReceipts, input)
						return &domain.Receipt{ReceiptID: "rcp_snap_01"}, nil
					})

				mockSnapshotRepo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, snapshot *domain.Snapshot) error {
						inserted = snapshot
						return nil
					})
			},
			validate: func(t *testing.T, snapshot *domain.Snapshot, err error) {
				require.NoError(t, err)
				require.NotNil(t, snapshot)
				assert.True(t, strings.HasPrefix(snapshot.ID, "snp_"))
				assert.Equal(t, "tnt_01", snapshot.TenantID)
				assert.Equal(t, "off_01", snapshot.OfficeID)

				// now: saldos mais recentes somados, pendente liquidado fora
				assert.Equal(t, "15000", snapshot.Now.CashPosition.String())
				assert.Equal(t, "BRL", snapshot.Now.Currency)
				assert.Equal(t, "800", snapshot.Now.PendingInflow.String())
				assert.Equal(t, "500", snapshot.Now.PendingOutflow.String())
				require.NotNil(t, snapshot.Now.BalanceAsOf)
				assert.True(t, snapshot.Now.BalanceAsOf.Equal(balanceAt))
				assert.Equal(t, domain.ConfidenceMedium, snapshot.Now.Confidence)

				// next: fatura aberta e repasse entram, fatura paga sai
				assert.Equal(t, 7, snapshot.Next.HorizonDays)
				assert.Equal(t, "5000", snapshot.Next.Inflow.String())
				assert.Equal(t, "4500", snapshot.Next.Outflow.String())
				assert.Equal(t, "500", snapshot.Next.NetChange.String())
				assert.Equal(t, "15500", snapshot.Next.ProjectedBalance.String())
				require.Len(t, snapshot.Next.Components, 3)
				assert.Equal(t, domain.ComponentExpectedInvoice, snapshot.Next.Components[0].Kind)
				assert.Equal(t, "invoice:inv_501", snapshot.Next.Components[0].EntityRef)
				assert.Equal(t, "Recebimento previsto da fatura inv_501", snapshot.Next.Components[0].Label)
				assert.Equal(t, domain.ComponentPayoutInTransit, snapshot.Next.Components[1].Kind)
				assert.Equal(t, "3000", snapshot.Next.Components[1].Amount.String())
				assert.Equal(t, domain.ComponentScheduledPayroll, snapshot.Next.Components[2].Kind)
				assert.Equal(t, "4500", snapshot.Next.Components[2].Amount.String())

				// month: sem fechamento do ERP, soma o rastro bruto
				assert.Equal(t, reference, snapshot.Month.Reference)
				assert.Equal(t, domain.MonthSourceRaw, snapshot.Month.Source)
				assert.Equal(t, "2500", snapshot.Month.Revenue.String())
				assert.Equal(t, "350", snapshot.Month.Expenses.String())
				assert.Equal(t, "2150", snapshot.Month.Net.String())

				// reconcile: repasse ainda dentro da janela, nada a apontar
				assert.Empty(t, snapshot.Reconcile.Exceptions)
				assert.Zero(t, snapshot.Reconcile.OpenCount)

				// actions: proposta legível listada, heurísticas sem disparo
				require.Len(t, snapshot.Actions.PendingProposals, 1)
				assert.Equal(t, "fev_prop01", snapshot.Actions.PendingProposals[0].ID)
				assert.Equal(t, "Liberar pagamento do fornecedor", snapshot.Actions.PendingProposals[0].Title)
				assert.Equal(t, domain.ProposalActionPaymentRelease, snapshot.Actions.PendingProposals[0].ActionType)
				assert.Equal(t, domain.RiskTierLow, snapshot.Actions.PendingProposals[0].RiskTier)
				assert.Equal(t, "1800", snapshot.Actions.PendingProposals[0].Amount.String())
				assert.Empty(t, snapshot.Actions.Candidates)

				// Proveniência na ordem das métricas explicáveis
				require.Len(t, snapshot.Provenance, len(domain.ExplainableMetrics))
				assert.Equal(t, domain.MetricCashPosition, snapshot.Provenance[0].MetricID)
				assert.Equal(t, []string{domain.ProviderPluggy}, snapshot.Provenance[0].Providers)
				assert.Equal(t, domain.ConfidenceMedium, snapshot.Provenance[0].Confidence)

				forecast := snapshot.Provenance[3]
				assert.Equal(t, domain.MetricProjectedBalance7d, forecast.MetricID)
				assert.Equal(t, []string{domain.ProviderContaAzul, domain.ProviderConvenia, domain.ProviderPagarme}, forecast.Providers)
				require.NotNil(t, forecast.FreshestSyncAt)
				assert.True(t, forecast.FreshestSyncAt.Equal(pagarmeWebhookAt))
				assert.Equal(t, domain.ConfidenceHigh, forecast.Confidence)

				// Staleness por provedor externo, em ordem alfabética
				require.Len(t, snapshot.Staleness, 4)
				assert.Equal(t, domain.ProviderContaAzul, snapshot.Staleness[0].Provider)
				assert.Equal(t, domain.StalenessVeryStale, snapshot.Staleness[0].Bucket)
				assert.Equal(t, domain.ProviderConvenia, snapshot.Staleness[1].Provider)
				assert.Equal(t, domain.StalenessOffline, snapshot.Staleness[1].Bucket)
				assert.False(t, snapshot.Staleness[1].Connected)
				assert.Nil(t, snapshot.Staleness[1].LastDataAt)
				assert.Equal(t, domain.ProviderPagarme, snapshot.Staleness[2].Provider)
				assert.Equal(t, domain.StalenessFresh, snapshot.Staleness[2].Bucket)
				assert.Equal(t, domain.ProviderPluggy, snapshot.Staleness[3].Provider)
				assert.Equal(t, domain.StalenessStale, snapshot.Staleness[3].Bucket)

				// Recibo do cálculo e persistência
				assert.Equal(t, "rcp_snap_01", snapshot.ReceiptID)
				require.NotNil(t, inserted)
				assert.Equal(t, snapshot.ID, inserted.ID)

				require.Len(t, recordedReceipts, 1)
				assert.Equal(t, domain.ReceiptSnapshotCompute, recordedReceipts[0].ActionType)
				inputs, ok := recordedReceipts[0].Inputs.(map[string]any)
				require.True(t, ok)
				assert.Equal(t, TriggerScheduled, inputs["trigger"])
				assert.Equal(t, 5, inputs["connections"])
				assert.Equal(t, 14, inputs["events_scanned"])
				outputs, ok := recordedReceipts[0].Outputs.(map[string]any)
				require.True(t, ok)
				assert.Equal(t, 0, outputs["exception_count"])
				assert.Equal(t, 1, outputs["pending_proposals"])
			},
		},
		{
			name: "Deve consolidar o mês pelo period_report e apontar divergência contra o banco",
			setup: func() {
				events := []*domain.FinanceEvent{
					ledgerEvent("fev_bal04", domain.ProviderPluggy, domain.EventBalanceReported, now.Add(-2*time.Minute), "20000", []string{"account:acc_checking"}, nil),
					ledgerEvent("fev_rep01", domain.ProviderContaAzul, domain.EventPeriodReport, now.Add(-1*time.Hour), "0", []string{"period:" + reference},
						map[string]any{"reference": reference, "revenue": "30000", "expenses": "22000", "net": "8000"}),
				}

				mockConnectionRepo.EXPECT().
					ListByOffice(gomock.Any(), "tnt_01", "off_01").
					Return(officeConnections, nil)

				mockEventRepo.EXPECT().
					ListSince(gomock.Any(), "tnt_01", "off_01", gomock.Any()).
					Return(events, nil)

				mockEventRepo.EXPECT().
					ListProposals(gomock.Any(), "tnt_01", "off_01", domain.ProposalStatusPending).
					Return(nil, nil)

				mockReceipter.EXPECT().
					Record(gomock.Any(), scope, gomock.Any()).
					Return(&domain.Receipt{ReceiptID: "rcp_snap_02"}, nil)

				mockSnapshotRepo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					Return(nil)
			},
			validate: func(t *testing.T, snapshot *domain.Snapshot, err error) {
				require.NoError(t, err)
				require.NotNil(t, snapshot)

				assert.Equal(t, domain.MonthSourceReport, snapshot.Month.Source)
				assert.Equal(t, "30000", snapshot.Month.Revenue.String())
				assert.Equal(t, "22000", snapshot.Month.Expenses.String())
				assert.Equal(t, "8000", snapshot.Month.Net.String())

				// Fechamento de 30000 sem nenhuma entrada bancária no mês
				require.Len(t, snapshot.Reconcile.Exceptions, 1)
				exception := snapshot.Reconcile.Exceptions[0]
				assert.Equal(t, domain.ExceptionCashVsBooks, exception.Type)
				assert.Equal(t, domain.SeverityCritical, exception.Severity)
				assert.Equal(t, domain.ActionAuditBooks, exception.RecommendedAction)
				assert.Equal(t, "0", exception.Evidence["bank_total"])
				assert.Equal(t, "30000", exception.Evidence["books_revenue"])
				assert.Equal(t, 1, snapshot.Reconcile.OpenCount)

				assert.Equal(t, "20000", snapshot.Now.CashPosition.String())
				assert.Equal(t, domain.ConfidenceHigh, snapshot.Now.Confidence)
				assert.Empty(t, snapshot.Actions.Candidates)
			},
		},
		{
			name: "Deve seguir sem recibo quando a gravação do recibo falha",
			setup: func() {
				mockConnectionRepo.EXPECT().
					ListByOffice(gomock.Any(), "tnt_01", "off_01").
					Return(nil, nil)

				mockEventRepo.EXPECT().
					ListSince(gomock.Any(), "tnt_01", "off_01", gomock.Any()).
					Return(nil, nil)

				mockEventRepo.EXPECT().
					ListProposals(gomock.Any(), "tnt_01", "off_01", domain.ProposalStatusPending).
					Return(nil, nil)

				mockReceipter.EXPECT().
					Record(gomock.Any(), scope, gomock.Any()).
					Return(nil, assert.AnError)

				mockSnapshotRepo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, snapshot *domain.Snapshot) error {
						inserted = snapshot
						return nil
					})
			},
			validate: func(t *testing.T, snapshot *domain.Snapshot, err error) {
				require.NoError(t, err)
				require.NotNil(t, snapshot)
				assert.Empty(t, snapshot.ReceiptID)
				require.NotNil(t, inserted)
				assert.Empty(t, inserted.ReceiptID)
			},
		},
		{
			name: "Deve falhar quando o snapshot não pode ser persistido",
			setup: func() {
				mockConnectionRepo.EXPECT().
					ListByOffice(gomock.Any(), "tnt_01", "off_01").
					Return(nil, nil)

				mockEventRepo.EXPECT().
					ListSince(gomock.Any(), "tnt_01", "off_01", gomock.Any()).
					Return(nil, nil)

				mockEventRepo.EXPECT().
					ListProposals(gomock.Any(), "tnt_01", "off_01", domain.ProposalStatusPending).
					Return(nil, nil)

				mockReceipter.EXPECT().
					Record(gomock.Any(), scope, gomock.Any()).
					Return(&domain.Receipt{ReceiptID: "rcp_snap_04"}, nil)

				mockSnapshotRepo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					Return(assert.AnError)
			},
			validate: func(t *testing.T, snapshot *domain.Snapshot, err error) {
				assert.ErrorIs(t, err, assert.AnError)
				assert.Nil(t, snapshot)
			},
		},
		{
			name: "Deve propagar o erro da listagem de propostas pendentes",
			setup: func() {
				mockConnectionRepo.EXPECT().
					ListByOffice(gomock.Any(), "tnt_01", "off_01").
					Return(nil, nil)

				mockEventRepo.EXPECT().
					ListSince(gomock.Any(), "tnt_01", "off_01", gomock.Any()).
					Return(nil, nil)

				mockEventRepo.EXPECT().
					ListProposals(gomock.Any(), "tnt_01", "off_01", domain.ProposalStatusPending).
					Return(nil, assert.AnError)
			},
			validate: func(t *testing.T, snapshot *domain.Snapshot, err error) {
				assert.ErrorIs(t, err, assert.AnError)
				assert.Nil(t, snapshot)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inserted = nil
			recordedReceipts = nil
			tt.setup()

			snapshot, err := service.ComputeSnapshot(ctx, scope, TriggerScheduled)

			tt.validate(t, snapshot, err)
		})
	}
}

func TestComputeSnapshotDeterminism(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEventRepo := mocks.NewMockFinanceEventRepository(ctrl)
	mockSnapshotRepo := mocks.NewMockSnapshotRepository(ctrl)
	mockConnectionRepo := mocks.NewMockConnectionRepository(ctrl)
	mockReceipter := receiptmocks.NewMockReceipter(ctrl)

	cfg := newTestConfig()
	reconciler, err := reconciling.NewService(cfg)
	require.NoError(t, err)

	service := &Service{
		cfg:                  cfg,
		eventRepository:      mockEventRepo,
		snapshotRepository:   mockSnapshotRepo,
		connectionRepository: mockConnectionRepo,
		reconciler:           reconciler,
		receipter:            mockReceipter,
	}

	ctx := context.Background()
	scope := domain.OfficeScope{TenantID: "tnt_01", OfficeID: "off_01"}

	now := time.Now().UTC()
	connections := []*domain.Connection{
		providerConnection(domain.ProviderPluggy, domain.ConnectionConnected, timePtr(now.Add(-10*time.Minute)), nil),
		providerConnection(domain.ProviderPagarme, domain.ConnectionConnected, timePtr(now.Add(-20*time.Minute)), nil),
		providerConnection(domain.ProviderContaAzul, domain.ConnectionConnected, timePtr(now.Add(-2*time.Hour)), nil),
	}
	events := []*domain.FinanceEvent{
		ledgerEvent("fev_det01", domain.ProviderPluggy, domain.EventBalanceReported, now.Add(-10*time.Minute), "18000", []string{"account:acc_checking"}, nil),
		ledgerEvent("fev_det02", domain.ProviderPluggy, domain.EventTransactionPending, now.Add(-30*time.Minute), "700", []string{"tx:tx_201"}, nil),
		ledgerEvent("fev_det03", domain.ProviderContaAzul, domain.EventInvoiceIssued, now.AddDate(0, 0, -1), "2600", []string{"invoice:inv_701"},
			map[string]any{"due_date": now.AddDate(0, 0, 4).Format(time.DateOnly)}),
		ledgerEvent("fev_det04", domain.ProviderPagarme, domain.EventPaymentReceived, now.Add(-50*time.Minute), "1400", []string{"payment:pay_701"}, nil),
	}

	mockConnectionRepo.EXPECT().
		ListByOffice(gomock.Any(), "tnt_01", "off_01").
		Return(connections, nil).
		Times(2)
	mockEventRepo.EXPECT().
		ListSince(gomock.Any(), "tnt_01", "off_01", gomock.Any()).
		Return(events, nil).
		Times(2)
	mockEventRepo.EXPECT().
		ListProposals(gomock.Any(), "tnt_01", "off_01", domain.ProposalStatusPending).
		Return(nil, nil).
		Times(2)
	mockReceipter.EXPECT().
		Record(gomock.Any(), scope, gomock.Any()).
		Return(&domain.Receipt{ReceiptID: "rcp_det"}, nil).
		Times(2)
	mockSnapshotRepo.EXPECT().
		Insert(gomock.Any(), gomock.Any()).
		Return(nil).
		Times(2)

	// Mesmo conjunto de eventos e conexões, sem ingestão entre os cálculos
	first, err := service.ComputeSnapshot(ctx, scope, TriggerOnDemand)
	require.NoError(t, err)
	second, err := service.ComputeSnapshot(ctx, scope, TriggerOnDemand)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.Now, second.Now)
	assert.Equal(t, first.Next, second.Next)
	assert.Equal(t, first.Month, second.Month)
	assert.Equal(t, first.Reconcile, second.Reconcile)
	assert.Equal(t, first.Actions, second.Actions)
	assert.Equal(t, first.Provenance, second.Provenance)
	assert.Equal(t, first.Staleness, second.Staleness)
}

func TestGetExceptions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEventRepo := mocks.NewMockFinanceEventRepository(ctrl)
	mockSnapshotRepo := mocks.NewMockSnapshotRepository(ctrl)
	mockConnectionRepo := mocks.NewMockConnectionRepository(ctrl)
	mockReceipter := receiptmocks.NewMockReceipter(ctrl)

	cfg := newTestConfig()
	reconciler, err := reconciling.NewService(cfg)
	require.NoError(t, err)

	service := &Service{
		cfg:                  cfg,
		eventRepository:      mockEventRepo,
		snapshotRepository:   mockSnapshotRepo,
		connectionRepository: mockConnectionRepo,
		reconciler:           reconciler,
		receipter:            mockReceipter,
	}

	ctx := context.Background()
	scope := domain.OfficeScope{TenantID: "tnt_01", OfficeID: "off_01"}

	connectedOffice := []*domain.Connection{
		providerConnection(domain.ProviderPluggy, domain.ConnectionConnected, timePtr(time.Now().UTC().Add(-3*time.Minute)), nil),
	}

	var recordedReceipts []receipting.ReceiptInput

	tests := []struct {
		name     string
		setup    func()
		validate func(t *testing.T, report *ExceptionsReport, err error)
	}{
		{
			name: "Deve aplicar o piso de caixa sobre o snapshot corrente e receitar a leitura",
			setup: func() {
				snapshot := &domain.Snapshot{
					ID:          "snp_exc",
					TenantID:    "tnt_01",
					OfficeID:    "off_01",
					GeneratedAt: time.Now().UTC().Add(-1 * time.Minute),
					Now:         domain.NowChapter{CashPosition: decimal.NewFromInt(9000)},
					Next: domain.NextChapter{
						NetChange:        decimal.NewFromInt(1000),
						ProjectedBalance: decimal.NewFromInt(10000),
					},
				}

				mockConnectionRepo.EXPECT().
					ListByOffice(gomock.Any(), "tnt_01", "off_01").
					Return(connectedOffice, nil)

				mockSnapshotRepo.EXPECT().
					GetLatest(gomock.Any(), "tnt_01", "off_01").
					Return(snapshot, nil)

				mockReceipter.EXPECT().
					Record(gomock.Any(), scope, gomock.Any()).
					DoAndReturn(func(_ context.Context, _ domain.OfficeScope, input receipting.ReceiptInput) (*domain.Receipt, error) {
						recordedReceipts = append(recordedReceipts, input)
						return &domain.Receipt{ReceiptID: "rcp_exc_01"}, nil
					})
			},
			validate: func(t *testing.T, report *ExceptionsReport, err error) {
				require.NoError(t, err)
				require.NotNil(t, report)
				require.Len(t, report.Exceptions, 1)
				assert.Equal(t, domain.ExceptionLowCashBuffer, report.Exceptions[0].Type)
				assert.Equal(t, domain.SeverityWarn, report.Exceptions[0].Severity)
				assert.Equal(t, "rcp_exc_01", report.ReceiptID)
				assert.WithinDuration(t, time.Now().UTC(), report.AsOf, 5*time.Second)

				require.Len(t, recordedReceipts, 1)
				assert.Equal(t, domain.ReceiptExceptionsRead, recordedReceipts[0].ActionType)
				inputs, ok := recordedReceipts[0].Inputs.(map[string]any)
				require.True(t, ok)
				assert.Equal(t, "snp_exc", inputs["snapshot_id"])
				outputs, ok := recordedReceipts[0].Outputs.(map[string]any)
				require.True(t, ok)
				assert.Equal(t, 1, outputs["exception_count"])
			},
		},
		{
			name: "Deve devolver o relatório mesmo quando o recibo da leitura falha",
			setup: func() {
				snapshot := &domain.Snapshot{
					ID:          "snp_exc2",
					TenantID:    "tnt_01",
					OfficeID:    "off_01",
					GeneratedAt: time.Now().UTC().Add(-1 * time.Minute),
					Now:         domain.NowChapter{CashPosition: decimal.NewFromInt(50000)},
					Next: domain.NextChapter{
						NetChange:        decimal.NewFromInt(2000),
						ProjectedBalance: decimal.NewFromInt(52000),
					},
					Reconcile: domain.ReconcileChapter{
						Exceptions: []domain.Exception{
							{
								ID:                "exc_legacy01",
								Type:              domain.ExceptionSettlementTiming,
								Severity:          domain.SeverityWarn,
								Summary:           "Repasse de 3000.00 sem depósito correspondente em 3 dias",
								RecommendedAction: domain.ActionReviewSettlement,
							},
						},
						OpenCount: 1,
					},
				}

				mockConnectionRepo.EXPECT().
					ListByOffice(gomock.Any(), "tnt_01", "off_01").
					Return(connectedOffice, nil)

				mockSnapshotRepo.EXPECT().
					GetLatest(gomock.Any(), "tnt_01", "off_01").
					Return(snapshot, nil)

				mockReceipter.EXPECT().
					Record(gomock.Any(), scope, gomock.Any()).
					Return(nil, assert.AnError)
			},
			validate: func(t *testing.T, report *ExceptionsReport, err error) {
				require.NoError(t, err)
				require.NotNil(t, report)
				require.Len(t, report.Exceptions, 1)
				assert.Equal(t, domain.ExceptionSettlementTiming, report.Exceptions[0].Type)
				assert.Empty(t, report.ReceiptID)
			},
		},
		{
			name: "Deve propagar a falha do snapshot",
			setup: func() {
				mockConnectionRepo.EXPECT().
					ListByOffice(gomock.Any(), "tnt_01", "off_01").
					Return(nil, assert.AnError)
			},
			validate: func(t *testing.T, report *ExceptionsReport, err error) {
				assert.ErrorIs(t, err, assert.AnError)
				assert.Nil(t, report)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recordedReceipts = nil
			tt.setup()

			report, err := service.GetExceptions(ctx, scope)

			tt.validate(t, report, err)
		})
	}
}

func ledgerEvent(id, provider, eventType string, occurredAt time.Time, amount string, refs []string, metadata map[string]any) *domain.FinanceEvent {
	return &domain.FinanceEvent{
		ID:         id,
		TenantID:   "tnt_01",
		OfficeID:   "off_01",
		Provider:   provider,
		EventType:  eventType,
		OccurredAt: occurredAt,
		Amount:     decimal.RequireFromString(amount),
		Currency:   "BRL",
		Status:     domain.EventStatusRecorded,
		EntityRefs: refs,
		Metadata:   metadata,
	}
}

func providerConnection(provider, status string, lastSyncAt, lastWebhookAt *time.Time) *domain.Connection {
	return &domain.Connection{
		TenantID:      "tnt_01",
		OfficeID:      "off_01",
		Provider:      provider,
		Status:        status,
		LastSyncAt:    lastSyncAt,
		LastWebhookAt: lastWebhookAt,
	}
}

func cachedSnapshot(id string, generatedAt time.Time) *domain.Snapshot {
	return &domain.Snapshot{
		ID:          id,
		TenantID:    "tnt_01",
		OfficeID:    "off_01",
		GeneratedAt: generatedAt,
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
