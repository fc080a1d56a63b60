package authority

import (
	"context"
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
)

func TestCreateProposal(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEventRepo := mocks.NewMockFinanceEventRepository(ctrl)
	mockReceipter := receiptmocks.NewMockReceipter(ctrl)

	service := &Service{
		cfg:             &config.Config{},
		eventRepository: mockEventRepo,
		receipter:       mockReceipter,
	}

	ctx := context.Background()
	scope := domain.OfficeScope{TenantID: "tnt_01", OfficeID: "off_01"}

	var insertedEvents []*domain.FinanceEvent
	var recordedReceipts []receipting.ReceiptInput
	var attachedIDs []string

	tests := []struct {
		name     string
		input    CreateProposalInput
		setup    func()
		validate func(t *testing.T, result *ProposalResult, err error)
	}{
		{
			name: "Deve criar uma proposta pendente com recibo anexado",
			input: CreateProposalInput{
				Title:         "Pagar fornecedor de TI",
				ActionType:    domain.ProposalActionPaymentRelease,
				Amount:        decimal.NewFromInt(4500),
				CorrelationID: "corr_create_01",
			},
			setup: func() {
				mockEventRepo.EXPECT().
					GetProposalByCorrelationID(gomock.Any(), "tnt_01", "off_01", "corr_create_01").
					Return(nil, nil)

				mockEventRepo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, event *domain.FinanceEvent) (bool, error) {
						insertedEvents = append(insertedEvents, event)
						return true, nil
					})

				mockReceipter.EXPECT().
					Record(gomock.Any(), scope, gomock.Any()).
					DoAndReturn(func(_ context.Context, _ domain.OfficeScope, input receipting.ReceiptInput) (*domain.Receipt, error) {
						recordedReceipts = append(recordedReceipts, input)
						return &domain.Receipt{ReceiptID: "rcp_prop_01"}, nil
					})

				mockEventRepo.EXPECT().
					AttachReceipt(gomock.Any(), "tnt_01", "off_01", gomock.Any(), "rcp_prop_01").
					DoAndReturn(func(_ context.Context, _, _ string, eventIDs []string, _ string) error {
						attachedIDs = append(attachedIDs, eventIDs...)
						return nil
					})
			},
			validate: func(t *testing.T, result *ProposalResult, err error) {
				require.NoError(t, err)
				require.NotNil(t, result)
				assert.False(t, result.Replayed)
				assert.Equal(t, "rcp_prop_01", result.ReceiptID)
				assert.Equal(t, domain.ProposalStatusPending, result.Proposal.Status)
				assert.Equal(t, "Pagar fornecedor de TI", result.Proposal.Meta.Title)
				assert.Equal(t, domain.DeclaredTierDefault, result.Proposal.Meta.RiskTier)
				assert.True(t, result.Proposal.Meta.RequiredApproval)
				assert.Equal(t, "corr_create_01", result.Proposal.Meta.CorrelationID)
				assert.Equal(t, "4500", result.Proposal.Amount.String())

				require.Len(t, insertedEvents, 1)
				event := insertedEvents[0]
				assert.Equal(t, domain.ProviderAuthority, event.Provider)
				assert.Equal(t, domain.EventProposalCreated, event.EventType)
				assert.Equal(t, "proposal:corr_create_01", event.ProviderEventID)
				assert.True(t, strings.HasPrefix(event.ID, "prp_"))
				assert.Equal(t, []string{"proposal:" + event.ID}, event.EntityRefs)
				assert.NotEmpty(t, event.RawHash)

				require.Len(t, recordedReceipts, 1)
				assert.Equal(t, domain.ReceiptProposalCreate, recordedReceipts[0].ActionType)
				assert.Equal(t, []string{event.ID}, attachedIDs)
			},
		},
		{
			name: "Deve normalizar título, faixa declarada e moeda ausentes",
			input: CreateProposalInput{
				ActionType: domain.ProposalActionTransfer,
				Amount:     decimal.NewFromInt(700),
			},
			setup: func() {
				// Sem correlation id no contexto a consulta prévia é pulada
				mockEventRepo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, event *domain.FinanceEvent) (bool, error) {
						insertedEvents = append(insertedEvents, event)
						return true, nil
					})

				mockReceipter.EXPECT().
					Record(gomock.Any(), scope, gomock.Any()).
					Return(&domain.Receipt{ReceiptID: "rcp_prop_02"}, nil)

				mockEventRepo.EXPECT().
					AttachReceipt(gomock.Any(), "tnt_01", "off_01", gomock.Any(), "rcp_prop_02").
					Return(nil)
			},
			validate: func(t *testing.T, result *ProposalResult, err error) {
				require.NoError(t, err)
				assert.Equal(t, domain.ProposalActionTransfer, result.Proposal.Meta.Title)
				assert.Equal(t, domain.ProposalActionTransfer, result.Proposal.Meta.ActionType)
				assert.Equal(t, domain.DeclaredTierDefault, result.Proposal.Meta.RiskTier)
				assert.Equal(t, "BRL", result.Proposal.Currency)

				require.Len(t, insertedEvents, 1)
				assert.Equal(t, "proposal:"+insertedEvents[0].ID, insertedEvents[0].ProviderEventID)
			},
		},
		{
			name: "Deve repetir a proposta existente para o mesmo correlation id",
			input: CreateProposalInput{
				Title:         "Pagar fornecedor de TI",
				Amount:        decimal.NewFromInt(4500),
				CorrelationID: "corr_create_01",
			},
			setup: func() {
				existing := proposalEvent("prp_existing01", domain.ProposalStatusPending, "4500")
				existing.ReceiptID = stringPtr("rcp_prev")

				mockEventRepo.EXPECT().
					GetProposalByCorrelationID(gomock.Any(), "tnt_01", "off_01", "corr_create_01").
					Return(existing, nil)
			},
			validate: func(t *testing.T, result *ProposalResult, err error) {
				require.NoError(t, err)
				assert.True(t, result.Replayed)
				assert.Equal(t, "rcp_prev", result.ReceiptID)
				assert.Equal(t, "prp_existing01", result.Proposal.ID)
				assert.Empty(t, insertedEvents)
			},
		},
		{
			name: "Deve convergir para a proposta vencedora quando a inserção colide",
			input: CreateProposalInput{
				Title:         "Transferir reserva",
				Amount:        decimal.NewFromInt(1200),
				CorrelationID: "corr_race",
			},
			setup: func() {
				mockEventRepo.EXPECT().
					GetProposalByCorrelationID(gomock.Any(), "tnt_01", "off_01", "corr_race").
					Return(nil, nil)

				mockEventRepo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					Return(false, nil)

				winner := proposalEvent("prp_winner01", domain.ProposalStatusPending, "1200")
				winner.ReceiptID = stringPtr("rcp_winner")

				mockEventRepo.EXPECT().
					GetByProviderEventID(gomock.Any(), "tnt_01", "off_01", domain.ProviderAuthority, "proposal:corr_race").
					Return(winner, nil)
			},
			validate: func(t *testing.T, result *ProposalResult, err error) {
				require.NoError(t, err)
				assert.True(t, result.Replayed)
				assert.Equal(t, "prp_winner01", result.Proposal.ID)
				assert.Equal(t, "rcp_winner", result.ReceiptID)
			},
		},
		{
			name:  "Deve exigir título ou tipo de ação",
			input: CreateProposalInput{Amount: decimal.NewFromInt(100)},
			setup: func() {},
			validate: func(t *testing.T, result *ProposalResult, err error) {
				assert.ErrorIs(t, err, ErrMissingTitle)
				assert.Nil(t, result)
			},
		},
		{
			name: "Deve falhar de forma explícita quando o recibo não pode ser gravado",
			input: CreateProposalInput{
				Title:         "Pagar fornecedor de TI",
				Amount:        decimal.NewFromInt(4500),
				CorrelationID: "corr_create_02",
			},
			setup: func() {
				mockEventRepo.EXPECT().
					GetProposalByCorrelationID(gomock.Any(), "tnt_01", "off_01", "corr_create_02").
					Return(nil, nil)

				mockEventRepo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					Return(true, nil)

				mockReceipter.EXPECT().
					Record(gomock.Any(), scope, gomock.Any()).
					Return(nil, assert.AnError)
			},
			validate: func(t *testing.T, result *ProposalResult, err error) {
				assert.ErrorIs(t, err, ErrReceiptUnavailable)
				assert.Nil(t, result)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			insertedEvents = nil
			recordedReceipts = nil
			attachedIDs = nil
			tt.setup()

			result, err := service.CreateProposal(ctx, scope, tt.input)

			tt.validate(t, result, err)
		})
	}
}

func TestApprove(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEventRepo := mocks.NewMockFinanceEventRepository(ctrl)
	mockReceipter := receiptmocks.NewMockReceipter(ctrl)

	service := &Service{
		cfg:             &config.Config{},
		eventRepository: mockEventRepo,
		receipter:       mockReceipter,
	}

	ctx := context.Background()
	scope := domain.OfficeScope{TenantID: "tnt_01", OfficeID: "off_01"}

	var statusPatches []map[string]any
	var recordedReceipts []receipting.ReceiptInput

	tests := []struct {
		name     string
		setup    func()
		validate func(t *testing.T, result *TransitionResult, err error)
	}{
		{
			name: "Deve aprovar uma proposta pendente com recibo",
			setup: func() {
				mockEventRepo.EXPECT().
					GetByID(gomock.Any(), "tnt_01", "off_01", "prp_01").
					Return(proposalEvent("prp_01", domain.ProposalStatusPending, "4500"), nil)

				mockEventRepo.EXPECT().
					UpdateProposalStatus(gomock.Any(), "tnt_01", "off_01", "prp_01", domain.ProposalStatusPending, domain.ProposalStatusApproved, gomock.Any()).
					DoAndReturn(func(_ context.Context, _, _, _, _, _ string, patch map[string]any) (bool, error) {
						statusPatches = append(statusPatches, patch)
						return true, nil
					})

				mockReceipter.EXPECT().
					Record(gomock.Any(), scope, gomock.Any()).
					DoAndReturn(func(_ context.Context, _ domain.OfficeScope, input receipting.ReceiptInput) (*domain.Receipt, error) {
						recordedReceipts = append(recordedReceipts, input)
						return &domain.Receipt{ReceiptID: "rcp_appr_01"}, nil
					})

				mockEventRepo.EXPECT().
					AttachReceipt(gomock.Any(), "tnt_01", "off_01", []string{"prp_01"}, "rcp_appr_01").
					Return(nil)
			},
			validate: func(t *testing.T, result *TransitionResult, err error) {
				require.NoError(t, err)
				assert.True(t, result.Changed)
				assert.Equal(t, "rcp_appr_01", result.ReceiptID)
				assert.Equal(t, domain.ProposalStatusApproved, result.Proposal.Status)
				assert.Equal(t, "ana@office", result.Proposal.Meta.ApprovedBy)

				require.Len(t, statusPatches, 1)
				assert.Equal(t, "ana@office", statusPatches[0]["approved_by"])
				assert.NotEmpty(t, statusPatches[0]["approved_at"])

				require.Len(t, recordedReceipts, 1)
				assert.Equal(t, domain.ReceiptProposalApprove, recordedReceipts[0].ActionType)
			},
		},
		{
			name: "Deve tratar a reaprovação como no-op sem novo recibo",
			setup: func() {
				mockEventRepo.EXPECT().
					GetByID(gomock.Any(), "tnt_01", "off_01", "prp_01").
					Return(proposalEvent("prp_01", domain.ProposalStatusApproved, "4500"), nil)
			},
			validate: func(t *testing.T, result *TransitionResult, err error) {
				require.NoError(t, err)
				assert.False(t, result.Changed)
				assert.Empty(t, result.ReceiptID)
				assert.Equal(t, domain.ProposalStatusApproved, result.Proposal.Status)
			},
		},
		{
			name: "Deve recusar aprovar uma proposta negada",
			setup: func() {
				mockEventRepo.EXPECT().
					GetByID(gomock.Any(), "tnt_01", "off_01", "prp_01").
					Return(proposalEvent("prp_01", domain.ProposalStatusDenied, "4500"), nil)
			},
			validate: func(t *testing.T, result *TransitionResult, err error) {
				assert.ErrorIs(t, err, ErrStatusConflict)
				assert.Nil(t, result)
			},
		},
		{
			name: "Deve resolver a corrida relendo o status vigente",
			setup: func() {
				mockEventRepo.EXPECT().
					GetByID(gomock.Any(), "tnt_01", "off_01", "prp_01").
					Return(proposalEvent("prp_01", domain.ProposalStatusPending, "4500"), nil)

				// Outro aprovador venceu o CAS entre a leitura e a troca
				mockEventRepo.EXPECT().
					UpdateProposalStatus(gomock.Any(), "tnt_01", "off_01", "prp_01", domain.ProposalStatusPending, domain.ProposalStatusApproved, gomock.Any()).
					Return(false, nil)

				mockEventRepo.EXPECT().
					GetByID(gomock.Any(), "tnt_01", "off_01", "prp_01").
					Return(proposalEvent("prp_01", domain.ProposalStatusApproved, "4500"), nil)
			},
			validate: func(t *testing.T, result *TransitionResult, err error) {
				require.NoError(t, err)
				assert.False(t, result.Changed)
				assert.Empty(t, result.ReceiptID)
			},
		},
		{
			name: "Deve devolver não encontrada para id desconhecido",
			setup: func() {
				mockEventRepo.EXPECT().
					GetByID(gomock.Any(), "tnt_01", "off_01", "prp_01").
					Return(nil, nil)
			},
			validate: func(t *testing.T, result *TransitionResult, err error) {
				assert.ErrorIs(t, err, ErrProposalNotFound)
				assert.Nil(t, result)
			},
		},
		{
			name: "Deve falhar quando o recibo da aprovação não pode ser gravado",
			setup: func() {
				mockEventRepo.EXPECT().
					GetByID(gomock.Any(), "tnt_01", "off_01", "prp_01").
					Return(proposalEvent("prp_01", domain.ProposalStatusPending, "4500"), nil)

				mockEventRepo.EXPECT().
					UpdateProposalStatus(gomock.Any(), "tnt_01", "off_01", "prp_01", domain.ProposalStatusPending, domain.ProposalStatusApproved, gomock.Any()).
					Return(true, nil)

				mockReceipter.EXPECT().
					Record(gomock.Any(), scope, gomock.Any()).
					Return(nil, assert.AnError)
			},
			validate: func(t *testing.T, result *TransitionResult, err error) {
				assert.ErrorIs(t, err, ErrReceiptUnavailable)
				assert.Nil(t, result)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			statusPatches = nil
			recordedReceipts = nil
			tt.setup()

			result, err := service.Approve(ctx, scope, "prp_01", "ana@office")

			tt.validate(t, result, err)
		})
	}
}

func TestDeny(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEventRepo := mocks.NewMockFinanceEventRepository(ctrl)
	mockReceipter := receiptmocks.NewMockReceipter(ctrl)

	service := &Service{
		cfg:             &config.Config{},
		eventRepository: mockEventRepo,
		receipter:       mockReceipter,
	}

	ctx := context.Background()
	scope := domain.OfficeScope{TenantID: "tnt_01", OfficeID: "off_01"}

	var statusPatches []map[string]any
	var recordedReceipts []receipting.ReceiptInput

	tests := []struct {
		name     string
		setup    func()
		validate func(t *testing.T, result *TransitionResult, err error)
	}{
		{
			name: "Deve negar uma proposta pendente registrando o motivo",
			setup: func() {
				mockEventRepo.EXPECT().
					GetByID(gomock.Any(), "tnt_01", "off_01", "prp_02").
					Return(proposalEvent("prp_02", domain.ProposalStatusPending, "9000"), nil)

				mockEventRepo.EXPECT().
					UpdateProposalStatus(gomock.Any(), "tnt_01", "off_01", "prp_02", domain.ProposalStatusPending, domain.ProposalStatusDenied, gomock.Any()).
					DoAndReturn(func(_ context.Context, _, _, _, _, _ string, patch map[string]any) (bool, error) {
						statusPatches = append(statusPatches, patch)
						return true, nil
					})

				mockReceipter.EXPECT().
					Record(gomock.Any(), scope, gomock.Any()).
					DoAndReturn(func(_ context.Context, _ domain.OfficeScope, input receipting.ReceiptInput) (*domain.Receipt, error) {
						recordedReceipts = append(recordedReceipts, input)
						return &domain.Receipt{ReceiptID: "rcp_deny_01"}, nil
					})

				mockEventRepo.EXPECT().
					AttachReceipt(gomock.Any(), "tnt_01", "off_01", []string{"prp_02"}, "rcp_deny_01").
					Return(nil)
			},
			validate: func(t *testing.T, result *TransitionResult, err error) {
				require.NoError(t, err)
				assert.True(t, result.Changed)
				assert.Equal(t, domain.ProposalStatusDenied, result.Proposal.Status)
				assert.Equal(t, "carla@office", result.Proposal.Meta.DeniedBy)
				assert.Equal(t, "fornecedor sem contrato vigente", result.Proposal.Meta.DenyReason)

				require.Len(t, statusPatches, 1)
				assert.Equal(t, "fornecedor sem contrato vigente", statusPatches[0]["deny_reason"])

				require.Len(t, recordedReceipts, 1)
				assert.Equal(t, domain.ReceiptProposalDeny, recordedReceipts[0].ActionType)
			},
		},
		{
			name: "Deve recusar negar uma proposta aprovada",
			setup: func() {
				mockEventRepo.EXPECT().
					GetByID(gomock.Any(), "tnt_01", "off_01", "prp_02").
					Return(proposalEvent("prp_02", domain.ProposalStatusApproved, "9000"), nil)
			},
			validate: func(t *testing.T, result *TransitionResult, err error) {
				assert.ErrorIs(t, err, ErrStatusConflict)
				assert.Nil(t, result)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			statusPatches = nil
			recordedReceipts = nil
			tt.setup()

			result, err := service.Deny(ctx, scope, "prp_02", "carla@office", "fornecedor sem contrato vigente")

			tt.validate(t, result, err)
		})
	}
}

func TestExecute(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEventRepo := mocks.NewMockFinanceEventRepository(ctrl)
	mockReceipter := receiptmocks.NewMockReceipter(ctrl)

	service := &Service{
		cfg:             &config.Config{},
		eventRepository: mockEventRepo,
		receipter:       mockReceipter,
	}

	ctx := context.Background()
	scope := domain.OfficeScope{TenantID: "tnt_01", OfficeID: "off_01"}

	var insertedEvents []*domain.FinanceEvent
	var recordedReceipts []receipting.ReceiptInput

	tests := []struct {
		name     string
		setup    func()
		validate func(t *testing.T, result *ExecutionResult, err error)
	}{
		{
			name: "Deve executar uma proposta aprovada dentro do limite da política",
			setup: func() {
				mockEventRepo.EXPECT().
					GetByID(gomock.Any(), "tnt_01", "off_01", "prp_10").
					Return(proposalEvent("prp_10", domain.ProposalStatusApproved, "5000"), nil)

				mockEventRepo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, event *domain.FinanceEvent) (bool, error) {
						insertedEvents = append(insertedEvents, event)
						return true, nil
					})

				mockReceipter.EXPECT().
					Record(gomock.Any(), scope, gomock.Any()).
					DoAndReturn(func(_ context.Context, _ domain.OfficeScope, input receipting.ReceiptInput) (*domain.Receipt, error) {
						recordedReceipts = append(recordedReceipts, input)
						return &domain.Receipt{ReceiptID: "rcp_exec_01"}, nil
					})

				mockEventRepo.EXPECT().
					AttachReceipt(gomock.Any(), "tnt_01", "off_01", gomock.Any(), "rcp_exec_01").
					Return(nil)

				// Vínculo da execução gravado na metadata da proposta
				mockEventRepo.EXPECT().
					UpdateProposalStatus(gomock.Any(), "tnt_01", "off_01", "prp_10", domain.ProposalStatusApproved, domain.ProposalStatusApproved, gomock.Any()).
					Return(true, nil)
			},
			validate: func(t *testing.T, result *ExecutionResult, err error) {
				require.NoError(t, err)
				require.NotNil(t, result)
				assert.True(t, result.Allowed)
				assert.False(t, result.Replayed)
				assert.Equal(t, "rcp_exec_01", result.ReceiptID)
				assert.True(t, strings.HasPrefix(result.ExecutionEventID, "evt_"))

				require.NotNil(t, result.PolicyDecision)
				assert.True(t, result.PolicyDecision.Allowed)
				assert.Equal(t, domain.RiskTierLow, result.PolicyDecision.RiskTier)
				assert.Equal(t, "valor dentro do limite da faixa low", result.PolicyDecision.Reason)
				assert.True(t, strings.HasPrefix(result.PolicyDecision.ID, "pol_"))

				require.Len(t, insertedEvents, 1)
				execution := insertedEvents[0]
				assert.Equal(t, domain.EventActionExecuted, execution.EventType)
				assert.Equal(t, "exec:prp_10", execution.ProviderEventID)
				assert.Equal(t, "5000", execution.Amount.String())
				assert.Equal(t, result.PolicyDecision.ID, execution.Metadata["policy_decision_id"])

				require.Len(t, recordedReceipts, 1)
				assert.Equal(t, domain.ReceiptActionExecute, recordedReceipts[0].ActionType)
				require.NotNil(t, recordedReceipts[0].PolicyDecisionID)
				assert.Equal(t, result.PolicyDecision.ID, *recordedReceipts[0].PolicyDecisionID)
			},
		},
		{
			name: "Deve bloquear a execução acima do limite de negação",
			setup: func() {
				mockEventRepo.EXPECT().
					GetByID(gomock.Any(), "tnt_01", "off_01", "prp_10").
					Return(proposalEvent("prp_10", domain.ProposalStatusApproved, "150000"), nil)
			},
			validate: func(t *testing.T, result *ExecutionResult, err error) {
				require.NoError(t, err)
				require.NotNil(t, result)
				assert.False(t, result.Allowed)
				assert.Empty(t, result.ExecutionEventID)
				assert.Empty(t, result.ReceiptID)

				require.NotNil(t, result.PolicyDecision)
				assert.False(t, result.PolicyDecision.Allowed)
				assert.Equal(t, domain.RiskTierHigh, result.PolicyDecision.RiskTier)
				assert.Equal(t, "valor acima do limite de execução automática", result.PolicyDecision.Reason)
				assert.Empty(t, insertedEvents)
			},
		},
		{
			name: "Deve classificar valor intermediário na faixa medium",
			setup: func() {
				mockEventRepo.EXPECT().
					GetByID(gomock.Any(), "tnt_01", "off_01", "prp_10").
					Return(proposalEvent("prp_10", domain.ProposalStatusApproved, "50000"), nil)

				mockEventRepo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					Return(true, nil)

				mockReceipter.EXPECT().
					Record(gomock.Any(), scope, gomock.Any()).
					DoAndReturn(func(_ context.Context, _ domain.OfficeScope, input receipting.ReceiptInput) (*domain.Receipt, error) {
						recordedReceipts = append(recordedReceipts, input)
						return &domain.Receipt{ReceiptID: "rcp_exec_02"}, nil
					})

				mockEventRepo.EXPECT().
					AttachReceipt(gomock.Any(), "tnt_01", "off_01", gomock.Any(), "rcp_exec_02").
					Return(nil)

				mockEventRepo.EXPECT().
					UpdateProposalStatus(gomock.Any(), "tnt_01", "off_01", "prp_10", domain.ProposalStatusApproved, domain.ProposalStatusApproved, gomock.Any()).
					Return(true, nil)
			},
			validate: func(t *testing.T, result *ExecutionResult, err error) {
				require.NoError(t, err)
				assert.True(t, result.Allowed)
				assert.Equal(t, domain.RiskTierMedium, result.PolicyDecision.RiskTier)

				require.Len(t, recordedReceipts, 1)
				outputs, ok := recordedReceipts[0].Outputs.(map[string]any)
				require.True(t, ok)
				assert.Equal(t, domain.RiskTierMedium, outputs["policy_tier"])
			},
		},
		{
			name: "Deve aprovar no caminho ao executar uma proposta pendente",
			setup: func() {
				mockEventRepo.EXPECT().
					GetByID(gomock.Any(), "tnt_01", "off_01", "prp_10").
					Return(proposalEvent("prp_10", domain.ProposalStatusPending, "2000"), nil)

				// Releitura feita pela transição de aprovação
				mockEventRepo.EXPECT().
					GetByID(gomock.Any(), "tnt_01", "off_01", "prp_10").
					Return(proposalEvent("prp_10", domain.ProposalStatusPending, "2000"), nil)

				mockEventRepo.EXPECT().
					UpdateProposalStatus(gomock.Any(), "tnt_01", "off_01", "prp_10", domain.ProposalStatusPending, domain.ProposalStatusApproved, gomock.Any()).
					Return(true, nil)

				mockReceipter.EXPECT().
					Record(gomock.Any(), scope, gomock.Any()).
					DoAndReturn(func(_ context.Context, _ domain.OfficeScope, input receipting.ReceiptInput) (*domain.Receipt, error) {
						recordedReceipts = append(recordedReceipts, input)
						return &domain.Receipt{ReceiptID: "rcp_appr_10"}, nil
					})

				mockEventRepo.EXPECT().
					AttachReceipt(gomock.Any(), "tnt_01", "off_01", []string{"prp_10"}, "rcp_appr_10").
					Return(nil)

				// Releitura do Execute após a aprovação
				mockEventRepo.EXPECT().
					GetByID(gomock.Any(), "tnt_01", "off_01", "prp_10").
					Return(proposalEvent("prp_10", domain.ProposalStatusApproved, "2000"), nil)

				mockEventRepo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, event *domain.FinanceEvent) (bool, error) {
						insertedEvents = append(insertedEvents, event)
						return true, nil
					})

				mockReceipter.EXPECT().
					Record(gomock.Any(), scope, gomock.Any()).
					DoAndReturn(func(_ context.Context, _ domain.OfficeScope, input receipting.ReceiptInput) (*domain.Receipt, error) {
						recordedReceipts = append(recordedReceipts, input)
						return &domain.Receipt{ReceiptID: "rcp_exec_10"}, nil
					})

				mockEventRepo.EXPECT().
					AttachReceipt(gomock.Any(), "tnt_01", "off_01", gomock.Any(), "rcp_exec_10").
					Return(nil)

				mockEventRepo.EXPECT().
					UpdateProposalStatus(gomock.Any(), "tnt_01", "off_01", "prp_10", domain.ProposalStatusApproved, domain.ProposalStatusApproved, gomock.Any()).
					Return(true, nil)
			},
			validate: func(t *testing.T, result *ExecutionResult, err error) {
				require.NoError(t, err)
				assert.True(t, result.Allowed)
				assert.Equal(t, "rcp_exec_10", result.ReceiptID)

				require.Len(t, recordedReceipts, 2)
				assert.Equal(t, domain.ReceiptProposalApprove, recordedReceipts[0].ActionType)
				assert.Equal(t, domain.ReceiptActionExecute, recordedReceipts[1].ActionType)
			},
		},
		{
			name: "Deve recusar executar uma proposta negada",
			setup: func() {
				mockEventRepo.EXPECT().
					GetByID(gomock.Any(), "tnt_01", "off_01", "prp_10").
					Return(proposalEvent("prp_10", domain.ProposalStatusDenied, "2000"), nil)
			},
			validate: func(t *testing.T, result *ExecutionResult, err error) {
				assert.ErrorIs(t, err, ErrStatusConflict)
				assert.Nil(t, result)
			},
		},
		{
			name: "Deve repetir a execução existente sem novo recibo",
			setup: func() {
				mockEventRepo.EXPECT().
					GetByID(gomock.Any(), "tnt_01", "off_01", "prp_10").
					Return(proposalEvent("prp_10", domain.ProposalStatusApproved, "3000"), nil)

				mockEventRepo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					Return(false, nil)

				previous := &domain.FinanceEvent{
					ID:              "evt_prev01",
					TenantID:        "tnt_01",
					OfficeID:        "off_01",
					Provider:        domain.ProviderAuthority,
					ProviderEventID: "exec:prp_10",
					EventType:       domain.EventActionExecuted,
					ReceiptID:       stringPtr("rcp_prev_exec"),
				}

				mockEventRepo.EXPECT().
					GetByProviderEventID(gomock.Any(), "tnt_01", "off_01", domain.ProviderAuthority, "exec:prp_10").
					Return(previous, nil)
			},
			validate: func(t *testing.T, result *ExecutionResult, err error) {
				require.NoError(t, err)
				assert.True(t, result.Allowed)
				assert.True(t, result.Replayed)
				assert.Equal(t, "evt_prev01", result.ExecutionEventID)
				assert.Equal(t, "rcp_prev_exec", result.ReceiptID)
				assert.Empty(t, recordedReceipts)
			},
		},
		{
			name: "Deve falhar quando o recibo da execução não pode ser gravado",
			setup: func() {
				mockEventRepo.EXPECT().
					GetByID(gomock.Any(), "tnt_01", "off_01", "prp_10").
					Return(proposalEvent("prp_10", domain.ProposalStatusApproved, "100"), nil)

				mockEventRepo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					Return(true, nil)

				mockReceipter.EXPECT().
					Record(gomock.Any(), scope, gomock.Any()).
					Return(nil, assert.AnError)
			},
			validate: func(t *testing.T, result *ExecutionResult, err error) {
				assert.ErrorIs(t, err, ErrReceiptUnavailable)
				assert.Nil(t, result)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			insertedEvents = nil
			recordedReceipts = nil
			tt.setup()

			result, err := service.Execute(ctx, scope, "prp_10", "ana@office")

			tt.validate(t, result, err)
		})
	}
}

func TestListQueue(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEventRepo := mocks.NewMockFinanceEventRepository(ctrl)
	mockReceipter := receiptmocks.NewMockReceipter(ctrl)

	service := &Service{
		cfg:             &config.Config{},
		eventRepository: mockEventRepo,
		receipter:       mockReceipter,
	}

	ctx := context.Background()
	scope := domain.OfficeScope{TenantID: "tnt_01", OfficeID: "off_01"}

	tests := []struct {
		name     string
		status   string
		setup    func()
		validate func(t *testing.T, proposals []*domain.Proposal, err error)
	}{
		{
			name:   "Deve listar a fila filtrada por status ignorando metadata ilegível",
			status: domain.ProposalStatusPending,
			setup: func() {
				broken := proposalEvent("prp_broken", domain.ProposalStatusPending, "0")
				broken.Metadata = map[string]any{"title": 42}

				mockEventRepo.EXPECT().
					ListProposals(gomock.Any(), "tnt_01", "off_01", domain.ProposalStatusPending).
					Return([]*domain.FinanceEvent{
						proposalEvent("prp_20", domain.ProposalStatusPending, "4500"),
						broken,
					}, nil)
			},
			validate: func(t *testing.T, proposals []*domain.Proposal, err error) {
				require.NoError(t, err)
				require.Len(t, proposals, 1)
				assert.Equal(t, "prp_20", proposals[0].ID)
				assert.Equal(t, domain.ProposalStatusPending, proposals[0].Status)
			},
		},
		{
			name:   "Deve listar todos os status quando o filtro está vazio",
			status: "",
			setup: func() {
				mockEventRepo.EXPECT().
					ListProposals(gomock.Any(), "tnt_01", "off_01", "").
					Return([]*domain.FinanceEvent{
						proposalEvent("prp_21", domain.ProposalStatusApproved, "900"),
						proposalEvent("prp_22", domain.ProposalStatusDenied, "600"),
					}, nil)
			},
			validate: func(t *testing.T, proposals []*domain.Proposal, err error) {
				require.NoError(t, err)
				assert.Len(t, proposals, 2)
			},
		},
		{
			name:   "Deve recusar um status desconhecido",
			status: "archived",
			setup:  func() {},
			validate: func(t *testing.T, proposals []*domain.Proposal, err error) {
				assert.ErrorIs(t, err, ErrInvalidStatus)
				assert.Nil(t, proposals)
			},
		},
		{
			name:   "Deve propagar o erro do repositório",
			status: domain.ProposalStatusPending,
			setup: func() {
				mockEventRepo.EXPECT().
					ListProposals(gomock.Any(), "tnt_01", "off_01", domain.ProposalStatusPending).
					Return(nil, assert.AnError)
			},
			validate: func(t *testing.T, proposals []*domain.Proposal, err error) {
				assert.ErrorIs(t, err, assert.AnError)
				assert.Nil(t, proposals)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()

			proposals, err := service.ListQueue(ctx, scope, tt.status)

			tt.validate(t, proposals, err)
		})
	}
}

func proposalEvent(id, status, amount string) *domain.FinanceEvent {
	now := time.Now().UTC()
	return &domain.FinanceEvent{
		ID:              id,
		TenantID:        "tnt_01",
		OfficeID:        "off_01",
		Provider:        domain.ProviderAuthority,
		ProviderEventID: "proposal:" + id,
		EventType:       domain.EventProposalCreated,
		OccurredAt:      now.Add(-1 * time.Hour),
		Amount:          decimal.RequireFromString(amount),
		Currency:        "BRL",
		Status:          status,
		EntityRefs:      []string{"proposal:" + id},
		Metadata: map[string]any{
			"title":             "Pagar fornecedor de TI",
			"action_type":       domain.ProposalActionPaymentRelease,
			"risk_tier":         domain.RiskTierLow,
			"required_approval": true,
			"inputs_hash":       "1f4a9c",
			"correlation_id":    "corr_" + id,
		},
		CreatedAt: now.Add(-1 * time.Hour),
	}
}

func stringPtr(s string) *string {
	return &s
}
