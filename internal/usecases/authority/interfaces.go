package authority

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/opsledger/finance-ledger-api/internal/domain"
)

// CreateProposalInput reúne os campos de criação de uma proposta. Inputs
// carrega a estrutura livre cujo hash canônico identifica a intenção.
type CreateProposalInput struct {
	Title         string
	ActionType    string
	RiskTier      string
	Amount        decimal.Decimal
	Currency      string
	CorrelationID string
	Inputs        map[string]any
}

// ProposalResult é a resposta da criação. Replayed indica que a proposta já
// existia para o mesmo correlation id e nenhum efeito novo ocorreu.
type ProposalResult struct {
	Proposal  *domain.Proposal `json:"proposal"`
	ReceiptID string           `json:"receipt_id,omitempty"`
	Replayed  bool             `json:"replayed"`
}

// TransitionResult é a resposta de approve e deny. Changed falso significa
// um no-op idempotente, sem novo recibo.
type TransitionResult struct {
	Proposal  *domain.Proposal `json:"proposal"`
	Changed   bool             `json:"changed"`
	ReceiptID string           `json:"receipt_id,omitempty"`
}

// ExecutionResult carrega a decisão de política e, quando permitida, o
// evento de execução e seu recibo
type ExecutionResult struct {
	Proposal         *domain.Proposal       `json:"proposal"`
	PolicyDecision   *domain.PolicyDecision `json:"policy_decision"`
	Allowed          bool                   `json:"allowed"`
	ExecutionEventID string                 `json:"execution_event_id,omitempty"`
	ReceiptID        string                 `json:"receipt_id,omitempty"`
	Replayed         bool                   `json:"replayed"`
}

type Authority interface {
	// CreateProposal persiste um proposal_created pendente e emite o recibo
	// da criação. Idempotente por correlation id quando informado.
	CreateProposal(ctx context.Context, scope domain.OfficeScope, input CreateProposalInput) (*ProposalResult, error)

	// Approve move pending para approved. Reaprovar é no-op; aprovar uma
	// proposta negada é conflito.
	Approve(ctx context.Context, scope domain.OfficeScope, proposalID, approver string) (*TransitionResult, error)

	// Deny é o simétrico de Approve
	Deny(ctx context.Context, scope domain.OfficeScope, proposalID, denier, reason string) (*TransitionResult, error)

	// Execute avalia a política sobre o valor da proposta e, quando
	// permitida, grava o action_executed com o recibo carregando a decisão.
	// Uma proposta pendente é aprovada no caminho antes de executar.
	Execute(ctx context.Context, scope domain.OfficeScope, proposalID, approver string) (*ExecutionResult, error)

	// ListQueue lista as propostas do escritório, opcionalmente filtradas
	// por status
	ListQueue(ctx context.Context, scope domain.OfficeScope, status string) ([]*domain.Proposal, error)
}
