package domain

import (
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
)

// Estados do fluxo de autoridade. Transições válidas: pending->approved,
// pending->denied. Estados decididos são terminais.
const (
	ProposalStatusPending  = "pending"
	ProposalStatusApproved = "approved"
	ProposalStatusDenied   = "denied"
)

// Faixas de risco atribuídas pela política
const (
	RiskTierLow    = "low"
	RiskTierMedium = "medium"
	RiskTierHigh   = "high"
)

// Tipos de ação propostos pelo fluxo de autoridade
const (
	ProposalActionPaymentRelease = "payment_release"
	ProposalActionTransfer       = "transfer"
	ProposalActionAdjustment     = "adjustment"
)

// ProposalMetadata é o conteúdo do campo metadata de um evento
// proposal_created. Valores monetários ficam como string decimal para não
// perder precisão na ida e volta do JSONB.
type ProposalMetadata struct {
	Title            string `mapstructure:"title" json:"title"`
	ActionType       string `mapstructure:"action_type" json:"action_type"`
	RiskTier         string `mapstructure:"risk_tier" json:"risk_tier"`
	RequiredApproval bool   `mapstructure:"required_approval" json:"required_approval"`
	InputsHash       string `mapstructure:"inputs_hash" json:"inputs_hash"`
	CorrelationID    string `mapstructure:"correlation_id" json:"correlation_id"`
	Amount           string `mapstructure:"amount,omitempty" json:"amount,omitempty"`
	ApprovedBy       string `mapstructure:"approved_by,omitempty" json:"approved_by,omitempty"`
	DeniedBy         string `mapstructure:"denied_by,omitempty" json:"denied_by,omitempty"`
	DenyReason       string `mapstructure:"deny_reason,omitempty" json:"deny_reason,omitempty"`
	PolicyDecisionID string `mapstructure:"policy_decision_id,omitempty" json:"policy_decision_id,omitempty"`
	ExecutionEventID string `mapstructure:"execution_event_id,omitempty" json:"execution_event_id,omitempty"`
}

type Proposal struct {
	ID        string           `json:"id"`
	TenantID  string           `json:"tenant_id"`
	OfficeID  string           `json:"office_id"`
	Status    string           `json:"status"`
	Amount    decimal.Decimal  `json:"amount"`
	Currency  string           `json:"currency"`
	Meta      ProposalMetadata `json:"meta"`
	CreatedAt time.Time        `json:"created_at"`
}

// ProposalFromEvent projeta um evento proposal_created na visão de proposta
func ProposalFromEvent(event *FinanceEvent) (*Proposal, error) {
	var meta ProposalMetadata
	if err := mapstructure.Decode(event.Metadata, &meta); err != nil {
		return nil, err
	}

	amount := event.Amount
	if amount.IsZero() && meta.Amount != "" {
		parsed, err := decimal.NewFromString(meta.Amount)
		if err == nil {
			amount = parsed
		}
	}

	return &Proposal{
		ID:        event.ID,
		TenantID:  event.TenantID,
		OfficeID:  event.OfficeID,
		Status:    event.Status,
		Amount:    amount,
		Currency:  event.Currency,
		Meta:      meta,
		CreatedAt: event.CreatedAt,
	}, nil
}

// ToMap projeta a metadata no formato gravado no campo jsonb do evento
func (m ProposalMetadata) ToMap() (map[string]any, error) {
	var out map[string]any
	if err := mapstructure.Decode(m, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// IsValidProposalStatus aceita os três estados do fluxo de autoridade
func IsValidProposalStatus(status string) bool {
	switch status {
	case ProposalStatusPending, ProposalStatusApproved, ProposalStatusDenied:
		return true
	}
	return false
}

// DeclaredTierDefault é a faixa declarada pelo cliente quando a criação da
// proposta não informa nenhuma. A faixa declarada é informativa; a política
// de execução calcula a sua própria a partir do valor.
const DeclaredTierDefault = "yellow"

// PolicyDecision registra o resultado da avaliação de política para uma
// execução de ação
type PolicyDecision struct {
	ID          string          `json:"id"`
	ProposalID  string          `json:"proposal_id"`
	Allowed     bool            `json:"allowed"`
	RiskTier    string          `json:"risk_tier"`
	Reason      string          `json:"reason"`
	Amount      decimal.Decimal `json:"amount"`
	EvaluatedAt time.Time       `json:"evaluated_at"`
}

// Limiares da política de execução, em unidades da moeda da proposta
var (
	policyDenyThreshold   = decimal.NewFromInt(100000)
	policyReviewThreshold = decimal.NewFromInt(10000)
)

// PolicyTierForAmount classifica o valor absoluto de uma ação na faixa de
// risco da política. Acima do limiar de negação a execução é bloqueada
// independente de quem aprovou.
func PolicyTierForAmount(amount decimal.Decimal) (string, bool) {
	magnitude := amount.Abs()
	switch {
	case magnitude.GreaterThan(policyDenyThreshold):
		return RiskTierHigh, false
	case magnitude.GreaterThan(policyReviewThreshold):
		return RiskTierMedium, true
	default:
		return RiskTierLow, true
	}
}
