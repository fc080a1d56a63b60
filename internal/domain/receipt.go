package domain

import (
	"time"

	"github.com/opsledger/finance-ledger-api/pkg/utils"
)

// Tipos de ação registrados no ledger de recibos
const (
	ReceiptProviderSync    = "provider_sync"
	ReceiptWebhookIngest   = "webhook_ingest"
	ReceiptSnapshotCompute = "snapshot_compute"
	ReceiptExceptionsRead  = "exceptions_read"
	ReceiptProposalCreate  = "proposal_create"
	ReceiptProposalApprove = "proposal_approve"
	ReceiptProposalDeny    = "proposal_deny"
	ReceiptActionExecute   = "action_execute"
)

// ReceiptGenesisHash é o prev_hash do primeiro recibo de cada tenant/office.
// Um valor fixo não nulo mantém a unicidade de (tenant, office, prev_hash)
// válida também para o elo inicial.
const ReceiptGenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Receipt é uma entrada imutável da cadeia de recibos. EntryHash cobre o
// conteúdo do recibo mais o PrevHash do recibo anterior do mesmo
// tenant/office, então qualquer alteração retroativa quebra a cadeia.
type Receipt struct {
	ReceiptID        string         `json:"receipt_id"`
	TenantID         string         `json:"tenant_id"`
	OfficeID         string         `json:"office_id"`
	ActionType       string         `json:"action_type"`
	InputsHash       string         `json:"inputs_hash"`
	OutputsHash      string         `json:"outputs_hash"`
	PolicyDecisionID *string        `json:"policy_decision_id,omitempty"`
	CorrelationID    string         `json:"correlation_id,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	PrevHash         string         `json:"prev_hash"`
	EntryHash        string         `json:"entry_hash"`
	CreatedAt        time.Time      `json:"created_at"`
}

// ComputeEntryHash recalcula o hash do elo a partir do conteúdo gravado.
// O created_at fica de fora para que a verificação não dependa da precisão
// de timestamp do banco; a posição na cadeia já é fixada pelo PrevHash.
func (r *Receipt) ComputeEntryHash() (string, error) {
	policyDecisionID := ""
	if r.PolicyDecisionID != nil {
		policyDecisionID = *r.PolicyDecisionID
	}

	return utils.HashCanonical(map[string]any{
		"receipt_id":         r.ReceiptID,
		"tenant_id":          r.TenantID,
		"office_id":          r.OfficeID,
		"action_type":        r.ActionType,
		"inputs_hash":        r.InputsHash,
		"outputs_hash":       r.OutputsHash,
		"policy_decision_id": policyDecisionID,
		"correlation_id":     r.CorrelationID,
		"prev_hash":          r.PrevHash,
	})
}

// ReceiptVerification é o resultado da verificação de um recibo ou da
// cadeia completa
type ReceiptVerification struct {
	Valid        bool    `json:"valid"`
	CheckedCount int     `json:"checked_count"`
	BrokenAt     *string `json:"broken_at,omitempty"`
	Reason       string  `json:"reason,omitempty"`
}
