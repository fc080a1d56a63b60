package domain

import "time"

// Tipos de exceção derivados da reconciliação
const (
	ExceptionSettlementTiming   = "settlement_timing"
	ExceptionAmountMismatch     = "amount_mismatch"
	ExceptionCashVsBooks        = "cash_vs_books"
	ExceptionMissingLedgerEntry = "missing_ledger_entry"
	ExceptionLowCashBuffer      = "low_cash_buffer"
	ExceptionNegativeForecast   = "negative_forecast"
)

// Severidades, da menor para a maior
const (
	SeverityInfo     = "info"
	SeverityWarn     = "warn"
	SeverityCritical = "critical"
)

// Ações recomendadas associadas a cada tipo de exceção
const (
	ActionReviewSettlement  = "review_settlement"
	ActionConfirmAmounts    = "confirm_amounts"
	ActionAuditBooks        = "audit_books"
	ActionRecordLedgerEntry = "record_ledger_entry"
	ActionTransferBuffer    = "transfer_buffer"
	ActionReduceOutflows    = "reduce_outflows"
)

type Exception struct {
	ID                string         `json:"id"`
	Type              string         `json:"type"`
	Severity          string         `json:"severity"`
	Summary           string         `json:"summary"`
	Providers         []string       `json:"providers,omitempty"`
	EntityRefs        []string       `json:"entity_refs,omitempty"`
	RecommendedAction string         `json:"recommended_action"`
	Evidence          map[string]any `json:"evidence,omitempty"`
	DetectedAt        time.Time      `json:"detected_at"`
}

// SeverityRank ordena severidades para exibição (maior primeiro)
func SeverityRank(severity string) int {
	switch severity {
	case SeverityCritical:
		return 2
	case SeverityWarn:
		return 1
	default:
		return 0
	}
}
