package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos canônicos de evento financeiro
const (
	EventBalanceReported     = "balance_reported"
	EventTransactionPosted   = "transaction_posted"
	EventTransactionPending  = "transaction_pending"
	EventPaymentReceived     = "payment_received"
	EventPayoutConfirmed     = "payout_confirmed"
	EventDepositDetected     = "deposit_detected"
	EventInvoiceIssued       = "invoice_issued"
	EventInvoicePaid         = "invoice_paid"
	EventSaleBooked          = "sale_booked"
	EventLedgerEntryRecorded = "ledger_entry_recorded"
	EventPeriodReport        = "period_report"
	EventExpenseRecorded     = "expense_recorded"
	EventPayrollRunScheduled = "payroll_run_scheduled"
	EventPayrollRunPaid      = "payroll_run_paid"
	EventProposalCreated     = "proposal_created"
	EventActionExecuted      = "action_executed"
)

// EventStatusRecorded é o status terminal de fatos imutáveis. Apenas
// propostas transicionam de status depois de gravadas.
const EventStatusRecorded = "recorded"

type FinanceEvent struct {
	ID              string          `json:"id"`
	TenantID        string          `json:"tenant_id"`
	OfficeID        string          `json:"office_id"`
	Provider        string          `json:"provider"`
	ProviderEventID string          `json:"provider_event_id"`
	EventType       string          `json:"event_type"`
	OccurredAt      time.Time       `json:"occurred_at"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Status          string          `json:"status"`
	EntityRefs      []string        `json:"entity_refs"`
	Metadata        map[string]any  `json:"metadata,omitempty"`
	RawHash         string          `json:"raw_hash"`
	ReceiptID       *string         `json:"receipt_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// MetadataString lê um campo textual da metadata do evento
func (e *FinanceEvent) MetadataString(key string) string {
	if e.Metadata == nil {
		return ""
	}
	if value, ok := e.Metadata[key].(string); ok {
		return value
	}
	return ""
}

// MetadataDecimal lê um valor monetário gravado como string decimal na
// metadata do evento
func (e *FinanceEvent) MetadataDecimal(key string) (decimal.Decimal, bool) {
	raw := e.MetadataString(key)
	if raw == "" {
		return decimal.Zero, false
	}

	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return value, true
}

// ProviderEvent é a forma normalizada que os integradores devolvem antes
// da persistência. ProviderEventID precisa ser o identificador nativo e
// estável do provedor, nunca um valor gerado localmente.
type ProviderEvent struct {
	ProviderEventID string
	EventType       string
	OccurredAt      time.Time
	Amount          decimal.Decimal
	Currency        string
	EntityRefs      []string
	Metadata        map[string]any
	Raw             []byte
}

// TimelineFilter delimita a consulta paginada da linha do tempo. From é
// inclusivo e To exclusivo, ambos sobre occurred_at.
type TimelineFilter struct {
	TenantID  string
	OfficeID  string
	Provider  string
	EventType string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

type TimelinePage struct {
	Events []*FinanceEvent `json:"events"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}
