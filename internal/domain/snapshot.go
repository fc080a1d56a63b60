package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Níveis de confiança derivados da idade do dado
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
	ConfidenceNone   = "none"
)

// Faixas de staleness por provedor
const (
	StalenessFresh     = "fresh"
	StalenessStale     = "stale"
	StalenessVeryStale = "very_stale"
	StalenessOffline   = "offline"
)

type Snapshot struct {
	ID          string            `json:"id"`
	TenantID    string            `json:"tenant_id"`
	OfficeID    string            `json:"office_id"`
	GeneratedAt time.Time         `json:"generated_at"`
	Now         NowChapter        `json:"now"`
	Next        NextChapter       `json:"next"`
	Month       MonthChapter      `json:"month"`
	Reconcile   ReconcileChapter  `json:"reconcile"`
	Actions     ActionsChapter    `json:"actions"`
	Provenance  []ProvenanceEntry `json:"provenance"`
	Staleness   []StalenessEntry  `json:"staleness"`
	ReceiptID   string            `json:"receipt_id"`
}

// NowChapter descreve a posição de caixa corrente: soma do saldo mais
// recente reportado por cada fonte, mais os pendentes ainda não liquidados.
type NowChapter struct {
	CashPosition   decimal.Decimal `json:"cash_position"`
	Currency       string          `json:"currency"`
	PendingInflow  decimal.Decimal `json:"pending_inflow"`
	PendingOutflow decimal.Decimal `json:"pending_outflow"`
	BalanceAsOf    *time.Time      `json:"balance_as_of,omitempty"`
	Confidence     string          `json:"confidence"`
}

// NextChapter projeta o caixa no horizonte de sete dias
type NextChapter struct {
	HorizonDays      int                 `json:"horizon_days"`
	Inflow           decimal.Decimal     `json:"inflow"`
	Outflow          decimal.Decimal     `json:"outflow"`
	NetChange        decimal.Decimal     `json:"net_change"`
	ProjectedBalance decimal.Decimal     `json:"projected_balance"`
	Components       []ForecastComponent `json:"components"`
}

const (
	DirectionInflow  = "inflow"
	DirectionOutflow = "outflow"
)

const (
	ComponentExpectedInvoice  = "expected_invoice"
	ComponentPayoutInTransit  = "payout_in_transit"
	ComponentScheduledPayroll = "scheduled_payroll"
)

type ForecastComponent struct {
	Kind      string          `json:"kind"`
	Direction string          `json:"direction"`
	Label     string          `json:"label"`
	Amount    decimal.Decimal `json:"amount"`
	EntityRef string          `json:"entity_ref,omitempty"`
	DueAt     *time.Time      `json:"due_at,omitempty"`
}

// MonthChapter consolida o mês corrente. Source indica se os números vêm
// de um period_report do ERP ou da soma de eventos brutos.
type MonthChapter struct {
	Reference string          `json:"reference"`
	Revenue   decimal.Decimal `json:"revenue"`
	Expenses  decimal.Decimal `json:"expenses"`
	Net       decimal.Decimal `json:"net"`
	Source    string          `json:"source"`
}

const (
	MonthSourceReport = "ledger_report"
	MonthSourceRaw    = "raw_events"
)

type ReconcileChapter struct {
	Exceptions []Exception `json:"exceptions"`
	OpenCount  int         `json:"open_count"`
}

type ActionsChapter struct {
	PendingProposals []ProposalSummary `json:"pending_proposals"`
	Candidates       []ActionCandidate `json:"candidates"`
}

type ProposalSummary struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	ActionType string          `json:"action_type"`
	RiskTier   string          `json:"risk_tier"`
	Amount     decimal.Decimal `json:"amount"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ActionCandidate é uma sugestão heurística ainda fora da fila de
// autoridade. Evidence carrega os números que sustentam a sugestão.
type ActionCandidate struct {
	ActionType string         `json:"action_type"`
	Title      string         `json:"title"`
	RiskTier   string         `json:"risk_tier"`
	Evidence   map[string]any `json:"evidence"`
}

// ProvenanceEntry responde, para uma métrica nomeada, quais provedores
// sustentaram seus insumos na janela recente e com que confiança.
type ProvenanceEntry struct {
	MetricID       string     `json:"metric_id"`
	Providers      []string   `json:"providers"`
	FreshestSyncAt *time.Time `json:"freshest_sync_at,omitempty"`
	Confidence     string     `json:"confidence"`
}

type StalenessEntry struct {
	Provider   string     `json:"provider"`
	Bucket     string     `json:"bucket"`
	LastDataAt *time.Time `json:"last_data_at,omitempty"`
	Connected  bool       `json:"connected"`
}

// ConfidenceForAge classifica a idade do dado em um nível de confiança
func ConfidenceForAge(age time.Duration) string {
	switch {
	case age < 5*time.Minute:
		return ConfidenceHigh
	case age < time.Hour:
		return ConfidenceMedium
	case age < 24*time.Hour:
		return ConfidenceLow
	default:
		return ConfidenceNone
	}
}

// StalenessForAge classifica a idade do dado em uma faixa de staleness
func StalenessForAge(age time.Duration) string {
	switch {
	case age < 5*time.Minute:
		return StalenessFresh
	case age < time.Hour:
		return StalenessStale
	case age < 24*time.Hour:
		return StalenessVeryStale
	default:
		return StalenessOffline
	}
}
