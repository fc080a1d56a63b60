package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Métricas com explicação disponível no endpoint de explain
const (
	MetricCashPosition       = "cash_position"
	MetricPendingInflow      = "pending_inflow"
	MetricPendingOutflow     = "pending_outflow"
	MetricProjectedBalance7d = "projected_balance_7d"
	MetricMonthRevenue       = "month_revenue"
	MetricMonthExpenses      = "month_expenses"
	MetricMonthNet           = "month_net"
)

var ExplainableMetrics = []string{
	MetricCashPosition,
	MetricPendingInflow,
	MetricPendingOutflow,
	MetricProjectedBalance7d,
	MetricMonthRevenue,
	MetricMonthExpenses,
	MetricMonthNet,
}

func IsExplainableMetric(metricID string) bool {
	for _, m := range ExplainableMetrics {
		if m == metricID {
			return true
		}
	}
	return false
}

// MetricEventTypes mapeia cada métrica para os tipos de evento que a
// alimentam. A proveniência do snapshot e o explicador de métricas leem a
// mesma tabela.
func MetricEventTypes(metricID string) map[string]bool {
	switch metricID {
	case MetricCashPosition:
		return map[string]bool{
			EventBalanceReported:   true,
			EventTransactionPosted: true,
			EventDepositDetected:   true,
		}
	case MetricPendingInflow, MetricPendingOutflow:
		return map[string]bool{
			EventTransactionPending: true,
		}
	case MetricProjectedBalance7d:
		return map[string]bool{
			EventInvoiceIssued:       true,
			EventInvoicePaid:         true,
			EventPaymentReceived:     true,
			EventPayoutConfirmed:     true,
			EventDepositDetected:     true,
			EventPayrollRunScheduled: true,
			EventPayrollRunPaid:      true,
		}
	case MetricMonthRevenue:
		return map[string]bool{
			EventPeriodReport:        true,
			EventLedgerEntryRecorded: true,
			EventPaymentReceived:     true,
		}
	case MetricMonthExpenses:
		return map[string]bool{
			EventPeriodReport:      true,
			EventExpenseRecorded:   true,
			EventPayrollRunPaid:    true,
			EventTransactionPosted: true,
		}
	case MetricMonthNet:
		return map[string]bool{
			EventPeriodReport:        true,
			EventLedgerEntryRecorded: true,
			EventExpenseRecorded:     true,
			EventPaymentReceived:     true,
			EventPayrollRunPaid:      true,
		}
	default:
		return map[string]bool{}
	}
}

type MetricExplanation struct {
	MetricID   string              `json:"metric_id"`
	Value      decimal.Decimal     `json:"value"`
	Currency   string              `json:"currency,omitempty"`
	Formula    string              `json:"formula"`
	Providers  []string            `json:"providers,omitempty"`
	Confidence string              `json:"confidence,omitempty"`
	Sources    []ExplanationSource `json:"sources"`
	ComputedAt time.Time           `json:"computed_at"`
}

// ExplanationSource aponta um evento que contribuiu para a métrica
type ExplanationSource struct {
	EventID      string          `json:"event_id"`
	Provider     string          `json:"provider"`
	EventType    string          `json:"event_type"`
	Amount       decimal.Decimal `json:"amount"`
	OccurredAt   time.Time       `json:"occurred_at"`
	Contribution string          `json:"contribution"` // add, subtract, source
}
