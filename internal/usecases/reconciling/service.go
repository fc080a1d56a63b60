package reconciling

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opsledger/finance-ledger-api/internal/config"
	"github.com/opsledger/finance-ledger-api/internal/domain"
	"github.com/opsledger/finance-ledger-api/pkg/utils"
)

const (
	// Janela para um repasse aparecer como depósito no extrato bancário
	settlementWindowDays = 3

	// Janela para um pagamento ganhar lançamento no ERP contábil
	ledgerMatchWindowDays = 30
)

// Divergência relativa tolerada entre banco e contabilidade
var booksDivergenceThreshold = decimal.RequireFromString("0.05")

type Service struct {
	cashFloor         decimal.Decimal
	cashCriticalFloor decimal.Decimal
	forecastCritical  decimal.Decimal
}

func NewService(cfg *config.Config) (Reconciler, error) {
	cashFloor, err := decimal.NewFromString(cfg.Exceptions.CashFloor)
	if err != nil {
		return nil, fmt.Errorf("erro ao interpretar EXCEPTION_CASH_FLOOR: %w", err)
	}

	cashCriticalFloor, err := decimal.NewFromString(cfg.Exceptions.CashCriticalFloor)
	if err != nil {
		return nil, fmt.Errorf("erro ao interpretar EXCEPTION_CASH_CRITICAL_FLOOR: %w", err)
	}

	forecastCritical, err := decimal.NewFromString(cfg.Exceptions.ForecastCritical)
	if err != nil {
		return nil, fmt.Errorf("erro ao interpretar EXCEPTION_FORECAST_CRITICAL: %w", err)
	}

	return &Service{
		cashFloor:         cashFloor,
		cashCriticalFloor: cashCriticalFloor,
		forecastCritical:  forecastCritical,
	}, nil
}

type eventBuckets struct {
	payouts       []*domain.FinanceEvent
	deposits      []*domain.FinanceEvent
	payments      []*domain.FinanceEvent
	ledgerEntries []*domain.FinanceEvent
	bankInflows   []*domain.FinanceEvent
	reports       []*domain.FinanceEvent
}

func (s *Service) DeriveMismatches(events []*domain.FinanceEvent, asOf time.Time) []domain.Exception {
	buckets := bucketEvents(events)

	exceptions := make([]domain.Exception, 0)
	exceptions = append(exceptions, s.detectSettlementGaps(buckets, asOf)...)
	exceptions = append(exceptions, s.detectCashVsBooks(buckets, asOf)...)
	exceptions = append(exceptions, s.detectMissingLedgerEntries(buckets, asOf)...)

	sortExceptions(exceptions)
	return exceptions
}

func (s *Service) Surface(mismatches []domain.Exception, cashPosition, forecastNet, projectedBalance decimal.Decimal, asOf time.Time) []domain.Exception {
	exceptions := make([]domain.Exception, 0, len(mismatches)+2)
	exceptions = append(exceptions, mismatches...)

	if cashPosition.LessThan(s.cashFloor) {
		severity := domain.SeverityWarn
		if cashPosition.LessThan(s.cashCriticalFloor) {
			severity = domain.SeverityCritical
		}

		exceptions = append(exceptions, newException(
			domain.ExceptionLowCashBuffer,
			severity,
			fmt.Sprintf("Caixa de %s abaixo do piso de %s", cashPosition.StringFixed(2), s.cashFloor.StringFixed(2)),
			domain.ActionTransferBuffer,
			nil,
			nil,
			map[string]any{
				"cash_position":  cashPosition.String(),
				"floor":          s.cashFloor.String(),
				"critical_floor": s.cashCriticalFloor.String(),
			},
			asOf,
		))
	}

	if forecastNet.IsNegative() {
		severity := domain.SeverityWarn
		if forecastNet.Neg().GreaterThan(s.forecastCritical) {
			severity = domain.SeverityCritical
		}

		exceptions = append(exceptions, newException(
			domain.ExceptionNegativeForecast,
			severity,
			fmt.Sprintf("Fluxo projetado de %s negativo nos próximos 7 dias", forecastNet.StringFixed(2)),
			domain.ActionReduceOutflows,
			nil,
			nil,
			map[string]any{
				"net_change_7d":     forecastNet.String(),
				"projected_balance": projectedBalance.String(),
			},
			asOf,
		))
	}

	sortExceptions(exceptions)
	return exceptions
}

// detectSettlementGaps emparelha repasses confirmados com depósitos
// bancários na janela de liquidação. Um depósito de valor igual fecha o
// par; um depósito de valor diferente dentro da janela vira divergência de
// valor; janela vencida sem depósito vira atraso de liquidação.
func (s *Service) detectSettlementGaps(buckets eventBuckets, asOf time.Time) []domain.Exception {
	exceptions := make([]domain.Exception, 0)
	usedDeposits := make(map[string]bool)

	for _, payout := range buckets.payouts {
		deadline := payout.OccurredAt.Add(settlementWindowDays * 24 * time.Hour)

		var nearest *domain.FinanceEvent
		var nearestGap time.Duration
		matched := false

		for _, deposit := range buckets.deposits {
			if usedDeposits[deposit.ID] {
				continue
			}
			if deposit.OccurredAt.Before(payout.OccurredAt) || deposit.OccurredAt.After(deadline) {
				continue
			}

			if deposit.Amount.Equal(payout.Amount) {
				usedDeposits[deposit.ID] = true
				matched = true
				break
			}

			gap := deposit.OccurredAt.Sub(payout.OccurredAt)
			if nearest == nil || gap < nearestGap {
				nearest = deposit
				nearestGap = gap
			}
		}

		if matched {
			continue
		}

		if nearest != nil {
			usedDeposits[nearest.ID] = true
			exceptions = append(exceptions, newException(
				domain.ExceptionAmountMismatch,
				domain.SeverityCritical,
				fmt.Sprintf("Repasse de %s e depósito de %s divergem dentro da janela de %d dias",
					payout.Amount.StringFixed(2), nearest.Amount.StringFixed(2), settlementWindowDays),
				domain.ActionConfirmAmounts,
				[]string{payout.Provider, nearest.Provider},
				unionRefs(payout.EntityRefs, nearest.EntityRefs),
				map[string]any{
					"payout_event_id":  payout.ID,
					"deposit_event_id": nearest.ID,
					"payout_amount":    payout.Amount.String(),
					"deposit_amount":   nearest.Amount.String(),
					"difference":       payout.Amount.Sub(nearest.Amount).Abs().String(),
				},
				nearest.OccurredAt,
			))
			continue
		}

		if asOf.After(deadline) {
			exceptions = append(exceptions, newException(
				domain.ExceptionSettlementTiming,
				domain.SeverityWarn,
				fmt.Sprintf("Repasse de %s sem depósito correspondente em %d dias",
					payout.Amount.StringFixed(2), settlementWindowDays),
				domain.ActionReviewSettlement,
				[]string{payout.Provider},
				payout.EntityRefs,
				map[string]any{
					"payout_event_id": payout.ID,
					"payout_amount":   payout.Amount.String(),
					"window_days":     settlementWindowDays,
				},
				payout.OccurredAt,
			))
		}
	}

	return exceptions
}

// detectCashVsBooks compara as entradas bancárias do mês com a receita do
// fechamento contábil. Sem fechamento ingerido não há o que comparar.
func (s *Service) detectCashVsBooks(buckets eventBuckets, asOf time.Time) []domain.Exception {
	reference := asOf.UTC().Format("2006-01")

	var report *domain.FinanceEvent
	for _, candidate := range buckets.reports {
		if candidate.MetadataString("reference") == reference {
			report = candidate
		}
	}
	if report == nil {
		return nil
	}

	booksRevenue, ok := report.MetadataDecimal("revenue")
	if !ok || booksRevenue.IsZero() {
		return nil
	}

	monthStart, monthEnd := utils.MonthBounds(asOf)
	bankTotal := decimal.Zero
	for _, inflow := range buckets.bankInflows {
		if inflow.OccurredAt.Before(monthStart) || !inflow.OccurredAt.Before(monthEnd) {
			continue
		}
		bankTotal = bankTotal.Add(inflow.Amount)
	}

	ratio := bankTotal.Sub(booksRevenue).Abs().Div(booksRevenue.Abs())
	if !ratio.GreaterThan(booksDivergenceThreshold) {
		return nil
	}

	return []domain.Exception{newException(
		domain.ExceptionCashVsBooks,
		domain.SeverityCritical,
		fmt.Sprintf("Entradas bancárias de %s divergem da receita contábil de %s no mês %s",
			bankTotal.StringFixed(2), booksRevenue.StringFixed(2), reference),
		domain.ActionAuditBooks,
		[]string{domain.ProviderPluggy, domain.ProviderContaAzul},
		[]string{"period:" + reference},
		map[string]any{
			"reference":        reference,
			"bank_total":       bankTotal.String(),
			"books_revenue":    booksRevenue.String(),
			"divergence_ratio": ratio.Round(4).String(),
			"report_event_id":  report.ID,
		},
		report.OccurredAt,
	)}
}

// detectMissingLedgerEntries aponta pagamentos confirmados cuja janela de
// 30 dias venceu sem nenhum lançamento contábil compartilhando referência.
func (s *Service) detectMissingLedgerEntries(buckets eventBuckets, asOf time.Time) []domain.Exception {
	exceptions := make([]domain.Exception, 0)

	for _, payment := range buckets.payments {
		deadline := payment.OccurredAt.Add(ledgerMatchWindowDays * 24 * time.Hour)
		if asOf.Before(deadline) {
			continue
		}

		if hasLedgerMatch(payment, buckets.ledgerEntries) {
			continue
		}

		exceptions = append(exceptions, newException(
			domain.ExceptionMissingLedgerEntry,
			domain.SeverityWarn,
			fmt.Sprintf("Pagamento de %s sem lançamento contábil em %d dias",
				payment.Amount.StringFixed(2), ledgerMatchWindowDays),
			domain.ActionRecordLedgerEntry,
			[]string{payment.Provider, domain.ProviderContaAzul},
			payment.EntityRefs,
			map[string]any{
				"payment_event_id": payment.ID,
				"payment_amount":   payment.Amount.String(),
				"window_days":      ledgerMatchWindowDays,
			},
			payment.OccurredAt,
		))
	}

	return exceptions
}

func bucketEvents(events []*domain.FinanceEvent) eventBuckets {
	buckets := eventBuckets{}

	for _, event := range events {
		switch event.EventType {
		case domain.EventPayoutConfirmed:
			buckets.payouts = append(buckets.payouts, event)
		case domain.EventDepositDetected:
			buckets.deposits = append(buckets.deposits, event)
			buckets.bankInflows = append(buckets.bankInflows, event)
		case domain.EventPaymentReceived:
			buckets.payments = append(buckets.payments, event)
		case domain.EventLedgerEntryRecorded, domain.EventExpenseRecorded:
			buckets.ledgerEntries = append(buckets.ledgerEntries, event)
		case domain.EventTransactionPosted:
			if event.Amount.IsPositive() {
				buckets.bankInflows = append(buckets.bankInflows, event)
			}
		case domain.EventPeriodReport:
			buckets.reports = append(buckets.reports, event)
		}
	}

	return buckets
}

func hasLedgerMatch(payment *domain.FinanceEvent, entries []*domain.FinanceEvent) bool {
	for _, entry := range entries {
		if !sharesRef(payment.EntityRefs, entry.EntityRefs) {
			continue
		}

		gap := entry.OccurredAt.Sub(payment.OccurredAt)
		if gap < 0 {
			gap = -gap
		}
		if gap <= ledgerMatchWindowDays*24*time.Hour {
			return true
		}
	}

	return false
}

func sharesRef(a, b []string) bool {
	for _, ref := range a {
		for _, other := range b {
			if ref == other {
				return true
			}
		}
	}
	return false
}

func unionRefs(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	union := make([]string, 0, len(a)+len(b))

	for _, ref := range append(append([]string{}, a...), b...) {
		if seen[ref] {
			continue
		}
		seen[ref] = true
		union = append(union, ref)
	}

	return union
}

// newException monta uma exceção com identificador determinístico: o mesmo
// achado recomputado em snapshots sucessivos mantém o mesmo id.
func newException(exType, severity, summary, action string, providers, refs []string, evidence map[string]any, detectedAt time.Time) domain.Exception {
	id := "exc_" + exType
	if hash, err := utils.HashCanonical(map[string]any{
		"type":     exType,
		"refs":     refs,
		"evidence": evidence,
	}); err == nil {
		id = "exc_" + hash[:12]
	}

	return domain.Exception{
		ID:                id,
		Type:              exType,
		Severity:          severity,
		Summary:           summary,
		Providers:         providers,
		EntityRefs:        refs,
		RecommendedAction: action,
		Evidence:          evidence,
		DetectedAt:        detectedAt.UTC(),
	}
}

func sortExceptions(exceptions []domain.Exception) {
	sort.SliceStable(exceptions, func(i, j int) bool {
		ri, rj := domain.SeverityRank(exceptions[i].Severity), domain.SeverityRank(exceptions[j].Severity)
		if ri != rj {
			return ri > rj
		}
		if exceptions[i].Type != exceptions[j].Type {
			return exceptions[i].Type < exceptions[j].Type
		}
		return exceptions[i].ID < exceptions[j].ID
	})
}
