package snapshotting

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opsledger/finance-ledger-api/internal/domain"
	"github.com/opsledger/finance-ledger-api/pkg/log"
)

const defaultCurrency = "BRL"

// Limiares das sugestões heurísticas do capítulo de ações
const (
	overdueReceivableDays = 14
	mismatchAlertCount    = 3
)

var expenseGrowthAlert = decimal.RequireFromString("0.10")

// buildNowChapter soma o saldo mais recente reportado por cada conta de
// cada provedor. Pendentes que já ganharam a versão lançada da mesma
// transação não entram nos totais de pendência.
func buildNowChapter(events []*domain.FinanceEvent, asOf time.Time) domain.NowChapter {
	latestBalances := make(map[string]*domain.FinanceEvent)
	settledTxRefs := make(map[string]bool)
	currency := ""

	for _, event := range events {
		switch event.EventType {
		case domain.EventBalanceReported:
			if currency == "" && event.Currency != "" {
				currency = event.Currency
			}
			key := event.Provider + "|" + firstRefWithPrefix(event, "account:")
			current := latestBalances[key]
			if current == nil || event.OccurredAt.After(current.OccurredAt) {
				latestBalances[key] = event
			}
		case domain.EventTransactionPosted, domain.EventDepositDetected:
			if ref := firstRefWithPrefix(event, "tx:"); ref != "" {
				settledTxRefs[ref] = true
			}
		}
	}

	cash := decimal.Zero
	var balanceAsOf *time.Time
	for _, balance := range latestBalances {
		cash = cash.Add(balance.Amount)
		if balanceAsOf == nil || balance.OccurredAt.After(*balanceAsOf) {
			occurred := balance.OccurredAt
			balanceAsOf = &occurred
		}
	}

	pendingInflow := decimal.Zero
	pendingOutflow := decimal.Zero
	for _, event := range events {
		if event.EventType != domain.EventTransactionPending {
			continue
		}
		if ref := firstRefWithPrefix(event, "tx:"); ref != "" && settledTxRefs[ref] {
			continue
		}
		if event.Amount.IsNegative() {
			pendingOutflow = pendingOutflow.Add(event.Amount.Abs())
		} else {
			pendingInflow = pendingInflow.Add(event.Amount)
		}
	}

	confidence := domain.ConfidenceNone
	if balanceAsOf != nil {
		confidence = domain.ConfidenceForAge(asOf.Sub(*balanceAsOf))
	}
	if currency == "" {
		currency = defaultCurrency
	}

	return domain.NowChapter{
		CashPosition:   cash,
		Currency:       currency,
		PendingInflow:  pendingInflow,
		PendingOutflow: pendingOutflow,
		BalanceAsOf:    balanceAsOf,
		Confidence:     confidence,
	}
}

// buildNextChapter projeta o caixa no horizonte configurado a partir de
// três classes de compromissos ainda em aberto: faturas emitidas sem
// pagamento, repasses confirmados que ainda não viraram depósito e folhas
// agendadas sem a confirmação de pagamento
func (s *Service) buildNextChapter(events []*domain.FinanceEvent, now domain.NowChapter, asOf time.Time) domain.NextChapter {
	lookbackStart := asOf.AddDate(0, 0, -s.cfg.Snapshot.ForecastLookbackDays)
	horizonEnd := asOf.AddDate(0, 0, s.cfg.Snapshot.ForecastHorizonDays)

	paidInvoiceRefs := collectRefs(events, "invoice:", domain.EventInvoicePaid, domain.EventPaymentReceived)
	paidPayrollRefs := collectRefs(events, "payroll:", domain.EventPayrollRunPaid)

	var deposits []*domain.FinanceEvent
	for _, event := range events {
		if event.EventType == domain.EventDepositDetected {
			deposits = append(deposits, event)
		}
	}

	var components []domain.ForecastComponent
	for _, event := range events {
		if event.OccurredAt.Before(lookbackStart) || event.OccurredAt.After(horizonEnd) {
			continue
		}

		switch event.EventType {
		case domain.EventInvoiceIssued:
			ref := firstRefWithPrefix(event, "invoice:")
			if ref != "" && paidInvoiceRefs[ref] {
				continue
			}
			components = append(components, domain.ForecastComponent{
				Kind:      domain.ComponentExpectedInvoice,
				Direction: domain.DirectionInflow,
				Label:     "Recebimento previsto da fatura " + refSuffix(ref),
				Amount:    event.Amount,
				EntityRef: ref,
				DueAt:     invoiceDueAt(event),
			})

		case domain.EventPayoutConfirmed:
			if payoutSettled(event, deposits) {
				continue
			}
			ref := firstRefWithPrefix(event, "transfer:")
			occurred := event.OccurredAt
			components = append(components, domain.ForecastComponent{
				Kind:      domain.ComponentPayoutInTransit,
				Direction: domain.DirectionInflow,
				Label:     "Repasse a caminho da conta",
				Amount:    event.Amount,
				EntityRef: ref,
				DueAt:     &occurred,
			})

		case domain.EventPayrollRunScheduled:
			ref := firstRefWithPrefix(event, "payroll:")
			if ref != "" && paidPayrollRefs[ref] {
				continue
			}
			due := event.OccurredAt
			components = append(components, domain.ForecastComponent{
				Kind:      domain.ComponentScheduledPayroll,
				Direction: domain.DirectionOutflow,
				Label:     "Folha de pagamento agendada",
				Amount:    event.Amount.Abs(),
				EntityRef: ref,
				DueAt:     &due,
			})
		}
	}

	sort.Slice(components, func(i, j int) bool {
		if components[i].Kind != components[j].Kind {
			return components[i].Kind < components[j].Kind
		}
		if components[i].EntityRef != components[j].EntityRef {
			return components[i].EntityRef < components[j].EntityRef
		}
		return components[i].Label < components[j].Label
	})

	inflow := decimal.Zero
	outflow := decimal.Zero
	for _, component := range components {
		if component.Direction == domain.DirectionInflow {
			inflow = inflow.Add(component.Amount)
		} else {
			outflow = outflow.Add(component.Amount)
		}
	}
	netChange := inflow.Sub(outflow)

	return domain.NextChapter{
		HorizonDays:      s.cfg.Snapshot.ForecastHorizonDays,
		Inflow:           inflow,
		Outflow:          outflow,
		NetChange:        netChange,
		ProjectedBalance: now.CashPosition.Add(netChange),
		Components:       components,
	}
}

// buildMonthChapter consolida o mês corrente. Um period_report do ERP para
// o mês vence sozinho; sem relatório, soma eventos brutos preferindo os
// lançamentos contábeis ao rastro de pagamentos.
func buildMonthChapter(events []*domain.FinanceEvent, asOf time.Time) domain.MonthChapter {
	reference := asOf.Format("2006-01")
	monthStart := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, time.UTC)

	var report *domain.FinanceEvent
	for _, event := range events {
		if event.EventType != domain.EventPeriodReport {
			continue
		}
		if event.MetadataString("reference") != reference {
			continue
		}
		if report == nil || event.OccurredAt.After(report.OccurredAt) {
			report = event
		}
	}

	if report != nil {
		revenue, _ := report.MetadataDecimal("revenue")
		expenses, _ := report.MetadataDecimal("expenses")
		net, ok := report.MetadataDecimal("net")
		if !ok {
			net = revenue.Sub(expenses)
		}
		return domain.MonthChapter{
			Reference: reference,
			Revenue:   revenue,
			Expenses:  expenses,
			Net:       net,
			Source:    domain.MonthSourceReport,
		}
	}

	revenue, expenses := rawMonthTotals(events, monthStart, asOf)
	return domain.MonthChapter{
		Reference: reference,
		Revenue:   revenue,
		Expenses:  expenses,
		Net:       revenue.Sub(expenses),
		Source:    domain.MonthSourceRaw,
	}
}

// rawMonthTotals soma receitas e despesas do período. Quando o ERP mandou
// lançamentos contábeis, eles são a fonte; sem lançamentos, caem no rastro
// do processador e do banco.
func rawMonthTotals(events []*domain.FinanceEvent, from, to time.Time) (decimal.Decimal, decimal.Decimal) {
	ledgerRevenue := decimal.Zero
	ledgerExpenses := decimal.Zero
	hasBooks := false

	processorRevenue := decimal.Zero
	bankExpenses := decimal.Zero

	for _, event := range events {
		if event.OccurredAt.Before(from) || event.OccurredAt.After(to) {
			continue
		}

		switch event.EventType {
		case domain.EventLedgerEntryRecorded:
			hasBooks = true
			ledgerRevenue = ledgerRevenue.Add(event.Amount.Abs())
		case domain.EventExpenseRecorded:
			hasBooks = true
			ledgerExpenses = ledgerExpenses.Add(event.Amount.Abs())
		case domain.EventPaymentReceived:
			processorRevenue = processorRevenue.Add(event.Amount)
		case domain.EventPayrollRunPaid:
			bankExpenses = bankExpenses.Add(event.Amount.Abs())
		case domain.EventTransactionPosted:
			if event.Amount.IsNegative() {
				bankExpenses = bankExpenses.Add(event.Amount.Abs())
			}
		}
	}

	if hasBooks {
		return ledgerRevenue, ledgerExpenses
	}
	return processorRevenue, bankExpenses
}

func (s *Service) buildActionsChapter(
	ctx context.Context,
	scope domain.OfficeScope,
	events []*domain.FinanceEvent,
	now domain.NowChapter,
	next domain.NextChapter,
	month domain.MonthChapter,
	reconcile domain.ReconcileChapter,
	asOf time.Time,
) (domain.ActionsChapter, error) {
	logger := log.ForContext(ctx)

	proposalEvents, err := s.eventRepository.ListProposals(ctx, scope.TenantID, scope.OfficeID, domain.ProposalStatusPending)
	if err != nil {
		return domain.ActionsChapter{}, fmt.Errorf("erro ao listar propostas pendentes: %w", err)
	}

	pending := make([]domain.ProposalSummary, 0, len(proposalEvents))
	for _, event := range proposalEvents {
		proposal, err := domain.ProposalFromEvent(event)
		if err != nil {
			logger.WithFields(log.Fields{
				"proposal_id": event.ID,
				"error":       err.Error(),
			}).Warn("Proposta com metadata ilegível ignorada no snapshot")
			continue
		}
		pending = append(pending, domain.ProposalSummary{
			ID:         proposal.ID,
			Title:      proposal.Meta.Title,
			ActionType: proposal.Meta.ActionType,
			RiskTier:   proposal.Meta.RiskTier,
			Amount:     proposal.Amount,
			CreatedAt:  proposal.CreatedAt,
		})
	}

	return domain.ActionsChapter{
		PendingProposals: pending,
		Candidates:       buildCandidates(events, now, next, month, reconcile, asOf),
	}, nil
}

// buildCandidates aplica as quatro heurísticas de sugestão. Cada candidata
// carrega em Evidence os números que a sustentam.
func buildCandidates(
	events []*domain.FinanceEvent,
	now domain.NowChapter,
	next domain.NextChapter,
	month domain.MonthChapter,
	reconcile domain.ReconcileChapter,
	asOf time.Time,
) []domain.ActionCandidate {
	var candidates []domain.ActionCandidate

	if next.Outflow.GreaterThan(now.CashPosition) {
		candidates = append(candidates, domain.ActionCandidate{
			ActionType: domain.ProposalActionTransfer,
			Title:      "Saídas previstas excedem o caixa disponível",
			RiskTier:   domain.RiskTierHigh,
			Evidence: map[string]any{
				"forecast_outflow": next.Outflow.String(),
				"cash_position":    now.CashPosition.String(),
				"shortfall":        next.Outflow.Sub(now.CashPosition).String(),
			},
		})
	}

	if count, total := overdueReceivables(events, next, asOf); count > 0 {
		candidates = append(candidates, domain.ActionCandidate{
			ActionType: domain.ProposalActionAdjustment,
			Title:      fmt.Sprintf("Cobrar %d faturas vencidas há mais de %d dias", count, overdueReceivableDays),
			RiskTier:   domain.RiskTierMedium,
			Evidence: map[string]any{
				"overdue_count": count,
				"overdue_total": total.String(),
			},
		})
	}

	if reconcile.OpenCount >= mismatchAlertCount {
		candidates = append(candidates, domain.ActionCandidate{
			ActionType: domain.ProposalActionAdjustment,
			Title:      "Revisar divergências de conciliação acumuladas",
			RiskTier:   domain.RiskTierMedium,
			Evidence: map[string]any{
				"open_exceptions": reconcile.OpenCount,
			},
		})
	}

	if previous, ok := previousMonthExpenses(events, month); ok && previous.IsPositive() {
		growth := month.Expenses.Sub(previous).Div(previous)
		if growth.GreaterThan(expenseGrowthAlert) {
			candidates = append(candidates, domain.ActionCandidate{
				ActionType: domain.ProposalActionAdjustment,
				Title:      "Despesas do mês cresceram sobre o mês anterior",
				RiskTier:   domain.RiskTierLow,
				Evidence: map[string]any{
					"month_expenses":    month.Expenses.String(),
					"previous_expenses": previous.String(),
					"growth_pct":        growth.Mul(decimal.NewFromInt(100)).Round(1).String(),
				},
			})
		}
	}

	return candidates
}

// overdueReceivables conta as faturas em aberto do forecast cujo
// vencimento já passou do limite de cobrança
func overdueReceivables(events []*domain.FinanceEvent, next domain.NextChapter, asOf time.Time) (int, decimal.Decimal) {
	count := 0
	total := decimal.Zero
	deadline := asOf.AddDate(0, 0, -overdueReceivableDays)

	for _, component := range next.Components {
		if component.Kind != domain.ComponentExpectedInvoice {
			continue
		}
		if component.DueAt == nil || !component.DueAt.Before(deadline) {
			continue
		}
		count++
		total = total.Add(component.Amount)
	}
	return count, total
}

// previousMonthExpenses resolve as despesas do mês anterior com a mesma
// precedência do capítulo month: relatório do ERP primeiro, eventos brutos
// como reserva
func previousMonthExpenses(events []*domain.FinanceEvent, month domain.MonthChapter) (decimal.Decimal, bool) {
	current, err := time.Parse("2006-01", month.Reference)
	if err != nil {
		return decimal.Zero, false
	}
	previousStart := current.AddDate(0, -1, 0)
	previousReference := previousStart.Format("2006-01")

	var report *domain.FinanceEvent
	for _, event := range events {
		if event.EventType != domain.EventPeriodReport {
			continue
		}
		if event.MetadataString("reference") != previousReference {
			continue
		}
		if report == nil || event.OccurredAt.After(report.OccurredAt) {
			report = event
		}
	}
	if report != nil {
		expenses, ok := report.MetadataDecimal("expenses")
		return expenses, ok
	}

	_, expenses := rawMonthTotals(events, previousStart, current)
	if expenses.IsZero() {
		return decimal.Zero, false
	}
	return expenses, true
}

func payoutSettled(payout *domain.FinanceEvent, deposits []*domain.FinanceEvent) bool {
	for _, deposit := range deposits {
		if deposit.OccurredAt.After(payout.OccurredAt) && deposit.Amount.Equal(payout.Amount) {
			return true
		}
	}
	return false
}

func invoiceDueAt(event *domain.FinanceEvent) *time.Time {
	raw := event.MetadataString("due_date")
	if raw == "" {
		return nil
	}
	due, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil
	}
	return &due
}

// collectRefs junta as referências com o prefixo dado presentes em eventos
// dos tipos informados
func collectRefs(events []*domain.FinanceEvent, prefix string, eventTypes ...string) map[string]bool {
	wanted := make(map[string]bool, len(eventTypes))
	for _, eventType := range eventTypes {
		wanted[eventType] = true
	}

	refs := make(map[string]bool)
	for _, event := range events {
		if !wanted[event.EventType] {
			continue
		}
		for _, ref := range event.EntityRefs {
			if strings.HasPrefix(ref, prefix) {
				refs[ref] = true
			}
		}
	}
	return refs
}

func firstRefWithPrefix(event *domain.FinanceEvent, prefix string) string {
	for _, ref := range event.EntityRefs {
		if strings.HasPrefix(ref, prefix) {
			return ref
		}
	}
	return ""
}

func refSuffix(ref string) string {
	if idx := strings.Index(ref, ":"); idx >= 0 {
		return ref[idx+1:]
	}
	return ref
}
