package contaazul

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	contaazuldomain "github.com/opsledger/finance-ledger-api/infrastructure/integrator/contaazul/domain"
	"github.com/opsledger/finance-ledger-api/infrastructure/integrator/contaazul/contaazulclient"
	"github.com/opsledger/finance-ledger-api/internal/config"
	"github.com/opsledger/finance-ledger-api/internal/domain"
)

const maxPagesPerSync = 20

type ContaAzulIntegrator interface {
	Name() string
	FetchEvents(ctx context.Context, externalAccountID, cursor string) ([]domain.ProviderEvent, string, error)
	ParseWebhook(payload []byte) ([]domain.ProviderEvent, error)
}

type ContaAzulService struct {
	cfg    *config.Config
	Client contaazulclient.Client
}

func New(cfg *config.Config, client contaazulclient.Client) ContaAzulIntegrator {
	return &ContaAzulService{
		cfg:    cfg,
		Client: client,
	}
}

func (s *ContaAzulService) Name() string {
	return domain.ProviderContaAzul
}

// FetchEvents percorre vendas, faturas e lançamentos desde o cursor e busca
// o fechamento do mês corrente e do anterior. Fechamentos regerados pelo
// ERP ganham novo generated_at e entram como novo period_report.
func (s *ContaAzulService) FetchEvents(ctx context.Context, externalAccountID, cursor string) ([]domain.ProviderEvent, string, error) {
	events := make([]domain.ProviderEvent, 0)

	since := s.resolveSince(cursor)
	newest := since

	for page := 1; page <= maxPagesPerSync; page++ {
		sales, err := s.Client.ListSales(ctx, since, page)
		if err != nil {
			return nil, cursor, fmt.Errorf("erro ao consultar vendas na ContaAzul: %w", err)
		}

		for i := range sales {
			sale := sales[i]

			if event, ok := s.mapSale(&sale); ok {
				events = append(events, event)
			}

			if sale.Emission.After(newest) {
				newest = sale.Emission
			}
		}

		if len(sales) < pageSizeHint {
			break
		}
	}

	for page := 1; page <= maxPagesPerSync; page++ {
		invoices, err := s.Client.ListInvoices(ctx, since, page)
		if err != nil {
			return nil, cursor, fmt.Errorf("erro ao consultar faturas na ContaAzul: %w", err)
		}

		for i := range invoices {
			invoice := invoices[i]
			mapped := s.mapInvoice(&invoice)
			events = append(events, mapped...)

			for j := range mapped {
				if mapped[j].OccurredAt.After(newest) {
					newest = mapped[j].OccurredAt
				}
			}
		}

		if len(invoices) < pageSizeHint {
			break
		}
	}

	for page := 1; page <= maxPagesPerSync; page++ {
		entries, err := s.Client.ListEntries(ctx, since, page)
		if err != nil {
			return nil, cursor, fmt.Errorf("erro ao consultar lançamentos na ContaAzul: %w", err)
		}

		for i := range entries {
			entry := entries[i]
			events = append(events, s.mapEntry(&entry))

			if entry.Date.After(newest) {
				newest = entry.Date
			}
		}

		if len(entries) < pageSizeHint {
			break
		}
	}

	now := time.Now().UTC()
	for _, reference := range []string{now.Format("2006-01"), now.AddDate(0, -1, 0).Format("2006-01")} {
		summary, err := s.Client.GetMonthlySummary(ctx, reference)
		if err != nil {
			return nil, cursor, fmt.Errorf("erro ao consultar fechamento mensal na ContaAzul: %w", err)
		}
		if summary != nil {
			events = append(events, s.mapSummary(summary))
		}
	}

	return events, newest.UTC().Format(time.RFC3339), nil
}

func (s *ContaAzulService) ParseWebhook(payload []byte) ([]domain.ProviderEvent, error) {
	var envelope contaazuldomain.WebhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("erro ao decodificar webhook da ContaAzul: %w", err)
	}

	events := make([]domain.ProviderEvent, 0)

	switch envelope.Event {
	case "sale.created", "sale.committed":
		var sale contaazuldomain.Sale
		if err := json.Unmarshal(envelope.Data, &sale); err != nil {
			return nil, fmt.Errorf("erro ao decodificar venda do webhook: %w", err)
		}
		if event, ok := s.mapSale(&sale); ok {
			events = append(events, event)
		}
	case "invoice.created", "invoice.paid":
		var invoice contaazuldomain.Invoice
		if err := json.Unmarshal(envelope.Data, &invoice); err != nil {
			return nil, fmt.Errorf("erro ao decodificar fatura do webhook: %w", err)
		}
		events = append(events, s.mapInvoice(&invoice)...)
	case "entry.created":
		var entry contaazuldomain.FinancialEntry
		if err := json.Unmarshal(envelope.Data, &entry); err != nil {
			return nil, fmt.Errorf("erro ao decodificar lançamento do webhook: %w", err)
		}
		events = append(events, s.mapEntry(&entry))
	}

	return events, nil
}

func (s *ContaAzulService) mapSale(sale *contaazuldomain.Sale) (domain.ProviderEvent, bool) {
	if sale.Status != contaazuldomain.SaleCommitted {
		return domain.ProviderEvent{}, false
	}

	raw, _ := json.Marshal(sale)

	metadata := map[string]any{
		"sale_number": sale.Number,
	}
	if sale.Customer != nil {
		metadata["customer_name"] = sale.Customer.Name
	}

	return domain.ProviderEvent{
		ProviderEventID: sale.ID,
		EventType:       domain.EventSaleBooked,
		OccurredAt:      sale.Emission,
		Amount:          decimal.NewFromFloat(sale.Total),
		Currency:        "BRL",
		EntityRefs:      []string{"sale:" + strconv.Itoa(sale.Number)},
		Metadata:        metadata,
		Raw:             raw,
	}, true
}

// mapInvoice pode gerar dois eventos para a mesma fatura: a emissão e,
// quando houver paid_at, a baixa. Cada um tem identificador próprio para
// que a transição de status não colida na deduplicação.
func (s *ContaAzulService) mapInvoice(invoice *contaazuldomain.Invoice) []domain.ProviderEvent {
	if invoice.Status == contaazuldomain.InvoiceCancelled {
		return nil
	}

	raw, _ := json.Marshal(invoice)
	entityRefs := []string{"invoice:" + invoice.Number}

	metadata := map[string]any{
		"invoice_number": invoice.Number,
		"due_date":       invoice.DueDate.UTC().Format(time.DateOnly),
	}
	if invoice.Customer != nil {
		metadata["customer_name"] = invoice.Customer.Name
	}

	events := []domain.ProviderEvent{{
		ProviderEventID: "issued:" + invoice.ID,
		EventType:       domain.EventInvoiceIssued,
		OccurredAt:      invoice.IssuedAt,
		Amount:          decimal.NewFromFloat(invoice.Value),
		Currency:        "BRL",
		EntityRefs:      entityRefs,
		Metadata:        metadata,
		Raw:             raw,
	}}

	if invoice.Status == contaazuldomain.InvoicePaid && invoice.PaidAt != nil {
		events = append(events, domain.ProviderEvent{
			ProviderEventID: "paid:" + invoice.ID,
			EventType:       domain.EventInvoicePaid,
			OccurredAt:      *invoice.PaidAt,
			Amount:          decimal.NewFromFloat(invoice.Value),
			Currency:        "BRL",
			EntityRefs:      entityRefs,
			Metadata:        metadata,
			Raw:             raw,
		})
	}

	return events
}

func (s *ContaAzulService) mapEntry(entry *contaazuldomain.FinancialEntry) domain.ProviderEvent {
	raw, _ := json.Marshal(entry)

	eventType := domain.EventLedgerEntryRecorded
	if entry.Kind == contaazuldomain.EntryExpense {
		eventType = domain.EventExpenseRecorded
	}

	entityRefs := []string{"ledger:" + entry.ID}
	if entry.Reference != "" {
		entityRefs = append(entityRefs, "invoice:"+entry.Reference)
	}

	return domain.ProviderEvent{
		ProviderEventID: entry.ID,
		EventType:       eventType,
		OccurredAt:      entry.Date,
		Amount:          decimal.NewFromFloat(entry.Value),
		Currency:        "BRL",
		EntityRefs:      entityRefs,
		Metadata: map[string]any{
			"description": entry.Description,
			"category":    entry.Category,
		},
		Raw: raw,
	}
}

func (s *ContaAzulService) mapSummary(summary *contaazuldomain.MonthlySummary) domain.ProviderEvent {
	raw, _ := json.Marshal(summary)

	return domain.ProviderEvent{
		ProviderEventID: fmt.Sprintf("period:%s:%d", summary.Reference, summary.GeneratedAt.Unix()),
		EventType:       domain.EventPeriodReport,
		OccurredAt:      summary.GeneratedAt,
		Amount:          decimal.NewFromFloat(summary.Net),
		Currency:        "BRL",
		EntityRefs:      []string{"period:" + summary.Reference},
		Metadata: map[string]any{
			"reference": summary.Reference,
			"revenue":   decimal.NewFromFloat(summary.TotalRevenue).String(),
			"expenses":  decimal.NewFromFloat(summary.TotalExpenses).String(),
			"net":       decimal.NewFromFloat(summary.Net).String(),
		},
		Raw: raw,
	}
}

func (s *ContaAzulService) resolveSince(cursor string) time.Time {
	if cursor != "" {
		if parsed, err := time.Parse(time.RFC3339, cursor); err == nil {
			return parsed
		}
	}

	lookback := s.cfg.ProviderSync.LookbackDays
	if lookback <= 0 {
		lookback = 30
	}

	return time.Now().UTC().AddDate(0, 0, -lookback)
}

const pageSizeHint = 100
