package pagarme

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	pagarmedomain "github.com/opsledger/finance-ledger-api/infrastructure/integrator/pagarme/domain"
	"github.com/opsledger/finance-ledger-api/infrastructure/integrator/pagarme/pagarmeclient"
	"github.com/opsledger/finance-ledger-api/internal/config"
	"github.com/opsledger/finance-ledger-api/internal/domain"
)

const maxPagesPerSync = 20

type PagarmeIntegrator interface {
	Name() string
	FetchEvents(ctx context.Context, externalAccountID, cursor string) ([]domain.ProviderEvent, string, error)
	ParseWebhook(payload []byte) ([]domain.ProviderEvent, error)
}

type PagarmeService struct {
	cfg    *config.Config
	Client pagarmeclient.Client
}

func New(cfg *config.Config, client pagarmeclient.Client) PagarmeIntegrator {
	return &PagarmeService{
		cfg:    cfg,
		Client: client,
	}
}

func (s *PagarmeService) Name() string {
	return domain.ProviderPagarme
}

// FetchEvents percorre cobranças e repasses desde o cursor. As credenciais
// da Pagar.me são por conta do lojista, então externalAccountID só
// identifica a conexão e não entra na consulta.
func (s *PagarmeService) FetchEvents(ctx context.Context, externalAccountID, cursor string) ([]domain.ProviderEvent, string, error) {
	events := make([]domain.ProviderEvent, 0)

	since := s.resolveSince(cursor)
	newest := since

	for page := 1; page <= maxPagesPerSync; page++ {
		chargePage, err := s.Client.ListCharges(ctx, since, page)
		if err != nil {
			return nil, cursor, fmt.Errorf("erro ao consultar cobranças na Pagar.me: %w", err)
		}

		for i := range chargePage.Data {
			charge := chargePage.Data[i]

			if event, ok := s.mapCharge(&charge); ok {
				events = append(events, event)
			}

			if charge.CreatedAt.After(newest) {
				newest = charge.CreatedAt
			}
		}

		if len(chargePage.Data) < pageSizeHint {
			break
		}
	}

	for page := 1; page <= maxPagesPerSync; page++ {
		transferPage, err := s.Client.ListTransfers(ctx, since, page)
		if err != nil {
			return nil, cursor, fmt.Errorf("erro ao consultar repasses na Pagar.me: %w", err)
		}

		for i := range transferPage.Data {
			transfer := transferPage.Data[i]

			if event, ok := s.mapTransfer(&transfer); ok {
				events = append(events, event)
			}

			if transfer.CreatedAt.After(newest) {
				newest = transfer.CreatedAt
			}
		}

		if len(transferPage.Data) < pageSizeHint {
			break
		}
	}

	return events, newest.UTC().Format(time.RFC3339), nil
}

func (s *PagarmeService) ParseWebhook(payload []byte) ([]domain.ProviderEvent, error) {
	var envelope pagarmedomain.WebhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("erro ao decodificar webhook da Pagar.me: %w", err)
	}

	events := make([]domain.ProviderEvent, 0)

	switch envelope.Type {
	case "charge.paid":
		var charge pagarmedomain.Charge
		if err := json.Unmarshal(envelope.Data, &charge); err != nil {
			return nil, fmt.Errorf("erro ao decodificar cobrança do webhook: %w", err)
		}
		if event, ok := s.mapCharge(&charge); ok {
			events = append(events, event)
		}
	case "transfer.paid", "transfer.transferred":
		var transfer pagarmedomain.Transfer
		if err := json.Unmarshal(envelope.Data, &transfer); err != nil {
			return nil, fmt.Errorf("erro ao decodificar repasse do webhook: %w", err)
		}
		if event, ok := s.mapTransfer(&transfer); ok {
			events = append(events, event)
		}
	}

	return events, nil
}

// mapCharge só gera evento para cobrança paga; os demais status ainda não
// representam dinheiro movimentado.
func (s *PagarmeService) mapCharge(charge *pagarmedomain.Charge) (domain.ProviderEvent, bool) {
	if charge.Status != pagarmedomain.ChargePaid || charge.PaidAt == nil {
		return domain.ProviderEvent{}, false
	}

	raw, _ := json.Marshal(charge)

	entityRefs := []string{"charge:" + charge.ID}
	if charge.Code != "" {
		entityRefs = append(entityRefs, "invoice:"+charge.Code)
	}

	metadata := map[string]any{
		"payment_method": charge.PaymentMethod,
	}
	if charge.Customer != nil {
		metadata["customer_name"] = charge.Customer.Name
	}

	return domain.ProviderEvent{
		ProviderEventID: charge.ID,
		EventType:       domain.EventPaymentReceived,
		OccurredAt:      *charge.PaidAt,
		Amount:          decimal.New(charge.Amount, -2),
		Currency:        normalizeCurrency(charge.Currency),
		EntityRefs:      entityRefs,
		Metadata:        metadata,
		Raw:             raw,
	}, true
}

func (s *PagarmeService) mapTransfer(transfer *pagarmedomain.Transfer) (domain.ProviderEvent, bool) {
	if transfer.Status != pagarmedomain.TransferTransferred || transfer.TransferredAt == nil {
		return domain.ProviderEvent{}, false
	}

	raw, _ := json.Marshal(transfer)

	return domain.ProviderEvent{
		ProviderEventID: transfer.ID,
		EventType:       domain.EventPayoutConfirmed,
		OccurredAt:      *transfer.TransferredAt,
		Amount:          decimal.New(transfer.Amount, -2),
		Currency:        "BRL",
		EntityRefs:      []string{"transfer:" + transfer.ID},
		Metadata: map[string]any{
			"bank_account_id": transfer.BankAccountID,
		},
		Raw: raw,
	}, true
}

func (s *PagarmeService) resolveSince(cursor string) time.Time {
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

func normalizeCurrency(currency string) string {
	if currency == "" {
		return "BRL"
	}
	return currency
}
