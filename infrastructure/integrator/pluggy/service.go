package pluggy

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	pluggydomain "github.com/opsledger/finance-ledger-api/infrastructure/integrator/pluggy/domain"
	"github.com/opsledger/finance-ledger-api/infrastructure/integrator/pluggy/pluggyclient"
	"github.com/opsledger/finance-ledger-api/internal/config"
	"github.com/opsledger/finance-ledger-api/internal/domain"
)

// Limite de páginas por ciclo de poll; o restante fica para o próximo ciclo
const maxPagesPerSync = 20

type PluggyIntegrator interface {
	Name() string
	FetchEvents(ctx context.Context, externalAccountID, cursor string) ([]domain.ProviderEvent, string, error)
	ParseWebhook(payload []byte) ([]domain.ProviderEvent, error)
}

type PluggyService struct {
	cfg    *config.Config
	Client pluggyclient.Client
}

func New(cfg *config.Config, client pluggyclient.Client) PluggyIntegrator {
	return &PluggyService{
		cfg:    cfg,
		Client: client,
	}
}

func (s *PluggyService) Name() string {
	return domain.ProviderPluggy
}

// FetchEvents lê o saldo corrente e as transações desde o cursor. O cursor
// é o occurred_at mais recente já processado, em RFC3339.
func (s *PluggyService) FetchEvents(ctx context.Context, externalAccountID, cursor string) ([]domain.ProviderEvent, string, error) {
	events := make([]domain.ProviderEvent, 0)

	account, err := s.Client.GetAccount(ctx, externalAccountID)
	if err != nil {
		return nil, cursor, fmt.Errorf("erro ao consultar conta na Pluggy: %w", err)
	}

	events = append(events, s.mapAccountBalance(account))

	from := s.resolveFrom(cursor)
	newest := from

	for page := 1; page <= maxPagesPerSync; page++ {
		transactionPage, err := s.Client.ListTransactions(ctx, externalAccountID, from, page)
		if err != nil {
			return nil, cursor, fmt.Errorf("erro ao consultar transações na Pluggy: %w", err)
		}

		for i := range transactionPage.Results {
			transaction := transactionPage.Results[i]
			events = append(events, s.mapTransaction(&transaction))

			if transaction.Date.After(newest) {
				newest = transaction.Date
			}
		}

		if page >= transactionPage.TotalPages {
			break
		}
	}

	return events, newest.UTC().Format(time.RFC3339), nil
}

// ParseWebhook converte o corpo de um webhook da Pluggy em eventos
// canônicos. Eventos desconhecidos são ignorados sem erro.
func (s *PluggyService) ParseWebhook(payload []byte) ([]domain.ProviderEvent, error) {
	var envelope pluggydomain.WebhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("erro ao decodificar webhook da Pluggy: %w", err)
	}

	events := make([]domain.ProviderEvent, 0)

	switch envelope.Event {
	case "transactions/created", "transactions/updated":
		for i := range envelope.Transactions {
			events = append(events, s.mapTransaction(&envelope.Transactions[i]))
		}
	case "accounts/updated":
		if envelope.Account != nil {
			events = append(events, s.mapAccountBalance(envelope.Account))
		}
	}

	return events, nil
}

// mapAccountBalance gera um balance_reported. O identificador embute o
// updatedAt da conta: a mesma observação repetida em polls sucessivos
// produz o mesmo evento e cai na deduplicação.
func (s *PluggyService) mapAccountBalance(account *pluggydomain.Account) domain.ProviderEvent {
	raw, _ := json.Marshal(account)

	return domain.ProviderEvent{
		ProviderEventID: fmt.Sprintf("balance:%s:%d", account.ID, account.UpdatedAt.Unix()),
		EventType:       domain.EventBalanceReported,
		OccurredAt:      account.UpdatedAt,
		Amount:          decimal.NewFromFloat(account.Balance),
		Currency:        account.CurrencyCode,
		EntityRefs:      []string{"account:" + account.ID},
		Metadata: map[string]any{
			"account_name":   account.Name,
			"account_type":   account.Type,
			"account_number": account.Number,
		},
		Raw: raw,
	}
}

func (s *PluggyService) mapTransaction(transaction *pluggydomain.Transaction) domain.ProviderEvent {
	raw, _ := json.Marshal(transaction)

	// O id do evento carrega o estado da transação. Uma transação que sai
	// de pendente para lançada gera dois eventos imutáveis distintos em vez
	// de colidir com a chave de idempotência do primeiro.
	eventType := domain.EventTransactionPosted
	stage := "posted"
	switch {
	case transaction.Status == pluggydomain.TransactionPending:
		eventType = domain.EventTransactionPending
		stage = "pending"
	case transaction.Type == pluggydomain.TransactionCredit && transaction.PaymentData != nil:
		eventType = domain.EventDepositDetected
	}

	entityRefs := []string{
		"account:" + transaction.AccountID,
		"tx:" + transaction.ID,
	}
	if transaction.PaymentData != nil && transaction.PaymentData.EndToEndID != "" {
		entityRefs = append(entityRefs, "pix:"+transaction.PaymentData.EndToEndID)
	}

	metadata := map[string]any{
		"description": transaction.Description,
	}
	if transaction.PaymentData != nil && transaction.PaymentData.PaymentMethod != "" {
		metadata["payment_method"] = transaction.PaymentData.PaymentMethod
	}

	return domain.ProviderEvent{
		ProviderEventID: stage + ":" + transaction.ID,
		EventType:       eventType,
		OccurredAt:      transaction.Date,
		Amount:          decimal.NewFromFloat(transaction.Amount),
		Currency:        transaction.CurrencyCode,
		EntityRefs:      entityRefs,
		Metadata:        metadata,
		Raw:             raw,
	}
}

func (s *PluggyService) resolveFrom(cursor string) time.Time {
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
