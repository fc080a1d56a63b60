package ingesting

import (
	"context"

	"github.com/opsledger/finance-ledger-api/internal/domain"
)

// ProviderSource é o contrato comum dos integradores de provedor. O cursor
// devolvido por FetchEvents é opaco para este pacote; cada integrador
// decide seu formato.
type ProviderSource interface {
	Name() string
	FetchEvents(ctx context.Context, externalAccountID, cursor string) ([]domain.ProviderEvent, string, error)
	ParseWebhook(payload []byte) ([]domain.ProviderEvent, error)
}

// WebhookResult resume o processamento de um webhook aceito
type WebhookResult struct {
	Provider  string `json:"provider"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	ReceiptID string `json:"receipt_id,omitempty"`
}

// Ingester materializa eventos canônicos no ledger a partir dos provedores
type Ingester interface {
	// SyncOffice executa um ciclo de poll para todos os provedores
	// conectados do tenant/office. Falhas de provedor são isoladas e
	// reportadas no SyncReport, nunca propagadas como erro.
	SyncOffice(ctx context.Context, scope domain.OfficeScope) (*domain.SyncReport, error)

	// HandleWebhook valida a assinatura HMAC e processa o payload pelo
	// mesmo caminho idempotente do poll. Assinatura inválida rejeita sem
	// nenhum efeito colateral.
	HandleWebhook(ctx context.Context, scope domain.OfficeScope, provider, signature string, payload []byte) (*WebhookResult, error)
}
