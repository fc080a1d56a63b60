package receipting

import (
	"context"

	"github.com/opsledger/finance-ledger-api/internal/domain"
)

// ReceiptInput descreve a ação a receitar. Inputs e Outputs são
// canonicalizados e reduzidos a hash no momento da gravação.
type ReceiptInput struct {
	ActionType       string
	Inputs           any
	Outputs          any
	PolicyDecisionID *string
	Metadata         map[string]any
}

// Receipter registra e verifica recibos da cadeia de auditoria
type Receipter interface {
	// Record anexa um recibo ao fim da cadeia do tenant/office
	Record(ctx context.Context, scope domain.OfficeScope, input ReceiptInput) (*domain.Receipt, error)

	// GetReceipt devolve um recibo pelo id
	GetReceipt(ctx context.Context, scope domain.OfficeScope, receiptID string) (*domain.Receipt, error)

	// ListReceipts devolve recibos do tenant/office, mais recentes primeiro
	ListReceipts(ctx context.Context, scope domain.OfficeScope, limit, offset int) ([]*domain.Receipt, error)

	// Verify confere se inputs/outputs candidatos batem com os hashes gravados
	Verify(ctx context.Context, scope domain.OfficeScope, receiptID string, inputs, outputs any) (bool, error)

	// VerifyChain percorre a cadeia completa elo a elo
	VerifyChain(ctx context.Context, scope domain.OfficeScope) (*domain.ReceiptVerification, error)
}
