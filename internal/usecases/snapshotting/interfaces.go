package snapshotting

import (
	"context"
	"time"

	"github.com/opsledger/finance-ledger-api/internal/domain"
)

// SnapshotResponse embrulha o snapshot com o sinal de onboarding e a
// indicação de cache
type SnapshotResponse struct {
	Snapshot  *domain.Snapshot `json:"snapshot"`
	Connected bool             `json:"connected"`
	Cached    bool             `json:"cached"`
}

// ExceptionsReport é a resposta do endpoint de exceções: achados dos
// detectores mais as regras de superfície, ordenados por severidade
type ExceptionsReport struct {
	Exceptions    []domain.Exception `json:"exceptions"`
	AsOf          time.Time          `json:"as_of"`
	CorrelationID string             `json:"correlation_id"`
	ReceiptID     string             `json:"receipt_id,omitempty"`
}

type Snapshotter interface {
	// GetSnapshot devolve o snapshot mais recente, recomputando de forma
	// síncrona quando o cache estourou o orçamento de staleness. Se a
	// recomputação falhar e houver um snapshot antigo, devolve o antigo.
	GetSnapshot(ctx context.Context, scope domain.OfficeScope) (*SnapshotResponse, error)

	// ComputeSnapshot sempre recomputa os cinco capítulos a partir do
	// ledger, persiste o resultado e emite um recibo do cálculo
	ComputeSnapshot(ctx context.Context, scope domain.OfficeScope, trigger string) (*domain.Snapshot, error)

	// GetExceptions aplica as regras de superfície sobre o snapshot
	// corrente e receita a leitura
	GetExceptions(ctx context.Context, scope domain.OfficeScope) (*ExceptionsReport, error)
}
