package explaining

import (
	"context"
	"time"

	"github.com/opsledger/finance-ledger-api/internal/domain"
)

// ConnectionHealth resume o estado de um provedor para o painel de
// conexões, com o próximo passo sugerido ao usuário
type ConnectionHealth struct {
	Provider      string     `json:"provider"`
	Status        string     `json:"status"`
	Staleness     string     `json:"staleness"`
	LastSyncAt    *time.Time `json:"last_sync_at,omitempty"`
	LastWebhookAt *time.Time `json:"last_webhook_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	SuggestedStep string     `json:"suggested_step,omitempty"`
}

type ConnectionsStatus struct {
	Connections []ConnectionHealth `json:"connections"`
	Connected   bool               `json:"connected"`
	AsOf        time.Time          `json:"as_of"`
}

type Explainer interface {
	// GetTimeline devolve a página pedida da linha do tempo de eventos
	GetTimeline(ctx context.Context, filter domain.TimelineFilter) (*domain.TimelinePage, error)

	// ExplainMetric devolve valor, fórmula e eventos-fonte de uma métrica
	// do snapshot corrente
	ExplainMetric(ctx context.Context, scope domain.OfficeScope, metricID string) (*domain.MetricExplanation, error)

	// GetLifecycle monta a escada de estágios de uma entidade a partir dos
	// eventos que a referenciam
	GetLifecycle(ctx context.Context, scope domain.OfficeScope, entityID string) (*domain.EntityLifecycle, error)

	// GetConnectionsStatus resume a saúde de cada provedor do escritório
	GetConnectionsStatus(ctx context.Context, scope domain.OfficeScope) (*ConnectionsStatus, error)
}
