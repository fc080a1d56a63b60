package pagarmeclient

import (
	"context"
	"net/http"
	"time"

	pagarmedomain "github.com/opsledger/finance-ledger-api/infrastructure/integrator/pagarme/domain"
	"github.com/opsledger/finance-ledger-api/internal/config"
)

type Client interface {
	ListCharges(ctx context.Context, since time.Time, page int) (*pagarmedomain.ChargePage, error)
	ListTransfers(ctx context.Context, since time.Time, page int) (*pagarmedomain.TransferPage, error)
}

type PagarmeClient struct {
	httpClient *http.Client
	config     *config.Config
}

func NewClient(cfg *config.Config) Client {
	return &PagarmeClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		config:     cfg,
	}
}
