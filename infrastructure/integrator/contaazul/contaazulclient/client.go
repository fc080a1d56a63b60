package contaazulclient

import (
	"context"
	"net/http"
	"time"

	contaazuldomain "github.com/opsledger/finance-ledger-api/infrastructure/integrator/contaazul/domain"
	"github.com/opsledger/finance-ledger-api/internal/config"
)

const pageSize = 100

type Client interface {
	ListSales(ctx context.Context, since time.Time, page int) ([]contaazuldomain.Sale, error)
	ListInvoices(ctx context.Context, since time.Time, page int) ([]contaazuldomain.Invoice, error)
	ListEntries(ctx context.Context, since time.Time, page int) ([]contaazuldomain.FinancialEntry, error)
	GetMonthlySummary(ctx context.Context, reference string) (*contaazuldomain.MonthlySummary, error)
}

type ContaAzulClient struct {
	httpClient *http.Client
	config     *config.Config
}

func NewClient(cfg *config.Config) Client {
	return &ContaAzulClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		config:     cfg,
	}
}
