package pluggyclient

import (
	"context"
	"net/http"
	"sync"
	"time"

	pluggydomain "github.com/opsledger/finance-ledger-api/infrastructure/integrator/pluggy/domain"
	"github.com/opsledger/finance-ledger-api/internal/config"
)

type Client interface {
	GetAccount(ctx context.Context, accountID string) (*pluggydomain.Account, error)
	ListTransactions(ctx context.Context, accountID string, from time.Time, page int) (*pluggydomain.TransactionPage, error)
}

type PluggyClient struct {
	httpClient *http.Client
	config     *config.Config

	// Protege a renovação da api key de curta duração
	tokenMutex sync.Mutex
}

func NewClient(cfg *config.Config) Client {
	return &PluggyClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		config: cfg,
	}
}
