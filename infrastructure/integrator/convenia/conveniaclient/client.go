package conveniaclient

import (
	"context"
	"net/http"
	"time"

	conveniadomain "github.com/opsledger/finance-ledger-api/infrastructure/integrator/convenia/domain"
	"github.com/opsledger/finance-ledger-api/internal/config"
)

type Client interface {
	ListPayrollRuns(ctx context.Context, since time.Time, page int) (*conveniadomain.PayrollPage, error)
}

type ConveniaClient struct {
	httpClient *http.Client
	config     *config.Config
}

func NewClient(cfg *config.Config) Client {
	return &ConveniaClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		config:     cfg,
	}
}
