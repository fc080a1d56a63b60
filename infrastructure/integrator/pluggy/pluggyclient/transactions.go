package pluggyclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	pluggydomain "github.com/opsledger/finance-ledger-api/infrastructure/integrator/pluggy/domain"
)

func (c *PluggyClient) ListTransactions(ctx context.Context, accountID string, from time.Time, page int) (*pluggydomain.TransactionPage, error) {
	if err := c.ensureValidToken(ctx); err != nil {
		return nil, err
	}

	// Construir a URL da requisição.
	endpoint, err := url.Parse(c.config.Pluggy.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("erro ao analisar a URL base: %w", err)
	}
	endpoint.Path = path.Join(endpoint.Path, "/transactions")

	// Adicionar parâmetros de consulta.
	query := endpoint.Query()
	query.Set("accountId", accountID)
	query.Set("from", from.Format(time.DateOnly))
	query.Set("page", strconv.Itoa(page))
	query.Set("pageSize", "100")
	endpoint.RawQuery = query.Encode()

	// Criar a requisição HTTP.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("erro ao criar a requisição: %w", err)
	}

	req.Header.Set("X-API-KEY", c.config.Pluggy.APIKey)
	req.Header.Set("Accept", "application/json")

	// Executar a requisição.
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("erro ao executar a requisição: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("requisição falhou com status: %s", resp.Status)
	}

	var transactionPage pluggydomain.TransactionPage
	if err := json.NewDecoder(resp.Body).Decode(&transactionPage); err != nil {
		return nil, fmt.Errorf("erro ao decodificar a resposta: %w", err)
	}

	return &transactionPage, nil
}
