package pluggyclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"

	pluggydomain "github.com/opsledger/finance-ledger-api/infrastructure/integrator/pluggy/domain"
)

func (c *PluggyClient) GetAccount(ctx context.Context, accountID string) (*pluggydomain.Account, error) {
	if err := c.ensureValidToken(ctx); err != nil {
		return nil, err
	}

	// Construir a URL da requisição.
	endpoint, err := url.Parse(c.config.Pluggy.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("erro ao analisar a URL base: %w", err)
	}
	endpoint.Path = path.Join(endpoint.Path, "/accounts", accountID)

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

	var account pluggydomain.Account
	if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
		return nil, fmt.Errorf("erro ao decodificar a resposta: %w", err)
	}

	return &account, nil
}
