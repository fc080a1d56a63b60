package pagarmeclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	pagarmedomain "github.com/opsledger/finance-ledger-api/infrastructure/integrator/pagarme/domain"
)

const pageSize = 100

func (c *PagarmeClient) ListCharges(ctx context.Context, since time.Time, page int) (*pagarmedomain.ChargePage, error) {
	var response pagarmedomain.ChargePage

	// Construir a URL da requisição.
	endpoint, err := url.Parse(c.config.Pagarme.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("erro ao analisar a URL base: %w", err)
	}
	endpoint.Path = path.Join(endpoint.Path, "/charges")

	// Adicionar parâmetros de consulta.
	query := endpoint.Query()
	query.Set("created_since", since.UTC().Format(time.RFC3339))
	query.Set("page", strconv.Itoa(page))
	query.Set("size", strconv.Itoa(pageSize))
	endpoint.RawQuery = query.Encode()

	// Criar a requisição HTTP.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("erro ao criar a requisição: %w", err)
	}

	// Adicionar cabeçalhos necessários.
	req.SetBasicAuth(c.config.Pagarme.SecretKey, "")
	req.Header.Set("Accept", "application/json")

	// Executar a requisição.
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("erro ao executar a requisição: %w", err)
	}
	defer resp.Body.Close()

	// Verificar o código de status da resposta.
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("requisição falhou com status: %s", resp.Status)
	}

	// Decodificar a resposta JSON.
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("erro ao decodificar a resposta: %w", err)
	}

	return &response, nil
}
