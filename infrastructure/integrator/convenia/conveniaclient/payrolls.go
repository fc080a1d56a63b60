package conveniaclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	conveniadomain "github.com/opsledger/finance-ledger-api/infrastructure/integrator/convenia/domain"
)

func (c *ConveniaClient) ListPayrollRuns(ctx context.Context, since time.Time, page int) (*conveniadomain.PayrollPage, error) {
	var response conveniadomain.PayrollPage

	// Construir a URL da requisição.
	endpoint, err := url.Parse(c.config.Convenia.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("erro ao analisar a URL base: %w", err)
	}
	endpoint.Path = path.Join(endpoint.Path, "/payroll-runs")

	// Adicionar parâmetros de consulta.
	query := endpoint.Query()
	query.Set("updated_since", since.UTC().Format(time.RFC3339))
	query.Set("page", strconv.Itoa(page))
	endpoint.RawQuery = query.Encode()

	// Criar a requisição HTTP.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("erro ao criar a requisição: %w", err)
	}

	// Adicionar cabeçalhos necessários.
	req.Header.Set("token", c.config.Convenia.APIToken)
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
