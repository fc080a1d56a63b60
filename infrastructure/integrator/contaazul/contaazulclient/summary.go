package contaazulclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"

	contaazuldomain "github.com/opsledger/finance-ledger-api/infrastructure/integrator/contaazul/domain"
)

// GetMonthlySummary busca o fechamento do mês informado (AAAA-MM).
// Retorna nil sem erro quando o ERP ainda não gerou o fechamento.
func (c *ContaAzulClient) GetMonthlySummary(ctx context.Context, reference string) (*contaazuldomain.MonthlySummary, error) {
	var response contaazuldomain.MonthlySummary

	// Construir a URL da requisição.
	endpoint, err := url.Parse(c.config.ContaAzul.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("erro ao analisar a URL base: %w", err)
	}
	endpoint.Path = path.Join(endpoint.Path, "/reports/monthly-summary")

	// Adicionar parâmetros de consulta.
	query := endpoint.Query()
	query.Set("reference", reference)
	endpoint.RawQuery = query.Encode()

	// Criar a requisição HTTP.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("erro ao criar a requisição: %w", err)
	}

	// Adicionar cabeçalhos necessários.
	req.Header.Set("Authorization", "Bearer "+c.config.ContaAzul.AccessToken)
	req.Header.Set("Accept", "application/json")

	// Executar a requisição.
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("erro ao executar a requisição: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

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
