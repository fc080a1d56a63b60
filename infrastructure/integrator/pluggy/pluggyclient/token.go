package pluggyclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	pluggydomain "github.com/opsledger/finance-ledger-api/infrastructure/integrator/pluggy/domain"
)

// A api key da Pluggy vale duas horas; renovamos antes para não perder
// uma chamada no limite da expiração
const apiKeyLifetime = 2 * time.Hour
const apiKeyRenewMargin = 10 * time.Minute

// ensureValidToken garante uma api key válida antes de cada chamada.
// A troca client_id/client_secret por api key é refeita sob mutex para
// que chamadas concorrentes não disparem autenticações duplicadas.
func (c *PluggyClient) ensureValidToken(ctx context.Context) error {
	c.tokenMutex.Lock()
	defer c.tokenMutex.Unlock()

	if c.config.Pluggy.APIKey != "" && time.Until(c.config.Pluggy.TokenExpiresAt) > apiKeyRenewMargin {
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"clientId":     c.config.Pluggy.ClientID,
		"clientSecret": c.config.Pluggy.ClientSecret,
	})
	if err != nil {
		return fmt.Errorf("erro ao serializar credenciais: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Pluggy.BaseURL+"/auth", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("erro ao criar a requisição: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("erro ao executar a requisição: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("autenticação na Pluggy falhou com status: %s", resp.Status)
	}

	var authResponse pluggydomain.AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResponse); err != nil {
		return fmt.Errorf("erro ao decodificar a resposta: %w", err)
	}

	c.config.Pluggy.APIKey = authResponse.APIKey
	c.config.Pluggy.TokenExpiresAt = time.Now().Add(apiKeyLifetime)

	logrus.Infof("Api key da Pluggy renovada. Expira em: %s",
		c.config.Pluggy.TokenExpiresAt.Format(time.RFC3339))

	return nil
}
