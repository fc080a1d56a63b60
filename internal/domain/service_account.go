package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type ServiceAccount struct {
	ClientID   string    `json:"client_id"`
	Name       string    `json:"name"`
	SecretHash string    `json:"-"`
	TenantID   string    `json:"tenant_id"`
	OfficeIDs  []string  `json:"office_ids"`
	Scopes     []string  `json:"scopes"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

type Claims struct {
	ClientID  string
	TenantID  string
	OfficeIDs []string
	Scopes    []string
	jwt.RegisteredClaims
}

func (c *Claims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// AllowsTenant confere se o token cobre o tenant do caminho
func (c *Claims) AllowsTenant(tenantID string) bool {
	return c.TenantID == tenantID
}

// AllowsOffice confere se o token cobre o office do caminho. Lista vazia
// significa acesso a todos os offices do tenant.
func (c *Claims) AllowsOffice(officeID string) bool {
	if len(c.OfficeIDs) == 0 {
		return true
	}
	for _, id := range c.OfficeIDs {
		if id == officeID {
			return true
		}
	}
	return false
}
