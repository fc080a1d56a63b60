package domain

import "time"

// Estados de uma conexão com provedor
const (
	ConnectionConnected    = "connected"
	ConnectionDisconnected = "disconnected"
	ConnectionNeedsReauth  = "needs_reauth"
	ConnectionPending      = "pending"
)

type Connection struct {
	TenantID          string     `json:"tenant_id"`
	OfficeID          string     `json:"office_id"`
	Provider          string     `json:"provider"`
	Status            string     `json:"status"`
	ExternalAccountID string     `json:"external_account_id,omitempty"`
	LastSyncAt        *time.Time `json:"last_sync_at,omitempty"`
	LastWebhookAt     *time.Time `json:"last_webhook_at,omitempty"`
	LastError         *string    `json:"last_error,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// LastActivity devolve o instante mais recente em que a conexão recebeu
// dados, seja por poll ou por webhook
func (c *Connection) LastActivity() *time.Time {
	switch {
	case c.LastSyncAt == nil:
		return c.LastWebhookAt
	case c.LastWebhookAt == nil:
		return c.LastSyncAt
	case c.LastWebhookAt.After(*c.LastSyncAt):
		return c.LastWebhookAt
	default:
		return c.LastSyncAt
	}
}

func (c *Connection) IsConnected() bool {
	return c.Status == ConnectionConnected
}

// OfficeScope identifica um par tenant/office com conexões registradas
type OfficeScope struct {
	TenantID string `json:"tenant_id"`
	OfficeID string `json:"office_id"`
}
