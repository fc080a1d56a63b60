package domain

import (
	"encoding/json"
	"time"
)

const (
	TransferTransferred = "transferred"
	TransferPending     = "pending"
	TransferFailed      = "failed"
)

type Transfer struct {
	ID                string     `json:"id"`
	Amount            int64      `json:"amount"`
	Status            string     `json:"status"`
	BankAccountID     string     `json:"bank_account_id"`
	TransferredAt     *time.Time `json:"transferred_at"`
	CreatedAt         time.Time  `json:"created_at"`
	EstimatedArrival  *time.Time `json:"estimated_arrival,omitempty"`
	RecipientDocument string     `json:"recipient_document,omitempty"`
}

type TransferPage struct {
	Data   []Transfer `json:"data"`
	Paging Paging     `json:"paging"`
}

// WebhookEnvelope carrega o payload bruto em Data; o tipo do objeto
// depende do campo Type (charge.* ou transfer.*).
type WebhookEnvelope struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
	Data      json.RawMessage `json:"data"`
}
