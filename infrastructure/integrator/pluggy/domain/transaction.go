package domain

import "time"

// Status possíveis de uma transação na Pluggy
const (
	TransactionPosted  = "POSTED"
	TransactionPending = "PENDING"
)

// Tipos de transação na Pluggy
const (
	TransactionCredit = "CREDIT"
	TransactionDebit  = "DEBIT"
)

type Transaction struct {
	ID           string       `json:"id"`
	AccountID    string       `json:"accountId"`
	Description  string       `json:"description"`
	Amount       float64      `json:"amount"`
	CurrencyCode string       `json:"currencyCode"`
	Date         time.Time    `json:"date"`
	Status       string       `json:"status"`
	Type         string       `json:"type"`
	PaymentData  *PaymentData `json:"paymentData,omitempty"`
}

type PaymentData struct {
	PaymentMethod string        `json:"paymentMethod,omitempty"`
	EndToEndID    string        `json:"endToEndId,omitempty"`
	Payer         *PaymentParty `json:"payer,omitempty"`
	Receiver      *PaymentParty `json:"receiver,omitempty"`
}

type PaymentParty struct {
	Name           string `json:"name,omitempty"`
	DocumentNumber string `json:"documentNumber,omitempty"`
}

type TransactionPage struct {
	Results    []Transaction `json:"results"`
	Total      int           `json:"total"`
	TotalPages int           `json:"totalPages"`
	Page       int           `json:"page"`
}

// WebhookEnvelope é o corpo entregue pela Pluggy nos webhooks
type WebhookEnvelope struct {
	Event        string        `json:"event"`
	ItemID       string        `json:"itemId,omitempty"`
	Account      *Account      `json:"account,omitempty"`
	Transactions []Transaction `json:"transactions,omitempty"`
}
