package domain

import "time"

const (
	InvoiceOpen      = "OPEN"
	InvoicePaid      = "PAID"
	InvoiceCancelled = "CANCELLED"
)

type Invoice struct {
	ID       string     `json:"id"`
	Number   string     `json:"number"`
	Value    float64    `json:"value"`
	Status   string     `json:"status"`
	IssuedAt time.Time  `json:"issued_at"`
	DueDate  time.Time  `json:"due_date"`
	PaidAt   *time.Time `json:"paid_at,omitempty"`
	Customer *Party     `json:"customer,omitempty"`
}
