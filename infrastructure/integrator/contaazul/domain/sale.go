package domain

import "time"

const (
	SaleCommitted = "COMMITTED"
	SalePending   = "PENDING"
	SaleCancelled = "CANCELLED"
)

type Sale struct {
	ID       string    `json:"id"`
	Number   int       `json:"number"`
	Total    float64   `json:"total"`
	Emission time.Time `json:"emission"`
	Status   string    `json:"status"`
	Customer *Party    `json:"customer,omitempty"`
}

type Party struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
