package domain

import "time"

// Account é a conta bancária agregada pela Pluggy
type Account struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Number       string    `json:"number"`
	Name         string    `json:"name"`
	Balance      float64   `json:"balance"`
	CurrencyCode string    `json:"currencyCode"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type AuthResponse struct {
	APIKey string `json:"apiKey"`
}
