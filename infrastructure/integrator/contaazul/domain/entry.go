package domain

import (
	"encoding/json"
	"time"
)

const (
	EntryRevenue = "REVENUE"
	EntryExpense = "EXPENSE"
)

type FinancialEntry struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Value       float64   `json:"value"`
	Kind        string    `json:"kind"`
	Date        time.Time `json:"date"`
	Category    string    `json:"category"`
	Reference   string    `json:"reference,omitempty"`
}

// MonthlySummary é o fechamento contábil do mês emitido pelo ERP.
// Reference segue o formato AAAA-MM.
type MonthlySummary struct {
	Reference     string    `json:"reference"`
	TotalRevenue  float64   `json:"total_revenue"`
	TotalExpenses float64   `json:"total_expenses"`
	Net           float64   `json:"net"`
	GeneratedAt   time.Time `json:"generated_at"`
}

type WebhookEnvelope struct {
	Event     string          `json:"event"`
	CreatedAt time.Time       `json:"created_at"`
	Data      json.RawMessage `json:"data"`
}
