package domain

import (
	"encoding/json"
	"time"
)

const (
	PayrollScheduled = "scheduled"
	PayrollPaid      = "paid"
	PayrollCancelled = "cancelled"
)

// PayrollRun é uma folha de pagamento da Convenia. Reference segue o
// formato AAAA-MM.
type PayrollRun struct {
	ID            string     `json:"id"`
	Reference     string     `json:"reference"`
	Status        string     `json:"status"`
	GrossTotal    float64    `json:"gross_total"`
	NetTotal      float64    `json:"net_total"`
	EmployeeCount int        `json:"employee_count"`
	ScheduledFor  time.Time  `json:"scheduled_for"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type PayrollPage struct {
	Data []PayrollRun `json:"data"`
	Meta PageMeta     `json:"meta"`
}

type PageMeta struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
}

type WebhookEnvelope struct {
	Event     string          `json:"event"`
	CreatedAt time.Time       `json:"created_at"`
	Data      json.RawMessage `json:"data"`
}
