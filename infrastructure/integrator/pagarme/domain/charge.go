package domain

import "time"

const (
	ChargePaid       = "paid"
	ChargePending    = "pending"
	ChargeProcessing = "processing"
	ChargeFailed     = "failed"
)

type Charge struct {
	ID            string     `json:"id"`
	Code          string     `json:"code"`
	Amount        int64      `json:"amount"`
	Currency      string     `json:"currency"`
	Status        string     `json:"status"`
	PaymentMethod string     `json:"payment_method"`
	PaidAt        *time.Time `json:"paid_at"`
	CreatedAt     time.Time  `json:"created_at"`
	Customer      *Customer  `json:"customer,omitempty"`
}

type Customer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ChargePage struct {
	Data   []Charge `json:"data"`
	Paging Paging   `json:"paging"`
}

type Paging struct {
	Total int `json:"total"`
}
