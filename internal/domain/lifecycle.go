package domain

import "time"

// Estágios do ciclo de vida de uma entidade financeira, na ordem esperada
const (
	StageBooked    = "booked"
	StageInvoiced  = "invoiced"
	StagePaid      = "paid"
	StageDeposited = "deposited"
	StagePosted    = "posted"
)

var LifecycleStages = []string{
	StageBooked,
	StageInvoiced,
	StagePaid,
	StageDeposited,
	StagePosted,
}

// StageForEventType mapeia um tipo de evento canônico para o estágio que
// ele comprova. Tipos sem estágio devolvem vazio.
func StageForEventType(eventType string) string {
	switch eventType {
	case EventSaleBooked:
		return StageBooked
	case EventInvoiceIssued:
		return StageInvoiced
	case EventInvoicePaid, EventPaymentReceived:
		return StagePaid
	case EventDepositDetected:
		return StageDeposited
	case EventTransactionPosted, EventLedgerEntryRecorded:
		return StagePosted
	}
	return ""
}

type LifecycleStage struct {
	Stage      string     `json:"stage"`
	Reached    bool       `json:"reached"`
	EventID    string     `json:"event_id,omitempty"`
	Provider   string     `json:"provider,omitempty"`
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
}

type EntityLifecycle struct {
	EntityID     string           `json:"entity_id"`
	Stages       []LifecycleStage `json:"stages"`
	Complete     bool             `json:"complete"`
	NextExpected string           `json:"next_expected,omitempty"`
}
