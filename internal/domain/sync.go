package domain

import "time"

// SyncCursor guarda o ponto de leitura de cada provedor para que polls
// repetidos não reprocessem janelas antigas
type SyncCursor struct {
	TenantID  string    `json:"tenant_id"`
	OfficeID  string    `json:"office_id"`
	Provider  string    `json:"provider"`
	Cursor    string    `json:"cursor"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ProviderSyncResult struct {
	Provider  string `json:"provider"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

// SyncReport agrega o resultado de um ciclo de sincronização. A falha de
// um provedor não derruba os demais, então Processed pode ser positivo
// mesmo com Failures > 0.
type SyncReport struct {
	TenantID    string               `json:"tenant_id"`
	OfficeID    string               `json:"office_id"`
	StartedAt   time.Time            `json:"started_at"`
	FinishedAt  time.Time            `json:"finished_at"`
	Processed   int                  `json:"processed"`
	Skipped     int                  `json:"skipped"`
	Failures    int                  `json:"failures"`
	PerProvider []ProviderSyncResult `json:"per_provider"`
}
