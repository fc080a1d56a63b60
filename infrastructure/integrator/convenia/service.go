package convenia

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	conveniadomain "github.com/opsledger/finance-ledger-api/infrastructure/integrator/convenia/domain"
	"github.com/opsledger/finance-ledger-api/infrastructure/integrator/convenia/conveniaclient"
	"github.com/opsledger/finance-ledger-api/internal/config"
	"github.com/opsledger/finance-ledger-api/internal/domain"
)

const maxPagesPerSync = 20

type ConveniaIntegrator interface {
	Name() string
	FetchEvents(ctx context.Context, externalAccountID, cursor string) ([]domain.ProviderEvent, string, error)
	ParseWebhook(payload []byte) ([]domain.ProviderEvent, error)
}

type ConveniaService struct {
	cfg    *config.Config
	Client conveniaclient.Client
}

func New(cfg *config.Config, client conveniaclient.Client) ConveniaIntegrator {
	return &ConveniaService{
		cfg:    cfg,
		Client: client,
	}
}

func (s *ConveniaService) Name() string {
	return domain.ProviderConvenia
}

func (s *ConveniaService) FetchEvents(ctx context.Context, externalAccountID, cursor string) ([]domain.ProviderEvent, string, error) {
	events := make([]domain.ProviderEvent, 0)

	since := s.resolveSince(cursor)
	newest := since

	for page := 1; page <= maxPagesPerSync; page++ {
		payrollPage, err := s.Client.ListPayrollRuns(ctx, since, page)
		if err != nil {
			return nil, cursor, fmt.Errorf("erro ao consultar folhas na Convenia: %w", err)
		}

		for i := range payrollPage.Data {
			run := payrollPage.Data[i]
			events = append(events, s.mapPayrollRun(&run)...)

			if run.UpdatedAt.After(newest) {
				newest = run.UpdatedAt
			}
		}

		if payrollPage.Meta.CurrentPage >= payrollPage.Meta.LastPage {
			break
		}
	}

	return events, newest.UTC().Format(time.RFC3339), nil
}

func (s *ConveniaService) ParseWebhook(payload []byte) ([]domain.ProviderEvent, error) {
	var envelope conveniadomain.WebhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("erro ao decodificar webhook da Convenia: %w", err)
	}

	events := make([]domain.ProviderEvent, 0)

	switch envelope.Event {
	case "payroll.scheduled", "payroll.paid":
		var run conveniadomain.PayrollRun
		if err := json.Unmarshal(envelope.Data, &run); err != nil {
			return nil, fmt.Errorf("erro ao decodificar folha do webhook: %w", err)
		}
		events = append(events, s.mapPayrollRun(&run)...)
	}

	return events, nil
}

// mapPayrollRun gera o agendamento e, quando a folha já foi paga, também a
// liquidação. Identificadores distintos evitam colisão na deduplicação
// quando a mesma folha transita de agendada para paga.
func (s *ConveniaService) mapPayrollRun(run *conveniadomain.PayrollRun) []domain.ProviderEvent {
	if run.Status == conveniadomain.PayrollCancelled {
		return nil
	}

	raw, _ := json.Marshal(run)
	entityRefs := []string{"payroll:" + run.ID}

	metadata := map[string]any{
		"reference":      run.Reference,
		"employee_count": run.EmployeeCount,
		"gross_total":    decimal.NewFromFloat(run.GrossTotal).String(),
	}

	events := []domain.ProviderEvent{{
		ProviderEventID: "scheduled:" + run.ID,
		EventType:       domain.EventPayrollRunScheduled,
		OccurredAt:      run.ScheduledFor,
		Amount:          decimal.NewFromFloat(run.NetTotal),
		Currency:        "BRL",
		EntityRefs:      entityRefs,
		Metadata:        metadata,
		Raw:             raw,
	}}

	if run.Status == conveniadomain.PayrollPaid && run.PaidAt != nil {
		events = append(events, domain.ProviderEvent{
			ProviderEventID: "paid:" + run.ID,
			EventType:       domain.EventPayrollRunPaid,
			OccurredAt:      *run.PaidAt,
			Amount:          decimal.NewFromFloat(run.NetTotal),
			Currency:        "BRL",
			EntityRefs:      entityRefs,
			Metadata:        metadata,
			Raw:             raw,
		})
	}

	return events
}

func (s *ConveniaService) resolveSince(cursor string) time.Time {
	if cursor != "" {
		if parsed, err := time.Parse(time.RFC3339, cursor); err == nil {
			return parsed
		}
	}

	lookback := s.cfg.ProviderSync.LookbackDays
	if lookback <= 0 {
		lookback = 30
	}

	return time.Now().UTC().AddDate(0, 0, -lookback)
}
