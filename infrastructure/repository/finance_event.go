package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/opsledger/finance-ledger-api/infrastructure/database/postgres"
	"github.com/opsledger/finance-ledger-api/internal/domain"
)

const (
	financeEventsTable = "finance_events fe"

	financeEventColumns = "fe.id, fe.tenant_id, fe.office_id, fe.provider, fe.provider_event_id, " +
		"fe.event_type, fe.occurred_at, fe.amount, fe.currency, fe.status, " +
		"fe.entity_refs, fe.metadata, fe.raw_hash, fe.receipt_id, fe.created_at"
)

type FinanceEventRepository interface {
	Insert(ctx context.Context, event *domain.FinanceEvent) (bool, error)
	GetByID(ctx context.Context, tenantID, officeID, id string) (*domain.FinanceEvent, error)
	GetByProviderEventID(ctx context.Context, tenantID, officeID, provider, providerEventID string) (*domain.FinanceEvent, error)
	List(ctx context.Context, filter domain.TimelineFilter) ([]*domain.FinanceEvent, int, error)
	ListSince(ctx context.Context, tenantID, officeID string, since time.Time) ([]*domain.FinanceEvent, error)
	LatestByType(ctx context.Context, tenantID, officeID, eventType string) (*domain.FinanceEvent, error)
	ListByEntityRef(ctx context.Context, tenantID, officeID, entityID string) ([]*domain.FinanceEvent, error)
	ListProposals(ctx context.Context, tenantID, officeID, status string) ([]*domain.FinanceEvent, error)
	GetProposalByCorrelationID(ctx context.Context, tenantID, officeID, correlationID string) (*domain.FinanceEvent, error)
	UpdateProposalStatus(ctx context.Context, tenantID, officeID, id, fromStatus, toStatus string, metadata map[string]any) (bool, error)
	AttachReceipt(ctx context.Context, tenantID, officeID string, eventIDs []string, receiptID string) error
}

type financeEventRepository struct {
	conn *postgres.Connection
}

func NewFinanceEventRepository(conn *postgres.Connection) FinanceEventRepository {
	return &financeEventRepository{
		conn: conn,
	}
}

// Insert grava um evento de forma idempotente. A restrição de unicidade
// (tenant_id, office_id, provider, provider_event_id) transforma entregas
// repetidas em no-ops; o retorno indica se a linha foi de fato inserida.
func (r *financeEventRepository) Insert(ctx context.Context, event *domain.FinanceEvent) (bool, error) {
	entityRefsJSON, err := json.Marshal(event.EntityRefs)
	if err != nil {
		return false, fmt.Errorf("erro ao serializar entity_refs para JSON: %w", err)
	}

	var metadataJSON []byte
	if event.Metadata != nil {
		metadataJSON, err = json.Marshal(event.Metadata)
		if err != nil {
			return false, fmt.Errorf("erro ao serializar metadata para JSON: %w", err)
		}
	}

	query := squirrel.StatementBuilder.
		Insert("finance_events").
		Columns("id", "tenant_id", "office_id", "provider", "provider_event_id",
			"event_type", "occurred_at", "amount", "currency", "status",
			"entity_refs", "metadata", "raw_hash").
		Values(
			event.ID,
			event.TenantID,
			event.OfficeID,
			event.Provider,
			event.ProviderEventID,
			event.EventType,
			event.OccurredAt,
			event.Amount,
			event.Currency,
			event.Status,
			entityRefsJSON,
			metadataJSON,
			event.RawHash,
		).
		Suffix(`
			ON CONFLICT (tenant_id, office_id, provider, provider_event_id) DO NOTHING
		`).
		PlaceholderFormat(squirrel.Dollar)

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return false, fmt.Errorf("erro ao construir a query: %w", err)
	}

	result, err := r.conn.Exec(ctx, sqlQuery, args...)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			return false, fmt.Errorf("erro no banco de dados: %w (código: %s)", pqErr, pqErr.Code)
		}
		return false, fmt.Errorf("erro ao executar a query: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("erro ao obter número de linhas afetadas: %w", err)
	}

	return rowsAffected > 0, nil
}

func (r *financeEventRepository) GetByID(ctx context.Context, tenantID, officeID, id string) (*domain.FinanceEvent, error) {
	query, args, err := squirrel.
		Select(financeEventColumns).
		From(financeEventsTable).
		Where(squirrel.Eq{"fe.tenant_id": tenantID, "fe.office_id": officeID, "fe.id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	row := r.conn.QueryRow(ctx, query, args...)
	event, err := r.scanEventRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao escanear evento: %w", err)
	}

	return event, nil
}

func (r *financeEventRepository) GetByProviderEventID(ctx context.Context, tenantID, officeID, provider, providerEventID string) (*domain.FinanceEvent, error) {
	query, args, err := squirrel.
		Select(financeEventColumns).
		From(financeEventsTable).
		Where(squirrel.Eq{
			"fe.tenant_id":         tenantID,
			"fe.office_id":         officeID,
			"fe.provider":          provider,
			"fe.provider_event_id": providerEventID,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	row := r.conn.QueryRow(ctx, query, args...)
	event, err := r.scanEventRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao escanear evento: %w", err)
	}

	return event, nil
}

func (r *financeEventRepository) List(ctx context.Context, filter domain.TimelineFilter) ([]*domain.FinanceEvent, int, error) {
	conditions := squirrel.Eq{
		"fe.tenant_id": filter.TenantID,
		"fe.office_id": filter.OfficeID,
	}
	if filter.Provider != "" {
		conditions["fe.provider"] = filter.Provider
	}
	if filter.EventType != "" {
		conditions["fe.event_type"] = filter.EventType
	}

	where := squirrel.And{conditions}
	if filter.From != nil && !filter.From.IsZero() {
		where = append(where, squirrel.GtOrEq{"fe.occurred_at": *filter.From})
	}
	if filter.To != nil && !filter.To.IsZero() {
		where = append(where, squirrel.Lt{"fe.occurred_at": *filter.To})
	}

	countQuery, countArgs, err := squirrel.
		Select("COUNT(*)").
		From(financeEventsTable).
		Where(where).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("erro ao construir a query: %w", err)
	}

	var total int
	if err := r.conn.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("erro ao contar eventos: %w", err)
	}

	query, args, err := squirrel.
		Select(financeEventColumns).
		From(financeEventsTable).
		Where(where).
		OrderBy("fe.occurred_at DESC", "fe.id DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("erro ao construir a query: %w", err)
	}

	events, err := r.queryEvents(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

func (r *financeEventRepository) ListSince(ctx context.Context, tenantID, officeID string, since time.Time) ([]*domain.FinanceEvent, error) {
	query, args, err := squirrel.
		Select(financeEventColumns).
		From(financeEventsTable).
		Where(squirrel.Eq{"fe.tenant_id": tenantID, "fe.office_id": officeID}).
		Where(squirrel.GtOrEq{"fe.occurred_at": since}).
		OrderBy("fe.occurred_at ASC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	return r.queryEvents(ctx, query, args...)
}

func (r *financeEventRepository) LatestByType(ctx context.Context, tenantID, officeID, eventType string) (*domain.FinanceEvent, error) {
	query, args, err := squirrel.
		Select(financeEventColumns).
		From(financeEventsTable).
		Where(squirrel.Eq{"fe.tenant_id": tenantID, "fe.office_id": officeID, "fe.event_type": eventType}).
		OrderBy("fe.occurred_at DESC").
		Limit(1).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	row := r.conn.QueryRow(ctx, query, args...)
	event, err := r.scanEventRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao escanear evento: %w", err)
	}

	return event, nil
}

func (r *financeEventRepository) ListByEntityRef(ctx context.Context, tenantID, officeID, entityID string) ([]*domain.FinanceEvent, error) {
	refJSON, err := json.Marshal([]string{entityID})
	if err != nil {
		return nil, fmt.Errorf("erro ao serializar referência: %w", err)
	}

	query, args, err := squirrel.
		Select(financeEventColumns).
		From(financeEventsTable).
		Where(squirrel.Eq{"fe.tenant_id": tenantID, "fe.office_id": officeID}).
		Where(squirrel.Expr("fe.entity_refs @> ?::jsonb", refJSON)).
		OrderBy("fe.occurred_at ASC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	return r.queryEvents(ctx, query, args...)
}

func (r *financeEventRepository) ListProposals(ctx context.Context, tenantID, officeID, status string) ([]*domain.FinanceEvent, error) {
	conditions := squirrel.Eq{
		"fe.tenant_id":  tenantID,
		"fe.office_id":  officeID,
		"fe.event_type": domain.EventProposalCreated,
	}
	if status != "" {
		conditions["fe.status"] = status
	}

	query, args, err := squirrel.
		Select(financeEventColumns).
		From(financeEventsTable).
		Where(conditions).
		OrderBy("fe.created_at DESC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	return r.queryEvents(ctx, query, args...)
}

// GetProposalByCorrelationID localiza uma proposta pelo correlation id
// gravado em sua metadata. Sustenta a criação idempotente de propostas.
func (r *financeEventRepository) GetProposalByCorrelationID(ctx context.Context, tenantID, officeID, correlationID string) (*domain.FinanceEvent, error) {
	query, args, err := squirrel.
		Select(financeEventColumns).
		From(financeEventsTable).
		Where(squirrel.Eq{
			"fe.tenant_id":  tenantID,
			"fe.office_id":  officeID,
			"fe.event_type": domain.EventProposalCreated,
		}).
		Where(squirrel.Expr("fe.metadata->>'correlation_id' = ?", correlationID)).
		OrderBy("fe.created_at ASC").
		Limit(1).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	row := r.conn.QueryRow(ctx, query, args...)
	event, err := r.scanEventRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao escanear evento: %w", err)
	}

	return event, nil
}

// UpdateProposalStatus aplica um compare-and-swap no status da proposta.
// Retorna falso quando outra transição chegou primeiro, sem tocar a linha.
func (r *financeEventRepository) UpdateProposalStatus(ctx context.Context, tenantID, officeID, id, fromStatus, toStatus string, metadata map[string]any) (bool, error) {
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return false, fmt.Errorf("erro ao serializar metadata para JSON: %w", err)
	}

	query, args, err := squirrel.StatementBuilder.
		Update("finance_events").
		Set("status", toStatus).
		Set("metadata", metadataJSON).
		Where(squirrel.Eq{
			"tenant_id":  tenantID,
			"office_id":  officeID,
			"id":         id,
			"event_type": domain.EventProposalCreated,
			"status":     fromStatus,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("erro ao construir a query: %w", err)
	}

	result, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("erro ao executar a query: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("erro ao obter número de linhas afetadas: %w", err)
	}

	return rowsAffected > 0, nil
}

// AttachReceipt vincula eventos recém gravados ao recibo da operação que
// os produziu. O vínculo é escrito uma única vez.
func (r *financeEventRepository) AttachReceipt(ctx context.Context, tenantID, officeID string, eventIDs []string, receiptID string) error {
	if len(eventIDs) == 0 {
		return nil
	}

	query, args, err := squirrel.StatementBuilder.
		Update("finance_events").
		Set("receipt_id", receiptID).
		Where(squirrel.Eq{"tenant_id": tenantID, "office_id": officeID, "id": eventIDs}).
		Where(squirrel.Expr("receipt_id IS NULL")).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("erro ao construir a query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("erro ao executar a query: %w", err)
	}

	return nil
}

func (r *financeEventRepository) queryEvents(ctx context.Context, query string, args ...interface{}) ([]*domain.FinanceEvent, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao executar a query: %w", err)
	}
	defer rows.Close()

	events := make([]*domain.FinanceEvent, 0)
	for rows.Next() {
		event, err := r.scanEventRows(rows)
		if err != nil {
			return nil, fmt.Errorf("erro ao escanear eventos: %w", err)
		}
		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("erro durante a iteração de linhas: %w", err)
	}

	return events, nil
}

func (r *financeEventRepository) scanEventRow(row *sql.Row) (*domain.FinanceEvent, error) {
	event := &domain.FinanceEvent{}
	var entityRefsJSON, metadataJSON []byte

	err := row.Scan(
		&event.ID,
		&event.TenantID,
		&event.OfficeID,
		&event.Provider,
		&event.ProviderEventID,
		&event.EventType,
		&event.OccurredAt,
		&event.Amount,
		&event.Currency,
		&event.Status,
		&entityRefsJSON,
		&metadataJSON,
		&event.RawHash,
		&event.ReceiptID,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return r.decodeEventJSON(event, entityRefsJSON, metadataJSON)
}

func (r *financeEventRepository) scanEventRows(rows *sql.Rows) (*domain.FinanceEvent, error) {
	event := &domain.FinanceEvent{}
	var entityRefsJSON, metadataJSON []byte

	err := rows.Scan(
		&event.ID,
		&event.TenantID,
		&event.OfficeID,
		&event.Provider,
		&event.ProviderEventID,
		&event.EventType,
		&event.OccurredAt,
		&event.Amount,
		&event.Currency,
		&event.Status,
		&entityRefsJSON,
		&metadataJSON,
		&event.RawHash,
		&event.ReceiptID,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return r.decodeEventJSON(event, entityRefsJSON, metadataJSON)
}

func (r *financeEventRepository) decodeEventJSON(event *domain.FinanceEvent, entityRefsJSON, metadataJSON []byte) (*domain.FinanceEvent, error) {
	if entityRefsJSON != nil {
		if err := json.Unmarshal(entityRefsJSON, &event.EntityRefs); err != nil {
			return nil, fmt.Errorf("erro ao deserializar JSON de entity_refs: %w", err)
		}
	}

	if metadataJSON != nil {
		if err := json.Unmarshal(metadataJSON, &event.Metadata); err != nil {
			return nil, fmt.Errorf("erro ao deserializar JSON de metadata: %w", err)
		}
	}

	return event, nil
}
