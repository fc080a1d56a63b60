package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/opsledger/finance-ledger-api/infrastructure/database/postgres"
	"github.com/opsledger/finance-ledger-api/internal/domain"
)

const (
	connectionsTable = "connections c"

	connectionColumns = "c.tenant_id, c.office_id, c.provider, c.status, " +
		"c.external_account_id, c.last_sync_at, c.last_webhook_at, c.last_error, c.updated_at"
)

type ConnectionRepository interface {
	Upsert(ctx context.Context, connection *domain.Connection) error
	Get(ctx context.Context, tenantID, officeID, provider string) (*domain.Connection, error)
	ListByOffice(ctx context.Context, tenantID, officeID string) ([]*domain.Connection, error)
	ListScopes(ctx context.Context) ([]domain.OfficeScope, error)
}

type connectionRepository struct {
	conn *postgres.Connection
}

func NewConnectionRepository(conn *postgres.Connection) ConnectionRepository {
	return &connectionRepository{
		conn: conn,
	}
}

// Upsert registra o resultado mais recente de sync ou webhook. Campos nulos
// no domínio preservam o valor já gravado, então um webhook não apaga o
// last_sync_at do poll e vice-versa.
func (r *connectionRepository) Upsert(ctx context.Context, connection *domain.Connection) error {
	query := squirrel.StatementBuilder.
		Insert("connections").
		Columns("tenant_id", "office_id", "provider", "status",
			"external_account_id", "last_sync_at", "last_webhook_at", "last_error").
		Values(
			connection.TenantID,
			connection.OfficeID,
			connection.Provider,
			connection.Status,
			connection.ExternalAccountID,
			connection.LastSyncAt,
			connection.LastWebhookAt,
			connection.LastError,
		).
		Suffix(`
			ON CONFLICT (tenant_id, office_id, provider) DO UPDATE SET
				status = EXCLUDED.status,
				external_account_id = COALESCE(NULLIF(EXCLUDED.external_account_id, ''), connections.external_account_id),
				last_sync_at = COALESCE(EXCLUDED.last_sync_at, connections.last_sync_at),
				last_webhook_at = COALESCE(EXCLUDED.last_webhook_at, connections.last_webhook_at),
				last_error = EXCLUDED.last_error,
				updated_at = NOW()
		`).
		PlaceholderFormat(squirrel.Dollar)

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("erro ao construir a query: %w", err)
	}

	_, err = r.conn.Exec(ctx, sqlQuery, args...)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			return fmt.Errorf("erro no banco de dados: %w (código: %s)", pqErr, pqErr.Code)
		}
		return fmt.Errorf("erro ao executar a query: %w", err)
	}

	return nil
}

func (r *connectionRepository) Get(ctx context.Context, tenantID, officeID, provider string) (*domain.Connection, error) {
	query, args, err := squirrel.
		Select(connectionColumns).
		From(connectionsTable).
		Where(squirrel.Eq{"c.tenant_id": tenantID, "c.office_id": officeID, "c.provider": provider}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	row := r.conn.QueryRow(ctx, query, args...)
	connection, err := r.scanConnection(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao escanear conexão: %w", err)
	}

	return connection, nil
}

func (r *connectionRepository) ListByOffice(ctx context.Context, tenantID, officeID string) ([]*domain.Connection, error) {
	query, args, err := squirrel.
		Select(connectionColumns).
		From(connectionsTable).
		Where(squirrel.Eq{"c.tenant_id": tenantID, "c.office_id": officeID}).
		OrderBy("c.provider ASC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao executar a query: %w", err)
	}
	defer rows.Close()

	connections := make([]*domain.Connection, 0)
	for rows.Next() {
		connection := &domain.Connection{}
		var externalAccountID sql.NullString

		err := rows.Scan(
			&connection.TenantID,
			&connection.OfficeID,
			&connection.Provider,
			&connection.Status,
			&externalAccountID,
			&connection.LastSyncAt,
			&connection.LastWebhookAt,
			&connection.LastError,
			&connection.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("erro ao escanear conexões: %w", err)
		}

		connection.ExternalAccountID = externalAccountID.String
		connections = append(connections, connection)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("erro durante a iteração de linhas: %w", err)
	}

	return connections, nil
}

// ListScopes devolve os pares tenant/office com ao menos uma conexão, para
// que o scheduler saiba quais snapshots pré-aquecer
func (r *connectionRepository) ListScopes(ctx context.Context) ([]domain.OfficeScope, error) {
	query, args, err := squirrel.
		Select("DISTINCT c.tenant_id, c.office_id").
		From(connectionsTable).
		OrderBy("c.tenant_id ASC", "c.office_id ASC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("erro ao executar a query: %w", err)
	}
	defer rows.Close()

	scopes := make([]domain.OfficeScope, 0)
	for rows.Next() {
		var scope domain.OfficeScope
		if err := rows.Scan(&scope.TenantID, &scope.OfficeID); err != nil {
			return nil, fmt.Errorf("erro ao escanear escopos: %w", err)
		}
		scopes = append(scopes, scope)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("erro durante a iteração de linhas: %w", err)
	}

	return scopes, nil
}

func (r *connectionRepository) scanConnection(row *sql.Row) (*domain.Connection, error) {
	connection := &domain.Connection{}
	var externalAccountID sql.NullString

	err := row.Scan(
		&connection.TenantID,
		&connection.OfficeID,
		&connection.Provider,
		&connection.Status,
		&externalAccountID,
		&connection.LastSyncAt,
		&connection.LastWebhookAt,
		&connection.LastError,
		&connection.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	connection.ExternalAccountID = externalAccountID.String
	return connection, nil
}
