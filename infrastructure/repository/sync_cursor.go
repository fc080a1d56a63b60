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

const syncCursorsTable = "sync_cursors sc"

type SyncCursorRepository interface {
	Get(ctx context.Context, tenantID, officeID, provider string) (*domain.SyncCursor, error)
	Upsert(ctx context.Context, cursor *domain.SyncCursor) error
}

type syncCursorRepository struct {
	conn *postgres.Connection
}

func NewSyncCursorRepository(conn *postgres.Connection) SyncCursorRepository {
	return &syncCursorRepository{
		conn: conn,
	}
}

func (r *syncCursorRepository) Get(ctx context.Context, tenantID, officeID, provider string) (*domain.SyncCursor, error) {
	query, args, err := squirrel.
		Select("sc.tenant_id, sc.office_id, sc.provider, sc.cursor, sc.updated_at").
		From(syncCursorsTable).
		Where(squirrel.Eq{"sc.tenant_id": tenantID, "sc.office_id": officeID, "sc.provider": provider}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	cursor := &domain.SyncCursor{}
	row := r.conn.QueryRow(ctx, query, args...)
	err = row.Scan(&cursor.TenantID, &cursor.OfficeID, &cursor.Provider, &cursor.Cursor, &cursor.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao escanear cursor: %w", err)
	}

	return cursor, nil
}

func (r *syncCursorRepository) Upsert(ctx context.Context, cursor *domain.SyncCursor) error {
	query := squirrel.StatementBuilder.
		Insert("sync_cursors").
		Columns("tenant_id", "office_id", "provider", "cursor").
		Values(cursor.TenantID, cursor.OfficeID, cursor.Provider, cursor.Cursor).
		Suffix(`
			ON CONFLICT (tenant_id, office_id, provider) DO UPDATE SET
				cursor = EXCLUDED.cursor,
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
