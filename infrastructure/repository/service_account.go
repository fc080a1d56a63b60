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

const serviceAccountsTable = "service_accounts"

type ServiceAccountRepository interface {
	Create(ctx context.Context, account *domain.ServiceAccount) error
	GetByClientID(ctx context.Context, clientID string) (*domain.ServiceAccount, error)
}

type serviceAccountRepository struct {
	conn *postgres.Connection
}

func NewServiceAccountRepository(conn *postgres.Connection) ServiceAccountRepository {
	return &serviceAccountRepository{
		conn: conn,
	}
}

func (r *serviceAccountRepository) Create(ctx context.Context, account *domain.ServiceAccount) error {
	query := squirrel.StatementBuilder.
		Insert(serviceAccountsTable).
		Columns("client_id", "name", "secret_hash", "tenant_id", "office_ids", "scopes", "active").
		Values(
			account.ClientID,
			account.Name,
			account.SecretHash,
			account.TenantID,
			pq.Array(account.OfficeIDs),
			pq.Array(account.Scopes),
			account.Active,
		).
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

func (r *serviceAccountRepository) GetByClientID(ctx context.Context, clientID string) (*domain.ServiceAccount, error) {
	query, args, err := squirrel.
		Select("client_id, name, secret_hash, tenant_id, office_ids, scopes, active, created_at").
		From(serviceAccountsTable).
		Where(squirrel.Eq{"client_id": clientID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	account := &domain.ServiceAccount{}
	row := r.conn.QueryRow(ctx, query, args...)
	err = row.Scan(
		&account.ClientID,
		&account.Name,
		&account.SecretHash,
		&account.TenantID,
		pq.Array(&account.OfficeIDs),
		pq.Array(&account.Scopes),
		&account.Active,
		&account.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao escanear conta de serviço: %w", err)
	}

	return account, nil
}
