package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/opsledger/finance-ledger-api/infrastructure/database/postgres"
	"github.com/opsledger/finance-ledger-api/internal/domain"
)

const (
	receiptsTable = "receipts r"

	receiptColumns = "r.receipt_id, r.tenant_id, r.office_id, r.action_type, " +
		"r.inputs_hash, r.outputs_hash, r.policy_decision_id, r.correlation_id, " +
		"r.metadata, r.prev_hash, r.entry_hash, r.created_at"

	// Código de violação de unicidade do Postgres
	pqUniqueViolation = "23505"
)

// ErrChainConflict indica que outro recibo foi anexado à cadeia entre a
// leitura do prev_hash e a escrita. O chamador deve reler e tentar de novo.
var ErrChainConflict = errors.New("receipts: conflito ao anexar na cadeia")

type ReceiptRepository interface {
	Append(ctx context.Context, receipt *domain.Receipt) error
	GetLatest(ctx context.Context, tenantID, officeID string) (*domain.Receipt, error)
	GetByID(ctx context.Context, tenantID, officeID, receiptID string) (*domain.Receipt, error)
	List(ctx context.Context, tenantID, officeID string, limit, offset int) ([]*domain.Receipt, error)
	ListChain(ctx context.Context, tenantID, officeID string) ([]*domain.Receipt, error)
}

type receiptRepository struct {
	conn *postgres.Connection
}

func NewReceiptRepository(conn *postgres.Connection) ReceiptRepository {
	return &receiptRepository{
		conn: conn,
	}
}

// Append grava um recibo no fim da cadeia do tenant/office. A restrição de
// unicidade sobre (tenant_id, office_id, prev_hash) garante que dois
// recibos nunca apontem para o mesmo antecessor.
func (r *receiptRepository) Append(ctx context.Context, receipt *domain.Receipt) error {
	var metadataJSON []byte
	var err error

	if receipt.Metadata != nil {
		metadataJSON, err = json.Marshal(receipt.Metadata)
		if err != nil {
			return fmt.Errorf("erro ao serializar metadata para JSON: %w", err)
		}
	}

	query := squirrel.StatementBuilder.
		Insert("receipts").
		Columns("receipt_id", "tenant_id", "office_id", "action_type",
			"inputs_hash", "outputs_hash", "policy_decision_id", "correlation_id",
			"metadata", "prev_hash", "entry_hash", "created_at").
		Values(
			receipt.ReceiptID,
			receipt.TenantID,
			receipt.OfficeID,
			receipt.ActionType,
			receipt.InputsHash,
			receipt.OutputsHash,
			receipt.PolicyDecisionID,
			receipt.CorrelationID,
			metadataJSON,
			receipt.PrevHash,
			receipt.EntryHash,
			receipt.CreatedAt,
		).
		PlaceholderFormat(squirrel.Dollar)

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("erro ao construir a query: %w", err)
	}

	_, err = r.conn.Exec(ctx, sqlQuery, args...)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if string(pqErr.Code) == pqUniqueViolation {
				return ErrChainConflict
			}
			return fmt.Errorf("erro no banco de dados: %w (código: %s)", pqErr, pqErr.Code)
		}
		return fmt.Errorf("erro ao executar a query: %w", err)
	}

	return nil
}

func (r *receiptRepository) GetLatest(ctx context.Context, tenantID, officeID string) (*domain.Receipt, error) {
	query, args, err := squirrel.
		Select(receiptColumns).
		From(receiptsTable).
		Where(squirrel.Eq{"r.tenant_id": tenantID, "r.office_id": officeID}).
		OrderBy("r.created_at DESC", "r.receipt_id DESC").
		Limit(1).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	row := r.conn.QueryRow(ctx, query, args...)
	receipt, err := r.scanReceiptRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao escanear recibo: %w", err)
	}

	return receipt, nil
}

func (r *receiptRepository) GetByID(ctx context.Context, tenantID, officeID, receiptID string) (*domain.Receipt, error) {
	query, args, err := squirrel.
		Select(receiptColumns).
		From(receiptsTable).
		Where(squirrel.Eq{"r.tenant_id": tenantID, "r.office_id": officeID, "r.receipt_id": receiptID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	row := r.conn.QueryRow(ctx, query, args...)
	receipt, err := r.scanReceiptRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao escanear recibo: %w", err)
	}

	return receipt, nil
}

func (r *receiptRepository) List(ctx context.Context, tenantID, officeID string, limit, offset int) ([]*domain.Receipt, error) {
	query, args, err := squirrel.
		Select(receiptColumns).
		From(receiptsTable).
		Where(squirrel.Eq{"r.tenant_id": tenantID, "r.office_id": officeID}).
		OrderBy("r.created_at DESC", "r.receipt_id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	return r.queryReceipts(ctx, query, args...)
}

// ListChain devolve a cadeia completa em ordem de anexação, para a
// verificação elo a elo
func (r *receiptRepository) ListChain(ctx context.Context, tenantID, officeID string) ([]*domain.Receipt, error) {
	query, args, err := squirrel.
		Select(receiptColumns).
		From(receiptsTable).
		Where(squirrel.Eq{"r.tenant_id": tenantID, "r.office_id": officeID}).
		OrderBy("r.created_at ASC", "r.receipt_id ASC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	return r.queryReceipts(ctx, query, args...)
}

func (r *receiptRepository) queryReceipts(ctx context.Context, query string, args ...interface{}) ([]*domain.Receipt, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao executar a query: %w", err)
	}
	defer rows.Close()

	receipts := make([]*domain.Receipt, 0)
	for rows.Next() {
		receipt, err := r.scanReceiptRows(rows)
		if err != nil {
			return nil, fmt.Errorf("erro ao escanear recibos: %w", err)
		}
		receipts = append(receipts, receipt)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("erro durante a iteração de linhas: %w", err)
	}

	return receipts, nil
}

func (r *receiptRepository) scanReceiptRow(row *sql.Row) (*domain.Receipt, error) {
	receipt := &domain.Receipt{}
	var metadataJSON []byte
	var correlationID sql.NullString

	err := row.Scan(
		&receipt.ReceiptID,
		&receipt.TenantID,
		&receipt.OfficeID,
		&receipt.ActionType,
		&receipt.InputsHash,
		&receipt.OutputsHash,
		&receipt.PolicyDecisionID,
		&correlationID,
		&metadataJSON,
		&receipt.PrevHash,
		&receipt.EntryHash,
		&receipt.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	receipt.CorrelationID = correlationID.String
	return r.decodeReceiptJSON(receipt, metadataJSON)
}

func (r *receiptRepository) scanReceiptRows(rows *sql.Rows) (*domain.Receipt, error) {
	receipt := &domain.Receipt{}
	var metadataJSON []byte
	var correlationID sql.NullString

	err := rows.Scan(
		&receipt.ReceiptID,
		&receipt.TenantID,
		&receipt.OfficeID,
		&receipt.ActionType,
		&receipt.InputsHash,
		&receipt.OutputsHash,
		&receipt.PolicyDecisionID,
		&correlationID,
		&metadataJSON,
		&receipt.PrevHash,
		&receipt.EntryHash,
		&receipt.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	receipt.CorrelationID = correlationID.String
	return r.decodeReceiptJSON(receipt, metadataJSON)
}

func (r *receiptRepository) decodeReceiptJSON(receipt *domain.Receipt, metadataJSON []byte) (*domain.Receipt, error) {
	if metadataJSON != nil {
		if err := json.Unmarshal(metadataJSON, &receipt.Metadata); err != nil {
			return nil, fmt.Errorf("erro ao deserializar JSON de metadata: %w", err)
		}
	}

	return receipt, nil
}
