package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/opsledger/finance-ledger-api/infrastructure/database/postgres"
	"github.com/opsledger/finance-ledger-api/internal/domain"
)

const (
	snapshotsTable = "snapshots s"

	snapshotColumns = "s.id, s.tenant_id, s.office_id, s.generated_at, " +
		"s.now_chapter, s.next_chapter, s.month_chapter, s.reconcile_chapter, s.actions_chapter, " +
		"s.provenance, s.staleness, s.receipt_id"
)

type SnapshotRepository interface {
	Insert(ctx context.Context, snapshot *domain.Snapshot) error
	GetLatest(ctx context.Context, tenantID, officeID string) (*domain.Snapshot, error)
}

type snapshotRepository struct {
	conn *postgres.Connection
}

func NewSnapshotRepository(conn *postgres.Connection) SnapshotRepository {
	return &snapshotRepository{
		conn: conn,
	}
}

// Insert materializa um snapshot. Snapshots nunca são atualizados; leituras
// pegam sempre o mais recente por generated_at.
func (r *snapshotRepository) Insert(ctx context.Context, snapshot *domain.Snapshot) error {
	nowJSON, err := json.Marshal(snapshot.Now)
	if err != nil {
		return fmt.Errorf("erro ao serializar capítulo now: %w", err)
	}
	nextJSON, err := json.Marshal(snapshot.Next)
	if err != nil {
		return fmt.Errorf("erro ao serializar capítulo next: %w", err)
	}
	monthJSON, err := json.Marshal(snapshot.Month)
	if err != nil {
		return fmt.Errorf("erro ao serializar capítulo month: %w", err)
	}
	reconcileJSON, err := json.Marshal(snapshot.Reconcile)
	if err != nil {
		return fmt.Errorf("erro ao serializar capítulo reconcile: %w", err)
	}
	actionsJSON, err := json.Marshal(snapshot.Actions)
	if err != nil {
		return fmt.Errorf("erro ao serializar capítulo actions: %w", err)
	}
	provenanceJSON, err := json.Marshal(snapshot.Provenance)
	if err != nil {
		return fmt.Errorf("erro ao serializar provenance: %w", err)
	}
	stalenessJSON, err := json.Marshal(snapshot.Staleness)
	if err != nil {
		return fmt.Errorf("erro ao serializar staleness: %w", err)
	}

	query := squirrel.StatementBuilder.
		Insert("snapshots").
		Columns("id", "tenant_id", "office_id", "generated_at",
			"now_chapter", "next_chapter", "month_chapter", "reconcile_chapter", "actions_chapter",
			"provenance", "staleness", "receipt_id").
		Values(
			snapshot.ID,
			snapshot.TenantID,
			snapshot.OfficeID,
			snapshot.GeneratedAt,
			nowJSON,
			nextJSON,
			monthJSON,
			reconcileJSON,
			actionsJSON,
			provenanceJSON,
			stalenessJSON,
			snapshot.ReceiptID,
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

func (r *snapshotRepository) GetLatest(ctx context.Context, tenantID, officeID string) (*domain.Snapshot, error) {
	query, args, err := squirrel.
		Select(snapshotColumns).
		From(snapshotsTable).
		Where(squirrel.Eq{"s.tenant_id": tenantID, "s.office_id": officeID}).
		OrderBy("s.generated_at DESC").
		Limit(1).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	row := r.conn.QueryRow(ctx, query, args...)
	snapshot, err := r.scanSnapshot(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao escanear snapshot: %w", err)
	}

	return snapshot, nil
}

func (r *snapshotRepository) scanSnapshot(row *sql.Row) (*domain.Snapshot, error) {
	snapshot := &domain.Snapshot{}
	var nowJSON, nextJSON, monthJSON, reconcileJSON, actionsJSON, provenanceJSON, stalenessJSON []byte

	err := row.Scan(
		&snapshot.ID,
		&snapshot.TenantID,
		&snapshot.OfficeID,
		&snapshot.GeneratedAt,
		&nowJSON,
		&nextJSON,
		&monthJSON,
		&reconcileJSON,
		&actionsJSON,
		&provenanceJSON,
		&stalenessJSON,
		&snapshot.ReceiptID,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(nowJSON, &snapshot.Now); err != nil {
		return nil, fmt.Errorf("erro ao deserializar capítulo now: %w", err)
	}
	if err := json.Unmarshal(nextJSON, &snapshot.Next); err != nil {
		return nil, fmt.Errorf("erro ao deserializar capítulo next: %w", err)
	}
	if err := json.Unmarshal(monthJSON, &snapshot.Month); err != nil {
		return nil, fmt.Errorf("erro ao deserializar capítulo month: %w", err)
	}
	if err := json.Unmarshal(reconcileJSON, &snapshot.Reconcile); err != nil {
		return nil, fmt.Errorf("erro ao deserializar capítulo reconcile: %w", err)
	}
	if err := json.Unmarshal(actionsJSON, &snapshot.Actions); err != nil {
		return nil, fmt.Errorf("erro ao deserializar capítulo actions: %w", err)
	}
	if err := json.Unmarshal(provenanceJSON, &snapshot.Provenance); err != nil {
		return nil, fmt.Errorf("erro ao deserializar provenance: %w", err)
	}
	if err := json.Unmarshal(stalenessJSON, &snapshot.Staleness); err != nil {
		return nil, fmt.Errorf("erro ao deserializar staleness: %w", err)
	}

	return snapshot, nil
}
