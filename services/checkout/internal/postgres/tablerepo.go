package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/appetiteclub/dineflow/services/checkout/internal/ledger"
)

const tableColumns = `id, table_number, capacity, status, created_at, updated_at`

type TableRepo struct {
	q querier
}

func (r *TableRepo) Create(ctx context.Context, table *ledger.Table) error {
	if table == nil {
		return fmt.Errorf("table is nil")
	}

	_, err := r.q.Exec(ctx, `INSERT INTO tables (`+tableColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		table.ID, table.TableNumber, table.Capacity, table.Status, table.CreatedAt, table.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ledger.NewConflictError("table %s already exists", table.TableNumber)
		}
		return fmt.Errorf("cannot create table: %w", err)
	}
	return nil
}

func (r *TableRepo) Get(ctx context.Context, id uuid.UUID) (*ledger.Table, error) {
	return r.one(ctx, `SELECT `+tableColumns+` FROM tables WHERE id = $1`, id)
}

func (r *TableRepo) GetByNumber(ctx context.Context, number string) (*ledger.Table, error) {
	return r.one(ctx, `SELECT `+tableColumns+` FROM tables WHERE table_number = $1`, number)
}

func (r *TableRepo) List(ctx context.Context) ([]*ledger.Table, error) {
	return r.list(ctx, `SELECT `+tableColumns+` FROM tables ORDER BY table_number`)
}

func (r *TableRepo) ListByStatus(ctx context.Context, status string) ([]*ledger.Table, error) {
	return r.list(ctx, `SELECT `+tableColumns+` FROM tables WHERE status = $1 ORDER BY table_number`, status)
}

func (r *TableRepo) Save(ctx context.Context, table *ledger.Table) error {
	if table == nil {
		return fmt.Errorf("table is nil")
	}

	tag, err := r.q.Exec(ctx, `UPDATE tables SET table_number = $2, capacity = $3, status = $4, updated_at = $5
		WHERE id = $1`, table.ID, table.TableNumber, table.Capacity, table.Status, table.UpdatedAt)
	if err != nil {
		return fmt.Errorf("cannot update table: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.NewNotFoundError("table %s not found", table.ID)
	}
	return nil
}

func (r *TableRepo) Lock(ctx context.Context, id uuid.UUID) error {
	var locked uuid.UUID
	err := r.q.QueryRow(ctx, `SELECT id FROM tables WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.NewNotFoundError("table %s not found", id)
		}
		return fmt.Errorf("cannot lock table: %w", err)
	}
	return nil
}

func (r *TableRepo) one(ctx context.Context, sql string, args ...any) (*ledger.Table, error) {
	table, err := scanTable(r.q.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get table: %w", err)
	}
	return table, nil
}

func (r *TableRepo) list(ctx context.Context, sql string, args ...any) ([]*ledger.Table, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("cannot list tables: %w", err)
	}
	defer rows.Close()

	var result []*ledger.Table
	for rows.Next() {
		table, err := scanTable(rows)
		if err != nil {
			return nil, fmt.Errorf("cannot scan table: %w", err)
		}
		result = append(result, table)
	}
	return result, rows.Err()
}

func scanTable(row pgx.Row) (*ledger.Table, error) {
	var t ledger.Table
	if err := row.Scan(&t.ID, &t.TableNumber, &t.Capacity, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}
