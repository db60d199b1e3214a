package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/appetiteclub/dineflow/services/checkout/internal/ledger"
)

const menuItemColumns = `id, name, price, stock_quantity, is_available, created_at, updated_at`

type MenuItemRepo struct {
	q querier
}

func (r *MenuItemRepo) Create(ctx context.Context, item *ledger.MenuItem) error {
	if item == nil {
		return fmt.Errorf("menu item is nil")
	}

	_, err := r.q.Exec(ctx, `INSERT INTO menu_items (`+menuItemColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		item.ID, item.Name, item.Price, item.StockQuantity, item.IsAvailable, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ledger.NewConflictError("menu item %s already exists", item.ID)
		}
		return fmt.Errorf("cannot create menu item: %w", err)
	}
	return nil
}

func (r *MenuItemRepo) Get(ctx context.Context, id uuid.UUID) (*ledger.MenuItem, error) {
	return r.one(ctx, `SELECT `+menuItemColumns+` FROM menu_items WHERE id = $1`, id)
}

func (r *MenuItemRepo) GetByName(ctx context.Context, name string) (*ledger.MenuItem, error) {
	return r.one(ctx, `SELECT `+menuItemColumns+` FROM menu_items WHERE LOWER(name) = LOWER($1) LIMIT 1`, name)
}

func (r *MenuItemRepo) List(ctx context.Context) ([]*ledger.MenuItem, error) {
	rows, err := r.q.Query(ctx, `SELECT `+menuItemColumns+` FROM menu_items ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("cannot list menu items: %w", err)
	}
	defer rows.Close()

	var result []*ledger.MenuItem
	for rows.Next() {
		item, err := scanMenuItem(rows)
		if err != nil {
			return nil, fmt.Errorf("cannot scan menu item: %w", err)
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

func (r *MenuItemRepo) DecrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	tag, err := r.q.Exec(ctx, `UPDATE menu_items
		SET stock_quantity = GREATEST(stock_quantity - $2, 0), updated_at = $3
		WHERE id = $1`, id, qty, time.Now())
	if err != nil {
		return fmt.Errorf("cannot decrement stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.NewNotFoundError("menu item %s not found", id)
	}
	return nil
}

func (r *MenuItemRepo) one(ctx context.Context, sql string, args ...any) (*ledger.MenuItem, error) {
	item, err := scanMenuItem(r.q.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get menu item: %w", err)
	}
	return item, nil
}

func scanMenuItem(row pgx.Row) (*ledger.MenuItem, error) {
	var m ledger.MenuItem
	if err := row.Scan(&m.ID, &m.Name, &m.Price, &m.StockQuantity, &m.IsAvailable, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

type DiscountRepo struct {
	q querier
}

func (r *DiscountRepo) Create(ctx context.Context, discount *ledger.Discount) error {
	if discount == nil {
		return fmt.Errorf("discount is nil")
	}

	_, err := r.q.Exec(ctx, `INSERT INTO discounts
		(id, code, name, type, value, is_active, start_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		discount.ID, discount.Code, discount.Name, discount.Type, discount.Value, discount.IsActive,
		discount.StartDate, discount.EndDate, discount.CreatedAt, discount.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ledger.NewConflictError("discount %s already exists", discount.Code)
		}
		return fmt.Errorf("cannot create discount: %w", err)
	}
	return nil
}

func (r *DiscountRepo) GetByCode(ctx context.Context, code string) (*ledger.Discount, error) {
	var d ledger.Discount
	err := r.q.QueryRow(ctx, `SELECT id, code, name, type, value, is_active, start_date, end_date,
		created_at, updated_at FROM discounts WHERE LOWER(code) = LOWER($1)`, code).
		Scan(&d.ID, &d.Code, &d.Name, &d.Type, &d.Value, &d.IsActive, &d.StartDate, &d.EndDate,
			&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get discount: %w", err)
	}
	return &d, nil
}
