package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/appetiteclub/dineflow/pkg/enums/orderstatus"
	"github.com/appetiteclub/dineflow/services/checkout/internal/ledger"
)

const orderColumns = `id, user_id, order_type, status, total_amount, discount_amount, discount_code,
	payment_status, payment_id, customer_name, customer_email, customer_phone, delivery_address,
	estimated_delivery_time, created_at, updated_at`

type OrderRepo struct {
	q querier
}

func (r *OrderRepo) Create(ctx context.Context, order *ledger.Order) error {
	if order == nil {
		return fmt.Errorf("order is nil")
	}

	_, err := r.q.Exec(ctx, `INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		order.ID, nullUUID(order.UserID), order.OrderType, order.Status, order.TotalAmount,
		order.DiscountAmount, order.DiscountCode, order.PaymentStatus, nullUUID(order.PaymentID),
		order.CustomerName, order.CustomerEmail, order.CustomerPhone, order.DeliveryAddress,
		order.EstimatedDeliveryTime, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ledger.NewConflictError("order %s already exists", order.ID)
		}
		return fmt.Errorf("cannot create order: %w", err)
	}
	return nil
}

func (r *OrderRepo) Get(ctx context.Context, id uuid.UUID) (*ledger.Order, error) {
	row := r.q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get order: %w", err)
	}
	return order, nil
}

func (r *OrderRepo) Save(ctx context.Context, order *ledger.Order) error {
	ok, err := r.update(ctx, order, "")
	if err != nil {
		return err
	}
	if !ok {
		return ledger.NewNotFoundError("order %s not found", order.ID)
	}
	return nil
}

func (r *OrderRepo) SaveIfStatus(ctx context.Context, order *ledger.Order, expected string) (bool, error) {
	return r.update(ctx, order, expected)
}

// update writes the mutable columns. A non-empty expected status turns it
// into a compare-and-set.
func (r *OrderRepo) update(ctx context.Context, order *ledger.Order, expected string) (bool, error) {
	if order == nil {
		return false, fmt.Errorf("order is nil")
	}

	tag, err := r.q.Exec(ctx, `UPDATE orders SET
			status = $2, total_amount = $3, discount_amount = $4, discount_code = $5,
			payment_status = $6, payment_id = $7, customer_name = $8, customer_email = $9,
			customer_phone = $10, delivery_address = $11, estimated_delivery_time = $12, updated_at = $13
		WHERE id = $1 AND ($14::text = '' OR status = $14::text)`,
		order.ID, order.Status, order.TotalAmount, order.DiscountAmount, order.DiscountCode,
		order.PaymentStatus, nullUUID(order.PaymentID), order.CustomerName, order.CustomerEmail,
		order.CustomerPhone, order.DeliveryAddress, order.EstimatedDeliveryTime, order.UpdatedAt, expected)
	if err != nil {
		return false, fmt.Errorf("cannot update order: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *OrderRepo) ListPendingBefore(ctx context.Context, before time.Time) ([]*ledger.Order, error) {
	rows, err := r.q.Query(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE status = $1 AND created_at < $2 ORDER BY created_at`,
		orderstatus.Statuses.Pending.Code(), before)
	if err != nil {
		return nil, fmt.Errorf("cannot list pending orders: %w", err)
	}
	defer rows.Close()

	var result []*ledger.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("cannot scan order: %w", err)
		}
		result = append(result, order)
	}
	return result, rows.Err()
}

func (r *OrderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("cannot delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.NewNotFoundError("order %s not found", id)
	}
	return nil
}

func scanOrder(row pgx.Row) (*ledger.Order, error) {
	var o ledger.Order
	var userID, paymentID uuid.NullUUID
	err := row.Scan(&o.ID, &userID, &o.OrderType, &o.Status, &o.TotalAmount, &o.DiscountAmount,
		&o.DiscountCode, &o.PaymentStatus, &paymentID, &o.CustomerName, &o.CustomerEmail,
		&o.CustomerPhone, &o.DeliveryAddress, &o.EstimatedDeliveryTime, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.UserID = uuidPtr(userID)
	o.PaymentID = uuidPtr(paymentID)
	return &o, nil
}

type OrderItemRepo struct {
	q querier
}

func (r *OrderItemRepo) Create(ctx context.Context, item *ledger.OrderItem) error {
	if item == nil {
		return fmt.Errorf("order item is nil")
	}

	_, err := r.q.Exec(ctx, `INSERT INTO order_items
		(id, order_id, menu_item_id, name, quantity, unit_price, subtotal, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		item.ID, item.OrderID, item.MenuItemID, item.Name, item.Quantity, item.UnitPrice,
		item.Subtotal, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("cannot create order item: %w", err)
	}
	return nil
}

func (r *OrderItemRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*ledger.OrderItem, error) {
	rows, err := r.q.Query(ctx, `SELECT id, order_id, menu_item_id, name, quantity, unit_price,
		subtotal, created_at, updated_at FROM order_items WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, fmt.Errorf("cannot list order items: %w", err)
	}
	defer rows.Close()

	var result []*ledger.OrderItem
	for rows.Next() {
		var i ledger.OrderItem
		if err := rows.Scan(&i.ID, &i.OrderID, &i.MenuItemID, &i.Name, &i.Quantity, &i.UnitPrice,
			&i.Subtotal, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, fmt.Errorf("cannot scan order item: %w", err)
		}
		result = append(result, &i)
	}
	return result, rows.Err()
}

func (r *OrderItemRepo) DeleteByOrder(ctx context.Context, orderID uuid.UUID) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("cannot delete order items: %w", err)
	}
	return nil
}
