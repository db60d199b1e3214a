package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repositories return (nil, nil) when a lookup by id or key finds nothing.

type OrderRepo interface {
	Create(ctx context.Context, order *Order) error
	Get(ctx context.Context, id uuid.UUID) (*Order, error)
	Save(ctx context.Context, order *Order) error
	// SaveIfStatus persists order only while the stored status still equals
	// expected. It reports false when another writer moved the order first.
	SaveIfStatus(ctx context.Context, order *Order, expected string) (bool, error)
	ListPendingBefore(ctx context.Context, before time.Time) ([]*Order, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type OrderItemRepo interface {
	Create(ctx context.Context, item *OrderItem) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*OrderItem, error)
	DeleteByOrder(ctx context.Context, orderID uuid.UUID) error
}

type PaymentRepo interface {
	// Upsert inserts payment or, when its transaction id is already stored,
	// updates the mutable fields. It returns the stored row.
	Upsert(ctx context.Context, payment *Payment) (*Payment, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*Payment, error)
	ListByTarget(ctx context.Context, kind TargetKind, targetID uuid.UUID) ([]*Payment, error)
}

type ReservationRepo interface {
	Create(ctx context.Context, reservation *Reservation) error
	Get(ctx context.Context, id uuid.UUID) (*Reservation, error)
	Save(ctx context.Context, reservation *Reservation) error
	SaveIfStatus(ctx context.Context, reservation *Reservation, expected string) (bool, error)
	// ListActiveByTables returns non-cancelled reservations of the given
	// tables scheduled in [from, to].
	ListActiveByTables(ctx context.Context, tableIDs []uuid.UUID, from, to time.Time) ([]*Reservation, error)
	ListPendingBefore(ctx context.Context, before time.Time) ([]*Reservation, error)
	CountConfirmedByTable(ctx context.Context, tableID uuid.UUID, excludeID uuid.UUID) (int, error)
}

type TableRepo interface {
	Create(ctx context.Context, table *Table) error
	Get(ctx context.Context, id uuid.UUID) (*Table, error)
	GetByNumber(ctx context.Context, number string) (*Table, error)
	List(ctx context.Context) ([]*Table, error)
	ListByStatus(ctx context.Context, status string) ([]*Table, error)
	Save(ctx context.Context, table *Table) error
	// Lock serializes bookings of the table until the surrounding
	// transaction ends. Outside a transaction it only checks existence.
	Lock(ctx context.Context, id uuid.UUID) error
}

type MenuItemRepo interface {
	Create(ctx context.Context, item *MenuItem) error
	Get(ctx context.Context, id uuid.UUID) (*MenuItem, error)
	GetByName(ctx context.Context, name string) (*MenuItem, error)
	List(ctx context.Context) ([]*MenuItem, error)
	// DecrementStock lowers stock by qty, flooring at zero.
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) error
}

type DiscountRepo interface {
	Create(ctx context.Context, discount *Discount) error
	GetByCode(ctx context.Context, code string) (*Discount, error)
}

type Repos struct {
	Orders       OrderRepo
	OrderItems   OrderItemRepo
	Payments     PaymentRepo
	Reservations ReservationRepo
	Tables       TableRepo
	MenuItems    MenuItemRepo
	Discounts    DiscountRepo
}

// Store hands out repositories and runs multi-row writes atomically.
type Store interface {
	Repos() Repos
	// RunInTx calls fn with repositories bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	// fn may be invoked more than once when the backend retries transient
	// conflicts, so it must not have effects outside the repositories.
	RunInTx(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error
}
