package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/appetiteclub/dineflow/pkg/enums/orderstatus"
	"github.com/appetiteclub/dineflow/pkg/enums/reservationstatus"
	"github.com/appetiteclub/dineflow/services/checkout/internal/ledger"
	"github.com/google/uuid"
)

// Store is an in-memory ledger for development and tests. Transactions
// serialize on a single lock and restore a snapshot when fn fails.
type Store struct {
	mu   sync.Mutex
	data *dataset
}

type dataset struct {
	orders       map[uuid.UUID]ledger.Order
	orderItems   map[uuid.UUID]ledger.OrderItem
	payments     map[uuid.UUID]ledger.Payment
	reservations map[uuid.UUID]ledger.Reservation
	tables       map[uuid.UUID]ledger.Table
	menuItems    map[uuid.UUID]ledger.MenuItem
	discounts    map[uuid.UUID]ledger.Discount
}

func newDataset() *dataset {
	return &dataset{
		orders:       make(map[uuid.UUID]ledger.Order),
		orderItems:   make(map[uuid.UUID]ledger.OrderItem),
		payments:     make(map[uuid.UUID]ledger.Payment),
		reservations: make(map[uuid.UUID]ledger.Reservation),
		tables:       make(map[uuid.UUID]ledger.Table),
		menuItems:    make(map[uuid.UUID]ledger.MenuItem),
		discounts:    make(map[uuid.UUID]ledger.Discount),
	}
}

func (d *dataset) clone() *dataset {
	c := newDataset()
	for k, v := range d.orders {
		c.orders[k] = v
	}
	for k, v := range d.orderItems {
		c.orderItems[k] = v
	}
	for k, v := range d.payments {
		c.payments[k] = v
	}
	for k, v := range d.reservations {
		c.reservations[k] = v
	}
	for k, v := range d.tables {
		c.tables[k] = v
	}
	for k, v := range d.menuItems {
		c.menuItems[k] = v
	}
	for k, v := range d.discounts {
		c.discounts[k] = v
	}
	return c
}

func NewStore() *Store {
	return &Store{data: newDataset()}
}

func (s *Store) Repos() ledger.Repos {
	return s.repos(false)
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, repos ledger.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(ctx, s.repos(true)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// Reset drops every record.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = newDataset()
}

func (s *Store) repos(inTx bool) ledger.Repos {
	b := base{store: s, inTx: inTx}
	return ledger.Repos{
		Orders:       &OrderRepo{b},
		OrderItems:   &OrderItemRepo{b},
		Payments:     &PaymentRepo{b},
		Reservations: &ReservationRepo{b},
		Tables:       &TableRepo{b},
		MenuItems:    &MenuItemRepo{b},
		Discounts:    &DiscountRepo{b},
	}
}

// base locks the store for a single call unless the caller already holds
// the transaction lock.
type base struct {
	store *Store
	inTx  bool
}

func (b base) lock() (*dataset, func()) {
	if b.inTx {
		return b.store.data, func() {}
	}
	b.store.mu.Lock()
	return b.store.data, b.store.mu.Unlock
}

type OrderRepo struct{ base }

func (r *OrderRepo) Create(ctx context.Context, order *ledger.Order) error {
	d, unlock := r.lock()
	defer unlock()

	order.EnsureID()
	if _, ok := d.orders[order.ID]; ok {
		return ledger.NewConflictError("order %s already exists", order.ID)
	}
	d.orders[order.ID] = *order
	return nil
}

func (r *OrderRepo) Get(ctx context.Context, id uuid.UUID) (*ledger.Order, error) {
	d, unlock := r.lock()
	defer unlock()

	o, ok := d.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (r *OrderRepo) Save(ctx context.Context, order *ledger.Order) error {
	d, unlock := r.lock()
	defer unlock()

	if _, ok := d.orders[order.ID]; !ok {
		return ledger.NewNotFoundError("order %s not found", order.ID)
	}
	d.orders[order.ID] = *order
	return nil
}

func (r *OrderRepo) SaveIfStatus(ctx context.Context, order *ledger.Order, expected string) (bool, error) {
	d, unlock := r.lock()
	defer unlock()

	stored, ok := d.orders[order.ID]
	if !ok || stored.Status != expected {
		return false, nil
	}
	d.orders[order.ID] = *order
	return true, nil
}

func (r *OrderRepo) ListPendingBefore(ctx context.Context, before time.Time) ([]*ledger.Order, error) {
	d, unlock := r.lock()
	defer unlock()

	pending := orderstatus.Statuses.Pending.Code()
	var out []*ledger.Order
	for _, o := range d.orders {
		if o.Status == pending && o.CreatedAt.Before(before) {
			o := o
			out = append(out, &o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *OrderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	d, unlock := r.lock()
	defer unlock()

	if _, ok := d.orders[id]; !ok {
		return ledger.NewNotFoundError("order %s not found", id)
	}
	delete(d.orders, id)
	return nil
}

type OrderItemRepo struct{ base }

func (r *OrderItemRepo) Create(ctx context.Context, item *ledger.OrderItem) error {
	d, unlock := r.lock()
	defer unlock()

	item.EnsureID()
	d.orderItems[item.ID] = *item
	return nil
}

func (r *OrderItemRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*ledger.OrderItem, error) {
	d, unlock := r.lock()
	defer unlock()

	var out []*ledger.OrderItem
	for _, item := range d.orderItems {
		if item.OrderID == orderID {
			item := item
			out = append(out, &item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *OrderItemRepo) DeleteByOrder(ctx context.Context, orderID uuid.UUID) error {
	d, unlock := r.lock()
	defer unlock()

	for id, item := range d.orderItems {
		if item.OrderID == orderID {
			delete(d.orderItems, id)
		}
	}
	return nil
}

type PaymentRepo struct{ base }

func (r *PaymentRepo) Upsert(ctx context.Context, payment *ledger.Payment) (*ledger.Payment, error) {
	d, unlock := r.lock()
	defer unlock()

	for id, stored := range d.payments {
		if stored.TransactionID != payment.TransactionID {
			continue
		}
		stored.Amount = payment.Amount
		stored.PaymentMethod = payment.PaymentMethod
		stored.Status = payment.Status
		stored.GatewayStatus = payment.GatewayStatus
		stored.UpdatedAt = payment.UpdatedAt
		d.payments[id] = stored
		return &stored, nil
	}

	payment.EnsureID()
	d.payments[payment.ID] = *payment
	stored := *payment
	return &stored, nil
}

func (r *PaymentRepo) GetByTransactionID(ctx context.Context, transactionID string) (*ledger.Payment, error) {
	d, unlock := r.lock()
	defer unlock()

	for _, p := range d.payments {
		if p.TransactionID == transactionID {
			return &p, nil
		}
	}
	return nil, nil
}

func (r *PaymentRepo) ListByTarget(ctx context.Context, kind ledger.TargetKind, targetID uuid.UUID) ([]*ledger.Payment, error) {
	d, unlock := r.lock()
	defer unlock()

	var out []*ledger.Payment
	for _, p := range d.payments {
		if p.TargetKind == kind && p.TargetID == targetID {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type ReservationRepo struct{ base }

func (r *ReservationRepo) Create(ctx context.Context, reservation *ledger.Reservation) error {
	d, unlock := r.lock()
	defer unlock()

	reservation.EnsureID()
	if _, ok := d.reservations[reservation.ID]; ok {
		return ledger.NewConflictError("reservation %s already exists", reservation.ID)
	}
	d.reservations[reservation.ID] = *reservation
	return nil
}

func (r *ReservationRepo) Get(ctx context.Context, id uuid.UUID) (*ledger.Reservation, error) {
	d, unlock := r.lock()
	defer unlock()

	res, ok := d.reservations[id]
	if !ok {
		return nil, nil
	}
	return &res, nil
}

func (r *ReservationRepo) Save(ctx context.Context, reservation *ledger.Reservation) error {
	d, unlock := r.lock()
	defer unlock()

	if _, ok := d.reservations[reservation.ID]; !ok {
		return ledger.NewNotFoundError("reservation %s not found", reservation.ID)
	}
	d.reservations[reservation.ID] = *reservation
	return nil
}

func (r *ReservationRepo) SaveIfStatus(ctx context.Context, reservation *ledger.Reservation, expected string) (bool, error) {
	d, unlock := r.lock()
	defer unlock()

	stored, ok := d.reservations[reservation.ID]
	if !ok || stored.Status != expected {
		return false, nil
	}
	d.reservations[reservation.ID] = *reservation
	return true, nil
}

func (r *ReservationRepo) ListActiveByTables(ctx context.Context, tableIDs []uuid.UUID, from, to time.Time) ([]*ledger.Reservation, error) {
	d, unlock := r.lock()
	defer unlock()

	wanted := make(map[uuid.UUID]bool, len(tableIDs))
	for _, id := range tableIDs {
		wanted[id] = true
	}

	cancelled := reservationstatus.Statuses.Cancelled.Code()
	var out []*ledger.Reservation
	for _, res := range d.reservations {
		if !wanted[res.TableID] || res.Status == cancelled {
			continue
		}
		if res.ScheduledAt.Before(from) || res.ScheduledAt.After(to) {
			continue
		}
		res := res
		out = append(out, &res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (r *ReservationRepo) ListPendingBefore(ctx context.Context, before time.Time) ([]*ledger.Reservation, error) {
	d, unlock := r.lock()
	defer unlock()

	pending := reservationstatus.Statuses.Pending.Code()
	var out []*ledger.Reservation
	for _, res := range d.reservations {
		if res.Status == pending && res.CreatedAt.Before(before) {
			res := res
			out = append(out, &res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *ReservationRepo) CountConfirmedByTable(ctx context.Context, tableID uuid.UUID, excludeID uuid.UUID) (int, error) {
	d, unlock := r.lock()
	defer unlock()

	confirmed := reservationstatus.Statuses.Confirmed.Code()
	count := 0
	for _, res := range d.reservations {
		if res.TableID == tableID && res.ID != excludeID && res.Status == confirmed {
			count++
		}
	}
	return count, nil
}

type TableRepo struct{ base }

func (r *TableRepo) Create(ctx context.Context, table *ledger.Table) error {
	d, unlock := r.lock()
	defer unlock()

	table.EnsureID()
	for _, t := range d.tables {
		if t.TableNumber == table.TableNumber {
			return ledger.NewConflictError("table %s already exists", table.TableNumber)
		}
	}
	d.tables[table.ID] = *table
	return nil
}

func (r *TableRepo) Get(ctx context.Context, id uuid.UUID) (*ledger.Table, error) {
	d, unlock := r.lock()
	defer unlock()

	t, ok := d.tables[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *TableRepo) GetByNumber(ctx context.Context, number string) (*ledger.Table, error) {
	d, unlock := r.lock()
	defer unlock()

	for _, t := range d.tables {
		if t.TableNumber == number {
			return &t, nil
		}
	}
	return nil, nil
}

func (r *TableRepo) List(ctx context.Context) ([]*ledger.Table, error) {
	return r.list("")
}

func (r *TableRepo) ListByStatus(ctx context.Context, status string) ([]*ledger.Table, error) {
	return r.list(status)
}

func (r *TableRepo) list(status string) ([]*ledger.Table, error) {
	d, unlock := r.lock()
	defer unlock()

	out := make([]*ledger.Table, 0, len(d.tables))
	for _, t := range d.tables {
		if status != "" && t.Status != status {
			continue
		}
		t := t
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TableNumber < out[j].TableNumber })
	return out, nil
}

func (r *TableRepo) Save(ctx context.Context, table *ledger.Table) error {
	d, unlock := r.lock()
	defer unlock()

	if _, ok := d.tables[table.ID]; !ok {
		return ledger.NewNotFoundError("table %s not found", table.ID)
	}
	d.tables[table.ID] = *table
	return nil
}

// Lock only checks existence: transactions already run one at a time.
func (r *TableRepo) Lock(ctx context.Context, id uuid.UUID) error {
	d, unlock := r.lock()
	defer unlock()

	if _, ok := d.tables[id]; !ok {
		return ledger.NewNotFoundError("table %s not found", id)
	}
	return nil
}

type MenuItemRepo struct{ base }

func (r *MenuItemRepo) Create(ctx context.Context, item *ledger.MenuItem) error {
	d, unlock := r.lock()
	defer unlock()

	item.EnsureID()
	d.menuItems[item.ID] = *item
	return nil
}

func (r *MenuItemRepo) Get(ctx context.Context, id uuid.UUID) (*ledger.MenuItem, error) {
	d, unlock := r.lock()
	defer unlock()

	m, ok := d.menuItems[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r *MenuItemRepo) GetByName(ctx context.Context, name string) (*ledger.MenuItem, error) {
	d, unlock := r.lock()
	defer unlock()

	for _, m := range d.menuItems {
		if strings.EqualFold(m.Name, name) {
			return &m, nil
		}
	}
	return nil, nil
}

func (r *MenuItemRepo) List(ctx context.Context) ([]*ledger.MenuItem, error) {
	d, unlock := r.lock()
	defer unlock()

	out := make([]*ledger.MenuItem, 0, len(d.menuItems))
	for _, m := range d.menuItems {
		m := m
		out = append(out, &m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MenuItemRepo) DecrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	d, unlock := r.lock()
	defer unlock()

	m, ok := d.menuItems[id]
	if !ok {
		return ledger.NewNotFoundError("menu item %s not found", id)
	}
	m.StockQuantity -= qty
	if m.StockQuantity < 0 {
		m.StockQuantity = 0
	}
	m.UpdatedAt = time.Now()
	d.menuItems[id] = m
	return nil
}

type DiscountRepo struct{ base }

func (r *DiscountRepo) Create(ctx context.Context, discount *ledger.Discount) error {
	d, unlock := r.lock()
	defer unlock()

	if discount.ID == uuid.Nil {
		discount.BeforeCreate()
	}
	for _, existing := range d.discounts {
		if strings.EqualFold(existing.Code, discount.Code) {
			return ledger.NewConflictError("discount %s already exists", discount.Code)
		}
	}
	d.discounts[discount.ID] = *discount
	return nil
}

func (r *DiscountRepo) GetByCode(ctx context.Context, code string) (*ledger.Discount, error) {
	d, unlock := r.lock()
	defer unlock()

	for _, disc := range d.discounts {
		if strings.EqualFold(disc.Code, code) {
			return &disc, nil
		}
	}
	return nil, nil
}
