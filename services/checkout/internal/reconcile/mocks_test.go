package reconcile

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/appetiteclub/dineflow/pkg/enums/ordertype"
	"github.com/appetiteclub/dineflow/services/checkout/internal/gateway"
	"github.com/appetiteclub/dineflow/services/checkout/internal/ledger"
	"github.com/appetiteclub/dineflow/services/checkout/internal/memory"
	"github.com/appetiteclub/dineflow/services/checkout/internal/notify"
	"github.com/google/uuid"
)

// MockPublisher records published messages per topic.
type MockPublisher struct {
	mu          sync.Mutex
	messages    map[string][][]byte
	PublishFunc func(ctx context.Context, topic string, msg []byte) error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{messages: make(map[string][][]byte)}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[topic] = append(m.messages[topic], msg)
	return nil
}

func (m *MockPublisher) Count(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages[topic])
}

// MockGateway is a mock implementation of gateway.Gateway for testing
type MockGateway struct {
	CreateTransactionFunc func(ctx context.Context, req gateway.TransactionRequest) (*gateway.Token, error)
	TransactionStatusFunc func(ctx context.Context, reference string) (*gateway.Status, error)
}

func (m *MockGateway) CreateTransaction(ctx context.Context, req gateway.TransactionRequest) (*gateway.Token, error) {
	if m.CreateTransactionFunc != nil {
		return m.CreateTransactionFunc(ctx, req)
	}
	return &gateway.Token{Token: "token-" + req.Reference}, nil
}

func (m *MockGateway) TransactionStatus(ctx context.Context, reference string) (*gateway.Status, error) {
	if m.TransactionStatusFunc != nil {
		return m.TransactionStatusFunc(ctx, reference)
	}
	return nil, gateway.ErrTransactionNotFound
}

// MockStockRepo wraps a menu item repo and can fail stock updates.
type MockStockRepo struct {
	ledger.MenuItemRepo
	DecrementStockFunc func(ctx context.Context, id uuid.UUID, qty int) error
}

func (m *MockStockRepo) DecrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	if m.DecrementStockFunc != nil {
		return m.DecrementStockFunc(ctx, id, qty)
	}
	return m.MenuItemRepo.DecrementStock(ctx, id, qty)
}

// MockStore runs on a memory store and lets tests replace repos inside transactions.
type MockStore struct {
	*memory.Store
	WrapRepos func(repos ledger.Repos) ledger.Repos
}

func (m *MockStore) RunInTx(ctx context.Context, fn func(ctx context.Context, repos ledger.Repos) error) error {
	return m.Store.RunInTx(ctx, func(ctx context.Context, repos ledger.Repos) error {
		if m.WrapRepos != nil {
			repos = m.WrapRepos(repos)
		}
		return fn(ctx, repos)
	})
}

type fixture struct {
	store     *memory.Store
	publisher *MockPublisher
	notifier  *notify.Notifier
}

func newFixture() *fixture {
	store := memory.NewStore()
	publisher := NewMockPublisher()
	return &fixture{
		store:     store,
		publisher: publisher,
		notifier:  notify.NewNotifier(publisher, nil, nil, nil),
	}
}

func (f *fixture) reconciler() *Reconciler {
	return NewReconciler(f.store, f.notifier, nil, nil)
}

func (f *fixture) menuItem(t *testing.T, name string, price int64, stock int) *ledger.MenuItem {
	t.Helper()
	mi := ledger.NewMenuItem()
	mi.Name = name
	mi.Price = price
	mi.StockQuantity = stock
	mi.BeforeCreate()
	if err := f.store.Repos().MenuItems.Create(context.Background(), mi); err != nil {
		t.Fatalf("create menu item: %v", err)
	}
	return mi
}

type line struct {
	item *ledger.MenuItem
	qty  int
}

func (f *fixture) pendingOrder(t *testing.T, kind ordertype.Type, lines ...line) *ledger.Order {
	t.Helper()
	ctx := context.Background()
	repos := f.store.Repos()

	order := ledger.NewOrder()
	order.OrderType = kind.Code()
	order.CustomerName = "Dana Lee"
	order.CustomerEmail = "dana@example.com"

	items := make([]*ledger.OrderItem, 0, len(lines))
	for _, l := range lines {
		item := ledger.NewOrderItem(order.ID)
		item.MenuItemID = l.item.ID
		item.Name = l.item.Name
		item.Quantity = l.qty
		item.UnitPrice = l.item.Price
		item.BeforeCreate()
		items = append(items, item)
	}
	order.ApplyTotals(items, 0)
	order.BeforeCreate()

	if err := repos.Orders.Create(ctx, order); err != nil {
		t.Fatalf("create order: %v", err)
	}
	for _, item := range items {
		if err := repos.OrderItems.Create(ctx, item); err != nil {
			t.Fatalf("create order item: %v", err)
		}
	}
	return order
}

func (f *fixture) table(t *testing.T, number string, capacity int) *ledger.Table {
	t.Helper()
	table := ledger.NewTable()
	table.TableNumber = number
	table.Capacity = capacity
	table.BeforeCreate()
	if err := f.store.Repos().Tables.Create(context.Background(), table); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return table
}

func (f *fixture) pendingReservation(t *testing.T, table *ledger.Table, at time.Time) *ledger.Reservation {
	t.Helper()
	r := ledger.NewReservation()
	r.TableID = table.ID
	r.SetSlot(at)
	r.NumberOfGuests = 2
	r.BookingFee = 50000
	r.CustomerName = "Dana Lee"
	r.CustomerEmail = "dana@example.com"
	r.BeforeCreate()
	if err := f.store.Repos().Reservations.Create(context.Background(), r); err != nil {
		t.Fatalf("create reservation: %v", err)
	}
	return r
}

func (f *fixture) order(t *testing.T, id uuid.UUID) *ledger.Order {
	t.Helper()
	o, err := f.store.Repos().Orders.Get(context.Background(), id)
	if err != nil || o == nil {
		t.Fatalf("get order %s: %v", id, err)
	}
	return o
}

func (f *fixture) reservation(t *testing.T, id uuid.UUID) *ledger.Reservation {
	t.Helper()
	r, err := f.store.Repos().Reservations.Get(context.Background(), id)
	if err != nil || r == nil {
		t.Fatalf("get reservation %s: %v", id, err)
	}
	return r
}

func (f *fixture) tableByID(t *testing.T, id uuid.UUID) *ledger.Table {
	t.Helper()
	tb, err := f.store.Repos().Tables.Get(context.Background(), id)
	if err != nil || tb == nil {
		t.Fatalf("get table %s: %v", id, err)
	}
	return tb
}

func (f *fixture) stock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	mi, err := f.store.Repos().MenuItems.Get(context.Background(), id)
	if err != nil || mi == nil {
		t.Fatalf("get menu item %s: %v", id, err)
	}
	return mi.StockQuantity
}

func (f *fixture) payments(t *testing.T, kind ledger.TargetKind, id uuid.UUID) []*ledger.Payment {
	t.Helper()
	ps, err := f.store.Repos().Payments.ListByTarget(context.Background(), kind, id)
	if err != nil {
		t.Fatalf("list payments: %v", err)
	}
	return ps
}
