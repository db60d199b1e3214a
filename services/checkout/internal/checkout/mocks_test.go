package checkout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/appetiteclub/dineflow/pkg/enums/tablestatus"
	"github.com/appetiteclub/dineflow/services/checkout/internal/gateway"
	"github.com/appetiteclub/dineflow/services/checkout/internal/ledger"
	"github.com/appetiteclub/dineflow/services/checkout/internal/memory"
	"github.com/appetiteclub/dineflow/services/checkout/internal/notify"
	"github.com/google/uuid"
)

// MockGateway is a mock implementation of gateway.Gateway for testing
type MockGateway struct {
	mu                    sync.Mutex
	requests              []gateway.TransactionRequest
	CreateTransactionFunc func(ctx context.Context, req gateway.TransactionRequest) (*gateway.Token, error)
	TransactionStatusFunc func(ctx context.Context, reference string) (*gateway.Status, error)
}

func (m *MockGateway) CreateTransaction(ctx context.Context, req gateway.TransactionRequest) (*gateway.Token, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.CreateTransactionFunc != nil {
		return m.CreateTransactionFunc(ctx, req)
	}
	return &gateway.Token{Token: "token-" + req.Reference, RedirectURL: "https://pay.example.com/" + req.Reference}, nil
}

func (m *MockGateway) TransactionStatus(ctx context.Context, reference string) (*gateway.Status, error) {
	if m.TransactionStatusFunc != nil {
		return m.TransactionStatusFunc(ctx, reference)
	}
	return nil, gateway.ErrTransactionNotFound
}

func (m *MockGateway) Requests() []gateway.TransactionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]gateway.TransactionRequest(nil), m.requests...)
}

// MockPublisher records published messages per topic.
type MockPublisher struct {
	mu       sync.Mutex
	messages map[string][][]byte
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{messages: make(map[string][][]byte)}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
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

// Friday morning; bookings in tests target the evening or the next day.
var testNow = time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)

type fixture struct {
	store     *memory.Store
	gateway   *MockGateway
	publisher *MockPublisher
}

func newFixture() *fixture {
	return &fixture{
		store:     memory.NewStore(),
		gateway:   &MockGateway{},
		publisher: NewMockPublisher(),
	}
}

func (f *fixture) orchestrator() *Orchestrator {
	notifier := notify.NewNotifier(f.publisher, nil, nil, nil)
	o := NewOrchestrator(f.store, f.gateway, notifier, DefaultConfig(), nil)
	o.now = func() time.Time { return testNow }
	return o
}

func (f *fixture) menuItem(t *testing.T, name string, price int64, stock int, opts ...func(*ledger.MenuItem)) *ledger.MenuItem {
	t.Helper()
	mi := ledger.NewMenuItem()
	mi.Name = name
	mi.Price = price
	mi.StockQuantity = stock
	for _, opt := range opts {
		opt(mi)
	}
	mi.BeforeCreate()
	if err := f.store.Repos().MenuItems.Create(context.Background(), mi); err != nil {
		t.Fatalf("create menu item: %v", err)
	}
	return mi
}

func (f *fixture) table(t *testing.T, number string, capacity int) *ledger.Table {
	t.Helper()
	table := ledger.NewTable()
	table.TableNumber = number
	table.Capacity = capacity
	table.Status = tablestatus.Statuses.Available.Code()
	table.BeforeCreate()
	if err := f.store.Repos().Tables.Create(context.Background(), table); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return table
}

func (f *fixture) discount(t *testing.T, code string, value float64, start, end time.Time, opts ...func(*ledger.Discount)) *ledger.Discount {
	t.Helper()
	d := ledger.NewDiscount()
	d.Code = code
	d.Name = code
	d.Value = value
	d.StartDate = start
	d.EndDate = end
	for _, opt := range opts {
		opt(d)
	}
	d.BeforeCreate()
	if err := f.store.Repos().Discounts.Create(context.Background(), d); err != nil {
		t.Fatalf("create discount: %v", err)
	}
	return d
}

// pendingOrders lists every pending order in the store.
func (f *fixture) pendingOrders(t *testing.T) []*ledger.Order {
	t.Helper()
	orders, err := f.store.Repos().Orders.ListPendingBefore(context.Background(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	return orders
}

func (f *fixture) pendingReservations(t *testing.T) []*ledger.Reservation {
	t.Helper()
	rs, err := f.store.Repos().Reservations.ListPendingBefore(context.Background(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("list reservations: %v", err)
	}
	return rs
}

func customer() Customer {
	return Customer{Name: "Dana Lee", Email: "dana@example.com", Phone: "+628123456789"}
}

// LockingStore records table locks and reservation inserts made inside
// transactions, in call order.
type LockingStore struct {
	*memory.Store
	mu    sync.Mutex
	calls []string
}

func (s *LockingStore) RunInTx(ctx context.Context, fn func(ctx context.Context, repos ledger.Repos) error) error {
	return s.Store.RunInTx(ctx, func(ctx context.Context, repos ledger.Repos) error {
		repos.Tables = &lockRecordingTables{TableRepo: repos.Tables, store: s}
		repos.Reservations = &createRecordingReservations{ReservationRepo: repos.Reservations, store: s}
		return fn(ctx, repos)
	})
}

func (s *LockingStore) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *LockingStore) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

type lockRecordingTables struct {
	ledger.TableRepo
	store *LockingStore
}

func (r *lockRecordingTables) Lock(ctx context.Context, id uuid.UUID) error {
	r.store.record("lock " + id.String())
	return r.TableRepo.Lock(ctx, id)
}

type createRecordingReservations struct {
	ledger.ReservationRepo
	store *LockingStore
}

func (r *createRecordingReservations) Create(ctx context.Context, reservation *ledger.Reservation) error {
	r.store.record("create " + reservation.TableID.String())
	return r.ReservationRepo.Create(ctx, reservation)
}
