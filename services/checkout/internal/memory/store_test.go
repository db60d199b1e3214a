package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/appetiteclub/dineflow/pkg/enums/orderstatus"
	"github.com/appetiteclub/dineflow/pkg/enums/paymentstatus"
	"github.com/appetiteclub/dineflow/pkg/enums/reservationstatus"
	"github.com/appetiteclub/dineflow/services/checkout/internal/ledger"
	"github.com/google/uuid"
)

func newOrder(t *testing.T, s *Store) *ledger.Order {
	t.Helper()
	o := ledger.NewOrder()
	o.OrderType = "takeaway"
	o.TotalAmount = 20000
	o.BeforeCreate()
	if err := s.Repos().Orders.Create(context.Background(), o); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return o
}

func TestRunInTxRollsBack(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	existing := newOrder(t, s)

	boom := errors.New("boom")
	var created *ledger.Order
	err := s.RunInTx(ctx, func(ctx context.Context, repos ledger.Repos) error {
		created = ledger.NewOrder()
		created.BeforeCreate()
		if err := repos.Orders.Create(ctx, created); err != nil {
			return err
		}
		existing.Cancel()
		if err := repos.Orders.Save(ctx, existing); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("RunInTx() error = %v, want boom", err)
	}

	if got, _ := s.Repos().Orders.Get(ctx, created.ID); got != nil {
		t.Error("order created in failed transaction is still stored")
	}
	got, _ := s.Repos().Orders.Get(ctx, existing.ID)
	if got.Status != orderstatus.Statuses.Pending.Code() {
		t.Errorf("status = %s, want pending after rollback", got.Status)
	}
}

func TestRunInTxCommits(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	var id uuid.UUID
	err := s.RunInTx(ctx, func(ctx context.Context, repos ledger.Repos) error {
		o := ledger.NewOrder()
		o.BeforeCreate()
		id = o.ID
		return repos.Orders.Create(ctx, o)
	})
	if err != nil {
		t.Fatalf("RunInTx() error = %v", err)
	}

	if got, _ := s.Repos().Orders.Get(ctx, id); got == nil {
		t.Error("committed order not found")
	}
}

func TestRunInTxCancelledContext(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.RunInTx(ctx, func(ctx context.Context, repos ledger.Repos) error {
		called = true
		return nil
	})
	if err == nil || called {
		t.Errorf("RunInTx() error = %v, called = %v; want context error without calling fn", err, called)
	}
}

func TestOrderRepoCreateDuplicate(t *testing.T) {
	s := NewStore()
	o := newOrder(t, s)

	if err := s.Repos().Orders.Create(context.Background(), o); !ledger.IsConflict(err) {
		t.Errorf("Create() duplicate error = %v, want conflict", err)
	}
}

func TestOrderRepoSaveIfStatus(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	o := newOrder(t, s)
	pending := orderstatus.Statuses.Pending.Code()

	first := *o
	first.MarkAsProcessing(uuid.New())
	ok, err := s.Repos().Orders.SaveIfStatus(ctx, &first, pending)
	if err != nil || !ok {
		t.Fatalf("SaveIfStatus() = %v, %v; want true", ok, err)
	}

	second := *o
	second.Cancel()
	ok, err = s.Repos().Orders.SaveIfStatus(ctx, &second, pending)
	if err != nil {
		t.Fatalf("SaveIfStatus() error = %v", err)
	}
	if ok {
		t.Error("SaveIfStatus() = true for a stale expected status")
	}

	got, _ := s.Repos().Orders.Get(ctx, o.ID)
	if got.Status != orderstatus.Statuses.Processing.Code() {
		t.Errorf("status = %s, want processing", got.Status)
	}
}

func TestOrderRepoSaveMissing(t *testing.T) {
	s := NewStore()
	o := ledger.NewOrder()

	if err := s.Repos().Orders.Save(context.Background(), o); !ledger.IsNotFound(err) {
		t.Errorf("Save() error = %v, want not found", err)
	}
}

func TestPaymentRepoUpsert(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	ref := ledger.OrderReference(uuid.New())

	p := ledger.NewPayment(ref, "TX1")
	p.Amount = 20000
	p.GatewayStatus = "pending"
	p.BeforeCreate()
	stored, err := s.Repos().Payments.Upsert(ctx, p)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	update := ledger.NewPayment(ref, "TX1")
	update.Amount = 20000
	update.Status = paymentstatus.Statuses.Success.Code()
	update.GatewayStatus = "settlement"
	update.PaymentMethod = "qris"
	update.BeforeCreate()
	again, err := s.Repos().Payments.Upsert(ctx, update)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if again.ID != stored.ID {
		t.Errorf("upsert created a new row %s, want %s", again.ID, stored.ID)
	}
	if again.Status != paymentstatus.Statuses.Success.Code() || again.PaymentMethod != "qris" {
		t.Errorf("payment = %+v, want updated status and method", again)
	}

	all, _ := s.Repos().Payments.ListByTarget(ctx, ledger.TargetOrder, ref.ID)
	if len(all) != 1 {
		t.Errorf("payments = %d, want 1", len(all))
	}
}

func TestMenuItemRepoDecrementStock(t *testing.T) {
	tests := []struct {
		name  string
		stock int
		qty   int
		want  int
	}{
		{name: "partial", stock: 5, qty: 2, want: 3},
		{name: "exact", stock: 2, qty: 2, want: 0},
		{name: "floorsAtZero", stock: 1, qty: 3, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			ctx := context.Background()
			mi := ledger.NewMenuItem()
			mi.Name = "Soup"
			mi.StockQuantity = tt.stock
			mi.BeforeCreate()
			if err := s.Repos().MenuItems.Create(ctx, mi); err != nil {
				t.Fatalf("Create() error = %v", err)
			}

			if err := s.Repos().MenuItems.DecrementStock(ctx, mi.ID, tt.qty); err != nil {
				t.Fatalf("DecrementStock() error = %v", err)
			}

			got, _ := s.Repos().MenuItems.Get(ctx, mi.ID)
			if got.StockQuantity != tt.want {
				t.Errorf("stock = %d, want %d", got.StockQuantity, tt.want)
			}
		})
	}
}

func TestReservationRepoListActiveByTables(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	tableID := uuid.New()
	otherTable := uuid.New()
	at := time.Date(2025, 3, 14, 19, 0, 0, 0, time.UTC)

	add := func(table uuid.UUID, when time.Time, status string) {
		r := ledger.NewReservation()
		r.TableID = table
		r.SetSlot(when)
		r.Status = status
		r.BeforeCreate()
		if err := s.Repos().Reservations.Create(ctx, r); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	add(tableID, at.Add(-2*time.Hour), reservationstatus.Statuses.Confirmed.Code())
	add(tableID, at.Add(2*time.Hour), reservationstatus.Statuses.Pending.Code())
	add(tableID, at, reservationstatus.Statuses.Cancelled.Code())
	add(tableID, at.Add(3*time.Hour), reservationstatus.Statuses.Confirmed.Code())
	add(otherTable, at, reservationstatus.Statuses.Confirmed.Code())

	got, err := s.Repos().Reservations.ListActiveByTables(ctx, []uuid.UUID{tableID}, at.Add(-2*time.Hour), at.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("ListActiveByTables() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("reservations = %d, want 2 inside the inclusive range", len(got))
	}
}

func TestDiscountRepoGetByCode(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	d := ledger.NewDiscount()
	d.Code = "WELCOME10"
	d.BeforeCreate()
	if err := s.Repos().Discounts.Create(ctx, d); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := s.Repos().Discounts.GetByCode(ctx, "welcome10")
	if err != nil || got == nil {
		t.Fatalf("GetByCode() = %v, %v", got, err)
	}

	missing, err := s.Repos().Discounts.GetByCode(ctx, "NOPE")
	if err != nil || missing != nil {
		t.Errorf("GetByCode() unknown = %v, %v; want nil, nil", missing, err)
	}
}

func TestReset(t *testing.T) {
	s := NewStore()
	o := newOrder(t, s)
	s.Reset()

	if got, _ := s.Repos().Orders.Get(context.Background(), o.ID); got != nil {
		t.Error("order still stored after Reset()")
	}
}
