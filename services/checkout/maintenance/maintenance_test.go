package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/appetiteclub/dineflow/pkg/enums/orderstatus"
	"github.com/appetiteclub/dineflow/pkg/enums/ordertype"
	"github.com/appetiteclub/dineflow/pkg/enums/tablestatus"
	"github.com/appetiteclub/dineflow/services/checkout/internal/checkout"
	"github.com/appetiteclub/dineflow/services/checkout/internal/gateway"
	"github.com/appetiteclub/dineflow/services/checkout/internal/ledger"
	"github.com/appetiteclub/dineflow/services/checkout/internal/memory"
	"github.com/appetiteclub/dineflow/services/checkout/internal/reconcile"
)

type stubGateway struct {
	StatusFunc func(ctx context.Context, reference string) (*gateway.Status, error)
}

func (g *stubGateway) CreateTransaction(ctx context.Context, req gateway.TransactionRequest) (*gateway.Token, error) {
	return nil, errors.New("not used")
}

func (g *stubGateway) TransactionStatus(ctx context.Context, reference string) (*gateway.Status, error) {
	return g.StatusFunc(ctx, reference)
}

func reservedTables(t *testing.T, store ledger.Store) int {
	t.Helper()
	tables, err := store.Repos().Tables.ListByStatus(context.Background(), tablestatus.Statuses.Reserved.Code())
	if err != nil {
		t.Fatalf("ListByStatus() error = %v", err)
	}
	return len(tables)
}

func demoReservations(t *testing.T, store ledger.Store) int {
	t.Helper()
	ctx := context.Background()
	tables, err := store.Repos().Tables.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	ids := make([]uuid.UUID, 0, len(tables))
	for _, tbl := range tables {
		ids = append(ids, tbl.ID)
	}
	day := time.Now().UTC().AddDate(0, 0, 1)
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	res, err := store.Repos().Reservations.ListActiveByTables(ctx, ids, from, from.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("ListActiveByTables() error = %v", err)
	}
	return len(res)
}

func TestSeedDemoStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	if err := SeedDemoStore(ctx, store, checkout.DefaultConfig(), time.Now(), nil); err != nil {
		t.Fatalf("SeedDemoStore() error = %v", err)
	}
	if got := reservedTables(t, store); got != len(demoBookings) {
		t.Errorf("reserved tables = %d, want %d", got, len(demoBookings))
	}
	if got := demoReservations(t, store); got != len(demoBookings) {
		t.Errorf("demo reservations = %d, want %d", got, len(demoBookings))
	}

	t.Run("secondRunSkipsTakenSlots", func(t *testing.T) {
		if err := SeedDemoStore(ctx, store, checkout.DefaultConfig(), time.Now(), nil); err != nil {
			t.Fatalf("second SeedDemoStore() error = %v", err)
		}
		if got := demoReservations(t, store); got != len(demoBookings) {
			t.Errorf("demo reservations = %d, want %d", got, len(demoBookings))
		}
	})
}

func TestResetStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	if err := SeedDemoStore(ctx, store, checkout.DefaultConfig(), time.Now(), nil); err != nil {
		t.Fatalf("SeedDemoStore() error = %v", err)
	}
	if err := ResetStore(ctx, store); err != nil {
		t.Fatalf("ResetStore() error = %v", err)
	}

	tables, err := store.Repos().Tables.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(tables) != 0 {
		t.Errorf("tables after reset = %d, want 0", len(tables))
	}
}

type unknownStore struct {
	ledger.Store
}

func TestResetStoreRejectsUnknownBackend(t *testing.T) {
	if err := ResetStore(context.Background(), unknownStore{}); err == nil {
		t.Fatal("expected error for unknown store")
	}
}

func TestSweepStore(t *testing.T) {
	ctx := context.Background()

	t.Run("requiresGateway", func(t *testing.T) {
		_, err := SweepStore(ctx, memory.NewStore(), nil, nil, reconcile.SweeperConfig{}, nil)
		if err == nil {
			t.Fatal("expected error without gateway")
		}
	})

	t.Run("settlesStaleOrder", func(t *testing.T) {
		store := memory.NewStore()

		order := ledger.NewOrder()
		order.OrderType = ordertype.Types.Takeaway.Code()
		order.TotalAmount = 20000
		order.CustomerName = "Dana Lee"
		order.CustomerEmail = "dana@example.com"
		order.BeforeCreate()
		order.CreatedAt = time.Now().Add(-time.Hour)
		if err := store.Repos().Orders.Create(ctx, order); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		gw := &stubGateway{StatusFunc: func(ctx context.Context, reference string) (*gateway.Status, error) {
			return &gateway.Status{
				Reference:         reference,
				TransactionID:     "trx-sweep-1",
				TransactionStatus: "settlement",
				GrossAmount:       "20000.00",
				PaymentType:       "qris",
				StatusCode:        "200",
			}, nil
		}}

		cfg := reconcile.SweeperConfig{StaleAfter: time.Minute}
		report, err := SweepStore(ctx, store, gw, nil, cfg, nil)
		if err != nil {
			t.Fatalf("SweepStore() error = %v", err)
		}
		if report.Reconciled != 1 {
			t.Errorf("reconciled = %d, want 1", report.Reconciled)
		}

		got, _ := store.Repos().Orders.Get(ctx, order.ID)
		if got.Status != orderstatus.Statuses.Processing.Code() {
			t.Errorf("order status = %q, want %q", got.Status, orderstatus.Statuses.Processing.Code())
		}
	})
}
