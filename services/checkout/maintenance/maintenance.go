// Package maintenance exposes checkout storage and payment housekeeping to
// the service binary and to the operator CLI.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aquamarinepk/aqm"

	"github.com/appetiteclub/dineflow/pkg"
	"github.com/appetiteclub/dineflow/services/checkout/internal/checkout"
	"github.com/appetiteclub/dineflow/services/checkout/internal/gateway"
	"github.com/appetiteclub/dineflow/services/checkout/internal/ledger"
	"github.com/appetiteclub/dineflow/services/checkout/internal/memory"
	"github.com/appetiteclub/dineflow/services/checkout/internal/mongo"
	"github.com/appetiteclub/dineflow/services/checkout/internal/notify"
	"github.com/appetiteclub/dineflow/services/checkout/internal/postgres"
	"github.com/appetiteclub/dineflow/services/checkout/internal/reconcile"
	"github.com/appetiteclub/dineflow/services/checkout/internal/seeding"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// StopFunc releases whatever OpenStore acquired.
type StopFunc func(ctx context.Context) error

func noop(context.Context) error { return nil }

// OpenStore starts the backend selected by db.driver.
func OpenStore(ctx context.Context, config *aqm.Config, logger aqm.Logger) (ledger.Store, StopFunc, error) {
	driver := config.GetStringOrDef("db.driver", DriverMongo)

	switch driver {
	case DriverMongo:
		s := mongo.NewStore(config, logger)
		if err := s.Start(ctx); err != nil {
			return nil, nil, err
		}
		return s, s.Stop, nil
	case DriverPostgres:
		s := postgres.NewStore(config, logger)
		if err := s.Start(ctx); err != nil {
			return nil, nil, err
		}
		return s, s.Stop, nil
	case DriverMemory:
		logger.Info("Using in-memory store, data is lost on restart")
		return memory.NewStore(), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown db.driver %q", driver)
	}
}

// Migrate applies pending PostgreSQL migrations.
func Migrate(ctx context.Context, config *aqm.Config, logger aqm.Logger) error {
	db := postgres.NewDB(config, logger)
	if err := db.Start(ctx); err != nil {
		return err
	}
	defer db.Stop(ctx)

	return db.RunMigrations(ctx)
}

// Reset empties the configured store. PostgreSQL gets a fresh schema.
func Reset(ctx context.Context, config *aqm.Config, logger aqm.Logger) error {
	store, stop, err := OpenStore(ctx, config, logger)
	if err != nil {
		return err
	}
	defer stop(ctx)

	return ResetStore(ctx, store)
}

func ResetStore(ctx context.Context, store ledger.Store) error {
	switch s := store.(type) {
	case *mongo.Store:
		if err := s.Drop(ctx); err != nil {
			return err
		}
		return s.EnsureIndexes(ctx)
	case *postgres.Store:
		if err := s.ResetSchema(ctx); err != nil {
			return err
		}
		return s.RunMigrations(ctx)
	case *memory.Store:
		s.Reset()
		return nil
	default:
		return fmt.Errorf("cannot reset store of type %T", store)
	}
}

// SeedDemo applies the reference seeds and books demo reservations.
func SeedDemo(ctx context.Context, config *aqm.Config, logger aqm.Logger) error {
	cfg, err := checkout.ConfigFrom(config)
	if err != nil {
		return err
	}

	store, stop, err := OpenStore(ctx, config, logger)
	if err != nil {
		return err
	}
	defer stop(ctx)

	return SeedDemoStore(ctx, store, cfg, time.Now(), logger)
}

type demoBooking struct {
	table     string
	clock     string
	partySize int
	name      string
	email     string
}

var demoBookings = []demoBooking{
	{table: "T03", clock: "19:00", partySize: 4, name: "Ayu Lestari", email: "ayu@example.com"},
	{table: "T06", clock: "20:00", partySize: 6, name: "Budi Santoso", email: "budi@example.com"},
}

// SeedDemoStore books demo reservations for the day after now. Bookings whose
// slot is already taken are skipped, so running it twice is harmless.
func SeedDemoStore(ctx context.Context, store ledger.Store, cfg checkout.Config, now time.Time, logger aqm.Logger) error {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}

	if err := seeding.Apply(ctx, store, logger); err != nil {
		return fmt.Errorf("apply seeds: %w", err)
	}

	orchestrator := checkout.NewOrchestrator(store, nil, nil, cfg, logger)
	date := now.In(cfg.Location).AddDate(0, 0, 1).Format(ledger.DateLayout)

	for _, b := range demoBookings {
		table, err := store.Repos().Tables.GetByNumber(ctx, b.table)
		if err != nil {
			return fmt.Errorf("lookup table %s: %w", b.table, err)
		}
		if table == nil {
			logger.Info("Demo table missing, skipping", "table", b.table)
			continue
		}

		res, err := orchestrator.ReserveDirect(ctx, checkout.BookingRequest{
			Customer:  checkout.Customer{Name: b.name, Email: b.email},
			Date:      date,
			Time:      b.clock,
			PartySize: b.partySize,
			TableID:   &table.ID,
		})
		if err != nil {
			if ledger.IsConflict(err) {
				logger.Info("Demo reservation already present", "table", b.table, "date", date)
				continue
			}
			return fmt.Errorf("reserve demo table %s: %w", b.table, err)
		}
		logger.Info("Demo reservation created", "table", b.table, "reservation_id", res.ID.String())
	}

	return nil
}

// Sweep runs one stale payment sweep against the gateway.
func Sweep(ctx context.Context, config *aqm.Config, logger aqm.Logger) (reconcile.SweepReport, error) {
	store, stop, err := OpenStore(ctx, config, logger)
	if err != nil {
		return reconcile.SweepReport{}, err
	}
	defer stop(ctx)

	gw, err := gateway.NewMidtransFromConfig(config, logger)
	if err != nil {
		return reconcile.SweepReport{}, err
	}

	var notifier *notify.Notifier
	if config.GetStringOrDef("nats.enabled", "true") == "true" {
		pub, err := pkg.NewNATSPublisher(config.GetStringOrDef("nats.url", "nats://localhost:4222"))
		if err != nil {
			logger.Info("Sweeping without events", "error", err)
		} else {
			defer pub.Close()
			notifier = notify.NewNotifier(pub, nil, nil, logger)
		}
	}

	return SweepStore(ctx, store, gw, notifier, reconcile.SweeperConfigFrom(config), logger)
}

func SweepStore(ctx context.Context, store ledger.Store, gw gateway.Gateway, notifier *notify.Notifier, cfg reconcile.SweeperConfig, logger aqm.Logger) (reconcile.SweepReport, error) {
	if gw == nil {
		return reconcile.SweepReport{}, errors.New("gateway is required")
	}
	reconciler := reconcile.NewReconciler(store, notifier, reconcile.NewAuditLogger(logger), logger)
	return reconcile.NewSweeper(store, gw, reconciler, cfg, logger).SweepOnce(ctx)
}
