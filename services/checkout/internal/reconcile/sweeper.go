package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/appetiteclub/dineflow/services/checkout/internal/gateway"
	"github.com/appetiteclub/dineflow/services/checkout/internal/ledger"
	"github.com/aquamarinepk/aqm"
)

const (
	DefaultSweepInterval = 5 * time.Minute
	DefaultStaleAfter    = 15 * time.Minute
	DefaultExpireAfter   = 24 * time.Hour
)

type SweeperConfig struct {
	Interval    time.Duration
	StaleAfter  time.Duration
	ExpireAfter time.Duration
}

func SweeperConfigFrom(config *aqm.Config) SweeperConfig {
	cfg := SweeperConfig{
		Interval:    DefaultSweepInterval,
		StaleAfter:  DefaultStaleAfter,
		ExpireAfter: DefaultExpireAfter,
	}
	if config == nil {
		return cfg
	}
	cfg.Interval = durationOrDef(config, "sweeper.interval", cfg.Interval)
	cfg.StaleAfter = durationOrDef(config, "sweeper.stale_after", cfg.StaleAfter)
	cfg.ExpireAfter = durationOrDef(config, "sweeper.expire_after", cfg.ExpireAfter)
	return cfg
}

func durationOrDef(config *aqm.Config, key string, def time.Duration) time.Duration {
	raw, _ := config.GetString(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// SweepReport summarizes one sweep.
type SweepReport struct {
	Checked    int `json:"checked"`
	Reconciled int `json:"reconciled"`
	Expired    int `json:"expired"`
	Failed     int `json:"failed"`
}

// Sweeper asks the gateway about checkouts still pending after StaleAfter,
// covering notifications that never arrived. Checkouts the gateway does not
// know about are cancelled once older than ExpireAfter.
type Sweeper struct {
	store      ledger.Store
	gateway    gateway.Gateway
	reconciler *Reconciler
	cfg        SweeperConfig
	logger     aqm.Logger
	now        func() time.Time

	mu   sync.Mutex
	done chan struct{}
	wg   sync.WaitGroup
}

func NewSweeper(store ledger.Store, gw gateway.Gateway, reconciler *Reconciler, cfg SweeperConfig, logger aqm.Logger) *Sweeper {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSweepInterval
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	if cfg.ExpireAfter <= 0 {
		cfg.ExpireAfter = DefaultExpireAfter
	}
	return &Sweeper{
		store:      store,
		gateway:    gw,
		reconciler: reconciler,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return nil
	}
	s.done = make(chan struct{})

	s.wg.Add(1)
	go s.loop(s.done)

	s.logger.Info("payment sweeper started", "interval", s.cfg.Interval.String())
	return nil
}

func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.done = nil
	s.mu.Unlock()

	if done == nil {
		return nil
	}
	close(done)
	s.wg.Wait()
	return nil
}

func (s *Sweeper) loop(done chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Interval)
			report, err := s.SweepOnce(ctx)
			cancel()
			if err != nil {
				s.logger.Error("payment sweep failed", "error", err)
				continue
			}
			if report.Checked > 0 {
				s.logger.Info("payment sweep finished",
					"checked", report.Checked,
					"reconciled", report.Reconciled,
					"expired", report.Expired,
					"failed", report.Failed,
				)
			}
		}
	}
}

type staleCheckout struct {
	ref       ledger.Reference
	createdAt time.Time
}

// SweepOnce runs a single pass over stale pending orders and reservations.
func (s *Sweeper) SweepOnce(ctx context.Context) (SweepReport, error) {
	var report SweepReport

	stale, err := s.staleCheckouts(ctx)
	if err != nil {
		return report, err
	}

	now := s.now()
	for _, c := range stale {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++

		status, err := s.gateway.TransactionStatus(ctx, c.ref.String())
		switch {
		case errors.Is(err, gateway.ErrTransactionNotFound):
			if now.Sub(c.createdAt) < s.cfg.ExpireAfter {
				continue
			}
			if _, err := s.reconciler.CancelPending(ctx, c.ref, "payment expired"); err != nil {
				s.logger.Error("cannot expire checkout", "reference", c.ref.String(), "error", err)
				report.Failed++
				continue
			}
			report.Expired++

		case err != nil:
			s.logger.Error("cannot fetch transaction status", "reference", c.ref.String(), "error", err)
			report.Failed++

		default:
			n := NotificationFromStatus(status)
			n.OrderID = c.ref.String()
			if Classify(n.TransactionStatus) == BucketUnknown || n.TransactionID == "" {
				continue
			}
			if _, err := s.reconciler.Reconcile(ctx, n); err != nil {
				s.logger.Error("cannot reconcile checkout", "reference", c.ref.String(), "error", err)
				report.Failed++
				continue
			}
			report.Reconciled++
		}
	}

	return report, nil
}

func (s *Sweeper) staleCheckouts(ctx context.Context) ([]staleCheckout, error) {
	repos := s.store.Repos()
	cutoff := s.now().Add(-s.cfg.StaleAfter)

	orders, err := repos.Orders.ListPendingBefore(ctx, cutoff)
	if err != nil {
		return nil, ledger.NewReconciliationError("cannot list pending orders", err)
	}
	reservations, err := repos.Reservations.ListPendingBefore(ctx, cutoff)
	if err != nil {
		return nil, ledger.NewReconciliationError("cannot list pending reservations", err)
	}

	stale := make([]staleCheckout, 0, len(orders)+len(reservations))
	for _, o := range orders {
		stale = append(stale, staleCheckout{ref: o.Reference(), createdAt: o.CreatedAt})
	}
	for _, r := range reservations {
		stale = append(stale, staleCheckout{ref: r.Reference(), createdAt: r.CreatedAt})
	}
	return stale, nil
}
