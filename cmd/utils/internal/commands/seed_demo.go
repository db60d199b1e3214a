package commands

import (
	"context"
	"fmt"

	"github.com/aquamarinepk/aqm"

	"github.com/appetiteclub/dineflow/services/checkout/maintenance"
)

// SeedDemo applies the reference seeds and books demo reservations.
func SeedDemo(ctx context.Context, config *aqm.Config, logger aqm.Logger) error {
	logger.Info("Starting demo seeding process...")

	if err := maintenance.SeedDemo(ctx, config, logger); err != nil {
		return fmt.Errorf("seed demo: %w", err)
	}
	return nil
}

// Sweep reconciles stale pending checkouts once and logs the report.
func Sweep(ctx context.Context, config *aqm.Config, logger aqm.Logger) error {
	report, err := maintenance.Sweep(ctx, config, logger)
	if err != nil {
		return err
	}

	logger.Info("Sweep finished",
		"checked", report.Checked,
		"reconciled", report.Reconciled,
		"expired", report.Expired,
		"failed", report.Failed,
	)
	return nil
}
