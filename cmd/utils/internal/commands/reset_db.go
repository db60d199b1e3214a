package commands

import (
	"context"

	"github.com/aquamarinepk/aqm"

	"github.com/appetiteclub/dineflow/services/checkout/maintenance"
)

// ResetDB drops every checkout collection or table - USE WITH CAUTION
func ResetDB(ctx context.Context, config *aqm.Config, logger aqm.Logger) error {
	driver := config.GetStringOrDef("db.driver", maintenance.DriverMongo)
	logger.Infof("DANGER: this drops all checkout data in the %s store", driver)
	logger.Infof("This action cannot be undone")

	return maintenance.Reset(ctx, config, logger)
}

// Migrate applies pending PostgreSQL migrations.
func Migrate(ctx context.Context, config *aqm.Config, logger aqm.Logger) error {
	logger.Info("Applying migrations")
	return maintenance.Migrate(ctx, config, logger)
}
