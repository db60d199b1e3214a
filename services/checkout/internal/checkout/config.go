package checkout

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/appetiteclub/dineflow/services/checkout/internal/availability"
	"github.com/appetiteclub/dineflow/services/checkout/internal/gateway"
	"github.com/aquamarinepk/aqm"
)

const (
	DefaultBookingFee  int64 = 50000
	DefaultOpenAt            = 10 * time.Hour
	DefaultCloseAt           = 22 * time.Hour
	DefaultMinLead           = 2 * time.Hour
	DefaultDeliveryETA       = 45 * time.Minute
)

type Config struct {
	BookingFee  int64
	OpenAt      time.Duration // offset from local midnight
	CloseAt     time.Duration
	MinLead     time.Duration
	Window      time.Duration
	Location    *time.Location
	DeliveryETA time.Duration
	Callbacks   gateway.Callbacks
}

func DefaultConfig() Config {
	return Config{
		BookingFee:  DefaultBookingFee,
		OpenAt:      DefaultOpenAt,
		CloseAt:     DefaultCloseAt,
		MinLead:     DefaultMinLead,
		Window:      availability.DefaultWindow,
		Location:    time.UTC,
		DeliveryETA: DefaultDeliveryETA,
	}
}

// ConfigFrom reads checkout settings, falling back to defaults for unset keys.
func ConfigFrom(config *aqm.Config) (Config, error) {
	cfg := DefaultConfig()

	if v, _ := config.GetString("booking.fee"); v != "" {
		fee, err := strconv.ParseInt(v, 10, 64)
		if err != nil || fee <= 0 {
			return cfg, fmt.Errorf("invalid booking.fee %q", v)
		}
		cfg.BookingFee = fee
	}

	var err error
	if cfg.OpenAt, err = clockOffset(config.GetStringOrDef("booking.open", "10:00")); err != nil {
		return cfg, fmt.Errorf("invalid booking.open: %w", err)
	}
	if cfg.CloseAt, err = clockOffset(config.GetStringOrDef("booking.close", "22:00")); err != nil {
		return cfg, fmt.Errorf("invalid booking.close: %w", err)
	}
	if cfg.OpenAt > cfg.CloseAt {
		return cfg, fmt.Errorf("booking.open is after booking.close")
	}

	cfg.MinLead = durationOrDef(config, "booking.min_lead", DefaultMinLead)
	cfg.Window = durationOrDef(config, "booking.window", availability.DefaultWindow)
	cfg.DeliveryETA = durationOrDef(config, "delivery.eta", DefaultDeliveryETA)

	tz := config.GetStringOrDef("app.timezone", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return cfg, fmt.Errorf("invalid app.timezone %q: %w", tz, err)
	}
	cfg.Location = loc

	cfg.Callbacks = gateway.Callbacks{
		Finish: config.GetStringOrDef("checkout.finish_url", ""),
		Error:  config.GetStringOrDef("checkout.error_url", ""),
		Cancel: config.GetStringOrDef("checkout.cancel_url", ""),
	}

	return cfg, nil
}

func clockOffset(v string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(v))
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func durationOrDef(config *aqm.Config, key string, def time.Duration) time.Duration {
	v, _ := config.GetString(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
