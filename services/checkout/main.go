package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
	"github.com/aquamarinepk/aqm/middleware"

	"github.com/appetiteclub/dineflow/pkg"
	"github.com/appetiteclub/dineflow/pkg/event"
	"github.com/appetiteclub/dineflow/services/checkout/internal/checkout"
	"github.com/appetiteclub/dineflow/services/checkout/internal/gateway"
	"github.com/appetiteclub/dineflow/services/checkout/internal/notify"
	"github.com/appetiteclub/dineflow/services/checkout/internal/reconcile"
	"github.com/appetiteclub/dineflow/services/checkout/internal/seeding"
	"github.com/appetiteclub/dineflow/services/checkout/internal/session"
	"github.com/appetiteclub/dineflow/services/checkout/maintenance"
)

const (
	appNamespace = "CHECKOUT"
	appName      = "checkout"
	appVersion   = "0.1.0"
)

func main() {
	config, err := aqm.LoadConfig(appNamespace, os.Args[1:])
	if err != nil {
		log.Fatalf("%s(%s) cannot setup: %v", appName, appVersion, err)
	}

	logLevel, _ := config.GetString("log.level")
	logger := aqm.NewLogger(logLevel)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer stop()

	seedCtx, cancelSeeds := context.WithCancel(ctx)
	defer cancelSeeds()

	store, stopStore, err := maintenance.OpenStore(ctx, config, logger)
	if err != nil {
		log.Fatalf("%s(%s) cannot start store: %v", appName, appVersion, err)
	}

	var (
		publisher  events.Publisher
		stream     events.Publisher
		natsStream *pkg.NATSStream
		lifecycles []interface{}
	)

	if config.GetStringOrDef("nats.enabled", "true") == "true" {
		natsURL := config.GetStringOrDef("nats.url", "nats://localhost:4222")

		pub, err := pkg.NewNATSPublisher(natsURL)
		if err != nil {
			log.Fatalf("%s(%s) cannot connect to NATS publisher: %v", appName, appVersion, err)
		}
		publisher = pub
		lifecycles = append(lifecycles, aqm.LifecycleHooks{
			OnStop: func(context.Context) error {
				return pub.Close()
			},
		})

		natsStream, err = pkg.NewNATSStream(ctx, pkg.NATSStreamConfig{
			URL:          natsURL,
			StreamName:   event.PaymentStreamName,
			Topic:        event.PaymentStatusTopic,
			ConsumerName: appName + "-grpc",
			MaxAge:       24 * time.Hour,
		}, logger)
		if err != nil {
			log.Fatalf("%s(%s) cannot create payment stream: %v", appName, appVersion, err)
		}
		stream = natsStream
	}

	paymentEvents := reconcile.NewPaymentEventStreamServer(natsStream, logger)

	var broadcaster notify.Broadcaster
	if natsStream == nil {
		broadcaster = paymentEvents
	}
	notifier := notify.NewNotifier(publisher, stream, broadcaster, logger)

	gw, err := gateway.NewMidtransFromConfig(config, logger)
	if err != nil {
		log.Fatalf("%s(%s) cannot create payment gateway: %v", appName, appVersion, err)
	}

	checkoutCfg, err := checkout.ConfigFrom(config)
	if err != nil {
		log.Fatalf("%s(%s) invalid checkout config: %v", appName, appVersion, err)
	}

	sessions := session.NewStore(durationOrDef(config, "session.ttl", time.Hour))

	orchestrator := checkout.NewOrchestrator(store, gw, notifier, checkoutCfg, logger)
	audit := reconcile.NewAuditLogger(logger)
	reconciler := reconcile.NewReconciler(store, notifier, audit, logger)
	sweeper := reconcile.NewSweeper(store, gw, reconciler, reconcile.SweeperConfigFrom(config), logger)

	checkoutHandler := checkout.NewHandler(checkout.HandlerDeps{
		Orchestrator: orchestrator,
		Repos:        store.Repos(),
		Sessions:     sessions,
	}, config, logger)

	serverKey, _ := config.GetString("gateway.server_key")
	reconcileHandler := reconcile.NewHandler(reconcile.HandlerDeps{
		Reconciler:      reconciler,
		Gateway:         gw,
		Sessions:        sessions,
		Audit:           audit,
		ServerKey:       serverKey,
		VerifySignature: config.GetStringOrDef("gateway.verify_signature", "true") != "false",
	}, config, logger)

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger:      logger,
		DisableCORS: true,
	})

	lifecycles = append(lifecycles,
		aqm.LifecycleHooks{OnStop: stopStore},
		sessions,
		paymentEvents,
		sweeper,
	)

	seedEnabled, _ := config.GetString("seeding.enabled")
	if seedEnabled == "true" {
		logger.Info("Seeding enabled for checkout service")
		lifecycles = append(lifecycles, aqm.LifecycleHooks{
			OnStart: seeding.SeedingFunc(seedCtx, store, logger),
			OnStop:  seeding.StopFunc(cancelSeeds),
		})
	}

	options := []aqm.Option{
		aqm.WithConfig(config),
		aqm.WithLogger(logger),
		aqm.WithHTTPMiddleware(stack...),
		aqm.WithHTTPServerModules("web.port", checkoutHandler, reconcileHandler),
		aqm.WithGRPCServerModules("grpc.port", paymentEvents),
		aqm.WithLifecycle(lifecycles...),
		aqm.WithHealthChecks(appName),
	}

	ms := aqm.NewMicro(options...)
	logger.Infof("Starting %s(%s)", appName, appVersion)

	err = ms.Run(ctx)
	if err != nil {
		_ = stopStore(context.Background())
		log.Fatalf("%s(%s) stopped: %v", appName, appVersion, err)
	}

	logger.Infof("%s(%s) stopped", appName, appVersion)
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
