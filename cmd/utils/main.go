package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aquamarinepk/aqm"

	"github.com/appetiteclub/dineflow/cmd/utils/internal/commands"
)

const (
	appName    = "dineflow-utils"
	appVersion = "0.1.0"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	config, err := aqm.LoadConfig("UTILS", os.Args[2:])
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	logLevel, _ := config.GetString("log.level")
	if logLevel == "" {
		logLevel = "info"
	}
	logger := aqm.NewLogger(logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := os.Args[1]

	switch command {
	case "migrate":
		if err := commands.Migrate(ctx, config, logger); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		logger.Info("Migrations applied")

	case "seed-demo":
		if err := commands.SeedDemo(ctx, config, logger); err != nil {
			log.Fatalf("Demo seeding failed: %v", err)
		}
		logger.Info("Demo seeding completed")

	case "reset-db":
		if err := commands.ResetDB(ctx, config, logger); err != nil {
			log.Fatalf("Database reset failed: %v", err)
		}
		logger.Info("Database reset completed")

	case "sweep":
		if err := commands.Sweep(ctx, config, logger); err != nil {
			log.Fatalf("Sweep failed: %v", err)
		}

	case "watch":
		if err := commands.Watch(ctx, config, os.Stdout, logger); err != nil {
			log.Fatalf("Watch failed: %v", err)
		}

	case "version":
		fmt.Printf("%s version %s\n", appName, appVersion)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - Dineflow utility commands

Usage:
  %s <command> [options]

Commands:
  migrate      Apply pending PostgreSQL migrations
  seed-demo    Seed tables, menu and discounts, and book demo reservations for tomorrow
  reset-db     Drop all checkout data (USE WITH CAUTION)
  sweep        Reconcile stale pending payments against the gateway once
  watch        Print payment, table and order events as they are published
  version      Print version information
  help         Show this help message

Environment Variables:
  UTILS_DB_DRIVER            mongo, postgres or memory (default: mongo)
  UTILS_DB_MONGO_URL         MongoDB connection URL (default: mongodb://localhost:27017)
  UTILS_DB_POSTGRES_URL      PostgreSQL connection URL
  UTILS_NATS_URL             NATS server URL (default: nats://localhost:4222)
  UTILS_GATEWAY_SERVER_KEY   Midtrans server key (sweep only)
  UTILS_LOG_LEVEL            Log level: debug, info, warn, error (default: info)

Examples:
  UTILS_DB_DRIVER=postgres %s migrate
  %s seed-demo
  UTILS_GATEWAY_SERVER_KEY=SB-Mid-server-xxx %s sweep

`, appName, appName, appName, appName, appName)
}
