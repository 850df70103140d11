package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vaidashi/courier-ledger/internal/config"
	"github.com/vaidashi/courier-ledger/internal/directory"
	"github.com/vaidashi/courier-ledger/internal/ledger"
	"github.com/vaidashi/courier-ledger/internal/models"
	"github.com/vaidashi/courier-ledger/internal/ops"
	"github.com/vaidashi/courier-ledger/internal/relay"
	"github.com/vaidashi/courier-ledger/internal/returns"
	"github.com/vaidashi/courier-ledger/internal/settlement"
	"github.com/vaidashi/courier-ledger/internal/store"
	"github.com/vaidashi/courier-ledger/pkg/kafka"
	"github.com/vaidashi/courier-ledger/pkg/logger"
)

func main() {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg, err := config.Load()

	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.NewLogger(cfg.LogLevel)
	l.Info("Starting courier ledger daemon", "env", cfg.Env)

	journal := relay.NewJournal()
	ldgr := ledger.New(cfg.Ledger, journal, l)
	settlementEngine := settlement.NewEngine(ldgr, l)
	returnsEngine := returns.NewEngine(ldgr, l)

	var st *store.Store

	if cfg.DB.Enabled {
		st, err = store.New(cfg, l)

		if err != nil {
			l.Error("Failed to open snapshot store", "error", err)
			os.Exit(1)
		}
		defer st.Close()

		if err := st.RunMigrations(); err != nil {
			l.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		orders, err := st.LoadOrders(ctx)
		cancel()

		if err == nil {
			err = ldgr.SetAll(orders)
		}

		if err != nil {
			l.Error("Failed to restore ledger from snapshot", "error", err)
			os.Exit(1)
		}

		restoreSlips(st, returnsEngine, l)

		l.Info("Ledger restored from snapshot", "orders", ldgr.Count())
	}

	var eventRelay *relay.Relay

	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, l)

		if err != nil {
			l.Error("Failed to create Kafka producer", "error", err)
			os.Exit(1)
		}
		defer producer.Close()

		publisher := relay.NewKafkaPublisher(producer, cfg.Kafka.Topic, l)
		eventRelay = relay.New(journal, publisher, relay.Config{
			PollingInterval: cfg.Relay.PollingInterval,
			BatchSize:       cfg.Relay.BatchSize,
			MaxAttempts:     cfg.Relay.MaxAttempts,
		}, l)
		eventRelay.Start()
		defer eventRelay.Stop()
	}

	dir := loadDirectory(cfg.UsersFile, l)

	for _, name := range dir.DriverNames() {
		held := returnsEngine.OrdersWithDriver(name)

		if len(held) > 0 {
			l.Info("Driver holds returnable merchandise", "driver", name, "orders", len(held))
		}
	}

	for _, report := range settlementEngine.AllReports() {
		if report.OutstandingAmount.IsPositive() {
			l.Info("Driver has outstanding COD",
				"driver", report.DriverName,
				"outstanding", report.OutstandingAmount,
				"pending_collection", report.PendingCollection)
		}
	}

	server := ops.NewServer(cfg.OpsPort, ldgr, journal, st, l)

	go func() {
		l.Info("Ops server starting", "port", cfg.OpsPort)

		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			l.Error("Failed to start ops server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	l.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		l.Error("Ops server forced to shutdown", "error", err)
	}

	if st != nil {
		if err := st.SaveOrders(ctx, ldgr.Snapshot()); err != nil {
			l.Error("Failed to save final snapshot", "error", err)
		}

		saveSlips(ctx, st, settlementEngine, returnsEngine, l)
	}

	l.Info("Daemon exiting")
}

// loadDirectory reads the externally-owned user list, if configured. The
// directory is advisory; a missing or broken file never stops the daemon.
func loadDirectory(path string, l logger.Logger) *directory.Directory {
	if path == "" {
		return directory.New(nil)
	}

	data, err := os.ReadFile(path)

	if err != nil {
		l.Warn("Failed to read users file", "error", err, "path", path)
		return directory.New(nil)
	}

	var users []models.User

	if err := json.Unmarshal(data, &users); err != nil {
		l.Warn("Failed to parse users file", "error", err, "path", path)
		return directory.New(nil)
	}

	l.Info("User directory loaded",
		"users", len(users), "path", path)

	return directory.New(users)
}

func saveSlips(ctx context.Context, st *store.Store, settlementEngine *settlement.Engine, returnsEngine *returns.Engine, l logger.Logger) {
	for _, slip := range settlementEngine.Slips() {
		if err := st.SaveCollectionSlip(ctx, slip); err != nil {
			l.Error("Failed to save collection slip", "error", err, "slip_id", slip.ID)
		}
	}

	for _, slip := range returnsEngine.DriverReturnSlips() {
		if err := st.SaveDriverReturnSlip(ctx, slip); err != nil {
			l.Error("Failed to save driver return slip", "error", err, "slip_id", slip.ID)
		}
	}

	for _, slip := range returnsEngine.MerchantSlips(returns.SlipFilter{}) {
		if err := st.SaveMerchantSlip(ctx, slip); err != nil {
			l.Error("Failed to save merchant slip", "error", err, "slip_id", slip.ID)
		}
	}
}

func restoreSlips(st *store.Store, returnsEngine *returns.Engine, l logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	slips, err := st.LoadMerchantSlips(ctx)

	if err != nil {
		l.Warn("Failed to restore merchant slips", "error", err)
		return
	}

	returnsEngine.RestoreMerchantSlips(slips)
	l.Info("Merchant slips restored", "count", len(slips))
}
