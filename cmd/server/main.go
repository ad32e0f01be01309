// Package main runs the policy-gated ledger as an HTTP service:
// - Transfer execution and allowance management
// - Owner-gated policy administration
// - Journal queries, websocket event feed, Prometheus metrics
// - Scheduled conservation audits
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"tokengate/internal/audit"
	"tokengate/internal/config"
	"tokengate/internal/events"
	"tokengate/internal/guard"
	"tokengate/internal/journal"
	chstore "tokengate/internal/journal/clickhouse"
	"tokengate/internal/journal/memory"
	"tokengate/internal/journal/migrations"
	pgstore "tokengate/internal/journal/postgres"
	sqlitestore "tokengate/internal/journal/sqlite"
	"tokengate/internal/ledger"
	"tokengate/internal/observability"
	"tokengate/internal/orchestrator"
	"tokengate/internal/policy"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration")
	listen := flag.String("listen", "", "HTTP listen address (overrides config)")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if *listen != "" {
		cfg.Server.Listen = *listen
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics(cfg.Server.MetricsNamespace)

	hub := events.NewHub(&events.HubConfig{
		WriteTimeout: 10 * time.Second,
		SendBuffer:   cfg.Server.WSSendBuffer,
	})
	defer hub.Close()

	transfers, changes, cleanup, err := createStores(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to create journal stores: %v", err)
	}
	defer cleanup()

	opts, err := cfg.PolicyOptions()
	if err != nil {
		logger.Fatalf("Invalid policy config: %v", err)
	}
	opts.Sink = events.Multi{hub, metricsSink{metrics}}

	genesis, err := cfg.GenesisBalances()
	if err != nil {
		logger.Fatalf("Invalid genesis config: %v", err)
	}

	led := ledger.NewMemory(genesis)
	reg := policy.NewRegistry(opts)
	pause := policy.NewPauseSwitch(opts.Owner, opts.Sink)

	var reflector orchestrator.Reflector
	if pool, err := cfg.ReflectionPool(); err != nil {
		logger.Fatalf("Invalid reflection pool: %v", err)
	} else if !pool.IsZero() {
		reflector = orchestrator.NewPoolReflector(pool)
	}

	orch := orchestrator.New(orchestrator.Options{
		Ledger:    led,
		Policy:    reg,
		Guard:     guard.New(reg, led, nil),
		Gate:      pause,
		Sink:      opts.Sink,
		Transfers: transfers,
		Reflector: reflector,
		Metrics:   metrics,
	})
	auditor := audit.New(led, metrics, nil)
	if reg.Trading().Enabled {
		metrics.TradingEnabled.Set(1)
	}

	server := &Server{
		ledger:    led,
		registry:  reg,
		pause:     pause,
		orch:      orch,
		auditor:   auditor,
		hub:       hub,
		metrics:   metrics,
		transfers: transfers,
		changes:   changes,
		logger:    logger,
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Audit.Cron, func() {
		if _, err := auditor.Check(ctx); err != nil {
			logger.Printf("Scheduled audit failed: %v", err)
		}
	}); err != nil {
		logger.Fatalf("Invalid audit cron spec %q: %v", cfg.Audit.Cron, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	httpServer := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      server.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	done := make(chan error, 1)
	go func() {
		logger.Printf("Listening on %s", cfg.Server.Listen)
		done <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Printf("Received signal %v, shutting down...", sig)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Shutdown error: %v", err)
		}
	case err := <-done:
		if err != nil && err != http.ErrServerClosed {
			logger.Fatalf("HTTP server error: %v", err)
		}
	}

	cancel()
	logger.Println("Shutdown complete")
}

// createStores builds the journal backends from config. The optional
// ClickHouse DSN mirrors transfer records for analytics on top of the
// primary backend.
func createStores(ctx context.Context, cfg *config.Config) (journal.TransferStore, journal.PolicyChangeStore, func(), error) {
	var (
		transfers journal.TransferStore
		changes   journal.PolicyChangeStore
		cleanups  []func()
	)
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	switch cfg.Journal.Backend {
	case "memory":
		transfers = memory.NewTransferStore()
		changes = memory.NewPolicyChangeStore()
	case "sqlite":
		db, err := sqlitestore.Open(cfg.Journal.SQLitePath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open sqlite journal: %w", err)
		}
		cleanups = append(cleanups, func() { db.Close() })
		transfers = sqlitestore.NewTransferStore(db)
		changes = sqlitestore.NewPolicyChangeStore(db)
	case "postgres":
		pool, err := pgstore.NewPool(ctx, cfg.Journal.PostgresDSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		cleanups = append(cleanups, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			cleanup()
			return nil, nil, nil, fmt.Errorf("run postgres migrations: %w", err)
		}
		transfers = pgstore.NewTransferStore(pool)
		changes = pgstore.NewPolicyChangeStore(pool)
	default:
		return nil, nil, nil, fmt.Errorf("unknown journal backend %q", cfg.Journal.Backend)
	}

	if cfg.Journal.ClickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, cfg.Journal.ClickhouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		cleanups = append(cleanups, func() { conn.Close() })
		if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
			cleanup()
			return nil, nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
		}
		transfers = journal.NewMultiTransferStore(transfers, chstore.NewTransferStore(conn))
	}

	return transfers, changes, cleanup, nil
}

// metricsSink bumps event counters and state gauges as notifications flow.
type metricsSink struct {
	m *observability.Metrics
}

func (s metricsSink) Emit(e events.Event) {
	s.m.EventsEmitted.WithLabelValues(string(e.Kind)).Inc()
	switch p := e.Payload.(type) {
	case events.TradingEnabled:
		s.m.TradingEnabled.Set(1)
	case events.PauseChanged:
		if p.Paused {
			s.m.TransfersPaused.Set(1)
		} else {
			s.m.TransfersPaused.Set(0)
		}
	}
}
