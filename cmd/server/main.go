// Package main is the entry point for the matchsim server.  It wires the
// match simulation, the odds board, the bet ledger and the optional
// archive, cache and event stream, then serves the HTTP API and the
// WebSocket feed.
//
// `server hash-password <password>` prints a bcrypt hash for
// OPERATOR_PASSWORD_HASH and exits.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/evetabi/matchsim/internal/api"
	"github.com/evetabi/matchsim/internal/cache"
	"github.com/evetabi/matchsim/internal/config"
	"github.com/evetabi/matchsim/internal/events"
	"github.com/evetabi/matchsim/internal/formation"
	"github.com/evetabi/matchsim/internal/metrics"
	"github.com/evetabi/matchsim/internal/odds"
	"github.com/evetabi/matchsim/internal/repository"
	"github.com/evetabi/matchsim/internal/scheduler"
	"github.com/evetabi/matchsim/internal/service"
	"github.com/evetabi/matchsim/internal/stream"
	"github.com/evetabi/matchsim/internal/ws"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

func main() {
	if len(os.Args) == 3 && os.Args[1] == "hash-password" {
		hash, err := service.HashPassword(os.Args[2])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	// ── 1. Logger ─────────────────────────────────────────────────────────────
	cfg := config.MustLoad()

	var logHandler slog.Handler
	if cfg.IsProd() {
		logHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	logger.Info("starting matchsim server", "env", cfg.Server.Env, "port", cfg.Server.Port)

	// ── 2. Database (optional archive) ────────────────────────────────────────
	var db *sqlx.DB
	if cfg.ArchiveEnabled() {
		var err error
		db, err = sqlx.Connect("postgres", cfg.DB.DSN)
		if err != nil {
			logger.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
		db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)
		logger.Info("database connected")

		// ── 3. Migrations ─────────────────────────────────────────────────────
		if err = runMigrations(db, cfg.DB.MigrationsDir); err != nil {
			logger.Error("migrations failed", "err", err)
			os.Exit(1)
		}
		logger.Info("migrations applied")
	} else {
		logger.Warn("DATABASE_DSN not set, match and bet archive disabled")
	}

	// ── 4. Redis (optional cache) ─────────────────────────────────────────────
	var (
		oddsCache *cache.OddsCache
		simCache  *cache.SimCache
	)
	if cfg.Redis.Addr != "" {
		connectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rdb, err := cache.Connect(connectCtx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		cancel()
		if err != nil {
			logger.Error("redis connection failed", "addr", cfg.Redis.Addr, "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		oddsCache = cache.NewOddsCache(rdb, cfg.Redis.OddsChannel, cfg.Redis.OddsTTL)
		simCache = cache.NewSimCache(rdb, cfg.Redis.SimTTL)
		logger.Info("redis connected", "addr", cfg.Redis.Addr)
	}

	// ── 5. Formations & odds engine ───────────────────────────────────────────
	catalog := formation.Default()
	if cfg.Formations.File != "" {
		loaded, err := formation.LoadFile(catalog, cfg.Formations.File)
		if err != nil {
			logger.Error("formation catalog failed", "file", cfg.Formations.File, "err", err)
			os.Exit(1)
		}
		catalog = loaded
		logger.Info("formation catalog loaded", "file", cfg.Formations.File)
	}

	oddsOpts := odds.Options{
		Margin:   cfg.Odds.Margin,
		Ceiling:  cfg.Odds.Ceiling,
		MaxGoals: cfg.Odds.MaxGoals,
	}
	engine := odds.NewEngine(odds.DefaultPrior(), oddsOpts)

	// ── 6. Services (order matters for injection) ─────────────────────────────
	bus := events.NewBus(logger)
	collector := metrics.NewCollector(prometheus.DefaultRegisterer)

	oddsSvc := service.NewOddsService(engine, logger)
	oddsSvc.SetObserver(collector)

	betSvc := service.NewBetService(oddsSvc, decimal.NewFromFloat(cfg.Ledger.StartingBalance), logger)
	betSvc.SetMaxStake(decimal.NewFromFloat(cfg.Ledger.MaxStake))
	betSvc.SetObserver(collector)

	historySvc := service.NewHistoryService(logger)
	simSvc := service.NewSimulationService(catalog, oddsOpts, logger)
	operatorSvc := service.NewOperatorService(cfg)

	if db != nil {
		betSvc.SetArchive(repository.NewBetRepository(db))
		historySvc.SetArchive(repository.NewMatchRepository(db))
	}
	if oddsCache != nil {
		oddsSvc.SetCache(oddsCache)
		simSvc.SetCache(simCache)
	}

	seed := cfg.Sim.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	sched := scheduler.NewScheduler(cfg, logger)
	matchSvc := service.NewMatchService(
		catalog, bus, sched.Timers(),
		rand.New(rand.NewPCG(seed, seed>>1|1)),
		service.MatchOptionsFromConfig(cfg),
		logger,
	)
	matchSvc.SetTickObserver(collector)
	sched.SetMatch(matchSvc)
	logger.Info("simulation seeded", "seed", seed)

	// ── 7. WebSocket Hub ──────────────────────────────────────────────────────
	hub := ws.NewHub(cfg.Server.AllowedOrigins, logger)
	hub.SetWelcome(func() []any {
		return []any{
			ws.SnapshotMessage{Type: ws.MsgTypeSnapshot, Snapshot: sched.Snapshot()},
			ws.OddsMessage{Type: ws.MsgTypeOdds, Board: oddsSvc.Board()},
		}
	})
	oddsSvc.SetBroadcaster(hub)
	betSvc.SetBroadcaster(hub)
	sched.SetHub(hub)

	// ── 8. Bus subscribers ────────────────────────────────────────────────────
	// Delivery follows subscription order: the board reprices first.
	oddsSvc.Attach(bus)
	betSvc.Attach(bus)
	historySvc.Attach(bus)
	hub.Attach(bus)
	collector.Attach(bus)

	var publisher *stream.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = stream.NewPublisher(
			stream.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic),
			cfg.Kafka.BufferSize, logger,
		)
		publisher.Attach(bus)
		logger.Info("event stream enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	collector.RegisterGauge("ledger_balance", "Current bet ledger balance.", func() float64 {
		return betSvc.Balance().InexactFloat64()
	})
	collector.RegisterGauge("ws_clients", "Connected WebSocket clients.", func() float64 {
		return float64(hub.ConnectedCount())
	})
	if publisher != nil {
		collector.RegisterGauge("stream_dropped_events", "Events dropped by a full stream queue.", func() float64 {
			return float64(publisher.Dropped())
		})
	}

	// ── 9. Root context + signal handling ─────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go hub.Run()
	logger.Info("websocket hub started")

	streamCtx, stopStream := context.WithCancel(context.Background())
	defer stopStream()
	if publisher != nil {
		go publisher.Run(streamCtx)
	}

	// ── 10. Scheduler ─────────────────────────────────────────────────────────
	sched.Start(ctx)

	// ── 11. HTTP Router ───────────────────────────────────────────────────────
	router := api.SetupRouter(api.RouterDeps{
		Ctrl:        sched,
		OddsSvc:     oddsSvc,
		BetSvc:      betSvc,
		HistorySvc:  historySvc,
		SimSvc:      simSvc,
		OperatorSvc: operatorSvc,
		Catalog:     catalog,
		Hub:         hub,
		Cfg:         cfg,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
			stop() // trigger graceful shutdown
		}
	}()

	// ── 12. Graceful shutdown ─────────────────────────────────────────────────
	<-ctx.Done()
	logger.Info("shutdown signal received, draining connections…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "err", err)
	}

	// No event may be published after the stream is flushed.
	select {
	case <-sched.Done():
	case <-shutdownCtx.Done():
	}
	oddsSvc.Close()
	if publisher != nil {
		stopStream()
		select {
		case <-publisher.Done():
		case <-shutdownCtx.Done():
			logger.Warn("event stream did not flush before the deadline")
		}
	}

	if db != nil {
		db.Close()
	}
	logger.Info("server stopped cleanly")
}

// runMigrations reads all *.sql files from dir, sorted by name, and executes
// them sequentially.  Idempotent: SQL files should use IF NOT EXISTS / ON CONFLICT.
func runMigrations(db *sqlx.DB, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("runMigrations: read dir %q: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("runMigrations: read %q: %w", f, err)
		}
		if _, err = db.Exec(string(data)); err != nil {
			return fmt.Errorf("runMigrations: exec %q: %w", f, err)
		}
		slog.Info("migration applied", "file", filepath.Base(f))
	}
	return nil
}
