// Package main is the entry point for the matchsim back-office server.
// Runs on the backoffice port and exposes operator-only reports over the
// match and bet archive.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evetabi/matchsim/internal/backoffice"
	"github.com/evetabi/matchsim/internal/cache"
	"github.com/evetabi/matchsim/internal/config"
	"github.com/evetabi/matchsim/internal/odds"
	"github.com/evetabi/matchsim/internal/repository"
	"github.com/evetabi/matchsim/internal/service"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	cfg := config.MustLoad()

	var logHandler slog.Handler
	if cfg.IsProd() {
		logHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	logger.Info("starting matchsim backoffice server",
		"env", cfg.Server.Env, "port", cfg.Server.BackofficePort)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := backoffice.BackofficeDeps{
		Tokens: service.NewOperatorService(cfg),
		Prior:  odds.DefaultPrior(),
		Cfg:    cfg,
		Logger: logger,
	}

	// ── Database ──────────────────────────────────────────────────────────────
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

		deps.Archive = repository.NewMatchRepository(db)
		deps.Ledger = repository.NewBetRepository(db)
	} else {
		logger.Warn("DATABASE_DSN not set, archive reports return 503")
	}

	// ── Redis (live board) ────────────────────────────────────────────────────
	if cfg.Redis.Addr != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		rdb, err := cache.Connect(connectCtx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		cancel()
		if err != nil {
			logger.Error("redis connection failed", "addr", cfg.Redis.Addr, "err", err)
			os.Exit(1)
		}
		defer rdb.Close()

		watch := cache.NewBoardWatch(cache.NewOddsCache(rdb, cfg.Redis.OddsChannel, cfg.Redis.OddsTTL), logger)
		go watch.Run(ctx)
		deps.Boards = watch
	}

	// ── Router ────────────────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Server.BackofficePort,
		Handler:      backoffice.SetupBackofficeRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// ── Start ─────────────────────────────────────────────────────────────────
	go func() {
		logger.Info("backoffice http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("backoffice server error", "err", err)
			stop()
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("backoffice shutdown error", "err", err)
	}

	if db != nil {
		db.Close()
	}
	logger.Info("backoffice server stopped cleanly")
}
