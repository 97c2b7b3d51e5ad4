// Package main is the entry point for the stakeround ops console server.
// Runs on BackofficePort and exposes admin-only endpoints over the shared
// database: user administration and the settlement audit trail.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/opentally/stakeround/internal/backoffice"
	"github.com/opentally/stakeround/internal/config"
	"github.com/opentally/stakeround/internal/ledger"
	"github.com/opentally/stakeround/internal/repository"
	"github.com/opentally/stakeround/internal/service"
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

	logger.Info("starting stakeround ops console",
		"env", cfg.Server.Env, "port", cfg.Server.BackofficePort)

	// ── Database ──────────────────────────────────────────────────────────────
	db, err := sqlx.Connect("postgres", cfg.DB.DSN)
	if err != nil {
		logger.Error("database connection failed", "err", err)
		os.Exit(1)
	}
	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	if err = db.Ping(); err != nil {
		logger.Error("database ping failed", "err", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	// ── Repositories ──────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	eventRepo := repository.NewEventRepository(db)

	// ── Services ──────────────────────────────────────────────────────────────
	// The ops console only verifies tokens; its ledger is never used.
	authSvc := service.NewAuthService(userRepo, ledger.NewMemoryLedger(), cfg)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Router ────────────────────────────────────────────────────────────────
	router := backoffice.SetupBackofficeRouter(backoffice.BackofficeDeps{
		AuthSvc:   authSvc,
		UserRepo:  userRepo,
		EventRepo: eventRepo,
		Cfg:       cfg,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.BackofficePort,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// ── Start ─────────────────────────────────────────────────────────────────
	go func() {
		logger.Info("ops console http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ops console server error", "err", err)
			stop()
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops console shutdown error", "err", err)
	}

	db.Close()
	logger.Info("ops console server stopped cleanly")
}
