// Package main is the entry point for the StakeRound settlement API server.
// It wires together the engine, ledger, and services and starts the HTTP
// server alongside the WebSocket hub and background scheduler.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"github.com/opentally/stakeround/internal/api"
	"github.com/opentally/stakeround/internal/config"
	"github.com/opentally/stakeround/internal/domain"
	"github.com/opentally/stakeround/internal/engine"
	"github.com/opentally/stakeround/internal/ledger"
	"github.com/opentally/stakeround/internal/repository"
	"github.com/opentally/stakeround/internal/scheduler"
	"github.com/opentally/stakeround/internal/service"
	"github.com/opentally/stakeround/internal/ws"
)

// dbSink persists engine events through the repository. Sink failures are
// logged and swallowed; audit visibility must not block settlement.
type dbSink struct {
	repo *repository.EventRepository
}

func (s *dbSink) Record(ctx context.Context, ev *domain.SettlementEvent) {
	if err := s.repo.Insert(ctx, ev); err != nil {
		slog.Error("event sink insert failed", "type", ev.Type, "err", err)
	}
}

func main() {
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

	logger.Info("starting stakeround server", "env", cfg.Server.Env, "port", cfg.Server.Port)

	// ── 2. Database ───────────────────────────────────────────────────────────
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

	// ── 3. Migrations ─────────────────────────────────────────────────────────
	if err = runMigrations(db, "migrations"); err != nil {
		logger.Error("migrations failed", "err", err)
		os.Exit(1)
	}
	logger.Info("migrations applied")

	// ── 4. Repositories & ledger ──────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	eventRepo := repository.NewEventRepository(db)
	token := ledger.NewMemoryLedger()

	// ── 5. Services ───────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(userRepo, token, cfg)

	// ── 6. WebSocket Hub ──────────────────────────────────────────────────────
	jwtSecret := []byte(cfg.JWT.AccessSecret)
	var allowedOrigins []string
	if ori := os.Getenv("WS_ALLOWED_ORIGINS"); ori != "" {
		for _, o := range strings.Split(ori, ",") {
			allowedOrigins = append(allowedOrigins, strings.TrimSpace(o))
		}
	}
	hub := ws.NewHub(jwtSecret, allowedOrigins)

	// ── 7. Engine ─────────────────────────────────────────────────────────────
	// Events fan out to the audit store and to live WS clients.
	eng := engine.New(engine.Params{
		Authority:      cfg.Round.AdminAccount,
		BurnAccount:    cfg.Round.BurnAccount,
		RoundDuration:  cfg.Round.Duration,
		GraceDelay:     cfg.Round.GraceDelay,
		StakeAmount:    cfg.Round.StakeAmount,
		CurveBasePrice: cfg.Round.CurveBasePrice,
		CurveIncrement: cfg.Round.CurveIncrement,
		AllowSelfStake: cfg.Round.AllowSelfStake,
	}, token, time.Now, engine.MultiSink{&dbSink{repo: eventRepo}, hub})

	logger.Info("round opened",
		"deadline", eng.Deadline().Format(time.RFC3339),
		"stake", cfg.Round.StakeAmount,
		"authority", cfg.Round.AdminAccount)

	// ── 8. Root context + signal handling ─────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 9. Start WS Hub ───────────────────────────────────────────────────────
	go hub.Run()
	logger.Info("websocket hub started")

	// ── 10. Scheduler ─────────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(eng, hub, cfg, logger)
	sched.Start(ctx)

	// ── 11. HTTP Router ───────────────────────────────────────────────────────
	router := api.SetupRouter(api.RouterDeps{
		AuthSvc:   authSvc,
		Engine:    eng,
		Token:     token,
		UserRepo:  userRepo,
		EventRepo: eventRepo,
		Hub:       hub,
		Cfg:       cfg,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// ── 12. Start server ──────────────────────────────────────────────────────
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
			stop() // trigger graceful shutdown
		}
	}()

	// ── 13. Graceful shutdown ─────────────────────────────────────────────────
	<-ctx.Done()
	logger.Info("shutdown signal received, draining connections…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "err", err)
	}

	db.Close()
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
