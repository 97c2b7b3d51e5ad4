// Package scheduler manages the background goroutines that observe the round
// lifecycle:
//  1. summaryBroadcastLoop – pushes the round snapshot to WS clients.
//  2. deadlineWatchLoop    – announces round close and rescue-window opening.
//
// The scheduler never mutates engine state. Settlement is always an explicit
// authority action through the API; these loops only keep clients informed.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/opentally/stakeround/internal/config"
	"github.com/opentally/stakeround/internal/domain"
	"github.com/opentally/stakeround/internal/engine"
	"github.com/opentally/stakeround/internal/ws"
)

// ──────────────────────────────────────────────────────────────────────────────
// WsHub interface — minimally required from the Hub
// ──────────────────────────────────────────────────────────────────────────────

// WsHub defines the broadcast operations the Scheduler needs from the WebSocket
// hub.  Declared here so the scheduler package does not import the ws/hub.go
// implementation and cause a circular dependency.
type WsHub interface {
	BroadcastRoundUpdate(summary domain.RoundSummary)
	BroadcastRescue(msg ws.RescueMessage)
}

// ──────────────────────────────────────────────────────────────────────────────
// Scheduler
// ──────────────────────────────────────────────────────────────────────────────

// Scheduler runs the observational lifecycle goroutines.  Call Start(ctx) once
// from main(); cancel the context to shut it down gracefully.
type Scheduler struct {
	eng    *engine.Engine
	hub    WsHub
	cfg    *config.Config
	logger *slog.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(eng *engine.Engine, hub WsHub, cfg *config.Config, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		eng:    eng,
		hub:    hub,
		cfg:    cfg,
		logger: logger,
	}
}

// Start launches the background goroutines.  It returns immediately; all loops
// run until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.summaryBroadcastLoop(ctx)
	go s.deadlineWatchLoop(ctx)
	s.logger.Info("scheduler started",
		"deadline", s.eng.Deadline().Format(time.RFC3339),
		"grace", s.cfg.Round.GraceDelay)
}

// ──────────────────────────────────────────────────────────────────────────────
// summaryBroadcastLoop
// ──────────────────────────────────────────────────────────────────────────────

// summaryBroadcastLoop pushes a RoundUpdateMessage to all connected WS clients
// every 5 seconds so countdown and pool widgets stay live.
func (s *Scheduler) summaryBroadcastLoop(ctx context.Context) {
	defer s.recoverAndLog("summaryBroadcastLoop")

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("summaryBroadcastLoop: shutting down")
			return
		case <-ticker.C:
			if s.hub != nil {
				s.hub.BroadcastRoundUpdate(s.eng.Summary())
			}
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// deadlineWatchLoop
// ──────────────────────────────────────────────────────────────────────────────

// deadlineWatchLoop waits for the round deadline and then for the rescue
// window, logging and broadcasting each transition exactly once.
func (s *Scheduler) deadlineWatchLoop(ctx context.Context) {
	defer s.recoverAndLog("deadlineWatchLoop")

	deadline := s.eng.Deadline()
	if !s.waitUntil(ctx, deadline) {
		return
	}
	s.logger.Info("round closed", "pool", s.eng.PoolTotal(), "entries", s.eng.EntryCount())
	if s.hub != nil {
		s.hub.BroadcastRoundUpdate(s.eng.Summary())
	}

	if !s.waitUntil(ctx, deadline.Add(s.cfg.Round.GraceDelay)) {
		return
	}

	// The rescue window only matters while no winner has been selected.
	if selected, _ := s.eng.WinnerInfo(); selected {
		return
	}
	s.logger.Warn("rescue window open, round still unsettled", "pool", s.eng.PoolTotal())
	if s.hub != nil {
		s.hub.BroadcastRescue(ws.RescueMessage{Pool: s.eng.PoolTotal()})
	}
}

// waitUntil blocks until t or context cancellation; returns false on cancel.
func (s *Scheduler) waitUntil(ctx context.Context, t time.Time) bool {
	wait := time.Until(t)
	if wait <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(wait):
		return true
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Panic recovery
// ──────────────────────────────────────────────────────────────────────────────

// recoverAndLog is deferred inside each goroutine to catch unexpected panics,
// log them, and allow the scheduler to continue running.
func (s *Scheduler) recoverAndLog(loop string) {
	if r := recover(); r != nil {
		s.logger.Error("PANIC recovered in scheduler loop",
			"loop", loop, "panic", r)
	}
}
