package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/opentally/stakeround/internal/domain"
)

// PickWinner settles the round on one whitelisted entry. Authority only, once
// per round, only after the deadline, and only while rescue has not been
// triggered — rescue and winner selection are mutually exclusive terminal
// paths, and splitting the pool after refunds started would spend value
// reserved for the remaining withdrawals.
//
// The pool splits three ways: the burn portion is pushed to the permanent
// burn destination, the bonus portion to the winning submitter, and the
// remainder is reserved for the entry's stakers to claim. Both outbound
// pushes complete before any engine state is written, so a failed first push
// leaves the round fully settleable by a retry. A failure between the two
// pushes cannot be unwound and is surfaced as is; the in-memory ledger never
// produces it.
func (e *Engine) PickWinner(ctx context.Context, caller uuid.UUID, entryID int64) (*domain.Distribution, error) {
	if err := e.acquire(); err != nil {
		return nil, err
	}
	defer e.release()

	e.mu.Lock()
	defer e.mu.Unlock()

	// ── 1. Validation ─────────────────────────────────────────────────────────
	if err := e.requireAuthority(caller); err != nil {
		return nil, err
	}
	if !e.round.Closed(e.clock()) {
		return nil, domain.ErrRoundOpen
	}
	if e.round.WinnerSelected {
		return nil, domain.ErrWinnerAlreadySelected
	}
	if e.round.RescueTriggered {
		return nil, domain.ErrRescueAlreadyTriggered
	}
	entry, err := e.entryByID(entryID)
	if err != nil {
		return nil, err
	}
	if entry.Status != domain.EntryWhitelisted {
		return nil, domain.ErrEntryNotWhitelisted
	}

	// ── 2. Distribution pushes ────────────────────────────────────────────────
	dist := domain.SplitPool(e.round.Pool)

	if dist.Burn.IsPositive() {
		if err := e.token.Push(ctx, e.params.BurnAccount, dist.Burn); err != nil {
			return nil, fmt.Errorf("engine.PickWinner: push burn: %w", err)
		}
	}
	if dist.Bonus.IsPositive() {
		if err := e.token.Push(ctx, entry.Submitter, dist.Bonus); err != nil {
			return nil, fmt.Errorf("engine.PickWinner: push submitter bonus: %w", err)
		}
	}

	// ── 3. Commit the claim bookkeeping ──────────────────────────────────────
	e.round.WinnerSelected = true
	e.round.WinnerID = entryID
	e.round.StakerPool = dist.StakerPool
	e.round.StakerPoolLeft = dist.StakerPool
	e.round.TotalWinningShares = entry.TotalShares
	e.round.WinnerStakerCount = len(e.stakers[entryID])
	e.round.ClaimedCount = 0

	logf("winner picked: entry %d, pool %s (burn %s, bonus %s, stakers %s)",
		entryID,
		e.round.Pool.StringFixed(domain.ValueScale),
		dist.Burn.StringFixed(domain.ValueScale),
		dist.Bonus.StringFixed(domain.ValueScale),
		dist.StakerPool.StringFixed(domain.ValueScale))

	e.emit(ctx, &domain.SettlementEvent{
		Type:    domain.EventWinnerPicked,
		EntryID: &entryID,
		Actor:   caller,
		Amount:  dist.StakerPool,
	})

	return &dist, nil
}
