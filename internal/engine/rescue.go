package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/opentally/stakeround/internal/domain"
)

// TriggerRescue opens the emergency recovery path. Anyone may call it once
// the deadline plus the configured grace delay has elapsed without a winner
// being selected. Triggering moves no value; it only flips the round into
// rescue mode so stakers can withdraw their proportional stake back.
func (e *Engine) TriggerRescue(ctx context.Context, caller uuid.UUID) error {
	if err := e.acquire(); err != nil {
		return err
	}
	defer e.release()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.round.WinnerSelected {
		return domain.ErrWinnerAlreadySelected
	}
	if e.round.RescueTriggered {
		return domain.ErrRescueAlreadyTriggered
	}
	if !e.round.RescueWindowOpen(e.clock(), e.params.GraceDelay) {
		return domain.ErrRescueTooEarly
	}

	e.round.RescueTriggered = true

	logf("rescue triggered by %s, pool %s recoverable", caller, e.round.Pool.StringFixed(domain.ValueScale))
	e.emit(ctx, &domain.SettlementEvent{
		Type:   domain.EventRescueTriggered,
		Actor:  caller,
		Amount: e.round.Pool,
	})
	return nil
}

// WithdrawRescued refunds the caller's proportional slice of one entry's
// staked value after rescue has been triggered. The caller's share position
// on the entry is zeroed whether or not the floored refund is positive; a
// zero refund simply skips the outbound push.
//
// Banned entries are excluded: their stake already left the pool at slash
// time, so there is nothing on them to recover.
func (e *Engine) WithdrawRescued(ctx context.Context, caller uuid.UUID, entryID int64) (decimal.Decimal, error) {
	if err := e.acquire(); err != nil {
		return decimal.Zero, err
	}
	defer e.release()

	e.mu.Lock()
	defer e.mu.Unlock()

	// ── 1. Validation ─────────────────────────────────────────────────────────
	if !e.round.RescueTriggered {
		return decimal.Zero, domain.ErrRescueNotTriggered
	}
	entry, err := e.entryByID(entryID)
	if err != nil {
		return decimal.Zero, err
	}
	if entry.Status == domain.EntryBanned {
		return decimal.Zero, domain.ErrNothingToClaim
	}
	key := positionKey{EntryID: entryID, Staker: caller}
	shares := e.positions[key]
	if !shares.IsPositive() {
		return decimal.Zero, domain.ErrNothingToClaim
	}

	// ── 2. Zero the position, push, roll back on failure ─────────────────────
	refund := domain.ProportionalShare(entry.TotalStaked, shares, entry.TotalShares)
	e.positions[key] = decimal.Zero
	// The pool tracks recoverable value, so it shrinks with every refund that
	// leaves; flooring dust stays counted until the round is abandoned.
	e.round.Pool = e.round.Pool.Sub(refund)

	if refund.IsPositive() {
		if err := e.token.Push(ctx, caller, refund); err != nil {
			e.positions[key] = shares
			e.round.Pool = e.round.Pool.Add(refund)
			return decimal.Zero, fmt.Errorf("engine.WithdrawRescued: push refund: %w", err)
		}
	}

	e.emit(ctx, &domain.SettlementEvent{
		Type:    domain.EventRescueWithdrawn,
		EntryID: &entryID,
		Actor:   caller,
		Amount:  refund,
		Shares:  shares,
	})
	return refund, nil
}
