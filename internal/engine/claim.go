package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/opentally/stakeround/internal/domain"
)

// Claim pays out the caller's proportional share of the staker pool. Each
// staker claims exactly once; the final claimer receives whatever remains in
// the pool, which folds all flooring dust into the last payout and drains the
// pool to exactly zero.
//
// State is marked claimed before the outbound push and rolled back if the
// push fails, so a failed transfer never burns the caller's claim.
func (e *Engine) Claim(ctx context.Context, caller uuid.UUID) (domain.ClaimReceipt, error) {
	if err := e.acquire(); err != nil {
		return domain.ClaimReceipt{}, err
	}
	defer e.release()

	e.mu.Lock()
	defer e.mu.Unlock()

	// ── 1. Validation ─────────────────────────────────────────────────────────
	if !e.round.WinnerSelected {
		return domain.ClaimReceipt{}, domain.ErrNoWinnerSelected
	}
	if e.claimed[caller] {
		return domain.ClaimReceipt{}, domain.ErrAlreadyClaimed
	}
	key := positionKey{EntryID: e.round.WinnerID, Staker: caller}
	shares := e.positions[key]
	if !shares.IsPositive() {
		return domain.ClaimReceipt{}, domain.ErrNothingToClaim
	}

	// ── 2. Payout ─────────────────────────────────────────────────────────────
	payout := domain.ProportionalShare(e.round.StakerPool, shares, e.round.TotalWinningShares)
	last := e.round.ClaimedCount+1 == e.round.WinnerStakerCount
	if last {
		payout = e.round.StakerPoolLeft
	}
	if !payout.IsPositive() {
		return domain.ClaimReceipt{}, domain.ErrNothingToClaim
	}

	// ── 3. Mark, push, roll back on failure ───────────────────────────────────
	e.claimed[caller] = true
	e.round.ClaimedCount++
	e.round.StakerPoolLeft = e.round.StakerPoolLeft.Sub(payout)

	if err := e.token.Push(ctx, caller, payout); err != nil {
		e.claimed[caller] = false
		e.round.ClaimedCount--
		e.round.StakerPoolLeft = e.round.StakerPoolLeft.Add(payout)
		return domain.ClaimReceipt{}, fmt.Errorf("engine.Claim: push payout: %w", err)
	}

	entryID := e.round.WinnerID
	e.emit(ctx, &domain.SettlementEvent{
		Type:    domain.EventClaimed,
		EntryID: &entryID,
		Actor:   caller,
		Amount:  payout,
		Shares:  shares,
	})

	return domain.ClaimReceipt{
		EntryID: entryID,
		Shares:  shares,
		Amount:  payout,
		Last:    last,
	}, nil
}
