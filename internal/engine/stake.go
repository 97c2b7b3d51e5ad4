package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/opentally/stakeround/internal/domain"
)

// Stake pulls the fixed stake amount from the caller and issues bonding-curve
// shares on the given entry at its current cumulative share count.
//
// Fails if the id is invalid, the entry is not whitelisted, or the round is
// closed. When submitter back-staking is disabled, a submitter staking on
// their own entry is also rejected.
func (e *Engine) Stake(ctx context.Context, caller uuid.UUID, entryID int64) (*domain.Entry, error) {
	if err := e.acquire(); err != nil {
		return nil, err
	}
	defer e.release()

	e.mu.Lock()
	defer e.mu.Unlock()

	// ── 1. Validation ─────────────────────────────────────────────────────────
	entry, err := e.entryByID(entryID)
	if err != nil {
		return nil, err
	}
	if !entry.IsStakeable() {
		return nil, domain.ErrEntryNotWhitelisted
	}
	if e.round.Closed(e.clock()) {
		return nil, domain.ErrRoundClosed
	}
	if !e.params.AllowSelfStake && entry.Submitter == caller {
		return nil, domain.ErrSelfStake
	}

	// ── 2. Pull the fixed stake ───────────────────────────────────────────────
	stake := e.params.StakeAmount
	if err := e.token.Pull(ctx, caller, stake); err != nil {
		return nil, fmt.Errorf("engine.Stake: pull stake: %w", err)
	}

	// ── 3. Commit ─────────────────────────────────────────────────────────────
	// Issuance is priced at the cumulative share count before this stake, so
	// successive stakes on the same entry never yield more shares than the
	// previous one.
	shares := domain.SharesForStake(stake, entry.TotalShares, e.params.CurveBasePrice, e.params.CurveIncrement)

	e.round.Pool = e.round.Pool.Add(stake)
	entry.TotalStaked = entry.TotalStaked.Add(stake)
	entry.TotalShares = entry.TotalShares.Add(shares)

	if shares.IsPositive() {
		key := positionKey{EntryID: entryID, Staker: caller}
		e.positions[key] = e.positions[key].Add(shares)
		e.addStaker(entryID, caller)
	}

	e.emit(ctx, &domain.SettlementEvent{
		Type:    domain.EventStaked,
		EntryID: &entryID,
		Actor:   caller,
		Amount:  stake,
		Shares:  shares,
	})

	return entry, nil
}
