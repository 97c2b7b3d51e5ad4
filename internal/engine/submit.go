package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/opentally/stakeround/internal/domain"
)

// Submit registers a new candidate entry for the caller and stakes the fixed
// stake amount on it at the curve's zero point.
//
// Fails if the caller already has an entry, if content is empty, or if the
// round deadline has passed. The stake is pulled before any state changes, so
// a failed pull leaves no partial registration.
func (e *Engine) Submit(ctx context.Context, caller uuid.UUID, content string) (*domain.Entry, error) {
	if err := e.acquire(); err != nil {
		return nil, err
	}
	defer e.release()

	e.mu.Lock()
	defer e.mu.Unlock()

	// ── 1. Validation ─────────────────────────────────────────────────────────
	if content == "" {
		return nil, domain.ErrEmptyContent
	}
	if e.submitted[caller] {
		return nil, domain.ErrAlreadySubmitted
	}
	now := e.clock()
	if e.round.Closed(now) {
		return nil, domain.ErrRoundClosed
	}

	// ── 2. Pull the fixed stake ───────────────────────────────────────────────
	stake := e.params.StakeAmount
	if err := e.token.Pull(ctx, caller, stake); err != nil {
		return nil, fmt.Errorf("engine.Submit: pull stake: %w", err)
	}

	// ── 3. Commit — pure in-memory bookkeeping, cannot fail ─────────────────
	shares := domain.SharesForStake(stake, decimal.Zero, e.params.CurveBasePrice, e.params.CurveIncrement)

	entry := &domain.Entry{
		ID:          int64(len(e.entries)),
		Submitter:   caller,
		ContentRef:  content,
		TotalStaked: stake,
		TotalShares: shares,
		Status:      domain.EntryPending,
		SubmittedAt: now,
	}
	e.entries = append(e.entries, entry)
	e.submitted[caller] = true
	e.round.Pool = e.round.Pool.Add(stake)

	if shares.IsPositive() {
		key := positionKey{EntryID: entry.ID, Staker: caller}
		e.positions[key] = shares
		e.addStaker(entry.ID, caller)
	}

	entryID := entry.ID
	e.emit(ctx, &domain.SettlementEvent{
		Type:    domain.EventSubmitted,
		EntryID: &entryID,
		Actor:   caller,
		Note:    content,
	})
	e.emit(ctx, &domain.SettlementEvent{
		Type:    domain.EventStaked,
		EntryID: &entryID,
		Actor:   caller,
		Amount:  stake,
		Shares:  shares,
	})

	return entry, nil
}
