package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/opentally/stakeround/internal/domain"
)

// WhitelistBatch flips each listed entry from Pending to Whitelisted.
// Authority only. The whole call fails — with no status change — if any id is
// out of range or not Pending.
//
// There is deliberately no deadline restriction: review lag is expected to
// straddle the round close, and late whitelisting must remain possible so the
// authority can still pick a winner.
func (e *Engine) WhitelistBatch(ctx context.Context, caller uuid.UUID, ids []int64) error {
	if err := e.acquire(); err != nil {
		return err
	}
	defer e.release()

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAuthority(caller); err != nil {
		return err
	}

	// Validate the full batch before flipping anything.
	for _, id := range ids {
		entry, err := e.entryByID(id)
		if err != nil {
			return err
		}
		if !entry.Status.CanTransitionTo(domain.EntryWhitelisted) {
			return domain.ErrEntryNotPending
		}
	}

	for _, id := range ids {
		e.entries[id].Status = domain.EntryWhitelisted
		entryID := id
		e.emit(ctx, &domain.SettlementEvent{
			Type:    domain.EventWhitelisted,
			EntryID: &entryID,
			Actor:   caller,
		})
	}
	return nil
}

// BanAndSlash flips a Pending entry to Banned, removes its staked value from
// the pooled total, and pushes that value to the permanent burn destination.
// Authority only, and only before the round reaches a terminal state: once a
// winner is selected the pool has been partitioned and a still-Pending
// entry's stake is already inside the cached staker pool, so slashing it
// would burn the same value twice; once rescue is triggered the pool is
// reserved for refunds.
//
// The burn push happens before any bookkeeping mutation: a failed push leaves
// the entry Pending and the pool untouched.
func (e *Engine) BanAndSlash(ctx context.Context, caller uuid.UUID, entryID int64) error {
	if err := e.acquire(); err != nil {
		return err
	}
	defer e.release()

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAuthority(caller); err != nil {
		return err
	}
	if e.round.WinnerSelected {
		return domain.ErrWinnerAlreadySelected
	}
	if e.round.RescueTriggered {
		return domain.ErrRescueAlreadyTriggered
	}
	entry, err := e.entryByID(entryID)
	if err != nil {
		return err
	}
	if !entry.Status.CanTransitionTo(domain.EntryBanned) {
		return domain.ErrEntryNotPending
	}

	slashed := entry.TotalStaked
	if err := e.token.Push(ctx, e.params.BurnAccount, slashed); err != nil {
		return fmt.Errorf("engine.BanAndSlash: push slashed stake: %w", err)
	}

	entry.Status = domain.EntryBanned
	e.round.Pool = e.round.Pool.Sub(slashed)

	logf("entry %d banned, %s slashed to burn", entryID, slashed.StringFixed(domain.ValueScale))
	e.emit(ctx, &domain.SettlementEvent{
		Type:    domain.EventBanned,
		EntryID: &entryID,
		Actor:   caller,
		Amount:  slashed,
	})
	return nil
}
