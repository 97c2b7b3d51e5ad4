package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/opentally/stakeround/internal/domain"
)

// Read views. All take the read lock only and never pass through the
// operation guard, so observers stay responsive while a mutation is in
// flight.

// Deadline returns the fixed round deadline.
func (e *Engine) Deadline() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.round.Deadline
}

// TimeLeft returns the time remaining until the deadline, 0 once closed.
func (e *Engine) TimeLeft() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.round.TimeLeft(e.clock())
}

// PoolTotal returns the current pooled stake across non-banned entries.
func (e *Engine) PoolTotal() decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.round.Pool
}

// WinnerInfo reports whether a winner was selected and, if so, its entry id.
func (e *Engine) WinnerInfo() (selected bool, entryID int64) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.round.WinnerSelected, e.round.WinnerID
}

// RescueState reports whether rescue has been triggered and whether the
// rescue window is currently open.
func (e *Engine) RescueState() (triggered, windowOpen bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.round.RescueTriggered, e.round.RescueWindowOpen(e.clock(), e.params.GraceDelay)
}

// EntryCount returns the number of entries ever submitted, banned included.
func (e *Engine) EntryCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.entries)
}

// GetEntry returns the detail view of one entry, including the curve price a
// new stake on it would pay right now.
func (e *Engine) GetEntry(entryID int64) (domain.EntryDetail, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	entry, err := e.entryByID(entryID)
	if err != nil {
		return domain.EntryDetail{}, err
	}
	price := domain.SharePrice(entry.TotalShares, e.params.CurveBasePrice, e.params.CurveIncrement)
	return entry.ToDetail(len(e.stakers[entryID]), price), nil
}

// ShareBalance returns the staker's share position on an entry. Unknown
// positions read as zero.
func (e *Engine) ShareBalance(entryID int64, staker uuid.UUID) decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.positions[positionKey{EntryID: entryID, Staker: staker}]
}

// CanClaim reports whether the account holds an unclaimed winning position.
func (e *Engine) CanClaim(account uuid.UUID) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.round.WinnerSelected || e.claimed[account] {
		return false
	}
	return e.positions[positionKey{EntryID: e.round.WinnerID, Staker: account}].IsPositive()
}

// ClaimAmount previews the payout Claim would produce for the account right
// now, zero when nothing is claimable. The preview for the final claimer is
// the full remaining pool, dust included.
func (e *Engine) ClaimAmount(account uuid.UUID) decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.round.WinnerSelected || e.claimed[account] {
		return decimal.Zero
	}
	shares := e.positions[positionKey{EntryID: e.round.WinnerID, Staker: account}]
	if !shares.IsPositive() {
		return decimal.Zero
	}
	if e.round.ClaimedCount+1 == e.round.WinnerStakerCount {
		return e.round.StakerPoolLeft
	}
	return domain.ProportionalShare(e.round.StakerPool, shares, e.round.TotalWinningShares)
}

// TopSubmissions returns whitelisted entries ranked by total staked value,
// descending, with ties kept in submission order, plus the total count of
// ranked entries so callers can paginate. offset/limit slice the ranked list;
// an offset past the end yields an empty page.
func (e *Engine) TopSubmissions(offset, limit int) ([]domain.EntryDetail, int) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ranked := make([]*domain.Entry, 0, len(e.entries))
	for _, entry := range e.entries {
		if entry.Status != domain.EntryWhitelisted {
			continue
		}
		ranked = append(ranked, entry)
	}

	// Stable insertion sort: entry counts are moderation-bounded, and stability
	// preserves submission order between equal stakes.
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && ranked[j].TotalStaked.GreaterThan(ranked[j-1].TotalStaked); j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}

	return e.detailPage(ranked, offset, limit), len(ranked)
}

// PendingSubmissions returns the moderation queue in submission order, plus
// the queue length.
func (e *Engine) PendingSubmissions(offset, limit int) ([]domain.EntryDetail, int) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	pending := make([]*domain.Entry, 0, len(e.entries))
	for _, entry := range e.entries {
		if entry.IsPending() {
			pending = append(pending, entry)
		}
	}
	return e.detailPage(pending, offset, limit), len(pending)
}

// detailPage slices [offset, offset+limit) out of entries and builds details.
// Caller must hold e.mu.
func (e *Engine) detailPage(entries []*domain.Entry, offset, limit int) []domain.EntryDetail {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = len(entries)
	}
	if offset >= len(entries) {
		return []domain.EntryDetail{}
	}
	end := offset + limit
	if end > len(entries) {
		end = len(entries)
	}

	page := make([]domain.EntryDetail, 0, end-offset)
	for _, entry := range entries[offset:end] {
		price := domain.SharePrice(entry.TotalShares, e.params.CurveBasePrice, e.params.CurveIncrement)
		page = append(page, entry.ToDetail(len(e.stakers[entry.ID]), price))
	}
	return page
}

// Summary builds the broadcastable snapshot of the round.
func (e *Engine) Summary() domain.RoundSummary {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.round.ToSummary(e.clock(), len(e.entries))
}

// Authority returns the current round authority.
func (e *Engine) Authority() uuid.UUID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.round.Authority
}
