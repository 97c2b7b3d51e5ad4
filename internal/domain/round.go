package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Distribution fractions — fixed at 25% burn / 10% submitter bonus / 65%
// staker pool, expressed in basis points for exact integer splitting.
// ──────────────────────────────────────────────────────────────────────────────

const (
	BurnBps  = 2500
	BonusBps = 1000
	BpsDenom = 10000
)

// ──────────────────────────────────────────────────────────────────────────────
// Round
// ──────────────────────────────────────────────────────────────────────────────

// Round is the singleton market state for one engine instance. It is created
// at construction with Deadline = now + configured duration and mutated only
// by the engine; it is never destroyed.
type Round struct {
	Authority uuid.UUID       `json:"authority"`
	Deadline  time.Time       `json:"deadline"`
	Pool      decimal.Decimal `json:"pool"` // Σ totalStaked over non-banned entries

	// Winner-selection cache, populated exactly once by PickWinner.
	WinnerSelected     bool            `json:"winner_selected"`
	WinnerID           int64           `json:"winner_id"`
	StakerPool         decimal.Decimal `json:"staker_pool"`           // 65% slice at selection time
	StakerPoolLeft     decimal.Decimal `json:"staker_pool_remaining"` // decremented per claim
	TotalWinningShares decimal.Decimal `json:"total_winning_shares"`
	WinnerStakerCount  int             `json:"winner_staker_count"`
	ClaimedCount       int             `json:"claimed_count"`

	RescueTriggered bool `json:"rescue_triggered"`
}

// Closed returns true once the round deadline has passed at the given instant.
func (r *Round) Closed(now time.Time) bool {
	return !now.Before(r.Deadline)
}

// TimeLeft returns the duration remaining until the deadline, or 0 if the
// round is already closed.
func (r *Round) TimeLeft(now time.Time) time.Duration {
	remaining := r.Deadline.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RescueWindowOpen returns true once the deadline plus the grace delay has
// elapsed.
func (r *Round) RescueWindowOpen(now time.Time, grace time.Duration) bool {
	return !now.Before(r.Deadline.Add(grace))
}

// FullyClaimed returns true after every eligible winner staker has claimed.
func (r *Round) FullyClaimed() bool {
	return r.WinnerSelected && r.ClaimedCount == r.WinnerStakerCount
}

// ──────────────────────────────────────────────────────────────────────────────
// Distribution
// ──────────────────────────────────────────────────────────────────────────────

// Distribution is the exact three-way split of the pool at winner selection.
// Burn + Bonus + StakerPool always equals the pool it was computed from: the
// two fee slices are floored to ValueScale and the staker pool takes the
// integer-division remainder.
type Distribution struct {
	Burn       decimal.Decimal `json:"burn"`
	Bonus      decimal.Decimal `json:"bonus"`
	StakerPool decimal.Decimal `json:"staker_pool"`
}

// SplitPool partitions pool into burn / bonus / staker-pool slices.
func SplitPool(pool decimal.Decimal) Distribution {
	denom := decimal.NewFromInt(BpsDenom)
	burn := pool.Mul(decimal.NewFromInt(BurnBps)).Div(denom).RoundDown(ValueScale)
	bonus := pool.Mul(decimal.NewFromInt(BonusBps)).Div(denom).RoundDown(ValueScale)
	return Distribution{
		Burn:       burn,
		Bonus:      bonus,
		StakerPool: pool.Sub(burn).Sub(bonus),
	}
}

// ProportionalShare computes floor(pool × shares / totalShares) at ValueScale.
// QuoRem truncates the quotient exactly, so the floor never overshoots the
// way a precision-limited Div (which rounds half-up before flooring) can.
// Returns decimal.Zero when totalShares is zero (guard against division by
// zero on empty entries).
func ProportionalShare(pool, shares, totalShares decimal.Decimal) decimal.Decimal {
	if totalShares.IsZero() {
		return decimal.Zero
	}
	q, _ := pool.Mul(shares).QuoRem(totalShares, ValueScale)
	return q
}

// ClaimReceipt reports the outcome of one successful claim. Last marks the
// final claimer, whose payout absorbed the remaining flooring dust.
type ClaimReceipt struct {
	EntryID int64           `json:"entry_id"`
	Shares  decimal.Decimal `json:"shares"`
	Amount  decimal.Decimal `json:"amount"`
	Last    bool            `json:"last"`
}

// ──────────────────────────────────────────────────────────────────────────────
// RoundSummary — lightweight read model for WS broadcasts and list endpoints
// ──────────────────────────────────────────────────────────────────────────────

// RoundSummary is a derived, read-only view of the round used for broadcasting.
type RoundSummary struct {
	Deadline        time.Time       `json:"deadline"`
	TimeLeftSec     int64           `json:"time_left_sec"`
	Pool            decimal.Decimal `json:"pool"`
	EntryCount      int             `json:"entry_count"`
	WinnerSelected  bool            `json:"winner_selected"`
	WinnerID        *int64          `json:"winner_id,omitempty"`
	ClaimedCount    int             `json:"claimed_count"`
	RescueTriggered bool            `json:"rescue_triggered"`
}

// ToSummary builds a RoundSummary from the round and the current entry count.
func (r *Round) ToSummary(now time.Time, entryCount int) RoundSummary {
	s := RoundSummary{
		Deadline:        r.Deadline,
		TimeLeftSec:     int64(r.TimeLeft(now).Seconds()),
		Pool:            r.Pool,
		EntryCount:      entryCount,
		WinnerSelected:  r.WinnerSelected,
		ClaimedCount:    r.ClaimedCount,
		RescueTriggered: r.RescueTriggered,
	}
	if r.WinnerSelected {
		id := r.WinnerID
		s.WinnerID = &id
	}
	return s
}
