// Package domain defines the core business entities and types for the
// StakeRound single-round curated staking market.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// EntryStatus represents the moderation state of a submitted entry.
type EntryStatus string

const (
	EntryPending     EntryStatus = "pending"     // awaiting authority review
	EntryWhitelisted EntryStatus = "whitelisted" // approved, open for staking
	EntryBanned      EntryStatus = "banned"      // removed, stake slashed to burn
)

// CanTransitionTo returns true only for the two legal moderation moves:
// Pending→Whitelisted and Pending→Banned. Whitelisted and Banned are terminal.
func (s EntryStatus) CanTransitionTo(next EntryStatus) bool {
	if s != EntryPending {
		return false
	}
	return next == EntryWhitelisted || next == EntryBanned
}

// ValueScale is the decimal scale for all token amounts and share balances,
// matching the ledger's DECIMAL(18,4) unit scale.
const ValueScale = 4

// ──────────────────────────────────────────────────────────────────────────────
// Entry
// ──────────────────────────────────────────────────────────────────────────────

// Entry is a single submitted candidate competing to be selected winner.
// IDs are sequential, starting at 0, in submission order.
type Entry struct {
	ID          int64           `json:"id"`
	Submitter   uuid.UUID       `json:"submitter"`
	ContentRef  string          `json:"content_ref"` // opaque reference, never validated beyond non-emptiness
	TotalStaked decimal.Decimal `json:"total_staked"`
	TotalShares decimal.Decimal `json:"total_shares"`
	Status      EntryStatus     `json:"status"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

// IsStakeable returns true while the entry can accept new stakes
// (whitelisted; the round deadline is checked separately).
func (e *Entry) IsStakeable() bool {
	return e.Status == EntryWhitelisted
}

// IsPending returns true while the entry awaits moderation.
func (e *Entry) IsPending() bool {
	return e.Status == EntryPending
}

// ──────────────────────────────────────────────────────────────────────────────
// EntryDetail — read model for API responses
// ──────────────────────────────────────────────────────────────────────────────

// EntryDetail is the API-safe view of an entry plus derived staking figures.
type EntryDetail struct {
	ID          int64           `json:"id"`
	Submitter   uuid.UUID       `json:"submitter"`
	ContentRef  string          `json:"content_ref"`
	TotalStaked decimal.Decimal `json:"total_staked"`
	TotalShares decimal.Decimal `json:"total_shares"`
	Status      EntryStatus     `json:"status"`
	StakerCount int             `json:"staker_count"`
	SharePrice  decimal.Decimal `json:"share_price"` // current curve price for the next stake
	SubmittedAt time.Time       `json:"submitted_at"`
}

// ToDetail builds an EntryDetail from the entry, its staker count, and the
// current curve price.
func (e *Entry) ToDetail(stakerCount int, sharePrice decimal.Decimal) EntryDetail {
	return EntryDetail{
		ID:          e.ID,
		Submitter:   e.Submitter,
		ContentRef:  e.ContentRef,
		TotalStaked: e.TotalStaked,
		TotalShares: e.TotalShares,
		Status:      e.Status,
		StakerCount: stakerCount,
		SharePrice:  sharePrice,
		SubmittedAt: e.SubmittedAt,
	}
}
