package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Settlement events — the engine's observable signals
// ──────────────────────────────────────────────────────────────────────────────

// EventType enumerates every observable engine signal for auditing and
// broadcast.
type EventType string

const (
	EventSubmitted       EventType = "submitted"
	EventStaked          EventType = "staked"
	EventWhitelisted     EventType = "whitelisted"
	EventBanned          EventType = "banned" // stake slashed to the burn account
	EventWinnerPicked    EventType = "winner_picked"
	EventClaimed         EventType = "claimed"
	EventRescueTriggered EventType = "rescue_triggered"
	EventRescueWithdrawn EventType = "rescue_withdrawn"
	EventAdminTransfer   EventType = "admin_transferred"
)

// SettlementEvent is an immutable audit record for every state transition the
// engine makes. Amount and Shares carry whatever quantity the event moved;
// zero when not applicable.
type SettlementEvent struct {
	ID        uuid.UUID       `json:"id"         db:"id"`
	Type      EventType       `json:"type"       db:"type"`
	EntryID   *int64          `json:"entry_id"   db:"entry_id"` // nil for round-level events
	Actor     uuid.UUID       `json:"actor"      db:"actor"`
	Amount    decimal.Decimal `json:"amount"     db:"amount"`
	Shares    decimal.Decimal `json:"shares"     db:"shares"`
	Note      string          `json:"note"       db:"note"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
