// Package ws holds WebSocket message types and the Hub implementation.
// messages.go defines all message structs broadcast to connected clients.
package ws

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/opentally/stakeround/internal/domain"
)

// MsgType identifies the kind of WS message so clients can switch on it.
type MsgType string

const (
	MsgTypeRoundUpdate  MsgType = "round_update"
	MsgTypeEvent        MsgType = "settlement_event"
	MsgTypeWinnerPicked MsgType = "winner_picked"
	MsgTypeRescue       MsgType = "rescue_triggered"
	MsgTypeError        MsgType = "error"
)

// ──────────────────────────────────────────────────────────────────────────────
// RoundUpdateMessage — periodic snapshot for pool/countdown widgets.
// ──────────────────────────────────────────────────────────────────────────────

// RoundUpdateMessage carries the round summary plus a timestamp.
type RoundUpdateMessage struct {
	Type      MsgType             `json:"type"`
	Round     domain.RoundSummary `json:"round"`
	Timestamp time.Time           `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// EventMessage — pushed for every settlement event the engine emits.
// ──────────────────────────────────────────────────────────────────────────────

// EventMessage wraps a settlement event for live feeds.
type EventMessage struct {
	Type  MsgType                 `json:"type"`
	Event *domain.SettlementEvent `json:"event"`
}

// ──────────────────────────────────────────────────────────────────────────────
// WinnerPickedMessage — broadcast once when the round settles.
// ──────────────────────────────────────────────────────────────────────────────

// WinnerPickedMessage tells clients which entry won and how the pool split.
type WinnerPickedMessage struct {
	Type       MsgType             `json:"type"`
	EntryID    int64               `json:"entry_id"`
	Burn       decimal.Decimal     `json:"burn"`
	Bonus      decimal.Decimal     `json:"bonus"`
	StakerPool decimal.Decimal     `json:"staker_pool"`
	Round      domain.RoundSummary `json:"round"`
	Timestamp  time.Time           `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// RescueMessage — broadcast when the emergency recovery path opens.
// ──────────────────────────────────────────────────────────────────────────────

// RescueMessage notifies clients that stakers may now withdraw their stakes.
type RescueMessage struct {
	Type      MsgType         `json:"type"`
	Pool      decimal.Decimal `json:"pool"`
	Timestamp time.Time       `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// ErrorMessage — sent to a single client on a non-fatal error.
// ──────────────────────────────────────────────────────────────────────────────

// ErrorMessage is sent directly to one client (not broadcast).
type ErrorMessage struct {
	Type    MsgType `json:"type"`
	Code    string  `json:"code"`
	Message string  `json:"message"`
}
