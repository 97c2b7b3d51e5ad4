// Package engine implements the single-round settlement core: submission
// lifecycle, bonding-curve share issuance, pool accounting, winner
// distribution, pull-based claims with dust correction, and the time-delayed
// emergency-recovery path.
//
// Execution model: strictly serialized single writer. Every mutating
// operation runs to completion atomically — it holds the state lock for its
// full duration, and a non-blocking call-scoped guard rejects any mutating
// call that begins while another is still in flight, nested or concurrent.
// Callers retry at their own discretion; the engine never retries.
package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/opentally/stakeround/internal/domain"
	"github.com/opentally/stakeround/internal/ledger"
)

// ──────────────────────────────────────────────────────────────────────────────
// EventSink
// ──────────────────────────────────────────────────────────────────────────────

// EventSink receives every observable engine signal. Recording is
// best-effort: sink errors are logged, never propagated — audit visibility
// must not block settlement.
type EventSink interface {
	Record(ctx context.Context, ev *domain.SettlementEvent)
}

// MultiSink fans one event out to several sinks (e.g. audit store + WS hub).
type MultiSink []EventSink

// Record implements EventSink.
func (m MultiSink) Record(ctx context.Context, ev *domain.SettlementEvent) {
	for _, s := range m {
		s.Record(ctx, ev)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Params
// ──────────────────────────────────────────────────────────────────────────────

// Params is the opaque construction-time configuration of one round.
type Params struct {
	Authority      uuid.UUID       // initial round authority
	BurnAccount    uuid.UUID       // permanent burn destination
	RoundDuration  time.Duration   // deadline = now + RoundDuration
	GraceDelay     time.Duration   // rescue unlocks at deadline + GraceDelay
	StakeAmount    decimal.Decimal // fixed size of every stake
	CurveBasePrice decimal.Decimal // bonding curve intercept
	CurveIncrement decimal.Decimal // bonding curve slope per whole share
	AllowSelfStake bool            // whether a submitter may stake on own entry
}

// ──────────────────────────────────────────────────────────────────────────────
// Engine
// ──────────────────────────────────────────────────────────────────────────────

// positionKey addresses one staker's share balance on one entry.
type positionKey struct {
	EntryID int64
	Staker  uuid.UUID
}

// Engine owns all round state exclusively. It is never aliased to external
// collaborators; the only outbound calls are ledger transfers and event
// recording.
type Engine struct {
	params Params
	token  ledger.Ledger
	clock  func() time.Time
	sink   EventSink

	// guardMu protects busy; busy is the call-scoped reentrancy lock.
	guardMu sync.Mutex
	busy    bool

	// mu protects everything below. Mutating operations hold the write lock
	// end-to-end; read views take the read lock.
	mu        sync.RWMutex
	round     *domain.Round
	entries   []*domain.Entry
	submitted map[uuid.UUID]bool            // one entry per submitter, ever
	positions map[positionKey]decimal.Decimal
	stakers   map[int64][]uuid.UUID         // append-only ordered staker list per entry
	isStaker  map[positionKey]bool          // membership set backing stakers
	claimed   map[uuid.UUID]bool            // global: only one entry ever wins
}

// New constructs an engine with deadline = clock() + RoundDuration. The
// clock must be monotonically non-decreasing; pass time.Now in production.
func New(params Params, token ledger.Ledger, clock func() time.Time, sink EventSink) *Engine {
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		params: params,
		token:  token,
		clock:  clock,
		sink:   sink,
		round: &domain.Round{
			Authority:      params.Authority,
			Deadline:       clock().Add(params.RoundDuration),
			Pool:           decimal.Zero,
			StakerPool:     decimal.Zero,
			StakerPoolLeft: decimal.Zero,
		},
		submitted: make(map[uuid.UUID]bool),
		positions: make(map[positionKey]decimal.Decimal),
		stakers:   make(map[int64][]uuid.UUID),
		isStaker:  make(map[positionKey]bool),
		claimed:   make(map[uuid.UUID]bool),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Call-scoped operation guard
// ──────────────────────────────────────────────────────────────────────────────

// acquire takes the operation guard. It never blocks: a mutating call that
// arrives while another is in flight — including one re-entered through an
// external transfer — is rejected with ErrReentrantCall.
func (e *Engine) acquire() error {
	e.guardMu.Lock()
	defer e.guardMu.Unlock()
	if e.busy {
		return domain.ErrReentrantCall
	}
	e.busy = true
	return nil
}

// release frees the operation guard. Must be deferred right after acquire,
// so the guard is dropped on every exit path, failures included.
func (e *Engine) release() {
	e.guardMu.Lock()
	e.busy = false
	e.guardMu.Unlock()
}

// ──────────────────────────────────────────────────────────────────────────────
// Internal helpers — callers must hold e.mu
// ──────────────────────────────────────────────────────────────────────────────

// entryByID returns the entry or ErrEntryNotFound for out-of-range ids.
func (e *Engine) entryByID(id int64) (*domain.Entry, error) {
	if id < 0 || id >= int64(len(e.entries)) {
		return nil, domain.ErrEntryNotFound
	}
	return e.entries[id], nil
}

// addStaker appends staker to the entry's ordered staker list exactly once.
func (e *Engine) addStaker(entryID int64, staker uuid.UUID) {
	key := positionKey{EntryID: entryID, Staker: staker}
	if e.isStaker[key] {
		return
	}
	e.isStaker[key] = true
	e.stakers[entryID] = append(e.stakers[entryID], staker)
}

// requireAuthority rejects callers other than the current round authority.
func (e *Engine) requireAuthority(caller uuid.UUID) error {
	if caller != e.round.Authority {
		return domain.ErrNotAuthority
	}
	return nil
}

// emit records an observable signal through the sink, best-effort.
func (e *Engine) emit(ctx context.Context, ev *domain.SettlementEvent) {
	if e.sink == nil {
		return
	}
	ev.ID = uuid.New()
	ev.CreatedAt = e.clock()
	e.sink.Record(ctx, ev)
}

// logf is the engine's terse operational log.
func logf(format string, args ...interface{}) {
	log.Printf("[engine] "+format, args...)
}
