package ledger

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/opentally/stakeround/internal/domain"
)

// MemoryLedger is an in-process account ledger with per-account balances and
// engine allowances. It mirrors the authorize-then-pull flow of an ERC-20
// style token: a payer first approves an allowance toward the engine, and
// every Pull consumes both balance and allowance atomically.
type MemoryLedger struct {
	mu         sync.Mutex
	balances   map[uuid.UUID]decimal.Decimal
	allowances map[uuid.UUID]decimal.Decimal // payer → remaining engine allowance
	holding    decimal.Decimal               // engine-owned pooled value
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances:   make(map[uuid.UUID]decimal.Decimal),
		allowances: make(map[uuid.UUID]decimal.Decimal),
		holding:    decimal.Zero,
	}
}

// Mint credits amount to an account. Dev/test faucet — a real deployment
// replaces this ledger with an adapter over the external token.
func (l *MemoryLedger) Mint(account uuid.UUID, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] = l.balances[account].Add(amount)
}

// Approve sets the payer's remaining engine allowance (not additive, matching
// the common approve semantics).
func (l *MemoryLedger) Approve(payer uuid.UUID, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.allowances[payer] = amount
}

// BalanceOf returns the account's current balance.
func (l *MemoryLedger) BalanceOf(account uuid.UUID) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account]
}

// AllowanceOf returns the payer's remaining engine allowance.
func (l *MemoryLedger) AllowanceOf(payer uuid.UUID) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allowances[payer]
}

// HoldingBalance returns the engine's pooled holding.
func (l *MemoryLedger) HoldingBalance() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holding
}

// Pull implements Ledger. Balance and allowance are checked and debited
// under one lock so a failed pull leaves the ledger untouched.
func (l *MemoryLedger) Pull(_ context.Context, payer uuid.UUID, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[payer].LessThan(amount) {
		return domain.ErrInsufficientBalance
	}
	if l.allowances[payer].LessThan(amount) {
		return domain.ErrInsufficientAllowance
	}

	l.balances[payer] = l.balances[payer].Sub(amount)
	l.allowances[payer] = l.allowances[payer].Sub(amount)
	l.holding = l.holding.Add(amount)
	return nil
}

// Push implements Ledger.
func (l *MemoryLedger) Push(_ context.Context, recipient uuid.UUID, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.holding.LessThan(amount) {
		return domain.ErrLedgerUnderfunded
	}

	l.holding = l.holding.Sub(amount)
	l.balances[recipient] = l.balances[recipient].Add(amount)
	return nil
}
