package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/opentally/stakeround/internal/domain"
	"github.com/opentally/stakeround/internal/ledger"
)

func TestPull_ConsumesBalanceAndAllowance(t *testing.T) {
	l := ledger.NewMemoryLedger()
	payer := uuid.New()
	l.Mint(payer, decimal.NewFromInt(100))
	l.Approve(payer, decimal.NewFromInt(30))

	if err := l.Pull(context.Background(), payer, decimal.NewFromInt(20)); err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if !l.BalanceOf(payer).Equal(decimal.NewFromInt(80)) {
		t.Errorf("balance = %s, want 80", l.BalanceOf(payer))
	}
	if !l.AllowanceOf(payer).Equal(decimal.NewFromInt(10)) {
		t.Errorf("allowance = %s, want 10", l.AllowanceOf(payer))
	}
	if !l.HoldingBalance().Equal(decimal.NewFromInt(20)) {
		t.Errorf("holding = %s, want 20", l.HoldingBalance())
	}
}

func TestPull_FailuresLeaveLedgerUntouched(t *testing.T) {
	l := ledger.NewMemoryLedger()
	payer := uuid.New()
	l.Mint(payer, decimal.NewFromInt(5))
	l.Approve(payer, decimal.NewFromInt(100))

	err := l.Pull(context.Background(), payer, decimal.NewFromInt(10))
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	l.Mint(payer, decimal.NewFromInt(100))
	l.Approve(payer, decimal.NewFromInt(5))
	err = l.Pull(context.Background(), payer, decimal.NewFromInt(10))
	if !errors.Is(err, domain.ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}

	if !l.BalanceOf(payer).Equal(decimal.NewFromInt(105)) {
		t.Errorf("failed pulls must not debit, balance %s", l.BalanceOf(payer))
	}
	if !l.HoldingBalance().IsZero() {
		t.Errorf("failed pulls must not credit holding, got %s", l.HoldingBalance())
	}
}

func TestApprove_IsNotAdditive(t *testing.T) {
	l := ledger.NewMemoryLedger()
	payer := uuid.New()
	l.Approve(payer, decimal.NewFromInt(30))
	l.Approve(payer, decimal.NewFromInt(10))
	if !l.AllowanceOf(payer).Equal(decimal.NewFromInt(10)) {
		t.Errorf("approve should overwrite, got %s", l.AllowanceOf(payer))
	}
}

func TestPush_RequiresFundedHolding(t *testing.T) {
	l := ledger.NewMemoryLedger()
	payer := uuid.New()
	recipient := uuid.New()
	l.Mint(payer, decimal.NewFromInt(50))
	l.Approve(payer, decimal.NewFromInt(50))

	err := l.Push(context.Background(), recipient, decimal.NewFromInt(1))
	if !errors.Is(err, domain.ErrLedgerUnderfunded) {
		t.Fatalf("expected ErrLedgerUnderfunded, got %v", err)
	}

	if err := l.Pull(context.Background(), payer, decimal.NewFromInt(50)); err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if err := l.Push(context.Background(), recipient, decimal.NewFromInt(50)); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if !l.BalanceOf(recipient).Equal(decimal.NewFromInt(50)) {
		t.Errorf("recipient = %s, want 50", l.BalanceOf(recipient))
	}
	if !l.HoldingBalance().IsZero() {
		t.Errorf("holding should be drained, got %s", l.HoldingBalance())
	}
}
