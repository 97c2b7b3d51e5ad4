package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/opentally/stakeround/internal/domain"
	"github.com/opentally/stakeround/internal/engine"
	"github.com/opentally/stakeround/internal/ledger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Test fixture
// ──────────────────────────────────────────────────────────────────────────────

// fakeClock is a settable clock shared with the engine under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	eng       *engine.Engine
	token     *ledger.MemoryLedger
	clock     *fakeClock
	authority uuid.UUID
	burn      uuid.UUID
	params    engine.Params
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// newTestEnv builds an engine over a fresh in-memory ledger: 24h round,
// 48h grace, stake 10, curve price 1 + 0.1 per whole share.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	token := ledger.NewMemoryLedger()

	params := engine.Params{
		Authority:      uuid.New(),
		BurnAccount:    uuid.New(),
		RoundDuration:  24 * time.Hour,
		GraceDelay:     48 * time.Hour,
		StakeAmount:    dec("10"),
		CurveBasePrice: dec("1"),
		CurveIncrement: dec("0.1"),
		AllowSelfStake: true,
	}

	return &testEnv{
		eng:       engine.New(params, token, clock.Now, nil),
		token:     token,
		clock:     clock,
		authority: params.Authority,
		burn:      params.BurnAccount,
		params:    params,
	}
}

// fund mints a generous balance for the account and approves it toward the
// engine, then returns the account id.
func (env *testEnv) fund(t *testing.T) uuid.UUID {
	t.Helper()
	account := uuid.New()
	env.token.Mint(account, dec("1000"))
	env.token.Approve(account, dec("1000"))
	return account
}

func (env *testEnv) submit(t *testing.T, account uuid.UUID, content string) *domain.Entry {
	t.Helper()
	entry, err := env.eng.Submit(context.Background(), account, content)
	if err != nil {
		t.Fatalf("Submit(%q): %v", content, err)
	}
	return entry
}

func (env *testEnv) whitelist(t *testing.T, ids ...int64) {
	t.Helper()
	if err := env.eng.WhitelistBatch(context.Background(), env.authority, ids); err != nil {
		t.Fatalf("WhitelistBatch(%v): %v", ids, err)
	}
}

func (env *testEnv) stake(t *testing.T, account uuid.UUID, entryID int64) *domain.Entry {
	t.Helper()
	entry, err := env.eng.Stake(context.Background(), account, entryID)
	if err != nil {
		t.Fatalf("Stake(entry %d): %v", entryID, err)
	}
	return entry
}

func (env *testEnv) closeRound() {
	env.clock.Advance(25 * time.Hour)
}

// ──────────────────────────────────────────────────────────────────────────────
// Submission
// ──────────────────────────────────────────────────────────────────────────────

func TestSubmitPullsStakeAndPools(t *testing.T) {
	env := newTestEnv(t)
	alice := env.fund(t)

	entry := env.submit(t, alice, "ipfs://entry-a")

	if entry.ID != 0 {
		t.Errorf("first entry id should be 0, got %d", entry.ID)
	}
	if entry.Status != domain.EntryPending {
		t.Errorf("new entry should be pending, got %s", entry.Status)
	}
	// Stake 10 at curve price 1 → exactly 10 shares.
	if !entry.TotalShares.Equal(dec("10")) {
		t.Errorf("expected 10 shares at base price, got %s", entry.TotalShares)
	}
	if !env.eng.PoolTotal().Equal(dec("10")) {
		t.Errorf("pool should hold the stake, got %s", env.eng.PoolTotal())
	}
	if !env.token.BalanceOf(alice).Equal(dec("990")) {
		t.Errorf("staker balance should drop by 10, got %s", env.token.BalanceOf(alice))
	}
	if !env.token.HoldingBalance().Equal(dec("10")) {
		t.Errorf("ledger holding should equal the pool, got %s", env.token.HoldingBalance())
	}
}

func TestSubmitRejectsDuplicateAndEmpty(t *testing.T) {
	env := newTestEnv(t)
	alice := env.fund(t)

	env.submit(t, alice, "ipfs://entry-a")

	if _, err := env.eng.Submit(context.Background(), alice, "ipfs://entry-b"); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Errorf("second submit should fail with ErrAlreadySubmitted, got %v", err)
	}
	bob := env.fund(t)
	if _, err := env.eng.Submit(context.Background(), bob, ""); !errors.Is(err, domain.ErrEmptyContent) {
		t.Errorf("empty content should fail with ErrEmptyContent, got %v", err)
	}
}

func TestSubmitAfterDeadlineRejected(t *testing.T) {
	env := newTestEnv(t)
	alice := env.fund(t)
	env.closeRound()

	if _, err := env.eng.Submit(context.Background(), alice, "ipfs://late"); !errors.Is(err, domain.ErrRoundClosed) {
		t.Errorf("expected ErrRoundClosed, got %v", err)
	}
	if !env.token.BalanceOf(alice).Equal(dec("1000")) {
		t.Errorf("failed submit must not move value, balance %s", env.token.BalanceOf(alice))
	}
}

func TestSubmitWithoutAllowanceLeavesNoState(t *testing.T) {
	env := newTestEnv(t)
	alice := uuid.New()
	env.token.Mint(alice, dec("1000")) // balance but no approval

	_, err := env.eng.Submit(context.Background(), alice, "ipfs://entry-a")
	if !errors.Is(err, domain.ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}
	if env.eng.EntryCount() != 0 {
		t.Errorf("failed pull must not register an entry, count %d", env.eng.EntryCount())
	}
	// The submitter slot must stay free for a retry.
	env.token.Approve(alice, dec("1000"))
	env.submit(t, alice, "ipfs://entry-a")
}

// ──────────────────────────────────────────────────────────────────────────────
// Staking & bonding curve
// ──────────────────────────────────────────────────────────────────────────────

func TestStakeIssuanceDecreasesAlongCurve(t *testing.T) {
	env := newTestEnv(t)
	alice := env.fund(t)

	entry := env.submit(t, alice, "ipfs://entry-a")
	env.whitelist(t, entry.ID)

	// Stake 10, base 1, increment 0.1. Submission issued 10 shares, so the
	// next three stakes price at 2, 2.5 and 2.9.
	prev := dec("10")
	want := []string{"5", "4", "3.4482"}
	for i, w := range want {
		staker := env.fund(t)
		before := env.eng.ShareBalance(entry.ID, staker)
		env.stake(t, staker, entry.ID)
		got := env.eng.ShareBalance(entry.ID, staker).Sub(before)

		if !got.Equal(dec(w)) {
			t.Errorf("stake %d: expected %s shares, got %s", i+1, w, got)
		}
		if !got.LessThan(prev) {
			t.Errorf("stake %d: issuance must strictly decrease, %s >= %s", i+1, got, prev)
		}
		prev = got
	}
}

func TestStakeRequiresWhitelist(t *testing.T) {
	env := newTestEnv(t)
	alice := env.fund(t)
	bob := env.fund(t)

	entry := env.submit(t, alice, "ipfs://entry-a")

	if _, err := env.eng.Stake(context.Background(), bob, entry.ID); !errors.Is(err, domain.ErrEntryNotWhitelisted) {
		t.Errorf("staking a pending entry should fail, got %v", err)
	}
	if _, err := env.eng.Stake(context.Background(), bob, 42); !errors.Is(err, domain.ErrEntryNotFound) {
		t.Errorf("staking an unknown id should fail, got %v", err)
	}
}

func TestStakeAfterDeadlineRejected(t *testing.T) {
	env := newTestEnv(t)
	alice := env.fund(t)
	bob := env.fund(t)

	entry := env.submit(t, alice, "ipfs://entry-a")
	env.whitelist(t, entry.ID)
	env.closeRound()

	if _, err := env.eng.Stake(context.Background(), bob, entry.ID); !errors.Is(err, domain.ErrRoundClosed) {
		t.Errorf("expected ErrRoundClosed, got %v", err)
	}
}

func TestPoolTracksEveryStake(t *testing.T) {
	env := newTestEnv(t)
	alice := env.fund(t)
	bob := env.fund(t)

	a := env.submit(t, alice, "ipfs://entry-a")
	b := env.submit(t, bob, "ipfs://entry-b")
	env.whitelist(t, a.ID, b.ID)

	for i := 0; i < 3; i++ {
		env.stake(t, env.fund(t), a.ID)
	}
	env.stake(t, env.fund(t), b.ID)

	// 2 submissions + 4 stakes, 10 each.
	if !env.eng.PoolTotal().Equal(dec("60")) {
		t.Errorf("pool should be 60, got %s", env.eng.PoolTotal())
	}
	if !env.token.HoldingBalance().Equal(env.eng.PoolTotal()) {
		t.Errorf("ledger holding %s diverged from pool %s",
			env.token.HoldingBalance(), env.eng.PoolTotal())
	}
}

func TestSelfStakeConfigurable(t *testing.T) {
	// Default fixture allows submitter back-staking.
	env := newTestEnv(t)
	alice := env.fund(t)
	entry := env.submit(t, alice, "ipfs://entry-a")
	env.whitelist(t, entry.ID)
	env.stake(t, alice, entry.ID)

	// Disabled: same flow must reject the submitter's own stake.
	params := env.params
	params.AllowSelfStake = false
	token := ledger.NewMemoryLedger()
	strict := engine.New(params, token, env.clock.Now, nil)

	bob := uuid.New()
	token.Mint(bob, dec("1000"))
	token.Approve(bob, dec("1000"))

	own, err := strict.Submit(context.Background(), bob, "ipfs://entry-b")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := strict.WhitelistBatch(context.Background(), params.Authority, []int64{own.ID}); err != nil {
		t.Fatalf("WhitelistBatch: %v", err)
	}
	if _, err := strict.Stake(context.Background(), bob, own.ID); !errors.Is(err, domain.ErrSelfStake) {
		t.Errorf("expected ErrSelfStake, got %v", err)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Moderation
// ──────────────────────────────────────────────────────────────────────────────

func TestWhitelistBatchIsAllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	alice := env.fund(t)

	entry := env.submit(t, alice, "ipfs://entry-a")

	// Batch containing an unknown id must not touch the valid entry.
	err := env.eng.WhitelistBatch(context.Background(), env.authority, []int64{entry.ID, 99})
	if !errors.Is(err, domain.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
	detail, _ := env.eng.GetEntry(entry.ID)
	if detail.Status != domain.EntryPending {
		t.Errorf("entry should stay pending after failed batch, got %s", detail.Status)
	}

	env.whitelist(t, entry.ID)
	// Re-whitelisting a whitelisted entry is a status conflict.
	err = env.eng.WhitelistBatch(context.Background(), env.authority, []int64{entry.ID})
	if !errors.Is(err, domain.ErrEntryNotPending) {
		t.Errorf("expected ErrEntryNotPending, got %v", err)
	}
}

func TestWhitelistRequiresAuthority(t *testing.T) {
	env := newTestEnv(t)
	alice := env.fund(t)
	entry := env.submit(t, alice, "ipfs://entry-a")

	err := env.eng.WhitelistBatch(context.Background(), alice, []int64{entry.ID})
	if !errors.Is(err, domain.ErrNotAuthority) {
		t.Errorf("expected ErrNotAuthority, got %v", err)
	}
}

func TestWhitelistStillAllowedAfterDeadline(t *testing.T) {
	env := newTestEnv(t)
	alice := env.fund(t)
	entry := env.submit(t, alice, "ipfs://entry-a")
	env.closeRound()

	env.whitelist(t, entry.ID) // review lag past the deadline is legal
}

func TestBanSlashesStakeToBurn(t *testing.T) {
	env := newTestEnv(t)
	alice := env.fund(t)
	bob := env.fund(t)

	a := env.submit(t, alice, "ipfs://entry-a")
	env.submit(t, bob, "ipfs://entry-b")

	if err := env.eng.BanAndSlash(context.Background(), env.authority, a.ID); err != nil {
		t.Fatalf("BanAndSlash: %v", err)
	}

	if !env.eng.PoolTotal().Equal(dec("10")) {
		t.Errorf("pool should drop to 10 after the slash, got %s", env.eng.PoolTotal())
	}
	if !env.token.BalanceOf(env.burn).Equal(dec("10")) {
		t.Errorf("burn account should receive the slashed 10, got %s", env.token.BalanceOf(env.burn))
	}
	detail, _ := env.eng.GetEntry(a.ID)
	if detail.Status != domain.EntryBanned {
		t.Errorf("entry should be banned, got %s", detail.Status)
	}

	// Banned is terminal.
	if err := env.eng.BanAndSlash(context.Background(), env.authority, a.ID); !errors.Is(err, domain.ErrEntryNotPending) {
		t.Errorf("second ban should fail, got %v", err)
	}
	if err := env.eng.WhitelistBatch(context.Background(), env.authority, []int64{a.ID}); !errors.Is(err, domain.ErrEntryNotPending) {
		t.Errorf("whitelisting a banned entry should fail, got %v", err)
	}
}

func TestBanRejectsWhitelistedEntry(t *testing.T) {
	env := newTestEnv(t)
	alice := env.fund(t)
	entry := env.submit(t, alice, "ipfs://entry-a")
	env.whitelist(t, entry.ID)

	if err := env.eng.BanAndSlash(context.Background(), env.authority, entry.ID); !errors.Is(err, domain.ErrEntryNotPending) {
		t.Errorf("banning a whitelisted entry should fail, got %v", err)
	}
}

// TestBanBlockedAfterSettlement covers the double-burn hole: a still-Pending
// entry's stake is part of the pool that winner selection already partitioned,
// so slashing it afterwards would push the same value to burn twice and leave
// the cached staker pool unbacked.
func TestBanBlockedAfterSettlement(t *testing.T) {
	env := newTestEnv(t)
	alice := env.fund(t)
	bob := env.fund(t)

	a := env.submit(t, alice, "ipfs://entry-a")
	b := env.submit(t, bob, "ipfs://entry-b") // never moderated
	env.whitelist(t, a.ID)
	env.closeRound()

	ctx := context.Background()
	dist, err := env.eng.PickWinner(ctx, env.authority, a.ID)
	if err != nil {
		t.Fatalf("PickWinner: %v", err)
	}
	// Pool 20 → burn 5, bonus 2, stakers 13; the holding now backs exactly the
	// staker pool.
	if !env.token.HoldingBalance().Equal(dist.StakerPool) {
		t.Fatalf("holding should equal the staker pool %s, got %s",
			dist.StakerPool, env.token.HoldingBalance())
	}

	if err := env.eng.BanAndSlash(ctx, env.authority, b.ID); !errors.Is(err, domain.ErrWinnerAlreadySelected) {
		t.Errorf("ban after settlement should fail, got %v", err)
	}
	if !env.token.HoldingBalance().Equal(dist.StakerPool) {
		t.Errorf("rejected ban must not move value, holding %s", env.token.HoldingBalance())
	}

	// The sole winning staker still drains the full cached pool.
	receipt, err := env.eng.Claim(ctx, alice)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if !receipt.Amount.Equal(dist.StakerPool) {
		t.Errorf("claim should pay the full staker pool %s, got %s", dist.StakerPool, receipt.Amount)
	}
}

func TestBanBlockedOnceRescueTriggered(t *testing.T) {
	env := newTestEnv(t)
	alice := env.fund(t)
	entry := env.submit(t, alice, "ipfs://entry-a")

	env.closeRound()
	env.clock.Advance(48 * time.Hour)
	ctx := context.Background()
	if err := env.eng.TriggerRescue(ctx, alice); err != nil {
		t.Fatalf("TriggerRescue: %v", err)
	}

	// The pool is reserved for refunds once rescue opens.
	if err := env.eng.BanAndSlash(ctx, env.authority, entry.ID); !errors.Is(err, domain.ErrRescueAlreadyTriggered) {
		t.Errorf("ban after rescue should fail, got %v", err)
	}
	if refund, err := env.eng.WithdrawRescued(ctx, alice, entry.ID); err != nil || !refund.Equal(dec("10")) {
		t.Errorf("withdrawal should still refund 10, got %s, %v", refund, err)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Winner selection & distribution
// ──────────────────────────────────────────────────────────────────────────────

func TestPickWinnerSplitsPoolExactly(t *testing.T) {
	env := newTestEnv(t)
	alice := env.fund(t)
	bob := env.fund(t)

	a := env.submit(t, alice, "ipfs://entry-a")
	env.submit(t, bob, "ipfs://entry-b")
	env.whitelist(t, a.ID)
	env.stake(t, env.fund(t), a.ID)
	env.closeRound()

	pool := env.eng.PoolTotal() // 30
	dist, err := env.eng.PickWinner(context.Background(), env.authority, a.ID)
	if err != nil {
		t.Fatalf("PickWinner: %v", err)
	}

	// 25% burn, 10% bonus, 65% stakers, summing back to the pool exactly.
	if !dist.Burn.Equal(dec("7.5")) {
		t.Errorf("burn should be 7.5, got %s", dist.Burn)
	}
	if !dist.Bonus.Equal(dec("3")) {
		t.Errorf("bonus should be 3, got %s", dist.Bonus)
	}
	if !dist.Burn.Add(dist.Bonus).Add(dist.StakerPool).Equal(pool) {
		t.Errorf("distribution must conserve the pool: %s + %s + %s != %s",
			dist.Burn, dist.Bonus, dist.StakerPool, pool)
	}
	if !env.token.BalanceOf(env.burn).Equal(dist.Burn) {
		t.Errorf("burn account should hold %s, got %s", dist.Burn, env.token.BalanceOf(env.burn))
	}
	// Submitter paid 10 in, got the 3 bonus back.
	if !env.token.BalanceOf(alice).Equal(dec("993")) {
		t.Errorf("submitter balance should be 993, got %s", env.token.BalanceOf(alice))
	}

	selected, winnerID := env.eng.WinnerInfo()
	if !selected || winnerID != a.ID {
		t.Errorf("winner info should report entry %d, got selected=%v id=%d", a.ID, selected, winnerID)
	}
}

func TestPickWinnerGuards(t *testing.T) {
	env := newTestEnv(t)
	alice := env.fund(t)
	bob := env.fund(t)

	a := env.submit(t, alice, "ipfs://entry-a")
	b := env.submit(t, bob, "ipfs://entry-b")
	env.whitelist(t, a.ID)

	ctx := context.Background()
	if _, err := env.eng.PickWinner(ctx, env.authority, a.ID); !errors.Is(err, domain.ErrRoundOpen) {
		t.Errorf("picking before the deadline should fail, got %v", err)
	}

	env.closeRound()
	if _, err := env.eng.PickWinner(ctx, alice, a.ID); !errors.Is(err, domain.ErrNotAuthority) {
		t.Errorf("non-authority pick should fail, got %v", err)
	}
	if _, err := env.eng.PickWinner(ctx, env.authority, b.ID); !errors.Is(err, domain.ErrEntryNotWhitelisted) {
		t.Errorf("picking a pending entry should fail, got %v", err)
	}

	if _, err := env.eng.PickWinner(ctx, env.authority, a.ID); err != nil {
		t.Fatalf("PickWinner: %v", err)
	}
	if _, err := env.eng.PickWinner(ctx, env.authority, a.ID); !errors.Is(err, domain.ErrWinnerAlreadySelected) {
		t.Errorf("second pick should fail, got %v", err)
	}
}

// TestPickWinnerBlockedOnceRescueTriggered pins rescue and winner selection
// as mutually exclusive terminal paths: once refunds start, splitting the
// stale pool would spend value reserved for the withdrawals still owed.
func TestPickWinnerBlockedOnceRescueTriggered(t *testing.T) {
	env := newTestEnv(t)
	alice := env.fund(t)
	bob := env.fund(t)

	a := env.submit(t, alice, "ipfs://entry-a")
	b := env.submit(t, bob, "ipfs://entry-b")
	env.whitelist(t, a.ID, b.ID)

	env.closeRound()
	env.clock.Advance(48 * time.Hour)

	ctx := context.Background()
	if err := env.eng.TriggerRescue(ctx, alice); err != nil {
		t.Fatalf("TriggerRescue: %v", err)
	}
	if refund, err := env.eng.WithdrawRescued(ctx, alice, a.ID); err != nil || !refund.Equal(dec("10")) {
		t.Fatalf("alice withdrawal: got %s, %v", refund, err)
	}

	if _, err := env.eng.PickWinner(ctx, env.authority, a.ID); !errors.Is(err, domain.ErrRescueAlreadyTriggered) {
		t.Errorf("winner selection after rescue should fail, got %v", err)
	}

	// Bob's refund is still fully backed by the holding.
	refund, err := env.eng.WithdrawRescued(ctx, bob, b.ID)
	if err != nil {
		t.Fatalf("bob withdrawal: %v", err)
	}
	if !refund.Equal(dec("10")) {
		t.Errorf("bob refund should be 10, got %s", refund)
	}
	if !env.token.HoldingBalance().IsZero() {
		t.Errorf("holding should be drained, got %s", env.token.HoldingBalance())
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Claims
// ──────────────────────────────────────────────────────────────────────────────

func TestClaimsDrainStakerPoolExactly(t *testing.T) {
	env := newTestEnv(t)
	alice := env.fund(t)

	entry := env.submit(t, alice, "ipfs://entry-a")
	env.whitelist(t, entry.ID)

	// Three extra stakers with unequal share sizes along the curve.
	stakers := []uuid.UUID{env.fund(t), env.fund(t), env.fund(t)}
	for _, s := range stakers {
		env.stake(t, s, entry.ID)
	}
	env.closeRound()

	if _, err := env.eng.PickWinner(context.Background(), env.authority, entry.ID); err != nil {
		t.Fatalf("PickWinner: %v", err)
	}

	// All four stakers claim (submitter included). Per-claim payouts are
	// floored; the last claimer sweeps the remainder.
	claimants := append([]uuid.UUID{alice}, stakers...)
	total := decimal.Zero
	var lastReceipt domain.ClaimReceipt
	for _, c := range claimants {
		receipt, err := env.eng.Claim(context.Background(), c)
		if err != nil {
			t.Fatalf("Claim: %v", err)
		}
		total = total.Add(receipt.Amount)
		lastReceipt = receipt
	}

	// 4 stakes of 10 → pool 40, staker pool 26, fully drained.
	if !total.Equal(dec("26")) {
		t.Errorf("claims should pay out exactly 26, got %s", total)
	}
	if !lastReceipt.Last {
		t.Errorf("final claim should be flagged as last")
	}
	if !env.token.HoldingBalance().IsZero() {
		t.Errorf("holding should be fully drained, got %s", env.token.HoldingBalance())
	}
}

func TestClaimOncePerStaker(t *testing.T) {
	env := newTestEnv(t)
	alice := env.fund(t)
	bob := env.fund(t)

	entry := env.submit(t, alice, "ipfs://entry-a")
	env.whitelist(t, entry.ID)
	env.stake(t, bob, entry.ID)
	env.closeRound()
	if _, err := env.eng.PickWinner(context.Background(), env.authority, entry.ID); err != nil {
		t.Fatalf("PickWinner: %v", err)
	}

	if _, err := env.eng.Claim(context.Background(), bob); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if _, err := env.eng.Claim(context.Background(), bob); !errors.Is(err, domain.ErrAlreadyClaimed) {
		t.Errorf("second claim should fail, got %v", err)
	}
}

func TestClaimGuards(t *testing.T) {
	env := newTestEnv(t)
	alice := env.fund(t)
	bob := env.fund(t)
	carol := env.fund(t)

	a := env.submit(t, alice, "ipfs://entry-a")
	b := env.submit(t, bob, "ipfs://entry-b")
	env.whitelist(t, a.ID, b.ID)
	env.stake(t, carol, b.ID) // carol backs the losing entry

	ctx := context.Background()
	if _, err := env.eng.Claim(ctx, alice); !errors.Is(err, domain.ErrNoWinnerSelected) {
		t.Errorf("claiming before selection should fail, got %v", err)
	}

	env.closeRound()
	if _, err := env.eng.PickWinner(ctx, env.authority, a.ID); err != nil {
		t.Fatalf("PickWinner: %v", err)
	}

	if _, err := env.eng.Claim(ctx, carol); !errors.Is(err, domain.ErrNothingToClaim) {
		t.Errorf("losing-entry staker should have nothing to claim, got %v", err)
	}
	if _, err := env.eng.Claim(ctx, uuid.New()); !errors.Is(err, domain.ErrNothingToClaim) {
		t.Errorf("stranger should have nothing to claim, got %v", err)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Rescue
// ──────────────────────────────────────────────────────────────────────────────

func TestRescueLifecycle(t *testing.T) {
	env := newTestEnv(t)
	alice := env.fund(t)
	bob := env.fund(t)

	entry := env.submit(t, alice, "ipfs://entry-a")
	env.whitelist(t, entry.ID)
	env.stake(t, bob, entry.ID)

	ctx := context.Background()

	// Rescue requires deadline + grace; the round alone is not enough.
	env.closeRound()
	if err := env.eng.TriggerRescue(ctx, bob); !errors.Is(err, domain.ErrRescueTooEarly) {
		t.Fatalf("expected ErrRescueTooEarly, got %v", err)
	}
	if _, err := env.eng.WithdrawRescued(ctx, bob, entry.ID); !errors.Is(err, domain.ErrRescueNotTriggered) {
		t.Fatalf("withdraw before trigger should fail, got %v", err)
	}

	env.clock.Advance(48 * time.Hour)
	if err := env.eng.TriggerRescue(ctx, bob); err != nil {
		t.Fatalf("TriggerRescue: %v", err)
	}
	if err := env.eng.TriggerRescue(ctx, bob); !errors.Is(err, domain.ErrRescueAlreadyTriggered) {
		t.Errorf("double trigger should fail, got %v", err)
	}

	// Alice holds 10 of 15 shares on a 20-stake entry, bob 5 of 15.
	refund, err := env.eng.WithdrawRescued(ctx, alice, entry.ID)
	if err != nil {
		t.Fatalf("WithdrawRescued: %v", err)
	}
	if !refund.Equal(dec("13.3333")) {
		t.Errorf("alice refund should floor to 13.3333, got %s", refund)
	}
	if _, err := env.eng.WithdrawRescued(ctx, alice, entry.ID); !errors.Is(err, domain.ErrNothingToClaim) {
		t.Errorf("second withdraw should fail, got %v", err)
	}

	refund, err = env.eng.WithdrawRescued(ctx, bob, entry.ID)
	if err != nil {
		t.Fatalf("WithdrawRescued: %v", err)
	}
	if !refund.Equal(dec("6.6666")) {
		t.Errorf("bob refund should floor to 6.6666, got %s", refund)
	}
}

// TestRescueWithdrawalsShrinkPool keeps the reported pool honest while
// refunds drain it: the view must track recoverable value, not the pre-rescue
// total, and must match the ledger holding at every step.
func TestRescueWithdrawalsShrinkPool(t *testing.T) {
	env := newTestEnv(t)
	alice := env.fund(t)
	bob := env.fund(t)

	entry := env.submit(t, alice, "ipfs://entry-a")
	env.whitelist(t, entry.ID)
	env.stake(t, bob, entry.ID)

	env.closeRound()
	env.clock.Advance(48 * time.Hour)
	ctx := context.Background()
	if err := env.eng.TriggerRescue(ctx, alice); err != nil {
		t.Fatalf("TriggerRescue: %v", err)
	}

	if !env.eng.PoolTotal().Equal(dec("20")) {
		t.Fatalf("pool should start at 20, got %s", env.eng.PoolTotal())
	}

	// Alice recovers 13.3333 of the 20; the pool view follows the holding.
	if _, err := env.eng.WithdrawRescued(ctx, alice, entry.ID); err != nil {
		t.Fatalf("WithdrawRescued: %v", err)
	}
	if !env.eng.PoolTotal().Equal(dec("6.6667")) {
		t.Errorf("pool should drop to 6.6667, got %s", env.eng.PoolTotal())
	}
	if !env.eng.PoolTotal().Equal(env.token.HoldingBalance()) {
		t.Errorf("pool %s should match holding %s", env.eng.PoolTotal(), env.token.HoldingBalance())
	}

	// After bob's 6.6666 only the flooring dust remains.
	if _, err := env.eng.WithdrawRescued(ctx, bob, entry.ID); err != nil {
		t.Fatalf("WithdrawRescued: %v", err)
	}
	if !env.eng.PoolTotal().Equal(dec("0.0001")) {
		t.Errorf("pool should hold only the dust, got %s", env.eng.PoolTotal())
	}
	if !env.eng.PoolTotal().Equal(env.token.HoldingBalance()) {
		t.Errorf("pool %s should match holding %s", env.eng.PoolTotal(), env.token.HoldingBalance())
	}
}

func TestRescueBlockedOnceWinnerSelected(t *testing.T) {
	env := newTestEnv(t)
	alice := env.fund(t)

	entry := env.submit(t, alice, "ipfs://entry-a")
	env.whitelist(t, entry.ID)
	env.closeRound()

	ctx := context.Background()
	if _, err := env.eng.PickWinner(ctx, env.authority, entry.ID); err != nil {
		t.Fatalf("PickWinner: %v", err)
	}

	env.clock.Advance(72 * time.Hour)
	if err := env.eng.TriggerRescue(ctx, alice); !errors.Is(err, domain.ErrWinnerAlreadySelected) {
		t.Errorf("rescue after settlement should fail, got %v", err)
	}
}

func TestRescueSkipsBannedEntries(t *testing.T) {
	env := newTestEnv(t)
	alice := env.fund(t)
	bob := env.fund(t)

	a := env.submit(t, alice, "ipfs://entry-a")
	env.submit(t, bob, "ipfs://entry-b")

	ctx := context.Background()
	if err := env.eng.BanAndSlash(ctx, env.authority, a.ID); err != nil {
		t.Fatalf("BanAndSlash: %v", err)
	}

	env.closeRound()
	env.clock.Advance(48 * time.Hour)
	if err := env.eng.TriggerRescue(ctx, alice); err != nil {
		t.Fatalf("TriggerRescue: %v", err)
	}

	// The banned stake already left the pool at slash time.
	if _, err := env.eng.WithdrawRescued(ctx, alice, a.ID); !errors.Is(err, domain.ErrNothingToClaim) {
		t.Errorf("withdraw from a banned entry should fail, got %v", err)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Authority transfer
// ──────────────────────────────────────────────────────────────────────────────

func TestTransferAdmin(t *testing.T) {
	env := newTestEnv(t)
	alice := env.fund(t)
	next := uuid.New()

	ctx := context.Background()
	if err := env.eng.TransferAdmin(ctx, alice, next); !errors.Is(err, domain.ErrNotAuthority) {
		t.Errorf("non-authority transfer should fail, got %v", err)
	}
	if err := env.eng.TransferAdmin(ctx, env.authority, uuid.Nil); !errors.Is(err, domain.ErrZeroIdentity) {
		t.Errorf("zero-identity transfer should fail, got %v", err)
	}

	if err := env.eng.TransferAdmin(ctx, env.authority, next); err != nil {
		t.Fatalf("TransferAdmin: %v", err)
	}
	if env.eng.Authority() != next {
		t.Errorf("authority should now be %s, got %s", next, env.eng.Authority())
	}

	// The old authority is fully retired.
	entry := env.submit(t, alice, "ipfs://entry-a")
	if err := env.eng.WhitelistBatch(ctx, env.authority, []int64{entry.ID}); !errors.Is(err, domain.ErrNotAuthority) {
		t.Errorf("old authority should be rejected, got %v", err)
	}
	if err := env.eng.WhitelistBatch(ctx, next, []int64{entry.ID}); err != nil {
		t.Errorf("new authority should succeed, got %v", err)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Views
// ──────────────────────────────────────────────────────────────────────────────

func TestTopSubmissionsRanking(t *testing.T) {
	env := newTestEnv(t)

	var ids []int64
	for i := 0; i < 3; i++ {
		entry := env.submit(t, env.fund(t), "ipfs://entry")
		ids = append(ids, entry.ID)
	}
	env.whitelist(t, ids...)
	// A fourth, pending entry must never appear in the ranking.
	env.submit(t, env.fund(t), "ipfs://pending")

	// entry 1 gets two extra stakes, entry 2 one. 0 and the pending entry none.
	env.stake(t, env.fund(t), ids[1])
	env.stake(t, env.fund(t), ids[1])
	env.stake(t, env.fund(t), ids[2])

	top, total := env.eng.TopSubmissions(0, 10)
	if len(top) != 3 {
		t.Fatalf("expected 3 ranked entries, got %d", len(top))
	}
	// The total counts ranked entries only, not everything ever submitted.
	if total != 3 {
		t.Errorf("ranked total should be 3, got %d", total)
	}
	if top[0].ID != ids[1] || top[1].ID != ids[2] || top[2].ID != ids[0] {
		t.Errorf("ranking wrong: got %d, %d, %d", top[0].ID, top[1].ID, top[2].ID)
	}

	// Pagination: offset past the end is an empty page, not an error, and the
	// total stays the full ranked count.
	if page, total := env.eng.TopSubmissions(10, 5); len(page) != 0 || total != 3 {
		t.Errorf("offset past end should be empty with total 3, got %d entries, total %d", len(page), total)
	}
	if page, _ := env.eng.TopSubmissions(1, 1); len(page) != 1 || page[0].ID != ids[2] {
		t.Errorf("offset 1 limit 1 should return the runner-up")
	}

	if _, pending := env.eng.PendingSubmissions(0, 10); pending != 1 {
		t.Errorf("pending total should be 1, got %d", pending)
	}
}

func TestTopSubmissionsTiesKeepSubmissionOrder(t *testing.T) {
	env := newTestEnv(t)

	var ids []int64
	for i := 0; i < 3; i++ {
		entry := env.submit(t, env.fund(t), "ipfs://entry")
		ids = append(ids, entry.ID)
	}
	env.whitelist(t, ids...)

	top, _ := env.eng.TopSubmissions(0, 0)
	for i, d := range top {
		if d.ID != ids[i] {
			t.Errorf("equal stakes should rank in submission order, pos %d got id %d", i, d.ID)
		}
	}
}

func TestClaimAmountPreviewMatchesClaim(t *testing.T) {
	env := newTestEnv(t)
	alice := env.fund(t)
	bob := env.fund(t)

	entry := env.submit(t, alice, "ipfs://entry-a")
	env.whitelist(t, entry.ID)
	env.stake(t, bob, entry.ID)
	env.closeRound()
	if _, err := env.eng.PickWinner(context.Background(), env.authority, entry.ID); err != nil {
		t.Fatalf("PickWinner: %v", err)
	}

	preview := env.eng.ClaimAmount(alice)
	receipt, err := env.eng.Claim(context.Background(), alice)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if !preview.Equal(receipt.Amount) {
		t.Errorf("preview %s should match payout %s", preview, receipt.Amount)
	}
	if !env.eng.ClaimAmount(alice).IsZero() {
		t.Errorf("preview after claiming should be zero")
	}
	if !env.eng.CanClaim(bob) {
		t.Errorf("bob should still be able to claim")
	}
}
