package domain

import (
	"errors"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors — compare with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

// Authorization errors
var (
	// ErrNotAuthority is returned when an authority-only operation is called
	// by anyone other than the current round authority.
	ErrNotAuthority = errors.New("caller is not the round authority")

	// ErrUnauthorized is returned when a valid token is not present.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the authenticated user lacks the required role.
	ErrForbidden = errors.New("forbidden: insufficient permissions")

	// ErrTokenExpired is returned when a JWT or refresh token has passed its TTL.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenInvalid is returned when a token cannot be parsed or its signature
	// does not match.
	ErrTokenInvalid = errors.New("token is invalid")

	// ErrInvalidCredentials is returned when login credentials are wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUserInactive is returned when a suspended user attempts an action.
	ErrUserInactive = errors.New("user account is inactive")
)

// State errors — the operation is valid in general but not in the round's
// current lifecycle phase.
var (
	// ErrRoundClosed is returned when submit or stake is attempted after the
	// round deadline has passed.
	ErrRoundClosed = errors.New("round is closed")

	// ErrRoundOpen is returned when winner selection is attempted before the
	// round deadline.
	ErrRoundOpen = errors.New("round is still open")

	// ErrWinnerAlreadySelected is returned on a second PickWinner call.
	ErrWinnerAlreadySelected = errors.New("winner has already been selected")

	// ErrNoWinnerSelected is returned when a claim is attempted before any
	// winner has been selected.
	ErrNoWinnerSelected = errors.New("no winner has been selected")

	// ErrEntryNotPending is returned when whitelist or ban is attempted on an
	// entry that already left the Pending status.
	ErrEntryNotPending = errors.New("entry is not pending review")

	// ErrEntryNotWhitelisted is returned when stake or winner selection targets
	// an entry that is not whitelisted.
	ErrEntryNotWhitelisted = errors.New("entry is not whitelisted")

	// ErrAlreadyClaimed is returned on a second claim by the same staker.
	ErrAlreadyClaimed = errors.New("payout already claimed")

	// ErrRescueNotTriggered is returned when a rescue withdrawal is attempted
	// before the rescue path has been opened.
	ErrRescueNotTriggered = errors.New("rescue has not been triggered")

	// ErrRescueAlreadyTriggered is returned on a second TriggerRescue call.
	ErrRescueAlreadyTriggered = errors.New("rescue has already been triggered")

	// ErrRescueTooEarly is returned when TriggerRescue is called before the
	// grace delay after the deadline has elapsed.
	ErrRescueTooEarly = errors.New("rescue grace period has not elapsed")

	// ErrReentrantCall is returned when a mutating engine operation begins
	// while another one is still in flight.
	ErrReentrantCall = errors.New("reentrant engine call rejected")
)

// Validation errors — malformed input.
var (
	// ErrEmptyContent is returned when a submission carries no content reference.
	ErrEmptyContent = errors.New("submission content must not be empty")

	// ErrAlreadySubmitted is returned when a caller who already owns an entry
	// submits again.
	ErrAlreadySubmitted = errors.New("caller has already submitted an entry")

	// ErrEntryNotFound is returned when the entry id is out of range.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrZeroIdentity is returned when an operation targets the zero identity.
	ErrZeroIdentity = errors.New("target identity must not be zero")

	// ErrSelfStake is returned when submitter back-staking is disabled and a
	// submitter stakes on their own entry.
	ErrSelfStake = errors.New("submitter may not stake on own entry")

	// ErrEmailTaken is returned on registration when the email already exists.
	ErrEmailTaken = errors.New("email address is already registered")

	// ErrUsernameTaken is returned on registration when the username already exists.
	ErrUsernameTaken = errors.New("username is already taken")

	// ErrUserNotFound is returned when no user matches the given criteria.
	ErrUserNotFound = errors.New("user not found")
)

// Value-transfer errors — surfaced from the token ledger adapter.
var (
	// ErrInsufficientBalance is returned when the payer's token balance cannot
	// cover the pull amount.
	ErrInsufficientBalance = errors.New("insufficient token balance")

	// ErrInsufficientAllowance is returned when the payer has not authorized
	// the engine to pull the amount.
	ErrInsufficientAllowance = errors.New("insufficient transfer allowance")

	// ErrLedgerUnderfunded is returned when a push exceeds the engine's own
	// ledger holding. Should never occur while accounting invariants hold, but
	// the engine checks it defensively.
	ErrLedgerUnderfunded = errors.New("ledger holding cannot cover transfer")

	// ErrNothingToClaim is returned when the caller holds no shares on the
	// relevant entry, or when the computed payout floors to zero.
	ErrNothingToClaim = errors.New("nothing to claim")
)

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

// notFoundErrors collects all "entity not found" sentinel errors so that
// IsNotFound can stay in sync automatically.
var notFoundErrors = []error{
	ErrEntryNotFound,
	ErrUserNotFound,
}

// IsNotFound returns true when err (or any error in its chain) is one of the
// domain "not found" errors. Use this instead of comparing error values
// directly when translating domain errors to HTTP 404 responses.
func IsNotFound(err error) bool {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsConflict returns true for errors that represent a lifecycle-state
// conflict (wrong phase, double execution, reentrancy).
func IsConflict(err error) bool {
	conflictErrors := []error{
		ErrRoundClosed,
		ErrRoundOpen,
		ErrWinnerAlreadySelected,
		ErrNoWinnerSelected,
		ErrEntryNotPending,
		ErrEntryNotWhitelisted,
		ErrAlreadyClaimed,
		ErrRescueNotTriggered,
		ErrRescueAlreadyTriggered,
		ErrRescueTooEarly,
		ErrReentrantCall,
		ErrEmailTaken,
		ErrUsernameTaken,
	}
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsValidation returns true for malformed-input errors (HTTP 400).
func IsValidation(err error) bool {
	validationErrors := []error{
		ErrEmptyContent,
		ErrAlreadySubmitted,
		ErrZeroIdentity,
		ErrSelfStake,
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsAuthError returns true for authentication/authorisation errors.
func IsAuthError(err error) bool {
	authErrors := []error{
		ErrNotAuthority,
		ErrUnauthorized,
		ErrForbidden,
		ErrTokenExpired,
		ErrTokenInvalid,
		ErrInvalidCredentials,
	}
	for _, target := range authErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsValueTransfer returns true for token-ledger transfer failures.
func IsValueTransfer(err error) bool {
	transferErrors := []error{
		ErrInsufficientBalance,
		ErrInsufficientAllowance,
		ErrLedgerUnderfunded,
		ErrNothingToClaim,
	}
	for _, target := range transferErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
