// Package ledger defines the external fungible-token value store the
// settlement engine collaborates with, plus an in-memory reference
// implementation used in development and tests.
//
// The real token ledger is out of scope for this service: the engine only
// needs an authorized pull-transfer from a payer into the engine's holding
// and a push-transfer from the holding to a recipient. Both either fully
// succeed or fully fail.
package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger is the value-transfer surface consumed by the engine.
type Ledger interface {
	// Pull moves amount from payer into the engine holding. Fails with
	// domain.ErrInsufficientBalance or domain.ErrInsufficientAllowance when
	// the payer cannot cover it.
	Pull(ctx context.Context, payer uuid.UUID, amount decimal.Decimal) error

	// Push moves amount from the engine holding to recipient. Fails with
	// domain.ErrLedgerUnderfunded when the holding cannot cover it — which
	// should never happen while the engine's accounting invariants hold.
	Push(ctx context.Context, recipient uuid.UUID, amount decimal.Decimal) error
}
