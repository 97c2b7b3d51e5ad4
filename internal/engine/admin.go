package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/opentally/stakeround/internal/domain"
)

// TransferAdmin hands the round authority to another account. Current
// authority only; the zero identity is rejected so authority can never be
// burned by accident.
func (e *Engine) TransferAdmin(ctx context.Context, caller, next uuid.UUID) error {
	if err := e.acquire(); err != nil {
		return err
	}
	defer e.release()

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAuthority(caller); err != nil {
		return err
	}
	if next == uuid.Nil {
		return domain.ErrZeroIdentity
	}

	e.round.Authority = next

	logf("authority transferred %s -> %s", caller, next)
	e.emit(ctx, &domain.SettlementEvent{
		Type:  domain.EventAdminTransfer,
		Actor: caller,
		Note:  next.String(),
	})
	return nil
}
