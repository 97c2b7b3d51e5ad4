package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/opentally/stakeround/internal/domain"
)

// EventRepository persists the engine's settlement audit trail.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Insert appends one settlement event. Events are immutable; there is no
// update path.
func (r *EventRepository) Insert(ctx context.Context, ev *domain.SettlementEvent) error {
	query := `
		INSERT INTO settlement_events (id, type, entry_id, actor, amount, shares, note, created_at)
		VALUES (:id, :type, :entry_id, :actor, :amount, :shares, :note, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, ev); err != nil {
		return fmt.Errorf("event_repo.Insert: %w", err)
	}
	return nil
}

// List returns the newest events first.
func (r *EventRepository) List(ctx context.Context, limit, offset int) ([]*domain.SettlementEvent, error) {
	var evs []*domain.SettlementEvent
	err := r.db.SelectContext(ctx, &evs, `
		SELECT * FROM settlement_events
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("event_repo.List: %w", err)
	}
	return evs, nil
}

// ListByEntry returns the newest events for one entry first.
func (r *EventRepository) ListByEntry(ctx context.Context, entryID int64, limit, offset int) ([]*domain.SettlementEvent, error) {
	var evs []*domain.SettlementEvent
	err := r.db.SelectContext(ctx, &evs, `
		SELECT * FROM settlement_events
		WHERE entry_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		entryID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("event_repo.ListByEntry: %w", err)
	}
	return evs, nil
}

// ListByType returns the newest events of one type first.
func (r *EventRepository) ListByType(ctx context.Context, t domain.EventType, limit, offset int) ([]*domain.SettlementEvent, error) {
	var evs []*domain.SettlementEvent
	err := r.db.SelectContext(ctx, &evs, `
		SELECT * FROM settlement_events
		WHERE type = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		t, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("event_repo.ListByType: %w", err)
	}
	return evs, nil
}

// EventTypeTotal is one row of the per-type aggregate used by ops reporting.
type EventTypeTotal struct {
	Type  domain.EventType `db:"type"  json:"type"`
	Count int              `db:"count" json:"count"`
	Total decimal.Decimal  `db:"total" json:"total"`
}

// TotalsByType aggregates event count and moved amount per event type in the
// half-open interval [from, to).
func (r *EventRepository) TotalsByType(ctx context.Context, from, to time.Time) ([]EventTypeTotal, error) {
	var rows []EventTypeTotal
	err := r.db.SelectContext(ctx, &rows, `
		SELECT type, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total
		FROM settlement_events
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY type
		ORDER BY type`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("event_repo.TotalsByType: %w", err)
	}
	return rows, nil
}

// ListByActor returns the newest events initiated by one account first.
func (r *EventRepository) ListByActor(ctx context.Context, actor uuid.UUID, limit, offset int) ([]*domain.SettlementEvent, error) {
	var evs []*domain.SettlementEvent
	err := r.db.SelectContext(ctx, &evs, `
		SELECT * FROM settlement_events
		WHERE actor = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		actor, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("event_repo.ListByActor: %w", err)
	}
	return evs, nil
}
