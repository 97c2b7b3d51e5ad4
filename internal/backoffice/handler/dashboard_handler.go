package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/opentally/stakeround/internal/config"
	"github.com/opentally/stakeround/internal/domain"
	"github.com/opentally/stakeround/internal/repository"
)

// DashboardHandler serves the /admin/dashboard endpoint.
type DashboardHandler struct {
	userRepo  *repository.UserRepository
	eventRepo *repository.EventRepository
	cfg       *config.Config
}

// NewDashboardHandler creates a DashboardHandler.
func NewDashboardHandler(
	userRepo *repository.UserRepository,
	eventRepo *repository.EventRepository,
	cfg *config.Config,
) *DashboardHandler {
	return &DashboardHandler{userRepo: userRepo, eventRepo: eventRepo, cfg: cfg}
}

// Dashboard godoc
// GET /admin/dashboard
//
// The ops console runs in a separate process from the settlement engine, so
// everything here is derived from the persisted audit trail, not live engine
// state. Live round state is served by the API process at /api/round.
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()

	// ── All-time activity per event type ──────────────────────────────────────
	epoch := time.Unix(0, 0).UTC()
	now := time.Now().UTC()
	totals, err := h.eventRepo.TotalsByType(ctx, epoch, now)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}

	var stakedVolume, slashedVolume, claimedVolume decimal.Decimal
	var submissions, claims int
	for _, t := range totals {
		switch t.Type {
		case domain.EventSubmitted:
			submissions = t.Count
			stakedVolume = stakedVolume.Add(t.Total)
		case domain.EventStaked:
			stakedVolume = stakedVolume.Add(t.Total)
		case domain.EventBanned:
			slashedVolume = t.Total
		case domain.EventClaimed:
			claims = t.Count
			claimedVolume = t.Total
		}
	}

	// ── User base ─────────────────────────────────────────────────────────────
	_, userCount, err := h.userRepo.List(ctx, 1, 0)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}

	// ── Latest activity feed ──────────────────────────────────────────────────
	recent, _ := h.eventRepo.List(ctx, 20, 0)

	respondSuccess(c, http.StatusOK, gin.H{
		"timestamp":      now,
		"users":          userCount,
		"submissions":    submissions,
		"staked_volume":  stakedVolume,
		"slashed_volume": slashedVolume,
		"claims_paid":    claims,
		"claimed_volume": claimedVolume,
		"totals_by_type": totals,
		"recent_events":  recent,
	})
}
