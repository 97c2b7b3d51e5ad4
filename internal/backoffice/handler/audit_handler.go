package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/opentally/stakeround/internal/config"
	"github.com/opentally/stakeround/internal/domain"
	"github.com/opentally/stakeround/internal/repository"
)

// AuditHandler serves /admin/audit endpoints over the settlement event trail.
type AuditHandler struct {
	eventRepo *repository.EventRepository
	cfg       *config.Config
}

// NewAuditHandler creates an AuditHandler.
func NewAuditHandler(eventRepo *repository.EventRepository, cfg *config.Config) *AuditHandler {
	return &AuditHandler{eventRepo: eventRepo, cfg: cfg}
}

// Events godoc
// GET /admin/audit/events?type=staked&page=1&limit=50
func (h *AuditHandler) Events(c *gin.Context) {
	page, limit := adminPagination(c)
	offset := (page - 1) * limit

	var (
		evs []*domain.SettlementEvent
		err error
	)
	if t := c.Query("type"); t != "" {
		evs, err = h.eventRepo.ListByType(c.Request.Context(), domain.EventType(t), limit, offset)
	} else {
		evs, err = h.eventRepo.List(c.Request.Context(), limit, offset)
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	respondList(c, evs, len(evs), page, limit)
}

// ActorEvents godoc
// GET /admin/audit/actors/:id/events?page=1&limit=50
func (h *AuditHandler) ActorEvents(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid actor id")
		return
	}
	page, limit := adminPagination(c)
	offset := (page - 1) * limit

	evs, err := h.eventRepo.ListByActor(c.Request.Context(), id, limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	respondList(c, evs, len(evs), page, limit)
}

// Report godoc
// GET /admin/audit/report?from=2026-01-01&to=2026-01-31
//
// Aggregates event counts and moved amounts per event type over a date range.
// Defaults to the last 30 days.
func (h *AuditHandler) Report(c *gin.Context) {
	fromStr := c.Query("from")
	toStr := c.Query("to")

	var from, to time.Time
	var err error
	if fromStr != "" {
		from, err = time.Parse("2006-01-02", fromStr)
		if err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_DATE", "from must be YYYY-MM-DD")
			return
		}
	} else {
		from = time.Now().UTC().AddDate(0, -1, 0).Truncate(24 * time.Hour)
	}
	if toStr != "" {
		to, err = time.Parse("2006-01-02", toStr)
		if err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_DATE", "to must be YYYY-MM-DD")
			return
		}
		to = to.Add(24 * time.Hour) // inclusive
	} else {
		to = time.Now().UTC()
	}

	totals, err := h.eventRepo.TotalsByType(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"from":   from,
		"to":     to,
		"totals": totals,
	})
}
