package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opentally/stakeround/internal/engine"
	"github.com/opentally/stakeround/internal/repository"
)

// RoundHandler exposes the public round views and the settlement audit trail.
type RoundHandler struct {
	eng       *engine.Engine
	eventRepo *repository.EventRepository
}

// NewRoundHandler creates a RoundHandler.
func NewRoundHandler(eng *engine.Engine, eventRepo *repository.EventRepository) *RoundHandler {
	return &RoundHandler{eng: eng, eventRepo: eventRepo}
}

// Get godoc
// GET /api/round
func (h *RoundHandler) Get(c *gin.Context) {
	respondSuccess(c, http.StatusOK, h.eng.Summary())
}

// Winner godoc
// GET /api/round/winner
func (h *RoundHandler) Winner(c *gin.Context) {
	selected, entryID := h.eng.WinnerInfo()
	data := gin.H{"selected": selected}
	if selected {
		data["entry_id"] = entryID
	}
	respondSuccess(c, http.StatusOK, data)
}

// Rescue godoc
// GET /api/round/rescue
func (h *RoundHandler) Rescue(c *gin.Context) {
	triggered, windowOpen := h.eng.RescueState()
	respondSuccess(c, http.StatusOK, gin.H{
		"triggered":   triggered,
		"window_open": windowOpen,
	})
}

// Events godoc
// GET /api/round/events?page=&limit=
func (h *RoundHandler) Events(c *gin.Context) {
	offset, limit, page := parsePaging(c)
	events, err := h.eventRepo.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "failed to load events")
		return
	}
	respondList(c, events, len(events), page, limit)
}

// EntryEvents godoc
// GET /api/entries/:id/events?page=&limit=
func (h *RoundHandler) EntryEvents(c *gin.Context) {
	entryID, ok := parseEntryID(c)
	if !ok {
		return
	}
	offset, limit, page := parsePaging(c)
	events, err := h.eventRepo.ListByEntry(c.Request.Context(), entryID, limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "failed to load events")
		return
	}
	respondList(c, events, len(events), page, limit)
}
