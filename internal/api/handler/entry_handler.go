package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/opentally/stakeround/internal/api/middleware"
	"github.com/opentally/stakeround/internal/domain"
	"github.com/opentally/stakeround/internal/engine"
)

// EntryHandler handles submission, staking, claim, and rescue endpoints.
type EntryHandler struct {
	eng *engine.Engine
}

// NewEntryHandler creates an EntryHandler.
func NewEntryHandler(eng *engine.Engine) *EntryHandler {
	return &EntryHandler{eng: eng}
}

// parsePaging reads page/limit query params with sane defaults.
func parsePaging(c *gin.Context) (offset, limit, page int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return (page - 1) * limit, limit, page
}

// parseEntryID reads the :id path param as an entry id.
func parseEntryID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 0 {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "invalid entry id")
		return 0, false
	}
	return id, true
}

// Submit godoc
// POST /api/entries [JWT required]
func (h *EntryHandler) Submit(c *gin.Context) {
	var body struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	entry, err := h.eng.Submit(c.Request.Context(), middleware.GetUserID(c), body.Content)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, entry)
}

// Stake godoc
// POST /api/entries/:id/stake [JWT required]
func (h *EntryHandler) Stake(c *gin.Context) {
	entryID, ok := parseEntryID(c)
	if !ok {
		return
	}

	entry, err := h.eng.Stake(c.Request.Context(), middleware.GetUserID(c), entryID)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, entry)
}

// GetByID godoc
// GET /api/entries/:id
func (h *EntryHandler) GetByID(c *gin.Context) {
	entryID, ok := parseEntryID(c)
	if !ok {
		return
	}

	detail, err := h.eng.GetEntry(entryID)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, detail)
}

// Top godoc
// GET /api/entries/top?page=&limit=
func (h *EntryHandler) Top(c *gin.Context) {
	offset, limit, page := parsePaging(c)
	entries, total := h.eng.TopSubmissions(offset, limit)
	respondList(c, entries, total, page, limit)
}

// MyShares godoc
// GET /api/entries/:id/shares [JWT required]
func (h *EntryHandler) MyShares(c *gin.Context) {
	entryID, ok := parseEntryID(c)
	if !ok {
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"entry_id": entryID,
		"shares":   h.eng.ShareBalance(entryID, middleware.GetUserID(c)),
	})
}

// Claim godoc
// POST /api/claim [JWT required]
func (h *EntryHandler) Claim(c *gin.Context) {
	receipt, err := h.eng.Claim(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, receipt)
}

// ClaimPreview godoc
// GET /api/claim [JWT required]
func (h *EntryHandler) ClaimPreview(c *gin.Context) {
	userID := middleware.GetUserID(c)
	respondSuccess(c, http.StatusOK, gin.H{
		"can_claim": h.eng.CanClaim(userID),
		"amount":    h.eng.ClaimAmount(userID),
	})
}

// TriggerRescue godoc
// POST /api/rescue/trigger [JWT required]
//
// Open to any authenticated account once the grace delay has elapsed; the
// engine enforces the timing itself.
func (h *EntryHandler) TriggerRescue(c *gin.Context) {
	if err := h.eng.TriggerRescue(c.Request.Context(), middleware.GetUserID(c)); err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"rescue_triggered": true})
}

// WithdrawRescued godoc
// POST /api/rescue/withdraw [JWT required]
func (h *EntryHandler) WithdrawRescued(c *gin.Context) {
	var body struct {
		EntryID *int64 `json:"entry_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	refund, err := h.eng.WithdrawRescued(c.Request.Context(), middleware.GetUserID(c), *body.EntryID)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"entry_id": *body.EntryID,
		"refund":   refund,
	})
}

// statusFilter translates an optional ?status= query into a check function.
// Unknown values reject the request.
func statusFilter(c *gin.Context) (func(domain.EntryStatus) bool, bool) {
	switch c.Query("status") {
	case "":
		return func(domain.EntryStatus) bool { return true }, true
	case string(domain.EntryPending):
		return func(s domain.EntryStatus) bool { return s == domain.EntryPending }, true
	case string(domain.EntryWhitelisted):
		return func(s domain.EntryStatus) bool { return s == domain.EntryWhitelisted }, true
	case string(domain.EntryBanned):
		return func(s domain.EntryStatus) bool { return s == domain.EntryBanned }, true
	default:
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "unknown status filter")
		return nil, false
	}
}

// List godoc
// GET /api/entries?status=&page=&limit=
func (h *EntryHandler) List(c *gin.Context) {
	keep, ok := statusFilter(c)
	if !ok {
		return
	}
	offset, limit, page := parsePaging(c)

	var entries []domain.EntryDetail
	total := 0
	for id := int64(0); id < int64(h.eng.EntryCount()); id++ {
		detail, err := h.eng.GetEntry(id)
		if err != nil || !keep(detail.Status) {
			continue
		}
		if total >= offset && len(entries) < limit {
			entries = append(entries, detail)
		}
		total++
	}
	if entries == nil {
		entries = []domain.EntryDetail{}
	}
	respondList(c, entries, total, page, limit)
}
