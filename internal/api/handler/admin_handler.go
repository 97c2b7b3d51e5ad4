package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/opentally/stakeround/internal/api/middleware"
	"github.com/opentally/stakeround/internal/engine"
	"github.com/opentally/stakeround/internal/repository"
	"github.com/opentally/stakeround/internal/ws"
)

// AdminHandler handles moderation and settlement endpoints. Routes are gated
// by the admin role; the engine additionally verifies that the caller is the
// current round authority, so a demoted authority cannot act through a stale
// admin account.
type AdminHandler struct {
	eng      *engine.Engine
	userRepo *repository.UserRepository
	hub      *ws.Hub // may be nil
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(eng *engine.Engine, userRepo *repository.UserRepository, hub *ws.Hub) *AdminHandler {
	return &AdminHandler{eng: eng, userRepo: userRepo, hub: hub}
}

// Whitelist godoc
// POST /api/admin/whitelist [JWT + admin]
func (h *AdminHandler) Whitelist(c *gin.Context) {
	var body struct {
		EntryIDs []int64 `json:"entry_ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	if err := h.eng.WhitelistBatch(c.Request.Context(), middleware.GetUserID(c), body.EntryIDs); err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"whitelisted": body.EntryIDs})
}

// Ban godoc
// POST /api/admin/ban [JWT + admin]
func (h *AdminHandler) Ban(c *gin.Context) {
	var body struct {
		EntryID *int64 `json:"entry_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	if err := h.eng.BanAndSlash(c.Request.Context(), middleware.GetUserID(c), *body.EntryID); err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"banned": *body.EntryID})
}

// PickWinner godoc
// POST /api/admin/winner [JWT + admin]
func (h *AdminHandler) PickWinner(c *gin.Context) {
	var body struct {
		EntryID *int64 `json:"entry_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	dist, err := h.eng.PickWinner(c.Request.Context(), middleware.GetUserID(c), *body.EntryID)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	if h.hub != nil {
		h.hub.BroadcastWinnerPicked(ws.WinnerPickedMessage{
			EntryID:    *body.EntryID,
			Burn:       dist.Burn,
			Bonus:      dist.Bonus,
			StakerPool: dist.StakerPool,
			Round:      h.eng.Summary(),
		})
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"entry_id":     *body.EntryID,
		"distribution": dist,
	})
}

// TransferAuthority godoc
// POST /api/admin/transfer [JWT + admin]
func (h *AdminHandler) TransferAuthority(c *gin.Context) {
	var body struct {
		Account uuid.UUID `json:"account" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	if err := h.eng.TransferAdmin(c.Request.Context(), middleware.GetUserID(c), body.Account); err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"authority": body.Account})
}

// Pending godoc
// GET /api/admin/pending?page=&limit= [JWT + admin]
//
// The moderation queue, oldest first.
func (h *AdminHandler) Pending(c *gin.Context) {
	offset, limit, page := parsePaging(c)
	entries, total := h.eng.PendingSubmissions(offset, limit)
	respondList(c, entries, total, page, limit)
}

// ListUsers godoc
// GET /api/admin/users?page=&limit= [JWT + admin]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	offset, limit, page := parsePaging(c)
	users, total, err := h.userRepo.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "failed to list users")
		return
	}

	profiles := make([]interface{}, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.ToPublicProfile())
	}
	respondList(c, profiles, total, page, limit)
}

// SetUserActive godoc
// PATCH /api/admin/users/:id/active [JWT + admin]
func (h *AdminHandler) SetUserActive(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "invalid user id")
		return
	}
	var body struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	if err := h.userRepo.SetActive(c.Request.Context(), userID, *body.Active); err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user_id": userID, "active": *body.Active})
}
