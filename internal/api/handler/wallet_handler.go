package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/opentally/stakeround/internal/api/middleware"
	"github.com/opentally/stakeround/internal/config"
	"github.com/opentally/stakeround/internal/ledger"
	"github.com/opentally/stakeround/internal/repository"
)

// WalletHandler exposes the dev-ledger: balance, engine allowance, faucet,
// and the caller's own settlement history.
type WalletHandler struct {
	token     *ledger.MemoryLedger
	eventRepo *repository.EventRepository
	cfg       *config.Config
}

// NewWalletHandler creates a WalletHandler.
func NewWalletHandler(token *ledger.MemoryLedger, eventRepo *repository.EventRepository, cfg *config.Config) *WalletHandler {
	return &WalletHandler{token: token, eventRepo: eventRepo, cfg: cfg}
}

// GetBalance godoc
// GET /api/wallet/balance [JWT required]
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID := middleware.GetUserID(c)
	respondSuccess(c, http.StatusOK, gin.H{
		"balance":   h.token.BalanceOf(userID),
		"allowance": h.token.AllowanceOf(userID),
	})
}

// Approve godoc
// POST /api/wallet/approve [JWT required]
//
// Sets (not adds to) the caller's transfer allowance toward the engine.
func (h *WalletHandler) Approve(c *gin.Context) {
	var body struct {
		Amount decimal.Decimal `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	if body.Amount.IsNegative() {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "amount must not be negative")
		return
	}

	userID := middleware.GetUserID(c)
	h.token.Approve(userID, body.Amount)
	respondSuccess(c, http.StatusOK, gin.H{
		"allowance": h.token.AllowanceOf(userID),
	})
}

// Faucet godoc
// POST /api/wallet/faucet [JWT required]
//
// Mints the configured faucet amount to the caller. Dev convenience only;
// disabled in production where a real token adapter backs the ledger.
func (h *WalletHandler) Faucet(c *gin.Context) {
	if h.cfg.IsProd() {
		respondError(c, http.StatusForbidden, "ERR_FORBIDDEN", "faucet is disabled in production")
		return
	}

	userID := middleware.GetUserID(c)
	h.token.Mint(userID, h.cfg.Ledger.FaucetAmount)
	respondSuccess(c, http.StatusOK, gin.H{
		"balance": h.token.BalanceOf(userID),
	})
}

// MyEvents godoc
// GET /api/wallet/events [JWT required]
func (h *WalletHandler) MyEvents(c *gin.Context) {
	offset, limit, page := parsePaging(c)
	events, err := h.eventRepo.ListByActor(c.Request.Context(), middleware.GetUserID(c), limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "failed to load events")
		return
	}
	respondList(c, events, len(events), page, limit)
}
