package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opentally/stakeround/internal/domain"
)

// ──────────────────────────────────────────────────────────────────────────────
// Standard response helpers
// ──────────────────────────────────────────────────────────────────────────────

// respondSuccess writes {"success": true, "data": data} with the given status.
func respondSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondError writes {"success": false, "error": msg, "code": code}.
func respondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   msg,
		"code":    code,
	})
}

// respondList writes {"success": true, "data": items, "meta": {...}}.
func respondList(c *gin.Context, items interface{}, total, page, limit int) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"meta": gin.H{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

// respondEngineError translates engine/domain errors into HTTP responses using
// the domain predicates, so every handler maps the taxonomy the same way.
func respondEngineError(c *gin.Context, err error) {
	switch {
	case domain.IsValidation(err):
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
	case domain.IsAuthError(err):
		respondError(c, http.StatusForbidden, "ERR_FORBIDDEN", err.Error())
	case domain.IsValueTransfer(err):
		respondError(c, http.StatusPaymentRequired, "ERR_VALUE_TRANSFER", err.Error())
	case domain.IsConflict(err):
		respondError(c, http.StatusConflict, "ERR_CONFLICT", err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "operation failed")
	}
}
