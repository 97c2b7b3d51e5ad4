package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/opentally/stakeround/internal/config"
	"github.com/opentally/stakeround/internal/domain"
	"github.com/opentally/stakeround/internal/repository"
)

// UserAdminHandler serves /admin/users endpoints.
type UserAdminHandler struct {
	userRepo  *repository.UserRepository
	eventRepo *repository.EventRepository
	cfg       *config.Config
}

// NewUserAdminHandler creates a UserAdminHandler.
func NewUserAdminHandler(
	userRepo *repository.UserRepository,
	eventRepo *repository.EventRepository,
	cfg *config.Config,
) *UserAdminHandler {
	return &UserAdminHandler{userRepo: userRepo, eventRepo: eventRepo, cfg: cfg}
}

// List godoc
// GET /admin/users?page=1&limit=50
func (h *UserAdminHandler) List(c *gin.Context) {
	page, limit := adminPagination(c)
	offset := (page - 1) * limit

	users, total, err := h.userRepo.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	profiles := make([]domain.PublicProfile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.ToPublicProfile())
	}
	respondList(c, profiles, total, page, limit)
}

// Detail godoc
// GET /admin/users/:id
func (h *UserAdminHandler) Detail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid user id")
		return
	}

	ctx := c.Request.Context()
	user, err := h.userRepo.GetByID(ctx, id)
	if err != nil {
		if err == domain.ErrUserNotFound {
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}

	events, _ := h.eventRepo.ListByActor(ctx, id, 50, 0)

	respondSuccess(c, http.StatusOK, gin.H{
		"user":   user.ToPublicProfile(),
		"events": events,
	})
}

// Suspend godoc
// POST /admin/users/:id/suspend
func (h *UserAdminHandler) Suspend(c *gin.Context) {
	h.setActive(c, false)
}

// Activate godoc
// POST /admin/users/:id/activate
func (h *UserAdminHandler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

func (h *UserAdminHandler) setActive(c *gin.Context, active bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid user id")
		return
	}
	if err = h.userRepo.SetActive(c.Request.Context(), id, active); err != nil {
		if err == domain.ErrUserNotFound {
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user_id": id, "is_active": active})
}

// SetRole godoc
// POST /admin/users/:id/role
// Body: {"role": "admin"}
func (h *UserAdminHandler) SetRole(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid user id")
		return
	}
	var body struct {
		Role string `json:"role" binding:"required"`
	}
	if err = c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	role := domain.UserRole(body.Role)
	if role != domain.RoleUser && role != domain.RoleAdmin {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ROLE", "unknown role")
		return
	}
	if err = h.userRepo.UpdateRole(c.Request.Context(), id, role); err != nil {
		if err == domain.ErrUserNotFound {
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user_id": id, "role": role})
}
