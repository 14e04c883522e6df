package handler

import (
	"github.com/gin-gonic/gin"

	appidentity "github.com/distrib/backend/internal/application/identity"
	"github.com/distrib/backend/internal/interfaces/http/dto"
)

// UserHandler lets administrators manage accounts
type UserHandler struct {
	BaseHandler
	userService *appidentity.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *appidentity.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// ListUsersQuery filters GET /users
type ListUsersQuery struct {
	dto.Pagination
	Role string `form:"role" binding:"omitempty,oneof=ADMIN DISTRIBUTOR"`
}

// Create handles POST /users
func (h *UserHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req appidentity.CreateUserRequest
	if !h.bindJSON(c, &req) {
		return
	}

	user, err := h.userService.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, user)
}

// List handles GET /users
func (h *UserHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q ListUsersQuery
	if !h.bindQuery(c, &q) {
		return
	}
	page := q.Normalize()

	users, total, err := h.userService.List(c.Request.Context(), actor, appidentity.UserListFilter{
		Role:     q.Role,
		Page:     page.Page,
		PageSize: page.PageSize,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, users, total, page.Page, page.PageSize)
}

// Deactivate handles POST /users/:id/deactivate
func (h *UserHandler) Deactivate(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	user, err := h.userService.Deactivate(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}
