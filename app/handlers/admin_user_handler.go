package handlers

import (
	"log"

	"github.com/amirphl/ring-crm/app/dto"
	businessflow "github.com/amirphl/ring-crm/business_flow"
	"github.com/gofiber/fiber/v3"
)

type AdminUserHandlerInterface interface {
	ListUsers(c fiber.Ctx) error
	CreateUser(c fiber.Ctx) error
	UpdateUser(c fiber.Ctx) error
	DeleteUser(c fiber.Ctx) error
}

// AdminUserHandler manages user accounts from the admin panel
type AdminUserHandler struct {
	baseHandler
	flow businessflow.AdminUserFlow
}

func NewAdminUserHandler(flow businessflow.AdminUserFlow, logger *log.Logger) *AdminUserHandler {
	return &AdminUserHandler{baseHandler: newBaseHandler(logger), flow: flow}
}

// ListUsers lists user accounts
// @Summary List users
// @Tags Admin Users
// @Produce json
// @Security BearerAuth
// @Param search query string false "Name or email contains"
// @Param role query string false "user or admin"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.AdminListUsersResponse} "Users retrieved"
// @Failure 403 {object} dto.APIResponse "Administrator access required"
// @Router /api/v1/admin/users [get]
func (h *AdminUserHandler) ListUsers(c fiber.Ctx) error {
	var req dto.AdminListUsersRequest
	if ok, err := h.bindQuery(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/users")
	defer cancel()

	resp, err := h.flow.ListUsers(ctx, &req)
	if err != nil {
		return h.HandleBusinessError(c, err, "LIST_USERS_FAILED", "Failed to list users")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Users retrieved successfully", resp)
}

// CreateUser creates an account
// @Summary Create user
// @Tags Admin Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.AdminCreateUserRequest true "User"
// @Success 201 {object} dto.APIResponse{data=dto.UserDTO} "User created"
// @Failure 409 {object} dto.APIResponse "Email already used"
// @Router /api/v1/admin/users [post]
func (h *AdminUserHandler) CreateUser(c fiber.Ctx) error {
	adminID, ok, err := h.currentUser(c)
	if !ok {
		return err
	}
	var req dto.AdminCreateUserRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/users")
	defer cancel()

	user, err := h.flow.CreateUser(ctx, adminID, &req, h.metadata(c))
	if err != nil {
		return h.HandleBusinessError(c, err, "CREATE_USER_FAILED", "Failed to create user")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "User created successfully", user)
}

// UpdateUser applies a partial update to an account
// @Summary Update user
// @Tags Admin Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body dto.AdminUpdateUserRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.UserDTO} "User updated"
// @Failure 404 {object} dto.APIResponse "User not found"
// @Router /api/v1/admin/users/{id} [put]
func (h *AdminUserHandler) UpdateUser(c fiber.Ctx) error {
	adminID, ok, err := h.currentUser(c)
	if !ok {
		return err
	}
	id, ok, err := h.idParam(c, "id")
	if !ok {
		return err
	}
	var req dto.AdminUpdateUserRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/users/:id")
	defer cancel()

	user, err := h.flow.UpdateUser(ctx, adminID, id, &req, h.metadata(c))
	if err != nil {
		return h.HandleBusinessError(c, err, "UPDATE_USER_FAILED", "Failed to update user")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "User updated successfully", user)
}

// DeleteUser removes an account and everything it owns
// @Summary Delete user
// @Tags Admin Users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} dto.APIResponse "User deleted"
// @Failure 400 {object} dto.APIResponse "Cannot delete own account"
// @Failure 404 {object} dto.APIResponse "User not found"
// @Router /api/v1/admin/users/{id} [delete]
func (h *AdminUserHandler) DeleteUser(c fiber.Ctx) error {
	adminID, ok, err := h.currentUser(c)
	if !ok {
		return err
	}
	id, ok, err := h.idParam(c, "id")
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/users/:id")
	defer cancel()

	if err := h.flow.DeleteUser(ctx, adminID, id, h.metadata(c)); err != nil {
		return h.HandleBusinessError(c, err, "DELETE_USER_FAILED", "Failed to delete user")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "User deleted successfully", nil)
}
