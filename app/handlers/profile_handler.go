package handlers

import (
	"log"

	businessflow "github.com/amirphl/ring-crm/business_flow"
	"github.com/gofiber/fiber/v3"
)

type ProfileHandlerInterface interface {
	GetProfile(c fiber.Ctx) error
}

type ProfileHandler struct {
	baseHandler
	flow businessflow.ProfileFlow
}

func NewProfileHandler(flow businessflow.ProfileFlow, logger *log.Logger) *ProfileHandler {
	return &ProfileHandler{baseHandler: newBaseHandler(logger), flow: flow}
}

// GetProfile returns the authenticated user's profile and subscription state
// @Summary Get profile
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.UserDTO} "Profile retrieved successfully"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/auth/profile [get]
func (h *ProfileHandler) GetProfile(c fiber.Ctx) error {
	userID, ok, err := h.currentUser(c)
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/auth/profile")
	defer cancel()

	profile, err := h.flow.GetProfile(ctx, userID)
	if err != nil {
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND", nil)
		}
		return h.HandleBusinessError(c, err, "GET_PROFILE_FAILED", "Failed to get profile")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Profile retrieved successfully", profile)
}
