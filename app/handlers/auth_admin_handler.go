package handlers

import (
	"log"

	"github.com/amirphl/ring-crm/app/dto"
	businessflow "github.com/amirphl/ring-crm/business_flow"
	"github.com/gofiber/fiber/v3"
)

// AdminAuthHandlerInterface defines the contract for admin auth handlers
type AdminAuthHandlerInterface interface {
	InitCaptcha(c fiber.Ctx) error
	Login(c fiber.Ctx) error
}

// AdminAuthHandler implements AdminAuthHandlerInterface
type AdminAuthHandler struct {
	baseHandler
	flow businessflow.AdminAuthFlow
}

func NewAdminAuthHandler(flow businessflow.AdminAuthFlow, logger *log.Logger) *AdminAuthHandler {
	return &AdminAuthHandler{baseHandler: newBaseHandler(logger), flow: flow}
}

// InitCaptcha starts the admin login by returning a rotate captcha challenge
// @Summary Admin captcha init
// @Description Initialize rotate captcha for admin login (returns base64 images and challenge ID)
// @Tags Admin Authentication
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.CaptchaInitResponse} "Captcha initialized"
// @Failure 500 {object} dto.APIResponse "Failed to initialize captcha"
// @Router /api/v1/admin/captcha/init [get]
func (h *AdminAuthHandler) InitCaptcha(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/captcha/init")
	defer cancel()

	resp, err := h.flow.InitCaptcha(ctx)
	if err != nil {
		h.logger.Println("Admin captcha init failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Admin captcha init failed", "ADMIN_CAPTCHA_INIT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Captcha initialized", resp)
}

// Login completes admin login by verifying captcha and credentials
// @Summary Admin login
// @Description Verify captcha and authenticate an administrator with email and password
// @Tags Admin Authentication
// @Accept json
// @Produce json
// @Param request body dto.AdminLoginRequest true "Admin login data"
// @Success 200 {object} dto.APIResponse{data=dto.AuthResponse} "Login successful"
// @Failure 400 {object} dto.APIResponse "Invalid request or captcha"
// @Failure 401 {object} dto.APIResponse "Incorrect credentials"
// @Failure 403 {object} dto.APIResponse "Not an administrator"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/auth/login [post]
func (h *AdminAuthHandler) Login(c fiber.Ctx) error {
	var req dto.AdminLoginRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/auth/login")
	defer cancel()

	result, err := h.flow.Login(ctx, &req, h.metadata(c))
	if err != nil {
		switch {
		case businessflow.IsCaptchaInvalid(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid captcha", "INVALID_CAPTCHA", nil)
		case businessflow.IsInvalidCredentials(err):
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid email or password", "INVALID_CREDENTIALS", nil)
		case businessflow.IsNotAdmin(err):
			return h.ErrorResponse(c, fiber.StatusForbidden, "Administrator access required", "ADMIN_REQUIRED", nil)
		}
		return h.HandleBusinessError(c, err, "LOGIN_FAILED", "Login failed")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Login successful", result)
}
