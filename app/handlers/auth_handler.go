package handlers

import (
	"log"

	"github.com/amirphl/ring-crm/app/dto"
	"github.com/amirphl/ring-crm/app/middleware"
	businessflow "github.com/amirphl/ring-crm/business_flow"
	"github.com/gofiber/fiber/v3"
)

// AuthHandlerInterface defines the contract for authentication handlers
type AuthHandlerInterface interface {
	Signup(c fiber.Ctx) error
	Login(c fiber.Ctx) error
	Refresh(c fiber.Ctx) error
	Logout(c fiber.Ctx) error
	RequestPasswordReset(c fiber.Ctx) error
	ResetPassword(c fiber.Ctx) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	baseHandler
	signupFlow businessflow.SignupFlow
	loginFlow  businessflow.LoginFlow
	resetFlow  businessflow.PasswordResetFlow
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(
	signupFlow businessflow.SignupFlow,
	loginFlow businessflow.LoginFlow,
	resetFlow businessflow.PasswordResetFlow,
	logger *log.Logger,
) *AuthHandler {
	return &AuthHandler{
		baseHandler: newBaseHandler(logger),
		signupFlow:  signupFlow,
		loginFlow:   loginFlow,
		resetFlow:   resetFlow,
	}
}

// Signup handles account creation
// @Summary User Registration
// @Description Create an account and sign in
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.SignupRequest true "User registration data"
// @Success 201 {object} dto.APIResponse{data=dto.AuthResponse} "User created"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 409 {object} dto.APIResponse "User already exists"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/auth/signup [post]
func (h *AuthHandler) Signup(c fiber.Ctx) error {
	var req dto.SignupRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/auth/signup")
	defer cancel()

	result, err := h.signupFlow.Signup(ctx, &req, h.metadata(c))
	if err != nil {
		if businessflow.IsUserAlreadyExists(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "User already exists", "USER_EXISTS", nil)
		}
		return h.HandleBusinessError(c, err, "SIGNUP_FAILED", "Signup failed")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "User created successfully", result)
}

// Login handles user login
// @Summary User Login
// @Description Authenticate with email and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.APIResponse{data=dto.AuthResponse} "Login successful"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Invalid credentials"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req dto.LoginRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/auth/login")
	defer cancel()

	result, err := h.loginFlow.Login(ctx, &req, h.metadata(c))
	if err != nil {
		if businessflow.IsInvalidCredentials(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid email or password", "INVALID_CREDENTIALS", nil)
		}
		return h.HandleBusinessError(c, err, "LOGIN_FAILED", "Login failed")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Login successful", result)
}

// Refresh exchanges a refresh token for a new token pair
// @Summary Refresh Tokens
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} dto.APIResponse{data=dto.AuthResponse} "Tokens refreshed"
// @Failure 401 {object} dto.APIResponse "Invalid refresh token"
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c fiber.Ctx) error {
	var req dto.RefreshTokenRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/auth/refresh")
	defer cancel()

	result, err := h.loginFlow.Refresh(ctx, &req)
	if err != nil {
		return h.HandleBusinessError(c, err, "REFRESH_FAILED", "Token refresh failed")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Tokens refreshed", result)
}

// Logout revokes the presented access token
// @Summary Logout
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse "Logged out"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	userID, ok, err := h.currentUser(c)
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/auth/logout")
	defer cancel()

	if err := h.loginFlow.Logout(ctx, userID, middleware.GetAccessTokenFromContext(c), h.metadata(c)); err != nil {
		return h.HandleBusinessError(c, err, "LOGOUT_FAILED", "Logout failed")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Logged out successfully", nil)
}

// RequestPasswordReset mails a reset link
// @Summary Request Password Reset
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.RequestPasswordResetRequest true "Account email"
// @Success 200 {object} dto.APIResponse "Reset link sent"
// @Failure 404 {object} dto.APIResponse "User not found"
// @Router /api/v1/auth/request-reset-password [post]
func (h *AuthHandler) RequestPasswordReset(c fiber.Ctx) error {
	var req dto.RequestPasswordResetRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/auth/request-reset-password")
	defer cancel()

	if err := h.resetFlow.RequestReset(ctx, &req, h.metadata(c)); err != nil {
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND", nil)
		}
		return h.HandleBusinessError(c, err, "PASSWORD_RESET_REQUEST_FAILED", "Password reset request failed")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Password reset link sent to email", nil)
}

// ResetPassword sets a new password using the emailed token
// @Summary Reset Password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param token path string true "Reset token"
// @Param request body dto.ResetPasswordRequest true "New password"
// @Success 200 {object} dto.APIResponse "Password updated"
// @Failure 400 {object} dto.APIResponse "Invalid or expired token"
// @Router /api/v1/auth/reset-password/{token} [post]
func (h *AuthHandler) ResetPassword(c fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/auth/reset-password")
	defer cancel()

	if err := h.resetFlow.ResetPassword(ctx, c.Params("token"), &req, h.metadata(c)); err != nil {
		if businessflow.IsResetTokenInvalid(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid or expired token", "INVALID_RESET_TOKEN", nil)
		}
		return h.HandleBusinessError(c, err, "PASSWORD_RESET_FAILED", "Password reset failed")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Password has been reset successfully", nil)
}
