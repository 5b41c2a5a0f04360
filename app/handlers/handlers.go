// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/amirphl/ring-crm/app/dto"
	"github.com/amirphl/ring-crm/app/middleware"
	businessflow "github.com/amirphl/ring-crm/business_flow"
	"github.com/amirphl/ring-crm/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

const defaultRequestTimeout = 30 * time.Second

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return err.Field() + " must be at least " + err.Param()
	case "max":
		return err.Field() + " must be at most " + err.Param()
	case "len":
		return err.Field() + " must be exactly " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "eqfield":
		return err.Field() + " must match " + err.Param()
	case "numeric":
		return err.Field() + " must contain only numbers"
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}

// baseHandler carries what every handler needs: a validator, the response envelope and the
// mapping from business errors to HTTP status codes
type baseHandler struct {
	validator *validator.Validate
	logger    *log.Logger
}

func newBaseHandler(logger *log.Logger) baseHandler {
	if logger == nil {
		logger = log.Default()
	}
	return baseHandler{validator: validator.New(), logger: logger}
}

func (h *baseHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *baseHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// validate runs struct validation and writes the 400 response itself. It returns false when the
// handler must stop.
func (h *baseHandler) validate(c fiber.Ctx, req any) (bool, error) {
	err := h.validator.Struct(req)
	if err == nil {
		return true, nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", err.Error())
	}
	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		messages = append(messages, getValidationErrorMessage(fe))
	}
	return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", messages)
}

// bindJSON decodes and validates the body. It returns false when a response was already written.
func (h *baseHandler) bindJSON(c fiber.Ctx, req any) (bool, error) {
	if err := c.Bind().JSON(req); err != nil {
		return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	return h.validate(c, req)
}

// bindQuery decodes and validates query parameters
func (h *baseHandler) bindQuery(c fiber.Ctx, req any) (bool, error) {
	if err := c.Bind().Query(req); err != nil {
		return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_QUERY", err.Error())
	}
	return h.validate(c, req)
}

// createRequestContext creates a context with request-scoped values and a timeout
func (h *baseHandler) createRequestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultRequestTimeout)

	ctx = context.WithValue(ctx, businessflow.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)

	return ctx, cancel
}

func (h *baseHandler) metadata(c fiber.Ctx) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	if requestID := c.Get("X-Request-ID"); requestID != "" {
		metadata.SetRequestID(requestID)
	}
	return metadata
}

// currentUser returns the authenticated user ID or writes a 401
func (h *baseHandler) currentUser(c fiber.Ctx) (uint, bool, error) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return 0, false, h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}
	return userID, true, nil
}

// idParam parses a positive numeric path parameter or writes a 400
func (h *baseHandler) idParam(c fiber.Ctx, name string) (uint, bool, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false, h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid "+name, "INVALID_ID", nil)
	}
	return uint(id), true, nil
}

// statusFor maps business errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case businessflow.IsValidationError(err),
		errors.Is(err, businessflow.ErrCaptchaInvalid),
		errors.Is(err, businessflow.ErrResetTokenInvalid),
		errors.Is(err, businessflow.ErrCannotDeleteSelf),
		businessflow.IsPaymentSignatureMismatch(err):
		return fiber.StatusBadRequest
	case businessflow.IsInvalidCredentials(err),
		errors.Is(err, businessflow.ErrRefreshTokenInvalid):
		return fiber.StatusUnauthorized
	case businessflow.IsNotAdmin(err):
		return fiber.StatusForbidden
	case businessflow.IsNotFound(err):
		return fiber.StatusNotFound
	case businessflow.IsUserAlreadyExists(err),
		errors.Is(err, businessflow.ErrPaymentAlreadyUsed):
		return fiber.StatusConflict
	case errors.Is(err, businessflow.ErrPaymentNotConfigured):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// HandleBusinessError writes the error envelope for err. Client errors carry the business code and
// message; anything else is logged and answered with the fallback.
func (h *baseHandler) HandleBusinessError(c fiber.Ctx, err error, fallbackCode, fallbackMessage string) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		h.logger.Printf("%s %s failed: %v", c.Method(), c.Path(), err)
		return h.ErrorResponse(c, status, fallbackMessage, fallbackCode, nil)
	}

	code, message := fallbackCode, fallbackMessage
	var be *businessflow.BusinessError
	if errors.As(err, &be) {
		code, message = be.Code, be.Message
	}

	var details any
	if be != nil && be.Err != nil && status == fiber.StatusBadRequest {
		details = be.Err.Error()
	}
	return h.ErrorResponse(c, status, message, code, details)
}
