package handlers

import (
	"log"

	"github.com/amirphl/ring-crm/app/dto"
	businessflow "github.com/amirphl/ring-crm/business_flow"
	"github.com/gofiber/fiber/v3"
)

// PaymentHandlerInterface defines the contract for payment handlers
type PaymentHandlerInterface interface {
	CreateOrder(c fiber.Ctx) error
	VerifyPayment(c fiber.Ctx) error
	SubscriptionStatus(c fiber.Ctx) error
}

// PaymentHandler handles subscription purchase requests
type PaymentHandler struct {
	baseHandler
	paymentFlow businessflow.PaymentFlow
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentFlow businessflow.PaymentFlow, logger *log.Logger) *PaymentHandler {
	return &PaymentHandler{
		baseHandler: newBaseHandler(logger),
		paymentFlow: paymentFlow,
	}
}

// CreateOrder registers a pending order for a subscription plan
// @Summary Create payment order
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body dto.CreateOrderRequest true "Plan and buyer email"
// @Success 200 {object} dto.APIResponse{data=dto.CreateOrderResponse} "Order created"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 503 {object} dto.APIResponse "Payment gateway not configured"
// @Router /api/v1/payments/create-order [post]
func (h *PaymentHandler) CreateOrder(c fiber.Ctx) error {
	var req dto.CreateOrderRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/payments/create-order")
	defer cancel()

	resp, err := h.paymentFlow.CreateOrder(ctx, &req)
	if err != nil {
		return h.HandleBusinessError(c, err, "CREATE_ORDER_FAILED", "Failed to create order")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Order created successfully", resp)
}

// VerifyPayment checks the gateway signature and activates the subscription
// @Summary Verify payment
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body dto.VerifyPaymentRequest true "Checkout callback fields"
// @Success 200 {object} dto.APIResponse{data=dto.VerifyPaymentResponse} "Payment verified"
// @Failure 400 {object} dto.APIResponse "Signature mismatch"
// @Failure 404 {object} dto.APIResponse "Unknown order"
// @Failure 409 {object} dto.APIResponse "Payment already verified"
// @Router /api/v1/payments/verify [post]
func (h *PaymentHandler) VerifyPayment(c fiber.Ctx) error {
	var req dto.VerifyPaymentRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/payments/verify")
	defer cancel()

	resp, err := h.paymentFlow.VerifyPayment(ctx, &req, h.metadata(c))
	if err != nil {
		return h.HandleBusinessError(c, err, "VERIFY_PAYMENT_FAILED", "Payment verification failed")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Payment verified successfully", resp)
}

// SubscriptionStatus reports the plan state of an email
// @Summary Subscription status
// @Tags Payments
// @Produce json
// @Param email query string true "Account email"
// @Success 200 {object} dto.APIResponse{data=dto.SubscriptionStatusResponse} "Status retrieved"
// @Failure 400 {object} dto.APIResponse "Email required"
// @Router /api/v1/payments/status [get]
func (h *PaymentHandler) SubscriptionStatus(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/payments/status")
	defer cancel()

	resp, err := h.paymentFlow.SubscriptionStatus(ctx, c.Query("email"))
	if err != nil {
		return h.HandleBusinessError(c, err, "SUBSCRIPTION_STATUS_FAILED", "Failed to get subscription status")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Subscription status retrieved", resp)
}
