package dto

import "time"

// CreateOrderRequest starts a subscription purchase
type CreateOrderRequest struct {
	Email string `json:"email" validate:"required,email,max=255" example:"priya@example.com"`
	Plan  string `json:"plan" validate:"required,oneof=half yearly" example:"yearly"`
}

type CreateOrderResponse struct {
	OrderID  string `json:"order_id" example:"order_6a1f..."`
	Amount   int64  `json:"amount" example:"499900"`
	Currency string `json:"currency" example:"INR"`
	KeyID    string `json:"key_id,omitempty"`
}

// VerifyPaymentRequest carries the gateway's checkout callback fields
type VerifyPaymentRequest struct {
	OrderID   string `json:"order_id" validate:"required,max=255"`
	PaymentID string `json:"payment_id" validate:"required,max=255"`
	Signature string `json:"signature" validate:"required,max=255"`
	Email     string `json:"email" validate:"required,email,max=255"`
}

type VerifyPaymentResponse struct {
	Plan      string    `json:"plan"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SubscriptionStatusResponse reports whether an email has a running paid plan
type SubscriptionStatusResponse struct {
	Status    string     `json:"status" example:"active"`
	Plan      string     `json:"plan,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
