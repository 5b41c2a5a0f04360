package businessflow

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/ring-crm/app/dto"
	"github.com/amirphl/ring-crm/config"
	"github.com/amirphl/ring-crm/models"
	"github.com/amirphl/ring-crm/repository"
	"github.com/amirphl/ring-crm/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Subscription states reported by SubscriptionStatus
const (
	SubscriptionActive   = "active"
	SubscriptionInactive = "inactive"
)

// PaymentFlow handles subscription purchases
type PaymentFlow interface {
	CreateOrder(ctx context.Context, req *dto.CreateOrderRequest) (*dto.CreateOrderResponse, error)
	VerifyPayment(ctx context.Context, req *dto.VerifyPaymentRequest, metadata *ClientMetadata) (*dto.VerifyPaymentResponse, error)
	SubscriptionStatus(ctx context.Context, email string) (*dto.SubscriptionStatusResponse, error)
}

// PaymentFlowImpl implements the payment business flow
type PaymentFlowImpl struct {
	paymentRepo repository.PaymentRepository
	userRepo    repository.UserRepository
	auditRepo   repository.AuditLogRepository
	db          *gorm.DB
	paymentCfg  config.PaymentConfig
	now         func() time.Time
}

// NewPaymentFlow creates a new payment flow instance
func NewPaymentFlow(
	paymentRepo repository.PaymentRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
	paymentCfg config.PaymentConfig,
) PaymentFlow {
	return &PaymentFlowImpl{
		paymentRepo: paymentRepo,
		userRepo:    userRepo,
		auditRepo:   auditRepo,
		db:          db,
		paymentCfg:  paymentCfg,
		now:         utils.UTCNow,
	}
}

// PaymentSignature is the checkout signature the gateway sends back for an order and payment
func PaymentSignature(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// CreateOrder records a pending purchase and returns the order the checkout page pays
func (pf *PaymentFlowImpl) CreateOrder(ctx context.Context, req *dto.CreateOrderRequest) (*dto.CreateOrderResponse, error) {
	amount, ok := models.PlanAmount(req.Plan)
	if !ok {
		return nil, NewBusinessError("PAYMENT_VALIDATION_FAILED", "Payment validation failed", ErrInvalidPlan)
	}

	payment := &models.Payment{
		Email:          utils.NormalizeEmail(req.Email),
		Plan:           req.Plan,
		Amount:         amount,
		Currency:       utils.PaymentCurrency,
		GatewayOrderID: "order_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Status:         models.PaymentStatusCreated,
	}
	if err := pf.paymentRepo.Save(ctx, payment); err != nil {
		return nil, NewBusinessError("CREATE_ORDER_FAILED", "Error creating order", err)
	}

	return &dto.CreateOrderResponse{
		OrderID:  payment.GatewayOrderID,
		Amount:   payment.Amount,
		Currency: payment.Currency,
		KeyID:    pf.paymentCfg.KeyID,
	}, nil
}

// VerifyPayment checks the gateway signature, marks the order paid and activates the plan on the
// account with that email, if there is one
func (pf *PaymentFlowImpl) VerifyPayment(ctx context.Context, req *dto.VerifyPaymentRequest, metadata *ClientMetadata) (*dto.VerifyPaymentResponse, error) {
	if pf.paymentCfg.KeySecret == "" {
		return nil, NewBusinessError("PAYMENT_NOT_CONFIGURED", "Payment gateway is not configured", ErrPaymentNotConfigured)
	}

	expected := PaymentSignature(pf.paymentCfg.KeySecret, req.OrderID, req.PaymentID)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(req.Signature))) {
		return nil, NewBusinessError("INVALID_SIGNATURE", "Invalid signature", ErrPaymentSignatureMismatch)
	}

	var payment *models.Payment
	var activatedUser *uint
	err := repository.WithTransaction(ctx, pf.db, func(ctx context.Context) error {
		var err error
		payment, err = pf.paymentRepo.ByOrderID(ctx, req.OrderID, req.Email)
		if err != nil {
			return err
		}
		if payment == nil {
			return ErrPaymentNotFound
		}
		if payment.Status == models.PaymentStatusPaid {
			return ErrPaymentAlreadyUsed
		}

		expiresAt := models.PlanExpiry(payment.Plan, pf.now())
		payment.Status = models.PaymentStatusPaid
		payment.GatewayPaymentID = &req.PaymentID
		payment.GatewaySignature = &req.Signature
		payment.ExpiresAt = &expiresAt
		if err := pf.paymentRepo.Update(ctx, payment); err != nil {
			return err
		}

		user, err := pf.userRepo.ByEmail(ctx, payment.Email)
		if err != nil {
			return err
		}
		if user == nil {
			return nil
		}
		if err := pf.userRepo.ActivateSubscription(ctx, user.ID, payment.Plan, expiresAt, req.PaymentID); err != nil {
			return err
		}
		activatedUser = &user.ID
		return nil
	})
	if err != nil {
		return nil, NewBusinessError("VERIFY_PAYMENT_FAILED", "Error verifying payment", err)
	}

	if activatedUser != nil {
		logAudit(ctx, pf.auditRepo, auditEntry{
			UserID:      activatedUser,
			Action:      models.AuditActionSubscriptionActivated,
			Description: fmt.Sprintf("Plan %s activated by order %s", payment.Plan, payment.GatewayOrderID),
			Success:     true,
		}, metadata)
	}

	return &dto.VerifyPaymentResponse{
		Plan:      payment.Plan,
		ExpiresAt: *payment.ExpiresAt,
	}, nil
}

// SubscriptionStatus looks at the most recent paid order for email
func (pf *PaymentFlowImpl) SubscriptionStatus(ctx context.Context, email string) (*dto.SubscriptionStatusResponse, error) {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return nil, NewBusinessError("PAYMENT_VALIDATION_FAILED", "email is required", ErrEmailRequired)
	}

	latest, err := pf.paymentRepo.LatestPaid(ctx, email)
	if err != nil {
		return nil, NewBusinessError("SUBSCRIPTION_STATUS_FAILED", "Error checking subscription status", err)
	}
	if latest == nil {
		return &dto.SubscriptionStatusResponse{Status: SubscriptionInactive}, nil
	}

	status := SubscriptionInactive
	if latest.ExpiresAt != nil && latest.ExpiresAt.After(pf.now()) {
		status = SubscriptionActive
	}
	return &dto.SubscriptionStatusResponse{
		Status:    status,
		Plan:      latest.Plan,
		ExpiresAt: latest.ExpiresAt,
	}, nil
}
