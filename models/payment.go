package models

import (
	"time"

	"github.com/amirphl/ring-crm/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentStatus represents the status of a subscription payment
type PaymentStatus string

const (
	PaymentStatusCreated PaymentStatus = "created"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// Payment is a subscription purchase keyed by the buyer's email
type Payment struct {
	ID     uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID   uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	Email  string    `gorm:"size:255;not null;index" json:"email"`
	Plan   string    `gorm:"size:16;not null" json:"plan"`
	Amount int64     `gorm:"not null" json:"amount"` // minor currency units

	Currency         string  `gorm:"size:3;not null;default:'INR'" json:"currency"`
	GatewayOrderID   string  `gorm:"size:255;uniqueIndex;not null" json:"order_id"`
	GatewayPaymentID *string `gorm:"size:255" json:"payment_id,omitempty"`
	GatewaySignature *string `gorm:"size:255" json:"-"`

	Status    PaymentStatus `gorm:"size:16;not null;default:'created';index" json:"status"`
	Used      *bool         `gorm:"default:false" json:"used"`
	ExpiresAt *time.Time    `gorm:"index" json:"expires_at,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.UUID == uuid.Nil {
		p.UUID = uuid.New()
	}
	if p.Status == "" {
		p.Status = PaymentStatusCreated
	}
	if p.Currency == "" {
		p.Currency = utils.PaymentCurrency
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = utils.UTCNow()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	return nil
}

// PaymentFilter represents filter criteria for payment queries
type PaymentFilter struct {
	Email          *string
	GatewayOrderID *string
	Status         *PaymentStatus
}

// PlanAmount returns the price of a paid plan in minor units
func PlanAmount(plan string) (int64, bool) {
	switch plan {
	case PlanHalfYear:
		return utils.HalfYearPlanPrice, true
	case PlanYearly:
		return utils.YearlyPlanPrice, true
	}
	return 0, false
}

// PlanExpiry returns when a plan bought at from runs out
func PlanExpiry(plan string, from time.Time) time.Time {
	if plan == PlanHalfYear {
		return from.AddDate(0, 6, 0)
	}
	return from.AddDate(1, 0, 0)
}
