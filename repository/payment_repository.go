package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/ring-crm/models"
	"github.com/amirphl/ring-crm/utils"
	"gorm.io/gorm"
)

// PaymentRepositoryImpl implements PaymentRepository interface
type PaymentRepositoryImpl struct {
	*BaseRepository[models.Payment, models.PaymentFilter]
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &PaymentRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Payment, models.PaymentFilter](db),
	}
}

// ByOrderID retrieves the payment for a gateway order placed with email
func (r *PaymentRepositoryImpl) ByOrderID(ctx context.Context, orderID, email string) (*models.Payment, error) {
	var p models.Payment
	err := r.getDB(ctx).
		Where("gateway_order_id = ? AND email = ?", orderID, utils.NormalizeEmail(email)).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find payment by order: %w", err)
	}
	return &p, nil
}

// LatestPaid returns the most recent paid payment for email
func (r *PaymentRepositoryImpl) LatestPaid(ctx context.Context, email string) (*models.Payment, error) {
	var p models.Payment
	err := r.getDB(ctx).
		Where("email = ? AND status = ?", utils.NormalizeEmail(email), models.PaymentStatusPaid).
		Order("created_at DESC, id DESC").
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find latest paid payment: %w", err)
	}
	return &p, nil
}

// Update persists every column of payment
func (r *PaymentRepositoryImpl) Update(ctx context.Context, payment *models.Payment) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	payment.UpdatedAt = utils.UTCNow()
	if err := db.Save(payment).Error; err != nil {
		return finish(db, shouldCommit, fmt.Errorf("failed to update payment: %w", err))
	}
	return finish(db, shouldCommit, nil)
}
