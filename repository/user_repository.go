// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/ring-crm/models"
	"github.com/amirphl/ring-crm/utils"
	"gorm.io/gorm"
)

// UserRepositoryImpl implements UserRepository interface
type UserRepositoryImpl struct {
	*BaseRepository[models.User, models.UserFilter]
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &UserRepositoryImpl{
		BaseRepository: NewBaseRepository[models.User, models.UserFilter](db),
	}
}

// ByID retrieves a user by ID
func (r *UserRepositoryImpl) ByID(ctx context.Context, id uint) (*models.User, error) {
	db := r.getDB(ctx)
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user by ID %d: %w", id, err)
	}
	return &user, nil
}

// ByEmail retrieves a user by email address
func (r *UserRepositoryImpl) ByEmail(ctx context.Context, email string) (*models.User, error) {
	email = utils.NormalizeEmail(email)
	users, err := r.ByFilter(ctx, models.UserFilter{Email: &email}, "", 1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	if len(users) == 0 {
		return nil, nil
	}

	return users[0], nil
}

// ByResetToken retrieves the user holding an unexpired reset token
func (r *UserRepositoryImpl) ByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	db := r.getDB(ctx)
	var user models.User
	err := db.Where("reset_token = ? AND reset_token_expires_at > ?", token, now).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user by reset token: %w", err)
	}
	return &user, nil
}

func (r *UserRepositoryImpl) applyFilter(query *gorm.DB, filter models.UserFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.Email != nil {
		query = query.Where("email = ?", *filter.Email)
	}
	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}
	if filter.ResetToken != nil {
		query = query.Where("reset_token = ?", *filter.ResetToken)
	}
	if filter.Search != nil && *filter.Search != "" {
		pattern := likePattern(*filter.Search)
		query = query.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves users based on filter criteria
func (r *UserRepositoryImpl) ByFilter(ctx context.Context, filter models.UserFilter, orderBy string, limit, offset int) ([]*models.User, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.User{}), filter)
	if orderBy == "" {
		orderBy = "id DESC"
	}

	var users []*models.User
	if err := paginate(query, orderBy, limit, offset).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Count returns number of users matching filter
func (r *UserRepositoryImpl) Count(ctx context.Context, filter models.UserFilter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.getDB(ctx).Model(&models.User{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Update persists every column of user
func (r *UserRepositoryImpl) Update(ctx context.Context, user *models.User) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	user.UpdatedAt = utils.UTCNow()
	if err := db.Save(user).Error; err != nil {
		return finish(db, shouldCommit, fmt.Errorf("failed to update user: %w", err))
	}
	return finish(db, shouldCommit, nil)
}

// Delete removes a user and, through cascading keys, everything the user owns
func (r *UserRepositoryImpl) Delete(ctx context.Context, id uint) (bool, error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return false, err
	}

	// Children are removed explicitly so engines without FK enforcement stay consistent.
	for _, child := range []any{&models.CallHistory{}, &models.ScheduledCall{}, &models.Contact{}, &models.Lead{}} {
		if err := db.Where("user_id = ?", id).Delete(child).Error; err != nil {
			return false, finish(db, shouldCommit, fmt.Errorf("failed to delete user data: %w", err))
		}
	}

	res := db.Delete(&models.User{}, id)
	if res.Error != nil {
		return false, finish(db, shouldCommit, fmt.Errorf("failed to delete user: %w", res.Error))
	}
	return res.RowsAffected > 0, finish(db, shouldCommit, nil)
}

func (r *UserRepositoryImpl) updateColumns(ctx context.Context, id uint, updates map[string]any) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	if err := db.Model(&models.User{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return finish(db, shouldCommit, fmt.Errorf("failed to update user %d: %w", id, err))
	}
	return finish(db, shouldCommit, nil)
}

// UpdateLastLogin stamps a successful login
func (r *UserRepositoryImpl) UpdateLastLogin(ctx context.Context, id uint, at time.Time) error {
	return r.updateColumns(ctx, id, map[string]any{"last_login_at": at})
}

// SetResetToken stores a password reset token
func (r *UserRepositoryImpl) SetResetToken(ctx context.Context, id uint, token string, expiresAt time.Time) error {
	return r.updateColumns(ctx, id, map[string]any{
		"reset_token":            token,
		"reset_token_expires_at": expiresAt,
	})
}

// UpdatePassword replaces the password hash and invalidates any pending reset token
func (r *UserRepositoryImpl) UpdatePassword(ctx context.Context, id uint, passwordHash string) error {
	return r.updateColumns(ctx, id, map[string]any{
		"password_hash":          passwordHash,
		"reset_token":            nil,
		"reset_token_expires_at": nil,
	})
}

// ActivateSubscription marks a paid plan on the user
func (r *UserRepositoryImpl) ActivateSubscription(ctx context.Context, id uint, plan string, expiresAt time.Time, paymentID string) error {
	return r.updateColumns(ctx, id, map[string]any{
		"subscription_plan":       plan,
		"subscription_paid":       true,
		"subscription_expires_at": expiresAt,
		"subscription_payment_id": paymentID,
	})
}
