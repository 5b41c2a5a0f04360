package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/ring-crm/models"
	"gorm.io/gorm"
)

// ContactRepositoryImpl implements ContactRepository interface
type ContactRepositoryImpl struct {
	*BaseRepository[models.Contact, models.ContactFilter]
}

// NewContactRepository creates a new contact repository
func NewContactRepository(db *gorm.DB) ContactRepository {
	return &ContactRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Contact, models.ContactFilter](db),
	}
}

func (r *ContactRepositoryImpl) ByID(ctx context.Context, userID, id uint) (*models.Contact, error) {
	return r.ownedByID(ctx, userID, id)
}

func (r *ContactRepositoryImpl) applyFilter(query *gorm.DB, filter models.ContactFilter) *gorm.DB {
	if filter.Search != nil && *filter.Search != "" {
		p := likePattern(*filter.Search)
		query = query.Where(
			`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\' OR LOWER(phone) LIKE ? ESCAPE '\')`,
			p, p, p,
		)
	}
	return query
}

func (r *ContactRepositoryImpl) ByFilter(ctx context.Context, userID uint, filter models.ContactFilter, orderBy string, limit, offset int) ([]*models.Contact, error) {
	query := r.applyFilter(r.owned(ctx, userID), filter)
	if orderBy == "" {
		orderBy = "created_at DESC, id DESC"
	}

	var contacts []*models.Contact
	if err := paginate(query, orderBy, limit, offset).Find(&contacts).Error; err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	return contacts, nil
}

func (r *ContactRepositoryImpl) Count(ctx context.Context, userID uint, filter models.ContactFilter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.owned(ctx, userID), filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count contacts: %w", err)
	}
	return count, nil
}

func (r *ContactRepositoryImpl) Update(ctx context.Context, userID, id uint, patch models.ContactPatch) (*models.Contact, error) {
	updates := map[string]any{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Email != nil {
		updates["email"] = *patch.Email
	}
	if patch.Phone != nil {
		updates["phone"] = *patch.Phone
	}
	if patch.Notes != nil {
		updates["notes"] = *patch.Notes
	}

	found, err := r.updateOwned(ctx, userID, id, updates)
	if err != nil || !found {
		return nil, err
	}
	return r.ByID(ctx, userID, id)
}

func (r *ContactRepositoryImpl) Delete(ctx context.Context, userID, id uint) (bool, error) {
	n, err := r.deleteOwned(ctx, userID, id)
	return n > 0, err
}
