package models

import (
	"time"

	"github.com/amirphl/ring-crm/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Contact struct {
	ID     uint      `gorm:"primaryKey" json:"id"`
	UUID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_contacts_uuid" json:"uuid"`
	UserID uint      `gorm:"not null;index:idx_contacts_user_id" json:"user_id"`

	Name  string `gorm:"size:255;not null" json:"name"`
	Email string `gorm:"size:255" json:"email"`
	Phone string `gorm:"size:32" json:"phone"`
	Notes string `gorm:"type:text" json:"notes"`

	CreatedAt time.Time `gorm:"index:idx_contacts_created_at" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Contact) TableName() string {
	return "contacts"
}

func (c *Contact) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	return nil
}

// ContactFilter represents filter criteria for contact queries
type ContactFilter struct {
	Search *string
}

// ContactPatch carries the fields a partial update may change
type ContactPatch struct {
	Name  *string
	Email *string
	Phone *string
	Notes *string
}
