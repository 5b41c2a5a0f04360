package models

import (
	"time"

	"github.com/amirphl/ring-crm/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LeadStatus is the sales-pipeline position of a lead
type LeadStatus string

const (
	LeadStatusNew        LeadStatus = "new"
	LeadStatusContacted  LeadStatus = "contacted"
	LeadStatusQualified  LeadStatus = "qualified"
	LeadStatusLost       LeadStatus = "lost"
	LeadStatusConverted  LeadStatus = "converted"
	LeadStatusInProgress LeadStatus = "in-progress"
)

// Valid reports whether s is one of the known lead statuses
func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusNew, LeadStatusContacted, LeadStatusQualified, LeadStatusLost, LeadStatusConverted, LeadStatusInProgress:
		return true
	}
	return false
}

// Lead is a prospective contact owned by a user
type Lead struct {
	ID     uint      `gorm:"primaryKey" json:"id"`
	UUID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_leads_uuid" json:"uuid"`
	UserID uint      `gorm:"not null;index:idx_leads_user_id" json:"user_id"`

	Name   string     `gorm:"size:255;not null;index:idx_leads_name" json:"name"`
	Email  string     `gorm:"size:255" json:"email"`
	Phone  string     `gorm:"size:32" json:"phone"`
	Status LeadStatus `gorm:"size:20;not null;default:'new';index:idx_leads_status" json:"status"`
	Notes  string     `gorm:"type:text" json:"notes"`

	// Outcome of the most recent call attempt; empty when never called
	LastCallOutcome string `gorm:"size:20;index:idx_leads_last_call_outcome" json:"last_call_outcome"`
	LastCallNotes   string `gorm:"type:text" json:"last_call_notes"`

	CreatedAt time.Time `gorm:"index:idx_leads_created_at" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Lead) TableName() string {
	return "leads"
}

// BeforeCreate sets UUID, default status and timestamps
func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	if l.UUID == uuid.Nil {
		l.UUID = uuid.New()
	}
	if l.Status == "" {
		l.Status = LeadStatusNew
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = utils.UTCNow()
	}
	if l.UpdatedAt.IsZero() {
		l.UpdatedAt = l.CreatedAt
	}
	return nil
}

// LeadFilter represents filter criteria for lead queries. Owner scoping is not part of the
// filter; repositories take the owning user explicitly.
type LeadFilter struct {
	IDs           []uint
	Status        *LeadStatus
	Search        *string
	AfterID       *uint
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// LeadPatch carries the fields a partial update may change
type LeadPatch struct {
	Name            *string
	Email           *string
	Phone           *string
	Status          *LeadStatus
	Notes           *string
	LastCallOutcome *string
	LastCallNotes   *string
}
