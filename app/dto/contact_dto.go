package dto

import "time"

type CreateContactRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=255" example:"Ravi Kumar"`
	Email string `json:"email" validate:"omitempty,email,max=255"`
	Phone string `json:"phone" validate:"omitempty,max=32"`
	Notes string `json:"notes" validate:"omitempty,max=5000"`
}

type UpdateContactRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Email *string `json:"email,omitempty" validate:"omitempty,max=255"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Notes *string `json:"notes,omitempty" validate:"omitempty,max=5000"`
}

type ListContactsRequest struct {
	Search string `query:"search"`
	Page   int    `query:"page" validate:"omitempty,min=1"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=1000"`
}

type ContactDTO struct {
	ID        uint      `json:"id"`
	UUID      string    `json:"uuid"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ListContactsResponse struct {
	Contacts   []ContactDTO `json:"contacts"`
	Total      int64        `json:"total"`
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
	TotalPages int          `json:"total_pages"`
}
