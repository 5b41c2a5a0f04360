package dto

import "time"

// CreateLeadRequest represents the payload for creating a lead
type CreateLeadRequest struct {
	Name   string `json:"name" validate:"required,min=1,max=255" example:"Acme Traders"`
	Email  string `json:"email" validate:"omitempty,email,max=255" example:"owner@acme.in"`
	Phone  string `json:"phone" validate:"omitempty,max=32" example:"+91 98765 43210"`
	Status string `json:"status" validate:"omitempty,oneof=new contacted qualified lost converted in-progress" example:"new"`
	Notes  string `json:"notes" validate:"omitempty,max=5000"`
}

// UpdateLeadRequest is a partial update; absent fields are left untouched
type UpdateLeadRequest struct {
	Name            *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Email           *string `json:"email,omitempty" validate:"omitempty,max=255"`
	Phone           *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Status          *string `json:"status,omitempty" validate:"omitempty,oneof=new contacted qualified lost converted in-progress"`
	Notes           *string `json:"notes,omitempty" validate:"omitempty,max=5000"`
	LastCallOutcome *string `json:"last_call_outcome,omitempty" validate:"omitempty,oneof=in-progress completed successful no-answer wrong-number busy rescheduled cancelled skipped"`
	LastCallNotes   *string `json:"last_call_notes,omitempty" validate:"omitempty,max=5000"`
}

// ListLeadsRequest carries the query parameters of GET /leads
type ListLeadsRequest struct {
	Search string `query:"search"`
	Status string `query:"status" validate:"omitempty,oneof=new contacted qualified lost converted in-progress"`
	Page   int    `query:"page" validate:"omitempty,min=1"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=1000"`
}

// LeadDTO is the public view of a lead
type LeadDTO struct {
	ID              uint      `json:"id"`
	UUID            string    `json:"uuid"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	Status          string    `json:"status"`
	Notes           string    `json:"notes"`
	LastCallOutcome string    `json:"last_call_outcome"`
	LastCallNotes   string    `json:"last_call_notes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ListLeadsResponse is a page of leads
type ListLeadsResponse struct {
	Leads      []LeadDTO `json:"leads"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"total_pages"`
}

// BulkDeleteRequest lists lead IDs to delete
type BulkDeleteRequest struct {
	IDs []uint `json:"ids" validate:"required,min=1,max=1000"`
}

type BulkDeleteResponse struct {
	Deleted int64 `json:"deleted"`
}

// NextLeadResponse holds the lead after last_lead_id
type NextLeadResponse struct {
	Lead LeadDTO `json:"lead"`
}

// ImportCSVTextRequest carries CSV pasted as text
type ImportCSVTextRequest struct {
	CSV string `json:"csv" validate:"required"`
}

// ImportRowError describes a rejected CSV row; Line is 1-based and counts the header
type ImportRowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ImportResponse summarizes a CSV import
type ImportResponse struct {
	Imported int              `json:"imported"`
	Skipped  int              `json:"skipped"`
	Errors   []ImportRowError `json:"errors,omitempty"`
}
