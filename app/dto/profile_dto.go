package dto

import "time"

// UserDTO is the public view of a user
type UserDTO struct {
	ID                    uint       `json:"id" example:"12"`
	UUID                  string     `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name                  string     `json:"name" example:"Priya Sharma"`
	Email                 string     `json:"email" example:"priya@example.com"`
	Role                  string     `json:"role" example:"user"`
	IsAdmin               bool       `json:"is_admin" example:"false"`
	SubscriptionPlan      string     `json:"subscription_plan" example:"yearly"`
	SubscriptionActive    bool       `json:"subscription_active" example:"true"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	LastLoginAt           *time.Time `json:"last_login_at,omitempty"`
}
