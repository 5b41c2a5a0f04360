package models

import (
	"encoding/json"
	"time"
)

type AuditLog struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	UserID       *uint           `gorm:"index:idx_audit_user_id" json:"user_id,omitempty"`
	Action       string          `gorm:"size:64;not null;index:idx_audit_action" json:"action"`
	Description  *string         `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string         `gorm:"size:64" json:"ip_address,omitempty"`
	UserAgent    *string         `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID    *string         `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata     json.RawMessage `gorm:"type:text" json:"metadata,omitempty"`
	Success      *bool           `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time       `gorm:"index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionSignupCompleted        = "signup_completed"
	AuditActionLoginSuccess           = "login_success"
	AuditActionLoginFailed            = "login_failed"
	AuditActionAdminLoginSuccess      = "admin_login_success"
	AuditActionAdminLoginFailed       = "admin_login_failed"
	AuditActionLogout                 = "logout"
	AuditActionPasswordResetRequested = "password_reset_requested"
	AuditActionPasswordResetCompleted = "password_reset_completed"
	AuditActionPasswordResetFailed    = "password_reset_failed"
	AuditActionLeadsBulkDeleted       = "leads_bulk_deleted"
	AuditActionLeadsImported          = "leads_imported"
	AuditActionReminderSent           = "reminder_sent"
	AuditActionReminderFailed         = "reminder_failed"
	AuditActionUserCreatedByAdmin     = "user_created_by_admin"
	AuditActionUserUpdatedByAdmin     = "user_updated_by_admin"
	AuditActionUserDeletedByAdmin     = "user_deleted_by_admin"
	AuditActionSubscriptionActivated  = "subscription_activated"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	UserID        *uint
	Action        *string
	Success       *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
