package utils

import (
	"time"
)

// PasswordResetTTL is how long a password reset token stays valid
const PasswordResetTTL = time.Hour

// Reminder constants
const (
	// ReminderScanWindow is the horizon scanned for upcoming calls
	ReminderScanWindow = 30 * time.Minute

	// DefaultReminderMinutes is used when a call has no reminder lead-time configured
	DefaultReminderMinutes = 15

	// DefaultCallDurationSeconds is the planned length of a scheduled call (30 minutes)
	DefaultCallDurationSeconds = 30 * 60

	// ReminderIdempotencyTTL bounds how long a dispatched reminder key is remembered
	ReminderIdempotencyTTL = 45 * time.Minute
)

// Pagination defaults
const (
	DefaultLeadPageLimit    = 100
	DefaultContactPageLimit = 5
	MaxPageLimit            = 1000
)

// Subscription plan prices in minor currency units
const (
	PaymentCurrency   = "INR"
	HalfYearPlanPrice = 2999 * 100
	YearlyPlanPrice   = 4999 * 100
)

type contextKey string

// Request-scoped context keys set by the HTTP handlers
const (
	UserAgentKey contextKey = "user_agent"
	IPAddressKey contextKey = "ip_address"
	EndpointKey  contextKey = "endpoint"
)
