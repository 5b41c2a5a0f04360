package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// User and auth errors
	ErrUserNotFound        = errors.New("user not found")
	ErrUserAlreadyExists   = errors.New("user already exists")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrNotAdmin            = errors.New("user is not an administrator")
	ErrCaptchaInvalid      = errors.New("captcha verification failed")
	ErrPasswordTooShort    = errors.New("password must be at least 6 characters")
	ErrResetTokenInvalid   = errors.New("password reset token is invalid or has expired")
	ErrRefreshTokenInvalid = errors.New("refresh token is invalid")
	ErrCannotDeleteSelf    = errors.New("administrators cannot delete their own account")

	// Entity errors. Not-found and not-owned are deliberately the same error.
	ErrLeadNotFound          = errors.New("lead not found or not authorized")
	ErrContactNotFound       = errors.New("contact not found or not authorized")
	ErrScheduledCallNotFound = errors.New("call not found or not authorized")
	ErrCallNotFound          = errors.New("call record not found or not authorized")

	// Validation errors
	ErrNameRequired          = errors.New("name is required")
	ErrEmailRequired         = errors.New("email is required")
	ErrInvalidLeadStatus     = errors.New("invalid lead status")
	ErrInvalidCallStatus     = errors.New("invalid scheduled call status")
	ErrInvalidOutcome        = errors.New("invalid call outcome")
	ErrInvalidPhone          = errors.New("invalid phone number")
	ErrOutcomeRequired       = errors.New("call outcome is required")
	ErrScheduledTimeRequired = errors.New("scheduled time is required")
	ErrStartDateAfterEndDate = errors.New("start date cannot be after end date")
	ErrInvalidDate           = errors.New("invalid date")
	ErrNoIDsProvided         = errors.New("no ids provided")
	ErrEmptyCSV              = errors.New("csv has no data rows")
	ErrCSVMissingNameColumn  = errors.New("csv header must contain a name column")
	ErrNothingToExport       = errors.New("nothing to export")
	ErrNoMoreLeads           = errors.New("no more leads found")

	// Reminder errors
	ErrReminderScanFailed = errors.New("reminder scan failed")

	// Payment errors
	ErrInvalidPlan              = errors.New("invalid subscription plan")
	ErrPaymentNotFound          = errors.New("payment order not found")
	ErrPaymentSignatureMismatch = errors.New("payment signature verification failed")
	ErrPaymentAlreadyUsed       = errors.New("payment already verified")
	ErrPaymentNotConfigured     = errors.New("payment gateway is not configured")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

func IsUserAlreadyExists(err error) bool {
	return errors.Is(err, ErrUserAlreadyExists)
}

func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

func IsNotAdmin(err error) bool {
	return errors.Is(err, ErrNotAdmin)
}

func IsCaptchaInvalid(err error) bool {
	return errors.Is(err, ErrCaptchaInvalid)
}

func IsResetTokenInvalid(err error) bool {
	return errors.Is(err, ErrResetTokenInvalid)
}

// IsNotFound reports any of the owner-scoped not-found errors
func IsNotFound(err error) bool {
	return errors.Is(err, ErrLeadNotFound) ||
		errors.Is(err, ErrContactNotFound) ||
		errors.Is(err, ErrScheduledCallNotFound) ||
		errors.Is(err, ErrCallNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrPaymentNotFound) ||
		errors.Is(err, ErrNothingToExport) ||
		errors.Is(err, ErrNoMoreLeads)
}

func IsLeadNotFound(err error) bool {
	return errors.Is(err, ErrLeadNotFound)
}

func IsScheduledCallNotFound(err error) bool {
	return errors.Is(err, ErrScheduledCallNotFound)
}

func IsCallNotFound(err error) bool {
	return errors.Is(err, ErrCallNotFound)
}

func IsInvalidPhone(err error) bool {
	return errors.Is(err, ErrInvalidPhone)
}

func IsOutcomeRequired(err error) bool {
	return errors.Is(err, ErrOutcomeRequired)
}

func IsPaymentSignatureMismatch(err error) bool {
	return errors.Is(err, ErrPaymentSignatureMismatch)
}

// IsValidationError reports errors caused by bad client input
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrNameRequired, ErrInvalidLeadStatus, ErrInvalidCallStatus, ErrInvalidOutcome,
		ErrInvalidPhone, ErrOutcomeRequired, ErrScheduledTimeRequired, ErrStartDateAfterEndDate,
		ErrInvalidDate, ErrNoIDsProvided, ErrEmptyCSV, ErrCSVMissingNameColumn, ErrPasswordTooShort,
		ErrInvalidPlan, ErrEmailRequired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
