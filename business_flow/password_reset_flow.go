package businessflow

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/amirphl/ring-crm/app/dto"
	"github.com/amirphl/ring-crm/app/services"
	"github.com/amirphl/ring-crm/models"
	"github.com/amirphl/ring-crm/repository"
	"github.com/amirphl/ring-crm/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// PasswordResetFlow issues and redeems password reset tokens
type PasswordResetFlow interface {
	RequestReset(ctx context.Context, req *dto.RequestPasswordResetRequest, metadata *ClientMetadata) error
	ResetPassword(ctx context.Context, token string, req *dto.ResetPasswordRequest, metadata *ClientMetadata) error
}

// PasswordResetFlowImpl implements the password reset business flow
type PasswordResetFlowImpl struct {
	userRepo        repository.UserRepository
	auditRepo       repository.AuditLogRepository
	notificationSvc services.NotificationService
	appBaseURL      string
	bcryptCost      int
	db              *gorm.DB
	logger          *log.Logger
}

// NewPasswordResetFlow creates a new password reset flow instance
func NewPasswordResetFlow(
	userRepo repository.UserRepository,
	auditRepo repository.AuditLogRepository,
	notificationSvc services.NotificationService,
	appBaseURL string,
	bcryptCost int,
	db *gorm.DB,
	logger *log.Logger,
) PasswordResetFlow {
	if logger == nil {
		logger = log.Default()
	}
	return &PasswordResetFlowImpl{
		userRepo:        userRepo,
		auditRepo:       auditRepo,
		notificationSvc: notificationSvc,
		appBaseURL:      strings.TrimRight(appBaseURL, "/"),
		bcryptCost:      bcryptCost,
		db:              db,
		logger:          logger,
	}
}

// RequestReset stores a fresh one-hour token on the user and mails the reset link
func (pf *PasswordResetFlowImpl) RequestReset(ctx context.Context, req *dto.RequestPasswordResetRequest, metadata *ClientMetadata) error {
	user, err := pf.userRepo.ByEmail(ctx, req.Email)
	if err != nil {
		return NewBusinessError("PASSWORD_RESET_REQUEST_FAILED", "Password reset request failed", err)
	}
	if user == nil {
		return NewBusinessError("PASSWORD_RESET_REQUEST_FAILED", "Password reset request failed", ErrUserNotFound)
	}

	token, err := utils.RandomHex(32)
	if err != nil {
		return NewBusinessError("PASSWORD_RESET_REQUEST_FAILED", "Password reset request failed", err)
	}

	if err := pf.userRepo.SetResetToken(ctx, user.ID, token, utils.UTCNowAdd(utils.PasswordResetTTL)); err != nil {
		return NewBusinessError("PASSWORD_RESET_REQUEST_FAILED", "Password reset request failed", err)
	}

	link := fmt.Sprintf("%s/reset-password/%s", pf.appBaseURL, token)
	pf.logger.Printf("Password reset link generated for user %d: %s", user.ID, link)

	if pf.notificationSvc != nil {
		if err := pf.notificationSvc.SendPasswordReset(ctx, user.Email, user.Name, link); err != nil {
			// The token stays valid; the user can request another mail.
			errMsg := fmt.Sprintf("Reset link generated but email failed: %v", err)
			logAudit(ctx, pf.auditRepo, auditEntry{
				UserID:      &user.ID,
				Action:      models.AuditActionPasswordResetFailed,
				Description: errMsg,
				ErrMsg:      &errMsg,
			}, metadata)
			return NewBusinessError("PASSWORD_RESET_EMAIL_FAILED", "Password reset email could not be sent", err)
		}
	}

	logAudit(ctx, pf.auditRepo, auditEntry{
		UserID:      &user.ID,
		Action:      models.AuditActionPasswordResetRequested,
		Description: fmt.Sprintf("Password reset requested: %d", user.ID),
		Success:     true,
	}, metadata)
	return nil
}

// ResetPassword sets a new password for the holder of an unexpired token and burns the token
func (pf *PasswordResetFlowImpl) ResetPassword(ctx context.Context, token string, req *dto.ResetPasswordRequest, metadata *ClientMetadata) error {
	if len(req.Password) < 6 {
		return NewBusinessError("PASSWORD_RESET_FAILED", "Password reset failed", ErrPasswordTooShort)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return NewBusinessError("PASSWORD_RESET_FAILED", "Password reset failed", ErrResetTokenInvalid)
	}

	var user *models.User
	err := repository.WithTransaction(ctx, pf.db, func(ctx context.Context) error {
		var err error
		user, err = pf.userRepo.ByResetToken(ctx, token, utils.UTCNow())
		if err != nil {
			return err
		}
		if user == nil {
			return ErrResetTokenInvalid
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), pf.bcryptCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		return pf.userRepo.UpdatePassword(ctx, user.ID, string(hash))
	})
	if err != nil {
		var userID *uint
		if user != nil {
			userID = &user.ID
		}
		errMsg := fmt.Sprintf("Password reset failed: %s", err.Error())
		logAudit(ctx, pf.auditRepo, auditEntry{
			UserID:      userID,
			Action:      models.AuditActionPasswordResetFailed,
			Description: errMsg,
			ErrMsg:      &errMsg,
		}, metadata)
		return NewBusinessError("PASSWORD_RESET_FAILED", "Password reset failed", err)
	}

	logAudit(ctx, pf.auditRepo, auditEntry{
		UserID:      &user.ID,
		Action:      models.AuditActionPasswordResetCompleted,
		Description: fmt.Sprintf("Password reset completed: %d", user.ID),
		Success:     true,
	}, metadata)
	return nil
}
