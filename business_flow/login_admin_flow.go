package businessflow

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/ring-crm/app/dto"
	"github.com/amirphl/ring-crm/app/services"
	"github.com/amirphl/ring-crm/models"
	"github.com/amirphl/ring-crm/repository"
	"github.com/amirphl/ring-crm/utils"
)

// AdminAuthFlow is the captcha-guarded admin sign-in used by handlers
type AdminAuthFlow interface {
	InitCaptcha(ctx context.Context) (*dto.CaptchaInitResponse, error)
	Login(ctx context.Context, req *dto.AdminLoginRequest, metadata *ClientMetadata) (*dto.AuthResponse, error)
}

// AdminAuthFlowImpl provides captcha-init and admin credential verification
type AdminAuthFlowImpl struct {
	userRepo       repository.UserRepository
	auditRepo      repository.AuditLogRepository
	tokenService   services.TokenService
	captchaSvc     services.CaptchaService
	accessTokenTTL time.Duration
}

func NewAdminAuthFlow(
	userRepo repository.UserRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	captchaSvc services.CaptchaService,
	accessTokenTTL time.Duration,
) AdminAuthFlow {
	return &AdminAuthFlowImpl{
		userRepo:       userRepo,
		auditRepo:      auditRepo,
		tokenService:   tokenService,
		captchaSvc:     captchaSvc,
		accessTokenTTL: accessTokenTTL,
	}
}

func (af *AdminAuthFlowImpl) InitCaptcha(ctx context.Context) (*dto.CaptchaInitResponse, error) {
	ch, err := af.captchaSvc.GenerateRotate(ctx)
	if err != nil {
		return nil, NewBusinessError("CAPTCHA_INIT_FAILED", "Failed to initialize captcha", err)
	}
	return &dto.CaptchaInitResponse{
		ChallengeID:       ch.ID,
		MasterImageBase64: ch.MasterImageBase64,
		ThumbImageBase64:  ch.ThumbImageBase64,
	}, nil
}

// Login checks the captcha first, then credentials, then the admin role
func (af *AdminAuthFlowImpl) Login(ctx context.Context, req *dto.AdminLoginRequest, metadata *ClientMetadata) (*dto.AuthResponse, error) {
	if req.ChallengeID == "" || !af.captchaSvc.VerifyRotate(ctx, req.ChallengeID, req.UserAngle) {
		return nil, NewBusinessError("CAPTCHA_INVALID", "Captcha validation failed", ErrCaptchaInvalid)
	}

	user, err := authenticate(ctx, af.userRepo, req.Email, req.Password)
	if err == nil && !user.IsAdministrator() {
		err = ErrNotAdmin
	}
	if err != nil {
		var userID *uint
		if user != nil {
			userID = &user.ID
		}
		errMsg := fmt.Sprintf("Admin login failed: %s", err.Error())
		logAudit(ctx, af.auditRepo, auditEntry{
			UserID:      userID,
			Action:      models.AuditActionAdminLoginFailed,
			Description: errMsg,
			ErrMsg:      &errMsg,
		}, metadata)
		return nil, NewBusinessError("ADMIN_LOGIN_FAILED", "Admin login failed", err)
	}

	now := utils.UTCNow()
	if err := af.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, NewBusinessError("ADMIN_LOGIN_FAILED", "Admin login failed", err)
	}
	user.LastLoginAt = &now

	resp, err := issueAuthResponse(af.tokenService, *user, af.accessTokenTTL)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate tokens", err)
	}

	logAudit(ctx, af.auditRepo, auditEntry{
		UserID:      &user.ID,
		Action:      models.AuditActionAdminLoginSuccess,
		Description: fmt.Sprintf("Admin logged in: %d", user.ID),
		Success:     true,
	}, metadata)
	return resp, nil
}
