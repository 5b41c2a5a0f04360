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
	"golang.org/x/crypto/bcrypt"
)

// LoginFlow handles sign-in, token refresh and sign-out
type LoginFlow interface {
	Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.AuthResponse, error)
	Refresh(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.AuthResponse, error)
	Logout(ctx context.Context, userID uint, accessToken string, metadata *ClientMetadata) error
}

// LoginFlowImpl implements the login business flow
type LoginFlowImpl struct {
	userRepo       repository.UserRepository
	auditRepo      repository.AuditLogRepository
	tokenService   services.TokenService
	accessTokenTTL time.Duration
}

// NewLoginFlow creates a new login flow instance
func NewLoginFlow(
	userRepo repository.UserRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	accessTokenTTL time.Duration,
) LoginFlow {
	return &LoginFlowImpl{
		userRepo:       userRepo,
		auditRepo:      auditRepo,
		tokenService:   tokenService,
		accessTokenTTL: accessTokenTTL,
	}
}

// Login authenticates a user with email and password
func (lf *LoginFlowImpl) Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.AuthResponse, error) {
	user, err := authenticate(ctx, lf.userRepo, req.Email, req.Password)
	if err != nil {
		var userID *uint
		if user != nil {
			userID = &user.ID
		}
		errMsg := fmt.Sprintf("Login failed: %s", err.Error())
		logAudit(ctx, lf.auditRepo, auditEntry{
			UserID:      userID,
			Action:      models.AuditActionLoginFailed,
			Description: errMsg,
			ErrMsg:      &errMsg,
		}, metadata)
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	now := utils.UTCNow()
	if err := lf.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}
	user.LastLoginAt = &now

	resp, err := issueAuthResponse(lf.tokenService, *user, lf.accessTokenTTL)
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	logAudit(ctx, lf.auditRepo, auditEntry{
		UserID:      &user.ID,
		Action:      models.AuditActionLoginSuccess,
		Description: fmt.Sprintf("User logged in successfully: %d", user.ID),
		Success:     true,
	}, metadata)

	return resp, nil
}

// Refresh rotates a refresh token into a new token pair
func (lf *LoginFlowImpl) Refresh(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.AuthResponse, error) {
	claims, err := lf.tokenService.ValidateToken(ctx, req.RefreshToken)
	if err != nil || claims.TokenType != services.TokenTypeRefresh {
		return nil, NewBusinessError("REFRESH_FAILED", "Token refresh failed", ErrRefreshTokenInvalid)
	}

	user, err := lf.userRepo.ByID(ctx, claims.UserID)
	if err != nil {
		return nil, NewBusinessError("REFRESH_FAILED", "Token refresh failed", err)
	}
	if user == nil {
		return nil, NewBusinessError("REFRESH_FAILED", "Token refresh failed", ErrUserNotFound)
	}

	access, refresh, err := lf.tokenService.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, NewBusinessError("REFRESH_FAILED", "Token refresh failed", fmt.Errorf("%w: %v", ErrRefreshTokenInvalid, err))
	}

	return &dto.AuthResponse{
		Token:        access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(lf.accessTokenTTL.Seconds()),
		User:         ToUserDTO(*user),
	}, nil
}

// Logout blacklists the presented access token
func (lf *LoginFlowImpl) Logout(ctx context.Context, userID uint, accessToken string, metadata *ClientMetadata) error {
	if err := lf.tokenService.RevokeToken(ctx, accessToken); err != nil {
		return NewBusinessError("LOGOUT_FAILED", "Logout failed", err)
	}

	logAudit(ctx, lf.auditRepo, auditEntry{
		UserID:      &userID,
		Action:      models.AuditActionLogout,
		Description: fmt.Sprintf("User logged out: %d", userID),
		Success:     true,
	}, metadata)
	return nil
}

// authenticate returns the user for valid credentials. On a wrong password the user is returned
// alongside ErrInvalidCredentials so callers can attribute the failed attempt.
func authenticate(ctx context.Context, userRepo repository.UserRepository, email, password string) (*models.User, error) {
	user, err := userRepo.ByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return user, ErrInvalidCredentials
	}
	return user, nil
}
