package businessflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/ring-crm/app/dto"
	"github.com/amirphl/ring-crm/app/services"
	"github.com/amirphl/ring-crm/models"
	"github.com/amirphl/ring-crm/repository"
	"github.com/amirphl/ring-crm/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SignupFlow handles account creation
type SignupFlow interface {
	Signup(ctx context.Context, req *dto.SignupRequest, metadata *ClientMetadata) (*dto.AuthResponse, error)
}

// SignupFlowImpl implements the signup business flow
type SignupFlowImpl struct {
	userRepo       repository.UserRepository
	auditRepo      repository.AuditLogRepository
	tokenService   services.TokenService
	accessTokenTTL time.Duration
	bcryptCost     int
	db             *gorm.DB
}

// NewSignupFlow creates a new signup flow instance
func NewSignupFlow(
	userRepo repository.UserRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	accessTokenTTL time.Duration,
	bcryptCost int,
	db *gorm.DB,
) SignupFlow {
	return &SignupFlowImpl{
		userRepo:       userRepo,
		auditRepo:      auditRepo,
		tokenService:   tokenService,
		accessTokenTTL: accessTokenTTL,
		bcryptCost:     bcryptCost,
		db:             db,
	}
}

// Signup creates a user and signs them in
func (sf *SignupFlowImpl) Signup(ctx context.Context, req *dto.SignupRequest, metadata *ClientMetadata) (*dto.AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := utils.NormalizeEmail(req.Email)
	if name == "" {
		return nil, NewBusinessError("SIGNUP_VALIDATION_FAILED", "Signup validation failed", ErrNameRequired)
	}
	if len(req.Password) < 6 {
		return nil, NewBusinessError("SIGNUP_VALIDATION_FAILED", "Signup validation failed", ErrPasswordTooShort)
	}

	var user *models.User
	err := repository.WithTransaction(ctx, sf.db, func(ctx context.Context) error {
		existing, err := sf.userRepo.ByEmail(ctx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrUserAlreadyExists
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), sf.bcryptCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}

		user = &models.User{
			Name:         name,
			Email:        email,
			PasswordHash: string(hash),
			Role:         models.UserRoleUser,
			IsAdmin:      utils.ToPtr(false),
		}
		if err := sf.userRepo.Save(ctx, user); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrUserAlreadyExists
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, NewBusinessError("SIGNUP_FAILED", "Signup failed", err)
	}

	resp, err := issueAuthResponse(sf.tokenService, *user, sf.accessTokenTTL)
	if err != nil {
		return nil, NewBusinessError("SIGNUP_FAILED", "Signup failed", err)
	}

	logAudit(ctx, sf.auditRepo, auditEntry{
		UserID:      &user.ID,
		Action:      models.AuditActionSignupCompleted,
		Description: fmt.Sprintf("User signed up: %d", user.ID),
		Success:     true,
	}, metadata)

	return resp, nil
}

func issueAuthResponse(tokenService services.TokenService, user models.User, accessTokenTTL time.Duration) (*dto.AuthResponse, error) {
	access, refresh, err := tokenService.GenerateTokens(user.ID, user.IsAdministrator())
	if err != nil {
		return nil, fmt.Errorf("generate tokens: %w", err)
	}
	return &dto.AuthResponse{
		Token:        access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(accessTokenTTL.Seconds()),
		User:         ToUserDTO(user),
	}, nil
}
