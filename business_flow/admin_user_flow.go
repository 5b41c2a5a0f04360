package businessflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/amirphl/ring-crm/app/dto"
	"github.com/amirphl/ring-crm/models"
	"github.com/amirphl/ring-crm/repository"
	"github.com/amirphl/ring-crm/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AdminUserFlow is user management from the admin panel
type AdminUserFlow interface {
	ListUsers(ctx context.Context, req *dto.AdminListUsersRequest) (*dto.AdminListUsersResponse, error)
	CreateUser(ctx context.Context, adminID uint, req *dto.AdminCreateUserRequest, metadata *ClientMetadata) (*dto.UserDTO, error)
	UpdateUser(ctx context.Context, adminID, id uint, req *dto.AdminUpdateUserRequest, metadata *ClientMetadata) (*dto.UserDTO, error)
	DeleteUser(ctx context.Context, adminID, id uint, metadata *ClientMetadata) error
	// EnsureAdmin creates the bootstrap administrator unless a user with that email exists.
	EnsureAdmin(ctx context.Context, email, password, name string) (bool, error)
}

type AdminUserFlowImpl struct {
	userRepo   repository.UserRepository
	auditRepo  repository.AuditLogRepository
	bcryptCost int
	db         *gorm.DB
}

func NewAdminUserFlow(userRepo repository.UserRepository, auditRepo repository.AuditLogRepository, bcryptCost int, db *gorm.DB) AdminUserFlow {
	return &AdminUserFlowImpl{
		userRepo:   userRepo,
		auditRepo:  auditRepo,
		bcryptCost: bcryptCost,
		db:         db,
	}
}

func (af *AdminUserFlowImpl) ListUsers(ctx context.Context, req *dto.AdminListUsersRequest) (*dto.AdminListUsersResponse, error) {
	filter := models.UserFilter{}
	if s := strings.TrimSpace(req.Search); s != "" {
		filter.Search = &s
	}
	if req.Role != "" {
		filter.Role = &req.Role
	}

	page, limit, offset := normalizePage(req.Page, req.Limit, utils.DefaultLeadPageLimit)

	total, err := af.userRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("LIST_USERS_FAILED", "Failed to list users", err)
	}
	users, err := af.userRepo.ByFilter(ctx, filter, "", limit, offset)
	if err != nil {
		return nil, NewBusinessError("LIST_USERS_FAILED", "Failed to list users", err)
	}

	items := make([]dto.UserDTO, 0, len(users))
	for _, u := range users {
		items = append(items, ToUserDTO(*u))
	}
	return &dto.AdminListUsersResponse{
		Users:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}, nil
}

func (af *AdminUserFlowImpl) CreateUser(ctx context.Context, adminID uint, req *dto.AdminCreateUserRequest, metadata *ClientMetadata) (*dto.UserDTO, error) {
	role := req.Role
	if role == "" {
		role = models.UserRoleUser
	}
	if req.IsAdmin {
		role = models.UserRoleAdmin
	}

	user, err := af.createUser(ctx, req.Name, req.Email, req.Password, role)
	if err != nil {
		return nil, NewBusinessError("CREATE_USER_FAILED", "Failed to create user", err)
	}

	logAudit(ctx, af.auditRepo, auditEntry{
		UserID:      &adminID,
		Action:      models.AuditActionUserCreatedByAdmin,
		Description: fmt.Sprintf("Admin %d created user %d", adminID, user.ID),
		Success:     true,
	}, metadata)

	out := ToUserDTO(*user)
	return &out, nil
}

func (af *AdminUserFlowImpl) createUser(ctx context.Context, name, email, password, role string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = utils.NormalizeEmail(email)
	if name == "" {
		return nil, ErrNameRequired
	}
	if len(password) < 6 {
		return nil, ErrPasswordTooShort
	}

	var user *models.User
	err := repository.WithTransaction(ctx, af.db, func(ctx context.Context) error {
		existing, err := af.userRepo.ByEmail(ctx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrUserAlreadyExists
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), af.bcryptCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		user = &models.User{
			Name:         name,
			Email:        email,
			PasswordHash: string(hash),
			Role:         role,
			IsAdmin:      utils.ToPtr(role == models.UserRoleAdmin),
		}
		if err := af.userRepo.Save(ctx, user); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrUserAlreadyExists
			}
			return err
		}
		return nil
	})
	return user, err
}

func (af *AdminUserFlowImpl) UpdateUser(ctx context.Context, adminID, id uint, req *dto.AdminUpdateUserRequest, metadata *ClientMetadata) (*dto.UserDTO, error) {
	var user *models.User
	err := repository.WithTransaction(ctx, af.db, func(ctx context.Context) error {
		var err error
		user, err = af.userRepo.ByID(ctx, id)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return ErrNameRequired
			}
			user.Name = name
		}
		if req.Email != nil {
			email := utils.NormalizeEmail(*req.Email)
			if email != user.Email {
				other, err := af.userRepo.ByEmail(ctx, email)
				if err != nil {
					return err
				}
				if other != nil {
					return ErrUserAlreadyExists
				}
				user.Email = email
			}
		}
		if req.Password != nil {
			if len(*req.Password) < 6 {
				return ErrPasswordTooShort
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), af.bcryptCost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			user.PasswordHash = string(hash)
		}
		if req.Role != nil {
			user.Role = *req.Role
			user.IsAdmin = utils.ToPtr(*req.Role == models.UserRoleAdmin)
		}
		if req.IsAdmin != nil {
			user.IsAdmin = req.IsAdmin
			if *req.IsAdmin {
				user.Role = models.UserRoleAdmin
			} else if user.Role == models.UserRoleAdmin {
				user.Role = models.UserRoleUser
			}
		}
		return af.userRepo.Update(ctx, user)
	})
	if err != nil {
		return nil, NewBusinessError("UPDATE_USER_FAILED", "Failed to update user", err)
	}

	logAudit(ctx, af.auditRepo, auditEntry{
		UserID:      &adminID,
		Action:      models.AuditActionUserUpdatedByAdmin,
		Description: fmt.Sprintf("Admin %d updated user %d", adminID, id),
		Success:     true,
	}, metadata)

	out := ToUserDTO(*user)
	return &out, nil
}

// DeleteUser removes a user and everything they own. Admins cannot remove themselves.
func (af *AdminUserFlowImpl) DeleteUser(ctx context.Context, adminID, id uint, metadata *ClientMetadata) error {
	if adminID == id {
		return NewBusinessError("DELETE_USER_FAILED", "Failed to delete user", ErrCannotDeleteSelf)
	}

	deleted, err := af.userRepo.Delete(ctx, id)
	if err != nil {
		return NewBusinessError("DELETE_USER_FAILED", "Failed to delete user", err)
	}
	if !deleted {
		return NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}

	logAudit(ctx, af.auditRepo, auditEntry{
		UserID:      &adminID,
		Action:      models.AuditActionUserDeletedByAdmin,
		Description: fmt.Sprintf("Admin %d deleted user %d", adminID, id),
		Success:     true,
	}, metadata)
	return nil
}

func (af *AdminUserFlowImpl) EnsureAdmin(ctx context.Context, email, password, name string) (bool, error) {
	if strings.TrimSpace(name) == "" {
		name = "Administrator"
	}
	_, err := af.createUser(ctx, name, email, password, models.UserRoleAdmin)
	if errors.Is(err, ErrUserAlreadyExists) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
