package businessflow

import (
	"context"

	"github.com/amirphl/ring-crm/app/dto"
	"github.com/amirphl/ring-crm/repository"
)

// ProfileFlow returns the signed-in user's profile
type ProfileFlow interface {
	GetProfile(ctx context.Context, userID uint) (*dto.UserDTO, error)
}

type ProfileFlowImpl struct {
	userRepo repository.UserRepository
}

func NewProfileFlow(userRepo repository.UserRepository) ProfileFlow {
	return &ProfileFlowImpl{userRepo: userRepo}
}

func (pf *ProfileFlowImpl) GetProfile(ctx context.Context, userID uint) (*dto.UserDTO, error) {
	user, err := pf.userRepo.ByID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("GET_PROFILE_FAILED", "Failed to get profile", err)
	}
	if user == nil {
		return nil, NewBusinessError("GET_PROFILE_FAILED", "Failed to get profile", ErrUserNotFound)
	}

	profile := ToUserDTO(*user)
	return &profile, nil
}
