package service

import (
	"context"

	"kinship/internal/cache"
	"kinship/internal/models"
	"kinship/internal/repository"
)

const discoveryLimit = 50

type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// Discover lists people the viewer might follow.
func (s *UserService) Discover(ctx context.Context, viewerID uint) ([]models.SuggestedUser, error) {
	users, err := s.userRepo.Suggestions(ctx, viewerID, discoveryLimit)
	if err != nil {
		return nil, internal(err)
	}
	if users == nil {
		users = []models.SuggestedUser{}
	}
	return users, nil
}

func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, func() error {
		u, err := s.userRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		user = *u
		return nil
	})
	if err != nil {
		return nil, notFoundOr(err, "User")
	}
	return &user, nil
}
