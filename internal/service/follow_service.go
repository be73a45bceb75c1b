package service

import (
	"context"

	"kinship/internal/cache"
	"kinship/internal/models"
	"kinship/internal/repository"
)

// FollowService manages the follow graph.
type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
	publisher  EventPublisher
}

func NewFollowService(
	followRepo repository.FollowRepository,
	userRepo repository.UserRepository,
	publisher EventPublisher,
) *FollowService {
	return &FollowService{followRepo: followRepo, userRepo: userRepo, publisher: publisher}
}

// Follow creates the edge follower -> following and notifies the target.
func (s *FollowService) Follow(ctx context.Context, followerID, followingID uint) (*models.FollowCounts, error) {
	if followingID == 0 {
		return nil, models.NewValidationError("following_id required")
	}
	if followerID == followingID {
		return nil, models.NewValidationError("Cannot follow yourself")
	}
	exists, err := s.userRepo.Exists(ctx, followingID)
	if err != nil {
		return nil, internal(err)
	}
	if !exists {
		return nil, models.NewNotFoundError("User", nil)
	}

	notif := newNotification(followingID, followerID, models.NotificationFollow)
	err = s.followRepo.Create(ctx, &models.Follow{FollowerID: followerID, FollowingID: followingID}, notif)
	if err != nil {
		if isDuplicate(err) {
			return nil, models.NewConflictError("Already following")
		}
		return nil, internal(err)
	}
	cache.InvalidateStats(ctx, followerID, followingID)
	notifyCreated(ctx, s.publisher, notif)

	return s.counts(ctx, followerID, followingID)
}

// Unfollow removes the edge; only the follower can do that.
func (s *FollowService) Unfollow(ctx context.Context, followerID, followingID uint) (*models.FollowCounts, error) {
	deleted, err := s.followRepo.Delete(ctx, followerID, followingID)
	if err != nil {
		return nil, internal(err)
	}
	if !deleted {
		return nil, models.NewNotFoundError("Follow", nil)
	}
	cache.InvalidateStats(ctx, followerID, followingID)
	return s.counts(ctx, followerID, followingID)
}

func (s *FollowService) IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error) {
	ok, err := s.followRepo.IsFollowing(ctx, followerID, followingID)
	if err != nil {
		return false, internal(err)
	}
	return ok, nil
}

// Friends lists mutual follows.
func (s *FollowService) Friends(ctx context.Context, userID uint) ([]models.UserSummary, error) {
	friends, err := s.followRepo.Friends(ctx, userID)
	if err != nil {
		return nil, internal(err)
	}
	if friends == nil {
		friends = []models.UserSummary{}
	}
	return friends, nil
}

func (s *FollowService) counts(ctx context.Context, followerID, followingID uint) (*models.FollowCounts, error) {
	followers, err := s.followRepo.CountFollowers(ctx, followingID)
	if err != nil {
		return nil, internal(err)
	}
	following, err := s.followRepo.CountFollowing(ctx, followerID)
	if err != nil {
		return nil, internal(err)
	}
	return &models.FollowCounts{UserID: followingID, FollowersCount: followers, FollowingCount: following}, nil
}
