package service

import (
	"context"
	"strings"

	"kinship/internal/cache"
	"kinship/internal/models"
	"kinship/internal/repository"
	"kinship/internal/validation"

	"golang.org/x/sync/errgroup"
)

// ProfileService reads and edits profiles.
type ProfileService struct {
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
	postRepo   repository.PostRepository
}

// UpdateProfileInput carries the editable fields. A nil Username keeps the
// current one; every other nil or blank field is cleared.
type UpdateProfileInput struct {
	UserID    uint    `json:"-"`
	Username  *string `json:"username"`
	FullName  *string `json:"full_name"`
	Bio       *string `json:"bio"`
	Website   *string `json:"website"`
	AvatarURL *string `json:"avatar_url"`
}

func NewProfileService(
	userRepo repository.UserRepository,
	followRepo repository.FollowRepository,
	postRepo repository.PostRepository,
) *ProfileService {
	return &ProfileService{userRepo: userRepo, followRepo: followRepo, postRepo: postRepo}
}

// GetOwn returns the caller's profile and counters.
func (s *ProfileService) GetOwn(ctx context.Context, userID uint) (*models.ProfileView, error) {
	return s.load(ctx, userID, false)
}

// GetPublic returns any user's profile, including the email.
func (s *ProfileService) GetPublic(ctx context.Context, userID uint) (*models.ProfileView, error) {
	return s.load(ctx, userID, true)
}

func (s *ProfileService) load(ctx context.Context, userID uint, withEmail bool) (*models.ProfileView, error) {
	var user models.User
	err := cache.Aside(ctx, cache.ProfileKey(userID), &user, cache.ProfileTTL, func() error {
		u, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		user = *u
		return nil
	})
	if err != nil {
		return nil, notFoundOr(err, "Profile")
	}

	stats, err := s.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &models.ProfileView{User: models.NewProfileUser(&user), Stats: *stats}
	if withEmail {
		view.User.Email = user.Email
	}
	return view, nil
}

// Stats loads the three counters concurrently, cached briefly.
func (s *ProfileService) Stats(ctx context.Context, userID uint) (*models.ProfileStats, error) {
	var stats models.ProfileStats
	err := cache.Aside(ctx, cache.ProfileStatsKey(userID), &stats, cache.ProfileStatsTTL, func() error {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			n, err := s.postRepo.CountByUser(gctx, userID)
			stats.Posts = n
			return err
		})
		g.Go(func() error {
			n, err := s.followRepo.CountFollowers(gctx, userID)
			stats.Followers = n
			return err
		})
		g.Go(func() error {
			n, err := s.followRepo.CountFollowing(gctx, userID)
			stats.Following = n
			return err
		})
		return g.Wait()
	})
	if err != nil {
		return nil, internal(err)
	}
	return &stats, nil
}

// Update applies the profile edit and returns the stored profile.
func (s *ProfileService) Update(ctx context.Context, in UpdateProfileInput) (*models.ProfileUser, error) {
	current, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, notFoundOr(err, "Profile")
	}

	upd := repository.ProfileUpdate{
		FullName:  trimmed(in.FullName),
		Bio:       trimmed(in.Bio),
		Website:   trimmed(in.Website),
		AvatarURL: trimmed(in.AvatarURL),
	}
	if current.Profile != nil {
		upd.Username = current.Profile.Username
	}

	if in.Username != nil {
		upd.Username = trimmed(in.Username)
		if upd.Username != nil {
			if err := validation.ValidateUsername(*upd.Username); err != nil {
				return nil, models.NewValidationError(err.Error())
			}
			taken, err := s.userRepo.UsernameTaken(ctx, *upd.Username, in.UserID)
			if err != nil {
				return nil, internal(err)
			}
			if taken {
				return nil, models.NewConflictError("Username already taken")
			}
		}
	}
	if upd.Bio != nil && len([]rune(*upd.Bio)) > validation.BioMaxLen {
		return nil, models.NewValidationError("Bio too long (max 500 characters)")
	}
	if upd.FullName != nil && len([]rune(*upd.FullName)) > 100 {
		return nil, models.NewValidationError("Full name too long (max 100 characters)")
	}

	profile, err := s.userRepo.UpdateProfile(ctx, in.UserID, upd)
	if err != nil {
		if isDuplicate(err) {
			return nil, models.NewConflictError("Username already taken")
		}
		return nil, internal(err)
	}
	cache.InvalidateUser(ctx, in.UserID)

	current.Profile = profile
	out := models.NewProfileUser(current)
	return &out, nil
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	return models.NullableString(strings.TrimSpace(*p))
}
