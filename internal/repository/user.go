package repository

import (
	"context"
	"errors"

	"kinship/internal/models"

	"gorm.io/gorm"
)

// ProfileUpdate carries the normalized profile fields to persist. Nil pointers
// are written as NULL.
type ProfileUpdate struct {
	Username  *string
	FullName  *string
	Bio       *string
	Website   *string
	AvatarURL *string
}

// UserRepository defines persistence operations for users and their profiles.
type UserRepository interface {
	CreateWithProfile(ctx context.Context, user *models.User, profile *models.Profile) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameTaken(ctx context.Context, username string, exceptUserID uint) (bool, error)
	Exists(ctx context.Context, id uint) (bool, error)
	UpdateProfile(ctx context.Context, userID uint, in ProfileUpdate) (*models.Profile, error)
	Suggestions(ctx context.Context, viewerID uint, limit int) ([]models.SuggestedUser, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// CreateWithProfile inserts the user and its profile atomically.
func (r *userRepository) CreateWithProfile(ctx context.Context, user *models.User, profile *models.Profile) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Profile").Create(user).Error; err != nil {
			return err
		}
		profile.UserID = user.ID
		return tx.Create(profile).Error
	})
	if err != nil {
		return writeErr(err)
	}
	user.Profile = profile
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := readDB(r.db).WithContext(ctx).Preload("Profile").First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&n).Error
	return n > 0, err
}

func (r *userRepository) UsernameTaken(ctx context.Context, username string, exceptUserID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("username = ? AND user_id <> ?", username, exceptUserID).
		Count(&n).Error
	return n > 0, err
}

func (r *userRepository) Exists(ctx context.Context, id uint) (bool, error) {
	n, err := countUsers(r.db.WithContext(ctx), []uint{id})
	return n > 0, err
}

// UpdateProfile overwrites the editable profile fields, creating the row for
// accounts that predate profiles.
func (r *userRepository) UpdateProfile(ctx context.Context, userID uint, in ProfileUpdate) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ?", userID).First(&profile).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			profile = models.Profile{UserID: userID}
		case err != nil:
			return err
		}
		profile.Username = in.Username
		profile.FullName = in.FullName
		profile.Bio = in.Bio
		profile.Website = in.Website
		profile.AvatarURL = in.AvatarURL
		return tx.Save(&profile).Error
	})
	if err != nil {
		return nil, writeErr(err)
	}
	return &profile, nil
}

// Suggestions lists users with a profile that the viewer neither is nor
// follows, newest first. mutual_count counts the viewer's followers who also
// follow the candidate.
func (r *userRepository) Suggestions(ctx context.Context, viewerID uint, limit int) ([]models.SuggestedUser, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	const q = `
SELECT u.id, u.created_at, p.username, p.full_name, p.avatar_url, p.bio,
	(SELECT COUNT(*) FROM follows f
		JOIN follows vf ON vf.follower_id = f.follower_id AND vf.following_id = ?
		WHERE f.following_id = u.id) AS mutual_count,
	(SELECT mp.username FROM follows f
		JOIN follows vf ON vf.follower_id = f.follower_id AND vf.following_id = ?
		JOIN profiles mp ON mp.user_id = f.follower_id
		WHERE f.following_id = u.id
		ORDER BY f.id LIMIT 1) AS mutual_username
FROM users u
JOIN profiles p ON p.user_id = u.id
WHERE u.id <> ?
	AND NOT EXISTS (SELECT 1 FROM follows ff WHERE ff.follower_id = ? AND ff.following_id = u.id)
ORDER BY u.created_at DESC, u.id DESC
LIMIT ?`

	var out []models.SuggestedUser
	err := readDB(r.db).WithContext(ctx).Raw(q, viewerID, viewerID, viewerID, viewerID, limit).Scan(&out).Error
	return out, err
}
