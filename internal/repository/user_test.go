package repository

import (
	"context"
	"errors"
	"testing"

	"kinship/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUserRepository_CreateWithProfile(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := models.User{Email: "ada@example.com", Password: "hash"}
	profile := models.Profile{Username: models.NullableString("ada"), FullName: models.NullableString("Ada L")}
	require.NoError(t, repo.CreateWithProfile(ctx, &user, &profile))
	assert.NotZero(t, user.ID)
	assert.Equal(t, user.ID, profile.UserID)

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Profile)
	assert.Equal(t, "ada", *got.Profile.Username)

	dup := models.User{Email: "ada@example.com", Password: "hash"}
	err = repo.CreateWithProfile(ctx, &dup, &models.Profile{})
	assert.True(t, errors.Is(err, ErrDuplicate))

	// A failed profile insert rolls back the user row.
	orphan := models.User{Email: "orphan@example.com", Password: "hash"}
	err = repo.CreateWithProfile(ctx, &orphan, &models.Profile{Username: models.NullableString("ada")})
	assert.True(t, errors.Is(err, ErrDuplicate))
	exists, err := repo.EmailExists(ctx, "orphan@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUserRepository_Lookups(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	alice := mkUser(t, db, "alice")
	bob := mkUser(t, db, "bob")

	_, err := repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	u, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice, u.ID)

	taken, err := repo.UsernameTaken(ctx, "alice", bob)
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = repo.UsernameTaken(ctx, "alice", alice)
	require.NoError(t, err)
	assert.False(t, taken, "own username is not taken")

	ok, err := repo.Exists(ctx, bob)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUserRepository_UpdateProfile(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := models.User{Email: "legacy@example.com", Password: "x"}
	require.NoError(t, db.Omit("Profile").Create(&user).Error)

	p, err := repo.UpdateProfile(ctx, user.ID, ProfileUpdate{
		Username: models.NullableString("legacy"),
		Bio:      models.NullableString("hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, "legacy", *p.Username)

	p, err = repo.UpdateProfile(ctx, user.ID, ProfileUpdate{Username: models.NullableString("legacy")})
	require.NoError(t, err)
	assert.Nil(t, p.Bio, "omitted fields are cleared")

	var count int64
	db.Model(&models.Profile{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestUserRepository_Suggestions(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	viewer := mkUser(t, db, "viewer")
	fan := mkUser(t, db, "fan")
	followed := mkUser(t, db, "followed")
	candidate := mkUser(t, db, "candidate")
	mkFollow(t, db, viewer, followed)
	mkFollow(t, db, fan, viewer)
	mkFollow(t, db, fan, candidate)

	got, err := repo.Suggestions(ctx, viewer, 0)
	require.NoError(t, err)

	byID := map[uint]models.SuggestedUser{}
	for _, s := range got {
		byID[s.ID] = s
	}
	assert.NotContains(t, byID, viewer)
	assert.NotContains(t, byID, followed)
	require.Contains(t, byID, candidate)
	assert.Equal(t, int64(1), byID[candidate].MutualCount)
	require.NotNil(t, byID[candidate].MutualUsername)
	assert.Equal(t, "fan", *byID[candidate].MutualUsername)
	assert.Equal(t, int64(0), byID[fan].MutualCount)
}
