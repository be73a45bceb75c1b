package service

import (
	"context"
	"testing"

	"kinship/internal/models"
	"kinship/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowService_Follow_Validation(t *testing.T) {
	svc := NewFollowService(noopFollowRepo(), noopUserRepo(), nil)
	ctx := context.Background()

	_, err := svc.Follow(ctx, 1, 0)
	assertValidationError(t, err)

	_, err = svc.Follow(ctx, 1, 1)
	appErr := assertAppError(t, err, models.CodeValidation)
	assert.Equal(t, "Cannot follow yourself", appErr.Message)
}

func TestFollowService_Follow_UnknownTarget(t *testing.T) {
	users := noopUserRepo()
	users.existsFn = func(_ context.Context, _ uint) (bool, error) { return false, nil }

	_, err := NewFollowService(noopFollowRepo(), users, nil).Follow(context.Background(), 1, 2)
	assertNotFoundError(t, err)
}

func TestFollowService_Follow_Duplicate(t *testing.T) {
	follows := noopFollowRepo()
	follows.createFn = func(_ context.Context, _ *models.Follow, _ *models.Notification) error {
		return repository.ErrDuplicate
	}
	pub := newRecordingPublisher()

	_, err := NewFollowService(follows, noopUserRepo(), pub).Follow(context.Background(), 1, 2)
	appErr := assertAppError(t, err, models.CodeConflict)
	assert.Equal(t, "Already following", appErr.Message)
	assert.Empty(t, pub.userEvents(2))
}

func TestFollowService_Follow_NotifiesTargetAndReturnsCounts(t *testing.T) {
	follows := noopFollowRepo()
	var gotNotif *models.Notification
	follows.createFn = func(_ context.Context, f *models.Follow, n *models.Notification) error {
		assert.Equal(t, uint(1), f.FollowerID)
		assert.Equal(t, uint(2), f.FollowingID)
		n.ID = 11
		gotNotif = n
		return nil
	}
	follows.countFollowersFn = func(_ context.Context, id uint) (int64, error) {
		assert.Equal(t, uint(2), id)
		return 5, nil
	}
	follows.countFollowingFn = func(_ context.Context, id uint) (int64, error) {
		assert.Equal(t, uint(1), id)
		return 3, nil
	}
	pub := newRecordingPublisher()

	counts, err := NewFollowService(follows, noopUserRepo(), pub).Follow(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, &models.FollowCounts{UserID: 2, FollowersCount: 5, FollowingCount: 3}, counts)

	require.NotNil(t, gotNotif)
	assert.Equal(t, models.NotificationFollow, gotNotif.ActionType)
	assert.Equal(t, uint(1), gotNotif.ActorID)

	events := pub.userEvents(2)
	require.Len(t, events, 1)
	assert.Equal(t, EventNotificationCreated, events[0].Type)
}

func TestFollowService_Follow_PublishFailureDoesNotFail(t *testing.T) {
	follows := noopFollowRepo()
	follows.createFn = func(_ context.Context, _ *models.Follow, n *models.Notification) error {
		n.ID = 1
		return nil
	}
	pub := newRecordingPublisher()
	pub.failed = true

	_, err := NewFollowService(follows, noopUserRepo(), pub).Follow(context.Background(), 1, 2)
	require.NoError(t, err)
}

func TestFollowService_Unfollow(t *testing.T) {
	follows := noopFollowRepo()
	follows.deleteFn = func(_ context.Context, _, _ uint) (bool, error) { return false, nil }

	_, err := NewFollowService(follows, noopUserRepo(), nil).Unfollow(context.Background(), 1, 2)
	appErr := assertAppError(t, err, models.CodeNotFound)
	assert.Equal(t, "Follow not found", appErr.Message)

	counts, err := NewFollowService(noopFollowRepo(), noopUserRepo(), nil).Unfollow(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, uint(2), counts.UserID)
}

func TestFollowService_Friends_NeverNil(t *testing.T) {
	friends, err := NewFollowService(noopFollowRepo(), noopUserRepo(), nil).Friends(context.Background(), 1)
	require.NoError(t, err)
	assert.NotNil(t, friends)
}
