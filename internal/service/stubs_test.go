package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"kinship/internal/models"
	"kinship/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	createWithProfileFn func(context.Context, *models.User, *models.Profile) error
	getByIDFn           func(context.Context, uint) (*models.User, error)
	getByEmailFn        func(context.Context, string) (*models.User, error)
	emailExistsFn       func(context.Context, string) (bool, error)
	usernameTakenFn     func(context.Context, string, uint) (bool, error)
	existsFn            func(context.Context, uint) (bool, error)
	updateProfileFn     func(context.Context, uint, repository.ProfileUpdate) (*models.Profile, error)
	suggestionsFn       func(context.Context, uint, int) ([]models.SuggestedUser, error)
}

func (s *userRepoStub) CreateWithProfile(ctx context.Context, u *models.User, p *models.Profile) error {
	return s.createWithProfileFn(ctx, u, p)
}
func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) EmailExists(ctx context.Context, email string) (bool, error) {
	return s.emailExistsFn(ctx, email)
}
func (s *userRepoStub) UsernameTaken(ctx context.Context, username string, except uint) (bool, error) {
	return s.usernameTakenFn(ctx, username, except)
}
func (s *userRepoStub) Exists(ctx context.Context, id uint) (bool, error) {
	return s.existsFn(ctx, id)
}
func (s *userRepoStub) UpdateProfile(ctx context.Context, userID uint, in repository.ProfileUpdate) (*models.Profile, error) {
	return s.updateProfileFn(ctx, userID, in)
}
func (s *userRepoStub) Suggestions(ctx context.Context, viewerID uint, limit int) ([]models.SuggestedUser, error) {
	return s.suggestionsFn(ctx, viewerID, limit)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		createWithProfileFn: func(_ context.Context, u *models.User, p *models.Profile) error {
			u.ID = 1
			p.UserID = 1
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Profile: &models.Profile{UserID: id}}, nil
		},
		getByEmailFn:    func(_ context.Context, _ string) (*models.User, error) { return nil, errNotFound() },
		emailExistsFn:   func(_ context.Context, _ string) (bool, error) { return false, nil },
		usernameTakenFn: func(_ context.Context, _ string, _ uint) (bool, error) { return false, nil },
		existsFn:        func(_ context.Context, _ uint) (bool, error) { return true, nil },
		updateProfileFn: func(_ context.Context, id uint, in repository.ProfileUpdate) (*models.Profile, error) {
			return &models.Profile{UserID: id, Username: in.Username, FullName: in.FullName, Bio: in.Bio,
				Website: in.Website, AvatarURL: in.AvatarURL}, nil
		},
		suggestionsFn: func(_ context.Context, _ uint, _ int) ([]models.SuggestedUser, error) { return nil, nil },
	}
}

// followRepoStub is a stub for repository.FollowRepository.
type followRepoStub struct {
	createFn         func(context.Context, *models.Follow, *models.Notification) error
	deleteFn         func(context.Context, uint, uint) (bool, error)
	isFollowingFn    func(context.Context, uint, uint) (bool, error)
	countFollowersFn func(context.Context, uint) (int64, error)
	countFollowingFn func(context.Context, uint) (int64, error)
	friendsFn        func(context.Context, uint) ([]models.UserSummary, error)
}

func (s *followRepoStub) Create(ctx context.Context, f *models.Follow, n *models.Notification) error {
	return s.createFn(ctx, f, n)
}
func (s *followRepoStub) Delete(ctx context.Context, follower, following uint) (bool, error) {
	return s.deleteFn(ctx, follower, following)
}
func (s *followRepoStub) IsFollowing(ctx context.Context, follower, following uint) (bool, error) {
	return s.isFollowingFn(ctx, follower, following)
}
func (s *followRepoStub) CountFollowers(ctx context.Context, id uint) (int64, error) {
	return s.countFollowersFn(ctx, id)
}
func (s *followRepoStub) CountFollowing(ctx context.Context, id uint) (int64, error) {
	return s.countFollowingFn(ctx, id)
}
func (s *followRepoStub) Friends(ctx context.Context, id uint) ([]models.UserSummary, error) {
	return s.friendsFn(ctx, id)
}

func noopFollowRepo() *followRepoStub {
	return &followRepoStub{
		createFn:         func(_ context.Context, _ *models.Follow, _ *models.Notification) error { return nil },
		deleteFn:         func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		isFollowingFn:    func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
		countFollowersFn: func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		countFollowingFn: func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		friendsFn:        func(_ context.Context, _ uint) ([]models.UserSummary, error) { return nil, nil },
	}
}

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn      func(context.Context, *models.Post) error
	getByIDFn     func(context.Context, uint, uint) (*models.Post, error)
	existsFn      func(context.Context, uint) (bool, error)
	ownerIDFn     func(context.Context, uint) (uint, error)
	feedFn        func(context.Context, uint, int, int) ([]*models.Post, error)
	listByUserFn  func(context.Context, uint, uint, int, int) ([]*models.Post, error)
	countByUserFn func(context.Context, uint) (int64, error)
	updateFn      func(context.Context, uint, map[string]any) error
	deleteFn      func(context.Context, uint) error
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id, viewerID uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id, viewerID)
}
func (s *postRepoStub) Exists(ctx context.Context, id uint) (bool, error) {
	return s.existsFn(ctx, id)
}
func (s *postRepoStub) OwnerID(ctx context.Context, id uint) (uint, error) {
	return s.ownerIDFn(ctx, id)
}
func (s *postRepoStub) Feed(ctx context.Context, viewerID uint, limit, offset int) ([]*models.Post, error) {
	return s.feedFn(ctx, viewerID, limit, offset)
}
func (s *postRepoStub) ListByUser(ctx context.Context, authorID, viewerID uint, limit, offset int) ([]*models.Post, error) {
	return s.listByUserFn(ctx, authorID, viewerID, limit, offset)
}
func (s *postRepoStub) CountByUser(ctx context.Context, userID uint) (int64, error) {
	return s.countByUserFn(ctx, userID)
}
func (s *postRepoStub) Update(ctx context.Context, id uint, fields map[string]any) error {
	return s.updateFn(ctx, id, fields)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(_ context.Context, p *models.Post) error {
			p.ID = 1
			return nil
		},
		getByIDFn: func(_ context.Context, id, _ uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 1}, nil
		},
		existsFn:      func(_ context.Context, _ uint) (bool, error) { return true, nil },
		ownerIDFn:     func(_ context.Context, _ uint) (uint, error) { return 1, nil },
		feedFn:        func(_ context.Context, _ uint, _, _ int) ([]*models.Post, error) { return nil, nil },
		listByUserFn:  func(_ context.Context, _, _ uint, _, _ int) ([]*models.Post, error) { return nil, nil },
		countByUserFn: func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		updateFn:      func(_ context.Context, _ uint, _ map[string]any) error { return nil },
		deleteFn:      func(_ context.Context, _ uint) error { return nil },
	}
}

// interactionRepoStub is a stub for repository.InteractionRepository.
type interactionRepoStub struct {
	likeFn      func(context.Context, *models.Like, *models.Notification) error
	unlikeFn    func(context.Context, uint, uint) (bool, error)
	saveFn      func(context.Context, uint, uint) error
	unsaveFn    func(context.Context, uint, uint) (bool, error)
	listSavedFn func(context.Context, uint) ([]models.PostSummary, error)
}

func (s *interactionRepoStub) Like(ctx context.Context, l *models.Like, n *models.Notification) error {
	return s.likeFn(ctx, l, n)
}
func (s *interactionRepoStub) Unlike(ctx context.Context, userID, postID uint) (bool, error) {
	return s.unlikeFn(ctx, userID, postID)
}
func (s *interactionRepoStub) Save(ctx context.Context, userID, postID uint) error {
	return s.saveFn(ctx, userID, postID)
}
func (s *interactionRepoStub) Unsave(ctx context.Context, userID, postID uint) (bool, error) {
	return s.unsaveFn(ctx, userID, postID)
}
func (s *interactionRepoStub) ListSaved(ctx context.Context, userID uint) ([]models.PostSummary, error) {
	return s.listSavedFn(ctx, userID)
}

func noopInteractionRepo() *interactionRepoStub {
	return &interactionRepoStub{
		likeFn:      func(_ context.Context, _ *models.Like, _ *models.Notification) error { return nil },
		unlikeFn:    func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		saveFn:      func(_ context.Context, _, _ uint) error { return nil },
		unsaveFn:    func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		listSavedFn: func(_ context.Context, _ uint) ([]models.PostSummary, error) { return nil, nil },
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn     func(context.Context, *models.Comment, *models.Notification) error
	getByIDFn    func(context.Context, uint) (*models.Comment, error)
	listByPostFn func(context.Context, uint) ([]*models.Comment, error)
	deleteFn     func(context.Context, uint) error
}

func (s *commentRepoStub) Create(ctx context.Context, c *models.Comment, n *models.Notification) error {
	return s.createFn(ctx, c, n)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	return s.listByPostFn(ctx, postID)
}
func (s *commentRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn:     func(_ context.Context, _ *models.Comment, _ *models.Notification) error { return nil },
		getByIDFn:    func(_ context.Context, id uint) (*models.Comment, error) { return &models.Comment{ID: id}, nil },
		listByPostFn: func(_ context.Context, _ uint) ([]*models.Comment, error) { return nil, nil },
		deleteFn:     func(_ context.Context, _ uint) error { return nil },
	}
}

// notificationRepoStub is a stub for repository.NotificationRepository.
type notificationRepoStub struct {
	listForUserFn  func(context.Context, uint) ([]models.Notification, error)
	markReadFn     func(context.Context, uint, uint) (bool, error)
	markAllReadFn  func(context.Context, uint) (int64, error)
	unreadCountsFn func(context.Context, uint) (models.UnreadCounts, error)
	pruneReadFn    func(context.Context, time.Time) (int64, error)
}

func (s *notificationRepoStub) ListForUser(ctx context.Context, userID uint) ([]models.Notification, error) {
	return s.listForUserFn(ctx, userID)
}
func (s *notificationRepoStub) MarkRead(ctx context.Context, id, userID uint) (bool, error) {
	return s.markReadFn(ctx, id, userID)
}
func (s *notificationRepoStub) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.markAllReadFn(ctx, userID)
}
func (s *notificationRepoStub) UnreadCounts(ctx context.Context, userID uint) (models.UnreadCounts, error) {
	return s.unreadCountsFn(ctx, userID)
}
func (s *notificationRepoStub) PruneRead(ctx context.Context, olderThan time.Time) (int64, error) {
	return s.pruneReadFn(ctx, olderThan)
}

func noopNotificationRepo() *notificationRepoStub {
	return &notificationRepoStub{
		listForUserFn:  func(_ context.Context, _ uint) ([]models.Notification, error) { return nil, nil },
		markReadFn:     func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		markAllReadFn:  func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		unreadCountsFn: func(_ context.Context, _ uint) (models.UnreadCounts, error) { return models.UnreadCounts{}, nil },
		pruneReadFn:    func(_ context.Context, _ time.Time) (int64, error) { return 0, nil },
	}
}

// searchRepoStub is a stub for repository.SearchRepository.
type searchRepoStub struct {
	usersFn func(context.Context, string) ([]models.UserSummary, error)
	postsFn func(context.Context, string) ([]models.PostSummary, error)
}

func (s *searchRepoStub) Users(ctx context.Context, term string) ([]models.UserSummary, error) {
	return s.usersFn(ctx, term)
}
func (s *searchRepoStub) Posts(ctx context.Context, term string) ([]models.PostSummary, error) {
	return s.postsFn(ctx, term)
}

// conversationRepoStub is a stub for repository.ConversationRepository.
type conversationRepoStub struct {
	findOrCreateDirectFn func(context.Context, uint, uint) (uint, bool, error)
	createGroupFn        func(context.Context, *models.Conversation, []uint) error
	addMembersFn         func(context.Context, uint, uint, []uint) (*models.Message, error)
	leaveFn              func(context.Context, uint, uint) (*models.Message, error)
	updateGroupFn        func(context.Context, uint, map[string]any) error
	getByIDFn            func(context.Context, uint) (*models.Conversation, error)
	isParticipantFn      func(context.Context, uint, uint) (bool, error)
	participantIDsFn     func(context.Context, uint) ([]uint, error)
	membersFn            func(context.Context, uint) ([]models.UserSummary, error)
	otherParticipantFn   func(context.Context, uint, uint) (*models.UserSummary, error)
	listForUserFn        func(context.Context, uint) ([]models.ConversationSummary, error)
}

func (s *conversationRepoStub) FindOrCreateDirect(ctx context.Context, a, b uint) (uint, bool, error) {
	return s.findOrCreateDirectFn(ctx, a, b)
}
func (s *conversationRepoStub) CreateGroup(ctx context.Context, c *models.Conversation, ids []uint) error {
	return s.createGroupFn(ctx, c, ids)
}
func (s *conversationRepoStub) AddMembers(ctx context.Context, convID, adderID uint, ids []uint) (*models.Message, error) {
	return s.addMembersFn(ctx, convID, adderID, ids)
}
func (s *conversationRepoStub) Leave(ctx context.Context, convID, userID uint) (*models.Message, error) {
	return s.leaveFn(ctx, convID, userID)
}
func (s *conversationRepoStub) UpdateGroup(ctx context.Context, convID uint, fields map[string]any) error {
	return s.updateGroupFn(ctx, convID, fields)
}
func (s *conversationRepoStub) GetByID(ctx context.Context, id uint) (*models.Conversation, error) {
	return s.getByIDFn(ctx, id)
}
func (s *conversationRepoStub) IsParticipant(ctx context.Context, convID, userID uint) (bool, error) {
	return s.isParticipantFn(ctx, convID, userID)
}
func (s *conversationRepoStub) ParticipantIDs(ctx context.Context, convID uint) ([]uint, error) {
	return s.participantIDsFn(ctx, convID)
}
func (s *conversationRepoStub) Members(ctx context.Context, convID uint) ([]models.UserSummary, error) {
	return s.membersFn(ctx, convID)
}
func (s *conversationRepoStub) OtherParticipant(ctx context.Context, convID, userID uint) (*models.UserSummary, error) {
	return s.otherParticipantFn(ctx, convID, userID)
}
func (s *conversationRepoStub) ListForUser(ctx context.Context, userID uint) ([]models.ConversationSummary, error) {
	return s.listForUserFn(ctx, userID)
}

func noopConversationRepo() *conversationRepoStub {
	return &conversationRepoStub{
		findOrCreateDirectFn: func(_ context.Context, _, _ uint) (uint, bool, error) { return 1, true, nil },
		createGroupFn: func(_ context.Context, c *models.Conversation, _ []uint) error {
			c.ID = 1
			c.IsGroup = true
			return nil
		},
		addMembersFn:     func(_ context.Context, _, _ uint, _ []uint) (*models.Message, error) { return nil, nil },
		leaveFn:          func(_ context.Context, _, _ uint) (*models.Message, error) { return &models.Message{}, nil },
		updateGroupFn:    func(_ context.Context, _ uint, _ map[string]any) error { return nil },
		getByIDFn:        func(_ context.Context, id uint) (*models.Conversation, error) { return &models.Conversation{ID: id, IsGroup: true}, nil },
		isParticipantFn:  func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		participantIDsFn: func(_ context.Context, _ uint) ([]uint, error) { return nil, nil },
		membersFn:        func(_ context.Context, _ uint) ([]models.UserSummary, error) { return nil, nil },
		otherParticipantFn: func(_ context.Context, _, _ uint) (*models.UserSummary, error) {
			return &models.UserSummary{ID: 2}, nil
		},
		listForUserFn: func(_ context.Context, _ uint) ([]models.ConversationSummary, error) { return nil, nil },
	}
}

// messageRepoStub is a stub for repository.MessageRepository.
type messageRepoStub struct {
	createFn               func(context.Context, *models.Message, []models.Notification) error
	getByIDFn              func(context.Context, uint) (*models.Message, error)
	markConversationReadFn func(context.Context, uint, uint) (int64, error)
	listForConversationFn  func(context.Context, uint) ([]models.MessageView, error)
	deleteFn               func(context.Context, uint) error
}

func (s *messageRepoStub) Create(ctx context.Context, m *models.Message, n []models.Notification) error {
	return s.createFn(ctx, m, n)
}
func (s *messageRepoStub) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	return s.getByIDFn(ctx, id)
}
func (s *messageRepoStub) MarkConversationRead(ctx context.Context, convID, readerID uint) (int64, error) {
	return s.markConversationReadFn(ctx, convID, readerID)
}
func (s *messageRepoStub) ListForConversation(ctx context.Context, convID uint) ([]models.MessageView, error) {
	return s.listForConversationFn(ctx, convID)
}
func (s *messageRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopMessageRepo() *messageRepoStub {
	return &messageRepoStub{
		createFn: func(_ context.Context, m *models.Message, _ []models.Notification) error {
			m.ID = 1
			return nil
		},
		getByIDFn:              func(_ context.Context, id uint) (*models.Message, error) { return &models.Message{ID: id}, nil },
		markConversationReadFn: func(_ context.Context, _, _ uint) (int64, error) { return 0, nil },
		listForConversationFn:  func(_ context.Context, _ uint) ([]models.MessageView, error) { return nil, nil },
		deleteFn:               func(_ context.Context, _ uint) error { return nil },
	}
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	users  map[uint][]Event
	convs  map[uint][]Event
	failed bool
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{users: map[uint][]Event{}, convs: map[uint][]Event{}}
}

func (p *recordingPublisher) PublishUser(_ context.Context, userID uint, payload string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failed {
		return errors.New("redis down")
	}
	p.users[userID] = append(p.users[userID], decodeEvent(payload))
	return nil
}

func (p *recordingPublisher) PublishChatMessage(_ context.Context, convID uint, payload string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failed {
		return errors.New("redis down")
	}
	p.convs[convID] = append(p.convs[convID], decodeEvent(payload))
	return nil
}

func (p *recordingPublisher) userEvents(id uint) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.users[id]
}

func (p *recordingPublisher) convEvents(id uint) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.convs[id]
}

func decodeEvent(payload string) Event {
	var ev Event
	_ = json.Unmarshal([]byte(payload), &ev)
	return ev
}

func errNotFound() error {
	return gorm.ErrRecordNotFound
}

func assertAppError(t *testing.T, err error, code string) *models.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertAppError(t, err, models.CodeValidation)
}

func assertForbiddenError(t *testing.T, err error) {
	t.Helper()
	assertAppError(t, err, models.CodeForbidden)
}

func assertNotFoundError(t *testing.T, err error) {
	t.Helper()
	assertAppError(t, err, models.CodeNotFound)
}
