package service

import (
	"context"

	"kinship/internal/models"
	"kinship/internal/repository"
)

// InteractionService handles likes and saved posts.
type InteractionService struct {
	interactionRepo repository.InteractionRepository
	postRepo        repository.PostRepository
	publisher       EventPublisher
}

func NewInteractionService(
	interactionRepo repository.InteractionRepository,
	postRepo repository.PostRepository,
	publisher EventPublisher,
) *InteractionService {
	return &InteractionService{interactionRepo: interactionRepo, postRepo: postRepo, publisher: publisher}
}

// Like records the like and notifies the post owner unless they liked their own post.
func (s *InteractionService) Like(ctx context.Context, userID, postID uint) (*models.Like, error) {
	if postID == 0 {
		return nil, models.NewValidationError("Invalid post_id")
	}
	ownerID, err := s.postRepo.OwnerID(ctx, postID)
	if err != nil {
		return nil, notFoundOr(err, "Post")
	}

	like := &models.Like{UserID: userID, PostID: postID}
	notif := newNotification(ownerID, userID, models.NotificationLike)
	if notif != nil {
		notif.PostID = &postID
	}
	if err := s.interactionRepo.Like(ctx, like, notif); err != nil {
		if isDuplicate(err) {
			return nil, models.NewConflictError("Already like this post")
		}
		return nil, internal(err)
	}
	notifyCreated(ctx, s.publisher, notif)
	return like, nil
}

func (s *InteractionService) Unlike(ctx context.Context, userID, postID uint) error {
	ok, err := s.interactionRepo.Unlike(ctx, userID, postID)
	if err != nil {
		return internal(err)
	}
	if !ok {
		return models.NewNotFoundError("Like", nil)
	}
	return nil
}

// Save bookmarks a post; saving twice is a no-op.
func (s *InteractionService) Save(ctx context.Context, userID, postID uint) error {
	if postID == 0 {
		return models.NewValidationError("post_id is required")
	}
	ok, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return internal(err)
	}
	if !ok {
		return models.NewValidationError("Post not found")
	}
	if err := s.interactionRepo.Save(ctx, userID, postID); err != nil {
		return internal(err)
	}
	return nil
}

func (s *InteractionService) Unsave(ctx context.Context, userID, postID uint) error {
	ok, err := s.interactionRepo.Unsave(ctx, userID, postID)
	if err != nil {
		return internal(err)
	}
	if !ok {
		return models.NewNotFoundError("Save", nil)
	}
	return nil
}

func (s *InteractionService) ListSaved(ctx context.Context, userID uint) ([]models.PostSummary, error) {
	saved, err := s.interactionRepo.ListSaved(ctx, userID)
	if err != nil {
		return nil, internal(err)
	}
	if saved == nil {
		saved = []models.PostSummary{}
	}
	return saved, nil
}
