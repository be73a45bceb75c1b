package service

import (
	"context"
	"time"

	"kinship/internal/models"
	"kinship/internal/repository"
)

type NotificationService struct {
	notificationRepo repository.NotificationRepository
}

func NewNotificationService(notificationRepo repository.NotificationRepository) *NotificationService {
	return &NotificationService{notificationRepo: notificationRepo}
}

// List returns the latest follow, like and comment notifications.
func (s *NotificationService) List(ctx context.Context, userID uint) ([]models.Notification, error) {
	out, err := s.notificationRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, internal(err)
	}
	if out == nil {
		out = []models.Notification{}
	}
	return out, nil
}

// MarkRead marks one of the caller's notifications; other users'
// notifications look missing.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) error {
	ok, err := s.notificationRepo.MarkRead(ctx, id, userID)
	if err != nil {
		return internal(err)
	}
	if !ok {
		return models.NewNotFoundError("Notification", nil)
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	n, err := s.notificationRepo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, internal(err)
	}
	return n, nil
}

func (s *NotificationService) UnreadCounts(ctx context.Context, userID uint) (*models.UnreadCounts, error) {
	counts, err := s.notificationRepo.UnreadCounts(ctx, userID)
	if err != nil {
		return nil, internal(err)
	}
	return &counts, nil
}

// Prune deletes read notifications older than maxAge.
func (s *NotificationService) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, models.NewValidationError("max age must be positive")
	}
	n, err := s.notificationRepo.PruneRead(ctx, time.Now().Add(-maxAge))
	if err != nil {
		return 0, internal(err)
	}
	return n, nil
}
