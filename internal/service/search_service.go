package service

import (
	"context"
	"strings"

	"kinship/internal/models"
	"kinship/internal/repository"

	"golang.org/x/sync/errgroup"
)

const minSearchLen = 2

// SearchResult groups user and post hits.
type SearchResult struct {
	Users []models.UserSummary `json:"users"`
	Posts []models.PostSummary `json:"posts"`
}

type SearchService struct {
	searchRepo repository.SearchRepository
}

func NewSearchService(searchRepo repository.SearchRepository) *SearchService {
	return &SearchService{searchRepo: searchRepo}
}

// Search matches users by username or full name and posts by content. Both
// lookups run concurrently.
func (s *SearchService) Search(ctx context.Context, q string) (*SearchResult, error) {
	q = strings.TrimSpace(q)
	if len([]rune(q)) < minSearchLen {
		return nil, models.NewValidationError("Search term must be at least 2 characters")
	}

	res := &SearchResult{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		users, err := s.searchRepo.Users(gctx, q)
		res.Users = users
		return err
	})
	g.Go(func() error {
		posts, err := s.searchRepo.Posts(gctx, q)
		res.Posts = posts
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, internal(err)
	}

	if res.Users == nil {
		res.Users = []models.UserSummary{}
	}
	if res.Posts == nil {
		res.Posts = []models.PostSummary{}
	}
	return res, nil
}
