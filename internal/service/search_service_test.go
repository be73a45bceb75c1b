package service

import (
	"context"
	"errors"
	"testing"

	"kinship/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchService_Search(t *testing.T) {
	var gotTerm string
	repo := &searchRepoStub{
		usersFn: func(_ context.Context, term string) ([]models.UserSummary, error) {
			gotTerm = term
			return []models.UserSummary{{ID: 1}}, nil
		},
		postsFn: func(_ context.Context, _ string) ([]models.PostSummary, error) { return nil, nil },
	}
	svc := NewSearchService(repo)

	_, err := svc.Search(context.Background(), " a ")
	appErr := assertAppError(t, err, models.CodeValidation)
	assert.Equal(t, "Search term must be at least 2 characters", appErr.Message)

	res, err := svc.Search(context.Background(), "  ad ")
	require.NoError(t, err)
	assert.Equal(t, "ad", gotTerm)
	assert.Len(t, res.Users, 1)
	assert.NotNil(t, res.Posts)
}

func TestSearchService_Search_RepoFailure(t *testing.T) {
	repo := &searchRepoStub{
		usersFn: func(_ context.Context, _ string) ([]models.UserSummary, error) { return nil, nil },
		postsFn: func(_ context.Context, _ string) ([]models.PostSummary, error) { return nil, errors.New("boom") },
	}
	_, err := NewSearchService(repo).Search(context.Background(), "golang")
	assertAppError(t, err, models.CodeInternal)
}
