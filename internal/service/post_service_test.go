package service

import (
	"context"
	"strings"
	"testing"

	"kinship/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uintPtr(v uint) *uint { return &v }

func TestPostService_CreatePost(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		input   CreatePostInput
		wantErr string
	}{
		{"empty post", CreatePostInput{UserID: 1, Content: strPtr("   ")}, models.CodeValidation},
		{"zero share is no share", CreatePostInput{UserID: 1, SharedPostID: uintPtr(0)}, models.CodeValidation},
		{"too long", CreatePostInput{UserID: 1, Content: strPtr(strings.Repeat("x", maxPostContentLen+1))}, models.CodeValidation},
		{"text", CreatePostInput{UserID: 1, Content: strPtr("hello")}, ""},
		{"image only", CreatePostInput{UserID: 1, ImageURL: strPtr("https://cdn/x.png")}, ""},
		{"share only", CreatePostInput{UserID: 1, SharedPostID: uintPtr(5)}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewPostService(noopPostRepo())
			post, err := svc.CreatePost(ctx, tt.input)
			if tt.wantErr != "" {
				assertAppError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, post)
		})
	}
}

func TestPostService_CreatePost_TrimsContent(t *testing.T) {
	repo := noopPostRepo()
	var stored *models.Post
	repo.createFn = func(_ context.Context, p *models.Post) error {
		p.ID = 4
		stored = p
		return nil
	}

	_, err := NewPostService(repo).CreatePost(context.Background(), CreatePostInput{
		UserID: 1, Content: strPtr("  hi  "), ImageURL: strPtr(" "),
	})
	require.NoError(t, err)
	assert.Equal(t, "hi", *stored.Content)
	assert.Nil(t, stored.ImageURL)
}

func TestPostService_CreatePost_MissingSharedPost(t *testing.T) {
	repo := noopPostRepo()
	repo.existsFn = func(_ context.Context, _ uint) (bool, error) { return false, nil }

	_, err := NewPostService(repo).CreatePost(context.Background(), CreatePostInput{UserID: 1, SharedPostID: uintPtr(99)})
	appErr := assertAppError(t, err, models.CodeNotFound)
	assert.Equal(t, "Shared post not found", appErr.Message)
}

func TestPostService_Feed_NeverNil(t *testing.T) {
	posts, err := NewPostService(noopPostRepo()).Feed(context.Background(), 1, 20, 0)
	require.NoError(t, err)
	assert.NotNil(t, posts)
}

func TestPostService_UpdatePost(t *testing.T) {
	ctx := context.Background()
	owned := func(_ context.Context, id, _ uint) (*models.Post, error) {
		return &models.Post{ID: id, UserID: 1, Content: strPtr("old")}, nil
	}

	t.Run("not the author", func(t *testing.T) {
		repo := noopPostRepo()
		repo.getByIDFn = owned
		_, err := NewPostService(repo).UpdatePost(ctx, UpdatePostInput{UserID: 2, PostID: 3, Content: strPtr("x")})
		assertForbiddenError(t, err)
	})

	t.Run("nothing to change", func(t *testing.T) {
		repo := noopPostRepo()
		repo.getByIDFn = owned
		_, err := NewPostService(repo).UpdatePost(ctx, UpdatePostInput{UserID: 1, PostID: 3})
		assertValidationError(t, err)
	})

	t.Run("cannot blank the only content", func(t *testing.T) {
		repo := noopPostRepo()
		repo.getByIDFn = owned
		_, err := NewPostService(repo).UpdatePost(ctx, UpdatePostInput{UserID: 1, PostID: 3, Content: strPtr(" ")})
		assertValidationError(t, err)
	})

	t.Run("updates only given fields", func(t *testing.T) {
		repo := noopPostRepo()
		repo.getByIDFn = owned
		var fields map[string]any
		repo.updateFn = func(_ context.Context, _ uint, f map[string]any) error {
			fields = f
			return nil
		}
		_, err := NewPostService(repo).UpdatePost(ctx, UpdatePostInput{UserID: 1, PostID: 3, ImageURL: strPtr("https://cdn/y.png")})
		require.NoError(t, err)
		assert.Contains(t, fields, "image_url")
		assert.NotContains(t, fields, "content")
	})
}

func TestPostService_DeletePost(t *testing.T) {
	ctx := context.Background()

	t.Run("missing", func(t *testing.T) {
		repo := noopPostRepo()
		repo.ownerIDFn = func(_ context.Context, _ uint) (uint, error) { return 0, errNotFound() }
		err := NewPostService(repo).DeletePost(ctx, 1, 3)
		assertNotFoundError(t, err)
	})

	t.Run("not the author", func(t *testing.T) {
		deleted := false
		repo := noopPostRepo()
		repo.deleteFn = func(_ context.Context, _ uint) error {
			deleted = true
			return nil
		}
		err := NewPostService(repo).DeletePost(ctx, 2, 3)
		assertForbiddenError(t, err)
		assert.False(t, deleted)
	})

	t.Run("author", func(t *testing.T) {
		require.NoError(t, NewPostService(noopPostRepo()).DeletePost(ctx, 1, 3))
	})
}
