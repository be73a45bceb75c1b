package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewNotFoundError(t *testing.T) {
	assert.Equal(t, "Post with ID 7 not found", NewNotFoundError("Post", 7).Message)
	assert.Equal(t, "Post not found", NewNotFoundError("Post", nil).Message)
}

func TestErrorCode(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NewForbiddenError("nope"))
	assert.Equal(t, CodeForbidden, ErrorCode(wrapped))
	assert.Equal(t, "", ErrorCode(errors.New("plain")))
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("db down")
	err := NewInternalError(cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "db down")
}

func TestIsSchemaMissingError(t *testing.T) {
	assert.True(t, IsSchemaMissingError(errors.New(`ERROR: relation "messages" does not exist`)))
	assert.True(t, IsSchemaMissingError(errors.New("no such table: messages")))
	assert.False(t, IsSchemaMissingError(errors.New("connection refused")))
	assert.False(t, IsSchemaMissingError(nil))
}

func TestBuildCommentTree(t *testing.T) {
	one, two := uint(1), uint(2)
	missing := uint(99)
	flat := []*Comment{
		{ID: 1},
		{ID: 2, ParentCommentID: &one},
		{ID: 3, ParentCommentID: &two},
		{ID: 4, ParentCommentID: &missing},
	}

	roots := BuildCommentTree(flat)

	assert.Len(t, roots, 2)
	assert.Equal(t, uint(1), roots[0].ID)
	assert.Equal(t, uint(4), roots[1].ID)
	assert.Len(t, roots[0].Replies, 1)
	assert.Equal(t, uint(3), roots[0].Replies[0].Replies[0].ID)
}

func TestProfileDisplayName(t *testing.T) {
	var nilProfile *Profile
	assert.Equal(t, "User", nilProfile.DisplayName())
	name := "ana"
	assert.Equal(t, "ana", (&Profile{Username: &name}).DisplayName())
}
