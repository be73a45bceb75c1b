package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"kinship/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestConversationRepository_FindOrCreateDirect(t *testing.T) {
	db := newTestDB(t)
	repo := NewConversationRepository(db)
	ctx := context.Background()
	a := mkUser(t, db, "a")
	b := mkUser(t, db, "b")
	c := mkUser(t, db, "c")

	id, created, err := repo.FindOrCreateDirect(ctx, a, b)
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := repo.FindOrCreateDirect(ctx, b, a)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id, again, "A->B and B->A resolve to the same conversation")

	other, _, err := repo.FindOrCreateDirect(ctx, a, c)
	require.NoError(t, err)
	assert.NotEqual(t, id, other)

	ids, err := repo.ParticipantIDs(ctx, id)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{a, b}, ids)
}

func TestConversationRepository_FindOrCreateDirect_Concurrent(t *testing.T) {
	db := newTestDB(t)
	repo := NewConversationRepository(db)
	ctx := context.Background()
	a := mkUser(t, db, "a")
	b := mkUser(t, db, "b")

	const callers = 8
	ids := make([]uint, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			x, y := a, b
			if i%2 == 1 {
				x, y = b, a
			}
			id, _, err := repo.FindOrCreateDirect(ctx, x, y)
			assert.NoError(t, err)
			ids[i] = id
		}()
	}
	wg.Wait()
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}

	var n int64
	db.Model(&models.Conversation{}).Count(&n)
	assert.Equal(t, int64(1), n)
}

func TestConversationRepository_DirectIgnoresGroups(t *testing.T) {
	db := newTestDB(t)
	repo := NewConversationRepository(db)
	ctx := context.Background()
	a := mkUser(t, db, "a")
	b := mkUser(t, db, "b")

	group := &models.Conversation{GroupName: models.NullableString("pair"), CreatedBy: &a}
	require.NoError(t, repo.CreateGroup(ctx, group, []uint{a, b}))

	id, created, err := repo.FindOrCreateDirect(ctx, a, b)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, group.ID, id)
}

func TestConversationRepository_CreateGroup(t *testing.T) {
	db := newTestDB(t)
	repo := NewConversationRepository(db)
	ctx := context.Background()
	a := mkUser(t, db, "a")
	b := mkUser(t, db, "b")

	conv := &models.Conversation{GroupName: models.NullableString("crew"), CreatedBy: &a}
	err := repo.CreateGroup(ctx, conv, []uint{a, b, 9999})
	assert.ErrorIs(t, err, ErrMissingUsers)
	var n int64
	db.Model(&models.Conversation{}).Count(&n)
	assert.Zero(t, n, "nothing written when a member is unknown")

	conv = &models.Conversation{GroupName: models.NullableString("crew"), CreatedBy: &a}
	require.NoError(t, repo.CreateGroup(ctx, conv, []uint{a, b, b}))
	assert.True(t, conv.IsGroup)

	members, err := repo.Members(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "a", *members[0].Username)
}

func countSystemMessages(t *testing.T, db *gorm.DB, convID uint) []models.Message {
	t.Helper()
	var msgs []models.Message
	require.NoError(t, db.Where("conversation_id = ? AND kind = ?", convID, models.MessageKindSystem).Order("id").Find(&msgs).Error)
	return msgs
}

func TestConversationRepository_AddMembers(t *testing.T) {
	db := newTestDB(t)
	repo := NewConversationRepository(db)
	ctx := context.Background()
	a := mkUser(t, db, "A")
	b := mkUser(t, db, "B")
	c := mkUser(t, db, "C")
	d := mkUser(t, db, "D")

	group := &models.Conversation{GroupName: models.NullableString("G"), CreatedBy: &c}
	require.NoError(t, repo.CreateGroup(ctx, group, []uint{c, a, b}))

	msg, err := repo.AddMembers(ctx, group.ID, c, []uint{b, d})
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "C added D", msg.Content)
	assert.Equal(t, c, msg.SenderID)
	assert.True(t, msg.IsSystem())

	msg, err = repo.AddMembers(ctx, group.ID, c, []uint{b, d})
	require.NoError(t, err)
	assert.Nil(t, msg, "re-adding existing members appends nothing")

	assert.Len(t, countSystemMessages(t, db, group.ID), 1)
	ids, err := repo.ParticipantIDs(ctx, group.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{a, b, c, d}, ids)

	_, err = repo.AddMembers(ctx, group.ID, c, []uint{12345})
	assert.ErrorIs(t, err, ErrMissingUsers)
}

func TestConversationRepository_AddMembers_UsesFallbackName(t *testing.T) {
	db := newTestDB(t)
	repo := NewConversationRepository(db)
	ctx := context.Background()
	adder := mkUser(t, db, "adder")
	peer := mkUser(t, db, "peer")
	nameless := mkUser(t, db, "")

	group := &models.Conversation{GroupName: models.NullableString("g"), CreatedBy: &adder}
	require.NoError(t, repo.CreateGroup(ctx, group, []uint{adder, peer}))
	msg, err := repo.AddMembers(ctx, group.ID, adder, []uint{nameless})
	require.NoError(t, err)
	assert.Equal(t, "adder added User", msg.Content)
}

func TestConversationRepository_Leave(t *testing.T) {
	db := newTestDB(t)
	repo := NewConversationRepository(db)
	ctx := context.Background()
	a := mkUser(t, db, "alice")
	b := mkUser(t, db, "bob")

	group := &models.Conversation{GroupName: models.NullableString("g"), CreatedBy: &a}
	require.NoError(t, repo.CreateGroup(ctx, group, []uint{a, b}))

	msg, err := repo.Leave(ctx, group.ID, b)
	require.NoError(t, err)
	assert.Equal(t, "bob left the conversation", msg.Content)
	assert.Equal(t, b, msg.SenderID)

	ids, err := repo.ParticipantIDs(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{a}, ids)
	assert.Len(t, countSystemMessages(t, db, group.ID), 1)

	_, err = repo.Leave(ctx, group.ID, b)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Len(t, countSystemMessages(t, db, group.ID), 1, "failed leave appends nothing")

	_, err = repo.Leave(ctx, group.ID, a)
	require.NoError(t, err, "the last member may leave")
	ids, err = repo.ParticipantIDs(ctx, group.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestConversationRepository_ListForUser(t *testing.T) {
	db := newTestDB(t)
	repo := NewConversationRepository(db)
	msgs := NewMessageRepository(db)
	ctx := context.Background()
	me := mkUser(t, db, "me")
	pal := mkUser(t, db, "pal")
	quiet := mkUser(t, db, "quiet")

	quietID, _, err := repo.FindOrCreateDirect(ctx, me, quiet)
	require.NoError(t, err)
	palID, _, err := repo.FindOrCreateDirect(ctx, me, pal)
	require.NoError(t, err)
	group := &models.Conversation{GroupName: models.NullableString("team"), CreatedBy: &me}
	require.NoError(t, repo.CreateGroup(ctx, group, []uint{me, pal}))

	require.NoError(t, msgs.Create(ctx, &models.Message{ConversationID: group.ID, SenderID: pal, Content: "old"}, nil))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, msgs.Create(ctx, &models.Message{ConversationID: palID, SenderID: pal, Content: "one"}, nil))
	require.NoError(t, msgs.Create(ctx, &models.Message{ConversationID: palID, SenderID: pal, Content: "two"}, nil))

	list, err := repo.ListForUser(ctx, me)
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, palID, list[0].ID)
	assert.Equal(t, group.ID, list[1].ID)
	assert.Equal(t, quietID, list[2].ID, "conversations without messages sort last")

	first := list[0]
	assert.False(t, first.IsGroup)
	require.NotNil(t, first.OtherUserID)
	assert.Equal(t, pal, *first.OtherUserID)
	assert.Equal(t, "pal", *first.OtherUsername)
	assert.Equal(t, "two", *first.LastMessage)
	assert.Equal(t, "pal", *first.SenderUsername)
	assert.False(t, first.IsOwnMessage)
	assert.Equal(t, int64(2), first.UnreadCount)

	assert.True(t, list[1].IsGroup)
	assert.Nil(t, list[1].OtherUserID)
	assert.Equal(t, "team", *list[1].GroupName)
	assert.Nil(t, list[2].LastMessage)
}

func TestConversationRepository_OtherParticipant(t *testing.T) {
	db := newTestDB(t)
	repo := NewConversationRepository(db)
	ctx := context.Background()
	a := mkUser(t, db, "a")
	b := mkUser(t, db, "b")

	id, _, err := repo.FindOrCreateDirect(ctx, a, b)
	require.NoError(t, err)

	other, err := repo.OtherParticipant(ctx, id, a)
	require.NoError(t, err)
	assert.Equal(t, b, other.ID)
	assert.Equal(t, "b", *other.Username)

	group := &models.Conversation{GroupName: models.NullableString("solo"), CreatedBy: &a}
	require.NoError(t, repo.CreateGroup(ctx, group, []uint{a}))
	_, err = repo.OtherParticipant(ctx, group.ID, a)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	ok, err := repo.IsParticipant(ctx, id, a)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, repo.UpdateGroup(ctx, group.ID, map[string]any{"group_name": "renamed"}))
	conv, err := repo.GetByID(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", *conv.GroupName)
}
