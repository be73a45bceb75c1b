package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func recv(t *testing.T, c *Client) string {
	t.Helper()
	select {
	case msg := <-c.Send:
		return string(msg)
	case <-time.After(testEventuallyTimeout):
		t.Fatal("no message delivered")
		return ""
	}
}

func assertNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.Send:
		t.Fatalf("unexpected message %q", msg)
	default:
	}
}

func TestHub_RoutesUserAndConversationEvents(t *testing.T) {
	hub := NewHub()
	ada, err := hub.Register(1, nil, []uint{10})
	require.NoError(t, err)
	bob, err := hub.Register(2, nil, []uint{10, 11})
	require.NoError(t, err)

	hub.Route(UserChannel(1), "for ada")
	assert.Equal(t, "for ada", recv(t, ada))
	assertNothing(t, bob)

	hub.Route(ConversationChannel(10), "conv 10")
	assert.Equal(t, "conv 10", recv(t, ada))
	assert.Equal(t, "conv 10", recv(t, bob))

	hub.Route(ConversationChannel(11), "conv 11")
	assert.Equal(t, "conv 11", recv(t, bob))
	assertNothing(t, ada)

	hub.Route("something:else", "ignored")
	assertNothing(t, ada)
	assertNothing(t, bob)
}

func TestHub_SubscribeAfterRegister(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(1, nil, nil)
	require.NoError(t, err)

	hub.DeliverConversation(5, "before")
	assertNothing(t, c)

	hub.Subscribe(c, 5)
	hub.DeliverConversation(5, "after")
	assert.Equal(t, "after", recv(t, c))
}

func TestHub_MemberLeftStopsConversationRelay(t *testing.T) {
	hub := NewHub()
	ada, err := hub.Register(1, nil, []uint{10})
	require.NoError(t, err)
	dan, err := hub.Register(4, nil, []uint{10, 11})
	require.NoError(t, err)
	danPhone, err := hub.Register(4, nil, []uint{10})
	require.NoError(t, err)

	hub.Route(ConversationChannel(10), `{"type":"message_received","payload":{"content":"dan left the conversation"}}`)
	assert.Contains(t, recv(t, dan), "dan left the conversation")
	assert.Contains(t, recv(t, danPhone), "dan left the conversation")
	recv(t, ada)

	left := `{"type":"member_left","payload":{"conversation_id":10,"user_id":4}}`
	hub.Route(ConversationChannel(10), left)
	assert.Equal(t, left, recv(t, ada))
	assertNothing(t, dan)
	assertNothing(t, danPhone)

	hub.Route(ConversationChannel(10), "private message after dan left")
	assert.Equal(t, "private message after dan left", recv(t, ada))
	assertNothing(t, dan)
	assertNothing(t, danPhone)

	hub.Route(ConversationChannel(11), "other group")
	assert.Equal(t, "other group", recv(t, dan))

	hub.UnregisterClient(dan)
	hub.UnregisterClient(danPhone)
	assert.NotContains(t, hub.convs, uint(11))
}

func TestHub_UnsubscribeLastClientDropsConversation(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(7, nil, []uint{3})
	require.NoError(t, err)

	hub.Unsubscribe(7, 3)
	assert.NotContains(t, hub.convs, uint(3))
	assert.Empty(t, hub.subs[c])

	hub.Unsubscribe(99, 3)
	hub.DeliverConversation(3, "nobody")
	assertNothing(t, c)
}

func TestMemberLeft(t *testing.T) {
	id, ok := memberLeft(`{"type":"member_left","payload":{"user_id":9}}`)
	assert.True(t, ok)
	assert.Equal(t, uint(9), id)

	_, ok = memberLeft(`{"type":"message_received","payload":{"content":"member_left"}}`)
	assert.False(t, ok)
	_, ok = memberLeft(`{"type":"member_left","payload":{}}`)
	assert.False(t, ok)
	_, ok = memberLeft("plain text")
	assert.False(t, ok)
}

func TestHub_UnregisterCleansIndexes(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(1, nil, []uint{3})
	require.NoError(t, err)
	assert.Equal(t, 1, hub.ConnectionCount())

	hub.UnregisterClient(c)
	hub.UnregisterClient(c)
	assert.Equal(t, 0, hub.ConnectionCount())
	assert.Empty(t, hub.users)
	assert.Empty(t, hub.convs)

	_, open := <-c.Send
	assert.False(t, open)

	assert.NotPanics(t, func() { hub.DeliverConversation(3, "late") })
	assert.NotPanics(t, func() { c.TrySend([]byte("late")) })
}

func TestHub_PerUserLimit(t *testing.T) {
	hub := NewHub()
	for range maxConnsPerUser {
		_, err := hub.Register(1, nil, nil)
		require.NoError(t, err)
	}
	_, err := hub.Register(1, nil, nil)
	assert.ErrorIs(t, err, ErrUserLimit)

	_, err = hub.Register(2, nil, nil)
	assert.NoError(t, err)
}

func TestHub_ShutdownRejectsNewClients(t *testing.T) {
	hub := NewHub()
	_, err := hub.Register(1, nil, []uint{2})
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))
	assert.Equal(t, 0, hub.ConnectionCount())

	_, err = hub.Register(1, nil, nil)
	assert.ErrorIs(t, err, ErrHubShutdown)
}

func TestClient_TrySendDropsWhenFull(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(1, nil, nil)
	require.NoError(t, err)

	for range sendBuffer {
		c.TrySend([]byte("x"))
	}
	c.TrySend([]byte("overflow"))
	assert.Len(t, c.Send, sendBuffer)
}

func TestClient_InboundLimiter(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(1, nil, nil)
	require.NoError(t, err)

	allowed := 0
	for range inboundBurst * 3 {
		if c.Allow() {
			allowed++
		}
	}
	assert.GreaterOrEqual(t, allowed, inboundBurst)
	assert.Less(t, allowed, inboundBurst*3)
}
