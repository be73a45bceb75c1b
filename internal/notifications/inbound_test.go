package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRelay struct {
	mock.Mock
}

func (m *mockRelay) Typing(ctx context.Context, userID, convID uint, isTyping bool) error {
	args := m.Called(ctx, userID, convID, isTyping)
	return args.Error(0)
}

func (m *mockRelay) IsParticipant(ctx context.Context, convID, userID uint) (bool, error) {
	args := m.Called(ctx, convID, userID)
	return args.Bool(0), args.Error(1)
}

func frameType(t *testing.T, raw string) string {
	t.Helper()
	var f outboundFrame
	require.NoError(t, json.Unmarshal([]byte(raw), &f))
	return f.Type
}

func TestInboundHandler_Typing(t *testing.T) {
	hub := NewHub()
	relay := new(mockRelay)
	relay.On("Typing", mock.Anything, uint(1), uint(3), true).Return(nil).Once()
	relay.On("Typing", mock.Anything, uint(1), uint(3), false).Return(nil).Once()
	relay.On("Typing", mock.Anything, uint(1), uint(4), true).Return(errors.New("forbidden")).Once()

	c, err := hub.Register(1, nil, nil)
	require.NoError(t, err)
	handle := InboundHandler(hub, relay)

	handle(c, []byte(`{"type":"typing","conversation_id":3}`))
	handle(c, []byte(`{"type":"typing","conversation_id":3,"is_typing":false}`))
	assertNothing(t, c)

	handle(c, []byte(`{"type":"typing","conversation_id":4}`))
	assert.Equal(t, "error", frameType(t, recv(t, c)))
	relay.AssertExpectations(t)
}

func TestInboundHandler_Subscribe(t *testing.T) {
	hub := NewHub()
	relay := new(mockRelay)
	relay.On("IsParticipant", mock.Anything, uint(8), uint(1)).Return(true, nil)
	relay.On("IsParticipant", mock.Anything, uint(9), uint(1)).Return(false, nil)

	c, err := hub.Register(1, nil, nil)
	require.NoError(t, err)
	handle := InboundHandler(hub, relay)

	handle(c, []byte(`{"type":"subscribe","conversation_id":9}`))
	assert.Equal(t, "error", frameType(t, recv(t, c)))
	hub.DeliverConversation(9, "secret")
	assertNothing(t, c)

	handle(c, []byte(`{"type":"subscribe","conversation_id":8}`))
	assert.Equal(t, "subscribed", frameType(t, recv(t, c)))
	hub.DeliverConversation(8, "hello")
	assert.Equal(t, "hello", recv(t, c))
}

func TestInboundHandler_PingAndGarbage(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(1, nil, nil)
	require.NoError(t, err)
	handle := InboundHandler(hub, new(mockRelay))

	handle(c, []byte(`{"type":"ping"}`))
	assert.Equal(t, "pong", frameType(t, recv(t, c)))

	handle(c, []byte(`not json`))
	assert.Equal(t, "error", frameType(t, recv(t, c)))

	handle(c, []byte(`{"type":"dance"}`))
	assert.Equal(t, "error", frameType(t, recv(t, c)))
}
