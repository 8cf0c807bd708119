package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pawarasasmina/photobooth/config"
	"github.com/Pawarasasmina/photobooth/protocol"
	"github.com/Pawarasasmina/photobooth/session"
)

func testWSConfig() *config.WebSocketConfig {
	return &config.WebSocketConfig{
		MessageSizeLimit: 8 << 20,
		PingInterval:     25,
		PongTimeout:      60,
		WriteTimeout:     5,
		SendQueueSize:    4,
		MaxWriteRetries:  1,
	}
}

func TestClientSessionSendNeverBlocks(t *testing.T) {
	cs := NewClientSession("c1", nil, testWSConfig())
	// No write pump is draining, so the queue fills up.
	for i := 0; i < 4; i++ {
		require.NoError(t, cs.Send(protocol.Message{Type: "m"}))
	}
	err := cs.Send(protocol.Message{Type: "m"})
	assert.ErrorIs(t, err, ErrSendQueueFull, "a full queue must error, not block")
}

func TestClientSessionSendAfterClose(t *testing.T) {
	cs := NewClientSession("c1", nil, testWSConfig())
	cs.cancel()
	assert.Error(t, cs.Send(protocol.Message{Type: "m"}))
}

func TestClientSessionBindsOnce(t *testing.T) {
	cs := NewClientSession("c1", nil, testWSConfig())

	_, _, bound := cs.Binding()
	assert.False(t, bound)

	sess := &session.Session{ID: "s1"}
	assert.True(t, cs.Bind(sess, session.RoleCapture))
	assert.False(t, cs.Bind(sess, session.RoleController), "a connection joins at most once")

	got, role, bound := cs.Binding()
	assert.True(t, bound)
	assert.Same(t, sess, got)
	assert.Equal(t, session.RoleCapture, role)
}
