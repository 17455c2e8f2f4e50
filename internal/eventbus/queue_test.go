package eventbus

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oncolink/telehealth/internal/core"
)

func TestQueueForwardsInOrder(t *testing.T) {
	next := &MockPublisher{}
	q := NewQueue(next, 4)
	go q.Run()

	require.NoError(t, q.Publish(NewChatMessageRpc(&core.ChatMessage{Name: "a", Message: "1"})))
	require.NoError(t, q.Publish(NewCallLogRpc(&core.CallLog{Type: core.VideoCall})))
	q.Close()

	require.Equal(t, 2, next.Len())
	assert.Equal(t, ChatMessageMethod, next.Published[0].GetMethod())
	assert.Equal(t, CallLogMethod, next.Published[1].GetMethod())
}

func TestQueueRejectsWhenFull(t *testing.T) {
	next := &MockPublisher{}
	q := NewQueue(next, 1)

	// nothing drains the queue until Run starts
	require.NoError(t, q.Publish(NewChatMessageRpc(&core.ChatMessage{Name: "a", Message: "1"})))
	assert.ErrorIs(t, q.Publish(NewChatMessageRpc(&core.ChatMessage{Name: "a", Message: "2"})), ErrQueueFull)

	go q.Run()
	q.Close()

	assert.Equal(t, 1, next.Len())
	assert.ErrorIs(t, q.Publish(NewChatMessageRpc(&core.ChatMessage{})), ErrQueueClosed)
}

func TestQueueKeepsGoingAfterPublishError(t *testing.T) {
	next := &MockPublisher{Err: errors.New("broker down")}
	q := NewQueue(next, 0)
	go q.Run()

	require.NoError(t, q.Publish(NewChatMessageRpc(&core.ChatMessage{Name: "a", Message: "1"})))
	require.NoError(t, q.Publish(NewChatMessageRpc(&core.ChatMessage{Name: "a", Message: "2"})))
	q.Close()

	assert.Equal(t, 2, next.Len())
}

func TestNoopPublisher(t *testing.T) {
	assert.NoError(t, NoopPublisher{}.Publish(NewChatMessageRpc(&core.ChatMessage{})))
}

func mockReader(s string) *strings.Reader {
	return strings.NewReader(s)
}
