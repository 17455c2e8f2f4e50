package archive

import (
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oncolink/telehealth/internal/core"
	"github.com/oncolink/telehealth/internal/eventbus"
)

type mockChats struct {
	saved []*core.ChatMessage
	err   error
}

func (m *mockChats) Save(msg *core.ChatMessage) (*core.ChatMessage, error) {
	if m.err != nil {
		return nil, m.err
	}
	msg.ID = int64(len(m.saved) + 1)
	m.saved = append(m.saved, msg)
	return msg, nil
}

func (m *mockChats) Recent(limit int) ([]*core.ChatMessage, error) {
	return m.saved, nil
}

type mockCalls struct {
	saved []*core.CallLog
}

func (m *mockCalls) Save(c *core.CallLog) (*core.CallLog, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.ID = int64(len(m.saved) + 1)
	m.saved = append(m.saved, c)
	return c, nil
}

func newTestArchiver() (*Archiver, *mockChats, *mockCalls) {
	chats := &mockChats{}
	calls := &mockCalls{}
	return NewArchiver(chats, calls), chats, calls
}

func TestArchiveChatMessage(t *testing.T) {
	a, chats, _ := newTestArchiver()

	msg := &core.ChatMessage{Name: "Alice", Message: "hello", Timestamp: time.Now()}
	require.NoError(t, a.Archive(eventbus.NewChatMessageRpc(msg)))

	require.Len(t, chats.saved, 1)
	assert.Equal(t, "hello", chats.saved[0].Message)
}

func TestArchiveCallLog(t *testing.T) {
	a, _, calls := newTestArchiver()

	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	call := &core.CallLog{
		Type:         core.VideoCall,
		Participants: []string{"Alice", "Bob"},
		StartTime:    start,
		EndTime:      start.Add(5 * time.Minute),
	}
	require.NoError(t, a.Archive(eventbus.NewCallLogRpc(call)))

	require.Len(t, calls.saved, 1)
	assert.Equal(t, 5*time.Minute, calls.saved[0].Duration())
}

func TestArchiveStorageError(t *testing.T) {
	a, chats, _ := newTestArchiver()
	chats.err = errors.New("db is down")

	err := a.SaveChatMessage(&core.ChatMessage{Name: "Alice", Message: "hello"})
	assert.EqualError(t, err, "db is down")
}

func TestArchiveInvalidCallLog(t *testing.T) {
	a, _, calls := newTestArchiver()

	err := a.SaveCallLog(&core.CallLog{Type: core.VideoCall})
	assert.ErrorIs(t, err, core.ErrIncompleteCallLog)
	assert.Empty(t, calls.saved)
}

func TestDaemonHandle(t *testing.T) {
	a, chats, _ := newTestArchiver()
	d := &Daemon{archiver: a}

	payload, err := eventbus.NewChatMessageRpc(&core.ChatMessage{Name: "Bob", Message: "hi"}).ToJSON()
	require.NoError(t, err)

	require.NoError(t, d.handle(payload))
	require.Len(t, chats.saved, 1)
	assert.Equal(t, "Bob", chats.saved[0].Name)
}

func TestDaemonHandleMalformed(t *testing.T) {
	a, chats, _ := newTestArchiver()
	d := &Daemon{archiver: a}

	assert.ErrorIs(t, d.handle([]byte(`{"jsonrpc":"2.0","method":"chat_message"}`)), eventbus.ErrMalformedRpc)
	assert.Error(t, d.handle([]byte(`not json`)))
	assert.Empty(t, chats.saved)
}

func TestDaemonOnMessageAfterStop(t *testing.T) {
	a, _, _ := newTestArchiver()
	d := &Daemon{archiver: a, errors: make(chan error), stop: make(chan struct{})}
	d.Shutdown()

	done := make(chan struct{})
	go func() {
		d.onMessage(&nats.Msg{Data: []byte(`not json`)})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("onMessage blocked after shutdown")
	}
}

func TestDaemonOnMessageReportsError(t *testing.T) {
	a, _, _ := newTestArchiver()
	d := &Daemon{archiver: a, errors: make(chan error, 1), stop: make(chan struct{})}

	d.onMessage(&nats.Msg{Data: []byte(`{"jsonrpc":"2.0","method":"call_log"}`)})

	select {
	case err := <-d.errors:
		assert.ErrorIs(t, err, eventbus.ErrMalformedRpc)
	default:
		t.Fatal("error was not reported")
	}
}
