package signaling

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oncolink/telehealth/internal/signaling/rpc"
)

var errSessionClosed = errors.New("session is closed")

type frame struct {
	Method rpc.Method      `json:"method"`
	Params json.RawMessage `json:"params"`
}

// MockSender collects frames the way a melody session would queue them.
type MockSender struct {
	lock   sync.Mutex
	frames [][]byte
	closed bool
}

func (s *MockSender) Write(msg []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return errSessionClosed
	}
	s.frames = append(s.frames, msg)
	return nil
}

func (s *MockSender) Close() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.closed = true
}

func (s *MockSender) Frames(t *testing.T) []frame {
	t.Helper()

	s.lock.Lock()
	defer s.lock.Unlock()

	frames := make([]frame, 0, len(s.frames))
	for _, raw := range s.frames {
		f := frame{}
		require.NoError(t, json.Unmarshal(raw, &f))
		frames = append(frames, f)
	}
	return frames
}

// Methods lists received methods, optionally filtered.
func (s *MockSender) Methods(t *testing.T, only ...rpc.Method) []rpc.Method {
	t.Helper()

	methods := []rpc.Method{}
	for _, f := range s.Frames(t) {
		if len(only) > 0 && !containsMethod(only, f.Method) {
			continue
		}
		methods = append(methods, f.Method)
	}
	return methods
}

// Last returns the params of the most recent frame with the given method.
func (s *MockSender) Last(t *testing.T, method rpc.Method) json.RawMessage {
	t.Helper()

	frames := s.Frames(t)
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].Method == method {
			return frames[i].Params
		}
	}
	t.Fatalf("no %s frame received", method)
	return nil
}

func (s *MockSender) Reset() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.frames = nil
}

func containsMethod(methods []rpc.Method, m rpc.Method) bool {
	for _, candidate := range methods {
		if candidate == m {
			return true
		}
	}
	return false
}
