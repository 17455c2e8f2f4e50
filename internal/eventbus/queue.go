package eventbus

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	ErrQueueFull   = errors.New("publish queue is full")
	ErrQueueClosed = errors.New("publish queue is closed")
)

const defaultQueueSize = 256

// Queue hands events to a slower Publisher from a background goroutine.
// Publish never blocks: when the buffer is full the event is rejected.
type Queue struct {
	next Publisher

	events chan Rpc
	done   chan struct{}

	closeOnce sync.Once
	lock      sync.RWMutex
	closed    bool
}

func NewQueue(next Publisher, size int) *Queue {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &Queue{
		next:   next,
		events: make(chan Rpc, size),
		done:   make(chan struct{}),
	}
}

func (q *Queue) Publish(rpc Rpc) error {
	q.lock.RLock()
	defer q.lock.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.events <- rpc:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run drains the queue until Close is called.
func (q *Queue) Run() {
	defer close(q.done)

	for rpc := range q.events {
		if err := q.next.Publish(rpc); err != nil {
			log.Error().Err(err).Str("service", "eventbus").Str("method", string(rpc.GetMethod())).Msg("can't publish activity")
		}
	}
}

// Close stops accepting events and waits for Run to flush the rest.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		q.lock.Lock()
		q.closed = true
		close(q.events)
		q.lock.Unlock()
	})
	<-q.done
}
