package eventbus

import (
	"sync"

	"github.com/go-redis/redis/v8"
)

type MockSubscriber struct {
	Subscribed bool
	Bus        RedisBus
}

func NewMockSubscriber(bus RedisBus) *MockSubscriber {
	return &MockSubscriber{
		Bus: bus,
	}
}

func (s *MockSubscriber) Subscribe() (RedisBus, error) {
	s.Subscribed = true

	return s.Bus, nil
}

type MockBus struct {
	Messages chan *redis.Message
	once     sync.Once
}

func NewMockBus() *MockBus {
	return &MockBus{Messages: make(chan *redis.Message)}
}

func (b *MockBus) Channel() <-chan *redis.Message {
	return b.Messages
}

func (b *MockBus) Close() error {
	b.once.Do(func() { close(b.Messages) })
	return nil
}

// MockPublisher records every published event.
type MockPublisher struct {
	lock      sync.Mutex
	Published []Rpc
	Err       error
}

func (p *MockPublisher) Publish(rpc Rpc) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.Published = append(p.Published, rpc)
	return p.Err
}

func (p *MockPublisher) Len() int {
	p.lock.Lock()
	defer p.lock.Unlock()

	return len(p.Published)
}
