package eventbus

import (
	"context"

	"github.com/go-redis/redis/v8"
)

// Channel is the pub/sub channel (or NATS subject) activity is published on.
type Channel string

const ActivityChannel Channel = "telehealth.activity"

type Publisher interface {
	Publish(rpc Rpc) error
}

type Subscriber interface {
	Subscribe() (RedisBus, error)
}

// RedisBus is the receiving end of a subscription.
type RedisBus interface {
	Channel() <-chan *redis.Message
	Close() error
}

type Subscription struct {
	pubsub *redis.PubSub
}

func (s *Subscription) Channel() <-chan *redis.Message {
	return s.pubsub.Channel()
}

func (s *Subscription) Close() error {
	return s.pubsub.Close()
}

type Eventbus struct {
	rdb     *redis.Client
	channel Channel
}

// RedisPubSub is factory for building Eventbus based on redis pubsub
func RedisPubSub(rdb *redis.Client, channel Channel) *Eventbus {
	if channel == "" {
		channel = ActivityChannel
	}
	return &Eventbus{rdb: rdb, channel: channel}
}

func (e *Eventbus) Publish(rpc Rpc) error {
	msg, err := rpc.ToJSON()
	if err != nil {
		return err
	}
	return e.rdb.Publish(context.Background(), string(e.channel), msg).Err()
}

func (e *Eventbus) Subscribe() (RedisBus, error) {
	ctx := context.Background()
	pubsub := e.rdb.Subscribe(ctx, string(e.channel))
	// Wait until subscription is created
	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, err
	}

	return &Subscription{pubsub: pubsub}, nil
}

// NoopPublisher discards everything. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(Rpc) error {
	return nil
}
