package eventbus

import (
	"bytes"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/oncolink/telehealth/internal/core"
)

var (
	errConvertChatMessage = errors.New("can't convert to chat message")
	errConvertCallLog     = errors.New("can't convert to call log")
	errUndefinedMethod    = errors.New("undefined method")
)

// Router subscribes to the activity channel and hands every event to the
// matching callback.
type Router struct {
	EventsSubscriber Subscriber
	bus              RedisBus

	done chan struct{}

	onChatMessage func(*core.ChatMessage) error
	onCallLog     func(*core.CallLog) error
}

func NewRouter(sub Subscriber) (*Router, error) {
	router := &Router{
		EventsSubscriber: sub,
		done:             make(chan struct{}),
	}
	bus, err := router.EventsSubscriber.Subscribe()
	if err != nil {
		return nil, err
	}
	router.bus = bus

	return router, nil
}

// Start consumes the subscription in the background. The returned channel is
// closed once the consumer is running.
func (router *Router) Start() <-chan struct{} {
	log.Debug().Str("service", "router").Msg("start")

	ready := make(chan struct{})

	go func() {
		defer close(router.done)

		channel := router.bus.Channel()
		close(ready)

		for msg := range channel {
			r, err := RpcFromReader(bytes.NewReader([]byte(msg.Payload)))
			if err != nil {
				log.Error().Err(err).Str("service", "router").Msg("can't parse activity")
				continue
			}

			router.dispatch(r)
		}
	}()

	return ready
}

// Stop closes the subscription. The returned channel is closed after the last
// received event has been handled.
func (router *Router) Stop() <-chan struct{} {
	if err := router.bus.Close(); err != nil {
		log.Error().Err(err).Str("service", "router").Msg("close subscription")
	}
	return router.done
}

func (router *Router) dispatch(r Rpc) {
	switch r.GetMethod() {
	case ChatMessageMethod:
		msg, ok := r.(*ChatMessageRpc)
		if !ok {
			log.Error().Err(errConvertChatMessage).Str("service", "router").Msg("")
			return
		}
		if router.onChatMessage == nil {
			return
		}
		if err := router.onChatMessage(msg.Params); err != nil {
			log.Error().Err(err).Str("service", "router").Msg("error occured in onChatMessage")
		}
	case CallLogMethod:
		msg, ok := r.(*CallLogRpc)
		if !ok {
			log.Error().Err(errConvertCallLog).Str("service", "router").Msg("")
			return
		}
		if router.onCallLog == nil {
			return
		}
		if err := router.onCallLog(msg.Params); err != nil {
			log.Error().Err(err).Str("service", "router").Msg("error occured in onCallLog")
		}
	default:
		log.Error().Err(errUndefinedMethod).Str("rpcMethod", string(r.GetMethod())).Str("service", "router").Msg("")
	}
}

func (router *Router) OnChatMessage(callback func(*core.ChatMessage) error) {
	router.onChatMessage = callback
}

func (router *Router) OnCallLog(callback func(*core.CallLog) error) {
	router.onCallLog = callback
}
