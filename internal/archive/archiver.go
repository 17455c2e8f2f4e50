package archive

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/oncolink/telehealth/internal/core"
	"github.com/oncolink/telehealth/internal/eventbus"
)

var errUnsupportedEvent = errors.New("unsupported activity event")

// Archiver persists chat and call activity published by the relay.
type Archiver struct {
	chats core.ChatDBStorer
	calls core.CallLogDBStorer
}

func NewArchiver(chats core.ChatDBStorer, calls core.CallLogDBStorer) *Archiver {
	return &Archiver{chats: chats, calls: calls}
}

func (a *Archiver) SaveChatMessage(msg *core.ChatMessage) error {
	saved, err := a.chats.Save(msg)
	if err != nil {
		return err
	}
	log.Debug().Str("service", "archiver").Int64("id", saved.ID).Str("name", saved.Name).Msg("chat message archived")
	return nil
}

func (a *Archiver) SaveCallLog(call *core.CallLog) error {
	saved, err := a.calls.Save(call)
	if err != nil {
		return err
	}
	log.Debug().
		Str("service", "archiver").
		Int64("id", saved.ID).
		Strs("participants", saved.Participants).
		Dur("duration", saved.Duration()).
		Msg("call log archived")
	return nil
}

// Archive stores any activity event.
func (a *Archiver) Archive(r eventbus.Rpc) error {
	switch msg := r.(type) {
	case *eventbus.ChatMessageRpc:
		return a.SaveChatMessage(msg.Params)
	case *eventbus.CallLogRpc:
		return a.SaveCallLog(msg.Params)
	default:
		return errUnsupportedEvent
	}
}
