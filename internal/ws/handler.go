package ws

import (
	"errors"
	"net/http"

	"github.com/isqad/melody"
	"github.com/rs/zerolog/log"

	"github.com/oncolink/telehealth/internal/core"
	"github.com/oncolink/telehealth/internal/signaling"
)

const connIDSessionKey = "connID"

var errNoConnID = errors.New("no connection id in websocket session")

func WsHandler(websocket *melody.Melody) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionKeys := make(map[string]interface{})

		if err := websocket.HandleRequestWithKeys(w, r, sessionKeys); err != nil {
			log.Error().Err(err).Str("service", "websockets").Msg("can't handle request")
		}
	}
}

func ConnectHandler(comm *signaling.Commutator) func(session *melody.Session) {
	return func(session *melody.Session) {
		id := comm.Connect(session, session.Request.RemoteAddr)
		session.Keys[connIDSessionKey] = id
	}
}

func DisconnectHandler(comm *signaling.Commutator) func(session *melody.Session) {
	return func(session *melody.Session) {
		id, err := connIDFromSession(session)
		if err != nil {
			log.Error().Err(err).Str("service", "websockets").Msg("extract connection id")
			return
		}

		comm.Disconnect(id)
	}
}

func HandleMessage(comm *signaling.Commutator) func(s *melody.Session, msg []byte) {
	return func(s *melody.Session, msg []byte) {
		id, err := connIDFromSession(s)
		if err != nil {
			log.Error().Err(err).Str("service", "websockets").Msg("extract connection id")
			return
		}

		comm.HandleMessage(id, msg)
	}
}

func connIDFromSession(s *melody.Session) (core.ConnectionID, error) {
	id, ok := s.Keys[connIDSessionKey].(core.ConnectionID)
	if !ok {
		return "", errNoConnID
	}
	return id, nil
}
