package signaling

import (
	"github.com/rs/zerolog/log"

	"github.com/oncolink/telehealth/internal/core"
	"github.com/oncolink/telehealth/internal/signaling/rpc"
	"github.com/oncolink/telehealth/internal/telemetry"
)

// Envelope is one handshake message in flight between two connections.
type Envelope struct {
	From   core.ConnectionID
	To     core.ConnectionID
	Signal *rpc.SignalRpc
}

// SignalRelay forwards envelopes to exactly one connection. It keeps no state
// of its own and never looks inside the payload.
type SignalRelay struct {
	conns *ConnectionRegistry
}

func NewSignalRelay(conns *ConnectionRegistry) *SignalRelay {
	return &SignalRelay{conns: conns}
}

// Relay delivers env to its destination with "from" stamped to the real
// sender. A destination that is not connected drops the envelope; the sender
// is never told.
func (s *SignalRelay) Relay(env Envelope) bool {
	method := string(env.Signal.GetMethod())

	dest, ok := s.conns.Lookup(env.To)
	if !ok {
		log.Debug().Str("service", "relay").Str("method", method).Str("from", string(env.From)).Str("to", string(env.To)).Msg("destination is gone, dropping")
		telemetry.EnvelopeDropped(method)
		return false
	}

	stamped, err := env.Signal.StampFrom(env.From)
	if err != nil {
		log.Error().Err(err).Str("service", "relay").Str("method", method).Msg("can't stamp sender")
		telemetry.EnvelopeDropped(method)
		return false
	}

	if err := dest.Send(stamped); err != nil {
		log.Debug().Err(err).Str("service", "relay").Str("method", method).Str("to", string(env.To)).Msg("write failed, dropping")
		telemetry.EnvelopeDropped(method)
		return false
	}
	telemetry.EnvelopeRelayed(method)

	return true
}
