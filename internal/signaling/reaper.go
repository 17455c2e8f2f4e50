package signaling

import (
	"github.com/rs/zerolog/log"

	"github.com/oncolink/telehealth/internal/core"
)

// DisconnectReaper tears down everything a lost connection left behind.
type DisconnectReaper struct {
	conns *ConnectionRegistry
	rooms []*PresenceSet

	onRoomLeft func(kind RoomKind, id core.ConnectionID)
}

func NewDisconnectReaper(conns *ConnectionRegistry, rooms ...*PresenceSet) *DisconnectReaper {
	return &DisconnectReaper{
		conns: conns,
		rooms: rooms,
	}
}

// OnRoomLeft is called for every room the connection is removed from.
func (r *DisconnectReaper) OnRoomLeft(f func(kind RoomKind, id core.ConnectionID)) {
	r.onRoomLeft = f
}

// Reap removes id from every room, notifying the remaining audience, and then
// from the registry. Repeated calls for the same id do nothing.
func (r *DisconnectReaper) Reap(id core.ConnectionID) bool {
	if !r.conns.Exists(id) {
		return false
	}

	for _, room := range r.rooms {
		if !room.Leave(id) {
			continue
		}
		if r.onRoomLeft != nil {
			r.onRoomLeft(room.Kind, id)
		}
	}
	r.conns.Unregister(id)

	log.Debug().Str("service", "reaper").Str("connID", string(id)).Msg("connection reaped")

	return true
}
