package signaling

import (
	"encoding/json"

	"github.com/oncolink/telehealth/internal/core"
	"github.com/oncolink/telehealth/internal/signaling/rpc"
)

// RoomKind is the closed set of rooms a connection can be present in.
type RoomKind string

const (
	VideoRoom RoomKind = "video"
	TextRoom  RoomKind = "text-chat"
)

// RoomKinds lists every room in the order they are torn down on disconnect.
var RoomKinds = []RoomKind{VideoRoom, TextRoom}

// Member is one participant binding in a room. Name and Time are declared by
// the client and never checked against any identity.
type Member struct {
	ID   core.ConnectionID
	Name string
	Time json.RawMessage
}

type audience int

const (
	// other members of the same room
	roomAudience audience = iota
	// every registered connection
	everyoneAudience
)

// announcer builds the notifications a room sends on membership change.
type announcer interface {
	joined(m Member, members []Member) rpc.Rpc
	left(id core.ConnectionID, members []Member) rpc.Rpc
	audience() audience
}

func announcerFor(kind RoomKind) announcer {
	if kind == TextRoom {
		return textAnnouncer{}
	}
	return videoAnnouncer{}
}

type videoAnnouncer struct{}

func (videoAnnouncer) joined(m Member, _ []Member) rpc.Rpc {
	return rpc.NewUserJoinedVideoRpc(m.ID, m.Name)
}

func (videoAnnouncer) left(id core.ConnectionID, _ []Member) rpc.Rpc {
	return rpc.NewUserDisconnectedVideoRpc(id)
}

func (videoAnnouncer) audience() audience {
	return roomAudience
}

// textAnnouncer republishes the whole participant list on every change.
type textAnnouncer struct{}

func (textAnnouncer) joined(_ Member, members []Member) rpc.Rpc {
	return participantsUpdate(members)
}

func (textAnnouncer) left(_ core.ConnectionID, members []Member) rpc.Rpc {
	return participantsUpdate(members)
}

func (textAnnouncer) audience() audience {
	return everyoneAudience
}

func participantsUpdate(members []Member) *rpc.ParticipantsUpdateRpc {
	participants := make([]rpc.Participant, 0, len(members))
	for _, m := range members {
		participants = append(participants, rpc.Participant{Name: m.Name, Time: m.Time})
	}
	return rpc.NewParticipantsUpdateRpc(participants)
}

func videoUsers(members []Member) []rpc.VideoUser {
	users := make([]rpc.VideoUser, 0, len(members))
	for _, m := range members {
		users = append(users, rpc.VideoUser{ID: m.ID, Username: m.Name})
	}
	return users
}
