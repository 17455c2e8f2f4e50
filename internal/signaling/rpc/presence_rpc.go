package rpc

import (
	"encoding/json"

	"github.com/oncolink/telehealth/internal/core"
)

type ConnectedParams struct {
	ID core.ConnectionID `json:"id"`
}

type ConnectedRpc struct {
	jsonRpcHead
	Params ConnectedParams `json:"params"`
}

func NewConnectedRpc(id core.ConnectionID) *ConnectedRpc {
	return &ConnectedRpc{
		jsonRpcHead: newHead(ConnectedMethod),
		Params:      ConnectedParams{ID: id},
	}
}

func (r ConnectedRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

type UserParams struct {
	Username string            `json:"username"`
	ID       core.ConnectionID `json:"id"`
}

// UserJoinedRpc announces a user either to everyone (user-joined) or to the
// video room (user-joined-video).
type UserJoinedRpc struct {
	jsonRpcHead
	Params UserParams `json:"params"`
}

func NewUserJoinedRpc(id core.ConnectionID, username string) *UserJoinedRpc {
	return &UserJoinedRpc{
		jsonRpcHead: newHead(UserJoinedMethod),
		Params:      UserParams{Username: username, ID: id},
	}
}

func NewUserJoinedVideoRpc(id core.ConnectionID, username string) *UserJoinedRpc {
	return &UserJoinedRpc{
		jsonRpcHead: newHead(UserJoinedVideoMethod),
		Params:      UserParams{Username: username, ID: id},
	}
}

func (r UserJoinedRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// VideoUser is encoded as an [id, username] pair.
type VideoUser struct {
	ID       core.ConnectionID
	Username string
}

func (u VideoUser) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{string(u.ID), u.Username})
}

func (u *VideoUser) UnmarshalJSON(b []byte) error {
	pair := [2]string{}
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	u.ID = core.ConnectionID(pair[0])
	u.Username = pair[1]
	return nil
}

type ExistingVideoUsersRpc struct {
	jsonRpcHead
	Params []VideoUser `json:"params"`
}

func NewExistingVideoUsersRpc(users []VideoUser) *ExistingVideoUsersRpc {
	if users == nil {
		users = []VideoUser{}
	}
	return &ExistingVideoUsersRpc{
		jsonRpcHead: newHead(ExistingVideoUsersMethod),
		Params:      users,
	}
}

func (r ExistingVideoUsersRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

type UserDisconnectedVideoRpc struct {
	jsonRpcHead
	Params ConnectedParams `json:"params"`
}

func NewUserDisconnectedVideoRpc(id core.ConnectionID) *UserDisconnectedVideoRpc {
	return &UserDisconnectedVideoRpc{
		jsonRpcHead: newHead(UserDisconnectedVideoMethod),
		Params:      ConnectedParams{ID: id},
	}
}

func (r UserDisconnectedVideoRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

type Participant struct {
	Name string          `json:"name"`
	Time json.RawMessage `json:"time,omitempty"`
}

type ParticipantsUpdateRpc struct {
	jsonRpcHead
	Params []Participant `json:"params"`
}

func NewParticipantsUpdateRpc(participants []Participant) *ParticipantsUpdateRpc {
	if participants == nil {
		participants = []Participant{}
	}
	return &ParticipantsUpdateRpc{
		jsonRpcHead: newHead(ParticipantsUpdateMethod),
		Params:      participants,
	}
}

func (r ParticipantsUpdateRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}
