package rpc

import (
	"encoding/json"

	"github.com/oncolink/telehealth/internal/core"
)

// JoinParams is the client-declared identity for a room. Time is opaque and
// echoed back to text chat participants as sent.
type JoinParams struct {
	Username string          `json:"username"`
	Time     json.RawMessage `json:"time,omitempty"`
}

type JoinRpc struct {
	jsonRpcHead
	Params JoinParams `json:"params"`
}

func NewJoinRpc(method Method, params JoinParams) *JoinRpc {
	return &JoinRpc{
		jsonRpcHead: newHead(method),
		Params:      params,
	}
}

func (r JoinRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

type LeaveRpc struct {
	jsonRpcHead
	Params interface{} `json:"params"`
}

func NewLeaveRpc(method Method) *LeaveRpc {
	return &LeaveRpc{
		jsonRpcHead: newHead(method),
		Params:      nil,
	}
}

func (r LeaveRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

type RequestVideoStreamParams struct {
	ID core.ConnectionID `json:"id"`
}

type RequestVideoStreamRpc struct {
	jsonRpcHead
	Params RequestVideoStreamParams `json:"params"`
}

func NewRequestVideoStreamRpc(id core.ConnectionID) *RequestVideoStreamRpc {
	return &RequestVideoStreamRpc{
		jsonRpcHead: newHead(RequestVideoStreamMethod),
		Params:      RequestVideoStreamParams{ID: id},
	}
}

func (r RequestVideoStreamRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}
