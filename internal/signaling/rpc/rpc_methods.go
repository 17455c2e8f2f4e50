package rpc

import (
	"encoding/json"
	"errors"
	"io"
)

const jsonRpcVersion = "2.0"

// Method is the event name carried in the "method" field of every frame.
type Method string

// Inbound events
const (
	JoinVideoCallMethod      Method = "join-video-call"
	JoinVideoStreamMethod    Method = "join-video-stream"
	LeaveVideoStreamMethod   Method = "leave-video-stream"
	RequestVideoStreamMethod Method = "request-video-stream"
	JoinTextChatMethod       Method = "join-text-chat"
	LeaveTextChatMethod      Method = "leave-text-chat"
	ChatMessageMethod        Method = "chat-message"
	OfferMethod              Method = "offer"
	AnswerMethod             Method = "answer"
	ICECandidateMethod       Method = "ice-candidate"
)

// Outbound events
const (
	ConnectedMethod             Method = "connected"
	UserJoinedMethod            Method = "user-joined"
	ExistingVideoUsersMethod    Method = "existing-video-users"
	UserJoinedVideoMethod       Method = "user-joined-video"
	UserDisconnectedVideoMethod Method = "user-disconnected-video"
	ParticipantsUpdateMethod    Method = "participants-update"
)

var (
	ErrUnknownRpcType = errors.New("unknown RPC type")
	ErrMalformedRpc   = errors.New("malformed RPC")
)

type Rpc interface {
	GetMethod() Method
	ToJSON() ([]byte, error)
}

type jsonRpcHead struct {
	Version string `json:"jsonrpc"`
	Method  Method `json:"method"`
}

func newHead(method Method) jsonRpcHead {
	return jsonRpcHead{Version: jsonRpcVersion, Method: method}
}

func (h jsonRpcHead) GetMethod() Method {
	return h.Method
}

type jsonRpc struct {
	jsonRpcHead
	Params json.RawMessage `json:"params"`
}

// RpcFromReader decodes one inbound frame. Outbound-only methods are rejected
// with ErrUnknownRpcType so a client can't impersonate the server.
func RpcFromReader(reader io.Reader) (Rpc, error) {
	rpc := &jsonRpc{}

	if err := json.NewDecoder(reader).Decode(rpc); err != nil {
		return nil, err
	}

	switch rpc.Method {
	case JoinVideoCallMethod, JoinVideoStreamMethod, JoinTextChatMethod:
		params := JoinParams{}
		if err := decodeParams(rpc.Params, &params); err != nil {
			return nil, err
		}
		if params.Username == "" {
			return nil, ErrMalformedRpc
		}

		return NewJoinRpc(rpc.Method, params), nil
	case LeaveVideoStreamMethod, LeaveTextChatMethod:
		return NewLeaveRpc(rpc.Method), nil
	case RequestVideoStreamMethod:
		params := RequestVideoStreamParams{}
		if err := decodeParams(rpc.Params, &params); err != nil {
			return nil, err
		}
		if params.ID == "" {
			return nil, ErrMalformedRpc
		}

		return NewRequestVideoStreamRpc(params.ID), nil
	case ChatMessageMethod:
		params := ChatMessageParams{}
		if err := decodeParams(rpc.Params, &params); err != nil {
			return nil, err
		}
		if params.Name == "" || params.Message == "" {
			return nil, ErrMalformedRpc
		}

		return NewChatMessageRpc(params.Name, params.Message), nil
	case OfferMethod, AnswerMethod, ICECandidateMethod:
		return NewSignalRpc(rpc.Method, rpc.Params)
	default:
		return nil, ErrUnknownRpcType
	}
}

func decodeParams(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return ErrMalformedRpc
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return ErrMalformedRpc
	}
	return nil
}
