package eventbus

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/oncolink/telehealth/internal/core"
)

const jsonRpcVersion = "2.0"

type Method string

const (
	ChatMessageMethod Method = "chat_message"
	CallLogMethod     Method = "call_log"
)

type Rpc interface {
	GetMethod() Method
	ToJSON() ([]byte, error)
}

type jsonRpcHead struct {
	Version string `json:"jsonrpc"`
	Method  Method `json:"method"`
}

func (h jsonRpcHead) GetMethod() Method {
	return h.Method
}

type jsonRpc struct {
	jsonRpcHead
	Params json.RawMessage `json:"params"`
}

var (
	ErrUnknownRpcType = errors.New("unknown RPC type")
	ErrMalformedRpc   = errors.New("malformed RPC")
)

func RpcFromReader(reader io.Reader) (Rpc, error) {
	rpc := &jsonRpc{}

	if err := json.NewDecoder(reader).Decode(rpc); err != nil {
		return nil, err
	}
	if len(rpc.Params) == 0 {
		return nil, ErrMalformedRpc
	}

	switch rpc.Method {
	case ChatMessageMethod:
		m := &core.ChatMessage{}
		if err := json.Unmarshal(rpc.Params, m); err != nil {
			return nil, err
		}

		return NewChatMessageRpc(m), nil
	case CallLogMethod:
		c := &core.CallLog{}
		if err := json.Unmarshal(rpc.Params, c); err != nil {
			return nil, err
		}

		return NewCallLogRpc(c), nil
	default:
		return nil, ErrUnknownRpcType
	}
}

// ChatMessageRpc reports one relayed chat line.
type ChatMessageRpc struct {
	jsonRpcHead
	Params *core.ChatMessage `json:"params"`
}

func NewChatMessageRpc(m *core.ChatMessage) *ChatMessageRpc {
	return &ChatMessageRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  ChatMessageMethod,
		},
		Params: m,
	}
}

func (r ChatMessageRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// CallLogRpc reports a finished video call.
type CallLogRpc struct {
	jsonRpcHead
	Params *core.CallLog `json:"params"`
}

func NewCallLogRpc(c *core.CallLog) *CallLogRpc {
	return &CallLogRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  CallLogMethod,
		},
		Params: c,
	}
}

func (r CallLogRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}
