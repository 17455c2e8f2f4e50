package rpc

import (
	"encoding/json"

	"github.com/oncolink/telehealth/internal/core"
)

const (
	signalToKey   = "to"
	signalFromKey = "from"
)

// SignalRpc carries an offer, answer or ICE candidate between two peers.
// Only the "to" key is ever read; every other key is forwarded as received.
type SignalRpc struct {
	jsonRpcHead
	Params map[string]json.RawMessage `json:"params"`

	to core.ConnectionID
}

func NewSignalRpc(method Method, raw json.RawMessage) (*SignalRpc, error) {
	params := make(map[string]json.RawMessage)
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	// a JSON null decodes into a nil map without error
	if params == nil {
		return nil, ErrMalformedRpc
	}

	var to string
	if err := json.Unmarshal(params[signalToKey], &to); err != nil || to == "" {
		return nil, ErrMalformedRpc
	}

	return &SignalRpc{
		jsonRpcHead: newHead(method),
		Params:      params,
		to:          core.ConnectionID(to),
	}, nil
}

// Target is the destination connection.
func (r *SignalRpc) Target() core.ConnectionID {
	return r.to
}

// StampFrom returns a copy whose "from" is the given sender, whatever the
// client put there.
func (r *SignalRpc) StampFrom(from core.ConnectionID) (*SignalRpc, error) {
	fromJSON, err := json.Marshal(from)
	if err != nil {
		return nil, err
	}

	params := make(map[string]json.RawMessage, len(r.Params)+1)
	for k, v := range r.Params {
		params[k] = v
	}
	params[signalFromKey] = fromJSON

	return &SignalRpc{
		jsonRpcHead: r.jsonRpcHead,
		Params:      params,
		to:          r.to,
	}, nil
}

func (r SignalRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}
