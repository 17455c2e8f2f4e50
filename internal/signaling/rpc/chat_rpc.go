package rpc

import "encoding/json"

type ChatMessageParams struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// ChatMessageRpc travels both ways unchanged.
type ChatMessageRpc struct {
	jsonRpcHead
	Params ChatMessageParams `json:"params"`
}

func NewChatMessageRpc(name, message string) *ChatMessageRpc {
	return &ChatMessageRpc{
		jsonRpcHead: newHead(ChatMessageMethod),
		Params:      ChatMessageParams{Name: name, Message: message},
	}
}

func (r ChatMessageRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}
