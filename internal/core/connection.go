package core

import "github.com/google/uuid"

// ConnectionID identifies one live websocket connection. It is assigned by the
// server at connect time and never reused.
type ConnectionID string

func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.NewString())
}

func (id ConnectionID) String() string {
	return string(id)
}
