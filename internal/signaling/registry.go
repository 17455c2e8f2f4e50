package signaling

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/oncolink/telehealth/internal/core"
	"github.com/oncolink/telehealth/internal/signaling/rpc"
	"github.com/oncolink/telehealth/internal/telemetry"
)

// Sender delivers one encoded frame to a single client. Write must not block
// on the network: melody.Session queues the frame and returns.
type Sender interface {
	Write(msg []byte) error
}

// Connection is the bookkeeping kept for one live transport.
type Connection struct {
	ID          core.ConnectionID
	RemoteAddr  string
	ConnectedAt time.Time

	sender Sender
}

func (c *Connection) write(frame []byte) error {
	return c.sender.Write(frame)
}

// Send encodes and delivers r to this connection only.
func (c *Connection) Send(r rpc.Rpc) error {
	frame, err := r.ToJSON()
	if err != nil {
		return err
	}
	return c.write(frame)
}

// ConnectionRegistry owns every live connection of the process. Nothing in it
// survives a restart.
type ConnectionRegistry struct {
	lock  sync.RWMutex
	conns map[core.ConnectionID]*Connection
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		conns: make(map[core.ConnectionID]*Connection),
	}
}

// Register records a new transport under a fresh server-generated id.
func (r *ConnectionRegistry) Register(sender Sender, remoteAddr string) core.ConnectionID {
	r.lock.Lock()
	defer r.lock.Unlock()

	id := core.NewConnectionID()
	for {
		if _, taken := r.conns[id]; !taken {
			break
		}
		id = core.NewConnectionID()
	}

	r.conns[id] = &Connection{
		ID:          id,
		RemoteAddr:  remoteAddr,
		ConnectedAt: time.Now(),
		sender:      sender,
	}
	telemetry.ConnectionOpened()

	return id
}

// Unregister forgets a closed connection. Unknown ids are a no-op.
func (r *ConnectionRegistry) Unregister(id core.ConnectionID) bool {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.conns[id]; !ok {
		return false
	}
	delete(r.conns, id)
	telemetry.ConnectionClosed()

	return true
}

func (r *ConnectionRegistry) Exists(id core.ConnectionID) bool {
	r.lock.RLock()
	defer r.lock.RUnlock()

	_, ok := r.conns[id]
	return ok
}

func (r *ConnectionRegistry) Lookup(id core.ConnectionID) (*Connection, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	c, ok := r.conns[id]
	return c, ok
}

func (r *ConnectionRegistry) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return len(r.conns)
}

// Broadcast sends r to every connection except one and returns how many
// writes were accepted.
func (r *ConnectionRegistry) Broadcast(except core.ConnectionID, msg rpc.Rpc) int {
	frame, err := msg.ToJSON()
	if err != nil {
		log.Error().Err(err).Str("service", "signaling").Str("method", string(msg.GetMethod())).Msg("can't encode broadcast")
		return 0
	}

	r.lock.RLock()
	defer r.lock.RUnlock()

	sent := 0
	for id, c := range r.conns {
		if id == except {
			continue
		}
		if err := c.write(frame); err != nil {
			log.Debug().Err(err).Str("service", "signaling").Str("connID", string(id)).Msg("broadcast write failed")
			continue
		}
		sent++
	}

	return sent
}
