package signaling

import (
	"bytes"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/oncolink/telehealth/internal/core"
	"github.com/oncolink/telehealth/internal/eventbus"
	"github.com/oncolink/telehealth/internal/signaling/rpc"
	"github.com/oncolink/telehealth/internal/telemetry"
)

var (
	errConvertJoin    = errors.New("can't convert to join")
	errConvertRequest = errors.New("can't convert to request-video-stream")
	errConvertChat    = errors.New("can't convert to chat-message")
	errConvertSignal  = errors.New("can't convert to signal")
)

// Options is options of the commutator
type Options struct {
	// EventsPublisher receives chat and call activity. It is called with the
	// commutator lock held and must not block.
	EventsPublisher eventbus.Publisher
}

// Commutator turns inbound events into room changes, relays and broadcasts.
// Every event runs to completion, including its broadcasts, before the next
// one starts.
type Commutator struct {
	Options

	lock sync.Mutex

	conns  *ConnectionRegistry
	rooms  map[RoomKind]*PresenceSet
	relay  *SignalRelay
	reaper *DisconnectReaper

	call callTracker
	now  func() time.Time
}

func NewCommutator(options Options) *Commutator {
	if options.EventsPublisher == nil {
		options.EventsPublisher = eventbus.NoopPublisher{}
	}

	conns := NewConnectionRegistry()
	rooms := make(map[RoomKind]*PresenceSet, len(RoomKinds))
	ordered := make([]*PresenceSet, 0, len(RoomKinds))
	for _, kind := range RoomKinds {
		room := NewPresenceSet(kind, conns)
		rooms[kind] = room
		ordered = append(ordered, room)
	}

	c := &Commutator{
		Options: options,
		conns:   conns,
		rooms:   rooms,
		relay:   NewSignalRelay(conns),
		reaper:  NewDisconnectReaper(conns, ordered...),
		now:     time.Now,
	}
	c.reaper.OnRoomLeft(c.roomLeft)

	return c
}

// Connect registers a new transport and tells the client its id.
func (c *Commutator) Connect(sender Sender, remoteAddr string) core.ConnectionID {
	c.lock.Lock()
	defer c.lock.Unlock()

	id := c.conns.Register(sender, remoteAddr)
	if conn, ok := c.conns.Lookup(id); ok {
		if err := conn.Send(rpc.NewConnectedRpc(id)); err != nil {
			log.Debug().Err(err).Str("service", "commutator").Str("connID", string(id)).Msg("can't greet connection")
		}
	}
	log.Debug().Str("service", "commutator").Str("connID", string(id)).Str("remoteAddr", remoteAddr).Msg("connected")

	return id
}

// Disconnect runs the reaper for id. Transports may report loss more than
// once; only the first call does anything.
func (c *Commutator) Disconnect(id core.ConnectionID) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.reaper.Reap(id) {
		log.Debug().Str("service", "commutator").Str("connID", string(id)).Msg("disconnected")
	}
}

// HandleMessage processes one inbound frame from id. Malformed or unknown
// frames are logged and ignored; the connection stays open.
func (c *Commutator) HandleMessage(id core.ConnectionID, msg []byte) {
	r, err := rpc.RpcFromReader(bytes.NewReader(msg))
	if err != nil {
		log.Debug().Err(err).Str("service", "commutator").Str("connID", string(id)).Msg("ignoring frame")
		telemetry.EventRejected("unknown", rejectReason(err))
		return
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if !c.conns.Exists(id) {
		return
	}

	if err := c.dispatch(id, r); err != nil {
		log.Error().Err(err).Str("service", "commutator").Str("rpcMethod", string(r.GetMethod())).Msg("")
		telemetry.EventRejected(string(r.GetMethod()), "internal")
		return
	}
	telemetry.EventHandled(string(r.GetMethod()))
}

func (c *Commutator) dispatch(id core.ConnectionID, r rpc.Rpc) error {
	switch r.GetMethod() {
	case rpc.JoinVideoCallMethod:
		msg, ok := r.(*rpc.JoinRpc)
		if !ok {
			return errConvertJoin
		}
		c.conns.Broadcast(id, rpc.NewUserJoinedRpc(id, msg.Params.Username))
	case rpc.JoinVideoStreamMethod:
		msg, ok := r.(*rpc.JoinRpc)
		if !ok {
			return errConvertJoin
		}
		c.joinVideo(id, msg.Params)
	case rpc.JoinTextChatMethod:
		msg, ok := r.(*rpc.JoinRpc)
		if !ok {
			return errConvertJoin
		}
		c.joinText(id, msg.Params)
	case rpc.LeaveVideoStreamMethod:
		c.leave(VideoRoom, id)
	case rpc.LeaveTextChatMethod:
		c.leave(TextRoom, id)
	case rpc.RequestVideoStreamMethod:
		msg, ok := r.(*rpc.RequestVideoStreamRpc)
		if !ok {
			return errConvertRequest
		}
		c.requestVideoStream(id, msg.Params.ID)
	case rpc.ChatMessageMethod:
		msg, ok := r.(*rpc.ChatMessageRpc)
		if !ok {
			return errConvertChat
		}
		c.chatMessage(id, msg)
	case rpc.OfferMethod, rpc.AnswerMethod, rpc.ICECandidateMethod:
		msg, ok := r.(*rpc.SignalRpc)
		if !ok {
			return errConvertSignal
		}
		c.relay.Relay(Envelope{From: id, To: msg.Target(), Signal: msg})
	default:
		return rpc.ErrUnknownRpcType
	}

	return nil
}

func (c *Commutator) joinVideo(id core.ConnectionID, params rpc.JoinParams) {
	room := c.rooms[VideoRoom]
	m := Member{ID: id, Name: params.Username, Time: params.Time}

	others := room.Join(m)
	c.call.joined(m.Name, c.now())

	c.send(id, rpc.NewExistingVideoUsersRpc(videoUsers(others)))
	room.BroadcastJoin(m)
}

func (c *Commutator) joinText(id core.ConnectionID, params rpc.JoinParams) {
	room := c.rooms[TextRoom]
	m := Member{ID: id, Name: params.Username, Time: params.Time}

	room.Join(m)
	room.BroadcastJoin(m)
	c.send(id, participantsUpdate(room.Members()))
}

func (c *Commutator) leave(kind RoomKind, id core.ConnectionID) {
	if c.rooms[kind].Leave(id) {
		c.roomLeft(kind, id)
	}
}

// roomLeft runs after id was removed from a room, by request or by the reaper.
func (c *Commutator) roomLeft(kind RoomKind, _ core.ConnectionID) {
	if kind != VideoRoom {
		return
	}

	call, ok := c.call.ended(c.rooms[VideoRoom].Len(), c.now())
	if !ok {
		return
	}
	c.publish(eventbus.NewCallLogRpc(call))
}

func (c *Commutator) requestVideoStream(id core.ConnectionID, target core.ConnectionID) {
	m, ok := c.rooms[VideoRoom].Member(target)
	if !ok {
		return
	}
	c.send(id, rpc.NewUserJoinedVideoRpc(m.ID, m.Name))
}

func (c *Commutator) chatMessage(id core.ConnectionID, msg *rpc.ChatMessageRpc) {
	c.conns.Broadcast(id, msg)

	c.publish(eventbus.NewChatMessageRpc(&core.ChatMessage{
		Name:      msg.Params.Name,
		Message:   msg.Params.Message,
		Timestamp: c.now().UTC(),
	}))
}

func (c *Commutator) send(id core.ConnectionID, r rpc.Rpc) {
	conn, ok := c.conns.Lookup(id)
	if !ok {
		return
	}
	if err := conn.Send(r); err != nil {
		log.Debug().Err(err).Str("service", "commutator").Str("connID", string(id)).Str("rpcMethod", string(r.GetMethod())).Msg("reply dropped")
	}
}

func (c *Commutator) publish(r eventbus.Rpc) {
	if err := c.EventsPublisher.Publish(r); err != nil {
		log.Error().Err(err).Str("service", "commutator").Str("rpcMethod", string(r.GetMethod())).Msg("can't publish activity")
	}
}

// Room returns the presence set of the given kind.
func (c *Commutator) Room(kind RoomKind) *PresenceSet {
	return c.rooms[kind]
}

// Connections returns the registry of live connections.
func (c *Commutator) Connections() *ConnectionRegistry {
	return c.conns
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, rpc.ErrUnknownRpcType):
		return "unknown_method"
	case errors.Is(err, rpc.ErrMalformedRpc):
		return "malformed"
	default:
		return "decode"
	}
}
