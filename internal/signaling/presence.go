package signaling

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/oncolink/telehealth/internal/core"
	"github.com/oncolink/telehealth/internal/signaling/rpc"
	"github.com/oncolink/telehealth/internal/telemetry"
)

// PresenceSet is the live membership of one room, kept in join order.
// A connection appears in it at most once.
type PresenceSet struct {
	Kind RoomKind

	conns     *ConnectionRegistry
	announcer announcer

	lock    sync.RWMutex
	members []Member
	index   map[core.ConnectionID]int
}

func NewPresenceSet(kind RoomKind, conns *ConnectionRegistry) *PresenceSet {
	return &PresenceSet{
		Kind:      kind,
		conns:     conns,
		announcer: announcerFor(kind),
		members:   []Member{},
		index:     make(map[core.ConnectionID]int),
	}
}

// Join adds m, or renames it in place when the connection is already a member,
// and returns every other member in join order.
func (p *PresenceSet) Join(m Member) []Member {
	p.lock.Lock()
	defer p.lock.Unlock()

	if i, ok := p.index[m.ID]; ok {
		p.members[i] = m
	} else {
		p.index[m.ID] = len(p.members)
		p.members = append(p.members, m)
	}
	telemetry.RoomMembers(string(p.Kind), len(p.members))

	others := make([]Member, 0, len(p.members)-1)
	for _, member := range p.members {
		if member.ID != m.ID {
			others = append(others, member)
		}
	}

	return others
}

// BroadcastJoin tells everyone but the joiner about m.
func (p *PresenceSet) BroadcastJoin(m Member) int {
	return p.Broadcast(m.ID, p.announcer.joined(m, p.Members()))
}

// Leave removes the connection and notifies the rest of the audience. It
// reports whether anything was removed; a second call is silent.
func (p *PresenceSet) Leave(id core.ConnectionID) bool {
	p.lock.Lock()
	i, ok := p.index[id]
	if !ok {
		p.lock.Unlock()
		return false
	}

	p.members = append(p.members[:i], p.members[i+1:]...)
	delete(p.index, id)
	for j := i; j < len(p.members); j++ {
		p.index[p.members[j].ID] = j
	}
	telemetry.RoomMembers(string(p.Kind), len(p.members))
	p.lock.Unlock()

	p.Broadcast(id, p.announcer.left(id, p.Members()))

	return true
}

// Members returns a copy of the membership in join order.
func (p *PresenceSet) Members() []Member {
	p.lock.RLock()
	defer p.lock.RUnlock()

	members := make([]Member, len(p.members))
	copy(members, p.members)

	return members
}

func (p *PresenceSet) Member(id core.ConnectionID) (Member, bool) {
	p.lock.RLock()
	defer p.lock.RUnlock()

	i, ok := p.index[id]
	if !ok {
		return Member{}, false
	}
	return p.members[i], true
}

func (p *PresenceSet) Len() int {
	p.lock.RLock()
	defer p.lock.RUnlock()

	return len(p.members)
}

// Broadcast multicasts msg to the room's audience except one connection.
// Video rooms talk only to their members; the text room talks to everyone
// connected, members or not.
func (p *PresenceSet) Broadcast(except core.ConnectionID, msg rpc.Rpc) int {
	if p.announcer.audience() == everyoneAudience {
		return p.conns.Broadcast(except, msg)
	}

	frame, err := msg.ToJSON()
	if err != nil {
		log.Error().Err(err).Str("service", "signaling").Str("room", string(p.Kind)).Msg("can't encode room broadcast")
		return 0
	}

	sent := 0
	for _, m := range p.Members() {
		if m.ID == except {
			continue
		}
		c, ok := p.conns.Lookup(m.ID)
		if !ok {
			continue
		}
		if err := c.write(frame); err != nil {
			log.Debug().Err(err).Str("service", "signaling").Str("room", string(p.Kind)).Str("connID", string(m.ID)).Msg("room write failed")
			continue
		}
		sent++
	}

	return sent
}
