package signaling

import (
	"time"

	"github.com/oncolink/telehealth/internal/core"
)

// callTracker follows one video call from the first join until the room is
// empty again.
type callTracker struct {
	active       bool
	startTime    time.Time
	participants []string
	seen         map[string]struct{}
}

func (t *callTracker) joined(name string, now time.Time) {
	if !t.active {
		t.active = true
		t.startTime = now
		t.participants = []string{}
		t.seen = make(map[string]struct{})
	}
	if _, ok := t.seen[name]; ok {
		return
	}
	t.seen[name] = struct{}{}
	t.participants = append(t.participants, name)
}

// ended closes the call if the room emptied and returns its log.
func (t *callTracker) ended(remaining int, now time.Time) (*core.CallLog, bool) {
	if !t.active || remaining > 0 {
		return nil, false
	}

	call := &core.CallLog{
		Type:         core.VideoCall,
		Participants: t.participants,
		StartTime:    t.startTime,
		EndTime:      now,
	}
	*t = callTracker{}

	return call, true
}
