package room

import (
	"sync"
	"time"

	"liveroom/pkg/interfaces"
	"liveroom/pkg/protocol"
)

// participant is one admitted connection plus the control-plane state the
// teacher can set on it.
type participant struct {
	conn  interfaces.Connection
	muted bool
	camOn bool
}

// Room is one live session. All fields behind mu; every mutation and every
// broadcast happens under it, which is what gives a room its per-room
// ordering guarantee: events go out in exactly the order they were applied.
type Room struct {
	mu sync.Mutex

	id   string
	code string
	name string

	participants map[string]*participant
	order        []string // admission order, for stable snapshots
	spotlight    string

	quiz   *quizSession
	course *courseState

	graceGen      uint64
	graceTimer    *time.Timer
	graceDeadline time.Time

	ended bool
}

func newRoom(id, code, name string) *Room {
	return &Room{
		id:           id,
		code:         code,
		name:         name,
		participants: make(map[string]*participant),
	}
}

// broadcastLocked fans one event out to every participant except the listed
// ids. Sends are non-blocking enqueues; a slow consumer drops its copy and
// the room moves on.
func (r *Room) broadcastLocked(event string, data any, except ...string) {
	for _, id := range r.order {
		if contains(except, id) {
			continue
		}
		if p, ok := r.participants[id]; ok {
			_ = p.conn.Send(event, data)
		}
	}
}

// sendTeachersLocked delivers one event to every teacher-role participant.
func (r *Room) sendTeachersLocked(event string, data any) {
	for _, id := range r.order {
		p, ok := r.participants[id]
		if ok && p.conn.Role().IsTeacher() {
			_ = p.conn.Send(event, data)
		}
	}
}

// teacherPresentLocked reports whether any teacher-role participant remains.
func (r *Room) teacherPresentLocked() bool {
	for _, p := range r.participants {
		if p.conn.Role().IsTeacher() {
			return true
		}
	}
	return false
}

// snapshotLocked lists every participant except the given id, in admission
// order.
func (r *Room) snapshotLocked(except string) []protocol.Participant {
	out := make([]protocol.Participant, 0, len(r.participants))
	for _, id := range r.order {
		if id == except {
			continue
		}
		if p, ok := r.participants[id]; ok {
			out = append(out, protocol.Participant{
				ConnectionID: id,
				Name:         p.conn.DisplayName(),
				Role:         p.conn.Role(),
			})
		}
	}
	return out
}

// addLocked admits a connection.
func (r *Room) addLocked(conn interfaces.Connection) {
	r.participants[conn.ID()] = &participant{conn: conn, camOn: true}
	r.order = append(r.order, conn.ID())
}

// removeLocked drops a participant and clears the spotlight if it pointed at
// them. Returns the removed participant, or nil if the id was not present.
func (r *Room) removeLocked(connectionID string) *participant {
	p, ok := r.participants[connectionID]
	if !ok {
		return nil
	}
	delete(r.participants, connectionID)
	for i, id := range r.order {
		if id == connectionID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.spotlight == connectionID {
		// participant-left already tells clients everything they need;
		// no extra spotlight-changed broadcast.
		r.spotlight = ""
	}
	return p
}

// teardownLocked marks the room ended and releases everything it owns.
// Returns the ids that still need their store-level mappings removed.
func (r *Room) teardownLocked() []string {
	r.ended = true
	r.graceGen++
	if r.graceTimer != nil {
		r.graceTimer.Stop()
		r.graceTimer = nil
	}
	r.graceDeadline = time.Time{}
	r.quiz = nil
	r.course = nil
	r.spotlight = ""

	ids := make([]string, len(r.order))
	copy(ids, r.order)
	r.participants = make(map[string]*participant)
	r.order = nil
	return ids
}

func contains(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
