package room

import (
	"time"

	"liveroom/pkg/protocol"
)

// Presence watchdog: one scheduled deadline per room, no per-second ticks.
// Clients run their own countdown from graceSeconds; the server pushes only
// the start (teacher-disconnected) and the resolution (teacher-joined or
// room-ended).
//
// Cancellation and expiry race. The generation counter resolves it
// deterministically: cancellation bumps the generation under the room lock,
// and the fired timer re-checks generation and teacher presence under the
// same lock before ending anything. Exactly one of {cancelled, ended}
// happens; a teacher joining after expiry just gets room-not-found.

// startGraceLocked moves the room from Normal to GracePeriod. Caller holds
// the room lock and has already verified students remain.
func (s *Store) startGraceLocked(room *Room) {
	room.graceGen++
	gen := room.graceGen
	room.graceDeadline = time.Now().Add(s.cfg.Grace)

	room.broadcastLocked(protocol.EventTeacherDisconnected, protocol.TeacherDisconnected{
		GraceSeconds: int(s.cfg.Grace / time.Second),
	})
	room.graceTimer = time.AfterFunc(s.cfg.Grace, func() {
		s.graceExpired(room, gen)
	})
	s.logger.Info("grace period started", "room_id", room.id, "grace", s.cfg.Grace)
}

// cancelGraceLocked moves the room back to Normal. Safe to call when no
// grace period is pending.
func (s *Store) cancelGraceLocked(room *Room) {
	if room.graceTimer == nil {
		return
	}
	room.graceGen++
	room.graceTimer.Stop()
	room.graceTimer = nil
	room.graceDeadline = time.Time{}
	s.logger.Info("grace period cancelled", "room_id", room.id)
}

// graceExpired is the timer callback. A stale generation means a teacher
// rejoined (or the room already ended) after this timer was armed.
func (s *Store) graceExpired(room *Room, gen uint64) {
	room.mu.Lock()
	if room.ended || room.graceGen != gen || room.teacherPresentLocked() {
		room.mu.Unlock()
		return
	}
	room.broadcastLocked(protocol.EventRoomEnded, nil)
	ids := room.teardownLocked()
	roomID := room.id
	room.mu.Unlock()

	s.removeRoom(room, ids)
	s.logger.Info("room ended by grace expiry", "room_id", roomID)
}
