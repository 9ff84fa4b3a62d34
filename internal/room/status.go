package room

import (
	"time"

	"liveroom/pkg/interfaces"
	"liveroom/pkg/protocol"
)

// Read-only views for the provisioning API. None of these mutate room state;
// they take the locks only long enough to copy.

// LiveStatus is a point-in-time view of one live room.
type LiveStatus struct {
	RoomID         string                 `json:"roomId"`
	RoomCode       string                 `json:"roomCode"`
	RoomName       string                 `json:"roomName"`
	Participants   []protocol.Participant `json:"participants"`
	TeacherPresent bool                   `json:"teacherPresent"`
	GraceActive    bool                   `json:"graceActive"`
	GraceDeadline  *time.Time             `json:"graceDeadline,omitempty"`
	Spotlight      string                 `json:"spotlight,omitempty"`
	QuizActive     bool                   `json:"quizActive"`
	CourseActive   bool                   `json:"courseActive"`
}

// Stats are the process-wide counters exposed by /api/stats.
type Stats struct {
	Rooms             int            `json:"rooms"`
	Participants      int            `json:"participants"`
	ParticipantsByRole map[string]int `json:"participantsByRole"`
}

// Status returns the live view of one room, ok is false when no live room
// holds the id.
func (s *Store) Status(roomID string) (*LiveStatus, bool) {
	s.mu.RLock()
	room := s.byID[roomID]
	s.mu.RUnlock()
	if room == nil {
		return nil, false
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.ended {
		return nil, false
	}
	status := &LiveStatus{
		RoomID:         room.id,
		RoomCode:       room.code,
		RoomName:       room.name,
		Participants:   room.snapshotLocked(""),
		TeacherPresent: room.teacherPresentLocked(),
		GraceActive:    room.graceTimer != nil,
		Spotlight:      room.spotlight,
		QuizActive:     room.quiz != nil,
		CourseActive:   room.course != nil,
	}
	if !room.graceDeadline.IsZero() {
		deadline := room.graceDeadline
		status.GraceDeadline = &deadline
	}
	return status, true
}

// Stats counts live rooms and participants by role.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	rooms := make([]*Room, 0, len(s.byID))
	for _, room := range s.byID {
		rooms = append(rooms, room)
	}
	s.mu.RUnlock()

	stats := Stats{ParticipantsByRole: map[string]int{}}
	for _, room := range rooms {
		room.mu.Lock()
		if !room.ended {
			stats.Rooms++
			for _, p := range room.participants {
				stats.Participants++
				stats.ParticipantsByRole[string(p.conn.Role())]++
			}
		}
		room.mu.Unlock()
	}
	return stats
}

// Rekey moves a live room under a regenerated shareable code without
// touching its state or participants; the internal id never changes. A
// missing live room is fine: the record was updated, nothing live to move.
func (s *Store) Rekey(roomID, newCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room := s.byID[roomID]
	if room == nil {
		return nil
	}
	if holder := s.byCode[newCode]; holder != nil && holder != room {
		return ErrCodeInUse
	}

	room.mu.Lock()
	oldCode := room.code
	room.code = newCode
	room.mu.Unlock()

	delete(s.byCode, oldCode)
	s.byCode[newCode] = room
	s.logger.Info("room re-keyed", "room_id", roomID, "room_code", newCode)
	return nil
}

// EndRoomByID is the administrative end used by the provisioning API:
// room-ended broadcast, full teardown.
func (s *Store) EndRoomByID(roomID string) error {
	s.mu.RLock()
	room := s.byID[roomID]
	s.mu.RUnlock()
	if room == nil {
		return interfaces.ErrRoomNotFound
	}

	room.mu.Lock()
	if room.ended {
		room.mu.Unlock()
		return interfaces.ErrRoomNotFound
	}
	room.broadcastLocked(protocol.EventRoomEnded, nil)
	ids := room.teardownLocked()
	room.mu.Unlock()

	s.removeRoom(room, ids)
	s.logger.Info("room ended by api", "room_id", roomID)
	return nil
}
