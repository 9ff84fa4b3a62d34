package room

import (
	"liveroom/pkg/interfaces"
	"liveroom/pkg/protocol"
)

// Course-navigation follow mode: a continuously-updated shared cursor with
// no explicit states. Every action is teacher-only and forwarded verbatim to
// the rest of the room; the room keeps only the latest cursor so the API can
// report whether follow mode is live. Scroll updates are throttled at the
// sender (~1 per 80ms, sub-0.5% changes suppressed); the coordinator trusts
// that cadence and never re-throttles.

type courseState struct {
	courseIDs   []string
	courseIndex int
	lessonIndex int
	scrollRatio float64
	locked      bool
}

// CourseToggle activates or deactivates follow mode for the room.
func (s *Store) CourseToggle(conn interfaces.Connection, req *protocol.CourseToggle) error {
	room, err := s.authorizeControl(conn)
	if err != nil {
		return err
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.ended {
		return interfaces.ErrRoomNotFound
	}
	if req.Active {
		room.course = &courseState{courseIDs: req.CourseIDs}
	} else {
		room.course = nil
	}
	room.broadcastLocked(protocol.EventCourseToggle, req, conn.ID())
	return nil
}

// CourseNavigate broadcasts the teacher's new position. Fire-and-forget: no
// acknowledgment from students.
func (s *Store) CourseNavigate(conn interfaces.Connection, req *protocol.CourseNavigate) error {
	room, err := s.authorizeControl(conn)
	if err != nil {
		return err
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.ended {
		return interfaces.ErrRoomNotFound
	}
	if room.course != nil {
		room.course.courseIndex = req.CourseIndex
		room.course.lessonIndex = req.LessonIndex
	}
	room.broadcastLocked(protocol.EventCourseNavigate, req, conn.ID())
	return nil
}

// CourseLock broadcasts the lock state; while locked, students' local scroll
// follows the teacher's broadcast ratio.
func (s *Store) CourseLock(conn interfaces.Connection, req *protocol.CourseLock) error {
	room, err := s.authorizeControl(conn)
	if err != nil {
		return err
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.ended {
		return interfaces.ErrRoomNotFound
	}
	if room.course != nil {
		room.course.locked = req.Locked
	}
	room.broadcastLocked(protocol.EventCourseLock, req, conn.ID())
	return nil
}

// CourseScrollSync forwards the teacher's scroll ratio verbatim.
func (s *Store) CourseScrollSync(conn interfaces.Connection, req *protocol.CourseScrollSync) error {
	room, err := s.authorizeControl(conn)
	if err != nil {
		return err
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.ended {
		return interfaces.ErrRoomNotFound
	}
	if room.course != nil {
		room.course.scrollRatio = req.Ratio
	}
	room.broadcastLocked(protocol.EventCourseScrollSync, req, conn.ID())
	return nil
}
