package room

import (
	"context"
	"encoding/json"
	"time"

	"liveroom/pkg/interfaces"
	"liveroom/pkg/protocol"
)

type quizState int

const (
	quizCollecting quizState = iota
	quizRevealing
)

// quizSession is the room's active quiz. The question payload is opaque:
// the coordinator relays it, never interprets it. Submissions are keyed by
// the submitting connection's id, the coordinator's only identity, and
// survive the student's departure so a reveal can still land.
type quizSession struct {
	id      string
	payload json.RawMessage
	state   quizState

	submissions map[string]*submission
	order       []string // first-submission order, for a stable teacher list

	revealed      map[string]bool
	revealedOrder []string
}

type submission struct {
	submissionID string
	score        *float64
	name         string
}

func (q *quizSession) submissionListLocked() protocol.QuizSubmissions {
	entries := make([]protocol.QuizSubmissionEntry, 0, len(q.order))
	for _, studentID := range q.order {
		sub := q.submissions[studentID]
		entries = append(entries, protocol.QuizSubmissionEntry{
			StudentID:    studentID,
			Name:         sub.name,
			SubmissionID: sub.submissionID,
			Score:        sub.score,
		})
	}
	return protocol.QuizSubmissions{QuizID: q.id, Submissions: entries}
}

func (q *quizSession) revealedListLocked() protocol.QuizRevealedIDs {
	ids := make([]string, len(q.revealedOrder))
	copy(ids, q.revealedOrder)
	return protocol.QuizRevealedIDs{QuizID: q.id, StudentIDs: ids}
}

// StartQuiz creates the quiz session and fans the payload out to every
// non-teacher participant. Valid only from idle: one active quiz per room.
func (s *Store) StartQuiz(conn interfaces.Connection, req *protocol.QuizStartRequest) error {
	room, err := s.authorizeControl(conn)
	if err != nil {
		return err
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.ended {
		return interfaces.ErrRoomNotFound
	}
	if room.quiz != nil {
		return interfaces.ErrQuizAlreadyActive
	}
	room.quiz = &quizSession{
		id:          req.QuizID,
		payload:     req.Quiz,
		state:       quizCollecting,
		submissions: make(map[string]*submission),
		revealed:    make(map[string]bool),
	}
	ev := protocol.QuizStartRequest{QuizID: req.QuizID, Quiz: req.Quiz}
	for _, id := range room.order {
		p, ok := room.participants[id]
		if ok && !p.conn.Role().IsTeacher() {
			_ = p.conn.Send(protocol.EventQuizStart, ev)
		}
	}
	return nil
}

// SubmitQuiz upserts the submitting student's answer. Idempotent per
// student: a second submission replaces the first, it never duplicates the
// teacher's list entry.
func (s *Store) SubmitQuiz(conn interfaces.Connection, req *protocol.QuizSubmitRequest) error {
	room, err := s.roomFor(conn)
	if err != nil {
		return err
	}
	if conn.Role().IsTeacher() {
		return interfaces.ErrUnauthorized
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.ended {
		return interfaces.ErrRoomNotFound
	}
	q := room.quiz
	if q == nil {
		return interfaces.ErrNoActiveQuiz
	}
	if q.state != quizCollecting {
		return interfaces.ErrQuizClosed
	}

	studentID := conn.ID()
	if existing, ok := q.submissions[studentID]; ok {
		existing.submissionID = req.SubmissionID
		existing.score = req.Score
	} else {
		q.submissions[studentID] = &submission{
			submissionID: req.SubmissionID,
			score:        req.Score,
			name:         conn.DisplayName(),
		}
		q.order = append(q.order, studentID)
	}
	room.sendTeachersLocked(protocol.EventQuizSubmissions, q.submissionListLocked())
	return nil
}

// RevealQuiz moves the session to revealing and delivers the reveal payload
// to one student (individual) or the whole room (class-reveal, final). On
// final, scored submissions go to the gradebook outside the critical
// section.
func (s *Store) RevealQuiz(conn interfaces.Connection, req *protocol.QuizRevealRequest) error {
	room, err := s.authorizeControl(conn)
	if err != nil {
		return err
	}
	if !protocol.IsValidRevealMode(req.Mode) {
		return ErrInvalidRevealMode
	}

	room.mu.Lock()
	if room.ended {
		room.mu.Unlock()
		return interfaces.ErrRoomNotFound
	}
	q := room.quiz
	if q == nil {
		room.mu.Unlock()
		return interfaces.ErrNoActiveQuiz
	}

	var studentID string
	if req.SubmissionID != "" {
		for _, id := range q.order {
			if q.submissions[id].submissionID == req.SubmissionID {
				studentID = id
				break
			}
		}
		if studentID == "" {
			room.mu.Unlock()
			return interfaces.ErrStaleTarget
		}
	}
	if req.Mode == protocol.RevealIndividual && studentID == "" {
		room.mu.Unlock()
		return interfaces.ErrStaleTarget
	}

	q.state = quizRevealing
	if studentID != "" && !q.revealed[studentID] {
		q.revealed[studentID] = true
		q.revealedOrder = append(q.revealedOrder, studentID)
	}

	ev := protocol.QuizRevealEvent{
		Mode:         req.Mode,
		StudentID:    studentID,
		SubmissionID: req.SubmissionID,
		Data:         req.Data,
	}
	if req.Mode == protocol.RevealIndividual {
		// The target may have departed with their submission still on
		// record; the reveal stands, the send just drops.
		if p, ok := room.participants[studentID]; ok {
			_ = p.conn.Send(protocol.EventQuizReveal, ev)
		}
	} else {
		room.broadcastLocked(protocol.EventQuizReveal, ev)
	}
	room.sendTeachersLocked(protocol.EventQuizRevealedIDs, q.revealedListLocked())

	var results []*protocol.QuizResult
	if req.Mode == protocol.RevealFinal {
		now := time.Now().UTC()
		for _, id := range q.order {
			sub := q.submissions[id]
			if sub.score == nil {
				continue
			}
			results = append(results, &protocol.QuizResult{
				RoomID:       room.id,
				QuizID:       q.id,
				StudentID:    id,
				StudentName:  sub.name,
				SubmissionID: sub.submissionID,
				Score:        sub.score,
				RecordedAt:   now,
			})
		}
	}
	room.mu.Unlock()

	if len(results) > 0 {
		go s.reportResults(results)
	}
	return nil
}

func (s *Store) reportResults(results []*protocol.QuizResult) {
	for _, result := range results {
		ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
		if err := s.grades.RecordQuizResult(ctx, result); err != nil {
			s.logger.Warn("gradebook report failed",
				"quiz_id", result.QuizID, "student_id", result.StudentID, "error", err)
		}
		cancel()
	}
}

// StopQuiz tears the session down and returns the room to idle. No implicit
// reveal: unrevealed submissions are discarded from the live session.
func (s *Store) StopQuiz(conn interfaces.Connection) error {
	room, err := s.authorizeControl(conn)
	if err != nil {
		return err
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.ended {
		return interfaces.ErrRoomNotFound
	}
	if room.quiz == nil {
		return interfaces.ErrNoActiveQuiz
	}
	room.quiz = nil
	room.broadcastLocked(protocol.EventQuizStop, nil)
	return nil
}
