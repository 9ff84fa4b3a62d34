package protocol

import "time"

// RoomRecord is the durable scheduling mirror of a room: identity and
// metadata only, never live coordination state. Owned by the external CRUD
// backend; liveroom keeps a local copy for join validation and crash
// recovery.
type RoomRecord struct {
	RoomID    string    `json:"roomId"`
	RoomCode  string    `json:"roomCode"`
	RoomName  string    `json:"roomName"`
	CreatedAt time.Time `json:"createdAt"`
}

// Validate checks a record before it is written.
func (r *RoomRecord) Validate() error {
	if len(r.RoomID) < 1 || len(r.RoomID) > maxRoomIDLen {
		return ErrInvalidRoomID
	}
	if !IsValidRoomCode(r.RoomCode) {
		return ErrInvalidRoomCode
	}
	if len(r.RoomName) < 1 || len(r.RoomName) > maxRoomNameLen {
		return ErrInvalidRoomName
	}
	return nil
}

// QuizResult is one scored submission reported to the gradebook when a quiz
// reaches its final reveal.
type QuizResult struct {
	RoomID       string    `json:"roomId"`
	QuizID       string    `json:"quizId"`
	StudentID    string    `json:"studentId"`
	StudentName  string    `json:"studentName"`
	SubmissionID string    `json:"submissionId"`
	Score        *float64  `json:"score,omitempty"`
	RecordedAt   time.Time `json:"recordedAt"`
}
