package protocol

import (
	"encoding/json"
	"time"
)

// Envelope is the wire frame: one named event with a JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EncodeEnvelope marshals an outbound frame. A nil data produces a frame
// with no data field.
func EncodeEnvelope(event string, data any) ([]byte, error) {
	env := struct {
		Event string `json:"event"`
		Data  any    `json:"data,omitempty"`
	}{Event: event, Data: data}
	return json.Marshal(env)
}

// Participant is the public descriptor broadcast to other room members.
type Participant struct {
	ConnectionID string `json:"connectionId"`
	Name         string `json:"name"`
	Role         Role   `json:"role"`
}

// JoinRoomRequest is the first event a client must send after connecting.
// RoomID and RoomName are optional for teachers creating a room ad hoc;
// a provisioned record for the code takes precedence over both.
type JoinRoomRequest struct {
	RoomCode string `json:"roomCode"`
	RoomID   string `json:"roomId,omitempty"`
	RoomName string `json:"roomName,omitempty"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
}

// JoinAck is the successful join response. ExistingParticipants lists every
// other participant present at the instant the joiner was registered.
type JoinAck struct {
	ConnectionID         string        `json:"connectionId"`
	RoomCode             string        `json:"roomCode"`
	RoomID               string        `json:"roomId"`
	RoomName             string        `json:"roomName"`
	ExistingParticipants []Participant `json:"existingParticipants"`
	CurrentSpotlight     string        `json:"currentSpotlight,omitempty"`
}

// ErrorEvent carries join-error and error payloads.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SignalRequest asks the relay to forward an opaque handshake payload.
type SignalRequest struct {
	To   string          `json:"to"`
	Data json.RawMessage `json:"data"`
}

// SignalEvent is the relayed payload as seen by the target.
type SignalEvent struct {
	From string          `json:"from"`
	Data json.RawMessage `json:"data"`
}

// ChatRequest is an inbound chat message. RoomCode/RoomID, when present,
// must match the connection's bound room; Name is advisory, the server
// stamps the sender identity itself.
type ChatRequest struct {
	RoomCode string `json:"roomCode,omitempty"`
	RoomID   string `json:"roomId,omitempty"`
	Name     string `json:"name,omitempty"`
	Message  string `json:"message"`
}

// RoomRef is the optional room echo carried by end-room and leave-room.
type RoomRef struct {
	RoomCode string `json:"roomCode,omitempty"`
	RoomID   string `json:"roomId,omitempty"`
}

// ChatEvent is a chat message stamped with sender identity and server time.
type ChatEvent struct {
	RoomCode     string    `json:"roomCode"`
	RoomID       string    `json:"roomId"`
	ConnectionID string    `json:"connectionId"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	Message      string    `json:"message"`
	SentAt       time.Time `json:"sentAt"`
}

// ChatHistory replays recent transcript entries to a joiner, oldest first.
type ChatHistory struct {
	Messages []ChatEvent `json:"messages"`
}

// ParticipantLeft identifies a departed connection.
type ParticipantLeft struct {
	ConnectionID string `json:"connectionId"`
}

// TeacherDisconnected starts the client-side grace countdown.
type TeacherDisconnected struct {
	GraceSeconds int `json:"graceSeconds"`
}

// MuteRequest / CamRequest are teacher control actions on one target.
type MuteRequest struct {
	TargetConnectionID string `json:"targetConnectionId"`
	Muted              bool   `json:"muted"`
}

type CamRequest struct {
	TargetConnectionID string `json:"targetConnectionId"`
	CamOn              bool   `json:"camOn"`
}

// ForceMute / ForceCam are pushed directly to the controlled target.
type ForceMute struct {
	Muted bool `json:"muted"`
}

type ForceCam struct {
	CamOn bool `json:"camOn"`
}

// MuteChanged / CamChanged are the room-wide state broadcasts.
type MuteChanged struct {
	ConnectionID string `json:"connectionId"`
	Muted        bool   `json:"muted"`
}

type CamChanged struct {
	ConnectionID string `json:"connectionId"`
	CamOn        bool   `json:"camOn"`
}

// SpotlightRequest selects the participant shown full-size to the room.
type SpotlightRequest struct {
	TargetConnectionID string `json:"targetConnectionId"`
}

// SpotlightChanged is broadcast to every participant, target included.
type SpotlightChanged struct {
	ConnectionID string `json:"connectionId"`
}

// QuizStartRequest starts a quiz. Quiz is opaque to the coordinator and is
// fanned out to non-teacher participants verbatim.
type QuizStartRequest struct {
	QuizID string          `json:"quizId"`
	Quiz   json.RawMessage `json:"quiz"`
}

// QuizSubmitRequest upserts the submitting student's answer.
type QuizSubmitRequest struct {
	SubmissionID string   `json:"submissionId"`
	Score        *float64 `json:"score,omitempty"`
}

// QuizRevealRequest reveals one submission (individual, class-reveal) or the
// final results (final). SubmissionID selects the target student when set.
type QuizRevealRequest struct {
	Mode         string          `json:"mode"`
	SubmissionID string          `json:"submissionId,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
}

// QuizRevealEvent is the reveal payload as delivered to students.
type QuizRevealEvent struct {
	Mode         string          `json:"mode"`
	StudentID    string          `json:"studentId,omitempty"`
	SubmissionID string          `json:"submissionId,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
}

// QuizSubmissionEntry is one row of the teacher's live submission list.
type QuizSubmissionEntry struct {
	StudentID    string   `json:"studentId"`
	Name         string   `json:"name"`
	SubmissionID string   `json:"submissionId"`
	Score        *float64 `json:"score,omitempty"`
}

// QuizSubmissions is pushed to teachers after every upsert.
type QuizSubmissions struct {
	QuizID      string                `json:"quizId"`
	Submissions []QuizSubmissionEntry `json:"submissions"`
}

// QuizRevealedIDs is pushed to teachers after every reveal.
type QuizRevealedIDs struct {
	QuizID     string   `json:"quizId"`
	StudentIDs []string `json:"studentIds"`
}

// Course follow-mode payloads. The coordinator forwards these verbatim, so
// the same shapes serve both directions.
type CourseToggle struct {
	Active    bool     `json:"active"`
	CourseIDs []string `json:"courseIds,omitempty"`
}

type CourseNavigate struct {
	CourseIndex int `json:"courseIndex"`
	LessonIndex int `json:"lessonIndex"`
}

type CourseLock struct {
	Locked bool `json:"locked"`
}

type CourseScrollSync struct {
	Ratio float64 `json:"ratio"`
}
