package protocol

// Client to server events.
const (
	EventJoinRoom         = "join-room"
	EventLeaveRoom        = "leave-room"
	EventEndRoom          = "end-room"
	EventSignal           = "signal"
	EventChatMessage      = "chat-message"
	EventMuteParticipant  = "mute-participant"
	EventCamParticipant   = "cam-participant"
	EventSpotlightChange  = "spotlight-change"
	EventQuizStart        = "quiz-start"
	EventQuizStop         = "quiz-stop"
	EventQuizSubmit       = "quiz-submit"
	EventQuizReveal       = "quiz-reveal"
	EventCourseToggle     = "course-toggle"
	EventCourseNavigate   = "course-navigate"
	EventCourseLock       = "course-lock"
	EventCourseScrollSync = "course-scroll-sync"
)

// Server to client events. Quiz and course fan-out reuses the client event
// names; the remaining names are server-only.
const (
	EventRoomJoined             = "room-joined"
	EventJoinError              = "join-error"
	EventChatHistory            = "chat-history"
	EventParticipantJoined      = "participant-joined"
	EventParticipantLeft        = "participant-left"
	EventTeacherJoined          = "teacher-joined"
	EventTeacherDisconnected    = "teacher-disconnected"
	EventRoomEnded              = "room-ended"
	EventForceMute              = "force-mute"
	EventForceCam               = "force-cam"
	EventParticipantMuteChanged = "participant-mute-changed"
	EventParticipantCamChanged  = "participant-cam-changed"
	EventSpotlightChanged       = "spotlight-changed"
	EventQuizSubmissions        = "quiz-submissions"
	EventQuizRevealedIDs        = "quiz-revealed-ids"
	EventError                  = "error"
)

// Error codes carried by join-error and error events.
const (
	CodeRoomNotFound      = "room-not-found"
	CodeRoomFull          = "room-full"
	CodeInvalidJoin       = "invalid-join"
	CodeUnauthorized      = "unauthorized"
	CodeQuizAlreadyActive = "quiz-already-active"
	CodeNoActiveQuiz      = "no-active-quiz"
	CodeQuizClosed        = "quiz-closed"
	CodeNotJoined         = "not-joined"
	CodeAlreadyJoined     = "already-joined"
	CodeRoomMismatch      = "room-mismatch"
	CodeUnknownEvent      = "unknown-event"
	CodeBadPayload        = "bad-payload"
)

// Role identifies what a participant may do inside a room.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
	RoleGuest   Role = "guest"
)

// Valid reports whether the role is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleTeacher, RoleStudent, RoleGuest:
		return true
	default:
		return false
	}
}

// IsTeacher reports whether the role carries control-plane authority.
func (r Role) IsTeacher() bool {
	return r == RoleTeacher
}

// Quiz reveal modes.
const (
	RevealIndividual = "individual"
	RevealClass      = "class-reveal"
	RevealFinal      = "final"
)

// IsValidRevealMode reports whether mode is a known reveal mode.
func IsValidRevealMode(mode string) bool {
	switch mode {
	case RevealIndividual, RevealClass, RevealFinal:
		return true
	default:
		return false
	}
}
