package interfaces

import "errors"

// Sentinel errors shared across component boundaries. Surfaces map these to
// wire error codes; everything else stays package-local.
var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrNotJoined         = errors.New("connection has not joined a room")
	ErrAlreadyJoined     = errors.New("connection already joined a room")
	ErrRoomFull          = errors.New("room is at capacity")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrRoomMismatch      = errors.New("payload names a different room")
	ErrQuizAlreadyActive = errors.New("a quiz is already active")
	ErrNoActiveQuiz      = errors.New("no active quiz")
	ErrQuizClosed        = errors.New("quiz is no longer collecting")
	ErrStaleTarget       = errors.New("target connection has departed")
)
