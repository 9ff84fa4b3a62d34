package interfaces

import "liveroom/pkg/protocol"

// RoomCoordinator is the single entry surface for every room-scoped action.
// Authorization happens here, once per action; callers never branch on role.
// Errors are the sentinels in this package; callers map them to wire codes.
type RoomCoordinator interface {
	// Join runs the join protocol: validates the room, registers the
	// connection, and returns the atomic snapshot ack.
	Join(req *protocol.JoinRoomRequest, conn Connection) (*protocol.JoinAck, error)

	// Leave is the explicit leave-room action; disconnect cleanup takes the
	// same path through the registry's departure hook.
	Leave(conn Connection) error

	// End is the teacher's explicit end-room action.
	End(conn Connection) error

	// Chat rebroadcasts a chat message to the whole room.
	Chat(conn Connection, req *protocol.ChatRequest) error

	// Control plane.
	SetMute(conn Connection, req *protocol.MuteRequest) error
	SetCamera(conn Connection, req *protocol.CamRequest) error
	SetSpotlight(conn Connection, req *protocol.SpotlightRequest) error

	// Quiz lifecycle.
	StartQuiz(conn Connection, req *protocol.QuizStartRequest) error
	StopQuiz(conn Connection) error
	SubmitQuiz(conn Connection, req *protocol.QuizSubmitRequest) error
	RevealQuiz(conn Connection, req *protocol.QuizRevealRequest) error

	// Course follow mode.
	CourseToggle(conn Connection, req *protocol.CourseToggle) error
	CourseNavigate(conn Connection, req *protocol.CourseNavigate) error
	CourseLock(conn Connection, req *protocol.CourseLock) error
	CourseScrollSync(conn Connection, req *protocol.CourseScrollSync) error
}
