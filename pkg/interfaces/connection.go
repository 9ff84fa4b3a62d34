package interfaces

import "liveroom/pkg/protocol"

// Connection is one live client transport session. Implementations must
// make Send safe for concurrent use (single-writer pump underneath) and
// non-blocking toward the caller.
type Connection interface {
	// ID returns the server-assigned connection id, empty until registered.
	ID() string

	// SetID assigns the server-side id. Called once, by the registry.
	SetID(id string)

	// DisplayName returns the name bound at join time.
	DisplayName() string

	// Role returns the role bound at join time.
	Role() protocol.Role

	// RoomCode returns the room the connection joined.
	RoomCode() string

	// Joined reports whether the join handshake has completed.
	Joined() bool

	// Bind attaches the join identity. Binding twice is an error.
	Bind(displayName string, role protocol.Role, roomCode string) error

	// Send enqueues one outbound event frame. A full queue drops the frame
	// and returns an error; it never blocks.
	Send(event string, data any) error

	// Close tears the transport down and releases the writer goroutine.
	// Safe to call more than once.
	Close() error
}
