package interfaces

import (
	"context"

	"liveroom/pkg/protocol"
)

// DataStore is the durable local mirror: provisioned room records and the
// chat transcript. It is never called inside a room's critical section;
// coordination paths use it fire-and-forget from their own goroutines.
type DataStore interface {
	// CreateRoom writes a provisioned room record.
	CreateRoom(ctx context.Context, rec *protocol.RoomRecord) error

	// GetRoomByCode resolves the current shareable code to a record.
	GetRoomByCode(ctx context.Context, code string) (*protocol.RoomRecord, error)

	// GetRoomByID resolves the stable internal id to a record.
	GetRoomByID(ctx context.Context, roomID string) (*protocol.RoomRecord, error)

	// ListRooms returns all records ordered by creation time.
	ListRooms(ctx context.Context) ([]*protocol.RoomRecord, error)

	// UpdateRoomCode re-keys a record under a regenerated shareable code.
	UpdateRoomCode(ctx context.Context, roomID, newCode string) error

	// DeleteRoom removes a record and its transcript.
	DeleteRoom(ctx context.Context, roomID string) error

	// AppendMessage adds one chat message to the room transcript.
	AppendMessage(ctx context.Context, msg *protocol.ChatEvent) error

	// RecentMessages returns up to limit transcript entries, oldest first.
	RecentMessages(ctx context.Context, roomID string, limit int) ([]protocol.ChatEvent, error)

	// HealthCheck verifies connectivity.
	HealthCheck(ctx context.Context) error

	// Close flushes the writer and closes the database.
	Close() error
}
