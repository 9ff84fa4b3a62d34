package interfaces_test

import (
	"context"
	"testing"

	"liveroom/pkg/interfaces"
	"liveroom/pkg/protocol"
)

// Minimal implementations proving the contracts are implementable without
// importing any concrete package.

type stubConnection struct{}

func (s *stubConnection) ID() string             { return "" }
func (s *stubConnection) SetID(string)           {}
func (s *stubConnection) DisplayName() string    { return "" }
func (s *stubConnection) Role() protocol.Role    { return protocol.RoleStudent }
func (s *stubConnection) RoomCode() string       { return "" }
func (s *stubConnection) Joined() bool           { return false }
func (s *stubConnection) Send(string, any) error { return nil }
func (s *stubConnection) Close() error           { return nil }
func (s *stubConnection) Bind(string, protocol.Role, string) error {
	return nil
}

type stubRegistry struct{}

func (s *stubRegistry) Register(interfaces.Connection) string       { return "" }
func (s *stubRegistry) Lookup(string) (interfaces.Connection, bool) { return nil, false }
func (s *stubRegistry) Unregister(string)                           {}
func (s *stubRegistry) Count() int                                  { return 0 }

type stubStore struct{}

func (s *stubStore) CreateRoom(context.Context, *protocol.RoomRecord) error { return nil }
func (s *stubStore) GetRoomByCode(context.Context, string) (*protocol.RoomRecord, error) {
	return nil, nil
}
func (s *stubStore) GetRoomByID(context.Context, string) (*protocol.RoomRecord, error) {
	return nil, nil
}
func (s *stubStore) ListRooms(context.Context) ([]*protocol.RoomRecord, error) { return nil, nil }
func (s *stubStore) UpdateRoomCode(context.Context, string, string) error      { return nil }
func (s *stubStore) DeleteRoom(context.Context, string) error                  { return nil }
func (s *stubStore) AppendMessage(context.Context, *protocol.ChatEvent) error  { return nil }
func (s *stubStore) RecentMessages(context.Context, string, int) ([]protocol.ChatEvent, error) {
	return nil, nil
}
func (s *stubStore) HealthCheck(context.Context) error { return nil }
func (s *stubStore) Close() error                      { return nil }

type stubRecorder struct{}

func (s *stubRecorder) RecordQuizResult(context.Context, *protocol.QuizResult) error { return nil }

var (
	_ interfaces.Connection         = (*stubConnection)(nil)
	_ interfaces.ConnectionRegistry = (*stubRegistry)(nil)
	_ interfaces.DataStore          = (*stubStore)(nil)
	_ interfaces.GradeRecorder      = (*stubRecorder)(nil)
)

func TestSentinelErrorsDistinct(t *testing.T) {
	errs := []error{
		interfaces.ErrRoomNotFound,
		interfaces.ErrNotJoined,
		interfaces.ErrAlreadyJoined,
		interfaces.ErrRoomFull,
		interfaces.ErrUnauthorized,
		interfaces.ErrRoomMismatch,
		interfaces.ErrQuizAlreadyActive,
		interfaces.ErrNoActiveQuiz,
		interfaces.ErrQuizClosed,
		interfaces.ErrStaleTarget,
	}
	seen := make(map[string]bool)
	for _, err := range errs {
		if seen[err.Error()] {
			t.Fatalf("duplicate error message: %q", err.Error())
		}
		seen[err.Error()] = true
	}
}
