package room

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"liveroom/pkg/interfaces"
	"liveroom/pkg/protocol"
)

// Config sizes the store's room-level behavior.
type Config struct {
	// Capacity is the fixed participant cap per room.
	Capacity int

	// Grace is how long a room survives after its last teacher disconnects
	// while students remain.
	Grace time.Duration

	// HistoryLimit bounds the transcript replay sent to joiners.
	HistoryLimit int
}

// DefaultConfig returns the default sizing: five participants per room, a
// sixty-second grace window, fifty transcript entries replayed on join.
func DefaultConfig() Config {
	return Config{
		Capacity:     5,
		Grace:        60 * time.Second,
		HistoryLimit: 50,
	}
}

// dbTimeout bounds the schedule-store lookup on the join path. Joins must
// not hang on a wedged database.
const dbTimeout = 2 * time.Second

// Store is the in-memory table of live rooms and the single entry point for
// every room-scoped action. The map lock guards only lookups and
// insert/remove; all room state changes happen under that room's own mutex,
// so rooms never block each other.
type Store struct {
	cfg      Config
	registry interfaces.ConnectionRegistry
	data     interfaces.DataStore
	grades   interfaces.GradeRecorder
	logger   *slog.Logger

	mu       sync.RWMutex
	byCode   map[string]*Room
	byID     map[string]*Room
	connRoom map[string]*Room
}

// NewStore creates an empty store. data and grades must be non-nil; use the
// gradebook skip mode rather than a nil recorder.
func NewStore(cfg Config, registry interfaces.ConnectionRegistry, data interfaces.DataStore, grades interfaces.GradeRecorder, logger *slog.Logger) *Store {
	return &Store{
		cfg:      cfg,
		registry: registry,
		data:     data,
		grades:   grades,
		logger:   logger,
		byCode:   make(map[string]*Room),
		byID:     make(map[string]*Room),
		connRoom: make(map[string]*Room),
	}
}

// Join runs the join protocol. Rooms come alive only on a teacher join; a
// student or guest joining a code with no live room is rejected even when a
// provisioned record exists. The ack snapshot is taken under the room lock,
// atomically with admission, so it can never contain a departed participant
// or miss the joiner in later broadcasts.
func (s *Store) Join(req *protocol.JoinRoomRequest, conn interfaces.Connection) (*protocol.JoinAck, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	room, created, err := s.resolveRoom(req)
	if err != nil {
		return nil, err
	}

	room.mu.Lock()
	if room.ended {
		// Lost the race against teardown; a fresh join attempt may
		// recreate the room.
		room.mu.Unlock()
		return nil, interfaces.ErrRoomNotFound
	}
	if len(room.participants) >= s.cfg.Capacity {
		room.mu.Unlock()
		return nil, interfaces.ErrRoomFull
	}
	if err := conn.Bind(req.Name, req.Role, room.code); err != nil {
		room.mu.Unlock()
		return nil, interfaces.ErrAlreadyJoined
	}

	others := room.snapshotLocked(conn.ID())
	ack := &protocol.JoinAck{
		ConnectionID:         conn.ID(),
		RoomCode:             room.code,
		RoomID:               room.id,
		RoomName:             room.name,
		ExistingParticipants: others,
		CurrentSpotlight:     room.spotlight,
	}
	room.addLocked(conn)
	_ = conn.Send(protocol.EventRoomJoined, ack)

	desc := protocol.Participant{ConnectionID: conn.ID(), Name: req.Name, Role: req.Role}
	room.broadcastLocked(protocol.EventParticipantJoined, desc, conn.ID())
	if req.Role.IsTeacher() {
		s.cancelGraceLocked(room)
		room.broadcastLocked(protocol.EventTeacherJoined, nil, conn.ID())
	}
	roomID := room.id
	room.mu.Unlock()

	s.mu.Lock()
	s.connRoom[conn.ID()] = room
	s.mu.Unlock()

	if created {
		s.logger.Info("room opened", "room_id", roomID, "room_code", req.RoomCode, "teacher", req.Name)
	}
	go s.replayHistory(roomID, conn)

	return ack, nil
}

// resolveRoom finds the live room for a code, creating it on a teacher join.
// The schedule-store lookup happens before any lock is taken.
func (s *Store) resolveRoom(req *protocol.JoinRoomRequest) (*Room, bool, error) {
	s.mu.RLock()
	room := s.byCode[req.RoomCode]
	s.mu.RUnlock()
	if room != nil {
		return room, false, nil
	}
	if !req.Role.IsTeacher() {
		return nil, false, interfaces.ErrRoomNotFound
	}

	// Provisioned record wins over the join payload for identity.
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	rec, err := s.data.GetRoomByCode(ctx, req.RoomCode)
	cancel()
	if err != nil && !errors.Is(err, interfaces.ErrRoomNotFound) {
		s.logger.Warn("schedule lookup failed, continuing ad hoc", "room_code", req.RoomCode, "error", err)
	}

	id, name := req.RoomID, req.RoomName
	if rec != nil {
		id, name = rec.RoomID, rec.RoomName
	}
	if id == "" {
		id = uuid.New().String()
	}
	if name == "" {
		name = req.RoomCode
	}

	s.mu.Lock()
	if existing := s.byCode[req.RoomCode]; existing != nil {
		s.mu.Unlock()
		return existing, false, nil
	}
	room = newRoom(id, req.RoomCode, name)
	s.byCode[room.code] = room
	s.byID[room.id] = room
	s.mu.Unlock()

	if rec == nil {
		// Ad-hoc room: mirror it so the transcript has a parent row and a
		// restarted coordinator can still resolve the code.
		go s.recordRoom(room.id, room.code, room.name)
	}
	return room, true, nil
}

func (s *Store) recordRoom(id, code, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()
	rec := &protocol.RoomRecord{RoomID: id, RoomCode: code, RoomName: name, CreatedAt: time.Now().UTC()}
	if err := s.data.CreateRoom(ctx, rec); err != nil {
		s.logger.Warn("failed to mirror ad-hoc room", "room_id", id, "error", err)
	}
}

// replayHistory sends the joiner the bounded recent transcript. It runs off
// the room lock, so a chat accepted between admission and the query here can
// reach the joiner both live and inside chat-history: replay is
// at-least-once, and clients dedupe when rendering.
func (s *Store) replayHistory(roomID string, conn interfaces.Connection) {
	if s.cfg.HistoryLimit <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()
	messages, err := s.data.RecentMessages(ctx, roomID, s.cfg.HistoryLimit)
	if err != nil {
		s.logger.Warn("transcript replay failed", "room_id", roomID, "error", err)
		return
	}
	if len(messages) == 0 {
		return
	}
	_ = conn.Send(protocol.EventChatHistory, protocol.ChatHistory{Messages: messages})
}

// Leave is the explicit leave-room action.
func (s *Store) Leave(conn interfaces.Connection) error {
	if !conn.Joined() {
		return interfaces.ErrNotJoined
	}
	s.depart(conn.ID())
	return nil
}

// HandleDeparture is the registry's departure hook. Unknown ids are a no-op;
// explicit leave and transport disconnect both funnel here.
func (s *Store) HandleDeparture(connectionID string) {
	s.depart(connectionID)
}

func (s *Store) depart(connectionID string) {
	s.mu.Lock()
	room := s.connRoom[connectionID]
	delete(s.connRoom, connectionID)
	s.mu.Unlock()
	if room == nil {
		return
	}

	room.mu.Lock()
	if room.ended {
		room.mu.Unlock()
		return
	}
	p := room.removeLocked(connectionID)
	if p == nil {
		room.mu.Unlock()
		return
	}
	wasTeacher := p.conn.Role().IsTeacher()

	if len(room.participants) == 0 {
		// No one left to notify; tear down without a grace period.
		ids := room.teardownLocked()
		roomID := room.id
		room.mu.Unlock()
		s.removeRoom(room, ids)
		s.logger.Info("room emptied", "room_id", roomID)
		return
	}

	room.broadcastLocked(protocol.EventParticipantLeft, protocol.ParticipantLeft{ConnectionID: connectionID})
	if wasTeacher && !room.teacherPresentLocked() {
		s.startGraceLocked(room)
	}
	room.mu.Unlock()
}

// End is the teacher's explicit end-room action: room-ended immediately, no
// grace period.
func (s *Store) End(conn interfaces.Connection) error {
	room, err := s.authorizeControl(conn)
	if err != nil {
		return err
	}

	room.mu.Lock()
	if room.ended {
		room.mu.Unlock()
		return interfaces.ErrRoomNotFound
	}
	room.broadcastLocked(protocol.EventRoomEnded, nil)
	ids := room.teardownLocked()
	roomID := room.id
	room.mu.Unlock()

	s.removeRoom(room, ids)
	s.logger.Info("room ended by teacher", "room_id", roomID, "teacher", conn.DisplayName())
	return nil
}

// roomFor resolves the live room an acting connection belongs to.
func (s *Store) roomFor(conn interfaces.Connection) (*Room, error) {
	if !conn.Joined() {
		return nil, interfaces.ErrNotJoined
	}
	s.mu.RLock()
	room := s.connRoom[conn.ID()]
	s.mu.RUnlock()
	if room == nil {
		return nil, interfaces.ErrRoomNotFound
	}
	return room, nil
}

// authorizeControl is the single authorization point for teacher-only
// actions. Call sites never re-branch on role.
func (s *Store) authorizeControl(conn interfaces.Connection) (*Room, error) {
	room, err := s.roomFor(conn)
	if err != nil {
		return nil, err
	}
	if !conn.Role().IsTeacher() {
		return nil, interfaces.ErrUnauthorized
	}
	return room, nil
}

// removeRoom drops the store-level mappings for a torn-down room. Guarded by
// identity so a stale teardown cannot evict a recreated room.
func (s *Store) removeRoom(room *Room, participantIDs []string) {
	s.mu.Lock()
	if s.byID[room.id] == room {
		delete(s.byID, room.id)
	}
	if s.byCode[room.code] == room {
		delete(s.byCode, room.code)
	}
	for _, id := range participantIDs {
		if s.connRoom[id] == room {
			delete(s.connRoom, id)
		}
	}
	s.mu.Unlock()
}

// Chat rebroadcasts a message to the whole room, sender included (the
// broadcast is the ordering truth), and appends it to the transcript outside
// the critical section.
func (s *Store) Chat(conn interfaces.Connection, req *protocol.ChatRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	room, err := s.roomFor(conn)
	if err != nil {
		return err
	}

	room.mu.Lock()
	if room.ended {
		room.mu.Unlock()
		return interfaces.ErrRoomNotFound
	}
	// The shareable code can be regenerated mid-session, so only the stable
	// id is checked for a mismatch.
	if req.RoomID != "" && req.RoomID != room.id {
		room.mu.Unlock()
		return interfaces.ErrRoomMismatch
	}
	ev := protocol.ChatEvent{
		RoomCode:     room.code,
		RoomID:       room.id,
		ConnectionID: conn.ID(),
		Name:         conn.DisplayName(),
		Role:         conn.Role(),
		Message:      req.Message,
		SentAt:       time.Now().UTC(),
	}
	room.broadcastLocked(protocol.EventChatMessage, ev)
	room.mu.Unlock()

	go s.appendTranscript(ev)
	return nil
}

func (s *Store) appendTranscript(ev protocol.ChatEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()
	if err := s.data.AppendMessage(ctx, &ev); err != nil {
		s.logger.Warn("transcript append failed", "room_id", ev.RoomID, "error", err)
	}
}

// Shutdown ends every live room with a room-ended broadcast. Used on
// graceful process stop.
func (s *Store) Shutdown() {
	s.mu.RLock()
	rooms := make([]*Room, 0, len(s.byID))
	for _, room := range s.byID {
		rooms = append(rooms, room)
	}
	s.mu.RUnlock()

	for _, room := range rooms {
		room.mu.Lock()
		if room.ended {
			room.mu.Unlock()
			continue
		}
		room.broadcastLocked(protocol.EventRoomEnded, nil)
		ids := room.teardownLocked()
		room.mu.Unlock()
		s.removeRoom(room, ids)
	}
}
