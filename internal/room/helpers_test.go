package room

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"liveroom/pkg/interfaces"
	"liveroom/pkg/protocol"
)

// fakeConn records every frame sent to it. Safe for concurrent use; the
// watchdog delivers from its own goroutine.
type fakeConn struct {
	mu          sync.Mutex
	id          string
	displayName string
	role        protocol.Role
	roomCode    string
	joined      bool
	sent        []sentFrame
	closed      bool
}

type sentFrame struct {
	Event string
	Data  any
}

func (c *fakeConn) ID() string          { return c.id }
func (c *fakeConn) SetID(id string)     { c.id = id }
func (c *fakeConn) DisplayName() string { return c.displayName }
func (c *fakeConn) Role() protocol.Role { return c.role }
func (c *fakeConn) RoomCode() string    { return c.roomCode }
func (c *fakeConn) Joined() bool        { return c.joined }

func (c *fakeConn) Bind(name string, role protocol.Role, roomCode string) error {
	if c.joined {
		return fmt.Errorf("already bound")
	}
	c.displayName = name
	c.role = role
	c.roomCode = roomCode
	c.joined = true
	return nil
}

func (c *fakeConn) Send(event string, data any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentFrame{Event: event, Data: data})
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) frames() []sentFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]sentFrame, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *fakeConn) eventCount(event string) int {
	n := 0
	for _, f := range c.frames() {
		if f.Event == event {
			n++
		}
	}
	return n
}

func (c *fakeConn) lastFrame(event string) (sentFrame, bool) {
	frames := c.frames()
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].Event == event {
			return frames[i], true
		}
	}
	return sentFrame{}, false
}

// waitForEvent polls for a frame delivered asynchronously (grace expiry).
func (c *fakeConn) waitForEvent(event string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.eventCount(event) > 0 {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return false
}

// fakeData is an in-memory DataStore.
type fakeData struct {
	mu       sync.Mutex
	records  map[string]*protocol.RoomRecord // by code
	messages map[string][]protocol.ChatEvent // by room id
}

func newFakeData() *fakeData {
	return &fakeData{
		records:  make(map[string]*protocol.RoomRecord),
		messages: make(map[string][]protocol.ChatEvent),
	}
}

func (d *fakeData) CreateRoom(_ context.Context, rec *protocol.RoomRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records[rec.RoomCode] = rec
	return nil
}

func (d *fakeData) GetRoomByCode(_ context.Context, code string) (*protocol.RoomRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.records[code]
	if !ok {
		return nil, interfaces.ErrRoomNotFound
	}
	return rec, nil
}

func (d *fakeData) GetRoomByID(_ context.Context, roomID string) (*protocol.RoomRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, rec := range d.records {
		if rec.RoomID == roomID {
			return rec, nil
		}
	}
	return nil, interfaces.ErrRoomNotFound
}

func (d *fakeData) ListRooms(_ context.Context) ([]*protocol.RoomRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*protocol.RoomRecord, 0, len(d.records))
	for _, rec := range d.records {
		out = append(out, rec)
	}
	return out, nil
}

func (d *fakeData) UpdateRoomCode(_ context.Context, roomID, newCode string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for code, rec := range d.records {
		if rec.RoomID == roomID {
			delete(d.records, code)
			rec.RoomCode = newCode
			d.records[newCode] = rec
			return nil
		}
	}
	return interfaces.ErrRoomNotFound
}

func (d *fakeData) DeleteRoom(_ context.Context, roomID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for code, rec := range d.records {
		if rec.RoomID == roomID {
			delete(d.records, code)
			delete(d.messages, roomID)
			return nil
		}
	}
	return nil
}

func (d *fakeData) AppendMessage(_ context.Context, msg *protocol.ChatEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages[msg.RoomID] = append(d.messages[msg.RoomID], *msg)
	return nil
}

func (d *fakeData) RecentMessages(_ context.Context, roomID string, limit int) ([]protocol.ChatEvent, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	msgs := d.messages[roomID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]protocol.ChatEvent, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (d *fakeData) HealthCheck(context.Context) error { return nil }
func (d *fakeData) Close() error                      { return nil }

func (d *fakeData) transcriptLen(roomID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.messages[roomID])
}

// fakeGrades records every reported quiz result.
type fakeGrades struct {
	mu      sync.Mutex
	results []*protocol.QuizResult
}

func (g *fakeGrades) RecordQuizResult(_ context.Context, result *protocol.QuizResult) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.results = append(g.results, result)
	return nil
}

func (g *fakeGrades) recorded() []*protocol.QuizResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*protocol.QuizResult, len(g.results))
	copy(out, g.results)
	return out
}

// fakeRegistry satisfies ConnectionRegistry for store construction; the store
// never calls it directly.
type fakeRegistry struct {
	mu    sync.Mutex
	conns map[string]interfaces.Connection
	next  int
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{conns: make(map[string]interfaces.Connection)}
}

func (r *fakeRegistry) Register(conn interfaces.Connection) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	id := fmt.Sprintf("conn-%d", r.next)
	conn.SetID(id)
	r.conns[id] = conn
	return id
}

func (r *fakeRegistry) Lookup(id string) (interfaces.Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[id]
	return conn, ok
}

func (r *fakeRegistry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
}

func (r *fakeRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

type storeEnv struct {
	store  *Store
	reg    *fakeRegistry
	data   *fakeData
	grades *fakeGrades
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(cfg Config) *storeEnv {
	reg := newFakeRegistry()
	data := newFakeData()
	grades := &fakeGrades{}
	store := NewStore(cfg, reg, data, grades, testLogger())
	return &storeEnv{store: store, reg: reg, data: data, grades: grades}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Grace = 50 * time.Millisecond
	return cfg
}

// join registers a fresh connection and runs the join protocol, failing the
// test indirectly via the returned error.
func (e *storeEnv) join(code, name string, role protocol.Role) (*fakeConn, *protocol.JoinAck, error) {
	conn := &fakeConn{}
	e.reg.Register(conn)
	ack, err := e.store.Join(&protocol.JoinRoomRequest{
		RoomCode: code,
		Name:     name,
		Role:     role,
	}, conn)
	return conn, ack, err
}
