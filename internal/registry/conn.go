package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"liveroom/pkg/protocol"
)

// Conn wraps one websocket with the single-writer pump. gorilla permits one
// concurrent writer, so every outbound frame goes through writeCh and is
// written by exactly one goroutine. Send never blocks: a full queue drops
// the frame, which keeps slow consumers from stalling a room's broadcast.
type Conn struct {
	ws           *websocket.Conn
	logger       *slog.Logger
	writeCh      chan []byte
	writeTimeout time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
	closeOnce    sync.Once

	mu          sync.RWMutex
	id          string
	displayName string
	role        protocol.Role
	roomCode    string
	joined      bool
}

// NewConn starts the writer goroutine for ws. bufSize is the outbound queue
// length; writeTimeout bounds each frame write.
func NewConn(ws *websocket.Conn, bufSize int, writeTimeout time.Duration, logger *slog.Logger) *Conn {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		ws:           ws,
		logger:       logger,
		writeCh:      make(chan []byte, bufSize),
		writeTimeout: writeTimeout,
		ctx:          ctx,
		cancel:       cancel,
	}
	go c.writeLoop()
	return c
}

func (c *Conn) writeLoop() {
	for {
		select {
		case data := <-c.writeCh:
			if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// ID returns the server-assigned connection id, empty until registered.
func (c *Conn) ID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id
}

// SetID assigns the server-side id. Called once, by the registry.
func (c *Conn) SetID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = id
}

// DisplayName returns the name bound at join time.
func (c *Conn) DisplayName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.displayName
}

// Role returns the role bound at join time.
func (c *Conn) Role() protocol.Role {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.role
}

// RoomCode returns the room the connection joined.
func (c *Conn) RoomCode() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomCode
}

// Joined reports whether the join handshake has completed.
func (c *Conn) Joined() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.joined
}

// Bind attaches the join identity. Binding twice is an error: one socket
// joins at most one room for its lifetime.
func (c *Conn) Bind(displayName string, role protocol.Role, roomCode string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.joined {
		return ErrAlreadyBound
	}
	c.displayName = displayName
	c.role = role
	c.roomCode = roomCode
	c.joined = true
	return nil
}

// Send encodes and enqueues one outbound event frame. It never blocks: a
// closed connection or a full queue returns an error and the frame is gone.
func (c *Conn) Send(event string, data any) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	frame, err := protocol.EncodeEnvelope(event, data)
	if err != nil {
		return err
	}

	select {
	case c.writeCh <- frame:
		return nil
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
		c.logger.Warn("dropping frame for slow consumer", "connection_id", c.ID(), "event", event)
		return ErrSendBufferFull
	}
}

// Close tears the transport down and releases the writer goroutine. Safe to
// call more than once; read and teardown paths race on it.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.ws.Close()
	})
	return err
}

// Socket exposes the underlying websocket for the read loop and heartbeat.
// Only the socket handler's read goroutine may touch it.
func (c *Conn) Socket() *websocket.Conn {
	return c.ws
}

// Done is closed once the connection is shut down.
func (c *Conn) Done() <-chan struct{} {
	return c.ctx.Done()
}
