package socket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"liveroom/internal/registry"
	"liveroom/internal/relay"
	"liveroom/pkg/interfaces"
	"liveroom/pkg/protocol"
)

// Config sizes the transport endpoint.
type Config struct {
	// PingInterval is how often the server pings each connection.
	PingInterval time.Duration

	// PongTimeout is the read deadline extended by each pong (or read).
	PongTimeout time.Duration

	// WriteTimeout bounds each outbound frame write.
	WriteTimeout time.Duration

	// JoinTimeout is how long a fresh socket has to send join-room.
	JoinTimeout time.Duration

	// ReadLimit caps inbound frame size. SDP offers run large.
	ReadLimit int64

	// SendBuffer is the per-connection outbound queue length.
	SendBuffer int
}

// DefaultConfig returns transport settings sized for classroom sessions.
func DefaultConfig() Config {
	return Config{
		PingInterval: 30 * time.Second,
		PongTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Second,
		JoinTimeout:  15 * time.Second,
		ReadLimit:    64 * 1024,
		SendBuffer:   100,
	}
}

// Handler upgrades HTTP requests to websockets and runs the per-connection
// read loop: join handshake first, then dispatch, with heartbeat and rate
// limiting. Disconnects of any kind funnel into registry.Unregister, which
// notifies the room store through the departure hook.
type Handler struct {
	cfg         Config
	registry    *registry.Registry
	coordinator interfaces.RoomCoordinator
	dispatcher  *Dispatcher
	limiter     *RateLimiter
	logger      *slog.Logger
	upgrader    websocket.Upgrader
}

func NewHandler(cfg Config, reg *registry.Registry, coordinator interfaces.RoomCoordinator, rly *relay.Relay, limiter *RateLimiter, logger *slog.Logger) *Handler {
	return &Handler{
		cfg:         cfg,
		registry:    reg,
		coordinator: coordinator,
		dispatcher:  NewDispatcher(coordinator, rly, logger),
		limiter:     limiter,
		logger:      logger,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			// Browser clients connect from the product's own origin; the
			// deployment's reverse proxy enforces origin policy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleWebSocket is the GET /ws endpoint.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	conn := registry.NewConn(ws, h.cfg.SendBuffer, h.cfg.WriteTimeout, h.logger)
	id := h.registry.Register(conn)

	defer func() {
		h.limiter.Forget(id)
		h.registry.Unregister(id)
		_ = conn.Close()
	}()

	ws.SetReadLimit(h.cfg.ReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(h.cfg.JoinTimeout))
	ws.SetPongHandler(func(string) error {
		// The join deadline stands until the handshake completes.
		if conn.Joined() {
			return ws.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
		}
		return nil
	})

	go h.pingLoop(conn, ws)
	h.readLoop(conn, ws)
}

func (h *Handler) pingLoop(conn *registry.Conn, ws *websocket.Conn) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.cfg.WriteTimeout)); err != nil {
				return
			}
		case <-conn.Done():
			return
		}
	}
}

func (h *Handler) readLoop(conn *registry.Conn, ws *websocket.Conn) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Debug("read failed", "connection_id", conn.ID(), "error", err)
			}
			return
		}

		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			_ = conn.Send(protocol.EventError, protocol.ErrorEvent{
				Code: protocol.CodeBadPayload, Message: "malformed frame",
			})
			if !conn.Joined() {
				return
			}
			continue
		}

		if env.Event == protocol.EventJoinRoom {
			if !h.handleJoin(conn, ws, env.Data) {
				return
			}
			continue
		}

		if !conn.Joined() {
			// The first event on a socket must be join-room.
			_ = conn.Send(protocol.EventError, protocol.ErrorEvent{
				Code: protocol.CodeNotJoined, Message: "join-room required first",
			})
			return
		}

		if !h.limiter.Allow(conn.ID()) {
			h.logger.Warn("rate limit exceeded, dropping event", "connection_id", conn.ID(), "event", env.Event)
			continue
		}
		h.dispatcher.Dispatch(conn, &env)
	}
}

// handleJoin runs one join attempt. A rejected join leaves the socket open
// so the client can retry with a different code; returns false only when
// the socket should close.
func (h *Handler) handleJoin(conn *registry.Conn, ws *websocket.Conn, raw json.RawMessage) bool {
	if conn.Joined() {
		_ = conn.Send(protocol.EventError, protocol.ErrorEvent{
			Code: protocol.CodeAlreadyJoined, Message: "already joined a room",
		})
		return true
	}

	var req protocol.JoinRoomRequest
	if err := decode(raw, &req); err != nil {
		_ = conn.Send(protocol.EventJoinError, protocol.ErrorEvent{
			Code: protocol.CodeInvalidJoin, Message: "malformed join payload",
		})
		return false
	}

	if _, err := h.coordinator.Join(&req, conn); err != nil {
		_ = conn.Send(protocol.EventJoinError, protocol.ErrorEvent{
			Code: joinErrorCode(err), Message: err.Error(),
		})
		return true
	}

	_ = ws.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	h.logger.Info("participant joined",
		"connection_id", conn.ID(), "room_code", req.RoomCode, "role", req.Role, "name", req.Name)
	return true
}
