package fixtures

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"liveroom/pkg/protocol"
)

// waitTimeout bounds every frame expectation.
const waitTimeout = 3 * time.Second

// Client is one websocket participant. A reader goroutine collects inbound
// frames; WaitFor consumes them in order, holding back non-matching frames
// so expectations can be interleaved freely.
type Client struct {
	t       *testing.T
	ws      *websocket.Conn
	frames  chan protocol.Envelope
	pending []protocol.Envelope
}

// Connect dials the harness's websocket endpoint.
func Connect(t *testing.T, h *Harness) *Client {
	t.Helper()

	url := "ws" + strings.TrimPrefix(h.Server.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	c := &Client{t: t, ws: ws, frames: make(chan protocol.Envelope, 256)}
	go c.readLoop()
	t.Cleanup(c.Close)
	return c
}

func (c *Client) readLoop() {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			close(c.frames)
			return
		}
		var env protocol.Envelope
		if json.Unmarshal(data, &env) == nil {
			c.frames <- env
		}
	}
}

// Close tears the socket down; the server sees a disconnect.
func (c *Client) Close() {
	_ = c.ws.Close()
}

// Send writes one event frame.
func (c *Client) Send(event string, data any) {
	c.t.Helper()
	frame, err := protocol.EncodeEnvelope(event, data)
	require.NoError(c.t, err)
	require.NoError(c.t, c.ws.WriteMessage(websocket.TextMessage, frame))
}

// WaitFor returns the next frame with the given event name, holding back
// any other frames that arrive first.
func (c *Client) WaitFor(event string) protocol.Envelope {
	c.t.Helper()

	for i, env := range c.pending {
		if env.Event == event {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return env
		}
	}

	deadline := time.After(waitTimeout)
	for {
		select {
		case env, ok := <-c.frames:
			if !ok {
				c.t.Fatalf("connection closed while waiting for %q", event)
				return protocol.Envelope{}
			}
			if env.Event == event {
				return env
			}
			c.pending = append(c.pending, env)
		case <-deadline:
			c.t.Fatalf("timed out waiting for %q (pending: %v)", event, c.pendingEvents())
			return protocol.Envelope{}
		}
	}
}

// WaitForDecoded waits for the event and decodes its payload into v.
func (c *Client) WaitForDecoded(event string, v any) {
	c.t.Helper()
	env := c.WaitFor(event)
	require.NoError(c.t, json.Unmarshal(env.Data, v))
}

// ExpectNone asserts that no frame with the given event name arrives within
// the window. Other frames are held back, not discarded.
func (c *Client) ExpectNone(event string, window time.Duration) {
	c.t.Helper()

	for _, env := range c.pending {
		if env.Event == event {
			c.t.Fatalf("unexpected %q frame", event)
		}
	}

	deadline := time.After(window)
	for {
		select {
		case env, ok := <-c.frames:
			if !ok {
				return
			}
			if env.Event == event {
				c.t.Fatalf("unexpected %q frame", event)
			}
			c.pending = append(c.pending, env)
		case <-deadline:
			return
		}
	}
}

func (c *Client) pendingEvents() []string {
	events := make([]string, len(c.pending))
	for i, env := range c.pending {
		events[i] = env.Event
	}
	return events
}

// Join runs the join handshake and returns the ack.
func (c *Client) Join(code, name string, role protocol.Role) protocol.JoinAck {
	c.t.Helper()
	c.Send(protocol.EventJoinRoom, protocol.JoinRoomRequest{RoomCode: code, Name: name, Role: role})
	var ack protocol.JoinAck
	c.WaitForDecoded(protocol.EventRoomJoined, &ack)
	return ack
}

// JoinExpectError attempts a join and returns the join-error payload.
func (c *Client) JoinExpectError(code, name string, role protocol.Role) protocol.ErrorEvent {
	c.t.Helper()
	c.Send(protocol.EventJoinRoom, protocol.JoinRoomRequest{RoomCode: code, Name: name, Role: role})
	var ev protocol.ErrorEvent
	c.WaitForDecoded(protocol.EventJoinError, &ev)
	return ev
}
