package socket

import (
	"encoding/json"
	"errors"
	"log/slog"

	"liveroom/internal/relay"
	"liveroom/internal/room"
	"liveroom/pkg/interfaces"
	"liveroom/pkg/protocol"
)

// Dispatcher routes post-join inbound events to the coordinator and the
// relay. Every coordinator error resolves to a wire code exactly once, here;
// stale-target races resolve to silence.
type Dispatcher struct {
	coordinator interfaces.RoomCoordinator
	relay       *relay.Relay
	logger      *slog.Logger
}

func NewDispatcher(coordinator interfaces.RoomCoordinator, relay *relay.Relay, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{coordinator: coordinator, relay: relay, logger: logger}
}

// Dispatch handles one inbound event from a joined connection. Unknown
// events and malformed payloads answer with an error event; the socket
// stays open.
func (d *Dispatcher) Dispatch(conn interfaces.Connection, env *protocol.Envelope) {
	err := d.route(conn, env)
	if err == nil {
		return
	}
	if errors.Is(err, interfaces.ErrStaleTarget) {
		// A normal race with the target's departure; drop silently.
		d.logger.Debug("stale target dropped", "connection_id", conn.ID(), "event", env.Event)
		return
	}
	code := wireCode(err)
	d.logger.Debug("event rejected", "connection_id", conn.ID(), "event", env.Event, "code", code)
	_ = conn.Send(protocol.EventError, protocol.ErrorEvent{Code: code, Message: err.Error()})
}

func (d *Dispatcher) route(conn interfaces.Connection, env *protocol.Envelope) error {
	switch env.Event {
	case protocol.EventSignal:
		var req protocol.SignalRequest
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		if req.To == "" {
			return ErrBadPayload
		}
		d.relay.Forward(conn, &req)
		return nil

	case protocol.EventChatMessage:
		var req protocol.ChatRequest
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return d.coordinator.Chat(conn, &req)

	case protocol.EventLeaveRoom:
		return d.coordinator.Leave(conn)

	case protocol.EventEndRoom:
		return d.coordinator.End(conn)

	case protocol.EventMuteParticipant:
		var req protocol.MuteRequest
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return d.coordinator.SetMute(conn, &req)

	case protocol.EventCamParticipant:
		var req protocol.CamRequest
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return d.coordinator.SetCamera(conn, &req)

	case protocol.EventSpotlightChange:
		var req protocol.SpotlightRequest
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return d.coordinator.SetSpotlight(conn, &req)

	case protocol.EventQuizStart:
		var req protocol.QuizStartRequest
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return d.coordinator.StartQuiz(conn, &req)

	case protocol.EventQuizStop:
		return d.coordinator.StopQuiz(conn)

	case protocol.EventQuizSubmit:
		var req protocol.QuizSubmitRequest
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return d.coordinator.SubmitQuiz(conn, &req)

	case protocol.EventQuizReveal:
		var req protocol.QuizRevealRequest
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		if !protocol.IsValidRevealMode(req.Mode) {
			return ErrBadPayload
		}
		return d.coordinator.RevealQuiz(conn, &req)

	case protocol.EventCourseToggle:
		var req protocol.CourseToggle
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return d.coordinator.CourseToggle(conn, &req)

	case protocol.EventCourseNavigate:
		var req protocol.CourseNavigate
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return d.coordinator.CourseNavigate(conn, &req)

	case protocol.EventCourseLock:
		var req protocol.CourseLock
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return d.coordinator.CourseLock(conn, &req)

	case protocol.EventCourseScrollSync:
		var req protocol.CourseScrollSync
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return d.coordinator.CourseScrollSync(conn, &req)

	default:
		return ErrUnknownEvent
	}
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return ErrBadPayload
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return ErrBadPayload
	}
	return nil
}

// wireCode maps a coordinator error to the code carried by the error event.
func wireCode(err error) string {
	switch {
	case errors.Is(err, interfaces.ErrRoomNotFound):
		return protocol.CodeRoomNotFound
	case errors.Is(err, interfaces.ErrRoomFull):
		return protocol.CodeRoomFull
	case errors.Is(err, interfaces.ErrUnauthorized):
		return protocol.CodeUnauthorized
	case errors.Is(err, interfaces.ErrNotJoined):
		return protocol.CodeNotJoined
	case errors.Is(err, interfaces.ErrAlreadyJoined):
		return protocol.CodeAlreadyJoined
	case errors.Is(err, interfaces.ErrRoomMismatch):
		return protocol.CodeRoomMismatch
	case errors.Is(err, interfaces.ErrQuizAlreadyActive):
		return protocol.CodeQuizAlreadyActive
	case errors.Is(err, interfaces.ErrNoActiveQuiz):
		return protocol.CodeNoActiveQuiz
	case errors.Is(err, interfaces.ErrQuizClosed):
		return protocol.CodeQuizClosed
	case errors.Is(err, room.ErrInvalidRevealMode):
		return protocol.CodeBadPayload
	case errors.Is(err, ErrUnknownEvent):
		return protocol.CodeUnknownEvent
	default:
		return protocol.CodeBadPayload
	}
}

// joinErrorCode maps a failed join to the join-error code. Validation
// failures collapse into invalid-join; the client shows the message.
func joinErrorCode(err error) string {
	switch {
	case errors.Is(err, interfaces.ErrRoomNotFound):
		return protocol.CodeRoomNotFound
	case errors.Is(err, interfaces.ErrRoomFull):
		return protocol.CodeRoomFull
	case errors.Is(err, interfaces.ErrAlreadyJoined):
		return protocol.CodeAlreadyJoined
	default:
		return protocol.CodeInvalidJoin
	}
}
