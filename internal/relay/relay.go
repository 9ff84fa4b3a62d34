// Package relay forwards peer-connection handshake payloads between two
// specific participants. It is stateless: the payload (SDP offers, answers,
// ICE candidates) is opaque and forwarded byte-for-byte, validated only for
// the liveness of the target connection.
package relay

import (
	"log/slog"

	"liveroom/pkg/interfaces"
	"liveroom/pkg/protocol"
)

type Relay struct {
	registry interfaces.ConnectionRegistry
	logger   *slog.Logger
}

func New(registry interfaces.ConnectionRegistry, logger *slog.Logger) *Relay {
	return &Relay{registry: registry, logger: logger}
}

// Forward delivers one signaling payload. A departed target is a normal
// race, not an error: the message drops silently and the sender's own
// peer-connection timeout covers the stale case. The outbound event carries
// the sender's id so the receiver can route its answer back.
func (r *Relay) Forward(from interfaces.Connection, req *protocol.SignalRequest) {
	target, ok := r.registry.Lookup(req.To)
	if !ok {
		r.logger.Debug("signal target departed", "from", from.ID(), "to", req.To)
		return
	}
	_ = target.Send(protocol.EventSignal, protocol.SignalEvent{
		From: from.ID(),
		Data: req.Data,
	})
}
