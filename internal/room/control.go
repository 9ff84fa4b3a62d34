package room

import (
	"liveroom/pkg/interfaces"
	"liveroom/pkg/protocol"
)

// Control plane: mute, camera, spotlight. All three are teacher-only and
// pass through authorizeControl exactly once. A target that already departed
// is a stale race, not an error: the caller drops it silently.

// SetMute updates a participant's muted flag, pushes the forced track
// disable to the target, and broadcasts the change to the room. Enforcement
// does not depend on the target's own UI state.
func (s *Store) SetMute(conn interfaces.Connection, req *protocol.MuteRequest) error {
	room, err := s.authorizeControl(conn)
	if err != nil {
		return err
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.ended {
		return interfaces.ErrRoomNotFound
	}
	target, ok := room.participants[req.TargetConnectionID]
	if !ok {
		return interfaces.ErrStaleTarget
	}
	target.muted = req.Muted
	_ = target.conn.Send(protocol.EventForceMute, protocol.ForceMute{Muted: req.Muted})
	room.broadcastLocked(protocol.EventParticipantMuteChanged, protocol.MuteChanged{
		ConnectionID: req.TargetConnectionID,
		Muted:        req.Muted,
	})
	return nil
}

// SetCamera mirrors SetMute for camera enablement.
func (s *Store) SetCamera(conn interfaces.Connection, req *protocol.CamRequest) error {
	room, err := s.authorizeControl(conn)
	if err != nil {
		return err
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.ended {
		return interfaces.ErrRoomNotFound
	}
	target, ok := room.participants[req.TargetConnectionID]
	if !ok {
		return interfaces.ErrStaleTarget
	}
	target.camOn = req.CamOn
	_ = target.conn.Send(protocol.EventForceCam, protocol.ForceCam{CamOn: req.CamOn})
	room.broadcastLocked(protocol.EventParticipantCamChanged, protocol.CamChanged{
		ConnectionID: req.TargetConnectionID,
		CamOn:        req.CamOn,
	})
	return nil
}

// SetSpotlight selects the participant shown full-size to the whole room.
// The broadcast reaches every participant, target included; recognizing
// oneself is a client display concern.
func (s *Store) SetSpotlight(conn interfaces.Connection, req *protocol.SpotlightRequest) error {
	room, err := s.authorizeControl(conn)
	if err != nil {
		return err
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.ended {
		return interfaces.ErrRoomNotFound
	}
	if _, ok := room.participants[req.TargetConnectionID]; !ok {
		return interfaces.ErrStaleTarget
	}
	room.spotlight = req.TargetConnectionID
	room.broadcastLocked(protocol.EventSpotlightChanged, protocol.SpotlightChanged{
		ConnectionID: req.TargetConnectionID,
	})
	return nil
}
