package protocol

import (
	"regexp"
	"strings"
)

const (
	maxRoomCodeLen    = 32
	maxRoomIDLen      = 64
	maxRoomNameLen    = 200
	maxDisplayNameLen = 64
	maxChatMessageLen = 2000
)

var roomCodeRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// IsValidRoomCode checks the shareable code format. Codes are minted by the
// scheduling backend, so the format stays permissive: short and URL-safe.
func IsValidRoomCode(code string) bool {
	if len(code) < 1 || len(code) > maxRoomCodeLen {
		return false
	}
	return roomCodeRegex.MatchString(code)
}

// IsValidDisplayName accepts any non-blank name up to the length cap.
// Display names are shown verbatim, never used as identifiers.
func IsValidDisplayName(name string) bool {
	if len(name) < 1 || len(name) > maxDisplayNameLen {
		return false
	}
	return strings.TrimSpace(name) != ""
}

// Validate checks a join request before it reaches the room store.
func (r *JoinRoomRequest) Validate() error {
	if !IsValidRoomCode(r.RoomCode) {
		return ErrInvalidRoomCode
	}
	if len(r.RoomID) > maxRoomIDLen {
		return ErrInvalidRoomID
	}
	if len(r.RoomName) > maxRoomNameLen {
		return ErrInvalidRoomName
	}
	if !IsValidDisplayName(r.Name) {
		return ErrInvalidDisplayName
	}
	if !r.Role.Valid() {
		return ErrInvalidRole
	}
	return nil
}

// Validate checks a chat message body.
func (r *ChatRequest) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return ErrEmptyMessage
	}
	if len(r.Message) > maxChatMessageLen {
		return ErrMessageTooLong
	}
	return nil
}
