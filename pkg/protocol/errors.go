package protocol

import "errors"

var (
	ErrInvalidRoomCode    = errors.New("room code must be 1-32 characters, alphanumeric + underscore/hyphen")
	ErrInvalidRoomID      = errors.New("room id must be at most 64 characters")
	ErrInvalidRoomName    = errors.New("room name must be at most 200 characters")
	ErrInvalidDisplayName = errors.New("display name must be 1-64 non-blank characters")
	ErrInvalidRole        = errors.New("role must be teacher, student or guest")
	ErrEmptyMessage       = errors.New("chat message cannot be empty")
	ErrMessageTooLong     = errors.New("chat message exceeds 2000 characters")
)
