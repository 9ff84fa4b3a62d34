package room

import "errors"

var (
	// ErrInvalidRevealMode rejects reveal requests with an unknown mode.
	ErrInvalidRevealMode = errors.New("invalid reveal mode")

	// ErrCodeInUse means a live room already holds the requested code.
	ErrCodeInUse = errors.New("room code held by another live room")
)
