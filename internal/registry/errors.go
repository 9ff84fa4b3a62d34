package registry

import "errors"

var (
	ErrConnectionClosed = errors.New("connection is closed")
	ErrSendBufferFull   = errors.New("outbound queue is full")
	ErrAlreadyBound     = errors.New("connection already bound to a room")
)
