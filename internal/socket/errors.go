package socket

import "errors"

var (
	// ErrBadPayload means a known event carried a payload that does not
	// decode or validate.
	ErrBadPayload = errors.New("malformed event payload")

	// ErrUnknownEvent means the event name is not in the dispatch table.
	ErrUnknownEvent = errors.New("unknown event")
)
