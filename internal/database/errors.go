package database

import "errors"

var (
	// ErrClosed is returned once Close has been called.
	ErrClosed = errors.New("database manager is closed")

	// ErrRoomExists means the room id is already provisioned.
	ErrRoomExists = errors.New("room id already exists")

	// ErrRoomCodeTaken means the shareable code belongs to another record.
	ErrRoomCodeTaken = errors.New("room code already in use")
)
