package interfaces

// ConnectionRegistry tracks every live connection by its server-assigned id.
type ConnectionRegistry interface {
	// Register assigns the connection its id and starts tracking it.
	Register(conn Connection) string

	// Lookup resolves a connection id; ok is false once it has departed.
	Lookup(connectionID string) (Connection, bool)

	// Unregister stops tracking the id and emits the departure notification.
	// Unknown ids are a no-op; teardown paths race and both may call it.
	Unregister(connectionID string)

	// Count returns the number of live connections.
	Count() int
}
