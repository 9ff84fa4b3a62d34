package registry

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"liveroom/pkg/interfaces"
)

// Registry tracks every live connection by its server-assigned id. Lookup is
// the hot path (every relay and control action resolves a target), so the
// map sits behind an RWMutex.
//
// The registry knows nothing about rooms. Departure interest is expressed as
// a handler installed at wiring time, which keeps the dependency arrow
// pointing from the room store to the registry and not back.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]interfaces.Connection
	onDeparture func(connectionID string)
	logger      *slog.Logger
}

// New creates an empty registry.
func New(logger *slog.Logger) *Registry {
	return &Registry{
		connections: make(map[string]interfaces.Connection),
		logger:      logger,
	}
}

// OnDeparture installs the departure handler. Must be called before any
// connection registers; wiring happens single-threaded at startup.
func (r *Registry) OnDeparture(fn func(connectionID string)) {
	r.onDeparture = fn
}

// Register assigns the connection its id and starts tracking it.
func (r *Registry) Register(conn interfaces.Connection) string {
	id := uuid.New().String()
	conn.SetID(id)

	r.mu.Lock()
	r.connections[id] = conn
	r.mu.Unlock()

	r.logger.Debug("connection registered", "connection_id", id)
	return id
}

// Lookup resolves a connection id; ok is false once it has departed.
func (r *Registry) Lookup(connectionID string) (interfaces.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.connections[connectionID]
	return conn, ok
}

// Unregister stops tracking the id and fires the departure handler. Unknown
// ids are a no-op: disconnect and explicit leave race, and both call here.
// The handler runs outside the registry lock because it takes room locks.
func (r *Registry) Unregister(connectionID string) {
	r.mu.Lock()
	_, existed := r.connections[connectionID]
	if existed {
		delete(r.connections, connectionID)
	}
	r.mu.Unlock()

	if !existed {
		return
	}
	r.logger.Debug("connection unregistered", "connection_id", connectionID)
	if r.onDeparture != nil {
		r.onDeparture(connectionID)
	}
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}
