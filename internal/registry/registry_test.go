package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liveroom/pkg/protocol"
)

// stubConn is the minimal Connection for registry bookkeeping tests.
type stubConn struct {
	id string
}

func (s *stubConn) ID() string                               { return s.id }
func (s *stubConn) SetID(id string)                          { s.id = id }
func (s *stubConn) DisplayName() string                      { return "" }
func (s *stubConn) Role() protocol.Role                      { return protocol.RoleStudent }
func (s *stubConn) RoomCode() string                         { return "" }
func (s *stubConn) Joined() bool                             { return false }
func (s *stubConn) Bind(string, protocol.Role, string) error { return nil }
func (s *stubConn) Send(string, any) error                   { return nil }
func (s *stubConn) Close() error                             { return nil }

func TestRegisterAssignsUniqueIDs(t *testing.T) {
	reg := New(testLogger())

	c1, c2 := &stubConn{}, &stubConn{}
	id1 := reg.Register(c1)
	id2 := reg.Register(c2)

	assert.NotEmpty(t, id1)
	assert.NotEqual(t, id1, id2)
	assert.Equal(t, id1, c1.ID())
	assert.Equal(t, 2, reg.Count())

	got, ok := reg.Lookup(id1)
	require.True(t, ok)
	assert.Same(t, c1, got.(*stubConn))
}

func TestUnregisterFiresDepartureOnce(t *testing.T) {
	reg := New(testLogger())

	var mu sync.Mutex
	var departed []string
	reg.OnDeparture(func(id string) {
		mu.Lock()
		departed = append(departed, id)
		mu.Unlock()
	})

	id := reg.Register(&stubConn{})
	reg.Unregister(id)
	// Explicit leave and disconnect race; the second call is a no-op.
	reg.Unregister(id)
	reg.Unregister("never-registered")

	assert.Equal(t, []string{id}, departed)
	assert.Equal(t, 0, reg.Count())

	_, ok := reg.Lookup(id)
	assert.False(t, ok)
}

func TestConcurrentRegisterUnregister(t *testing.T) {
	reg := New(testLogger())
	reg.OnDeparture(func(string) {})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := reg.Register(&stubConn{})
			_, ok := reg.Lookup(id)
			assert.True(t, ok)
			reg.Unregister(id)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, reg.Count())
}
