// Package fixtures provides the integration harness: a fully wired
// coordinator over a temporary database, served from an httptest listener,
// plus a websocket test client with typed expectations.
package fixtures

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"liveroom/internal/api"
	"liveroom/internal/database"
	"liveroom/internal/gradebook"
	"liveroom/internal/registry"
	"liveroom/internal/relay"
	"liveroom/internal/room"
	"liveroom/internal/socket"
	dbpkg "liveroom/pkg/database"
)

// Harness is one running coordinator instance.
type Harness struct {
	Server   *httptest.Server
	Store    *room.Store
	Registry *registry.Registry
	Data     *database.Manager
}

// Option adjusts harness wiring before startup.
type Option func(*options)

type options struct {
	capacity     int
	grace        time.Duration
	historyLimit int
	authKey      string
	gradebookURL string
}

// WithCapacity sets the per-room participant cap.
func WithCapacity(n int) Option { return func(o *options) { o.capacity = n } }

// WithGrace sets the teacher-absence grace window.
func WithGrace(d time.Duration) Option { return func(o *options) { o.grace = d } }

// WithAuthKey enables the bearer guard on /api.
func WithAuthKey(key string) Option { return func(o *options) { o.authKey = key } }

// WithGradebook points quiz result reporting at a test server.
func WithGradebook(url string) Option { return func(o *options) { o.gradebookURL = url } }

// NewHarness wires database, registry, room store, relay and transport the
// same way the application does, and serves them from a test listener.
func NewHarness(t *testing.T, opts ...Option) *Harness {
	t.Helper()

	o := &options{
		capacity:     5,
		grace:        60 * time.Second,
		historyLimit: 50,
	}
	for _, opt := range opts {
		opt(o)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	dbCfg := dbpkg.DefaultConfig()
	dbCfg.DatabasePath = filepath.Join(t.TempDir(), "harness.db")
	dbManager, err := database.NewManager(dbCfg, logger)
	require.NoError(t, err)
	require.NoError(t, dbManager.Migrate())

	grades := gradebook.New(gradebook.Config{BaseURL: o.gradebookURL}, logger)

	reg := registry.New(logger)
	store := room.NewStore(room.Config{
		Capacity:     o.capacity,
		Grace:        o.grace,
		HistoryLimit: o.historyLimit,
	}, reg, dbManager, grades, logger)
	reg.OnDeparture(store.HandleDeparture)

	rly := relay.New(reg, logger)
	wsCfg := socket.DefaultConfig()
	wsCfg.JoinTimeout = 5 * time.Second
	wsHandler := socket.NewHandler(wsCfg, reg, store, rly, socket.NewRateLimiter(0, 0), logger)

	apiServer := api.NewServer(store, dbManager, reg, o.authKey, "crud-backend", "*", logger)

	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer)
	mux.Handle("/health", apiServer)
	mux.Handle("/metrics", apiServer)
	mux.HandleFunc("/ws", wsHandler.HandleWebSocket)

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		store.Shutdown()
		_ = dbManager.Close()
	})

	return &Harness{Server: server, Store: store, Registry: reg, Data: dbManager}
}
