package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"liveroom/internal/api"
	"liveroom/internal/config"
	"liveroom/internal/database"
	"liveroom/internal/gradebook"
	"liveroom/internal/registry"
	"liveroom/internal/relay"
	"liveroom/internal/room"
	"liveroom/internal/socket"
	dbpkg "liveroom/pkg/database"
)

// Application owns every component, wired in dependency order:
// Database → Gradebook → Registry → Room Store → Relay → Socket → API → HTTP.
type Application struct {
	config     *config.Config
	logger     *slog.Logger
	dbManager  *database.Manager
	registry   *registry.Registry
	store      *room.Store
	httpServer *http.Server
}

// New builds the application. The configuration must already be validated.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	dbManager, err := database.NewManager(&dbpkg.Config{
		DatabasePath:    cfg.Database.Path,
		MaxConnections:  10,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := dbManager.Migrate(); err != nil {
		_ = dbManager.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	grades := gradebook.New(gradebook.Config{
		BaseURL: cfg.Gradebook.BaseURL,
		Timeout: cfg.Gradebook.Timeout,
	}, logger)

	reg := registry.New(logger)

	store := room.NewStore(room.Config{
		Capacity:     cfg.Room.Capacity,
		Grace:        time.Duration(cfg.Room.GraceSeconds) * time.Second,
		HistoryLimit: cfg.Room.HistoryLimit,
	}, reg, dbManager, grades, logger)
	reg.OnDeparture(store.HandleDeparture)

	rly := relay.New(reg, logger)
	limiter := socket.NewRateLimiter(cfg.RateLimit.EventsPerSecond, cfg.RateLimit.Burst)
	wsHandler := socket.NewHandler(socket.Config{
		PingInterval: cfg.WebSocket.PingInterval,
		PongTimeout:  cfg.WebSocket.PongTimeout,
		WriteTimeout: cfg.WebSocket.WriteTimeout,
		JoinTimeout:  cfg.WebSocket.JoinTimeout,
		ReadLimit:    cfg.WebSocket.ReadLimit,
		SendBuffer:   cfg.WebSocket.SendBuffer,
	}, reg, store, rly, limiter, logger)

	apiServer := api.NewServer(store, dbManager, reg,
		cfg.API.AuthKey, cfg.API.Issuer, cfg.HTTP.CORSOrigin, logger)

	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer)
	mux.Handle("/health", apiServer)
	mux.Handle("/metrics", apiServer)
	mux.HandleFunc("/ws", wsHandler.HandleWebSocket)

	httpServer := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:     mux,
		ReadTimeout: cfg.HTTP.ReadTimeout,
		// Write timeout must not apply to websockets; it would sever every
		// session that outlives it. The socket layer enforces its own
		// per-frame deadlines.
		WriteTimeout: 0,
	}

	return &Application{
		config:     cfg,
		logger:     logger,
		dbManager:  dbManager,
		registry:   reg,
		store:      store,
		httpServer: httpServer,
	}, nil
}

// Start brings the HTTP listener up and verifies it survives startup.
func (app *Application) Start(ctx context.Context) error {
	app.logger.Info("starting liveroom", "addr", app.httpServer.Addr)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		return err
	case <-time.After(100 * time.Millisecond):
		app.logger.Info("liveroom started")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop shuts down in reverse dependency order: stop accepting connections,
// end every live room with a room-ended broadcast, then close the database.
func (app *Application) Stop(ctx context.Context) error {
	app.logger.Info("shutting down liveroom")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		app.logger.Warn("http shutdown error", "error", err)
	}
	app.store.Shutdown()
	if err := app.dbManager.Close(); err != nil {
		app.logger.Warn("database shutdown error", "error", err)
	}

	app.logger.Info("liveroom shutdown complete")
	return nil
}

// Addr returns the listener address.
func (app *Application) Addr() string {
	return app.httpServer.Addr
}
