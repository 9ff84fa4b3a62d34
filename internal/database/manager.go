package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	dbpkg "liveroom/pkg/database"
	"liveroom/pkg/interfaces"
	"liveroom/pkg/protocol"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrationFS returns the embedded migration files.
func MigrationFS() fs.FS {
	sub, _ := fs.Sub(migrationFiles, "migrations")
	return sub
}

// Manager implements interfaces.DataStore over SQLite. Reads run on the
// connection pool; every write is serialized through a single goroutine.
type Manager struct {
	db           *sql.DB
	config       *dbpkg.Config
	logger       *slog.Logger
	writeChannel chan writeOperation
	shutdown     chan struct{}
	wg           sync.WaitGroup
	closed       bool
	mu           sync.RWMutex
}

type writeOperation struct {
	operation func(*sql.DB) error
	result    chan error
}

// NewManager opens the database and starts the writer goroutine.
func NewManager(config *dbpkg.Config, logger *slog.Logger) (*Manager, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}

	db, err := dbpkg.Open(config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:           db,
		config:       config,
		logger:       logger,
		writeChannel: make(chan writeOperation, 100),
		shutdown:     make(chan struct{}),
	}

	manager.wg.Add(1)
	go manager.writeLoop()

	return manager, nil
}

// Migrate applies the embedded migrations and validates the schema.
func (m *Manager) Migrate() error {
	mm := dbpkg.NewMigrationManager(m.db, MigrationFS())
	if err := mm.ApplyMigrations(); err != nil {
		return err
	}
	return mm.ValidateSchema()
}

// DB exposes the underlying handle for schema validation and tests.
func (m *Manager) DB() *sql.DB {
	return m.db
}

func (m *Manager) writeLoop() {
	defer m.wg.Done()

	for {
		select {
		case op := <-m.writeChannel:
			err := op.operation(m.db)
			if err != nil {
				m.logger.Warn("database write failed, retrying", "error", err)
				time.Sleep(writeRetryDelay)
				err = op.operation(m.db)
				if err != nil {
					m.logger.Error("database write failed after retry", "error", err)
				}
			}
			op.result <- err

		case <-m.shutdown:
			return
		}
	}
}

// writeRetryDelay is how long the writer waits before its single retry.
var writeRetryDelay = 5 * time.Second

func (m *Manager) executeWrite(operation func(*sql.DB) error) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrClosed
	}
	m.mu.RUnlock()

	result := make(chan error, 1)

	select {
	case m.writeChannel <- writeOperation{operation: operation, result: result}:
		return <-result
	case <-time.After(30 * time.Second):
		return fmt.Errorf("write operation timeout")
	case <-m.shutdown:
		return ErrClosed
	}
}

// CreateRoom writes a provisioned room record.
func (m *Manager) CreateRoom(ctx context.Context, rec *protocol.RoomRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return m.executeWrite(func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		var existing string
		err = tx.QueryRowContext(ctx, "SELECT room_id FROM rooms WHERE room_id = ?", rec.RoomID).Scan(&existing)
		if err == nil {
			return ErrRoomExists
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("failed to check room id: %w", err)
		}

		err = tx.QueryRowContext(ctx, "SELECT room_id FROM rooms WHERE room_code = ?", rec.RoomCode).Scan(&existing)
		if err == nil {
			return ErrRoomCodeTaken
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("failed to check room code: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO rooms (room_id, room_code, room_name, created_at) VALUES (?, ?, ?, ?)",
			rec.RoomID, rec.RoomCode, rec.RoomName, createdAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert room: %w", err)
		}
		return tx.Commit()
	})
}

// GetRoomByCode resolves the current shareable code to a record.
func (m *Manager) GetRoomByCode(ctx context.Context, code string) (*protocol.RoomRecord, error) {
	return m.getRoom(ctx, "SELECT room_id, room_code, room_name, created_at FROM rooms WHERE room_code = ?", code)
}

// GetRoomByID resolves the stable internal id to a record.
func (m *Manager) GetRoomByID(ctx context.Context, roomID string) (*protocol.RoomRecord, error) {
	return m.getRoom(ctx, "SELECT room_id, room_code, room_name, created_at FROM rooms WHERE room_id = ?", roomID)
}

func (m *Manager) getRoom(ctx context.Context, query, key string) (*protocol.RoomRecord, error) {
	var rec protocol.RoomRecord
	err := m.db.QueryRowContext(ctx, query, key).Scan(&rec.RoomID, &rec.RoomCode, &rec.RoomName, &rec.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, interfaces.ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to query room: %w", err)
	}
	return &rec, nil
}

// ListRooms returns every record, newest first.
func (m *Manager) ListRooms(ctx context.Context) ([]*protocol.RoomRecord, error) {
	rows, err := m.db.QueryContext(ctx,
		"SELECT room_id, room_code, room_name, created_at FROM rooms ORDER BY created_at DESC, room_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*protocol.RoomRecord
	for rows.Next() {
		var rec protocol.RoomRecord
		if err := rows.Scan(&rec.RoomID, &rec.RoomCode, &rec.RoomName, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan room row: %w", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating room rows: %w", err)
	}
	return records, nil
}

// UpdateRoomCode re-keys a record under a regenerated shareable code.
func (m *Manager) UpdateRoomCode(ctx context.Context, roomID, newCode string) error {
	if !protocol.IsValidRoomCode(newCode) {
		return protocol.ErrInvalidRoomCode
	}

	return m.executeWrite(func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		var holder string
		err = tx.QueryRowContext(ctx, "SELECT room_id FROM rooms WHERE room_code = ?", newCode).Scan(&holder)
		if err == nil && holder != roomID {
			return ErrRoomCodeTaken
		}
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("failed to check room code: %w", err)
		}

		res, err := tx.ExecContext(ctx, "UPDATE rooms SET room_code = ? WHERE room_id = ?", newCode, roomID)
		if err != nil {
			return fmt.Errorf("failed to update room code: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read update result: %w", err)
		}
		if affected == 0 {
			return interfaces.ErrRoomNotFound
		}
		return tx.Commit()
	})
}

// DeleteRoom removes a record; the transcript cascades with it.
func (m *Manager) DeleteRoom(ctx context.Context, roomID string) error {
	return m.executeWrite(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, "DELETE FROM rooms WHERE room_id = ?", roomID)
		if err != nil {
			return fmt.Errorf("failed to delete room: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read delete result: %w", err)
		}
		if affected == 0 {
			return interfaces.ErrRoomNotFound
		}
		return nil
	})
}

// AppendMessage adds one chat message to the room transcript.
func (m *Manager) AppendMessage(ctx context.Context, msg *protocol.ChatEvent) error {
	sentAt := msg.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now().UTC()
	}
	id := uuid.New().String()

	return m.executeWrite(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO room_messages (id, room_id, room_code, connection_id, sender_name, sender_role, body, sent_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, msg.RoomID, msg.RoomCode, msg.ConnectionID, msg.Name, string(msg.Role), msg.Message, sentAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
		return nil
	})
}

// RecentMessages returns up to limit transcript entries, oldest first.
func (m *Manager) RecentMessages(ctx context.Context, roomID string, limit int) ([]protocol.ChatEvent, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT room_id, room_code, connection_id, sender_name, sender_role, body, sent_at
		 FROM room_messages
		 WHERE room_id = ?
		 ORDER BY sent_at DESC, rowid DESC
		 LIMIT ?`,
		roomID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcript: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var messages []protocol.ChatEvent
	for rows.Next() {
		var msg protocol.ChatEvent
		var role string
		if err := rows.Scan(&msg.RoomID, &msg.RoomCode, &msg.ConnectionID, &msg.Name, &role, &msg.Message, &msg.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		msg.Role = protocol.Role(role)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}

	// Query returns newest first; replay wants oldest first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// HealthCheck validates connectivity and a basic read. The row is scanned so
// the pool connection is back in the pool before the probe returns.
func (m *Manager) HealthCheck(ctx context.Context) error {
	if err := m.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	var count int
	if err := m.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rooms").Scan(&count); err != nil {
		return fmt.Errorf("database read test failed: %w", err)
	}
	return nil
}

// Close drains the writer and closes the database.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.shutdown)
	m.wg.Wait()

	if err := m.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
