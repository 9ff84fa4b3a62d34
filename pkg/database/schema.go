package database

import (
	"database/sql"
	"fmt"
)

// SchemaValidator verifies the migrated schema matches what the store
// expects, separately from the migration runner so deployments can probe an
// existing database.
type SchemaValidator struct {
	db *sql.DB
}

// NewSchemaValidator creates a schema validator.
func NewSchemaValidator(db *sql.DB) *SchemaValidator {
	return &SchemaValidator{db: db}
}

// ValidateTablesExist verifies that all required tables exist.
func (v *SchemaValidator) ValidateTablesExist() error {
	requiredTables := map[string]string{
		"rooms":             "Provisioned room records",
		"room_messages":     "Chat transcript",
		"schema_migrations": "Migration tracking",
	}

	for table, description := range requiredTables {
		exists, err := v.tableExists(table)
		if err != nil {
			return fmt.Errorf("error checking table %s (%s): %w", table, description, err)
		}
		if !exists {
			return fmt.Errorf("required table %s (%s) does not exist", table, description)
		}
	}
	return nil
}

// ValidateTableStructure verifies column names and types.
func (v *SchemaValidator) ValidateTableStructure() error {
	roomColumns := map[string]string{
		"room_id":    "TEXT",
		"room_code":  "TEXT",
		"room_name":  "TEXT",
		"created_at": "DATETIME",
	}
	if err := v.validateColumns("rooms", roomColumns); err != nil {
		return fmt.Errorf("rooms table structure invalid: %w", err)
	}

	messageColumns := map[string]string{
		"id":            "TEXT",
		"room_id":       "TEXT",
		"room_code":     "TEXT",
		"connection_id": "TEXT",
		"sender_name":   "TEXT",
		"sender_role":   "TEXT",
		"body":          "TEXT",
		"sent_at":       "DATETIME",
	}
	if err := v.validateColumns("room_messages", messageColumns); err != nil {
		return fmt.Errorf("room_messages table structure invalid: %w", err)
	}
	return nil
}

// ValidateIndexes verifies that the lookup indexes exist.
func (v *SchemaValidator) ValidateIndexes() error {
	requiredIndexes := map[string]string{
		"idx_rooms_code":         "Code to record resolution",
		"idx_messages_room_time": "Transcript replay",
	}

	for index, purpose := range requiredIndexes {
		exists, err := v.indexExists(index)
		if err != nil {
			return fmt.Errorf("error checking index %s (%s): %w", index, purpose, err)
		}
		if !exists {
			return fmt.Errorf("required index %s (%s) does not exist", index, purpose)
		}
	}
	return nil
}

// ValidateConstraints probes that integrity rules are enforced by the
// database itself, not just by application code.
func (v *SchemaValidator) ValidateConstraints() error {
	// Transcript rows must reference an existing room.
	_, err := v.db.Exec(`
		INSERT INTO room_messages (id, room_id, room_code, connection_id, sender_name, sender_role, body)
		VALUES ('probe', 'nonexistent', 'NOPE', 'c1', 'probe', 'student', 'x')
	`)
	if err == nil {
		_, _ = v.db.Exec("DELETE FROM room_messages WHERE id = 'probe'")
		return fmt.Errorf("foreign key constraint not enforced: room_messages.room_id")
	}

	_, err = v.db.Exec(`
		INSERT INTO rooms (room_id, room_code, room_name)
		VALUES ('probe-room', 'PROBE1', 'Probe')
	`)
	if err != nil {
		return fmt.Errorf("failed to create probe room: %w", err)
	}
	defer func() {
		_, _ = v.db.Exec("DELETE FROM rooms WHERE room_id = 'probe-room'")
	}()

	// Sender role is restricted to the three known roles.
	_, err = v.db.Exec(`
		INSERT INTO room_messages (id, room_id, room_code, connection_id, sender_name, sender_role, body)
		VALUES ('probe', 'probe-room', 'PROBE1', 'c1', 'probe', 'admin', 'x')
	`)
	if err == nil {
		_, _ = v.db.Exec("DELETE FROM room_messages WHERE id = 'probe'")
		return fmt.Errorf("check constraint not enforced: room_messages.sender_role")
	}

	// Shareable codes are unique across records.
	_, err = v.db.Exec(`
		INSERT INTO rooms (room_id, room_code, room_name)
		VALUES ('probe-room-2', 'PROBE1', 'Probe Duplicate')
	`)
	if err == nil {
		_, _ = v.db.Exec("DELETE FROM rooms WHERE room_id = 'probe-room-2'")
		return fmt.Errorf("unique constraint not enforced: rooms.room_code")
	}

	return nil
}

func (v *SchemaValidator) tableExists(tableName string) (bool, error) {
	var count int
	err := v.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?",
		tableName,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (v *SchemaValidator) indexExists(indexName string) (bool, error) {
	var count int
	err := v.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?",
		indexName,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (v *SchemaValidator) validateColumns(tableName string, expectedColumns map[string]string) error {
	rows, err := v.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	foundColumns := make(map[string]string)
	for rows.Next() {
		var cid int
		var name, dataType string
		var notNull int
		var defaultValue interface{}
		var pk int
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &pk); err != nil {
			return err
		}
		foundColumns[name] = dataType
	}

	for expectedCol, expectedType := range expectedColumns {
		foundType, exists := foundColumns[expectedCol]
		if !exists {
			return fmt.Errorf("column %s not found", expectedCol)
		}
		if foundType != expectedType {
			return fmt.Errorf("column %s has type %s, expected %s", expectedCol, foundType, expectedType)
		}
	}
	return rows.Err()
}
