package slot

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteSlot stores slot contents in a SQLite database, one row per
// slot name.
type SQLiteSlot struct {
	name string
	db   *sql.DB
}

// NewSQLiteSlot opens (or creates) the database at dbPath and runs the
// schema migration.
func NewSQLiteSlot(dbPath, name string) (*SQLiteSlot, error) {
	if name == "" {
		name = DefaultName
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open slot db: %w", err)
	}
	// WAL mode for better concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate slot db: %w", err)
	}
	return &SQLiteSlot{name: name, db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS slots (
			name       TEXT PRIMARY KEY,
			data       BLOB NOT NULL,
			updated_at TEXT NOT NULL
		)
	`)
	return err
}

func (s *SQLiteSlot) Name() string { return s.name }

func (s *SQLiteSlot) ReadAll() ([]byte, bool, error) {
	var data []byte
	err := s.db.QueryRow("SELECT data FROM slots WHERE name = ?", s.name).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read slot %q: %w", s.name, err)
	}
	return data, true, nil
}

func (s *SQLiteSlot) WriteAll(data []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO slots (name, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		s.name, data, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write slot %q: %w", s.name, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteSlot) Close() error {
	return s.db.Close()
}
