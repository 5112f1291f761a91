package output

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"harvester/pkg/types"
)

const defaultTable = "records"

// SQLiteSink appends records to a SQLite database. Rows carry the
// page URL, the sections as a JSON array, and the extracted fields as
// a JSON object, so the schema is independent of the extraction spec.
type SQLiteSink struct {
	db     *sql.DB
	insert *sql.Stmt
}

// NewSQLiteSink opens (and creates if needed) the database at path.
func NewSQLiteSink(path, table string) (*SQLiteSink, error) {
	if path == "" {
		return nil, fmt.Errorf("SQLite database path is required")
	}
	if table == "" {
		table = defaultTable
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open SQLite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping SQLite database: %w", err)
	}

	// SQLite works best with a single writer; this also serializes the
	// concurrent appends coming from the worker pool.
	db.SetMaxOpenConns(1)

	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
		url TEXT NOT NULL,
		sections TEXT NOT NULL,
		fields TEXT NOT NULL,
		written_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`, table)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table %s: %w", table, err)
	}

	insert, err := db.Prepare(fmt.Sprintf(`INSERT INTO %q (url, sections, fields) VALUES (?, ?, ?)`, table))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare insert: %w", err)
	}

	return &SQLiteSink{db: db, insert: insert}, nil
}

// Write appends one record as one row.
func (s *SQLiteSink) Write(rec types.Record) error {
	sections, fields, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	if _, err := s.insert.Exec(rec.URL, sections, fields); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Close releases the prepared statement and the database handle.
func (s *SQLiteSink) Close() error {
	if s.insert != nil {
		s.insert.Close()
	}
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// encodeRecord serializes the variable parts of a record for database
// sinks: sections as a JSON array, fields as a JSON object.
func encodeRecord(rec types.Record) (sections string, fields string, err error) {
	secs := rec.Sections
	if secs == nil {
		secs = []string{}
	}
	sectionsJSON, err := json.Marshal(secs)
	if err != nil {
		return "", "", fmt.Errorf("marshal sections: %w", err)
	}
	fieldsJSON, err := json.Marshal(rec.Fields)
	if err != nil {
		return "", "", fmt.Errorf("marshal fields: %w", err)
	}
	return string(sectionsJSON), string(fieldsJSON), nil
}
