package output

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver

	"harvester/pkg/types"
)

// PostgresSink appends records to a PostgreSQL table with the same
// row shape as the SQLite sink. database/sql's pool serializes the
// concurrent appends from the worker pool.
type PostgresSink struct {
	db     *sql.DB
	insert *sql.Stmt
}

// NewPostgresSink connects with the given DSN and ensures the table exists.
func NewPostgresSink(dsn, table string) (*PostgresSink, error) {
	if dsn == "" {
		return nil, fmt.Errorf("PostgreSQL connection string is required")
	}
	if table == "" {
		table = defaultTable
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open PostgreSQL connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping PostgreSQL database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
		url TEXT NOT NULL,
		sections JSONB NOT NULL,
		fields JSONB NOT NULL,
		written_at TIMESTAMPTZ DEFAULT now()
	)`, table)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table %s: %w", table, err)
	}

	insert, err := db.Prepare(fmt.Sprintf(`INSERT INTO %q (url, sections, fields) VALUES ($1, $2, $3)`, table))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare insert: %w", err)
	}

	return &PostgresSink{db: db, insert: insert}, nil
}

// Write appends one record as one row.
func (s *PostgresSink) Write(rec types.Record) error {
	sections, fields, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	if _, err := s.insert.Exec(rec.URL, sections, fields); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Close releases the prepared statement and the connection pool.
func (s *PostgresSink) Close() error {
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
