// Package output provides append-only sinks for extracted records.
package output

import (
	"fmt"

	"harvester/pkg/types"
)

// Format selects the sink implementation.
type Format string

const (
	FormatJSONL    Format = "jsonl"
	FormatSQLite   Format = "sqlite"
	FormatPostgres Format = "postgres"
)

// ValidFormats returns all supported sink formats.
func ValidFormats() []Format {
	return []Format{FormatJSONL, FormatSQLite, FormatPostgres}
}

// IsValid checks whether the format is supported.
func (f Format) IsValid() bool {
	for _, valid := range ValidFormats() {
		if f == valid {
			return true
		}
	}
	return false
}

// Config defines sink configuration.
type Config struct {
	Format Format `yaml:"format" json:"format"`
	// File is the output path for jsonl, or the database path for sqlite.
	File string `yaml:"file,omitempty" json:"file,omitempty"`
	// DSN is the connection string for postgres.
	DSN string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
	// Table is the target table for database sinks.
	Table string `yaml:"table,omitempty" json:"table,omitempty"`
}

// Sink receives extracted records. Write must be safe for concurrent
// use: the orchestrator's workers complete in arbitrary order and the
// sink serializes their appends.
type Sink interface {
	Write(rec types.Record) error
	Close() error
}

// NewSink opens the sink described by cfg. An unopenable sink is a
// fatal setup error; the crawl must not start.
func NewSink(cfg Config) (Sink, error) {
	switch cfg.Format {
	case FormatJSONL, "":
		return NewJSONLSink(cfg.File)
	case FormatSQLite:
		return NewSQLiteSink(cfg.File, cfg.Table)
	case FormatPostgres:
		return NewPostgresSink(cfg.DSN, cfg.Table)
	default:
		return nil, fmt.Errorf("unsupported output format: %s", cfg.Format)
	}
}
