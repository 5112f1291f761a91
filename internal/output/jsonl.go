package output

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"harvester/pkg/types"
)

// JSONLSink appends records to a file as line-delimited JSON: one
// object per line, UTF-8, newline-terminated, no enclosing array.
// This is the persisted output contract. Appends are serialized with
// a mutex so concurrent workers never interleave partial lines.
type JSONLSink struct {
	file *os.File
	mu   sync.Mutex
}

// NewJSONLSink opens path for appending, creating it if needed.
func NewJSONLSink(path string) (*JSONLSink, error) {
	if path == "" {
		return nil, fmt.Errorf("output file path cannot be empty")
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}
	return &JSONLSink{file: file}, nil
}

// Write appends one record as a single JSON line. The line is fully
// marshaled before the lock is taken so a marshal failure never leaves
// a partial line behind.
func (s *JSONLSink) Write(rec types.Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.file.Write(line); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
