package output

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"harvester/pkg/types"
)

func testRecord(url string) types.Record {
	return types.Record{
		Fields:     map[string]string{"title": "Soap", "subtitle": "Aloe"},
		FieldOrder: []string{"title", "subtitle"},
		URL:        url,
		Sections:   []string{"product"},
	}
}

func TestJSONLSinkWritesLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	sink, err := NewJSONLSink(path)
	if err != nil {
		t.Fatalf("failed to open sink: %v", err)
	}

	if err := sink.Write(testRecord("https://x/product/a")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := sink.Write(testRecord("https://x/product/b")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to reopen output: %v", err)
	}
	defer file.Close()

	var lines int
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines++
		var rec types.Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", lines, err)
		}
		if rec.URL == "" || rec.Fields["title"] != "Soap" {
			t.Fatalf("line %d lost data: %+v", lines, rec)
		}
	}
	if lines != 2 {
		t.Fatalf("expected 2 lines, got %d", lines)
	}
}

func TestJSONLSinkAppendsAcrossRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")

	for run := 0; run < 2; run++ {
		sink, err := NewJSONLSink(path)
		if err != nil {
			t.Fatalf("run %d: failed to open sink: %v", run, err)
		}
		if err := sink.Write(testRecord("https://x/product/a")); err != nil {
			t.Fatalf("run %d: write failed: %v", run, err)
		}
		if err := sink.Close(); err != nil {
			t.Fatalf("run %d: close failed: %v", run, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	file, _ := os.Open(path)
	defer file.Close()
	scanner := bufio.NewScanner(file)
	var lines int
	for scanner.Scan() {
		lines++
		var rec types.Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("re-run corrupted output (%v): %s", err, data)
		}
	}
	if lines != 2 {
		t.Fatalf("expected duplicate but valid records across runs, got %d lines", lines)
	}
}

func TestJSONLSinkConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	sink, err := NewJSONLSink(path)
	if err != nil {
		t.Fatalf("failed to open sink: %v", err)
	}

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sink.Write(testRecord("https://x/product/a"))
		}()
	}
	wg.Wait()
	if err := sink.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to reopen output: %v", err)
	}
	defer file.Close()

	var lines int
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines++
		var rec types.Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("interleaved write produced invalid line %d: %v", lines, err)
		}
	}
	if lines != writers {
		t.Fatalf("expected %d lines, got %d", writers, lines)
	}
}

func TestJSONLSinkEmptyPath(t *testing.T) {
	if _, err := NewJSONLSink(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestNewSinkUnsupportedFormat(t *testing.T) {
	if _, err := NewSink(Config{Format: "parquet"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewSinkDefaultsToJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	sink, err := NewSink(Config{File: path})
	if err != nil {
		t.Fatalf("failed to open default sink: %v", err)
	}
	defer sink.Close()
	if _, ok := sink.(*JSONLSink); !ok {
		t.Fatalf("expected JSONL sink by default, got %T", sink)
	}
}
