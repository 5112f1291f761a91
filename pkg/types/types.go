// Package types defines the data model shared between the crawl
// pipeline and its sinks.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Record is one successfully extracted page. Fields holds the
// extracted text keyed by field name; FieldOrder preserves the
// extraction spec's field order so persisted JSON stays stable
// across runs. Records are write-once: they are never mutated after
// creation.
type Record struct {
	Fields     map[string]string
	FieldOrder []string
	URL        string
	Sections   []string
}

// MarshalJSON renders the record as a single flat JSON object:
// the extracted fields in spec order, then "url", then "sections".
// Sections is always an array, never null.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	order := r.FieldOrder
	if order == nil {
		order = sortedKeys(r.Fields)
	}
	for _, name := range order {
		value, ok := r.Fields[name]
		if !ok {
			continue
		}
		if err := writePair(&buf, name, value); err != nil {
			return nil, err
		}
		buf.WriteByte(',')
	}

	if err := writePair(&buf, "url", r.URL); err != nil {
		return nil, err
	}
	buf.WriteByte(',')

	sections := r.Sections
	if sections == nil {
		sections = []string{}
	}
	if err := writePair(&buf, "sections", sections); err != nil {
		return nil, err
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON parses a persisted record line back into a Record.
// The url and sections keys are split out; everything else becomes an
// extracted field.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Fields = make(map[string]string)
	for key, value := range raw {
		switch key {
		case "url":
			if err := json.Unmarshal(value, &r.URL); err != nil {
				return fmt.Errorf("record url: %w", err)
			}
		case "sections":
			if err := json.Unmarshal(value, &r.Sections); err != nil {
				return fmt.Errorf("record sections: %w", err)
			}
		default:
			var text string
			if err := json.Unmarshal(value, &text); err != nil {
				return fmt.Errorf("record field %q: %w", key, err)
			}
			r.Fields[key] = text
		}
	}
	return nil
}

func writePair(buf *bytes.Buffer, key string, value interface{}) error {
	keyJSON, err := json.Marshal(key)
	if err != nil {
		return err
	}
	valueJSON, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(keyJSON)
	buf.WriteByte(':')
	buf.Write(valueJSON)
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Report summarizes a completed crawl run.
type Report struct {
	Written int `json:"written"`
	Skipped int `json:"skipped"`
	Errored int `json:"errored"`
}

// Total returns the number of URLs that produced an outcome.
func (r Report) Total() int {
	return r.Written + r.Skipped + r.Errored
}
