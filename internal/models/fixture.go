package models

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadFixture reads a JSON array of event records from path and normalizes
// each one.
func LoadFixture(path string) ([]EventRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes a JSON array of event records and normalizes each one.
func ParseFixture(data []byte) ([]EventRecord, error) {
	var recs []EventRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	for i := range recs {
		recs[i].Normalize()
	}
	return recs, nil
}
