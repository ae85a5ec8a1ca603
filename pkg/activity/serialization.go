package activity

import (
	"encoding/json"
	"fmt"
)

// MarshalRecord serializes a Record to JSON bytes.
func MarshalRecord(record *Record) ([]byte, error) {
	if record == nil {
		return nil, fmt.Errorf("cannot marshal nil Record")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal Record to JSON: %w", err)
	}

	return data, nil
}

// UnmarshalRecord deserializes a Record from JSON bytes.
func UnmarshalRecord(data []byte) (*Record, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to Record: %w", err)
	}

	return &record, nil
}

// Validate checks the fields every backend relies on for keys and ordering
func (r *Record) Validate() error {
	if r == nil {
		return fmt.Errorf("cannot save nil Record")
	}
	if r.Id == "" {
		return fmt.Errorf("record id is required")
	}
	if r.Timestamp.IsZero() {
		return fmt.Errorf("record timestamp is required")
	}
	if r.Kind == "" {
		return fmt.Errorf("record kind is required")
	}
	return nil
}
