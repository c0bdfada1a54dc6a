package ir

import (
	"encoding/json"
	"fmt"
	"io"
)

// EncodeJSON writes the module as indented JSON. The encoding is
// deterministic: struct fields serialize in declaration order and all
// collections are ordered slices.
func EncodeJSON(w io.Writer, m *Module) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode module: %w", err)
	}
	return nil
}

// DecodeJSON reads a module from JSON and checks basic shape: functions
// need at least one block and the recorded id bound must not be below any
// defined id.
func DecodeJSON(r io.Reader) (*Module, error) {
	var m Module
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode module: %w", err)
	}
	for i, f := range m.Functions {
		if len(f.Blocks) == 0 {
			return nil, fmt.Errorf("decode module: function %d has no blocks", i)
		}
	}
	for id := range m.defs() {
		if id >= m.IDBound {
			return nil, fmt.Errorf("decode module: id %%%d exceeds id bound %d", id, m.IDBound)
		}
	}
	return &m, nil
}
