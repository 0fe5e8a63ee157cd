package driftsync

import "errors"

var ErrBadSavedValue = errors.New("bad saved value")

// SavedField is the flattened, string-encoded snapshot of one field.
// Numeric and vector values serialize as culture-invariant decimal
// text, multi-component values comma-joined. This is the persistence
// path, decoupled from the wire format.
type SavedField struct {
	ID    FieldID `yaml:"id"`
	Kind  byte    `yaml:"kind"`
	Value string  `yaml:"value"`
}

// SavedClass is the snapshot of one class subtree.
type SavedClass struct {
	Type    int32         `yaml:"type"`
	ID      int32         `yaml:"id"`
	Fields  []SavedField  `yaml:"fields,omitempty"`
	Classes []*SavedClass `yaml:"classes,omitempty"`
}

// SavedBatch is the snapshot of a whole batcher registry.
type SavedBatch struct {
	Session string        `yaml:"session,omitempty"`
	Classes []*SavedClass `yaml:"classes,omitempty"`
	Fields  []SavedField  `yaml:"fields,omitempty"`
}
