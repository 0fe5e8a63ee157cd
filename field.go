// Package driftsync implements a dirty-tracked delta-state replication
// engine: typed fields aggregate into identified classes, classes and
// standalone fields register with a batcher, and the batcher turns the
// dirty subset into self-describing TLV messages that an observer-side
// batcher applies, creating unseen entities on demand.
//
// The engine is split by role. The authoritative side (server) is the
// only writer of truth: setters, dirty marks and Batch originate there.
// The observer side (client) only ever applies inbound messages via
// Unbatch. There is no conflict to resolve because only one side may
// originate change.
package driftsync

import (
	"log/slog"

	"github.com/driftsync/driftsync/protocol"
	"github.com/driftsync/driftsync/utils"
	"github.com/driftsync/driftsync/wire"
)

// FieldID identifies a field within its owning class, or globally for
// standalone fields held by the batcher.
type FieldID uint32

var defaultLog utils.Logger = utils.NewDefaultLogger(slog.LevelInfo)

// fieldOwner is the upward dirty edge of a field: its class, or the
// batcher for standalone fields.
type fieldOwner interface {
	markFieldDirty(id FieldID)
}

// Field is a single typed, dirty-tracked leaf value.
//
// Serialize appends the field's wire entry (a tiny F record carrying the
// id, then the value payload tagged with the kind) iff the field is
// dirty or clear is false; it reports whether it wrote anything and
// optionally drops the dirty flag. SerializeInFull writes
// unconditionally. Both are authoritative-only. Deserialize is
// observer-only and applies a payload whose header the caller already
// consumed, reporting whether the value changed.
type Field interface {
	ID() FieldID
	Kind() byte
	IsServer() bool
	IsDirty() bool
	SaveValue() bool
	SetSaveValue(save bool)

	Serialize(into []byte, clear bool) ([]byte, bool)
	SerializeInFull(into []byte, clear bool) []byte
	Deserialize(body []byte) bool

	Save() SavedField
	Load(saved SavedField)

	String() string

	attach(owner fieldOwner)
	setLogger(log utils.Logger)
}

// fieldImpl is what a concrete field variant supplies on top of
// baseField: its payload codec and its string codec.
type fieldImpl interface {
	payload() []byte
	apply(body []byte) bool
	valueString() string
	setFromString(s string) error
}

type baseField struct {
	id     FieldID
	kind   byte
	server bool
	dirty  bool
	save   bool
	owner  fieldOwner
	impl   fieldImpl
	log    utils.Logger
}

func makeBase(id FieldID, kind byte, server bool, impl fieldImpl) baseField {
	return baseField{
		id:     id,
		kind:   kind,
		server: server,
		impl:   impl,
		log:    defaultLog,
	}
}

func (f *baseField) ID() FieldID { return f.id }

func (f *baseField) Kind() byte { return f.kind }

func (f *baseField) IsServer() bool { return f.server }

func (f *baseField) IsDirty() bool { return f.dirty }

func (f *baseField) SaveValue() bool { return f.save }

func (f *baseField) SetSaveValue(save bool) {
	f.save = save
}

func (f *baseField) String() string { return f.impl.valueString() }

func (f *baseField) attach(owner fieldOwner) { f.owner = owner }
func (f *baseField) setLogger(log utils.Logger) {
	if log != nil {
		f.log = log
	}
}

// markDirty runs after a successful authoritative mutation.
func (f *baseField) markDirty() {
	if !f.server {
		return
	}
	f.dirty = true
	if f.owner != nil {
		f.owner.markFieldDirty(f.id)
	}
}

func (f *baseField) roleViolation(op string) {
	f.log.Warn("role violation rejected", "op", op, "field", uint32(f.id), "server", f.server)
}

func (f *baseField) appendEntry(into []byte) []byte {
	into = append(into, protocol.TinyRecord('F', wire.ZipUint64(uint64(f.id)))...)
	return append(into, protocol.Record(f.kind, f.impl.payload())...)
}

func (f *baseField) Serialize(into []byte, clear bool) ([]byte, bool) {
	if !f.server {
		f.roleViolation("Serialize")
		return into, false
	}
	if !f.dirty && clear {
		return into, false
	}
	into = f.appendEntry(into)
	if clear {
		f.dirty = false
	}
	return into, true
}

func (f *baseField) SerializeInFull(into []byte, clear bool) []byte {
	if !f.server {
		f.roleViolation("SerializeInFull")
		return into
	}
	into = f.appendEntry(into)
	if clear {
		f.dirty = false
	}
	return into
}

func (f *baseField) Deserialize(body []byte) bool {
	if f.server {
		f.roleViolation("Deserialize")
		return false
	}
	return f.impl.apply(body)
}

func (f *baseField) Save() SavedField {
	return SavedField{ID: f.id, Kind: f.kind, Value: f.impl.valueString()}
}

// Load applies a saved snapshot value; an empty value means nothing to
// apply and is skipped.
func (f *baseField) Load(saved SavedField) {
	if saved.Value == "" {
		return
	}
	if err := f.impl.setFromString(saved.Value); err != nil {
		f.log.Warn("bad saved value skipped", "field", uint32(f.id), "err", err)
	}
}
