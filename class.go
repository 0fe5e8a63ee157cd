package driftsync

import (
	"errors"
	"fmt"

	"github.com/driftsync/driftsync/protocol"
	"github.com/driftsync/driftsync/utils"
	"github.com/driftsync/driftsync/wire"
)

var (
	ErrBadClassRecord = errors.New("bad class record")
	ErrBadFieldEntry  = errors.New("bad field entry")
)

// Key identifies a class instance: the stable hash of its kind name
// plus an instance-unique counter value.
type Key struct {
	Type int32
	ID   int32
}

func (k Key) String() string {
	return fmt.Sprintf("%08x-%d", uint32(k.Type), k.ID)
}

// classOwner is the upward dirty edge of a class: its parent class, or
// the batcher for root classes.
type classOwner interface {
	markClassDirty(key Key)
}

// Class is a named, identified container of fields and nested classes.
// Dirtiness aggregates upward: a dirty field marks its class dirty, a
// dirty class marks its parent dirty, up to the batcher.
type Class struct {
	key    Key
	parent *Class // navigational back-pointer, never an ownership edge
	server bool
	save   bool
	loaded bool

	fields  map[FieldID]Field
	classes map[Key]*Class

	dirtyFields  map[FieldID]struct{}
	dirtyClasses map[Key]struct{}

	onChanged []func(*Class)

	owner classOwner
	reg   *Registry
	log   utils.Logger
}

func NewClass(key Key, server bool) *Class {
	return &Class{
		key:          key,
		server:       server,
		fields:       make(map[FieldID]Field),
		classes:      make(map[Key]*Class),
		dirtyFields:  make(map[FieldID]struct{}),
		dirtyClasses: make(map[Key]struct{}),
		log:          defaultLog,
	}
}

func (c *Class) Key() Key       { return c.key }
func (c *Class) Parent() *Class { return c.parent }
func (c *Class) IsServer() bool { return c.server }

func (c *Class) SaveValue() bool        { return c.save }
func (c *Class) SetSaveValue(save bool) { c.save = save }

func (c *Class) IsDirty() bool {
	return len(c.dirtyFields) > 0 || len(c.dirtyClasses) > 0
}

// OnChanged registers a callback fired when the class turns dirty and
// after a clearing serialize pass.
func (c *Class) OnChanged(fn func(*Class)) {
	c.onChanged = append(c.onChanged, fn)
}

func (c *Class) Field(id FieldID) (Field, bool) {
	f, ok := c.fields[id]
	return f, ok
}

func (c *Class) Child(key Key) (*Class, bool) {
	ch, ok := c.classes[key]
	return ch, ok
}

func (c *Class) Fields() []Field {
	out := make([]Field, 0, len(c.fields))
	for _, f := range c.fields {
		out = append(out, f)
	}
	return out
}

func (c *Class) Children() []*Class {
	out := make([]*Class, 0, len(c.classes))
	for _, ch := range c.classes {
		out = append(out, ch)
	}
	return out
}

func (c *Class) setLogger(log utils.Logger) {
	if log == nil {
		return
	}
	c.log = log
	for _, f := range c.fields {
		f.setLogger(log)
	}
	for _, ch := range c.classes {
		ch.setLogger(log)
	}
}

func (c *Class) setRegistry(reg *Registry) {
	c.reg = reg
	for _, ch := range c.classes {
		ch.setRegistry(reg)
	}
}

// AddField registers a field with the class. On the authoritative side
// the field is marked dirty at once, so the first sync after creation
// pushes it.
func (c *Class) AddField(f Field) {
	if f.IsServer() != c.server {
		c.log.Warn("field role mismatch rejected", "class", c.key.String(), "field", uint32(f.ID()))
		return
	}
	c.fields[f.ID()] = f
	f.attach(c)
	f.setLogger(c.log)
	if c.server {
		c.markFieldDirty(f.ID())
	}
}

// AddClass nests a child class. Same first-sync rule as AddField.
func (c *Class) AddClass(child *Class) {
	if child.server != c.server {
		c.log.Warn("class role mismatch rejected", "class", c.key.String(), "child", child.key.String())
		return
	}
	child.parent = c
	child.owner = c
	child.setRegistry(c.reg)
	child.setLogger(c.log)
	c.classes[child.key] = child
	if c.server {
		c.markClassDirty(child.key)
	}
}

func (c *Class) fireChanged() {
	for _, fn := range c.onChanged {
		fn(c)
	}
}

// markFieldDirty implements fieldOwner. Idempotent until the dirty set
// is cleared by a serialize pass.
func (c *Class) markFieldDirty(id FieldID) {
	if !c.server {
		return
	}
	if _, ok := c.dirtyFields[id]; ok {
		return
	}
	c.dirtyFields[id] = struct{}{}
	c.fireChanged()
	if c.owner != nil {
		c.owner.markClassDirty(c.key)
	}
}

// markClassDirty implements classOwner for nested children.
func (c *Class) markClassDirty(key Key) {
	if !c.server {
		return
	}
	if _, ok := c.dirtyClasses[key]; ok {
		return
	}
	c.dirtyClasses[key] = struct{}{}
	c.fireChanged()
	if c.owner != nil {
		c.owner.markClassDirty(c.key)
	}
}

func (c *Class) appendHeader(into []byte) (int, []byte) {
	bm, into := protocol.OpenHeader(into, 'C')
	pair := wire.ZipUint64Pair(uint64(uint32(c.key.Type)), uint64(uint32(c.key.ID)))
	into = append(into, protocol.TinyRecord('I', pair)...)
	return bm, into
}

// Serialize appends the class record carrying the dirty subset of the
// subtree. With clear set, both dirty sets are emptied and the changed
// callback fires after clearing, so a re-dirty during the same tick is
// observable on the next one.
func (c *Class) Serialize(into []byte, clear bool) ([]byte, bool) {
	if !c.server {
		c.log.Warn("role violation rejected", "op", "Serialize", "class", c.key.String())
		return into, false
	}
	if !c.IsDirty() && clear {
		return into, false
	}
	bm, buf := c.appendHeader(into)
	for key := range c.dirtyClasses {
		child, ok := c.classes[key]
		if !ok {
			c.log.Error("dirty child missing", "class", c.key.String(), "child", key.String())
			continue
		}
		buf, _ = child.Serialize(buf, clear)
	}
	for id := range c.dirtyFields {
		f, ok := c.fields[id]
		if !ok {
			c.log.Error("dirty field missing", "class", c.key.String(), "field", uint32(id))
			continue
		}
		buf, _ = f.Serialize(buf, clear)
	}
	protocol.CloseHeader(buf, bm)
	if clear {
		c.dirtyClasses = make(map[Key]struct{})
		c.dirtyFields = make(map[FieldID]struct{})
		c.fireChanged()
	}
	return buf, true
}

// SerializeInFull appends the whole subtree unconditionally, for the
// initial transfer to a newly joined observer.
func (c *Class) SerializeInFull(into []byte, clear bool) []byte {
	if !c.server {
		c.log.Warn("role violation rejected", "op", "SerializeInFull", "class", c.key.String())
		return into
	}
	bm, buf := c.appendHeader(into)
	for _, child := range c.classes {
		buf = child.SerializeInFull(buf, clear)
	}
	for _, f := range c.fields {
		buf = f.SerializeInFull(buf, clear)
	}
	protocol.CloseHeader(buf, bm)
	if clear {
		c.dirtyClasses = make(map[Key]struct{})
		c.dirtyFields = make(map[FieldID]struct{})
		c.fireChanged()
	}
	return buf
}

// takeClassKey consumes the leading I record of a class record body.
func takeClassKey(body []byte) (key Key, rest []byte, err error) {
	pair, rest := protocol.Take('I', body)
	if pair == nil && len(body) > 0 {
		return Key{}, nil, ErrBadClassRecord
	}
	t, id := wire.UnzipUint64Pair(pair)
	return Key{Type: int32(uint32(t)), ID: int32(uint32(id))}, rest, nil
}

// Deserialize applies a class record body whose envelope and I record
// the caller has already consumed. Unknown children and fields are
// created on demand; entries whose type has no client constructor are
// skipped, the rest of the record still applies.
func (c *Class) Deserialize(body []byte) (changed bool, err error) {
	if c.server {
		c.log.Warn("role violation rejected", "op", "Deserialize", "class", c.key.String())
		return false, nil
	}
	rest := body
	for len(rest) > 0 {
		if protocol.Lit(rest) == 'C' {
			var cbody []byte
			cbody, rest = protocol.Take('C', rest)
			if cbody == nil {
				return changed, ErrBadClassRecord
			}
			key, crest, e := takeClassKey(cbody)
			if e != nil {
				return changed, e
			}
			child, ok := c.classes[key]
			if !ok {
				child = c.adoptChild(key)
				if child == nil {
					continue
				}
			}
			ch, e := child.Deserialize(crest)
			changed = changed || ch
			if e != nil {
				return changed, e
			}
			continue
		}
		var fzip, bare []byte
		var kind byte
		fzip, rest = protocol.Take('F', rest)
		if fzip == nil {
			return changed, ErrBadFieldEntry
		}
		kind, bare, rest = protocol.TakeAny(rest)
		if bare == nil && rest == nil {
			return changed, ErrBadFieldEntry
		}
		id := FieldID(wire.UnzipUint64(fzip))
		changed = c.applyField(id, kind, bare) || changed
	}
	if changed {
		c.fireChanged()
	}
	return changed, nil
}

// adoptChild builds an unseen child via the registry's client side.
func (c *Class) adoptChild(key Key) *Class {
	if c.reg == nil {
		c.log.Error("no registry, child dropped", "class", c.key.String(), "child", key.String())
		return nil
	}
	child, ok := c.reg.TryCreate(key.Type, key.ID, c.server)
	if !ok {
		c.log.Error("no constructor for type, child dropped", "class", c.key.String(), "child", key.String())
		return nil
	}
	c.AddClass(child)
	return child
}

// applyField routes a payload to an existing field or adopts a new one.
// A kind clash replaces the field instance, the inbound state wins.
func (c *Class) applyField(id FieldID, kind byte, bare []byte) bool {
	f, ok := c.fields[id]
	if ok && f.Kind() != kind {
		c.log.Warn("field kind changed, replacing", "class", c.key.String(),
			"field", uint32(id), "old", string(rune(f.Kind())), "new", string(rune(kind)))
		ok = false
	}
	if !ok {
		f = newFieldOfKind(kind, id, c.server)
		if f == nil {
			c.log.Error("unknown field kind, entry dropped", "class", c.key.String(),
				"field", uint32(id), "kind", string(rune(kind)))
			return false
		}
		c.AddField(f)
	}
	return f.Deserialize(bare)
}

// Save flattens the save-eligible part of the subtree into a snapshot.
func (c *Class) Save() *SavedClass {
	saved := &SavedClass{Type: c.key.Type, ID: c.key.ID}
	for _, f := range c.fields {
		if f.SaveValue() {
			saved.Fields = append(saved.Fields, f.Save())
		}
	}
	for _, child := range c.classes {
		if child.save {
			saved.Classes = append(saved.Classes, child.Save())
		}
	}
	return saved
}

// Load rehydrates the subtree from a snapshot. Idempotent per instance
// unless force; with createMissing, absent children and fields are
// constructed before their values apply.
func (c *Class) Load(saved *SavedClass, createMissing, force bool) {
	if saved == nil {
		return
	}
	if c.loaded && !force {
		return
	}
	for _, sf := range saved.Fields {
		f, ok := c.fields[sf.ID]
		if !ok {
			if !createMissing {
				continue
			}
			f = newFieldOfKind(sf.Kind, sf.ID, c.server)
			if f == nil {
				c.log.Warn("unknown saved field kind", "class", c.key.String(), "field", uint32(sf.ID))
				continue
			}
			f.SetSaveValue(true)
			c.AddField(f)
		}
		f.Load(sf)
	}
	for _, sc := range saved.Classes {
		key := Key{Type: sc.Type, ID: sc.ID}
		if c.reg != nil {
			c.reg.reserve(key.ID)
		}
		child, ok := c.classes[key]
		if !ok {
			if !createMissing {
				continue
			}
			if c.reg == nil {
				c.log.Warn("no registry, saved child skipped", "class", c.key.String(), "child", key.String())
				continue
			}
			child, ok = c.reg.TryCreate(key.Type, key.ID, c.server)
			if !ok {
				c.log.Warn("no constructor for saved child", "class", c.key.String(), "child", key.String())
				continue
			}
			child.SetSaveValue(true)
			c.AddClass(child)
		}
		child.Load(sc, createMissing, force)
	}
	c.loaded = true
}
