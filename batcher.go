package driftsync

import (
	"errors"

	"github.com/driftsync/driftsync/protocol"
	"github.com/driftsync/driftsync/utils"
	"github.com/driftsync/driftsync/wire"
	"github.com/google/uuid"
	"github.com/klauspost/compress/s2"
)

var (
	ErrBadMessage    = errors.New("bad sync message")
	ErrNoRegistry    = errors.New("no registry")
	ErrRoleViolation = errors.New("operation not allowed for this role")
)

// Full-sync messages above this many bytes travel s2-compressed in a Z
// envelope. Deltas are small by construction and go uncompressed.
const DefaultCompressAt = 1 << 12

type BatcherOptions struct {
	Logger     utils.Logger
	Metrics    *Metrics
	CompressAt int
}

func (o *BatcherOptions) setDefaults() {
	if o.Logger == nil {
		o.Logger = defaultLog
	}
	if o.CompressAt == 0 {
		o.CompressAt = DefaultCompressAt
	}
}

// Batcher is the top-level registry of root classes and standalone
// fields, the entry and exit point of the wire protocol, and the owner
// of save/load. An authoritative batcher produces messages with Batch;
// an observer batcher applies them with Unbatch.
type Batcher struct {
	server  bool
	reg     *Registry
	session uuid.UUID
	loaded  bool

	classes map[Key]*Class
	fields  map[FieldID]Field

	dirtyClasses map[Key]struct{}
	dirtyFields  map[FieldID]struct{}

	onClassCreated []func(*Class)
	onFieldCreated []func(Field)
	onFirstSync    []func()
	onSync         []func()
	firstSyncDone  bool

	peerSession uuid.UUID

	opts    BatcherOptions
	log     utils.Logger
	metrics *Metrics
}

func NewBatcher(server bool, reg *Registry, opts *BatcherOptions) *Batcher {
	var o BatcherOptions
	if opts != nil {
		o = *opts
	}
	o.setDefaults()
	return &Batcher{
		server:       server,
		reg:          reg,
		session:      uuid.New(),
		classes:      make(map[Key]*Class),
		fields:       make(map[FieldID]Field),
		dirtyClasses: make(map[Key]struct{}),
		dirtyFields:  make(map[FieldID]struct{}),
		opts:         o,
		log:          o.Logger,
		metrics:      o.Metrics,
	}
}

func (b *Batcher) IsServer() bool      { return b.server }
func (b *Batcher) Session() uuid.UUID  { return b.session }
func (b *Batcher) Registry() *Registry { return b.reg }

// PeerSession is the session id seen in the last inbound message.
func (b *Batcher) PeerSession() uuid.UUID { return b.peerSession }

// IsFirstUnbatch reports whether the next Unbatch is the first contact.
func (b *Batcher) IsFirstUnbatch() bool { return !b.firstSyncDone }

func (b *Batcher) Class(key Key) (*Class, bool) {
	c, ok := b.classes[key]
	return c, ok
}

func (b *Batcher) Field(id FieldID) (Field, bool) {
	f, ok := b.fields[id]
	return f, ok
}

func (b *Batcher) Classes() []*Class {
	out := make([]*Class, 0, len(b.classes))
	for _, c := range b.classes {
		out = append(out, c)
	}
	return out
}

func (b *Batcher) Fields() []Field {
	out := make([]Field, 0, len(b.fields))
	for _, f := range b.fields {
		out = append(out, f)
	}
	return out
}

// OnClassCreated fires for every root class adopted during Unbatch.
func (b *Batcher) OnClassCreated(fn func(*Class)) {
	b.onClassCreated = append(b.onClassCreated, fn)
}

// OnFieldCreated fires for every standalone field adopted during Unbatch.
func (b *Batcher) OnFieldCreated(fn func(Field)) {
	b.onFieldCreated = append(b.onFieldCreated, fn)
}

// OnFirstSync fires once, after the first successful Unbatch.
// First-contact handling often differs from steady state, suppressed
// transitions being the usual case.
func (b *Batcher) OnFirstSync(fn func()) { b.onFirstSync = append(b.onFirstSync, fn) }

// OnSync fires after every later successful Unbatch.
func (b *Batcher) OnSync(fn func()) { b.onSync = append(b.onSync, fn) }

// AddClass registers a root class. Authoritative side marks it dirty so
// the next delta carries the whole new subtree.
func (b *Batcher) AddClass(c *Class) {
	if c.server != b.server {
		b.log.Warn("class role mismatch rejected", "class", c.key.String())
		return
	}
	c.owner = b
	c.setRegistry(b.reg)
	c.setLogger(b.log)
	b.classes[c.key] = c
	if b.server {
		b.markClassDirty(c.key)
	}
}

// AddField registers a standalone top-level field.
func (b *Batcher) AddField(f Field) {
	if f.IsServer() != b.server {
		b.log.Warn("field role mismatch rejected", "field", uint32(f.ID()))
		return
	}
	f.attach(b)
	f.setLogger(b.log)
	b.fields[f.ID()] = f
	if b.server {
		b.markFieldDirty(f.ID())
	}
}

// NewClassOf is the authoritative-side convenience path: create via the
// registry's server constructor with a fresh instance id and register.
func (b *Batcher) NewClassOf(typeID int32) (*Class, error) {
	if !b.server {
		b.log.Warn("role violation rejected", "op", "NewClassOf")
		return nil, ErrRoleViolation
	}
	if b.reg == nil {
		return nil, ErrNoRegistry
	}
	c, ok := b.reg.TryCreate(typeID, b.reg.NextID(), true)
	if !ok {
		return nil, ErrUnknownType
	}
	b.AddClass(c)
	return c, nil
}

var ErrUnknownType = errors.New("unknown class type")

func (b *Batcher) markClassDirty(key Key) {
	if !b.server {
		return
	}
	b.dirtyClasses[key] = struct{}{}
}

func (b *Batcher) markFieldDirty(id FieldID) {
	if !b.server {
		return
	}
	b.dirtyFields[id] = struct{}{}
}

// Batch produces one outbound message. A full batch writes every
// registered entity with SerializeInFull, for initial state transfer to
// a newly joined observer; a delta batch writes only the dirty subset,
// then clears all top-level dirty tracking. Authoritative-only.
func (b *Batcher) Batch(full bool) []byte {
	if !b.server {
		b.log.Warn("role violation rejected", "op", "Batch")
		return nil
	}
	lit := byte('D')
	if full {
		lit = 'O'
	}
	bm, buf := protocol.OpenHeader(nil, lit)
	buf = append(buf, protocol.TinyRecord('T', b.session[:])...)
	if full {
		for _, c := range b.classes {
			buf = c.SerializeInFull(buf, true)
		}
		for _, f := range b.fields {
			buf = f.SerializeInFull(buf, true)
		}
		b.dirtyClasses = make(map[Key]struct{})
		b.dirtyFields = make(map[FieldID]struct{})
	} else {
		for key := range b.dirtyClasses {
			c, ok := b.classes[key]
			if !ok {
				b.log.Error("dirty class missing", "class", key.String())
				continue
			}
			buf, _ = c.Serialize(buf, true)
		}
		for id := range b.dirtyFields {
			f, ok := b.fields[id]
			if !ok {
				b.log.Error("dirty field missing", "field", uint32(id))
				continue
			}
			buf, _ = f.Serialize(buf, true)
		}
		b.dirtyClasses = make(map[Key]struct{})
		b.dirtyFields = make(map[FieldID]struct{})
	}
	protocol.CloseHeader(buf, bm)
	if full && len(buf) > b.opts.CompressAt {
		buf = protocol.Record('Z', s2.Encode(nil, buf))
	}
	kind := "delta"
	if full {
		kind = "full"
	}
	b.metrics.observeBatch(kind, len(buf))
	return buf
}

// Unbatch applies one inbound message, creating unseen root entities on
// demand. Observer-only. Entities whose type has no client constructor
// are logged and skipped; the rest of the message still applies.
func (b *Batcher) Unbatch(msg []byte) error {
	if b.server {
		b.log.Warn("role violation rejected", "op", "Unbatch")
		return nil
	}
	b.metrics.observeUnbatch(len(msg))
	if len(msg) == 0 {
		return ErrBadMessage
	}
	if protocol.Lit(msg) == 'Z' {
		packed, _ := protocol.Take('Z', msg)
		if packed == nil {
			return ErrBadMessage
		}
		var err error
		msg, err = s2.Decode(nil, packed)
		if err != nil {
			return err
		}
	}
	lit, body, _ := protocol.TakeAny(msg)
	if body == nil || (lit != 'O' && lit != 'D') {
		return ErrBadMessage
	}
	// the session record is tagged; a leading tagless tiny record
	// belongs to the first field entry, not to the session
	if len(body) > 0 && protocol.Lit(body) == 'T' {
		if sess, rest := protocol.Take('T', body); sess != nil {
			if len(sess) == 16 {
				copy(b.peerSession[:], sess)
			}
			body = rest
		}
	}
	if err := b.unbatchBody(body); err != nil {
		return err
	}
	if !b.firstSyncDone {
		b.firstSyncDone = true
		for _, fn := range b.onFirstSync {
			fn()
		}
	} else {
		for _, fn := range b.onSync {
			fn()
		}
	}
	return nil
}

func (b *Batcher) unbatchBody(body []byte) error {
	rest := body
	for len(rest) > 0 {
		if protocol.Lit(rest) == 'C' {
			var cbody []byte
			cbody, rest = protocol.Take('C', rest)
			if cbody == nil {
				return ErrBadMessage
			}
			key, crest, err := takeClassKey(cbody)
			if err != nil {
				return err
			}
			c, ok := b.classes[key]
			created := false
			if !ok {
				c = b.adoptClass(key)
				if c == nil {
					continue
				}
				created = true
			}
			if _, err := c.Deserialize(crest); err != nil {
				return err
			}
			if created {
				b.metrics.observeAdopted()
				for _, fn := range b.onClassCreated {
					fn(c)
				}
			}
			continue
		}
		var fzip, bare []byte
		var kind byte
		fzip, rest = protocol.Take('F', rest)
		if fzip == nil {
			return ErrBadMessage
		}
		kind, bare, rest = protocol.TakeAny(rest)
		if bare == nil && rest == nil {
			return ErrBadMessage
		}
		id := FieldID(wire.UnzipUint64(fzip))
		f, ok := b.fields[id]
		if ok && f.Kind() != kind {
			b.log.Warn("field kind changed, replacing", "field", uint32(id))
			ok = false
		}
		if !ok {
			f = newFieldOfKind(kind, id, b.server)
			if f == nil {
				b.log.Error("unknown field kind, entry dropped", "field", uint32(id))
				continue
			}
			b.AddField(f)
			b.metrics.observeAdopted()
			for _, fn := range b.onFieldCreated {
				fn(f)
			}
		}
		f.Deserialize(bare)
	}
	return nil
}

// adoptClass builds an unseen root class via the registry.
func (b *Batcher) adoptClass(key Key) *Class {
	if b.reg == nil {
		b.log.Error("no registry, class dropped", "class", key.String())
		return nil
	}
	c, ok := b.reg.TryCreate(key.Type, key.ID, b.server)
	if !ok {
		b.log.Error("no constructor for type, class dropped", "class", key.String())
		return nil
	}
	b.AddClass(c)
	return c
}

// Save flattens the save-eligible registry into a snapshot.
func (b *Batcher) Save() *SavedBatch {
	saved := &SavedBatch{Session: b.session.String()}
	for _, c := range b.classes {
		if c.save {
			saved.Classes = append(saved.Classes, c.Save())
		}
	}
	for _, f := range b.fields {
		if f.SaveValue() {
			saved.Fields = append(saved.Fields, f.Save())
		}
	}
	return saved
}

// Load rehydrates the registry from a snapshot; no-op if already
// loaded. Missing entities are constructed on demand.
func (b *Batcher) Load(saved *SavedBatch) {
	if b.loaded {
		return
	}
	b.load(saved, false)
}

// Reload forces reapplication even if already loaded, for external
// save-file switching.
func (b *Batcher) Reload(saved *SavedBatch) {
	b.load(saved, true)
}

func (b *Batcher) load(saved *SavedBatch, force bool) {
	if saved == nil {
		return
	}
	for _, sc := range saved.Classes {
		key := Key{Type: sc.Type, ID: sc.ID}
		if b.reg != nil {
			b.reg.reserve(key.ID)
		}
		c, ok := b.classes[key]
		if !ok {
			if b.reg == nil {
				b.log.Warn("no registry, saved class skipped", "class", key.String())
				continue
			}
			c, ok = b.reg.TryCreate(key.Type, key.ID, b.server)
			if !ok {
				b.log.Warn("no constructor for saved class", "class", key.String())
				continue
			}
			c.SetSaveValue(true)
			b.AddClass(c)
		}
		c.Load(sc, true, force)
	}
	for _, sf := range saved.Fields {
		f, ok := b.fields[sf.ID]
		if !ok {
			f = newFieldOfKind(sf.Kind, sf.ID, b.server)
			if f == nil {
				b.log.Warn("unknown saved field kind", "field", uint32(sf.ID))
				continue
			}
			f.SetSaveValue(true)
			b.AddField(f)
		}
		f.Load(sf)
	}
	b.loaded = true
}
