package driftsync

import (
	"sync/atomic"

	"github.com/cespare/xxhash"
	"github.com/puzpuzpuz/xsync/v3"
)

// Constructor builds a class instance of a concrete kind for a given
// instance id.
type Constructor func(id int32) *Class

// Registry maps type discriminators to constructors, separately for the
// authoritative and the observer role. The observer side uses it to
// instantiate concrete class kinds it has never seen, purely from a
// wire-format type tag. Registration is concurrency-safe so package
// init order does not matter.
type Registry struct {
	server *xsync.MapOf[int32, Constructor]
	client *xsync.MapOf[int32, Constructor]
	nextID atomic.Int32
}

func NewRegistry() *Registry {
	return &Registry{
		server: xsync.NewMapOf[int32, Constructor](),
		client: xsync.NewMapOf[int32, Constructor](),
	}
}

// TypeHash derives the stable type discriminator from a kind name.
func TypeHash(name string) int32 {
	return int32(uint32(xxhash.Sum64String(name)))
}

func (r *Registry) RegisterServer(typeID int32, ctor Constructor) {
	r.server.Store(typeID, ctor)
}

func (r *Registry) RegisterClient(typeID int32, ctor Constructor) {
	r.client.Store(typeID, ctor)
}

// Register installs the same constructor under both roles.
func (r *Registry) Register(typeID int32, ctor Constructor) {
	r.RegisterServer(typeID, ctor)
	r.RegisterClient(typeID, ctor)
}

// TryCreate picks the registry by role and invokes the constructor, or
// fails if the type was never registered for that role.
func (r *Registry) TryCreate(typeID, id int32, server bool) (*Class, bool) {
	reg := r.client
	if server {
		reg = r.server
	}
	ctor, ok := reg.Load(typeID)
	if !ok {
		return nil, false
	}
	c := ctor(id)
	if c == nil {
		return nil, false
	}
	c.reg = r
	return c, true
}

// NextID hands out instance-unique ids for authoritative class
// creation. Exhausting the id space is the one fatal condition in this
// package.
func (r *Registry) NextID() int32 {
	id := r.nextID.Add(1)
	if id <= 0 {
		panic("driftsync: instance id space exhausted")
	}
	return id
}

// reserve advances the id counter past an id seen in restored state,
// so ids minted after a snapshot load stay instance-unique.
func (r *Registry) reserve(id int32) {
	for {
		cur := r.nextID.Load()
		if cur >= id {
			return
		}
		if r.nextID.CompareAndSwap(cur, id) {
			return
		}
	}
}
