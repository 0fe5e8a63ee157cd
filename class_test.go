package driftsync

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/driftsync/driftsync/protocol"
)

func TestClassDirtyPropagation(t *testing.T) {
	root := NewClass(Key{Type: 1, ID: 1}, true)
	child := NewClass(Key{Type: 2, ID: 1}, true)
	root.AddClass(child)
	hp := NewFloatField(7, true, 100)
	child.AddField(hp)

	// AddClass/AddField mark the new subtree dirty at once
	assert.True(t, root.IsDirty())
	assert.True(t, child.IsDirty())

	root.Serialize(nil, true)
	assert.False(t, root.IsDirty())
	assert.False(t, child.IsDirty())

	hp.Set(50)
	assert.True(t, hp.IsDirty())
	assert.True(t, child.IsDirty())
	assert.True(t, root.IsDirty())
}

func TestClassDirtyIdempotent(t *testing.T) {
	root := NewClass(Key{Type: 1, ID: 1}, true)
	fired := 0
	root.OnChanged(func(*Class) { fired++ })

	f := NewIntField(1, true, 0)
	root.AddField(f)
	assert.Equal(t, 1, fired)

	// further writes to an already-dirty field fire nothing
	f.Set(1)
	f.Set(2)
	f.Set(3)
	assert.Equal(t, 1, fired)

	// the clearing pass fires once more, then dirtiness is observable again
	root.Serialize(nil, true)
	assert.Equal(t, 2, fired)
	f.Set(4)
	assert.Equal(t, 3, fired)
}

func TestClassSerializeSkipsClean(t *testing.T) {
	root := NewClass(Key{Type: 1, ID: 1}, true)
	root.AddField(NewIntField(1, true, 5))
	root.Serialize(nil, true)

	buf, wrote := root.Serialize(nil, true)
	assert.False(t, wrote)
	assert.Empty(t, buf)

	// a full pass still writes everything
	buf = root.SerializeInFull(nil, false)
	assert.NotEmpty(t, buf)
}

func testRegistry(types ...int32) *Registry {
	reg := NewRegistry()
	for _, typeID := range types {
		typeID := typeID
		reg.RegisterServer(typeID, func(id int32) *Class {
			return NewClass(Key{Type: typeID, ID: id}, true)
		})
		reg.RegisterClient(typeID, func(id int32) *Class {
			return NewClass(Key{Type: typeID, ID: id}, false)
		})
	}
	return reg
}

// serialize on one side, apply on the other, through the raw record.
func replicate(t *testing.T, src, dst *Class) {
	rec, wrote := src.Serialize(nil, true)
	assert.True(t, wrote)
	cbody, rest := protocol.Take('C', rec)
	assert.NotNil(t, cbody)
	assert.Empty(t, rest)
	key, crest, err := takeClassKey(cbody)
	assert.NoError(t, err)
	assert.Equal(t, src.Key(), key)
	changed, err := dst.Deserialize(crest)
	assert.NoError(t, err)
	assert.True(t, changed)
}

func TestClassReplication(t *testing.T) {
	reg := testRegistry(1, 2)

	src := NewClass(Key{Type: 1, ID: 1}, true)
	src.setRegistry(reg)
	inner := NewClass(Key{Type: 2, ID: 1}, true)
	src.AddClass(inner)
	src.AddField(NewStringField(1, true, "root"))
	inner.AddField(NewIntField(2, true, 77))

	dst := NewClass(Key{Type: 1, ID: 1}, false)
	dst.setRegistry(reg)
	replicate(t, src, dst)

	name, ok := dst.Field(1)
	assert.True(t, ok)
	assert.Equal(t, "root", name.(*StringField).Value())

	mirror, ok := dst.Child(Key{Type: 2, ID: 1})
	assert.True(t, ok)
	v, ok := mirror.Field(2)
	assert.True(t, ok)
	assert.Equal(t, int32(77), v.(*IntField).Value())

	// delta carries only the re-dirtied leaf
	f, _ := inner.Field(2)
	f.(*IntField).Set(78)
	replicate(t, src, dst)
	assert.Equal(t, int32(78), v.(*IntField).Value())
}

func TestClassDeserializeUnknownChildSkipped(t *testing.T) {
	reg := testRegistry(1) // type 2 has no constructor

	src := NewClass(Key{Type: 1, ID: 1}, true)
	src.setRegistry(reg)
	stranger := NewClass(Key{Type: 2, ID: 1}, true)
	src.AddClass(stranger)
	stranger.AddField(NewBoolField(1, true, true))
	src.AddField(NewIntField(1, true, 9))

	dst := NewClass(Key{Type: 1, ID: 1}, false)
	dst.setRegistry(reg)
	replicate(t, src, dst)

	// unknown child dropped, the sibling field still applied
	_, ok := dst.Child(Key{Type: 2, ID: 1})
	assert.False(t, ok)
	f, ok := dst.Field(1)
	assert.True(t, ok)
	assert.Equal(t, int32(9), f.(*IntField).Value())
}

func TestClassKindClashReplaces(t *testing.T) {
	src := NewClass(Key{Type: 1, ID: 1}, true)
	src.AddField(NewIntField(1, true, 3))

	dst := NewClass(Key{Type: 1, ID: 1}, false)
	dst.AddField(NewStringField(1, false, "old"))
	replicate(t, src, dst)

	f, ok := dst.Field(1)
	assert.True(t, ok)
	assert.Equal(t, KindInt, f.Kind())
	assert.Equal(t, int32(3), f.(*IntField).Value())
}

func TestClassSaveLoad(t *testing.T) {
	reg := testRegistry(1, 2)

	src := NewClass(Key{Type: 1, ID: 4}, true)
	src.setRegistry(reg)
	src.SetSaveValue(true)
	inner := NewClass(Key{Type: 2, ID: 1}, true)
	inner.SetSaveValue(true)
	src.AddClass(inner)

	hp := NewIntField(1, true, 250)
	hp.SetSaveValue(true)
	src.AddField(hp)
	skipped := NewIntField(2, true, 9)
	src.AddField(skipped) // not save-eligible
	pos := NewVector3Field(3, true, Vector3{X: 1, Y: 2, Z: 3})
	pos.SetSaveValue(true)
	inner.AddField(pos)

	saved := src.Save()
	assert.Len(t, saved.Fields, 1)
	assert.Len(t, saved.Classes, 1)

	dst := NewClass(Key{Type: 1, ID: 4}, true)
	dst.setRegistry(reg)
	dst.Load(saved, true, false)

	f, ok := dst.Field(1)
	assert.True(t, ok)
	assert.Equal(t, int32(250), f.(*IntField).Value())
	_, ok = dst.Field(2)
	assert.False(t, ok)

	child, ok := dst.Child(Key{Type: 2, ID: 1})
	assert.True(t, ok)
	pf, ok := child.Field(3)
	assert.True(t, ok)
	assert.Equal(t, Vector3{X: 1, Y: 2, Z: 3}, pf.(*Vector3Field).Value())

	// second load is a no-op unless forced
	hp.Set(750)
	dst.Load(src.Save(), true, false)
	assert.Equal(t, int32(250), f.(*IntField).Value())
	dst.Load(src.Save(), true, true)
	assert.Equal(t, int32(750), f.(*IntField).Value())
}

func TestClassRoleMismatchRejected(t *testing.T) {
	root := NewClass(Key{Type: 1, ID: 1}, true)
	root.AddField(NewIntField(1, false, 0))
	root.AddClass(NewClass(Key{Type: 2, ID: 1}, false))

	_, ok := root.Field(1)
	assert.False(t, ok)
	_, ok = root.Child(Key{Type: 2, ID: 1})
	assert.False(t, ok)
	assert.False(t, root.IsDirty())
}
