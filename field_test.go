package driftsync

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/driftsync/driftsync/protocol"
	"github.com/driftsync/driftsync/wire"
)

func TestFieldDirtyOnChange(t *testing.T) {
	f := NewIntField(1, true, 100)
	assert.False(t, f.IsDirty())

	f.Set(100) // no-op write
	assert.False(t, f.IsDirty())

	f.Set(90)
	assert.True(t, f.IsDirty())
	assert.Equal(t, int32(90), f.Value())
}

func TestFieldSerializeClears(t *testing.T) {
	f := NewIntField(1, true, 0)
	f.Set(42)

	buf, wrote := f.Serialize(nil, true)
	assert.True(t, wrote)
	assert.NotEmpty(t, buf)
	assert.False(t, f.IsDirty())

	buf, wrote = f.Serialize(nil, true)
	assert.False(t, wrote)
	assert.Empty(t, buf)

	// clear=false writes even when clean
	buf, wrote = f.Serialize(nil, false)
	assert.True(t, wrote)
	assert.NotEmpty(t, buf)
}

func TestFieldEntryRoundTrip(t *testing.T) {
	src := NewLongField(7, true, 0)
	src.Set(-1 << 40)

	entry, wrote := src.Serialize(nil, true)
	assert.True(t, wrote)

	fzip, rest := protocol.Take('F', entry)
	assert.NotNil(t, fzip)
	assert.Equal(t, FieldID(7), FieldID(wire.UnzipUint64(fzip)))

	kind, bare, rest := protocol.TakeAny(rest)
	assert.Equal(t, KindLong, kind)
	assert.Empty(t, rest)

	dst := NewLongField(7, false, 0)
	assert.True(t, dst.Deserialize(bare))
	assert.Equal(t, int64(-1<<40), dst.Value())
}

func TestFieldModify(t *testing.T) {
	f := NewIntField(1, true, 10)

	f.Modify(50, ModifyPercent)
	assert.Equal(t, int32(500), f.Value())

	f.Modify(2, ModifyAdd)
	assert.Equal(t, int32(502), f.Value())

	f.Modify(10, ModifySet)
	assert.Equal(t, int32(10), f.Value())

	d := NewDoubleField(2, true, 200)
	d.Modify(0.5, ModifyPercentAdd)
	assert.Equal(t, float64(300), d.Value())
}

func TestFieldRoleViolation(t *testing.T) {
	f := NewIntField(1, false, 5)
	f.Set(9)
	assert.Equal(t, int32(5), f.Value())
	assert.False(t, f.IsDirty())

	buf, wrote := f.Serialize(nil, true)
	assert.False(t, wrote)
	assert.Empty(t, buf)
	assert.Empty(t, f.SerializeInFull(nil, true))

	srv := NewIntField(1, true, 5)
	assert.False(t, srv.Deserialize(wire.ZipInt64(9)))
	assert.Equal(t, int32(5), srv.Value())
}

func TestFieldOnChangeCallback(t *testing.T) {
	f := NewFloatField(3, true, 1)
	var olds, news []float32
	f.OnChange(func(old, new float32) {
		olds = append(olds, old)
		news = append(news, new)
	})

	f.Set(1) // same value, no callback
	f.Set(2.5)
	f.Set(2.5)
	f.Set(-1)

	assert.Equal(t, []float32{1, 2.5}, olds)
	assert.Equal(t, []float32{2.5, -1}, news)
}

func TestFieldSaveLoad(t *testing.T) {
	src := NewDoubleField(9, true, 3.5)
	saved := src.Save()
	assert.Equal(t, FieldID(9), saved.ID)
	assert.Equal(t, KindDouble, saved.Kind)
	assert.Equal(t, "3.5", saved.Value)

	dst := NewDoubleField(9, true, 0)
	dst.Load(saved)
	assert.Equal(t, 3.5, dst.Value())
	assert.False(t, dst.IsDirty())

	// garbage is skipped, current value survives
	dst.Load(SavedField{ID: 9, Kind: KindDouble, Value: "not a number"})
	assert.Equal(t, 3.5, dst.Value())

	// empty value means nothing to apply
	dst.Load(SavedField{ID: 9, Kind: KindDouble})
	assert.Equal(t, 3.5, dst.Value())
}

func TestBoolFieldPayload(t *testing.T) {
	src := NewBoolField(1, true, false)
	src.Set(true)
	entry, _ := src.Serialize(nil, true)

	_, rest := protocol.Take('F', entry)
	kind, bare, _ := protocol.TakeAny(rest)
	assert.Equal(t, KindBool, kind)

	dst := NewBoolField(1, false, false)
	assert.True(t, dst.Deserialize(bare))
	assert.True(t, dst.Value())
}

func TestStringFieldRoundTrip(t *testing.T) {
	src := NewStringField(4, true, "")
	src.Set("héllo world")
	entry, _ := src.Serialize(nil, true)

	_, rest := protocol.Take('F', entry)
	kind, bare, _ := protocol.TakeAny(rest)
	assert.Equal(t, KindString, kind)

	dst := NewStringField(4, false, "")
	assert.True(t, dst.Deserialize(bare))
	assert.Equal(t, "héllo world", dst.Value())
}

func TestVectorFieldRoundTrip(t *testing.T) {
	src := NewVector3Field(2, true, Vector3{})
	src.Set(Vector3{X: 1.5, Y: -2, Z: 0.25})
	entry, _ := src.Serialize(nil, true)

	_, rest := protocol.Take('F', entry)
	kind, bare, _ := protocol.TakeAny(rest)
	assert.Equal(t, KindVector3, kind)

	dst := NewVector3Field(2, false, Vector3{})
	assert.True(t, dst.Deserialize(bare))
	assert.Equal(t, Vector3{X: 1.5, Y: -2, Z: 0.25}, dst.Value())
}

func TestQuaternionFieldRoundTrip(t *testing.T) {
	src := NewQuaternionField(5, true, Quaternion{W: 1})
	src.Set(Quaternion{X: 0.1, Y: 0.2, Z: 0.3, W: 0.927})
	entry, _ := src.Serialize(nil, true)

	_, rest := protocol.Take('F', entry)
	kind, bare, _ := protocol.TakeAny(rest)
	assert.Equal(t, KindQuaternion, kind)

	dst := NewQuaternionField(5, false, Quaternion{W: 1})
	assert.True(t, dst.Deserialize(bare))
	got := dst.Value()
	assert.InDelta(t, 0.1, got.X, 2e-3)
	assert.InDelta(t, 0.2, got.Y, 2e-3)
	assert.InDelta(t, 0.3, got.Z, 2e-3)
	assert.InDelta(t, 0.927, got.W, 2e-3)
}
