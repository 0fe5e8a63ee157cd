package driftsync

import (
	"strconv"
	"strings"

	"github.com/driftsync/driftsync/wire"
)

type Vector2 struct {
	X, Y float32
}

type Vector3 struct {
	X, Y, Z float32
}

type Quaternion struct {
	X, Y, Z, W float32
}

func formatComponents(vs ...float32) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
	}
	return strings.Join(parts, ",")
}

func parseComponents(s string, n int) ([]float32, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, ErrBadSavedValue
	}
	out := make([]float32, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(v)
	}
	return out, nil
}

// Vector2Field replicates a 2-vector with full float32 precision.
type Vector2Field struct {
	baseField
	value    Vector2
	onChange []func(old, new Vector2)
}

func NewVector2Field(id FieldID, server bool, v Vector2) *Vector2Field {
	f := &Vector2Field{value: v}
	f.baseField = makeBase(id, KindVector2, server, f)
	return f
}

func (f *Vector2Field) Value() Vector2 { return f.value }

func (f *Vector2Field) OnChange(fn func(old, new Vector2)) { f.onChange = append(f.onChange, fn) }

func (f *Vector2Field) Set(v Vector2) {
	if !f.server {
		f.roleViolation("Set")
		return
	}
	if f.set(v) {
		f.markDirty()
	}
}

func (f *Vector2Field) set(v Vector2) bool {
	if v == f.value {
		return false
	}
	old := f.value
	f.value = v
	for _, fn := range f.onChange {
		fn(old, v)
	}
	return true
}

func (f *Vector2Field) payload() []byte { return wire.ZipVector2(f.value.X, f.value.Y) }

func (f *Vector2Field) apply(body []byte) bool {
	x, y := wire.UnzipVector2(body)
	return f.set(Vector2{x, y})
}

func (f *Vector2Field) valueString() string { return formatComponents(f.value.X, f.value.Y) }

func (f *Vector2Field) setFromString(s string) error {
	c, err := parseComponents(s, 2)
	if err != nil {
		return err
	}
	f.set(Vector2{c[0], c[1]})
	return nil
}

// Vector3Field replicates a 3-vector with full float32 precision.
type Vector3Field struct {
	baseField
	value    Vector3
	onChange []func(old, new Vector3)
}

func NewVector3Field(id FieldID, server bool, v Vector3) *Vector3Field {
	f := &Vector3Field{value: v}
	f.baseField = makeBase(id, KindVector3, server, f)
	return f
}

func (f *Vector3Field) Value() Vector3 { return f.value }

func (f *Vector3Field) OnChange(fn func(old, new Vector3)) { f.onChange = append(f.onChange, fn) }

func (f *Vector3Field) Set(v Vector3) {
	if !f.server {
		f.roleViolation("Set")
		return
	}
	if f.set(v) {
		f.markDirty()
	}
}

func (f *Vector3Field) set(v Vector3) bool {
	if v == f.value {
		return false
	}
	old := f.value
	f.value = v
	for _, fn := range f.onChange {
		fn(old, v)
	}
	return true
}

func (f *Vector3Field) payload() []byte { return wire.ZipVector3(f.value.X, f.value.Y, f.value.Z) }

func (f *Vector3Field) apply(body []byte) bool {
	x, y, z := wire.UnzipVector3(body)
	return f.set(Vector3{x, y, z})
}

func (f *Vector3Field) valueString() string {
	return formatComponents(f.value.X, f.value.Y, f.value.Z)
}

func (f *Vector3Field) setFromString(s string) error {
	c, err := parseComponents(s, 3)
	if err != nil {
		return err
	}
	f.set(Vector3{c[0], c[1], c[2]})
	return nil
}

// QuaternionField replicates a rotation. The wire payload is the
// smallest-three quantized form (4 bytes, lossy within quantization
// resolution); the saved snapshot keeps full precision.
type QuaternionField struct {
	baseField
	value    Quaternion
	onChange []func(old, new Quaternion)
}

func NewQuaternionField(id FieldID, server bool, v Quaternion) *QuaternionField {
	f := &QuaternionField{value: v}
	f.baseField = makeBase(id, KindQuaternion, server, f)
	return f
}

func (f *QuaternionField) Value() Quaternion { return f.value }

func (f *QuaternionField) OnChange(fn func(old, new Quaternion)) {
	f.onChange = append(f.onChange, fn)
}

func (f *QuaternionField) Set(v Quaternion) {
	if !f.server {
		f.roleViolation("Set")
		return
	}
	if f.set(v) {
		f.markDirty()
	}
}

func (f *QuaternionField) set(v Quaternion) bool {
	if v == f.value {
		return false
	}
	old := f.value
	f.value = v
	for _, fn := range f.onChange {
		fn(old, v)
	}
	return true
}

func (f *QuaternionField) payload() []byte {
	return wire.ZipQuaternion(f.value.X, f.value.Y, f.value.Z, f.value.W)
}

func (f *QuaternionField) apply(body []byte) bool {
	x, y, z, w := wire.UnzipQuaternion(body)
	return f.set(Quaternion{x, y, z, w})
}

func (f *QuaternionField) valueString() string {
	return formatComponents(f.value.X, f.value.Y, f.value.Z, f.value.W)
}

func (f *QuaternionField) setFromString(s string) error {
	c, err := parseComponents(s, 4)
	if err != nil {
		return err
	}
	f.set(Quaternion{c[0], c[1], c[2], c[3]})
	return nil
}
