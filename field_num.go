package driftsync

import (
	"strconv"

	"github.com/driftsync/driftsync/wire"
)

// ModifyType is the tiny replicated-stat DSL: how a Modify delta is
// combined with the current value.
type ModifyType byte

const (
	ModifySet        ModifyType = iota // v
	ModifyAdd                          // cur + v
	ModifyPercent                      // cur * v
	ModifyPercentAdd                   // cur + cur*v
)

type number interface {
	~uint8 | ~int32 | ~int64 | ~float32 | ~float64
}

func modified[T number](cur, v T, mt ModifyType) T {
	switch mt {
	case ModifySet:
		return v
	case ModifyAdd:
		return cur + v
	case ModifyPercent:
		return cur * v
	case ModifyPercentAdd:
		return cur + cur*v
	}
	return cur
}

// ByteField replicates a uint8.
type ByteField struct {
	baseField
	value    uint8
	onChange []func(old, new uint8)
}

func NewByteField(id FieldID, server bool, v uint8) *ByteField {
	f := &ByteField{value: v}
	f.baseField = makeBase(id, KindByte, server, f)
	return f
}

func (f *ByteField) Value() uint8 { return f.value }

func (f *ByteField) OnChange(fn func(old, new uint8)) { f.onChange = append(f.onChange, fn) }

func (f *ByteField) Set(v uint8) {
	if !f.server {
		f.roleViolation("Set")
		return
	}
	if f.set(v) {
		f.markDirty()
	}
}

func (f *ByteField) Modify(v uint8, mt ModifyType) {
	f.Set(modified(f.value, v, mt))
}

func (f *ByteField) set(v uint8) bool {
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

func (f *ByteField) payload() []byte { return wire.ZipUint64(uint64(f.value)) }

func (f *ByteField) apply(body []byte) bool { return f.set(uint8(wire.UnzipUint64(body))) }

func (f *ByteField) valueString() string { return strconv.FormatUint(uint64(f.value), 10) }

func (f *ByteField) setFromString(s string) error {
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return err
	}
	f.set(uint8(v))
	return nil
}

// IntField replicates an int32.
type IntField struct {
	baseField
	value    int32
	onChange []func(old, new int32)
}

func NewIntField(id FieldID, server bool, v int32) *IntField {
	f := &IntField{value: v}
	f.baseField = makeBase(id, KindInt, server, f)
	return f
}

func (f *IntField) Value() int32 { return f.value }

func (f *IntField) OnChange(fn func(old, new int32)) { f.onChange = append(f.onChange, fn) }

func (f *IntField) Set(v int32) {
	if !f.server {
		f.roleViolation("Set")
		return
	}
	if f.set(v) {
		f.markDirty()
	}
}

func (f *IntField) Modify(v int32, mt ModifyType) {
	f.Set(modified(f.value, v, mt))
}

func (f *IntField) set(v int32) bool {
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

func (f *IntField) payload() []byte { return wire.ZipInt64(int64(f.value)) }

func (f *IntField) apply(body []byte) bool { return f.set(int32(wire.UnzipInt64(body))) }

func (f *IntField) valueString() string { return strconv.FormatInt(int64(f.value), 10) }

func (f *IntField) setFromString(s string) error {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return err
	}
	f.set(int32(v))
	return nil
}

// LongField replicates an int64.
type LongField struct {
	baseField
	value    int64
	onChange []func(old, new int64)
}

func NewLongField(id FieldID, server bool, v int64) *LongField {
	f := &LongField{value: v}
	f.baseField = makeBase(id, KindLong, server, f)
	return f
}

func (f *LongField) Value() int64 { return f.value }

func (f *LongField) OnChange(fn func(old, new int64)) { f.onChange = append(f.onChange, fn) }

func (f *LongField) Set(v int64) {
	if !f.server {
		f.roleViolation("Set")
		return
	}
	if f.set(v) {
		f.markDirty()
	}
}

func (f *LongField) Modify(v int64, mt ModifyType) {
	f.Set(modified(f.value, v, mt))
}

func (f *LongField) set(v int64) bool {
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

func (f *LongField) payload() []byte { return wire.ZipInt64(f.value) }

func (f *LongField) apply(body []byte) bool { return f.set(wire.UnzipInt64(body)) }

func (f *LongField) valueString() string { return strconv.FormatInt(f.value, 10) }

func (f *LongField) setFromString(s string) error {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	f.set(v)
	return nil
}

// FloatField replicates a float32.
type FloatField struct {
	baseField
	value    float32
	onChange []func(old, new float32)
}

func NewFloatField(id FieldID, server bool, v float32) *FloatField {
	f := &FloatField{value: v}
	f.baseField = makeBase(id, KindFloat, server, f)
	return f
}

func (f *FloatField) Value() float32 { return f.value }

func (f *FloatField) OnChange(fn func(old, new float32)) { f.onChange = append(f.onChange, fn) }

func (f *FloatField) Set(v float32) {
	if !f.server {
		f.roleViolation("Set")
		return
	}
	if f.set(v) {
		f.markDirty()
	}
}

func (f *FloatField) Modify(v float32, mt ModifyType) {
	f.Set(modified(f.value, v, mt))
}

func (f *FloatField) set(v float32) bool {
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

func (f *FloatField) payload() []byte { return wire.ZipFloat64(float64(f.value)) }

func (f *FloatField) apply(body []byte) bool { return f.set(float32(wire.UnzipFloat64(body))) }

func (f *FloatField) valueString() string {
	return strconv.FormatFloat(float64(f.value), 'g', -1, 32)
}

func (f *FloatField) setFromString(s string) error {
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return err
	}
	f.set(float32(v))
	return nil
}

// DoubleField replicates a float64.
type DoubleField struct {
	baseField
	value    float64
	onChange []func(old, new float64)
}

func NewDoubleField(id FieldID, server bool, v float64) *DoubleField {
	f := &DoubleField{value: v}
	f.baseField = makeBase(id, KindDouble, server, f)
	return f
}

func (f *DoubleField) Value() float64 { return f.value }

func (f *DoubleField) OnChange(fn func(old, new float64)) { f.onChange = append(f.onChange, fn) }

func (f *DoubleField) Set(v float64) {
	if !f.server {
		f.roleViolation("Set")
		return
	}
	if f.set(v) {
		f.markDirty()
	}
}

func (f *DoubleField) Modify(v float64, mt ModifyType) {
	f.Set(modified(f.value, v, mt))
}

func (f *DoubleField) set(v float64) bool {
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

func (f *DoubleField) payload() []byte { return wire.ZipFloat64(f.value) }

func (f *DoubleField) apply(body []byte) bool { return f.set(wire.UnzipFloat64(body)) }

func (f *DoubleField) valueString() string {
	return strconv.FormatFloat(f.value, 'g', -1, 64)
}

func (f *DoubleField) setFromString(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	f.set(v)
	return nil
}
