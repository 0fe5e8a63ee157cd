package driftsync

// BoolField replicates a bool.
type BoolField struct {
	baseField
	value    bool
	onChange []func(old, new bool)
}

func NewBoolField(id FieldID, server bool, v bool) *BoolField {
	f := &BoolField{value: v}
	f.baseField = makeBase(id, KindBool, server, f)
	return f
}

func (f *BoolField) Value() bool { return f.value }

func (f *BoolField) OnChange(fn func(old, new bool)) { f.onChange = append(f.onChange, fn) }

func (f *BoolField) Set(v bool) {
	if !f.server {
		f.roleViolation("Set")
		return
	}
	if f.set(v) {
		f.markDirty()
	}
}

func (f *BoolField) set(v bool) bool {
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

// false is a zero-length payload, true a single byte.
func (f *BoolField) payload() []byte {
	if f.value {
		return []byte{1}
	}
	return nil
}

func (f *BoolField) apply(body []byte) bool {
	return f.set(len(body) > 0 && body[0] != 0)
}

func (f *BoolField) valueString() string {
	if f.value {
		return "true"
	}
	return "false"
}

func (f *BoolField) setFromString(s string) error {
	switch s {
	case "true", "1":
		f.set(true)
	case "false", "0":
		f.set(false)
	default:
		return ErrBadSavedValue
	}
	return nil
}

// StringField replicates a string.
type StringField struct {
	baseField
	value    string
	onChange []func(old, new string)
}

func NewStringField(id FieldID, server bool, v string) *StringField {
	f := &StringField{value: v}
	f.baseField = makeBase(id, KindString, server, f)
	return f
}

func (f *StringField) Value() string { return f.value }

func (f *StringField) OnChange(fn func(old, new string)) { f.onChange = append(f.onChange, fn) }

func (f *StringField) Set(v string) {
	if !f.server {
		f.roleViolation("Set")
		return
	}
	if f.set(v) {
		f.markDirty()
	}
}

func (f *StringField) set(v string) bool {
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

func (f *StringField) payload() []byte { return []byte(f.value) }

func (f *StringField) apply(body []byte) bool { return f.set(string(body)) }

func (f *StringField) valueString() string { return f.value }

func (f *StringField) setFromString(s string) error {
	f.set(s)
	return nil
}
