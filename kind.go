package driftsync

// Field kind tags. A kind doubles as the TLV record tag of the field's
// value payload, so it must be an uppercase letter.
const (
	KindBool       byte = 'B'
	KindByte       byte = 'U'
	KindInt        byte = 'I'
	KindLong       byte = 'L'
	KindFloat      byte = 'F'
	KindDouble     byte = 'D'
	KindString     byte = 'S'
	KindVector2    byte = 'V'
	KindVector3    byte = 'W'
	KindQuaternion byte = 'Q'
)

func KindValid(kind byte) bool {
	switch kind {
	case KindBool, KindByte, KindInt, KindLong, KindFloat, KindDouble,
		KindString, KindVector2, KindVector3, KindQuaternion:
		return true
	}
	return false
}

// newFieldOfKind is the kind-to-constructor table used when the observer
// side meets a field it has never seen. Returns nil for unknown kinds.
func newFieldOfKind(kind byte, id FieldID, server bool) Field {
	switch kind {
	case KindBool:
		return NewBoolField(id, server, false)
	case KindByte:
		return NewByteField(id, server, 0)
	case KindInt:
		return NewIntField(id, server, 0)
	case KindLong:
		return NewLongField(id, server, 0)
	case KindFloat:
		return NewFloatField(id, server, 0)
	case KindDouble:
		return NewDoubleField(id, server, 0)
	case KindString:
		return NewStringField(id, server, "")
	case KindVector2:
		return NewVector2Field(id, server, Vector2{})
	case KindVector3:
		return NewVector3Field(id, server, Vector3{})
	case KindQuaternion:
		return NewQuaternionField(id, server, Quaternion{W: 1})
	}
	return nil
}
