package store

import (
	"github.com/driftsync/driftsync"
	"github.com/driftsync/driftsync/protocol"
	"github.com/driftsync/driftsync/wire"
	"github.com/pkg/errors"
)

// Saved snapshots persist as TLV trees:
//
//	class := C( i(ZipUint64Pair(type,id)) field* class* )
//	field := F( i(ZipUint64(id)) k(kind) S(value) )
//
// Values stay in their string-encoded snapshot form; the store never
// interprets them.

var ErrBadSnapshot = errors.New("bad stored snapshot")

func takeClassBody(rec []byte) (body, rest []byte) {
	return protocol.Take('C', rec)
}

func appendSavedField(into []byte, sf driftsync.SavedField) []byte {
	body := protocol.TinyRecord('I', wire.ZipUint64(uint64(sf.ID)))
	body = append(body, protocol.TinyRecord('K', []byte{sf.Kind})...)
	body = append(body, protocol.Record('S', []byte(sf.Value))...)
	return protocol.Append(into, 'F', body)
}

func appendSavedClass(into []byte, sc *driftsync.SavedClass) []byte {
	bm, buf := protocol.OpenHeader(into, 'C')
	pair := wire.ZipUint64Pair(uint64(uint32(sc.Type)), uint64(uint32(sc.ID)))
	buf = append(buf, protocol.TinyRecord('I', pair)...)
	for _, sf := range sc.Fields {
		buf = appendSavedField(buf, sf)
	}
	for _, child := range sc.Classes {
		buf = appendSavedClass(buf, child)
	}
	protocol.CloseHeader(buf, bm)
	return buf
}

func parseSavedField(body []byte) (sf driftsync.SavedField, err error) {
	idz, rest := protocol.Take('I', body)
	if idz == nil && len(body) > 0 {
		return sf, ErrBadSnapshot
	}
	kindb, rest := protocol.Take('K', rest)
	if len(kindb) != 1 {
		return sf, ErrBadSnapshot
	}
	val, _ := protocol.Take('S', rest)
	sf.ID = driftsync.FieldID(wire.UnzipUint64(idz))
	sf.Kind = kindb[0]
	sf.Value = string(val)
	return sf, nil
}

func parseSavedClass(body []byte) (*driftsync.SavedClass, error) {
	pair, rest := protocol.Take('I', body)
	if pair == nil && len(body) > 0 {
		return nil, ErrBadSnapshot
	}
	t, id := wire.UnzipUint64Pair(pair)
	sc := &driftsync.SavedClass{Type: int32(uint32(t)), ID: int32(uint32(id))}
	for len(rest) > 0 {
		lit, rec, r := protocol.TakeAny(rest)
		if rec == nil && r == nil {
			return nil, ErrBadSnapshot
		}
		rest = r
		switch lit {
		case 'F':
			sf, err := parseSavedField(rec)
			if err != nil {
				return nil, err
			}
			sc.Fields = append(sc.Fields, sf)
		case 'C':
			child, err := parseSavedClass(rec)
			if err != nil {
				return nil, err
			}
			sc.Classes = append(sc.Classes, child)
		default:
			return nil, errors.Wrapf(ErrBadSnapshot, "unexpected record %c", lit)
		}
	}
	return sc, nil
}

func appendSavedFields(into []byte, sfs []driftsync.SavedField) []byte {
	for _, sf := range sfs {
		into = appendSavedField(into, sf)
	}
	return into
}

func parseSavedFields(body []byte) (sfs []driftsync.SavedField, err error) {
	rest := body
	for len(rest) > 0 {
		var rec []byte
		rec, rest = protocol.Take('F', rest)
		if rec == nil {
			return nil, ErrBadSnapshot
		}
		sf, e := parseSavedField(rec)
		if e != nil {
			return nil, e
		}
		sfs = append(sfs, sf)
	}
	return
}
