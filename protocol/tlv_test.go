package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTLVAppend(t *testing.T) {
	buf := []byte{}
	buf = Append(buf, 'A', []byte{'A'})
	buf = Append(buf, 'b', []byte{'B', 'B'})
	correct := []byte{'a', 1, 'A', '2', 'B', 'B'}
	assert.Equal(t, correct, buf)

	var c256 [256]byte
	for n := range c256 {
		c256[n] = 'c'
	}
	buf = Append(buf, 'C', c256[:])
	assert.Equal(t, len(correct)+1+4+len(c256), len(buf))
	assert.Equal(t, uint8('C'), buf[len(correct)])

	lit, body, buf, err := TakeAnyWary(buf)
	assert.Nil(t, err)
	assert.Equal(t, uint8('A'), lit)
	assert.Equal(t, []byte{'A'}, body)

	body2, _, err2 := TakeWary('B', buf)
	assert.Nil(t, err2)
	assert.Equal(t, []byte{'B', 'B'}, body2)
}

func TestTLVOpenClose(t *testing.T) {
	buf := []byte{}
	bm, buf := OpenHeader(buf, 'A')
	text := "some text"
	buf = append(buf, text...)
	CloseHeader(buf, bm)
	lit, body, rest, err := TakeAnyWary(buf)
	assert.Nil(t, err)
	assert.Equal(t, uint8('A'), lit)
	assert.Equal(t, text, string(body))
	assert.Equal(t, 0, len(rest))
}

func TestTLVTinyRecord(t *testing.T) {
	tiny := TinyRecord('X', []byte("12"))
	assert.Equal(t, "212", string(tiny))
	body, rest := Take('X', tiny)
	assert.Equal(t, "12", string(body))
	assert.Equal(t, 0, len(rest))
}

func TestTLVSplit(t *testing.T) {
	whole := Join(Record('D', []byte("delta")), Record('O', []byte("full")))
	buf := bytes.NewBuffer(whole[:len(whole)-2]) // chop the tail
	recs, err := Split(buf)
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.Equal(t, 1, len(recs))
	assert.Equal(t, uint8('D'), Lit(recs[0]))
}

func TestTLVBadRecord(t *testing.T) {
	_, _, _, err := TakeAnyWary([]byte{'!', 'x'})
	assert.ErrorIs(t, err, ErrBadRecord)
}
