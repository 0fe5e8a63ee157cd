package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZipUint64(t *testing.T) {
	for _, v := range []uint64{0, 1, 0xff, 0x100, 0xffff, 0x10000, 1 << 40, ^uint64(0)} {
		assert.Equal(t, v, UnzipUint64(ZipUint64(v)))
	}
	assert.Equal(t, 0, len(ZipUint64(0)))
	assert.Equal(t, 1, len(ZipUint64(0xff)))
}

func TestZipInt64(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 127, -128, 1 << 30, -(1 << 30), 1<<62 - 1} {
		assert.Equal(t, v, UnzipInt64(ZipInt64(v)))
	}
	// small magnitudes of either sign pack to one byte
	assert.Equal(t, 1, len(ZipInt64(-1)))
}

func TestZipUint64Pair(t *testing.T) {
	cases := [][2]uint64{{0, 0}, {1, 0}, {1, 2}, {0x1234, 5}, {1 << 33, 1 << 20}, {^uint64(0), ^uint64(0)}}
	for _, c := range cases {
		big, lil := UnzipUint64Pair(ZipUint64Pair(c[0], c[1]))
		assert.Equal(t, c[0], big)
		assert.Equal(t, c[1], lil)
	}
}

func TestZipFloat64(t *testing.T) {
	for _, v := range []float64{0, 1, -1, 3.1415926, 0.5, 1e100, -2.5e-10} {
		assert.Equal(t, v, UnzipFloat64(ZipFloat64(v)))
	}
	// round binary fractions zip short
	assert.LessOrEqual(t, len(ZipFloat64(0.5)), 2)
}

func TestZipVectors(t *testing.T) {
	x, y := UnzipVector2(ZipVector2(1.5, -2.25))
	assert.Equal(t, float32(1.5), x)
	assert.Equal(t, float32(-2.25), y)

	x, y, z := UnzipVector3(ZipVector3(0.1, 2000, -3e-5))
	assert.Equal(t, float32(0.1), x)
	assert.Equal(t, float32(2000), y)
	assert.Equal(t, float32(-3e-5), z)
}

func TestZipQuaternion(t *testing.T) {
	x, y, z, w := UnzipQuaternion(ZipQuaternion(0, 0, 0, 1))
	assert.InDelta(t, 0, x, 2e-3)
	assert.InDelta(t, 0, y, 2e-3)
	assert.InDelta(t, 0, z, 2e-3)
	assert.InDelta(t, 1, w, 2e-3)

	// 90 degrees about Y
	s := float32(0.70710678)
	x, y, z, w = UnzipQuaternion(ZipQuaternion(0, s, 0, s))
	assert.InDelta(t, 0, x, 2e-3)
	assert.InDelta(t, float64(s), y, 2e-3)
	assert.InDelta(t, 0, z, 2e-3)
	assert.InDelta(t, float64(s), w, 2e-3)

	// q and -q are the same rotation
	x2, y2, z2, w2 := UnzipQuaternion(ZipQuaternion(0, -s, 0, -s))
	assert.InDelta(t, float64(y), y2, 2e-3)
	assert.InDelta(t, float64(w), w2, 2e-3)
	assert.InDelta(t, float64(x), x2, 2e-3)
	assert.InDelta(t, float64(z), z2, 2e-3)
}
