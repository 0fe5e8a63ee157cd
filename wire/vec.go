package wire

import (
	"encoding/binary"
	"math"
)

// Fixed-width float32 component encodings for vector payloads, plus the
// smallest-three quantized quaternion used for replicated rotations.

func ZipVector2(x, y float32) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(x))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(y))
	return buf[:]
}

func UnzipVector2(zip []byte) (x, y float32) {
	if len(zip) != 8 {
		return
	}
	x = math.Float32frombits(binary.LittleEndian.Uint32(zip[0:4]))
	y = math.Float32frombits(binary.LittleEndian.Uint32(zip[4:8]))
	return
}

func ZipVector3(x, y, z float32) []byte {
	var buf [12]byte
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(x))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(y))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(z))
	return buf[:]
}

func UnzipVector3(zip []byte) (x, y, z float32) {
	if len(zip) != 12 {
		return
	}
	x = math.Float32frombits(binary.LittleEndian.Uint32(zip[0:4]))
	y = math.Float32frombits(binary.LittleEndian.Uint32(zip[4:8]))
	z = math.Float32frombits(binary.LittleEndian.Uint32(zip[8:12]))
	return
}

// quatBits is the per-component resolution of the smallest-three packing.
const quatBits = 10

const quatMax = 0.70710678 // 1/sqrt(2), the bound on the three smallest

// ZipQuaternion packs a unit quaternion into 4 bytes: 2 bits for the
// index of the largest-magnitude component, 10 bits for each of the
// remaining three. The largest component is reconstructed from the unit
// norm; q and -q encode the same rotation, so its sign is normalized away.
func ZipQuaternion(x, y, z, w float32) []byte {
	q := [4]float32{x, y, z, w}
	big := 0
	for i := 1; i < 4; i++ {
		if abs32(q[i]) > abs32(q[big]) {
			big = i
		}
	}
	if q[big] < 0 {
		for i := range q {
			q[i] = -q[i]
		}
	}
	var packed uint32 = uint32(big)
	for i := 0; i < 4; i++ {
		if i == big {
			continue
		}
		packed = (packed << quatBits) | quantize(q[i])
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], packed)
	return buf[:]
}

func UnzipQuaternion(zip []byte) (x, y, z, w float32) {
	if len(zip) != 4 {
		return 0, 0, 0, 1
	}
	packed := binary.LittleEndian.Uint32(zip)
	mask := uint32(1<<quatBits) - 1
	var rest [3]float32
	for i := 2; i >= 0; i-- {
		rest[i] = dequantize(packed & mask)
		packed >>= quatBits
	}
	big := int(packed & 3)
	sum := rest[0]*rest[0] + rest[1]*rest[1] + rest[2]*rest[2]
	bigval := float32(0)
	if sum < 1 {
		bigval = float32(math.Sqrt(float64(1 - sum)))
	}
	var q [4]float32
	j := 0
	for i := 0; i < 4; i++ {
		if i == big {
			q[i] = bigval
		} else {
			q[i] = rest[j]
			j++
		}
	}
	return q[0], q[1], q[2], q[3]
}

func quantize(v float32) uint32 {
	if v > quatMax {
		v = quatMax
	} else if v < -quatMax {
		v = -quatMax
	}
	scaled := (float64(v)/quatMax + 1) / 2 * float64((1<<quatBits)-1)
	return uint32(scaled + 0.5)
}

func dequantize(u uint32) float32 {
	norm := float64(u)/float64((1<<quatBits)-1)*2 - 1
	return float32(norm * quatMax)
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
