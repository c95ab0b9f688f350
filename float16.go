package frcnn

import (
	"encoding/binary"

	"github.com/x448/float16"
)

var f16LookupTable [65536]float32

func init() {
	// precompute float16 lookup table for faster conversion to float32
	for i := range f16LookupTable {
		f16 := float16.Frombits(uint16(i))
		f16LookupTable[i] = f16.Float32()
	}
}

// float16BytesToFloat32 converts a little endian buffer of IEEE half
// precision values into float32
func float16BytesToFloat32(buf []byte) []float32 {

	out := make([]float32, len(buf)/2)

	for i := range out {
		out[i] = f16LookupTable[binary.LittleEndian.Uint16(buf[i*2:])]
	}

	return out
}

// float32ToFloat16Bytes converts float32 values into a little endian buffer
// of IEEE half precision values
func float32ToFloat16Bytes(data []float32) []byte {

	out := make([]byte, len(data)*2)

	for i, v := range data {
		binary.LittleEndian.PutUint16(out[i*2:], float16.Fromfloat32(v).Bits())
	}

	return out
}
