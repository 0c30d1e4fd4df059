package cache

import (
	"encoding/binary"
	"fmt"
	"math"
)

// encodeFloat32LE packs a float32 vector into little-endian bytes, the
// same raw layout quant.Encode uses for the Float32 encoding.
func encodeFloat32LE(v []float32) ([]byte, error) {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf, nil
}

// decodeFloat32LE is the inverse of encodeFloat32LE.
func decodeFloat32LE(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("cache: vector byte length %d not divisible by 4", len(buf))
	}
	out := make([]float32, len(buf)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out, nil
}
