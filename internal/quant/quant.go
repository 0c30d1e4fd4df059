// Package quant implements the quantized vector store: lossy/lossless
// encodings of a dense embedding into float32, float16, or int8, plus the
// dot product and base64 wire format used to persist them.
package quant

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/viterin/vek/vek32"
)

// Encoding identifies a StoredVector's on-disk representation.
type Encoding string

const (
	Float32 Encoding = "float32"
	Float16 Encoding = "float16"
	Int8    Encoding = "int8"
)

// StoredVector is a quantized embedding. Only the fields relevant to its
// Encoding are populated: Float32/Float16 use only Raw; Int8 additionally
// carries the affine Scale/Offset computed at encode time.
type StoredVector struct {
	Encoding Encoding
	Dim      int
	Raw      []byte
	Scale    float32
	Offset   float32
}

// Encode quantizes v into the given encoding. v is not modified.
func Encode(v []float32, enc Encoding) (StoredVector, error) {
	switch enc {
	case Float32, "":
		return encodeFloat32(v), nil
	case Float16:
		return encodeFloat16(v), nil
	case Int8:
		return encodeInt8(v), nil
	default:
		return StoredVector{}, fmt.Errorf("quant: unknown encoding %q", enc)
	}
}

// Decode restores a float32 vector from a StoredVector. Decoding is
// deterministic but lossy for Float16 and Int8.
func Decode(sv StoredVector) ([]float32, error) {
	switch sv.Encoding {
	case Float32, "":
		return decodeFloat32(sv), nil
	case Float16:
		return decodeFloat16(sv), nil
	case Int8:
		return decodeInt8(sv), nil
	default:
		return nil, fmt.Errorf("quant: unknown encoding %q", sv.Encoding)
	}
}

// Dot computes the inner product of two stored vectors. When both are
// Float32 it uses vek32's SIMD-accelerated dot product directly; any other
// combination falls back to decode-then-dot.
func Dot(a, b StoredVector) (float32, error) {
	if a.Dim != b.Dim {
		return 0, fmt.Errorf("quant: dimension mismatch: %d vs %d", a.Dim, b.Dim)
	}
	if a.Encoding == Float32 && b.Encoding == Float32 {
		return vek32.Dot(decodeFloat32(a), decodeFloat32(b)), nil
	}
	da, err := Decode(a)
	if err != nil {
		return 0, err
	}
	db, err := Decode(b)
	if err != nil {
		return 0, err
	}
	return vek32.Dot(da, db), nil
}

// ---- float32 ----

func encodeFloat32(v []float32) StoredVector {
	raw := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(x))
	}
	return StoredVector{Encoding: Float32, Dim: len(v), Raw: raw}
}

func decodeFloat32(sv StoredVector) []float32 {
	out := make([]float32, sv.Dim)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(sv.Raw[i*4:]))
	}
	return out
}

// ---- float16 (IEEE-754 binary16) ----

func encodeFloat16(v []float32) StoredVector {
	raw := make([]byte, 2*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint16(raw[i*2:], float32ToFloat16(x))
	}
	return StoredVector{Encoding: Float16, Dim: len(v), Raw: raw}
}

func decodeFloat16(sv StoredVector) []float32 {
	out := make([]float32, sv.Dim)
	for i := range out {
		out[i] = float16ToFloat32(binary.LittleEndian.Uint16(sv.Raw[i*2:]))
	}
	return out
}

// float32ToFloat16 converts with round-to-nearest-even, flushing subnormal
// results (exponent underflow) to signed zero — an acceptable loss given
// the much larger precision cost of halving mantissa width.
func float32ToFloat16(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16((bits >> 16) & 0x8000)
	exp := int32((bits>>23)&0xff) - 127 + 15
	mant := bits & 0x7fffff

	switch {
	case (bits&0x7fffffff) == 0:
		return sign
	case exp >= 0x1f:
		// Overflow or NaN/Inf input: saturate to infinity, preserving NaN.
		if mant != 0 && ((bits>>23)&0xff) == 0xff {
			return sign | 0x7e00
		}
		return sign | 0x7c00
	case exp <= 0:
		// Exponent underflows the 5-bit half-float range: flush to zero.
		return sign
	default:
		// Round-to-nearest-even on the dropped 13 mantissa bits.
		roundBit := mant & 0x1000
		halfMant := uint16(mant >> 13)
		if roundBit != 0 && (mant&0xfff != 0 || halfMant&1 != 0) {
			halfMant++
			if halfMant == 0x400 {
				halfMant = 0
				exp++
				if exp >= 0x1f {
					return sign | 0x7c00
				}
			}
		}
		return sign | uint16(exp<<10) | halfMant
	}
}

func float16ToFloat32(h uint16) float32 {
	sign := uint32(h&0x8000) << 16
	exp := uint32(h>>10) & 0x1f
	mant := uint32(h & 0x3ff)

	switch {
	case exp == 0 && mant == 0:
		return math.Float32frombits(sign)
	case exp == 0:
		// Subnormal half-float: normalize into a float32.
		for mant&0x400 == 0 {
			mant <<= 1
			exp--
		}
		exp++
		mant &= 0x3ff
		bits := sign | ((exp + (127 - 15)) << 23) | (mant << 13)
		return math.Float32frombits(bits)
	case exp == 0x1f:
		if mant == 0 {
			return math.Float32frombits(sign | 0x7f800000)
		}
		return math.Float32frombits(sign | 0x7fc00000)
	default:
		bits := sign | ((exp + (127 - 15)) << 23) | (mant << 13)
		return math.Float32frombits(bits)
	}
}

// ---- int8 (affine per-vector quantization) ----

func encodeInt8(v []float32) StoredVector {
	if len(v) == 0 {
		return StoredVector{Encoding: Int8, Dim: 0, Raw: nil, Scale: 1, Offset: 0}
	}

	min, max := v[0], v[0]
	for _, x := range v[1:] {
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
	}

	scale := (max - min) / 255
	if scale == 0 {
		scale = 1
	}

	raw := make([]byte, len(v))
	for i, x := range v {
		q := int32(math.Round(float64((x-min)/scale))) - 128
		if q < -128 {
			q = -128
		} else if q > 127 {
			q = 127
		}
		raw[i] = byte(int8(q))
	}

	return StoredVector{Encoding: Int8, Dim: len(v), Raw: raw, Scale: scale, Offset: min}
}

func decodeInt8(sv StoredVector) []float32 {
	out := make([]float32, sv.Dim)
	for i, b := range sv.Raw {
		q := float32(int8(b))
		out[i] = (q+128)*sv.Scale + sv.Offset
	}
	return out
}

// ---- wire format ----

// wireHeader is the small JSON metadata blob that precedes the raw byte
// payload for non-float32 encodings, itself preceded by a 2-byte
// little-endian length prefix, per the snapshot wire format.
type wireHeader struct {
	Type   Encoding `json:"type"`
	Scale  float32  `json:"scale,omitempty"`
	Offset float32  `json:"offset,omitempty"`
}

// Marshal renders a StoredVector as the base64 payload used in snapshots.
// Float32 vectors are encoded with no header (the common, fast-path case);
// Float16/Int8 are prefixed with a 2-byte length + JSON metadata header.
func Marshal(sv StoredVector) (string, error) {
	if sv.Encoding == Float32 || sv.Encoding == "" {
		return base64.StdEncoding.EncodeToString(sv.Raw), nil
	}

	header, err := json.Marshal(wireHeader{Type: sv.Encoding, Scale: sv.Scale, Offset: sv.Offset})
	if err != nil {
		return "", fmt.Errorf("quant: marshal header: %w", err)
	}
	if len(header) > math.MaxUint16 {
		return "", fmt.Errorf("quant: header too large: %d bytes", len(header))
	}

	buf := make([]byte, 2+len(header)+len(sv.Raw))
	binary.LittleEndian.PutUint16(buf, uint16(len(header)))
	copy(buf[2:], header)
	copy(buf[2+len(header):], sv.Raw)

	return base64.StdEncoding.EncodeToString(buf), nil
}

// Unmarshal parses a base64 payload produced by Marshal back into a
// StoredVector. dim is the engine's configured dimension, used to
// determine the byte length of a headerless float32 payload.
func Unmarshal(s string, dim int) (StoredVector, error) {
	buf, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return StoredVector{}, fmt.Errorf("quant: decode base64: %w", err)
	}

	// A bare float32 payload is exactly 4*dim bytes; anything shorter (or
	// that fails to parse as one) is a headered non-float32 payload.
	if len(buf) == 4*dim {
		return StoredVector{Encoding: Float32, Dim: dim, Raw: buf}, nil
	}
	if len(buf) < 2 {
		return StoredVector{}, fmt.Errorf("quant: payload too short: %d bytes", len(buf))
	}

	headerLen := int(binary.LittleEndian.Uint16(buf))
	if len(buf) < 2+headerLen {
		return StoredVector{}, fmt.Errorf("quant: truncated header: need %d bytes, have %d", headerLen, len(buf)-2)
	}

	var h wireHeader
	if err := json.Unmarshal(buf[2:2+headerLen], &h); err != nil {
		return StoredVector{}, fmt.Errorf("quant: unmarshal header: %w", err)
	}

	payload := buf[2+headerLen:]
	switch h.Type {
	case Float16:
		if len(payload) != 2*dim {
			return StoredVector{}, fmt.Errorf("quant: float16 payload length %d, want %d", len(payload), 2*dim)
		}
	case Int8:
		if len(payload) != dim {
			return StoredVector{}, fmt.Errorf("quant: int8 payload length %d, want %d", len(payload), dim)
		}
	default:
		return StoredVector{}, fmt.Errorf("quant: unknown encoding tag %q", h.Type)
	}

	return StoredVector{Encoding: h.Type, Dim: dim, Raw: payload, Scale: h.Scale, Offset: h.Offset}, nil
}
