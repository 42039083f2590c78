package erd

import (
	"fmt"
)

// Integer codec constants.
const (
	// byteShift is the bit shift for byte extraction.
	byteShift = 8

	// maxIntBytes is the widest integer the codec handles.
	maxIntBytes = 8
)

// ReadField extracts the bytes of field f from payload.
//
// For a bitfield the result is the single first byte of the range with
// every bit outside the field cleared; the bits stay in position.
//
// Parameters:
//   - payload: Full element payload
//   - f: Field to extract
//
// Returns:
//   - []byte: A copy of the field bytes
//   - error: ErrMalformedPayload if payload is shorter than the field range
func ReadField(payload []byte, f *Field) ([]byte, error) {
	if f.Offset < 0 || len(payload) < f.End() {
		return nil, fmt.Errorf("%w: field %q needs %d bytes, payload has %d",
			ErrMalformedPayload, f.Name, f.End(), len(payload))
	}

	if f.Bits != nil {
		return []byte{payload[f.Offset] & f.Bits.Mask()}, nil
	}

	out := make([]byte, f.Size)
	copy(out, payload[f.Offset:f.End()])
	return out, nil
}

// WriteField returns a copy of payload with the byte range of f replaced by value.
//
// Bitfields replace the whole byte; merging with neighbouring bits is the
// caller's job. The input payload is not modified.
//
// Returns:
//   - []byte: New payload
//   - error: ErrValueSize if len(value) != f.Size, ErrMalformedPayload if payload is short
func WriteField(payload []byte, f *Field, value []byte) ([]byte, error) {
	if len(value) != f.Size {
		return nil, fmt.Errorf("%w: field %q is %d bytes, got %d", ErrValueSize, f.Name, f.Size, len(value))
	}
	if f.Offset < 0 || len(payload) < f.End() {
		return nil, fmt.Errorf("%w: field %q needs %d bytes, payload has %d",
			ErrMalformedPayload, f.Name, f.End(), len(payload))
	}

	out := make([]byte, len(payload))
	copy(out, payload)
	copy(out[f.Offset:f.End()], value)
	return out, nil
}

// DecodeUnsigned interprets b as a big-endian unsigned integer.
// Bytes beyond the eighth are shifted out.
func DecodeUnsigned(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<byteShift | uint64(c)
	}
	return v
}

// DecodeSigned interprets b as a big-endian two's complement integer of
// width len(b).
func DecodeSigned(b []byte) int64 {
	if len(b) == 0 {
		return 0
	}
	if len(b) >= maxIntBytes {
		return int64(DecodeUnsigned(b)) //nolint:gosec // two's complement reinterpretation
	}

	v := DecodeUnsigned(b)
	bits := uint(len(b) * byteShift)
	if v&(1<<(bits-1)) != 0 {
		v |= ^uint64(0) << bits
	}
	return int64(v) //nolint:gosec // sign already extended
}

// DecodeInt decodes b as signed or unsigned. Unsigned 8-byte values above
// the int64 range wrap.
func DecodeInt(b []byte, signed bool) int64 {
	if signed {
		return DecodeSigned(b)
	}
	return int64(DecodeUnsigned(b)) //nolint:gosec // documented wrap
}

// EncodeInt encodes v as a big-endian integer of size bytes.
//
// Parameters:
//   - v: Value to encode
//   - size: Output width in bytes (1-8)
//   - signed: Encode as two's complement
//
// Returns:
//   - []byte: Encoded value
//   - error: ErrValueOutOfRange if v does not fit
func EncodeInt(v int64, size int, signed bool) ([]byte, error) {
	if size <= 0 || size > maxIntBytes {
		return nil, fmt.Errorf("%w: unsupported width %d", ErrValueSize, size)
	}

	lo, hi := IntRange(size, signed)
	if signed || size < maxIntBytes {
		if v < lo || v > hi {
			return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrValueOutOfRange, v, lo, hi)
		}
	} else if v < 0 {
		return nil, fmt.Errorf("%w: %d is negative", ErrValueOutOfRange, v)
	}

	out := make([]byte, size)
	u := uint64(v) //nolint:gosec // two's complement bit pattern intended
	for i := size - 1; i >= 0; i-- {
		out[i] = byte(u)
		u >>= byteShift
	}
	return out, nil
}

// IntRange returns the inclusive bounds of an integer of size bytes.
// The unsigned 8-byte upper bound is clamped to the int64 maximum.
func IntRange(size int, signed bool) (lo, hi int64) {
	if size <= 0 {
		return 0, 0
	}
	if size >= maxIntBytes {
		if signed {
			return -1 << 63, 1<<63 - 1
		}
		return 0, 1<<63 - 1
	}

	bits := uint(size * byteShift)
	if signed {
		return -(1 << (bits - 1)), 1<<(bits-1) - 1
	}
	return 0, 1<<bits - 1
}

// TypeRange returns the bounds implied by an integer field type, ignoring
// the declared field size. Non-integer types return the unsigned byte range.
func TypeRange(t FieldType) (lo, hi int64) {
	switch t {
	case TypeI8:
		return IntRange(1, true)
	case TypeI16:
		return IntRange(2, true)
	case TypeI32:
		return IntRange(4, true)
	case TypeI64:
		return IntRange(8, true)
	case TypeU16:
		return IntRange(2, false)
	case TypeU32:
		return IntRange(4, false)
	case TypeU64:
		return IntRange(8, false)
	default:
		return IntRange(1, false)
	}
}
