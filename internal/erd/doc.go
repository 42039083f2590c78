// Package erd describes appliance data elements (ERDs) and converts their
// payloads to and from typed field values.
//
// An ERD is a numbered protocol element published by an appliance. Its
// payload is an opaque byte string whose layout is given by a Definition:
// an ordered list of Fields, each a byte range within the payload with an
// optional sub-byte bitfield and, for enumerations, a code to label table.
//
// # Key Types
//
//   - ID: 16-bit element identifier ("0x0092")
//   - Definition: name, operations and field layout of one element
//   - Field: one typed slice of a payload
//   - Store: immutable set of definitions, loaded once at startup
//
// # Field Codec
//
// ReadField and WriteField slice and splice payload bytes. Bitfields are
// numbered from the most significant bit: a field with Bits{Offset: 0,
// Size: 1} reads mask 0x80 of the first byte of its range.
//
//	raw, err := erd.ReadField(payload, field)
//	v := erd.DecodeSigned(raw)
//
// Integers are big-endian. Signed decoding is two's complement over the
// field width.
package erd
