package erd

import (
	"fmt"
	"sort"
)

// FieldType is the declared value type of a field.
type FieldType string

// Field types understood by the codec.
const (
	TypeU8     FieldType = "u8"
	TypeU16    FieldType = "u16"
	TypeU32    FieldType = "u32"
	TypeU64    FieldType = "u64"
	TypeI8     FieldType = "i8"
	TypeI16    FieldType = "i16"
	TypeI32    FieldType = "i32"
	TypeI64    FieldType = "i64"
	TypeString FieldType = "string"
	TypeRaw    FieldType = "raw"
	TypeBool   FieldType = "bool"
	TypeEnum   FieldType = "enum"
)

// validFieldTypes lists all recognised field types.
var validFieldTypes = map[FieldType]bool{
	TypeU8: true, TypeU16: true, TypeU32: true, TypeU64: true,
	TypeI8: true, TypeI16: true, TypeI32: true, TypeI64: true,
	TypeString: true, TypeRaw: true, TypeBool: true, TypeEnum: true,
}

// IsSigned reports whether values of this type decode as two's complement.
func (t FieldType) IsSigned() bool {
	switch t {
	case TypeI8, TypeI16, TypeI32, TypeI64:
		return true
	default:
		return false
	}
}

// IsInteger reports whether the type is one of the fixed-width integers.
func (t FieldType) IsInteger() bool {
	switch t {
	case TypeU8, TypeU16, TypeU32, TypeU64, TypeI8, TypeI16, TypeI32, TypeI64:
		return true
	default:
		return false
	}
}

// Operations an element may declare.
const (
	OpRead  = "read"
	OpWrite = "write"
)

// maxBits is the width of the byte a bitfield lives in.
const maxBits = 8

// Bits locates a bitfield within the first byte of a field's range.
// Offset 0 is the most significant bit.
type Bits struct {
	Offset int `json:"offset" yaml:"offset"`
	Size   int `json:"size" yaml:"size"`
}

// Mask returns the mask selecting the bitfield inside its byte.
func (b Bits) Mask() byte {
	return byte(((1 << b.Size) - 1) << (maxBits - b.Offset - b.Size))
}

// Field is one typed slice of an element payload.
type Field struct {
	Name   string           `json:"name"`
	Type   FieldType        `json:"type"`
	Offset int              `json:"offset"`
	Size   int              `json:"size"`
	Bits   *Bits            `json:"bits,omitempty"`
	Values map[int64]string `json:"values,omitempty"`
}

// End returns the exclusive end of the field's byte range.
func (f *Field) End() int {
	return f.Offset + f.Size
}

// Label returns the enumeration label for code.
func (f *Field) Label(code int64) (string, bool) {
	label, ok := f.Values[code]
	return label, ok
}

// Codes returns the enumeration codes in ascending order.
func (f *Field) Codes() []int64 {
	codes := make([]int64, 0, len(f.Values))
	for code := range f.Values {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// Code returns the enumeration code for label.
func (f *Field) Code(label string) (int64, bool) {
	for code, l := range f.Values {
		if l == label {
			return code, true
		}
	}
	return 0, false
}

// Definition describes the layout of one element.
type Definition struct {
	ID         ID       `json:"id"`
	Name       string   `json:"name"`
	Operations []string `json:"operations"`
	Fields     []Field  `json:"data"`
}

// Readable reports whether the element declares the read operation.
func (d *Definition) Readable() bool {
	return d.hasOp(OpRead)
}

// Writable reports whether the element declares the write operation.
func (d *Definition) Writable() bool {
	return d.hasOp(OpWrite)
}

func (d *Definition) hasOp(op string) bool {
	for _, o := range d.Operations {
		if o == op {
			return true
		}
	}
	return false
}

// Field returns the first field with the given name.
func (d *Definition) Field(name string) (*Field, bool) {
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			return &d.Fields[i], true
		}
	}
	return nil, false
}

// SharesName reports whether another field of the element has f's name.
// Such fields are told apart by their byte offset.
func (d *Definition) SharesName(f *Field) bool {
	for i := range d.Fields {
		other := &d.Fields[i]
		if other.Name == f.Name && other.Offset != f.Offset {
			return true
		}
	}
	return false
}

// fieldKey identifies a field within its element.
type fieldKey struct {
	name   string
	offset int
}

// Validate checks the field layout. Field names may repeat within an
// element only at different byte offsets.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: %s: name is required", ErrInvalidDefinition, d.ID)
	}
	seen := make(map[fieldKey]bool, len(d.Fields))
	for i := range d.Fields {
		f := &d.Fields[i]
		if f.Name == "" {
			return fmt.Errorf("%w: %s: field %d has no name", ErrInvalidDefinition, d.ID, i)
		}
		key := fieldKey{f.Name, f.Offset}
		if seen[key] {
			return fmt.Errorf("%w: %s: field %q repeated at offset %d", ErrInvalidDefinition, d.ID, f.Name, f.Offset)
		}
		seen[key] = true
		if !validFieldTypes[f.Type] {
			return fmt.Errorf("%w: %s: field %q has unknown type %q", ErrInvalidDefinition, d.ID, f.Name, f.Type)
		}
		if f.Offset < 0 || f.Size <= 0 {
			return fmt.Errorf("%w: %s: field %q has invalid range", ErrInvalidDefinition, d.ID, f.Name)
		}
		if f.Type.IsInteger() && f.Bits == nil && f.Size > 8 {
			return fmt.Errorf("%w: %s: field %q wider than 8 bytes", ErrInvalidDefinition, d.ID, f.Name)
		}
		if b := f.Bits; b != nil {
			if b.Offset < 0 || b.Size <= 0 || b.Offset+b.Size > maxBits {
				return fmt.Errorf("%w: %s: field %q bits %d+%d exceed one byte",
					ErrInvalidDefinition, d.ID, f.Name, b.Offset, b.Size)
			}
		}
	}
	return nil
}

// Store is an immutable set of element definitions.
//
// Thread Safety:
//   - A Store is never modified after construction and is safe for concurrent reads.
type Store struct {
	defs map[ID]*Definition
}

// NewStore validates defs and indexes them by ID.
// A duplicate ID or an invalid layout fails the whole set.
func NewStore(defs ...Definition) (*Store, error) {
	s := &Store{defs: make(map[ID]*Definition, len(defs))}
	for i := range defs {
		d := defs[i]
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := s.defs[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate definition %s", ErrInvalidDefinition, d.ID)
		}
		s.defs[d.ID] = &d
	}
	return s, nil
}

// Lookup returns the definition for id.
// The returned definition must not be modified.
func (s *Store) Lookup(id ID) (*Definition, bool) {
	if s == nil {
		return nil, false
	}
	d, ok := s.defs[id]
	return d, ok
}

// Field returns the named field of element id.
func (s *Store) Field(id ID, name string) (*Field, error) {
	d, ok := s.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDefinitionNotFound, id)
	}
	f, ok := d.Field(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s %q", ErrFieldNotFound, id, name)
	}
	return f, nil
}

// Len returns the number of definitions.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.defs)
}

// IDs returns all defined element identifiers in ascending order.
func (s *Store) IDs() []ID {
	if s == nil {
		return nil
	}
	ids := make([]ID, 0, len(s.defs))
	for id := range s.defs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
