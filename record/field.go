package record

import (
	"fmt"
	"strings"

	"github.com/joshuapare/structkit/internal/buf"
	"github.com/joshuapare/structkit/record/bitfield"
)

// Kind identifies the primitive layout of a field.
type Kind uint8

const (
	Int8     Kind = iota + 1 // signed 1-byte integer
	Uint8                    // unsigned 1-byte integer
	Int16                    // signed 2-byte integer
	Uint16                   // unsigned 2-byte integer
	Int32                    // signed 4-byte integer
	Uint32                   // unsigned 4-byte integer
	Int64                    // signed 8-byte integer
	Uint64                   // unsigned 8-byte integer
	Bitfield                 // mask of a bitfield.Enum, in the enum's width
	Struct                   // nested schema stored in place
	Array                    // fixed count of one element kind
)

var kindNames = map[Kind]string{
	Int8:     "int8",
	Uint8:    "uint8",
	Int16:    "int16",
	Uint16:   "uint16",
	Int32:    "int32",
	Uint32:   "uint32",
	Int64:    "int64",
	Uint64:   "uint64",
	Bitfield: "bitfield",
	Struct:   "struct",
	Array:    "array",
}

// String returns the lower-case kind name used in schema files.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// KindByName maps the names printed by Kind.String back to scalar kinds.
func KindByName(name string) (Kind, bool) {
	for k, s := range kindNames {
		if s == name {
			return k, true
		}
	}
	return 0, false
}

// Scalar reports whether k is a plain integer kind.
func (k Kind) Scalar() bool { return k >= Int8 && k <= Uint64 }

// Signed reports whether k is a signed integer kind.
func (k Kind) Signed() bool {
	return k == Int8 || k == Int16 || k == Int32 || k == Int64
}

func (k Kind) scalarWidth() int {
	switch k {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32:
		return 4
	case Int64, Uint64:
		return 8
	}
	return 0
}

// Field describes one member of a fixed layout. Build fields with the
// constructor functions and pass them to Register; the registered schema
// hands out *Field handles that carry the resolved offset.
type Field struct {
	name   string
	kind   Kind
	enum   *bitfield.Enum
	nested *Schema
	elem   *Field
	count  int

	// resolved by Register
	offset int
	width  int
	owner  *Schema
}

func scalar(name string, k Kind) Field { return Field{name: name, kind: k} }

// Int8Field declares a signed 1-byte field.
func Int8Field(name string) Field { return scalar(name, Int8) }

// Uint8Field declares an unsigned 1-byte field.
func Uint8Field(name string) Field { return scalar(name, Uint8) }

// Int16Field declares a signed 2-byte field.
func Int16Field(name string) Field { return scalar(name, Int16) }

// Uint16Field declares an unsigned 2-byte field.
func Uint16Field(name string) Field { return scalar(name, Uint16) }

// Int32Field declares a signed 4-byte field.
func Int32Field(name string) Field { return scalar(name, Int32) }

// Uint32Field declares an unsigned 4-byte field.
func Uint32Field(name string) Field { return scalar(name, Uint32) }

// Int64Field declares a signed 8-byte field.
func Int64Field(name string) Field { return scalar(name, Int64) }

// Uint64Field declares an unsigned 8-byte field.
func Uint64Field(name string) Field { return scalar(name, Uint64) }

// ScalarField builds a plain integer field of kind k.
func ScalarField(name string, k Kind) Field { return scalar(name, k) }

// BitfieldField stores a mask of e's constants in e's width.
func BitfieldField(name string, e *bitfield.Enum) Field {
	return Field{name: name, kind: Bitfield, enum: e}
}

// StructField embeds s in place.
func StructField(name string, s *Schema) Field {
	return Field{name: name, kind: Struct, nested: s}
}

// ArrayField lays out count consecutive copies of elem. elem's name is ignored.
func ArrayField(name string, elem Field, count int) Field {
	e := elem
	return Field{name: name, kind: Array, elem: &e, count: count}
}

// Name returns the field name.
func (f *Field) Name() string { return f.name }

// Kind returns the field kind.
func (f *Field) Kind() Kind { return f.kind }

// Offset returns the byte offset within the fixed portion.
func (f *Field) Offset() int { return f.offset }

// Width returns the number of bytes the field occupies.
func (f *Field) Width() int { return f.width }

// Enum returns the enum of a bitfield, or of a bitfield array's elements.
func (f *Field) Enum() *bitfield.Enum {
	if f.kind == Array {
		return f.elem.enum
	}
	return f.enum
}

// Nested returns the schema of a struct field, or of a struct array's elements.
func (f *Field) Nested() *Schema {
	if f.kind == Array {
		return f.elem.nested
	}
	return f.nested
}

// Elem returns the element descriptor of an array field.
func (f *Field) Elem() *Field { return f.elem }

// Count returns the element count of an array field.
func (f *Field) Count() int { return f.count }

// measure validates f and computes its width.
func (f *Field) measure() (int, error) {
	switch {
	case f.kind.Scalar():
		return f.kind.scalarWidth(), nil
	case f.kind == Bitfield:
		if f.enum == nil {
			return 0, fmt.Errorf("%w: bitfield %q has no enum", ErrInvalidSchema, f.name)
		}
		return f.enum.Width().Bytes(), nil
	case f.kind == Struct:
		if f.nested == nil {
			return 0, fmt.Errorf("%w: struct %q has no schema", ErrInvalidSchema, f.name)
		}
		return f.nested.size, nil
	case f.kind == Array:
		if f.elem == nil || f.count <= 0 {
			return 0, fmt.Errorf("%w: array %q needs an element and a positive count", ErrInvalidSchema, f.name)
		}
		if f.elem.kind == Array {
			return 0, fmt.Errorf("%w: array %q of arrays", ErrInvalidSchema, f.name)
		}
		ew, err := f.elem.measure()
		if err != nil {
			return 0, err
		}
		f.elem.width = ew
		w, ok := buf.MulOverflowSafe(ew, f.count)
		if !ok {
			return 0, fmt.Errorf("field %q: %w", f.name, ErrSizeLimit)
		}
		return w, nil
	default:
		return 0, fmt.Errorf("%w: field %q has unknown kind %v", ErrInvalidSchema, f.name, f.kind)
	}
}

// signature is the canonical text used for fingerprints.
func (f *Field) signature() string {
	switch f.kind {
	case Bitfield:
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s:%s/%s:%d{", f.name, f.kind, f.enum.Name(), f.width)
		for _, c := range f.enum.Constants() {
			fmt.Fprintf(&sb, "%s=%x", c.Name, c.Code)
			if c.SkipLookup {
				sb.WriteByte('!')
			}
			sb.WriteByte(',')
		}
		sb.WriteByte('}')
		return sb.String()
	case Struct:
		return fmt.Sprintf("%s:%s/%s#%016x", f.name, f.kind, f.nested.name, f.nested.fingerprint)
	case Array:
		return fmt.Sprintf("%s:%s[%d]{%s}", f.name, f.kind, f.count, f.elem.signature())
	default:
		return fmt.Sprintf("%s:%s", f.name, f.kind)
	}
}
