package record

import (
	"fmt"
	"math"

	"github.com/joshuapare/structkit/internal/buf"
	"github.com/joshuapare/structkit/record/bitfield"
)

// Instance is a view of one record: a schema plus the bytes it describes.
//
// An owned instance (New, NewWithTail, Clone) has its own zero-filled
// storage and may grow or shrink its tail. A wrapped instance (Wrap, Struct,
// StructElem, ReadStructArray) aliases caller memory: writes land in that
// memory and the tail can only be rewritten in place.
//
// Instances do no locking. Resizing an owned tail reallocates the buffer,
// after which views taken earlier no longer alias it.
type Instance struct {
	schema *Schema
	b      []byte
	owned  bool
}

// New allocates a zero-filled instance of exactly s.Size() bytes.
func (s *Schema) New() *Instance {
	return &Instance{schema: s, b: make([]byte, s.size), owned: true}
}

// NewWithTail allocates a zero-filled instance with tail bytes after the fixed portion.
func (s *Schema) NewWithTail(tail int) (*Instance, error) {
	if tail < 0 {
		return nil, fmt.Errorf("%s: %w (tail %d)", s.name, ErrNegativeLength, tail)
	}
	if tail > s.cfg.sizeLimit {
		return nil, fmt.Errorf("%s: %w (tail %d > %d)", s.name, ErrSizeLimit, tail, s.cfg.sizeLimit)
	}
	total, ok := buf.AddOverflowSafe(s.size, tail)
	if !ok {
		return nil, fmt.Errorf("%s: %w", s.name, ErrSizeLimit)
	}
	return &Instance{schema: s, b: make([]byte, total), owned: true}, nil
}

// Wrap returns a view over b without copying. Bytes beyond s.Size() form
// the tail.
func (s *Schema) Wrap(b []byte) (*Instance, error) {
	if len(b) < s.size {
		return nil, fmt.Errorf("%s: %w (have %d bytes, need %d)", s.name, ErrOutOfBounds, len(b), s.size)
	}
	return &Instance{schema: s, b: b}, nil
}

// New allocates an instance of s.
func New(s *Schema) *Instance { return s.New() }

// Wrap wraps b as an instance of s.
func Wrap(s *Schema, b []byte) (*Instance, error) { return s.Wrap(b) }

// Schema returns the instance schema.
func (in *Instance) Schema() *Schema { return in.schema }

// Bytes returns the backing bytes, fixed portion followed by the tail.
func (in *Instance) Bytes() []byte { return in.b }

// Len returns the total size of the instance.
func (in *Instance) Len() int { return len(in.b) }

// Owned reports whether the instance owns its storage.
func (in *Instance) Owned() bool { return in.owned }

// Clone returns an owned deep copy.
func (in *Instance) Clone() *Instance {
	b := make([]byte, len(in.b))
	copy(b, in.b)
	return &Instance{schema: in.schema, b: b, owned: true}
}

// span validates f against the instance and returns its offset.
func (in *Instance) span(f *Field) (int, error) {
	if f == nil || f.owner != in.schema {
		return 0, fmt.Errorf("%s: %w", in.schema.name, ErrFieldNotInSchema)
	}
	if f.offset+f.width > in.schema.size || f.offset+f.width > len(in.b) {
		return 0, fmt.Errorf("%s.%s: %w", in.schema.name, f.name, ErrOutOfBounds)
	}
	return f.offset, nil
}

// elemSpan returns the offset of element i of array field f.
func (in *Instance) elemSpan(f *Field, i int) (int, error) {
	off, err := in.span(f)
	if err != nil {
		return 0, err
	}
	if f.kind != Array {
		return 0, fmt.Errorf("%s.%s: %w (%v is not an array)", in.schema.name, f.name, ErrKind, f.kind)
	}
	if i < 0 || i >= f.count {
		return 0, fmt.Errorf("%s.%s[%d]: %w (count %d)", in.schema.name, f.name, i, ErrOutOfBounds, f.count)
	}
	return off + i*f.elem.width, nil
}

func (in *Instance) readRaw(off, width int) uint64 {
	o := in.schema.cfg.order
	switch width {
	case 1:
		return uint64(in.b[off])
	case 2:
		return uint64(o.Uint16(in.b[off:]))
	case 4:
		return uint64(o.Uint32(in.b[off:]))
	default:
		return o.Uint64(in.b[off:])
	}
}

func (in *Instance) writeRaw(off, width int, v uint64) {
	o := in.schema.cfg.order
	switch width {
	case 1:
		in.b[off] = byte(v)
	case 2:
		o.PutUint16(in.b[off:], uint16(v))
	case 4:
		o.PutUint32(in.b[off:], uint32(v))
	default:
		o.PutUint64(in.b[off:], v)
	}
}

// integer reports whether kind k holds a plain integer value.
func integer(k Kind) bool { return k.Scalar() || k == Bitfield }

func signExtend(v uint64, width int) int64 {
	shift := uint(64 - 8*width)
	return int64(v<<shift) >> shift
}

// readInt converts raw bits to int64. Unsigned values above math.MaxInt64
// have no int64 form and fail with ErrValueRange; read them with Uint.
func readInt(raw uint64, k Kind, width int) (int64, error) {
	if k.Signed() {
		return signExtend(raw, width), nil
	}
	if raw > math.MaxInt64 {
		return 0, fmt.Errorf("%w (unsigned %d overflows int64)", ErrValueRange, raw)
	}
	return int64(raw), nil
}

// fitsInt reports whether v is representable in width bytes as either a
// signed or an unsigned integer.
func fitsInt(v int64, width int) bool {
	if width >= 8 {
		return true
	}
	bits := uint(8 * width)
	return v >= -(int64(1)<<(bits-1)) && v <= int64(1)<<bits-1
}

func fitsUint(v uint64, width int) bool {
	if width >= 8 {
		return true
	}
	return v <= uint64(1)<<uint(8*width)-1
}

func maxUnsigned(k Kind, width int) uint64 {
	if k.Signed() {
		return uint64(1)<<uint(8*width-1) - 1
	}
	if width >= 8 {
		return math.MaxUint64
	}
	return uint64(1)<<uint(8*width) - 1
}

// Int reads an integer or bitfield field. Signed kinds are sign-extended,
// unsigned kinds and bitfields are zero-extended. A Uint64 value above
// math.MaxInt64 fails with ErrValueRange.
func (in *Instance) Int(f *Field) (int64, error) {
	off, err := in.span(f)
	if err != nil {
		return 0, err
	}
	if !integer(f.kind) {
		return 0, fmt.Errorf("%s.%s: %w (%v is not an integer)", in.schema.name, f.name, ErrKind, f.kind)
	}
	v, err := readInt(in.readRaw(off, f.width), f.kind, f.width)
	if err != nil {
		return 0, fmt.Errorf("%s.%s: %w", in.schema.name, f.name, err)
	}
	return v, nil
}

// Uint reads the raw bits of an integer or bitfield field.
func (in *Instance) Uint(f *Field) (uint64, error) {
	off, err := in.span(f)
	if err != nil {
		return 0, err
	}
	if !integer(f.kind) {
		return 0, fmt.Errorf("%s.%s: %w (%v is not an integer)", in.schema.name, f.name, ErrKind, f.kind)
	}
	return in.readRaw(off, f.width), nil
}

// SetInt writes v to an integer or bitfield field. Values that fit neither
// the signed nor the unsigned range of the field fail with ErrValueRange.
func (in *Instance) SetInt(f *Field, v int64) error {
	off, err := in.span(f)
	if err != nil {
		return err
	}
	if !integer(f.kind) {
		return fmt.Errorf("%s.%s: %w (%v is not an integer)", in.schema.name, f.name, ErrKind, f.kind)
	}
	if !fitsInt(v, f.width) {
		return fmt.Errorf("%s.%s: %w (%d in %d bytes)", in.schema.name, f.name, ErrValueRange, v, f.width)
	}
	in.writeRaw(off, f.width, uint64(v))
	return nil
}

// SetUint writes v to an integer or bitfield field.
func (in *Instance) SetUint(f *Field, v uint64) error {
	off, err := in.span(f)
	if err != nil {
		return err
	}
	if !integer(f.kind) {
		return fmt.Errorf("%s.%s: %w (%v is not an integer)", in.schema.name, f.name, ErrKind, f.kind)
	}
	if !fitsUint(v, f.width) {
		return fmt.Errorf("%s.%s: %w (%d in %d bytes)", in.schema.name, f.name, ErrValueRange, v, f.width)
	}
	in.writeRaw(off, f.width, v)
	return nil
}

// Get reads the named integer field.
func (in *Instance) Get(name string) (int64, error) {
	f, ok := in.schema.Field(name)
	if !ok {
		return 0, fmt.Errorf("%s.%s: %w", in.schema.name, name, ErrUnknownField)
	}
	return in.Int(f)
}

// Set writes the named integer field.
func (in *Instance) Set(name string, v int64) error {
	f, ok := in.schema.Field(name)
	if !ok {
		return fmt.Errorf("%s.%s: %w", in.schema.name, name, ErrUnknownField)
	}
	return in.SetInt(f, v)
}

func (in *Instance) bitfieldEnum(f *Field) (*bitfield.Enum, error) {
	if f.kind != Bitfield {
		return nil, fmt.Errorf("%s.%s: %w (%v is not a bitfield)", in.schema.name, f.name, ErrKind, f.kind)
	}
	return f.enum, nil
}

// Flags decodes a bitfield as a mask of its enum's constants.
func (in *Instance) Flags(f *Field) ([]bitfield.Constant, error) {
	raw, err := in.Uint(f)
	if err != nil {
		return nil, err
	}
	e, err := in.bitfieldEnum(f)
	if err != nil {
		return nil, err
	}
	return e.DecodeMask(uint32(raw)), nil
}

// Enum decodes a bitfield as a single constant. ok is false when the stored
// code matches no lookup-eligible constant.
func (in *Instance) Enum(f *Field) (c bitfield.Constant, ok bool, err error) {
	raw, err := in.Uint(f)
	if err != nil {
		return bitfield.Constant{}, false, err
	}
	e, err := in.bitfieldEnum(f)
	if err != nil {
		return bitfield.Constant{}, false, err
	}
	c, ok = e.DecodeExact(uint32(raw))
	return c, ok, nil
}

// SetFlags stores the OR of consts, narrowed to the enum width.
func (in *Instance) SetFlags(f *Field, consts ...bitfield.Constant) error {
	off, err := in.span(f)
	if err != nil {
		return err
	}
	e, err := in.bitfieldEnum(f)
	if err != nil {
		return err
	}
	in.writeRaw(off, f.width, uint64(e.Encode(consts...)))
	return nil
}

// Struct returns a view of a nested struct field. The view shares the
// parent's bytes.
func (in *Instance) Struct(f *Field) (*Instance, error) {
	off, err := in.span(f)
	if err != nil {
		return nil, err
	}
	if f.kind != Struct {
		return nil, fmt.Errorf("%s.%s: %w (%v is not a struct)", in.schema.name, f.name, ErrKind, f.kind)
	}
	return in.window(f.nested, off)
}

func (in *Instance) window(s *Schema, off int) (*Instance, error) {
	w, ok := buf.Slice(in.b, off, s.size)
	if !ok {
		return nil, fmt.Errorf("%s: %w (window %d+%d of %d)", s.name, ErrOutOfBounds, off, s.size, len(in.b))
	}
	return &Instance{schema: s, b: w}, nil
}

// Elem reads element i of an integer or bitfield array.
func (in *Instance) Elem(f *Field, i int) (int64, error) {
	off, err := in.elemSpan(f, i)
	if err != nil {
		return 0, err
	}
	if !integer(f.elem.kind) {
		return 0, fmt.Errorf("%s.%s: %w (elements are %v)", in.schema.name, f.name, ErrKind, f.elem.kind)
	}
	v, err := readInt(in.readRaw(off, f.elem.width), f.elem.kind, f.elem.width)
	if err != nil {
		return 0, fmt.Errorf("%s.%s[%d]: %w", in.schema.name, f.name, i, err)
	}
	return v, nil
}

// ElemUint reads the raw bits of element i.
func (in *Instance) ElemUint(f *Field, i int) (uint64, error) {
	off, err := in.elemSpan(f, i)
	if err != nil {
		return 0, err
	}
	if !integer(f.elem.kind) {
		return 0, fmt.Errorf("%s.%s: %w (elements are %v)", in.schema.name, f.name, ErrKind, f.elem.kind)
	}
	return in.readRaw(off, f.elem.width), nil
}

// SetElem writes element i of an integer or bitfield array.
func (in *Instance) SetElem(f *Field, i int, v int64) error {
	off, err := in.elemSpan(f, i)
	if err != nil {
		return err
	}
	if !integer(f.elem.kind) {
		return fmt.Errorf("%s.%s: %w (elements are %v)", in.schema.name, f.name, ErrKind, f.elem.kind)
	}
	if !fitsInt(v, f.elem.width) {
		return fmt.Errorf("%s.%s[%d]: %w (%d in %d bytes)", in.schema.name, f.name, i, ErrValueRange, v, f.elem.width)
	}
	in.writeRaw(off, f.elem.width, uint64(v))
	return nil
}

// StructElem returns a view of element i of a struct array.
func (in *Instance) StructElem(f *Field, i int) (*Instance, error) {
	off, err := in.elemSpan(f, i)
	if err != nil {
		return nil, err
	}
	if f.elem.kind != Struct {
		return nil, fmt.Errorf("%s.%s: %w (elements are %v)", in.schema.name, f.name, ErrKind, f.elem.kind)
	}
	return in.window(f.elem.nested, off)
}

// ArrayBytes returns the bytes of a one-byte-element array (a char[N] member)
// without copying.
func (in *Instance) ArrayBytes(f *Field) ([]byte, error) {
	off, err := in.span(f)
	if err != nil {
		return nil, err
	}
	if f.kind != Array || f.elem.width != 1 || !integer(f.elem.kind) {
		return nil, fmt.Errorf("%s.%s: %w (not a byte array)", in.schema.name, f.name, ErrKind)
	}
	w, _ := buf.Slice(in.b, off, f.width)
	return w, nil
}

// SetArrayBytes copies b into a byte array and zero-fills the remainder.
func (in *Instance) SetArrayBytes(f *Field, b []byte) error {
	w, err := in.ArrayBytes(f)
	if err != nil {
		return err
	}
	if len(b) > len(w) {
		return fmt.Errorf("%s.%s: %w (%d bytes into %d)", in.schema.name, f.name, ErrValueRange, len(b), len(w))
	}
	n := copy(w, b)
	clear(w[n:])
	return nil
}
