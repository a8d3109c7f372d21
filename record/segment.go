package record

import (
	"fmt"
)

// Encoding selects how a tail segment stores its value.
type Encoding uint8

const (
	Packed      Encoding = iota + 1 // encoded text only
	Unpacked                        // text, NUL, and a pad NUL when the text length is even
	WordPadded                      // text and a pad NUL when the text length is even
	Formula                         // compiled formula from the FormulaCodec
	Bytes                           // opaque bytes
	Int32s                          // 4-byte signed integers; length field holds the count
	StringList                      // 2-byte count, 2-byte lengths, packed texts
	NullStrings                     // NUL-terminated texts; length field holds the count
)

var encodingNames = map[Encoding]string{
	Packed:      "packed",
	Unpacked:    "unpacked",
	WordPadded:  "wordpadded",
	Formula:     "formula",
	Bytes:       "bytes",
	Int32s:      "int32s",
	StringList:  "stringlist",
	NullStrings: "nullstrings",
}

// String returns the encoding name used in schema files.
func (e Encoding) String() string {
	if s, ok := encodingNames[e]; ok {
		return s
	}
	return fmt.Sprintf("encoding(%d)", uint8(e))
}

// EncodingByName maps the names printed by Encoding.String back to values.
func EncodingByName(name string) (Encoding, bool) {
	for e, s := range encodingNames {
		if s == name {
			return e, true
		}
	}
	return 0, false
}

// counted reports whether the length field stores an element count rather
// than a byte length.
func (e Encoding) counted() bool { return e == Int32s || e == NullStrings }

// Segment declares one variable-length region of the tail. Length names the
// fixed integer field that tracks it: a byte length, or an element count for
// Int32s and NullStrings. Segments are stored in declaration order.
type Segment struct {
	Name     string
	Encoding Encoding
	Length   string
}

type segment struct {
	Segment
	length *Field
}

func (s *Schema) addSegment(seg Segment) error {
	if seg.Name == "" {
		return fmt.Errorf("%w: tail segment without a name", ErrInvalidSchema)
	}
	if _, dup := s.segIndex[seg.Name]; dup {
		return fmt.Errorf("%w: tail segment %q declared twice", ErrInvalidSchema, seg.Name)
	}
	if _, ok := encodingNames[seg.Encoding]; !ok {
		return fmt.Errorf("%w: tail segment %q has encoding %v", ErrInvalidSchema, seg.Name, seg.Encoding)
	}
	f, ok := s.Field(seg.Length)
	if !ok {
		return fmt.Errorf("%w: tail segment %q length field %q: %w", ErrInvalidSchema, seg.Name, seg.Length, ErrUnknownField)
	}
	if !f.kind.Scalar() {
		return fmt.Errorf("%w: tail segment %q length field %q is %v", ErrInvalidSchema, seg.Name, seg.Length, f.kind)
	}
	s.segIndex[seg.Name] = len(s.segments)
	s.segments = append(s.segments, segment{Segment: seg, length: f})
	return nil
}

type segSpan struct {
	seg   *segment
	off   int // tail offset
	size  int // bytes
	count int // length field value
}

func (in *Instance) segLength(seg *segment) (int, error) {
	v, err := in.Int(seg.length)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("%s.%s: %w (length field %s = %d)", in.schema.name, seg.Name, ErrDecode, seg.Length, v)
	}
	return int(v), nil
}

// locate walks the segments in order up to and including name.
func (in *Instance) locate(name string) (segSpan, error) {
	idx, ok := in.schema.segIndex[name]
	if !ok {
		return segSpan{}, fmt.Errorf("%s.%s: %w", in.schema.name, name, ErrUnknownSegment)
	}
	off := 0
	for i := 0; i <= idx; i++ {
		seg := &in.schema.segments[i]
		n, err := in.segLength(seg)
		if err != nil {
			return segSpan{}, err
		}
		var size int
		switch seg.Encoding {
		case Int32s:
			size = 4 * n
		case NullStrings:
			size, err = in.nullStringsLen(off, n)
			if err != nil {
				return segSpan{}, fmt.Errorf("%s.%s: %w", in.schema.name, seg.Name, err)
			}
		default:
			size = n
		}
		if i == idx {
			if _, err := in.tailWindow(off, size); err != nil {
				return segSpan{}, fmt.Errorf("%s.%s: %w", in.schema.name, seg.Name, err)
			}
			return segSpan{seg: seg, off: off, size: size, count: n}, nil
		}
		off += size
	}
	panic("unreachable")
}

func (in *Instance) locateAs(name string, encs ...Encoding) (segSpan, error) {
	sp, err := in.locate(name)
	if err != nil {
		return segSpan{}, err
	}
	for _, e := range encs {
		if sp.seg.Encoding == e {
			return sp, nil
		}
	}
	return segSpan{}, fmt.Errorf("%s.%s: %w (segment is %v)", in.schema.name, name, ErrKind, sp.seg.Encoding)
}

// SegmentOffset returns the tail offset of the named segment.
func (in *Instance) SegmentOffset(name string) (int, error) {
	sp, err := in.locate(name)
	return sp.off, err
}

// SegmentSize returns the stored size in bytes of the named segment.
func (in *Instance) SegmentSize(name string) (int, error) {
	sp, err := in.locate(name)
	return sp.size, err
}

// store replaces the segment bytes and updates its length field. The length
// is range-checked before anything is written.
func (in *Instance) store(sp segSpan, b []byte, length int) error {
	lf := sp.seg.length
	if length < 0 || uint64(length) > maxUnsigned(lf.kind, lf.width) {
		return fmt.Errorf("%s.%s: %w (length %d does not fit %s %v)",
			in.schema.name, sp.seg.Name, ErrSizeLimit, length, lf.name, lf.kind)
	}
	if err := in.replaceTail(sp.off, sp.size, b); err != nil {
		return err
	}
	return in.SetInt(lf, int64(length))
}

// String decodes a packed, unpacked or word-padded string segment.
func (in *Instance) String(name string) (string, error) {
	sp, err := in.locateAs(name, Packed, Unpacked, WordPadded)
	if err != nil {
		return "", err
	}
	switch sp.seg.Encoding {
	case Unpacked:
		return in.ReadUnpackedString(sp.off, sp.size)
	case WordPadded:
		return in.ReadWordPaddedString(sp.off, sp.size)
	default:
		return in.ReadPackedString(sp.off, sp.size)
	}
}

// SetString stores s in a string segment and updates its length field.
func (in *Instance) SetString(name string, s string) error {
	sp, err := in.locateAs(name, Packed, Unpacked, WordPadded)
	if err != nil {
		return err
	}
	var enc []byte
	switch sp.seg.Encoding {
	case Unpacked:
		enc, err = in.encodePadded(s, packUnpacked)
	case WordPadded:
		enc, err = in.encodePadded(s, packWordPadded)
	default:
		enc, err = in.encodeText(s)
	}
	if err != nil {
		return err
	}
	return in.store(sp, enc, len(enc))
}

// Formula decompiles a formula segment.
func (in *Instance) Formula(name string) (string, error) {
	sp, err := in.locateAs(name, Formula)
	if err != nil {
		return "", err
	}
	return in.ReadFormula(sp.off, sp.size)
}

// SetFormula compiles text into a formula segment.
func (in *Instance) SetFormula(name string, text string) error {
	sp, err := in.locateAs(name, Formula)
	if err != nil {
		return err
	}
	b, err := in.compile(text)
	if err != nil {
		return err
	}
	return in.store(sp, b, len(b))
}

// SegmentBytes returns a copy of a raw bytes segment.
func (in *Instance) SegmentBytes(name string) ([]byte, error) {
	sp, err := in.locateAs(name, Bytes)
	if err != nil {
		return nil, err
	}
	return in.ReadTailBytes(sp.off, sp.size)
}

// SetSegmentBytes stores b in a raw bytes segment.
func (in *Instance) SetSegmentBytes(name string, b []byte) error {
	sp, err := in.locateAs(name, Bytes)
	if err != nil {
		return err
	}
	return in.store(sp, b, len(b))
}

// Int32s decodes an integer array segment.
func (in *Instance) Int32s(name string) ([]int32, error) {
	sp, err := in.locateAs(name, Int32s)
	if err != nil {
		return nil, err
	}
	return in.ReadInt32s(sp.off, sp.count)
}

// SetInt32s stores vals in an integer array segment; its length field
// receives the element count.
func (in *Instance) SetInt32s(name string, vals []int32) error {
	sp, err := in.locateAs(name, Int32s)
	if err != nil {
		return err
	}
	return in.store(sp, in.encodeInt32s(vals), len(vals))
}

// Strings decodes a string list or NUL-delimited list segment.
func (in *Instance) Strings(name string) ([]string, error) {
	sp, err := in.locateAs(name, StringList, NullStrings)
	if err != nil {
		return nil, err
	}
	if sp.seg.Encoding == NullStrings {
		out, _, err := in.ReadNullStrings(sp.off, sp.count)
		return out, err
	}
	if sp.size == 0 {
		return nil, nil
	}
	out, n, err := in.ReadStringList(sp.off)
	if err != nil {
		return nil, err
	}
	if n != sp.size {
		return nil, fmt.Errorf("%s.%s: %w (list uses %d bytes, length field says %d)", in.schema.name, name, ErrDecode, n, sp.size)
	}
	return out, nil
}

// SetStrings stores strs in a list segment. String lists record their byte
// size in the length field, NUL-delimited lists their entry count.
func (in *Instance) SetStrings(name string, strs []string) error {
	sp, err := in.locateAs(name, StringList, NullStrings)
	if err != nil {
		return err
	}
	if sp.seg.Encoding == NullStrings {
		b, err := in.encodeNullStrings(strs)
		if err != nil {
			return err
		}
		return in.store(sp, b, len(strs))
	}
	b, err := in.encodeStringList(strs)
	if err != nil {
		return err
	}
	return in.store(sp, b, len(b))
}
