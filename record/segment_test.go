package record

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func docSchema(t *testing.T, r *Registry) *Schema {
	t.Helper()
	return mustSchema(t, r, "DOC", []Field{
		Uint16Field("TitleLen"),
		Uint16Field("BodyLen"),
		Uint8Field("IdCount"),
		Uint16Field("FormulaLen"),
		Uint16Field("ListLen"),
		Uint16Field("NameCount"),
		Uint32Field("BlobLen"),
	}, WithTail(
		Segment{Name: "Title", Encoding: Packed, Length: "TitleLen"},
		Segment{Name: "Body", Encoding: Unpacked, Length: "BodyLen"},
		Segment{Name: "Ids", Encoding: Int32s, Length: "IdCount"},
		Segment{Name: "Selection", Encoding: Formula, Length: "FormulaLen"},
		Segment{Name: "Keywords", Encoding: StringList, Length: "ListLen"},
		Segment{Name: "Names", Encoding: NullStrings, Length: "NameCount"},
		Segment{Name: "Blob", Encoding: Bytes, Length: "BlobLen"},
	))
}

func TestSegments_TwoStringsShift(t *testing.T) {
	r := newRegistry(t)
	s := mustSchema(t, r, "TWO", []Field{Uint16Field("L1"), Uint16Field("L2")}, WithTail(
		Segment{Name: "First", Encoding: Packed, Length: "L1"},
		Segment{Name: "Second", Encoding: Packed, Length: "L2"},
	))
	in := s.New()
	require.NoError(t, in.SetString("First", "ab"))
	require.NoError(t, in.SetString("Second", "xyz"))

	off, err := in.SegmentOffset("Second")
	require.NoError(t, err)
	require.Equal(t, 2, off)

	require.NoError(t, in.SetString("First", "abcdefg"))

	off, err = in.SegmentOffset("Second")
	require.NoError(t, err)
	require.Equal(t, 7, off)
	second, err := in.String("Second")
	require.NoError(t, err)
	require.Equal(t, "xyz", second)
	first, err := in.String("First")
	require.NoError(t, err)
	require.Equal(t, "abcdefg", first)

	l1, _ := in.Get("L1")
	l2, _ := in.Get("L2")
	require.Equal(t, int64(7), l1)
	require.Equal(t, int64(3), l2)
	require.Equal(t, 10, in.TailLen())
}

func TestSegments_AllEncodings(t *testing.T) {
	r := newRegistry(t)
	s := docSchema(t, r)
	in := s.New()

	require.NoError(t, in.SetString("Title", "Hello"))
	require.NoError(t, in.SetString("Body", "body"))
	require.NoError(t, in.SetInt32s("Ids", []int32{1, -2, 3}))
	require.NoError(t, in.SetFormula("Selection", "SELECT @All"))
	require.NoError(t, in.SetStrings("Keywords", []string{"red", "green"}))
	require.NoError(t, in.SetStrings("Names", []string{"Ann", "Bob"}))
	require.NoError(t, in.SetSegmentBytes("Blob", []byte{1, 2, 3}))

	// rewrite an early segment so every later one shifts
	require.NoError(t, in.SetString("Title", "Hi"))

	title, err := in.String("Title")
	require.NoError(t, err)
	require.Equal(t, "Hi", title)
	body, err := in.String("Body")
	require.NoError(t, err)
	require.Equal(t, "body", body)
	ids, err := in.Int32s("Ids")
	require.NoError(t, err)
	require.Equal(t, []int32{1, -2, 3}, ids)
	sel, err := in.Formula("Selection")
	require.NoError(t, err)
	require.Equal(t, "SELECT @All", sel)
	kw, err := in.Strings("Keywords")
	require.NoError(t, err)
	require.Equal(t, []string{"red", "green"}, kw)
	names, err := in.Strings("Names")
	require.NoError(t, err)
	require.Equal(t, []string{"Ann", "Bob"}, names)
	blob, err := in.SegmentBytes("Blob")
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, blob)

	// length fields carry bytes or counts
	get := func(name string) int64 {
		v, err := in.Get(name)
		require.NoError(t, err)
		return v
	}
	require.Equal(t, int64(2), get("TitleLen"))
	require.Equal(t, int64(6), get("BodyLen"))
	require.Equal(t, int64(3), get("IdCount"))
	require.Equal(t, int64(12), get("FormulaLen"))
	require.Equal(t, int64(StringListSize(3, 5)), get("ListLen"))
	require.Equal(t, int64(2), get("NameCount"))
	require.Equal(t, int64(3), get("BlobLen"))

	size, err := in.SegmentSize("Names")
	require.NoError(t, err)
	require.Equal(t, 8, size)
	require.Equal(t, 2+6+12+12+StringListSize(3, 5)+8+3, in.TailLen())
}

func TestSegments_EmptyValues(t *testing.T) {
	r := newRegistry(t)
	in := docSchema(t, r).New()

	title, err := in.String("Title")
	require.NoError(t, err)
	require.Equal(t, "", title)
	kw, err := in.Strings("Keywords")
	require.NoError(t, err)
	require.Empty(t, kw)
	ids, err := in.Int32s("Ids")
	require.NoError(t, err)
	require.Empty(t, ids)

	require.NoError(t, in.SetString("Title", ""))
	require.NoError(t, in.SetInt32s("Ids", nil))
	require.NoError(t, in.SetStrings("Keywords", nil))
	require.NoError(t, in.SetStrings("Names", nil))
	require.NoError(t, in.SetSegmentBytes("Blob", nil))
	require.Equal(t, 2, in.TailLen(), "only the empty string list count remains")
}

func TestSegments_LengthFieldTooNarrow(t *testing.T) {
	r := newRegistry(t)
	s := docSchema(t, r)
	in := s.New()
	require.NoError(t, in.SetString("Title", "keep"))
	snapshot := append([]byte(nil), in.Bytes()...)

	ids := make([]int32, 256) // IdCount is a uint8
	require.ErrorIs(t, in.SetInt32s("Ids", ids), ErrSizeLimit)
	require.Equal(t, snapshot, in.Bytes())

	require.ErrorIs(t, in.SetString("Title", strings.Repeat("x", 0x10000)), ErrSizeLimit) // TitleLen is a uint16
	require.Equal(t, snapshot, in.Bytes())

	// BlobLen is a uint32
	require.NoError(t, in.SetSegmentBytes("Blob", make([]byte, 0x10000)))
}

func TestSegments_Errors(t *testing.T) {
	r := newRegistry(t)
	in := docSchema(t, r).New()

	_, err := in.String("Nope")
	require.ErrorIs(t, err, ErrUnknownSegment)
	_, err = in.String("Ids")
	require.ErrorIs(t, err, ErrKind)
	require.ErrorIs(t, in.SetStrings("Title", nil), ErrKind)
	_, err = in.Formula("Title")
	require.ErrorIs(t, err, ErrKind)

	// a length field pointing past the tail
	require.NoError(t, in.Set("TitleLen", 40))
	_, err = in.String("Title")
	require.ErrorIs(t, err, ErrOutOfBounds)
}

func TestSegments_SignedLengthField(t *testing.T) {
	r := newRegistry(t)
	s := mustSchema(t, r, "SIGNED", []Field{Int8Field("Len")},
		WithTail(Segment{Name: "Data", Encoding: Bytes, Length: "Len"}))
	in := s.New()
	require.ErrorIs(t, in.SetSegmentBytes("Data", make([]byte, 128)), ErrSizeLimit)
	require.NoError(t, in.SetSegmentBytes("Data", make([]byte, 127)))

	require.NoError(t, in.Set("Len", -1))
	_, err := in.SegmentBytes("Data")
	require.ErrorIs(t, err, ErrDecode)
}

func TestSegments_StringListSizeMismatch(t *testing.T) {
	r := newRegistry(t)
	s := mustSchema(t, r, "LIST", []Field{Uint16Field("Len")},
		WithTail(Segment{Name: "L", Encoding: StringList, Length: "Len"}))
	in := s.New()
	require.NoError(t, in.SetStrings("L", []string{"a"}))
	_, err := in.WriteTailBytes(in.TailLen(), 0, []byte{0})
	require.NoError(t, err)
	require.NoError(t, in.Set("Len", 6))
	_, err = in.Strings("L")
	require.ErrorIs(t, err, ErrDecode)
}

func TestSegments_WrappedInstance(t *testing.T) {
	r := newRegistry(t)
	s := mustSchema(t, r, "W", []Field{Uint16Field("Len")},
		WithTail(Segment{Name: "S", Encoding: Packed, Length: "Len"}))
	backing := []byte{3, 0, 'a', 'b', 'c'}
	in, err := s.Wrap(backing)
	require.NoError(t, err)

	got, err := in.String("S")
	require.NoError(t, err)
	require.Equal(t, "abc", got)

	require.NoError(t, in.SetString("S", "xyz"))
	require.Equal(t, []byte{3, 0, 'x', 'y', 'z'}, backing)

	require.ErrorIs(t, in.SetString("S", "toolong"), ErrNotResizable)
	require.Equal(t, []byte{3, 0, 'x', 'y', 'z'}, backing)
}
