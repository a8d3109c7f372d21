package record

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/structkit/record/textcodec"
)

func tailSchema(t *testing.T, r *Registry) *Schema {
	t.Helper()
	return mustSchema(t, r, "TAIL", []Field{Uint16Field("L1"), Uint16Field("L2")})
}

func TestWritePackedString_LengthScenario(t *testing.T) {
	r := newRegistry(t)
	s := mustSchema(t, r, "ONE", []Field{Uint16Field("L")},
		WithTail(Segment{Name: "S", Encoding: Packed, Length: "L"}))
	in := s.New()

	require.NoError(t, in.SetString("S", "abc"))

	l, err := in.Int(s.MustField("L"))
	require.NoError(t, err)
	require.Equal(t, int64(3), l)

	got, err := in.ReadPackedString(0, int(l))
	require.NoError(t, err)
	require.Equal(t, "abc", got)
	require.Equal(t, []byte{3, 0, 'a', 'b', 'c'}, in.Bytes())
}

func TestTailRewrite_ShiftsFollowingRegion(t *testing.T) {
	r := newRegistry(t)
	s := tailSchema(t, r)
	in := s.New()

	n1, err := in.WritePackedString(0, 0, "one")
	require.NoError(t, err)
	n2, err := in.WritePackedString(n1, 0, "second")
	require.NoError(t, err)
	require.Equal(t, "onesecond", string(in.Tail()))

	before := append([]byte(nil), in.Tail()...)
	n1b, err := in.WritePackedString(0, n1, "much longer")
	require.NoError(t, err)
	require.Equal(t, 11, n1b)
	requirePreserved(t, before, in.Tail(), 0, n1, n1b)

	second, err := in.ReadPackedString(n1b, n2)
	require.NoError(t, err)
	require.Equal(t, "second", second)

	// shrink again
	n1c, err := in.WritePackedString(0, n1b, "")
	require.NoError(t, err)
	require.Equal(t, 0, n1c)
	require.Equal(t, "second", string(in.Tail()))
}

func TestTailRewrite_PreservesSurroundingBytes(t *testing.T) {
	r := newRegistry(t)
	s := tailSchema(t, r)
	for _, tc := range []struct {
		k, replaced int
		value       string
	}{
		{0, 0, "xyz"},
		{2, 3, ""},
		{4, 2, "abcdefgh"},
		{10, 0, "end"},
		{3, 4, "same"},
	} {
		in, err := s.NewWithTail(10)
		require.NoError(t, err)
		for i := range in.Tail() {
			in.Tail()[i] = byte(0xA0 + i)
		}
		in.Bytes()[0] = 0x55
		before := append([]byte(nil), in.Tail()...)

		n, err := in.WriteTailBytes(tc.k, tc.replaced, []byte(tc.value))
		require.NoError(t, err)
		require.Equal(t, len(tc.value), n)
		require.Equal(t, 10-tc.replaced+n, in.TailLen())
		requirePreserved(t, before, in.Tail(), tc.k, tc.replaced, n)
		require.Equal(t, byte(0x55), in.Bytes()[0], "fixed portion untouched")
	}
}

func TestTailRewrite_ValidatesBeforeMutating(t *testing.T) {
	r := newRegistry(t, WithSizeLimit(8))
	s := tailSchema(t, r)
	in, err := s.NewWithTail(4)
	require.NoError(t, err)
	copy(in.Tail(), "wxyz")
	snapshot := append([]byte(nil), in.Bytes()...)

	_, err = in.WriteTailBytes(-1, 0, []byte("a"))
	require.ErrorIs(t, err, ErrNegativeLength)
	_, err = in.WriteTailBytes(0, -1, []byte("a"))
	require.ErrorIs(t, err, ErrNegativeLength)
	_, err = in.WriteTailBytes(3, 2, []byte("a"))
	require.ErrorIs(t, err, ErrOutOfBounds)
	_, err = in.WriteTailBytes(5, 0, []byte("a"))
	require.ErrorIs(t, err, ErrOutOfBounds)
	_, err = in.WriteTailBytes(4, 0, []byte("12345"))
	require.ErrorIs(t, err, ErrSizeLimit)

	require.Equal(t, snapshot, in.Bytes())
}

func TestTailRewrite_WrappedInPlaceOnly(t *testing.T) {
	r := newRegistry(t)
	s := tailSchema(t, r)
	backing := []byte{0, 0, 0, 0, 'a', 'b', 'c', 'd'}
	in, err := s.Wrap(backing)
	require.NoError(t, err)

	_, err = in.WriteTailBytes(1, 2, []byte("XY"))
	require.NoError(t, err)
	require.Equal(t, "aXYd", string(backing[4:]))

	_, err = in.WriteTailBytes(1, 2, []byte("XYZ"))
	require.ErrorIs(t, err, ErrNotResizable)
	require.Equal(t, "aXYd", string(backing[4:]))
}

func TestResizeTail(t *testing.T) {
	r := newRegistry(t)
	s := tailSchema(t, r)
	in := s.New()
	require.NoError(t, in.ResizeTail(3))
	require.Equal(t, []byte{0, 0, 0}, in.Tail())
	copy(in.Tail(), "abc")
	require.NoError(t, in.ResizeTail(1))
	require.Equal(t, "a", string(in.Tail()))
	require.ErrorIs(t, in.ResizeTail(-1), ErrNegativeLength)
}

func TestResize_StaleNestedView(t *testing.T) {
	r := newRegistry(t)
	inner := mustSchema(t, r, "INNER", []Field{Uint8Field("V")})
	s := mustSchema(t, r, "OUTER", []Field{StructField("In", inner)})
	in := s.New()
	sub, err := in.Struct(s.MustField("In"))
	require.NoError(t, err)
	require.NoError(t, in.ResizeTail(4))

	require.NoError(t, sub.SetUint(inner.MustField("V"), 1))
	require.Equal(t, byte(0), in.Bytes()[0], "old view no longer aliases the resized buffer")

	fresh, err := in.Struct(s.MustField("In"))
	require.NoError(t, err)
	require.NoError(t, fresh.SetUint(inner.MustField("V"), 2))
	require.Equal(t, byte(2), in.Bytes()[0])
}

func TestRawBytesAndInt32s(t *testing.T) {
	r := newRegistry(t)
	s := tailSchema(t, r)
	in := s.New()

	n, err := in.WriteTailBytes(0, 0, []byte{})
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = in.WriteTailBytes(0, 0, []byte{9, 8, 7})
	require.NoError(t, err)
	require.Equal(t, 3, n)

	vals := []int32{-1, 0, 0x01020304}
	m, err := in.WriteInt32s(3, 0, vals)
	require.NoError(t, err)
	require.Equal(t, 12, m)
	require.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, in.Tail()[3:7])
	require.Equal(t, []byte{4, 3, 2, 1}, in.Tail()[11:15])

	got, err := in.ReadInt32s(3, 3)
	require.NoError(t, err)
	require.Equal(t, vals, got)

	empty, err := in.ReadInt32s(15, 0)
	require.NoError(t, err)
	require.Empty(t, empty)

	raw, err := in.ReadTailBytes(0, 3)
	require.NoError(t, err)
	require.Equal(t, []byte{9, 8, 7}, raw)
	raw[0] = 0
	require.Equal(t, byte(9), in.Tail()[0], "ReadTailBytes returns a copy")

	m, err = in.WriteInt32s(3, 3, []int32{5})
	require.NoError(t, err)
	require.Equal(t, 4, m)
	require.Equal(t, 7, in.TailLen())

	_, err = in.ReadInt32s(3, 2)
	require.ErrorIs(t, err, ErrOutOfBounds)
}

func TestInt32sNativeOrder(t *testing.T) {
	r := newRegistry(t, WithNativeByteOrder())
	s := tailSchema(t, r)
	in := s.New()
	_, err := in.WriteInt32s(0, 0, []int32{0x0A0B0C0D})
	require.NoError(t, err)
	require.Equal(t, uint32(0x0A0B0C0D), binary.NativeEndian.Uint32(in.Tail()))
}

func TestFormula(t *testing.T) {
	r := newRegistry(t)
	s := tailSchema(t, r)
	in := s.New()

	n, err := in.WriteFormula(0, 0, `Form = "Memo"`)
	require.NoError(t, err)
	require.Equal(t, 14, n)
	require.Equal(t, byte(0xF0), in.Tail()[0])

	text, err := in.ReadFormula(0, n)
	require.NoError(t, err)
	require.Equal(t, `Form = "Memo"`, text)

	_, err = in.WriteFormula(0, n, "@Error")
	require.ErrorIs(t, err, ErrFormula)
	require.Equal(t, n, in.TailLen(), "failed compile leaves the tail alone")

	in.Tail()[0] = 0
	_, err = in.ReadFormula(0, n)
	require.ErrorIs(t, err, ErrFormula)
	require.ErrorIs(t, err, errBadFormula)

	plain := NewRegistry()
	ps := tailSchema(t, plain)
	_, err = ps.New().WriteFormula(0, 0, "1")
	require.ErrorIs(t, err, ErrNoFormulaCodec)
	_, err = ps.New().ReadFormula(0, 0)
	require.ErrorIs(t, err, ErrNoFormulaCodec)
}

func TestTextCodecFailure(t *testing.T) {
	r := newRegistry(t)
	s := tailSchema(t, r)
	in := s.New()
	_, err := in.WritePackedString(0, 0, "日本")
	require.ErrorIs(t, err, ErrTextCodec)
	require.ErrorIs(t, err, textcodec.ErrUnrepresentable)
	require.Zero(t, in.TailLen())

	u := newRegistry(t, WithTextCodec(textcodec.UTF8))
	us := tailSchema(t, u)
	uin := us.New()
	n, err := uin.WritePackedString(0, 0, "日本")
	require.NoError(t, err)
	require.Equal(t, 6, n)
	uin.Tail()[0] = 0xFF
	_, err = uin.ReadPackedString(0, n)
	require.ErrorIs(t, err, ErrTextCodec)
	require.True(t, bytes.HasPrefix(uin.Tail(), []byte{0xFF}))
}
