package record

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnpackedString_EvenLengthPadded(t *testing.T) {
	r := newRegistry(t)
	s := tailSchema(t, r)
	in := s.New()

	n, err := in.WriteUnpackedString(0, 0, "abcd")
	require.NoError(t, err)
	require.Equal(t, 6, n)
	require.Equal(t, []byte{'a', 'b', 'c', 'd', 0, 0}, in.Tail())

	got, err := in.ReadUnpackedString(0, n)
	require.NoError(t, err)
	require.Equal(t, "abcd", got)
}

func TestUnpackedString_OddLength(t *testing.T) {
	r := newRegistry(t)
	in := tailSchema(t, r).New()
	n, err := in.WriteUnpackedString(0, 0, "abc")
	require.NoError(t, err)
	require.Equal(t, []byte{'a', 'b', 'c', 0}, in.Tail())
	got, err := in.ReadUnpackedString(0, n)
	require.NoError(t, err)
	require.Equal(t, "abc", got)
}

func TestWordPaddedString(t *testing.T) {
	r := newRegistry(t)
	in := tailSchema(t, r).New()

	n, err := in.WriteWordPaddedString(0, 0, "ab")
	require.NoError(t, err)
	require.Equal(t, []byte{'a', 'b', 0}, in.Tail())
	got, err := in.ReadWordPaddedString(0, n)
	require.NoError(t, err)
	require.Equal(t, "ab", got)

	n, err = in.WriteWordPaddedString(0, n, "abc")
	require.NoError(t, err)
	require.Equal(t, []byte{'a', 'b', 'c'}, in.Tail())
	got, err = in.ReadWordPaddedString(0, n)
	require.NoError(t, err)
	require.Equal(t, "abc", got)
}

func TestStringEncodings_RoundTrip(t *testing.T) {
	r := newRegistry(t)
	type codec struct {
		write func(in *Instance, pre, cur int, s string) (int, error)
		read  func(in *Instance, pre, n int) (string, error)
		size  func(n int) int
	}
	codecs := map[string]codec{
		"packed":     {(*Instance).WritePackedString, (*Instance).ReadPackedString, PackedSize},
		"unpacked":   {(*Instance).WriteUnpackedString, (*Instance).ReadUnpackedString, UnpackedSize},
		"wordpadded": {(*Instance).WriteWordPaddedString, (*Instance).ReadWordPaddedString, WordPaddedSize},
	}
	inputs := []string{"", "a", "ab", "Grüße", "naïve café", "a longer string of text"}
	for name, c := range codecs {
		for _, s := range inputs {
			in := tailSchema(t, r).New()
			// a sentinel region after the string must survive
			_, err := in.WriteTailBytes(0, 0, []byte{0xEE, 0xEE})
			require.NoError(t, err)
			n, err := c.write(in, 0, 0, s)
			require.NoError(t, err, "%s %q", name, s)

			enc, _ := in.encodeText(s)
			require.Equal(t, c.size(len(enc)), n, "%s %q size", name, s)

			got, err := c.read(in, 0, n)
			require.NoError(t, err)
			require.Equal(t, s, got, name)
			require.Equal(t, []byte{0xEE, 0xEE}, in.Tail()[n:], name)
		}
	}
}

func TestPaddedStrings_RejectNUL(t *testing.T) {
	r := newRegistry(t)
	in := tailSchema(t, r).New()
	_, err := in.WriteTailBytes(0, 0, []byte{0xEE})
	require.NoError(t, err)

	for _, s := range []string{"a\x00b", "ab\x00", "\x00"} {
		_, err := in.WriteUnpackedString(0, 0, s)
		require.ErrorIs(t, err, ErrValueRange, "unpacked %q", s)
		_, err = in.WriteWordPaddedString(0, 0, s)
		require.ErrorIs(t, err, ErrValueRange, "wordpadded %q", s)
	}
	require.Equal(t, []byte{0xEE}, in.Tail(), "rejected writes leave the tail alone")

	// packed strings carry their length and keep NULs
	n, err := in.WritePackedString(0, 0, "ab\x00")
	require.NoError(t, err)
	got, err := in.ReadPackedString(0, n)
	require.NoError(t, err)
	require.Equal(t, "ab\x00", got)

	doc := docSchema(t, r).New()
	require.ErrorIs(t, doc.SetString("Body", "x\x00y"), ErrValueRange)
	require.NoError(t, doc.SetString("Title", "x\x00y"))
}

func TestStringList(t *testing.T) {
	r := newRegistry(t)
	in := tailSchema(t, r).New()

	n, err := in.WriteStringList(0, 0, []string{"ab", "", "cde"})
	require.NoError(t, err)
	require.Equal(t, StringListSize(2, 0, 3), n)
	require.Equal(t, []byte{
		3, 0, // count
		2, 0, 0, 0, 3, 0, // lengths
		'a', 'b', 'c', 'd', 'e',
	}, in.Tail())

	got, used, err := in.ReadStringList(0)
	require.NoError(t, err)
	require.Equal(t, n, used)
	require.Equal(t, []string{"ab", "", "cde"}, got)

	n, err = in.WriteStringList(0, n, nil)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	got, used, err = in.ReadStringList(0)
	require.NoError(t, err)
	require.Equal(t, 2, used)
	require.Empty(t, got)
}

func TestStringList_Malformed(t *testing.T) {
	r := newRegistry(t)
	s := tailSchema(t, r)

	in, err := s.Wrap([]byte{0, 0, 0, 0, 2, 0, 1, 0})
	require.NoError(t, err)
	_, _, err = in.ReadStringList(0)
	require.ErrorIs(t, err, ErrOutOfBounds, "length table truncated")

	in, err = s.Wrap([]byte{0, 0, 0, 0, 1, 0, 5, 0, 'a'})
	require.NoError(t, err)
	_, _, err = in.ReadStringList(0)
	require.ErrorIs(t, err, ErrOutOfBounds, "payload truncated")

	_, _, err = in.ReadStringList(9)
	require.ErrorIs(t, err, ErrOutOfBounds)
	_, _, err = in.ReadStringList(-1)
	require.ErrorIs(t, err, ErrNegativeLength)
}

func TestStringList_Limits(t *testing.T) {
	r := newRegistry(t)
	in := tailSchema(t, r).New()
	_, err := in.WriteStringList(0, 0, make([]string, 0x10000))
	require.ErrorIs(t, err, ErrSizeLimit)

	long := make([]byte, 0x10000)
	for i := range long {
		long[i] = 'x'
	}
	_, err = in.WriteStringList(0, 0, []string{string(long)})
	require.ErrorIs(t, err, ErrSizeLimit)
	require.Zero(t, in.TailLen())
}

func TestNullStrings(t *testing.T) {
	r := newRegistry(t)
	in := tailSchema(t, r).New()
	strs := []string{"ab", "", "c"}

	size, err := in.NullStringsSize(strs)
	require.NoError(t, err)
	require.Equal(t, 6, size)

	n, err := in.WriteNullStrings(0, 0, strs)
	require.NoError(t, err)
	require.Equal(t, size, n)
	require.Equal(t, []byte{'a', 'b', 0, 0, 'c', 0}, in.Tail())

	got, used, err := in.ReadNullStrings(0, 3)
	require.NoError(t, err)
	require.Equal(t, 6, used)
	require.Equal(t, strs, got)

	_, _, err = in.ReadNullStrings(0, 4)
	require.ErrorIs(t, err, ErrDecode)

	_, err = in.WriteNullStrings(0, n, []string{"a\x00b"})
	require.ErrorIs(t, err, ErrValueRange)

	none, used, err := in.ReadNullStrings(6, 0)
	require.NoError(t, err)
	require.Zero(t, used)
	require.Empty(t, none)
}
