package record

import (
	"bytes"
	"fmt"
	"math"

	"github.com/joshuapare/structkit/internal/buf"
)

// String encodings used in tails:
//
//	packed       encoded bytes only
//	unpacked     encoded bytes, NUL, and one more NUL when the encoded length is even
//	word-padded  encoded bytes, and one NUL when the encoded length is even
//
// A string list is a 2-byte count, count 2-byte lengths, then the packed
// strings back to back. A NUL-delimited list is count packed strings each
// followed by one NUL; the count is stored elsewhere.

func (in *Instance) encodeText(s string) ([]byte, error) {
	b, err := in.schema.cfg.text.Encode(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", in.schema.name, ErrTextCodec, err)
	}
	return b, nil
}

func (in *Instance) decodeText(b []byte) (string, error) {
	s, err := in.schema.cfg.text.Decode(b)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", in.schema.name, ErrTextCodec, err)
	}
	return s, nil
}

// encodePadded encodes s for a NUL-terminated or NUL-padded encoding. A NUL
// in the encoded text would end it early on read, so it fails with
// ErrValueRange.
func (in *Instance) encodePadded(s string, pack func([]byte) []byte) ([]byte, error) {
	enc, err := in.encodeText(s)
	if err != nil {
		return nil, err
	}
	if i := bytes.IndexByte(enc, 0); i >= 0 {
		return nil, fmt.Errorf("%s: %w (NUL at byte %d)", in.schema.name, ErrValueRange, i)
	}
	return pack(enc), nil
}

// packUnpacked terminates enc and pads the result to an even length.
func packUnpacked(enc []byte) []byte {
	n := len(enc) + 1
	if len(enc)%2 == 0 {
		n++
	}
	out := make([]byte, n)
	copy(out, enc)
	return out
}

// packWordPadded appends one pad byte when enc has an even length.
func packWordPadded(enc []byte) []byte {
	n := len(enc)
	if n%2 == 0 {
		n++
	}
	out := make([]byte, n)
	copy(out, enc)
	return out
}

// PackedSize returns the stored size of a packed string of n encoded bytes.
func PackedSize(n int) int { return n }

// UnpackedSize returns the stored size of an unpacked string of n encoded bytes.
func UnpackedSize(n int) int {
	if n%2 == 0 {
		return n + 2
	}
	return n + 1
}

// WordPaddedSize returns the stored size of a word-padded string of n encoded bytes.
func WordPaddedSize(n int) int {
	if n%2 == 0 {
		return n + 1
	}
	return n
}

// ReadPackedString decodes length bytes at preceding.
func (in *Instance) ReadPackedString(preceding, length int) (string, error) {
	w, err := in.tailWindow(preceding, length)
	if err != nil {
		return "", err
	}
	return in.decodeText(w)
}

// WritePackedString replaces current bytes at preceding with the encoded
// string and returns its length.
func (in *Instance) WritePackedString(preceding, current int, s string) (int, error) {
	enc, err := in.encodeText(s)
	if err != nil {
		return 0, err
	}
	return in.WriteTailBytes(preceding, current, enc)
}

// ReadUnpackedString decodes the NUL-terminated string stored in length
// bytes at preceding. Terminator and pad are dropped.
func (in *Instance) ReadUnpackedString(preceding, length int) (string, error) {
	w, err := in.tailWindow(preceding, length)
	if err != nil {
		return "", err
	}
	if i := bytes.IndexByte(w, 0); i >= 0 {
		w = w[:i]
	}
	return in.decodeText(w)
}

// WriteUnpackedString replaces current bytes at preceding with the
// terminated, padded string and returns the stored size.
func (in *Instance) WriteUnpackedString(preceding, current int, s string) (int, error) {
	b, err := in.encodePadded(s, packUnpacked)
	if err != nil {
		return 0, err
	}
	return in.WriteTailBytes(preceding, current, b)
}

// ReadWordPaddedString decodes length bytes at preceding, dropping one
// trailing pad byte if present.
func (in *Instance) ReadWordPaddedString(preceding, length int) (string, error) {
	w, err := in.tailWindow(preceding, length)
	if err != nil {
		return "", err
	}
	if n := len(w); n > 0 && w[n-1] == 0 {
		w = w[:n-1]
	}
	return in.decodeText(w)
}

// WriteWordPaddedString replaces current bytes at preceding with the padded
// string and returns the stored size.
func (in *Instance) WriteWordPaddedString(preceding, current int, s string) (int, error) {
	b, err := in.encodePadded(s, packWordPadded)
	if err != nil {
		return 0, err
	}
	return in.WriteTailBytes(preceding, current, b)
}

// StringListSize returns the stored size of a string list whose entries
// encode to the given byte lengths.
func StringListSize(lengths ...int) int {
	n := 2
	for _, l := range lengths {
		n += 2 + l
	}
	return n
}

func (in *Instance) encodeStringList(strs []string) ([]byte, error) {
	if len(strs) > math.MaxUint16 {
		return nil, fmt.Errorf("%s string list: %w (%d entries)", in.schema.name, ErrSizeLimit, len(strs))
	}
	encs := make([][]byte, len(strs))
	lengths := make([]int, len(strs))
	for i, s := range strs {
		enc, err := in.encodeText(s)
		if err != nil {
			return nil, err
		}
		if len(enc) > math.MaxUint16 {
			return nil, fmt.Errorf("%s string list entry %d: %w (%d bytes)", in.schema.name, i, ErrSizeLimit, len(enc))
		}
		encs[i] = enc
		lengths[i] = len(enc)
	}
	o := in.schema.cfg.order
	out := make([]byte, 0, StringListSize(lengths...))
	out = o.AppendUint16(out, uint16(len(strs)))
	for _, l := range lengths {
		out = o.AppendUint16(out, uint16(l))
	}
	for _, enc := range encs {
		out = append(out, enc...)
	}
	return out, nil
}

// ReadStringList decodes the string list at preceding. It returns the
// strings and the number of bytes the list occupies.
func (in *Instance) ReadStringList(preceding int) ([]string, int, error) {
	if preceding < 0 {
		return nil, 0, fmt.Errorf("%s string list: %w", in.schema.name, ErrNegativeLength)
	}
	tail := in.Tail()
	hdr, ok := buf.Slice(tail, preceding, 2)
	if !ok {
		return nil, 0, fmt.Errorf("%s string list: %w (count at %d of %d)", in.schema.name, ErrOutOfBounds, preceding, len(tail))
	}
	o := in.schema.cfg.order
	count := int(o.Uint16(hdr))
	tableEnd, err := buf.CheckListBounds(len(tail), preceding+2, count, 2)
	if err != nil {
		return nil, 0, fmt.Errorf("%s string list: %w: length table: %v", in.schema.name, ErrOutOfBounds, err)
	}
	out := make([]string, count)
	cur := tableEnd
	for i := range count {
		l := int(o.Uint16(tail[preceding+2+2*i:]))
		w, ok := buf.Slice(tail, cur, l)
		if !ok {
			return nil, 0, fmt.Errorf("%s string list entry %d: %w (%d+%d of %d)", in.schema.name, i, ErrOutOfBounds, cur, l, len(tail))
		}
		s, err := in.decodeText(w)
		if err != nil {
			return nil, 0, err
		}
		out[i] = s
		cur += l
	}
	return out, cur - preceding, nil
}

// WriteStringList replaces current bytes at preceding with an encoded string
// list and returns its size.
func (in *Instance) WriteStringList(preceding, current int, strs []string) (int, error) {
	b, err := in.encodeStringList(strs)
	if err != nil {
		return 0, err
	}
	return in.WriteTailBytes(preceding, current, b)
}

func (in *Instance) encodeNullStrings(strs []string) ([]byte, error) {
	var out []byte
	for i, s := range strs {
		enc, err := in.encodeText(s)
		if err != nil {
			return nil, err
		}
		if bytes.IndexByte(enc, 0) >= 0 {
			return nil, fmt.Errorf("%s entry %d: %w (embedded NUL)", in.schema.name, i, ErrValueRange)
		}
		out = append(out, enc...)
		out = append(out, 0)
	}
	return out, nil
}

// NullStringsSize returns the stored size of strs as a NUL-delimited list,
// terminators included.
func (in *Instance) NullStringsSize(strs []string) (int, error) {
	b, err := in.encodeNullStrings(strs)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

// nullStringsLen scans count NUL-terminated strings at preceding.
func (in *Instance) nullStringsLen(preceding, count int) (int, error) {
	if preceding < 0 || count < 0 {
		return 0, fmt.Errorf("%s: %w", in.schema.name, ErrNegativeLength)
	}
	tail := in.Tail()
	if preceding > len(tail) {
		return 0, fmt.Errorf("%s: %w (offset %d of %d)", in.schema.name, ErrOutOfBounds, preceding, len(tail))
	}
	cur := preceding
	for i := range count {
		j := bytes.IndexByte(tail[cur:], 0)
		if j < 0 {
			return 0, fmt.Errorf("%s entry %d: %w (missing terminator)", in.schema.name, i, ErrDecode)
		}
		cur += j + 1
	}
	return cur - preceding, nil
}

// ReadNullStrings decodes count NUL-terminated strings at preceding and
// returns them with the bytes consumed.
func (in *Instance) ReadNullStrings(preceding, count int) ([]string, int, error) {
	n, err := in.nullStringsLen(preceding, count)
	if err != nil {
		return nil, 0, err
	}
	w := in.Tail()[preceding : preceding+n]
	out := make([]string, 0, count)
	for range count {
		j := bytes.IndexByte(w, 0)
		s, err := in.decodeText(w[:j])
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
		w = w[j+1:]
	}
	return out, n, nil
}

// WriteNullStrings replaces current bytes at preceding with strs as a
// NUL-delimited list and returns its size.
func (in *Instance) WriteNullStrings(preceding, current int, strs []string) (int, error) {
	b, err := in.encodeNullStrings(strs)
	if err != nil {
		return 0, err
	}
	return in.WriteTailBytes(preceding, current, b)
}
