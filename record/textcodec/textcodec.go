// Package textcodec provides legacy single- and multi-byte text codecs for
// strings embedded in binary records. Codecs are thin wrappers over
// golang.org/x/text encodings.
package textcodec

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

var (
	// ErrUnknownEncoding indicates a codec name that could not be resolved.
	ErrUnknownEncoding = errors.New("textcodec: unknown encoding")
	// ErrUnrepresentable indicates text that the target encoding cannot hold.
	ErrUnrepresentable = errors.New("textcodec: text not representable")
	// ErrMalformed indicates stored bytes that do not decode.
	ErrMalformed = errors.New("textcodec: malformed input")
)

// Codec encodes platform strings to legacy bytes and back.
type Codec struct {
	name string
	enc  encoding.Encoding
	// ascii is set for single-byte charmaps whose low half is plain ASCII,
	// where ASCII input can skip the transformer.
	ascii bool
}

var (
	// Windows1252 is the default codec for Latin text.
	Windows1252 = New("windows-1252", charmap.Windows1252)
	// UTF8 stores strings verbatim and rejects invalid UTF-8 on decode.
	UTF8 = New("utf-8", nil)
)

// New wraps enc under name. A nil enc selects UTF-8 passthrough.
func New(name string, enc encoding.Encoding) Codec {
	return Codec{name: name, enc: enc, ascii: asciiCompatible(enc)}
}

// asciiCompatible reports whether enc maps bytes 0x00-0x7F to the same code
// points. Stateful and multi-byte encodings (UTF-16, ISO-2022) never qualify.
func asciiCompatible(enc encoding.Encoding) bool {
	cm, ok := enc.(*charmap.Charmap)
	if !ok {
		return false
	}
	for b := 0; b < 0x80; b++ {
		if cm.DecodeByte(byte(b)) != rune(b) {
			return false
		}
	}
	return true
}

// Lookup resolves an encoding label ("windows-1252", "shift_jis", "utf-8",
// ...) using the WHATWG encoding index.
func Lookup(name string) (Codec, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return Codec{}, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
	canonical, err := htmlindex.Name(enc)
	if err != nil {
		canonical = name
	}
	if canonical == "utf-8" {
		return UTF8, nil
	}
	return New(canonical, enc), nil
}

// Name returns the codec label.
func (c Codec) Name() string { return c.name }

// Encode converts s to the legacy byte representation.
func (c Codec) Encode(s string) ([]byte, error) {
	if c.enc == nil {
		if !utf8.ValidString(s) {
			return nil, fmt.Errorf("%s: %w", c.name, ErrUnrepresentable)
		}
		return []byte(s), nil
	}
	if c.ascii && isASCII(s) {
		return []byte(s), nil
	}
	out, err := c.enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", c.name, ErrUnrepresentable, err)
	}
	return out, nil
}

// Decode converts legacy bytes to a string.
func (c Codec) Decode(b []byte) (string, error) {
	if c.enc == nil {
		if !utf8.Valid(b) {
			return "", fmt.Errorf("%s: %w", c.name, ErrMalformed)
		}
		return string(b), nil
	}
	// Fast path: ASCII bytes decode to themselves in ASCII-compatible charmaps
	if c.ascii && isASCII(b) {
		return string(b), nil
	}
	out, err := c.enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %v", c.name, ErrMalformed, err)
	}
	return string(out), nil
}

func isASCII[T string | []byte](b T) bool {
	for i := 0; i < len(b); i++ {
		if b[i] >= 0x80 {
			return false
		}
	}
	return true
}
