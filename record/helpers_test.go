package record

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/structkit/record/bitfield"
)

// tagFormula is a stand-in compiler: compiled form is 0xF0 followed by the text.
type tagFormula struct{}

var errBadFormula = errors.New("bad formula blob")

func (tagFormula) Compile(text string) ([]byte, error) {
	if text == "@Error" {
		return nil, errors.New("syntax error")
	}
	return append([]byte{0xF0}, text...), nil
}

func (tagFormula) Decompile(b []byte) (string, error) {
	if len(b) == 0 || b[0] != 0xF0 {
		return "", errBadFormula
	}
	return string(b[1:]), nil
}

func newRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()
	return NewRegistry(append([]Option{WithFormulaCodec(tagFormula{})}, opts...)...)
}

func mustSchema(t *testing.T, r *Registry, name string, fields []Field, opts ...SchemaOption) *Schema {
	t.Helper()
	s, err := r.Register(name, fields, opts...)
	require.NoError(t, err)
	return s
}

var testFlags = bitfield.MustNew("TestFlags", bitfield.Width16,
	bitfield.Constant{Name: "READ", Code: 0x0001},
	bitfield.Constant{Name: "WRITE", Code: 0x0002},
	bitfield.Constant{Name: "RW", Code: 0x0003, SkipLookup: true},
	bitfield.Constant{Name: "HIDDEN", Code: 0x0100},
)

func flag(t *testing.T, name string) bitfield.Constant {
	t.Helper()
	c, ok := testFlags.Lookup(name)
	require.True(t, ok, name)
	return c
}

// requirePreserved asserts before[:k] and the bytes after the replaced
// region survive a tail rewrite, shifted by delta.
func requirePreserved(t *testing.T, before, after []byte, k, replaced, written int) {
	t.Helper()
	require.True(t, bytes.Equal(before[:k], after[:k]), "prefix changed")
	require.True(t, bytes.Equal(before[k+replaced:], after[k+written:]), "suffix changed")
}
