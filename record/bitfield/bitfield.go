// Package bitfield converts between closed sets of named flag constants and
// the fixed-width integers legacy structures store them in.
//
// An Enum is declared once with a storage width and an ordered list of
// constants. Some constants are aggregates or sentinels (for example an
// "all classes" mask whose bits cover several real flags). Those are marked
// SkipLookup: they may be written, but they are never produced when decoding
// a stored value.
//
//	classes := bitfield.MustNew("NoteClass", bitfield.Width16,
//	    bitfield.Constant{Name: "DOCUMENT", Code: 0x0001},
//	    bitfield.Constant{Name: "INFO", Code: 0x0002},
//	    bitfield.Constant{Name: "ALL", Code: 0x7fff, SkipLookup: true},
//	)
//	code := classes.Encode(doc, info)  // 0x0003
//	set := classes.DecodeMask(code)    // [DOCUMENT INFO]
//
// Encode and DecodeMask are not inverses when constants overlap; the stored
// value alone cannot tell an aggregate apart from its constituent bits.
package bitfield

import (
	"errors"
	"fmt"
)

// ErrInvalidEnum indicates an enum declaration that cannot be used.
var ErrInvalidEnum = errors.New("bitfield: invalid enum")

// Width is the storage width of an enum in bits.
type Width int

const (
	Width8  Width = 8
	Width16 Width = 16
	Width32 Width = 32
)

// Bytes returns the storage width in bytes.
func (w Width) Bytes() int { return int(w) / 8 }

// Mask returns the value mask for the width.
func (w Width) Mask() uint32 {
	switch w {
	case Width8:
		return 0xff
	case Width16:
		return 0xffff
	default:
		return 0xffffffff
	}
}

// Valid reports whether w is one of the supported widths.
func (w Width) Valid() bool {
	return w == Width8 || w == Width16 || w == Width32
}

// Constant is a single named code of an Enum.
type Constant struct {
	Name string
	Code uint32
	// SkipLookup excludes the constant from DecodeExact and DecodeMask.
	SkipLookup bool
}

func (c Constant) String() string { return c.Name }

// Enum is an immutable, closed set of constants sharing one storage width.
type Enum struct {
	name   string
	width  Width
	consts []Constant
	byName map[string]int
}

// New declares an enum. Constant names must be non-empty and unique. Codes
// wider than w are accepted and narrowed when encoded.
func New(name string, w Width, consts ...Constant) (*Enum, error) {
	if !w.Valid() {
		return nil, fmt.Errorf("enum %q: %w (width %d)", name, ErrInvalidEnum, w)
	}
	e := &Enum{
		name:   name,
		width:  w,
		consts: make([]Constant, len(consts)),
		byName: make(map[string]int, len(consts)),
	}
	for i, c := range consts {
		if c.Name == "" {
			return nil, fmt.Errorf("enum %q: %w (constant %d has no name)", name, ErrInvalidEnum, i)
		}
		if _, dup := e.byName[c.Name]; dup {
			return nil, fmt.Errorf("enum %q: %w (duplicate constant %q)", name, ErrInvalidEnum, c.Name)
		}
		e.byName[c.Name] = i
		e.consts[i] = c
	}
	return e, nil
}

// MustNew is like New but panics on error. It is meant for package-level
// declarations.
func MustNew(name string, w Width, consts ...Constant) *Enum {
	e, err := New(name, w, consts...)
	if err != nil {
		panic(err)
	}
	return e
}

// Name returns the enum name.
func (e *Enum) Name() string { return e.name }

// Width returns the storage width.
func (e *Enum) Width() Width { return e.width }

// Constants returns a copy of the constants in declaration order.
func (e *Enum) Constants() []Constant {
	out := make([]Constant, len(e.consts))
	copy(out, e.consts)
	return out
}

// Lookup returns the constant with the given name.
func (e *Enum) Lookup(name string) (Constant, bool) {
	i, ok := e.byName[name]
	if !ok {
		return Constant{}, false
	}
	return e.consts[i], true
}

// Encode ORs the codes of consts and truncates the result to the enum width.
// High bits are dropped, matching the on-disk width.
func (e *Enum) Encode(consts ...Constant) uint32 {
	var v uint32
	for _, c := range consts {
		v |= c.Code
	}
	return v & e.width.Mask()
}

// DecodeExact returns the first lookup-eligible constant whose code equals
// code. Unmatched codes are common in legacy data and are not an error.
func (e *Enum) DecodeExact(code uint32) (Constant, bool) {
	for _, c := range e.consts {
		if c.SkipLookup {
			continue
		}
		if c.Code == code {
			return c, true
		}
	}
	return Constant{}, false
}

// DecodeMask returns every lookup-eligible constant whose bits are all set in
// code, in declaration order.
func (e *Enum) DecodeMask(code uint32) []Constant {
	var out []Constant
	for _, c := range e.consts {
		if c.SkipLookup {
			continue
		}
		if code&c.Code == c.Code {
			out = append(out, c)
		}
	}
	return out
}

// Names returns the names of consts.
func Names(consts []Constant) []string {
	out := make([]string, len(consts))
	for i, c := range consts {
		out[i] = c.Name
	}
	return out
}
