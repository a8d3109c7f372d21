// Package schemafile loads record schemas and bitfield enums from YAML
// documents, so layouts can be described as data instead of Go code.
//
//	encoding: windows-1252
//	byteOrder: little
//	enums:
//	  - name: NoteClass
//	    width: 16
//	    values:
//	      - {name: DOCUMENT, code: 0x0001}
//	      - {name: ALL, code: 0x7fff, skipLookup: true}
//	structs:
//	  - name: POINT
//	    fields:
//	      - {name: X, type: int16}
//	      - {name: Y, type: int16}
//	  - name: ITEM
//	    fields:
//	      - {name: NameLength, type: uint16}
//	      - {name: Class, type: bitfield, enum: NoteClass}
//	      - {name: Pos, type: struct, struct: POINT}
//	      - {name: Reserved, type: uint8, count: 4}
//	    tail:
//	      - {name: Name, encoding: packed, length: NameLength}
//
// Structs may only reference structs declared before them.
package schemafile

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/joshuapare/structkit/internal/buf"
	"github.com/joshuapare/structkit/record"
	"github.com/joshuapare/structkit/record/bitfield"
	"github.com/joshuapare/structkit/record/textcodec"
)

// ErrInvalid indicates a schema document that cannot be loaded.
var ErrInvalid = errors.New("schemafile: invalid document")

// Document is the YAML form of a schema set.
type Document struct {
	Encoding  string       `yaml:"encoding"`
	ByteOrder string       `yaml:"byteOrder"`
	SizeLimit int          `yaml:"sizeLimit"`
	Enums     []EnumSpec   `yaml:"enums"`
	Structs   []StructSpec `yaml:"structs"`
}

// EnumSpec declares a bitfield enum.
type EnumSpec struct {
	Name   string      `yaml:"name"`
	Width  int         `yaml:"width"`
	Values []ValueSpec `yaml:"values"`
}

// ValueSpec declares one enum constant.
type ValueSpec struct {
	Name       string `yaml:"name"`
	Code       uint32 `yaml:"code"`
	SkipLookup bool   `yaml:"skipLookup"`
}

// StructSpec declares a schema.
type StructSpec struct {
	Name   string        `yaml:"name"`
	Fields []FieldSpec   `yaml:"fields"`
	Tail   []SegmentSpec `yaml:"tail"`
}

// FieldSpec declares a field. Count > 0 turns it into an array of Count elements.
type FieldSpec struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Enum   string `yaml:"enum"`
	Struct string `yaml:"struct"`
	Count  int    `yaml:"count"`
}

// SegmentSpec declares a tail segment.
type SegmentSpec struct {
	Name     string `yaml:"name"`
	Encoding string `yaml:"encoding"`
	Length   string `yaml:"length"`
}

// Set is a loaded document: a registry holding its structs plus its enums.
type Set struct {
	Registry *record.Registry
	Enums    map[string]*bitfield.Enum
	// Order lists struct names in document order.
	Order []string
	Text  textcodec.Codec
}

// Parse decodes a YAML document.
func Parse(r io.Reader) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &doc, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return &doc, nil
}

// LoadFile parses and builds the document at path.
func LoadFile(path string, opts ...record.Option) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc.Build(opts...)
}

// Build registers every enum and struct of the document in a new registry.
// opts are applied after the document's own settings.
func (d *Document) Build(opts ...record.Option) (*Set, error) {
	text := textcodec.Windows1252
	if d.Encoding != "" {
		var err error
		if text, err = textcodec.Lookup(d.Encoding); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}
	order, ok := buf.OrderByName(d.ByteOrder)
	if !ok {
		return nil, fmt.Errorf("%w: byteOrder %q", ErrInvalid, d.ByteOrder)
	}
	ropts := []record.Option{record.WithTextCodec(text), record.WithByteOrder(order)}
	if d.SizeLimit > 0 {
		ropts = append(ropts, record.WithSizeLimit(d.SizeLimit))
	}
	set := &Set{
		Registry: record.NewRegistry(append(ropts, opts...)...),
		Enums:    make(map[string]*bitfield.Enum, len(d.Enums)),
		Text:     text,
	}

	for _, es := range d.Enums {
		if _, dup := set.Enums[es.Name]; dup {
			return nil, fmt.Errorf("%w: enum %q declared twice", ErrInvalid, es.Name)
		}
		consts := make([]bitfield.Constant, len(es.Values))
		for i, v := range es.Values {
			consts[i] = bitfield.Constant{Name: v.Name, Code: v.Code, SkipLookup: v.SkipLookup}
		}
		e, err := bitfield.New(es.Name, bitfield.Width(es.Width), consts...)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		set.Enums[es.Name] = e
	}

	for _, ss := range d.Structs {
		if _, dup := set.Registry.Lookup(ss.Name); dup {
			return nil, fmt.Errorf("%w: struct %q declared twice", ErrInvalid, ss.Name)
		}
		fields := make([]record.Field, 0, len(ss.Fields))
		for _, fs := range ss.Fields {
			f, err := set.field(fs)
			if err != nil {
				return nil, fmt.Errorf("%w: %s.%s: %w", ErrInvalid, ss.Name, fs.Name, err)
			}
			fields = append(fields, f)
		}
		segs := make([]record.Segment, 0, len(ss.Tail))
		for _, sg := range ss.Tail {
			enc, ok := record.EncodingByName(sg.Encoding)
			if !ok {
				return nil, fmt.Errorf("%w: %s.%s: unknown encoding %q", ErrInvalid, ss.Name, sg.Name, sg.Encoding)
			}
			segs = append(segs, record.Segment{Name: sg.Name, Encoding: enc, Length: sg.Length})
		}
		if _, err := set.Registry.Register(ss.Name, fields, record.WithTail(segs...)); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		set.Order = append(set.Order, ss.Name)
	}
	return set, nil
}

func (s *Set) field(fs FieldSpec) (record.Field, error) {
	var f record.Field
	switch fs.Type {
	case "bitfield":
		e, ok := s.Enums[fs.Enum]
		if !ok {
			return f, fmt.Errorf("unknown enum %q", fs.Enum)
		}
		f = record.BitfieldField(fs.Name, e)
	case "struct":
		nested, ok := s.Registry.Lookup(fs.Struct)
		if !ok {
			return f, fmt.Errorf("unknown struct %q", fs.Struct)
		}
		f = record.StructField(fs.Name, nested)
	default:
		k, ok := record.KindByName(fs.Type)
		if !ok || !k.Scalar() {
			return f, fmt.Errorf("unknown type %q", fs.Type)
		}
		f = record.ScalarField(fs.Name, k)
	}
	if fs.Count < 0 {
		return f, fmt.Errorf("negative count %d", fs.Count)
	}
	if fs.Count > 0 {
		f = record.ArrayField(fs.Name, f, fs.Count)
	}
	return f, nil
}

// Struct returns a schema of the set.
func (s *Set) Struct(name string) (*record.Schema, bool) {
	return s.Registry.Lookup(name)
}
