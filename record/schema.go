package record

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/joshuapare/structkit/internal/buf"
	"github.com/joshuapare/structkit/record/textcodec"
)

// DefaultSizeLimit bounds the total tail size of an instance. Legacy length
// fields are at most 32 bits wide.
const DefaultSizeLimit = math.MaxInt32

type config struct {
	order     buf.Order
	text      TextCodec
	formula   FormulaCodec
	sizeLimit int
}

// Option configures a Registry.
type Option func(*config)

// WithByteOrder sets the byte order of every integer the registry's schemas
// read or write. The default is little-endian.
func WithByteOrder(o buf.Order) Option {
	return func(c *config) { c.order = o }
}

// WithNativeByteOrder selects the host byte order.
func WithNativeByteOrder() Option {
	return WithByteOrder(buf.NativeOrder())
}

// WithTextCodec sets the codec for strings stored in tails. The default is
// Windows-1252.
func WithTextCodec(tc TextCodec) Option {
	return func(c *config) { c.text = tc }
}

// WithFormulaCodec sets the formula compiler used by formula tail segments.
func WithFormulaCodec(fc FormulaCodec) Option {
	return func(c *config) { c.formula = fc }
}

// WithSizeLimit caps the tail size of instances.
func WithSizeLimit(n int) Option {
	return func(c *config) { c.sizeLimit = n }
}

// Registry owns a set of named schemas and the codecs they use. Schemas are
// registered once and are immutable afterwards.
type Registry struct {
	cfg config

	mu      sync.RWMutex
	schemas map[string]*Schema
}

// Default is the process-wide registry used by the package-level functions.
var Default = NewRegistry()

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	cfg := config{
		order:     binary.LittleEndian,
		text:      textcodec.Windows1252,
		sizeLimit: DefaultSizeLimit,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Registry{cfg: cfg, schemas: make(map[string]*Schema)}
}

// SchemaOption configures a single schema at registration.
type SchemaOption func(*Schema) error

// WithTail declares the variable-length segments that follow the fixed
// portion, in storage order.
func WithTail(segments ...Segment) SchemaOption {
	return func(s *Schema) error {
		for _, seg := range segments {
			if err := s.addSegment(seg); err != nil {
				return err
			}
		}
		return nil
	}
}

// Schema is a registered fixed layout plus optional tail segments.
type Schema struct {
	name        string
	fields      []Field
	index       map[string]int
	size        int
	segments    []segment
	segIndex    map[string]int
	fingerprint uint64
	cfg         *config
}

// Register lays out fields in order and stores the schema under name.
// Registering an identical layout again returns the cached schema; a
// different layout under the same name fails with ErrSchemaConflict.
func (r *Registry) Register(name string, fields []Field, opts ...SchemaOption) (*Schema, error) {
	s, err := r.build(name, fields, opts)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.schemas[name]; ok {
		if prev.fingerprint == s.fingerprint {
			return prev, nil
		}
		return nil, fmt.Errorf("%w: %q already registered with layout %016x (new %016x)",
			ErrSchemaConflict, name, prev.fingerprint, s.fingerprint)
	}
	r.schemas[name] = s
	return s, nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(name string, fields []Field, opts ...SchemaOption) *Schema {
	s, err := r.Register(name, fields, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Lookup returns a registered schema.
func (r *Registry) Lookup(name string) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[name]
	return s, ok
}

// Schemas returns the registered schemas sorted by name.
func (r *Registry) Schemas() []*Schema {
	r.mu.RLock()
	out := make([]*Schema, 0, len(r.schemas))
	for _, s := range r.schemas {
		out = append(out, s)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func (r *Registry) build(name string, fields []Field, opts []SchemaOption) (*Schema, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty schema name", ErrInvalidSchema)
	}
	s := &Schema{
		name:     name,
		fields:   make([]Field, len(fields)),
		index:    make(map[string]int, len(fields)),
		segIndex: make(map[string]int),
		cfg:      &r.cfg,
	}
	off := 0
	for i, f := range fields {
		if f.name == "" {
			return nil, fmt.Errorf("%w: %s field %d has no name", ErrInvalidSchema, name, i)
		}
		if _, dup := s.index[f.name]; dup {
			return nil, fmt.Errorf("%w: %s declares %q twice", ErrInvalidSchema, name, f.name)
		}
		if f.elem != nil {
			e := *f.elem
			f.elem = &e
		}
		w, err := f.measure()
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", name, err)
		}
		f.offset = off
		f.width = w
		f.owner = s
		var ok bool
		if off, ok = buf.AddOverflowSafe(off, w); !ok || off > r.cfg.sizeLimit {
			return nil, fmt.Errorf("schema %s: %w (fixed size)", name, ErrSizeLimit)
		}
		s.fields[i] = f
		s.index[f.name] = i
	}
	s.size = off
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("schema %s: %w", name, err)
		}
	}
	s.fingerprint = xxhash.Sum64String(s.signature())
	return s, nil
}

func (s *Schema) signature() string {
	var sb strings.Builder
	sb.WriteString(s.name)
	for i := range s.fields {
		sb.WriteByte(';')
		sb.WriteString(s.fields[i].signature())
	}
	for _, seg := range s.segments {
		fmt.Fprintf(&sb, "|%s:%s<%s", seg.Name, seg.Encoding, seg.Length)
	}
	return sb.String()
}

// Name returns the schema name.
func (s *Schema) Name() string { return s.name }

// Size returns the fixed size in bytes.
func (s *Schema) Size() int { return s.size }

// Fingerprint is a 64-bit hash of the layout. Two schemas with equal
// fingerprints lay out their bytes identically.
func (s *Schema) Fingerprint() uint64 { return s.fingerprint }

// Fields returns handles to the fields in declaration order.
func (s *Schema) Fields() []*Field {
	out := make([]*Field, len(s.fields))
	for i := range s.fields {
		out[i] = &s.fields[i]
	}
	return out
}

// Field returns the handle for the named field.
func (s *Schema) Field(name string) (*Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return &s.fields[i], true
}

// MustField is like Field but panics when the field is missing. It is meant
// for resolving accessor handles once, next to the schema declaration.
func (s *Schema) MustField(name string) *Field {
	f, ok := s.Field(name)
	if !ok {
		panic(fmt.Sprintf("record: schema %s has no field %q", s.name, name))
	}
	return f
}

// Offset returns the byte offset of the named field.
func (s *Schema) Offset(name string) (int, error) {
	f, ok := s.Field(name)
	if !ok {
		return 0, fmt.Errorf("%s.%s: %w", s.name, name, ErrUnknownField)
	}
	return f.offset, nil
}

// Segments returns the tail segment declarations in storage order.
func (s *Schema) Segments() []Segment {
	out := make([]Segment, len(s.segments))
	for i, seg := range s.segments {
		out[i] = seg.Segment
	}
	return out
}

// Layout renders the field table, one field per line.
func (s *Schema) Layout() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s size=%d fingerprint=%016x\n", s.name, s.size, s.fingerprint)
	for i := range s.fields {
		f := &s.fields[i]
		fmt.Fprintf(&sb, "  0x%04x  %4d  %-8s %s\n", f.offset, f.width, f.kind, f.name)
	}
	for _, seg := range s.segments {
		fmt.Fprintf(&sb, "  tail         %-8s %s (length %s)\n", seg.Encoding, seg.Name, seg.Length)
	}
	return sb.String()
}

// Register registers a schema in the Default registry.
func Register(name string, fields []Field, opts ...SchemaOption) (*Schema, error) {
	return Default.Register(name, fields, opts...)
}

// MustRegister registers a schema in the Default registry and panics on error.
func MustRegister(name string, fields []Field, opts ...SchemaOption) *Schema {
	return Default.MustRegister(name, fields, opts...)
}

// SizeOf returns the fixed size of s.
func SizeOf(s *Schema) int { return s.size }
