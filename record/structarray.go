package record

import (
	"fmt"

	"github.com/joshuapare/structkit/internal/buf"
)

// SizeFunc reports the total size, fixed portion plus tail, of one element
// of a variable-size struct array. It receives a view of only the element's
// fixed portion.
type SizeFunc func(header *Instance) (int, error)

// SizeFromLengths returns a SizeFunc for elements whose tail is the sum of
// the given byte length fields.
func SizeFromLengths(lengths ...*Field) SizeFunc {
	return func(h *Instance) (int, error) {
		n := h.schema.size
		for _, f := range lengths {
			v, err := h.Int(f)
			if err != nil {
				return 0, err
			}
			if v < 0 {
				return 0, fmt.Errorf("%s.%s: %w (%d)", h.schema.name, f.name, ErrDecode, v)
			}
			var ok bool
			if n, ok = buf.AddOverflowSafe(n, int(v)); !ok {
				return 0, fmt.Errorf("%s: %w", h.schema.name, ErrSizeLimit)
			}
		}
		return n, nil
	}
}

// ReadStructArray reads count back-to-back elements of base starting at
// tail offset preceding. Each element is read in two steps: size is called
// on a view of the element's fixed portion, then the element is re-wrapped
// at its full size. The returned views alias the instance bytes; n is the
// number of tail bytes consumed.
func (in *Instance) ReadStructArray(preceding, count int, base *Schema, size SizeFunc) (elems []*Instance, n int, err error) {
	if preceding < 0 || count < 0 {
		return nil, 0, fmt.Errorf("%s: %w", in.schema.name, ErrNegativeLength)
	}
	tail := in.Tail()
	cur := preceding
	elems = make([]*Instance, 0, count)
	for i := range count {
		hdr, ok := buf.Slice(tail, cur, base.size)
		if !ok {
			return nil, 0, fmt.Errorf("%s[%d]: %w (header %d+%d of %d)", base.name, i, ErrOutOfBounds, cur, base.size, len(tail))
		}
		total, err := size(&Instance{schema: base, b: hdr})
		if err != nil {
			return nil, 0, fmt.Errorf("%s[%d]: %w", base.name, i, err)
		}
		if total < base.size {
			return nil, 0, fmt.Errorf("%s[%d]: %w (size %d below fixed size %d)", base.name, i, ErrDecode, total, base.size)
		}
		w, ok := buf.Slice(tail, cur, total)
		if !ok {
			return nil, 0, fmt.Errorf("%s[%d]: %w (element %d+%d of %d)", base.name, i, ErrOutOfBounds, cur, total, len(tail))
		}
		elems = append(elems, &Instance{schema: base, b: w})
		cur += total
	}
	return elems, cur - preceding, nil
}
