package record

import (
	"fmt"

	"github.com/joshuapare/structkit/internal/buf"
)

// Tail routines address the bytes after the fixed portion. preceding is the
// number of tail bytes owned by earlier tail fields; current is the size of
// the region being replaced. Every write keeps the bytes before preceding
// and the bytes after the replaced region, shifting the latter by the
// length delta.

// TailLen returns the size of the tail.
func (in *Instance) TailLen() int { return len(in.b) - in.schema.size }

// Tail returns the tail bytes without copying.
func (in *Instance) Tail() []byte { return in.b[in.schema.size:] }

// tailWindow returns tail[preceding:preceding+n] without copying.
func (in *Instance) tailWindow(preceding, n int) ([]byte, error) {
	if preceding < 0 || n < 0 {
		return nil, fmt.Errorf("%s tail: %w (offset %d, length %d)", in.schema.name, ErrNegativeLength, preceding, n)
	}
	w, ok := buf.Slice(in.Tail(), preceding, n)
	if !ok {
		return nil, fmt.Errorf("%s tail: %w (%d+%d of %d)", in.schema.name, ErrOutOfBounds, preceding, n, in.TailLen())
	}
	return w, nil
}

// ResizeTail sets the tail to n bytes, truncating or zero-extending at the end.
func (in *Instance) ResizeTail(n int) error {
	if n < 0 {
		return fmt.Errorf("%s tail: %w (%d)", in.schema.name, ErrNegativeLength, n)
	}
	cur := in.TailLen()
	if n >= cur {
		return in.replaceTail(cur, 0, make([]byte, n-cur))
	}
	return in.replaceTail(n, cur-n, nil)
}

// replaceTail swaps tail[preceding:preceding+current] for value. All checks
// run before the buffer is touched.
func (in *Instance) replaceTail(preceding, current int, value []byte) error {
	name := in.schema.name
	if preceding < 0 || current < 0 {
		return fmt.Errorf("%s tail: %w (offset %d, length %d)", name, ErrNegativeLength, preceding, current)
	}
	tl := in.TailLen()
	end, err := buf.CheckRange(tl, preceding, current)
	if err != nil {
		return fmt.Errorf("%s tail: %w: %v", name, ErrOutOfBounds, err)
	}
	otherLen := tl - end
	newLen, ok := buf.AddOverflowSafe(preceding, len(value))
	if ok {
		newLen, ok = buf.AddOverflowSafe(newLen, otherLen)
	}
	if !ok || newLen > in.schema.cfg.sizeLimit {
		return fmt.Errorf("%s tail: %w (%d+%d+%d bytes, limit %d)",
			name, ErrSizeLimit, preceding, len(value), otherLen, in.schema.cfg.sizeLimit)
	}

	fixed := in.schema.size
	if newLen == tl {
		// same size: rewrite in place, the other bytes do not move
		copy(in.b[fixed+preceding:], value)
		return nil
	}
	if !in.owned {
		return fmt.Errorf("%s tail: %w (%d -> %d bytes)", name, ErrNotResizable, tl, newLen)
	}

	nb := make([]byte, fixed+newLen)
	copy(nb, in.b[:fixed+preceding])
	copy(nb[fixed+preceding:], value)
	copy(nb[fixed+preceding+len(value):], in.b[fixed+end:])
	in.b = nb
	return nil
}

// ReadTailBytes returns a copy of length bytes at preceding.
func (in *Instance) ReadTailBytes(preceding, length int) ([]byte, error) {
	w, err := in.tailWindow(preceding, length)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(w))
	copy(out, w)
	return out, nil
}

// WriteTailBytes replaces current bytes at preceding with b and returns len(b).
func (in *Instance) WriteTailBytes(preceding, current int, b []byte) (int, error) {
	if err := in.replaceTail(preceding, current, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

// ReadInt32s reads count 32-bit signed integers at preceding.
func (in *Instance) ReadInt32s(preceding, count int) ([]int32, error) {
	n, ok := buf.MulOverflowSafe(count, 4)
	if !ok {
		return nil, fmt.Errorf("%s tail: %w (count %d)", in.schema.name, ErrSizeLimit, count)
	}
	w, err := in.tailWindow(preceding, n)
	if err != nil {
		return nil, err
	}
	o := in.schema.cfg.order
	out := make([]int32, count)
	for i := range out {
		out[i] = int32(o.Uint32(w[i*4:]))
	}
	return out, nil
}

// WriteInt32s replaces currentCount integers at preceding with vals and
// returns the new region size in bytes.
func (in *Instance) WriteInt32s(preceding, currentCount int, vals []int32) (int, error) {
	cur, ok := buf.MulOverflowSafe(currentCount, 4)
	if !ok {
		return 0, fmt.Errorf("%s tail: %w (count %d)", in.schema.name, ErrSizeLimit, currentCount)
	}
	b := in.encodeInt32s(vals)
	if err := in.replaceTail(preceding, cur, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (in *Instance) encodeInt32s(vals []int32) []byte {
	o := in.schema.cfg.order
	b := make([]byte, 0, 4*len(vals))
	for _, v := range vals {
		b = o.AppendUint32(b, uint32(v))
	}
	return b
}

// ReadFormula decompiles the length-byte formula blob at preceding.
func (in *Instance) ReadFormula(preceding, length int) (string, error) {
	w, err := in.tailWindow(preceding, length)
	if err != nil {
		return "", err
	}
	return in.decompile(w)
}

// WriteFormula compiles text and replaces current bytes at preceding with the
// result. It returns the compiled size.
func (in *Instance) WriteFormula(preceding, current int, text string) (int, error) {
	b, err := in.compile(text)
	if err != nil {
		return 0, err
	}
	if err := in.replaceTail(preceding, current, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (in *Instance) compile(text string) ([]byte, error) {
	fc := in.schema.cfg.formula
	if fc == nil {
		return nil, fmt.Errorf("%s: %w", in.schema.name, ErrNoFormulaCodec)
	}
	b, err := fc.Compile(text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", in.schema.name, ErrFormula, err)
	}
	return b, nil
}

func (in *Instance) decompile(b []byte) (string, error) {
	fc := in.schema.cfg.formula
	if fc == nil {
		return "", fmt.Errorf("%s: %w", in.schema.name, ErrNoFormulaCodec)
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	s, err := fc.Decompile(cp)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", in.schema.name, ErrFormula, err)
	}
	return s, nil
}
