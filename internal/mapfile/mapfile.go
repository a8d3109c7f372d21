// Package mapfile exposes a file's contents as a read-only byte slice,
// memory-mapped where the platform allows it.
package mapfile

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by Slice after Close.
var ErrClosed = errors.New("mapfile: closed")

// File is a read-only view of a file. The bytes must not be written to and
// must not be used after Close.
type File struct {
	data    []byte
	release func([]byte) error
}

// Bytes returns the file contents.
func (f *File) Bytes() []byte { return f.data }

// Len returns the file size.
func (f *File) Len() int { return len(f.data) }

// Slice returns the contents from off to the end of the file.
func (f *File) Slice(off int) ([]byte, error) {
	if f.data == nil && f.release == nil {
		return nil, ErrClosed
	}
	if off < 0 || off > len(f.data) {
		return nil, fmt.Errorf("mapfile: offset %d outside file of %d bytes", off, len(f.data))
	}
	return f.data[off:len(f.data):len(f.data)], nil
}

// Close releases the mapping. Calling it twice is a no-op.
func (f *File) Close() error {
	if f.release == nil {
		return nil
	}
	data, release := f.data, f.release
	f.data, f.release = nil, nil
	return release(data)
}
