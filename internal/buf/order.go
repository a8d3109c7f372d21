// Package buf contains bounds-checking and byte-order helpers shared by the
// record layer.
package buf

import (
	"encoding/binary"

	"golang.org/x/sys/cpu"
)

// Order combines binary.ByteOrder and binary.AppendByteOrder so callers can
// both patch fixed offsets and append to growing buffers.
type Order interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// NativeOrder returns the byte order of the host CPU. Legacy structures that
// were dumped straight from memory use this order for their integer arrays.
func NativeOrder() Order {
	if cpu.IsBigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// OrderByName maps "little", "big" and "native" to an Order.
func OrderByName(name string) (Order, bool) {
	switch name {
	case "", "little", "le", "little-endian":
		return binary.LittleEndian, true
	case "big", "be", "big-endian":
		return binary.BigEndian, true
	case "native":
		return NativeOrder(), true
	default:
		return nil, false
	}
}
