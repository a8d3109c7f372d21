// Package record maps typed fields onto fixed-offset binary layouts that
// mirror legacy C structures.
//
// # Overview
//
// A Schema is an ordered list of fields. Offsets are implicit: each field
// starts where the previous one ends, nested structs contribute their own
// size and arrays contribute element size times count. Schemas are
// registered once in a Registry and never change afterwards.
//
//	var (
//	    Point = record.MustRegister("POINT", []record.Field{
//	        record.Int16Field("X"),
//	        record.Int16Field("Y"),
//	    })
//	    Item = record.MustRegister("ITEM", []record.Field{
//	        record.Uint16Field("NameLength"),
//	        record.BitfieldField("Flags", itemFlags),
//	        record.StructField("Pos", Point),
//	    }, record.WithTail(
//	        record.Segment{Name: "Name", Encoding: record.Packed, Length: "NameLength"},
//	    ))
//	    itemNameLen = Item.MustField("NameLength")
//	)
//
// # Instances
//
// An Instance is a view over bytes. Schema.New allocates zero-filled owned
// storage; Schema.Wrap borrows caller memory and writes through to it.
// Struct and StructElem return views that share the parent's bytes.
//
//	it := Item.New()
//	_ = it.SetString("Name", "abc") // NameLength becomes 3
//	n, _ := it.Int(itemNameLen)
//
// # Tails
//
// Bytes after the fixed portion form the tail. Its regions are tracked by
// length fields in the fixed portion and laid out in the order of their
// segments. Positional routines (WritePackedString, ReadStringList, ...)
// take the offset of the region within the tail and the size of the region
// being replaced, so they work for layouts that do not fit the segment model.
//
// Resizing a tail reallocates owned storage; views taken before the resize
// keep pointing at the old bytes. Wrapped instances can only rewrite their
// tail in place.
//
// Nothing in this package locks. Callers serialize access to shared buffers.
package record
