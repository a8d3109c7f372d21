package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/structkit/internal/logger"
	"github.com/joshuapare/structkit/internal/mapfile"
	"github.com/joshuapare/structkit/record"
	"github.com/joshuapare/structkit/record/bitfield"
)

var dumpOffset int

func init() {
	rootCmd.AddCommand(newDumpCmd())
}

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <schema.yaml> <struct> <file>",
		Short: "Decode one record from a binary file",
		Long: `The dump command wraps the bytes of a file, starting at --offset, as an
instance of the named struct and prints every fixed field and tail segment.
Bitfields are shown as raw codes plus the names of the flags they contain.

Example:
  structctl dump notes.yaml ITEM item.bin
  structctl dump notes.yaml ITEM db.bin --offset 4096 --json`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(args)
		},
	}
	cmd.Flags().IntVar(&dumpOffset, "offset", 0, "Byte offset of the record in the file")
	return cmd
}

type dumpEntry struct {
	Name  string   `json:"name"`
	Kind  string   `json:"kind"`
	Value any      `json:"value"`
	Flags []string `json:"flags,omitempty"`
}

func runDump(args []string) error {
	set, err := loadSchemas(args[0])
	if err != nil {
		return err
	}
	s, ok := set.Struct(args[1])
	if !ok {
		return fmt.Errorf("struct %q not found in %s", args[1], args[0])
	}
	f, err := mapfile.Open(args[2])
	if err != nil {
		return fmt.Errorf("failed to open record file: %w", err)
	}
	defer f.Close()
	data, err := f.Slice(dumpOffset)
	if err != nil {
		return err
	}
	in, err := s.Wrap(data)
	if err != nil {
		return fmt.Errorf("failed to wrap record: %w", err)
	}
	logger.Debug("wrapped record", "struct", s.Name(), "offset", dumpOffset, "fixed", s.Size(), "tail", in.TailLen())

	entries, err := dumpFields(in, "")
	if err != nil {
		return err
	}
	entries = append(entries, dumpTail(in)...)

	if jsonOut {
		return printJSON(entries)
	}
	printInfo("%s at offset %d (%d fixed bytes, %d tail bytes)\n", s.Name(), dumpOffset, s.Size(), in.TailLen())
	for _, e := range entries {
		line := fmt.Sprintf("  %-24s %-12s %v", e.Name, e.Kind, e.Value)
		if len(e.Flags) > 0 {
			line += " [" + strings.Join(e.Flags, "|") + "]"
		}
		printInfo("%s\n", line)
	}
	return nil
}

func dumpFields(in *record.Instance, prefix string) ([]dumpEntry, error) {
	var out []dumpEntry
	for _, f := range in.Schema().Fields() {
		name := prefix + f.Name()
		switch f.Kind() {
		case record.Struct:
			sub, err := in.Struct(f)
			if err != nil {
				return nil, err
			}
			nested, err := dumpFields(sub, name+".")
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
		case record.Array:
			entries, err := dumpArray(in, f, name)
			if err != nil {
				return nil, err
			}
			out = append(out, entries...)
		case record.Bitfield:
			raw, err := in.Uint(f)
			if err != nil {
				return nil, err
			}
			flags, err := in.Flags(f)
			if err != nil {
				return nil, err
			}
			out = append(out, dumpEntry{
				Name:  name,
				Kind:  f.Enum().Name(),
				Value: fmt.Sprintf("0x%0*x", 2*f.Width(), raw),
				Flags: bitfield.Names(flags),
			})
		default:
			v, err := scalarValue(in, f)
			if err != nil {
				return nil, err
			}
			out = append(out, dumpEntry{Name: name, Kind: f.Kind().String(), Value: v})
		}
	}
	return out, nil
}

func scalarValue(in *record.Instance, f *record.Field) (any, error) {
	if f.Kind().Signed() {
		return in.Int(f)
	}
	return in.Uint(f)
}

func dumpArray(in *record.Instance, f *record.Field, name string) ([]dumpEntry, error) {
	elem := f.Elem()
	if elem.Kind() == record.Struct {
		var out []dumpEntry
		for i := 0; i < f.Count(); i++ {
			sub, err := in.StructElem(f, i)
			if err != nil {
				return nil, err
			}
			nested, err := dumpFields(sub, fmt.Sprintf("%s[%d].", name, i))
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
		}
		return out, nil
	}
	if elem.Width() == 1 && elem.Kind() != record.Bitfield {
		b, err := in.ArrayBytes(f)
		if err != nil {
			return nil, err
		}
		return []dumpEntry{{Name: name, Kind: fmt.Sprintf("%s[%d]", elem.Kind(), f.Count()), Value: hex.EncodeToString(b)}}, nil
	}
	vals := make([]int64, f.Count())
	for i := range vals {
		v, err := in.Elem(f, i)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return []dumpEntry{{Name: name, Kind: fmt.Sprintf("%s[%d]", elem.Kind(), f.Count()), Value: vals}}, nil
}

// dumpTail decodes each tail segment. Segments that fail to decode are
// reported inline so the rest of the record still prints.
func dumpTail(in *record.Instance) []dumpEntry {
	var out []dumpEntry
	for _, seg := range in.Schema().Segments() {
		e := dumpEntry{Name: seg.Name, Kind: seg.Encoding.String()}
		v, err := segmentValue(in, seg)
		if err != nil {
			logger.Warn("tail segment not decoded", "segment", seg.Name, "err", err)
			e.Value = "error: " + err.Error()
		} else {
			e.Value = v
		}
		out = append(out, e)
	}
	return out
}

func segmentValue(in *record.Instance, seg record.Segment) (any, error) {
	switch seg.Encoding {
	case record.Packed, record.Unpacked, record.WordPadded:
		return in.String(seg.Name)
	case record.StringList, record.NullStrings:
		return in.Strings(seg.Name)
	case record.Int32s:
		return in.Int32s(seg.Name)
	case record.Formula:
		text, err := in.Formula(seg.Name)
		if !errors.Is(err, record.ErrNoFormulaCodec) {
			return text, err
		}
		// no compiler available: show the compiled bytes
		off, err := in.SegmentOffset(seg.Name)
		if err != nil {
			return nil, err
		}
		n, err := in.SegmentSize(seg.Name)
		if err != nil {
			return nil, err
		}
		b, err := in.ReadTailBytes(off, n)
		if err != nil {
			return nil, err
		}
		return hex.EncodeToString(b), nil
	default:
		b, err := in.SegmentBytes(seg.Name)
		if err != nil {
			return nil, err
		}
		return hex.EncodeToString(b), nil
	}
}
