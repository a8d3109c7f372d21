package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/structkit/record"
)

func init() {
	rootCmd.AddCommand(newLayoutCmd())
}

func newLayoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout <schema.yaml> [struct]",
		Short: "Print field offsets and sizes",
		Long: `The layout command prints the byte layout of every struct in a schema
document, or of a single struct: offset, width and kind of each field,
the fixed size, the layout fingerprint and the tail segments.

Example:
  structctl layout notes.yaml
  structctl layout notes.yaml ITEM --json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayout(args)
		},
	}
	return cmd
}

type layoutField struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Offset int    `json:"offset"`
	Width  int    `json:"width"`
	Count  int    `json:"count,omitempty"`
	Ref    string `json:"ref,omitempty"`
}

type layoutSegment struct {
	Name     string `json:"name"`
	Encoding string `json:"encoding"`
	Length   string `json:"length"`
}

type layoutStruct struct {
	Name        string          `json:"name"`
	Size        int             `json:"size"`
	Fingerprint string          `json:"fingerprint"`
	Fields      []layoutField   `json:"fields"`
	Tail        []layoutSegment `json:"tail,omitempty"`
}

func describe(s *record.Schema) layoutStruct {
	ls := layoutStruct{
		Name:        s.Name(),
		Size:        s.Size(),
		Fingerprint: fmt.Sprintf("%016x", s.Fingerprint()),
	}
	for _, f := range s.Fields() {
		lf := layoutField{Name: f.Name(), Kind: f.Kind().String(), Offset: f.Offset(), Width: f.Width()}
		if f.Kind() == record.Array {
			lf.Count = f.Count()
			lf.Kind = "array of " + f.Elem().Kind().String()
		}
		if e := f.Enum(); e != nil {
			lf.Ref = e.Name()
		}
		if n := f.Nested(); n != nil {
			lf.Ref = n.Name()
		}
		ls.Fields = append(ls.Fields, lf)
	}
	for _, seg := range s.Segments() {
		ls.Tail = append(ls.Tail, layoutSegment{Name: seg.Name, Encoding: seg.Encoding.String(), Length: seg.Length})
	}
	return ls
}

func runLayout(args []string) error {
	set, err := loadSchemas(args[0])
	if err != nil {
		return err
	}
	names := set.Order
	if len(args) == 2 {
		if _, ok := set.Struct(args[1]); !ok {
			return fmt.Errorf("struct %q not found in %s", args[1], args[0])
		}
		names = []string{args[1]}
	}

	out := make([]layoutStruct, 0, len(names))
	for _, name := range names {
		s, _ := set.Struct(name)
		out = append(out, describe(s))
	}
	if jsonOut {
		return printJSON(out)
	}

	for _, ls := range out {
		printInfo("%s (size %d, fingerprint %s)\n", ls.Name, ls.Size, ls.Fingerprint)
		printInfo("  %-8s %-6s %-22s %s\n", "OFFSET", "WIDTH", "KIND", "NAME")
		for _, f := range ls.Fields {
			kind := f.Kind
			if f.Count > 0 {
				kind = fmt.Sprintf("%s[%d]", f.Kind, f.Count)
			}
			if f.Ref != "" {
				kind += " " + f.Ref
			}
			printInfo("  0x%04x   %-6d %-22s %s\n", f.Offset, f.Width, kind, f.Name)
		}
		for _, seg := range ls.Tail {
			printInfo("  tail     %-6s %-22s %s (length %s)\n", "-", seg.Encoding, seg.Name, seg.Length)
		}
		printInfo("\n")
	}
	return nil
}
