package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joshuapare/structkit/record/bitfield"
)

func init() {
	rootCmd.AddCommand(newFlagsCmd())
}

func newFlagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flags <schema.yaml> <enum> <code>",
		Short: "Decode a bitfield code against an enum",
		Long: `The flags command shows which constants of an enum a stored code
matches exactly and which flags it contains. Constants marked skipLookup
are never reported. Codes may be decimal, 0x hex or 0 octal.

Example:
  structctl flags notes.yaml NoteClass 0x0005`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlags(args)
		},
	}
	return cmd
}

type flagsResult struct {
	Enum  string   `json:"enum"`
	Code  uint32   `json:"code"`
	Exact string   `json:"exact,omitempty"`
	Mask  []string `json:"mask"`
}

func runFlags(args []string) error {
	set, err := loadSchemas(args[0])
	if err != nil {
		return err
	}
	e, ok := set.Enums[args[1]]
	if !ok {
		return fmt.Errorf("enum %q not found in %s", args[1], args[0])
	}
	code, err := strconv.ParseUint(args[2], 0, 32)
	if err != nil {
		return fmt.Errorf("invalid code %q: %w", args[2], err)
	}
	if mask := uint64(e.Width().Mask()); code&^mask != 0 {
		return fmt.Errorf("code %s does not fit the %d-bit enum %s", args[2], e.Width(), e.Name())
	}

	res := flagsResult{Enum: e.Name(), Code: uint32(code), Mask: bitfield.Names(e.DecodeMask(uint32(code)))}
	if c, ok := e.DecodeExact(uint32(code)); ok {
		res.Exact = c.Name
	}
	if jsonOut {
		return printJSON(res)
	}
	printInfo("%s 0x%0*x\n", res.Enum, e.Width().Bytes()*2, res.Code)
	if res.Exact != "" {
		printInfo("  exact: %s\n", res.Exact)
	} else {
		printInfo("  exact: (none)\n")
	}
	if len(res.Mask) == 0 {
		printInfo("  mask:  (none)\n")
	}
	for _, name := range res.Mask {
		printInfo("  mask:  %s\n", name)
	}
	return nil
}
