package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/structkit/internal/logger"
	"github.com/joshuapare/structkit/pkg/schemafile"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	jsonOut bool
)

var rootCmd = &cobra.Command{
	Use:   "structctl",
	Short: "Inspect binary records described by YAML schemas",
	Long: `structctl lays out fixed-offset binary record schemas and decodes
records from files, including bitfield masks and variable-length tails.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(logger.Options{Enabled: verbose, Level: slog.LevelDebug})
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging on stderr")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// loadSchemas loads a schema document and logs what it registered.
func loadSchemas(path string) (*schemafile.Set, error) {
	set, err := schemafile.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load schemas: %w", err)
	}
	logger.Debug("loaded schemas", "path", path, "structs", len(set.Order), "enums", len(set.Enums),
		"encoding", set.Text.Name())
	return set, nil
}
