package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	outputFile string
	verbose    bool
	output     io.Writer
)

var rootCmd = &cobra.Command{
	Use:   "dwarfrec",
	Short: "DWARF type reconstructor for game binaries",
	Long: `dwarfrec rebuilds compilable C++ type definitions from the DWARF
debug information embedded in ELF binaries.

It locates a type by name, walks its inheritance chain and dependency
closure, and emits a self-contained header with correct member offsets,
packing hints, and forward declarations.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		if outputFile != "" {
			f, err := os.Create(outputFile)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			output = f
		} else {
			output = os.Stdout
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if f, ok := output.(*os.File); ok && f != os.Stdout {
			f.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "write output to file instead of stdout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", os.Getenv("DWARFREC_VERBOSE") != "", "enable debug logging")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(graphCmd)
}
