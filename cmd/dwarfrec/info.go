package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ddon-research/ddon-dwarf-reconstructor/dwarfrec"
)

var infoCmd = &cobra.Command{
	Use:   "info <elf-file>",
	Short: "Display binary debug information summary",
	Long:  `Display the detected platform, source identity, and debug-info statistics for an ELF binary.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	f, err := dwarfrec.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintf(output, "Binary: %s\n", args[0])
	fmt.Fprintf(output, "Platform: %s\n", f.Platform())
	fmt.Fprintf(output, "Source ID: %s\n", f.SourceID())

	ix, err := f.Index()
	if err != nil {
		return err
	}
	fmt.Fprintf(output, "Compilation Units: %d\n", ix.Units())
	fmt.Fprintf(output, "Debug Entries: %d\n", ix.Len())
	return nil
}
