package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ddon-research/ddon-dwarf-reconstructor/dwarfrec"
)

var lookupJSON bool

var lookupCmd = &cobra.Command{
	Use:   "lookup <elf-file> <type>",
	Short: "Look up a single type definition",
	Long: `Look up one type by name and print its parsed layout: members with
offsets, methods, base classes and nested definitions.`,
	Args: cobra.ExactArgs(2),
	RunE: runLookup,
}

func init() {
	lookupCmd.Flags().BoolVar(&lookupJSON, "json", false, "print the parsed entity as JSON")
}

func runLookup(cmd *cobra.Command, args []string) error {
	f, err := dwarfrec.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	rec := dwarfrec.NewReconstructor(f, dwarfrec.Options{})
	e, err := rec.Lookup(args[1])
	if err != nil {
		return err
	}

	if lookupJSON {
		enc := json.NewEncoder(output)
		enc.SetIndent("", "  ")
		return enc.Encode(e)
	}

	fmt.Fprintf(output, "%s %s (%d bytes, offset 0x%08x)\n", e.Kind, e.Name, e.ByteSize, uint64(e.Offset))
	if len(e.Bases) > 0 {
		fmt.Fprintf(output, "  bases:\n")
		for _, b := range e.Bases {
			fmt.Fprintf(output, "    %s\n", b)
		}
	}
	if len(e.Members) > 0 {
		fmt.Fprintf(output, "  members:\n")
		for _, m := range e.Members {
			if m.Offset >= 0 {
				fmt.Fprintf(output, "    +0x%04x %s %s\n", m.Offset, m.Type, m.Name)
			} else {
				fmt.Fprintf(output, "           %s %s\n", m.Type, m.Name)
			}
		}
	}
	if len(e.Methods) > 0 {
		virtual := 0
		for _, m := range e.Methods {
			if m.Virtual {
				virtual++
			}
		}
		fmt.Fprintf(output, "  methods: %d (%d virtual)\n", len(e.Methods), virtual)
	}

	chain, err := rec.Chain(args[1])
	if err == nil && len(chain) > 1 {
		fmt.Fprintf(output, "  inheritance: %s\n", joinChain(chain))
	}
	return nil
}

func joinChain(chain []string) string {
	out := ""
	for i, name := range chain {
		if i > 0 {
			out += " -> "
		}
		out += name
	}
	return out
}
