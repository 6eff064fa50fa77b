package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ddon-research/ddon-dwarf-reconstructor/dwarfrec"
	"github.com/ddon-research/ddon-dwarf-reconstructor/internal/cache"
)

var (
	generateSymbols       []string
	generateSymbolsFile   string
	generateFullHierarchy bool
	generateMaxDepth      int
	generateNoMetadata    bool
	generateWorkers       int
	generateCachePath     string
	generateOutDir        string
	generateByPlatform    bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <elf-file> [type...]",
	Short: "Generate C++ headers for one or more types",
	Long: `Generate self-contained C++ headers for the named types.

Each header contains the type's full inheritance chain; with
--full-hierarchy it also defines every aggregate the type depends on,
ordered so the result compiles as-is. Types can be given as arguments,
with --symbols, or read from a file with --symbols-file.

The binary path falls back to DWARFREC_ELF when omitted, --out-dir to
DWARFREC_OUT, and the cache path to DWARFREC_CACHE.`,
	Args: cobra.ArbitraryArgs,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringSliceVar(&generateSymbols, "symbols", nil, "comma-separated type names")
	generateCmd.Flags().StringVarP(&generateSymbolsFile, "symbols-file", "s", "", "read type names from file, one per line")
	generateCmd.Flags().BoolVar(&generateFullHierarchy, "full-hierarchy", false, "define the transitive dependency closure, not just the inheritance chain")
	generateCmd.Flags().IntVar(&generateMaxDepth, "max-depth", 0, "dependency closure depth limit (0 = default)")
	generateCmd.Flags().BoolVar(&generateNoMetadata, "no-metadata", false, "omit size/offset/packing comments")
	generateCmd.Flags().IntVarP(&generateWorkers, "workers", "w", 1, "parallel generation workers")
	generateCmd.Flags().StringVar(&generateCachePath, "cache", os.Getenv("DWARFREC_CACHE"), "persistent cache file path")
	generateCmd.Flags().StringVarP(&generateOutDir, "out-dir", "d", os.Getenv("DWARFREC_OUT"), "write one header per type into this directory")
	generateCmd.Flags().BoolVar(&generateByPlatform, "by-platform", false, "partition the output directory by detected platform")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	elfPath, typeArgs, err := resolveInputs(args)
	if err != nil {
		return err
	}

	symbols, err := collectSymbols(typeArgs)
	if err != nil {
		return err
	}
	if len(symbols) == 0 {
		return fmt.Errorf("no types given: pass type names, --symbols or --symbols-file")
	}
	if len(symbols) > 1 && generateOutDir == "" {
		return fmt.Errorf("multiple types need --out-dir")
	}

	f, err := dwarfrec.Open(elfPath)
	if err != nil {
		return err
	}
	defer f.Close()

	opts := dwarfrec.Options{
		FullHierarchy:   generateFullHierarchy,
		MaxDepth:        generateMaxDepth,
		IncludeMetadata: !generateNoMetadata,
	}
	if generateCachePath != "" {
		opts.Cache = cache.OpenPersistent(generateCachePath, f.SourceID())
		defer func() {
			if err := opts.Cache.Save(); err != nil {
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			}
		}()
	}
	rec := dwarfrec.NewReconstructor(f, opts)

	if generateOutDir != "" {
		outDir := generateOutDir
		if generateByPlatform {
			outDir = filepath.Join(outDir, strings.ToLower(f.Platform().String()))
		}
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		return generateBatch(rec, symbols, outDir)
	}

	out, err := rec.Generate(symbols[0])
	if err != nil {
		return err
	}
	fmt.Fprint(output, out.Header)
	return nil
}

// generateBatch reconstructs each symbol into its own header file,
// optionally in parallel. Per-symbol failures are reported but only fail
// the run when nothing succeeded.
func generateBatch(rec *dwarfrec.Reconstructor, symbols []string, outDir string) error {
	workers := generateWorkers
	if workers < 1 {
		workers = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)

	var mu sync.Mutex
	var succeeded int
	var failures []string

	for _, symbol := range symbols {
		g.Go(func() error {
			out, err := rec.Generate(symbol)
			if err == nil {
				path := filepath.Join(outDir, sanitizeFilename(symbol)+".h")
				err = os.WriteFile(path, []byte(out.Header), 0o644)
				if err == nil {
					mu.Lock()
					succeeded++
					fmt.Fprintf(output, "%s -> %s (%d types)\n", symbol, path, len(out.Entities))
					mu.Unlock()
					return nil
				}
			}
			mu.Lock()
			failures = append(failures, symbol)
			fmt.Fprintf(os.Stderr, "%s: %v\n", symbol, err)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	if len(failures) > 0 {
		fmt.Fprintf(output, "%d of %d types failed: %s\n",
			len(failures), len(symbols), strings.Join(failures, ", "))
	}
	if succeeded == 0 {
		return fmt.Errorf("all %d types failed", len(symbols))
	}
	return nil
}

// resolveInputs splits the positional arguments into the binary path and
// type names. DWARFREC_ELF supplies the path when set, leaving every
// argument as a type name.
func resolveInputs(args []string) (string, []string, error) {
	if elf := os.Getenv("DWARFREC_ELF"); elf != "" {
		return elf, args, nil
	}
	if len(args) == 0 {
		return "", nil, fmt.Errorf("no binary given: pass an ELF path or set DWARFREC_ELF")
	}
	return args[0], args[1:], nil
}

func collectSymbols(args []string) ([]string, error) {
	symbols := append([]string(nil), args...)
	symbols = append(symbols, generateSymbols...)

	if generateSymbolsFile != "" {
		f, err := os.Open(generateSymbolsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open symbols file: %w", err)
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			symbols = append(symbols, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read symbols file: %w", err)
		}
	}

	return symbols, nil
}

// sanitizeFilename keeps type names usable as file names: template
// brackets and namespace separators become underscores.
func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, name)
}
