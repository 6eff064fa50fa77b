package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zboralski/lattice"
	"github.com/zboralski/lattice/render"

	"github.com/ddon-research/ddon-dwarf-reconstructor/dwarfrec"
)

var graphMaxDepth int

var graphCmd = &cobra.Command{
	Use:   "graph <elf-file> <type>",
	Short: "Export the dependency graph of a type as DOT",
	Long: `Export the type dependency graph rooted at the named type in
Graphviz DOT format. Each aggregate in the closure becomes a node; each
by-value or by-pointer dependency becomes an edge.`,
	Args: cobra.ExactArgs(2),
	RunE: runGraph,
}

func init() {
	graphCmd.Flags().IntVar(&graphMaxDepth, "max-depth", 0, "dependency closure depth limit (0 = default)")
}

func runGraph(cmd *cobra.Command, args []string) error {
	f, err := dwarfrec.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	rec := dwarfrec.NewReconstructor(f, dwarfrec.Options{MaxDepth: graphMaxDepth})
	edges, err := rec.DependencyEdges(args[1])
	if err != nil {
		return err
	}

	g := &lattice.Graph{}
	seen := make(map[string]bool)
	addNode := func(name string) {
		if !seen[name] {
			seen[name] = true
			g.Nodes = append(g.Nodes, name)
		}
	}
	addNode(args[1])
	for _, edge := range edges {
		addNode(edge[0])
		addNode(edge[1])
		g.Edges = append(g.Edges, lattice.Edge{Caller: edge[0], Callee: edge[1]})
	}
	g.Dedup()

	fmt.Fprint(output, render.DOT(g, fmt.Sprintf("%s dependency graph", args[1])))
	return nil
}
