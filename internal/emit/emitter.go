// Package emit renders parsed entities as a compilable C++ header.
//
// Definitions come out in two phases: the root's inheritance chain first,
// farthest base to root, then every dependency ordered so that by-value
// uses appear after their definitions. Types referenced only by pointer
// or reference and not defined in the header get forward declarations.
package emit

import (
	"debug/dwarf"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/ddon-research/ddon-dwarf-reconstructor/internal/entity"
	"github.com/ddon-research/ddon-dwarf-reconstructor/internal/graph"
	"github.com/ddon-research/ddon-dwarf-reconstructor/internal/hierarchy"
	"github.com/ddon-research/ddon-dwarf-reconstructor/internal/layout"
	"github.com/ddon-research/ddon-dwarf-reconstructor/internal/typechain"
)

// Options control header rendering.
type Options struct {
	IncludeMetadata bool
	Typedefs        map[string]string // typedef name -> underlying type
}

// Emitter renders headers against a built index. The index validates that
// forward-declared names really denote classes, structs or unions.
type Emitter struct {
	ix *graph.Index
}

// New returns an emitter over the given index.
func New(ix *graph.Index) *Emitter {
	return &Emitter{ix: ix}
}

// Header renders the complete header for a closure result.
func (em *Emitter) Header(res *hierarchy.Result, opts Options) string {
	guard := guardName(res.Root) + "_HIERARCHY_H"

	var b strings.Builder
	fmt.Fprintf(&b, "#ifndef %s\n#define %s\n\n", guard, guard)
	b.WriteString("#include <cstdint>\n\n")

	if len(opts.Typedefs) > 0 {
		b.WriteString("// Type definitions\n")
		for _, name := range sortedKeys(opts.Typedefs) {
			fmt.Fprintf(&b, "typedef %s %s;\n", opts.Typedefs[name], name)
		}
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "// Generated inheritance hierarchy for: %s\n", res.Root)

	if root, ok := res.Entities[res.Root]; ok && opts.IncludeMetadata {
		info := layout.Analyze(root)
		fmt.Fprintf(&b, "\n// Target: %s\n", res.Root)
		fmt.Fprintf(&b, "// - Size: %d bytes\n", root.ByteSize)
		fmt.Fprintf(&b, "// - Offset: 0x%08x\n", uint64(root.Offset))
		fmt.Fprintf(&b, "// - Suggested Packing: %d bytes\n", info.SuggestedPacking)
		if len(res.Chain) > 1 {
			fmt.Fprintf(&b, "// - Inheritance Chain: %s\n", strings.Join(res.Chain, " -> "))
		}
	}

	if decls := em.forwardDecls(res, opts.Typedefs); len(decls) > 0 {
		b.WriteString("\n// Forward declarations\n")
		for _, d := range decls {
			fmt.Fprintf(&b, "%s %s;\n", d.keyword, d.name)
		}
	}

	chain, deps := splitPhases(res)

	if len(chain) > 0 {
		b.WriteString("\n// ========== Inheritance Hierarchy ==========\n")
		for _, name := range chain {
			b.WriteByte('\n')
			em.writeEntity(&b, res.Entities[name], opts)
		}
	}

	if len(deps) > 0 {
		b.WriteString("\n// ========== Dependency Definitions ==========\n")
		for _, name := range orderDependencies(res, deps) {
			b.WriteByte('\n')
			em.writeEntity(&b, res.Entities[name], opts)
		}
	}

	fmt.Fprintf(&b, "\n#endif // %s\n", guard)
	return b.String()
}

// splitPhases separates the chain entities (in chain order) from the
// remaining dependencies.
func splitPhases(res *hierarchy.Result) (chain, deps []string) {
	inChain := make(map[string]bool, len(res.Chain))
	for _, name := range res.Chain {
		if _, ok := res.Entities[name]; ok {
			chain = append(chain, name)
			inChain[name] = true
		}
	}
	for name := range res.Entities {
		if !inChain[name] {
			deps = append(deps, name)
		}
	}
	slices.Sort(deps)
	return chain, deps
}

// orderDependencies topologically sorts phase-two entities so that
// by-value uses come after their definitions. Ties break alphabetically.
// A by-value cycle cannot occur in a valid C++ layout; if the edges form
// one anyway, the remainder is appended alphabetically.
func orderDependencies(res *hierarchy.Result, deps []string) []string {
	inPhase := make(map[string]bool, len(deps))
	for _, name := range deps {
		inPhase[name] = true
	}

	// edges[a] = set of names that must precede a.
	indegree := make(map[string]int, len(deps))
	dependents := make(map[string][]string)
	for _, name := range deps {
		indegree[name] = 0
	}
	for _, name := range deps {
		for _, pre := range byValueUses(res.Entities[name]) {
			if pre == name || !inPhase[pre] {
				continue
			}
			dependents[pre] = append(dependents[pre], name)
			indegree[name]++
		}
	}

	ready := make([]string, 0, len(deps))
	for _, name := range deps {
		if indegree[name] == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(deps))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)
		released := false
		for _, dep := range dependents[name] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
				released = true
			}
		}
		if released {
			sort.Strings(ready)
		}
	}

	if len(order) < len(deps) {
		slog.Warn("by-value dependency cycle, falling back to name order", "unordered", len(deps)-len(order))
		placed := make(map[string]bool, len(order))
		for _, name := range order {
			placed[name] = true
		}
		for _, name := range deps {
			if !placed[name] {
				order = append(order, name)
			}
		}
	}
	return order
}

// byValueUses lists the entity names e embeds by value: direct bases and
// members that are neither pointers nor references.
func byValueUses(e *entity.Entity) []string {
	var uses []string
	uses = append(uses, e.Bases...)
	for _, m := range e.Members {
		if m.Static {
			continue
		}
		if strings.ContainsAny(m.Type, "*&") {
			continue
		}
		uses = append(uses, baseTypeName(m.Type))
	}
	return uses
}

// forwardDecl is one pending declaration: the keyword matches the
// referenced node's tag so a struct is not redeclared as a class.
type forwardDecl struct {
	keyword string
	name    string
}

// forwardDecls collects names that need a forward declaration: referenced
// types validated as class/struct/union against the graph, minus
// everything already defined in this header.
func (em *Emitter) forwardDecls(res *hierarchy.Result, typedefs map[string]string) []forwardDecl {
	defined := make(map[string]bool, len(res.Entities))
	for name, e := range res.Entities {
		defined[name] = true
		for _, en := range e.Enums {
			defined[en.Name] = true
		}
		for _, s := range e.Structs {
			if s.Name != "" {
				defined[s.Name] = true
			}
		}
		for _, u := range e.Unions {
			if u.Name != "" {
				defined[u.Name] = true
			}
		}
	}
	for name := range typedefs {
		defined[name] = true
	}

	set := make(map[string]string)
	for _, e := range res.Entities {
		for _, m := range e.Members {
			em.considerDecl(set, defined, m.Type, m.TypeRef)
		}
		for _, m := range e.Methods {
			em.considerDecl(set, defined, m.ReturnType, m.ReturnRef)
			for _, p := range m.Params {
				em.considerDecl(set, defined, p.Type, p.TypeRef)
			}
		}
	}

	decls := make([]forwardDecl, 0, len(set))
	for name, keyword := range set {
		decls = append(decls, forwardDecl{keyword: keyword, name: name})
	}
	slices.SortFunc(decls, func(a, b forwardDecl) int {
		return strings.Compare(a.name, b.name)
	})
	return decls
}

func (em *Emitter) considerDecl(set map[string]string, defined map[string]bool, display string, ref dwarf.Offset) {
	if display == "" || ref == 0 {
		return
	}
	name := baseTypeName(display)
	if name == "" || defined[name] {
		return
	}
	if _, ok := set[name]; ok {
		return
	}
	node := em.ix.Lookup(ref)
	if node == nil || !typechain.IsForwardDeclarable(node) {
		return
	}
	set[name] = declKeyword(node.Tag)
}

func declKeyword(tag dwarf.Tag) string {
	switch tag {
	case dwarf.TagStructType:
		return "struct"
	case dwarf.TagUnionType:
		return "union"
	default:
		return "class"
	}
}

// baseTypeName strips qualifiers, pointer/reference marks and array
// dimensions from a display string.
func baseTypeName(display string) string {
	name := strings.TrimSpace(display)
	for _, q := range []string{"const ", "volatile ", "restrict "} {
		name = strings.TrimPrefix(name, q)
	}
	name = strings.TrimRight(name, "*&")
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}

func guardName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 32)
		case r >= 'A' && r <= 'Z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
