package entity

import (
	"debug/dwarf"
	"slices"

	"github.com/ddon-research/ddon-dwarf-reconstructor/internal/graph"
	"github.com/ddon-research/ddon-dwarf-reconstructor/internal/typechain"
)

// Dependencies collects the terminal type references an entity needs:
// base classes, member types, method return types and parameter types,
// plus nested members of inline structs and unions. Offsets are sorted
// and deduplicated.
func Dependencies(e *Entity) []dwarf.Offset {
	set := make(map[dwarf.Offset]bool)

	add := func(off dwarf.Offset) {
		if off != 0 && off != e.Offset {
			set[off] = true
		}
	}

	for _, off := range e.BaseRefs {
		add(off)
	}
	for _, m := range e.Members {
		add(m.TypeRef)
	}
	for _, m := range e.Methods {
		add(m.ReturnRef)
		for _, p := range m.Params {
			add(p.TypeRef)
		}
	}
	for _, s := range e.Structs {
		for _, m := range s.Members {
			add(m.TypeRef)
		}
	}
	for _, u := range e.Unions {
		for _, m := range u.Members {
			add(m.TypeRef)
		}
		for _, s := range u.Structs {
			for _, m := range s.Members {
				add(m.TypeRef)
			}
		}
	}

	deps := make([]dwarf.Offset, 0, len(set))
	for off := range set {
		deps = append(deps, off)
	}
	slices.Sort(deps)
	return deps
}

// FilterResolvable keeps only the dependencies that denote named
// aggregates, the ones that need their own definition emitted. Base
// types, enums and typedefs resolve in place.
func FilterResolvable(ix *graph.Index, deps []dwarf.Offset) []dwarf.Offset {
	out := make([]dwarf.Offset, 0, len(deps))
	for _, off := range deps {
		n := ix.Lookup(off)
		if n == nil {
			continue
		}
		if typechain.RequiresResolution(n) {
			out = append(out, off)
		}
	}
	return out
}
