package graph

import (
	"debug/dwarf"
	"iter"
	"sync"
)

// namedTags are the tags the finder considers when looking up an entity by
// name. Wrapper and anonymous entries never participate.
var namedTags = map[dwarf.Tag]bool{
	dwarf.TagClassType:       true,
	dwarf.TagStructType:      true,
	dwarf.TagUnionType:       true,
	dwarf.TagEnumerationType: true,
	dwarf.TagTypedef:         true,
	dwarf.TagArrayType:       true,
}

// Index is the global offset → Node lookup. It is populated once during an
// exclusive build phase and is safe for concurrent reads afterwards.
type Index struct {
	byOffset map[dwarf.Offset]*Node
	order    []dwarf.Offset

	byName     map[string][]dwarf.Offset
	byNameOnce sync.Once

	units int
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{byOffset: make(map[dwarf.Offset]*Node)}
}

// Add inserts a node. Must not be called after reads have started.
func (ix *Index) Add(n *Node) {
	if _, dup := ix.byOffset[n.Offset]; !dup {
		ix.order = append(ix.order, n.Offset)
	}
	ix.byOffset[n.Offset] = n
}

// AddUnit records one compilation unit for statistics.
func (ix *Index) AddUnit() { ix.units++ }

// Lookup returns the node at the given offset, or nil when unknown.
func (ix *Index) Lookup(offset dwarf.Offset) *Node {
	return ix.byOffset[offset]
}

// Len returns the number of indexed entries.
func (ix *Index) Len() int { return len(ix.byOffset) }

// Units returns the number of compilation units seen during the build.
func (ix *Index) Units() int { return ix.units }

// All iterates every node in build order.
func (ix *Index) All() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for _, off := range ix.order {
			if !yield(ix.byOffset[off]) {
				return
			}
		}
	}
}

// ByName iterates every named-type node with the given name, in build order.
func (ix *Index) ByName(name string) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		ix.buildNameIndex()
		for _, off := range ix.byName[name] {
			if !yield(ix.byOffset[off]) {
				return
			}
		}
	}
}

// FindNamed locates the authoritative definition of a named entity.
//
// Debug graphs routinely carry both a forward declaration and a full
// definition of the same name; the tie-break prefers (1) an entry with a
// nonzero declared size, then (2) an entry with children, and keeps the
// first pure forward declaration only as a fallback.
func (ix *Index) FindNamed(name string) *Node {
	var fallback *Node
	for n := range ix.ByName(name) {
		if n.ByteSize() > 0 {
			return n
		}
		if n.HasChildren() {
			return n
		}
		if fallback == nil {
			fallback = n
		}
	}
	return fallback
}

func (ix *Index) buildNameIndex() {
	ix.byNameOnce.Do(func() {
		ix.byName = make(map[string][]dwarf.Offset)
		for _, off := range ix.order {
			n := ix.byOffset[off]
			if !namedTags[n.Tag] {
				continue
			}
			if name := n.Name(); name != "" {
				ix.byName[name] = append(ix.byName[name], off)
			}
		}
	})
}
