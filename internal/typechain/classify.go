// Package typechain walks DWARF type-reference chains.
//
// A member typed "const MtObject*" appears in the graph as
// member → pointer → const → class. The resolver follows that chain to the
// terminal named type and renders the qualified display string on the way
// out.
package typechain

import (
	"debug/dwarf"

	"github.com/ddon-research/ddon-dwarf-reconstructor/internal/graph"
)

// qualifierTags wrap another type and carry no name of their own.
var qualifierTags = map[dwarf.Tag]bool{
	dwarf.TagPointerType:         true,
	dwarf.TagReferenceType:       true,
	dwarf.TagRvalueReferenceType: true,
	dwarf.TagConstType:           true,
	dwarf.TagVolatileType:        true,
	dwarf.TagRestrictType:        true,
}

// terminalTags are type definitions a chain walk stops at.
var terminalTags = map[dwarf.Tag]bool{
	dwarf.TagClassType:       true,
	dwarf.TagStructType:      true,
	dwarf.TagUnionType:       true,
	dwarf.TagEnumerationType: true,
	dwarf.TagTypedef:         true,
	dwarf.TagBaseType:        true,
}

// forwardDeclarableTags may legally appear as name-only stand-ins in C++.
// Enums and typedefs cannot: the emitter needs their full value set.
var forwardDeclarableTags = map[dwarf.Tag]bool{
	dwarf.TagClassType:  true,
	dwarf.TagStructType: true,
	dwarf.TagUnionType:  true,
}

// IsQualifier reports whether the tag is a transparent wrapper.
func IsQualifier(tag dwarf.Tag) bool { return qualifierTags[tag] }

// IsNamedTerminal reports whether the node is a named type definition.
func IsNamedTerminal(n *graph.Node) bool {
	return terminalTags[n.Tag] && n.Name() != ""
}

// IsForwardDeclarable reports whether the node is a named class, struct or
// union.
func IsForwardDeclarable(n *graph.Node) bool {
	return forwardDeclarableTags[n.Tag] && n.Name() != ""
}

// IsPrimitive reports whether the node is a base type.
func IsPrimitive(n *graph.Node) bool {
	return n.Tag == dwarf.TagBaseType
}

// RequiresResolution reports whether the node is a genuine dependency: a
// named aggregate that needs its own full definition. Primitives, enums,
// typedefs and qualifier wrappers are resolved in place and never enter the
// closure frontier.
func RequiresResolution(n *graph.Node) bool {
	return IsForwardDeclarable(n) && !IsPrimitive(n)
}
