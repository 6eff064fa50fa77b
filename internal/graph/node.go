// Package graph holds the offset-indexed view of the debug-info graph.
//
// Every DWARF entry becomes a Node addressed by its section offset. Nodes
// never point at each other directly; references stay as offsets and are
// dereferenced through the Index, so cyclic type graphs carry no ownership
// cycles.
package graph

import "debug/dwarf"

// Node is one entry in the debug-info graph.
type Node struct {
	Offset dwarf.Offset
	Tag    dwarf.Tag
	Unit   dwarf.Offset // offset of the owning compilation unit

	attrs    map[dwarf.Attr]any
	children []dwarf.Offset
}

// NewNode creates a node with no attributes or children.
func NewNode(offset dwarf.Offset, tag dwarf.Tag) *Node {
	return &Node{
		Offset: offset,
		Tag:    tag,
		attrs:  make(map[dwarf.Attr]any),
	}
}

// SetAttr records an attribute value.
func (n *Node) SetAttr(a dwarf.Attr, v any) { n.attrs[a] = v }

// AddChild appends a child offset, preserving encounter order.
func (n *Node) AddChild(offset dwarf.Offset) {
	n.children = append(n.children, offset)
}

// Attr returns the raw attribute value.
func (n *Node) Attr(a dwarf.Attr) (any, bool) {
	v, ok := n.attrs[a]
	return v, ok
}

// Name returns the DW_AT_name value, or "" for anonymous entries.
func (n *Node) Name() string {
	if s, ok := n.attrs[dwarf.AttrName].(string); ok {
		return s
	}
	return ""
}

// Ref returns an offset-valued (reference class) attribute.
func (n *Node) Ref(a dwarf.Attr) (dwarf.Offset, bool) {
	off, ok := n.attrs[a].(dwarf.Offset)
	return off, ok
}

// TypeRef returns the DW_AT_type reference.
func (n *Node) TypeRef() (dwarf.Offset, bool) {
	return n.Ref(dwarf.AttrType)
}

// Int returns an integer attribute value.
func (n *Node) Int(a dwarf.Attr) (int64, bool) {
	switch v := n.attrs[a].(type) {
	case int64:
		return v, true
	case uint64:
		return int64(v), true
	}
	return 0, false
}

// Flag returns a boolean attribute, false when absent.
func (n *Node) Flag(a dwarf.Attr) bool {
	v, ok := n.attrs[a].(bool)
	return ok && v
}

// ByteSize returns DW_AT_byte_size, or 0 when absent.
func (n *Node) ByteSize() int64 {
	v, _ := n.Int(dwarf.AttrByteSize)
	return v
}

// HasChildren reports whether the node owns any child entries.
func (n *Node) HasChildren() bool { return len(n.children) > 0 }

// Children returns child offsets in encounter order.
func (n *Node) Children() []dwarf.Offset { return n.children }
