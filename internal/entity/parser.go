package entity

import (
	"debug/dwarf"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ddon-research/ddon-dwarf-reconstructor/internal/graph"
	"github.com/ddon-research/ddon-dwarf-reconstructor/internal/typechain"
)

// Parser turns aggregate nodes into Entity values.
type Parser struct {
	ix     *graph.Index
	chains *typechain.Resolver
}

// NewParser returns a parser over a built index.
func NewParser(ix *graph.Index, chains *typechain.Resolver) *Parser {
	return &Parser{ix: ix, chains: chains}
}

// Chains exposes the shared chain resolver.
func (p *Parser) Chains() *typechain.Resolver { return p.chains }

// Parse builds the Entity for a class, struct or union node.
func (p *Parser) Parse(n *graph.Node) *Entity {
	e := &Entity{
		Name:     n.Name(),
		Kind:     kindOf(n.Tag),
		ByteSize: n.ByteSize(),
		Offset:   n.Offset,
	}
	if e.Name == "" {
		e.Name = "unknown_class"
	}
	if align, ok := n.Int(dwarf.AttrAlignment); ok {
		e.Alignment = align
	}

	// Anonymous unions arrive twice: once as an unnamed member whose type
	// resolves to the union node, once as the union child itself. The
	// member carries the layout position, so it wins and the bare union
	// child is skipped regardless of which order they appear in.
	anonUnions := make(map[dwarf.Offset]bool)
	for _, off := range n.Children() {
		child := p.ix.Lookup(off)
		if child == nil || child.Tag != dwarf.TagMember || child.Name() != "" {
			continue
		}
		if ref, ok := child.TypeRef(); ok {
			if target := p.ix.Lookup(ref); target != nil && target.Tag == dwarf.TagUnionType {
				anonUnions[target.Offset] = true
			}
		}
	}

	for _, off := range n.Children() {
		child := p.ix.Lookup(off)
		if child == nil {
			continue
		}

		switch child.Tag {
		case dwarf.TagMember:
			if u, ok := p.anonymousUnion(child); ok {
				e.Unions = append(e.Unions, u)
				continue
			}
			if m, ok := p.parseMember(child); ok {
				e.Members = append(e.Members, m)
			}

		case dwarf.TagSubprogram:
			if m, ok := p.parseMethod(child, e.Name); ok {
				e.Methods = append(e.Methods, m)
			}

		case dwarf.TagInheritance:
			res := p.chains.ResolveRef(child)
			if res.Terminal != 0 && res.Display != "unknown_type" {
				e.Bases = append(e.Bases, res.Display)
				e.BaseRefs = append(e.BaseRefs, res.Terminal)
			}

		case dwarf.TagEnumerationType:
			e.Enums = append(e.Enums, p.parseEnum(child))

		case dwarf.TagStructType:
			e.Structs = append(e.Structs, p.parseStruct(child))

		case dwarf.TagUnionType:
			if !anonUnions[child.Offset] {
				e.Unions = append(e.Unions, p.parseUnion(child))
			}

		case dwarf.TagTypedef, dwarf.TagClassType, dwarf.TagArrayType,
			dwarf.TagTemplateTypeParameter, dwarf.TagTemplateValueParameter:
			// Nested declarations that don't shape the layout.

		default:
			slog.Debug("unhandled child tag in aggregate",
				"entity", e.Name, "tag", child.Tag.String(),
				"offset", fmt.Sprintf("%#x", uint64(child.Offset)))
		}
	}

	return e
}

// anonymousUnion recognizes an unnamed member whose type is a union node
// and parses the union inline.
func (p *Parser) anonymousUnion(member *graph.Node) (Union, bool) {
	if member.Name() != "" {
		return Union{}, false
	}
	ref, ok := member.TypeRef()
	if !ok {
		return Union{}, false
	}
	target := p.ix.Lookup(ref)
	if target == nil || target.Tag != dwarf.TagUnionType {
		return Union{}, false
	}
	return p.parseUnion(target), true
}

func (p *Parser) parseMember(n *graph.Node) (Member, bool) {
	res := p.chains.ResolveRef(n)

	name := n.Name()
	if name == "" {
		// Anonymous members are only kept when they carry an aggregate
		// type inline; everything else is noise.
		lower := strings.ToLower(res.Display)
		if !strings.Contains(lower, "union") && !strings.Contains(lower, "struct") {
			return Member{}, false
		}
	}

	m := Member{
		Name:    name,
		Type:    res.Display,
		TypeRef: res.Terminal,
		Offset:  -1,
	}

	if v, ok := n.Attr(dwarf.AttrDataMemberLoc); ok {
		m.Offset = memberOffset(v)
	}
	if bits, ok := n.Int(dwarf.AttrBitSize); ok {
		m.BitSize = bits
	}

	// Static members are declared external with no storage in the layout.
	m.Static = n.Flag(dwarf.AttrExternal) && n.Flag(dwarf.AttrDeclaration)

	if v, ok := n.Attr(dwarf.AttrConstValue); ok {
		if c, ok := constValue(v); ok {
			m.Const = true
			m.ConstValue = fmt.Sprintf("%d", c)
		}
	}

	// Compiler-synthesized vtable pointers often reference internal types
	// that resolve to nothing useful.
	if strings.HasPrefix(m.Name, "_vptr$") &&
		(m.Type == "unknown_type" || strings.Contains(m.Type, "__vtbl_ptr_type")) {
		m.Type = "void*"
		m.TypeRef = 0
	}

	return m, true
}

func (p *Parser) parseMethod(n *graph.Node, owner string) (Method, bool) {
	name := n.Name()
	if name == "" {
		return Method{}, false
	}

	ret := p.chains.ResolveRef(n)
	m := Method{
		Name:        name,
		ReturnType:  ret.Display,
		ReturnRef:   ret.Terminal,
		VTableSlot:  -1,
		Constructor: name == owner,
		Destructor:  strings.HasPrefix(name, "~"),
	}

	if virt, ok := n.Int(dwarf.AttrVirtuality); ok && virt != 0 {
		m.Virtual = true
		if slot, ok := vtableSlot(n); ok {
			m.VTableSlot = slot
		}
	}

	for _, off := range n.Children() {
		child := p.ix.Lookup(off)
		if child == nil || child.Tag != dwarf.TagFormalParameter {
			continue
		}
		res := p.chains.ResolveRef(child)
		param := Param{
			Name:       child.Name(),
			Type:       res.Display,
			TypeRef:    res.Terminal,
			Artificial: child.Flag(dwarf.AttrArtificial),
		}
		if param.Name == "" {
			param.Name = "param"
		}
		m.Params = append(m.Params, param)
	}

	return m, true
}

// vtableSlot decodes DW_AT_vtable_elem_location when it is a plain constant
// or a [DW_OP_constu, ULEB128] block.
func vtableSlot(n *graph.Node) (int, bool) {
	v, ok := n.Attr(dwarf.AttrVtableElemLoc)
	if !ok {
		return 0, false
	}
	switch loc := v.(type) {
	case int64:
		return int(loc), true
	case []byte:
		const opConstu = 0x10
		if len(loc) >= 2 && loc[0] == opConstu {
			if slot, ok := uleb128(loc[1:]); ok {
				return int(slot), true
			}
		}
	}
	return 0, false
}

func (p *Parser) parseEnum(n *graph.Node) Enum {
	e := Enum{
		Name:     n.Name(),
		ByteSize: n.ByteSize(),
		Offset:   n.Offset,
	}
	if e.Name == "" {
		e.Name = "unknown_enum"
	}
	if e.ByteSize == 0 {
		e.ByteSize = 4
	}
	for _, off := range n.Children() {
		child := p.ix.Lookup(off)
		if child == nil || child.Tag != dwarf.TagEnumerator || child.Name() == "" {
			continue
		}
		v, _ := child.Attr(dwarf.AttrConstValue)
		value, ok := constValue(v)
		if !ok {
			continue
		}
		e.Enumerators = append(e.Enumerators, Enumerator{Name: child.Name(), Value: value})
	}
	return e
}

func (p *Parser) parseStruct(n *graph.Node) Struct {
	s := Struct{
		Name:     n.Name(),
		ByteSize: n.ByteSize(),
		Offset:   n.Offset,
	}
	for _, off := range n.Children() {
		child := p.ix.Lookup(off)
		if child == nil || child.Tag != dwarf.TagMember {
			continue
		}
		if m, ok := p.parseMember(child); ok {
			s.Members = append(s.Members, m)
		}
	}
	return s
}

func (p *Parser) parseUnion(n *graph.Node) Union {
	u := Union{
		Name:     n.Name(),
		ByteSize: n.ByteSize(),
		Offset:   n.Offset,
	}
	for _, off := range n.Children() {
		child := p.ix.Lookup(off)
		if child == nil {
			continue
		}
		switch child.Tag {
		case dwarf.TagMember:
			if m, ok := p.parseMember(child); ok {
				u.Members = append(u.Members, m)
			}
		case dwarf.TagStructType:
			u.Structs = append(u.Structs, p.parseStruct(child))
		}
	}
	return u
}

func kindOf(tag dwarf.Tag) Kind {
	switch tag {
	case dwarf.TagUnionType:
		return KindUnion
	case dwarf.TagStructType:
		return KindStruct
	default:
		return KindClass
	}
}
