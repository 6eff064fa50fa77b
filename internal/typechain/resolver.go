package typechain

import (
	"debug/dwarf"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ddon-research/ddon-dwarf-reconstructor/internal/graph"
)

// MaxChainDepth bounds a single chain walk. Real qualifier chains are a
// handful of entries deep; anything longer is a malformed or cyclic graph,
// and the bound turns it into a loggable sentinel instead of a hang.
const MaxChainDepth = 20

// RecursiveDisplay is the sentinel display string returned for cyclic or
// over-deep chains.
const RecursiveDisplay = "<recursive>"

// Resolution is the outcome of one chain walk: the qualified display string
// and the offset of the terminal named type (zero when the chain ends at
// void or an unresolvable entry).
type Resolution struct {
	Display  string
	Terminal dwarf.Offset
}

// Resolver walks type-reference chains against a built index. Safe for
// concurrent use once the index is built.
type Resolver struct {
	ix   *graph.Index
	memo sync.Map // dwarf.Offset -> Resolution
}

// New returns a resolver over the given index.
func New(ix *graph.Index) *Resolver {
	return &Resolver{ix: ix}
}

// ResolveRef resolves the DW_AT_type attribute of a member, parameter,
// subprogram or inheritance entry. Entries with no type attribute resolve
// to void (constructors, void returns).
func (r *Resolver) ResolveRef(n *graph.Node) Resolution {
	ref, ok := n.TypeRef()
	if !ok {
		return Resolution{Display: "void"}
	}
	target := r.ix.Lookup(ref)
	if target == nil {
		slog.Debug("unresolved type reference", "from", fmt.Sprintf("%#x", uint64(n.Offset)), "to", fmt.Sprintf("%#x", uint64(ref)))
		return Resolution{Display: "unknown_type"}
	}
	return r.Resolve(target)
}

// Resolve walks the chain starting at a type node.
func (r *Resolver) Resolve(n *graph.Node) Resolution {
	if v, ok := r.memo.Load(n.Offset); ok {
		return v.(Resolution)
	}
	res := r.walk(n)
	r.memo.Store(n.Offset, res)
	return res
}

func (r *Resolver) walk(start *graph.Node) Resolution {
	var prefixes []string // const/volatile/restrict in encounter order
	var suffixes []string // "*", "&", "&&" in encounter order (outermost first)
	var dims string       // array dimensions, e.g. "[4][2]"

	cur := start
	visited := make(map[dwarf.Offset]bool)

	for depth := 0; depth < MaxChainDepth; depth++ {
		if visited[cur.Offset] {
			slog.Warn("circular type reference", "offset", fmt.Sprintf("%#x", uint64(cur.Offset)))
			return Resolution{Display: RecursiveDisplay}
		}
		visited[cur.Offset] = true

		if IsNamedTerminal(cur) {
			return render(cur.Name(), cur.Offset, prefixes, suffixes, dims)
		}

		switch cur.Tag {
		case dwarf.TagPointerType:
			suffixes = append(suffixes, "*")
		case dwarf.TagReferenceType:
			suffixes = append(suffixes, "&")
		case dwarf.TagRvalueReferenceType:
			suffixes = append(suffixes, "&&")
		case dwarf.TagConstType:
			prefixes = append(prefixes, "const")
		case dwarf.TagVolatileType:
			prefixes = append(prefixes, "volatile")
		case dwarf.TagRestrictType:
			prefixes = append(prefixes, "restrict")

		case dwarf.TagTypedef:
			// Anonymous typedef (named ones are terminal); fall through
			// to its target.

		case dwarf.TagArrayType:
			dims += r.arrayDims(cur)

		case dwarf.TagClassType, dwarf.TagStructType, dwarf.TagUnionType:
			// Anonymous aggregate: terminal even without a name.
			return render(anonName(cur.Tag), cur.Offset, prefixes, suffixes, dims)

		case dwarf.TagPtrToMemberType:
			// The dependency that matters is the containing class.
			if next := r.follow(cur, dwarf.AttrContainingType); next != nil {
				cur = next
				continue
			}
			if next := r.follow(cur, dwarf.AttrType); next != nil {
				cur = next
				continue
			}
			return Resolution{Display: "void"}

		case dwarf.TagSubroutineType:
			// Function pointer: continue via the return type.
			if next := r.follow(cur, dwarf.AttrType); next != nil {
				cur = next
				continue
			}
			return render("void", 0, prefixes, suffixes, dims)

		default:
			slog.Debug("unhandled tag in type chain", "tag", cur.Tag.String(), "offset", fmt.Sprintf("%#x", uint64(cur.Offset)))
			return Resolution{Display: "unknown_type"}
		}

		next := r.follow(cur, dwarf.AttrType)
		if next == nil {
			// Qualifier with no target: void* and friends.
			return render("void", 0, prefixes, suffixes, dims)
		}
		cur = next
	}

	slog.Warn("type chain exceeded max depth", "start", fmt.Sprintf("%#x", uint64(start.Offset)), "max", MaxChainDepth)
	return Resolution{Display: RecursiveDisplay}
}

func (r *Resolver) follow(n *graph.Node, a dwarf.Attr) *graph.Node {
	ref, ok := n.Ref(a)
	if !ok {
		return nil
	}
	return r.ix.Lookup(ref)
}

// arrayDims renders the dimension list of an array node from its
// DW_TAG_subrange_type children. Unknown bounds render as empty brackets.
func (r *Resolver) arrayDims(array *graph.Node) string {
	var b strings.Builder
	found := false
	for _, off := range array.Children() {
		sub := r.ix.Lookup(off)
		if sub == nil || sub.Tag != dwarf.TagSubrangeType {
			continue
		}
		found = true
		if count, ok := sub.Int(dwarf.AttrCount); ok {
			fmt.Fprintf(&b, "[%d]", count)
			continue
		}
		if upper, ok := sub.Int(dwarf.AttrUpperBound); ok {
			lower, _ := sub.Int(dwarf.AttrLowerBound)
			fmt.Fprintf(&b, "[%d]", upper-lower+1)
			continue
		}
		b.WriteString("[]")
	}
	if !found {
		return "[]"
	}
	return b.String()
}

// render assembles the final display string. Suffix qualifiers apply
// innermost-first, so the collected outermost-first list is reversed:
// reference → pointer → T renders as "T*&".
func render(name string, terminal dwarf.Offset, prefixes, suffixes []string, dims string) Resolution {
	var b strings.Builder
	for _, p := range prefixes {
		b.WriteString(p)
		b.WriteByte(' ')
	}
	b.WriteString(name)
	for i := len(suffixes) - 1; i >= 0; i-- {
		b.WriteString(suffixes[i])
	}
	b.WriteString(dims)
	return Resolution{Display: b.String(), Terminal: terminal}
}

func anonName(tag dwarf.Tag) string {
	switch tag {
	case dwarf.TagClassType:
		return "class"
	case dwarf.TagUnionType:
		return "union"
	default:
		return "struct"
	}
}
