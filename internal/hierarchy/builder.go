// Package hierarchy resolves inheritance chains and bounded dependency
// closures over parsed entities.
package hierarchy

import (
	"debug/dwarf"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ddon-research/ddon-dwarf-reconstructor/internal/entity"
	"github.com/ddon-research/ddon-dwarf-reconstructor/internal/graph"
)

// DefaultMaxDepth bounds the transitive dependency closure. Ten hops
// covers every real hierarchy in PS3/PS4-era game binaries while keeping
// a degenerate graph from exploding the walk.
const DefaultMaxDepth = 10

// ErrNotFound is returned when the requested root type has no definition
// in the graph.
var ErrNotFound = errors.New("type not found")

// EntityCache lets the builder reuse previously parsed entities. A nil
// cache is valid and means parse everything fresh.
type EntityCache interface {
	GetEntity(kind, name string) (*entity.Entity, bool)
	PutEntity(kind, name string, e *entity.Entity)
}

// Result is the outcome of a closure walk: every entity parsed, keyed by
// name, plus the ancestor chain of the root ordered farthest first.
type Result struct {
	Root     string
	Entities map[string]*entity.Entity
	Chain    []string // [farthest base, ..., root]
	Order    []string // discovery order: chain first, then breadth-first
	Depth    int      // deepest frontier level actually reached
}

// Builder walks hierarchies against a built index.
type Builder struct {
	ix     *graph.Index
	parser *entity.Parser
	cache  EntityCache
}

// New returns a builder. cache may be nil.
func New(ix *graph.Index, parser *entity.Parser, cache EntityCache) *Builder {
	return &Builder{ix: ix, parser: parser, cache: cache}
}

// Chain returns the ancestor chain of name ordered farthest base first,
// ending with name itself. Single inheritance only: the first inheritance
// child of each node is followed. Cycles terminate the walk at the repeat.
func (b *Builder) Chain(name string) ([]string, error) {
	root := b.ix.FindNamed(name)
	if root == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	var chain []string
	visited := make(map[string]bool)
	cur := root
	for cur != nil {
		n := cur.Name()
		if n == "" || visited[n] {
			if visited[n] {
				slog.Warn("inheritance cycle detected", "type", n)
			}
			break
		}
		visited[n] = true
		chain = append(chain, n)
		cur = b.baseOf(cur)
	}

	// Walked root-first, reported farthest-first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// baseOf follows the first inheritance child to the base definition.
func (b *Builder) baseOf(n *graph.Node) *graph.Node {
	for _, off := range n.Children() {
		child := b.ix.Lookup(off)
		if child == nil || child.Tag != dwarf.TagInheritance {
			continue
		}
		ref, ok := child.TypeRef()
		if !ok {
			return nil
		}
		base := b.ix.Lookup(ref)
		if base == nil || base.Name() == "" {
			return nil
		}
		// The reference may land on a forward declaration; find the
		// definition with members.
		if !base.HasChildren() {
			if def := b.ix.FindNamed(base.Name()); def != nil {
				return def
			}
		}
		return base
	}
	return nil
}

// ChainOnly parses just the ancestor chain of name, without dependency
// expansion. Referenced types outside the chain stay forward declarations.
func (b *Builder) ChainOnly(name string) (*Result, error) {
	chain, err := b.Chain(name)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Root:     name,
		Entities: make(map[string]*entity.Entity),
		Chain:    chain,
	}
	for _, typeName := range chain {
		node := b.ix.FindNamed(typeName)
		if node == nil {
			continue
		}
		e := b.parse(node)
		res.Entities[e.Name] = e
		res.Order = append(res.Order, e.Name)
	}
	return res, nil
}

// Closure parses name and the bounded transitive closure of its
// dependencies. maxDepth <= 0 means DefaultMaxDepth. The root's ancestor
// chain is always included regardless of depth.
func (b *Builder) Closure(name string, maxDepth int) (*Result, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	chain, err := b.Chain(name)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Root:     name,
		Entities: make(map[string]*entity.Entity),
		Chain:    chain,
	}

	inChain := make(map[string]bool, len(chain))
	for _, n := range chain {
		inChain[n] = true
	}

	visited := make(map[string]bool)
	frontier := append([]string(nil), chain...)

	for depth := 0; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, typeName := range frontier {
			if visited[typeName] {
				continue
			}
			visited[typeName] = true

			node := b.ix.FindNamed(typeName)
			if node == nil {
				slog.Debug("dependency has no definition, leaving as forward declaration", "type", typeName)
				continue
			}
			// A bare forward declaration carries no layout; emitting an
			// empty definition for it would be a lie. Leave it to the
			// emitter's forward-declaration pass. Chain members are
			// exempt: the requested lineage is always emitted.
			if !inChain[typeName] && !node.HasChildren() && node.Flag(dwarf.AttrDeclaration) {
				slog.Debug("declaration-only type, leaving as forward declaration", "type", typeName)
				continue
			}

			e := b.parse(node)
			res.Entities[e.Name] = e
			res.Order = append(res.Order, e.Name)
			res.Depth = depth

			if depth == maxDepth {
				continue
			}
			deps := entity.FilterResolvable(b.ix, entity.Dependencies(e))
			for _, off := range deps {
				dep := b.ix.Lookup(off)
				if dep == nil {
					continue
				}
				depName := dep.Name()
				if depName != "" && !visited[depName] {
					next = append(next, depName)
				}
			}
		}
		frontier = next
	}

	return res, nil
}

func (b *Builder) parse(node *graph.Node) *entity.Entity {
	kind := string(kindOfTag(node))
	name := node.Name()
	if b.cache != nil {
		if e, ok := b.cache.GetEntity(kind, name); ok {
			return e
		}
	}
	e := b.parser.Parse(node)
	if b.cache != nil {
		b.cache.PutEntity(kind, name, e)
	}
	return e
}

func kindOfTag(n *graph.Node) entity.Kind {
	switch n.Tag {
	case dwarf.TagUnionType:
		return entity.KindUnion
	case dwarf.TagStructType:
		return entity.KindStruct
	default:
		return entity.KindClass
	}
}
