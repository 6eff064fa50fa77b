package dwarfrec

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ddon-research/ddon-dwarf-reconstructor/internal/cache"
	"github.com/ddon-research/ddon-dwarf-reconstructor/internal/emit"
	"github.com/ddon-research/ddon-dwarf-reconstructor/internal/entity"
	"github.com/ddon-research/ddon-dwarf-reconstructor/internal/hierarchy"
	"github.com/ddon-research/ddon-dwarf-reconstructor/internal/typechain"
)

// Options control reconstruction.
type Options struct {
	// FullHierarchy expands the transitive dependency closure. When
	// false only the inheritance chain is defined and every other
	// referenced aggregate stays a forward declaration.
	FullHierarchy bool

	// MaxDepth bounds the transitive dependency closure. Zero means the
	// default of 10.
	MaxDepth int

	// IncludeMetadata adds size, offset and packing comments to the
	// generated header.
	IncludeMetadata bool

	// Typedefs are prepended to the header. Nil means the platform
	// defaults.
	Typedefs map[string]string

	// Cache, when set, persists parsed entities across runs.
	Cache *cache.Persistent
}

// Output is one reconstructed type: its header text plus the parsed
// entities that went into it.
type Output struct {
	Root     string
	Header   string
	Entities map[string]*entity.Entity
	Chain    []string // inheritance chain, farthest base first
	Order    []string // entity discovery order
	Depth    int      // deepest dependency level reached
}

// Reconstructor generates headers from one opened binary. Safe for
// concurrent use.
type Reconstructor struct {
	file *File
	opts Options

	once    sync.Once
	initErr error
	builder *hierarchy.Builder
	emitter *emit.Emitter
	parser  *entity.Parser
}

// NewReconstructor returns a reconstructor over an opened binary.
func NewReconstructor(f *File, opts Options) *Reconstructor {
	if opts.Typedefs == nil {
		opts.Typedefs = f.Platform().DefaultTypedefs()
	}
	return &Reconstructor{file: f, opts: opts}
}

func (r *Reconstructor) init() error {
	r.once.Do(func() {
		ix, err := r.file.Index()
		if err != nil {
			r.initErr = err
			return
		}
		r.parser = entity.NewParser(ix, typechain.New(ix))
		var entityCache hierarchy.EntityCache = cache.NewMemory(0)
		if r.opts.Cache != nil {
			entityCache = r.opts.Cache
		}
		r.builder = hierarchy.New(ix, r.parser, entityCache)
		r.emitter = emit.New(ix)
	})
	return r.initErr
}

// Generate reconstructs the named type and everything it depends on.
func (r *Reconstructor) Generate(name string) (*Output, error) {
	if err := r.init(); err != nil {
		return nil, err
	}

	var res *hierarchy.Result
	var err error
	if r.opts.FullHierarchy {
		res, err = r.builder.Closure(name, r.opts.MaxDepth)
	} else {
		res, err = r.builder.ChainOnly(name)
	}
	if err != nil {
		if errors.Is(err, hierarchy.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, &ResolveError{Symbol: name, Message: "building dependency closure", Err: err}
	}

	header := r.emitter.Header(res, emit.Options{
		IncludeMetadata: r.opts.IncludeMetadata,
		Typedefs:        r.opts.Typedefs,
	})

	if r.opts.Cache != nil {
		if root, ok := res.Entities[name]; ok {
			r.opts.Cache.AddSymbol(name, root.Offset)
		}
	}

	return &Output{
		Root:     name,
		Header:   header,
		Entities: res.Entities,
		Chain:    res.Chain,
		Order:    res.Order,
		Depth:    res.Depth,
	}, nil
}

// Chain returns the inheritance chain of the named type, farthest base
// first.
func (r *Reconstructor) Chain(name string) ([]string, error) {
	if err := r.init(); err != nil {
		return nil, err
	}
	chain, err := r.builder.Chain(name)
	if err != nil {
		if errors.Is(err, hierarchy.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	return chain, nil
}

// DependencyEdges lists the (from, to) entity-name pairs of the closure,
// suitable for graph export. Edges to types outside the closure point at
// forward-declared names.
func (r *Reconstructor) DependencyEdges(name string) ([][2]string, error) {
	if err := r.init(); err != nil {
		return nil, err
	}

	ix, err := r.file.Index()
	if err != nil {
		return nil, err
	}

	res, err := r.builder.Closure(name, r.opts.MaxDepth)
	if err != nil {
		if errors.Is(err, hierarchy.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}

	var edges [][2]string
	for from, e := range res.Entities {
		for _, off := range entity.FilterResolvable(ix, entity.Dependencies(e)) {
			dep := ix.Lookup(off)
			if dep == nil || dep.Name() == "" || dep.Name() == from {
				continue
			}
			edges = append(edges, [2]string{from, dep.Name()})
		}
	}
	return edges, nil
}

// Lookup returns the parsed entity for a single type without generating a
// header.
func (r *Reconstructor) Lookup(name string) (*entity.Entity, error) {
	if err := r.init(); err != nil {
		return nil, err
	}

	ix, err := r.file.Index()
	if err != nil {
		return nil, err
	}
	node := ix.FindNamed(name)
	if node == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return r.parser.Parse(node), nil
}
