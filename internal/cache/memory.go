package cache

import "github.com/ddon-research/ddon-dwarf-reconstructor/internal/entity"

// Memory is an in-session entity cache backed by an LRU. It keeps batch
// runs from re-parsing shared base classes when no persistent cache is
// configured.
type Memory struct {
	lru *LRU[string, *entity.Entity]
}

// NewMemory returns a memory cache holding at most maxSize entities.
// maxSize <= 0 picks a default.
func NewMemory(maxSize int) *Memory {
	return &Memory{lru: NewLRU[string, *entity.Entity](maxSize)}
}

func (m *Memory) GetEntity(kind, name string) (*entity.Entity, bool) {
	return m.lru.Get(kind + ":" + name)
}

func (m *Memory) PutEntity(kind, name string, e *entity.Entity) {
	m.lru.Put(kind+":"+name, e)
}

// Stats reports hit/miss counters for the session.
func (m *Memory) Stats() Stats { return m.lru.Stats() }
