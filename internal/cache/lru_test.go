package cache

import (
	"debug/dwarf"
	"testing"
)

func TestLRUBasicOperations(t *testing.T) {
	c := NewLRU[string, int](4)

	if _, ok := c.Get("missing"); ok {
		t.Error("empty cache must miss")
	}

	c.Put("a", 1)
	c.Put("b", 2)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("expected a=1, got %d (ok=%v)", v, ok)
	}
	if c.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", c.Len())
	}

	c.Put("a", 10)
	if v, _ := c.Get("a"); v != 10 {
		t.Errorf("expected updated a=10, got %d", v)
	}
	if c.Len() != 2 {
		t.Errorf("update must not grow the cache, got %d", c.Len())
	}
}

func TestLRUEvictsOldest(t *testing.T) {
	c := NewLRU[dwarf.Offset, string](2)

	c.Put(0x10, "first")
	c.Put(0x20, "second")

	// Touch 0x10 so 0x20 becomes the eviction candidate.
	c.Get(0x10)

	c.Put(0x30, "third")

	if _, ok := c.Get(0x20); ok {
		t.Error("least recently used entry must be evicted")
	}
	if _, ok := c.Get(0x10); !ok {
		t.Error("recently used entry must survive")
	}
	if _, ok := c.Get(0x30); !ok {
		t.Error("new entry must be present")
	}
}

func TestLRUStats(t *testing.T) {
	c := NewLRU[string, int](8)
	c.Put("x", 1)

	c.Get("x")
	c.Get("x")
	c.Get("y")

	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 {
		t.Errorf("expected 2 hits / 1 miss, got %d / %d", s.Hits, s.Misses)
	}
	if rate := s.HitRate(); rate < 0.66 || rate > 0.67 {
		t.Errorf("expected hit rate ~0.667, got %f", rate)
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("clear must empty the cache, got %d", c.Len())
	}
	if s := c.Stats(); s.Hits != 0 || s.Misses != 0 {
		t.Errorf("clear must reset counters: %+v", s)
	}
}

func TestLRUZeroSizeDefaults(t *testing.T) {
	c := NewLRU[int, int](0)
	for i := range 100 {
		c.Put(i, i)
	}
	if c.Len() != 100 {
		t.Errorf("default-sized cache must hold 100 small entries, got %d", c.Len())
	}
}
