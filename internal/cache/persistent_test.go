package cache

import (
	"bytes"
	"debug/dwarf"
	"os"
	"path/filepath"
	"testing"

	"github.com/ddon-research/ddon-dwarf-reconstructor/internal/entity"
)

func TestSourceIDDeterministic(t *testing.T) {
	data := bytes.Repeat([]byte{0x7f, 0x45, 0x4c, 0x46}, 100)

	id1, err := SourceID(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id2, err := SourceID(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id1 != id2 {
		t.Errorf("same input must hash identically: %s vs %s", id1, id2)
	}

	other, err := SourceID(bytes.NewReader([]byte("different")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id1 == other {
		t.Error("different inputs must hash differently")
	}
}

func TestPersistentRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "symbols.json")

	c := OpenPersistent(path, "abc123")
	c.AddSymbol("MtObject", dwarf.Offset(0x100))
	c.PutEntity("class", "MtObject", &entity.Entity{
		Name:     "MtObject",
		Kind:     entity.KindClass,
		ByteSize: 8,
		Offset:   0x100,
	})
	if err := c.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	reloaded := OpenPersistent(path, "abc123")
	off, ok := reloaded.SymbolOffset("MtObject")
	if !ok || off != 0x100 {
		t.Errorf("expected symbol at 0x100, got 0x%x (ok=%v)", uint64(off), ok)
	}
	e, ok := reloaded.GetEntity("class", "MtObject")
	if !ok || e.ByteSize != 8 {
		t.Errorf("expected cached entity, got %+v (ok=%v)", e, ok)
	}

	symbols, entities := reloaded.Counts()
	if symbols != 1 || entities != 1 {
		t.Errorf("expected 1 symbol / 1 entity, got %d / %d", symbols, entities)
	}
}

func TestPersistentResetsOnSourceMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symbols.json")

	c := OpenPersistent(path, "build-one")
	c.AddSymbol("cQuest", dwarf.Offset(0x40))
	if err := c.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	stale := OpenPersistent(path, "build-two")
	if _, ok := stale.SymbolOffset("cQuest"); ok {
		t.Error("cache for another binary must be reset")
	}
}

func TestPersistentSurvivesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symbols.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := OpenPersistent(path, "abc")
	if _, ok := c.SymbolOffset("anything"); ok {
		t.Error("corrupt cache must start empty")
	}
	c.AddSymbol("cItem", dwarf.Offset(0x10))
	if err := c.Save(); err != nil {
		t.Fatalf("save after corruption failed: %v", err)
	}
}

func TestPersistentClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symbols.json")

	c := OpenPersistent(path, "abc")
	c.AddSymbol("cItem", dwarf.Offset(0x10))
	if err := c.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("clear must remove the cache file")
	}
	if _, ok := c.SymbolOffset("cItem"); ok {
		t.Error("clear must empty the in-memory cache")
	}
}

func TestPersistentSaveSkipsWhenUnmodified(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symbols.json")

	c := OpenPersistent(path, "abc")
	c.AddSymbol("cItem", dwarf.Offset(0x10))
	if err := c.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	reloaded := OpenPersistent(path, "abc")
	if err := reloaded.Save(); err != nil {
		t.Fatalf("no-op save failed: %v", err)
	}
}
