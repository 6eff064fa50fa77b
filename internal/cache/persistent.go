package cache

import (
	"debug/dwarf"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/ddon-research/ddon-dwarf-reconstructor/internal/entity"
)

// cacheVersion changes whenever the on-disk layout does; a mismatch resets
// the cache.
const cacheVersion = "2.0"

// sourceIDSample is how much of the binary feeds the identity hash. The
// ELF header plus the first sections change on any rebuild, so 64 KiB is
// enough to tell binaries apart without hashing multi-gigabyte files.
const sourceIDSample = 64 * 1024

// SourceID hashes the leading bytes of a binary into a stable identity
// string used to invalidate stale cache files.
func SourceID(r io.Reader) (string, error) {
	buf := make([]byte, sourceIDSample)
	n, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("hashing source identity: %w", err)
	}
	return fmt.Sprintf("%016x", xxh3.Hash(buf[:n])), nil
}

type persistentData struct {
	Version        string                    `json:"version"`
	SourceID       string                    `json:"sourceId"`
	SymbolToOffset map[string]dwarf.Offset   `json:"symbolToOffset"`
	OffsetToSymbol map[string]string         `json:"offsetToSymbol"`
	Entities       map[string]*entity.Entity `json:"entities"` // key: kind:name
	Created        int64                     `json:"created"`
	LastUpdated    int64                     `json:"lastUpdated"`
}

func emptyData(sourceID string) *persistentData {
	now := time.Now().Unix()
	return &persistentData{
		Version:        cacheVersion,
		SourceID:       sourceID,
		SymbolToOffset: make(map[string]dwarf.Offset),
		OffsetToSymbol: make(map[string]string),
		Entities:       make(map[string]*entity.Entity),
		Created:        now,
		LastUpdated:    now,
	}
}

// Persistent is a disk-backed cache of symbol locations and parsed
// entities for one binary. The cache file is keyed to the binary by a
// content hash; opening it against a different binary resets it.
type Persistent struct {
	mu       sync.Mutex
	path     string
	data     *persistentData
	modified bool
}

// OpenPersistent loads the cache at path, resetting it when missing,
// unreadable, version-mismatched or written for a different binary.
func OpenPersistent(path, sourceID string) *Persistent {
	c := &Persistent{path: path}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to read cache file, starting fresh", "path", path, "err", err)
		}
		c.data = emptyData(sourceID)
		return c
	}

	var data persistentData
	if err := json.Unmarshal(raw, &data); err != nil {
		slog.Warn("cache file corrupted, starting fresh", "path", path, "err", err)
		c.data = emptyData(sourceID)
		c.modified = true
		return c
	}
	if data.Version != cacheVersion || data.SourceID != sourceID {
		slog.Info("cache stale, resetting", "path", path,
			"version", data.Version, "sourceId", data.SourceID)
		c.data = emptyData(sourceID)
		c.modified = true
		return c
	}

	if data.SymbolToOffset == nil {
		data.SymbolToOffset = make(map[string]dwarf.Offset)
	}
	if data.OffsetToSymbol == nil {
		data.OffsetToSymbol = make(map[string]string)
	}
	if data.Entities == nil {
		data.Entities = make(map[string]*entity.Entity)
	}
	c.data = &data
	slog.Debug("loaded cache", "path", path, "symbols", len(data.SymbolToOffset), "entities", len(data.Entities))
	return c
}

// SymbolOffset returns the cached graph offset for a symbol name.
func (c *Persistent) SymbolOffset(name string) (dwarf.Offset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	off, ok := c.data.SymbolToOffset[name]
	return off, ok
}

// AddSymbol records a symbol's graph offset.
func (c *Persistent) AddSymbol(name string, off dwarf.Offset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data.SymbolToOffset[name]; ok {
		return
	}
	c.data.SymbolToOffset[name] = off
	c.data.OffsetToSymbol[fmt.Sprintf("%d", uint64(off))] = name
	c.touch()
}

// GetEntity returns a cached parsed entity.
func (c *Persistent) GetEntity(kind, name string) (*entity.Entity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.data.Entities[kind+":"+name]
	return e, ok
}

// PutEntity stores a parsed entity.
func (c *Persistent) PutEntity(kind, name string, e *entity.Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data.Entities[kind+":"+name] = e
	c.touch()
}

func (c *Persistent) touch() {
	c.data.LastUpdated = time.Now().Unix()
	c.modified = true
}

// Save writes the cache to disk when it changed since load.
func (c *Persistent) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.modified {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	raw, err := json.MarshalIndent(c.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}
	if err := os.WriteFile(c.path, raw, 0o644); err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	c.modified = false
	slog.Debug("saved cache", "path", c.path, "symbols", len(c.data.SymbolToOffset), "entities", len(c.data.Entities))
	return nil
}

// Clear resets the cache in memory and removes the file.
func (c *Persistent) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	sourceID := c.data.SourceID
	c.data = emptyData(sourceID)
	c.modified = false
	if err := os.Remove(c.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing cache file: %w", err)
	}
	return nil
}

// Counts reports the number of cached symbols and entities.
func (c *Persistent) Counts() (symbols, entities int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data.SymbolToOffset), len(c.data.Entities)
}
