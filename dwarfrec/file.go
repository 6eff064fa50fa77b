package dwarfrec

import (
	"debug/dwarf"
	"debug/elf"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/ddon-research/ddon-dwarf-reconstructor/internal/cache"
	"github.com/ddon-research/ddon-dwarf-reconstructor/internal/graph"
)

// File represents an opened ELF binary with DWARF debug information.
// It is safe for concurrent read access once opened.
type File struct {
	elf      *elf.File
	closer   io.Closer
	path     string
	platform Platform
	sourceID string

	closed bool
	mu     sync.RWMutex

	// Lazy-loaded graph index
	index     *graph.Index
	indexOnce sync.Once
	indexErr  error
}

// Open opens an ELF binary from the given path.
func Open(path string) (*File, error) {
	osFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dwarfrec: failed to open file: %w", err)
	}

	sourceID, err := cache.SourceID(osFile)
	if err != nil {
		osFile.Close()
		return nil, err
	}
	if _, err := osFile.Seek(0, io.SeekStart); err != nil {
		osFile.Close()
		return nil, fmt.Errorf("dwarfrec: failed to rewind file: %w", err)
	}

	elfFile, err := elf.NewFile(osFile)
	if err != nil {
		osFile.Close()
		return nil, fmt.Errorf("dwarfrec: not a valid ELF file: %w", err)
	}

	return &File{
		elf:      elfFile,
		closer:   osFile,
		path:     path,
		platform: detectPlatform(elfFile),
		sourceID: sourceID,
	}, nil
}

// OpenReader opens an ELF binary from an io.ReaderAt.
// This allows reading from arbitrary sources (embedded, network, etc.)
func OpenReader(r io.ReaderAt) (*File, error) {
	sourceID, err := cache.SourceID(io.NewSectionReader(r, 0, 64*1024))
	if err != nil {
		return nil, err
	}

	elfFile, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("dwarfrec: not a valid ELF file: %w", err)
	}

	return &File{
		elf:      elfFile,
		platform: detectPlatform(elfFile),
		sourceID: sourceID,
	}, nil
}

// Close releases resources associated with the binary.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}

// Path returns the path the file was opened from, "" for readers.
func (f *File) Path() string { return f.path }

// Platform returns the detected console platform.
func (f *File) Platform() Platform { return f.platform }

// SourceID returns the content hash identifying this binary.
func (f *File) SourceID() string { return f.sourceID }

// Index returns the offset-indexed debug graph, building it on first use.
func (f *File) Index() (*graph.Index, error) {
	f.indexOnce.Do(func() {
		f.index, f.indexErr = f.buildIndex()
	})

	if f.indexErr != nil {
		return nil, f.indexErr
	}
	return f.index, nil
}

// buildIndex walks every compilation unit and records each entry with its
// attributes and child offsets. Child relationships come from the reader's
// nesting: a parent stack tracks open entries, and a zero-tag entry pops.
func (f *File) buildIndex() (*graph.Index, error) {
	data, err := f.elf.DWARF()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDWARF, err)
	}

	start := time.Now()
	ix := graph.NewIndex()
	reader := data.Reader()

	var parents []*graph.Node
	var unit dwarf.Offset

	for {
		entry, err := reader.Next()
		if err != nil {
			return nil, fmt.Errorf("dwarfrec: reading debug entries: %w", err)
		}
		if entry == nil {
			break
		}

		if entry.Tag == 0 {
			// End of a children block.
			if len(parents) > 0 {
				parents = parents[:len(parents)-1]
			}
			continue
		}

		if entry.Tag == dwarf.TagCompileUnit {
			unit = entry.Offset
			ix.AddUnit()
			parents = parents[:0]
		}

		node := graph.NewNode(entry.Offset, entry.Tag)
		node.Unit = unit
		for _, field := range entry.Field {
			node.SetAttr(field.Attr, field.Val)
		}
		ix.Add(node)

		if len(parents) > 0 {
			parents[len(parents)-1].AddChild(entry.Offset)
		}
		if entry.Children {
			parents = append(parents, node)
		}
	}

	slog.Debug("built debug-info index",
		"entries", ix.Len(), "units", ix.Units(), "elapsed", time.Since(start))
	return ix, nil
}
