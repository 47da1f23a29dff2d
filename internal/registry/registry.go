// Package registry implements the Database registry (spec.md §4.2): the
// process-wide table name→table ownership map, reshaped as an explicit
// context value (spec.md §9 "Process-wide singletons") instead of a C++
// Meyers singleton (original_source/src/db/Database.h), so multiple
// isolated engines can coexist in tests.
package registry

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/lemondb/lemondb/internal/dberrors"
	"github.com/lemondb/lemondb/internal/table"
	"github.com/lemondb/lemondb/internal/tablefile"
	"github.com/lemondb/lemondb/util"
)

// Registry owns every live table by name and the QUIT/end-of-input flag.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]*table.Table

	fileNameMu    sync.Mutex
	fileTableName map[string]string

	endInput atomic.Bool
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		tables:        make(map[string]*table.Table),
		fileTableName: make(map[string]string),
	}
}

// Register adds tbl under its own name, failing if the name is already
// registered.
func (r *Registry) Register(tbl *table.Table) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.tables[tbl.Name()]; dup {
		return fmt.Errorf("%w: %s", dberrors.ErrDuplicatedTableName, tbl.Name())
	}
	r.tables[tbl.Name()] = tbl
	return nil
}

// Drop unregisters a table by name.
func (r *Registry) Drop(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tables[name]; !ok {
		return fmt.Errorf("%w: %s", dberrors.ErrTableNameNotFound, name)
	}
	delete(r.tables, name)
	return nil
}

// Borrow returns the live table registered under name.
func (r *Registry) Borrow(name string) (*table.Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tbl, ok := r.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", dberrors.ErrTableNameNotFound, name)
	}
	return tbl, nil
}

// Names returns every registered table name in sorted order, so LIST's
// debug dump (internal/query.execList) is deterministic across runs
// rather than following Go's randomized map iteration (util.CanonicalMapIter,
// ported from the teacher's deterministic-DDL-ordering idiom).
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.tables))
	for name := range util.CanonicalMapIter(r.tables) {
		out = append(out, name)
	}
	return out
}

// RememberFileTableName memoizes path → table name, the Go counterpart of
// Database::updateFileTableName / getFileTableName (SPEC_FULL.md C.4).
func (r *Registry) RememberFileTableName(path, name string) {
	r.fileNameMu.Lock()
	r.fileTableName[path] = name
	r.fileNameMu.Unlock()
}

// FileTableName returns the table name previously loaded from path, if any.
func (r *Registry) FileTableName(path string) (string, bool) {
	r.fileNameMu.Lock()
	defer r.fileNameMu.Unlock()
	name, ok := r.fileTableName[path]
	return name, ok
}

// LoadFromPath parses a table in the §6.3 format from the named file and
// registers it, memoizing the file→name mapping (readable through
// FileTableName). This is the engine-facing body of the LOAD operator.
func (r *Registry) LoadFromPath(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", dberrors.ErrCannotOpenFile, path, err)
	}
	defer f.Close()

	tbl, err := r.LoadFromStream(f)
	if err != nil {
		return nil, err
	}
	r.RememberFileTableName(path, tbl.Name())
	return tbl, nil
}

// LoadFromStream parses one table from input and registers it. It is
// exposed separately from LoadFromPath so callers such as tests can supply
// an arbitrary io.Reader; it records no file→name mapping.
func (r *Registry) LoadFromStream(input io.Reader) (*table.Table, error) {
	tbl, err := tablefile.Decode(input)
	if err != nil {
		return nil, err
	}
	if err := r.Register(tbl); err != nil {
		return nil, err
	}
	return tbl, nil
}

// DumpToPath writes the named table to path in the §6.3 format, always
// overwriting an existing file (SPEC_FULL.md C.5, resolving Open Question b).
func (r *Registry) DumpToPath(name, path string) error {
	tbl, err := r.Borrow(name)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", dberrors.ErrCannotOpenFile, path, err)
	}
	defer f.Close()
	return tablefile.Encode(f, tbl)
}

// SignalEnd marks that QUIT has been processed; the driver polls IsEnd to
// stop scheduling new top-level queries.
func (r *Registry) SignalEnd() { r.endInput.Store(true) }

// IsEnd reports whether QUIT has been processed.
func (r *Registry) IsEnd() bool { return r.endInput.Load() }
