// Package table implements the LemonDB table store: a named ordered row
// vector with O(1) key lookup and O(1) swap-pop deletion, as specified in
// spec.md §3 and §4.1. It is grounded on the field/index/row-vector layout
// of original_source/src/db/Table.h, re-expressed without the proxy/iterator
// machinery per spec.md §9 ("Proxy / iterator / friend-based row access").
package table

import (
	"fmt"

	"github.com/lemondb/lemondb/internal/dberrors"
	"github.com/lemondb/lemondb/internal/dbvalue"
)

// ReservedKeyField is the name reserved for the row key; it can never be a
// column name (spec.md §3 invariants).
const ReservedKeyField = "KEY"

// Row is one entry of a table: a unique string key plus a fixed tuple of
// column values in field order.
type Row struct {
	Key   string
	Cells []dbvalue.Value
}

// Table is a named ordered collection of rows sharing one field schema.
// Row ordering carries no client-visible meaning (spec.md §3); callers that
// need ordered output sort at emission time.
type Table struct {
	name       string
	fields     []string
	fieldIndex map[string]int
	rows       []Row
	keyIndex   map[string]int
}

// New creates an empty table with the given name and field schema. It
// rejects the reserved column name KEY and duplicate field names.
func New(name string, fields []string) (*Table, error) {
	fieldIndex := make(map[string]int, len(fields))
	for i, f := range fields {
		if f == ReservedKeyField {
			return nil, fmt.Errorf("table %q: %w: KEY", name, dberrors.ErrReservedFieldName)
		}
		if _, dup := fieldIndex[f]; dup {
			return nil, fmt.Errorf("table %q: %w: %s", name, dberrors.ErrDuplicatedField, f)
		}
		fieldIndex[f] = i
	}
	return &Table{
		name:       name,
		fields:     append([]string(nil), fields...),
		fieldIndex: fieldIndex,
		keyIndex:   make(map[string]int),
	}, nil
}

// Name returns the table's name.
func (t *Table) Name() string { return t.name }

// Fields returns the ordered column names (not including KEY).
func (t *Table) Fields() []string { return t.fields }

// Arity returns the number of value columns (not including KEY).
func (t *Table) Arity() int { return len(t.fields) }

// Len returns the number of rows currently stored.
func (t *Table) Len() int { return len(t.rows) }

// FieldIndex resolves a column name to its position, or
// dberrors.ErrTableFieldNotFound.
func (t *Table) FieldIndex(name string) (int, error) {
	idx, ok := t.fieldIndex[name]
	if !ok {
		return 0, fmt.Errorf("table %q: %w: %s", t.name, dberrors.ErrTableFieldNotFound, name)
	}
	return idx, nil
}

// Insert adds a new row. len(values) must equal the table's arity; the key
// must not already be present.
func (t *Table) Insert(key string, values []dbvalue.Value) error {
	if len(values) != len(t.fields) {
		return fmt.Errorf("table %q: %w: got %d want %d", t.name, dberrors.ErrArityMismatch, len(values), len(t.fields))
	}
	if _, dup := t.keyIndex[key]; dup {
		return fmt.Errorf("table %q: %w: %s", t.name, dberrors.ErrConflictingKey, key)
	}
	t.keyIndex[key] = len(t.rows)
	t.rows = append(t.rows, Row{Key: key, Cells: append([]dbvalue.Value(nil), values...)})
	return nil
}

// Lookup returns the row index for key, or ok=false if absent. O(1) average.
func (t *Table) Lookup(key string) (index int, ok bool) {
	index, ok = t.keyIndex[key]
	return
}

// RowAt returns a pointer into the live row storage at index, for in-place
// mutation by the caller (which must hold the table's write lock). This is
// the "simple borrow" replacement for the original's Object proxy
// (spec.md §9).
func (t *Table) RowAt(index int) *Row {
	return &t.rows[index]
}

// Delete removes the row with the given key using swap-pop: the last row is
// moved into the deleted slot and key_index is repaired, giving O(1) deletes
// (spec.md §3 "Deletion policy").
func (t *Table) Delete(key string) error {
	idx, ok := t.keyIndex[key]
	if !ok {
		return fmt.Errorf("table %q: %w: %s", t.name, dberrors.ErrNotFoundKey, key)
	}
	t.deleteAt(idx)
	return nil
}

// deleteAt removes the row at idx via swap-pop. Caller guarantees idx is in range.
func (t *Table) deleteAt(idx int) {
	last := len(t.rows) - 1
	deletedKey := t.rows[idx].Key
	if idx != last {
		t.rows[idx] = t.rows[last]
		t.keyIndex[t.rows[idx].Key] = idx
	}
	t.rows = t.rows[:last]
	delete(t.keyIndex, deletedKey)
}

// DeleteIndices removes rows at the given set of indices (any order,
// duplicates ignored), each via swap-pop, in a way that never invalidates an
// index in the set before it is processed: indices are handled in
// descending order so earlier swap-pops never move a not-yet-deleted target
// out from under a later one.
func (t *Table) DeleteIndices(indices []int) {
	sorted := append([]int(nil), indices...)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j] > sorted[i] {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}
	seen := make(map[int]bool, len(sorted))
	for _, idx := range sorted {
		if seen[idx] {
			continue
		}
		seen[idx] = true
		t.deleteAt(idx)
	}
}

// SetKey renames the row at index to newKey, failing if newKey is already
// taken by a different row.
func (t *Table) SetKey(index int, newKey string) error {
	oldKey := t.rows[index].Key
	if oldKey == newKey {
		return nil
	}
	if _, dup := t.keyIndex[newKey]; dup {
		return fmt.Errorf("table %q: %w: %s", t.name, dberrors.ErrConflictingKey, newKey)
	}
	delete(t.keyIndex, oldKey)
	t.keyIndex[newKey] = index
	t.rows[index].Key = newKey
	return nil
}

// Clear empties all rows while preserving the schema (used by TRUNCATE).
// Returns the number of rows removed.
func (t *Table) Clear() int {
	n := len(t.rows)
	t.rows = nil
	t.keyIndex = make(map[string]int)
	return n
}

// Each calls fn for every row in storage order. Stable for the duration of a
// single operator because all mutating operators on the same table are
// serialized by the table's write lock (spec.md §4.1, §5).
func (t *Table) Each(fn func(index int, row *Row)) {
	for i := range t.rows {
		fn(i, &t.rows[i])
	}
}

// EachRange calls fn for every row index in [start, end), for intra-operator
// chunked fan-out (spec.md §5).
func (t *Table) EachRange(start, end int, fn func(index int, row *Row)) {
	for i := start; i < end && i < len(t.rows); i++ {
		fn(i, &t.rows[i])
	}
}

// Clone deep-copies this table under a new name, for COPYTABLE.
func (t *Table) Clone(newName string) *Table {
	fields := append([]string(nil), t.fields...)
	fieldIndex := make(map[string]int, len(t.fieldIndex))
	for k, v := range t.fieldIndex {
		fieldIndex[k] = v
	}
	rows := make([]Row, len(t.rows))
	for i, r := range t.rows {
		rows[i] = Row{Key: r.Key, Cells: append([]dbvalue.Value(nil), r.Cells...)}
	}
	keyIndex := make(map[string]int, len(t.keyIndex))
	for k, v := range t.keyIndex {
		keyIndex[k] = v
	}
	return &Table{
		name:       newName,
		fields:     fields,
		fieldIndex: fieldIndex,
		rows:       rows,
		keyIndex:   keyIndex,
	}
}
