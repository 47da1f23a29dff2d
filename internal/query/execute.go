package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lemondb/lemondb/internal/condition"
	"github.com/lemondb/lemondb/internal/dberrors"
	"github.com/lemondb/lemondb/internal/dbvalue"
	"github.com/lemondb/lemondb/internal/fanout"
	"github.com/lemondb/lemondb/internal/lockmanager"
	"github.com/lemondb/lemondb/internal/registry"
	"github.com/lemondb/lemondb/internal/table"
	"github.com/lemondb/lemondb/internal/workerpool"
)

// ExecContext bundles the engine values one Query's execute needs to
// borrow and lock its target table and, for chunked operators, fan out
// across the shared worker pool (spec.md §4.4, §5). It replaces the
// original's Database::getInstance()/TableLockManager::getInstance()
// process-wide singletons with an explicit value (spec.md §9).
type ExecContext struct {
	Registry *registry.Registry
	Locks    *lockmanager.Manager
	Pool     *workerpool.Pool

	// ChunkSize overrides fanout.DefaultChunkSize; zero means use the
	// default.
	ChunkSize int
}

func (c *ExecContext) chunkSize() int {
	if c.ChunkSize > 0 {
		return c.ChunkSize
	}
	return fanout.DefaultChunkSize
}

// Execute runs one query to completion and returns its rendered outcome.
// Every operator-internal error is caught here and converted to
// ResErrorMsg rather than propagated, per spec.md §7's propagation
// policy: a failed query never terminates the engine or drops its id.
func Execute(ctx *ExecContext, q *Query) Result {
	switch q.Kind {
	case KindInsert:
		return execInsert(ctx, q)
	case KindUpdate:
		return execUpdate(ctx, q)
	case KindDelete:
		return execDelete(ctx, q)
	case KindSelect:
		return execSelect(ctx, q)
	case KindCount:
		return execCount(ctx, q)
	case KindSum:
		return execSum(ctx, q)
	case KindMin:
		return execMinMax(ctx, q, false)
	case KindMax:
		return execMinMax(ctx, q, true)
	case KindAdd:
		return execAdd(ctx, q)
	case KindSub:
		return execSub(ctx, q)
	case KindSwap:
		return execSwap(ctx, q)
	case KindDuplicate:
		return execDuplicate(ctx, q)
	case KindCopyTable:
		return execCopyTable(ctx, q)
	case KindTruncate:
		return execTruncate(ctx, q)
	case KindDrop:
		return execDrop(ctx, q)
	case KindLoad:
		return execLoad(ctx, q)
	case KindDump:
		return execDump(ctx, q)
	case KindList:
		return execList(ctx, q)
	case KindShowTable:
		return execShowTable(ctx, q)
	case KindListen:
		return ListenResult(q.Path, 0)
	case KindQuit:
		ctx.Registry.SignalEnd()
		return NullResult()
	case KindWait:
		if sem := q.Semaphore(); sem != nil {
			sem.Wait()
		}
		return NullResult()
	}
	return ErrorResult(q.Kind.String(), fmt.Errorf("%w: unknown operator", dberrors.ErrIllFormedQuery))
}

func execInsert(ctx *ExecContext, q *Query) Result {
	const op = "INSERT"
	if len(q.Operands) == 0 {
		return ErrorInTableResult(op, q.Table, fmt.Errorf("%w: no operand", dberrors.ErrWrongOperandCount))
	}
	tbl, err := ctx.Registry.Borrow(q.Table)
	if err != nil {
		return ErrorInTableResult(op, q.Table, err)
	}
	release := ctx.Locks.AcquireWrite(q.Table)
	defer release()

	key := q.Operands[0]
	values := make([]dbvalue.Value, len(q.Operands)-1)
	for i, tok := range q.Operands[1:] {
		v, err := dbvalue.ParseLiteral(tok)
		if err != nil {
			return ErrorInTableResult(op, q.Table, err)
		}
		values[i] = v
	}
	if err := tbl.Insert(key, values); err != nil {
		return ErrorInTableResult(op, q.Table, err)
	}
	return AckResult(op)
}

func execUpdate(ctx *ExecContext, q *Query) Result {
	const op = "UPDATE"
	if len(q.Operands) != 2 {
		return ErrorInTableResult(op, q.Table, fmt.Errorf("%w: want 2 operands, got %d", dberrors.ErrWrongOperandCount, len(q.Operands)))
	}
	tbl, err := ctx.Registry.Borrow(q.Table)
	if err != nil {
		return ErrorInTableResult(op, q.Table, err)
	}
	release := ctx.Locks.AcquireWrite(q.Table)
	defer release()

	cond, err := condition.Compile(tbl, q.Conditions, true)
	if err != nil {
		return ErrorInTableResult(op, q.Table, err)
	}

	if q.Operands[0] == table.ReservedKeyField {
		newKey := q.Operands[1]
		count := 0
		if !cond.Unsatisfiable() {
			for _, idx := range matchingIndicesSeq(tbl, cond) {
				if err := tbl.SetKey(idx, newKey); err == nil {
					count++
				}
			}
		}
		return RecordCountResult(count)
	}

	fieldIdx, err := tbl.FieldIndex(q.Operands[0])
	if err != nil {
		return ErrorInTableResult(op, q.Table, err)
	}
	value, err := dbvalue.ParseLiteral(q.Operands[1])
	if err != nil {
		return ErrorInTableResult(op, q.Table, err)
	}
	count := scanAndMutate(ctx, tbl, cond, func(_ int, row *table.Row) {
		row.Cells[fieldIdx] = value
	})
	return RecordCountResult(count)
}

func execDelete(ctx *ExecContext, q *Query) Result {
	const op = "DELETE"
	if len(q.Operands) != 0 {
		return ErrorInTableResult(op, q.Table, fmt.Errorf("%w: expected no operands", dberrors.ErrWrongOperandCount))
	}
	tbl, err := ctx.Registry.Borrow(q.Table)
	if err != nil {
		return ErrorInTableResult(op, q.Table, err)
	}
	release := ctx.Locks.AcquireWrite(q.Table)
	defer release()

	cond, err := condition.Compile(tbl, q.Conditions, true)
	if err != nil {
		return ErrorInTableResult(op, q.Table, err)
	}
	if cond.Unsatisfiable() {
		return RecordCountResult(0)
	}
	indices := matchingIndicesSeq(tbl, cond)
	tbl.DeleteIndices(indices)
	return RecordCountResult(len(indices))
}

func execSelect(ctx *ExecContext, q *Query) Result {
	const op = "SELECT"
	tbl, err := ctx.Registry.Borrow(q.Table)
	if err != nil {
		return ErrorInTableResult(op, q.Table, err)
	}
	if len(q.Operands) == 0 {
		return ErrorInTableResult(op, q.Table, fmt.Errorf("%w: invalid operands", dberrors.ErrWrongOperandCount))
	}
	release := ctx.Locks.AcquireRead(q.Table)
	defer release()

	cond, err := condition.Compile(tbl, q.Conditions, true)
	if err != nil {
		return ErrorInTableResult(op, q.Table, err)
	}

	var fieldIdxs []int
	seen := make(map[string]bool)
	for _, name := range q.Operands {
		if name == table.ReservedKeyField || seen[name] {
			continue
		}
		seen[name] = true
		idx, err := tbl.FieldIndex(name)
		if err != nil {
			return ErrorInTableResult(op, q.Table, err)
		}
		fieldIdxs = append(fieldIdxs, idx)
	}

	type selected struct {
		key   string
		cells []dbvalue.Value
	}
	var out []selected
	if !cond.Unsatisfiable() {
		for _, idx := range matchingIndicesSeq(tbl, cond) {
			row := tbl.RowAt(idx)
			vals := make([]dbvalue.Value, len(fieldIdxs))
			for i, fi := range fieldIdxs {
				vals[i] = row.Cells[fi]
			}
			out = append(out, selected{key: row.Key, cells: vals})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })

	rows := make([]string, len(out))
	for i, s := range out {
		var b strings.Builder
		b.WriteString("( ")
		b.WriteString(s.key)
		for _, v := range s.cells {
			b.WriteByte(' ')
			b.WriteString(v.String())
		}
		b.WriteString(" )")
		rows[i] = b.String()
	}
	return TextRowsResult(rows)
}

func execCount(ctx *ExecContext, q *Query) Result {
	const op = "COUNT"
	if len(q.Operands) != 0 {
		return ErrorInTableResult(op, q.Table, fmt.Errorf("%w: expected no operands", dberrors.ErrWrongOperandCount))
	}
	tbl, err := ctx.Registry.Borrow(q.Table)
	if err != nil {
		return ErrorInTableResult(op, q.Table, err)
	}
	release := ctx.Locks.AcquireRead(q.Table)
	defer release()

	cond, err := condition.Compile(tbl, q.Conditions, true)
	if err != nil {
		return ErrorInTableResult(op, q.Table, err)
	}
	n := countMatches(ctx, tbl, cond)
	return ScalarResult(dbvalue.Value(n))
}

func execSum(ctx *ExecContext, q *Query) Result {
	const op = "SUM"
	if len(q.Operands) == 0 {
		return ErrorInTableResult(op, q.Table, fmt.Errorf("%w: no fields given", dberrors.ErrWrongOperandCount))
	}
	tbl, err := ctx.Registry.Borrow(q.Table)
	if err != nil {
		return ErrorInTableResult(op, q.Table, err)
	}
	release := ctx.Locks.AcquireRead(q.Table)
	defer release()

	fids, errResult := resolveFields(tbl, op, q.Table, q.Operands, true)
	if errResult != nil {
		return *errResult
	}
	cond, err := condition.Compile(tbl, q.Conditions, true)
	if err != nil {
		return ErrorInTableResult(op, q.Table, err)
	}
	sums := sumFields(ctx, tbl, cond, fids)
	return VectorResult(sums)
}

func execMinMax(ctx *ExecContext, q *Query, isMax bool) Result {
	op := "MIN"
	if isMax {
		op = "MAX"
	}
	if len(q.Operands) == 0 {
		return ErrorInTableResult(op, q.Table, fmt.Errorf("%w: no fields given", dberrors.ErrWrongOperandCount))
	}
	tbl, err := ctx.Registry.Borrow(q.Table)
	if err != nil {
		return ErrorInTableResult(op, q.Table, err)
	}
	release := ctx.Locks.AcquireRead(q.Table)
	defer release()

	fids, errResult := resolveFields(tbl, op, q.Table, q.Operands, true)
	if errResult != nil {
		return *errResult
	}
	cond, err := condition.Compile(tbl, q.Conditions, true)
	if err != nil {
		return ErrorInTableResult(op, q.Table, err)
	}
	vals, found := minMaxFields(ctx, tbl, cond, fids, isMax)
	if !found {
		return NullResult()
	}
	return VectorResult(vals)
}

func execAdd(ctx *ExecContext, q *Query) Result {
	const op = "ADD"
	if len(q.Operands) < 2 {
		return ErrorInTableResult(op, q.Table, fmt.Errorf("%w: need at least 2 operands", dberrors.ErrWrongOperandCount))
	}
	tbl, err := ctx.Registry.Borrow(q.Table)
	if err != nil {
		return ErrorInTableResult(op, q.Table, err)
	}
	release := ctx.Locks.AcquireWrite(q.Table)
	defer release()

	srcNames := q.Operands[:len(q.Operands)-1]
	dstName := q.Operands[len(q.Operands)-1]
	srcFields, errResult := resolveFields(tbl, op, q.Table, srcNames, true)
	if errResult != nil {
		return *errResult
	}
	dstField, err := tbl.FieldIndex(dstName)
	if err != nil {
		return ErrorInTableResult(op, q.Table, err)
	}
	cond, err := condition.Compile(tbl, q.Conditions, true)
	if err != nil {
		return ErrorInTableResult(op, q.Table, err)
	}
	count := scanAndMutate(ctx, tbl, cond, func(_ int, row *table.Row) {
		var sum dbvalue.Value
		for _, f := range srcFields {
			sum = dbvalue.Add(sum, row.Cells[f])
		}
		row.Cells[dstField] = sum
	})
	return RecordCountResult(count)
}

func execSub(ctx *ExecContext, q *Query) Result {
	const op = "SUB"
	if len(q.Operands) != 3 {
		return ErrorInTableResult(op, q.Table, fmt.Errorf("%w: want 3 operands, got %d", dberrors.ErrWrongOperandCount, len(q.Operands)))
	}
	tbl, err := ctx.Registry.Borrow(q.Table)
	if err != nil {
		return ErrorInTableResult(op, q.Table, err)
	}
	release := ctx.Locks.AcquireWrite(q.Table)
	defer release()

	fields, errResult := resolveFields(tbl, op, q.Table, q.Operands, true)
	if errResult != nil {
		return *errResult
	}
	f1, f2, dst := fields[0], fields[1], fields[2]
	cond, err := condition.Compile(tbl, q.Conditions, true)
	if err != nil {
		return ErrorInTableResult(op, q.Table, err)
	}
	count := scanAndMutate(ctx, tbl, cond, func(_ int, row *table.Row) {
		row.Cells[dst] = dbvalue.Sub(row.Cells[f1], row.Cells[f2])
	})
	return RecordCountResult(count)
}

func execSwap(ctx *ExecContext, q *Query) Result {
	const op = "SWAP"
	if len(q.Operands) != 2 {
		return ErrorInTableResult(op, q.Table, fmt.Errorf("%w: want 2 operands, got %d", dberrors.ErrWrongOperandCount, len(q.Operands)))
	}
	tbl, err := ctx.Registry.Borrow(q.Table)
	if err != nil {
		return ErrorInTableResult(op, q.Table, err)
	}
	release := ctx.Locks.AcquireWrite(q.Table)
	defer release()

	if q.Operands[0] == table.ReservedKeyField || q.Operands[1] == table.ReservedKeyField {
		return ErrorInTableResult(op, q.Table, fmt.Errorf("%w: KEY cannot be swapped", dberrors.ErrIllFormedQueryCondition))
	}
	fields, errResult := resolveFields(tbl, op, q.Table, q.Operands, true)
	if errResult != nil {
		return *errResult
	}
	f1, f2 := fields[0], fields[1]
	if f1 == f2 {
		return RecordCountResult(0)
	}
	cond, err := condition.Compile(tbl, q.Conditions, true)
	if err != nil {
		return ErrorInTableResult(op, q.Table, err)
	}
	count := scanAndMutate(ctx, tbl, cond, func(_ int, row *table.Row) {
		row.Cells[f1], row.Cells[f2] = row.Cells[f2], row.Cells[f1]
	})
	return RecordCountResult(count)
}

func execDuplicate(ctx *ExecContext, q *Query) Result {
	const op = "DUPLICATE"
	if len(q.Operands) != 0 {
		return ErrorInTableResult(op, q.Table, fmt.Errorf("%w: expected no operands", dberrors.ErrWrongOperandCount))
	}
	tbl, err := ctx.Registry.Borrow(q.Table)
	if err != nil {
		return ErrorInTableResult(op, q.Table, err)
	}
	release := ctx.Locks.AcquireWrite(q.Table)
	defer release()

	cond, err := condition.Compile(tbl, q.Conditions, true)
	if err != nil {
		return ErrorInTableResult(op, q.Table, err)
	}
	if cond.Unsatisfiable() {
		return RecordCountResult(0)
	}

	count := 0
	for _, idx := range matchingIndicesSeq(tbl, cond) {
		row := tbl.RowAt(idx)
		copyKey := row.Key + "_copy"
		if _, exists := tbl.Lookup(copyKey); exists {
			continue
		}
		if err := tbl.Insert(copyKey, append([]dbvalue.Value(nil), row.Cells...)); err == nil {
			count++
		}
	}
	return RecordCountResult(count)
}

func execCopyTable(ctx *ExecContext, q *Query) Result {
	const op = "COPYTABLE"
	if sem := q.Semaphore(); sem != nil {
		// Release the paired WAIT on the destination table's queue on every
		// exit path, success or failure (spec.md §4.8).
		defer sem.Release()
	}
	srcTbl, err := ctx.Registry.Borrow(q.Table)
	if err != nil {
		return ErrorInTableResult(op, q.Table, err)
	}
	release := ctx.Locks.AcquireRead(q.Table)
	defer release()

	if _, err := ctx.Registry.Borrow(q.DestTable); err == nil {
		return ErrorInTableResult(op, q.Table, fmt.Errorf("%w: %s", dberrors.ErrDuplicatedTableName, q.DestTable))
	}
	clone := srcTbl.Clone(q.DestTable)
	if err := ctx.Registry.Register(clone); err != nil {
		return ErrorInTableResult(op, q.Table, err)
	}
	return NullResult()
}

func execTruncate(ctx *ExecContext, q *Query) Result {
	const op = "TRUNCATE"
	tbl, err := ctx.Registry.Borrow(q.Table)
	if err != nil {
		return ErrorInTableResult(op, q.Table, err)
	}
	release := ctx.Locks.AcquireWrite(q.Table)
	defer release()
	tbl.Clear()
	return NullResult()
}

func execDrop(ctx *ExecContext, q *Query) Result {
	const op = "DROP"
	release := ctx.Locks.AcquireWrite(q.Table)
	defer release()
	if err := ctx.Registry.Drop(q.Table); err != nil {
		return ErrorInTableResult(op, q.Table, err)
	}
	return AckResult(op)
}

func execLoad(ctx *ExecContext, q *Query) Result {
	const op = "LOAD"
	tbl, err := ctx.Registry.LoadFromPath(q.Path)
	if err != nil {
		return ErrorResult(op, err)
	}
	return AckDetailResult(op, fmt.Sprintf("loaded %q", tbl.Name()))
}

func execDump(ctx *ExecContext, q *Query) Result {
	const op = "DUMP"
	release := ctx.Locks.AcquireRead(q.Table)
	defer release()
	if err := ctx.Registry.DumpToPath(q.Table, q.Path); err != nil {
		return ErrorInTableResult(op, q.Table, err)
	}
	return AckResult(op)
}

// matchingIndicesSeq collects every row index matching cond, sequentially,
// honoring the KEY fast path. Used by operators that need an explicit key
// list (DELETE, DUPLICATE, SELECT, KEY-rename UPDATE) rather than a
// commutative reduction.
func matchingIndicesSeq(tbl *table.Table, cond *condition.Compiled) []int {
	if cond.Unsatisfiable() {
		return nil
	}
	if key, ok := cond.FastPathKey(); ok {
		idx, found := tbl.Lookup(key)
		if !found {
			return nil
		}
		row := tbl.RowAt(idx)
		if cond.MatchRow(row.Key, row.Cells) {
			return []int{idx}
		}
		return nil
	}
	var out []int
	tbl.Each(func(i int, row *table.Row) {
		if cond.MatchRow(row.Key, row.Cells) {
			out = append(out, i)
		}
	})
	return out
}

// scanAndMutate applies mutate to every row matching cond, honoring the
// KEY fast path and, for large tables, fanning the scan out across the
// shared worker pool in fixed-size chunks (spec.md §5): each chunk only
// touches the disjoint cells it owns, under the caller's already-held
// write lock.
func scanAndMutate(ctx *ExecContext, tbl *table.Table, cond *condition.Compiled, mutate func(idx int, row *table.Row)) int {
	if cond.Unsatisfiable() {
		return 0
	}
	if key, ok := cond.FastPathKey(); ok {
		idx, found := tbl.Lookup(key)
		if !found {
			return 0
		}
		row := tbl.RowAt(idx)
		if !cond.MatchRow(row.Key, row.Cells) {
			return 0
		}
		mutate(idx, row)
		return 1
	}

	n := tbl.Len()
	if n == 0 {
		return 0
	}
	size := ctx.chunkSize()
	if ctx.Pool == nil || n < size {
		count := 0
		tbl.Each(func(i int, row *table.Row) {
			if cond.MatchRow(row.Key, row.Cells) {
				mutate(i, row)
				count++
			}
		})
		return count
	}

	chunks := fanout.Chunks(n, size)
	total, err := fanout.Map(ctx.Pool, chunks, func(c fanout.Chunk) (int, error) {
		local := 0
		tbl.EachRange(c.Start, c.End, func(i int, row *table.Row) {
			if cond.MatchRow(row.Key, row.Cells) {
				mutate(i, row)
				local++
			}
		})
		return local, nil
	}, sumInts)
	if err != nil {
		return 0
	}
	return total
}

func countMatches(ctx *ExecContext, tbl *table.Table, cond *condition.Compiled) int {
	if cond.Unsatisfiable() {
		return 0
	}
	if key, ok := cond.FastPathKey(); ok {
		idx, found := tbl.Lookup(key)
		if !found {
			return 0
		}
		row := tbl.RowAt(idx)
		if cond.MatchRow(row.Key, row.Cells) {
			return 1
		}
		return 0
	}
	n := tbl.Len()
	if n == 0 {
		return 0
	}
	size := ctx.chunkSize()
	if ctx.Pool == nil || n < size {
		c := 0
		tbl.Each(func(i int, row *table.Row) {
			if cond.MatchRow(row.Key, row.Cells) {
				c++
			}
		})
		return c
	}
	chunks := fanout.Chunks(n, size)
	total, err := fanout.Map(ctx.Pool, chunks, func(c fanout.Chunk) (int, error) {
		local := 0
		tbl.EachRange(c.Start, c.End, func(i int, row *table.Row) {
			if cond.MatchRow(row.Key, row.Cells) {
				local++
			}
		})
		return local, nil
	}, sumInts)
	if err != nil {
		return 0
	}
	return total
}

func sumFields(ctx *ExecContext, tbl *table.Table, cond *condition.Compiled, fids []int) []dbvalue.Value {
	zero := make([]dbvalue.Value, len(fids))
	if cond.Unsatisfiable() {
		return zero
	}
	addRow := func(acc []dbvalue.Value, row *table.Row) {
		for i, f := range fids {
			acc[i] = dbvalue.Add(acc[i], row.Cells[f])
		}
	}
	if key, ok := cond.FastPathKey(); ok {
		idx, found := tbl.Lookup(key)
		if !found {
			return zero
		}
		row := tbl.RowAt(idx)
		if !cond.MatchRow(row.Key, row.Cells) {
			return zero
		}
		acc := append([]dbvalue.Value(nil), zero...)
		addRow(acc, row)
		return acc
	}

	n := tbl.Len()
	if n == 0 {
		return zero
	}
	size := ctx.chunkSize()
	if ctx.Pool == nil || n < size {
		acc := append([]dbvalue.Value(nil), zero...)
		tbl.Each(func(i int, row *table.Row) {
			if cond.MatchRow(row.Key, row.Cells) {
				addRow(acc, row)
			}
		})
		return acc
	}

	chunks := fanout.Chunks(n, size)
	total, err := fanout.Map(ctx.Pool, chunks, func(c fanout.Chunk) ([]dbvalue.Value, error) {
		local := make([]dbvalue.Value, len(fids))
		tbl.EachRange(c.Start, c.End, func(i int, row *table.Row) {
			if cond.MatchRow(row.Key, row.Cells) {
				addRow(local, row)
			}
		})
		return local, nil
	}, func(partials [][]dbvalue.Value) []dbvalue.Value {
		acc := append([]dbvalue.Value(nil), zero...)
		for _, p := range partials {
			for i := range acc {
				acc[i] = dbvalue.Add(acc[i], p[i])
			}
		}
		return acc
	})
	if err != nil {
		return zero
	}
	return total
}

type minMaxPartial struct {
	vals  []dbvalue.Value
	found bool
}

func minMaxFields(ctx *ExecContext, tbl *table.Table, cond *condition.Compiled, fids []int, isMax bool) ([]dbvalue.Value, bool) {
	better := func(a, b dbvalue.Value) bool {
		if isMax {
			return a > b
		}
		return a < b
	}
	considerRow := func(p *minMaxPartial, row *table.Row) {
		if !p.found {
			p.vals = make([]dbvalue.Value, len(fids))
			for i, f := range fids {
				p.vals[i] = row.Cells[f]
			}
			p.found = true
			return
		}
		for i, f := range fids {
			if better(row.Cells[f], p.vals[i]) {
				p.vals[i] = row.Cells[f]
			}
		}
	}

	if cond.Unsatisfiable() {
		return nil, false
	}
	if key, ok := cond.FastPathKey(); ok {
		idx, found := tbl.Lookup(key)
		if !found {
			return nil, false
		}
		row := tbl.RowAt(idx)
		if !cond.MatchRow(row.Key, row.Cells) {
			return nil, false
		}
		var p minMaxPartial
		considerRow(&p, row)
		return p.vals, true
	}

	n := tbl.Len()
	if n == 0 {
		return nil, false
	}
	size := ctx.chunkSize()
	if ctx.Pool == nil || n < size {
		var p minMaxPartial
		tbl.Each(func(i int, row *table.Row) {
			if cond.MatchRow(row.Key, row.Cells) {
				considerRow(&p, row)
			}
		})
		return p.vals, p.found
	}

	chunks := fanout.Chunks(n, size)
	total, err := fanout.Map(ctx.Pool, chunks, func(c fanout.Chunk) (minMaxPartial, error) {
		var p minMaxPartial
		tbl.EachRange(c.Start, c.End, func(i int, row *table.Row) {
			if cond.MatchRow(row.Key, row.Cells) {
				considerRow(&p, row)
			}
		})
		return p, nil
	}, func(partials []minMaxPartial) minMaxPartial {
		var acc minMaxPartial
		for _, p := range partials {
			if !p.found {
				continue
			}
			if !acc.found {
				acc = p
				continue
			}
			for i := range acc.vals {
				if better(p.vals[i], acc.vals[i]) {
					acc.vals[i] = p.vals[i]
				}
			}
		}
		return acc
	})
	if err != nil {
		return nil, false
	}
	return total.vals, total.found
}

func sumInts(partials []int) int {
	total := 0
	for _, p := range partials {
		total += p
	}
	return total
}

// resolveFields resolves a list of field-name operands to indices,
// rejecting KEY when disallowed is true, returning a ready-to-use
// ErrorInTableResult on the first failure.
func resolveFields(tbl *table.Table, op, tableName string, names []string, disallowKey bool) ([]int, *Result) {
	fids := make([]int, len(names))
	for i, name := range names {
		if disallowKey && name == table.ReservedKeyField {
			r := ErrorInTableResult(op, tableName, fmt.Errorf("%w: KEY not allowed here", dberrors.ErrIllFormedQuery))
			return nil, &r
		}
		idx, err := tbl.FieldIndex(name)
		if err != nil {
			r := ErrorInTableResult(op, tableName, err)
			return nil, &r
		}
		fids[i] = idx
	}
	return fids, nil
}
