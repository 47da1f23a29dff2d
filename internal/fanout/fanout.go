// Package fanout implements the intra-operator chunked fan-out described in
// spec.md §5: an operator divides its row range into fixed-size segments,
// computes a partial result per segment concurrently, and aggregates.
//
// It generalizes the teacher's ConcurrentMapFuncWithError
// (sqldef-sqldef/database/concurrent.go), which maps a slice of inputs
// through a bounded-concurrency function and returns outputs in input order,
// from "per-DDL-statement dump concurrency" to "per-row-chunk operator
// concurrency" bound by the engine's shared worker pool
// (internal/workerpool) instead of its own errgroup limiter, so chunk
// fan-out participates in the same concurrency budget as everything else
// submitted to the pool.
package fanout

import (
	"golang.org/x/sync/errgroup"

	"github.com/lemondb/lemondb/internal/workerpool"
)

// DefaultChunkSize is the row-count threshold above which an operator
// splits into concurrent chunks; below it, an operator may as well run
// inline. Matches spec.md §5 "a few thousand rows" order of magnitude, and
// is overridable via internal/config tuning.
const DefaultChunkSize = 4096

// Chunk describes one [Start, End) row-index segment of a table.
type Chunk struct {
	Start, End int
}

// Chunks splits [0, total) into fixed-size segments of at most size rows.
func Chunks(total, size int) []Chunk {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if total == 0 {
		return nil
	}
	chunks := make([]Chunk, 0, (total+size-1)/size)
	for start := 0; start < total; start += size {
		end := start + size
		if end > total {
			end = total
		}
		chunks = append(chunks, Chunk{Start: start, End: end})
	}
	return chunks
}

// Map runs fn once per chunk on pool, preserving chunk order in the
// returned slice (partials[i] corresponds to chunks[i]), and aggregates
// with reduce once every chunk's partial is available. Every chunk is
// submitted up front and runs to completion; if any chunk fails, Map
// returns the first error eg.Wait() reports, as ConcurrentMapFuncWithError
// does, and reduce is not called.
//
// Every chunk executes fn under the caller's already-held table lock
// (spec.md §5: "all tasks share the same (already held) exclusive lock on
// the table") — fn must not attempt to acquire the table's lock itself.
func Map[P any, R any](pool *workerpool.Pool, chunks []Chunk, fn func(Chunk) (P, error), reduce func([]P) R) (R, error) {
	var zero R
	if len(chunks) == 0 {
		return reduce(nil), nil
	}

	futures := make([]*workerpool.Future[P], len(chunks))
	for i, c := range chunks {
		c := c
		futures[i] = workerpool.Submit(pool, func() (P, error) { return fn(c) })
	}

	partials := make([]P, len(chunks))
	var eg errgroup.Group
	for i, f := range futures {
		i, f := i, f
		eg.Go(func() error {
			v, err := f.Get()
			if err != nil {
				return err
			}
			partials[i] = v
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return zero, err
	}
	return reduce(partials), nil
}
