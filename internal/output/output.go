// Package output implements the ordered result collector queries render
// into as they complete, grounded on
// original_source/src/threading/OutputPool.{h,cpp}: a thread-safe map
// keyed by query id, flushed in ascending order once the engine knows no
// further ids are coming (spec.md §4.9).
package output

import (
	"fmt"
	"io"
	"sort"
	"sync"
)

// Entry is one query's rendered outcome, ready for Pool.FlushReady or
// Pool.FlushAll to print.
type Entry struct {
	// IsQuit suppresses the leading "{id}\n" line (spec.md §4.9: "QUIT has
	// no id printed").
	IsQuit bool

	// Stdout is the success-path rendering (possibly empty for a silent
	// success).
	Stdout string

	// Stderr is the "QUERY FAILED: ..." block for a failed query, empty
	// otherwise.
	Stderr string
}

// Pool is a thread-safe, query-id-ordered result collector. It is not a
// singleton: the engine owns one instance and passes it by reference,
// matching the teacher's OutputPool instantiation discipline.
type Pool struct {
	mu       sync.Mutex
	results  map[int]Entry
	flushed  int // highest query id FlushReady has written; meaningful only once hasFirst is set
	hasFirst bool
}

// New returns an empty Pool.
func New() *Pool {
	return &Pool{results: make(map[int]Entry)}
}

// Add records id's rendered outcome. Safe to call from any goroutine.
func (p *Pool) Add(id int, e Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results[id] = e
}

// Len reports how many results have been collected so far.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.results)
}

// FlushReady writes every contiguous entry starting at the next
// not-yet-flushed id to w, stopping at the first gap. It is safe to call
// repeatedly (an adaptive polling loop, spec.md §4.9) as well as once at
// the very end; each id is written exactly once across all calls.
func (p *Pool) FlushReady(stdout, stderr io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := 0
	if p.hasFirst {
		next = p.flushed + 1
	}
	for {
		e, ok := p.results[next]
		if !ok {
			return
		}
		writeEntry(stdout, stderr, next, e)
		p.flushed = next
		p.hasFirst = true
		delete(p.results, next)
		next++
	}
}

// FlushAll writes every remaining entry in ascending id order, regardless
// of gaps, and is called once at the very end of input (spec.md §4.9).
// Any gap (an id that was never submitted) is simply absent from the
// iteration, not an error.
func (p *Pool) FlushAll(stdout, stderr io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]int, 0, len(p.results))
	for id := range p.results {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		writeEntry(stdout, stderr, id, p.results[id])
		delete(p.results, id)
	}
}

func writeEntry(stdout, stderr io.Writer, id int, e Entry) {
	if !e.IsQuit {
		fmt.Fprintf(stdout, "%d\n", id)
	}
	if e.Stdout != "" {
		io.WriteString(stdout, e.Stdout)
	}
	if e.Stderr != "" {
		io.WriteString(stderr, e.Stderr)
	}
}
