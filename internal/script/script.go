// Package script implements the top-level query stream driver: it reads
// ';'-terminated queries from an io.Reader, parses and submits each one
// through a querymanager.Manager, and follows LISTEN into nested scripts
// inline on the submitting goroutine, per spec.md §4.8's "LISTEN executes
// inline on the submission thread" rule. It plays the role the original
// splits between the out-of-scope REPL reader and QueryManager::addQuery's
// caller (spec.md §4.8, "Out of scope" list in §2).
package script

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lemondb/lemondb/internal/query"
	"github.com/lemondb/lemondb/internal/querymanager"
)

// Driver reads a top-level stream and every script LISTEN opens
// transitively, submitting each parsed query to mgr.
type Driver struct {
	mgr *querymanager.Manager

	// scheduled counts every query this driver and its LISTEN descendants
	// have submitted, for the top-level caller's SetExpectedQueryCount.
	scheduled int

	// quit is set once a QUIT query is seen anywhere in the stream,
	// observed by the driver to stop reading further top-level input
	// (spec.md §4.8).
	quit bool
}

// New returns a Driver that submits parsed queries to mgr.
func New(mgr *querymanager.Manager) *Driver {
	return &Driver{mgr: mgr}
}

// Run reads r to EOF (or until a QUIT query is observed), submitting every
// query it parses, then tells mgr how many queries to expect and blocks
// until they have all completed.
func (d *Driver) Run(r io.Reader) error {
	if err := d.readStream(r, ""); err != nil {
		return err
	}
	d.mgr.SetExpectedQueryCount(d.scheduled)
	d.mgr.WaitForCompletion()
	return nil
}

// readStream submits every query read from r without waiting for
// completion, so it can be called recursively by LISTEN without
// deadlocking on the outer Run's eventual WaitForCompletion. dir is the
// directory a relative LISTEN path found in r should resolve against;
// empty means resolve against the process's own working directory (the
// top-level stream has no script file of its own).
func (d *Driver) readStream(r io.Reader, dir string) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 4096), 1<<20)
	sc.Split(splitOnSemicolon)

	for sc.Scan() {
		if d.quit {
			break
		}
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		q, err := query.Parse(raw)
		if err != nil {
			slog.Warn("dropping unparseable query", "text", raw, "error", err)
			continue
		}
		if err := d.submit(q, dir); err != nil {
			slog.Warn("dropping query", "text", raw, "error", err)
		}
	}
	return sc.Err()
}

// submit dispatches one parsed query: LISTEN recurses inline, QUIT sets
// the stop flag, COPYTABLE is paired with its synthesized WAIT, and
// everything else is handed straight to the query manager (spec.md §4.8).
func (d *Driver) submit(q *query.Query, dir string) error {
	switch q.Kind {
	case query.KindListen:
		path := q.Path
		if dir != "" && !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		id := d.mgr.NextID()
		d.scheduled++
		before := d.scheduled
		err := d.runListen(path)
		scheduledByListen := d.scheduled - before
		if err != nil {
			d.mgr.RecordInline(id, query.ErrorResult("LISTEN", err))
			return err
		}
		d.mgr.RecordInline(id, query.ListenResult(path, scheduledByListen))
		return nil
	case query.KindQuit:
		d.quit = true
		d.scheduled++
		d.mgr.Submit(d.mgr.NextID(), q)
		return nil
	case query.KindCopyTable:
		id := d.mgr.NextID()
		d.scheduled += 2 // the synthesized WAIT counts too (spec.md §4.8)
		d.mgr.SubmitCopyTable(id, q)
		return nil
	default:
		d.scheduled++
		d.mgr.Submit(d.mgr.NextID(), q)
		return nil
	}
}

// runListen opens path and recurses into it. A LISTEN found inside that
// nested script resolves its own relative paths against path's directory,
// not the process's working directory.
func (d *Driver) runListen(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening LISTEN file %q: %w", path, err)
	}
	defer f.Close()

	return d.readStream(f, filepath.Dir(path))
}

// splitOnSemicolon is a bufio.SplitFunc that yields one token per
// ';'-terminated query, discarding the delimiter (spec.md §6.2).
func splitOnSemicolon(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := indexByte(data, ';'); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func indexByte(data []byte, b byte) int {
	for i, c := range data {
		if c == b {
			return i
		}
	}
	return -1
}
