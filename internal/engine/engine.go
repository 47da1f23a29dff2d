// Package engine wires the registry, lock manager, worker pool, query
// manager, and output collector into one cohesive value, replacing the
// original's process-wide singletons (Database::getInstance(),
// TableLockManager::getInstance()) with an explicit context object per
// spec.md §9.
package engine

import (
	"io"
	"os"
	"runtime"
	"time"

	"github.com/lemondb/lemondb/internal/config"
	"github.com/lemondb/lemondb/internal/dberrors"
	"github.com/lemondb/lemondb/internal/lockmanager"
	"github.com/lemondb/lemondb/internal/output"
	"github.com/lemondb/lemondb/internal/query"
	"github.com/lemondb/lemondb/internal/querymanager"
	"github.com/lemondb/lemondb/internal/registry"
	"github.com/lemondb/lemondb/internal/script"
	"github.com/lemondb/lemondb/internal/workerpool"
)

// Engine is one fully wired LemonDB instance: everything a script.Driver
// needs to execute a query stream to completion and flush its output.
type Engine struct {
	Registry *registry.Registry
	Locks    *lockmanager.Manager
	Pool     *workerpool.Pool
	Output   *output.Pool
	Manager  *querymanager.Manager

	flushInterval time.Duration
}

// New builds an Engine with threads workers (0 means hardware
// parallelism, matching spec.md §6.1's `--threads 0` auto-detect) and the
// given tuning knobs. threads < 0 is a caller error (spec.md §7
// "Environment errors"); validate before calling New.
func New(threads int, tuning config.Tuning) *Engine {
	if threads == 0 {
		threads = runtime.GOMAXPROCS(0)
	}
	reg := registry.New()
	locks := lockmanager.New()
	pool := workerpool.New(threads)
	execCtx := &query.ExecContext{Registry: reg, Locks: locks, Pool: pool, ChunkSize: tuning.ChunkSize}
	out := output.New()
	mgr := querymanager.New(execCtx, out)

	return &Engine{
		Registry:      reg,
		Locks:         locks,
		Pool:          pool,
		Output:        out,
		Manager:       mgr,
		flushInterval: tuning.FlushInterval,
	}
}

// Run drives r to completion through a fresh script.Driver, flushing
// contiguous completed results early on an adaptive polling loop for
// progress visibility while the stream is still running (spec.md §4.9's
// "optional adaptive polling loop"), then performs the final flush of
// every remaining collected result in ascending query id order (spec.md
// §4.9, §6.4).
func (e *Engine) Run(r io.Reader) error {
	d := script.New(e.Manager)

	stop := make(chan struct{})
	flusherDone := make(chan struct{})
	go func() {
		defer close(flusherDone)
		ticker := time.NewTicker(e.flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.Output.FlushReady(os.Stdout, os.Stderr)
			case <-stop:
				return
			}
		}
	}()

	runErr := d.Run(r)
	close(stop)
	<-flusherDone

	e.Output.FlushAll(os.Stdout, os.Stderr)
	return runErr
}

// Close releases the engine's worker pool. Call once Run has returned.
func (e *Engine) Close() {
	e.Pool.Close()
}

// ValidateThreadCount reports dberrors.ErrNegativeThreadCount for a
// negative --threads value (spec.md §6.1, §7).
func ValidateThreadCount(n int) error {
	if n < 0 {
		return dberrors.ErrNegativeThreadCount
	}
	return nil
}
