package querymanager

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemondb/lemondb/internal/dbvalue"
	"github.com/lemondb/lemondb/internal/lockmanager"
	"github.com/lemondb/lemondb/internal/output"
	"github.com/lemondb/lemondb/internal/query"
	"github.com/lemondb/lemondb/internal/registry"
	"github.com/lemondb/lemondb/internal/table"
	"github.com/lemondb/lemondb/internal/workerpool"
)

func newManager(t *testing.T) (*Manager, *output.Pool, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	tbl, err := table.New("Students", []string{"age"})
	require.NoError(t, err)
	require.NoError(t, tbl.Insert("alice", []dbvalue.Value{20}))
	require.NoError(t, reg.Register(tbl))

	pool := workerpool.New(2)
	t.Cleanup(pool.Close)

	execCtx := &query.ExecContext{Registry: reg, Locks: lockmanager.New(), Pool: pool}
	out := output.New()
	return New(execCtx, out), out, reg
}

func TestSubmitExecutesInFIFOOrderPerTable(t *testing.T) {
	m, out, reg := newManager(t)

	for i, age := range []string{"21", "22", "23"} {
		id := m.NextID()
		m.Submit(id, &query.Query{Kind: query.KindUpdate, Table: "Students", Operands: []string{"age", age}})
		_ = i
	}
	m.SetExpectedQueryCount(3)
	m.WaitForCompletion()

	assert.Equal(t, 3, out.Len())
	// The last UPDATE submitted must be the last one applied.
	tbl, err := reg.Borrow("Students")
	require.NoError(t, err)
	idx, ok := tbl.Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, dbvalue.Value(23), tbl.RowAt(idx).Cells[0])
}

func TestSubmitAcrossTwoTablesBothComplete(t *testing.T) {
	m, out, reg := newManager(t)
	tbl2, err := table.New("Other", []string{"v"})
	require.NoError(t, err)
	require.NoError(t, reg.Register(tbl2))

	id0 := m.NextID()
	m.Submit(id0, &query.Query{Kind: query.KindInsert, Table: "Students", Operands: []string{"bob", "5"}})
	id1 := m.NextID()
	m.Submit(id1, &query.Query{Kind: query.KindInsert, Table: "Other", Operands: []string{"x", "1"}})
	m.SetExpectedQueryCount(2)
	m.WaitForCompletion()

	assert.Equal(t, 2, out.Len())
}

func TestExecuteSuppressesAckStdoutButKeepsAnswerStdout(t *testing.T) {
	m, out, _ := newManager(t)

	insertID := m.NextID()
	m.Submit(insertID, &query.Query{Kind: query.KindInsert, Table: "Students", Operands: []string{"bob", "5"}})
	countID := m.NextID()
	m.Submit(countID, &query.Query{Kind: query.KindCount, Table: "Students"})
	m.SetExpectedQueryCount(2)
	m.WaitForCompletion()

	var stdout, stderr strings.Builder
	out.FlushAll(&stdout, &stderr)

	assert.NotContains(t, stdout.String(), "success")
	assert.Contains(t, stdout.String(), "ANSWER")
}

func TestCopyTableWaitOrdersDestinationQueries(t *testing.T) {
	m, out, reg := newManager(t)

	copyID := m.NextID()
	m.SubmitCopyTable(copyID, &query.Query{Kind: query.KindCopyTable, Table: "Students", DestTable: "Backup"})

	followUpID := m.NextID()
	m.Submit(followUpID, &query.Query{Kind: query.KindShowTable, Table: "Backup"})

	m.SetExpectedQueryCount(3)

	doneCh := make(chan struct{})
	go func() { m.WaitForCompletion(); close(doneCh) }()
	select {
	case <-doneCh:
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForCompletion did not return in time")
	}

	// COPYTABLE and the follow-up SHOWTABLE each get a line; the
	// synthesized WAIT is not a user query and never reaches the output
	// pool (spec.md §6.4 "one entry per non-QUIT query" excludes it too).
	assert.Equal(t, 2, out.Len())
	_, err := reg.Borrow("Backup")
	require.NoError(t, err)
}
