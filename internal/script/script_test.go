package script

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemondb/lemondb/internal/lockmanager"
	"github.com/lemondb/lemondb/internal/output"
	"github.com/lemondb/lemondb/internal/query"
	"github.com/lemondb/lemondb/internal/querymanager"
	"github.com/lemondb/lemondb/internal/registry"
	"github.com/lemondb/lemondb/internal/table"
	"github.com/lemondb/lemondb/internal/workerpool"
)

func newDriver(t *testing.T) (*Driver, *output.Pool, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	tbl, err := table.New("Students", []string{"age"})
	require.NoError(t, err)
	require.NoError(t, reg.Register(tbl))

	pool := workerpool.New(2)
	t.Cleanup(pool.Close)

	execCtx := &query.ExecContext{Registry: reg, Locks: lockmanager.New(), Pool: pool}
	out := output.New()
	mgr := querymanager.New(execCtx, out)
	return New(mgr), out, reg
}

func TestRunSubmitsEveryQueryAndStopsAtQuit(t *testing.T) {
	d, out, reg := newDriver(t)
	stream := `INSERT ( alice 20 ) FROM Students ;
	INSERT ( bob 21 ) FROM Students ;
	QUIT ;
	INSERT ( carol 22 ) FROM Students ;`

	require.NoError(t, d.Run(strings.NewReader(stream)))

	assert.Equal(t, 3, out.Len())
	tbl, err := reg.Borrow("Students")
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
}

func TestRunSkipsUnparseableQueryWithoutStopping(t *testing.T) {
	d, out, _ := newDriver(t)
	stream := `FROBNICATE Oops ;
	INSERT ( dave 1 ) FROM Students ;`

	require.NoError(t, d.Run(strings.NewReader(stream)))
	assert.Equal(t, 1, out.Len())
}

func TestRunFollowsListenIntoNestedScript(t *testing.T) {
	d, out, reg := newDriver(t)
	nestedPath := filepath.Join(t.TempDir(), "nested.txt")
	require.NoError(t, os.WriteFile(nestedPath, []byte(
		"INSERT ( eve 30 ) FROM Students ;\nINSERT ( frank 31 ) FROM Students ;\n"), 0o644))

	stream := "LISTEN ( " + nestedPath + " ) ;"
	require.NoError(t, d.Run(strings.NewReader(stream)))

	assert.Equal(t, 3, out.Len())
	tbl, err := reg.Borrow("Students")
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
}

func TestRunResolvesNestedListenRelativeToItsOwnScript(t *testing.T) {
	d, out, reg := newDriver(t)
	dir := t.TempDir()
	innerPath := filepath.Join(dir, "inner.txt")
	outerPath := filepath.Join(dir, "outer.txt")
	require.NoError(t, os.WriteFile(innerPath, []byte("INSERT ( gina 1 ) FROM Students ;\n"), 0o644))
	require.NoError(t, os.WriteFile(outerPath, []byte("LISTEN ( inner.txt ) ;\n"), 0o644))

	stream := "LISTEN ( " + outerPath + " ) ;"
	require.NoError(t, d.Run(strings.NewReader(stream)))

	assert.Equal(t, 3, out.Len())
	tbl, err := reg.Borrow("Students")
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())
}

func TestRunCopyTableSchedulesWaitToo(t *testing.T) {
	d, out, reg := newDriver(t)
	stream := "COPYTABLE Students Backup ;"
	require.NoError(t, d.Run(strings.NewReader(stream)))

	// The synthesized WAIT is counted toward completion (it still has to
	// run before the driver can shut down) but, being an internal query
	// rather than a user one, never reaches the output pool.
	assert.Equal(t, 1, out.Len())
	_, err := reg.Borrow("Backup")
	require.NoError(t, err)
}

func TestRunLoadIsOrderedWithSelectOnTheLoadedTable(t *testing.T) {
	reg := registry.New()
	pool := workerpool.New(2)
	t.Cleanup(pool.Close)
	execCtx := &query.ExecContext{Registry: reg, Locks: lockmanager.New(), Pool: pool}
	out := output.New()
	mgr := querymanager.New(execCtx, out)
	d := New(mgr)

	path := filepath.Join(t.TempDir(), "loaded.tbl")
	require.NoError(t, os.WriteFile(path, []byte("Loaded\t2\nKEY a\nk1 1\n"), 0o644))

	// LOAD resolves "Loaded" as its target table at parse time, so the
	// SELECT below queues behind it on the same table worker instead of
	// racing LOAD's file read against Registry.Borrow.
	stream := "LOAD " + path + " ;\nSELECT ( a ) FROM Loaded ;"
	require.NoError(t, d.Run(strings.NewReader(stream)))

	_, err := reg.Borrow("Loaded")
	require.NoError(t, err)

	var stdout, stderr strings.Builder
	out.FlushAll(&stdout, &stderr)
	assert.Empty(t, stderr.String(), "SELECT should not race LOAD's table registration")
	assert.Contains(t, stdout.String(), "( k1 1 )")
}

func TestRunListenItselfRendersAnAnswerLine(t *testing.T) {
	d, out, _ := newDriver(t)
	nestedPath := filepath.Join(t.TempDir(), "nested.txt")
	require.NoError(t, os.WriteFile(nestedPath, []byte(
		"INSERT ( hank 1 ) FROM Students ;\n"), 0o644))

	stream := "LISTEN ( " + nestedPath + " ) ;"
	require.NoError(t, d.Run(strings.NewReader(stream)))

	var stdout, stderr strings.Builder
	out.FlushAll(&stdout, &stderr)
	assert.Contains(t, stdout.String(), "listening from "+nestedPath)
}

func TestRunEmptyStreamCompletesImmediately(t *testing.T) {
	d, out, _ := newDriver(t)
	require.NoError(t, d.Run(strings.NewReader("")))
	assert.Equal(t, 0, out.Len())
}
