package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemondb/lemondb/internal/dbvalue"
	"github.com/lemondb/lemondb/internal/table"
)

func TestRegisterDuplicateFails(t *testing.T) {
	r := New()
	tbl, err := table.New("T", []string{"a"})
	require.NoError(t, err)
	require.NoError(t, r.Register(tbl))

	dup, _ := table.New("T", []string{"b"})
	err = r.Register(dup)
	require.Error(t, err)
}

func TestDropAndBorrow(t *testing.T) {
	r := New()
	tbl, _ := table.New("T", []string{"a"})
	require.NoError(t, r.Register(tbl))

	_, err := r.Borrow("T")
	require.NoError(t, err)

	require.NoError(t, r.Drop("T"))
	_, err = r.Borrow("T")
	require.Error(t, err)

	err = r.Drop("T")
	require.Error(t, err)
}

func TestLoadFromStreamAndFileTableNameMemo(t *testing.T) {
	r := New()
	input := "T\t2\nKEY a\nk1 1\n"
	tbl, err := r.LoadFromStream(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, "T", tbl.Name())

	_, ok := r.FileTableName("/no/such/path")
	assert.False(t, ok)
}

func TestLoadFromPathMemoizesName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "student.tbl")
	require.NoError(t, os.WriteFile(path, []byte("Student\t2\nKEY a\nk1 1\n"), 0o644))

	r := New()
	tbl, err := r.LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "Student", tbl.Name())

	name, ok := r.FileTableName(path)
	require.True(t, ok)
	assert.Equal(t, "Student", name)
}

func TestDumpToPathOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.tbl")
	require.NoError(t, os.WriteFile(path, []byte("stale content"), 0o644))

	r := New()
	tbl, _ := table.New("T", []string{"a"})
	require.NoError(t, tbl.Insert("k1", []dbvalue.Value{1}))
	require.NoError(t, r.Register(tbl))

	require.NoError(t, r.DumpToPath("T", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "T\t2")
	assert.NotContains(t, string(data), "stale content")
}

func TestSignalEnd(t *testing.T) {
	r := New()
	assert.False(t, r.IsEnd())
	r.SignalEnd()
	assert.True(t, r.IsEnd())
}
