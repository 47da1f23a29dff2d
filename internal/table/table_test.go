package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemondb/lemondb/internal/dbvalue"
)

func vals(xs ...int32) []dbvalue.Value {
	out := make([]dbvalue.Value, len(xs))
	for i, x := range xs {
		out[i] = dbvalue.Value(x)
	}
	return out
}

func TestNewRejectsReservedKeyField(t *testing.T) {
	_, err := New("Student", []string{"studentID", "KEY"})
	require.Error(t, err)
}

func TestNewRejectsDuplicateField(t *testing.T) {
	_, err := New("Student", []string{"a", "a"})
	require.Error(t, err)
}

func TestInsertAndLookup(t *testing.T) {
	tbl, err := New("Student", []string{"totalCredit", "class"})
	require.NoError(t, err)

	require.NoError(t, tbl.Insert("Bill_Gates", vals(112, 2014)))
	idx, ok := tbl.Lookup("Bill_Gates")
	require.True(t, ok)
	assert.Equal(t, dbvalue.Value(112), tbl.RowAt(idx).Cells[0])

	_, ok = tbl.Lookup("nobody")
	assert.False(t, ok)
}

func TestInsertArityMismatch(t *testing.T) {
	tbl, _ := New("T", []string{"a", "b"})
	err := tbl.Insert("k", vals(1))
	require.Error(t, err)
}

func TestInsertConflictingKey(t *testing.T) {
	tbl, _ := New("T", []string{"a"})
	require.NoError(t, tbl.Insert("k", vals(1)))
	err := tbl.Insert("k", vals(2))
	require.Error(t, err)
}

func TestDeleteNotFound(t *testing.T) {
	tbl, _ := New("T", []string{"a"})
	err := tbl.Delete("missing")
	require.Error(t, err)
}

// TestDeleteSwapPopCorrectness mirrors spec.md §8 scenario 5: a table with
// keys k0..k6 and ages 18..24, deleting the rows with age >= 20 and
// score < 60, expecting k2,k3,k4 removed and the other keys intact.
func TestDeleteSwapPopCorrectness(t *testing.T) {
	tbl, err := New("T", []string{"age", "score"})
	require.NoError(t, err)

	ages := []int32{18, 19, 20, 21, 22, 23, 24}
	scores := []int32{70, 70, 50, 50, 50, 70, 70}
	for i, age := range ages {
		key := keyFor(i)
		require.NoError(t, tbl.Insert(key, vals(age, scores[i])))
	}

	var toDelete []int
	tbl.Each(func(idx int, row *Row) {
		if row.Cells[0] >= 20 && row.Cells[1] < 60 {
			toDelete = append(toDelete, idx)
		}
	})
	tbl.DeleteIndices(toDelete)

	assert.Equal(t, 4, tbl.Len())
	for _, removed := range []string{"k2", "k3", "k4"} {
		_, ok := tbl.Lookup(removed)
		assert.False(t, ok, "expected %s removed", removed)
	}
	for _, kept := range []string{"k0", "k1", "k5", "k6"} {
		idx, ok := tbl.Lookup(kept)
		require.True(t, ok, "expected %s present", kept)
		assert.Equal(t, kept, tbl.RowAt(idx).Key)
	}
}

func keyFor(i int) string {
	return "k" + string(rune('0'+i))
}

func TestClearPreservesSchema(t *testing.T) {
	tbl, _ := New("T", []string{"a", "b"})
	require.NoError(t, tbl.Insert("k", vals(1, 2)))
	n := tbl.Clear()
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, tbl.Len())
	assert.Equal(t, []string{"a", "b"}, tbl.Fields())

	// TRUNCATE ; TRUNCATE is idempotent.
	assert.Equal(t, 0, tbl.Clear())
}

func TestSetKeyRename(t *testing.T) {
	tbl, _ := New("T", []string{"a"})
	require.NoError(t, tbl.Insert("old", vals(1)))
	idx, _ := tbl.Lookup("old")
	require.NoError(t, tbl.SetKey(idx, "new"))

	_, ok := tbl.Lookup("old")
	assert.False(t, ok)
	idx2, ok := tbl.Lookup("new")
	require.True(t, ok)
	assert.Equal(t, idx, idx2)
}

func TestSetKeyConflict(t *testing.T) {
	tbl, _ := New("T", []string{"a"})
	require.NoError(t, tbl.Insert("k1", vals(1)))
	require.NoError(t, tbl.Insert("k2", vals(2)))
	idx, _ := tbl.Lookup("k1")
	err := tbl.SetKey(idx, "k2")
	require.Error(t, err)
}

func TestCloneIndependence(t *testing.T) {
	src, _ := New("Student", []string{"totalCredit"})
	require.NoError(t, src.Insert("Bill_Gates", vals(112)))

	dst := src.Clone("Student_Copy")
	idx, _ := src.Lookup("Bill_Gates")
	src.RowAt(idx).Cells[0] = 999

	dstIdx, ok := dst.Lookup("Bill_Gates")
	require.True(t, ok)
	assert.Equal(t, dbvalue.Value(112), dst.RowAt(dstIdx).Cells[0])
}
