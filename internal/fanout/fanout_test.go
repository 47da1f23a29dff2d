package fanout

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemondb/lemondb/internal/workerpool"
)

func TestChunksCoverRange(t *testing.T) {
	chunks := Chunks(10, 3)
	require.Len(t, chunks, 4)
	assert.Equal(t, Chunk{0, 3}, chunks[0])
	assert.Equal(t, Chunk{9, 10}, chunks[3])
}

func TestChunksEmptyTable(t *testing.T) {
	assert.Empty(t, Chunks(0, 100))
}

func TestMapSumsPartials(t *testing.T) {
	pool := workerpool.New(4)
	defer pool.Close()

	chunks := Chunks(100, 10)
	total, err := Map(pool, chunks, func(c Chunk) (int, error) {
		sum := 0
		for i := c.Start; i < c.End; i++ {
			sum += i
		}
		return sum, nil
	}, func(partials []int) int {
		sum := 0
		for _, p := range partials {
			sum += p
		}
		return sum
	})
	require.NoError(t, err)
	assert.Equal(t, 4950, total)
}

func TestMapPropagatesFirstError(t *testing.T) {
	pool := workerpool.New(2)
	defer pool.Close()

	chunks := Chunks(20, 5)
	_, err := Map(pool, chunks, func(c Chunk) (int, error) {
		if c.Start == 10 {
			return 0, fmt.Errorf("boom")
		}
		return 1, nil
	}, func(partials []int) int { return len(partials) })
	require.Error(t, err)
}
