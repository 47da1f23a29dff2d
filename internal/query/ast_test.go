package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lemondb/lemondb/internal/dbvalue"
)

func TestDisplayDistinguishesAckFromAnswerForms(t *testing.T) {
	assert.True(t, RecordCountResult(3).Display())
	assert.True(t, TextRowsResult(nil).Display())
	assert.True(t, ListenResult("x", 0).Display())
	assert.True(t, ScalarResult(dbvalue.Value(1)).Display())
	assert.True(t, VectorResult([]dbvalue.Value{1}).Display())

	assert.False(t, NullResult().Display())
	assert.False(t, AckResult("INSERT").Display())
	assert.False(t, AckDetailResult("LOAD", "loaded \"T\"").Display())
}
