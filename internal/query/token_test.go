package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeSplitsWhitespace(t *testing.T) {
	assert.Equal(t, []string{"SELECT", "(", "KEY", "f1", ")", "FROM", "T"}, Tokenize("SELECT ( KEY f1 ) FROM T"))
}

func TestTokenizeSeparatesGluedParens(t *testing.T) {
	assert.Equal(t, []string{"(", "KEY", "=", "k1", ")"}, Tokenize("(KEY = k1)"))
}

func TestTokenizeCollapsesRepeatedWhitespace(t *testing.T) {
	assert.Equal(t, []string{"LIST"}, Tokenize("  LIST   "))
}

func TestTokenizeEmptyInput(t *testing.T) {
	assert.Empty(t, Tokenize(""))
}
