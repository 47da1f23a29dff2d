// Package condition implements the LemonDB condition model (spec.md §4.3):
// a conjunction of (field, op, literal) triples compiled against a specific
// table, including the KEY fast path and the unsatisfiable-KEY-conjunction
// short circuit. Grounded on the condition handling spread across
// original_source/src/query/data/*Query.cpp, unified here into one
// reusable compiled form instead of being re-implemented per operator.
package condition

import (
	"fmt"

	"github.com/lemondb/lemondb/internal/dberrors"
	"github.com/lemondb/lemondb/internal/dbvalue"
	"github.com/lemondb/lemondb/internal/table"
)

// Op is a comparison operator usable in a condition triple.
type Op string

const (
	Eq Op = "="
	Lt Op = "<"
	Gt Op = ">"
	Le Op = "<="
	Ge Op = ">="
)

// Triple is one raw (field, op, literal) condition as parsed from the
// query text, before compilation against a table.
type Triple struct {
	Field   string
	Op      Op
	Literal string
}

// compiledTriple is a Triple resolved against a specific table: KEY triples
// keep their literal string; column triples resolve a field index and a
// parsed value.
type compiledTriple struct {
	isKey      bool
	keyLiteral string
	fieldIdx   int
	op         Op
	value      dbvalue.Value
}

// Compiled is a condition bound to one table, ready for evaluation or for
// the KEY fast path.
type Compiled struct {
	triples []compiledTriple

	// unsatisfiable is set when two KEY = v triples disagree; the executor
	// must take the short-circuit empty-result path without iterating.
	unsatisfiable bool

	// fastPathKey, fastPathOK: set when exactly one KEY = v triple is
	// present and every other triple is a column predicate.
	fastPathKey string
	fastPathOK  bool
}

// Compile resolves every triple's field against tbl and parses its literal,
// classifying the result for the KEY fast path. With requireKeyEquality set,
// a KEY triple whose operator is not `=` fails; every operator in
// internal/query, UPDATE included, passes true.
func Compile(tbl *table.Table, triples []Triple, requireKeyEquality bool) (*Compiled, error) {
	c := &Compiled{}

	var keyLiterals []string
	for _, t := range triples {
		if t.Field == table.ReservedKeyField {
			if requireKeyEquality && t.Op != Eq {
				return nil, fmt.Errorf("%w: KEY only supports =", dberrors.ErrIllFormedQueryCondition)
			}
			if t.Op == Eq {
				keyLiterals = append(keyLiterals, t.Literal)
			}
			c.triples = append(c.triples, compiledTriple{isKey: true, keyLiteral: t.Literal, op: t.Op})
			continue
		}

		idx, err := tbl.FieldIndex(t.Field)
		if err != nil {
			return nil, err
		}
		if !isKnownOp(t.Op) {
			return nil, fmt.Errorf("%w: unknown operator %q", dberrors.ErrIllFormedQueryCondition, t.Op)
		}
		val, err := dbvalue.ParseLiteral(t.Literal)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", dberrors.ErrIllFormedQueryCondition, err)
		}
		c.triples = append(c.triples, compiledTriple{fieldIdx: idx, op: t.Op, value: val})
	}

	for i := 1; i < len(keyLiterals); i++ {
		if keyLiterals[i] != keyLiterals[0] {
			c.unsatisfiable = true
			return c, nil
		}
	}

	keyEqualityCount := 0
	for _, t := range triples {
		if t.Field == table.ReservedKeyField && t.Op == Eq {
			keyEqualityCount++
		}
	}
	if keyEqualityCount == 1 && len(keyLiterals) == 1 {
		allOthersColumns := true
		for _, t := range triples {
			if t.Field == table.ReservedKeyField && t.Op != Eq {
				allOthersColumns = false
				break
			}
		}
		if allOthersColumns {
			c.fastPathKey = keyLiterals[0]
			c.fastPathOK = true
		}
	}

	return c, nil
}

func isKnownOp(op Op) bool {
	switch op {
	case Eq, Lt, Gt, Le, Ge:
		return true
	}
	return false
}

// Unsatisfiable reports whether the conjunction can never match any row
// (two disagreeing KEY = v triples); the executor must not iterate.
func (c *Compiled) Unsatisfiable() bool { return c.unsatisfiable }

// FastPathKey returns the single equality key literal and true when the KEY
// fast path applies.
func (c *Compiled) FastPathKey() (string, bool) { return c.fastPathKey, c.fastPathOK }

// MatchRow evaluates the conjunction against one row's key and cells.
func (c *Compiled) MatchRow(key string, cells []dbvalue.Value) bool {
	for _, t := range c.triples {
		if t.isKey {
			if !compareStrings(key, t.op, t.keyLiteral) {
				return false
			}
			continue
		}
		if !compareValues(cells[t.fieldIdx], t.op, t.value) {
			return false
		}
	}
	return true
}

func compareValues(a dbvalue.Value, op Op, b dbvalue.Value) bool {
	switch op {
	case Eq:
		return a == b
	case Lt:
		return a < b
	case Gt:
		return a > b
	case Le:
		return a <= b
	case Ge:
		return a >= b
	}
	return false
}

func compareStrings(a string, op Op, b string) bool {
	switch op {
	case Eq:
		return a == b
	case Lt:
		return a < b
	case Gt:
		return a > b
	case Le:
		return a <= b
	case Ge:
		return a >= b
	}
	return false
}
