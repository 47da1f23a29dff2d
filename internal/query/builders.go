package query

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lemondb/lemondb/internal/condition"
	"github.com/lemondb/lemondb/internal/dberrors"
	"github.com/lemondb/lemondb/internal/lemonlog"
)

// Parse tokenizes raw (one query's text up to its ';') and runs it
// through the three-link builder chain (spec.md §4.5), grounded on
// DebugQueryBuilder / ManageTableQueryBuilder / ComplexQueryBuilder in
// original_source/src/query/QueryBuilders.cpp. TraceBuilder (SPEC_FULL.md
// C.1) logs the token stream ahead of the real chain when debug logging
// is enabled; it never changes the outcome.
func Parse(raw string) (*Query, error) {
	tokens := Tokenize(raw)
	traceTokens(tokens)

	if q, ok, err := buildDebug(tokens); ok || err != nil {
		return q, err
	}
	if q, ok, err := buildManagement(tokens); ok || err != nil {
		return q, err
	}
	if q, ok, err := buildComplex(tokens); ok || err != nil {
		return q, err
	}
	return nil, fmt.Errorf("%w: %q", dberrors.ErrQueryBuilderMatchFailed, raw)
}

// traceTokens is internal/query.TraceBuilder's behavior: a transparent
// pass-through that only logs (SPEC_FULL.md C.1).
func traceTokens(tokens []string) {
	if !lemonlog.Debug() {
		return
	}
	slog.Debug("query tokens", "tokens", tokens)
}

// buildDebug is the first link: LIST, QUIT, SHOWTABLE (DebugQueryBuilder).
func buildDebug(tokens []string) (*Query, bool, error) {
	if len(tokens) == 1 {
		switch tokens[0] {
		case "LIST":
			return &Query{Kind: KindList}, true, nil
		case "QUIT":
			return &Query{Kind: KindQuit}, true, nil
		}
	}
	if len(tokens) == 2 && tokens[0] == "SHOWTABLE" {
		return &Query{Kind: KindShowTable, Table: tokens[1]}, true, nil
	}
	return nil, false, nil
}

// buildManagement is the second link: LOAD, DROP, TRUNCATE, DUMP,
// COPYTABLE, LISTEN (ManageTableQueryBuilder).
func buildManagement(tokens []string) (*Query, bool, error) {
	if len(tokens) >= 2 {
		switch tokens[0] {
		case "LISTEN":
			return &Query{Kind: KindListen, Path: extractListenFilename(tokens)}, true, nil
		case "LOAD":
			path := tokens[1]
			return &Query{Kind: KindLoad, Table: peekFileTableName(path), Path: path}, true, nil
		case "DROP":
			return &Query{Kind: KindDrop, Table: tokens[1]}, true, nil
		case "TRUNCATE":
			return &Query{Kind: KindTruncate, Table: tokens[1]}, true, nil
		}
	}
	if len(tokens) == 3 {
		switch tokens[0] {
		case "DUMP":
			return &Query{Kind: KindDump, Table: tokens[1], Path: tokens[2]}, true, nil
		case "COPYTABLE":
			return &Query{Kind: KindCopyTable, Table: tokens[1], DestTable: tokens[2]}, true, nil
		}
	}
	return nil, false, nil
}

// peekFileTableName reads just the table name off a LOAD file's header line,
// the way the original resolves LOAD's targetTable at build time
// (original_source Database::getFileTableName, called from
// QueryBuilders.cpp's ManageTableQueryBuilder). Doing this at parse time
// rather than at execution lets the driver schedule LOAD on the table it is
// about to create, so same-table submission ordering (spec.md §5) holds
// even though the table doesn't exist in the registry yet. A file that
// can't be opened yields "" here, same as the original; LOAD's own execute
// reports the real error once it runs.
func peekFileTableName(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	var name string
	if _, err := fmt.Fscan(f, &name); err != nil {
		return ""
	}
	return name
}

// extractListenFilename accepts both "LISTEN ( path )" and "LISTEN path"
// forms, matching ExtractListenFilename in the original.
func extractListenFilename(tokens []string) string {
	if len(tokens) >= 3 && tokens[1] == "(" {
		return tokens[2]
	}
	if len(tokens) >= 2 {
		return tokens[1]
	}
	return ""
}

var complexOperators = map[string]Kind{
	"INSERT":    KindInsert,
	"UPDATE":    KindUpdate,
	"SELECT":    KindSelect,
	"DELETE":    KindDelete,
	"DUPLICATE": KindDuplicate,
	"COUNT":     KindCount,
	"SUM":       KindSum,
	"MIN":       KindMin,
	"MAX":       KindMax,
	"ADD":       KindAdd,
	"SUB":       KindSub,
	"SWAP":      KindSwap,
}

// buildComplex is the third link: INSERT .. SWAP, in the
// "$OPER$ [(args)] FROM table [WHERE conds]" grammar (ComplexQueryBuilder).
// An unrecognized leading keyword delegates to the terminal "no match"
// outcome; a recognized operator whose clause is malformed anywhere fails
// with IllFormedQuery (e.g. a missing FROM, or a broken WHERE on
// "INSERT ( .. ) FROM T").
func buildComplex(tokens []string) (*Query, bool, error) {
	if len(tokens) == 0 {
		return nil, false, nil
	}
	kind, known := complexOperators[tokens[0]]
	if !known {
		return nil, false, nil
	}

	operands, table, conds, err := parseComplexTail(tokens)
	if err != nil {
		// A malformed complex-operator clause is a genuine grammar error,
		// not a "try the next link" case: every other link only matches
		// non-complex-operator keywords, so delegating further would only
		// ever reach QueryBuilderMatchFailed with a less specific message.
		return nil, true, err
	}
	return &Query{Kind: kind, Table: table, Operands: operands, Conditions: conds}, true, nil
}

// parseComplexTail implements ComplexQueryBuilder::parseToken: operands,
// FROM table, and an optional WHERE clause of parenthesized triples.
func parseComplexTail(tokens []string) (operands []string, table string, conds []condition.Triple, err error) {
	i := 1
	if i >= len(tokens) {
		return nil, "", nil, fmt.Errorf("%w: missing operands or FROM clause", dberrors.ErrIllFormedQuery)
	}

	if tokens[i] != "FROM" {
		if tokens[i] != "(" {
			return nil, "", nil, fmt.Errorf("%w: ill-formed operand", dberrors.ErrIllFormedQuery)
		}
		i++
		for i < len(tokens) && tokens[i] != ")" {
			operands = append(operands, tokens[i])
			i++
		}
		if i >= len(tokens) {
			return nil, "", nil, fmt.Errorf("%w: ill-formed operand", dberrors.ErrIllFormedQuery)
		}
		i++ // consume ")"
		if i >= len(tokens) || tokens[i] != "FROM" {
			return nil, "", nil, fmt.Errorf("%w: missing FROM clause", dberrors.ErrIllFormedQuery)
		}
	}

	i++ // consume "FROM"
	if i >= len(tokens) {
		return nil, "", nil, fmt.Errorf("%w: missing target table", dberrors.ErrIllFormedQuery)
	}
	table = tokens[i]
	i++
	if i >= len(tokens) {
		return operands, table, nil, nil
	}
	if tokens[i] != "WHERE" {
		return nil, "", nil, fmt.Errorf("%w: expecting WHERE, found %q", dberrors.ErrIllFormedQuery, tokens[i])
	}
	i++

	for i < len(tokens) {
		if tokens[i] != "(" {
			return nil, "", nil, fmt.Errorf("%w: ill-formed query condition", dberrors.ErrIllFormedQuery)
		}
		i++
		if i >= len(tokens) {
			return nil, "", nil, fmt.Errorf("%w: missing field in condition", dberrors.ErrIllFormedQuery)
		}
		field := tokens[i]
		i++
		if i >= len(tokens) {
			return nil, "", nil, fmt.Errorf("%w: missing operator in condition", dberrors.ErrIllFormedQuery)
		}
		op := tokens[i]
		i++
		if i >= len(tokens) {
			return nil, "", nil, fmt.Errorf("%w: missing value in condition", dberrors.ErrIllFormedQuery)
		}
		value := tokens[i]
		i++
		if i >= len(tokens) || tokens[i] != ")" {
			return nil, "", nil, fmt.Errorf("%w: ill-formed query condition", dberrors.ErrIllFormedQuery)
		}
		i++
		conds = append(conds, condition.Triple{Field: field, Op: condition.Op(op), Literal: value})
	}
	return operands, table, conds, nil
}
