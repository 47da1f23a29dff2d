// Package query implements the LemonDB query language: tokenizing,
// building, representing, and executing one query (spec.md §4.4, §4.5,
// §6.2). Grounded on original_source/src/query/QueryParser.{h,cpp} and
// QueryBuilders.{h,cpp}'s tokenize-then-chain-of-responsibility design,
// but replacing the virtual Query hierarchy with one tagged struct and a
// free execute function (spec.md §9 "Polymorphic query hierarchy").
package query

import "strings"

// Tokenize splits one query's raw text (everything up to, but not
// including, its terminating ';') into a flat token sequence. Unlike the
// original's naive stringstream whitespace split, '(' and ')' are always
// separated into standalone tokens even when glued to an adjacent token
// (spec.md §4.5), so "(KEY" tokenizes as "(" "KEY".
func Tokenize(raw string) []string {
	var tokens []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for _, r := range raw {
		switch {
		case r == '(' || r == ')':
			flush()
			tokens = append(tokens, string(r))
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}
