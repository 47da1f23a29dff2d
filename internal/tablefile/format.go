// Package tablefile implements the LemonDB table file format (spec.md §6.3):
// a tab/whitespace-delimited header plus one row per line, terminated by a
// blank line or EOF. It is the load/dump codec used by the LOAD and DUMP
// query operators.
//
// The package is grounded on the teacher's file-backed pseudo adapter
// (sqldef's adapter/file and database/file packages, which stand in for a
// real database by reading/writing a flat file) generalized from "a file
// holds one dialect's DDL text" to "a file holds one table's header + rows".
package tablefile

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lemondb/lemondb/internal/dberrors"
	"github.com/lemondb/lemondb/internal/dbvalue"
	"github.com/lemondb/lemondb/internal/table"
)

const dumpColumnWidth = 10

// Decode parses one table from r in the §6.3 format: a header line
// `<name>\t<fieldCount>`, a field line starting with KEY, then one row per
// line until a blank line or EOF. fieldCount includes the leading KEY column.
func Decode(r io.Reader) (*table.Table, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		return nil, fmt.Errorf("%w: missing header line", dberrors.ErrMalformedTableFile)
	}
	name, fieldCount, err := parseHeader(scanner.Text())
	if err != nil {
		return nil, err
	}

	if !scanner.Scan() {
		return nil, fmt.Errorf("%w: missing field line", dberrors.ErrMalformedTableFile)
	}
	fields, err := parseFieldLine(scanner.Text(), fieldCount)
	if err != nil {
		return nil, err
	}

	tbl, err := table.New(name, fields)
	if err != nil {
		return nil, err
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			break
		}
		key, values, err := parseRowLine(line, fieldCount-1)
		if err != nil {
			return nil, err
		}
		if err := tbl.Insert(key, values); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", dberrors.ErrMalformedTableFile, err)
	}

	return tbl, nil
}

func parseHeader(line string) (name string, fieldCount int, err error) {
	parts := strings.Fields(line)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("%w: header must be \"name\\tfieldCount\", got %q", dberrors.ErrMalformedTableFile, line)
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil || n < 1 {
		return "", 0, fmt.Errorf("%w: bad field count in header %q", dberrors.ErrMalformedTableFile, line)
	}
	return parts[0], n, nil
}

func parseFieldLine(line string, fieldCount int) ([]string, error) {
	parts := strings.Fields(line)
	if len(parts) != fieldCount {
		return nil, fmt.Errorf("%w: field line has %d names, header declared %d", dberrors.ErrMalformedTableFile, len(parts), fieldCount)
	}
	if parts[0] != table.ReservedKeyField {
		return nil, fmt.Errorf("%w: field line must start with KEY, got %q", dberrors.ErrMalformedTableFile, parts[0])
	}
	return parts[1:], nil
}

func parseRowLine(line string, arity int) (string, []dbvalue.Value, error) {
	parts := strings.Fields(line)
	if len(parts) != arity+1 {
		return "", nil, fmt.Errorf("%w: row %q has %d fields, want %d", dberrors.ErrMalformedTableFile, line, len(parts)-1, arity)
	}
	values := make([]dbvalue.Value, arity)
	for i, p := range parts[1:] {
		v, err := dbvalue.ParseLiteral(p)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", dberrors.ErrMalformedTableFile, err)
		}
		values[i] = v
	}
	return parts[0], values, nil
}

// Encode writes tbl to w in the §6.3 format, every column — KEY, the field
// header, and each row's key and cells — right-aligned in a fixed-width
// 10-character field, matching the original's `operator<<` (Table.cpp),
// which applies `std::setw(10)` to each one in turn. Row order in the
// output is the table's internal storage order; LOAD(DUMP(T)) == T
// "modulo row ordering" per spec.md §6.3.
func Encode(w io.Writer, tbl *table.Table) error {
	bw := bufio.NewWriter(w)

	if _, err := fmt.Fprintf(bw, "%s\t%d\n", tbl.Name(), tbl.Arity()+1); err != nil {
		return err
	}

	header := padLeft(table.ReservedKeyField, dumpColumnWidth)
	for _, f := range tbl.Fields() {
		header += padLeft(f, dumpColumnWidth)
	}
	if _, err := fmt.Fprintln(bw, header); err != nil {
		return err
	}

	var rowErr error
	tbl.Each(func(_ int, row *table.Row) {
		if rowErr != nil {
			return
		}
		line := padLeft(row.Key, dumpColumnWidth)
		for _, cell := range row.Cells {
			line += padLeft(cell.String(), dumpColumnWidth)
		}
		if _, err := fmt.Fprintln(bw, line); err != nil {
			rowErr = err
		}
	})
	if rowErr != nil {
		return rowErr
	}

	return bw.Flush()
}

// padLeft right-aligns s in a field of the given width, matching
// std::setw(width)'s default right-justification; a string at or past the
// width is left unpadded, as setw leaves overlong fields.
func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}
