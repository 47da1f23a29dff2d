package query

import (
	"fmt"
	"strings"

	"github.com/lemondb/lemondb/internal/condition"
	"github.com/lemondb/lemondb/internal/dbvalue"
	"github.com/lemondb/lemondb/util"
)

// Kind tags the operator a Query represents. A single tagged struct
// replaces the original's virtual Query/ComplexQuery/ManagementQuery
// hierarchy (spec.md §9).
type Kind int

const (
	KindInsert Kind = iota
	KindUpdate
	KindDelete
	KindSelect
	KindCount
	KindSum
	KindMin
	KindMax
	KindAdd
	KindSub
	KindSwap
	KindDuplicate
	KindCopyTable
	KindTruncate
	KindDrop
	KindLoad
	KindDump
	KindList
	KindShowTable
	KindListen
	KindQuit
	KindWait // internal, synthesized for COPYTABLE (spec.md §4.8)
)

// String names a Kind the way it appears in the query text, used for
// error/success message rendering ("qname" in the original).
func (k Kind) String() string {
	switch k {
	case KindInsert:
		return "INSERT"
	case KindUpdate:
		return "UPDATE"
	case KindDelete:
		return "DELETE"
	case KindSelect:
		return "SELECT"
	case KindCount:
		return "COUNT"
	case KindSum:
		return "SUM"
	case KindMin:
		return "MIN"
	case KindMax:
		return "MAX"
	case KindAdd:
		return "ADD"
	case KindSub:
		return "SUB"
	case KindSwap:
		return "SWAP"
	case KindDuplicate:
		return "DUPLICATE"
	case KindCopyTable:
		return "COPYTABLE"
	case KindTruncate:
		return "TRUNCATE"
	case KindDrop:
		return "DROP"
	case KindLoad:
		return "LOAD"
	case KindDump:
		return "DUMP"
	case KindList:
		return "LIST"
	case KindShowTable:
		return "SHOWTABLE"
	case KindListen:
		return "LISTEN"
	case KindQuit:
		return "QUIT"
	case KindWait:
		return "WAIT"
	}
	return "UNKNOWN"
}

// Query is one parsed query: the operator kind, its target table, raw
// operand tokens, and a WHERE clause expressed as condition.Triples ready
// for condition.Compile against the resolved table.
type Query struct {
	Kind Kind

	// Table is the query's target table (targetTableRef in the original),
	// used by the query manager to pick the table's worker queue (spec.md
	// §4.8). Empty for LISTEN and QUIT; for LOAD it is resolved from the
	// file's own header at parse time (peekFileTableName) rather than left
	// empty, so LOAD queues behind/ahead of other queries against the table
	// it is about to create instead of racing them on an unrelated queue.
	Table string

	// Operands holds the operator's argument list in source order: the
	// INSERT key+values, the UPDATE field+literal pair, the field-name list
	// for SELECT/SUM/MIN/MAX/ADD/SUB/SWAP, and so on.
	Operands []string

	// Conditions is the WHERE clause, empty for operators that don't accept
	// one (management operators, ADD/SUB/SWAP/UPDATE's own clause aside).
	Conditions []condition.Triple

	// Path is the external file argument for LOAD/DUMP/LISTEN.
	Path string

	// DestTable is COPYTABLE's destination table name; Table holds the
	// source.
	DestTable string

	// sem is the WAIT query's counting semaphore, synthesized internally
	// by the query manager rather than parsed from text.
	sem *waitSemaphore
}

// ResultKind tags the shape of a rendered query outcome (spec.md §4.4,
// §6.4), replacing the original's QueryResult class hierarchy with one
// tagged struct (spec.md §9).
type ResultKind int

const (
	ResNull ResultKind = iota
	ResRecordCount
	ResSuccessMsg
	ResTextRows
	ResErrorMsg
	ResListen
)

// Result is the outcome of executing one Query, ready for
// internal/output to place under its query id and, on success, for
// Render to produce the text printed to stdout. Message shapes mirror
// original_source/src/query/QueryResult.h's buildMessage forms exactly
// (SPEC_FULL.md C.2, C.3), replacing its QueryResult class hierarchy with
// one tagged struct (spec.md §9).
type Result struct {
	Kind ResultKind

	// RecordCount: "Affected N rows." (ResRecordCount).
	RecordCount int

	// Scalar/vector answer (ResSuccessMsg): COUNT uses Scalar, SUM/MIN/MAX
	// use Vector (VectorSet distinguishes an explicit empty vector from
	// "no vector at all"). Detail carries the acknowledgement form's
	// trailing message, if any; LOAD is the only operator that sets it.
	HasScalar bool
	Scalar    dbvalue.Value
	VectorSet bool
	Vector    []dbvalue.Value
	Detail    string

	// Rows holds pre-rendered "( key v1 v2 … )" lines (ResTextRows).
	Rows []string

	// ListenPath names the script LISTEN began reading (ResListen).
	ListenPath string

	// Op/Table/Err describe a failure (ResErrorMsg) or the
	// operator-name-acknowledgement success form; Table empty means the
	// table was never resolved (the original's two-arity ErrorMsgResult).
	Op      string
	Table   string
	HasTable bool
	Err     error

	// Scheduled is the number of queries LISTEN scheduled, consulted by
	// the query manager's waitForCompletion accounting (ResListen).
	Scheduled int
}

// IsFailure reports whether this result represents a failed query.
func (r Result) IsFailure() bool { return r.Kind == ResErrorMsg }

// Display reports whether a successful result's rendered text belongs on
// stdout. Grounded on original_source/src/query/QueryResult.h's display()
// overrides: RecordCountResult, TextRowsResult, and ListenResult always
// display; SuccessMsgResult's debug_ flag defaults true only for its
// scalar/vector constructors (COUNT, SUM/MIN/MAX) and false for every
// qname-only or qname+detail constructor (INSERT, DROP, LOAD, DUMP, ...),
// and NullQueryResult never displays. The latter two cases are suppressed
// here rather than routed to stderr, matching OutputPool's "empty
// result_string prints only the id line" behavior.
func (r Result) Display() bool {
	switch r.Kind {
	case ResRecordCount, ResTextRows, ResListen:
		return true
	case ResSuccessMsg:
		return r.HasScalar || r.VectorSet
	}
	return false
}

// Render produces the success-path text printed to stdout for this
// result's id (spec.md §6.4). Failures are rendered separately by
// RenderFailure, since they are routed to stderr with a different
// wrapper and ordering relative to stdout.
func (r Result) Render() string {
	switch r.Kind {
	case ResNull:
		return ""
	case ResRecordCount:
		return fmt.Sprintf("Affected %d rows.\n", r.RecordCount)
	case ResSuccessMsg:
		return r.successMessage() + "\n"
	case ResTextRows:
		var b strings.Builder
		for _, row := range r.Rows {
			b.WriteString(row)
			b.WriteByte('\n')
		}
		return b.String()
	case ResListen:
		return fmt.Sprintf("ANSWER = ( listening from %s )\n", r.ListenPath)
	}
	return ""
}

func (r Result) successMessage() string {
	switch {
	case r.HasScalar:
		return fmt.Sprintf("ANSWER = %q.", r.Scalar.String())
	case r.VectorSet:
		return fmt.Sprintf("ANSWER = ( %s)", joinValuesTrailingSpace(r.Vector))
	case r.HasTable && r.Detail != "":
		return fmt.Sprintf("Query %q success in Table %q : %s", r.Op, r.Table, r.Detail)
	case r.Detail != "":
		return fmt.Sprintf("Query %q success : %s", r.Op, r.Detail)
	default:
		return fmt.Sprintf("Query %q success.", r.Op)
	}
}

// RenderFailure produces the "QUERY FAILED:" stderr block for a failed
// result (spec.md §6.4, §7).
func (r Result) RenderFailure() string {
	return fmt.Sprintf("QUERY FAILED:\n\t%s\n", r.failureMessage())
}

func (r Result) failureMessage() string {
	if !r.HasTable {
		return fmt.Sprintf("Query %q failed : %s", r.Op, r.Err)
	}
	return fmt.Sprintf("Query %q failed in Table %q : %s", r.Op, r.Table, r.Err)
}

// joinValuesTrailingSpace matches buildMessage(vector<int>)'s
// "ANSWER = ( v1 v2 )" construction: each value is followed by a space,
// including the last, before the closing paren.
func joinValuesTrailingSpace(vs []dbvalue.Value) string {
	rendered := util.TransformSlice(vs, func(v dbvalue.Value) string { return v.String() })
	var b strings.Builder
	for _, s := range rendered {
		b.WriteString(s)
		b.WriteByte(' ')
	}
	return b.String()
}

// NullResult is the silent-success outcome (spec.md §4.4).
func NullResult() Result { return Result{Kind: ResNull} }

// RecordCountResult reports how many rows an operator affected.
func RecordCountResult(n int) Result {
	return Result{Kind: ResRecordCount, RecordCount: n}
}

// ScalarResult is COUNT's `ANSWER = "N".` form.
func ScalarResult(n dbvalue.Value) Result {
	return Result{Kind: ResSuccessMsg, HasScalar: true, Scalar: n}
}

// VectorResult is SUM/MIN/MAX's `ANSWER = ( v1 v2 … )` form.
func VectorResult(vs []dbvalue.Value) Result {
	return Result{Kind: ResSuccessMsg, VectorSet: true, Vector: vs}
}

// AckResult is the plain operator-name acknowledgement form,
// `Query "op" success.`, used by INSERT, DROP, DUMP, LIST and SHOWTABLE.
// TRUNCATE and COPYTABLE succeed with NullResult instead.
func AckResult(op string) Result {
	return Result{Kind: ResSuccessMsg, Op: op}
}

// AckDetailResult is the qualified acknowledgement form carrying an
// extra message, used by LOAD (`Query "op" success : detail`).
func AckDetailResult(op, detail string) Result {
	return Result{Kind: ResSuccessMsg, Op: op, Detail: detail}
}

// TextRowsResult is SELECT's rendered row set.
func TextRowsResult(rows []string) Result {
	return Result{Kind: ResTextRows, Rows: rows}
}

// ListenResult reports the script LISTEN began reading.
func ListenResult(path string, scheduled int) Result {
	return Result{Kind: ResListen, ListenPath: path, Scheduled: scheduled}
}

// ErrorResult is the two-arity failure form, `Query "op" failed : err`,
// used when the failure happens before the target table is resolved.
func ErrorResult(op string, err error) Result {
	return Result{Kind: ResErrorMsg, Op: op, Err: err}
}

// ErrorInTableResult is the three-arity failure form,
// `Query "op" failed in Table "table" : err`.
func ErrorInTableResult(op, table string, err error) Result {
	return Result{Kind: ResErrorMsg, Op: op, Table: table, HasTable: true, Err: err}
}

// waitSemaphore is the counting semaphore a synthesized WAIT query blocks
// on until COPYTABLE releases it (spec.md §4.8); defined here (rather
// than in querymanager) so Query can hold a reference without an import
// cycle.
type waitSemaphore struct {
	release chan struct{}
}

func newWaitSemaphore() *waitSemaphore {
	return &waitSemaphore{release: make(chan struct{})}
}

func (s *waitSemaphore) Wait() { <-s.release }

func (s *waitSemaphore) Release() {
	select {
	case <-s.release:
		// already released
	default:
		close(s.release)
	}
}

// NewWait builds the internal WAIT query that blocks table until its
// semaphore is released, synthesized when a COPYTABLE is accepted
// (spec.md §4.8). Use AttachWaitSemaphore to pair it with the COPYTABLE
// that releases it.
func NewWait(table string) *Query {
	return &Query{Kind: KindWait, Table: table}
}

// Semaphore exposes the synthesized WAIT's semaphore to the COPYTABLE
// side so it can release it on every exit path.
func (q *Query) Semaphore() *waitSemaphore { return q.sem }

// AttachWaitSemaphore allocates the semaphore shared between a COPYTABLE
// and its synthesized WAIT sibling, and attaches it to both.
func AttachWaitSemaphore(copyTable, wait *Query) {
	sem := newWaitSemaphore()
	copyTable.sem = sem
	wait.sem = sem
}
