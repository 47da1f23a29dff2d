package query

import (
	"os"

	"github.com/k0kubun/pp/v3"

	"github.com/lemondb/lemondb/internal/table"
	"github.com/lemondb/lemondb/internal/workerpool"
)

// debugPrinter renders to stderr, matching the teacher's own use of pp
// for structured debug dumps (SPEC_FULL.md B) rather than fmt.Printf.
var debugPrinter = pp.New()

func init() {
	debugPrinter.SetOutput(os.Stderr)
}

// registryOverview is LIST's debug dump payload: every live table name
// plus the shared worker pool's occupancy (SPEC_FULL.md C.7, ported from
// ThreadPool::getIdleThreadNum/getThreadCount).
type registryOverview struct {
	Tables    []string
	PoolStats workerpool.Stats
}

func execList(ctx *ExecContext, q *Query) Result {
	const op = "LIST"
	overview := registryOverview{Tables: ctx.Registry.Names()}
	if ctx.Pool != nil {
		overview.PoolStats = ctx.Pool.Stats()
	}
	debugPrinter.Println(overview)
	return AckResult(op)
}

// tableOverview is SHOWTABLE's debug dump payload: the full row set of
// one table, replacing PrintTableQuery's std::cout dump.
type tableOverview struct {
	Name   string
	Fields []string
	Rows   [][]string
}

func execShowTable(ctx *ExecContext, q *Query) Result {
	const op = "SHOWTABLE"
	tbl, err := ctx.Registry.Borrow(q.Table)
	if err != nil {
		return ErrorInTableResult(op, q.Table, err)
	}
	release := ctx.Locks.AcquireRead(q.Table)
	defer release()

	overview := tableOverview{Name: tbl.Name(), Fields: tbl.Fields()}
	tbl.Each(func(_ int, row *table.Row) {
		line := make([]string, 1+len(row.Cells))
		line[0] = row.Key
		for i, v := range row.Cells {
			line[i+1] = v.String()
		}
		overview.Rows = append(overview.Rows, line)
	})
	debugPrinter.Println(overview)
	return AckResult(op)
}
