package providers

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/zclconf/go-cty/cty"
	_ "modernc.org/sqlite"

	"github.com/tusklang/tusk-go/internal/ctyutil"
	"github.com/tusklang/tusk-go/internal/registry"
)

// SQLQuerier is the default Query Executor, backed by database/sql. The
// bundled driver is the pure-Go sqlite build; any registered driver works.
type SQLQuerier struct {
	db *sql.DB
}

// NewSQLQuerier opens a database handle for the given driver and DSN.
func NewSQLQuerier(driver, dsn string) (*SQLQuerier, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return &SQLQuerier{db: db}, nil
}

// Close releases the handle.
func (q *SQLQuerier) Close() error {
	return q.db.Close()
}

// Execute implements registry.QueryExecutor. Result shaping follows the
// query: a single row with a single column collapses to a scalar, a single
// column collapses to a list, anything else is a list of row objects.
func (q *SQLQuerier) Execute(ctx context.Context, query string, params []cty.Value) (cty.Value, error) {
	args := make([]any, len(params))
	for i, p := range params {
		args[i] = ctyutil.ToGo(p)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return cty.NilVal, registry.MapTimeout(fmt.Errorf("query failed: %w", err))
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return cty.NilVal, err
	}

	var records []map[string]any
	for rows.Next() {
		cells := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return cty.NilVal, err
		}
		rec := make(map[string]any, len(cols))
		for i, col := range cols {
			rec[col] = cells[i]
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return cty.NilVal, registry.MapTimeout(err)
	}

	if len(cols) == 1 {
		if len(records) == 1 {
			return ctyutil.FromGo(records[0][cols[0]]), nil
		}
		vals := make([]any, len(records))
		for i, rec := range records {
			vals[i] = rec[cols[0]]
		}
		return ctyutil.FromGo(vals), nil
	}
	out := make([]any, len(records))
	for i, rec := range records {
		out[i] = rec
	}
	return ctyutil.FromGo(out), nil
}
