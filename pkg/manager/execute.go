package manager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Kind is the result shape of a statement.
type Kind int

// Statement kinds.
const (
	// KindExec statements define or mutate data and return no rows.
	KindExec Kind = iota
	// KindQuery statements retrieve data or catalog information.
	KindQuery
)

func (k Kind) String() string {
	if k == KindQuery {
		return "query"
	}
	return "exec"
}

// Field is one named value in a Row.
type Field struct {
	Name  string
	Value any
}

// Row is one record in the store's native column order.
type Row []Field

// Get returns the value of the first field named name.
func (r Row) Get(name string) (any, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Names returns the column names in order.
func (r Row) Names() []string {
	names := make([]string, len(r))
	for i, f := range r {
		names[i] = f.Name
	}
	return names
}

// Values returns the values in column order.
func (r Row) Values() []any {
	values := make([]any, len(r))
	for i, f := range r {
		values[i] = f.Value
	}
	return values
}

// Map returns the row keyed by column name. Later duplicates win.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r))
	for _, f := range r {
		m[f.Name] = f.Value
	}
	return m
}

// Result is the outcome of a successful Execute.
type Result struct {
	Statement string
	Kind      Kind
	// Columns and Rows are set for KindQuery.
	Columns []string
	Rows    []Row
	// RowsAffected and LastInsertID are set for KindExec.
	RowsAffected int64
	LastInsertID int64
}

// Execute runs one statement with args bound positionally to its
// placeholders. Query statements return their full result set; other
// statements run in autocommit mode and return no rows. Engine failures are
// returned as *StoreError.
func (h *Handle) Execute(ctx context.Context, statement string, args ...any) (*Result, error) {
	if err := h.requireConnected("execute"); err != nil {
		return nil, err
	}
	if stripLeadingComments(statement) == "" {
		return nil, &StoreError{Statement: statement, Err: errors.New("empty statement")}
	}

	kind := ClassifyStatement(statement)
	h.logger.Debug("executing statement", "kind", kind, "params", len(args))

	result := &Result{Statement: statement, Kind: kind}
	if kind == KindQuery {
		rows, err := h.conn.QueryContext(ctx, statement, args...)
		if err != nil {
			return nil, &StoreError{Statement: statement, Err: err}
		}
		defer func() { _ = rows.Close() }()

		cols, out, err := collectRows(rows)
		if err != nil {
			return nil, &StoreError{Statement: statement, Err: err}
		}
		result.Columns = cols
		result.Rows = out
		return result, nil
	}

	res, err := h.conn.ExecContext(ctx, statement, args...)
	if err != nil {
		return nil, &StoreError{Statement: statement, Err: err}
	}
	// Drivers that cannot report these leave them at zero.
	result.RowsAffected, _ = res.RowsAffected()
	result.LastInsertID, _ = res.LastInsertId()
	return result, nil
}

func collectRows(rows *sql.Rows) ([]string, []Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read columns: %w", err)
	}

	out := make([]Row, 0)
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			row[i] = Field{Name: col, Value: values[i]}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return cols, out, nil
}
