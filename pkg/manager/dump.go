package manager

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const schemaObjectsQuery = `SELECT type, name, tbl_name, sql FROM sqlite_master
WHERE sql IS NOT NULL ORDER BY rowid`

const insertableColumnsQuery = `SELECT name FROM pragma_table_xinfo(?)
WHERE hidden = 0 ORDER BY cid`

type schemaObject struct {
	Type  string
	Name  string
	Table string
	SQL   string
}

func (o schemaObject) virtual() bool {
	return strings.HasPrefix(strings.ToUpper(FlattenSQL(o.SQL)), "CREATE VIRTUAL TABLE")
}

// Dump writes a script that rebuilds the store: CREATE TABLE statements in
// creation order, then one INSERT per row, then the AUTOINCREMENT counters,
// then indexes, triggers and views. Each statement is on its own line.
func (h *Handle) Dump(ctx context.Context, w io.Writer) error {
	if err := h.requireConnected("dump"); err != nil {
		return err
	}

	objects, err := h.schemaObjects(ctx)
	if err != nil {
		return err
	}

	var tables, trailing []schemaObject
	hasSequence := false
	for _, obj := range objects {
		switch {
		case obj.Type == "table" && obj.Name == "sqlite_sequence":
			hasSequence = true
		case obj.Type == "table" && strings.HasPrefix(strings.ToLower(obj.Name), "sqlite_"):
			// sqlite_stat* and other internal tables are rebuilt by the engine.
		case obj.Type == "table":
			tables = append(tables, obj)
		default:
			trailing = append(trailing, obj)
		}
	}

	bw := bufio.NewWriter(w)
	for _, t := range tables {
		if err := writeStatement(bw, schemaStatement(t.SQL)); err != nil {
			return err
		}
	}
	for _, t := range tables {
		if t.virtual() {
			continue
		}
		if err := h.dumpRows(ctx, bw, t.Name); err != nil {
			return err
		}
	}
	if hasSequence {
		if err := writeStatement(bw, `DELETE FROM "sqlite_sequence"`); err != nil {
			return err
		}
		if err := h.dumpRows(ctx, bw, "sqlite_sequence"); err != nil {
			return err
		}
	}
	for _, obj := range trailing {
		if err := writeStatement(bw, schemaStatement(obj.SQL)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeStatement(w *bufio.Writer, stmt string) error {
	if _, err := w.WriteString(stmt + ";\n"); err != nil {
		return fmt.Errorf("failed to write dump: %w", err)
	}
	return nil
}

func (h *Handle) schemaObjects(ctx context.Context) ([]schemaObject, error) {
	res, err := h.Execute(ctx, schemaObjectsQuery)
	if err != nil {
		return nil, err
	}
	objects := make([]schemaObject, 0, len(res.Rows))
	for _, row := range res.Rows {
		vals := row.Values()
		objects = append(objects, schemaObject{
			Type:  asString(vals[0]),
			Name:  asString(vals[1]),
			Table: asString(vals[2]),
			SQL:   asString(vals[3]),
		})
	}
	return objects, nil
}

// dumpRows streams one INSERT per row of table. Values are rendered by the
// engine's quote() so every storage class round-trips exactly.
func (h *Handle) dumpRows(ctx context.Context, w *bufio.Writer, table string) error {
	res, err := h.Execute(ctx, insertableColumnsQuery, table)
	if err != nil {
		return err
	}
	if len(res.Rows) == 0 {
		return nil
	}

	cols := make([]string, len(res.Rows))
	exprs := make([]string, len(res.Rows))
	for i, row := range res.Rows {
		v, _ := row.Get("name")
		cols[i] = QuoteIdentifier(asString(v))
		exprs[i] = "quote(" + cols[i] + ")"
	}

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(exprs, ", "), QuoteIdentifier(table))
	rows, err := h.conn.QueryContext(ctx, query)
	if err != nil {
		return &StoreError{Statement: query, Err: err}
	}
	defer func() { _ = rows.Close() }()

	prefix := fmt.Sprintf("INSERT INTO %s(%s) VALUES(", QuoteIdentifier(table), strings.Join(cols, ","))
	literals := make([]sql.NullString, len(cols))
	ptrs := make([]any, len(cols))
	for i := range literals {
		ptrs[i] = &literals[i]
	}
	parts := make([]string, len(cols))

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return &StoreError{Statement: query, Err: err}
		}
		for i, lit := range literals {
			if !lit.Valid {
				parts[i] = "NULL"
				continue
			}
			parts[i] = singleLineLiteral(lit.String)
		}
		if err := writeStatement(w, prefix+strings.Join(parts, ",")+")"); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return &StoreError{Statement: query, Err: err}
	}
	return nil
}

// schemaStatement flattens catalog SQL to one line. A string literal that
// spans lines becomes a parenthesized char() concatenation, which SQLite
// accepts wherever a literal may appear in DDL, including DEFAULT.
func schemaStatement(sql string) string {
	return flattenTokens(sql, func(tok string) string {
		if lit := singleLineLiteral(tok); lit != tok {
			return "(" + lit + ")"
		}
		return tok
	})
}

// singleLineLiteral rewrites line breaks inside a quoted text literal as
// char() concatenations so the literal fits on one line.
func singleLineLiteral(lit string) string {
	if !strings.HasPrefix(lit, "'") || !strings.ContainsAny(lit, "\r\n") {
		return lit
	}
	r := strings.NewReplacer("\r", "'||char(13)||'", "\n", "'||char(10)||'")
	return r.Replace(lit)
}

// Export writes Dump output to destination. The file is written beside the
// destination under a temporary name and renamed into place, so a failed
// export never leaves a truncated file behind.
func (h *Handle) Export(ctx context.Context, destination string) (err error) {
	if err := h.requireConnected("export"); err != nil {
		return err
	}

	dir := filepath.Dir(destination)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return &PathError{Op: "create directory", Path: dir, Err: err}
	}

	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(destination), uuid.NewString()))
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return &PathError{Op: "create", Path: tmp, Err: err}
	}
	closed := false
	defer func() {
		if err == nil {
			return
		}
		if !closed {
			_ = f.Close()
		}
		_ = os.Remove(tmp)
	}()

	if err := h.Dump(ctx, f); err != nil {
		return err
	}
	closed = true
	if err := f.Close(); err != nil {
		return &PathError{Op: "write", Path: tmp, Err: err}
	}
	if err := os.Rename(tmp, destination); err != nil {
		return &PathError{Op: "rename", Path: destination, Err: err}
	}

	h.logger.Info("database exported", "path", h.path, "destination", destination)
	return nil
}

// Import reads source and applies it as one atomic unit, with no
// per-statement fallback. On failure the *ScriptError names source and the
// store is left as the engine's rollback left it.
func (h *Handle) Import(ctx context.Context, source string) error {
	if err := h.requireConnected("import"); err != nil {
		return err
	}

	content, err := os.ReadFile(source)
	if err != nil {
		return &PathError{Op: "read import", Path: source, Err: err}
	}

	script := string(content)
	plan := planScript(script)
	if plan.executable() == 0 {
		return nil
	}
	if err := h.applyAtomic(ctx, script, plan); err != nil {
		var storeErr *StoreError
		if errors.As(err, &storeErr) {
			return &ScriptError{Source: source, Statement: storeErr.Statement, Err: storeErr.Err}
		}
		return &ScriptError{Source: source, Err: err}
	}

	h.logger.Info("database imported", "path", h.path, "source", source, "statements", plan.executable())
	return nil
}
