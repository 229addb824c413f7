package manager

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ColumnDescriptor describes one column of a table.
type ColumnDescriptor struct {
	Position int    `json:"position" yaml:"position"`
	Name     string `json:"name" yaml:"name"`
	Type     string `json:"type" yaml:"type"`
	NotNull  bool   `json:"not_null" yaml:"not_null"`
	// Default is the declared default expression. It is only meaningful
	// when HasDefault is true; a DEFAULT 0 or DEFAULT '' column has
	// HasDefault set.
	Default    string `json:"default,omitempty" yaml:"default,omitempty"`
	HasDefault bool   `json:"has_default" yaml:"has_default"`
	PrimaryKey bool   `json:"primary_key" yaml:"primary_key"`
	// PrimaryKeyIndex is the 1-based position within a composite key.
	PrimaryKeyIndex int `json:"primary_key_index,omitempty" yaml:"primary_key_index,omitempty"`
}

// TableInfo summarizes one table.
type TableInfo struct {
	Name     string             `json:"name" yaml:"name"`
	Columns  []ColumnDescriptor `json:"columns" yaml:"columns"`
	RowCount int64              `json:"row_count" yaml:"row_count"`
}

// DatabaseInfo summarizes the whole store.
type DatabaseInfo struct {
	Path   string      `json:"path" yaml:"path"`
	Tables []TableInfo `json:"tables" yaml:"tables"`
}

const listTablesQuery = `SELECT name FROM sqlite_master
WHERE type = 'table' AND name NOT LIKE 'sqlite\_%' ESCAPE '\'
ORDER BY name`

const tableInfoQuery = `SELECT cid, name, type, "notnull", dflt_value, pk
FROM pragma_table_info(?) ORDER BY cid`

// ListTables returns the names of all user tables in ascending order.
func (h *Handle) ListTables(ctx context.Context) ([]string, error) {
	res, err := h.Execute(ctx, listTablesQuery)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		v, _ := row.Get("name")
		names = append(names, asString(v))
	}
	sort.Strings(names)
	return names, nil
}

// TableSchema returns the columns of table in ordinal order. A table that
// does not exist yields an empty slice, not an error.
func (h *Handle) TableSchema(ctx context.Context, table string) ([]ColumnDescriptor, error) {
	res, err := h.Execute(ctx, tableInfoQuery, table)
	if err != nil {
		return nil, err
	}

	cols := make([]ColumnDescriptor, 0, len(res.Rows))
	for _, row := range res.Rows {
		vals := row.Values()
		pk := asInt64(vals[5])
		col := ColumnDescriptor{
			Position:        int(asInt64(vals[0])),
			Name:            asString(vals[1]),
			Type:            asString(vals[2]),
			NotNull:         asInt64(vals[3]) != 0,
			PrimaryKey:      pk > 0,
			PrimaryKeyIndex: int(pk),
		}
		if vals[4] != nil {
			col.HasDefault = true
			col.Default = asString(vals[4])
		}
		cols = append(cols, col)
	}
	return cols, nil
}

// RowCount returns the number of rows in table.
func (h *Handle) RowCount(ctx context.Context, table string) (int64, error) {
	res, err := h.Execute(ctx, "SELECT COUNT(*) AS n FROM "+QuoteIdentifier(table))
	if err != nil {
		return 0, err
	}
	if len(res.Rows) == 0 {
		return 0, nil
	}
	v, _ := res.Rows[0].Get("n")
	return asInt64(v), nil
}

// Describe collects the columns and row count of every table.
func (h *Handle) Describe(ctx context.Context) (*DatabaseInfo, error) {
	tables, err := h.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	info := &DatabaseInfo{Path: h.path, Tables: make([]TableInfo, 0, len(tables))}
	for _, name := range tables {
		cols, err := h.TableSchema(ctx, name)
		if err != nil {
			return nil, err
		}
		count, err := h.RowCount(ctx, name)
		if err != nil {
			return nil, err
		}
		info.Tables = append(info.Tables, TableInfo{Name: name, Columns: cols, RowCount: count})
	}
	return info, nil
}

// QuoteIdentifier quotes name for use as an SQL identifier.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case float64:
		return int64(t)
	case bool:
		if t {
			return 1
		}
		return 0
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	case []byte:
		n, _ := strconv.ParseInt(string(t), 10, 64)
		return n
	default:
		return 0
	}
}
