package manager

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute_InsertThenSelect(t *testing.T) {
	ctx := context.Background()
	h := openTestHandle(t)

	res, err := h.Execute(ctx, "CREATE TABLE a(id INTEGER PRIMARY KEY)")
	require.NoError(t, err)
	assert.Equal(t, KindExec, res.Kind)
	assert.Nil(t, res.Rows)

	res, err = h.Execute(ctx, "INSERT INTO a(id) VALUES (?)", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowsAffected)
	assert.Equal(t, int64(1), res.LastInsertID)

	res, err = h.Execute(ctx, "SELECT * FROM a")
	require.NoError(t, err)
	assert.Equal(t, KindQuery, res.Kind)
	assert.Equal(t, []string{"id"}, res.Columns)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, Row{{Name: "id", Value: int64(1)}}, res.Rows[0])
}

func TestExecute_EmptyResultSet(t *testing.T) {
	ctx := context.Background()
	h := openTestHandle(t)
	mustExec(t, h, "CREATE TABLE a(id INTEGER)")

	res, err := h.Execute(ctx, "SELECT id FROM a")
	require.NoError(t, err)
	assert.NotNil(t, res.Rows)
	assert.Empty(t, res.Rows)
	assert.Equal(t, []string{"id"}, res.Columns)
}

func TestExecute_ParametersAreData(t *testing.T) {
	ctx := context.Background()
	h := openTestHandle(t)
	mustExec(t, h, "CREATE TABLE users(id INTEGER PRIMARY KEY, name TEXT)")

	hostile := "x'); DROP TABLE users; --"
	_, err := h.Execute(ctx, "INSERT INTO users(name) VALUES (?)", hostile)
	require.NoError(t, err)

	tables, err := h.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, tables)

	res, err := h.Execute(ctx, "SELECT name FROM users WHERE name = ?", hostile)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	name, ok := res.Rows[0].Get("name")
	require.True(t, ok)
	assert.Equal(t, hostile, name)
}

func TestExecute_ParameterTypes(t *testing.T) {
	ctx := context.Background()
	h := openTestHandle(t)
	mustExec(t, h, "CREATE TABLE v(i INTEGER, r REAL, s TEXT, b BLOB, n TEXT)")

	_, err := h.Execute(ctx, "INSERT INTO v VALUES (?, ?, ?, ?, ?)", int64(7), 2.5, "seven", []byte{0x00, 0xff}, nil)
	require.NoError(t, err)

	res, err := h.Execute(ctx, "SELECT i, r, s, b, n FROM v")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, []any{int64(7), 2.5, "seven", []byte{0x00, 0xff}, nil}, res.Rows[0].Values())
}

func TestExecute_DuplicateColumnNames(t *testing.T) {
	ctx := context.Background()
	h := openTestHandle(t)

	res, err := h.Execute(ctx, "SELECT 1 AS x, 2 AS x")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	row := res.Rows[0]
	assert.Equal(t, []string{"x", "x"}, row.Names())
	assert.Equal(t, []any{int64(1), int64(2)}, row.Values())

	v, ok := row.Get("x")
	require.True(t, ok)
	assert.Equal(t, int64(1), v)
	assert.Equal(t, map[string]any{"x": int64(2)}, row.Map())
}

func TestExecute_Errors(t *testing.T) {
	ctx := context.Background()
	h := openTestHandle(t)
	mustExec(t, h, "CREATE TABLE a(id INTEGER PRIMARY KEY, name TEXT NOT NULL)")

	tests := []struct {
		name string
		stmt string
		args []any
	}{
		{name: "syntax error", stmt: "SELEC * FROM a"},
		{name: "missing table", stmt: "SELECT * FROM nope"},
		{name: "constraint violation", stmt: "INSERT INTO a(id, name) VALUES (1, NULL)"},
		{name: "empty statement", stmt: "   "},
		{name: "comment only", stmt: "-- nothing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Execute(ctx, tt.stmt, tt.args...)
			var storeErr *StoreError
			require.ErrorAs(t, err, &storeErr)
			assert.Equal(t, tt.stmt, storeErr.Statement)
		})
	}
}

func TestExecute_ExecStatementsAutocommit(t *testing.T) {
	ctx := context.Background()
	h := openTestHandle(t)
	mustExec(t, h, "CREATE TABLE a(id INTEGER)", "INSERT INTO a VALUES (1)")
	require.NoError(t, h.Close())

	require.NoError(t, h.Open(ctx, h.Path()))
	n, err := h.RowCount(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "exec", KindExec.String())
	assert.Equal(t, "query", KindQuery.String())
}

func TestStoreError_Message(t *testing.T) {
	err := &StoreError{Statement: "SELECT\n  1", Err: assert.AnError}
	assert.Equal(t, `store error in "SELECT 1": `+assert.AnError.Error(), err.Error())

	long := &StoreError{Statement: "SELECT " + strings.Repeat("x", 200), Err: assert.AnError}
	assert.Contains(t, long.Error(), "...")
}
