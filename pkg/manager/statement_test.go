package manager

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStatement(t *testing.T) {
	tests := []struct {
		name string
		stmt string
		want Kind
	}{
		{name: "select", stmt: "SELECT * FROM a", want: KindQuery},
		{name: "lower case with padding", stmt: "   select 1", want: KindQuery},
		{name: "pragma", stmt: "PRAGMA table_info(a)", want: KindQuery},
		{name: "cte", stmt: "WITH x AS (SELECT 1) SELECT * FROM x", want: KindQuery},
		{name: "values", stmt: "VALUES (1), (2)", want: KindQuery},
		{name: "explain", stmt: "EXPLAIN QUERY PLAN SELECT 1", want: KindQuery},
		{name: "leading comment", stmt: "-- fetch\nSELECT 1", want: KindQuery},
		{name: "leading block comment", stmt: "/* x */ select 1", want: KindQuery},
		{name: "insert", stmt: "INSERT INTO a VALUES (1)", want: KindExec},
		{name: "create", stmt: "CREATE TABLE a(id)", want: KindExec},
		{name: "selector is not select", stmt: "SELECTOR", want: KindExec},
		{name: "empty", stmt: "", want: KindExec},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyStatement(tt.stmt))
		})
	}
}

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   []string
	}{
		{
			name:   "simple",
			script: "CREATE TABLE a(id); INSERT INTO a VALUES (1);",
			want:   []string{"CREATE TABLE a(id)", "INSERT INTO a VALUES (1)"},
		},
		{
			name:   "empty candidates dropped",
			script: ";;  ;\n CREATE TABLE a(id);;",
			want:   []string{"CREATE TABLE a(id)"},
		},
		{
			name:   "unterminated tail kept",
			script: "CREATE TABLE a(id); SELECT 1",
			want:   []string{"CREATE TABLE a(id)", "SELECT 1"},
		},
		{
			name:   "semicolon in string literal",
			script: "INSERT INTO a VALUES ('x; y'); INSERT INTO a VALUES ('it''s;');",
			want:   []string{"INSERT INTO a VALUES ('x; y')", "INSERT INTO a VALUES ('it''s;')"},
		},
		{
			name:   "semicolon in quoted identifier",
			script: `CREATE TABLE "a;b"(id); CREATE TABLE [c;d](id);`,
			want:   []string{`CREATE TABLE "a;b"(id)`, `CREATE TABLE [c;d](id)`},
		},
		{
			name:   "semicolon in comments",
			script: "-- one; two\nCREATE TABLE a(id); /* three; */ SELECT 1;",
			want:   []string{"-- one; two\nCREATE TABLE a(id)", "/* three; */ SELECT 1"},
		},
		{
			name: "trigger body",
			script: `CREATE TRIGGER t AFTER INSERT ON a BEGIN
  INSERT INTO b VALUES (new.id);
  UPDATE c SET n = CASE WHEN n > 0 THEN n END;
END;
SELECT 1;`,
			want: []string{
				"CREATE TRIGGER t AFTER INSERT ON a BEGIN\n  INSERT INTO b VALUES (new.id);\n  UPDATE c SET n = CASE WHEN n > 0 THEN n END;\nEND",
				"SELECT 1",
			},
		},
		{
			name:   "temp trigger",
			script: "CREATE TEMP TRIGGER t AFTER DELETE ON a BEGIN DELETE FROM b; END; SELECT 2;",
			want:   []string{"CREATE TEMP TRIGGER t AFTER DELETE ON a BEGIN DELETE FROM b; END", "SELECT 2"},
		},
		{
			name:   "transaction begin is not a trigger",
			script: "BEGIN; INSERT INTO a VALUES (1); COMMIT;",
			want:   []string{"BEGIN", "INSERT INTO a VALUES (1)", "COMMIT"},
		},
		{
			name:   "comment only",
			script: "-- nothing here\n",
			want:   []string{"-- nothing here"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitStatements(tt.script))
		})
	}
}

func TestStripLeadingComments(t *testing.T) {
	assert.Equal(t, "CREATE TABLE a(id)", stripLeadingComments("-- users\n  /* x */\nCREATE TABLE a(id)"))
	assert.Equal(t, "", stripLeadingComments("-- only a comment"))
	assert.Equal(t, "SELECT 1 -- trailing", stripLeadingComments("SELECT 1 -- trailing"))
}

func TestFlattenSQL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "multi-line create",
			in:   "CREATE TABLE a (\n    id INTEGER PRIMARY KEY, -- key\n    name TEXT\n)",
			want: "CREATE TABLE a ( id INTEGER PRIMARY KEY, name TEXT )",
		},
		{
			name: "literal whitespace preserved",
			in:   "CREATE TABLE a (n TEXT DEFAULT '  two  spaces')",
			want: "CREATE TABLE a (n TEXT DEFAULT '  two  spaces')",
		},
		{
			name: "block comment removed",
			in:   "CREATE /* c */ VIEW v AS SELECT 1",
			want: "CREATE VIEW v AS SELECT 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FlattenSQL(tt.in))
		})
	}
}

func TestPlanScript(t *testing.T) {
	plan := planScript("-- header\n;BEGIN TRANSACTION;\n-- users\nCREATE TABLE a(id);\nCOMMIT;")

	assert.True(t, plan.managesTransaction)
	assert.Equal(t, 1, plan.executable())
	assert.Equal(t, []candidate{
		{text: "-- header", skip: skipComment},
		{text: "BEGIN TRANSACTION", skip: skipTransaction},
		{text: "CREATE TABLE a(id)"},
		{text: "COMMIT", skip: skipTransaction},
	}, plan.candidates)
}

func TestIsComplete(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   bool
	}{
		{name: "terminated", script: "SELECT 1;", want: true},
		{name: "trailing comment", script: "SELECT 1; -- done", want: true},
		{name: "unterminated", script: "SELECT 1", want: false},
		{name: "semicolon in literal", script: "SELECT ';'", want: false},
		{name: "open literal", script: "SELECT 'a;", want: false},
		{name: "inside trigger body", script: "CREATE TRIGGER t AFTER INSERT ON a BEGIN INSERT INTO b VALUES (1);", want: false},
		{name: "trigger closed", script: "CREATE TRIGGER t AFTER INSERT ON a BEGIN INSERT INTO b VALUES (1); END;", want: true},
		{name: "statement after semicolon", script: "SELECT 1; SELECT", want: false},
		{name: "empty", script: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsComplete(tt.script))
		})
	}
}
