package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/sqlpancake/pkg/manager"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func newTestRenderer(mode Mode) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, false, mode), out, errOut
}

func sampleRows() ([]string, []manager.Row) {
	cols := []string{"id", "name"}
	rows := []manager.Row{
		{{Name: "id", Value: int64(1)}, {Name: "name", Value: "ada"}},
		{{Name: "id", Value: int64(2)}, {Name: "name", Value: nil}},
	}
	return cols, rows
}

func TestRows(t *testing.T) {
	cols, rows := sampleRows()

	tests := []struct {
		mode  Mode
		check func(t *testing.T, out string)
	}{
		{
			mode: ModeTable,
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, "id")
				assert.Contains(t, out, "ada")
				assert.Contains(t, out, "NULL")
				assert.Contains(t, out, "(2 rows)")
			},
		},
		{
			mode: ModeCSV,
			check: func(t *testing.T, out string) {
				assert.Equal(t, "id,name\n1,ada\n2,NULL\n", out)
			},
		},
		{
			mode: ModeMarkdown,
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, "| id |")
				assert.Contains(t, out, "| ada |")
			},
		},
		{
			mode: ModeJSON,
			check: func(t *testing.T, out string) {
				var got []map[string]any
				require.NoError(t, json.Unmarshal([]byte(out), &got))
				require.Len(t, got, 2)
				assert.Equal(t, "ada", got[0]["name"])
				assert.Nil(t, got[1]["name"])
			},
		},
		{
			mode: ModeYAML,
			check: func(t *testing.T, out string) {
				var got []map[string]any
				require.NoError(t, yaml.Unmarshal([]byte(out), &got))
				require.Len(t, got, 2)
				assert.Equal(t, 1, got[0]["id"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			r, out, _ := newTestRenderer(tt.mode)
			require.NoError(t, r.Rows(cols, rows))
			assert.False(t, ansiPattern.MatchString(out.String()))
			tt.check(t, out.String())
		})
	}
}

func TestRows_Empty(t *testing.T) {
	r, out, _ := newTestRenderer(ModeTable)
	require.NoError(t, r.Rows([]string{"id"}, []manager.Row{}))
	assert.Equal(t, "(0 rows)\n", out.String())

	r, out, _ = newTestRenderer(ModeJSON)
	require.NoError(t, r.Rows([]string{"id"}, []manager.Row{}))
	assert.JSONEq(t, "[]", out.String())
}

func TestResult_Exec(t *testing.T) {
	res := &manager.Result{Kind: manager.KindExec, RowsAffected: 3, LastInsertID: 9}

	r, out, _ := newTestRenderer(ModeTable)
	require.NoError(t, r.Result(res))
	assert.Contains(t, out.String(), "3 rows affected")

	r, out, _ = newTestRenderer(ModeJSON)
	require.NoError(t, r.Result(res))
	assert.JSONEq(t, `{"rows_affected":3,"last_insert_id":9}`, out.String())
}

func TestStatusLinesInMachineModes(t *testing.T) {
	r, out, errOut := newTestRenderer(ModeJSON)
	r.Success("done")
	r.Muted("quiet")
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "done")
	assert.Contains(t, errOut.String(), "quiet")

	r, out, errOut = newTestRenderer(ModeTable)
	r.Success("done")
	assert.Contains(t, out.String(), "done")
	assert.Empty(t, errOut.String())
}

func TestSchema(t *testing.T) {
	cols := []manager.ColumnDescriptor{
		{Position: 0, Name: "id", Type: "INTEGER", PrimaryKey: true, PrimaryKeyIndex: 1},
		{Position: 1, Name: "qty", Type: "INTEGER", HasDefault: true, Default: "0"},
	}

	r, out, _ := newTestRenderer(ModeCSV)
	require.NoError(t, r.Schema("items", cols))
	assert.Equal(t, "cid,name,type,notnull,default,pk\n0,id,INTEGER,false,,1\n1,qty,INTEGER,false,0,0\n", out.String())

	r, _, errOut := newTestRenderer(ModeTable)
	require.NoError(t, r.Schema("missing", nil))
	assert.Contains(t, errOut.String(), `"missing"`)
}

func TestInfo(t *testing.T) {
	info := &manager.DatabaseInfo{
		Path: "lib.db",
		Tables: []manager.TableInfo{{
			Name:     "books",
			RowCount: 2,
			Columns: []manager.ColumnDescriptor{
				{Name: "book_id", Type: "INTEGER", PrimaryKey: true},
				{Name: "stock", Type: "INTEGER", HasDefault: true, Default: "0"},
			},
		}},
	}

	r, out, _ := newTestRenderer(ModeMarkdown)
	require.NoError(t, r.Info(info))
	assert.Contains(t, out.String(), "# Database: lib.db")
	assert.Contains(t, out.String(), "- **Tables**: 1")
	assert.Contains(t, out.String(), "## books (2 rows)")
	assert.Contains(t, out.String(), "book_id: INTEGER (PRIMARY KEY)")
	assert.Contains(t, out.String(), "stock: INTEGER DEFAULT 0")

	r, out, _ = newTestRenderer(ModeYAML)
	require.NoError(t, r.Info(info))
	assert.Contains(t, out.String(), "row_count: 2")
}

func TestReport(t *testing.T) {
	degraded := &manager.LoadReport{
		AtomicErr: errors.New("syntax error"),
		Outcomes: []manager.StatementOutcome{
			{Statement: "CREATE TABLE a(id)", Status: manager.StatusApplied},
			{Statement: "BROKEN", Status: manager.StatusFailed, Err: errors.New("near BROKEN")},
			{Statement: "-- note", Status: manager.StatusSkipped, Reason: "comment only"},
		},
	}

	r, out, errOut := newTestRenderer(ModeTable)
	require.NoError(t, r.Report(degraded))
	assert.Contains(t, errOut.String(), "syntax error")
	assert.Contains(t, errOut.String(), `"BROKEN"`)
	assert.Contains(t, out.String(), "Applied 1 statements (1 failed, 1 skipped)")

	r, out, _ = newTestRenderer(ModeJSON)
	require.NoError(t, r.Report(degraded))
	var got ReportSummary
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "fallback", got.Mode)
	assert.Equal(t, []FailedSummary{{Statement: "BROKEN", Error: "near BROKEN"}}, got.Failed)

	r, out, _ = newTestRenderer(ModeTable)
	require.NoError(t, r.Report(&manager.LoadReport{Atomic: true, Outcomes: degraded.Outcomes[:1]}))
	assert.Contains(t, out.String(), "Applied 1 statements atomically")
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "NULL"},
		{int64(42), "42"},
		{0.1, "0.1"},
		{"text", "text"},
		{[]byte("utf8"), "utf8"},
		{[]byte{0x00, 0xff}, "X'00FF'"},
		{time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "2024-01-02 03:04:05"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValue(tt.in))
	}
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "## Tables", FormatHeader(2, "Tables"))
	assert.Equal(t, "# X", FormatHeader(0, "X"))
	assert.Equal(t, "- **Path**: a.db", FormatKeyValue("Path", "a.db"))
	assert.Equal(t, "a: TEXT NOT NULL", DescribeColumn(manager.ColumnDescriptor{Name: "a", Type: "TEXT", NotNull: true}))
}

func TestModeMachine(t *testing.T) {
	assert.True(t, ModeJSON.Machine())
	assert.True(t, ModeCSV.Machine())
	assert.True(t, ModeYAML.Machine())
	assert.False(t, ModeTable.Machine())
	assert.False(t, ModeMarkdown.Machine())
}
