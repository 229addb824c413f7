package output

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/leapstack-labs/sqlpancake/pkg/manager"
)

// Result renders the outcome of one statement.
func (r *Renderer) Result(res *manager.Result) error {
	if res.Kind == manager.KindQuery {
		return r.Rows(res.Columns, res.Rows)
	}

	summary := ExecSummary{RowsAffected: res.RowsAffected, LastInsertID: res.LastInsertID}
	switch r.mode {
	case ModeJSON:
		return r.JSON(summary)
	case ModeYAML:
		return r.YAML(summary)
	case ModeCSV:
		t := r.newTable("rows_affected", "last_insert_id")
		t.AppendRow(table.Row{res.RowsAffected, res.LastInsertID})
		t.RenderCSV()
		return nil
	default:
		r.Success(fmt.Sprintf("Statement executed (%d rows affected)", res.RowsAffected))
		return nil
	}
}

// ExecSummary is the machine-readable form of a non-query result.
type ExecSummary struct {
	RowsAffected int64 `json:"rows_affected" yaml:"rows_affected"`
	LastInsertID int64 `json:"last_insert_id" yaml:"last_insert_id"`
}

// Rows renders a result set.
func (r *Renderer) Rows(cols []string, rows []manager.Row) error {
	switch r.mode {
	case ModeJSON:
		return r.JSON(rowMaps(rows))
	case ModeYAML:
		return r.YAML(rowMaps(rows))
	}

	if len(rows) == 0 && r.mode != ModeCSV {
		r.Println("(0 rows)")
		return nil
	}

	t := r.newTable(cols...)
	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, f := range row {
			tr[i] = FormatValue(f.Value)
		}
		t.AppendRow(tr)
	}
	r.renderTable(t)
	if r.mode == ModeTable {
		r.Printf("(%d rows)\n", len(rows))
	}
	return nil
}

// Tables renders a list of table names.
func (r *Renderer) Tables(names []string) error {
	switch r.mode {
	case ModeJSON:
		return r.JSON(names)
	case ModeYAML:
		return r.YAML(names)
	}

	if len(names) == 0 && r.mode != ModeCSV {
		r.Muted("No tables found")
		return nil
	}
	t := r.newTable("name")
	for _, name := range names {
		t.AppendRow(table.Row{name})
	}
	r.renderTable(t)
	return nil
}

// Schema renders the columns of one table.
func (r *Renderer) Schema(tableName string, cols []manager.ColumnDescriptor) error {
	switch r.mode {
	case ModeJSON:
		return r.JSON(cols)
	case ModeYAML:
		return r.YAML(cols)
	}

	if len(cols) == 0 {
		r.Warning(fmt.Sprintf("Table %q does not exist or has no columns", tableName))
		return nil
	}
	t := r.newTable("cid", "name", "type", "notnull", "default", "pk")
	for _, c := range cols {
		def := ""
		if c.HasDefault {
			def = c.Default
		}
		t.AppendRow(table.Row{c.Position, c.Name, c.Type, c.NotNull, def, c.PrimaryKeyIndex})
	}
	r.renderTable(t)
	return nil
}

// Info renders a database summary.
func (r *Renderer) Info(info *manager.DatabaseInfo) error {
	switch r.mode {
	case ModeJSON:
		return r.JSON(info)
	case ModeYAML:
		return r.YAML(info)
	case ModeCSV:
		t := r.newTable("table", "rows", "columns")
		for _, ti := range info.Tables {
			t.AppendRow(table.Row{ti.Name, ti.RowCount, len(ti.Columns)})
		}
		t.RenderCSV()
		return nil
	}

	r.Header(1, "Database: "+info.Path)
	r.KeyValue("Tables", strconv.Itoa(len(info.Tables)))
	for _, ti := range info.Tables {
		r.Println()
		r.Header(2, fmt.Sprintf("%s (%d rows)", ti.Name, ti.RowCount))
		for _, c := range ti.Columns {
			r.Println("  - " + DescribeColumn(c))
		}
	}
	return nil
}

// DescribeColumn renders a column as "name: TYPE (PRIMARY KEY) NOT NULL DEFAULT x".
func DescribeColumn(c manager.ColumnDescriptor) string {
	var b strings.Builder
	b.WriteString(c.Name + ": " + c.Type)
	if c.PrimaryKey {
		b.WriteString(" (PRIMARY KEY)")
	}
	if c.NotNull {
		b.WriteString(" NOT NULL")
	}
	if c.HasDefault {
		b.WriteString(" DEFAULT " + c.Default)
	}
	return b.String()
}

// ReportSummary is the machine-readable form of a LoadReport.
type ReportSummary struct {
	Source  string          `json:"source,omitempty" yaml:"source,omitempty"`
	Mode    string          `json:"mode" yaml:"mode"`
	Applied int             `json:"applied" yaml:"applied"`
	Skipped int             `json:"skipped" yaml:"skipped"`
	Failed  []FailedSummary `json:"failed" yaml:"failed"`
}

// FailedSummary describes one statement that failed in fallback mode.
type FailedSummary struct {
	Statement string `json:"statement" yaml:"statement"`
	Error     string `json:"error" yaml:"error"`
}

// Summarize converts a report into its machine-readable form.
func Summarize(report *manager.LoadReport) ReportSummary {
	s := ReportSummary{
		Source:  report.Source,
		Mode:    "atomic",
		Applied: report.Applied(),
		Skipped: report.Skipped(),
		Failed:  []FailedSummary{},
	}
	if report.Degraded() {
		s.Mode = "fallback"
	}
	for _, o := range report.Failed() {
		s.Failed = append(s.Failed, FailedSummary{Statement: o.Statement, Error: errorText(o.Err)})
	}
	return s
}

// Report renders the outcome of a script load.
func (r *Renderer) Report(report *manager.LoadReport) error {
	if report == nil {
		return nil
	}
	summary := Summarize(report)
	switch r.mode {
	case ModeJSON:
		return r.JSON(summary)
	case ModeYAML:
		return r.YAML(summary)
	}

	if !report.Degraded() {
		r.Success(fmt.Sprintf("Applied %d statements atomically", summary.Applied))
		return nil
	}

	r.Warning("Atomic execution failed, applied statement by statement: " + errorText(report.AtomicErr))
	for _, f := range summary.Failed {
		r.Warning(fmt.Sprintf("Skipped failing statement %q: %s", abbreviate(f.Statement), f.Error))
	}
	r.Success(fmt.Sprintf("Applied %d statements (%d failed, %d skipped)",
		summary.Applied, len(summary.Failed), summary.Skipped))
	return nil
}

func (r *Renderer) newTable(cols ...string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	style := table.StyleLight
	// Column names are identifiers; keep their case.
	style.Format.Header = text.FormatDefault
	t.SetStyle(style)
	header := make(table.Row, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	t.AppendHeader(header)
	return t
}

func (r *Renderer) renderTable(t table.Writer) {
	switch r.mode {
	case ModeCSV:
		t.RenderCSV()
	case ModeMarkdown:
		t.RenderMarkdown()
	default:
		t.Render()
	}
}

// FormatValue renders a store value for display.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		if utf8.Valid(t) {
			return string(t)
		}
		return "X'" + strings.ToUpper(hex.EncodeToString(t)) + "'"
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case time.Time:
		return t.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(t)
	}
}

func rowMaps(rows []manager.Row) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		m := row.Map()
		for k, v := range m {
			if b, ok := v.([]byte); ok && utf8.Valid(b) {
				m[k] = string(b)
			}
		}
		out = append(out, m)
	}
	return out
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func abbreviate(s string) string {
	const limit = 60
	flat := strings.Join(strings.Fields(s), " ")
	if len(flat) <= limit {
		return flat
	}
	return flat[:limit] + "..."
}
