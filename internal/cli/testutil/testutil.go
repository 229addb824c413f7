// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/sqlpancake/internal/cli/output"
	"github.com/leapstack-labs/sqlpancake/pkg/manager"
)

// LibrarySchema is a small schema with a foreign key, an index and a trigger.
const LibrarySchema = `
CREATE TABLE authors (
    author_id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL
);
CREATE TABLE books (
    book_id INTEGER PRIMARY KEY,
    author_id INTEGER NOT NULL REFERENCES authors(author_id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    price REAL CHECK (price >= 0),
    stock INTEGER DEFAULT 0
);
CREATE INDEX idx_books_author ON books(author_id);
CREATE TABLE stock_log (book_id INTEGER, delta INTEGER);
CREATE TRIGGER trg_books_stock AFTER UPDATE OF stock ON books
BEGIN
    INSERT INTO stock_log(book_id, delta) VALUES (NEW.book_id, NEW.stock - OLD.stock);
END;
INSERT INTO authors(name) VALUES ('George Orwell');
INSERT INTO authors(name) VALUES ('Mary Shelley');
INSERT INTO books(author_id, title, price, stock) VALUES (1, '1984', 9.99, 5);
INSERT INTO books(author_id, title, price, stock) VALUES (2, 'Frankenstein', 7.5, 2);
`

// WriteFile writes content to name inside a fresh temp dir and returns its path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// SeedDatabase creates a database file loaded with script and returns its path.
func SeedDatabase(t *testing.T, script string) string {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "seed.db")

	h := manager.New()
	defer func() { _ = h.Close() }()
	if _, err := h.Create(ctx, path, manager.CreateOptions{}); err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	if strings.TrimSpace(script) == "" {
		return path
	}
	report, err := h.LoadScript(ctx, script)
	if err != nil {
		t.Fatalf("failed to seed %s: %v", path, err)
	}
	if report.Degraded() {
		t.Fatalf("seed script did not apply atomically: %v", report.AtomicErr)
	}
	return path
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.Mode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the captured result stream.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the captured error stream.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// Reset clears both output buffers.
func (tr *TestRenderer) Reset() {
	tr.Out.Reset()
	tr.ErrOut.Reset()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown checks that markdown tables have a separator row
// after their header and that no header is empty.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	lines := strings.Split(md, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
	for i := 0; i < len(lines); i++ {
		if !strings.HasPrefix(lines[i], "|") {
			continue
		}
		if i+1 >= len(lines) || !strings.HasPrefix(lines[i+1], "|") || !strings.Contains(lines[i+1], "---") {
			t.Errorf("markdown table at line %d has no separator row", i+1)
		}
		for i < len(lines) && strings.HasPrefix(lines[i], "|") {
			i++
		}
	}
}
