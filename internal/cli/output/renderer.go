// Package output renders command results and status messages.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Mode selects how results are rendered.
type Mode string

// Output modes.
const (
	ModeTable    Mode = "table"
	ModeJSON     Mode = "json"
	ModeCSV      Mode = "csv"
	ModeMarkdown Mode = "markdown"
	ModeYAML     Mode = "yaml"
)

// Machine reports whether the mode is meant for other programs. Status
// lines go to the error stream in machine modes so stdout stays parseable.
func (m Mode) Machine() bool {
	return m == ModeJSON || m == ModeCSV || m == ModeYAML
}

// Renderer writes results in the configured mode plus styled status lines.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
	isTTY  bool
	styles *Styles
}

// NewRenderer creates a renderer, detecting whether out is a terminal.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	return NewRendererWithTTY(out, errOut, IsTerminal(out), mode)
}

// NewRendererWithTTY creates a renderer with an explicit TTY state.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode Mode) *Renderer {
	if mode == "" {
		mode = ModeTable
	}
	return &Renderer{
		out:    out,
		errOut: errOut,
		mode:   mode,
		isTTY:  isTTY,
		styles: NewStyles(out, isTTY),
	}
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w any) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Mode returns the output mode.
func (r *Renderer) Mode() Mode { return r.mode }

// IsTTY reports whether output goes to a terminal.
func (r *Renderer) IsTTY() bool { return r.isTTY }

// Styles returns the renderer's styles.
func (r *Renderer) Styles() *Styles { return r.styles }

// Writer returns the result stream.
func (r *Renderer) Writer() io.Writer { return r.out }

// ErrWriter returns the diagnostic stream.
func (r *Renderer) ErrWriter() io.Writer { return r.errOut }

// Println writes a line to the result stream.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Printf writes formatted text to the result stream.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// status is where status lines go for the current mode.
func (r *Renderer) status() io.Writer {
	if r.mode.Machine() {
		return r.errOut
	}
	return r.out
}

// Success prints a success status line.
func (r *Renderer) Success(msg string) {
	_, _ = fmt.Fprintln(r.status(), r.styles.Success.Render("✓ "+msg))
}

// Warning prints a warning line on the error stream.
func (r *Renderer) Warning(msg string) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Warning.Render("! "+msg))
}

// Error prints an error line on the error stream.
func (r *Renderer) Error(msg string) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Error.Render("Error: "+msg))
}

// Muted prints a de-emphasized status line.
func (r *Renderer) Muted(msg string) {
	_, _ = fmt.Fprintln(r.status(), r.styles.Muted.Render(msg))
}

// Header prints a section header. Markdown mode uses # headers.
func (r *Renderer) Header(level int, text string) {
	if r.mode == ModeMarkdown {
		_, _ = fmt.Fprintln(r.out, FormatHeader(level, text))
		return
	}
	_, _ = fmt.Fprintln(r.status(), r.styles.Header.Render(text))
}

// KeyValue prints one labelled value.
func (r *Renderer) KeyValue(key, value string) {
	if r.mode == ModeMarkdown {
		_, _ = fmt.Fprintln(r.out, FormatKeyValue(key, value))
		return
	}
	_, _ = fmt.Fprintf(r.status(), "%s %s\n", r.styles.Key.Render(key+":"), value)
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// YAML writes v as a YAML document.
func (r *Renderer) YAML(v any) error {
	enc := yaml.NewEncoder(r.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// FormatHeader returns a markdown header.
func FormatHeader(level int, text string) string {
	if level < 1 {
		level = 1
	}
	return strings.Repeat("#", level) + " " + text
}

// FormatKeyValue returns a markdown list item with a bold key.
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("- **%s**: %s", key, value)
}
