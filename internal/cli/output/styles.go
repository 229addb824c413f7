package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Styles holds the lipgloss styles used for human-readable output.
type Styles struct {
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Muted   lipgloss.Style
	Bold    lipgloss.Style
	Header  lipgloss.Style
	Key     lipgloss.Style
}

// NewStyles builds styles bound to w. Colors are dropped when w is not a
// terminal so piped output stays plain.
func NewStyles(w io.Writer, isTTY bool) *Styles {
	lr := lipgloss.NewRenderer(w)
	if !isTTY {
		lr.SetColorProfile(termenv.Ascii)
		plain := lr.NewStyle()
		return &Styles{
			Success: plain, Error: plain, Warning: plain, Info: plain,
			Muted: plain, Bold: plain, Header: plain, Key: plain,
		}
	}

	return &Styles{
		Success: lr.NewStyle().Foreground(lipgloss.Color("2")),
		Error:   lr.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		Warning: lr.NewStyle().Foreground(lipgloss.Color("3")),
		Info:    lr.NewStyle().Foreground(lipgloss.Color("4")),
		Muted:   lr.NewStyle().Foreground(lipgloss.Color("8")),
		Bold:    lr.NewStyle().Bold(true),
		Header:  lr.NewStyle().Bold(true).Underline(true),
		Key:     lr.NewStyle().Foreground(lipgloss.Color("6")),
	}
}
