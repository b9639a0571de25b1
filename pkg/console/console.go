// Package console formats human-facing command output.
//
// Structured logs go to stderr through slog; this package writes the
// operator-facing report (titles, errors, suggested commands) to stdout.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme holds the styles for each kind of message.
type Theme struct {
	Title   lipgloss.Style
	Info    lipgloss.Style
	Error   lipgloss.Style
	Alert   lipgloss.Style
	Command lipgloss.Style
}

// DefaultTheme mirrors the colors operators know from Tutor's own output.
func DefaultTheme() Theme {
	return Theme{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		Alert:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3")),
		Command: lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
	}
}

// Printer writes styled lines to w. Write errors are ignored, output is best-effort.
type Printer struct {
	w     io.Writer
	theme Theme
}

// NewPrinter creates a Printer with the default theme.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, theme: DefaultTheme()}
}

// NewPlainPrinter creates a Printer without styling, for logs and tests.
func NewPlainPrinter(w io.Writer) *Printer {
	plain := lipgloss.NewStyle()
	return &Printer{w: w, theme: Theme{Title: plain, Info: plain, Error: plain, Alert: plain, Command: plain}}
}

func (p *Printer) println(style lipgloss.Style, text string) {
	_, _ = fmt.Fprintln(p.w, style.Render(text))
}

// Title prints text framed by separator lines.
func (p *Printer) Title(text string) {
	const indent = 8
	sep := strings.Repeat("=", len([]rune(text))+2*indent)
	// One Render per line: lipgloss pads multi-line blocks to equal width.
	p.println(p.theme.Title, sep)
	p.println(p.theme.Title, strings.Repeat(" ", indent)+text)
	p.println(p.theme.Title, sep)
}

// Info prints an informational line.
func (p *Printer) Info(format string, args ...any) {
	p.println(p.theme.Info, fmt.Sprintf(format, args...))
}

// Error prints an error line.
func (p *Printer) Error(format string, args ...any) {
	p.println(p.theme.Error, fmt.Sprintf(format, args...))
}

// Alert prints a warning line prefixed with a warning sign.
func (p *Printer) Alert(format string, args ...any) {
	p.println(p.theme.Alert, "⚠️  "+fmt.Sprintf(format, args...))
}

// Command prints a shell command the operator can copy.
func (p *Printer) Command(format string, args ...any) {
	p.println(p.theme.Command, fmt.Sprintf(format, args...))
}

// Plain prints unstyled text.
func (p *Printer) Plain(format string, args ...any) {
	_, _ = fmt.Fprintf(p.w, format+"\n", args...)
}
