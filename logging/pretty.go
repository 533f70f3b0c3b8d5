package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// PrettyLogger writes styled, user-facing CLI output. It is separate from
// the structured component loggers.
type PrettyLogger struct {
	writer io.Writer
	styles PrettyStyles
}

// PrettyStyles holds the lipgloss styles used by PrettyLogger.
type PrettyStyles struct {
	Success lipgloss.Style
	Info    lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Key     lipgloss.Style
	Value   lipgloss.Style
	Path    lipgloss.Style
	Muted   lipgloss.Style
}

func DefaultPrettyStyles() PrettyStyles {
	return PrettyStyles{
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Key:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Value:   lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true),
		Path:    lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Italic(true),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// NewPrettyLogger writes to stdout.
func NewPrettyLogger() *PrettyLogger {
	return &PrettyLogger{
		writer: os.Stdout,
		styles: DefaultPrettyStyles(),
	}
}

// WithWriter sets a custom writer for pretty output
func (p *PrettyLogger) WithWriter(w io.Writer) *PrettyLogger {
	p.writer = w
	return p
}

func (p *PrettyLogger) Success(message string) {
	fmt.Fprintf(p.writer, "%s %s\n", p.styles.Success.Render("✓"), p.styles.Success.Render(message))
}

func (p *PrettyLogger) InfoPretty(message string) {
	fmt.Fprintf(p.writer, "%s\n", p.styles.Info.Render(message))
}

func (p *PrettyLogger) WarnPretty(message string) {
	fmt.Fprintf(p.writer, "%s %s\n", p.styles.Warning.Render("⚠"), p.styles.Warning.Render(message))
}

// ErrorPretty prints message and, when non-nil, the error text.
func (p *PrettyLogger) ErrorPretty(message string, err error) {
	fmt.Fprintf(p.writer, "%s %s", p.styles.Error.Render("✗"), p.styles.Error.Render(message))
	if err != nil {
		fmt.Fprintf(p.writer, ": %s", p.styles.Error.Render(err.Error()))
	}
	fmt.Fprintln(p.writer)
}

// Field prints an aligned key/value pair.
func (p *PrettyLogger) Field(key string, value interface{}) {
	fmt.Fprintf(p.writer, "%s %s\n",
		p.styles.Key.Render(fmt.Sprintf("%-12s", key+":")),
		p.styles.Value.Render(fmt.Sprint(value)))
}

func (p *PrettyLogger) Path(label string, path string) {
	fmt.Fprintf(p.writer, "%s %s\n",
		p.styles.Key.Render(fmt.Sprintf("%-12s", label+":")),
		p.styles.Path.Render(path))
}

// Heading prints a category title followed by a divider.
func (p *PrettyLogger) Heading(title string) {
	fmt.Fprintln(p.writer, p.styles.Info.Bold(true).Render(title))
	fmt.Fprintln(p.writer, p.styles.Muted.Render(strings.Repeat("─", len(title))))
}

// Item prints an indented list entry with an optional muted note.
func (p *PrettyLogger) Item(name, note string) {
	if note == "" {
		fmt.Fprintf(p.writer, "  %s\n", name)
		return
	}
	fmt.Fprintf(p.writer, "  %s %s\n", name, p.styles.Muted.Render(note))
}

func (p *PrettyLogger) Blank() {
	fmt.Fprintln(p.writer)
}
