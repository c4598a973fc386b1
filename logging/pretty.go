package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/arcade/tui/theme"
)

// PrettyLogger writes styled, human-facing output for CLI commands. It is
// separate from the structured logger, which goes to the log file.
type PrettyLogger struct {
	writer io.Writer
	styles PrettyStyles
}

// PrettyStyles contains lipgloss styles for different output kinds.
type PrettyStyles struct {
	Success lipgloss.Style
	Info    lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Key     lipgloss.Style
	Value   lipgloss.Style
	Path    lipgloss.Style
	Code    lipgloss.Style
}

// DefaultPrettyStyles derives pretty styles from the active theme.
func DefaultPrettyStyles() PrettyStyles {
	t := theme.DefaultTheme
	return PrettyStyles{
		Success: t.Success,
		Info:    lipgloss.NewStyle().Foreground(t.Colors.Cyan),
		Warning: lipgloss.NewStyle().Foreground(t.Colors.Yellow),
		Error:   t.Error,
		Key:     t.Muted,
		Value:   lipgloss.NewStyle().Foreground(t.Colors.Cyan).Bold(true),
		Path:    lipgloss.NewStyle().Foreground(t.Colors.Cyan).Italic(true),
		Code:    lipgloss.NewStyle().Foreground(t.Colors.Violet),
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

// Success prints a message with a checkmark.
func (p *PrettyLogger) Success(message string) {
	fmt.Fprintf(p.writer, "%s %s\n",
		p.styles.Success.Render(theme.IconSuccess),
		p.styles.Success.Render(message))
}

func (p *PrettyLogger) InfoPretty(message string) {
	fmt.Fprintf(p.writer, "%s\n", p.styles.Info.Render(message))
}

func (p *PrettyLogger) WarnPretty(message string) {
	fmt.Fprintf(p.writer, "%s %s\n",
		p.styles.Warning.Render(theme.IconWarning),
		p.styles.Warning.Render(message))
}

// ErrorPretty prints message followed by err, if any.
func (p *PrettyLogger) ErrorPretty(message string, err error) {
	fmt.Fprintf(p.writer, "%s %s",
		p.styles.Error.Render("✗"),
		p.styles.Error.Render(message))
	if err != nil {
		fmt.Fprintf(p.writer, ": %s", p.styles.Error.Render(err.Error()))
	}
	fmt.Fprintln(p.writer)
}

// Field prints an aligned "key: value" line.
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

// Code prints content indented, one styled line at a time.
func (p *PrettyLogger) Code(content string) {
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.writer, "  %s\n", p.styles.Code.Render(line))
	}
}

func (p *PrettyLogger) Divider() {
	fmt.Fprintln(p.writer, p.styles.Key.Render(strings.Repeat("─", 40)))
}

func (p *PrettyLogger) Blank() {
	fmt.Fprintln(p.writer)
}
