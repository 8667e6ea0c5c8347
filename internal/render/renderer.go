// Package render writes dispatch results for people and programs.
//
// Terminal output uses styled text and box tables; when stdout is not a
// terminal the auto mode switches to Markdown so output pasted into chat or
// docs stays readable. JSON, CSV and YAML are available for scripting.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Mode selects an output format.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
	ModeCSV      Mode = "csv"
	ModeYAML     Mode = "yaml"
)

// Modes lists every accepted mode name.
func Modes() []string {
	return []string{string(ModeAuto), string(ModeText), string(ModeMarkdown), string(ModeJSON), string(ModeCSV), string(ModeYAML)}
}

// ParseMode parses a mode name. "md" is accepted for markdown and "table"
// for text.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "text", "table":
		return ModeText, nil
	case "markdown", "md":
		return ModeMarkdown, nil
	case "json":
		return ModeJSON, nil
	case "csv":
		return ModeCSV, nil
	case "yaml", "yml":
		return ModeYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want one of %s)", s, strings.Join(Modes(), ", "))
	}
}

// Styles are the lipgloss styles used for text output.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
}

func newStyles(re *lipgloss.Renderer) *Styles {
	return &Styles{
		Header1: re.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Header2: re.NewStyle().Bold(true),
		Bold:    re.NewStyle().Bold(true),
		Muted:   re.NewStyle().Foreground(lipgloss.Color("8")),
		Success: re.NewStyle().Foreground(lipgloss.Color("10")),
		Error:   re.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Warning: re.NewStyle().Foreground(lipgloss.Color("11")),
	}
}

// Renderer writes results in one output mode.
type Renderer struct {
	out      io.Writer
	errOut   io.Writer
	mode     Mode
	styles   *Styles
	errStyle lipgloss.Style
}

// NewRenderer creates a renderer. ModeAuto resolves to text when out is a
// terminal and to markdown otherwise.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	if mode == "" || mode == ModeAuto {
		mode = ModeMarkdown
		if isTerminal(out) {
			mode = ModeText
		}
	}
	return &Renderer{
		out:      out,
		errOut:   errOut,
		mode:     mode,
		styles:   newStyles(lipgloss.NewRenderer(out, termenv.WithColorCache(true))),
		errStyle: newStyles(lipgloss.NewRenderer(errOut, termenv.WithColorCache(true))).Error,
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}

// Mode returns the resolved output mode.
func (r *Renderer) Mode() Mode { return r.mode }

// Styles returns the text styles.
func (r *Renderer) Styles() *Styles { return r.styles }

// Out returns the primary writer.
func (r *Renderer) Out() io.Writer { return r.out }

// Println writes a line to the primary writer.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Printf writes formatted output to the primary writer.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// Errorf writes a styled error line to the error writer.
func (r *Renderer) Errorf(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if r.mode == ModeText {
		msg = r.errStyle.Render("Error:") + " " + msg
	} else {
		msg = "Error: " + msg
	}
	_, _ = fmt.Fprintln(r.errOut, msg)
}
