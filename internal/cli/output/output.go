// Package output renders command output in terminal, markdown, or JSON
// form. Terminal output is styled; piped output degrades to plain markdown
// so scripts and agents get stable text.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Mode selects the output format.
type Mode string

const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// Renderer writes formatted output to a command's stdout/stderr.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
	isTTY  bool
	styles Styles
}

// Styles holds the lipgloss styles used in text mode.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

func styled() Styles {
	return Styles{
		Header1: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Header2: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		Bold:    lipgloss.NewStyle().Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

func plain() Styles {
	s := lipgloss.NewStyle()
	return Styles{s, s, s, s, s, s, s}
}

// NewRenderer creates a renderer, detecting TTY state from out.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	isTTY := false
	if f, ok := out.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}
	return NewRendererWithTTY(out, errOut, isTTY, mode)
}

// NewRendererWithTTY creates a renderer with an explicit TTY state. Tests
// use this to force either styled or plain output.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode Mode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}
	styles := plain()
	if isTTY && (mode == ModeAuto || mode == ModeText) {
		styles = styled()
	}
	return &Renderer{out: out, errOut: errOut, mode: mode, isTTY: isTTY, styles: styles}
}

// EffectiveMode resolves ModeAuto: text on a terminal, markdown when piped.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode != ModeAuto {
		return r.mode
	}
	if r.isTTY {
		return ModeText
	}
	return ModeMarkdown
}

// Writer returns the underlying stdout writer, for table renderers.
func (r *Renderer) Writer() io.Writer { return r.out }

// Styles returns the active style set.
func (r *Renderer) Styles() Styles { return r.styles }

func (r *Renderer) Println(args ...any) {
	fmt.Fprintln(r.out, args...)
}

func (r *Renderer) Printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

// Header prints a section header appropriate for the effective mode.
func (r *Renderer) Header(level int, text string) {
	if r.EffectiveMode() == ModeMarkdown {
		fmt.Fprintf(r.out, "%s %s\n", strings.Repeat("#", level), text)
		return
	}
	style := r.styles.Header1
	if level > 1 {
		style = r.styles.Header2
	}
	fmt.Fprintln(r.out, style.Render(text))
}

// KeyValue prints a labelled value line.
func (r *Renderer) KeyValue(key, value string) {
	if r.EffectiveMode() == ModeMarkdown {
		fmt.Fprintf(r.out, "- **%s**: %s\n", key, value)
		return
	}
	fmt.Fprintf(r.out, "  %s %s\n", r.styles.Bold.Render(key+":"), value)
}

// Success prints a confirmation line to stdout.
func (r *Renderer) Success(msg string) {
	fmt.Fprintln(r.out, r.styles.Success.Render(msg))
}

// Warning prints a warning line to stderr.
func (r *Renderer) Warning(msg string) {
	fmt.Fprintln(r.errOut, r.styles.Warning.Render("warning: "+msg))
}

// Errorf prints an error line to stderr.
func (r *Renderer) Errorf(format string, args ...any) {
	fmt.Fprintln(r.errOut, r.styles.Error.Render(fmt.Sprintf(format, args...)))
}

// JSON writes v as indented JSON to stdout.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
