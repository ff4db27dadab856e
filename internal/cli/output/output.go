// Package output renders CLI results for terminals, markdown consumers and
// JSON pipelines.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Mode selects how results are rendered.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// Renderer writes command results in the configured mode.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	isTTY  bool
	mode   Mode
	style  *lipgloss.Renderer
}

// NewRenderer creates a renderer, detecting whether out is a terminal.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	isTTY := false
	if f, ok := out.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}
	return NewRendererWithTTY(out, errOut, isTTY, mode)
}

// NewRendererWithTTY creates a renderer with an explicit terminal state.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode Mode) *Renderer {
	profile := termenv.Ascii
	if isTTY && !termenv.EnvNoColor() {
		profile = termenv.EnvColorProfile()
	}
	if mode == "" {
		mode = ModeAuto
	}
	return &Renderer{
		out:    out,
		errOut: errOut,
		isTTY:  isTTY,
		mode:   mode,
		style:  lipgloss.NewRenderer(out, termenv.WithProfile(profile)),
	}
}

// Mode returns the effective mode: auto resolves to text on a terminal and
// markdown otherwise.
func (r *Renderer) Mode() Mode {
	if r.mode == ModeAuto {
		if r.isTTY {
			return ModeText
		}
		return ModeMarkdown
	}
	return r.mode
}

// IsTTY reports whether output goes to a terminal.
func (r *Renderer) IsTTY() bool { return r.isTTY }

// Out returns the output writer.
func (r *Renderer) Out() io.Writer { return r.out }

// Header prints a section title.
func (r *Renderer) Header(title string) {
	switch r.Mode() {
	case ModeJSON:
		return
	case ModeMarkdown:
		_, _ = fmt.Fprintf(r.out, "## %s\n\n", title)
	default:
		_, _ = fmt.Fprintln(r.out, r.style.NewStyle().Bold(true).Underline(true).Render(title))
	}
}

// Println prints a plain line. Suppressed in JSON mode.
func (r *Renderer) Println(a ...any) {
	if r.Mode() == ModeJSON {
		return
	}
	_, _ = fmt.Fprintln(r.out, a...)
}

// Success prints a confirmation line.
func (r *Renderer) Success(msg string) {
	r.status(msg, "2")
}

// Warning prints a warning to the error writer.
func (r *Renderer) Warning(msg string) {
	_, _ = fmt.Fprintln(r.errOut, r.style.NewStyle().Foreground(lipgloss.Color("3")).Render("warning: "+msg))
}

func (r *Renderer) status(msg, color string) {
	if r.Mode() == ModeJSON {
		return
	}
	_, _ = fmt.Fprintln(r.out, r.style.NewStyle().Foreground(lipgloss.Color(color)).Render(msg))
}

// Table prints rows under headers. In JSON mode each row becomes an object
// keyed by header.
func (r *Renderer) Table(headers []string, rows [][]string) error {
	if r.Mode() == ModeJSON {
		return r.JSON(tableObjects(headers, rows))
	}
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(r.out, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	t.AppendHeader(header)
	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, v := range row {
			tr[i] = v
		}
		t.AppendRow(tr)
	}

	if r.Mode() == ModeMarkdown {
		t.RenderMarkdown()
		_, _ = fmt.Fprintln(r.out)
		return nil
	}
	t.SetStyle(table.StyleLight)
	t.Render()
	_, _ = fmt.Fprintf(r.out, "(%d rows)\n", len(rows))
	return nil
}

// JSON prints v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Markdown prints markdown text as is, or with headings emphasised on a
// terminal.
func (r *Renderer) Markdown(text string) {
	if r.Mode() != ModeText {
		_, _ = fmt.Fprintln(r.out, text)
		return
	}
	heading := r.style.NewStyle().Bold(true)
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "#") {
			line = heading.Render(strings.TrimSpace(strings.TrimLeft(line, "#")))
		}
		_, _ = fmt.Fprintln(r.out, line)
	}
}

func tableObjects(headers []string, rows [][]string) []map[string]string {
	out := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		obj := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(row) {
				obj[h] = row[i]
			}
		}
		out = append(out, obj)
	}
	return out
}
