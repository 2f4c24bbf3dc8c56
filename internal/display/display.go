// Package display renders designs and saved-design lists for the terminal.
package display

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"

	"github.com/manash/designgen/pkg/models"
)

type palette struct {
	heading lipgloss.Color
	label   lipgloss.Color
	muted   lipgloss.Color
	border  lipgloss.Color
}

var palettes = map[models.Theme]palette{
	models.ThemeDark:  {heading: "#7DD3FC", label: "#FBBF24", muted: "#9CA3AF", border: "#4B5563"},
	models.ThemeLight: {heading: "#1D4ED8", label: "#B45309", muted: "#6B7280", border: "#D1D5DB"},
}

// Printer writes human-readable output. Styling is only applied when the
// destination is a terminal and NO_COLOR is unset.
type Printer struct {
	out      io.Writer
	color    bool
	renderer *lipgloss.Renderer
	palette  palette
}

func New(out io.Writer) *Printer {
	p := &Printer{
		out:      out,
		color:    IsTerminal(out) && os.Getenv("NO_COLOR") == "",
		renderer: lipgloss.NewRenderer(out),
	}
	p.SetTheme(models.DefaultTheme)
	return p
}

// NewWithTerminal writes to out but detects color support on tty, for when
// out wraps a terminal.
func NewWithTerminal(out, tty io.Writer) *Printer {
	p := New(out)
	p.color = IsTerminal(tty) && os.Getenv("NO_COLOR") == ""
	p.renderer = lipgloss.NewRenderer(tty)
	return p
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

func (p *Printer) SetColor(enabled bool) {
	p.color = enabled
}

func (p *Printer) SetTheme(theme models.Theme) {
	pal, ok := palettes[theme]
	if !ok {
		pal = palettes[models.DefaultTheme]
	}
	p.palette = pal
}

func (p *Printer) Out() io.Writer {
	return p.out
}

func (p *Printer) style(color lipgloss.Color, bold bool, text string) string {
	if !p.color {
		return text
	}
	return p.renderer.NewStyle().Foreground(color).Bold(bold).Render(text)
}

func (p *Printer) Heading(text string) string {
	return p.style(p.palette.heading, true, text)
}

func (p *Printer) Muted(text string) string {
	return p.style(p.palette.muted, false, text)
}

func (p *Printer) label(text string) string {
	return p.style(p.palette.label, false, fmt.Sprintf("%-11s", text))
}

// swatch renders a small block in the given hex color followed by the code.
func (p *Printer) swatch(hex string) string {
	if hex == "" {
		return p.Muted("-")
	}
	if !p.color {
		return hex
	}
	return p.renderer.NewStyle().Foreground(lipgloss.Color(hex)).Render("██") + " " + hex
}

// Design prints a summary of d followed by its component table.
func (p *Printer) Design(d *models.Design) {
	if d == nil {
		fmt.Fprintln(p.out, p.Muted("No design yet. Try: generate a modern wooden dining table"))
		return
	}

	title := strings.ToUpper(d.Type.String())
	if d.Style != "" {
		title = fmt.Sprintf("%s (%s)", title, d.Style)
	}
	fmt.Fprintln(p.out, p.Heading(title))

	if d.ID != 0 {
		fmt.Fprintf(p.out, "%s %d\n", p.label("ID:"), d.ID)
	}
	if d.Prompt != "" {
		fmt.Fprintf(p.out, "%s %q\n", p.label("Prompt:"), d.Prompt)
	}
	fmt.Fprintf(p.out, "%s %s\n", p.label("Material:"), d.Material)
	fmt.Fprintf(p.out, "%s %s cm (W x H x D)\n", p.label("Dimensions:"), d.Dimensions)
	if d.Iteration > 0 {
		fmt.Fprintf(p.out, "%s %d\n", p.label("Iteration:"), d.Iteration)
	}
	fmt.Fprintf(p.out, "%s primary %s  secondary %s  accent %s\n",
		p.label("Colors:"), p.swatch(d.Colors.Primary), p.swatch(d.Colors.Secondary), p.swatch(d.Colors.Accent))

	if len(d.Improvements) > 0 {
		fmt.Fprintln(p.out, p.label("Changes:"))
		for _, imp := range d.Improvements {
			fmt.Fprintf(p.out, "  - %s\n", imp)
		}
	}

	if len(d.Components) > 0 {
		fmt.Fprintln(p.out, p.components(d.Components))
	}
}

func (p *Printer) components(components []models.Component) string {
	rows := make([][]string, 0, len(components))
	for _, c := range components {
		rows = append(rows, []string{c.Name, c.Shape, vec(c.Position), vec(c.Size), c.Color})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("COMPONENT", "SHAPE", "POSITION", "SIZE", "COLOR").
		Rows(rows...)
	if p.color {
		t = t.BorderStyle(p.renderer.NewStyle().Foreground(p.palette.border))
	}
	return t.Render()
}

func vec(v models.Vec3) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strings.Join(parts, ", ")
}

// JSON writes v as indented JSON.
func (p *Printer) JSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	_, err = fmt.Fprintln(p.out, string(data))
	return err
}

// SavedList prints saved designs with their 1-based positions.
func (p *Printer) SavedList(saved []models.SavedDesign) {
	if len(saved) == 0 {
		fmt.Fprintln(p.out, p.Muted("No saved designs."))
		return
	}

	rows := make([][]string, 0, len(saved))
	for i, sd := range saved {
		category := ""
		if sd.Spec != nil {
			category = sd.Spec.Type.String()
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			shortID(sd.ID),
			category,
			truncate(sd.Prompt, 40),
			sd.Timestamp.Local().Format("2006-01-02 15:04"),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "ID", "TYPE", "PROMPT", "SAVED").
		Rows(rows...)
	if p.color {
		t = t.BorderStyle(p.renderer.NewStyle().Foreground(p.palette.border))
	}
	fmt.Fprintln(p.out, t.Render())
}

func (p *Printer) Assets(assets []models.Asset) {
	if len(assets) == 0 {
		fmt.Fprintln(p.out, p.Muted("No assets."))
		return
	}
	for _, a := range assets {
		fmt.Fprintf(p.out, "  %-8s %s\n", a.Type, a.URL)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
