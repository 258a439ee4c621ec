package cli

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/asynkron/gopatch/pkg/patch"
)

type palette struct {
	plain  bool
	plus   lipgloss.Style
	minus  lipgloss.Style
	status map[string]lipgloss.Style
	fail   lipgloss.Style
}

// newPalette builds styles bound to w. "auto" lets termenv inspect w, so
// pipes and files get plain text.
func newPalette(w io.Writer, mode string) palette {
	r := lipgloss.NewRenderer(w)
	switch mode {
	case "always":
		r.SetColorProfile(termenv.ANSI)
	case "never":
		r.SetColorProfile(termenv.Ascii)
	}

	green := r.NewStyle().Foreground(lipgloss.Color("2"))
	red := r.NewStyle().Foreground(lipgloss.Color("1"))
	return palette{
		plain: r.ColorProfile() == termenv.Ascii,
		plus:  green,
		minus: red,
		status: map[string]lipgloss.Style{
			"A": green.Bold(true),
			"M": r.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
			"D": red.Bold(true),
		},
		fail: red.Bold(true),
	}
}

func (p palette) render(style lipgloss.Style, text string) string {
	if p.plain || text == "" {
		return text
	}
	return style.Render(text)
}

func (p palette) bars() patch.BarStyle {
	return func(plus, minus string) string {
		return p.render(p.plus, plus) + p.render(p.minus, minus)
	}
}

func (p palette) result(res patch.Result) string {
	style, ok := p.status[res.Status]
	if !ok {
		return res.Status + " " + res.Path
	}
	return p.render(style, res.Status) + " " + res.Path
}

func (p palette) applicability(a patch.Applicability) string {
	switch a {
	case patch.Applicable:
		return p.render(p.plus, a.String())
	case patch.NotApplicable:
		return p.render(p.fail, a.String())
	}
	return a.String()
}
