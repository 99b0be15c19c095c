package termkit

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"gitlab.com/tinyland/lab/declui/pkg/native"
	"gitlab.com/tinyland/lab/declui/pkg/value"
)

// Label shows read-only text.
type Label struct {
	native.Base
}

// NewLabel returns an empty label.
func NewLabel() *Label {
	l := &Label{}
	l.Init(l, ClassLabel, commonProps(
		native.PropertySpec{Name: "text", Kind: value.KindString, Default: value.Str("")},
		native.PropertySpec{Name: "wordWrap", Kind: value.KindBool, Default: value.Bool(false)},
		native.PropertySpec{Name: "alignment", Kind: value.KindString, Default: value.Str("left")},
	))
	l.AllowDynamic(true)
	return l
}

func (l *Label) Render(rc *RenderContext) string {
	text := strProp(l, "text")
	st := rc.Styles.Text
	if !enabled(l) {
		st = rc.Styles.Disabled
	}
	if rc.Width <= 0 {
		return st.Render(text)
	}
	if boolProp(l, "wordWrap", false) {
		text = ansi.Wrap(text, rc.Width, "")
	} else {
		lines := strings.Split(text, "\n")
		for i, ln := range lines {
			lines[i] = ansi.Truncate(ln, rc.Width, "…")
		}
		text = strings.Join(lines, "\n")
	}
	return st.Width(rc.Width).Align(alignment(strProp(l, "alignment"))).Render(text)
}

func alignment(s string) lipgloss.Position {
	switch strings.ToLower(s) {
	case "center", "centre":
		return lipgloss.Center
	case "right":
		return lipgloss.Right
	}
	return lipgloss.Left
}
