package termkit

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"gitlab.com/tinyland/lab/declui/pkg/native"
	"gitlab.com/tinyland/lab/declui/pkg/value"
)

// Container lays its children out in a row or a column.
type Container struct {
	native.Base
}

// NewContainer returns a vertical container.
func NewContainer() *Container {
	c := &Container{}
	c.Init(c, ClassContainer, commonProps(
		native.PropertySpec{Name: "orientation", Kind: value.KindString, Default: value.Str("vertical")},
		native.PropertySpec{Name: "spacing", Kind: value.KindInt, Default: value.Int(0)},
		native.PropertySpec{Name: "margins", Kind: value.KindInt, Default: value.Int(0)},
	))
	c.AllowDynamic(true)
	return c
}

func (c *Container) Render(rc *RenderContext) string {
	body := joinChildren(rc, c.Children(), strProp(c, "orientation"), intProp(c, "spacing", 0))
	if m := intProp(c, "margins", 0); m > 0 {
		return lipgloss.NewStyle().Margin(m).Render(body)
	}
	return body
}

func joinChildren(rc *RenderContext, children []native.Widget, orientation string, spacing int) string {
	var parts []string
	for _, ch := range children {
		if s := rc.Child(ch); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	horizontal := strings.EqualFold(orientation, "horizontal")
	if spacing > 0 {
		gap := strings.Repeat("\n", spacing-1)
		if horizontal {
			gap = strings.Repeat(" ", spacing)
		}
		spaced := make([]string, 0, 2*len(parts)-1)
		for i, p := range parts {
			if i > 0 {
				spaced = append(spaced, gap)
			}
			spaced = append(spaced, p)
		}
		parts = spaced
	}
	if horizontal {
		return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// GroupBox frames its children under a title and may be checkable.
type GroupBox struct {
	native.Base
	focusable
}

// NewGroupBox returns an untitled, non-checkable group.
func NewGroupBox() *GroupBox {
	g := &GroupBox{focusable: newFocusable()}
	g.Init(g, ClassGroupBox, commonProps(
		native.PropertySpec{Name: "title", Kind: value.KindString, Default: value.Str("")},
		native.PropertySpec{Name: "checkable", Kind: value.KindBool, Default: value.Bool(false)},
		native.PropertySpec{Name: "checked", Kind: value.KindBool, Default: value.Bool(true)},
	), "toggled")
	g.AllowDynamic(true)
	return g
}

// CanFocus is true only for checkable groups.
func (g *GroupBox) CanFocus() bool { return boolProp(g, "checkable", false) }

func (g *GroupBox) HandleKey(tea.KeyMsg) bool { return false }

func (g *GroupBox) Activate() {
	if !enabled(g) || !g.CanFocus() {
		return
	}
	checked := !boolProp(g, "checked", true)
	_ = g.Update("checked", value.Bool(checked))
	g.Emit("toggled", value.Bool(checked))
}

func (g *GroupBox) Render(rc *RenderContext) string {
	title := strProp(g, "title")
	if g.CanFocus() {
		mark := "[ ] "
		if boolProp(g, "checked", true) {
			mark = "[x] "
		}
		title = mark + title
	}
	body := joinChildren(rc, g.Children(), "vertical", 0)
	st := rc.Styles.Group
	if rc.IsFocused(g) {
		st = rc.Styles.GroupFocus
	}
	head := rc.Styles.GroupTitle.Render(title)
	if body == "" {
		return st.Render(head)
	}
	return st.Render(lipgloss.JoinVertical(lipgloss.Left, head, body))
}
