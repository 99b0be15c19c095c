package termkit

import (
	tea "github.com/charmbracelet/bubbletea"

	"gitlab.com/tinyland/lab/declui/pkg/native"
	"gitlab.com/tinyland/lab/declui/pkg/value"
)

// ComboBox selects one entry of a list of strings.
type ComboBox struct {
	native.Base
	focusable
}

// NewComboBox returns an empty combo box with no selection.
func NewComboBox() *ComboBox {
	c := &ComboBox{focusable: newFocusable()}
	c.Init(c, ClassComboBox, commonProps(
		native.PropertySpec{Name: "items", Kind: value.KindList, Default: value.List()},
		native.PropertySpec{Name: "currentIndex", Kind: value.KindInt, Default: value.Int(-1)},
		native.PropertySpec{Name: "currentText", Kind: value.KindString, Default: value.Str("")},
	), "currentIndexChanged")
	c.AllowDynamic(true)
	c.OnChange = c.propertyChanged
	return c
}

// Items returns the entries as strings.
func (c *ComboBox) Items() []string {
	v, _ := c.Property("items")
	out := make([]string, 0, v.Len())
	for _, it := range v.Items() {
		out = append(out, it.String())
	}
	return out
}

// propertyChanged keeps currentIndex and currentText consistent.
func (c *ComboBox) propertyChanged(name string, v value.Value) {
	items := c.Items()
	idx := intProp(c, "currentIndex", -1)
	switch name {
	case "items":
		switch {
		case len(items) == 0:
			c.selectIndex(-1, items)
		case idx < 0 || idx >= len(items):
			c.selectIndex(0, items)
		default:
			c.selectIndex(idx, items)
		}
	case "currentIndex":
		if idx < -1 || idx >= len(items) {
			idx = -1
		}
		c.selectIndex(idx, items)
	case "currentText":
		want := value.As(v, "")
		for i, it := range items {
			if it == want {
				c.selectIndex(i, items)
				return
			}
		}
		c.selectIndex(idx, items)
	}
}

func (c *ComboBox) selectIndex(i int, items []string) {
	text := ""
	if i >= 0 && i < len(items) {
		text = items[i]
	}
	_ = c.Update("currentIndex", value.Int(int64(i)))
	_ = c.Update("currentText", value.Str(text))
}

func (c *ComboBox) setByUser(i int) {
	items := c.Items()
	if len(items) == 0 {
		return
	}
	i = (i + len(items)) % len(items)
	if i == intProp(c, "currentIndex", -1) {
		return
	}
	c.selectIndex(i, items)
	c.Emit("currentIndexChanged", value.Int(int64(i)))
}

func (c *ComboBox) HandleKey(msg tea.KeyMsg) bool {
	if !enabled(c) {
		return false
	}
	switch msg.Type {
	case tea.KeyDown, tea.KeyRight:
		c.setByUser(intProp(c, "currentIndex", -1) + 1)
	case tea.KeyUp, tea.KeyLeft:
		c.setByUser(intProp(c, "currentIndex", -1) - 1)
	default:
		return false
	}
	return true
}

// Activate selects the next entry, wrapping around.
func (c *ComboBox) Activate() {
	if enabled(c) {
		c.setByUser(intProp(c, "currentIndex", -1) + 1)
	}
}

func (c *ComboBox) Render(rc *RenderContext) string {
	text := strProp(c, "currentText")
	switch {
	case !enabled(c):
		return rc.Styles.Disabled.Render("‹ " + text + " ›")
	case rc.IsFocused(c):
		return rc.Styles.Accent.Render("‹") + " " + rc.Styles.Text.Render(text) + " " + rc.Styles.Accent.Render("›")
	}
	return rc.Styles.Text.Render("‹ " + text + " ›")
}
