package termkit

import (
	tea "github.com/charmbracelet/bubbletea"

	"gitlab.com/tinyland/lab/declui/pkg/native"
	"gitlab.com/tinyland/lab/declui/pkg/value"
)

// Check is a check box or, when radio is set, a radio button. Radio
// buttons are exclusive among their siblings.
type Check struct {
	native.Base
	focusable

	radio bool
}

// NewCheckBox returns an unchecked check box.
func NewCheckBox() *Check { return newCheck(ClassCheckBox, false) }

// NewRadioButton returns an unchecked radio button.
func NewRadioButton() *Check { return newCheck(ClassRadioButton, true) }

func newCheck(class string, radio bool) *Check {
	c := &Check{focusable: newFocusable(), radio: radio}
	c.Init(c, class, commonProps(
		native.PropertySpec{Name: "text", Kind: value.KindString, Default: value.Str("")},
		native.PropertySpec{Name: "checked", Kind: value.KindBool, Default: value.Bool(false)},
	), "toggled", "clicked")
	c.AllowDynamic(true)
	return c
}

func (c *Check) HandleKey(tea.KeyMsg) bool { return false }

func (c *Check) Activate() {
	if !enabled(c) {
		return
	}
	checked := boolProp(c, "checked", false)
	if c.radio && checked {
		c.Emit("clicked", value.Bool(true))
		return
	}
	checked = !checked
	_ = c.Update("checked", value.Bool(checked))
	c.Emit("toggled", value.Bool(checked))
	if c.radio {
		c.uncheckSiblings()
	}
	c.Emit("clicked", value.Bool(checked))
}

func (c *Check) uncheckSiblings() {
	p := c.Parent()
	if p == nil {
		return
	}
	for _, w := range p.Children() {
		sib, ok := w.(*Check)
		if !ok || sib == c || !sib.radio || !boolProp(sib, "checked", false) {
			continue
		}
		_ = sib.Update("checked", value.Bool(false))
		sib.Emit("toggled", value.Bool(false))
	}
}

func (c *Check) Render(rc *RenderContext) string {
	mark := "[ ]"
	if c.radio {
		mark = "( )"
	}
	if boolProp(c, "checked", false) {
		mark = "[x]"
		if c.radio {
			mark = "(•)"
		}
	}
	text := strProp(c, "text")
	switch {
	case !enabled(c):
		return rc.Styles.Disabled.Render(mark + " " + text)
	case rc.IsFocused(c):
		return rc.Styles.Accent.Render(mark) + " " + rc.Styles.Text.Render(text)
	}
	return rc.Styles.Text.Render(mark + " " + text)
}
