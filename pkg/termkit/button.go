package termkit

import (
	tea "github.com/charmbracelet/bubbletea"

	"gitlab.com/tinyland/lab/declui/pkg/native"
	"gitlab.com/tinyland/lab/declui/pkg/value"
)

// PushButton is a clickable, optionally checkable button.
type PushButton struct {
	native.Base
	focusable
}

// NewPushButton returns a button with an empty label.
func NewPushButton() *PushButton {
	b := &PushButton{focusable: newFocusable()}
	b.Init(b, ClassPushButton, commonProps(
		native.PropertySpec{Name: "text", Kind: value.KindString, Default: value.Str("")},
		native.PropertySpec{Name: "checkable", Kind: value.KindBool, Default: value.Bool(false)},
		native.PropertySpec{Name: "checked", Kind: value.KindBool, Default: value.Bool(false)},
	), "clicked", "pressed", "released", "toggled")
	b.AllowDynamic(true)
	return b
}

func (b *PushButton) HandleKey(tea.KeyMsg) bool { return false }

// Activate runs the press, release and click sequence. Checkable buttons
// flip their check state before the click.
func (b *PushButton) Activate() {
	if !enabled(b) {
		return
	}
	b.Emit("pressed")
	checked := boolProp(b, "checked", false)
	if boolProp(b, "checkable", false) {
		checked = !checked
		_ = b.Update("checked", value.Bool(checked))
		b.Emit("toggled", value.Bool(checked))
	}
	b.Emit("released")
	b.Emit("clicked", value.Bool(checked))
}

func (b *PushButton) Render(rc *RenderContext) string {
	label := strProp(b, "text")
	if boolProp(b, "checkable", false) && boolProp(b, "checked", false) {
		label = "● " + label
	}
	switch {
	case !enabled(b):
		return rc.Styles.Disabled.Render("[" + label + "]")
	case rc.IsFocused(b):
		return rc.Styles.ButtonFocus.Render(label)
	}
	return rc.Styles.Button.Render(label)
}
