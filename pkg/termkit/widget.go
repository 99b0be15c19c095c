// Package termkit is a retained-mode terminal widget toolkit. Widgets keep
// their own properties and emit signals on user interaction only; a Host
// renders a widget tree with lipgloss and routes bubbletea input to it.
package termkit

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	zone "github.com/lrstanley/bubblezone"

	"gitlab.com/tinyland/lab/declui/pkg/native"
	"gitlab.com/tinyland/lab/declui/pkg/theme"
	"gitlab.com/tinyland/lab/declui/pkg/value"
)

// Widget classes provided by Toolkit.
const (
	ClassPushButton  = "PushButton"
	ClassLabel       = "Label"
	ClassLineEdit    = "LineEdit"
	ClassCheckBox    = "CheckBox"
	ClassRadioButton = "RadioButton"
	ClassSlider      = "Slider"
	ClassSpinBox     = "SpinBox"
	ClassProgressBar = "ProgressBar"
	ClassComboBox    = "ComboBox"
	ClassContainer   = "Container"
	ClassGroupBox    = "GroupBox"
)

// Element is a widget the host can draw.
type Element interface {
	native.Widget
	Render(rc *RenderContext) string
}

// Interactive is an Element that takes focus, keys and clicks.
type Interactive interface {
	Element
	ZoneID() string
	CanFocus() bool
	SetFocused(focused bool)
	// HandleKey reports whether the key was consumed.
	HandleKey(msg tea.KeyMsg) bool
	// Activate is a click or the activation key.
	Activate()
}

// RenderContext carries per-frame rendering state down the tree.
type RenderContext struct {
	Styles  theme.Styles
	Focused native.Widget
	// Width is the available width in cells; zero means unconstrained.
	Width int

	zones *zone.Manager
}

// NewRenderContext returns a context without mouse zones.
func NewRenderContext(st theme.Styles, width int) *RenderContext {
	return &RenderContext{Styles: st, Width: width}
}

// Child renders w, or returns "" when it is hidden or cannot be drawn.
func (rc *RenderContext) Child(w native.Widget) string {
	e, ok := w.(Element)
	if !ok || w.Disposed() || !boolProp(w, "visible", true) {
		return ""
	}
	s := e.Render(rc)
	if in, ok := e.(Interactive); ok && rc.zones != nil {
		s = rc.zones.Mark(in.ZoneID(), s)
	}
	return s
}

// IsFocused reports whether w has keyboard focus.
func (rc *RenderContext) IsFocused(w native.Widget) bool {
	return rc.Focused != nil && rc.Focused == w
}

// focusable holds the focus bookkeeping shared by interactive widgets.
type focusable struct {
	zoneID  string
	focused bool
}

func newFocusable() focusable { return focusable{zoneID: uuid.NewString()} }

func (f *focusable) ZoneID() string          { return f.zoneID }
func (f *focusable) CanFocus() bool          { return true }
func (f *focusable) SetFocused(focused bool) { f.focused = focused }

func commonProps(extra ...native.PropertySpec) []native.PropertySpec {
	return append([]native.PropertySpec{
		{Name: "enabled", Kind: value.KindBool, Default: value.Bool(true)},
		{Name: "visible", Kind: value.KindBool, Default: value.Bool(true)},
		{Name: "toolTip", Kind: value.KindString, Default: value.Str("")},
		{Name: "styleSheet", Kind: value.KindString, Default: value.Str("")},
	}, extra...)
}

func boolProp(w native.Widget, name string, def bool) bool {
	v, _ := w.Property(name)
	return value.As(v, def)
}

func intProp(w native.Widget, name string, def int) int {
	v, _ := w.Property(name)
	return value.As(v, def)
}

func strProp(w native.Widget, name string) string {
	v, _ := w.Property(name)
	return value.As(v, "")
}

func enabled(w native.Widget) bool { return boolProp(w, "enabled", true) }
