package termkit

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"gitlab.com/tinyland/lab/declui/pkg/native"
	"gitlab.com/tinyland/lab/declui/pkg/value"
)

// DefaultMaxLength is the maxLength of a fresh LineEdit.
const DefaultMaxLength = 32767

// LineEdit is a single-line text field backed by a bubbles text input.
type LineEdit struct {
	native.Base
	focusable

	input textinput.Model
}

// NewLineEdit returns an empty, editable field.
func NewLineEdit() *LineEdit {
	l := &LineEdit{focusable: newFocusable(), input: textinput.New()}
	l.input.Prompt = ""
	l.input.CharLimit = DefaultMaxLength
	l.Init(l, ClassLineEdit, commonProps(
		native.PropertySpec{Name: "text", Kind: value.KindString, Default: value.Str("")},
		native.PropertySpec{Name: "placeholderText", Kind: value.KindString, Default: value.Str("")},
		native.PropertySpec{Name: "readOnly", Kind: value.KindBool, Default: value.Bool(false)},
		native.PropertySpec{Name: "maxLength", Kind: value.KindInt, Default: value.Int(DefaultMaxLength)},
		native.PropertySpec{Name: "echoMode", Kind: value.KindString, Default: value.Str("normal")},
		native.PropertySpec{Name: "cursorPosition", Kind: value.KindInt, Default: value.Int(0)},
	), "textChanged", "returnPressed", "editingFinished")
	l.AllowDynamic(true)
	l.OnChange = l.propertyChanged
	return l
}

// propertyChanged keeps the text input model in step with programmatic
// property writes.
func (l *LineEdit) propertyChanged(name string, v value.Value) {
	switch name {
	case "text":
		s := value.As(v, "")
		if l.input.Value() != s {
			l.input.SetValue(s)
			_ = l.Update("cursorPosition", value.Int(int64(l.input.Position())))
		}
	case "placeholderText":
		l.input.Placeholder = value.As(v, "")
	case "maxLength":
		l.input.CharLimit = value.As(v, DefaultMaxLength)
	case "echoMode":
		l.input.EchoMode = echoMode(value.As(v, "normal"))
	case "cursorPosition":
		if p := value.As(v, 0); p != l.input.Position() {
			l.input.SetCursor(p)
		}
	}
}

func echoMode(s string) textinput.EchoMode {
	switch strings.ToLower(s) {
	case "password":
		return textinput.EchoPassword
	case "noecho", "none":
		return textinput.EchoNone
	}
	return textinput.EchoNormal
}

// SetFocused moves the text cursor in or out. Losing focus finishes
// editing.
func (l *LineEdit) SetFocused(focused bool) {
	was := l.focused
	l.focused = focused
	if focused {
		l.input.Focus()
		return
	}
	l.input.Blur()
	if was {
		l.Emit("editingFinished")
	}
}

func (l *LineEdit) HandleKey(msg tea.KeyMsg) bool {
	if !enabled(l) {
		return false
	}
	if msg.Type == tea.KeyEnter {
		l.Emit("returnPressed")
		l.Emit("editingFinished")
		return true
	}
	if boolProp(l, "readOnly", false) {
		return false
	}
	if !l.input.Focused() {
		l.input.Focus()
	}
	before := l.input.Value()
	l.input, _ = l.input.Update(msg)
	_ = l.Update("cursorPosition", value.Int(int64(l.input.Position())))
	if after := l.input.Value(); after != before {
		_ = l.Update("text", value.Str(after))
		l.Emit("textChanged", value.Str(after))
	}
	return true
}

func (l *LineEdit) Activate() {}

func (l *LineEdit) Render(rc *RenderContext) string {
	if rc.Width > 0 {
		l.input.Width = rc.Width
	}
	view := l.input.View()
	switch {
	case !enabled(l):
		return rc.Styles.Disabled.Render(view)
	case rc.IsFocused(l):
		return rc.Styles.InputFocus.Render(view)
	}
	return rc.Styles.Input.Render(view)
}
