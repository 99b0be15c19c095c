package event

import (
	"gitlab.com/tinyland/lab/declui/pkg/command"
	"gitlab.com/tinyland/lab/declui/pkg/value"
)

// NewClick builds a click event.
func NewClick(src *command.Command, button string, mods Modifier, x, y int) *Event {
	return New(Clicked, src, map[string]value.Value{
		KeyButton:    value.Str(button),
		KeyModifiers: value.Int(int64(mods)),
		KeyX:         value.Int(int64(x)),
		KeyY:         value.Int(int64(y)),
	})
}

// NewValueChange builds a valueChanged event.
func NewValueChange(src *command.Command, old, next value.Value) *Event {
	return New(ValueChanged, src, map[string]value.Value{
		KeyOldValue: old,
		KeyNewValue: next,
	})
}

// NewTextChange builds a textChanged event.
func NewTextChange(src *command.Command, old, next string, cursor int) *Event {
	return New(TextChanged, src, map[string]value.Value{
		KeyOldText: value.Str(old),
		KeyNewText: value.Str(next),
		KeyCursor:  value.Int(int64(cursor)),
	})
}

// NewKey builds a keyPressed or keyReleased event.
func NewKey(src *command.Command, t Type, key string, mods Modifier, text string, autoRepeat bool) *Event {
	return New(t, src, map[string]value.Value{
		KeyKey:        value.Str(key),
		KeyModifiers:  value.Int(int64(mods)),
		KeyText:       value.Str(text),
		KeyAutoRepeat: value.Bool(autoRepeat),
	})
}

// NewValidation builds a validationPassed or validationFailed event.
func NewValidation(src *command.Command, passed bool, property string, v value.Value, message string) *Event {
	t := ValidationFailed
	if passed {
		t = ValidationPassed
	}
	return New(t, src, map[string]value.Value{
		KeyProperty: value.Str(property),
		KeyValue:    v,
		KeyMessage:  value.Str(message),
	})
}

// NewCustom builds an event of an application-defined type. customType is
// also stored in the payload so generic handlers can tell them apart.
func NewCustom(src *command.Command, customType string, data map[string]value.Value) *Event {
	e := New(Type(customType), src, data)
	e.Data[KeyCustomType] = value.Str(customType)
	return e
}

// Button returns the mouse button of a click event.
func (e *Event) Button() string { return value.As(e.Data[KeyButton], "left") }

// Modifiers returns the keyboard modifiers of a click or key event.
func (e *Event) Modifiers() Modifier { return Modifier(value.As(e.Data[KeyModifiers], 0)) }

// Position returns the pointer position of a click event.
func (e *Event) Position() (x, y int) {
	return value.As(e.Data[KeyX], 0), value.As(e.Data[KeyY], 0)
}

// OldValue returns the previous value of a valueChanged event.
func (e *Event) OldValue() value.Value { return e.Data[KeyOldValue] }

// NewValue returns the new value of a valueChanged event.
func (e *Event) NewValue() value.Value { return e.Data[KeyNewValue] }

// OldText returns the previous text of a textChanged event.
func (e *Event) OldText() string { return value.As(e.Data[KeyOldText], "") }

// NewText returns the new text of a textChanged event.
func (e *Event) NewText() string { return value.As(e.Data[KeyNewText], "") }

// CursorPosition returns the cursor offset of a textChanged event.
func (e *Event) CursorPosition() int { return value.As(e.Data[KeyCursor], 0) }

// Key returns the key name of a key event.
func (e *Event) Key() string { return value.As(e.Data[KeyKey], "") }

// Text returns the text produced by a key event.
func (e *Event) Text() string { return value.As(e.Data[KeyText], "") }

// AutoRepeat reports whether a key event was auto-repeated.
func (e *Event) AutoRepeat() bool { return value.As(e.Data[KeyAutoRepeat], false) }

// Property returns the property named by a validation event.
func (e *Event) Property() string { return value.As(e.Data[KeyProperty], "") }

// Value returns the candidate value of a validation event.
func (e *Event) Value() value.Value { return e.Data[KeyValue] }

// ErrorMessage returns the rejection reason of a validation event.
func (e *Event) ErrorMessage() string { return value.As(e.Data[KeyMessage], "") }

// CustomType returns the application-defined type of a custom event.
func (e *Event) CustomType() string { return value.As(e.Data[KeyCustomType], "") }
