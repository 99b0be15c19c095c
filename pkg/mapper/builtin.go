package mapper

import (
	"slices"

	"gitlab.com/tinyland/lab/declui/pkg/event"
	"gitlab.com/tinyland/lab/declui/pkg/value"
)

// Widget classes the builtin mappings ask the toolkit for.
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

// Logical command types with a builtin mapping.
const (
	TypeButton      = "Button"
	TypeLabel       = "Label"
	TypeTextInput   = "TextInput"
	TypeCheckBox    = "CheckBox"
	TypeRadioButton = "RadioButton"
	TypeSlider      = "Slider"
	TypeSpinBox     = "SpinBox"
	TypeProgressBar = "ProgressBar"
	TypeComboBox    = "ComboBox"
	TypeContainer   = "Container"
	TypeGroupBox    = "GroupBox"
)

// KeyChecked carries the check state in toggled and clicked payloads.
const KeyChecked = "checked"

func common() []PropertyMapping {
	return []PropertyMapping{
		{Property: "enabled"},
		{Property: "visible"},
		{Property: "tooltip", WidgetProperty: "toolTip"},
		{Property: "style", WidgetProperty: "styleSheet"},
	}
}

func props(extra ...PropertyMapping) []PropertyMapping {
	return append(extra, common()...)
}

func clickPayload(ctx FireContext) map[string]value.Value {
	out := map[string]value.Value{
		event.KeyButton:    value.Str("left"),
		event.KeyModifiers: value.Int(0),
		event.KeyX:         value.Int(0),
		event.KeyY:         value.Int(0),
	}
	if len(ctx.Args) > 0 {
		out[KeyChecked] = value.Bool(value.As(ctx.Args[0], false))
	}
	return out
}

func emptyPayload(FireContext) map[string]value.Value {
	return map[string]value.Value{}
}

// changePayload reports the old and new value of prop around a signal.
func changePayload(prop string) func(FireContext) map[string]value.Value {
	return func(ctx FireContext) map[string]value.Value {
		cur, _ := ctx.Command.State().Value(prop)
		return map[string]value.Value{
			event.KeyOldValue: ctx.Previous[prop],
			event.KeyNewValue: cur,
		}
	}
}

func togglePayload(ctx FireContext) map[string]value.Value {
	out := changePayload(KeyChecked)(ctx)
	out[KeyChecked] = value.Bool(ctx.Command.State().Bool(KeyChecked, false))
	return out
}

func textPayload(ctx FireContext) map[string]value.Value {
	cursor, _ := ctx.Widget.Property("cursorPosition")
	text := ctx.Command.State().String("text", "")
	return map[string]value.Value{
		event.KeyOldText: value.Str(value.As(ctx.Previous["text"], "")),
		event.KeyNewText: value.Str(text),
		event.KeyCursor:  value.Int(int64(value.As(cursor, len([]rune(text))))),
	}
}

func selectionPayload(ctx FireContext) map[string]value.Value {
	out := changePayload("currentIndex")(ctx)
	out[event.KeyText] = value.Str(ctx.Command.State().String("currentText", ""))
	return out
}

// custom forwards a signal under its own event name.
func custom(signal string, sync ...string) EventWiring {
	return EventWiring{
		Signal: signal,
		Event:  event.Type(signal),
		Sync:   sync,
		Build: func(ctx FireContext) map[string]value.Value {
			out := DefaultPayload(ctx)
			out[event.KeyCustomType] = value.Str(signal)
			return out
		},
	}
}

func checkable(class, typ string) Mapping {
	return Mapping{
		Type:  typ,
		Class: class,
		Properties: props(
			PropertyMapping{Property: "text"},
			PropertyMapping{Property: KeyChecked, Bidirectional: true},
		),
		Events: []EventWiring{
			{Signal: "toggled", Event: event.Toggled, Sync: []string{KeyChecked}, Build: togglePayload},
			{Signal: "clicked", Event: event.Clicked, Sync: []string{KeyChecked}, Build: clickPayload},
		},
	}
}

func ranged(class, typ string, extra ...PropertyMapping) Mapping {
	p := append([]PropertyMapping{
		{Property: "value", Bidirectional: true},
		{Property: "minimum"},
		{Property: "maximum"},
		{Property: "singleStep"},
	}, extra...)
	return Mapping{
		Type:       typ,
		Class:      class,
		Properties: props(p...),
		Events: []EventWiring{
			{Signal: "valueChanged", Event: event.ValueChanged, Sync: []string{"value"}, Build: changePayload("value")},
		},
	}
}

// Builtin returns the mappings for the standard widget families.
func Builtin() []Mapping {
	slider := ranged(ClassSlider, TypeSlider,
		PropertyMapping{Property: "pageStep"},
		PropertyMapping{Property: "orientation"},
	)
	slider.Events = append(slider.Events,
		EventWiring{Signal: "sliderPressed", Event: event.Pressed, Build: emptyPayload},
		EventWiring{Signal: "sliderReleased", Event: event.Released, Sync: []string{"value"}, Build: changePayload("value")},
		custom("sliderMoved"),
	)

	spin := ranged(ClassSpinBox, TypeSpinBox,
		PropertyMapping{Property: "prefix"},
		PropertyMapping{Property: "suffix"},
	)

	return []Mapping{
		{
			Type:  TypeButton,
			Class: ClassPushButton,
			Properties: props(
				PropertyMapping{Property: "text"},
				PropertyMapping{Property: "checkable"},
				PropertyMapping{Property: KeyChecked, Bidirectional: true},
			),
			Events: []EventWiring{
				{Signal: "clicked", Event: event.Clicked, Sync: []string{KeyChecked}, Build: clickPayload},
				{Signal: "pressed", Event: event.Pressed, Build: emptyPayload},
				{Signal: "released", Event: event.Released, Build: emptyPayload},
				{Signal: "toggled", Event: event.Toggled, Sync: []string{KeyChecked}, Build: togglePayload},
			},
		},
		{
			Type:  TypeLabel,
			Class: ClassLabel,
			Properties: props(
				PropertyMapping{Property: "text"},
				PropertyMapping{Property: "wordWrap"},
				PropertyMapping{Property: "alignment"},
			),
		},
		{
			Type:  TypeTextInput,
			Class: ClassLineEdit,
			Properties: props(
				PropertyMapping{Property: "text", Bidirectional: true},
				PropertyMapping{Property: "placeholder", WidgetProperty: "placeholderText"},
				PropertyMapping{Property: "readOnly"},
				PropertyMapping{Property: "maxLength"},
				PropertyMapping{Property: "echoMode"},
			),
			Events: []EventWiring{
				{Signal: "textChanged", Event: event.TextChanged, Sync: []string{"text"}, Build: textPayload},
				custom("returnPressed", "text"),
				custom("editingFinished", "text"),
			},
		},
		checkable(ClassCheckBox, TypeCheckBox),
		checkable(ClassRadioButton, TypeRadioButton),
		slider,
		spin,
		{
			Type:  TypeProgressBar,
			Class: ClassProgressBar,
			Properties: props(
				PropertyMapping{Property: "value"},
				PropertyMapping{Property: "minimum"},
				PropertyMapping{Property: "maximum"},
				PropertyMapping{Property: "textVisible"},
				PropertyMapping{Property: "format"},
			),
		},
		{
			Type:  TypeComboBox,
			Class: ClassComboBox,
			Properties: props(
				PropertyMapping{Property: "items"},
				PropertyMapping{Property: "currentIndex", Bidirectional: true},
				PropertyMapping{Property: "currentText", Bidirectional: true},
			),
			Events: []EventWiring{
				{Signal: "currentIndexChanged", Event: event.SelectionChanged, Sync: []string{"currentIndex", "currentText"}, Build: selectionPayload},
			},
		},
		{
			Type:  TypeContainer,
			Class: ClassContainer,
			Properties: props(
				PropertyMapping{Property: "orientation"},
				PropertyMapping{Property: "spacing"},
				PropertyMapping{Property: "margins"},
			),
		},
		{
			Type:  TypeGroupBox,
			Class: ClassGroupBox,
			Properties: props(
				PropertyMapping{Property: "title"},
				PropertyMapping{Property: "checkable"},
				PropertyMapping{Property: KeyChecked, Bidirectional: true},
			),
			Events: []EventWiring{
				{Signal: "toggled", Event: event.Toggled, Sync: []string{KeyChecked}, Build: togglePayload},
			},
		},
	}
}

// BuiltinTypes returns the logical types covered by Builtin.
func BuiltinTypes() []string {
	var out []string
	for _, m := range Builtin() {
		out = append(out, m.Type)
	}
	slices.Sort(out)
	return out
}
