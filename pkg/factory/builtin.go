package factory

import (
	"maps"

	"gitlab.com/tinyland/lab/declui/pkg/command"
	"gitlab.com/tinyland/lab/declui/pkg/event"
	"gitlab.com/tinyland/lab/declui/pkg/mapper"
)

func commonDefaults(extra map[string]any) map[string]any {
	d := map[string]any{
		"enabled": true,
		"visible": true,
	}
	maps.Copy(d, extra)
	return d
}

func events(ts ...event.Type) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = string(t)
	}
	return out
}

// Builtin returns the metadata of the standard widget families. Every
// type has a builtin widget mapping.
func Builtin() []command.Metadata {
	return []command.Metadata{
		{
			Type:        mapper.TypeButton,
			WidgetClass: mapper.ClassPushButton,
			DisplayName: "Button",
			Description: "Push button that reports clicks.",
			Defaults:    commonDefaults(map[string]any{"text": "", "checkable": false}),
			Events:      events(event.Clicked, event.Pressed, event.Released, event.Toggled),
		},
		{
			Type:        mapper.TypeLabel,
			WidgetClass: mapper.ClassLabel,
			DisplayName: "Label",
			Description: "Read-only text.",
			Defaults:    commonDefaults(map[string]any{"text": "", "wordWrap": false}),
		},
		{
			Type:        mapper.TypeTextInput,
			WidgetClass: mapper.ClassLineEdit,
			DisplayName: "Text input",
			Description: "Single-line editable text.",
			Defaults:    commonDefaults(map[string]any{"text": "", "placeholder": "", "readOnly": false}),
			Events:      events(event.TextChanged, "returnPressed", "editingFinished"),
		},
		{
			Type:        mapper.TypeCheckBox,
			WidgetClass: mapper.ClassCheckBox,
			DisplayName: "Check box",
			Description: "Two-state toggle with a caption.",
			Defaults:    commonDefaults(map[string]any{"text": "", mapper.KeyChecked: false}),
			Events:      events(event.Toggled, event.Clicked),
		},
		{
			Type:        mapper.TypeRadioButton,
			WidgetClass: mapper.ClassRadioButton,
			DisplayName: "Radio button",
			Description: "Toggle that is exclusive among its siblings.",
			Defaults:    commonDefaults(map[string]any{"text": "", mapper.KeyChecked: false}),
			Events:      events(event.Toggled, event.Clicked),
		},
		{
			Type:        mapper.TypeSlider,
			WidgetClass: mapper.ClassSlider,
			DisplayName: "Slider",
			Description: "Integer picked along a track.",
			Defaults:    commonDefaults(map[string]any{"value": 0, "minimum": 0, "maximum": 100, "singleStep": 1}),
			Events:      events(event.ValueChanged, event.Pressed, event.Released, "sliderMoved"),
		},
		{
			Type:        mapper.TypeSpinBox,
			WidgetClass: mapper.ClassSpinBox,
			DisplayName: "Spin box",
			Description: "Integer stepped up and down.",
			Defaults:    commonDefaults(map[string]any{"value": 0, "minimum": 0, "maximum": 99, "singleStep": 1}),
			Events:      events(event.ValueChanged),
		},
		{
			Type:        mapper.TypeProgressBar,
			WidgetClass: mapper.ClassProgressBar,
			DisplayName: "Progress bar",
			Description: "Read-only gauge.",
			Defaults:    commonDefaults(map[string]any{"value": 0, "minimum": 0, "maximum": 100}),
		},
		{
			Type:        mapper.TypeComboBox,
			WidgetClass: mapper.ClassComboBox,
			DisplayName: "Combo box",
			Description: "One choice out of a list.",
			Defaults:    commonDefaults(map[string]any{"currentIndex": -1}),
			Events:      events(event.SelectionChanged),
			Required:    []string{"items"},
		},
		{
			Type:        mapper.TypeContainer,
			WidgetClass: mapper.ClassContainer,
			DisplayName: "Container",
			Description: "Lays its children out in a row or a column.",
			Defaults:    commonDefaults(map[string]any{"orientation": "vertical", "spacing": 0}),
		},
		{
			Type:        mapper.TypeGroupBox,
			WidgetClass: mapper.ClassGroupBox,
			DisplayName: "Group box",
			Description: "Titled frame around its children.",
			Defaults:    commonDefaults(map[string]any{"title": "", "checkable": false}),
			Events:      events(event.Toggled),
		},
	}
}
