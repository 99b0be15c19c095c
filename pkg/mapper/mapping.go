// Package mapper pairs commands with native widgets. It is the only
// component that creates widgets for commands or writes a command's widget
// pointer. It projects state onto widgets, forwards widget signals as
// typed events and tears the pairing down in a fixed order.
package mapper

import (
	"fmt"

	"gitlab.com/tinyland/lab/declui/pkg/command"
	"gitlab.com/tinyland/lab/declui/pkg/event"
	"gitlab.com/tinyland/lab/declui/pkg/native"
	"gitlab.com/tinyland/lab/declui/pkg/value"
)

// Converter transforms a value on its way to or from the widget.
type Converter func(v value.Value) (value.Value, error)

// ProjectFunc writes a command value to the widget.
type ProjectFunc func(w native.Widget, v value.Value) error

// ExtractFunc reads a value from the widget.
type ExtractFunc func(w native.Widget) (value.Value, error)

// PropertyMapping links one command property to the widget.
type PropertyMapping struct {
	Property string
	// WidgetProperty defaults to Property.
	WidgetProperty string
	// Bidirectional properties are extracted back on detach and on
	// SyncFromWidget without explicit names.
	Bidirectional bool
	ToWidget      Converter
	FromWidget    Converter
	// Project and Extract replace the reflective widget access.
	Project ProjectFunc
	Extract ExtractFunc
}

func (p PropertyMapping) widgetProperty() string {
	if p.WidgetProperty != "" {
		return p.WidgetProperty
	}
	return p.Property
}

func (p PropertyMapping) project(w native.Widget, v value.Value) error {
	if p.ToWidget != nil {
		cv, err := p.ToWidget(v)
		if err != nil {
			return err
		}
		v = cv
	}
	if p.Project != nil {
		return p.Project(w, v)
	}
	return w.SetProperty(p.widgetProperty(), v)
}

// extract returns the invalid value when the widget has nothing to report.
func (p PropertyMapping) extract(w native.Widget) (value.Value, error) {
	var (
		v   value.Value
		err error
	)
	if p.Extract != nil {
		v, err = p.Extract(w)
		if err != nil {
			return value.Value{}, err
		}
	} else {
		var ok bool
		v, ok = w.Property(p.widgetProperty())
		if !ok {
			return value.Value{}, nil
		}
	}
	if p.FromWidget != nil {
		return p.FromWidget(v)
	}
	return v, nil
}

// FireContext is passed to EventWiring.Build when a signal fires.
type FireContext struct {
	Command *command.Command
	Widget  native.Widget
	Args    []value.Value
	// Previous holds the values of the synced properties before the
	// signal's extraction ran.
	Previous map[string]value.Value
}

// EventWiring forwards one widget signal as a typed event.
type EventWiring struct {
	Signal string
	Event  event.Type
	// Sync lists command properties extracted from the widget before the
	// event is built.
	Sync []string
	// Build produces the event payload. Nil uses DefaultPayload.
	Build func(ctx FireContext) map[string]value.Value
}

// DefaultPayload stores signal arguments as arg0, arg1, ...
func DefaultPayload(ctx FireContext) map[string]value.Value {
	out := make(map[string]value.Value, len(ctx.Args))
	for i, a := range ctx.Args {
		out[fmt.Sprintf("arg%d", i)] = a
	}
	return out
}

// Mapping is the registry entry for one logical command type.
type Mapping struct {
	Type  string
	Class string
	// Factory builds the widget. Nil asks the mapper's toolkit for Class.
	Factory    func() (native.Widget, error)
	Properties []PropertyMapping
	Events     []EventWiring
	// Setup runs after the widget exists and before projection.
	Setup func(c *command.Command, w native.Widget) error
}

func (m *Mapping) property(name string) (PropertyMapping, bool) {
	for _, p := range m.Properties {
		if p.Property == name {
			return p, true
		}
	}
	return PropertyMapping{}, false
}
