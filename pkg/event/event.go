// Package event defines the typed UI event and the dispatcher that routes
// events to handlers registered per command and event type.
package event

import (
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"

	"gitlab.com/tinyland/lab/declui/pkg/command"
	"gitlab.com/tinyland/lab/declui/pkg/value"
)

// Type names an event. Any string is a valid custom type.
type Type string

const (
	Clicked          Type = "clicked"
	DoubleClicked    Type = "doubleClicked"
	Pressed          Type = "pressed"
	Released         Type = "released"
	Toggled          Type = "toggled"
	ValueChanged     Type = "valueChanged"
	TextChanged      Type = "textChanged"
	SelectionChanged Type = "selectionChanged"
	StateChanged     Type = "stateChanged"
	FocusIn          Type = "focusIn"
	FocusOut         Type = "focusOut"
	MouseEnter       Type = "mouseEnter"
	MouseLeave       Type = "mouseLeave"
	MouseMove        Type = "mouseMove"
	KeyPressed       Type = "keyPressed"
	KeyReleased      Type = "keyReleased"
	ValidationFailed Type = "validationFailed"
	ValidationPassed Type = "validationPassed"
	Initialized      Type = "initialized"
	Destroyed        Type = "destroyed"
	Shown            Type = "shown"
	Hidden           Type = "hidden"
	Custom           Type = "custom"
)

// Builtin lists the predefined event types.
var Builtin = []Type{
	Clicked, DoubleClicked, Pressed, Released, Toggled, ValueChanged,
	TextChanged, SelectionChanged, StateChanged, FocusIn, FocusOut,
	MouseEnter, MouseLeave, MouseMove, KeyPressed, KeyReleased,
	ValidationFailed, ValidationPassed, Initialized, Destroyed, Shown,
	Hidden, Custom,
}

// Priority orders handlers for one event; higher runs first.
type Priority int

const (
	Low Priority = iota
	Normal
	High
	Critical
)

func (p Priority) String() string {
	switch p {
	case Low:
		return "low"
	case Normal:
		return "normal"
	case High:
		return "high"
	case Critical:
		return "critical"
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// ParsePriority maps a priority name to its value.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "low":
		return Low, nil
	case "normal", "":
		return Normal, nil
	case "high":
		return High, nil
	case "critical":
		return Critical, nil
	}
	return Normal, fmt.Errorf("event: unknown priority %q", s)
}

// Modifier is a keyboard modifier bit set.
type Modifier int

const (
	ModShift Modifier = 1 << iota
	ModCtrl
	ModAlt
	ModMeta
)

// Payload keys used by the typed accessors.
const (
	KeyButton     = "button"
	KeyModifiers  = "modifiers"
	KeyX          = "x"
	KeyY          = "y"
	KeyOldValue   = "oldValue"
	KeyNewValue   = "newValue"
	KeyOldText    = "oldText"
	KeyNewText    = "newText"
	KeyCursor     = "cursorPosition"
	KeyKey        = "key"
	KeyText       = "text"
	KeyAutoRepeat = "autoRepeat"
	KeyProperty   = "property"
	KeyValue      = "value"
	KeyMessage    = "errorMessage"
	KeyCustomType = "customType"
)

// Event is the single concrete event type. Families are distinguished by
// Type and read through the typed accessors over Data.
type Event struct {
	Type     Type
	Source   *command.Command
	Time     time.Time
	ID       uuid.UUID
	Data     map[string]value.Value
	Priority Priority

	accepted bool
	stopped  bool
}

// New returns an event of type t from src carrying a copy of data.
func New(t Type, src *command.Command, data map[string]value.Value) *Event {
	d := maps.Clone(data)
	if d == nil {
		d = make(map[string]value.Value)
	}
	return &Event{
		Type:     t,
		Source:   src,
		Time:     time.Now(),
		ID:       uuid.New(),
		Data:     d,
		Priority: Normal,
		accepted: true,
	}
}

// Get returns the payload entry for key.
func (e *Event) Get(key string) value.Value { return e.Data[key] }

// Set writes a payload entry.
func (e *Event) Set(key string, v any) { e.Data[key] = value.Of(v) }

// Accept marks the event as handled. Acceptance is advisory.
func (e *Event) Accept() { e.accepted = true }

// Ignore clears the accepted flag.
func (e *Event) Ignore() { e.accepted = false }

func (e *Event) IsAccepted() bool { return e.accepted }

// StopPropagation prevents handlers after the current one from running.
func (e *Event) StopPropagation() { e.stopped = true }

func (e *Event) PropagationStopped() bool { return e.stopped }

// Clone returns a copy with a fresh id and cleared propagation state.
func (e *Event) Clone() *Event {
	c := *e
	c.ID = uuid.New()
	c.Data = maps.Clone(e.Data)
	c.stopped = false
	return &c
}

// ToSerializable renders the event as a canonical tree.
func (e *Event) ToSerializable() map[string]any {
	data := make(map[string]any, len(e.Data))
	for k, v := range e.Data {
		data[k] = v.ToTree()
	}
	out := map[string]any{
		"type":      string(e.Type),
		"id":        e.ID.String(),
		"timestamp": e.Time.UnixMilli(),
		"priority":  e.Priority.String(),
		"accepted":  e.accepted,
		"data":      data,
	}
	if e.Source != nil {
		out["source"] = e.Source.ID().String()
	}
	return out
}

func (e *Event) String() string {
	return fmt.Sprintf("%s#%s from %v", e.Type, e.ID.String()[:8], e.Source)
}
