// Package native defines the contract of an opaque retained-mode widget
// toolkit. Commands never talk to a concrete toolkit; they see a Widget
// with reflective property access, named signals and a parent/child tree.
//
// Base is a reusable implementation of the contract that toolkits embed to
// get property schemas, signal plumbing and child ownership for free.
package native

import (
	"errors"

	"gitlab.com/tinyland/lab/declui/pkg/value"
)

var (
	// ErrDisposed is returned by operations on a disposed widget.
	ErrDisposed = errors.New("native: widget disposed")

	// ErrUnknownProperty is returned when a property is not declared and
	// the widget does not accept dynamic properties.
	ErrUnknownProperty = errors.New("native: unknown property")

	// ErrPropertyType is returned when a value cannot be converted to the
	// declared kind of a property.
	ErrPropertyType = errors.New("native: property type mismatch")

	// ErrReadOnly is returned when writing a read-only property.
	ErrReadOnly = errors.New("native: property is read-only")

	// ErrUnknownSignal is returned when connecting to an undeclared signal.
	ErrUnknownSignal = errors.New("native: unknown signal")

	// ErrUnknownClass is returned by a Toolkit for unregistered classes.
	ErrUnknownClass = errors.New("native: unknown widget class")
)

// SignalDestroyed is emitted by every widget when it is disposed.
const SignalDestroyed = "destroyed"

// Connection identifies a signal listener on a widget.
type Connection uint64

// Widget is a native toolkit widget.
type Widget interface {
	// Class returns the toolkit class name, e.g. "PushButton".
	Class() string

	Property(name string) (value.Value, bool)
	SetProperty(name string, v value.Value) error

	// Connect registers fn for the named signal.
	Connect(signal string, fn func(args ...value.Value)) (Connection, error)
	Disconnect(c Connection) bool
	Signals() []string

	Parent() Widget
	SetParent(p Widget)
	AddChild(w Widget) error
	RemoveChild(w Widget) bool
	Children() []Widget

	// Dispose destroys the widget and every child it owns.
	Dispose()
	Disposed() bool
}

// Toolkit creates widgets by class name.
type Toolkit interface {
	New(class string) (Widget, error)
	Classes() []string
}
