// Package command implements the toolkit-independent UI tree: typed state
// bags (State) attached to nodes (Command) that carry type identity,
// ordered children, event intake and the hooks used by the widget mapper
// and the state binding adapter.
//
// Commands are not safe for concurrent use; they live on the UI goroutine.
package command

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sort"

	"github.com/google/uuid"

	"gitlab.com/tinyland/lab/declui/pkg/native"
	"gitlab.com/tinyland/lab/declui/pkg/signal"
	"gitlab.com/tinyland/lab/declui/pkg/value"
)

var (
	// ErrInvalidChild is returned by AddChild for nil, self, ancestor or
	// destroyed children.
	ErrInvalidChild = errors.New("command: invalid child")

	// ErrNotChild is returned by RemoveChild when c is not a direct child.
	ErrNotChild = errors.New("command: not a child")

	// ErrDestroyed is returned by operations on a destroyed command.
	ErrDestroyed = errors.New("command: destroyed")
)

// DefaultBindProperty is the property bound when none is named.
const DefaultBindProperty = "value"

// Phase is the widget lifecycle phase of a command.
type Phase int

const (
	Unbound Phase = iota
	Bound
	Destroyed
)

func (p Phase) String() string {
	switch p {
	case Unbound:
		return "unbound"
	case Bound:
		return "bound"
	case Destroyed:
		return "destroyed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Projector copies properties between a command and its widget. The
// widget mapper installs itself as the projector when it attaches a
// widget. A nil names slice means every mapped property.
type Projector interface {
	Project(c *Command, names []string) error
	Extract(c *Command, names []string) error
}

// Binder wires state binding intents. The state binding adapter
// implements it.
type Binder interface {
	Bind(c *Command, key, property string) error
	Unbind(c *Command, properties ...string) int
}

// Behavior customises a widget family. Unset fields fall back to the
// projector installed by the mapper.
type Behavior struct {
	SyncTo   func(c *Command, w native.Widget, names []string) error
	SyncFrom func(c *Command, w native.Widget, names []string) error
	Attached func(c *Command, w native.Widget)
	Detached func(c *Command)
}

// Triggered is the payload of Command.EventTriggered.
type Triggered struct {
	Type string
	Data value.Value
}

// HandlerID identifies a command-local event handler.
type HandlerID uint64

type localHandler struct {
	id HandlerID
	fn func(data value.Value)
}

// Command is one node of the logical UI tree.
type Command struct {
	id        uuid.UUID
	meta      Metadata
	state     *State
	children  []*Command
	parent    *Command
	widget    native.Widget
	projector Projector
	phase     Phase
	behavior  Behavior
	refs      int
	log       *slog.Logger

	handlers    map[string][]localHandler
	nextHandler HandlerID

	suppliers map[string]func() value.Value
	bindings  map[string]string // property -> external key
	wired     map[string]bool
	binder    Binder

	ChildAdded     signal.Signal[*Command]
	ChildRemoved   signal.Signal[*Command]
	EventTriggered signal.Signal[Triggered]
	// Destroying fires once, after the children are gone and before the
	// command's own handlers are dropped.
	Destroying signal.Signal[*Command]
}

// New returns an unbound command of the type described by meta. Default
// properties are seeded by the factory, not here.
func New(meta Metadata) *Command {
	return &Command{
		id:        uuid.New(),
		meta:      meta.Clone(),
		state:     NewState(),
		handlers:  make(map[string][]localHandler),
		suppliers: make(map[string]func() value.Value),
		bindings:  make(map[string]string),
		wired:     make(map[string]bool),
	}
}

func (c *Command) ID() uuid.UUID { return c.id }

func (c *Command) Type() string { return c.meta.Type }

// Metadata returns a copy of the type descriptor.
func (c *Command) Metadata() Metadata { return c.meta.Clone() }

func (c *Command) State() *State { return c.state }

func (c *Command) Phase() Phase { return c.phase }

func (c *Command) IsBound() bool { return c.phase == Bound }

func (c *Command) IsDestroyed() bool { return c.phase == Destroyed }

// Widget returns the bound native widget, or nil.
func (c *Command) Widget() native.Widget { return c.widget }

// SetLogger overrides the logger used for rejected operations.
func (c *Command) SetLogger(l *slog.Logger) { c.log = l }

func (c *Command) logger() *slog.Logger {
	if c.log != nil {
		return c.log
	}
	return slog.Default()
}

// SetBehavior installs widget-family hooks.
func (c *Command) SetBehavior(b Behavior) { c.behavior = b }

func (c *Command) String() string {
	return fmt.Sprintf("%s(%s)", c.meta.Type, c.id.String()[:8])
}

// --- Hierarchy ---

// Parent returns the parent command, or nil for a root.
func (c *Command) Parent() *Command { return c.parent }

// Children returns a copy of the ordered child list.
func (c *Command) Children() []*Command { return slices.Clone(c.children) }

// ChildCount returns the number of children.
func (c *Command) ChildCount() int { return len(c.children) }

// Root walks parent links to the top of the tree.
func (c *Command) Root() *Command {
	r := c
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// IsAncestorOf reports whether c is a strict ancestor of other.
func (c *Command) IsAncestorOf(other *Command) bool {
	for p := other.parent; p != nil; p = p.parent {
		if p == c {
			return true
		}
	}
	return false
}

// AddChild detaches child from any previous parent and appends it.
// Self-parenting, cycles, nil and destroyed children are rejected and
// logged.
func (c *Command) AddChild(child *Command) error {
	switch {
	case child == nil:
		c.logger().Warn("command: rejected nil child", "parent", c)
		return fmt.Errorf("%w: nil", ErrInvalidChild)
	case child == c:
		c.logger().Warn("command: rejected self-parenting", "command", c)
		return fmt.Errorf("%w: self", ErrInvalidChild)
	case child.IsAncestorOf(c):
		c.logger().Warn("command: rejected cycle", "parent", c, "child", child)
		return fmt.Errorf("%w: ancestor", ErrInvalidChild)
	case c.phase == Destroyed || child.phase == Destroyed:
		c.logger().Warn("command: rejected child of destroyed node", "parent", c, "child", child)
		return fmt.Errorf("%w: %w", ErrInvalidChild, ErrDestroyed)
	}
	if p := child.parent; p != nil {
		p.detach(child)
	}
	c.children = append(c.children, child)
	child.parent = c
	c.ChildAdded.Emit(child)
	return nil
}

// RemoveChild detaches a direct child and emits ChildRemoved.
func (c *Command) RemoveChild(child *Command) error {
	if child == nil || child.parent != c {
		return ErrNotChild
	}
	c.detach(child)
	return nil
}

func (c *Command) detach(child *Command) {
	i := slices.Index(c.children, child)
	if i < 0 {
		return
	}
	c.children = slices.Delete(c.children, i, i+1)
	child.parent = nil
	c.ChildRemoved.Emit(child)
}

// Walk visits c and its descendants in pre-order.
func (c *Command) Walk(fn func(*Command)) {
	fn(c)
	for _, ch := range slices.Clone(c.children) {
		ch.Walk(fn)
	}
}

// FindByID searches the subtree rooted at c.
func (c *Command) FindByID(id uuid.UUID) *Command {
	if c.id == id {
		return c
	}
	for _, ch := range c.children {
		if f := ch.FindByID(id); f != nil {
			return f
		}
	}
	return nil
}

// --- Ownership ---

// Retain records an external reference. A retained child survives the
// destruction of its parent and is detached instead.
func (c *Command) Retain() { c.refs++ }

// Release drops an external reference and returns the remaining count.
func (c *Command) Release() int {
	if c.refs > 0 {
		c.refs--
	}
	return c.refs
}

// Refs returns the number of external references.
func (c *Command) Refs() int { return c.refs }

// Destroy tears the subtree down post-order. Unretained children are
// destroyed, retained ones are detached. Destroying is then emitted so the
// mapper, dispatcher and adapter release the node before its handlers and
// bindings are cleared.
func (c *Command) Destroy() {
	if c.phase == Destroyed {
		return
	}
	for _, ch := range slices.Clone(c.children) {
		if ch.refs > 0 {
			c.detach(ch)
			continue
		}
		ch.Destroy()
	}
	c.Destroying.Emit(c)
	if c.parent != nil {
		c.parent.detach(c)
	}
	c.phase = Destroyed
	c.widget = nil
	c.projector = nil
	c.handlers = make(map[string][]localHandler)
	c.suppliers = make(map[string]func() value.Value)
	c.bindings = make(map[string]string)
	c.wired = make(map[string]bool)
	c.binder = nil
	c.ChildAdded.Reset()
	c.ChildRemoved.Reset()
	c.EventTriggered.Reset()
	c.Destroying.Reset()
}

// --- Widget hooks ---

// OnWidgetAttached moves the command to Bound and projects its state onto
// w. Only the widget mapper calls it.
func (c *Command) OnWidgetAttached(w native.Widget, p Projector) error {
	if c.phase == Destroyed {
		return ErrDestroyed
	}
	c.widget = w
	c.projector = p
	c.phase = Bound
	if c.behavior.Attached != nil {
		c.behavior.Attached(c, w)
	}
	return c.SyncToWidget()
}

// OnWidgetDetached extracts widget-owned values back into the state and
// returns the command to Unbound. Only the widget mapper calls it.
func (c *Command) OnWidgetDetached() error {
	if c.phase != Bound {
		return nil
	}
	err := c.SyncFromWidget()
	if c.behavior.Detached != nil {
		c.behavior.Detached(c)
	}
	c.widget = nil
	c.projector = nil
	c.phase = Unbound
	return err
}

// SyncToWidget projects the named properties, or all of them, onto the
// bound widget. It is a no-op when unbound.
func (c *Command) SyncToWidget(names ...string) error {
	if c.phase != Bound {
		return nil
	}
	if c.behavior.SyncTo != nil {
		return c.behavior.SyncTo(c, c.widget, names)
	}
	if c.projector == nil {
		return nil
	}
	return c.projector.Project(c, names)
}

// SyncFromWidget extracts the named properties, or every bidirectional
// one, from the bound widget. It is a no-op when unbound.
func (c *Command) SyncFromWidget(names ...string) error {
	if c.phase != Bound {
		return nil
	}
	if c.behavior.SyncFrom != nil {
		return c.behavior.SyncFrom(c, c.widget, names)
	}
	if c.projector == nil {
		return nil
	}
	return c.projector.Extract(c, names)
}

// --- Events ---

// On registers a command-local handler for event type t.
func (c *Command) On(t string, fn func(data value.Value)) HandlerID {
	if fn == nil || c.phase == Destroyed {
		return 0
	}
	c.nextHandler++
	c.handlers[t] = append(c.handlers[t], localHandler{id: c.nextHandler, fn: fn})
	return c.nextHandler
}

// Off removes a command-local handler.
func (c *Command) Off(id HandlerID) bool {
	for t, hs := range c.handlers {
		for i, h := range hs {
			if h.id == id {
				c.handlers[t] = slices.Delete(hs, i, i+1)
				if len(c.handlers[t]) == 0 {
					delete(c.handlers, t)
				}
				return true
			}
		}
	}
	return false
}

// HasHandler reports whether a local handler exists for t.
func (c *Command) HasHandler(t string) bool { return len(c.handlers[t]) > 0 }

// HandlerTypes returns the sorted event types with local handlers.
func (c *Command) HandlerTypes() []string {
	ts := slices.Collect(maps.Keys(c.handlers))
	sort.Strings(ts)
	return ts
}

// HandleEvent invokes the local handlers for t in registration order and
// then emits EventTriggered. A panicking handler is logged and does not
// stop the others.
func (c *Command) HandleEvent(t string, data value.Value) {
	if c.phase == Destroyed {
		return
	}
	for _, h := range slices.Clone(c.handlers[t]) {
		c.invoke(t, h, data)
	}
	c.EventTriggered.Emit(Triggered{Type: t, Data: data})
}

func (c *Command) invoke(t string, h localHandler, data value.Value) {
	defer func() {
		if r := recover(); r != nil {
			c.logger().Error("command: event handler panicked", "command", c, "event", t, "panic", r)
		}
	}()
	h.fn(data)
}

// --- Property and state bindings ---

// BindProperty stores a supplier whose result is written to name on every
// RefreshBindings.
func (c *Command) BindProperty(name string, supplier func() value.Value) {
	if supplier == nil {
		delete(c.suppliers, name)
		return
	}
	c.suppliers[name] = supplier
}

// BindToState records the intent to mirror property into the external key.
// The binding is wired by the Binder on the next RefreshBindings.
func (c *Command) BindToState(key, property string) {
	if property == "" {
		property = DefaultBindProperty
	}
	if old, ok := c.bindings[property]; ok && old != key && c.wired[property] && c.binder != nil {
		c.binder.Unbind(c, property)
	}
	if c.bindings[property] != key {
		delete(c.wired, property)
	}
	c.bindings[property] = key
}

// UnbindFromState removes the intent and any live binding for property.
func (c *Command) UnbindFromState(property string) {
	if property == "" {
		property = DefaultBindProperty
	}
	if c.wired[property] && c.binder != nil {
		c.binder.Unbind(c, property)
	}
	delete(c.bindings, property)
	delete(c.wired, property)
}

// StateBindings returns a copy of the property to key intents.
func (c *Command) StateBindings() map[string]string { return maps.Clone(c.bindings) }

// SetBinder installs the adapter that wires state binding intents.
func (c *Command) SetBinder(b Binder) { c.binder = b }

// MarkUnbound clears the wired flag for property. The adapter calls it
// when a binding is removed from its side.
func (c *Command) MarkUnbound(property string) { delete(c.wired, property) }

// RefreshBindings evaluates property suppliers and wires pending state
// bindings. Failures are collected; the remaining work still runs.
func (c *Command) RefreshBindings() error {
	if c.phase == Destroyed {
		return ErrDestroyed
	}
	var errs []error
	names := slices.Collect(maps.Keys(c.suppliers))
	sort.Strings(names)
	for _, n := range names {
		if err := c.state.Set(n, c.suppliers[n]()); err != nil {
			errs = append(errs, err)
		}
	}
	if c.binder != nil {
		props := slices.Collect(maps.Keys(c.bindings))
		sort.Strings(props)
		for _, p := range props {
			if c.wired[p] {
				continue
			}
			if err := c.binder.Bind(c, c.bindings[p], p); err != nil {
				errs = append(errs, err)
				continue
			}
			c.wired[p] = true
		}
	}
	return errors.Join(errs...)
}
