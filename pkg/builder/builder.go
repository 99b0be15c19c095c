// Package builder provides chainable construction of commands on top of a
// factory.
//
// A Builder records configuration and applies it in one step when Build is
// called:
//
//	save, err := builder.New(f, "Button").
//		Text("Save").
//		Tooltip("Write the file").
//		OnClick(func() { ... }).
//		Build()
package builder

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"

	"gitlab.com/tinyland/lab/declui/pkg/binding"
	"gitlab.com/tinyland/lab/declui/pkg/command"
	"gitlab.com/tinyland/lab/declui/pkg/event"
	"gitlab.com/tinyland/lab/declui/pkg/factory"
	"gitlab.com/tinyland/lab/declui/pkg/value"
)

// ErrInvalid is returned by Build when the recorded configuration cannot
// produce a command.
var ErrInvalid = errors.New("builder: invalid configuration")

type handler struct {
	event string
	fn    func(data value.Value)
}

// Builder configures one command. The zero value is not usable; call New.
// Methods return the receiver so calls can be chained.
type Builder struct {
	f   *factory.Factory
	typ string

	props      map[string]any
	order      []string
	validators map[string][]command.Validator
	required   []string
	handlers   []handler
	named      map[string]string
	bindings   map[string]string
	suppliers  map[string]func() value.Value

	children []*Builder
	prebuilt []*command.Command

	errs []error
}

// New returns a builder for a command of typ created through f.
func New(f *factory.Factory, typ string) *Builder {
	if f == nil {
		panic("builder: nil factory")
	}
	return &Builder{
		f:          f,
		typ:        typ,
		props:      make(map[string]any),
		validators: make(map[string][]command.Validator),
		named:      make(map[string]string),
		bindings:   make(map[string]string),
		suppliers:  make(map[string]func() value.Value),
	}
}

// Type returns the command type the builder creates.
func (b *Builder) Type() string { return b.typ }

// --- Properties ---

// Property records a property value. Later calls for the same name win.
func (b *Builder) Property(name string, v any) *Builder {
	if name == "" {
		b.errs = append(b.errs, fmt.Errorf("%w: empty property name", ErrInvalid))
		return b
	}
	if _, ok := b.props[name]; !ok {
		b.order = append(b.order, name)
	}
	b.props[name] = v
	return b
}

// Properties records every entry of props in key order.
func (b *Builder) Properties(props map[string]any) *Builder {
	keys := slices.Collect(maps.Keys(props))
	sort.Strings(keys)
	for _, k := range keys {
		b.Property(k, props[k])
	}
	return b
}

func (b *Builder) Text(s string) *Builder        { return b.Property("text", s) }
func (b *Builder) Placeholder(s string) *Builder { return b.Property("placeholder", s) }
func (b *Builder) Enabled(on bool) *Builder      { return b.Property("enabled", on) }
func (b *Builder) Visible(on bool) *Builder      { return b.Property("visible", on) }
func (b *Builder) Tooltip(s string) *Builder     { return b.Property("tooltip", s) }
func (b *Builder) Icon(path string) *Builder     { return b.Property("icon", path) }
func (b *Builder) MaxLength(n int) *Builder      { return b.Property("maxLength", n) }
func (b *Builder) Spacing(n int) *Builder        { return b.Property("spacing", n) }
func (b *Builder) StyleClass(s string) *Builder  { return b.Property("styleClass", s) }

// Layout records the container orientation, "vertical" or "horizontal".
func (b *Builder) Layout(orientation string) *Builder {
	return b.Property("orientation", orientation)
}

// Style records a style sheet string.
func (b *Builder) Style(sheet string) *Builder { return b.Property("style", sheet) }

// Size records the preferred width and height.
func (b *Builder) Size(width, height int) *Builder {
	return b.Property("width", width).Property("height", height)
}

// --- Events ---

// OnEvent adds a command-local handler for event type t.
func (b *Builder) OnEvent(t event.Type, fn func(data value.Value)) *Builder {
	if fn == nil {
		return b
	}
	b.handlers = append(b.handlers, handler{event: string(t), fn: fn})
	return b
}

// OnClick adds a handler for clicked.
func (b *Builder) OnClick(fn func()) *Builder {
	if fn == nil {
		return b
	}
	return b.OnEvent(event.Clicked, func(value.Value) { fn() })
}

// OnTextChanged adds a handler receiving the new text of textChanged.
func (b *Builder) OnTextChanged(fn func(text string)) *Builder {
	if fn == nil {
		return b
	}
	return b.OnEvent(event.TextChanged, func(data value.Value) {
		v, _ := data.Field(event.KeyNewText)
		fn(value.As(v, ""))
	})
}

// OnValueChanged adds a handler receiving the old and new values of
// valueChanged.
func (b *Builder) OnValueChanged(fn func(old, next value.Value)) *Builder {
	if fn == nil {
		return b
	}
	return b.OnEvent(event.ValueChanged, func(data value.Value) {
		old, _ := data.Field(event.KeyOldValue)
		next, _ := data.Field(event.KeyNewValue)
		fn(old, next)
	})
}

// Handler wires event type t to a handler registered on the factory under
// name. Unlike closures, named handlers survive Node export.
func (b *Builder) Handler(t event.Type, name string) *Builder {
	b.named[string(t)] = name
	return b
}

// --- Bindings ---

// BindToState records the intent to mirror property into the external
// key. An omitted property means "value".
func (b *Builder) BindToState(key string, property ...string) *Builder {
	prop := command.DefaultBindProperty
	if len(property) > 0 && property[0] != "" {
		prop = property[0]
	}
	if key == "" {
		b.errs = append(b.errs, fmt.Errorf("%w: empty state key for %q", ErrInvalid, prop))
		return b
	}
	b.bindings[prop] = key
	return b
}

// BindProperty records a supplier evaluated on every refresh of the
// command's bindings.
func (b *Builder) BindProperty(property string, supplier func() value.Value) *Builder {
	if supplier == nil {
		delete(b.suppliers, property)
		return b
	}
	b.suppliers[property] = supplier
	return b
}

// --- Validation ---

// Validator adds v for property.
func (b *Builder) Validator(property string, v command.Validator) *Builder {
	if v == nil {
		return b
	}
	b.validators[property] = append(b.validators[property], v)
	return b
}

// Predicate adds a boolean validator for property.
func (b *Builder) Predicate(property string, ok func(value.Value) bool, reason string) *Builder {
	if ok == nil {
		return b
	}
	return b.Validator(property, command.Predicate(ok, reason))
}

// Required marks property as mandatory. It must have a value at build time
// and cannot be cleared afterwards.
func (b *Builder) Required(property string) *Builder {
	if !slices.Contains(b.required, property) {
		b.required = append(b.required, property)
	}
	return b.Validator(property, binding.Required())
}

// Range restricts property to numbers within [min, max].
func (b *Builder) Range(property string, min, max float64) *Builder {
	if min > max {
		b.errs = append(b.errs, fmt.Errorf("%w: %s: range [%g, %g] is empty", ErrInvalid, property, min, max))
		return b
	}
	return b.Validator(property, binding.Range(min, max))
}

// --- Children ---

// Child appends a sub-builder. It is built when b is.
func (b *Builder) Child(child *Builder) *Builder {
	if child == nil {
		return b
	}
	b.children = append(b.children, child)
	return b
}

// Children appends every sub-builder in order.
func (b *Builder) Children(children ...*Builder) *Builder {
	for _, ch := range children {
		b.Child(ch)
	}
	return b
}

// ChildCommand appends an already built command. Prebuilt commands are
// attached after the sub-builders.
func (b *Builder) ChildCommand(c *command.Command) *Builder {
	if c == nil {
		return b
	}
	b.prebuilt = append(b.prebuilt, c)
	return b
}

// --- Checking ---

// Errors lists the problems Build would fail on, with child problems
// prefixed by their position.
func (b *Builder) Errors() []string {
	var out []string
	b.check("", &out)
	return out
}

// Validate reports whether Errors is empty.
func (b *Builder) Validate() bool { return len(b.Errors()) == 0 }

func (b *Builder) check(path string, out *[]string) {
	at := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		if path != "" {
			msg = path + ": " + msg
		}
		*out = append(*out, msg)
	}
	for _, err := range b.errs {
		at("%v", err)
	}
	meta, ok := b.f.Metadata(b.typ)
	if !ok {
		at("unknown type %q", b.typ)
	}
	required := slices.Clone(b.required)
	for _, r := range meta.Required {
		if !slices.Contains(required, r) {
			required = append(required, r)
		}
	}
	for _, r := range required {
		_, set := b.props[r]
		_, def := meta.Defaults[r]
		_, supplied := b.suppliers[r]
		if !set && !def && !supplied {
			at("required property %q missing", r)
		}
	}
	for _, name := range b.order {
		v := value.Of(b.props[name])
		for _, fn := range b.validators[name] {
			if err := fn(v); err != nil {
				at("property %q: %v", name, err)
				break
			}
		}
	}
	for _, t := range sortedKeys(b.named) {
		if _, ok := b.f.Handler(b.named[t]); !ok {
			at("event %q names unknown handler %q", t, b.named[t])
		}
	}
	for i, ch := range b.children {
		ch.check(fmt.Sprintf("%schildren[%d]", prefix(path), i), out)
	}
}

func prefix(path string) string {
	if path == "" {
		return ""
	}
	return path + "."
}

// --- Building ---

// Build creates the command and applies the recorded configuration in this
// order: validators, properties, handlers, binding intents, suppliers,
// children. Any failure destroys what was created and returns a nil
// command.
func (b *Builder) Build() (*command.Command, error) {
	if err := errors.Join(b.errs...); err != nil {
		return nil, err
	}
	c, err := b.f.Create(b.typ)
	if err != nil {
		return nil, fmt.Errorf("builder: build %s: %w", b.typ, err)
	}
	if err := b.apply(c); err != nil {
		c.Destroy()
		return nil, fmt.Errorf("builder: build %s: %w", b.typ, err)
	}
	return c, nil
}

// MustBuild is Build for configurations known to be valid. It panics on
// error.
func (b *Builder) MustBuild() *command.Command {
	c, err := b.Build()
	if err != nil {
		panic(err)
	}
	return c
}

func (b *Builder) apply(c *command.Command) error {
	st := c.State()
	for _, name := range sortedKeys(b.validators) {
		for _, fn := range b.validators[name] {
			st.AddValidator(name, fn)
		}
	}

	var errs []error
	for _, name := range b.order {
		if err := st.Set(name, b.props[name]); err != nil {
			errs = append(errs, err)
		}
	}
	for _, r := range b.required {
		if !st.Has(r) && b.suppliers[r] == nil {
			errs = append(errs, fmt.Errorf("%w: required property %q missing", ErrInvalid, r))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	for _, h := range b.handlers {
		c.On(h.event, h.fn)
	}
	for _, t := range sortedKeys(b.named) {
		fn, ok := b.f.Handler(b.named[t])
		if !ok {
			return fmt.Errorf("%w: %s", factory.ErrHandlerUnknown, b.named[t])
		}
		c.On(t, func(data value.Value) { fn(c, data) })
	}
	for _, prop := range sortedKeys(b.bindings) {
		c.BindToState(b.bindings[prop], prop)
	}
	if len(b.suppliers) > 0 {
		for _, prop := range sortedKeys(b.suppliers) {
			c.BindProperty(prop, b.suppliers[prop])
		}
		if err := c.RefreshBindings(); err != nil {
			return err
		}
	}

	for i, ch := range b.children {
		cc, err := ch.Build()
		if err != nil {
			return fmt.Errorf("children[%d]: %w", i, err)
		}
		if err := c.AddChild(cc); err != nil {
			cc.Destroy()
			return fmt.Errorf("children[%d]: %w", i, err)
		}
	}
	for _, cc := range b.prebuilt {
		if err := c.AddChild(cc); err != nil {
			return err
		}
	}
	return nil
}

// --- Export ---

// Node returns the configuration tree equivalent of b. Closure handlers,
// validators and suppliers have no tree form and are left out; prebuilt
// children are exported from their current state.
func (b *Builder) Node() factory.Node {
	n := factory.Node{Type: b.typ}
	if len(b.props) > 0 {
		n.Properties = make(map[string]any, len(b.props))
		for k, v := range b.props {
			n.Properties[k] = value.Of(v)
		}
	}
	if len(b.bindings) > 0 {
		n.Bindings = maps.Clone(b.bindings)
	}
	if len(b.named) > 0 {
		n.Events = maps.Clone(b.named)
	}
	for _, ch := range b.children {
		n.Children = append(n.Children, ch.Node())
	}
	for _, c := range b.prebuilt {
		n.Children = append(n.Children, NodeOf(c))
	}
	return n
}

// NodeOf exports the current state of a command tree. Handlers are not
// exported.
func NodeOf(c *command.Command) factory.Node {
	n := factory.Node{Type: c.Type()}
	if snap := c.State().Snapshot(); len(snap) > 0 {
		n.Properties = make(map[string]any, len(snap))
		for k, v := range snap {
			n.Properties[k] = v
		}
	}
	if bs := c.StateBindings(); len(bs) > 0 {
		n.Bindings = bs
	}
	for _, ch := range c.Children() {
		n.Children = append(n.Children, NodeOf(ch))
	}
	return n
}

func sortedKeys[V any](m map[string]V) []string {
	keys := slices.Collect(maps.Keys(m))
	sort.Strings(keys)
	return keys
}
