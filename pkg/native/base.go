package native

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"gitlab.com/tinyland/lab/declui/pkg/value"
)

// PropertySpec declares one widget property.
type PropertySpec struct {
	Name string
	// Kind is the storage kind. KindInvalid accepts any value unchanged.
	Kind     value.Kind
	Default  value.Value
	ReadOnly bool
}

type listener struct {
	id   Connection
	fn   func(args ...value.Value)
	dead bool
}

// Base implements Widget. Concrete toolkit widgets embed *Base and call
// Init with themselves so the parent/child links carry the outer type.
type Base struct {
	self     Widget
	class    string
	schema   map[string]PropertySpec
	props    map[string]value.Value
	dynamic  bool
	signals  map[string][]*listener
	nextConn Connection
	parent   Widget
	children []Widget
	disposed bool

	// OnChange, when set, runs after a property value changes.
	OnChange func(name string, v value.Value)
}

// NewGeneric returns a standalone Base that accepts dynamic properties.
// It is useful for tests and for toolkits without specialised widgets.
func NewGeneric(class string, props []PropertySpec, signals ...string) *Base {
	b := &Base{}
	b.Init(b, class, props, signals...)
	b.dynamic = true
	return b
}

// Init prepares b. self must be the outermost widget embedding b.
func (b *Base) Init(self Widget, class string, props []PropertySpec, signals ...string) {
	b.self = self
	b.class = class
	b.schema = make(map[string]PropertySpec, len(props))
	b.props = make(map[string]value.Value, len(props))
	for _, p := range props {
		b.schema[p.Name] = p
		if p.Default.IsValid() {
			b.props[p.Name] = p.Default
		}
	}
	b.signals = make(map[string][]*listener, len(signals)+1)
	b.signals[SignalDestroyed] = nil
	for _, s := range signals {
		b.signals[s] = nil
	}
}

// AllowDynamic toggles acceptance of undeclared properties.
func (b *Base) AllowDynamic(on bool) { b.dynamic = on }

func (b *Base) Class() string { return b.class }

func (b *Base) Property(name string) (value.Value, bool) {
	v, ok := b.props[name]
	return v, ok
}

// SetProperty converts v to the declared kind and stores it. Writing an
// equal value is a no-op. The invalid value resets the property to its
// default.
func (b *Base) SetProperty(name string, v value.Value) error {
	if spec, ok := b.schema[name]; ok && spec.ReadOnly {
		return fmt.Errorf("%w: %s.%s", ErrReadOnly, b.class, name)
	}
	return b.Update(name, v)
}

// Update is SetProperty without the read-only check. Toolkits use it to
// reflect user interaction into widget state.
func (b *Base) Update(name string, v value.Value) error {
	if b.disposed {
		return ErrDisposed
	}
	spec, declared := b.schema[name]
	if !declared && !b.dynamic {
		return fmt.Errorf("%w: %s.%s", ErrUnknownProperty, b.class, name)
	}
	if !v.IsValid() {
		v = spec.Default
	} else if declared {
		cv, err := convert(spec.Kind, v)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", b.class, name, err)
		}
		v = cv
	}
	if old, ok := b.props[name]; ok && value.Equal(old, v) {
		return nil
	}
	if v.IsValid() {
		b.props[name] = v
	} else {
		delete(b.props, name)
	}
	if b.OnChange != nil {
		b.OnChange(name, v)
	}
	return nil
}

// PropertyNames returns the sorted names of properties with a value.
func (b *Base) PropertyNames() []string {
	names := make([]string, 0, len(b.props))
	for n := range b.props {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (b *Base) Connect(signal string, fn func(args ...value.Value)) (Connection, error) {
	if b.disposed {
		return 0, ErrDisposed
	}
	if _, ok := b.signals[signal]; !ok {
		return 0, fmt.Errorf("%w: %s::%s", ErrUnknownSignal, b.class, signal)
	}
	if fn == nil {
		return 0, errors.New("native: nil listener")
	}
	b.nextConn++
	b.signals[signal] = append(b.signals[signal], &listener{id: b.nextConn, fn: fn})
	return b.nextConn, nil
}

func (b *Base) Disconnect(c Connection) bool {
	for sig, ls := range b.signals {
		for i, l := range ls {
			if l.id == c {
				l.dead = true
				b.signals[sig] = append(ls[:i:i], ls[i+1:]...)
				return true
			}
		}
	}
	return false
}

// Listeners returns the number of listeners on signal.
func (b *Base) Listeners(signal string) int { return len(b.signals[signal]) }

func (b *Base) Signals() []string {
	names := make([]string, 0, len(b.signals))
	for s := range b.signals {
		names = append(names, s)
	}
	sort.Strings(names)
	return names
}

// Emit fires signal with args. Listeners added while emitting are not
// called until the next emission.
func (b *Base) Emit(signal string, args ...value.Value) {
	ls := slices.Clone(b.signals[signal])
	for _, l := range ls {
		if !l.dead {
			l.fn(args...)
		}
	}
}

func (b *Base) Parent() Widget { return b.parent }

func (b *Base) SetParent(p Widget) { b.parent = p }

// AddChild appends w, detaching it from any previous parent.
func (b *Base) AddChild(w Widget) error {
	if b.disposed {
		return ErrDisposed
	}
	if w == nil || w == b.self {
		return errors.New("native: invalid child")
	}
	if w.Disposed() {
		return ErrDisposed
	}
	if p := w.Parent(); p != nil {
		p.RemoveChild(w)
	}
	b.children = append(b.children, w)
	w.SetParent(b.self)
	return nil
}

func (b *Base) RemoveChild(w Widget) bool {
	i := slices.Index(b.children, w)
	if i < 0 {
		return false
	}
	b.children = slices.Delete(b.children, i, i+1)
	if w.Parent() == b.self {
		w.SetParent(nil)
	}
	return true
}

func (b *Base) Children() []Widget { return slices.Clone(b.children) }

// Dispose disposes children first, detaches from the parent and emits the
// destroyed signal.
func (b *Base) Dispose() {
	if b.disposed {
		return
	}
	for _, c := range slices.Clone(b.children) {
		c.Dispose()
	}
	if b.parent != nil {
		b.parent.RemoveChild(b.self)
	}
	b.Emit(SignalDestroyed)
	b.disposed = true
	for sig := range b.signals {
		for _, l := range b.signals[sig] {
			l.dead = true
		}
		b.signals[sig] = nil
	}
}

func (b *Base) Disposed() bool { return b.disposed }

func convert(kind value.Kind, v value.Value) (value.Value, error) {
	if kind == value.KindInvalid || v.Kind() == kind {
		return v, nil
	}
	var (
		out value.Value
		ok  bool
	)
	switch kind {
	case value.KindString:
		var s string
		if s, ok = v.ToString(); ok {
			out = value.Str(s)
		}
	case value.KindInt:
		var i int64
		if i, ok = v.ToInt(); ok {
			out = value.Int(i)
		}
	case value.KindFloat:
		var f float64
		if f, ok = v.ToFloat(); ok {
			out = value.Float(f)
		}
	case value.KindBool:
		var bv bool
		if bv, ok = v.ToBool(); ok {
			out = value.Bool(bv)
		}
	}
	if !ok {
		return value.Value{}, fmt.Errorf("%w: cannot store %s as %s", ErrPropertyType, v.Kind(), kind)
	}
	return out, nil
}
